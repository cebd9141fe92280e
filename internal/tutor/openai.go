package tutor

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"

	"tutorbot/internal/httpx"
	"tutorbot/internal/session"
)

const openAIChatCompletionsURL = "https://api.openai.com/v1/chat/completions"

type openAIRequest struct {
	Model       string          `json:"model"`
	Temperature float64         `json:"temperature"`
	Messages    []openAIMessage `json:"messages"`
	Tools       []openAITool    `json:"tools,omitempty"`
}

type openAIMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type openAITool struct {
	Type     string         `json:"type"`
	Function openAIFunction `json:"function"`
}

type openAIFunction struct {
	Name        string         `json:"name"`
	Description string         `json:"description"`
	Parameters  map[string]any `json:"parameters"`
}

type openAIResponse struct {
	Choices []struct {
		Message struct {
			Content   string `json:"content"`
			ToolCalls []struct {
				ID       string `json:"id"`
				Type     string `json:"type"`
				Function struct {
					Name      string `json:"name"`
					Arguments string `json:"arguments"`
				} `json:"function"`
			} `json:"tool_calls"`
		} `json:"message"`
	} `json:"choices"`
	Usage *struct {
		PromptTokens     int64 `json:"prompt_tokens"`
		CompletionTokens int64 `json:"completion_tokens"`
		TotalTokens      int64 `json:"total_tokens"`
	} `json:"usage"`
	Error *struct {
		Message string `json:"message"`
	} `json:"error"`
}

func (t *Tutor) callOpenAI(ctx context.Context, model, systemPrompt string, msgs []session.Message, withTools bool) (llmResult, error) {
	messages := make([]openAIMessage, 0, len(msgs)+1)
	messages = append(messages, openAIMessage{Role: "system", Content: systemPrompt})
	for _, m := range msgs {
		messages = append(messages, openAIMessage{Role: m.Role, Content: m.Content})
	}

	reqBody := openAIRequest{
		Model:       model,
		Temperature: t.cfg.LLMTemperature,
		Messages:    messages,
	}
	if withTools {
		reqBody.Tools = []openAITool{
			{
				Type: "function",
				Function: openAIFunction{
					Name:        logMistakeToolName,
					Description: logMistakeDescription,
					Parameters: map[string]any{
						"type":       "object",
						"properties": logMistakeSchema,
						"required":   logMistakeRequired,
					},
				},
			},
		}
	}

	bodyBytes, err := json.Marshal(reqBody)
	if err != nil {
		return llmResult{}, fmt.Errorf("marshaling request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, "POST", openAIChatCompletionsURL, bytes.NewReader(bodyBytes))
	if err != nil {
		return llmResult{}, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+t.cfg.OpenAIAPIKey)

	resp, err := httpx.Client().Do(req)
	if err != nil {
		log.Printf("tutor openai error: %v", err)
		return llmResult{}, fmt.Errorf("OpenAI API error: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return llmResult{}, fmt.Errorf("reading response: %w", err)
	}

	var openAIResp openAIResponse
	if err := json.Unmarshal(respBody, &openAIResp); err != nil {
		return llmResult{}, fmt.Errorf("parsing OpenAI response: %w", err)
	}

	if openAIResp.Error != nil {
		log.Printf("tutor openai api error: %s", openAIResp.Error.Message)
		return llmResult{}, fmt.Errorf("OpenAI API error: %s", openAIResp.Error.Message)
	}

	if len(openAIResp.Choices) == 0 {
		return llmResult{}, fmt.Errorf("no choices in OpenAI response")
	}

	result := llmResult{text: openAIResp.Choices[0].Message.Content}
	if openAIResp.Usage != nil {
		result.usage.InputTokens = openAIResp.Usage.PromptTokens
		result.usage.OutputTokens = openAIResp.Usage.CompletionTokens
	}

	for _, tc := range openAIResp.Choices[0].Message.ToolCalls {
		if tc.Function.Name != logMistakeToolName {
			log.Printf("tutor openai unexpected tool call name=%s", tc.Function.Name)
			continue
		}
		args, parseErr := parseLogMistakeArgs(json.RawMessage(tc.Function.Arguments))
		if parseErr != nil {
			log.Printf("tutor openai tool parse error: %v", parseErr)
			continue
		}
		result.toolCalls = append(result.toolCalls, args)
	}

	log.Printf("tutor openai response size=%d tool_calls=%d tokens_in=%d tokens_out=%d",
		len(result.text), len(result.toolCalls), result.usage.InputTokens, result.usage.OutputTokens)
	return result, nil
}
