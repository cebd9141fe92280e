package tutor

import (
	"context"
	"fmt"
	"log"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"

	"tutorbot/internal/httpx"
	"tutorbot/internal/session"
)

func (t *Tutor) callAnthropic(ctx context.Context, model, systemPrompt string, msgs []session.Message, withTools bool) (llmResult, error) {
	client := anthropic.NewClient(
		option.WithAPIKey(t.cfg.AnthropicAPIKey),
		option.WithHTTPClient(httpx.Client()),
	)

	params := anthropic.MessageNewParams{
		Model:       anthropic.Model(model),
		MaxTokens:   int64(t.cfg.LLMMaxTokens),
		Temperature: anthropic.Float(t.cfg.LLMTemperature),
		System: []anthropic.TextBlockParam{
			{Text: systemPrompt, CacheControl: anthropic.NewCacheControlEphemeralParam()},
		},
		Messages: anthropicMessages(msgs),
	}
	if withTools {
		params.Tools = []anthropic.ToolUnionParam{
			{
				OfTool: &anthropic.ToolParam{
					Name:        logMistakeToolName,
					Description: anthropic.String(logMistakeDescription),
					InputSchema: anthropic.ToolInputSchemaParam{
						Properties: logMistakeSchema,
						Required:   logMistakeRequired,
					},
				},
			},
		}
	}

	message, err := client.Messages.New(ctx, params)
	if err != nil {
		log.Printf("tutor anthropic error: %v", err)
		return llmResult{}, fmt.Errorf("Anthropic API error: %w", err)
	}

	result := llmResult{
		usage: Usage{
			InputTokens:              message.Usage.InputTokens,
			OutputTokens:             message.Usage.OutputTokens,
			CacheCreationInputTokens: message.Usage.CacheCreationInputTokens,
			CacheReadInputTokens:     message.Usage.CacheReadInputTokens,
		},
	}

	for _, block := range message.Content {
		switch block.Type {
		case "text":
			result.text += block.Text
		case "tool_use":
			if block.Name != logMistakeToolName {
				log.Printf("tutor anthropic unexpected tool call name=%s", block.Name)
				continue
			}
			args, parseErr := parseLogMistakeArgs(block.Input)
			if parseErr != nil {
				log.Printf("tutor anthropic tool parse error: %v", parseErr)
				continue
			}
			result.toolCalls = append(result.toolCalls, args)
		}
	}

	log.Printf("tutor anthropic response size=%d tool_calls=%d tokens_in=%d tokens_out=%d cache_create=%d cache_read=%d",
		len(result.text), len(result.toolCalls),
		result.usage.InputTokens, result.usage.OutputTokens,
		result.usage.CacheCreationInputTokens, result.usage.CacheReadInputTokens)

	if result.text == "" && len(result.toolCalls) == 0 {
		return result, fmt.Errorf("no text content in Anthropic response")
	}
	return result, nil
}

func anthropicMessages(msgs []session.Message) []anthropic.MessageParam {
	out := make([]anthropic.MessageParam, 0, len(msgs))
	for _, m := range msgs {
		if m.Role == session.RoleAssistant {
			out = append(out, anthropic.NewAssistantMessage(anthropic.NewTextBlock(m.Content)))
			continue
		}
		out = append(out, anthropic.NewUserMessage(anthropic.NewTextBlock(m.Content)))
	}
	return out
}
