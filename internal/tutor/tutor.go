package tutor

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"strings"

	"tutorbot/internal/config"
	"tutorbot/internal/domain"
	"tutorbot/internal/session"
)

type Usage struct {
	InputTokens              int64
	OutputTokens             int64
	CacheCreationInputTokens int64
	CacheReadInputTokens     int64
}

func (u Usage) TotalTokens() int64 {
	return u.InputTokens + u.OutputTokens
}

func (u *Usage) Add(other Usage) {
	u.InputTokens += other.InputTokens
	u.OutputTokens += other.OutputTokens
	u.CacheCreationInputTokens += other.CacheCreationInputTokens
	u.CacheReadInputTokens += other.CacheReadInputTokens
}

// Reply is one assistant turn: the text shown to the learner plus any
// mistakes the model logged through the log_mistake tool.
type Reply struct {
	Text     string
	Mistakes []domain.Mistake
	Usage    Usage
}

// llmResult is the raw outcome of a single provider call.
type llmResult struct {
	text      string
	toolCalls []logMistakeArgs
	usage     Usage
}

// logMistakeArgs mirrors the log_mistake tool input.
type logMistakeArgs struct {
	NativeLang        string `json:"native_lang"`
	TargetLang        string `json:"target_lang"`
	ErrorSentence     string `json:"error_sentence"`
	CorrectedSentence string `json:"corrected_sentence"`
	ErrorType         string `json:"error_type"`
}

type Tutor struct {
	cfg config.Config
}

func New(cfg config.Config) *Tutor {
	return &Tutor{cfg: cfg}
}

// Respond runs one conversation turn: history plus the user's new input, with
// the log_mistake tool available. When the model only emits tool calls and no
// text, a follow-up turn is requested so the learner always gets a reply.
func (t *Tutor) Respond(ctx context.Context, lesson domain.Lesson, history []session.Message, userText string) (Reply, error) {
	msgs := append(append([]session.Message{}, history...), session.Message{
		Role:    session.RoleUser,
		Content: userText,
	})

	result, err := t.call(ctx, lesson, msgs)
	if err != nil {
		return Reply{}, err
	}

	reply := Reply{
		Text:     strings.TrimSpace(result.text),
		Mistakes: mistakesFromToolCalls(lesson, result.toolCalls),
		Usage:    result.usage,
	}

	if reply.Text == "" && len(result.toolCalls) > 0 {
		log.Printf("tutor follow-up session=%s tool_calls=%d", lesson.ID, len(result.toolCalls))
		followMsgs := append(msgs, session.Message{Role: session.RoleUser, Content: continueInput})
		follow, err := t.call(ctx, lesson, followMsgs)
		if err != nil {
			return Reply{}, err
		}
		reply.Usage.Add(follow.usage)
		reply.Text = strings.TrimSpace(follow.text)
	}

	if reply.Text == "" {
		return Reply{}, fmt.Errorf("empty tutor response")
	}
	return reply, nil
}

// Opening produces the first assistant message of a lesson.
func (t *Tutor) Opening(ctx context.Context, lesson domain.Lesson) (Reply, error) {
	return t.Respond(ctx, lesson, nil, OpeningInput(lesson))
}

func (t *Tutor) call(ctx context.Context, lesson domain.Lesson, msgs []session.Message) (llmResult, error) {
	systemPrompt := buildSystemPrompt(lesson)
	model := t.cfg.ModelName()

	switch t.cfg.LLMProvider {
	case "openai":
		log.Printf("tutor chat provider=openai model=%s session=%s messages=%d", model, lesson.ID, len(msgs))
		return t.callOpenAI(ctx, model, systemPrompt, msgs, true)
	default:
		log.Printf("tutor chat provider=anthropic model=%s session=%s messages=%d", model, lesson.ID, len(msgs))
		return t.callAnthropic(ctx, model, systemPrompt, msgs, true)
	}
}

// Complete runs a plain text completion without the mistake-logging tool.
// Used for the feedback advice pass.
func (t *Tutor) Complete(ctx context.Context, systemPrompt, userPrompt string) (string, Usage, error) {
	msgs := []session.Message{{Role: session.RoleUser, Content: userPrompt}}
	model := t.cfg.ModelName()

	var result llmResult
	var err error
	switch t.cfg.LLMProvider {
	case "openai":
		log.Printf("tutor complete provider=openai model=%s", model)
		result, err = t.callOpenAI(ctx, model, systemPrompt, msgs, false)
	default:
		log.Printf("tutor complete provider=anthropic model=%s", model)
		result, err = t.callAnthropic(ctx, model, systemPrompt, msgs, false)
	}
	if err != nil {
		return "", result.usage, err
	}
	return result.text, result.usage, nil
}

func mistakesFromToolCalls(lesson domain.Lesson, calls []logMistakeArgs) []domain.Mistake {
	var out []domain.Mistake
	for _, args := range calls {
		m := domain.Mistake{
			SessionID:         lesson.ID,
			NativeLanguage:    strings.TrimSpace(args.NativeLang),
			TargetLanguage:    strings.TrimSpace(args.TargetLang),
			ErrorSentence:     strings.TrimSpace(args.ErrorSentence),
			CorrectedSentence: strings.TrimSpace(args.CorrectedSentence),
			ErrorType:         domain.NormalizeErrorType(args.ErrorType),
		}
		// The model sometimes omits the language fields; the lesson knows them.
		if m.NativeLanguage == "" {
			m.NativeLanguage = lesson.NativeLanguage
		}
		if m.TargetLanguage == "" {
			m.TargetLanguage = lesson.TargetLanguage
		}
		if !m.Valid() {
			log.Printf("tutor skipped invalid log_mistake call session=%s", lesson.ID)
			continue
		}
		out = append(out, m)
	}
	return out
}

func parseLogMistakeArgs(raw json.RawMessage) (logMistakeArgs, error) {
	var args logMistakeArgs
	if err := json.Unmarshal(raw, &args); err != nil {
		return args, fmt.Errorf("parsing log_mistake arguments: %w (input: %s)", err, string(raw))
	}
	return args, nil
}
