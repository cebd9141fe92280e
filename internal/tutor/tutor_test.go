package tutor

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/anthropics/anthropic-sdk-go"

	"tutorbot/internal/domain"
	"tutorbot/internal/session"
)

func testLesson() domain.Lesson {
	return domain.Lesson{
		ID:             "sess-1",
		NativeLanguage: "English",
		TargetLanguage: "Spanish",
		Proficiency:    "Beginner",
		Scenario:       "Restaurant",
	}
}

func TestBuildSystemPrompt(t *testing.T) {
	prompt := buildSystemPrompt(testLesson())

	for _, want := range []string{
		"Spanish language tutor",
		"log_mistake",
		"grammar/vocabulary/pronunciation/syntax",
		"Never mention you're logging errors",
		"Proficiency: Beginner",
		"Scenario: Restaurant",
		"Native language: English",
	} {
		if !strings.Contains(prompt, want) {
			t.Errorf("system prompt missing %q", want)
		}
	}
}

func TestOpeningInput(t *testing.T) {
	if got := OpeningInput(testLesson()); got != "Begin Restaurant scenario" {
		t.Fatalf("unexpected opening input: %q", got)
	}

	lesson := testLesson()
	lesson.Scenario = "  "
	if got := OpeningInput(lesson); got != "Begin free conversation scenario" {
		t.Fatalf("unexpected opening input for empty scenario: %q", got)
	}
}

func TestAnthropicMessagesStartOnUserTurn(t *testing.T) {
	lesson := testLesson()

	// Transcript after a lesson opening plus the learner's next input, the
	// exact list Respond assembles for the second turn.
	history := []session.Message{
		{Role: session.RoleUser, Content: OpeningInput(lesson)},
		{Role: session.RoleAssistant, Content: "¡Hola! Bienvenido al restaurante."},
	}
	msgs := append(append([]session.Message{}, history...), session.Message{
		Role:    session.RoleUser,
		Content: "Yo es feliz",
	})

	params := anthropicMessages(msgs)
	if len(params) != 3 {
		t.Fatalf("expected 3 messages, got %d", len(params))
	}
	if params[0].Role != anthropic.MessageParamRoleUser {
		t.Fatalf("first upstream message must be a user turn, got %q", params[0].Role)
	}
	if params[1].Role != anthropic.MessageParamRoleAssistant {
		t.Fatalf("expected assistant second, got %q", params[1].Role)
	}
	if params[2].Role != anthropic.MessageParamRoleUser {
		t.Fatalf("expected user last, got %q", params[2].Role)
	}
}

func TestParseLogMistakeArgs(t *testing.T) {
	raw := json.RawMessage(`{
		"native_lang": "English",
		"target_lang": "Spanish",
		"error_sentence": "Yo es feliz",
		"corrected_sentence": "Yo soy feliz",
		"error_type": "grammar"
	}`)
	args, err := parseLogMistakeArgs(raw)
	if err != nil {
		t.Fatalf("parseLogMistakeArgs failed: %v", err)
	}
	if args.ErrorSentence != "Yo es feliz" || args.ErrorType != "grammar" {
		t.Fatalf("unexpected args: %+v", args)
	}

	if _, err := parseLogMistakeArgs(json.RawMessage(`not json`)); err == nil {
		t.Fatal("expected error for invalid JSON")
	}
}

func TestMistakesFromToolCalls(t *testing.T) {
	lesson := testLesson()
	calls := []logMistakeArgs{
		{
			NativeLang:        "English",
			TargetLang:        "Spanish",
			ErrorSentence:     "Yo es feliz",
			CorrectedSentence: "Yo soy feliz",
			ErrorType:         "Grammar",
		},
		{
			// Languages omitted by the model: the lesson fills them in.
			ErrorSentence:     "la problema",
			CorrectedSentence: "el problema",
			ErrorType:         "word choice",
		},
		{
			// No correction: dropped.
			ErrorSentence: "???",
			ErrorType:     "grammar",
		},
	}

	mistakes := mistakesFromToolCalls(lesson, calls)
	if len(mistakes) != 2 {
		t.Fatalf("expected 2 mistakes, got %d", len(mistakes))
	}

	first := mistakes[0]
	if first.SessionID != "sess-1" {
		t.Fatalf("expected session id to come from lesson, got %q", first.SessionID)
	}
	if first.ErrorType != "grammar" {
		t.Fatalf("expected normalized error type, got %q", first.ErrorType)
	}

	second := mistakes[1]
	if second.NativeLanguage != "English" || second.TargetLanguage != "Spanish" {
		t.Fatalf("expected lesson languages as fallback, got %+v", second)
	}
	if second.ErrorType != "vocabulary" {
		t.Fatalf("expected 'word choice' normalized to vocabulary, got %q", second.ErrorType)
	}
}

func TestUsageAccounting(t *testing.T) {
	u := Usage{InputTokens: 10, OutputTokens: 5}
	u.Add(Usage{InputTokens: 3, OutputTokens: 2, CacheReadInputTokens: 7})

	if u.TotalTokens() != 20 {
		t.Fatalf("expected 20 total tokens, got %d", u.TotalTokens())
	}
	if u.CacheReadInputTokens != 7 {
		t.Fatalf("expected cache read tokens to accumulate, got %d", u.CacheReadInputTokens)
	}
}
