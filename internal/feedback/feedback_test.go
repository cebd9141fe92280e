package feedback

import (
	"context"
	"database/sql"
	"errors"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"tutorbot/internal/domain"
	"tutorbot/internal/storage/sqlite"
	"tutorbot/internal/tutor"
)

func newTestDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := sqlite.InitDB(filepath.Join(t.TempDir(), "feedback_test.db"))
	if err != nil {
		t.Fatalf("InitDB failed: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

func TestBuildSummary(t *testing.T) {
	db := newTestDB(t)

	now := time.Now().UTC()
	mistakes := []domain.Mistake{
		{SessionID: "s1", NativeLanguage: "English", TargetLanguage: "Spanish", ErrorSentence: "Yo es feliz", CorrectedSentence: "Yo soy feliz", ErrorType: "grammar", CreatedAt: now},
		{SessionID: "s1", NativeLanguage: "English", TargetLanguage: "Spanish", ErrorSentence: "yo es feliz", CorrectedSentence: "Yo soy feliz", ErrorType: "grammar", CreatedAt: now.Add(-time.Hour)},
		{SessionID: "s2", NativeLanguage: "English", TargetLanguage: "French", ErrorSentence: "le voiture", CorrectedSentence: "la voiture", ErrorType: "vocabulary", CreatedAt: now},
	}
	if _, err := sqlite.InsertMistakes(db, mistakes); err != nil {
		t.Fatalf("InsertMistakes failed: %v", err)
	}

	since := now.Add(-30 * 24 * time.Hour)
	s, err := BuildSummary(db, since)
	if err != nil {
		t.Fatalf("BuildSummary failed: %v", err)
	}

	if s.TotalMistakes != 3 {
		t.Errorf("expected 3 total mistakes, got %d", s.TotalMistakes)
	}
	if len(s.ByType) != 2 {
		t.Errorf("expected 2 type buckets, got %+v", s.ByType)
	}
	if len(s.ByLanguage) != 2 {
		t.Errorf("expected 2 language buckets, got %+v", s.ByLanguage)
	}
	if len(s.Repeated) != 1 {
		t.Fatalf("expected 1 repeated mistake, got %+v", s.Repeated)
	}
	if s.Repeated[0].Count != 2 {
		t.Errorf("expected repeated count 2, got %d", s.Repeated[0].Count)
	}
	if len(s.WeeklyTrend) == 0 {
		t.Error("expected at least one weekly trend point")
	}
}

func TestBuildSummaryEmpty(t *testing.T) {
	db := newTestDB(t)

	s, err := BuildSummary(db, time.Now().Add(-24*time.Hour))
	if err != nil {
		t.Fatalf("BuildSummary failed: %v", err)
	}
	if s.TotalMistakes != 0 {
		t.Errorf("expected 0 mistakes on empty db, got %d", s.TotalMistakes)
	}
}

func TestFormatDigest(t *testing.T) {
	s := Summary{
		Since:         time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC),
		TotalMistakes: 5,
		ByType:        []TypeCount{{ErrorType: "grammar", Count: 3}, {ErrorType: "vocabulary", Count: 2}},
		ByLanguage:    []LanguageCount{{TargetLanguage: "Spanish", Count: 5}},
		Repeated: []RepeatedMistake{
			{ErrorSentence: "Yo es feliz", CorrectedSentence: "Yo soy feliz", ErrorType: "grammar", Count: 2},
		},
	}

	text := FormatDigest(s)
	for _, want := range []string{
		"since Aug 1",
		"Total mistakes logged: 5",
		"grammar 3",
		"Spanish 5",
		"Still tripping over:",
		"Yo es feliz",
	} {
		if !strings.Contains(text, want) {
			t.Errorf("digest missing %q:\n%s", want, text)
		}
	}

	empty := FormatDigest(Summary{Since: s.Since})
	if !strings.Contains(empty, "No mistakes logged yet") {
		t.Errorf("empty digest missing placeholder:\n%s", empty)
	}
}

// stubCompleter returns a canned response, or an error.
type stubCompleter struct {
	response string
	err      error
	prompts  []string
}

func (s *stubCompleter) Complete(_ context.Context, _, userPrompt string) (string, tutor.Usage, error) {
	s.prompts = append(s.prompts, userPrompt)
	return s.response, tutor.Usage{InputTokens: 10, OutputTokens: 20}, s.err
}

func TestAdvise(t *testing.T) {
	stub := &stubCompleter{response: `[{"title": "Ser vs estar", "reasoning": "repeated copula errors", "focus": "grammar", "exercise": "Write 10 sentences using ser and estar"}]`}
	s := Summary{
		TotalMistakes: 2,
		ByType:        []TypeCount{{ErrorType: "grammar", Count: 2}},
		Repeated: []RepeatedMistake{
			{ErrorSentence: "Yo es feliz", CorrectedSentence: "Yo soy feliz", ErrorType: "grammar", Count: 2},
		},
	}

	suggestions, usage, err := Advise(context.Background(), stub, s)
	if err != nil {
		t.Fatalf("Advise failed: %v", err)
	}
	if len(suggestions) != 1 {
		t.Fatalf("expected 1 suggestion, got %d", len(suggestions))
	}
	if suggestions[0].Focus != "grammar" {
		t.Errorf("unexpected focus: %q", suggestions[0].Focus)
	}
	if usage.TotalTokens() != 30 {
		t.Errorf("expected usage to pass through, got %d", usage.TotalTokens())
	}
	if len(stub.prompts) != 1 || !strings.Contains(stub.prompts[0], "Yo es feliz") {
		t.Errorf("expected repeated errors in the prompt, got %q", stub.prompts)
	}
}

func TestAdviseNoMistakes(t *testing.T) {
	stub := &stubCompleter{err: errors.New("should not be called")}

	suggestions, _, err := Advise(context.Background(), stub, Summary{})
	if err != nil {
		t.Fatalf("Advise failed: %v", err)
	}
	if suggestions != nil {
		t.Errorf("expected nil suggestions without mistakes, got %+v", suggestions)
	}
	if len(stub.prompts) != 0 {
		t.Error("expected no LLM call without mistakes")
	}
}

func TestParseAdviceResponse(t *testing.T) {
	fenced := "```json\n[{\"title\": \"Articles\", \"reasoning\": \"gender errors\", \"focus\": \"vocabulary\", \"exercise\": \"Drill noun genders\"}]\n```"
	suggestions, err := parseAdviceResponse(fenced)
	if err != nil {
		t.Fatalf("parseAdviceResponse failed on fenced input: %v", err)
	}
	if len(suggestions) != 1 || suggestions[0].Title != "Articles" {
		t.Fatalf("unexpected suggestions: %+v", suggestions)
	}

	var many []string
	for i := 0; i < 7; i++ {
		many = append(many, `{"title": "t", "reasoning": "r", "focus": "grammar", "exercise": "e"}`)
	}
	suggestions, err = parseAdviceResponse("[" + strings.Join(many, ",") + "]")
	if err != nil {
		t.Fatalf("parseAdviceResponse failed: %v", err)
	}
	if len(suggestions) != maxSuggestions {
		t.Errorf("expected cap at %d suggestions, got %d", maxSuggestions, len(suggestions))
	}

	if _, err := parseAdviceResponse("the model rambled instead of emitting JSON"); err == nil {
		t.Error("expected error for non-JSON response")
	}
}
