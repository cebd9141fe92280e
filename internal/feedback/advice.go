package feedback

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"tutorbot/internal/tutor"
)

// Completer is the slice of the tutor the advice pass needs.
type Completer interface {
	Complete(ctx context.Context, systemPrompt, userPrompt string) (string, tutor.Usage, error)
}

type PracticeSuggestion struct {
	Title     string `json:"title"`
	Reasoning string `json:"reasoning"`
	Focus     string `json:"focus"`    // error category the suggestion targets
	Exercise  string `json:"exercise"` // one concrete drill the learner can do
}

const maxSuggestions = 5

// Advise asks the model to read the aggregated mistakes and propose up to
// five practice suggestions. Returns nil when there is nothing to analyze.
func Advise(ctx context.Context, llm Completer, s Summary) ([]PracticeSuggestion, tutor.Usage, error) {
	if s.TotalMistakes == 0 {
		return nil, tutor.Usage{}, nil
	}

	systemPrompt := `You analyze a language learner's logged mistakes to suggest targeted practice.

Find patterns in the mistake statistics and repeated errors below. Only suggest
practice for patterns with real evidence (repeated errors or dominant categories).
Max 5 suggestions.

For each suggestion provide:
- "title": short name of the practice area
- "reasoning": why the data supports it
- "focus": one of grammar, vocabulary, pronunciation, syntax, other
- "exercise": one concrete drill the learner can do today

Respond with JSON only (no markdown):
[{"title": "...", "reasoning": "...", "focus": "grammar", "exercise": "..."}, ...]`

	var data strings.Builder
	data.WriteString(fmt.Sprintf("Total mistakes: %d\n", s.TotalMistakes))
	if len(s.ByType) > 0 {
		data.WriteString("Mistakes by category:\n")
		for _, t := range s.ByType {
			data.WriteString(fmt.Sprintf("- %s: %d\n", t.ErrorType, t.Count))
		}
	}
	if len(s.ByLanguage) > 0 {
		data.WriteString("Mistakes by target language:\n")
		for _, l := range s.ByLanguage {
			data.WriteString(fmt.Sprintf("- %s: %d\n", l.TargetLanguage, l.Count))
		}
	}
	if len(s.Repeated) > 0 {
		data.WriteString("Repeated errors:\n")
		for _, r := range s.Repeated {
			desc := r.ErrorSentence
			if len(desc) > 150 {
				desc = desc[:150] + "..."
			}
			data.WriteString(fmt.Sprintf("- \"%s\" -> \"%s\" (%s, %d times)\n", desc, r.CorrectedSentence, r.ErrorType, r.Count))
		}
	}

	userPrompt := "Learner's mistake data:\n" + data.String()

	responseText, usage, err := llm.Complete(ctx, systemPrompt, userPrompt)
	if err != nil {
		return nil, usage, err
	}

	suggestions, parseErr := parseAdviceResponse(responseText)
	return suggestions, usage, parseErr
}

func parseAdviceResponse(responseText string) ([]PracticeSuggestion, error) {
	responseText = strings.TrimSpace(responseText)
	responseText = strings.TrimPrefix(responseText, "```json")
	responseText = strings.TrimPrefix(responseText, "```")
	responseText = strings.TrimSuffix(responseText, "```")
	responseText = strings.TrimSpace(responseText)

	var suggestions []PracticeSuggestion
	if err := json.Unmarshal([]byte(responseText), &suggestions); err != nil {
		truncated := responseText
		if len(truncated) > 512 {
			truncated = truncated[:512] + fmt.Sprintf("... [truncated, total_length=%d]", len(responseText))
		}
		return nil, fmt.Errorf("parsing advice response: %w (truncated response: %s)", err, truncated)
	}

	if len(suggestions) > maxSuggestions {
		suggestions = suggestions[:maxSuggestions]
	}
	return suggestions, nil
}
