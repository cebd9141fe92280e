// Package feedback turns logged mistakes into the learner-facing summary:
// counts by category and language, a weekly trend, repeated errors, and an
// optional LLM-generated list of practice suggestions.
package feedback

import (
	"database/sql"
	"fmt"
	"strings"
	"time"

	"tutorbot/internal/storage/sqlite"
)

type TypeCount struct {
	ErrorType string `json:"error_type"`
	Count     int    `json:"count"`
}

type LanguageCount struct {
	TargetLanguage string `json:"target_language"`
	Count          int    `json:"count"`
}

type WeekPoint struct {
	WeekStart string `json:"week_start"`
	Mistakes  int    `json:"mistakes"`
}

type RepeatedMistake struct {
	ErrorSentence     string `json:"error_sentence"`
	CorrectedSentence string `json:"corrected_sentence"`
	ErrorType         string `json:"error_type"`
	Count             int    `json:"count"`
}

type Summary struct {
	Since         time.Time         `json:"since"`
	TotalMistakes int               `json:"total_mistakes"`
	ByType        []TypeCount       `json:"by_type"`
	ByLanguage    []LanguageCount   `json:"by_language"`
	WeeklyTrend   []WeekPoint       `json:"weekly_trend"`
	Repeated      []RepeatedMistake `json:"repeated"`
}

const repeatedMinCount = 2
const repeatedLimit = 10

func BuildSummary(db *sql.DB, since time.Time) (Summary, error) {
	s := Summary{Since: since}

	stats, err := sqlite.GetMistakeStats(db, since)
	if err != nil {
		return s, fmt.Errorf("mistake stats: %w", err)
	}
	s.TotalMistakes = stats.TotalMistakes

	byType, err := sqlite.CountByErrorType(db, since)
	if err != nil {
		return s, fmt.Errorf("count by error type: %w", err)
	}
	for _, t := range byType {
		s.ByType = append(s.ByType, TypeCount{ErrorType: t.ErrorType, Count: t.Count})
	}

	byLang, err := sqlite.CountByLanguage(db, since)
	if err != nil {
		return s, fmt.Errorf("count by language: %w", err)
	}
	for _, l := range byLang {
		s.ByLanguage = append(s.ByLanguage, LanguageCount{TargetLanguage: l.TargetLanguage, Count: l.Count})
	}

	trend, err := sqlite.GetWeeklyMistakeTrend(db, since)
	if err != nil {
		return s, fmt.Errorf("weekly trend: %w", err)
	}
	for _, w := range trend {
		s.WeeklyTrend = append(s.WeeklyTrend, WeekPoint{WeekStart: w.WeekStart, Mistakes: w.Mistakes})
	}

	repeated, err := sqlite.GetRepeatedMistakes(db, since, repeatedMinCount, repeatedLimit)
	if err != nil {
		return s, fmt.Errorf("repeated mistakes: %w", err)
	}
	for _, r := range repeated {
		s.Repeated = append(s.Repeated, RepeatedMistake{
			ErrorSentence:     r.ErrorSentence,
			CorrectedSentence: r.CorrectedSentence,
			ErrorType:         r.ErrorType,
			Count:             r.Count,
		})
	}

	return s, nil
}

// FormatDigest renders a summary as plain text for the Slack digest.
func FormatDigest(s Summary) string {
	var out strings.Builder
	out.WriteString(fmt.Sprintf("Language practice digest since %s\n", s.Since.Format("Jan 2")))
	out.WriteString(fmt.Sprintf("Total mistakes logged: %d\n", s.TotalMistakes))

	if len(s.ByType) > 0 {
		var parts []string
		for _, t := range s.ByType {
			parts = append(parts, fmt.Sprintf("%s %d", t.ErrorType, t.Count))
		}
		out.WriteString("By category: " + strings.Join(parts, ", ") + "\n")
	}
	if len(s.ByLanguage) > 0 {
		var parts []string
		for _, l := range s.ByLanguage {
			parts = append(parts, fmt.Sprintf("%s %d", l.TargetLanguage, l.Count))
		}
		out.WriteString("By language: " + strings.Join(parts, ", ") + "\n")
	}
	if len(s.Repeated) > 0 {
		out.WriteString("Still tripping over:\n")
		for _, r := range s.Repeated {
			out.WriteString(fmt.Sprintf("- %q -> %q (%s, %dx)\n", r.ErrorSentence, r.CorrectedSentence, r.ErrorType, r.Count))
		}
	}
	if s.TotalMistakes == 0 {
		out.WriteString("No mistakes logged yet. Start a lesson!\n")
	}
	return out.String()
}
