package domain

import (
	"strings"
	"time"
)

// Mistake is one logged language error with its correction, as reported
// by the tutor model through the log_mistake tool.
type Mistake struct {
	ID                int64
	SessionID         string
	NativeLanguage    string
	TargetLanguage    string
	ErrorSentence     string
	CorrectedSentence string
	ErrorType         string // "grammar", "vocabulary", "pronunciation", "syntax", or "other"
	CreatedAt         time.Time
}

// ErrorTypes is the closed set of mistake categories the tutor is asked to use.
var ErrorTypes = []string{"grammar", "vocabulary", "pronunciation", "syntax"}

// NormalizeErrorType maps free-form model output onto the known categories.
// Anything unrecognized becomes "other".
func NormalizeErrorType(raw string) string {
	s := strings.ToLower(strings.TrimSpace(raw))
	for _, t := range ErrorTypes {
		if s == t {
			return t
		}
	}
	switch {
	case strings.Contains(s, "grammar"), strings.Contains(s, "conjugat"), strings.Contains(s, "tense"):
		return "grammar"
	case strings.Contains(s, "vocab"), strings.Contains(s, "word choice"):
		return "vocabulary"
	case strings.Contains(s, "pronunc"), strings.Contains(s, "spelling"), strings.Contains(s, "accent"):
		return "pronunciation"
	case strings.Contains(s, "syntax"), strings.Contains(s, "word order"):
		return "syntax"
	}
	return "other"
}

// Valid reports whether the mistake carries enough substance to persist.
func (m Mistake) Valid() bool {
	return strings.TrimSpace(m.ErrorSentence) != "" && strings.TrimSpace(m.CorrectedSentence) != ""
}
