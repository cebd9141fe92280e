package domain

import (
	"strings"
	"time"
)

// Lesson is one tutoring session: a language pair, a difficulty level,
// and a conversation scenario. The ID doubles as the chat session ID.
type Lesson struct {
	ID             string
	NativeLanguage string
	TargetLanguage string
	Proficiency    string // "Beginner", "Intermediate", "Advanced"
	Scenario       string
	StartedAt      time.Time
}

var Proficiencies = []string{"Beginner", "Intermediate", "Advanced"}

// Scenarios are the suggested lesson settings. Free-text scenarios are
// accepted too; this list only drives the UI picker.
var Scenarios = []string{"Restaurant", "Hotel", "Shopping", "Directions", "Social", "Work"}

func NormalizeProficiency(raw string) string {
	s := strings.ToLower(strings.TrimSpace(raw))
	for _, p := range Proficiencies {
		if s == strings.ToLower(p) {
			return p
		}
	}
	return "Beginner"
}

// Validate checks the fields a lesson cannot start without.
func (l Lesson) Validate() error {
	if strings.TrimSpace(l.NativeLanguage) == "" {
		return ErrMissingNativeLanguage
	}
	if strings.TrimSpace(l.TargetLanguage) == "" {
		return ErrMissingTargetLanguage
	}
	return nil
}
