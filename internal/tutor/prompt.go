package tutor

import (
	"fmt"
	"strings"

	"tutorbot/internal/domain"
)

const logMistakeToolName = "log_mistake"

const logMistakeDescription = `MANDATORY ERROR LOGGER. Call IMMEDIATELY when detecting mistakes.

Parameters:
- native_lang: User's native language (e.g., "English")
- target_lang: Language being learned (e.g., "Spanish")
- error_sentence: Original incorrect FULL sentence
- corrected_sentence: FULL corrected sentence
- error_type: Error category (grammar/vocabulary/pronunciation/syntax)`

// logMistakeSchema is the JSON schema of the log_mistake tool, shared by both
// providers (Anthropic tool use and OpenAI function calling).
var logMistakeSchema = map[string]any{
	"native_lang": map[string]any{
		"type":        "string",
		"description": "User's native language, e.g. \"English\"",
	},
	"target_lang": map[string]any{
		"type":        "string",
		"description": "Language being learned, e.g. \"Spanish\"",
	},
	"error_sentence": map[string]any{
		"type":        "string",
		"description": "Original incorrect full sentence",
	},
	"corrected_sentence": map[string]any{
		"type":        "string",
		"description": "Full corrected sentence",
	},
	"error_type": map[string]any{
		"type":        "string",
		"description": "Error category: grammar, vocabulary, pronunciation, or syntax",
	},
}

var logMistakeRequired = []string{"native_lang", "target_lang", "error_sentence", "corrected_sentence", "error_type"}

func buildSystemPrompt(lesson domain.Lesson) string {
	return fmt.Sprintf(`You are a %s language tutor. Follow these rules STRICTLY:

1. MISTAKE HANDLING (HIGHEST PRIORITY):
   - When an error is detected:
     1. Immediately call the log_mistake tool with:
        - error_sentence: Exact erroneous text
        - corrected_sentence: Full corrected sentence
        - error_type: grammar/vocabulary/pronunciation/syntax
     2. Show the correction: (Note: [Mistake] -> [Correction])
     3. Continue the conversation naturally

2. RESPONSE STRUCTURE FOR ERRORS:
   (Note: [Mistake] -> [Correction])
   [Follow-up in %s]
   ([%s translation])

3. PROHIBITED ACTIONS:
   - Never mention you're logging errors
   - Never wait for confirmation after correction
   - Never break conversation flow for logging

4. ADAPTATION:
   - Proficiency: %s
   - Scenario: %s
   - Native language: %s`,
		lesson.TargetLanguage,
		lesson.TargetLanguage,
		lesson.NativeLanguage,
		lesson.Proficiency,
		lesson.Scenario,
		lesson.NativeLanguage,
	)
}

// OpeningInput is the user turn that kicks off a lesson. Callers that record
// the transcript must store it as the first user message so the history sent
// upstream always starts on a user turn.
func OpeningInput(lesson domain.Lesson) string {
	scenario := strings.TrimSpace(lesson.Scenario)
	if scenario == "" {
		scenario = "free conversation"
	}
	return fmt.Sprintf("Begin %s scenario", scenario)
}

const continueInput = "Continue the conversation naturally"
