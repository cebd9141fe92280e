package domain

import "errors"

var (
	ErrMissingNativeLanguage = errors.New("native language is required")
	ErrMissingTargetLanguage = errors.New("target language is required")
	ErrLessonNotFound        = errors.New("lesson not found")
)
