package question

import "errors"

// MaxQuestionLen bounds accepted question length in bytes
const MaxQuestionLen = 4000

var (
	// ErrEmptyQuestion is returned when the question is blank
	ErrEmptyQuestion = errors.New("question must not be empty")

	// ErrQuestionTooLong is returned when the question exceeds MaxQuestionLen
	ErrQuestionTooLong = errors.New("question is too long")
)
