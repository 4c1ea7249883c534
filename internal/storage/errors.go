package storage

import "errors"

var (
	// ErrUserNotFound is returned when a user is not found
	ErrUserNotFound = errors.New("user not found")

	// ErrAPIKeyNotFound is returned when a provider key is not found
	ErrAPIKeyNotFound = errors.New("API key not found")

	// ErrQuestionRecordNotFound is returned when a question record is not found
	ErrQuestionRecordNotFound = errors.New("question record not found")

	// ErrDuplicateUser is returned when a username or email is already registered
	ErrDuplicateUser = errors.New("username or email already registered")
)
