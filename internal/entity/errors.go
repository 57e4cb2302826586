package entity

import "errors"

// Domain errors
var (
	// Conversation errors
	ErrEmptyDocument    = errors.New("no questions found in the document")
	ErrEmptyMessage     = errors.New("message cannot be empty")
	ErrNoActiveQuestion = errors.New("no active question")
	ErrSessionNotFound  = errors.New("session not found")

	// Integration errors
	ErrGateway = errors.New("llm gateway error")

	// Finalization errors
	ErrPopulation       = errors.New("form population failed")
	ErrArtifactNotFound = errors.New("artifact not found")

	// File errors
	ErrInvalidFile      = errors.New("invalid file")
	ErrFileTooLarge     = errors.New("file too large")
	ErrInvalidExtension = errors.New("invalid file extension")

	// Validation errors
	ErrMissingField     = errors.New("required field is missing")
	ErrInvalidFormat    = errors.New("invalid format")
	ErrInvalidParameter = errors.New("invalid parameter")
)
