package llm

import (
	"errors"
	"fmt"
)

var (
	// ErrMissingAPIKey is returned when the client is built without credentials.
	ErrMissingAPIKey = errors.New("api key is required")

	// ErrMissingModel is returned when the client is built without a model name.
	ErrMissingModel = errors.New("model is required")

	// ErrEmptyCompletion is returned when the API answers with no choices.
	ErrEmptyCompletion = errors.New("completion response contained no choices")
)

// StatusError reports a non-2xx response from the completion API.
type StatusError struct {
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("completion api returned status %d: %s", e.StatusCode, e.Body)
}
