package scoring

import "errors"

var (
	// ErrEmptyConversation is returned when there is nothing to score.
	ErrEmptyConversation = errors.New("conversation must not be empty")
)
