package api

import (
	"errors"
	"fmt"
)

var (
	// ErrBadRequest marks malformed or invalid request payloads.
	ErrBadRequest = errors.New("bad request")
	// ErrBackpressure marks submissions rejected because the queue is full.
	ErrBackpressure = errors.New("queue at capacity")
)

// NewKind tags a sentinel with the failing operation.
func NewKind(op string, kind error) error {
	return fmt.Errorf("%s: %w", op, kind)
}

// WrapKind tags an underlying error with both the operation and a sentinel,
// so callers can match on the kind while keeping the cause.
func WrapKind(op string, kind, err error) error {
	return fmt.Errorf("%s: %w: %w", op, kind, err)
}
