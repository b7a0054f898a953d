package repository

import "errors"

var (
	// ErrNotFound is returned when no record exists for the requested id.
	ErrNotFound = errors.New("record not found")

	// ErrEmptyID is returned when a record is stored without an id.
	ErrEmptyID = errors.New("record id must not be empty")

	// ErrClosed is returned after the store has been closed.
	ErrClosed = errors.New("store is closed")
)
