package repository

import "errors"

// Sentinel kinds for store errors.
var (
	ErrNotFound = errors.New("record not found")
	// ErrConflict reports a unique constraint violation, such as two
	// concurrent inserts for the same rank position.
	ErrConflict = errors.New("record conflict")
	ErrStorage  = errors.New("storage failure")
)
