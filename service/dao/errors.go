package dao

import "errors"

// Sentinel errors shared by every store; match them with errors.Is.
var (
	ErrNotFound  = errors.New("dao: not found")
	ErrInvalidID = errors.New("dao: invalid id")
	ErrNilEntity = errors.New("dao: nil entity")
	// ErrConflict is returned when an append-only store already holds the key.
	ErrConflict = errors.New("dao: conflict")
)
