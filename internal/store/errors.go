package store

import "errors"

var (
	// ErrNotFound is returned when a requested project doesn't exist
	ErrNotFound = errors.New("not found")

	// ErrDuplicate is returned when a project already exists for the same
	// user, owner and repository
	ErrDuplicate = errors.New("project already exists")
)
