package repository

import "errors"

var (
	// ErrUserNotFound is returned when no user matches the lookup key.
	ErrUserNotFound = errors.New("user not found")
	// ErrTaskNotFound is returned when no task matches the given id.
	ErrTaskNotFound = errors.New("task not found")
	// ErrUserExists is returned on a unique email violation.
	ErrUserExists = errors.New("user already exists")
)
