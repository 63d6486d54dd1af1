package service

import "errors"

var (
	// ErrNameRequired indicates registration was attempted without a name.
	ErrNameRequired = errors.New("Name is required")
	// ErrEmailRequired indicates registration was attempted without an email.
	ErrEmailRequired = errors.New("Email is required")
	// ErrUserExists is returned when registering with an email that is taken.
	ErrUserExists = errors.New("User already exists")
	// ErrUserNotFound is returned when a user lookup misses.
	ErrUserNotFound = errors.New("User not found")

	// ErrTitleRequired indicates task creation without a title.
	ErrTitleRequired = errors.New("Title is required")
	// ErrInvalidPriority indicates an unknown priority value.
	ErrInvalidPriority = errors.New("Invalid priority")
	// ErrTaskNotFound is returned when a task lookup misses.
	ErrTaskNotFound = errors.New("Task not found")

	// ErrHighPriorityLimit rejects a fourth concurrent active HIGH task.
	ErrHighPriorityLimit = errors.New("User already has 3 active high-priority tasks")
	// ErrActiveTaskLimit rejects assignment to a user carrying 10 active tasks.
	ErrActiveTaskLimit = errors.New("User already has 10 active tasks")

	// ErrTaskAlreadyCompleted rejects completing a COMPLETED task.
	ErrTaskAlreadyCompleted = errors.New("Task is already completed")
	// ErrTaskCancelled rejects completing a CANCELLED task.
	ErrTaskCancelled = errors.New("Cannot complete a cancelled task")
)
