package service

import (
	"context"
	"fmt"

	"tasktrack/internal/domain"
	"tasktrack/internal/repository"
)

// UserWithTasks pairs a user with their currently active tasks.
type UserWithTasks struct {
	User        domain.User
	ActiveTasks []domain.Task
}

// UserService serves the public user directory.
type UserService interface {
	ListWithActiveTasks(ctx context.Context) ([]UserWithTasks, error)
}

type userService struct {
	users repository.UserRepository
	tasks repository.TaskRepository
}

func NewUserService(users repository.UserRepository, tasks repository.TaskRepository) UserService {
	return &userService{
		users: users,
		tasks: tasks,
	}
}

func (s *userService) ListWithActiveTasks(ctx context.Context) ([]UserWithTasks, error) {
	users, err := s.users.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}

	result := make([]UserWithTasks, 0, len(users))
	for _, user := range users {
		tasks, err := s.tasks.ListByOwnerAndStatus(ctx, user.ID, domain.TaskStatusActive)
		if err != nil {
			return nil, fmt.Errorf("list active tasks for user %d: %w", user.ID, err)
		}
		result = append(result, UserWithTasks{
			User:        user,
			ActiveTasks: tasks,
		})
	}
	return result, nil
}
