package service

import (
	"context"
	"fmt"

	"tasktrack/internal/domain"
	"tasktrack/internal/repository"
)

// Stats aggregates repository-wide counts.
type Stats struct {
	TotalTasks     int64
	ActiveTasks    int64
	CompletedTasks int64
	TotalUsers     int64
}

// StatsService is a read-only projection over the repositories.
type StatsService interface {
	Collect(ctx context.Context) (*Stats, error)
}

type statsService struct {
	tasks repository.TaskRepository
	users repository.UserRepository
}

func NewStatsService(tasks repository.TaskRepository, users repository.UserRepository) StatsService {
	return &statsService{
		tasks: tasks,
		users: users,
	}
}

func (s *statsService) Collect(ctx context.Context) (*Stats, error) {
	totalTasks, err := s.tasks.Count(ctx)
	if err != nil {
		return nil, fmt.Errorf("count tasks: %w", err)
	}
	activeTasks, err := s.tasks.CountByStatus(ctx, domain.TaskStatusActive)
	if err != nil {
		return nil, fmt.Errorf("count active tasks: %w", err)
	}
	completedTasks, err := s.tasks.CountByStatus(ctx, domain.TaskStatusCompleted)
	if err != nil {
		return nil, fmt.Errorf("count completed tasks: %w", err)
	}
	totalUsers, err := s.users.Count(ctx)
	if err != nil {
		return nil, fmt.Errorf("count users: %w", err)
	}

	return &Stats{
		TotalTasks:     totalTasks,
		ActiveTasks:    activeTasks,
		CompletedTasks: completedTasks,
		TotalUsers:     totalUsers,
	}, nil
}
