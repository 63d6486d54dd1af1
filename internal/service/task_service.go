package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"tasktrack/internal/clock"
	"tasktrack/internal/domain"
	"tasktrack/internal/repository"
)

const (
	// maxActiveHighPriority caps concurrent active HIGH tasks per owner.
	maxActiveHighPriority = 3
	// maxActiveTasks caps active tasks an owner may hold via assignment.
	maxActiveTasks = 10
)

// TaskService enforces the task lifecycle: admission control on
// creation, the ACTIVE -> COMPLETED transition, and ownership transfer
// under per-owner capacity limits.
type TaskService interface {
	CreateTask(ctx context.Context, ownerID int64, title, description string, priority domain.TaskPriority) (*domain.Task, error)
	CompleteTask(ctx context.Context, taskID int64) (*domain.Task, error)
	AssignTask(ctx context.Context, taskID, newOwnerID int64) (*domain.Task, error)
	GetTask(ctx context.Context, id int64) (*domain.Task, error)
	ListTasks(ctx context.Context) ([]domain.Task, error)
	ListTasksByOwner(ctx context.Context, ownerID int64) ([]domain.Task, error)
}

type taskService struct {
	tasks repository.TaskRepository
	users repository.UserRepository
	clock clock.Clock
	locks *ownerLocks
}

func NewTaskService(tasks repository.TaskRepository, users repository.UserRepository, clk clock.Clock) TaskService {
	return &taskService{
		tasks: tasks,
		users: users,
		clock: clk,
		locks: newOwnerLocks(),
	}
}

func (s *taskService) CreateTask(ctx context.Context, ownerID int64, title, description string, priority domain.TaskPriority) (*domain.Task, error) {
	title = strings.TrimSpace(title)
	if title == "" {
		return nil, ErrTitleRequired
	}
	if !domain.ValidPriority(priority) {
		return nil, ErrInvalidPriority
	}

	if _, err := s.users.GetByID(ctx, ownerID); err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("load owner: %w", err)
	}

	// Admission check and insert must not interleave with another
	// creation for the same owner.
	mu := s.locks.get(ownerID)
	mu.Lock()
	defer mu.Unlock()

	if priority == domain.TaskPriorityHigh {
		count, err := s.tasks.CountActiveHighPriorityByOwner(ctx, ownerID)
		if err != nil {
			return nil, fmt.Errorf("count high-priority tasks: %w", err)
		}
		if count >= maxActiveHighPriority {
			return nil, ErrHighPriorityLimit
		}
	}

	now := s.clock.Now()
	task := &domain.Task{
		UserID:      ownerID,
		Title:       title,
		Description: description,
		Priority:    priority,
		Status:      domain.TaskStatusActive,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if _, err := s.tasks.Create(ctx, task); err != nil {
		return nil, fmt.Errorf("create task: %w", err)
	}
	return task, nil
}

func (s *taskService) CompleteTask(ctx context.Context, taskID int64) (*domain.Task, error) {
	task, err := s.tasks.Get(ctx, taskID)
	if err != nil {
		if errors.Is(err, repository.ErrTaskNotFound) {
			return nil, ErrTaskNotFound
		}
		return nil, fmt.Errorf("load task: %w", err)
	}

	switch task.Status {
	case domain.TaskStatusCompleted:
		return nil, ErrTaskAlreadyCompleted
	case domain.TaskStatusCancelled:
		return nil, ErrTaskCancelled
	}

	completedAt := s.clock.Now()
	if err := s.tasks.MarkCompleted(ctx, taskID, completedAt); err != nil {
		return nil, fmt.Errorf("mark task completed: %w", err)
	}

	task.Status = domain.TaskStatusCompleted
	task.CompletedAt = &completedAt
	task.UpdatedAt = completedAt
	return task, nil
}

func (s *taskService) AssignTask(ctx context.Context, taskID, newOwnerID int64) (*domain.Task, error) {
	task, err := s.tasks.Get(ctx, taskID)
	if err != nil {
		if errors.Is(err, repository.ErrTaskNotFound) {
			return nil, ErrTaskNotFound
		}
		return nil, fmt.Errorf("load task: %w", err)
	}

	if _, err := s.users.GetByID(ctx, newOwnerID); err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("load new owner: %w", err)
	}

	// Capacity check counts the target's current active load; it
	// applies even when the task already belongs to the target.
	mu := s.locks.get(newOwnerID)
	mu.Lock()
	defer mu.Unlock()

	count, err := s.tasks.CountActiveByOwner(ctx, newOwnerID)
	if err != nil {
		return nil, fmt.Errorf("count active tasks: %w", err)
	}
	if count >= maxActiveTasks {
		return nil, ErrActiveTaskLimit
	}

	if err := s.tasks.UpdateOwner(ctx, taskID, newOwnerID); err != nil {
		return nil, fmt.Errorf("update task owner: %w", err)
	}

	task.UserID = newOwnerID
	return task, nil
}

func (s *taskService) GetTask(ctx context.Context, id int64) (*domain.Task, error) {
	task, err := s.tasks.Get(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrTaskNotFound) {
			return nil, ErrTaskNotFound
		}
		return nil, err
	}
	return task, nil
}

func (s *taskService) ListTasks(ctx context.Context) ([]domain.Task, error) {
	return s.tasks.List(ctx)
}

func (s *taskService) ListTasksByOwner(ctx context.Context, ownerID int64) ([]domain.Task, error) {
	return s.tasks.ListByOwner(ctx, ownerID)
}
