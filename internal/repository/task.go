package repository

import (
	"context"
	"time"

	"tasktrack/internal/domain"
)

// TaskRepository exposes persistence operations for Task aggregates.
type TaskRepository interface {
	Init(ctx context.Context) error
	Create(ctx context.Context, task *domain.Task) (int64, error)
	Get(ctx context.Context, id int64) (*domain.Task, error)
	List(ctx context.Context) ([]domain.Task, error)
	ListByOwner(ctx context.Context, ownerID int64) ([]domain.Task, error)
	ListByOwnerAndStatus(ctx context.Context, ownerID int64, status domain.TaskStatus) ([]domain.Task, error)
	MarkCompleted(ctx context.Context, id int64, completedAt time.Time) error
	UpdateOwner(ctx context.Context, id int64, ownerID int64) error
	CountActiveByOwner(ctx context.Context, ownerID int64) (int64, error)
	CountActiveHighPriorityByOwner(ctx context.Context, ownerID int64) (int64, error)
	Count(ctx context.Context) (int64, error)
	CountByStatus(ctx context.Context, status domain.TaskStatus) (int64, error)
}
