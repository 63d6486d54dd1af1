package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"tasktrack/internal/domain"
	"tasktrack/internal/repository"
)

const createTasksTable = `
CREATE TABLE IF NOT EXISTS tasks (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	user_id INTEGER NOT NULL REFERENCES users(id),
	title TEXT NOT NULL,
	description TEXT NOT NULL DEFAULT '',
	priority TEXT NOT NULL,
	status TEXT NOT NULL,
	created_at DATETIME NOT NULL,
	updated_at DATETIME NOT NULL,
	completed_at DATETIME NULL
);
`

const createTasksOwnerIndex = `
CREATE INDEX IF NOT EXISTS idx_tasks_user_status ON tasks(user_id, status);
`

const taskColumns = `id, user_id, title, description, priority, status, created_at, updated_at, completed_at`

type TaskRepository struct {
	db *sql.DB
}

func NewTaskRepository(db *sql.DB) repository.TaskRepository {
	return &TaskRepository{db: db}
}

func (r *TaskRepository) Init(ctx context.Context) error {
	if _, err := r.db.ExecContext(ctx, createTasksTable); err != nil {
		return fmt.Errorf("create tasks table: %w", err)
	}
	if _, err := r.db.ExecContext(ctx, createTasksOwnerIndex); err != nil {
		return fmt.Errorf("create tasks owner index: %w", err)
	}
	return nil
}

func (r *TaskRepository) Create(ctx context.Context, task *domain.Task) (int64, error) {
	if task.CreatedAt.IsZero() {
		task.CreatedAt = time.Now().UTC()
	}
	task.UpdatedAt = task.CreatedAt

	res, err := r.db.ExecContext(ctx, `
INSERT INTO tasks (user_id, title, description, priority, status, created_at, updated_at, completed_at)
VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		task.UserID,
		task.Title,
		task.Description,
		string(task.Priority),
		string(task.Status),
		task.CreatedAt,
		task.UpdatedAt,
		nullTime(task.CompletedAt),
	)
	if err != nil {
		return 0, fmt.Errorf("insert task: %w", err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("task last insert id: %w", err)
	}
	task.ID = id
	return id, nil
}

func (r *TaskRepository) Get(ctx context.Context, id int64) (*domain.Task, error) {
	row := r.db.QueryRowContext(ctx, `
SELECT `+taskColumns+`
FROM tasks
WHERE id=?`,
		id,
	)
	return scanTask(row)
}

func (r *TaskRepository) List(ctx context.Context) ([]domain.Task, error) {
	rows, err := r.db.QueryContext(ctx, `
SELECT `+taskColumns+`
FROM tasks
ORDER BY created_at DESC, id DESC`)
	if err != nil {
		return nil, fmt.Errorf("query tasks: %w", err)
	}
	defer rows.Close()
	return collectTasks(rows)
}

func (r *TaskRepository) ListByOwner(ctx context.Context, ownerID int64) ([]domain.Task, error) {
	rows, err := r.db.QueryContext(ctx, `
SELECT `+taskColumns+`
FROM tasks
WHERE user_id=?
ORDER BY created_at DESC, id DESC`,
		ownerID,
	)
	if err != nil {
		return nil, fmt.Errorf("query tasks by owner: %w", err)
	}
	defer rows.Close()
	return collectTasks(rows)
}

func (r *TaskRepository) ListByOwnerAndStatus(ctx context.Context, ownerID int64, status domain.TaskStatus) ([]domain.Task, error) {
	rows, err := r.db.QueryContext(ctx, `
SELECT `+taskColumns+`
FROM tasks
WHERE user_id=? AND status=?
ORDER BY created_at DESC, id DESC`,
		ownerID,
		string(status),
	)
	if err != nil {
		return nil, fmt.Errorf("query tasks by owner and status: %w", err)
	}
	defer rows.Close()
	return collectTasks(rows)
}

func (r *TaskRepository) MarkCompleted(ctx context.Context, id int64, completedAt time.Time) error {
	res, err := r.db.ExecContext(ctx, `
UPDATE tasks
SET status=?, completed_at=?, updated_at=?
WHERE id=?`,
		string(domain.TaskStatusCompleted),
		completedAt.UTC(),
		time.Now().UTC(),
		id,
	)
	if err != nil {
		return fmt.Errorf("mark task completed: %w", err)
	}
	return requireRow(res)
}

func (r *TaskRepository) UpdateOwner(ctx context.Context, id int64, ownerID int64) error {
	res, err := r.db.ExecContext(ctx, `
UPDATE tasks
SET user_id=?, updated_at=?
WHERE id=?`,
		ownerID,
		time.Now().UTC(),
		id,
	)
	if err != nil {
		return fmt.Errorf("update task owner: %w", err)
	}
	return requireRow(res)
}

func (r *TaskRepository) CountActiveByOwner(ctx context.Context, ownerID int64) (int64, error) {
	var count int64
	err := r.db.QueryRowContext(ctx, `
SELECT COUNT(*) FROM tasks
WHERE user_id=? AND status=?`,
		ownerID,
		string(domain.TaskStatusActive),
	).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("count active tasks: %w", err)
	}
	return count, nil
}

func (r *TaskRepository) CountActiveHighPriorityByOwner(ctx context.Context, ownerID int64) (int64, error) {
	var count int64
	err := r.db.QueryRowContext(ctx, `
SELECT COUNT(*) FROM tasks
WHERE user_id=? AND priority=? AND status=?`,
		ownerID,
		string(domain.TaskPriorityHigh),
		string(domain.TaskStatusActive),
	).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("count active high-priority tasks: %w", err)
	}
	return count, nil
}

func (r *TaskRepository) Count(ctx context.Context) (int64, error) {
	var count int64
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM tasks`).Scan(&count); err != nil {
		return 0, fmt.Errorf("count tasks: %w", err)
	}
	return count, nil
}

func (r *TaskRepository) CountByStatus(ctx context.Context, status domain.TaskStatus) (int64, error) {
	var count int64
	err := r.db.QueryRowContext(ctx, `
SELECT COUNT(*) FROM tasks WHERE status=?`,
		string(status),
	).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("count tasks by status: %w", err)
	}
	return count, nil
}

func requireRow(res sql.Result) error {
	aff, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if aff == 0 {
		return repository.ErrTaskNotFound
	}
	return nil
}

func collectTasks(rows *sql.Rows) ([]domain.Task, error) {
	var tasks []domain.Task
	for rows.Next() {
		task, err := scanTask(rows)
		if err != nil {
			return nil, err
		}
		tasks = append(tasks, *task)
	}
	return tasks, rows.Err()
}

func scanTask(scanner interface {
	Scan(dest ...any) error
}) (*domain.Task, error) {
	var (
		task        domain.Task
		priority    string
		status      string
		completedAt sql.NullTime
	)

	if err := scanner.Scan(
		&task.ID,
		&task.UserID,
		&task.Title,
		&task.Description,
		&priority,
		&status,
		&task.CreatedAt,
		&task.UpdatedAt,
		&completedAt,
	); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, repository.ErrTaskNotFound
		}
		return nil, fmt.Errorf("scan task: %w", err)
	}

	task.Priority = domain.TaskPriority(priority)
	task.Status = domain.TaskStatus(status)
	if completedAt.Valid {
		t := completedAt.Time.UTC()
		task.CompletedAt = &t
	}

	return &task, nil
}

func nullTime(t *time.Time) any {
	if t == nil {
		return nil
	}
	return t.UTC()
}
