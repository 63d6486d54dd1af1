package service

import (
	"context"
	"sync"
	"time"

	"tasktrack/internal/domain"
	"tasktrack/internal/repository"
)

// fakeUserRepo is an in-memory, concurrency-safe UserRepository.
type fakeUserRepo struct {
	mu     sync.Mutex
	nextID int64
	users  map[int64]domain.User
}

func newFakeUserRepo() *fakeUserRepo {
	return &fakeUserRepo{users: make(map[int64]domain.User)}
}

func (r *fakeUserRepo) Init(ctx context.Context) error { return nil }

func (r *fakeUserRepo) Create(ctx context.Context, user *domain.User) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, existing := range r.users {
		if existing.Email == user.Email {
			return 0, repository.ErrUserExists
		}
	}
	r.nextID++
	user.ID = r.nextID
	now := time.Now().UTC()
	user.CreatedAt = now
	user.UpdatedAt = now
	r.users[user.ID] = *user
	return user.ID, nil
}

func (r *fakeUserRepo) GetByEmail(ctx context.Context, email string) (*domain.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, user := range r.users {
		if user.Email == email {
			u := user
			return &u, nil
		}
	}
	return nil, repository.ErrUserNotFound
}

func (r *fakeUserRepo) GetByID(ctx context.Context, id int64) (*domain.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	user, ok := r.users[id]
	if !ok {
		return nil, repository.ErrUserNotFound
	}
	u := user
	return &u, nil
}

func (r *fakeUserRepo) List(ctx context.Context) ([]domain.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	users := make([]domain.User, 0, len(r.users))
	for id := int64(1); id <= r.nextID; id++ {
		if user, ok := r.users[id]; ok {
			users = append(users, user)
		}
	}
	return users, nil
}

func (r *fakeUserRepo) Count(ctx context.Context) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return int64(len(r.users)), nil
}

func (r *fakeUserRepo) delete(id int64) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.users, id)
}

// fakeTaskRepo is an in-memory, concurrency-safe TaskRepository.
type fakeTaskRepo struct {
	mu     sync.Mutex
	nextID int64
	tasks  map[int64]domain.Task
}

func newFakeTaskRepo() *fakeTaskRepo {
	return &fakeTaskRepo{tasks: make(map[int64]domain.Task)}
}

func (r *fakeTaskRepo) Init(ctx context.Context) error { return nil }

func (r *fakeTaskRepo) Create(ctx context.Context, task *domain.Task) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.nextID++
	task.ID = r.nextID
	r.tasks[task.ID] = *task
	return task.ID, nil
}

func (r *fakeTaskRepo) Get(ctx context.Context, id int64) (*domain.Task, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	task, ok := r.tasks[id]
	if !ok {
		return nil, repository.ErrTaskNotFound
	}
	t := task
	return &t, nil
}

func (r *fakeTaskRepo) List(ctx context.Context) ([]domain.Task, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	tasks := make([]domain.Task, 0, len(r.tasks))
	for id := int64(1); id <= r.nextID; id++ {
		if task, ok := r.tasks[id]; ok {
			tasks = append(tasks, task)
		}
	}
	return tasks, nil
}

func (r *fakeTaskRepo) ListByOwner(ctx context.Context, ownerID int64) ([]domain.Task, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var tasks []domain.Task
	for id := int64(1); id <= r.nextID; id++ {
		if task, ok := r.tasks[id]; ok && task.UserID == ownerID {
			tasks = append(tasks, task)
		}
	}
	return tasks, nil
}

func (r *fakeTaskRepo) ListByOwnerAndStatus(ctx context.Context, ownerID int64, status domain.TaskStatus) ([]domain.Task, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var tasks []domain.Task
	for id := int64(1); id <= r.nextID; id++ {
		if task, ok := r.tasks[id]; ok && task.UserID == ownerID && task.Status == status {
			tasks = append(tasks, task)
		}
	}
	return tasks, nil
}

func (r *fakeTaskRepo) MarkCompleted(ctx context.Context, id int64, completedAt time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	task, ok := r.tasks[id]
	if !ok {
		return repository.ErrTaskNotFound
	}
	task.Status = domain.TaskStatusCompleted
	at := completedAt
	task.CompletedAt = &at
	task.UpdatedAt = completedAt
	r.tasks[id] = task
	return nil
}

func (r *fakeTaskRepo) UpdateOwner(ctx context.Context, id int64, ownerID int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	task, ok := r.tasks[id]
	if !ok {
		return repository.ErrTaskNotFound
	}
	task.UserID = ownerID
	r.tasks[id] = task
	return nil
}

func (r *fakeTaskRepo) CountActiveByOwner(ctx context.Context, ownerID int64) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var count int64
	for _, task := range r.tasks {
		if task.UserID == ownerID && task.Status == domain.TaskStatusActive {
			count++
		}
	}
	return count, nil
}

func (r *fakeTaskRepo) CountActiveHighPriorityByOwner(ctx context.Context, ownerID int64) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var count int64
	for _, task := range r.tasks {
		if task.UserID == ownerID && task.Priority == domain.TaskPriorityHigh && task.Status == domain.TaskStatusActive {
			count++
		}
	}
	return count, nil
}

func (r *fakeTaskRepo) Count(ctx context.Context) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return int64(len(r.tasks)), nil
}

func (r *fakeTaskRepo) CountByStatus(ctx context.Context, status domain.TaskStatus) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var count int64
	for _, task := range r.tasks {
		if task.Status == status {
			count++
		}
	}
	return count, nil
}

// put seeds a task directly, bypassing the engine. Used to set up
// pre-existing states like CANCELLED.
func (r *fakeTaskRepo) put(task domain.Task) int64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.nextID++
	task.ID = r.nextID
	r.tasks[task.ID] = task
	return task.ID
}
