package tasks

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// Querier is the pgx surface the repository runs against. Passing a pgx.Tx
// lets callers create a task inside an enclosing transaction.
type Querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// Repository defines the interface for delivery task storage
type Repository interface {
	Create(ctx context.Context, q Querier, task *Task) error
	GetByID(ctx context.Context, id uuid.UUID) (*Task, error)
	List(ctx context.Context, status *Status) ([]Task, error)
	UpdateStatus(ctx context.Context, id uuid.UUID, status Status) error
}

// InMemoryRepository keeps tasks in memory for tests and development.
type InMemoryRepository struct {
	mu    sync.RWMutex
	tasks map[uuid.UUID]*Task
}

// NewInMemoryRepository creates a new in-memory repository
func NewInMemoryRepository() *InMemoryRepository {
	return &InMemoryRepository{tasks: make(map[uuid.UUID]*Task)}
}

// Create stores a new task in memory. The Querier is ignored.
func (r *InMemoryRepository) Create(ctx context.Context, _ Querier, task *Task) error {
	if err := task.Validate(); err != nil {
		return err
	}
	if task.ID == uuid.Nil {
		task.ID = uuid.New()
	}
	now := time.Now().UTC()
	task.CreatedAt = now
	task.UpdatedAt = now

	copied := *task
	r.mu.Lock()
	r.tasks[task.ID] = &copied
	r.mu.Unlock()
	return nil
}

// GetByID retrieves a task by ID
func (r *InMemoryRepository) GetByID(ctx context.Context, id uuid.UUID) (*Task, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	task, ok := r.tasks[id]
	if !ok {
		return nil, ErrTaskNotFound
	}
	copied := *task
	return &copied, nil
}

// List returns tasks, optionally filtered by status, newest first.
func (r *InMemoryRepository) List(ctx context.Context, status *Status) ([]Task, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []Task
	for _, task := range r.tasks {
		if status != nil && task.Status != *status {
			continue
		}
		out = append(out, *task)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

// UpdateStatus transitions a task's status.
func (r *InMemoryRepository) UpdateStatus(ctx context.Context, id uuid.UUID, status Status) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	task, ok := r.tasks[id]
	if !ok {
		return ErrTaskNotFound
	}
	task.Status = status
	task.UpdatedAt = time.Now().UTC()
	return nil
}
