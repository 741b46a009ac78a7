package pickups

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
// lets callers create a pickup inside an enclosing transaction.
type Querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// Repository defines the interface for pickup request storage
type Repository interface {
	Create(ctx context.Context, q Querier, pickup *Pickup) error
	GetByID(ctx context.Context, id uuid.UUID) (*Pickup, error)
	List(ctx context.Context, status *Status) ([]Pickup, error)
	UpdateStatus(ctx context.Context, id uuid.UUID, status Status) error
}

// InMemoryRepository keeps pickups in memory for tests and development.
type InMemoryRepository struct {
	mu      sync.RWMutex
	pickups map[uuid.UUID]*Pickup
}

// NewInMemoryRepository creates a new in-memory repository
func NewInMemoryRepository() *InMemoryRepository {
	return &InMemoryRepository{pickups: make(map[uuid.UUID]*Pickup)}
}

// Create stores a new pickup in memory. The Querier is ignored.
func (r *InMemoryRepository) Create(ctx context.Context, _ Querier, pickup *Pickup) error {
	if err := pickup.Validate(); err != nil {
		return err
	}
	if pickup.ID == uuid.Nil {
		pickup.ID = uuid.New()
	}
	if pickup.Status == "" {
		pickup.Status = StatusPendingReview
	}
	if pickup.ItemCount <= 0 {
		pickup.ItemCount = 1
	}
	now := time.Now().UTC()
	pickup.CreatedAt = now
	pickup.UpdatedAt = now

	copied := *pickup
	r.mu.Lock()
	r.pickups[pickup.ID] = &copied
	r.mu.Unlock()
	return nil
}

// GetByID retrieves a pickup by ID
func (r *InMemoryRepository) GetByID(ctx context.Context, id uuid.UUID) (*Pickup, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	pickup, ok := r.pickups[id]
	if !ok {
		return nil, ErrPickupNotFound
	}
	copied := *pickup
	return &copied, nil
}

// List returns pickups, optionally filtered by status, newest first.
func (r *InMemoryRepository) List(ctx context.Context, status *Status) ([]Pickup, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []Pickup
	for _, pickup := range r.pickups {
		if status != nil && pickup.Status != *status {
			continue
		}
		out = append(out, *pickup)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

// UpdateStatus transitions a pickup's status.
func (r *InMemoryRepository) UpdateStatus(ctx context.Context, id uuid.UUID, status Status) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	pickup, ok := r.pickups[id]
	if !ok {
		return ErrPickupNotFound
	}
	pickup.Status = status
	pickup.UpdatedAt = time.Now().UTC()
	return nil
}
