package conversation

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Store persists conversations. Every method takes the DB handle to run
// against so a turn's reads and writes share one transaction.
type Store interface {
	// GetOrCreateActive returns the customer's single active conversation,
	// locked for the duration of the transaction. A conversation idle longer
	// than ttl is cancelled and replaced with a fresh one at the menu stage.
	GetOrCreateActive(ctx context.Context, q DB, phone string, ttl time.Duration) (*Conversation, error)
	Update(ctx context.Context, q DB, conv *Conversation) error
	GetByID(ctx context.Context, q DB, id uuid.UUID) (*Conversation, error)
	List(ctx context.Context, q DB, stage *Stage, limit int) ([]*Conversation, error)
	Delete(ctx context.Context, q DB, id uuid.UUID) error
	Stats(ctx context.Context, q DB) (*Stats, error)
}

// Stats summarizes conversation volume for the admin surface.
type Stats struct {
	Total   int            `json:"total"`
	Active  int            `json:"active"`
	ByStage map[string]int `json:"by_stage"`
}
