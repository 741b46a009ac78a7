package conversation

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// DB is the subset of pgx operations the conversation flow needs. Both
// *pgxpool.Pool and pgx.Tx satisfy it, so a turn can run its reads and writes
// inside a single transaction.
type DB interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// Stage is the position of a conversation in the guided-prompt sequence.
type Stage string

const (
	StageStarted         Stage = "started"
	StageAwaitingName    Stage = "awaiting_name"
	StageAwaitingPhone   Stage = "awaiting_phone"
	StageAwaitingAddress Stage = "awaiting_address"
	StageAwaitingCityZip Stage = "awaiting_city_zip"
	StageAwaitingItems   Stage = "awaiting_items"
	StageAwaitingNotes   Stage = "awaiting_notes"
	StageCompleted       Stage = "completed"
	StageCancelled       Stage = "cancelled"
)

// Terminal reports whether no further transitions are permitted.
func (s Stage) Terminal() bool {
	return s == StageCompleted || s == StageCancelled
}

// ParseStage validates a stored stage value.
func ParseStage(value string) (Stage, bool) {
	switch Stage(value) {
	case StageStarted, StageAwaitingName, StageAwaitingPhone, StageAwaitingAddress,
		StageAwaitingCityZip, StageAwaitingItems, StageAwaitingNotes,
		StageCompleted, StageCancelled:
		return Stage(value), true
	default:
		return "", false
	}
}

// Kind distinguishes what the customer is asking for.
type Kind string

const (
	KindUnset    Kind = ""
	KindDelivery Kind = "delivery"
	KindPickup   Kind = "pickup"
)

// Conversation is the per-phone accumulation of customer-supplied fields
// driven by the engine. One non-terminal conversation exists per phone at a
// time.
type Conversation struct {
	ID              uuid.UUID  `json:"id"`
	Phone           string     `json:"phone_number"`
	Stage           Stage      `json:"stage"`
	Kind            Kind       `json:"request_type,omitempty"`
	CustomerName    string     `json:"customer_name,omitempty"`
	CallbackPhone   string     `json:"callback_phone,omitempty"`
	AddressLine1    string     `json:"address_line1,omitempty"`
	AddressLine2    string     `json:"address_line2,omitempty"`
	City            string     `json:"city,omitempty"`
	State           string     `json:"state,omitempty"`
	Zip             string     `json:"zip_code,omitempty"`
	ItemDescription string     `json:"item_description,omitempty"`
	PhotoURLs       []string   `json:"photo_urls,omitempty"`
	Notes           string     `json:"notes,omitempty"`
	CreatedTaskID   *uuid.UUID `json:"created_task_id,omitempty"`
	CreatedPickupID *uuid.UUID `json:"created_pickup_id,omitempty"`
	CreatedAt       time.Time  `json:"created_at"`
	UpdatedAt       time.Time  `json:"updated_at"`
	LastMessageAt   *time.Time `json:"last_message_at,omitempty"`
}

// Stale reports whether the conversation is older than the window. Age is
// measured from creation: activity on an expired conversation does not
// revive it.
func (c *Conversation) Stale(now time.Time, ttl time.Duration) bool {
	return now.Sub(c.CreatedAt) > ttl
}

var (
	// ErrNotFound is returned when a conversation id does not exist.
	ErrNotFound = errors.New("conversation: not found")
	// ErrBusy is returned when another message for the same phone is mid-turn.
	ErrBusy = errors.New("conversation: turn in progress for phone")
)
