package pickups

import (
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Status tracks a pickup request through review and scheduling.
type Status string

const (
	StatusPendingReview Status = "pending_review"
	StatusApproved      Status = "approved"
	StatusScheduled     Status = "scheduled"
	StatusCompleted     Status = "completed"
	StatusDeclined      Status = "declined"
	StatusCancelled     Status = "cancelled"
)

// ParseStatus validates a status value from a query parameter or payload.
func ParseStatus(value string) (Status, bool) {
	normalized := Status(strings.ToLower(strings.TrimSpace(value)))
	switch normalized {
	case StatusPendingReview, StatusApproved, StatusScheduled, StatusCompleted, StatusDeclined, StatusCancelled:
		return normalized, true
	default:
		return "", false
	}
}

// Pickup is a customer request for us to collect consignment items.
type Pickup struct {
	ID     uuid.UUID `json:"id"`
	Status Status    `json:"status"`

	CustomerName  string `json:"customer_name"`
	CustomerPhone string `json:"customer_phone"`
	CustomerEmail string `json:"customer_email,omitempty"`

	PickupAddressLine1 string `json:"pickup_address_line1"`
	PickupAddressLine2 string `json:"pickup_address_line2,omitempty"`
	PickupCity         string `json:"pickup_city"`
	PickupState        string `json:"pickup_state"`
	PickupZip          string `json:"pickup_zip"`

	ItemDescription string   `json:"item_description"`
	ItemCount       int      `json:"item_count"`
	ItemPhotos      []string `json:"item_photos,omitempty"`
	PickupNotes     string   `json:"pickup_notes,omitempty"`

	ScheduledStart *time.Time `json:"scheduled_start,omitempty"`
	ScheduledEnd   *time.Time `json:"scheduled_end,omitempty"`
	AssignedTo     string     `json:"assigned_to,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Validate checks the fields every pickup must carry.
func (p *Pickup) Validate() error {
	if strings.TrimSpace(p.CustomerName) == "" || strings.TrimSpace(p.CustomerPhone) == "" {
		return ErrMissingCustomer
	}
	if strings.TrimSpace(p.ItemDescription) == "" {
		return ErrMissingDescription
	}
	return nil
}

var (
	ErrPickupNotFound     = errors.New("pickups: pickup not found")
	ErrMissingCustomer    = errors.New("pickups: customer name and phone are required")
	ErrMissingDescription = errors.New("pickups: item description is required")
)
