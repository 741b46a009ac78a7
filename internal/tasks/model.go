package tasks

import (
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Source identifies where a delivery task originated.
type Source string

const (
	SourceShopifyOnline Source = "shopify_online"
	SourceInStore       Source = "in_store"
)

// Status tracks a delivery task through its lifecycle.
type Status string

const (
	StatusPending   Status = "pending"
	StatusScheduled Status = "scheduled"
	StatusDelivered Status = "delivered"
	StatusPaid      Status = "paid"
	StatusCancelled Status = "cancelled"
)

// ParseStatus validates a status value from a query parameter or payload.
func ParseStatus(value string) (Status, bool) {
	switch Status(strings.ToLower(strings.TrimSpace(value))) {
	case StatusPending, StatusScheduled, StatusDelivered, StatusPaid, StatusCancelled:
		return Status(strings.ToLower(strings.TrimSpace(value))), true
	default:
		return "", false
	}
}

// Task is a delivery job awaiting triage and scheduling.
type Task struct {
	ID     uuid.UUID `json:"id"`
	Source Source    `json:"source"`
	Status Status    `json:"status"`

	ShopifyOrderID     string `json:"shopify_order_id,omitempty"`
	ShopifyOrderNumber string `json:"shopify_order_number,omitempty"`

	SKU             string `json:"sku"`
	LibertyItemID   string `json:"liberty_item_id"`
	ItemTitle       string `json:"item_title"`
	ItemDescription string `json:"item_description,omitempty"`
	ImageURL        string `json:"image_url,omitempty"`

	CustomerName  string `json:"customer_name"`
	CustomerPhone string `json:"customer_phone"`
	CustomerEmail string `json:"customer_email,omitempty"`

	DeliveryAddressLine1 string `json:"delivery_address_line1"`
	DeliveryAddressLine2 string `json:"delivery_address_line2,omitempty"`
	DeliveryCity         string `json:"delivery_city"`
	DeliveryState        string `json:"delivery_state"`
	DeliveryZip          string `json:"delivery_zip"`
	DeliveryNotes        string `json:"delivery_notes,omitempty"`

	ScheduledStart *time.Time `json:"scheduled_start,omitempty"`
	ScheduledEnd   *time.Time `json:"scheduled_end,omitempty"`
	AssignedTo     string     `json:"assigned_to,omitempty"`

	DeliveredAt *time.Time `json:"delivered_at,omitempty"`
	PaidAt      *time.Time `json:"paid_at,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Validate checks the fields every task must carry.
func (t *Task) Validate() error {
	if t.Source == "" {
		return ErrMissingSource
	}
	if strings.TrimSpace(t.SKU) == "" {
		return ErrMissingSKU
	}
	if strings.TrimSpace(t.CustomerName) == "" || strings.TrimSpace(t.CustomerPhone) == "" {
		return ErrMissingCustomer
	}
	return nil
}

var (
	ErrTaskNotFound    = errors.New("tasks: task not found")
	ErrMissingSource   = errors.New("tasks: source is required")
	ErrMissingSKU      = errors.New("tasks: sku is required")
	ErrMissingCustomer = errors.New("tasks: customer name and phone are required")
)
