package tasks

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// PostgresRepository stores delivery tasks in the relational database.
type PostgresRepository struct {
	pool Querier
}

// NewPostgresRepository initializes a repo backed by pgxpool.
func NewPostgresRepository(pool Querier) *PostgresRepository {
	if pool == nil {
		panic("tasks: pgx pool required")
	}
	return &PostgresRepository{pool: pool}
}

const taskColumns = `id, source, status, shopify_order_id, shopify_order_number,
	sku, liberty_item_id, item_title, item_description, image_url,
	customer_name, customer_phone, customer_email,
	delivery_address_line1, delivery_address_line2, delivery_city, delivery_state, delivery_zip, delivery_notes,
	scheduled_start, scheduled_end, assigned_to, delivered_at, paid_at, created_at, updated_at`

// Create inserts a new row, using q when the caller supplies a transaction.
func (r *PostgresRepository) Create(ctx context.Context, q Querier, task *Task) error {
	if q == nil {
		q = r.pool
	}
	if err := task.Validate(); err != nil {
		return err
	}
	if task.ID == uuid.Nil {
		task.ID = uuid.New()
	}
	if task.Status == "" {
		task.Status = StatusPending
	}

	query := `
		INSERT INTO delivery_tasks (
			id, source, status, shopify_order_id, shopify_order_number,
			sku, liberty_item_id, item_title, item_description, image_url,
			customer_name, customer_phone, customer_email,
			delivery_address_line1, delivery_address_line2, delivery_city, delivery_state, delivery_zip, delivery_notes
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19)
		RETURNING created_at, updated_at
	`
	if err := q.QueryRow(ctx, query,
		task.ID,
		task.Source,
		task.Status,
		nullable(task.ShopifyOrderID),
		nullable(task.ShopifyOrderNumber),
		task.SKU,
		task.LibertyItemID,
		task.ItemTitle,
		nullable(task.ItemDescription),
		nullable(task.ImageURL),
		task.CustomerName,
		task.CustomerPhone,
		nullable(task.CustomerEmail),
		task.DeliveryAddressLine1,
		nullable(task.DeliveryAddressLine2),
		task.DeliveryCity,
		task.DeliveryState,
		task.DeliveryZip,
		nullable(task.DeliveryNotes),
	).Scan(&task.CreatedAt, &task.UpdatedAt); err != nil {
		return fmt.Errorf("tasks: insert failed: %w", err)
	}
	return nil
}

// GetByID fetches a single task.
func (r *PostgresRepository) GetByID(ctx context.Context, id uuid.UUID) (*Task, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+taskColumns+` FROM delivery_tasks WHERE id = $1`, id)
	task, err := scanTask(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrTaskNotFound
		}
		return nil, fmt.Errorf("tasks: select failed: %w", err)
	}
	return task, nil
}

// List returns tasks newest first, optionally filtered by status.
func (r *PostgresRepository) List(ctx context.Context, status *Status) ([]Task, error) {
	query := `SELECT ` + taskColumns + ` FROM delivery_tasks`
	args := []any{}
	if status != nil {
		query += ` WHERE status = $1`
		args = append(args, *status)
	}
	query += ` ORDER BY created_at DESC`

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("tasks: list failed: %w", err)
	}
	defer rows.Close()

	var out []Task
	for rows.Next() {
		task, err := scanTask(rows)
		if err != nil {
			return nil, fmt.Errorf("tasks: scan failed: %w", err)
		}
		out = append(out, *task)
	}
	return out, rows.Err()
}

// UpdateStatus transitions a task's status, stamping delivery/payment times.
func (r *PostgresRepository) UpdateStatus(ctx context.Context, id uuid.UUID, status Status) error {
	now := time.Now().UTC()
	query := `
		UPDATE delivery_tasks SET
			status = $1,
			delivered_at = CASE WHEN $1 = 'delivered' THEN $2 ELSE delivered_at END,
			paid_at = CASE WHEN $1 = 'paid' THEN $2 ELSE paid_at END,
			updated_at = $2
		WHERE id = $3
	`
	ct, err := r.pool.Exec(ctx, query, status, now, id)
	if err != nil {
		return fmt.Errorf("tasks: update status failed: %w", err)
	}
	if ct.RowsAffected() == 0 {
		return ErrTaskNotFound
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanTask(row rowScanner) (*Task, error) {
	var task Task
	var shopifyOrderID, shopifyOrderNumber, itemDescription, imageURL *string
	var customerEmail, addressLine2, deliveryNotes, assignedTo *string
	if err := row.Scan(
		&task.ID,
		&task.Source,
		&task.Status,
		&shopifyOrderID,
		&shopifyOrderNumber,
		&task.SKU,
		&task.LibertyItemID,
		&task.ItemTitle,
		&itemDescription,
		&imageURL,
		&task.CustomerName,
		&task.CustomerPhone,
		&customerEmail,
		&task.DeliveryAddressLine1,
		&addressLine2,
		&task.DeliveryCity,
		&task.DeliveryState,
		&task.DeliveryZip,
		&deliveryNotes,
		&task.ScheduledStart,
		&task.ScheduledEnd,
		&assignedTo,
		&task.DeliveredAt,
		&task.PaidAt,
		&task.CreatedAt,
		&task.UpdatedAt,
	); err != nil {
		return nil, err
	}
	task.ShopifyOrderID = deref(shopifyOrderID)
	task.ShopifyOrderNumber = deref(shopifyOrderNumber)
	task.ItemDescription = deref(itemDescription)
	task.ImageURL = deref(imageURL)
	task.CustomerEmail = deref(customerEmail)
	task.DeliveryAddressLine2 = deref(addressLine2)
	task.DeliveryNotes = deref(deliveryNotes)
	task.AssignedTo = deref(assignedTo)
	return &task, nil
}

func nullable(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
