package pickups

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// PostgresRepository stores pickup requests in the relational database.
// Item photos live in a jsonb column.
type PostgresRepository struct {
	pool Querier
}

// NewPostgresRepository initializes a repo backed by pgxpool.
func NewPostgresRepository(pool Querier) *PostgresRepository {
	if pool == nil {
		panic("pickups: pgx pool required")
	}
	return &PostgresRepository{pool: pool}
}

const pickupColumns = `id, status, customer_name, customer_phone, customer_email,
	pickup_address_line1, pickup_address_line2, pickup_city, pickup_state, pickup_zip,
	item_description, item_count, item_photos, pickup_notes,
	scheduled_start, scheduled_end, assigned_to, created_at, updated_at`

// Create inserts a new row, using q when the caller supplies a transaction.
func (r *PostgresRepository) Create(ctx context.Context, q Querier, pickup *Pickup) error {
	if q == nil {
		q = r.pool
	}
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

	query := `
		INSERT INTO pickup_requests (
			id, status, customer_name, customer_phone, customer_email,
			pickup_address_line1, pickup_address_line2, pickup_city, pickup_state, pickup_zip,
			item_description, item_count, item_photos, pickup_notes
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
		RETURNING created_at, updated_at
	`
	if err := q.QueryRow(ctx, query,
		pickup.ID,
		pickup.Status,
		pickup.CustomerName,
		pickup.CustomerPhone,
		nullable(pickup.CustomerEmail),
		pickup.PickupAddressLine1,
		nullable(pickup.PickupAddressLine2),
		pickup.PickupCity,
		pickup.PickupState,
		pickup.PickupZip,
		pickup.ItemDescription,
		pickup.ItemCount,
		pickup.ItemPhotos,
		nullable(pickup.PickupNotes),
	).Scan(&pickup.CreatedAt, &pickup.UpdatedAt); err != nil {
		return fmt.Errorf("pickups: insert failed: %w", err)
	}
	return nil
}

// GetByID fetches a single pickup.
func (r *PostgresRepository) GetByID(ctx context.Context, id uuid.UUID) (*Pickup, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+pickupColumns+` FROM pickup_requests WHERE id = $1`, id)
	pickup, err := scanPickup(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrPickupNotFound
		}
		return nil, fmt.Errorf("pickups: select failed: %w", err)
	}
	return pickup, nil
}

// List returns pickups newest first, optionally filtered by status.
func (r *PostgresRepository) List(ctx context.Context, status *Status) ([]Pickup, error) {
	query := `SELECT ` + pickupColumns + ` FROM pickup_requests`
	args := []any{}
	if status != nil {
		query += ` WHERE status = $1`
		args = append(args, *status)
	}
	query += ` ORDER BY created_at DESC`

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("pickups: list failed: %w", err)
	}
	defer rows.Close()

	var out []Pickup
	for rows.Next() {
		pickup, err := scanPickup(rows)
		if err != nil {
			return nil, fmt.Errorf("pickups: scan failed: %w", err)
		}
		out = append(out, *pickup)
	}
	return out, rows.Err()
}

// UpdateStatus transitions a pickup's status.
func (r *PostgresRepository) UpdateStatus(ctx context.Context, id uuid.UUID, status Status) error {
	ct, err := r.pool.Exec(ctx,
		`UPDATE pickup_requests SET status = $1, updated_at = $2 WHERE id = $3`,
		status, time.Now().UTC(), id)
	if err != nil {
		return fmt.Errorf("pickups: update status failed: %w", err)
	}
	if ct.RowsAffected() == 0 {
		return ErrPickupNotFound
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanPickup(row rowScanner) (*Pickup, error) {
	var pickup Pickup
	var customerEmail, addressLine2, pickupNotes, assignedTo *string
	if err := row.Scan(
		&pickup.ID,
		&pickup.Status,
		&pickup.CustomerName,
		&pickup.CustomerPhone,
		&customerEmail,
		&pickup.PickupAddressLine1,
		&addressLine2,
		&pickup.PickupCity,
		&pickup.PickupState,
		&pickup.PickupZip,
		&pickup.ItemDescription,
		&pickup.ItemCount,
		&pickup.ItemPhotos,
		&pickupNotes,
		&pickup.ScheduledStart,
		&pickup.ScheduledEnd,
		&assignedTo,
		&pickup.CreatedAt,
		&pickup.UpdatedAt,
	); err != nil {
		return nil, err
	}
	pickup.CustomerEmail = deref(customerEmail)
	pickup.PickupAddressLine2 = deref(addressLine2)
	pickup.PickupNotes = deref(pickupNotes)
	pickup.AssignedTo = deref(assignedTo)
	return &pickup, nil
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
