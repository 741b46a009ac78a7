package conversation

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// PostgresStore persists conversations in the sms_conversations table.
type PostgresStore struct{}

// NewPostgresStore creates a Postgres-backed conversation store.
func NewPostgresStore() *PostgresStore {
	return &PostgresStore{}
}

const conversationColumns = `id, phone_number, stage, request_type, customer_name, callback_phone,
	address_line1, address_line2, city, state, zip_code, item_description, photo_urls, notes,
	created_task_id, created_pickup_id, created_at, updated_at, last_message_at`

func (s *PostgresStore) GetOrCreateActive(ctx context.Context, q DB, phone string, ttl time.Duration) (*Conversation, error) {
	row := q.QueryRow(ctx, `
		SELECT `+conversationColumns+`
		FROM sms_conversations
		WHERE phone_number = $1 AND stage NOT IN ('completed', 'cancelled')
		ORDER BY created_at DESC
		LIMIT 1
		FOR UPDATE
	`, phone)

	conv, err := scanConversation(row)
	switch {
	case err == nil:
		if !conv.Stale(time.Now().UTC(), ttl) {
			return conv, nil
		}
		// Idle past the TTL: retire it and start over at the menu.
		if _, err := q.Exec(ctx, `
			UPDATE sms_conversations SET stage = 'cancelled', updated_at = now()
			WHERE id = $1
		`, conv.ID); err != nil {
			return nil, fmt.Errorf("conversation: cancel stale: %w", err)
		}
	case errors.Is(err, pgx.ErrNoRows):
		// fall through to create
	default:
		return nil, fmt.Errorf("conversation: get active: %w", err)
	}

	fresh := &Conversation{
		ID:    uuid.New(),
		Phone: phone,
		Stage: StageStarted,
		Kind:  KindUnset,
	}
	err = q.QueryRow(ctx, `
		INSERT INTO sms_conversations (id, phone_number, stage, request_type)
		VALUES ($1, $2, $3, $4)
		RETURNING created_at, updated_at
	`, fresh.ID, fresh.Phone, string(fresh.Stage), string(fresh.Kind)).Scan(&fresh.CreatedAt, &fresh.UpdatedAt)
	if err != nil {
		return nil, fmt.Errorf("conversation: create: %w", err)
	}
	return fresh, nil
}

func (s *PostgresStore) Update(ctx context.Context, q DB, conv *Conversation) error {
	tag, err := q.Exec(ctx, `
		UPDATE sms_conversations SET
			stage = $2, request_type = $3, customer_name = $4, callback_phone = $5,
			address_line1 = $6, address_line2 = $7, city = $8, state = $9, zip_code = $10,
			item_description = $11, photo_urls = $12, notes = $13,
			created_task_id = $14, created_pickup_id = $15,
			last_message_at = $16, updated_at = now()
		WHERE id = $1
	`, conv.ID, string(conv.Stage), string(conv.Kind), conv.CustomerName, conv.CallbackPhone,
		conv.AddressLine1, conv.AddressLine2, conv.City, conv.State, conv.Zip,
		conv.ItemDescription, conv.PhotoURLs, conv.Notes,
		conv.CreatedTaskID, conv.CreatedPickupID, conv.LastMessageAt)
	if err != nil {
		return fmt.Errorf("conversation: update: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *PostgresStore) GetByID(ctx context.Context, q DB, id uuid.UUID) (*Conversation, error) {
	row := q.QueryRow(ctx, `
		SELECT `+conversationColumns+`
		FROM sms_conversations
		WHERE id = $1
	`, id)
	conv, err := scanConversation(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("conversation: get: %w", err)
	}
	return conv, nil
}

func (s *PostgresStore) List(ctx context.Context, q DB, stage *Stage, limit int) ([]*Conversation, error) {
	query := `SELECT ` + conversationColumns + ` FROM sms_conversations`
	args := []any{}
	if stage != nil {
		query += ` WHERE stage = $1`
		args = append(args, string(*stage))
	}
	query += ` ORDER BY updated_at DESC`
	if limit > 0 {
		query += fmt.Sprintf(` LIMIT $%d`, len(args)+1)
		args = append(args, limit)
	}

	rows, err := q.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("conversation: list: %w", err)
	}
	defer rows.Close()

	var out []*Conversation
	for rows.Next() {
		conv, err := scanConversation(rows)
		if err != nil {
			return nil, fmt.Errorf("conversation: scan: %w", err)
		}
		out = append(out, conv)
	}
	return out, rows.Err()
}

func (s *PostgresStore) Delete(ctx context.Context, q DB, id uuid.UUID) error {
	tag, err := q.Exec(ctx, `DELETE FROM sms_conversations WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("conversation: delete: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *PostgresStore) Stats(ctx context.Context, q DB) (*Stats, error) {
	rows, err := q.Query(ctx, `
		SELECT stage, COUNT(*) FROM sms_conversations GROUP BY stage
	`)
	if err != nil {
		return nil, fmt.Errorf("conversation: stats: %w", err)
	}
	defer rows.Close()

	stats := &Stats{ByStage: make(map[string]int)}
	for rows.Next() {
		var stage string
		var count int
		if err := rows.Scan(&stage, &count); err != nil {
			return nil, fmt.Errorf("conversation: stats scan: %w", err)
		}
		stats.ByStage[stage] = count
		stats.Total += count
		if !Stage(stage).Terminal() {
			stats.Active += count
		}
	}
	return stats, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanConversation(row rowScanner) (*Conversation, error) {
	var conv Conversation
	var stage, kind string
	err := row.Scan(
		&conv.ID, &conv.Phone, &stage, &kind, &conv.CustomerName, &conv.CallbackPhone,
		&conv.AddressLine1, &conv.AddressLine2, &conv.City, &conv.State, &conv.Zip,
		&conv.ItemDescription, &conv.PhotoURLs, &conv.Notes,
		&conv.CreatedTaskID, &conv.CreatedPickupID,
		&conv.CreatedAt, &conv.UpdatedAt, &conv.LastMessageAt,
	)
	if err != nil {
		return nil, err
	}
	conv.Stage = Stage(stage)
	conv.Kind = Kind(kind)
	return &conv, nil
}
