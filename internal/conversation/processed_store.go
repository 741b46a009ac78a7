package conversation

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
)

// ProcessedStore records inbound message SIDs that were already handled, with
// the reply we sent, so a redelivered webhook gets the identical response
// instead of a second turn.
type ProcessedStore struct{}

func NewProcessedStore() *ProcessedStore {
	return &ProcessedStore{}
}

// ReplyFor returns the stored reply for a provider message id, or ok=false
// when the message has not been seen.
func (s *ProcessedStore) ReplyFor(ctx context.Context, q DB, provider, messageID string) (string, bool, error) {
	query := `SELECT reply FROM processed_messages WHERE provider = $1 AND message_id = $2`
	var reply string
	if err := q.QueryRow(ctx, query, provider, messageID).Scan(&reply); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return "", false, nil
		}
		return "", false, fmt.Errorf("conversation: check processed: %w", err)
	}
	return reply, true, nil
}

// Record stores the reply for a message id, returning false if another turn
// got there first.
func (s *ProcessedStore) Record(ctx context.Context, q DB, provider, messageID, reply string) (bool, error) {
	query := `
		INSERT INTO processed_messages (provider, message_id, reply)
		VALUES ($1, $2, $3)
		ON CONFLICT DO NOTHING
	`
	ct, err := q.Exec(ctx, query, provider, messageID, reply)
	if err != nil {
		return false, fmt.Errorf("conversation: record processed: %w", err)
	}
	return ct.RowsAffected() > 0, nil
}
