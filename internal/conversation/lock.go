package conversation

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// TurnLocker serializes message processing per phone number. A second message
// arriving while a turn is in flight fails fast with ErrBusy so Twilio
// retries it rather than interleaving two turns on one conversation.
type TurnLocker interface {
	Acquire(ctx context.Context, phone string) (release func(), err error)
}

// RedisTurnLocker implements TurnLocker with a SET NX key per phone. The TTL
// bounds how long a crashed turn can keep a customer locked out.
type RedisTurnLocker struct {
	client *redis.Client
	ttl    time.Duration
}

func NewRedisTurnLocker(client *redis.Client, ttl time.Duration) *RedisTurnLocker {
	if client == nil {
		panic("conversation: redis client required")
	}
	if ttl <= 0 {
		ttl = 30 * time.Second
	}
	return &RedisTurnLocker{client: client, ttl: ttl}
}

func (l *RedisTurnLocker) Acquire(ctx context.Context, phone string) (func(), error) {
	key := "sms:turn:" + phone
	ok, err := l.client.SetNX(ctx, key, "1", l.ttl).Result()
	if err != nil {
		return nil, fmt.Errorf("conversation: acquire turn lock: %w", err)
	}
	if !ok {
		return nil, ErrBusy
	}
	release := func() {
		// Release runs after the reply is committed; a failure here just
		// leaves the key to expire.
		_ = l.client.Del(context.WithoutCancel(ctx), key).Err()
	}
	return release, nil
}

// NoopTurnLocker disables per-phone serialization. Used in single-instance
// deployments without Redis, where the row lock alone is enough.
type NoopTurnLocker struct{}

func (NoopTurnLocker) Acquire(context.Context, string) (func(), error) {
	return func() {}, nil
}
