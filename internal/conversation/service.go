package conversation

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/consignedbydesign/delivery-platform/internal/messaging"
	observemetrics "github.com/consignedbydesign/delivery-platform/internal/observability/metrics"
	"github.com/consignedbydesign/delivery-platform/pkg/logging"
)

const providerTwilio = "twilio"

// TxBeginner opens transactions. *pgxpool.Pool satisfies it.
type TxBeginner interface {
	Begin(ctx context.Context) (pgx.Tx, error)
}

// InboundMessage is one customer SMS after webhook parsing.
type InboundMessage struct {
	MessageID string
	From      string
	Body      string
	MediaURLs []string
}

// Service runs one conversation turn per inbound message: serialize on the
// phone, dedupe on the message id, advance the state machine inside a
// transaction, and hand the committed result to the after-turn hook.
type Service struct {
	db        TxBeginner
	store     Store
	engine    *Engine
	processed *ProcessedStore
	locker    TurnLocker
	ttl       time.Duration
	metrics   *observemetrics.ConversationMetrics
	logger    *logging.Logger

	// AfterTurn runs outside the transaction once a turn commits. Used for
	// scheduler notifications and media mirroring; failures there never
	// affect the customer reply.
	AfterTurn func(ctx context.Context, conv *Conversation, reply string)
}

// ServiceConfig collects the service dependencies.
type ServiceConfig struct {
	DB              TxBeginner
	Store           Store
	Engine          *Engine
	Processed       *ProcessedStore
	Locker          TurnLocker
	ConversationTTL time.Duration
	Metrics         *observemetrics.ConversationMetrics
	Logger          *logging.Logger
}

func NewService(cfg ServiceConfig) *Service {
	if cfg.DB == nil || cfg.Store == nil || cfg.Engine == nil || cfg.Processed == nil {
		panic("conversation: db, store, engine, and processed store required")
	}
	if cfg.Locker == nil {
		cfg.Locker = NoopTurnLocker{}
	}
	if cfg.ConversationTTL <= 0 {
		cfg.ConversationTTL = 24 * time.Hour
	}
	if cfg.Logger == nil {
		cfg.Logger = logging.Default()
	}
	return &Service{
		db:        cfg.DB,
		store:     cfg.Store,
		engine:    cfg.Engine,
		processed: cfg.Processed,
		locker:    cfg.Locker,
		ttl:       cfg.ConversationTTL,
		metrics:   cfg.Metrics,
		logger:    cfg.Logger,
	}
}

// HandleInbound processes one message and returns the reply to send. ErrBusy
// means a turn for this phone is already in flight and the caller should ask
// the provider to retry.
func (s *Service) HandleInbound(ctx context.Context, msg InboundMessage) (string, error) {
	start := time.Now()
	phone := messaging.ConversationPhone(msg.From)
	if phone == "" {
		s.metrics.ObserveInbound("invalid")
		return "", fmt.Errorf("conversation: inbound message without sender")
	}

	release, err := s.locker.Acquire(ctx, phone)
	if err != nil {
		if errors.Is(err, ErrBusy) {
			s.metrics.ObserveInbound("busy")
			return "", err
		}
		s.metrics.ObserveInbound("error")
		return "", err
	}
	defer release()

	tx, err := s.db.Begin(ctx)
	if err != nil {
		s.metrics.ObserveInbound("error")
		return "", fmt.Errorf("conversation: begin turn: %w", err)
	}
	defer tx.Rollback(ctx)

	if msg.MessageID != "" {
		reply, seen, err := s.processed.ReplyFor(ctx, tx, providerTwilio, msg.MessageID)
		if err != nil {
			s.metrics.ObserveInbound("error")
			return "", err
		}
		if seen {
			// Redelivered webhook: repeat ourselves without a second turn.
			s.metrics.ObserveInbound("replay")
			return reply, nil
		}
	}

	conv, err := s.store.GetOrCreateActive(ctx, tx, phone, s.ttl)
	if err != nil {
		s.metrics.ObserveInbound("error")
		return "", err
	}

	reply, err := s.engine.Process(ctx, tx, conv, msg.Body, msg.MediaURLs)
	if err != nil {
		s.metrics.ObserveInbound("error")
		return "", err
	}

	if err := s.store.Update(ctx, tx, conv); err != nil {
		s.metrics.ObserveInbound("error")
		return "", err
	}

	if msg.MessageID != "" {
		if _, err := s.processed.Record(ctx, tx, providerTwilio, msg.MessageID, reply); err != nil {
			s.metrics.ObserveInbound("error")
			return "", err
		}
	}

	if err := tx.Commit(ctx); err != nil {
		s.metrics.ObserveInbound("error")
		return "", fmt.Errorf("conversation: commit turn: %w", err)
	}

	s.metrics.ObserveInbound("ok")
	s.metrics.ObserveTurnLatency(time.Since(start).Seconds())
	s.logger.Info("processed inbound message",
		"conversation_id", conv.ID,
		"stage", string(conv.Stage),
		"request_type", string(conv.Kind))

	if s.AfterTurn != nil {
		go s.AfterTurn(context.WithoutCancel(ctx), conv, reply)
	}
	return reply, nil
}
