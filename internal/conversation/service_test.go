package conversation

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	pgx "github.com/jackc/pgx/v5"
	pgxmock "github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeStore struct {
	conv    *Conversation
	updated *Conversation
	getErr  error
}

func (f *fakeStore) GetOrCreateActive(_ context.Context, _ DB, _ string, _ time.Duration) (*Conversation, error) {
	if f.getErr != nil {
		return nil, f.getErr
	}
	return f.conv, nil
}

func (f *fakeStore) Update(_ context.Context, _ DB, conv *Conversation) error {
	f.updated = conv
	return nil
}

func (f *fakeStore) GetByID(_ context.Context, _ DB, _ uuid.UUID) (*Conversation, error) {
	return nil, ErrNotFound
}

func (f *fakeStore) List(_ context.Context, _ DB, _ *Stage, _ int) ([]*Conversation, error) {
	return nil, nil
}

func (f *fakeStore) Delete(_ context.Context, _ DB, _ uuid.UUID) error { return nil }

func (f *fakeStore) Stats(_ context.Context, _ DB) (*Stats, error) { return &Stats{}, nil }

type busyLocker struct{}

func (busyLocker) Acquire(context.Context, string) (func(), error) { return nil, ErrBusy }

func newTestService(t *testing.T, mock pgxmock.PgxPoolIface, store *fakeStore) *Service {
	t.Helper()
	return NewService(ServiceConfig{
		DB:        mock,
		Store:     store,
		Engine:    newTestEngine(nil, &fakeMaterializer{taskID: uuid.New()}),
		Processed: NewProcessedStore(),
	})
}

func TestServiceHandleInbound(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	store := &fakeStore{conv: newConversation(StageStarted, KindUnset)}
	svc := newTestService(t, mock, store)

	mock.ExpectBegin()
	mock.ExpectQuery("SELECT reply FROM processed_messages").WithArgs("twilio", "SM1").
		WillReturnError(pgx.ErrNoRows)
	mock.ExpectExec("INSERT INTO processed_messages").WithArgs(anyArgs(3)...).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))
	mock.ExpectCommit()

	reply, err := svc.HandleInbound(context.Background(), InboundMessage{
		MessageID: "SM1",
		From:      "+13175550147",
		Body:      "DELIVERY",
	})
	require.NoError(t, err)
	assert.Equal(t, promptAskName, reply)
	require.NotNil(t, store.updated)
	assert.Equal(t, StageAwaitingName, store.updated.Stage)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestServiceReplaysDuplicateMessage(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	store := &fakeStore{conv: newConversation(StageStarted, KindUnset)}
	svc := newTestService(t, mock, store)

	mock.ExpectBegin()
	mock.ExpectQuery("SELECT reply FROM processed_messages").WithArgs("twilio", "SM1").
		WillReturnRows(pgxmock.NewRows([]string{"reply"}).AddRow(promptAskName))
	mock.ExpectRollback()

	reply, err := svc.HandleInbound(context.Background(), InboundMessage{
		MessageID: "SM1",
		From:      "+13175550147",
		Body:      "DELIVERY",
	})
	require.NoError(t, err)
	assert.Equal(t, promptAskName, reply)
	assert.Nil(t, store.updated, "a replayed message must not run a second turn")
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestServiceBusyPhone(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	svc := NewService(ServiceConfig{
		DB:        mock,
		Store:     &fakeStore{},
		Engine:    newTestEngine(nil, &fakeMaterializer{}),
		Processed: NewProcessedStore(),
		Locker:    busyLocker{},
	})

	_, err = svc.HandleInbound(context.Background(), InboundMessage{
		MessageID: "SM1",
		From:      "+13175550147",
		Body:      "hello",
	})
	assert.ErrorIs(t, err, ErrBusy)
}

func TestServiceRejectsMissingSender(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	svc := newTestService(t, mock, &fakeStore{})
	_, err = svc.HandleInbound(context.Background(), InboundMessage{MessageID: "SM1", Body: "hello"})
	assert.Error(t, err)
}

func TestServiceAfterTurnRunsOnCompletion(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	store := &fakeStore{conv: newConversation(StageAwaitingNotes, KindDelivery)}
	svc := newTestService(t, mock, store)

	done := make(chan *Conversation, 1)
	svc.AfterTurn = func(_ context.Context, conv *Conversation, _ string) {
		done <- conv
	}

	mock.ExpectBegin()
	mock.ExpectQuery("SELECT reply FROM processed_messages").WithArgs("twilio", "SM2").
		WillReturnError(pgx.ErrNoRows)
	mock.ExpectExec("INSERT INTO processed_messages").WithArgs(anyArgs(3)...).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))
	mock.ExpectCommit()

	_, err = svc.HandleInbound(context.Background(), InboundMessage{
		MessageID: "SM2",
		From:      "+13175550147",
		Body:      "yes",
	})
	require.NoError(t, err)

	select {
	case conv := <-done:
		assert.Equal(t, StageCompleted, conv.Stage)
	case <-time.After(time.Second):
		t.Fatal("after-turn hook never ran")
	}
}
