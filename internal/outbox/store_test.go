package outbox

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/lib/pq"
	"go.uber.org/zap"
)

var testColumns = []string{
	"id", "idempotency_key", "target_platform", "device_token", "title", "body", "data", "tags",
	"priority", "status", "retry_count", "max_retries", "created_at", "updated_at",
	"scheduled_for", "sent_at", "last_attempt_utc", "next_attempt_utc", "last_error", "last_error_category",
}

func newTestStore(t *testing.T) (*Store, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { db.Close() })
	return NewStore(db, zap.NewNop()), mock
}

func testMessage() *Message {
	now := time.Now().UTC()
	return &Message{
		ID:             uuid.New(),
		IdempotencyKey: "key-1",
		TargetPlatform: "windows",
		DeviceToken:    "channel-uri",
		Title:          "hello",
		Body:           "world",
		Priority:       PriorityNormal,
		Status:         StatusPending,
		MaxRetries:     5,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
}

func messageRow(msg *Message) *sqlmock.Rows {
	return sqlmock.NewRows(testColumns).AddRow(
		msg.ID.String(), msg.IdempotencyKey, msg.TargetPlatform, msg.DeviceToken, msg.Title, msg.Body,
		nil, msg.Tags, msg.Priority, msg.Status, msg.RetryCount, msg.MaxRetries,
		msg.CreatedAt, msg.UpdatedAt, nil, nil, nil, nil, nil, nil)
}

func TestInsert(t *testing.T) {
	store, mock := newTestStore(t)
	msg := testMessage()

	mock.ExpectExec("INSERT INTO notifications").
		WillReturnResult(sqlmock.NewResult(0, 1))

	if err := store.Insert(context.Background(), msg); err != nil {
		t.Fatalf("Insert failed: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Error(err)
	}
}

func TestInsertDuplicateKey(t *testing.T) {
	store, mock := newTestStore(t)
	msg := testMessage()

	mock.ExpectExec("INSERT INTO notifications").
		WillReturnError(&pq.Error{Code: "23505"})

	err := store.Insert(context.Background(), msg)
	if !errors.Is(err, ErrDuplicateKey) {
		t.Errorf("Expected ErrDuplicateKey, got %v", err)
	}
}

func TestGetByIDNotFound(t *testing.T) {
	store, mock := newTestStore(t)

	mock.ExpectQuery("FROM notifications WHERE id").
		WillReturnRows(sqlmock.NewRows(testColumns))

	_, err := store.GetByID(context.Background(), uuid.New())
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("Expected ErrNotFound, got %v", err)
	}
}

func TestGetByIdempotencyKey(t *testing.T) {
	store, mock := newTestStore(t)
	msg := testMessage()

	mock.ExpectQuery("FROM notifications WHERE idempotency_key").
		WithArgs(msg.IdempotencyKey).
		WillReturnRows(messageRow(msg))

	got, err := store.GetByIdempotencyKey(context.Background(), msg.IdempotencyKey)
	if err != nil {
		t.Fatalf("GetByIdempotencyKey failed: %v", err)
	}
	if got.ID != msg.ID {
		t.Errorf("ID = %s, want %s", got.ID, msg.ID)
	}
	if got.Status != StatusPending {
		t.Errorf("Status = %s, want Pending", got.Status)
	}
}

func TestClaimPending(t *testing.T) {
	store, mock := newTestStore(t)
	msg := testMessage()
	msg.Status = StatusProcessing

	mock.ExpectQuery("UPDATE notifications").
		WithArgs(10).
		WillReturnRows(messageRow(msg))

	claimed, err := store.ClaimPending(context.Background(), 10)
	if err != nil {
		t.Fatalf("ClaimPending failed: %v", err)
	}
	if len(claimed) != 1 {
		t.Fatalf("Claimed %d rows, want 1", len(claimed))
	}
	if claimed[0].Status != StatusProcessing {
		t.Errorf("Status = %s, want Processing", claimed[0].Status)
	}
}

func TestClaimPendingEmpty(t *testing.T) {
	store, mock := newTestStore(t)

	mock.ExpectQuery("UPDATE notifications").
		WithArgs(10).
		WillReturnRows(sqlmock.NewRows(testColumns))

	claimed, err := store.ClaimPending(context.Background(), 10)
	if err != nil {
		t.Fatalf("ClaimPending failed: %v", err)
	}
	if len(claimed) != 0 {
		t.Errorf("Claimed %d rows, want 0", len(claimed))
	}
}

func TestMarkSent(t *testing.T) {
	store, mock := newTestStore(t)
	id := uuid.New()

	mock.ExpectExec("UPDATE notifications").
		WithArgs(id.String()).
		WillReturnResult(sqlmock.NewResult(0, 1))

	if err := store.MarkSent(context.Background(), id); err != nil {
		t.Fatalf("MarkSent failed: %v", err)
	}
}

func TestMarkSentLostRace(t *testing.T) {
	store, mock := newTestStore(t)

	mock.ExpectExec("UPDATE notifications").
		WillReturnResult(sqlmock.NewResult(0, 0))

	err := store.MarkSent(context.Background(), uuid.New())
	if !errors.Is(err, ErrInvalidTransition) {
		t.Errorf("Expected ErrInvalidTransition, got %v", err)
	}
}

func TestMarkFailed(t *testing.T) {
	store, mock := newTestStore(t)
	id := uuid.New()
	nextAttempt := time.Now().Add(10 * time.Second)

	mock.ExpectExec("UPDATE notifications").
		WithArgs(id.String(), nextAttempt, "timeout", "NetworkError").
		WillReturnResult(sqlmock.NewResult(0, 1))

	if err := store.MarkFailed(context.Background(), id, "timeout", "NetworkError", nextAttempt); err != nil {
		t.Fatalf("MarkFailed failed: %v", err)
	}
}

func TestMarkDeadLetteredAttempted(t *testing.T) {
	store, mock := newTestStore(t)
	id := uuid.New()

	mock.ExpectExec("UPDATE notifications").
		WithArgs(id.String(), 1, "bad token", "InvalidToken").
		WillReturnResult(sqlmock.NewResult(0, 1))

	if err := store.MarkDeadLettered(context.Background(), id, "bad token", "InvalidToken", true); err != nil {
		t.Fatalf("MarkDeadLettered failed: %v", err)
	}
}

func TestMarkDeadLetteredWithoutAttempt(t *testing.T) {
	store, mock := newTestStore(t)
	id := uuid.New()

	mock.ExpectExec("UPDATE notifications").
		WithArgs(id.String(), 0, "no provider registered for platform ios", "PlatformNotSupported").
		WillReturnResult(sqlmock.NewResult(0, 1))

	err := store.MarkDeadLettered(context.Background(), id, "no provider registered for platform ios", "PlatformNotSupported", false)
	if err != nil {
		t.Fatalf("MarkDeadLettered failed: %v", err)
	}
}

func TestRequeueNotDeadLettered(t *testing.T) {
	store, mock := newTestStore(t)

	mock.ExpectExec("UPDATE notifications").
		WillReturnResult(sqlmock.NewResult(0, 0))

	err := store.Requeue(context.Background(), uuid.New())
	if !errors.Is(err, ErrInvalidTransition) {
		t.Errorf("Expected ErrInvalidTransition, got %v", err)
	}
}

func TestReleaseStuck(t *testing.T) {
	store, mock := newTestStore(t)
	cutoff := time.Now().Add(-5 * time.Minute)

	mock.ExpectExec("UPDATE notifications").
		WithArgs(cutoff).
		WillReturnResult(sqlmock.NewResult(0, 3))

	count, err := store.ReleaseStuck(context.Background(), cutoff)
	if err != nil {
		t.Fatalf("ReleaseStuck failed: %v", err)
	}
	if count != 3 {
		t.Errorf("Released %d rows, want 3", count)
	}
}

func TestListWithStatusFilter(t *testing.T) {
	store, mock := newTestStore(t)
	msg := testMessage()
	msg.Status = StatusDeadLettered

	mock.ExpectQuery("FROM notifications WHERE status").
		WithArgs(StatusDeadLettered).
		WillReturnRows(messageRow(msg))

	status := StatusDeadLettered
	msgs, err := store.List(context.Background(), &status, 50)
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if len(msgs) != 1 {
		t.Fatalf("Listed %d rows, want 1", len(msgs))
	}
}
