package outbox

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"go.uber.org/zap"
)

var (
	// ErrDuplicateKey reports an idempotency-key collision on insert.
	ErrDuplicateKey = errors.New("duplicate idempotency key")
	// ErrNotFound reports a missing row on a point read.
	ErrNotFound = errors.New("notification not found")
	// ErrInvalidTransition reports a state transition whose guard did not
	// match, e.g. another worker already advanced the row.
	ErrInvalidTransition = errors.New("invalid status transition")
)

const uniqueViolation = "23505"

const columns = `id, idempotency_key, target_platform, device_token, title, body, data, tags,
		priority, status, retry_count, max_retries, created_at, updated_at,
		scheduled_for, sent_at, last_attempt_utc, next_attempt_utc, last_error, last_error_category`

// Store is the durable outbox over PostgreSQL. All state shared between the
// ingest API and dispatcher workers lives behind it; transitions are atomic
// conditional updates so each row is owned by at most one worker per attempt.
type Store struct {
	db     *sql.DB
	logger *zap.Logger
}

func NewStore(db *sql.DB, logger *zap.Logger) *Store {
	return &Store{db: db, logger: logger}
}

func (s *Store) Insert(ctx context.Context, msg *Message) error {
	query := `INSERT INTO notifications (` + columns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19, $20)`

	_, err := s.db.ExecContext(ctx, query,
		msg.ID, msg.IdempotencyKey, msg.TargetPlatform, msg.DeviceToken, msg.Title, msg.Body,
		msg.Data, msg.Tags, msg.Priority, msg.Status, msg.RetryCount, msg.MaxRetries,
		msg.CreatedAt, msg.UpdatedAt, msg.ScheduledFor, msg.SentAt,
		msg.LastAttemptUTC, msg.NextAttemptUTC, msg.LastError, msg.LastErrorCategory)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == uniqueViolation {
			return ErrDuplicateKey
		}
		return fmt.Errorf("failed to insert notification: %w", err)
	}

	s.logger.Info("notification created",
		zap.String("id", msg.ID.String()),
		zap.String("platform", msg.TargetPlatform))
	return nil
}

func (s *Store) GetByID(ctx context.Context, id uuid.UUID) (*Message, error) {
	query := `SELECT ` + columns + ` FROM notifications WHERE id = $1`
	return s.scanRow(s.db.QueryRowContext(ctx, query, id))
}

func (s *Store) GetByIdempotencyKey(ctx context.Context, key string) (*Message, error) {
	query := `SELECT ` + columns + ` FROM notifications WHERE idempotency_key = $1`
	return s.scanRow(s.db.QueryRowContext(ctx, query, key))
}

// ClaimPending atomically claims due Pending rows for processing. The inner
// select uses FOR UPDATE SKIP LOCKED so concurrent dispatcher instances never
// claim the same row.
func (s *Store) ClaimPending(ctx context.Context, limit int) ([]*Message, error) {
	query := `
		UPDATE notifications
		SET status = 'Processing', last_attempt_utc = NOW(), updated_at = NOW()
		WHERE id IN (
			SELECT id FROM notifications
			WHERE status = 'Pending'
			  AND (scheduled_for IS NULL OR scheduled_for <= NOW())
			ORDER BY created_at ASC
			LIMIT $1
			FOR UPDATE SKIP LOCKED
		)
		RETURNING ` + columns

	return s.claim(ctx, query, limit)
}

// ClaimFailed atomically claims Failed rows whose backoff has elapsed and
// that still have retry budget.
func (s *Store) ClaimFailed(ctx context.Context, limit int) ([]*Message, error) {
	query := `
		UPDATE notifications
		SET status = 'Processing', last_attempt_utc = NOW(), updated_at = NOW()
		WHERE id IN (
			SELECT id FROM notifications
			WHERE status = 'Failed'
			  AND retry_count < max_retries
			  AND (next_attempt_utc IS NULL OR next_attempt_utc <= NOW())
			ORDER BY next_attempt_utc ASC NULLS LAST, updated_at ASC
			LIMIT $1
			FOR UPDATE SKIP LOCKED
		)
		RETURNING ` + columns

	return s.claim(ctx, query, limit)
}

func (s *Store) claim(ctx context.Context, query string, limit int) ([]*Message, error) {
	rows, err := s.db.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to claim notifications: %w", err)
	}
	defer rows.Close()

	var msgs []*Message
	for rows.Next() {
		msg, err := scanMessage(rows)
		if err != nil {
			return nil, err
		}
		msgs = append(msgs, msg)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read claimed notifications: %w", err)
	}
	return msgs, nil
}

// MarkSent finalizes a delivered row. Sent is terminal; the guard on
// Processing makes a lost race observable as ErrInvalidTransition.
func (s *Store) MarkSent(ctx context.Context, id uuid.UUID) error {
	query := `
		UPDATE notifications
		SET status = 'Sent', sent_at = NOW(), next_attempt_utc = NULL,
		    last_error = NULL, last_error_category = NULL, updated_at = NOW()
		WHERE id = $1 AND status = 'Processing'`
	return s.transition(ctx, query, id)
}

// MarkFailed records a retryable failure: it completes the attempt, schedules
// the next one, and keeps the row claimable once nextAttempt passes.
func (s *Store) MarkFailed(ctx context.Context, id uuid.UUID, errMsg, category string, nextAttempt time.Time) error {
	query := `
		UPDATE notifications
		SET status = 'Failed', retry_count = retry_count + 1, next_attempt_utc = $2,
		    last_error = $3, last_error_category = $4, updated_at = NOW()
		WHERE id = $1 AND status = 'Processing'`
	return s.transition(ctx, query, id, nextAttempt, TruncateError(errMsg), category)
}

// MarkDeadLettered terminates a row that cannot be delivered. attempted
// controls whether a completed provider call is added to retry_count; a
// missing provider dead-letters without an attempt.
func (s *Store) MarkDeadLettered(ctx context.Context, id uuid.UUID, reason, category string, attempted bool) error {
	increment := 0
	if attempted {
		increment = 1
	}
	query := `
		UPDATE notifications
		SET status = 'DeadLettered', retry_count = retry_count + $2, next_attempt_utc = NULL,
		    last_error = $3, last_error_category = $4, updated_at = NOW()
		WHERE id = $1 AND status = 'Processing'`
	return s.transition(ctx, query, id, increment, TruncateError(reason), category)
}

// Requeue is the operator path: it resets a DeadLettered row to Pending with
// a fresh retry budget.
func (s *Store) Requeue(ctx context.Context, id uuid.UUID) error {
	query := `
		UPDATE notifications
		SET status = 'Pending', retry_count = 0, next_attempt_utc = NULL,
		    last_error = NULL, last_error_category = NULL, updated_at = NOW()
		WHERE id = $1 AND status = 'DeadLettered'`
	return s.transition(ctx, query, id)
}

// ReleaseStuck returns Processing rows abandoned before cutoff to Pending so
// a crashed worker cannot strand them.
func (s *Store) ReleaseStuck(ctx context.Context, cutoff time.Time) (int64, error) {
	query := `
		UPDATE notifications
		SET status = 'Pending', updated_at = NOW()
		WHERE status = 'Processing' AND last_attempt_utc < $1`

	result, err := s.db.ExecContext(ctx, query, cutoff)
	if err != nil {
		return 0, fmt.Errorf("failed to release stuck notifications: %w", err)
	}
	count, _ := result.RowsAffected()
	return count, nil
}

// List returns recent rows for operator triage, newest first, optionally
// filtered by status.
func (s *Store) List(ctx context.Context, status *Status, limit int) ([]*Message, error) {
	if limit <= 0 || limit > 100 {
		limit = 50
	}

	query := `SELECT ` + columns + ` FROM notifications`
	args := []any{}
	if status != nil {
		query += ` WHERE status = $1`
		args = append(args, *status)
	}
	query += fmt.Sprintf(` ORDER BY created_at DESC LIMIT %d`, limit)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list notifications: %w", err)
	}
	defer rows.Close()

	var msgs []*Message
	for rows.Next() {
		msg, err := scanMessage(rows)
		if err != nil {
			return nil, err
		}
		msgs = append(msgs, msg)
	}
	return msgs, rows.Err()
}

func (s *Store) Health(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

func (s *Store) transition(ctx context.Context, query string, id uuid.UUID, args ...any) error {
	result, err := s.db.ExecContext(ctx, query, append([]any{id}, args...)...)
	if err != nil {
		return fmt.Errorf("failed to update notification %s: %w", id, err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read affected rows for %s: %w", id, err)
	}
	if affected == 0 {
		return ErrInvalidTransition
	}
	return nil
}

type scanner interface {
	Scan(dest ...any) error
}

func (s *Store) scanRow(row *sql.Row) (*Message, error) {
	msg, err := scanMessage(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return msg, nil
}

func scanMessage(row scanner) (*Message, error) {
	var msg Message
	err := row.Scan(
		&msg.ID, &msg.IdempotencyKey, &msg.TargetPlatform, &msg.DeviceToken, &msg.Title, &msg.Body,
		&msg.Data, &msg.Tags, &msg.Priority, &msg.Status, &msg.RetryCount, &msg.MaxRetries,
		&msg.CreatedAt, &msg.UpdatedAt, &msg.ScheduledFor, &msg.SentAt,
		&msg.LastAttemptUTC, &msg.NextAttemptUTC, &msg.LastError, &msg.LastErrorCategory)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, err
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan notification: %w", err)
	}
	return &msg, nil
}
