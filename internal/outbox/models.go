package outbox

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

type Status string

const (
	StatusPending      Status = "Pending"
	StatusProcessing   Status = "Processing"
	StatusSent         Status = "Sent"
	StatusFailed       Status = "Failed"
	StatusDeadLettered Status = "DeadLettered"
)

// Terminal reports whether no further transitions may leave the status.
func (s Status) Terminal() bool {
	return s == StatusSent || s == StatusDeadLettered
}

type Priority string

const (
	PriorityLow    Priority = "Low"
	PriorityNormal Priority = "Normal"
	PriorityHigh   Priority = "High"
)

// ParsePriority maps the wire value onto a priority; empty means Normal.
func ParsePriority(s string) (Priority, error) {
	switch s {
	case "":
		return PriorityNormal, nil
	case string(PriorityLow), string(PriorityNormal), string(PriorityHigh):
		return Priority(s), nil
	default:
		return "", fmt.Errorf("unknown priority %q", s)
	}
}

// Column limits enforced at ingest and mirrored by the schema.
const (
	MaxIdempotencyKeyLen = 256
	MaxTargetPlatformLen = 50
	MaxDeviceTokenLen    = 1024
	MaxTitleLen          = 512
	MaxBodyLen           = 4096
	MaxTagsLen           = 1024
	MaxLastErrorLen      = 2000
)

// Message is a single row of the notifications outbox. It is the only state
// shared between the ingest API and the dispatcher.
type Message struct {
	ID                uuid.UUID  `json:"id" db:"id"`
	IdempotencyKey    string     `json:"idempotency_key" db:"idempotency_key"`
	TargetPlatform    string     `json:"target_platform" db:"target_platform"`
	DeviceToken       string     `json:"device_token" db:"device_token"`
	Title             string     `json:"title" db:"title"`
	Body              string     `json:"body" db:"body"`
	Data              *string    `json:"data,omitempty" db:"data"`
	Tags              string     `json:"tags" db:"tags"`
	Priority          Priority   `json:"priority" db:"priority"`
	Status            Status     `json:"status" db:"status"`
	RetryCount        int        `json:"retry_count" db:"retry_count"`
	MaxRetries        int        `json:"max_retries" db:"max_retries"`
	CreatedAt         time.Time  `json:"created_at" db:"created_at"`
	UpdatedAt         time.Time  `json:"updated_at" db:"updated_at"`
	ScheduledFor      *time.Time `json:"scheduled_for,omitempty" db:"scheduled_for"`
	SentAt            *time.Time `json:"sent_at,omitempty" db:"sent_at"`
	LastAttemptUTC    *time.Time `json:"last_attempt_utc,omitempty" db:"last_attempt_utc"`
	NextAttemptUTC    *time.Time `json:"next_attempt_utc,omitempty" db:"next_attempt_utc"`
	LastError         *string    `json:"last_error,omitempty" db:"last_error"`
	LastErrorCategory *string    `json:"last_error_category,omitempty" db:"last_error_category"`
}

// DataMap decodes the persisted data payload. A nil or empty column yields an
// empty map.
func (m *Message) DataMap() (map[string]string, error) {
	if m.Data == nil || *m.Data == "" {
		return nil, nil
	}
	var data map[string]string
	if err := json.Unmarshal([]byte(*m.Data), &data); err != nil {
		return nil, fmt.Errorf("failed to decode data payload: %w", err)
	}
	return data, nil
}

// EncodeData serializes a data mapping for persistence. Empty maps persist as
// NULL so that absence round-trips.
func EncodeData(data map[string]string) (*string, error) {
	if len(data) == 0 {
		return nil, nil
	}
	raw, err := json.Marshal(data)
	if err != nil {
		return nil, fmt.Errorf("failed to encode data payload: %w", err)
	}
	s := string(raw)
	return &s, nil
}

// JoinTags flattens a tag list into the comma-separated persisted form.
func JoinTags(tags []string) string {
	return strings.Join(tags, ",")
}

// SplitTags is the inverse of JoinTags; an empty column yields nil.
func SplitTags(tags string) []string {
	if tags == "" {
		return nil
	}
	return strings.Split(tags, ",")
}

// TruncateError bounds provider error text before it is persisted.
func TruncateError(msg string) string {
	if len(msg) <= MaxLastErrorLen {
		return msg
	}
	return msg[:MaxLastErrorLen]
}
