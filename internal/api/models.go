package api

import (
	"fmt"
	"time"

	"github.com/google/uuid"

	"push-dispatcher/internal/outbox"
)

// IngestRequest is the POST /notifications body.
type IngestRequest struct {
	IdempotencyKey string            `json:"idempotencyKey,omitempty"`
	TargetPlatform string            `json:"targetPlatform"`
	DeviceToken    string            `json:"deviceToken"`
	Title          string            `json:"title"`
	Body           string            `json:"body,omitempty"`
	Data           map[string]string `json:"data,omitempty"`
	Tags           []string          `json:"tags,omitempty"`
	Priority       string            `json:"priority,omitempty"`
	ScheduledFor   *time.Time        `json:"scheduledFor,omitempty"`
}

// Validate enforces the required fields and column limits before anything is
// written. Platform existence is deliberately not checked here; unknown
// platforms are accepted and dead-lettered on first dispatch.
func (r *IngestRequest) Validate() error {
	if r.TargetPlatform == "" {
		return fmt.Errorf("targetPlatform is required")
	}
	if len(r.TargetPlatform) > outbox.MaxTargetPlatformLen {
		return fmt.Errorf("targetPlatform exceeds %d characters", outbox.MaxTargetPlatformLen)
	}
	if r.DeviceToken == "" {
		return fmt.Errorf("deviceToken is required")
	}
	if len(r.DeviceToken) > outbox.MaxDeviceTokenLen {
		return fmt.Errorf("deviceToken exceeds %d characters", outbox.MaxDeviceTokenLen)
	}
	if r.Title == "" {
		return fmt.Errorf("title is required")
	}
	if len(r.Title) > outbox.MaxTitleLen {
		return fmt.Errorf("title exceeds %d characters", outbox.MaxTitleLen)
	}
	if len(r.Body) > outbox.MaxBodyLen {
		return fmt.Errorf("body exceeds %d characters", outbox.MaxBodyLen)
	}
	if len(r.IdempotencyKey) > outbox.MaxIdempotencyKeyLen {
		return fmt.Errorf("idempotencyKey exceeds %d characters", outbox.MaxIdempotencyKeyLen)
	}
	if len(outbox.JoinTags(r.Tags)) > outbox.MaxTagsLen {
		return fmt.Errorf("tags exceed %d characters", outbox.MaxTagsLen)
	}
	if _, err := outbox.ParsePriority(r.Priority); err != nil {
		return err
	}
	return nil
}

// IngestResponse is returned for 202 and for 409 idempotency hits; on a hit
// it carries the existing row's id and current status.
type IngestResponse struct {
	ID      uuid.UUID     `json:"id"`
	Status  outbox.Status `json:"status"`
	Message string        `json:"message"`
}

// StatusResponse is the GET /notifications/{id} body.
type StatusResponse struct {
	ID             uuid.UUID     `json:"id"`
	Status         outbox.Status `json:"status"`
	TargetPlatform string        `json:"targetPlatform"`
	RetryCount     int           `json:"retryCount"`
	CreatedAt      time.Time     `json:"createdAt"`
	SentAt         *time.Time    `json:"sentAt,omitempty"`
	ErrorMessage   *string       `json:"errorMessage,omitempty"`
}

func newStatusResponse(msg *outbox.Message) *StatusResponse {
	return &StatusResponse{
		ID:             msg.ID,
		Status:         msg.Status,
		TargetPlatform: msg.TargetPlatform,
		RetryCount:     msg.RetryCount,
		CreatedAt:      msg.CreatedAt,
		SentAt:         msg.SentAt,
		ErrorMessage:   msg.LastError,
	}
}
