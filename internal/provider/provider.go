package provider

import (
	"context"
	"errors"
	"fmt"
)

// FailureCategory is the closed set of abstract failure reasons shared by all
// providers. Retryability and operator triage both derive from it.
type FailureCategory string

const (
	CategoryUnknown              FailureCategory = "Unknown"
	CategoryNetworkError         FailureCategory = "NetworkError"
	CategoryServiceUnavailable   FailureCategory = "ServiceUnavailable"
	CategoryRateLimited          FailureCategory = "RateLimited"
	CategoryInvalidToken         FailureCategory = "InvalidToken"
	CategoryInvalidPayload       FailureCategory = "InvalidPayload"
	CategoryUnauthorized         FailureCategory = "Unauthorized"
	CategoryPlatformNotSupported FailureCategory = "PlatformNotSupported"
)

// Retryable reports whether a failure in this category may succeed on a later
// attempt.
func (c FailureCategory) Retryable() bool {
	switch c {
	case CategoryNetworkError, CategoryServiceUnavailable, CategoryRateLimited, CategoryUnknown:
		return true
	default:
		return false
	}
}

// ClassifyStatus maps a push backend HTTP status code onto a failure category.
func ClassifyStatus(code int) FailureCategory {
	switch code {
	case 400:
		return CategoryInvalidPayload
	case 401:
		return CategoryUnauthorized
	case 404:
		return CategoryInvalidToken
	case 429:
		return CategoryRateLimited
	case 500, 503:
		return CategoryServiceUnavailable
	default:
		return CategoryUnknown
	}
}

// Message is the platform-independent send request handed to a provider.
type Message struct {
	Token string
	Title string
	Body  string
	Data  map[string]string
}

// SendError is a classified provider failure. Every failure a provider
// returns must be a SendError; anything else is treated as retryable Unknown.
type SendError struct {
	Message    string
	StatusCode int
	Category   FailureCategory
}

func (e *SendError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("%s (status %d): %s", e.Category, e.StatusCode, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Category, e.Message)
}

func (e *SendError) Retryable() bool {
	return e.Category.Retryable()
}

// AsSendError normalizes any provider error into a classified SendError.
// Deadline expiry counts as a network error; everything unrecognized is
// retryable Unknown so the outbox loop keeps ownership of the retry decision.
func AsSendError(err error) *SendError {
	var se *SendError
	if errors.As(err, &se) {
		return se
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return &SendError{Message: err.Error(), Category: CategoryNetworkError}
	}
	return &SendError{Message: err.Error(), Category: CategoryUnknown}
}

// Provider is the per-platform send primitive. Implementations own all
// network I/O, authentication, and payload serialization, and must classify
// every failure as a *SendError.
type Provider interface {
	Name() string
	Send(ctx context.Context, msg Message) error
}
