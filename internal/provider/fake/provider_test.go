package fake

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"go.uber.org/zap"

	"push-dispatcher/internal/provider"
)

func TestSendAlwaysSucceedsAtZeroRate(t *testing.T) {
	p := NewProvider(zap.NewNop(), 0)

	for i := 0; i < 100; i++ {
		msg := provider.Message{Token: fmt.Sprintf("token-%d", i), Title: "hi"}
		if err := p.Send(context.Background(), msg); err != nil {
			t.Fatalf("Send failed at zero failure rate: %v", err)
		}
	}
}

func TestSendAlwaysFailsAtFullRate(t *testing.T) {
	p := NewProvider(zap.NewNop(), 1)

	for i := 0; i < 100; i++ {
		msg := provider.Message{Token: fmt.Sprintf("token-%d", i)}
		err := p.Send(context.Background(), msg)
		if err == nil {
			t.Fatal("Expected failure at full failure rate")
		}

		var se *provider.SendError
		if !errors.As(err, &se) {
			t.Fatalf("Expected SendError, got %T", err)
		}
		if se.Category != provider.CategoryServiceUnavailable {
			t.Errorf("Category = %s, want ServiceUnavailable", se.Category)
		}
		if se.StatusCode != 503 {
			t.Errorf("StatusCode = %d, want 503", se.StatusCode)
		}
	}
}

func TestSendOutcomeIsDeterministicPerToken(t *testing.T) {
	p := NewProvider(zap.NewNop(), 0.5)
	msg := provider.Message{Token: "stable-token"}

	first := p.Send(context.Background(), msg)
	for i := 0; i < 20; i++ {
		got := p.Send(context.Background(), msg)
		if (first == nil) != (got == nil) {
			t.Fatal("Expected the same outcome for the same token")
		}
	}
}

func TestSendRespectsCanceledContext(t *testing.T) {
	p := NewProvider(zap.NewNop(), 0)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if err := p.Send(ctx, provider.Message{Token: "t"}); !errors.Is(err, context.Canceled) {
		t.Errorf("Expected context.Canceled, got %v", err)
	}
}

func TestInvalidFailureRateFallsBackToDefault(t *testing.T) {
	p := NewProvider(zap.NewNop(), 1.5)
	if p.failureRate != DefaultFailureRate {
		t.Errorf("failureRate = %v, want %v", p.failureRate, DefaultFailureRate)
	}
}
