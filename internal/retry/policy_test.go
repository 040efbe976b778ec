package retry

import (
	"sync"
	"testing"
	"time"
)

func TestDelaySequenceWithoutJitter(t *testing.T) {
	policy := NewPolicy(5*time.Second, 300*time.Second, 0)

	expected := []time.Duration{
		5 * time.Second,
		10 * time.Second,
		20 * time.Second,
		40 * time.Second,
		80 * time.Second,
		160 * time.Second,
		300 * time.Second,
		300 * time.Second,
	}

	for retryCount, want := range expected {
		got := policy.Delay(retryCount)
		if got != want {
			t.Errorf("Delay(%d) = %v, want %v", retryCount, got, want)
		}
	}
}

func TestDelayJitterBounds(t *testing.T) {
	policy := NewPolicy(5*time.Second, 300*time.Second, 0.3)

	// exp=20s at retryCount=2; jitter is within ±15% of exp, then truncated.
	for i := 0; i < 200; i++ {
		got := policy.Delay(2)
		if got < 17*time.Second || got > 23*time.Second {
			t.Fatalf("Delay(2) = %v, want within [17s, 23s]", got)
		}
	}
}

func TestDelayFloorIsOneSecond(t *testing.T) {
	policy := NewPolicy(1*time.Second, 300*time.Second, 1)

	for i := 0; i < 200; i++ {
		if got := policy.Delay(0); got < time.Second {
			t.Fatalf("Delay(0) = %v, want >= 1s", got)
		}
	}
}

func TestDelayNegativeRetryCount(t *testing.T) {
	policy := NewPolicy(5*time.Second, 300*time.Second, 0)

	if got := policy.Delay(-1); got != 5*time.Second {
		t.Errorf("Delay(-1) = %v, want 5s", got)
	}
}

func TestDelayLargeRetryCountClampsAtMax(t *testing.T) {
	policy := NewPolicy(5*time.Second, 300*time.Second, 0)

	if got := policy.Delay(1000); got != 300*time.Second {
		t.Errorf("Delay(1000) = %v, want 300s", got)
	}
}

func TestShouldRetry(t *testing.T) {
	cases := []struct {
		retryCount int
		maxRetries int
		want       bool
	}{
		{0, 5, true},
		{4, 5, true},
		{5, 5, false},
		{6, 5, false},
		{0, 0, false},
	}

	for _, tc := range cases {
		if got := ShouldRetry(tc.retryCount, tc.maxRetries); got != tc.want {
			t.Errorf("ShouldRetry(%d, %d) = %v, want %v", tc.retryCount, tc.maxRetries, got, tc.want)
		}
	}
}

func TestDelayConcurrentUse(t *testing.T) {
	policy := NewPolicy(5*time.Second, 300*time.Second, 0.3)

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				if policy.Delay(j%8) < time.Second {
					t.Error("Delay returned less than one second")
					return
				}
			}
		}()
	}
	wg.Wait()
}
