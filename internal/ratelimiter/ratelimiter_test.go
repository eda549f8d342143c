package ratelimiter

import (
	"testing"
	"time"
)

// TestNew verifies rate limiter creation with different parameters.
func TestNew(t *testing.T) {
	tests := []struct {
		name              string
		requestsPerSecond uint
		burst             uint
		wantUnlimited     bool
	}{
		{name: "standard rate", requestsPerSecond: 100, burst: 200},
		{name: "zero burst", requestsPerSecond: 5, burst: 0},
		{name: "unlimited (zero rate)", requestsPerSecond: 0, burst: 0, wantUnlimited: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			limiter := New(tt.requestsPerSecond, tt.burst)
			if limiter == nil || limiter.limiter == nil {
				t.Fatal("New() returned an unusable limiter")
			}
			if limiter.Unlimited() != tt.wantUnlimited {
				t.Errorf("Unlimited() = %v, want %v", limiter.Unlimited(), tt.wantUnlimited)
			}
		})
	}
}

// TestAllow verifies that Allow() enforces the burst capacity.
func TestAllow(t *testing.T) {
	limiter := New(1, 3)

	for i := 0; i < 3; i++ {
		if !limiter.Allow() {
			t.Fatalf("request %d should be allowed (within burst)", i)
		}
	}

	if limiter.Allow() {
		t.Error("request beyond burst should be rejected")
	}
}

// TestAllowUnlimited verifies that a zero rate never rejects.
func TestAllowUnlimited(t *testing.T) {
	limiter := New(0, 0)
	for i := 0; i < 10000; i++ {
		if !limiter.Allow() {
			t.Fatalf("unlimited limiter rejected request %d", i)
		}
	}
}

// TestTokensRefill verifies tokens accumulate over time.
func TestTokensRefill(t *testing.T) {
	limiter := New(100, 1)
	limiter.Allow()

	time.Sleep(50 * time.Millisecond)

	if limiter.Tokens() <= 0 {
		t.Errorf("expected tokens to refill, got %f", limiter.Tokens())
	}
}
