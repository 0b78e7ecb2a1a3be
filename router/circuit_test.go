package router

import (
	"errors"
	"testing"
	"time"

	"github.com/icn-project/icn-core/icnerr"
)

func TestCircuitBreakerOpensAfterThreshold(t *testing.T) {
	now := time.Unix(0, 0)
	reg := NewCircuitBreakerRegistry(CircuitBreakerConfig{FailureThreshold: 3, SuccessThreshold: 2, RecoveryTimeout: time.Minute})

	for i := 0; i < 2; i++ {
		reg.RecordFailure("peerA", now)
	}
	if reg.State("peerA") != Closed {
		t.Fatalf("expected breaker still closed before threshold")
	}
	reg.RecordFailure("peerA", now)
	if reg.State("peerA") != Open {
		t.Fatalf("expected breaker open after threshold failures")
	}

	if err := reg.Allow("peerA", now); err == nil {
		t.Fatalf("expected open breaker to reject calls")
	}
	var cbErr *icnerr.CircuitBreakerOpenError
	if !errors.As(reg.Allow("peerA", now), &cbErr) {
		t.Fatalf("expected CircuitBreakerOpenError")
	}
}

func TestCircuitBreakerHalfOpenRecovery(t *testing.T) {
	now := time.Unix(0, 0)
	reg := NewCircuitBreakerRegistry(CircuitBreakerConfig{FailureThreshold: 1, SuccessThreshold: 2, RecoveryTimeout: time.Second})
	reg.RecordFailure("peerA", now)
	if reg.State("peerA") != Open {
		t.Fatalf("expected open")
	}

	later := now.Add(2 * time.Second)
	if err := reg.Allow("peerA", later); err != nil {
		t.Fatalf("expected half-open to allow a probe call: %v", err)
	}
	if reg.State("peerA") != HalfOpen {
		t.Fatalf("expected half-open state")
	}

	reg.RecordSuccess("peerA")
	if reg.State("peerA") != HalfOpen {
		t.Fatalf("expected to remain half-open before success threshold")
	}
	reg.RecordSuccess("peerA")
	if reg.State("peerA") != Closed {
		t.Fatalf("expected closed after success threshold")
	}
}

func TestCircuitBreakerHalfOpenFailureReopens(t *testing.T) {
	now := time.Unix(0, 0)
	reg := NewCircuitBreakerRegistry(CircuitBreakerConfig{FailureThreshold: 1, SuccessThreshold: 1, RecoveryTimeout: time.Second})
	reg.RecordFailure("peerA", now)
	later := now.Add(2 * time.Second)
	_ = reg.Allow("peerA", later)
	reg.RecordFailure("peerA", later)
	if reg.State("peerA") != Open {
		t.Fatalf("expected half-open failure to reopen breaker")
	}
}
