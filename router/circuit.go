package router

import (
	"sync"
	"time"

	"github.com/icn-project/icn-core/icnerr"
)

// CircuitState mirrors spec.md 4.6's Closed/Open/Half-Open breaker states.
type CircuitState int

const (
	Closed CircuitState = iota
	Open
	HalfOpen
)

func (s CircuitState) String() string {
	switch s {
	case Open:
		return "open"
	case HalfOpen:
		return "half-open"
	default:
		return "closed"
	}
}

// CircuitBreakerConfig tunes a breaker's transition thresholds.
type CircuitBreakerConfig struct {
	FailureThreshold int
	SuccessThreshold int
	RecoveryTimeout  time.Duration
}

// DefaultCircuitBreakerConfig matches the teacher's connection-manager
// reconnect tolerances (p2p/connmanager.go's dial-failure backoff) scaled to
// a three-state breaker.
var DefaultCircuitBreakerConfig = CircuitBreakerConfig{
	FailureThreshold: 5,
	SuccessThreshold: 2,
	RecoveryTimeout:  30 * time.Second,
}

type breaker struct {
	cfg              CircuitBreakerConfig
	state            CircuitState
	consecutiveFails int
	consecutiveOks   int
	openedAt         time.Time
}

// CircuitBreakerRegistry tracks one breaker per named service (a peer ID or
// a federation's cross-federation endpoint).
type CircuitBreakerRegistry struct {
	mu       sync.Mutex
	cfg      CircuitBreakerConfig
	breakers map[string]*breaker
}

// NewCircuitBreakerRegistry constructs a registry using cfg for every
// service's breaker.
func NewCircuitBreakerRegistry(cfg CircuitBreakerConfig) *CircuitBreakerRegistry {
	return &CircuitBreakerRegistry{cfg: cfg, breakers: make(map[string]*breaker)}
}

func (r *CircuitBreakerRegistry) get(service string) *breaker {
	b, ok := r.breakers[service]
	if !ok {
		b = &breaker{cfg: r.cfg, state: Closed}
		r.breakers[service] = b
	}
	return b
}

// Allow reports whether a call to service may proceed, transitioning
// Open→Half-Open once the recovery timeout has elapsed.
func (r *CircuitBreakerRegistry) Allow(service string, now time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	b := r.get(service)
	switch b.state {
	case Open:
		if now.Sub(b.openedAt) >= b.cfg.RecoveryTimeout {
			b.state = HalfOpen
			b.consecutiveOks = 0
			return nil
		}
		return &icnerr.CircuitBreakerOpenError{Service: service}
	default:
		return nil
	}
}

// RecordSuccess registers a successful call, closing a Half-Open breaker
// once success_threshold consecutive successes accumulate.
func (r *CircuitBreakerRegistry) RecordSuccess(service string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	b := r.get(service)
	b.consecutiveFails = 0
	switch b.state {
	case HalfOpen:
		b.consecutiveOks++
		if b.consecutiveOks >= b.cfg.SuccessThreshold {
			b.state = Closed
			b.consecutiveOks = 0
		}
	case Closed:
	}
}

// RecordFailure registers a failed call, opening the breaker either after
// failure_threshold consecutive failures (Closed) or immediately (Half-Open).
func (r *CircuitBreakerRegistry) RecordFailure(service string, now time.Time) {
	r.mu.Lock()
	defer r.mu.Unlock()
	b := r.get(service)
	switch b.state {
	case HalfOpen:
		b.state = Open
		b.openedAt = now
		b.consecutiveOks = 0
	case Closed:
		b.consecutiveFails++
		if b.consecutiveFails >= b.cfg.FailureThreshold {
			b.state = Open
			b.openedAt = now
			b.consecutiveFails = 0
		}
	}
}

// State reports a service's current breaker state, for diagnostics.
func (r *CircuitBreakerRegistry) State(service string) CircuitState {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.get(service).state
}
