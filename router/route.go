package router

import (
	"time"

	"github.com/cenkalti/backoff/v4"

	"github.com/icn-project/icn-core/icnerr"
)

// Sender performs a single direct send attempt to peer. A non-nil,
// non-permanent error is treated as recoverable and retried by RouteTo.
type Sender interface {
	Send(peer string, message []byte, priority Priority) error
}

// RetryConfig configures route_to's exponential backoff with jitter, per
// spec.md 4.6: delay <- min(max_delay, delay*multiplier) + jitter.
type RetryConfig struct {
	InitialDelay  time.Duration
	MaxDelay      time.Duration
	Multiplier    float64
	JitterFactor  float64
	MaxRetries    uint64
}

// DefaultRetryConfig mirrors the teacher's reconnect backoff tolerances
// (p2p/connmanager.go's dial retry schedule), generalized to message
// delivery instead of TCP reconnects.
var DefaultRetryConfig = RetryConfig{
	InitialDelay: 200 * time.Millisecond,
	MaxDelay:     30 * time.Second,
	Multiplier:   2.0,
	JitterFactor: 0.2,
	MaxRetries:   5,
}

// PermanentError marks a send failure that must not be retried (e.g. peer
// unknown, message rejected as malformed).
type PermanentError struct{ Err error }

func (e *PermanentError) Error() string { return e.Err.Error() }
func (e *PermanentError) Unwrap() error { return e.Err }

func (c RetryConfig) toBackoff() backoff.BackOff {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = c.InitialDelay
	b.MaxInterval = c.MaxDelay
	b.Multiplier = c.Multiplier
	b.RandomizationFactor = c.JitterFactor
	b.MaxElapsedTime = 0
	return backoff.WithMaxRetries(b, c.MaxRetries)
}

// RouteTo attempts a direct send to peer, retrying recoverable failures
// with exponential backoff and jitter up to cfg.MaxRetries, and consulting
// breakers so an already-open circuit fails fast without attempting the
// call.
func RouteTo(breakers *CircuitBreakerRegistry, sender Sender, peer string, message []byte, priority Priority, cfg RetryConfig, now time.Time) error {
	if err := breakers.Allow(peer, now); err != nil {
		return err
	}

	operation := func() error {
		err := sender.Send(peer, message, priority)
		if err == nil {
			return nil
		}
		var perm *PermanentError
		if ok := asPermanent(err, &perm); ok {
			return backoff.Permanent(perm.Err)
		}
		return err
	}

	err := backoff.Retry(operation, cfg.toBackoff())
	if err != nil {
		breakers.RecordFailure(peer, now)
		return err
	}
	breakers.RecordSuccess(peer)
	return nil
}

func asPermanent(err error, target **PermanentError) bool {
	pe, ok := err.(*PermanentError)
	if !ok {
		return false
	}
	*target = pe
	return true
}

// ClassifyTransport wraps common transport-layer failures as permanent when
// they cannot succeed on retry (unknown peer, protocol mismatch); anything
// else is treated as recoverable.
func ClassifyTransport(err error) error {
	if err == nil {
		return nil
	}
	switch {
	case err == icnerr.ErrNotFound, err == icnerr.ErrUnauthorized:
		return &PermanentError{Err: err}
	default:
		return err
	}
}
