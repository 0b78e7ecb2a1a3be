package mana

import (
	"sync"
	"time"
)

// spendSample is one observed spend used by the drain detector's sliding
// window.
type spendSample struct {
	At     time.Time
	Amount uint64
}

// AdversaryGuardConfig bounds the mana-drain heuristics.
type AdversaryGuardConfig struct {
	// Window is the sliding duration over which spend velocity is measured.
	Window time.Duration
	// MaxSpendPerWindow flags an account once cumulative spend in Window
	// exceeds this amount.
	MaxSpendPerWindow uint64
	// MaxEventsPerWindow flags an account issuing more than this many
	// distinct spends in Window (burst detection).
	MaxEventsPerWindow int
	// SuspicionDecay is how long a raised flag is remembered before it
	// auto-clears absent further suspicious activity.
	SuspicionDecay time.Duration
}

// DefaultAdversaryGuardConfig mirrors the icn-economics reference
// implementation's thresholds.
var DefaultAdversaryGuardConfig = AdversaryGuardConfig{
	Window:             10 * time.Minute,
	MaxSpendPerWindow:  100000,
	MaxEventsPerWindow: 50,
	SuspicionDecay:     1 * time.Hour,
}

// AdversaryGuard detects mana-drain attacks: an account attempting to spend
// down its balance (or another's, via rapid repeated micro-spends) faster
// than the regeneration model allows for legitimate use.
type AdversaryGuard struct {
	cfg AdversaryGuardConfig

	mu      sync.Mutex
	samples map[Did][]spendSample
	flagged map[Did]time.Time // did -> when flagged
}

// NewAdversaryGuard constructs a guard using cfg.
func NewAdversaryGuard(cfg AdversaryGuardConfig) *AdversaryGuard {
	return &AdversaryGuard{
		cfg:     cfg,
		samples: make(map[Did][]spendSample),
		flagged: make(map[Did]time.Time),
	}
}

// pruneLocked drops samples older than the window.
func (g *AdversaryGuard) pruneLocked(did Did, now time.Time) []spendSample {
	samples := g.samples[did]
	cutoff := now.Add(-g.cfg.Window)
	kept := samples[:0:0]
	for _, s := range samples {
		if s.At.After(cutoff) {
			kept = append(kept, s)
		}
	}
	g.samples[did] = kept
	return kept
}

// Observe records a spend attempt and returns true if the account should be
// treated as suspicious (blocked or rate-limited) as a result.
func (g *AdversaryGuard) Observe(did Did, amount uint64, now time.Time) bool {
	g.mu.Lock()
	defer g.mu.Unlock()

	samples := g.pruneLocked(did, now)
	samples = append(samples, spendSample{At: now, Amount: amount})
	g.samples[did] = samples

	var total uint64
	for _, s := range samples {
		total += s.Amount
	}

	suspicious := total > g.cfg.MaxSpendPerWindow || len(samples) > g.cfg.MaxEventsPerWindow
	if suspicious {
		g.flagged[did] = now
		return true
	}
	return g.isFlaggedLocked(did, now)
}

func (g *AdversaryGuard) isFlaggedLocked(did Did, now time.Time) bool {
	flaggedAt, ok := g.flagged[did]
	if !ok {
		return false
	}
	if now.Sub(flaggedAt) > g.cfg.SuspicionDecay {
		delete(g.flagged, did)
		return false
	}
	return true
}

// IsFlagged reports whether did currently carries an unexpired suspicion
// flag, without recording a new sample.
func (g *AdversaryGuard) IsFlagged(did Did, now time.Time) bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.isFlaggedLocked(did, now)
}

// Clear removes any suspicion flag and sample history for did, used once an
// operator resolves a false positive.
func (g *AdversaryGuard) Clear(did Did) {
	g.mu.Lock()
	defer g.mu.Unlock()
	delete(g.flagged, did)
	delete(g.samples, did)
}
