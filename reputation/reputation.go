// Package reputation tracks per-DID reputation scores with exponential
// decay, backing the mana ledger's reputation_factor tiers (mana.Regenerate)
// and the router's peer-selection weighting (router.PeerInfo.Reputation).
package reputation

import (
	"math"
	"sync"
	"time"

	"github.com/icn-project/icn-core/identity"
)

const (
	governanceParticipationDelta = 2
	usefulJobCompletionDelta     = 3
	capacityAttestationDelta     = 1
	adversarialFlagPenaltyDelta  = -15
	executionFailurePenaltyDelta = -5
)

// Config tunes the decay half-life and reporting bounds.
type Config struct {
	DecayHalfLife time.Duration
	MinScore      float64
	MaxScore      float64
}

// DefaultConfig uses a 24-hour decay half-life (longer than the teacher's
// 10-minute p2p/reputation.go default) and bounds scores to [-100, 100].
var DefaultConfig = Config{
	DecayHalfLife: 24 * time.Hour,
	MinScore:      -100,
	MaxScore:      100,
}

type record struct {
	score     float64
	updatedAt time.Time
}

// Tracker holds per-DID reputation records with exponential decay back
// toward zero, following the teacher's p2p.ReputationManager decay math
// adapted from peer-connection behavior to federation-member behavior.
type Tracker struct {
	cfg Config

	mu      sync.Mutex
	records map[string]*record
}

// NewTracker constructs a reputation tracker using cfg.
func NewTracker(cfg Config) *Tracker {
	if cfg.DecayHalfLife <= 0 {
		cfg = DefaultConfig
	}
	return &Tracker{cfg: cfg, records: make(map[string]*record)}
}

func (t *Tracker) ensureLocked(did string, now time.Time) *record {
	r, ok := t.records[did]
	if !ok {
		r = &record{updatedAt: now}
		t.records[did] = r
	}
	return r
}

func (t *Tracker) decayLocked(r *record, now time.Time) {
	if now.Before(r.updatedAt) {
		r.updatedAt = now
		return
	}
	elapsed := now.Sub(r.updatedAt)
	if elapsed <= 0 {
		return
	}
	periods := float64(elapsed) / float64(t.cfg.DecayHalfLife)
	if periods <= 0 {
		r.updatedAt = now
		return
	}
	r.score *= math.Pow(0.5, periods)
	if math.Abs(r.score) < 1e-6 {
		r.score = 0
	}
	r.updatedAt = now
}

func (t *Tracker) adjust(did identity.Did, delta float64, now time.Time) int64 {
	t.mu.Lock()
	defer t.mu.Unlock()
	key := did.String()
	r := t.ensureLocked(key, now)
	t.decayLocked(r, now)
	r.score += delta
	if r.score > t.cfg.MaxScore {
		r.score = t.cfg.MaxScore
	}
	if r.score < t.cfg.MinScore {
		r.score = t.cfg.MinScore
	}
	r.updatedAt = now
	return int64(math.Round(r.score))
}

// RewardGovernanceParticipation credits a DID for submitting or voting on
// a proposal.
func (t *Tracker) RewardGovernanceParticipation(did identity.Did, now time.Time) int64 {
	return t.adjust(did, governanceParticipationDelta, now)
}

// RewardUsefulJob credits a DID for a successfully completed WASM job.
func (t *Tracker) RewardUsefulJob(did identity.Did, now time.Time) int64 {
	return t.adjust(did, usefulJobCompletionDelta, now)
}

// RewardCapacityAttestation credits a DID for a verified capacity signal
// contribution (mana.CapacitySignal).
func (t *Tracker) RewardCapacityAttestation(did identity.Did, now time.Time) int64 {
	return t.adjust(did, capacityAttestationDelta, now)
}

// PenalizeAdversarialFlag applies a heavy penalty when mana.AdversaryGuard
// flags a DID for mana-drain behavior.
func (t *Tracker) PenalizeAdversarialFlag(did identity.Did, now time.Time) int64 {
	return t.adjust(did, adversarialFlagPenaltyDelta, now)
}

// PenalizeExecutionFailure applies a light penalty for a trapped or
// resource-limited job execution.
func (t *Tracker) PenalizeExecutionFailure(did identity.Did, now time.Time) int64 {
	return t.adjust(did, executionFailurePenaltyDelta, now)
}

// ReputationOf returns the reputation score as of the DID's last update,
// implementing execution.ReputationPort and mana.ReputationFactor's input
// source. No decay is applied for time elapsed since that update; Snapshot
// decays up to a given time.
func (t *Tracker) ReputationOf(did identity.Did) int64 {
	t.mu.Lock()
	defer t.mu.Unlock()
	key := did.String()
	r, ok := t.records[key]
	if !ok {
		return 0
	}
	t.decayLocked(r, r.updatedAt)
	return int64(math.Round(r.score))
}

// Snapshot reports a DID's reputation score as of now, applying decay up to
// now and storing the decayed score and timestamp back on the record.
func (t *Tracker) Snapshot(did identity.Did, now time.Time) int64 {
	t.mu.Lock()
	defer t.mu.Unlock()
	key := did.String()
	r, ok := t.records[key]
	if !ok {
		return 0
	}
	t.decayLocked(r, now)
	return int64(math.Round(r.score))
}
