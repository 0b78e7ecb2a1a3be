package governance

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"time"

	"github.com/icn-project/icn-core/identity"
	"github.com/icn-project/icn-core/icnerr"
)

// Option is a plain-ballot selection.
type Option string

const (
	OptionYes     Option = "yes"
	OptionNo      Option = "no"
	OptionAbstain Option = "abstain"
)

// Valid reports whether o is one of the supported plain selections.
func (o Option) Valid() bool {
	switch o {
	case OptionYes, OptionNo, OptionAbstain:
		return true
	default:
		return false
	}
}

// BallotKind discriminates the Ballot union's active variant.
type BallotKind uint8

const (
	BallotPlain BallotKind = iota
	BallotRankedChoice
	BallotQuadratic
	BallotLiquid
	BallotWeighted
)

// Ballot is the tagged union of every supported vote shape. Exactly the
// fields matching Kind are meaningful; the rest are zero.
type Ballot struct {
	Kind BallotKind

	// Plain
	PlainOption Option

	// Ranked-choice
	BallotID    string
	ElectionID  string
	Preferences []string // candidate ids, duplicate-free, ordered
	Timestamp   time.Time
	Signature   []byte

	// Quadratic
	QuadraticOption string
	Strength        uint32

	// Liquid
	Delegate identity.Did // zero value means no delegation (direct vote)
	LiquidOption string

	// Weighted
	WeightedOption string
	Weight         float64

	Voter identity.Did
}

// creditsSpent returns a quadratic ballot's credit cost: strength squared.
func (b Ballot) creditsSpent() uint64 {
	s := uint64(b.Strength)
	return s * s
}

// ValidationLimits bounds secure ballot structure checks.
type ValidationLimits struct {
	MaxIDLength          int
	MaxPreferences        int
	MaxBallotSizeBytes    int
	MaxTimeSkew           time.Duration
	MaxElectionDuration   time.Duration
}

// DefaultValidationLimits mirrors spec.md 4.4's secure ballot validation
// defaults.
var DefaultValidationLimits = ValidationLimits{
	MaxIDLength:        256,
	MaxPreferences:     100,
	MaxBallotSizeBytes: 64 * 1024,
	MaxTimeSkew:        5 * time.Minute,
	MaxElectionDuration: 30 * 24 * time.Hour,
}

// approxSize estimates a ballot's serialized size for the max-size check.
func (b Ballot) approxSize() int {
	size := len(b.BallotID) + len(b.ElectionID) + len(b.QuadraticOption) + len(b.WeightedOption) + len(b.LiquidOption) + len(b.Signature)
	for _, p := range b.Preferences {
		size += len(p)
	}
	return size
}

// ValidateStructure applies spec.md 4.4's secure ballot validation: id
// lengths, preference count/uniqueness, serialized size, timestamp skew, and
// signature shape. It does not verify the signature cryptographically (see
// Engine.Vote for replay + signature verification).
func ValidateStructure(b Ballot, limits ValidationLimits, now time.Time) error {
	if len(b.BallotID) == 0 && b.Kind == BallotRankedChoice {
		return fmt.Errorf("governance: %w: empty ballot id", icnerr.ErrInvalidBallot)
	}
	if len(b.BallotID) > limits.MaxIDLength || len(b.ElectionID) > limits.MaxIDLength {
		return fmt.Errorf("governance: %w: id too long", icnerr.ErrInvalidBallot)
	}
	if len(b.Preferences) > limits.MaxPreferences {
		return fmt.Errorf("governance: %w: too many preferences", icnerr.ErrInvalidBallot)
	}
	seen := make(map[string]struct{}, len(b.Preferences))
	for _, p := range b.Preferences {
		if _, dup := seen[p]; dup {
			return fmt.Errorf("governance: %w: duplicate preference", icnerr.ErrInvalidBallot)
		}
		seen[p] = struct{}{}
	}
	if b.approxSize() > limits.MaxBallotSizeBytes {
		return fmt.Errorf("governance: %w: ballot too large", icnerr.ErrInvalidBallot)
	}
	if b.Kind == BallotRankedChoice {
		if b.Timestamp.After(now.Add(limits.MaxTimeSkew)) {
			return fmt.Errorf("governance: %w: timestamp too far in the future", icnerr.ErrInvalidBallot)
		}
		if now.Sub(b.Timestamp) > limits.MaxElectionDuration {
			return fmt.Errorf("governance: %w: timestamp too old", icnerr.ErrInvalidBallot)
		}
		if len(b.Signature) != 0 && len(b.Signature) != 64 {
			return fmt.Errorf("governance: %w: signature must be 64 bytes", icnerr.ErrInvalidSignature)
		}
	}
	if b.Kind == BallotPlain && !b.PlainOption.Valid() {
		return fmt.Errorf("governance: %w: invalid plain option", icnerr.ErrInvalidBallot)
	}
	return nil
}

// SignableBytes is the canonical serialization a ranked-choice ballot's
// signature covers: every field except the signature itself.
func (b Ballot) SignableBytes() []byte {
	buf := []byte(b.BallotID)
	buf = append(buf, []byte(b.ElectionID)...)
	for _, p := range b.Preferences {
		buf = append(buf, []byte(p)...)
	}
	ts := b.Timestamp.UTC().Format(time.RFC3339Nano)
	buf = append(buf, []byte(ts)...)
	return buf
}

// Digest computes the replay-detection key: SHA-256 over the ballot's
// signable bytes concatenated with its signature.
func Digest(b Ballot) string {
	h := sha256.New()
	h.Write(b.SignableBytes())
	h.Write(b.Signature)
	return hex.EncodeToString(h.Sum(nil))
}

// ReplayCache detects duplicate submissions of the same signed ballot within
// an election, keyed by SHA-256 over signable bytes plus signature.
type ReplayCache struct {
	seen map[string]map[string]struct{} // electionID -> digest set
}

// NewReplayCache constructs an empty cache.
func NewReplayCache() *ReplayCache {
	return &ReplayCache{seen: make(map[string]map[string]struct{})}
}

// CheckAndRecord returns ErrDuplicateVote if this exact (ballot, signature)
// pair was already observed for the election, otherwise records it.
func (r *ReplayCache) CheckAndRecord(electionID string, digest string) error {
	set, ok := r.seen[electionID]
	if !ok {
		set = make(map[string]struct{})
		r.seen[electionID] = set
	}
	if _, dup := set[digest]; dup {
		return fmt.Errorf("governance: %w", icnerr.ErrDuplicateVote)
	}
	set[digest] = struct{}{}
	return nil
}
