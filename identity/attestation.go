package identity

import (
	"fmt"
	"time"

	"github.com/icn-project/icn-core/icnerr"
)

// Anchorer is the minimal DAG seam attestation/verification records use to
// anchor audit events. Passed as an explicit parameter at each call site
// rather than held as an owned field, per the design note on breaking the
// identity/trust/governance/DAG reference cycle.
type Anchorer interface {
	Anchor(data []byte, links []string) (string, error)
}

// Attestation is a single signed claim contributing to a subject's
// aggregated trust score in a given context.
type Attestation struct {
	Attester   Did
	Subject    Did
	Context    TrustContext
	Score      float64 // in [0,1]
	Confidence float64 // in [0,1]
	Signature  []byte
	IssuedAt   time.Time
	ExpiresAt  *time.Time
}

// signableBytes is the canonical form an attestation signs over.
func (a Attestation) signableBytes() []byte {
	return []byte(fmt.Sprintf("%s|%s|%s|%f|%f|%d", a.Attester, a.Subject, a.Context, a.Score, a.Confidence, a.IssuedAt.UnixNano()))
}

// ReputationLookup supplies an attester's current reputation score.
type ReputationLookup interface {
	ReputationOf(did Did) float64
}

// AttestationStore persists multi-party attestation records per (subject,
// context).
type AttestationStore interface {
	AppendAttestation(subject Did, context TrustContext, a Attestation)
	Attestations(subject Did, context TrustContext) []Attestation
}

// AggregationResult is the opaque aggregator output spec.md 9's Open
// Questions section leaves unspecified beyond its signature: signals -> a
// score in [0,1] plus a confidence.
type AggregationResult struct {
	Score      float64
	Confidence float64
}

// Aggregator combines a set of non-expired attestations into a score. The
// default implementation is a confidence-weighted mean.
type Aggregator func(attestations []Attestation) AggregationResult

// DefaultAggregator weights each attestation's score by its confidence.
func DefaultAggregator(attestations []Attestation) AggregationResult {
	var scoreSum, confSum float64
	for _, a := range attestations {
		scoreSum += a.Score * a.Confidence
		confSum += a.Confidence
	}
	if confSum == 0 {
		return AggregationResult{}
	}
	return AggregationResult{Score: scoreSum / confSum, Confidence: confSum / float64(len(attestations))}
}

// AttestTrust verifies the attester's signature, enforces a minimum attester
// reputation, appends the attestation to the store, and anchors an audit
// event. Returns the anchored CID. It does not compute an aggregated score;
// VerifyTrust aggregates when it is called.
func (e *Engine) AttestTrust(a Attestation, store AttestationStore, rep ReputationLookup, minAttesterReputation float64, anchor Anchorer, now time.Time) (string, error) {
	if a.ExpiresAt != nil && !a.ExpiresAt.After(now) {
		return "", fmt.Errorf("identity: %w", icnerr.ErrExpired)
	}
	if !Verify(e.Resolver, a.Attester, a.signableBytes(), a.Signature) {
		return "", fmt.Errorf("identity: %w", icnerr.ErrInvalidSignature)
	}
	if rep.ReputationOf(a.Attester) < minAttesterReputation {
		return "", fmt.Errorf("identity: %w", icnerr.ErrInsufficientReputation)
	}
	store.AppendAttestation(a.Subject, a.Context, a)
	cid, err := anchor.Anchor(a.signableBytes(), nil)
	if err != nil {
		return "", fmt.Errorf("identity: %w", icnerr.ErrDagError)
	}
	return cid, nil
}

// VerificationReport is the result of verify_trust.
type VerificationReport struct {
	Verified         bool
	Score            float64
	AttestationCount int
	AttesterRepSum   float64
	Issues           []string
	VerificationCid  string
}

// VerifyTrust drops expired attestations, enforces count/reputation-sum
// minimums, aggregates a score, and anchors a verification record.
func (e *Engine) VerifyTrust(subject Did, context TrustContext, store AttestationStore, rep ReputationLookup, aggregate Aggregator, minAttestations int, minAttesterReputation float64, anchor Anchorer, ttl time.Duration, now time.Time) (VerificationReport, error) {
	if aggregate == nil {
		aggregate = DefaultAggregator
	}
	all := store.Attestations(subject, context)
	var fresh []Attestation
	var repSum float64
	var issues []string
	for _, a := range all {
		if now.Sub(a.IssuedAt) > ttl {
			continue
		}
		fresh = append(fresh, a)
		repSum += rep.ReputationOf(a.Attester)
	}
	if len(fresh) < minAttestations {
		issues = append(issues, fmt.Sprintf("only %d of %d required attestations present", len(fresh), minAttestations))
	}
	if repSum < minAttesterReputation {
		issues = append(issues, "attester reputation sum below minimum")
	}
	result := aggregate(fresh)
	report := VerificationReport{
		Verified:         len(issues) == 0,
		Score:            result.Score,
		AttestationCount: len(fresh),
		AttesterRepSum:   repSum,
		Issues:           issues,
	}
	cid, err := anchor.Anchor([]byte(fmt.Sprintf("verify:%s:%s:%t", subject, context, report.Verified)), nil)
	if err != nil {
		return report, fmt.Errorf("identity: %w", icnerr.ErrDagError)
	}
	report.VerificationCid = cid
	return report, nil
}
