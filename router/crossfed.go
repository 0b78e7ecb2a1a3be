package router

import (
	"crypto/sha256"
	"encoding/binary"
	"encoding/hex"
	"fmt"
	"time"

	"github.com/icn-project/icn-core/dagstore"
	"github.com/icn-project/icn-core/icnerr"
	"github.com/icn-project/icn-core/identity"
)

// CrossFedRequest is a cross-federation contract call, gated by the
// CrossFederationCall capability and countersigned by a quorum of the
// source federation's validators before the target federation executes it.
type CrossFedRequest struct {
	RequestID  string
	SourceFed  string
	TargetFed  string
	Contract   string
	Function   string
	Args       []byte
	Caller     identity.Did
	Nonce      uint64
	Expiry     time.Time
	ManaLimit  uint64
	Signatures []dagstore.ValidatorSignature
}

// CrossFedResponse is the target federation's signed reply.
type CrossFedResponse struct {
	RequestID string
	Success   bool
	Result    []byte
	Error     string
	Signature []byte
}

// ComputeRequestID derives spec.md 4's deterministic request ID:
// "req_" || hex(SHA-256(source||target||contract||function||nonce))[:16].
func ComputeRequestID(sourceFed, targetFed, contract, function string, nonce uint64) string {
	h := sha256.New()
	h.Write([]byte(sourceFed))
	h.Write([]byte(targetFed))
	h.Write([]byte(contract))
	h.Write([]byte(function))
	var n [8]byte
	binary.BigEndian.PutUint64(n[:], nonce)
	h.Write(n[:])
	sum := h.Sum(nil)
	return "req_" + hex.EncodeToString(sum)[:16]
}

// TrustScorer looks up the trust score the source federation has toward a
// candidate target federation, the precondition for a cross-federation call.
type TrustScorer interface {
	FederationTrustScore(sourceFed, targetFed string) float64
}

// MinTargetFederationTrust is spec.md 4's cross-federation eligibility
// floor.
const MinTargetFederationTrust = 0.5

// NewCrossFedRequest builds and validates a CrossFedRequest per spec.md 4:
// source != target, expiry in the future, caller holds the
// CrossFederationCall capability, and target federation trust >= 0.5.
func NewCrossFedRequest(scorer TrustScorer, caller identity.Did, hasCapability bool, sourceFed, targetFed, contract, function string, args []byte, nonce uint64, expiry time.Time, manaLimit uint64, now time.Time) (CrossFedRequest, error) {
	if sourceFed == targetFed {
		return CrossFedRequest{}, fmt.Errorf("router: %w: source and target federation must differ", icnerr.ErrInvalidInput)
	}
	if !expiry.After(now) {
		return CrossFedRequest{}, fmt.Errorf("router: %w: expiry must be in the future", icnerr.ErrInvalidInput)
	}
	if !hasCapability {
		return CrossFedRequest{}, fmt.Errorf("router: %w: caller lacks CrossFederationCall", icnerr.ErrPermissionDenied)
	}
	if scorer.FederationTrustScore(sourceFed, targetFed) < MinTargetFederationTrust {
		return CrossFedRequest{}, fmt.Errorf("router: %w: target federation trust below threshold", icnerr.ErrTrustDenied)
	}
	return CrossFedRequest{
		RequestID: ComputeRequestID(sourceFed, targetFed, contract, function, nonce),
		SourceFed: sourceFed,
		TargetFed: targetFed,
		Contract:  contract,
		Function:  function,
		Args:      args,
		Caller:    caller,
		Nonce:     nonce,
		Expiry:    expiry,
		ManaLimit: manaLimit,
	}, nil
}

// SignableBytes is the canonical form source-federation validators sign.
func (r CrossFedRequest) SignableBytes() []byte {
	buf := []byte(r.RequestID)
	buf = append(buf, []byte(r.SourceFed)...)
	buf = append(buf, []byte(r.TargetFed)...)
	buf = append(buf, []byte(r.Contract)...)
	buf = append(buf, []byte(r.Function)...)
	buf = append(buf, r.Args...)
	return buf
}

// VerifyQuorum reports whether r carries valid signatures from at least
// floor(2n/3)+1 of the known source-federation validators, per spec.md 4's
// cross-federation signature threshold.
func VerifyQuorum(resolver identity.Resolver, r CrossFedRequest, knownValidators map[string]bool) bool {
	threshold := dagstore.QuorumThreshold(len(knownValidators))
	valid := 0
	seen := make(map[string]bool, len(r.Signatures))
	for _, sig := range r.Signatures {
		if seen[sig.Validator] || !knownValidators[sig.Validator] {
			continue
		}
		did, err := identity.ParseDid(sig.Validator)
		if err != nil {
			continue
		}
		if identity.Verify(resolver, did, r.SignableBytes(), sig.Signature) {
			seen[sig.Validator] = true
			valid++
		}
	}
	return valid >= threshold
}
