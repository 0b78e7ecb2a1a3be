package router

import (
	"errors"
	"testing"
	"time"

	"github.com/icn-project/icn-core/crypto"
	"github.com/icn-project/icn-core/dagstore"
	"github.com/icn-project/icn-core/icnerr"
	"github.com/icn-project/icn-core/identity"
)

type fixedTrustScorer struct{ score float64 }

func (f fixedTrustScorer) FederationTrustScore(string, string) float64 { return f.score }

func TestComputeRequestIDIsDeterministic(t *testing.T) {
	a := ComputeRequestID("fedA", "fedB", "contractX", "fn", 7)
	b := ComputeRequestID("fedA", "fedB", "contractX", "fn", 7)
	if a != b {
		t.Fatalf("expected deterministic request id")
	}
	if a[:4] != "req_" || len(a) != 20 {
		t.Fatalf("unexpected request id shape: %q", a)
	}
}

func TestNewCrossFedRequestRejectsSameFederation(t *testing.T) {
	now := time.Unix(0, 0)
	_, err := NewCrossFedRequest(fixedTrustScorer{score: 0.9}, identity.Did{}, true, "fedA", "fedA", "c", "f", nil, 1, now.Add(time.Hour), 100, now)
	if !errors.Is(err, icnerr.ErrInvalidInput) {
		t.Fatalf("expected invalid input for same source/target, got %v", err)
	}
}

func TestNewCrossFedRequestRejectsLowTrust(t *testing.T) {
	now := time.Unix(0, 0)
	_, err := NewCrossFedRequest(fixedTrustScorer{score: 0.1}, identity.Did{}, true, "fedA", "fedB", "c", "f", nil, 1, now.Add(time.Hour), 100, now)
	if !errors.Is(err, icnerr.ErrTrustDenied) {
		t.Fatalf("expected trust denied, got %v", err)
	}
}

func TestNewCrossFedRequestRejectsMissingCapability(t *testing.T) {
	now := time.Unix(0, 0)
	_, err := NewCrossFedRequest(fixedTrustScorer{score: 0.9}, identity.Did{}, false, "fedA", "fedB", "c", "f", nil, 1, now.Add(time.Hour), 100, now)
	if !errors.Is(err, icnerr.ErrPermissionDenied) {
		t.Fatalf("expected permission denied, got %v", err)
	}
}

func TestVerifyQuorumRequiresTwoThirdsPlusOne(t *testing.T) {
	now := time.Unix(0, 0)
	req, err := NewCrossFedRequest(fixedTrustScorer{score: 0.9}, identity.Did{}, true, "fedA", "fedB", "contract", "fn", nil, 1, now.Add(time.Hour), 100, now)
	if err != nil {
		t.Fatalf("build request: %v", err)
	}

	validators := make(map[string]bool)
	dids := make([]identity.Did, 0, 4)
	sks := make([]*crypto.SigningKey, 0, 4)
	for i := 0; i < 4; i++ {
		sk, err := crypto.GenerateSigningKey()
		if err != nil {
			t.Fatalf("gen key: %v", err)
		}
		didKey, err := crypto.DidKeyFromVerifyingKey(sk.VerifyingKey())
		if err != nil {
			t.Fatalf("did key: %v", err)
		}
		did, err := identity.ParseDid(didKey)
		if err != nil {
			t.Fatalf("parse did: %v", err)
		}
		validators[did.String()] = true
		dids = append(dids, did)
		sks = append(sks, sk)
	}

	resolver := &identity.KeyMethodResolver{}

	// 4 validators -> floor(8/3)+1 = 3 required.
	req.Signatures = signaturesFrom(t, req, dids[:2], sks[:2])
	if VerifyQuorum(resolver, req, validators) {
		t.Fatalf("expected 2-of-4 signatures to fall short of quorum")
	}

	req.Signatures = signaturesFrom(t, req, dids[:3], sks[:3])
	if !VerifyQuorum(resolver, req, validators) {
		t.Fatalf("expected 3-of-4 signatures to satisfy quorum")
	}
}

func signaturesFrom(t *testing.T, req CrossFedRequest, dids []identity.Did, sks []*crypto.SigningKey) []dagstore.ValidatorSignature {
	t.Helper()
	out := make([]dagstore.ValidatorSignature, 0, len(dids))
	for i, did := range dids {
		sig, err := identity.Sign(sks[i], req.SignableBytes())
		if err != nil {
			t.Fatalf("sign: %v", err)
		}
		out = append(out, dagstore.ValidatorSignature{Validator: did.String(), Signature: sig})
	}
	return out
}
