package runtime

import (
	"github.com/icn-project/icn-core/crypto"
	"github.com/icn-project/icn-core/governance"
	"github.com/icn-project/icn-core/identity"
	"github.com/icn-project/icn-core/storage"
)

type fixedFederationSizer struct{ size int }

func (f fixedFederationSizer) FederationSize(string) int { return f.size }

// NewStub builds a Context over an in-memory MemDB backend with a fresh
// signing key and a single-member federation, for use in tests and the
// icn-cli's local commands, matching the teacher's storage.MemDB
// "no external dependency" test harness pattern. Its trust store is opened
// with identity.NewOpenTrustStore so any DID can submit proposals and vote
// against each other without a prior attestation step; this is a
// single-process convenience, not a trust model a real federation should run.
func NewStub(nodeID string) (*Context, error) {
	sk, err := crypto.GenerateSigningKey()
	if err != nil {
		return nil, err
	}
	didKey, err := crypto.DidKeyFromVerifyingKey(sk.VerifyingKey())
	if err != nil {
		return nil, err
	}
	did, err := identity.ParseDid(didKey)
	if err != nil {
		return nil, err
	}

	cfg := Config{
		NodeID:        nodeID,
		FederationID:  "stub-federation",
		AuditLog:      true,
		SigningKey:    sk,
		ExecutorDid:   did,
		TrustResolver: &identity.KeyMethodResolver{},
		TrustStore:    identity.NewOpenTrustStore(identity.TrustFull),
		PolicyRules:   governance.DefaultPolicyRules(),
		Federation:    fixedFederationSizer{size: 1},
		Anchor:        nil,
		Params:        nil,
	}
	return NewContext(storage.NewMemDB(), cfg)
}
