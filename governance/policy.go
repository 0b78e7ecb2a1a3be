package governance

import "github.com/icn-project/icn-core/identity"

// DefaultPolicyRules returns the minimum identity.PolicyRule set a
// federation needs for proposals and votes to clear
// identity.Engine.ValidateAction at all, in the shape engine_test.go's
// newTestEngine hand-assembles per test. Callers wiring a runtime.Context
// can start from this set and layer on stricter rules (higher MinLevel,
// RequireFederationMember) as their trust model matures.
func DefaultPolicyRules() map[string]identity.PolicyRule {
	governanceOnly := map[identity.TrustContext]bool{identity.ContextGovernance: true}
	return map[string]identity.PolicyRule{
		ActionSubmitProposal: {
			Action:             ActionSubmitProposal,
			ApplicableContexts: governanceOnly,
			MinLevel:           identity.TrustBasic,
		},
		ActionVote: {
			Action:             ActionVote,
			ApplicableContexts: governanceOnly,
			MinLevel:           identity.TrustBasic,
		},
	}
}
