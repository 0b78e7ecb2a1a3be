package governance

import (
	"testing"
	"time"

	"github.com/icn-project/icn-core/icnerr"
	"github.com/icn-project/icn-core/identity"
	"github.com/stretchr/testify/require"
)

type fixedFederationSizer struct{ size int }

func (f fixedFederationSizer) FederationSize(string) int { return f.size }

type memTrustStore struct {
	direct map[string]identity.TrustRelationship
}

func (m memTrustStore) DirectTrust(trustor, trustee identity.Did, context identity.TrustContext) (identity.TrustRelationship, bool) {
	rel, ok := m.direct[trustor.String()+"|"+trustee.String()+"|"+string(context)]
	return rel, ok
}
func (m memTrustStore) FederationTrust(string, identity.Did, identity.TrustContext) (identity.TrustRelationship, bool) {
	return identity.TrustRelationship{}, false
}
func (m memTrustStore) FederationsOf(identity.Did) []string         { return nil }
func (m memTrustStore) Bridges(string) []identity.FederationBridge { return nil }

func newTestEngine(t *testing.T, federationSize int) (*Engine, identity.Did, identity.Did) {
	t.Helper()
	proposer := did("proposer")
	voter := did("voter")

	now := time.Now()
	store := memTrustStore{direct: map[string]identity.TrustRelationship{
		proposer.String() + "|" + proposer.String() + "|" + string(identity.ContextGovernance): {
			Trustor: proposer, Trustee: proposer, Context: identity.ContextGovernance, Level: identity.TrustFull, EstablishedAt: now,
		},
		voter.String() + "|" + proposer.String() + "|" + string(identity.ContextGovernance): {
			Trustor: voter, Trustee: proposer, Context: identity.ContextGovernance, Level: identity.TrustBasic, EstablishedAt: now,
		},
	}}
	policies := map[string]identity.PolicyRule{
		ActionSubmitProposal: {Action: ActionSubmitProposal, ApplicableContexts: map[identity.TrustContext]bool{identity.ContextGovernance: true}, MinLevel: identity.TrustBasic},
		ActionVote:           {Action: ActionVote, ApplicableContexts: map[identity.TrustContext]bool{identity.ContextGovernance: true}, MinLevel: identity.TrustBasic},
	}
	trustEngine := identity.NewEngine(nil, store, policies)
	govEngine := NewEngine(trustEngine, nil, fixedFederationSizer{size: federationSize}, nil, nil)
	return govEngine, proposer, voter
}

func TestSubmitVoteFinalizePlainProposal(t *testing.T) {
	eng, proposer, voter := newTestEngine(t, 2)
	now := time.Now()
	deadline := now.Add(time.Hour)

	id, err := eng.SubmitProposal(proposer, "fed-a", identity.ContextGovernance, "raise mana base rate", RulePlain, deadline, now)
	require.NoError(t, err)
	require.NotEmpty(t, id)

	err = eng.Vote(voter, id, Ballot{Kind: BallotPlain, PlainOption: OptionYes}, now.Add(time.Minute))
	require.NoError(t, err)

	result, err := eng.FinalizeProposal(id, deadline.Add(time.Minute))
	require.NoError(t, err)
	require.Equal(t, StatusPassed, result.Status)
	require.True(t, result.QuorumMet)
	require.True(t, result.ThresholdMet)
}

func TestVoteRejectsAfterDeadline(t *testing.T) {
	eng, proposer, voter := newTestEngine(t, 2)
	now := time.Now()
	deadline := now.Add(time.Minute)
	id, err := eng.SubmitProposal(proposer, "fed-a", identity.ContextGovernance, "content", RulePlain, deadline, now)
	require.NoError(t, err)

	err = eng.Vote(voter, id, Ballot{Kind: BallotPlain, PlainOption: OptionYes}, deadline.Add(time.Hour))
	require.ErrorIs(t, err, icnerr.ErrVotingDeadlinePassed)
}

func TestFinalizeFailsQuorumWhenTurnoutLow(t *testing.T) {
	eng, proposer, voter := newTestEngine(t, 10)
	now := time.Now()
	deadline := now.Add(time.Hour)
	id, err := eng.SubmitProposal(proposer, "fed-a", identity.ContextGovernance, "content", RulePlain, deadline, now)
	require.NoError(t, err)
	require.NoError(t, eng.Vote(voter, id, Ballot{Kind: BallotPlain, PlainOption: OptionYes}, now.Add(time.Minute)))

	result, err := eng.FinalizeProposal(id, deadline.Add(time.Minute))
	require.NoError(t, err)
	require.False(t, result.QuorumMet)
	require.Equal(t, StatusFailed, result.Status)
}
