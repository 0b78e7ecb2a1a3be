package governance

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestTallyRankedChoiceFirstRoundMajority(t *testing.T) {
	ballots := []Ballot{
		{Kind: BallotRankedChoice, Preferences: []string{"alice", "bob", "charlie"}},
		{Kind: BallotRankedChoice, Preferences: []string{"alice", "charlie", "bob"}},
		{Kind: BallotRankedChoice, Preferences: []string{"bob", "alice", "charlie"}},
	}
	result := TallyRankedChoice(ballots)
	require.Equal(t, "alice", result.Winner)
	require.Len(t, result.Rounds, 1)
}

func TestTallyRankedChoiceRequiresElimination(t *testing.T) {
	ballots := []Ballot{
		{Kind: BallotRankedChoice, Preferences: []string{"alice", "bob"}},
		{Kind: BallotRankedChoice, Preferences: []string{"bob", "alice"}},
		{Kind: BallotRankedChoice, Preferences: []string{"charlie", "alice"}},
	}
	result := TallyRankedChoice(ballots)
	require.NotEmpty(t, result.Winner)
	require.GreaterOrEqual(t, len(result.Rounds), 2)
}

func TestLowestCandidateTieBreaksLexicographically(t *testing.T) {
	counts := map[string]int{"zeta": 1, "alpha": 1, "beta": 2}
	require.Equal(t, "alpha", lowestCandidate(counts))
}
