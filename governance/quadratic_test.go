package governance

import (
	"testing"

	"github.com/icn-project/icn-core/identity"
	"github.com/stretchr/testify/require"
)

func TestQuadraticCreditBookDeductsSquaredCost(t *testing.T) {
	book := NewQuadraticCreditBook(100)
	voter := identity.Did{Method: "key", ID: "zVoter"}
	b := Ballot{Kind: BallotQuadratic, Voter: voter, QuadraticOption: "alpha", Strength: 5}
	require.NoError(t, book.CastOrReplace("prop-1", b))
	require.Equal(t, uint64(75), book.balance(voter)) // 100 - 25
}

func TestQuadraticCreditBookRejectsOverspend(t *testing.T) {
	book := NewQuadraticCreditBook(10)
	voter := identity.Did{Method: "key", ID: "zVoter"}
	b := Ballot{Kind: BallotQuadratic, Voter: voter, QuadraticOption: "alpha", Strength: 4} // costs 16
	require.Error(t, book.CastOrReplace("prop-1", b))
}

func TestQuadraticCreditBookRefundsOnReplace(t *testing.T) {
	book := NewQuadraticCreditBook(100)
	voter := identity.Did{Method: "key", ID: "zVoter"}
	first := Ballot{Kind: BallotQuadratic, Voter: voter, QuadraticOption: "alpha", Strength: 5}
	require.NoError(t, book.CastOrReplace("prop-1", first))
	second := Ballot{Kind: BallotQuadratic, Voter: voter, QuadraticOption: "beta", Strength: 3}
	require.NoError(t, book.CastOrReplace("prop-1", second))
	require.Equal(t, uint64(91), book.balance(voter)) // 100 - 9
}

func TestTallyQuadraticSumsStrength(t *testing.T) {
	ballots := []Ballot{
		{Kind: BallotQuadratic, QuadraticOption: "alpha", Strength: 3},
		{Kind: BallotQuadratic, QuadraticOption: "alpha", Strength: 2},
		{Kind: BallotQuadratic, QuadraticOption: "beta", Strength: 4},
	}
	totals := TallyQuadratic(ballots)
	require.Equal(t, uint64(5), totals["alpha"])
	require.Equal(t, uint64(4), totals["beta"])
}
