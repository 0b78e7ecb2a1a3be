package governance

import (
	"fmt"

	"github.com/icn-project/icn-core/identity"
	"github.com/icn-project/icn-core/icnerr"
)

// QuadraticCreditBook tracks each voter's initial credit allocation and
// remaining balance for a single election, since quadratic cost (strength^2)
// is deducted atomically and refunded on change or cancellation.
type QuadraticCreditBook struct {
	initial   uint64
	remaining map[identity.Did]uint64
	spent     map[identity.Did]map[string]Ballot // voter -> proposal -> last ballot cast
}

// NewQuadraticCreditBook constructs a book where every voter starts with
// initialCredits.
func NewQuadraticCreditBook(initialCredits uint64) *QuadraticCreditBook {
	return &QuadraticCreditBook{
		initial:   initialCredits,
		remaining: make(map[identity.Did]uint64),
		spent:     make(map[identity.Did]map[string]Ballot),
	}
}

func (q *QuadraticCreditBook) balance(voter identity.Did) uint64 {
	if v, ok := q.remaining[voter]; ok {
		return v
	}
	return q.initial
}

// CastOrReplace deducts the ballot's quadratic cost, refunding any prior
// ballot the same voter cast on the same proposal first.
func (q *QuadraticCreditBook) CastOrReplace(proposalID string, b Ballot) error {
	voter := b.Voter
	balance := q.balance(voter)

	if prior, ok := q.spent[voter][proposalID]; ok {
		balance += prior.creditsSpent()
	}

	cost := b.creditsSpent()
	if cost > balance {
		return fmt.Errorf("governance: %w", icnerr.ErrInsufficientCredits)
	}

	q.remaining[voter] = balance - cost
	if q.spent[voter] == nil {
		q.spent[voter] = make(map[string]Ballot)
	}
	q.spent[voter][proposalID] = b
	return nil
}

// Cancel refunds a voter's quadratic ballot on a proposal, if any.
func (q *QuadraticCreditBook) Cancel(proposalID string, voter identity.Did) {
	prior, ok := q.spent[voter][proposalID]
	if !ok {
		return
	}
	q.remaining[voter] = q.balance(voter) + prior.creditsSpent()
	delete(q.spent[voter], proposalID)
}

// TallyQuadratic sums each ballot's strength per option: tally = Σ strength_i.
func TallyQuadratic(ballots []Ballot) map[string]uint64 {
	totals := make(map[string]uint64)
	for _, b := range ballots {
		totals[b.QuadraticOption] += uint64(b.Strength)
	}
	return totals
}
