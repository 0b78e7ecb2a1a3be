package governance

import (
	"fmt"

	"github.com/icn-project/icn-core/identity"
	"github.com/icn-project/icn-core/icnerr"
)

// LiquidDelegationGraph tracks delegate(delegator, delegate) edges for one
// election, cycle-safe and depth-bounded.
type LiquidDelegationGraph struct {
	maxDepth  int
	delegates map[identity.Did]identity.Did
}

// NewLiquidDelegationGraph constructs a graph allowing chains up to maxDepth
// hops.
func NewLiquidDelegationGraph(maxDepth int) *LiquidDelegationGraph {
	return &LiquidDelegationGraph{maxDepth: maxDepth, delegates: make(map[identity.Did]identity.Did)}
}

// Delegate records delegator -> delegate, rejecting self-loops, cycles, and
// chains that would exceed maxDepth.
func (g *LiquidDelegationGraph) Delegate(delegator, delegate identity.Did) error {
	if delegator == delegate {
		return fmt.Errorf("governance: %w: self-delegation", icnerr.ErrInvalidInput)
	}
	// Walk delegate's existing chain; if it ever reaches delegator, this
	// would introduce a cycle.
	depth := 1
	cur := delegate
	for {
		next, ok := g.delegates[cur]
		if !ok {
			break
		}
		depth++
		if next == delegator {
			return fmt.Errorf("governance: %w: delegation cycle", icnerr.ErrInvalidInput)
		}
		if depth >= g.maxDepth {
			return fmt.Errorf("governance: %w: delegation chain too deep", icnerr.ErrInvalidInput)
		}
		cur = next
	}
	g.delegates[delegator] = delegate
	return nil
}

// Resolve follows the delegation chain from voter at most maxDepth hops or
// until a fixed point (no further delegate, or a cycle artifact), returning
// the final delegate that should receive the vote.
func (g *LiquidDelegationGraph) Resolve(voter identity.Did) identity.Did {
	cur := voter
	visited := map[identity.Did]struct{}{cur: {}}
	for hops := 0; hops < g.maxDepth; hops++ {
		next, ok := g.delegates[cur]
		if !ok {
			return cur
		}
		if _, seen := visited[next]; seen {
			return cur
		}
		visited[next] = struct{}{}
		cur = next
	}
	return cur
}

// TallyLiquid resolves every ballot's voter to its final delegate (a direct
// vote resolves to itself) and tallies by option. Voting power of a final
// delegate is 1 plus the number of distinct delegators whose resolution
// equals that delegate. Only final delegates' own ballots are tallied: when
// a final delegate cast no ballot, neither it nor its delegators add weight.
func TallyLiquid(ballots []Ballot, graph *LiquidDelegationGraph) map[string]float64 {
	votesByVoter := make(map[identity.Did]Ballot, len(ballots))
	for _, b := range ballots {
		votesByVoter[b.Voter] = b
	}

	resolvedTo := make(map[identity.Did]identity.Did, len(ballots))
	for _, b := range ballots {
		resolvedTo[b.Voter] = graph.Resolve(b.Voter)
	}

	power := make(map[identity.Did]int)
	for delegator := range graph.delegates {
		if final := graph.Resolve(delegator); final != delegator {
			power[final]++
		}
	}

	totals := make(map[string]float64)
	for voter, b := range votesByVoter {
		final := resolvedTo[voter]
		finalBallot, ok := votesByVoter[final]
		if !ok {
			finalBallot = b
		}
		weight := float64(1 + power[final])
		if voter != final {
			// Delegators do not independently add tally weight; only the
			// resolved delegate's own ballot counts, scaled by its power.
			continue
		}
		totals[finalBallot.LiquidOption] += weight
	}
	return totals
}
