package governance

import (
	"testing"

	"github.com/icn-project/icn-core/identity"
	"github.com/stretchr/testify/require"
)

func did(id string) identity.Did { return identity.Did{Method: "key", ID: id} }

func TestLiquidDelegationRejectsSelfLoop(t *testing.T) {
	graph := NewLiquidDelegationGraph(4)
	require.Error(t, graph.Delegate(did("a"), did("a")))
}

func TestLiquidDelegationRejectsCycle(t *testing.T) {
	graph := NewLiquidDelegationGraph(4)
	require.NoError(t, graph.Delegate(did("a"), did("b")))
	require.NoError(t, graph.Delegate(did("b"), did("c")))
	require.Error(t, graph.Delegate(did("c"), did("a")))
}

func TestLiquidDelegationResolvesChain(t *testing.T) {
	graph := NewLiquidDelegationGraph(4)
	require.NoError(t, graph.Delegate(did("a"), did("b")))
	require.NoError(t, graph.Delegate(did("b"), did("c")))
	require.Equal(t, did("c"), graph.Resolve(did("a")))
}

func TestTallyLiquidCountsDelegatePower(t *testing.T) {
	graph := NewLiquidDelegationGraph(4)
	require.NoError(t, graph.Delegate(did("a"), did("c")))
	require.NoError(t, graph.Delegate(did("b"), did("c")))
	ballots := []Ballot{
		{Voter: did("c"), LiquidOption: "yes"},
	}
	totals := TallyLiquid(ballots, graph)
	require.Equal(t, float64(3), totals["yes"]) // c + 2 delegators
}
