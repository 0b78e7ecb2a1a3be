package reputation

import (
	"testing"
	"time"

	"github.com/icn-project/icn-core/identity"
)

func testDid(id string) identity.Did {
	return identity.Did{Method: "key", ID: id}
}

func TestRewardAndPenalizeAdjustScore(t *testing.T) {
	tr := NewTracker(DefaultConfig)
	now := time.Unix(0, 0)
	did := testDid("alice")

	if got := tr.RewardGovernanceParticipation(did, now); got != governanceParticipationDelta {
		t.Fatalf("expected score %d, got %d", governanceParticipationDelta, got)
	}
	if got := tr.RewardUsefulJob(did, now); got != governanceParticipationDelta+usefulJobCompletionDelta {
		t.Fatalf("unexpected accumulated score: %d", got)
	}
	if got := tr.PenalizeAdversarialFlag(did, now); got != governanceParticipationDelta+usefulJobCompletionDelta+adversarialFlagPenaltyDelta {
		t.Fatalf("unexpected score after penalty: %d", got)
	}
}

func TestScoreDecaysTowardZeroOverHalfLife(t *testing.T) {
	cfg := Config{DecayHalfLife: time.Hour, MinScore: -100, MaxScore: 100}
	tr := NewTracker(cfg)
	start := time.Unix(0, 0)
	did := testDid("bob")

	tr.RewardUsefulJob(did, start)
	before := tr.Snapshot(did, start)

	after := tr.Snapshot(did, start.Add(time.Hour))
	if after >= before {
		t.Fatalf("expected decay to reduce score below %d, got %d", before, after)
	}
	if after != int64(float64(before)*0.5) && after != int64(float64(before)*0.5)+1 && after != int64(float64(before)*0.5)-1 {
		t.Fatalf("expected roughly half-life decay, before=%d after=%d", before, after)
	}
}

func TestScoreClampedWithinBounds(t *testing.T) {
	cfg := Config{DecayHalfLife: time.Hour, MinScore: -10, MaxScore: 10}
	tr := NewTracker(cfg)
	now := time.Unix(0, 0)
	did := testDid("carol")

	for i := 0; i < 20; i++ {
		tr.RewardUsefulJob(did, now)
	}
	if got := tr.ReputationOf(did); got != 10 {
		t.Fatalf("expected score clamped to max 10, got %d", got)
	}

	for i := 0; i < 20; i++ {
		tr.PenalizeAdversarialFlag(did, now)
	}
	if got := tr.ReputationOf(did); got != -10 {
		t.Fatalf("expected score clamped to min -10, got %d", got)
	}
}

func TestUnknownDidReportsZero(t *testing.T) {
	tr := NewTracker(DefaultConfig)
	if got := tr.ReputationOf(testDid("nobody")); got != 0 {
		t.Fatalf("expected zero reputation for unknown did, got %d", got)
	}
}
