package governance

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestValidateStructureRejectsDuplicatePreferences(t *testing.T) {
	b := Ballot{Kind: BallotRankedChoice, BallotID: "b1", Preferences: []string{"a", "a"}, Timestamp: time.Now()}
	err := ValidateStructure(b, DefaultValidationLimits, time.Now())
	require.Error(t, err)
}

func TestValidateStructureRejectsFutureTimestamp(t *testing.T) {
	b := Ballot{Kind: BallotRankedChoice, BallotID: "b1", Preferences: []string{"a"}, Timestamp: time.Now().Add(time.Hour)}
	err := ValidateStructure(b, DefaultValidationLimits, time.Now())
	require.Error(t, err)
}

func TestValidateStructureAcceptsWellFormedBallot(t *testing.T) {
	now := time.Now()
	b := Ballot{Kind: BallotRankedChoice, BallotID: "b1", Preferences: []string{"a", "b"}, Timestamp: now}
	require.NoError(t, ValidateStructure(b, DefaultValidationLimits, now))
}

func TestReplayCacheDetectsDuplicate(t *testing.T) {
	cache := NewReplayCache()
	require.NoError(t, cache.CheckAndRecord("election-1", "digest-a"))
	require.Error(t, cache.CheckAndRecord("election-1", "digest-a"))
}
