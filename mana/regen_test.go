package mana

import (
	"testing"
	"time"
)

func TestCapacityFactorWeightsFreshSignals(t *testing.T) {
	now := time.Now()
	signals := []CapacitySignal{
		{Name: "cpu", Weight: 1, Score: 1.0, MeasuredAt: now},
		{Name: "mem", Weight: 1, Score: 0.0, MeasuredAt: now},
	}
	if got := CapacityFactor(signals, now); got != 0.5 {
		t.Fatalf("expected 0.5, got %f", got)
	}
}

func TestCapacityFactorFallsBackOnStaleSignal(t *testing.T) {
	now := time.Now()
	signals := []CapacitySignal{
		{Name: "cpu", Weight: 1, Score: 1.0, MeasuredAt: now.Add(-3 * time.Hour)},
	}
	if got := CapacityFactor(signals, now); got != 0.5 {
		t.Fatalf("expected stale signal to fall back to 0.5, got %f", got)
	}
}

func TestCapacityFactorDefaultsWithNoSignals(t *testing.T) {
	if got := CapacityFactor(nil, time.Now()); got != 0.5 {
		t.Fatalf("expected 0.5 with no signals, got %f", got)
	}
}

func TestReputationFactorTiers(t *testing.T) {
	cases := []struct {
		rep  float64
		want float64
	}{
		{0.9, DefaultReputationThresholds.HighMultiplier},
		{0.8, DefaultReputationThresholds.HighMultiplier},
		{0.6, DefaultReputationThresholds.MediumMultiplier},
		{0.5, DefaultReputationThresholds.MediumMultiplier},
		{0.1, DefaultReputationThresholds.LowMultiplier},
	}
	for _, c := range cases {
		if got := ReputationFactor(c.rep, DefaultReputationThresholds); got != c.want {
			t.Fatalf("ReputationFactor(%f) = %f, want %f", c.rep, got, c.want)
		}
	}
}

func TestCommunityBonusesMultiplyTogether(t *testing.T) {
	b := CommunityBonuses{MutualAid: true, MutualAidBonus: 0.1, Education: true, EducationBonus: 0.2}
	want := 1.1 * 1.2
	if got := b.Multiplier(); got < want-1e-9 || got > want+1e-9 {
		t.Fatalf("expected %f, got %f", want, got)
	}
}

func TestRegenerateCapsEffectiveRateAtTenXBase(t *testing.T) {
	now := time.Now()
	p := RegenParams{
		BaseRate:        1,
		CapacitySignals: []CapacitySignal{{Weight: 1, Score: 1.0, MeasuredAt: now}},
		Reputation:      1.0,
		RepThresholds:   DefaultReputationThresholds,
		Bonuses:         CommunityBonuses{MutualAid: true, MutualAidBonus: 100},
		HoursElapsed:    1,
		NetworkHealth:   1,
	}
	got := Regenerate(p, now)
	if got != 10 {
		t.Fatalf("expected the rate to be capped at 10x base (10 mana), got %d", got)
	}
}

func TestRegenerateAppliesEmergencyModulation(t *testing.T) {
	now := time.Now()
	base := RegenParams{
		BaseRate:        10,
		CapacitySignals: []CapacitySignal{{Weight: 1, Score: 1.0, MeasuredAt: now}},
		Reputation:      1.0,
		RepThresholds:   DefaultReputationThresholds,
		HoursElapsed:    1,
		NetworkHealth:   1,
	}
	full := Regenerate(base, now)

	modulated := base
	modulated.EmergencyTripped = true
	modulated.EmergencyFactor = 0.5
	half := Regenerate(modulated, now)

	if half != full/2 {
		t.Fatalf("expected emergency modulation to halve the reward: full=%d half=%d", full, half)
	}
}

func TestStorageCostTierBoundaries(t *testing.T) {
	cases := []struct {
		size int
		want float64
	}{
		{1024, 0.01},
		{1025, 0.1},
		{10 * 1024, 0.1},
		{10*1024 + 1, 1.0},
		{100 * 1024, 1.0},
		{100*1024 + 1, 10.0},
	}
	for _, c := range cases {
		if got := StorageCostTier(c.size); got != c.want {
			t.Fatalf("StorageCostTier(%d) = %f, want %f", c.size, got, c.want)
		}
	}
}

func TestSpendingLimitCapsAtMaxMultiplier(t *testing.T) {
	p := SpendingLimitParams{
		BaseLimit:            100,
		Capacity:             10,
		CapacityMultiplier:   10,
		Reputation:           10,
		ReputationMultiplier: 10,
		MaxMultiplier:        5,
	}
	if got := SpendingLimit(p); got != 500 {
		t.Fatalf("expected the ceiling of base*max_multiplier=500, got %d", got)
	}
}
