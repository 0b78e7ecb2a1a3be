package mana

import "time"

// CapacitySignal is one of the five weighted inputs to capacity_factor.
type CapacitySignal struct {
	Name      string
	Weight    float64
	Score     float64 // in [0,1]
	MeasuredAt time.Time
}

// CapacityFactor computes Σ(weight·score)/Σweight over the supplied signals.
// A signal older than 2h falls back to a score of 0.5 (stale-metric
// handling from spec.md 4.3).
func CapacityFactor(signals []CapacitySignal, now time.Time) float64 {
	var weightSum, scoreSum float64
	for _, s := range signals {
		score := s.Score
		if now.Sub(s.MeasuredAt) > 2*time.Hour {
			score = 0.5
		}
		weightSum += s.Weight
		scoreSum += s.Weight * score
	}
	if weightSum == 0 {
		return 0.5
	}
	return scoreSum / weightSum
}

// ReputationThresholds configures the tiered reputation multiplier.
type ReputationThresholds struct {
	HighThreshold, MediumThreshold float64
	HighMultiplier, MediumMultiplier, LowMultiplier float64
}

// DefaultReputationThresholds mirrors common community-currency defaults.
var DefaultReputationThresholds = ReputationThresholds{
	HighThreshold: 0.8, MediumThreshold: 0.5,
	HighMultiplier: 1.5, MediumMultiplier: 1.0, LowMultiplier: 0.5,
}

// ReputationFactor selects the tiered multiplier for a reputation score.
func ReputationFactor(rep float64, t ReputationThresholds) float64 {
	switch {
	case rep >= t.HighThreshold:
		return t.HighMultiplier
	case rep >= t.MediumThreshold:
		return t.MediumMultiplier
	default:
		return t.LowMultiplier
	}
}

// CommunityBonuses are multiplicative flags per spec.md 4.3.
type CommunityBonuses struct {
	MutualAid, Governance, Infrastructure, Education bool
	MutualAidBonus, GovernanceBonus, InfrastructureBonus, EducationBonus float64
}

// Multiplier combines the active bonus flags multiplicatively.
func (b CommunityBonuses) Multiplier() float64 {
	m := 1.0
	if b.MutualAid {
		m *= 1 + b.MutualAidBonus
	}
	if b.Governance {
		m *= 1 + b.GovernanceBonus
	}
	if b.Infrastructure {
		m *= 1 + b.InfrastructureBonus
	}
	if b.Education {
		m *= 1 + b.EducationBonus
	}
	return m
}

// RegenParams bundles the regeneration formula's inputs.
type RegenParams struct {
	BaseRate         float64
	CapacitySignals  []CapacitySignal
	Reputation       float64
	RepThresholds    ReputationThresholds
	Bonuses          CommunityBonuses
	HoursElapsed     float64
	EmergencyTripped bool
	EmergencyFactor  float64 // in (0,1]
	NetworkHealth    float64 // clamped to [0.1, 2.0]
}

// clamp restricts v to [lo, hi].
func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// Regenerate computes the mana to credit for hours_elapsed, per spec.md
// 4.3's formula: base_rate * capacity_factor * reputation_factor * hours *
// community_bonuses, times emergency modulation and network-health factor.
// The result's effective rate never exceeds 10x base_rate per the
// invariants in spec.md 4.3.
func Regenerate(p RegenParams, now time.Time) uint64 {
	capacityFactor := CapacityFactor(p.CapacitySignals, now)
	repFactor := ReputationFactor(p.Reputation, p.RepThresholds)
	bonus := p.Bonuses.Multiplier()
	networkHealth := clamp(p.NetworkHealth, 0.1, 2.0)

	rate := p.BaseRate * capacityFactor * repFactor * bonus
	if rate > p.BaseRate*10 {
		rate = p.BaseRate * 10
	}

	amount := rate * p.HoursElapsed * networkHealth
	if p.EmergencyTripped {
		factor := p.EmergencyFactor
		if factor <= 0 || factor > 1 {
			factor = 1
		}
		amount *= factor
	}
	if amount < 0 {
		return 0
	}
	return uint64(amount)
}

// SpendingLimitParams bundles spending_limit's inputs.
type SpendingLimitParams struct {
	BaseLimit          float64
	Capacity           float64
	CapacityMultiplier float64
	Reputation         float64
	ReputationMultiplier float64
	MaxMultiplier      float64
}

// SpendingLimit computes min(base*capacity*cap_mul*rep*rep_mul, base*max_mul).
func SpendingLimit(p SpendingLimitParams) uint64 {
	primary := p.BaseLimit * p.Capacity * p.CapacityMultiplier * p.Reputation * p.ReputationMultiplier
	ceiling := p.BaseLimit * p.MaxMultiplier
	if primary > ceiling {
		primary = ceiling
	}
	if primary < 0 {
		return 0
	}
	return uint64(primary)
}

// StorageCostTier returns the mana cost per block-put for a payload of
// sizeBytes, per spec.md 6's tier table. The (1KB,10KB] interval is
// documented as inclusive on its upper bound only, resolving the Open
// Question about boundary inclusivity.
func StorageCostTier(sizeBytes int) float64 {
	switch {
	case sizeBytes <= 1024:
		return 0.01
	case sizeBytes <= 10*1024:
		return 0.1
	case sizeBytes <= 100*1024:
		return 1.0
	default:
		return 10.0
	}
}

// ArchiveReward computes the monthly archive-storage reward.
func ArchiveReward(sizeGB, months float64) float64 {
	return sizeGB * months * 0.05
}

// GatewayRebate computes the hourly gateway bandwidth rebate.
func GatewayRebate(sizeGB, hours float64) float64 {
	return sizeGB * hours * 0.001
}
