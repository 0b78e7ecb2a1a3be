package governance

import (
	"fmt"

	"github.com/icn-project/icn-core/identity"
	"github.com/icn-project/icn-core/icnerr"
)

// FederationCoSponsor is a supplemental feature (from the original
// implementation's multi-federation proposal support): a proposal submitted
// in one federation can accrue co-sponsors from other federations, lowering
// its effective quorum requirement once a configured co-sponsor count is
// reached.
type FederationCoSponsor struct {
	MinCoSponsors      int
	QuorumReliefPerSponsor float64
	MaxQuorumRelief    float64
}

// DefaultFederationCoSponsor mirrors the original implementation's defaults.
var DefaultFederationCoSponsor = FederationCoSponsor{
	MinCoSponsors:          2,
	QuorumReliefPerSponsor: 0.02,
	MaxQuorumRelief:        0.1,
}

// AddCoSponsor appends a co-sponsoring DID to the proposal, rejecting
// duplicates and the original proposer sponsoring themselves.
func AddCoSponsor(p *Proposal, sponsor identity.Did) error {
	if sponsor == p.Proposer {
		return fmt.Errorf("governance: %w: proposer cannot co-sponsor own proposal", icnerr.ErrInvalidInput)
	}
	for _, s := range p.CoSponsors {
		if s == sponsor {
			return fmt.Errorf("governance: %w: duplicate co-sponsor", icnerr.ErrInvalidInput)
		}
	}
	p.CoSponsors = append(p.CoSponsors, sponsor)
	return nil
}

// EffectiveQuorum applies the co-sponsor quorum relief, reducing the base
// requirement once MinCoSponsors is reached, capped at MaxQuorumRelief.
func (f FederationCoSponsor) EffectiveQuorum(baseQuorum float64, coSponsorCount int) float64 {
	if coSponsorCount < f.MinCoSponsors {
		return baseQuorum
	}
	relief := float64(coSponsorCount-f.MinCoSponsors+1) * f.QuorumReliefPerSponsor
	if relief > f.MaxQuorumRelief {
		relief = f.MaxQuorumRelief
	}
	out := baseQuorum - relief
	if out < 0 {
		return 0
	}
	return out
}
