// Package governance implements proposal lifecycle management and the
// ranked-choice, quadratic, liquid, and weighted voting algorithms described
// for the trust-gated governance engine.
package governance

import (
	"time"

	"github.com/icn-project/icn-core/identity"
)

// ProposalStatus enumerates the lifecycle phases a proposal moves through.
type ProposalStatus uint8

const (
	StatusOpen ProposalStatus = iota
	StatusPassed
	StatusFailed
	StatusExecuted
	StatusCancelled
)

// String renders the status for logs and audit records.
func (s ProposalStatus) String() string {
	switch s {
	case StatusOpen:
		return "open"
	case StatusPassed:
		return "passed"
	case StatusFailed:
		return "failed"
	case StatusExecuted:
		return "executed"
	case StatusCancelled:
		return "cancelled"
	default:
		return "unknown"
	}
}

// VotingRule selects the tallying algorithm applied at finalization.
type VotingRule uint8

const (
	RulePlain VotingRule = iota
	RuleRankedChoice
	RuleQuadratic
	RuleLiquid
	RuleWeighted
)

// Stage is one phase of a multi-stage proposal's execution plan.
type Stage struct {
	RequiredActions  []string
	Duration         time.Duration
	ApprovalThreshold float64
	Quorum           *float64
	StartedAt        time.Time
	Completed        map[string]bool
}

// actionsComplete reports whether every required action for the stage has
// been marked complete.
func (s Stage) actionsComplete() bool {
	for _, a := range s.RequiredActions {
		if !s.Completed[a] {
			return false
		}
	}
	return true
}

// MultiStagePlan is an ordered sequence of stages a passed proposal advances
// through before full execution.
type MultiStagePlan struct {
	Stages       []Stage
	CurrentStage int
}

// Terminal reports whether every stage of the plan has completed.
func (p MultiStagePlan) Terminal() bool {
	return p.CurrentStage >= len(p.Stages)
}

// Advance checks the current stage's advance condition (required actions
// complete, time elapsed, threshold met) and, if satisfied, moves to the
// next stage.
func (p *MultiStagePlan) Advance(now time.Time, approvalRatio float64) bool {
	if p.Terminal() {
		return false
	}
	stage := p.Stages[p.CurrentStage]
	if !stage.actionsComplete() {
		return false
	}
	if now.Sub(stage.StartedAt) < stage.Duration {
		return false
	}
	if approvalRatio < stage.ApprovalThreshold {
		return false
	}
	p.CurrentStage++
	return true
}

// Proposal is a single governance decision under vote.
type Proposal struct {
	ID                 string
	Proposer           identity.Did
	Federation         string
	TrustContext       identity.TrustContext
	Content            string
	VotingRule         VotingRule
	Votes              map[identity.Did]Ballot
	Status             ProposalStatus
	CreatedAt          time.Time
	VotingDeadline     time.Time
	RequiredThreshold  float64
	QuorumRequirement  float64
	Plan               *MultiStagePlan
	CoSponsors         []identity.Did
}

// DefaultThreshold and DefaultQuorum are the spec's named proposal defaults.
const (
	DefaultThreshold = 0.5
	DefaultQuorum    = 0.3
)
