package governance

import (
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/icn-project/icn-core/identity"
	"github.com/icn-project/icn-core/icnerr"
)

// ActionSubmitProposal and ActionVote are the trust-policy action
// names checked via identity.Engine.ValidateAction.
const (
	ActionSubmitProposal = "governance.submitProposal"
	ActionVote           = "governance.vote"
)

// AuditEventKind enumerates the governance audit trail's lifecycle markers.
type AuditEventKind string

const (
	AuditProposed  AuditEventKind = "proposed"
	AuditVoteCast  AuditEventKind = "vote"
	AuditFinalized AuditEventKind = "finalized"
	AuditExecuted  AuditEventKind = "executed"
)

// AuditRecord is an append-only governance lifecycle entry.
type AuditRecord struct {
	Sequence   uint64
	Timestamp  time.Time
	Event      AuditEventKind
	ProposalID string
	Actor      identity.Did
	Details    string
	AnchorCid  string
}

// VotingResult is finalize_proposal's outcome.
type VotingResult struct {
	Status       ProposalStatus
	QuorumMet    bool
	ThresholdMet bool
	Tally        map[string]float64
	IRV          *IRVResult
}

// FederationSizer reports a federation's member count for quorum
// computation; implemented by the identity/trust store in the composition
// root.
type FederationSizer interface {
	FederationSize(federation string) int
}

// Anchorer is the DAG-anchoring seam (matches identity.Anchorer) so
// governance does not own a concrete DAG store reference.
type Anchorer interface {
	Anchor(data []byte, links []string) (string, error)
}

// Engine implements submit_proposal/vote/finalize_proposal/execute_proposal.
type Engine struct {
	Trust      *identity.Engine
	Resolver   identity.Resolver
	Federation FederationSizer
	Anchor     Anchorer
	Params     ParamStore
	CoSponsor  FederationCoSponsor
	Quadratic  map[string]*QuadraticCreditBook // proposalID -> book
	Liquid     map[string]*LiquidDelegationGraph
	Replay     *ReplayCache
	Limits     ValidationLimits

	mu        sync.Mutex
	proposals map[string]*Proposal
	audit     []AuditRecord
	seq       uint64
}

// NewEngine constructs a governance engine wired to the supplied collaborators.
func NewEngine(trust *identity.Engine, resolver identity.Resolver, fed FederationSizer, anchor Anchorer, params ParamStore) *Engine {
	return &Engine{
		Trust:      trust,
		Resolver:   resolver,
		Federation: fed,
		Anchor:     anchor,
		Params:     params,
		CoSponsor:  DefaultFederationCoSponsor,
		Quadratic:  make(map[string]*QuadraticCreditBook),
		Liquid:     make(map[string]*LiquidDelegationGraph),
		Replay:     NewReplayCache(),
		Limits:     DefaultValidationLimits,
		proposals:  make(map[string]*Proposal),
	}
}

func (e *Engine) appendAuditLocked(kind AuditEventKind, proposalID string, actor identity.Did, details string, now time.Time) {
	e.seq++
	rec := AuditRecord{Sequence: e.seq, Timestamp: now, Event: kind, ProposalID: proposalID, Actor: actor, Details: details}
	if e.Anchor != nil {
		payload := []byte(fmt.Sprintf("%s|%s|%s|%s", kind, proposalID, actor.String(), details))
		if c, err := e.Anchor.Anchor(payload, nil); err == nil {
			rec.AnchorCid = c
		}
	}
	e.audit = append(e.audit, rec)
}

// Audit returns the append-only governance audit trail.
func (e *Engine) Audit() []AuditRecord {
	e.mu.Lock()
	defer e.mu.Unlock()
	return append([]AuditRecord(nil), e.audit...)
}

// SubmitProposal implements submit_proposal: require validate_action(proposer,
// SubmitProposal) = Allowed, store the proposal, emit an audit event, and
// anchor it in the DAG.
func (e *Engine) SubmitProposal(proposer identity.Did, federation string, context identity.TrustContext, content string, rule VotingRule, deadline time.Time, now time.Time) (string, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	decision := e.Trust.ValidateAction(proposer, proposer, ActionSubmitProposal, context, now)
	if !decision.Allowed {
		return "", fmt.Errorf("governance: %w: %s", icnerr.ErrUnauthorized, decision.Reason)
	}

	id := fmt.Sprintf("%s:%d", federation, now.UnixNano())
	p := &Proposal{
		ID:                id,
		Proposer:          proposer,
		Federation:        federation,
		TrustContext:      context,
		Content:           content,
		VotingRule:        rule,
		Votes:             make(map[identity.Did]Ballot),
		Status:            StatusOpen,
		CreatedAt:         now,
		VotingDeadline:    deadline,
		RequiredThreshold: DefaultThreshold,
		QuorumRequirement: DefaultQuorum,
	}
	e.proposals[id] = p
	if rule == RuleQuadratic {
		e.Quadratic[id] = NewQuadraticCreditBook(100)
	}
	if rule == RuleLiquid {
		e.Liquid[id] = NewLiquidDelegationGraph(6)
	}
	e.appendAuditLocked(AuditProposed, id, proposer, content, now)
	return id, nil
}

// Vote implements vote: proposal must be Open and within deadline, trust
// validated for the context, federation membership checked when required,
// and the ballot recorded per its variant's idempotency rule (latest wins
// for plain, accumulates credits for quadratic, resolves delegation for
// liquid).
func (e *Engine) Vote(voter identity.Did, proposalID string, ballot Ballot, now time.Time) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	p, ok := e.proposals[proposalID]
	if !ok {
		return fmt.Errorf("governance: %w", icnerr.ErrProposalNotFound)
	}
	if p.Status != StatusOpen {
		return fmt.Errorf("governance: %w", icnerr.ErrProposalNotOpen)
	}
	if now.After(p.VotingDeadline) {
		return fmt.Errorf("governance: %w", icnerr.ErrVotingDeadlinePassed)
	}
	if err := ValidateStructure(ballot, e.Limits, now); err != nil {
		return err
	}

	decision := e.Trust.ValidateAction(voter, p.Proposer, ActionVote, p.TrustContext, now)
	if !decision.Allowed {
		return fmt.Errorf("governance: %w: %s", icnerr.ErrIneligibleVoter, decision.Reason)
	}

	if ballot.Kind == BallotRankedChoice && len(ballot.Signature) == 64 {
		digest := Digest(ballot)
		if err := e.Replay.CheckAndRecord(proposalID, digest); err != nil {
			return err
		}
		if !identity.Verify(e.Resolver, voter, ballot.SignableBytes(), ballot.Signature) {
			return fmt.Errorf("governance: %w", icnerr.ErrInvalidSignature)
		}
	}

	switch ballot.Kind {
	case BallotQuadratic:
		book := e.Quadratic[proposalID]
		if book == nil {
			book = NewQuadraticCreditBook(100)
			e.Quadratic[proposalID] = book
		}
		if err := book.CastOrReplace(proposalID, ballot); err != nil {
			return err
		}
	case BallotLiquid:
		graph := e.Liquid[proposalID]
		if graph == nil {
			graph = NewLiquidDelegationGraph(6)
			e.Liquid[proposalID] = graph
		}
		if !ballot.Delegate.IsZero() {
			if err := graph.Delegate(voter, ballot.Delegate); err != nil {
				return err
			}
		}
	}

	ballot.Voter = voter
	p.Votes[voter] = ballot
	e.appendAuditLocked(AuditVoteCast, proposalID, voter, string(ballot.Kind), now)
	return nil
}

// FinalizeProposal implements finalize_proposal: requires the deadline has
// passed, computes quorum and threshold per the proposal's voting rule, and
// transitions Open -> Passed|Failed.
func (e *Engine) FinalizeProposal(proposalID string, now time.Time) (VotingResult, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	p, ok := e.proposals[proposalID]
	if !ok {
		return VotingResult{}, fmt.Errorf("governance: %w", icnerr.ErrProposalNotFound)
	}
	if p.Status != StatusOpen {
		return VotingResult{}, fmt.Errorf("governance: %w", icnerr.ErrProposalNotOpen)
	}
	if !now.After(p.VotingDeadline) {
		return VotingResult{}, fmt.Errorf("governance: %w", icnerr.ErrVotingStillOpen)
	}

	ballots := make([]Ballot, 0, len(p.Votes))
	for _, did := range sortedVoterKeys(p.Votes) {
		ballots = append(ballots, p.Votes[did])
	}

	federationSize := 1
	if e.Federation != nil {
		if n := e.Federation.FederationSize(p.Federation); n > 0 {
			federationSize = n
		}
	}
	quorumReq := e.CoSponsor.EffectiveQuorum(p.QuorumRequirement, len(p.CoSponsors))
	quorumMet := float64(len(p.Votes))/float64(federationSize) >= quorumReq

	result := VotingResult{Tally: map[string]float64{}}

	switch p.VotingRule {
	case RuleRankedChoice:
		irv := TallyRankedChoice(ballots)
		result.IRV = &irv
		result.ThresholdMet = irv.Winner != ""
		if result.ThresholdMet {
			result.Tally[irv.Winner] = 1
		}
	case RuleQuadratic:
		result.Tally = numericToFloat(TallyQuadratic(ballots))
		result.ThresholdMet = passesRatioThreshold(result.Tally, p.RequiredThreshold)
	case RuleLiquid:
		graph := e.Liquid[proposalID]
		if graph == nil {
			graph = NewLiquidDelegationGraph(6)
		}
		result.Tally = TallyLiquid(ballots, graph)
		result.ThresholdMet = passesRatioThreshold(result.Tally, p.RequiredThreshold)
	case RuleWeighted:
		result.Tally = TallyWeighted(ballots)
		result.ThresholdMet = passesRatioThreshold(result.Tally, p.RequiredThreshold)
	default: // RulePlain
		var yes, total float64
		for _, b := range ballots {
			total++
			if b.PlainOption == OptionYes {
				yes++
			}
		}
		result.Tally[string(OptionYes)] = yes
		result.Tally[string(OptionNo)] = total - yes
		if total > 0 {
			result.ThresholdMet = yes/total >= p.RequiredThreshold
		}
	}

	result.QuorumMet = quorumMet
	if quorumMet && result.ThresholdMet {
		p.Status = StatusPassed
		result.Status = StatusPassed
	} else {
		p.Status = StatusFailed
		result.Status = StatusFailed
	}
	e.appendAuditLocked(AuditFinalized, proposalID, identity.Did{}, p.Status.String(), now)
	return result, nil
}

// ExecuteProposal implements execute_proposal: requires Passed status,
// applies the action, transitions to Executed, and anchors the execution
// event. Only a ParamChange action is applied, and only when Params is set;
// Membership and Bridge actions are accepted but not applied.
func (e *Engine) ExecuteProposal(proposalID string, action ExecutionAction, now time.Time) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	p, ok := e.proposals[proposalID]
	if !ok {
		return fmt.Errorf("governance: %w", icnerr.ErrProposalNotFound)
	}
	if p.Status != StatusPassed {
		return fmt.Errorf("governance: %w", icnerr.ErrProposalNotOpen)
	}

	switch {
	case action.ParamChange != nil && e.Params != nil:
		if err := e.Params.SetParam(action.ParamChange.Key, *action.ParamChange); err != nil {
			return fmt.Errorf("governance: %w: %v", icnerr.ErrInternal, err)
		}
	}

	p.Status = StatusExecuted
	e.appendAuditLocked(AuditExecuted, proposalID, p.Proposer, "", now)
	return nil
}

// Get returns a proposal by id.
func (e *Engine) Get(proposalID string) (*Proposal, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	p, ok := e.proposals[proposalID]
	return p, ok
}

func sortedVoterKeys(m map[identity.Did]Ballot) []identity.Did {
	out := make([]identity.Did, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].String() < out[j].String() })
	return out
}

func numericToFloat(m map[string]uint64) map[string]float64 {
	out := make(map[string]float64, len(m))
	for k, v := range m {
		out[k] = float64(v)
	}
	return out
}

func passesRatioThreshold(tally map[string]float64, threshold float64) bool {
	var total, best float64
	for _, v := range tally {
		total += v
		if v > best {
			best = v
		}
	}
	if total == 0 {
		return false
	}
	return best/total >= threshold
}
