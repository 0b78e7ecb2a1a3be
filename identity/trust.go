package identity

import (
	"fmt"
	"time"
)

// TrustContext scopes a trust relation to a class of operation.
type TrustContext string

const (
	ContextGovernance      TrustContext = "Governance"
	ContextResourceSharing TrustContext = "ResourceSharing"
	ContextMutualCredit    TrustContext = "MutualCredit"
	ContextDataSharing     TrustContext = "DataSharing"
	ContextInfrastructure  TrustContext = "Infrastructure"
	ContextGeneral         TrustContext = "General"
)

// TrustLevel is totally ordered None < Basic < Partial < Full.
type TrustLevel uint8

const (
	TrustNone TrustLevel = iota
	TrustBasic
	TrustPartial
	TrustFull
)

func (l TrustLevel) String() string {
	switch l {
	case TrustBasic:
		return "Basic"
	case TrustPartial:
		return "Partial"
	case TrustFull:
		return "Full"
	default:
		return "None"
	}
}

// Scale maps a discrete trust level to a [0,1] fraction used when combining
// with continuous degradation factors.
func (l TrustLevel) Scale() float64 {
	switch l {
	case TrustBasic:
		return 1.0 / 3
	case TrustPartial:
		return 2.0 / 3
	case TrustFull:
		return 1.0
	default:
		return 0
	}
}

// LevelFromScale converts a [0,1] fraction back to the nearest trust level
// not exceeding it — used when clamping a degraded effective level.
func LevelFromScale(scale float64) TrustLevel {
	switch {
	case scale >= 1.0:
		return TrustFull
	case scale >= 2.0/3:
		return TrustPartial
	case scale >= 1.0/3:
		return TrustBasic
	default:
		return TrustNone
	}
}

// InheritanceConfig governs how a federation's trust may flow to members.
type InheritanceConfig struct {
	Inheritable       bool
	MaxDepth          int
	DegradationFactor float64 // in [0,1]
	MinInheritedLevel TrustLevel
}

// TrustRelationship is a scoped trust edge from trustor to trustee.
type TrustRelationship struct {
	Trustor       Did
	Trustee       Did
	Context       TrustContext
	Level         TrustLevel
	Federation    string // empty if not federation-scoped
	Inheritance   InheritanceConfig
	Metadata      map[string]string
	EstablishedAt time.Time
	ExpiresAt     *time.Time
}

// Valid reports whether the relationship is still within its validity
// window relative to now.
func (t TrustRelationship) Valid(now time.Time) bool {
	if t.ExpiresAt == nil {
		return true
	}
	return t.ExpiresAt.After(now)
}

// Degrade applies the inheritance degradation factor depth times, clamped to
// MinInheritedLevel per spec.md 3's invariant.
func (t TrustRelationship) Degrade(depth int) TrustLevel {
	scale := t.Level.Scale()
	factor := t.Inheritance.DegradationFactor
	if factor <= 0 {
		factor = 1
	}
	for i := 0; i < depth; i++ {
		scale *= factor
	}
	level := LevelFromScale(scale)
	if level < t.Inheritance.MinInheritedLevel {
		level = t.Inheritance.MinInheritedLevel
	}
	return level
}

// FederationBridge is a one- or two-way cross-federation trust conduit.
type FederationBridge struct {
	FromFederation string
	ToFederation   string
	Trust          TrustRelationship
	Bidirectional  bool
	AllowedContexts map[TrustContext]bool
	MaxBridgeTrust TrustLevel
	BridgeDegradation float64
}

// EffectiveLevel computes min(bridge_level * bridge_degradation, max_bridge_trust).
func (b FederationBridge) EffectiveLevel() TrustLevel {
	scale := b.Trust.Level.Scale() * b.BridgeDegradation
	level := LevelFromScale(scale)
	if level > b.MaxBridgeTrust {
		level = b.MaxBridgeTrust
	}
	return level
}

// PolicyRule describes the minimum trust an action requires.
type PolicyRule struct {
	Action               string
	ApplicableContexts   map[TrustContext]bool
	MinLevel             TrustLevel
	RequireFederationMember bool
	MaxInheritanceDepth  int
	AllowCrossFederation bool
}

// Decision is the outcome of validate_action / trust resolution.
type Decision struct {
	Allowed      bool
	Reason       string
	ChecksNeeded []string
	TrustPath    []string
	EffectiveLevel TrustLevel
}

// Denied constructs a Decision carrying a reason.
func Denied(reason string) Decision { return Decision{Allowed: false, Reason: reason} }

// TrustStore is the persistence seam for C1: keyed by (subject, context) per
// spec.md 6's "Persisted state" table.
type TrustStore interface {
	DirectTrust(trustor, trustee Did, context TrustContext) (TrustRelationship, bool)
	FederationTrust(federationID string, trustee Did, context TrustContext) (TrustRelationship, bool)
	FederationsOf(member Did) []string
	Bridges(fromFederation string) []FederationBridge
}

// Engine implements resolve/sign/verify/attest_trust/verify_trust/
// validate_action (C1's full contract).
type Engine struct {
	Resolver Resolver
	Trust    TrustStore
	Policies map[string]PolicyRule
}

// NewEngine constructs a trust engine over the given resolver, trust store,
// and policy rule set.
func NewEngine(resolver Resolver, trust TrustStore, policies map[string]PolicyRule) *Engine {
	if policies == nil {
		policies = map[string]PolicyRule{}
	}
	return &Engine{Resolver: resolver, Trust: trust, Policies: policies}
}

// ValidateTrust implements the trust resolution algorithm of spec.md 4.1:
// direct lookup, then federation inheritance (depth-first, bounded by
// policy), then bridge traversal, preferring direct > inherited > bridge.
func (e *Engine) ValidateTrust(trustor, trustee Did, context TrustContext, action string, now time.Time) Decision {
	rule, ok := e.Policies[action]
	if !ok {
		return Denied(fmt.Sprintf("no policy registered for action %q", action))
	}
	if !rule.ApplicableContexts[context] {
		return Denied(fmt.Sprintf("context %s not applicable to action %q", context, action))
	}

	if rel, ok := e.Trust.DirectTrust(trustor, trustee, context); ok && rel.Valid(now) {
		if rel.Level >= rule.MinLevel {
			return Decision{Allowed: true, TrustPath: []string{"direct"}, EffectiveLevel: rel.Level}
		}
	}

	if d, ok := e.resolveInheritance(trustor, trustee, context, rule, now); ok {
		return d
	}

	if rule.AllowCrossFederation {
		if d, ok := e.resolveBridge(trustor, trustee, context, rule, now); ok {
			return d
		}
	}

	return Denied("no trust path satisfies the required level")
}

func (e *Engine) resolveInheritance(trustor, trustee Did, context TrustContext, rule PolicyRule, now time.Time) (Decision, bool) {
	maxDepth := rule.MaxInheritanceDepth
	var best *Decision
	for _, fed := range e.Trust.FederationsOf(trustor) {
		rel, ok := e.Trust.FederationTrust(fed, trustee, context)
		if !ok || !rel.Valid(now) || !rel.Inheritance.Inheritable {
			continue
		}
		depthCap := rel.Inheritance.MaxDepth
		if maxDepth > 0 && maxDepth < depthCap {
			depthCap = maxDepth
		}
		for depth := 0; depth <= depthCap; depth++ {
			level := rel.Degrade(depth)
			if level < rule.MinLevel {
				continue
			}
			cand := Decision{
				Allowed:        true,
				TrustPath:      []string{fmt.Sprintf("federation_inheritance:%s", fed)},
				EffectiveLevel: level,
			}
			if best == nil || depth < effectiveDepthOf(*best) {
				best = &cand
			}
			break
		}
	}
	if best != nil {
		return *best, true
	}
	return Decision{}, false
}

// effectiveDepthOf is a placeholder ordering hook; since Decision does not
// carry depth explicitly, ties are broken by first-found federation which is
// already depth-ascending from the loop above.
func effectiveDepthOf(d Decision) int { return 0 }

func (e *Engine) resolveBridge(trustor, trustee Did, context TrustContext, rule PolicyRule, now time.Time) (Decision, bool) {
	var best *FederationBridge
	for _, fed := range e.Trust.FederationsOf(trustor) {
		for _, b := range e.Trust.Bridges(fed) {
			if !b.Trust.Valid(now) || !b.AllowedContexts[context] {
				continue
			}
			level := b.EffectiveLevel()
			if level < rule.MinLevel {
				continue
			}
			cand := b
			if best == nil || better(cand, *best) {
				best = &cand
			}
		}
	}
	if best == nil {
		return Decision{}, false
	}
	return Decision{
		Allowed:        true,
		TrustPath:      []string{fmt.Sprintf("bridge:%s->%s", best.FromFederation, best.ToFederation)},
		EffectiveLevel: best.EffectiveLevel(),
	}, true
}

// better prefers bidirectional bridges, then the higher effective level.
func better(candidate, current FederationBridge) bool {
	if candidate.Bidirectional != current.Bidirectional {
		return candidate.Bidirectional
	}
	return candidate.EffectiveLevel() > current.EffectiveLevel()
}

// ValidateAction implements validate_action: applies the registered policy
// rule for the action name against the actor's trust in context.
func (e *Engine) ValidateAction(actor, resourceOwner Did, action string, context TrustContext, now time.Time) Decision {
	rule, ok := e.Policies[action]
	if !ok {
		return Denied(fmt.Sprintf("no policy registered for action %q", action))
	}
	if rule.RequireFederationMember {
		member := false
		for _, fed := range e.Trust.FederationsOf(actor) {
			for _, fed2 := range e.Trust.FederationsOf(resourceOwner) {
				if fed == fed2 {
					member = true
				}
			}
		}
		if !member {
			return Denied("actor is not a member of resource owner's federation")
		}
	}
	return e.ValidateTrust(actor, resourceOwner, context, action, now)
}
