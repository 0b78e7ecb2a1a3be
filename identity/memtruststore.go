package identity

import "sync"

func trustKey(trustor, trustee Did, context TrustContext) string {
	return trustor.String() + "|" + trustee.String() + "|" + string(context)
}

func federationKey(federationID string, trustee Did, context TrustContext) string {
	return federationID + "|" + trustee.String() + "|" + string(context)
}

// MemoryTrustStore is an in-process TrustStore keyed by (trustor, trustee,
// context), in the shape of the pairwise maps governance/engine_test.go's
// memTrustStore builds by hand for each test. Safe for concurrent use.
//
// When openLevel is above TrustNone, DirectTrust synthesizes a relationship
// at that level for any pair with no explicit attestation, rather than
// denying. This stands in for a registrar or attestation protocol that has
// not been wired yet, and is only appropriate for single-process demos:
// NewOpenTrustStore documents that tradeoff at the call site.
type MemoryTrustStore struct {
	mu         sync.RWMutex
	direct     map[string]TrustRelationship
	federation map[string]TrustRelationship
	members    map[string]map[string]bool
	bridges    map[string][]FederationBridge
	openLevel  TrustLevel
}

// NewMemoryTrustStore returns a store with no trust relationships recorded;
// every DirectTrust/FederationTrust lookup misses until Attest/AttestFederation
// is called.
func NewMemoryTrustStore() *MemoryTrustStore {
	return &MemoryTrustStore{
		direct:     map[string]TrustRelationship{},
		federation: map[string]TrustRelationship{},
		members:    map[string]map[string]bool{},
		bridges:    map[string][]FederationBridge{},
	}
}

// NewOpenTrustStore returns a store that grants every actor level trust
// with every other actor, in every context, absent an explicit attestation
// overriding it. Use this only where there is no separate identity
// attestation flow wired yet (a local CLI, a demo gateway); a federation
// serving real members should attest relationships explicitly instead.
func NewOpenTrustStore(level TrustLevel) *MemoryTrustStore {
	s := NewMemoryTrustStore()
	s.openLevel = level
	return s
}

// Attest records an explicit direct trust relationship, overriding any
// open-mode synthesis for that (trustor, trustee, context) triple.
func (s *MemoryTrustStore) Attest(rel TrustRelationship) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.direct[trustKey(rel.Trustor, rel.Trustee, rel.Context)] = rel
}

// AttestFederation records a federation-scoped trust relationship that
// members of federationID may inherit per rel.Inheritance.
func (s *MemoryTrustStore) AttestFederation(federationID string, rel TrustRelationship) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.federation[federationKey(federationID, rel.Trustee, rel.Context)] = rel
}

// Join records member as belonging to federationID, so FederationsOf(member)
// surfaces it during inheritance resolution.
func (s *MemoryTrustStore) Join(member Did, federationID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	set, ok := s.members[member.String()]
	if !ok {
		set = map[string]bool{}
		s.members[member.String()] = set
	}
	set[federationID] = true
}

// AddBridge registers a cross-federation trust conduit.
func (s *MemoryTrustStore) AddBridge(bridge FederationBridge) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.bridges[bridge.FromFederation] = append(s.bridges[bridge.FromFederation], bridge)
}

func (s *MemoryTrustStore) DirectTrust(trustor, trustee Did, context TrustContext) (TrustRelationship, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if rel, ok := s.direct[trustKey(trustor, trustee, context)]; ok {
		return rel, true
	}
	if s.openLevel > TrustNone {
		return TrustRelationship{Trustor: trustor, Trustee: trustee, Context: context, Level: s.openLevel}, true
	}
	return TrustRelationship{}, false
}

func (s *MemoryTrustStore) FederationTrust(federationID string, trustee Did, context TrustContext) (TrustRelationship, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	rel, ok := s.federation[federationKey(federationID, trustee, context)]
	return rel, ok
}

func (s *MemoryTrustStore) FederationsOf(member Did) []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	set, ok := s.members[member.String()]
	if !ok {
		return nil
	}
	out := make([]string, 0, len(set))
	for fed := range set {
		out = append(out, fed)
	}
	return out
}

func (s *MemoryTrustStore) Bridges(fromFederation string) []FederationBridge {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.bridges[fromFederation]
}
