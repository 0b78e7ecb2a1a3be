package router

import (
	"context"
	"testing"
	"time"
)

type fakeDirectory struct {
	peers []PeerInfo
}

func (d *fakeDirectory) PeersInFederation(federation string) []PeerInfo { return d.peers }

type recordingSender struct {
	sent []string
}

func (s *recordingSender) Send(peer string, message []byte, priority Priority) error {
	s.sent = append(s.sent, peer)
	return nil
}

func TestPropagateCriticalReachesEveryPeer(t *testing.T) {
	dir := &fakeDirectory{peers: []PeerInfo{{ID: "a"}, {ID: "b"}, {ID: "c"}}}
	sender := &recordingSender{}
	p := NewPropagator(dir, NewCircuitBreakerRegistry(DefaultCircuitBreakerConfig), sender)

	targets, err := p.Propagate(context.Background(), Event{Federation: "fed1"}, Critical, time.Unix(0, 0))
	if err != nil {
		t.Fatalf("propagate: %v", err)
	}
	if len(targets) != 3 {
		t.Fatalf("expected all 3 peers targeted, got %d", len(targets))
	}
}

func TestPropagateNormalRespectsBudget(t *testing.T) {
	peers := make([]PeerInfo, 0, 20)
	for i := 0; i < 20; i++ {
		peers = append(peers, PeerInfo{ID: string(rune('a' + i))})
	}
	dir := &fakeDirectory{peers: peers}
	sender := &recordingSender{}
	p := NewPropagator(dir, NewCircuitBreakerRegistry(DefaultCircuitBreakerConfig), sender)
	p.NormalBudget = 5

	targets, err := p.Propagate(context.Background(), Event{Federation: "fed1"}, Normal, time.Unix(0, 0))
	if err != nil {
		t.Fatalf("propagate: %v", err)
	}
	if len(targets) != 5 {
		t.Fatalf("expected budget-bounded fanout of 5, got %d", len(targets))
	}
}

func TestPropagateLowIsOpportunistic(t *testing.T) {
	dir := &fakeDirectory{peers: []PeerInfo{{ID: "a"}, {ID: "b"}}}
	sender := &recordingSender{}
	p := NewPropagator(dir, NewCircuitBreakerRegistry(DefaultCircuitBreakerConfig), sender)

	targets, err := p.Propagate(context.Background(), Event{Federation: "fed1"}, Low, time.Unix(0, 0))
	if err != nil {
		t.Fatalf("propagate: %v", err)
	}
	if len(targets) != 0 {
		t.Fatalf("expected no dedicated fanout for low priority, got %d", len(targets))
	}
}

func TestPropagateHighOrdersByTrustThenReputation(t *testing.T) {
	dir := &fakeDirectory{peers: []PeerInfo{
		{ID: "low", TrustScore: 0.2, Reputation: 100},
		{ID: "high", TrustScore: 0.9, Reputation: 1},
	}}
	sender := &recordingSender{}
	p := NewPropagator(dir, NewCircuitBreakerRegistry(DefaultCircuitBreakerConfig), sender)

	targets, err := p.Propagate(context.Background(), Event{Federation: "fed1"}, High, time.Unix(0, 0))
	if err != nil {
		t.Fatalf("propagate: %v", err)
	}
	if len(targets) != 2 || targets[0] != "high" {
		t.Fatalf("expected high-trust peer first, got %v", targets)
	}
}
