package router

import (
	"testing"
	"time"
)

func TestPartitionDetectorRequiresSustainedWindow(t *testing.T) {
	cfg := PartitionConfig{MinConnectedPeers: 3, DetectionWindow: time.Minute}
	d := NewPartitionDetector(cfg)
	start := time.Unix(0, 0)

	if d.Observe("fed1", 1, start) {
		t.Fatalf("expected no immediate partition declaration")
	}
	if d.Observe("fed1", 1, start.Add(30*time.Second)) {
		t.Fatalf("expected partition not yet declared before window elapses")
	}
	if !d.Observe("fed1", 1, start.Add(90*time.Second)) {
		t.Fatalf("expected partition declared once window elapses")
	}
}

func TestPartitionDetectorRecoversAboveThreshold(t *testing.T) {
	cfg := PartitionConfig{MinConnectedPeers: 3, DetectionWindow: time.Minute}
	d := NewPartitionDetector(cfg)
	start := time.Unix(0, 0)
	d.Observe("fed1", 1, start)
	if d.Observe("fed1", 5, start.Add(10*time.Second)) {
		t.Fatalf("expected recovery above threshold to clear partition tracking")
	}
	if d.IsPartitioned("fed1", start.Add(10*time.Second)) {
		t.Fatalf("expected not partitioned after recovery")
	}
}

type staticDirectory struct{ peers []PeerInfo }

func (d *staticDirectory) PeersInFederation(string) []PeerInfo { return d.peers }

func TestHandleDisconnectionReassignsAndExtendsCheckpointWindow(t *testing.T) {
	h := &DisconnectionHandler{Directory: &staticDirectory{peers: []PeerInfo{{ID: "survivor"}, {ID: "gone"}}}}
	inFlight := []InFlightRoute{
		{Peer: "gone", ChainCheckpoint: true},
		{Peer: "gone", ChainCheckpoint: false},
		{Peer: "survivor"},
	}
	reassignments := h.HandleDisconnection("fed1", "gone", inFlight)
	if len(reassignments) != 2 {
		t.Fatalf("expected 2 reassignments for the disconnected peer's routes, got %d", len(reassignments))
	}
	for _, r := range reassignments {
		if r.ReassignedPeer != "survivor" {
			t.Fatalf("expected reassignment to the surviving peer, got %q", r.ReassignedPeer)
		}
	}
	if reassignments[0].WindowExtension != ExtendWindow {
		t.Fatalf("expected checkpoint route's window extended")
	}
	if reassignments[1].WindowExtension != 0 {
		t.Fatalf("expected non-checkpoint route to have no window extension")
	}
}
