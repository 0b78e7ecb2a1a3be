package router

import (
	"sync"
	"time"
)

// PartitionConfig bounds how few connected peers within a federation is
// tolerated before the router declares a partition.
type PartitionConfig struct {
	MinConnectedPeers int
	DetectionWindow   time.Duration
}

// DefaultPartitionConfig mirrors the teacher's minimum-outbound-peer
// enforcement in p2p/connmanager.go's enforceLimits, repurposed to a
// federation-scoped health signal instead of a global peer-count floor.
var DefaultPartitionConfig = PartitionConfig{
	MinConnectedPeers: 3,
	DetectionWindow:   2 * time.Minute,
}

// PartitionDetector tracks, per federation, how long the connected-peer
// count has stayed below the configured minimum.
type PartitionDetector struct {
	cfg PartitionConfig

	mu          sync.Mutex
	belowSince  map[string]time.Time
}

// NewPartitionDetector constructs a detector using cfg.
func NewPartitionDetector(cfg PartitionConfig) *PartitionDetector {
	return &PartitionDetector{cfg: cfg, belowSince: make(map[string]time.Time)}
}

// Observe records the current connected-peer count for federation and
// reports whether a partition is declared: the count has stayed below
// MinConnectedPeers for at least DetectionWindow.
func (d *PartitionDetector) Observe(federation string, connectedPeers int, now time.Time) bool {
	d.mu.Lock()
	defer d.mu.Unlock()

	if connectedPeers >= d.cfg.MinConnectedPeers {
		delete(d.belowSince, federation)
		return false
	}
	since, tracking := d.belowSince[federation]
	if !tracking {
		d.belowSince[federation] = now
		return false
	}
	return now.Sub(since) >= d.cfg.DetectionWindow
}

// IsPartitioned reports the last-known partition status for federation
// without recording a new observation.
func (d *PartitionDetector) IsPartitioned(federation string, now time.Time) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	since, tracking := d.belowSince[federation]
	if !tracking {
		return false
	}
	return now.Sub(since) >= d.cfg.DetectionWindow
}

// InFlightRoute is a route awaiting delivery or a checkpoint signature
// still in collection when its assigned peer disconnects.
type InFlightRoute struct {
	Peer           string
	Message        []byte
	Priority       Priority
	ChainCheckpoint bool // true if peer was a quorum validator for an open checkpoint
}

// DisconnectionHandler reassigns in-flight routes and extends
// signature-collection windows when a peer disconnects mid-operation, per
// spec.md 4.6's handle_peer_disconnection.
type DisconnectionHandler struct {
	Directory PeerDirectory
}

// ExtendWindow is how much longer a checkpoint's signature-collection
// window is extended when one of its assigned validators disconnects.
const ExtendWindow = 30 * time.Second

// Reassignment is the outcome of handling one peer's disconnection.
type Reassignment struct {
	Route           InFlightRoute
	ReassignedPeer  string
	WindowExtension time.Duration
}

// HandleDisconnection reassigns each of peer's in-flight routes to another
// peer sharing federation, extending the checkpoint signature window for
// any route that was collecting a quorum signature from peer.
func (h *DisconnectionHandler) HandleDisconnection(federation string, peer string, inFlight []InFlightRoute) []Reassignment {
	replacement := h.pickReplacement(federation, peer)
	out := make([]Reassignment, 0, len(inFlight))
	for _, route := range inFlight {
		if route.Peer != peer {
			continue
		}
		r := Reassignment{Route: route, ReassignedPeer: replacement}
		if route.ChainCheckpoint {
			r.WindowExtension = ExtendWindow
		}
		out = append(out, r)
	}
	return out
}

func (h *DisconnectionHandler) pickReplacement(federation, exclude string) string {
	for _, p := range h.Directory.PeersInFederation(federation) {
		if p.ID != exclude {
			return p.ID
		}
	}
	return ""
}
