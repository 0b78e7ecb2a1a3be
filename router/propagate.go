package router

import (
	"context"
	"sort"
	"time"

	"golang.org/x/sync/errgroup"
)

// PeerInfo describes a known peer's federation membership and scoring,
// enough for propagate's selection rules.
type PeerInfo struct {
	ID          string
	Federations map[string]bool
	Reputation  int
	TrustScore  float64
}

// PeerDirectory resolves the current candidate peer set for a federation.
type PeerDirectory interface {
	PeersInFederation(federation string) []PeerInfo
}

// Event is a governance or job message propagated across the router,
// replacing the teacher's block/tx gossip payloads.
type Event struct {
	Federation string
	Topic      string
	Payload    []byte
}

// Propagator fans an event out to peers selected per spec.md 4.6's
// priority rules, sending concurrently and bounding how many peers a
// Normal-priority event reaches.
type Propagator struct {
	Directory    PeerDirectory
	Breakers     *CircuitBreakerRegistry
	Sender       Sender
	Retry        RetryConfig
	NormalBudget int
}

// NewPropagator constructs a Propagator with spec defaults.
func NewPropagator(dir PeerDirectory, breakers *CircuitBreakerRegistry, sender Sender) *Propagator {
	return &Propagator{
		Directory:    dir,
		Breakers:     breakers,
		Sender:       sender,
		Retry:        DefaultRetryConfig,
		NormalBudget: DefaultNormalFanoutBudget,
	}
}

// Propagate fans event out to the peer set selected for priority, returning
// the selected peers and the first error encountered. The first failed send
// cancels the shared context, so sends that have not yet started are skipped.
func (p *Propagator) Propagate(ctx context.Context, event Event, priority Priority, now time.Time) ([]string, error) {
	candidates := p.Directory.PeersInFederation(event.Federation)
	targets := selectTargets(candidates, priority, p.NormalBudget)
	if len(targets) == 0 {
		return nil, nil
	}

	group, gctx := errgroup.WithContext(ctx)
	for _, peer := range targets {
		peer := peer
		group.Go(func() error {
			select {
			case <-gctx.Done():
				return gctx.Err()
			default:
			}
			return RouteTo(p.Breakers, p.Sender, peer, event.Payload, priority, p.Retry, now)
		})
	}
	err := group.Wait()
	return targets, err
}

// selectTargets implements spec.md 4.6's per-priority fanout rule: Critical
// reaches every peer in the federation; High is weighted toward higher
// reputation/trust; Normal is a budget-bounded subset of the candidate set
// (callers wanting randomized selection should shuffle candidates before
// calling, since this package avoids nondeterministic ordering on its own);
// Low is opportunistic (no dedicated fanout — piggybacks on other traffic,
// modeled here as the empty set, since the router has no separate
// "outbound traffic" channel to attach to without a live transport).
func selectTargets(candidates []PeerInfo, priority Priority, normalBudget int) []string {
	switch priority {
	case Critical:
		out := make([]string, 0, len(candidates))
		for _, c := range candidates {
			out = append(out, c.ID)
		}
		return out
	case High:
		sorted := append([]PeerInfo(nil), candidates...)
		sort.Slice(sorted, func(i, j int) bool {
			if sorted[i].TrustScore != sorted[j].TrustScore {
				return sorted[i].TrustScore > sorted[j].TrustScore
			}
			return sorted[i].Reputation > sorted[j].Reputation
		})
		out := make([]string, 0, len(sorted))
		for _, c := range sorted {
			out = append(out, c.ID)
		}
		return out
	case Normal:
		out := make([]string, 0, normalBudget)
		for i, c := range candidates {
			if i >= normalBudget {
				break
			}
			out = append(out, c.ID)
		}
		return out
	default: // Low: opportunistic, no dedicated fanout.
		return nil
	}
}
