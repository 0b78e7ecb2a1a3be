package dagstore

import (
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/ipfs/go-cid"

	"github.com/icn-project/icn-core/icnerr"
	"github.com/icn-project/icn-core/storage"
)

const blockKeyPrefix = "dag/block/"

func blockKey(c cid.Cid) []byte {
	return []byte(blockKeyPrefix + c.String())
}

// Store is the content-addressed block store (C2's put/get/list/delete).
// Persistence is backed by any storage.Database that also implements
// Deleter and Iterator (LevelDB, BoltDB, or MemDB).
type Store struct {
	mu        sync.RWMutex
	db        storage.Database
	del       storage.Deleter
	it        storage.Iterator
	links     map[string][]cid.Cid // cid -> links
	refBy     map[string]map[string]struct{} // cid -> referenced_by set
	pinned    map[string]struct{}

	monitor *SyncMonitor
}

// NewStore constructs a Store over db. db must also implement
// storage.Deleter and storage.Iterator.
func NewStore(db storage.Database) (*Store, error) {
	del, ok := db.(storage.Deleter)
	if !ok {
		return nil, fmt.Errorf("dagstore: backend does not support delete")
	}
	it, ok := db.(storage.Iterator)
	if !ok {
		return nil, fmt.Errorf("dagstore: backend does not support iteration")
	}
	s := &Store{
		db:     db,
		del:    del,
		it:     it,
		links:  make(map[string][]cid.Cid),
		refBy:  make(map[string]map[string]struct{}),
		pinned: make(map[string]struct{}),
	}
	s.monitor = NewSyncMonitor(s)
	// Rehydrate the link index from persisted blocks.
	_ = s.it.IteratePrefix([]byte(blockKeyPrefix), func(_, value []byte) error {
		var b Block
		if err := json.Unmarshal(value, &b); err != nil {
			return nil
		}
		s.indexLinksLocked(b)
		return nil
	})
	return s, nil
}

// Monitor returns the store's sync monitor.
func (s *Store) Monitor() *SyncMonitor { return s.monitor }

// Pin marks a CID as a root that Delete must refuse to remove.
func (s *Store) Pin(c cid.Cid) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.pinned[c.String()] = struct{}{}
}

// Put validates b.Cid == merkle(b), persists it exactly once, indexes its
// links, and signals the sync monitor of newly-discovered missing links.
func (s *Store) Put(b Block) error {
	if !b.VerifyCid() {
		return fmt.Errorf("dagstore: %w: cid does not match block content", icnerr.ErrDagError)
	}
	key := blockKey(b.Cid)

	s.mu.Lock()
	if _, err := s.db.Get(key); err == nil {
		s.mu.Unlock()
		return nil // idempotent: already persisted
	}
	s.mu.Unlock()

	encoded, err := json.Marshal(b)
	if err != nil {
		return fmt.Errorf("dagstore: %w", icnerr.ErrSerializationError)
	}
	if err := s.db.Put(key, encoded); err != nil {
		return fmt.Errorf("dagstore: %w: %v", icnerr.ErrIoError, err)
	}

	s.mu.Lock()
	s.indexLinksLocked(b)
	s.mu.Unlock()

	s.monitor.onPut(b)
	s.monitor.checkReferences(b)
	return nil
}

func (s *Store) indexLinksLocked(b Block) {
	s.links[b.Cid.String()] = b.Links
	for _, link := range b.Links {
		set, ok := s.refBy[link.String()]
		if !ok {
			set = make(map[string]struct{})
			s.refBy[link.String()] = set
		}
		set[b.Cid.String()] = struct{}{}
	}
}

// Get returns the block for c or ErrNotFound.
func (s *Store) Get(c cid.Cid) (Block, error) {
	raw, err := s.db.Get(blockKey(c))
	if err != nil {
		return Block{}, fmt.Errorf("dagstore: %w", icnerr.ErrNotFound)
	}
	var b Block
	if err := json.Unmarshal(raw, &b); err != nil {
		return Block{}, fmt.Errorf("dagstore: %w", icnerr.ErrSerializationError)
	}
	return b, nil
}

// ListBlocks returns every persisted block.
func (s *Store) ListBlocks() ([]Block, error) {
	var out []Block
	err := s.it.IteratePrefix([]byte(blockKeyPrefix), func(_, value []byte) error {
		var b Block
		if err := json.Unmarshal(value, &b); err != nil {
			return fmt.Errorf("dagstore: %w", icnerr.ErrSerializationError)
		}
		out = append(out, b)
		return nil
	})
	return out, err
}

// ListLinks returns the outbound links recorded for c.
func (s *Store) ListLinks(c cid.Cid) []cid.Cid {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]cid.Cid(nil), s.links[c.String()]...)
}

// ReferencedBy returns the set of CIDs that reference c.
func (s *Store) ReferencedBy(c cid.Cid) []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	set := s.refBy[c.String()]
	out := make([]string, 0, len(set))
	for k := range set {
		out = append(out, k)
	}
	return out
}

// Delete removes c, refusing if it is pinned by any root.
func (s *Store) Delete(c cid.Cid) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, pinned := s.pinned[c.String()]; pinned {
		return fmt.Errorf("dagstore: cannot delete pinned block")
	}
	if err := s.del.Delete(blockKey(c)); err != nil {
		return fmt.Errorf("dagstore: %w: %v", icnerr.ErrIoError, err)
	}
	delete(s.links, c.String())
	return nil
}

// Anchor implements identity.Anchorer: it writes an unsigned, unlinked raw
// block whose payload is data and returns the resulting CID string. This is
// the seam identity's attestation/verification flows use to anchor audit
// events without owning a reference back to the DAG store.
func (s *Store) Anchor(data []byte, linkStrs []string) (string, error) {
	links := make([]cid.Cid, 0, len(linkStrs))
	for _, ls := range linkStrs {
		c, err := cid.Decode(ls)
		if err != nil {
			return "", fmt.Errorf("dagstore: %w: %v", icnerr.ErrDagError, err)
		}
		links = append(links, c)
	}
	b, err := NewBlock(CodecRaw, data, links, time.Now().UTC(), "", nil, "")
	if err != nil {
		return "", err
	}
	if err := s.Put(b); err != nil {
		return "", err
	}
	return b.Cid.String(), nil
}
