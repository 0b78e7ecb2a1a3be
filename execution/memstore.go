package execution

import "sync"

// MemoryContractStore is an in-process ContractStore keyed by manifest CID,
// used by runtime.Context and by tests that don't need durable persistence.
type MemoryContractStore struct {
	mu        sync.RWMutex
	contracts map[string]Contract
}

// NewMemoryContractStore constructs an empty in-memory contract store.
func NewMemoryContractStore() *MemoryContractStore {
	return &MemoryContractStore{contracts: make(map[string]Contract)}
}

// Get returns the contract stored under manifestCid, if any.
func (s *MemoryContractStore) Get(manifestCid string) (Contract, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	c, ok := s.contracts[manifestCid]
	return c, ok
}

// Put stores c under its ManifestCid, which the caller is responsible for
// having derived from the DAG store beforehand (Executor.Deploy does this).
func (s *MemoryContractStore) Put(c Contract) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.contracts[c.ManifestCid] = c
	return c.ManifestCid, nil
}
