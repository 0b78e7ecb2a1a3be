package dagstore

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/ipfs/go-cid"

	"github.com/icn-project/icn-core/storage"
)

func newTestManager(t *testing.T) *CheckpointManager {
	t.Helper()
	return NewCheckpointManager(nil)
}

func oneValidatorSigner() []Signer {
	return []Signer{
		func(validator string, signable []byte) ValidatorSignature {
			return ValidatorSignature{Validator: validator, Signature: []byte("sig")}
		},
	}
}

func TestCreateCheckpointRequiresQuorum(t *testing.T) {
	m := newTestManager(t)
	m.SetValidators("fed-a", []string{"validator-1"})
	_, err := m.CreateCheckpoint("fed-a", 1, cid.Undef, cid.Undef, nil, nil, nil, time.Now())
	if err == nil {
		t.Fatal("expected CreateCheckpoint to refuse a checkpoint with zero validator signatures")
	}
}

func TestCreateCheckpointRejectsNonIncreasingEpoch(t *testing.T) {
	m := newTestManager(t)
	m.SetValidators("fed-a", []string{"validator-1"})
	if _, err := m.CreateCheckpoint("fed-a", 1, cid.Undef, cid.Undef, nil, nil, oneValidatorSigner(), time.Now()); err != nil {
		t.Fatalf("CreateCheckpoint epoch 1: %v", err)
	}
	if _, err := m.CreateCheckpoint("fed-a", 1, cid.Undef, cid.Undef, nil, nil, oneValidatorSigner(), time.Now()); err == nil {
		t.Fatal("expected a repeated epoch to be rejected")
	}
}

func TestCheckpointManagerSurvivesRestartWithPersistence(t *testing.T) {
	path := filepath.Join(t.TempDir(), "checkpoints.sqlite")
	persist, err := storage.NewSQLiteStore(path)
	if err != nil {
		t.Fatalf("NewSQLiteStore: %v", err)
	}
	defer persist.Close()

	before := newTestManager(t)
	before.SetPersistence(persist)
	before.SetValidators("fed-a", []string{"validator-1"})
	created, err := before.CreateCheckpoint("fed-a", 1, cid.Undef, cid.Undef, nil, nil, oneValidatorSigner(), time.Now())
	if err != nil {
		t.Fatalf("CreateCheckpoint: %v", err)
	}

	// Simulate a process restart: a fresh manager with no in-memory state,
	// wired to the same durable side table.
	after := newTestManager(t)
	after.SetPersistence(persist)
	got, ok := after.Latest("fed-a")
	if !ok {
		t.Fatal("expected the fresh manager to recover the checkpoint from sqlite")
	}
	if got.CheckpointID != created.CheckpointID {
		t.Fatalf("expected recovered checkpoint id %q, got %q", created.CheckpointID, got.CheckpointID)
	}
}

func TestCheckpointManagerWithoutPersistenceForgetsOnRestart(t *testing.T) {
	before := newTestManager(t)
	before.SetValidators("fed-a", []string{"validator-1"})
	if _, err := before.CreateCheckpoint("fed-a", 1, cid.Undef, cid.Undef, nil, nil, oneValidatorSigner(), time.Now()); err != nil {
		t.Fatalf("CreateCheckpoint: %v", err)
	}

	after := newTestManager(t)
	if _, ok := after.Latest("fed-a"); ok {
		t.Fatal("expected a manager with no persistence configured to have nothing to recover")
	}
}
