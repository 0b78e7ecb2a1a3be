package dagstore

import (
	"bytes"
	"compress/gzip"
	"crypto/sha256"
	"fmt"
	"io"

	"github.com/klauspost/compress/zstd"

	"github.com/icn-project/icn-core/icnerr"
)

// Compression identifies the snapshot payload encoding.
type Compression int

const (
	CompressionNone Compression = iota
	CompressionGzip
	CompressionZstd
)

// SnapshotMetadata describes a DagSnapshot's integrity envelope.
type SnapshotMetadata struct {
	ContentHash [32]byte
	BlockCount  int
	TotalSize   int64
	Compression Compression
}

// DagSnapshot is a portable export of the store's blocks.
type DagSnapshot struct {
	Metadata       SnapshotMetadata
	Blocks         []Block
	BlockMetadata  map[string]map[string]string // optional per-block annotations
}

// contentHash computes SHA-256 over (cid_string || data) for every block,
// sorted ascending by CID string, per spec.md 4.2.
func contentHash(blocks []Block) [32]byte {
	sorted := make([]Block, len(blocks))
	copy(sorted, blocks)
	sortBlocksByCid(sorted)
	h := sha256.New()
	for _, b := range sorted {
		h.Write([]byte(b.Cid.String()))
		h.Write(b.Data)
	}
	var out [32]byte
	copy(out[:], h.Sum(nil))
	return out
}

func sortBlocksByCid(blocks []Block) {
	for i := 1; i < len(blocks); i++ {
		for j := i; j > 0 && blocks[j-1].Cid.String() > blocks[j].Cid.String(); j-- {
			blocks[j-1], blocks[j] = blocks[j], blocks[j-1]
		}
	}
}

// Snapshot produces a DagSnapshot over every currently-persisted block.
func (s *Store) Snapshot(compression Compression) (DagSnapshot, error) {
	blocks, err := s.ListBlocks()
	if err != nil {
		return DagSnapshot{}, err
	}
	var totalSize int64
	for _, b := range blocks {
		totalSize += int64(len(b.Data))
	}
	return DagSnapshot{
		Metadata: SnapshotMetadata{
			ContentHash: contentHash(blocks),
			BlockCount:  len(blocks),
			TotalSize:   totalSize,
			Compression: compression,
		},
		Blocks: blocks,
	}, nil
}

// ApplySnapshot writes every block in snap; order does not matter since
// CIDs are self-verifying.
func (s *Store) ApplySnapshot(snap DagSnapshot) error {
	for _, b := range snap.Blocks {
		if err := s.Put(b); err != nil {
			return err
		}
	}
	return nil
}

// VerifySnapshot recomputes the content hash, block count, and total size,
// and asserts block.Cid == cid for every entry — invariant 3 of spec.md 8.
func VerifySnapshot(snap DagSnapshot) error {
	if snap.Metadata.BlockCount != len(snap.Blocks) {
		return fmt.Errorf("dagstore: %w: block count mismatch", icnerr.ErrValidationMismatch)
	}
	var totalSize int64
	for _, b := range snap.Blocks {
		if !b.VerifyCid() {
			return fmt.Errorf("dagstore: %w: cid mismatch for block %s", icnerr.ErrValidationMismatch, b.Cid)
		}
		totalSize += int64(len(b.Data))
	}
	if totalSize != snap.Metadata.TotalSize {
		return fmt.Errorf("dagstore: %w: total size mismatch", icnerr.ErrValidationMismatch)
	}
	if contentHash(snap.Blocks) != snap.Metadata.ContentHash {
		return fmt.Errorf("dagstore: %w: content hash mismatch", icnerr.ErrValidationMismatch)
	}
	return nil
}

// Compress encodes raw according to the requested Compression scheme.
func Compress(raw []byte, c Compression) ([]byte, error) {
	switch c {
	case CompressionNone:
		return raw, nil
	case CompressionGzip:
		var buf bytes.Buffer
		w := gzip.NewWriter(&buf)
		if _, err := w.Write(raw); err != nil {
			return nil, err
		}
		if err := w.Close(); err != nil {
			return nil, err
		}
		return buf.Bytes(), nil
	case CompressionZstd:
		enc, err := zstd.NewWriter(nil)
		if err != nil {
			return nil, fmt.Errorf("dagstore: %w", icnerr.ErrNotImplemented)
		}
		defer enc.Close()
		return enc.EncodeAll(raw, nil), nil
	default:
		return nil, fmt.Errorf("dagstore: %w: unknown compression", icnerr.ErrNotImplemented)
	}
}

// Decompress reverses Compress.
func Decompress(data []byte, c Compression) ([]byte, error) {
	switch c {
	case CompressionNone:
		return data, nil
	case CompressionGzip:
		r, err := gzip.NewReader(bytes.NewReader(data))
		if err != nil {
			return nil, err
		}
		defer r.Close()
		return io.ReadAll(r)
	case CompressionZstd:
		dec, err := zstd.NewReader(nil)
		if err != nil {
			return nil, fmt.Errorf("dagstore: %w", icnerr.ErrNotImplemented)
		}
		defer dec.Close()
		return dec.DecodeAll(data, nil)
	default:
		return nil, fmt.Errorf("dagstore: %w: unknown compression", icnerr.ErrNotImplemented)
	}
}
