// Package dagstore implements the content-addressed DAG block store (C2):
// put/get, link indexing, snapshots, checkpoints, a sync monitor for
// missing blocks, and erasure-coded archival.
package dagstore

import (
	"crypto/sha256"
	"encoding/binary"
	"fmt"
	"sort"
	"time"

	"github.com/fxamacker/cbor/v2"
	"github.com/ipfs/go-cid"
	"github.com/multiformats/go-multihash"
)

// Codec identifies the content encoding of a block's data.
const (
	CodecRaw     = 0x55
	CodecDagCbor = 0x71
)

// Scope optionally restricts a block's relevance to a federation.
type Scope string

// Block is an immutable DAG node: content plus links to other blocks.
type Block struct {
	Cid       cid.Cid   `json:"cid"`
	Codec     uint64    `json:"codec"`
	Data      []byte    `json:"data"`
	Links     []cid.Cid `json:"links"`
	Timestamp time.Time `json:"timestamp"`
	Author    string    `json:"author_did"`
	Signature []byte    `json:"signature,omitempty"`
	Scope     Scope     `json:"scope,omitempty"`

	InsertedAt time.Time `json:"inserted_at"`
}

// signablePayload is the canonical CBOR-encoded structure whose SHA-256
// digest becomes the block's multihash, per spec.md 6:
// "cid = merkle(codec, data, links, timestamp, author, signature, scope)".
type signablePayload struct {
	Codec     uint64
	Data      []byte
	Links     []string
	Timestamp int64
	Author    string
	Signature []byte
	Scope     string
}

func (b *Block) merkleInput() ([]byte, error) {
	links := make([]string, len(b.Links))
	for i, l := range b.Links {
		links[i] = l.String()
	}
	payload := signablePayload{
		Codec:     b.Codec,
		Data:      b.Data,
		Links:     links,
		Timestamp: b.Timestamp.UnixNano(),
		Author:    b.Author,
		Signature: b.Signature,
		Scope:     string(b.Scope),
	}
	return cbor.Marshal(payload)
}

// ComputeCid derives the CIDv1 for the block's current fields: SHA-256 over
// the canonical CBOR merkle input, tagged with the block's codec.
func (b *Block) ComputeCid() (cid.Cid, error) {
	input, err := b.merkleInput()
	if err != nil {
		return cid.Undef, fmt.Errorf("dagstore: %w", err)
	}
	sum := sha256.Sum256(input)
	mh, err := multihash.Encode(sum[:], multihash.SHA2_256)
	if err != nil {
		return cid.Undef, fmt.Errorf("dagstore: %w", err)
	}
	return cid.NewCidV1(b.Codec, mh), nil
}

// NewBlock constructs and CID-stamps a block from its fields.
func NewBlock(codec uint64, data []byte, links []cid.Cid, timestamp time.Time, author string, signature []byte, scope Scope) (Block, error) {
	b := Block{
		Codec:     codec,
		Data:      data,
		Links:     links,
		Timestamp: timestamp,
		Author:    author,
		Signature: signature,
		Scope:     scope,
	}
	c, err := b.ComputeCid()
	if err != nil {
		return Block{}, err
	}
	b.Cid = c
	return b, nil
}

// VerifyCid reports whether b.Cid matches merkle(b) — invariant 2 of
// spec.md 8.
func (b *Block) VerifyCid() bool {
	c, err := b.ComputeCid()
	if err != nil {
		return false
	}
	return c.Equals(b.Cid)
}

// ResultCid computes the canonical CID of a job's raw result bytes:
// CIDv1(raw, SHA-256(result_bytes)).
func ResultCid(resultBytes []byte) (cid.Cid, error) {
	sum := sha256.Sum256(resultBytes)
	mh, err := multihash.Encode(sum[:], multihash.SHA2_256)
	if err != nil {
		return cid.Undef, err
	}
	return cid.NewCidV1(CodecRaw, mh), nil
}

// CidForUint64LE builds the canonical CID of a little-endian-encoded u64, as
// used by end-to-end scenario S8 for a trivial WASM job returning an
// integer.
func CidForUint64LE(v uint64) (cid.Cid, error) {
	buf := make([]byte, 8)
	binary.LittleEndian.PutUint64(buf, v)
	return ResultCid(buf)
}

// sortedCidStrings returns the sorted string form of a set of CIDs, used by
// snapshot content-hash and dag_root computation.
func sortedCidStrings(cids []cid.Cid) []string {
	out := make([]string, len(cids))
	for i, c := range cids {
		out[i] = c.String()
	}
	sort.Strings(out)
	return out
}
