package crypto

import (
	"crypto/ed25519"
	"crypto/rand"
	"errors"
	"fmt"
	"time"

	"github.com/multiformats/go-multibase"
)

// multicodecEd25519Pub is the multicodec varint prefix (0xed, 0x01) used to
// tag raw Ed25519 public key bytes inside a did:key identifier.
var multicodecEd25519Pub = []byte{0xed, 0x01}

// SigningKey is an Ed25519 private key used to sign execution receipts,
// ballots, attestations, and checkpoint validator signatures.
type SigningKey struct {
	priv ed25519.PrivateKey
}

// VerifyingKey is the public half of a SigningKey.
type VerifyingKey struct {
	pub ed25519.PublicKey
}

// GenerateSigningKey creates a fresh Ed25519 keypair.
func GenerateSigningKey() (*SigningKey, error) {
	pub, priv, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		return nil, err
	}
	_ = pub
	return &SigningKey{priv: priv}, nil
}

// SigningKeyFromSeed deterministically derives a key from a 32-byte seed.
func SigningKeyFromSeed(seed []byte) (*SigningKey, error) {
	if len(seed) != ed25519.SeedSize {
		return nil, fmt.Errorf("crypto: seed must be %d bytes", ed25519.SeedSize)
	}
	return &SigningKey{priv: ed25519.NewKeyFromSeed(seed)}, nil
}

// Seed returns the 32-byte seed this key was generated or derived from,
// suitable for persisting to a key file and reloading via
// SigningKeyFromSeed.
func (k *SigningKey) Seed() []byte {
	seed := make([]byte, ed25519.SeedSize)
	copy(seed, k.priv.Seed())
	return seed
}

// VerifyingKey returns the public counterpart.
func (k *SigningKey) VerifyingKey() *VerifyingKey {
	pub := make(ed25519.PublicKey, ed25519.PublicKeySize)
	copy(pub, k.priv.Public().(ed25519.PublicKey))
	return &VerifyingKey{pub: pub}
}

// Bytes returns the raw 32-byte public key.
func (v *VerifyingKey) Bytes() []byte {
	out := make([]byte, len(v.pub))
	copy(out, v.pub)
	return out
}

// Equal reports whether two verifying keys hold the same bytes.
func (v *VerifyingKey) Equal(other *VerifyingKey) bool {
	if v == nil || other == nil {
		return v == other
	}
	return string(v.pub) == string(other.pub)
}

// minOperationDuration levels timing side-channels on hardened sign/verify
// paths per spec.md 4.1 ("sleep to a minimum operation duration").
const minOperationDuration = 200 * time.Microsecond

// maxInputLength bounds message size accepted by hardened operations.
const maxInputLength = 1 << 20

// Sign produces a raw 64-byte Ed25519 signature over msg.
func (k *SigningKey) Sign(msg []byte) []byte {
	return ed25519.Sign(k.priv, msg)
}

// SignHardened rejects empty or oversized messages and levels timing by
// sleeping to a minimum operation duration before returning.
func (k *SigningKey) SignHardened(msg []byte) ([]byte, error) {
	start := time.Now()
	defer levelTiming(start)
	if len(msg) == 0 {
		return nil, errors.New("crypto: empty message")
	}
	if len(msg) > maxInputLength {
		return nil, errors.New("crypto: message too large")
	}
	return ed25519.Sign(k.priv, msg), nil
}

// Verify reports whether sig is a valid Ed25519 signature over msg by v.
func (v *VerifyingKey) Verify(msg, sig []byte) bool {
	if v == nil || len(v.pub) != ed25519.PublicKeySize {
		return false
	}
	return ed25519.Verify(v.pub, msg, sig)
}

// VerifyHardened additionally rejects empty/oversized messages and levels
// timing, returning a uniform false rather than distinguishing failure modes.
func (v *VerifyingKey) VerifyHardened(msg, sig []byte) bool {
	start := time.Now()
	defer levelTiming(start)
	if len(msg) == 0 || len(msg) > maxInputLength {
		return false
	}
	return v.Verify(msg, sig)
}

// VerifyingKeyFromRaw wraps a raw 32-byte Ed25519 public key.
func VerifyingKeyFromRaw(raw []byte) (*VerifyingKey, error) {
	if len(raw) != ed25519.PublicKeySize {
		return nil, errors.New("crypto: invalid public key length")
	}
	pub := make(ed25519.PublicKey, ed25519.PublicKeySize)
	copy(pub, raw)
	return &VerifyingKey{pub: pub}, nil
}

func levelTiming(start time.Time) {
	elapsed := time.Since(start)
	if elapsed < minOperationDuration {
		time.Sleep(minOperationDuration - elapsed)
	}
}

// DidKeyFromVerifyingKey encodes v as a did:key identifier:
// "did:key:z" + multibase-base58btc(multicodec(0xed,0x01) || raw pubkey).
func DidKeyFromVerifyingKey(v *VerifyingKey) (string, error) {
	if v == nil || len(v.pub) != ed25519.PublicKeySize {
		return "", errors.New("crypto: invalid verifying key")
	}
	payload := make([]byte, 0, len(multicodecEd25519Pub)+len(v.pub))
	payload = append(payload, multicodecEd25519Pub...)
	payload = append(payload, v.pub...)
	encoded, err := multibase.Encode(multibase.Base58BTC, payload)
	if err != nil {
		return "", err
	}
	return "did:key:" + encoded, nil
}

// VerifyingKeyFromDidKey decodes a did:key identifier back to a VerifyingKey.
func VerifyingKeyFromDidKey(did string) (*VerifyingKey, error) {
	const prefix = "did:key:"
	if len(did) <= len(prefix) || did[:len(prefix)] != prefix {
		return nil, errors.New("crypto: not a did:key identifier")
	}
	encoded := did[len(prefix):]
	enc, payload, err := multibase.Decode(encoded)
	if err != nil {
		return nil, errors.New("crypto: malformed multibase")
	}
	if enc != multibase.Base58BTC {
		return nil, errors.New("crypto: did:key requires base58btc")
	}
	if len(payload) != len(multicodecEd25519Pub)+ed25519.PublicKeySize {
		return nil, errors.New("crypto: unexpected did:key payload length")
	}
	if payload[0] != multicodecEd25519Pub[0] || payload[1] != multicodecEd25519Pub[1] {
		return nil, errors.New("crypto: unsupported did:key multicodec")
	}
	pub := make(ed25519.PublicKey, ed25519.PublicKeySize)
	copy(pub, payload[len(multicodecEd25519Pub):])
	return &VerifyingKey{pub: pub}, nil
}
