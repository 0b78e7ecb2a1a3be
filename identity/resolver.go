package identity

import (
	"fmt"

	"github.com/icn-project/icn-core/crypto"
	"github.com/icn-project/icn-core/icnerr"
)

// Resolver resolves a Did to its current verifying key. Implementations may
// consult a DID document store for methods other than "key".
type Resolver interface {
	Resolve(did Did) (*crypto.VerifyingKey, error)
}

// KeyMethodResolver resolves did:key identifiers directly from their
// self-describing multibase payload without any external lookup, and
// delegates everything else to a fallback resolver (typically backed by a
// DID document store for did:web/did:peer).
type KeyMethodResolver struct {
	Fallback Resolver
}

// Resolve implements Resolver.
func (r *KeyMethodResolver) Resolve(did Did) (*crypto.VerifyingKey, error) {
	if err := ValidateDid(did); err != nil {
		return nil, fmt.Errorf("identity: %w", icnerr.ErrMalformedIdentifier)
	}
	switch did.Method {
	case "key":
		vk, err := crypto.VerifyingKeyFromDidKey(did.String())
		if err != nil {
			return nil, fmt.Errorf("identity: %w", icnerr.ErrMalformedIdentifier)
		}
		return vk, nil
	case "web", "peer":
		if r.Fallback == nil {
			return nil, fmt.Errorf("identity: %w: resolution of did:%s requires a document store", icnerr.ErrUnsupportedMethod, did.Method)
		}
		return r.Fallback.Resolve(did)
	default:
		return nil, fmt.Errorf("identity: %w", icnerr.ErrUnsupportedMethod)
	}
}

// DocumentStore is the minimal persistence seam a fallback resolver needs.
type DocumentStore interface {
	GetDocument(did Did) (*Document, bool)
}

// DocumentResolver resolves a Did against an explicit document store by
// following the subject's current authentication verification method.
type DocumentResolver struct {
	Store DocumentStore
}

// Resolve implements Resolver.
func (r *DocumentResolver) Resolve(did Did) (*crypto.VerifyingKey, error) {
	doc, ok := r.Store.GetDocument(did)
	if !ok {
		return nil, fmt.Errorf("identity: %w", icnerr.ErrMalformedIdentifier)
	}
	if len(doc.Authentication) == 0 {
		return nil, fmt.Errorf("identity: %w: no authentication method", icnerr.ErrMalformedIdentifier)
	}
	method, ok := doc.MethodByID(doc.Authentication[0])
	if !ok || method.Type != MethodEd25519 {
		return nil, fmt.Errorf("identity: %w", icnerr.ErrUnsupportedMethod)
	}
	vk, err := bytesToVerifyingKey(method.KeyMaterial)
	if err != nil {
		return nil, fmt.Errorf("identity: %w", icnerr.ErrMalformedIdentifier)
	}
	return vk, nil
}

func bytesToVerifyingKey(raw []byte) (*crypto.VerifyingKey, error) {
	return crypto.VerifyingKeyFromRaw(raw)
}

// Sign produces a signature with the hardened timing-leveled path.
func Sign(sk *crypto.SigningKey, msg []byte) ([]byte, error) {
	return sk.SignHardened(msg)
}

// Verify resolves did's verifying key and checks sig against msg. Failures
// always surface a uniform reason regardless of whether resolution or
// signature verification failed, per spec.md 7's anti-oracle requirement.
func Verify(r Resolver, did Did, msg, sig []byte) bool {
	vk, err := r.Resolve(did)
	if err != nil {
		return false
	}
	return vk.VerifyHardened(msg, sig)
}
