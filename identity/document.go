package identity

import (
	"fmt"
	"time"

	"github.com/icn-project/icn-core/icnerr"
)

// VerificationMethodType enumerates the supported key material variants a
// DID document may bind. The set is polymorphic per spec.md 3: a document
// may mix Ed25519, X25519, Secp256k1, RSA and raw JWK methods.
type VerificationMethodType string

const (
	MethodEd25519   VerificationMethodType = "Ed25519VerificationKey2020"
	MethodX25519    VerificationMethodType = "X25519KeyAgreementKey2020"
	MethodSecp256k1 VerificationMethodType = "EcdsaSecp256k1VerificationKey2019"
	MethodRSA       VerificationMethodType = "RsaVerificationKey2018"
	MethodJWK       VerificationMethodType = "JsonWebKey2020"
)

// VerificationMethod binds an id to key material and an optional validity
// window.
type VerificationMethod struct {
	ID          string                 `json:"id"`
	Type        VerificationMethodType `json:"type"`
	KeyMaterial []byte                 `json:"key_material"`
	Created     time.Time              `json:"created"`
	Expires     *time.Time             `json:"expires,omitempty"`
	Revoked     bool                   `json:"revoked"`
}

// Active reports whether the method may currently be used.
func (m VerificationMethod) Active(now time.Time) bool {
	if m.Revoked {
		return false
	}
	if m.Expires != nil && !now.Before(*m.Expires) {
		return false
	}
	return true
}

// IdentityType enumerates the ICN metadata subject kinds.
type IdentityType string

const (
	IdentityPerson       IdentityType = "Person"
	IdentityOrganization IdentityType = "Organization"
	IdentityDevice       IdentityType = "Device"
	IdentityService      IdentityType = "Service"
	IdentityEphemeral    IdentityType = "Ephemeral"
)

// ProofOfPersonhood enumerates sybil-resistance variants.
type ProofOfPersonhood string

const (
	PopNone        ProofOfPersonhood = "None"
	PopWebOfTrust  ProofOfPersonhood = "WebOfTrust"
	PopBiometric   ProofOfPersonhood = "Biometric"
	PopGovernment  ProofOfPersonhood = "GovernmentId"
	PopSocialGraph ProofOfPersonhood = "SocialGraph"
)

// IcnMetadata carries the federation-aware identity fields spec.md 3
// requires alongside the base DID document: identity type, federation
// memberships, and a sybil-resistance rate-limit window.
type IcnMetadata struct {
	Type                IdentityType      `json:"type"`
	FederationMemberships []string        `json:"federation_memberships"`
	CreationManaCost    uint64            `json:"creation_mana_cost"`
	ProofOfPersonhood   ProofOfPersonhood `json:"proof_of_personhood"`
	RateLimitWindow     time.Duration     `json:"rate_limit_window"`
	EpochStart          time.Time         `json:"epoch_start"`
	EpochDuration       time.Duration     `json:"epoch_duration"`
	OpsThisEpoch        uint64            `json:"ops_this_epoch"`
	MaxOpsPerEpoch      uint64            `json:"max_ops_per_epoch"`
}

// ResetIfExpired resets the per-epoch operation counter when
// now >= epoch_start + epoch_duration, per spec.md 3's invariant.
func (m *IcnMetadata) ResetIfExpired(now time.Time) {
	if m.EpochDuration <= 0 {
		return
	}
	if !now.Before(m.EpochStart.Add(m.EpochDuration)) {
		m.EpochStart = now
		m.OpsThisEpoch = 0
	}
}

// RecordOp increments the epoch operation counter, rolling the epoch window
// forward first if it has elapsed. Returns ErrRateLimitExceeded if the
// configured ceiling would be exceeded.
func (m *IcnMetadata) RecordOp(now time.Time) error {
	m.ResetIfExpired(now)
	if m.MaxOpsPerEpoch > 0 && m.OpsThisEpoch >= m.MaxOpsPerEpoch {
		return fmt.Errorf("identity: %w", icnerr.ErrRateLimitExceeded)
	}
	m.OpsThisEpoch++
	return nil
}

// ServiceEndpoint is a named external service reference.
type ServiceEndpoint struct {
	ID              string `json:"id"`
	Type            string `json:"type"`
	ServiceEndpoint string `json:"service_endpoint"`
}

// Proof is an optional signature over the document's canonical form.
type Proof struct {
	VerificationMethodID string `json:"verification_method_id"`
	Signature            []byte `json:"signature"`
}

// Document is the polymorphic DID document described in spec.md 3.
type Document struct {
	Subject             Did                   `json:"subject"`
	Controllers         []Did                 `json:"controllers"`
	VerificationMethods []VerificationMethod  `json:"verification_methods"`
	Authentication      []string              `json:"authentication"`
	AssertionMethod     []string              `json:"assertion_method"`
	KeyAgreement        []string              `json:"key_agreement"`
	CapabilityDelegation []string             `json:"capability_delegation"`
	CapabilityInvocation []string             `json:"capability_invocation"`
	Services            []ServiceEndpoint     `json:"services"`
	Metadata            IcnMetadata           `json:"metadata"`
	Version             uint64                `json:"version"`
	Created             time.Time             `json:"created"`
	Updated             time.Time             `json:"updated"`
	Proof               *Proof                `json:"proof,omitempty"`
}

// methodIDs returns the set of ids declared in the verification method list.
func (d *Document) methodIDs() map[string]struct{} {
	set := make(map[string]struct{}, len(d.VerificationMethods))
	for _, m := range d.VerificationMethods {
		set[m.ID] = struct{}{}
	}
	return set
}

// ErrDanglingReference is returned by Validate when a reference list names an
// id absent from VerificationMethods.
type ErrDanglingReference struct {
	List string
	ID   string
}

func (e *ErrDanglingReference) Error() string {
	return fmt.Sprintf("identity: %s references unknown verification method %q", e.List, e.ID)
}

// Validate enforces invariant 1 from spec.md 8: every reference in
// authentication/assertion/keyAgreement/capability_* must resolve to a
// method id present in the same document.
func (d *Document) Validate() error {
	ids := d.methodIDs()
	check := func(list string, refs []string) error {
		for _, ref := range refs {
			if _, ok := ids[ref]; !ok {
				return &ErrDanglingReference{List: list, ID: ref}
			}
		}
		return nil
	}
	if err := check("authentication", d.Authentication); err != nil {
		return err
	}
	if err := check("assertion_method", d.AssertionMethod); err != nil {
		return err
	}
	if err := check("key_agreement", d.KeyAgreement); err != nil {
		return err
	}
	if err := check("capability_delegation", d.CapabilityDelegation); err != nil {
		return err
	}
	if err := check("capability_invocation", d.CapabilityInvocation); err != nil {
		return err
	}
	return nil
}

// Mutate applies fn to the document, then bumps Version and Updated per the
// lifecycle invariant that every mutation increments the version.
func (d *Document) Mutate(now time.Time, fn func(*Document)) {
	fn(d)
	d.Version++
	d.Updated = now
}

// IsController reports whether candidate is among the document's controllers
// or is the subject itself (self-controlled documents are common for
// Ephemeral/Device identities).
func (d *Document) IsController(candidate Did) bool {
	if d.Subject == candidate {
		return true
	}
	for _, c := range d.Controllers {
		if c == candidate {
			return true
		}
	}
	return false
}

// MethodByID looks up a verification method by id.
func (d *Document) MethodByID(id string) (*VerificationMethod, bool) {
	for i := range d.VerificationMethods {
		if d.VerificationMethods[i].ID == id {
			return &d.VerificationMethods[i], true
		}
	}
	return nil, false
}
