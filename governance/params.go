package governance

// Typed parameter keys understood by execute_proposal's parameter-change
// action, mirroring the teacher's flat ParamKey* registry convention.
const (
	ParamKeyManaBaseRate             = "mana.baseRate"
	ParamKeyManaEmergencyFactor      = "mana.emergencyModulationFactor"
	ParamKeyTrustDegradationFactor   = "trust.degradationFactor"
	ParamKeyGovernanceQuorum         = "governance.quorumRequirement"
	ParamKeyGovernanceThreshold      = "governance.votingThreshold"
	ParamKeyGovernanceMaxPreferences = "governance.maxPreferences"
	ParamKeyArchiveMinRegions        = "archive.minRegions"
	ParamKeyRouterBackoffBaseMs      = "router.backoffBaseMs"
)

// ParamValue is the typed payload of a parameter-change action. Exactly one
// of the fields is meaningful for a given key.
type ParamValue struct {
	Key       string
	Float     float64
	Uint      uint64
	Bool      bool
	StringVal string
}

// ParamStore receives validated parameter changes applied by a passed
// proposal's execute_proposal action; implemented by the runtime composition
// root over whichever component owns the named parameter.
type ParamStore interface {
	SetParam(key string, value ParamValue) error
}

// MembershipAction describes a federation membership-change action.
type MembershipAction struct {
	Federation string
	Add        []string
	Remove     []string
}

// BridgeCreationAction describes a federation trust-bridge-creation action.
type BridgeCreationAction struct {
	FromFederation string
	ToFederation   string
	BridgeLevel    float64
	Bidirectional  bool
}

// ExecutionAction is the tagged union of the three action kinds a proposal
// can carry. Engine.ExecuteProposal applies only ParamChange; Membership and
// Bridge are not applied.
type ExecutionAction struct {
	ParamChange *ParamValue
	Membership  *MembershipAction
	Bridge      *BridgeCreationAction
}
