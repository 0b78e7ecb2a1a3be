package execution

import "time"

// ResourceLimits bounds a single job execution. MaxEventsPerCall and
// MaxComputeUnits are checked in the emit_event and consume_compute host
// calls, and WallClockTimeout bounds the run. MaxStackDepth and MaxCallDepth
// are not enforced, and MaxMemoryBytes is not applied to a running instance
// (callers pass it to Deploy as the maximum code size).
type ResourceLimits struct {
	MaxMemoryBytes   uint32
	MaxStackDepth    uint32
	MaxCallDepth     uint32
	MaxEventsPerCall uint32
	MaxComputeUnits  uint64
	WallClockTimeout time.Duration
}

// DefaultResourceLimits is a conservative default suitable for most jobs.
var DefaultResourceLimits = ResourceLimits{
	MaxMemoryBytes:   16 * 1024 * 1024,
	MaxStackDepth:    1024,
	MaxCallDepth:     128,
	MaxEventsPerCall: 64,
	MaxComputeUnits:  10_000_000,
	WallClockTimeout: 5 * time.Second,
}

// DeploymentCostParams configures deploy's cost formula: base +
// storage_cost_per_byte*len(code) + complexity_cost.
type DeploymentCostParams struct {
	Base                uint64
	StorageCostPerByte  uint64
	ComplexityCost      uint64
}

// DefaultDeploymentCostParams is the cost schedule NewExecutor installs: a
// flat base, one unit per code byte, and a flat complexity charge.
var DefaultDeploymentCostParams = DeploymentCostParams{
	Base:               100,
	StorageCostPerByte: 1,
	ComplexityCost:     50,
}

// Cost computes the total mana cost of deploying codeLen bytes of WASM.
func (p DeploymentCostParams) Cost(codeLen int) uint64 {
	return p.Base + p.StorageCostPerByte*uint64(codeLen) + p.ComplexityCost
}
