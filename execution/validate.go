package execution

import (
	"bytes"
	"fmt"

	"github.com/icn-project/icn-core/icnerr"
)

var (
	wasmMagic   = []byte{0x00, 0x61, 0x73, 0x6d} // "\x00asm"
	wasmVersion = []byte{0x01, 0x00, 0x00, 0x00}
)

// allowedImportModules is the curated allow-set: env (for memory) plus the
// icn.* host namespace. Any import outside these is a security violation.
var allowedImportModules = map[string]bool{
	"env": true,
	"icn": true,
}

// ValidateCode enforces spec.md 4.5's deploy-time code validation: magic
// bytes, version, and size bound. Import-table validation happens once the
// module is parsed by the wasmer engine (see Executor.Deploy), since the
// allow-set check requires a parsed module's import list.
func ValidateCode(code []byte, maxSize uint32) error {
	if len(code) < 8 {
		return fmt.Errorf("execution: %w: code too short", icnerr.ErrSecurityViolation)
	}
	if !bytes.Equal(code[:4], wasmMagic) {
		return fmt.Errorf("execution: %w: bad wasm magic", icnerr.ErrSecurityViolation)
	}
	if !bytes.Equal(code[4:8], wasmVersion) {
		return fmt.Errorf("execution: %w: unsupported wasm version", icnerr.ErrSecurityViolation)
	}
	if uint32(len(code)) > maxSize {
		return fmt.Errorf("execution: %w: code exceeds max memory", icnerr.ErrSecurityViolation)
	}
	return nil
}

// ValidateImportModule checks a single import's module name against the
// curated allow-set.
func ValidateImportModule(module string) error {
	if !allowedImportModules[module] {
		return fmt.Errorf("execution: %w: disallowed import module %q", icnerr.ErrSecurityViolation, module)
	}
	return nil
}
