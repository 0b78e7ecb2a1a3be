package execution

import (
	"errors"
	"testing"

	"github.com/icn-project/icn-core/icnerr"
)

func validWasmHeader() []byte {
	return append(append([]byte{}, wasmMagic...), wasmVersion...)
}

func TestValidateCodeAcceptsWellFormedHeader(t *testing.T) {
	code := append(validWasmHeader(), 0x01, 0x02, 0x03)
	if err := ValidateCode(code, 1024); err != nil {
		t.Fatalf("expected valid code to pass, got %v", err)
	}
}

func TestValidateCodeRejectsBadMagic(t *testing.T) {
	code := append([]byte{0x01, 0x02, 0x03, 0x04}, wasmVersion...)
	err := ValidateCode(code, 1024)
	if !errors.Is(err, icnerr.ErrSecurityViolation) {
		t.Fatalf("expected security violation, got %v", err)
	}
}

func TestValidateCodeRejectsOversize(t *testing.T) {
	code := append(validWasmHeader(), make([]byte, 100)...)
	err := ValidateCode(code, 4)
	if !errors.Is(err, icnerr.ErrSecurityViolation) {
		t.Fatalf("expected security violation for oversize code, got %v", err)
	}
}

func TestValidateImportModuleAllowSet(t *testing.T) {
	if err := ValidateImportModule("env"); err != nil {
		t.Fatalf("expected env to be allowed: %v", err)
	}
	if err := ValidateImportModule("icn"); err != nil {
		t.Fatalf("expected icn to be allowed: %v", err)
	}
	if err := ValidateImportModule("wasi_snapshot_preview1"); err == nil {
		t.Fatalf("expected disallowed import to be rejected")
	}
}
