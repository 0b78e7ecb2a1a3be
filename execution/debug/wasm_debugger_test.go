package debug

import "testing"

func newMappedDebugger() *Debugger {
	sm := NewSourceMap()
	sm.Add(SourceLocation{File: "job.ccl", Line: 10}, WasmLocation{FunctionIndex: 2, InstructionOffset: 5})
	return NewDebugger(sm)
}

func TestAddAndRemoveBreakpoint(t *testing.T) {
	d := newMappedDebugger()
	id, err := d.AddBreakpoint(SourceLocation{File: "job.ccl", Line: 10}, "")
	if err != nil {
		t.Fatalf("add breakpoint: %v", err)
	}
	if len(d.Breakpoints()) != 1 {
		t.Fatalf("expected one breakpoint")
	}
	if !d.RemoveBreakpoint(id) {
		t.Fatalf("expected removal to succeed")
	}
	if len(d.Breakpoints()) != 0 {
		t.Fatalf("expected breakpoint removed")
	}
}

func TestAddBreakpointUnmappedLocationFails(t *testing.T) {
	d := newMappedDebugger()
	if _, err := d.AddBreakpoint(SourceLocation{File: "job.ccl", Line: 999}, ""); err == nil {
		t.Fatalf("expected error for unmapped source location")
	}
}

func TestStepNextAdvancesOffsetAndSteppedState(t *testing.T) {
	d := newMappedDebugger()
	d.PauseAt(WasmLocation{FunctionIndex: 2, InstructionOffset: 5})

	state, err := d.StepNext()
	if err != nil {
		t.Fatalf("step next: %v", err)
	}
	if state != StateStepped {
		t.Fatalf("expected stepped state, got %v", state)
	}
	if d.location.InstructionOffset != 6 {
		t.Fatalf("expected instruction offset 6, got %d", d.location.InstructionOffset)
	}
}

func TestStepOutRequiresMoreThanOneFrame(t *testing.T) {
	d := newMappedDebugger()
	d.PauseAt(WasmLocation{FunctionIndex: 2, InstructionOffset: 5})
	if _, err := d.StepOut(); err == nil {
		t.Fatalf("expected step-out to fail at top level")
	}
}

func TestEvaluateLocalsAndArithmetic(t *testing.T) {
	d := newMappedDebugger()
	d.PauseAt(WasmLocation{FunctionIndex: 2, InstructionOffset: 5})
	if err := d.SetVariable("x", "10"); err != nil {
		t.Fatalf("set variable: %v", err)
	}

	v, err := d.Evaluate("x")
	if err != nil || v != "10" {
		t.Fatalf("expected x=10, got %q err=%v", v, err)
	}

	v, err = d.Evaluate("x + 5")
	if err != nil || v != "15" {
		t.Fatalf("expected 15, got %q err=%v", v, err)
	}
}

func TestEvaluateFailsWhenStopped(t *testing.T) {
	d := newMappedDebugger()
	if _, err := d.Evaluate("1"); err == nil {
		t.Fatalf("expected evaluate to fail before any pause")
	}
}

func TestSetVariableRejectsInvalidValue(t *testing.T) {
	d := newMappedDebugger()
	d.PauseAt(WasmLocation{FunctionIndex: 2, InstructionOffset: 5})
	if err := d.SetVariable("y", "not-a-value-or-quoted-string"); err == nil {
		t.Fatalf("expected invalid value to be rejected")
	}
}
