// Package debug provides a source-map-backed debugger for WASM jobs:
// breakpoints keyed by high-level source location, single-stepping, call
// stack inspection, and simple expression evaluation over local variables.
package debug

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
)

// SourceLocation names a position in the job's original source.
type SourceLocation struct {
	File   string
	Line   uint32
	Column uint32
}

// WasmLocation names a position in the compiled module.
type WasmLocation struct {
	FunctionIndex     uint32
	InstructionOffset uint32
}

// SourceMap resolves between a job's source locations and the compiled
// module's WASM locations.
type SourceMap struct {
	toWasm   map[SourceLocation]WasmLocation
	toSource map[WasmLocation]SourceLocation
}

// NewSourceMap constructs an empty source map.
func NewSourceMap() *SourceMap {
	return &SourceMap{
		toWasm:   make(map[SourceLocation]WasmLocation),
		toSource: make(map[WasmLocation]SourceLocation),
	}
}

// Add records a bidirectional mapping between a source and wasm location.
func (m *SourceMap) Add(src SourceLocation, wasm WasmLocation) {
	m.toWasm[src] = wasm
	m.toSource[wasm] = src
}

// FindWasmLocation looks up the wasm location for a source location.
func (m *SourceMap) FindWasmLocation(src SourceLocation) (WasmLocation, bool) {
	w, ok := m.toWasm[src]
	return w, ok
}

// FindSourceLocation looks up the source location for a wasm location.
func (m *SourceMap) FindSourceLocation(wasm WasmLocation) (SourceLocation, bool) {
	s, ok := m.toSource[wasm]
	return s, ok
}

// Breakpoint pauses execution at a source location, optionally guarded by a
// condition expression evaluated against the paused frame's locals.
type Breakpoint struct {
	ID            uint32
	SourceLoc     SourceLocation
	WasmLoc       *WasmLocation
	Condition     string
	Enabled       bool
}

// State is the debugger's current run state.
type State int

const (
	StateStopped State = iota
	StateRunning
	StatePaused
	StateStepped
)

func (s State) String() string {
	switch s {
	case StateStopped:
		return "stopped"
	case StateRunning:
		return "running"
	case StatePaused:
		return "paused"
	case StateStepped:
		return "stepped"
	default:
		return "unknown"
	}
}

// StackFrame is one level of the job's call stack at a debug pause.
type StackFrame struct {
	FunctionIndex uint32
	FunctionName  string
	SourceLoc     *SourceLocation
	Locals        map[string]string
}

// Debugger attaches to a job's source map and tracks breakpoints, run
// state, and call stack across a debugging session.
type Debugger struct {
	sourceMap      *SourceMap
	breakpoints    map[uint32]*Breakpoint
	nextBreakpoint uint32
	state          State
	location       *WasmLocation
	callStack      []*StackFrame
}

// NewDebugger attaches a debugger to sourceMap.
func NewDebugger(sourceMap *SourceMap) *Debugger {
	return &Debugger{
		sourceMap:      sourceMap,
		breakpoints:    make(map[uint32]*Breakpoint),
		nextBreakpoint: 1,
		state:          StateStopped,
	}
}

// AddBreakpoint registers a breakpoint at a source location, resolving the
// matching wasm location from the session's source map.
func (d *Debugger) AddBreakpoint(loc SourceLocation, condition string) (uint32, error) {
	wasmLoc, ok := d.sourceMap.FindWasmLocation(loc)
	if !ok {
		return 0, fmt.Errorf("debug: no wasm location for %s:%d:%d", loc.File, loc.Line, loc.Column)
	}
	id := d.nextBreakpoint
	d.nextBreakpoint++
	d.breakpoints[id] = &Breakpoint{
		ID:        id,
		SourceLoc: loc,
		WasmLoc:   &wasmLoc,
		Condition: condition,
		Enabled:   true,
	}
	return id, nil
}

// RemoveBreakpoint deletes a breakpoint, reporting whether it existed.
func (d *Debugger) RemoveBreakpoint(id uint32) bool {
	if _, ok := d.breakpoints[id]; !ok {
		return false
	}
	delete(d.breakpoints, id)
	return true
}

// SetBreakpointEnabled toggles a breakpoint without removing it.
func (d *Debugger) SetBreakpointEnabled(id uint32, enabled bool) bool {
	bp, ok := d.breakpoints[id]
	if !ok {
		return false
	}
	bp.Enabled = enabled
	return true
}

// Breakpoints returns all registered breakpoints, ordered by ID.
func (d *Debugger) Breakpoints() []*Breakpoint {
	out := make([]*Breakpoint, 0, len(d.breakpoints))
	for _, bp := range d.breakpoints {
		out = append(out, bp)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// Start transitions the debugger into the running state.
func (d *Debugger) Start() {
	d.state = StateRunning
}

// PauseAt transitions the debugger into the paused state at loc, pushing an
// initial stack frame.
func (d *Debugger) PauseAt(loc WasmLocation) {
	d.state = StatePaused
	d.location = &loc
	if len(d.callStack) == 0 {
		d.pushFrame(loc.FunctionIndex)
	}
}

// StepNext advances one instruction within the current function.
func (d *Debugger) StepNext() (State, error) {
	if d.state != StatePaused && d.state != StateStepped {
		return d.state, fmt.Errorf("debug: cannot step-next from %s", d.state)
	}
	next := WasmLocation{
		FunctionIndex:     d.location.FunctionIndex,
		InstructionOffset: d.location.InstructionOffset + 1,
	}
	d.location = &next
	d.state = StateStepped
	d.refreshLocals()
	return d.state, nil
}

// StepInto steps into a call at the current location, or falls back to
// StepNext if the current instruction is not a call.
func (d *Debugger) StepInto(isCall func(WasmLocation) bool, calleeIndex func(WasmLocation) uint32) (State, error) {
	if d.state != StatePaused && d.state != StateStepped {
		return d.state, fmt.Errorf("debug: cannot step-into from %s", d.state)
	}
	if !isCall(*d.location) {
		return d.StepNext()
	}
	callee := calleeIndex(*d.location)
	entry := WasmLocation{FunctionIndex: callee, InstructionOffset: 0}
	d.location = &entry
	d.state = StateStepped
	d.pushFrame(callee)
	return d.state, nil
}

// StepOut pops the current frame and resumes at the caller.
func (d *Debugger) StepOut() (State, error) {
	if d.state != StatePaused && d.state != StateStepped {
		return d.state, fmt.Errorf("debug: cannot step-out from %s", d.state)
	}
	if len(d.callStack) <= 1 {
		return d.state, fmt.Errorf("debug: already at top-level function")
	}
	d.callStack = d.callStack[:len(d.callStack)-1]
	caller := d.callStack[len(d.callStack)-1]
	ret := WasmLocation{FunctionIndex: caller.FunctionIndex, InstructionOffset: 0}
	d.location = &ret
	d.state = StateStepped
	return d.state, nil
}

// Continue resumes free-running execution until the next breakpoint.
func (d *Debugger) Continue() State {
	d.state = StateRunning
	return d.state
}

// ActiveBreakpointAt returns the first enabled breakpoint matching loc, if
// any, honoring its condition against the current frame's locals when set.
func (d *Debugger) ActiveBreakpointAt(loc WasmLocation) (*Breakpoint, bool) {
	for _, bp := range d.Breakpoints() {
		if !bp.Enabled || bp.WasmLoc == nil || *bp.WasmLoc != loc {
			continue
		}
		if bp.Condition == "" {
			return bp, true
		}
		if v, err := d.Evaluate(bp.Condition); err == nil && v == "true" {
			return bp, true
		}
		continue
	}
	return nil, false
}

// Current returns the debugger's current state.
func (d *Debugger) Current() State { return d.state }

// CallStack returns the current call stack, outermost frame first.
func (d *Debugger) CallStack() []*StackFrame { return d.callStack }

// Locals returns the innermost frame's local variables.
func (d *Debugger) Locals() map[string]string {
	if len(d.callStack) == 0 {
		return map[string]string{}
	}
	return d.callStack[len(d.callStack)-1].Locals
}

// Evaluate resolves a local variable, a simple binary arithmetic or
// comparison expression, or a literal, against the innermost frame. It does
// not implement a general expression grammar; jobs needing richer
// introspection should emit structured events instead.
func (d *Debugger) Evaluate(expression string) (string, error) {
	if d.state != StatePaused && d.state != StateStepped {
		return "", fmt.Errorf("debug: cannot evaluate while %s", d.state)
	}
	if len(d.callStack) == 0 {
		return "", fmt.Errorf("debug: no active frame")
	}
	frame := d.callStack[len(d.callStack)-1]
	expr := strings.TrimSpace(expression)

	if v, ok := frame.Locals[expr]; ok {
		return v, nil
	}
	if v, err := evaluateArithmetic(expr, frame); err == nil {
		return v, nil
	}
	if _, err := strconv.ParseInt(expr, 10, 64); err == nil {
		return expr, nil
	}
	if strings.HasPrefix(expr, `"`) && strings.HasSuffix(expr, `"`) {
		return expr, nil
	}
	return "", fmt.Errorf("debug: cannot evaluate %q", expression)
}

// SetVariable assigns a local variable in the innermost frame after
// validating the value looks like a number, quoted string, or bool literal.
func (d *Debugger) SetVariable(name, value string) error {
	if d.state != StatePaused && d.state != StateStepped {
		return fmt.Errorf("debug: cannot set variable while %s", d.state)
	}
	if len(d.callStack) == 0 {
		return fmt.Errorf("debug: no active frame")
	}
	validated, err := validateValue(value)
	if err != nil {
		return err
	}
	d.callStack[len(d.callStack)-1].Locals[name] = validated
	return nil
}

func (d *Debugger) pushFrame(functionIndex uint32) {
	var srcLoc *SourceLocation
	if s, ok := d.sourceMap.FindSourceLocation(WasmLocation{FunctionIndex: functionIndex}); ok {
		srcLoc = &s
	}
	d.callStack = append(d.callStack, &StackFrame{
		FunctionIndex: functionIndex,
		FunctionName:  fmt.Sprintf("function_%d", functionIndex),
		SourceLoc:     srcLoc,
		Locals:        make(map[string]string),
	})
}

func (d *Debugger) refreshLocals() {
	if len(d.callStack) == 0 {
		return
	}
	d.callStack[len(d.callStack)-1].FunctionIndex = d.location.FunctionIndex
}

func evaluateArithmetic(expr string, frame *StackFrame) (string, error) {
	for _, op := range []string{"==", "!=", "<=", ">=", "+", "-", "*", "/", "<", ">"} {
		idx := strings.Index(expr, op)
		if idx <= 0 {
			continue
		}
		left := strings.TrimSpace(expr[:idx])
		right := strings.TrimSpace(expr[idx+len(op):])
		l, err := operand(left, frame)
		if err != nil {
			return "", err
		}
		r, err := operand(right, frame)
		if err != nil {
			return "", err
		}
		return applyOperator(l, op, r)
	}
	return "", fmt.Errorf("debug: not an arithmetic expression")
}

func operand(s string, frame *StackFrame) (int64, error) {
	if v, ok := frame.Locals[s]; ok {
		s = v
	}
	return strconv.ParseInt(s, 10, 64)
}

func applyOperator(left int64, op string, right int64) (string, error) {
	switch op {
	case "+":
		return strconv.FormatInt(left+right, 10), nil
	case "-":
		return strconv.FormatInt(left-right, 10), nil
	case "*":
		return strconv.FormatInt(left*right, 10), nil
	case "/":
		if right == 0 {
			return "", fmt.Errorf("debug: division by zero")
		}
		return strconv.FormatInt(left/right, 10), nil
	case "==":
		return strconv.FormatBool(left == right), nil
	case "!=":
		return strconv.FormatBool(left != right), nil
	case "<":
		return strconv.FormatBool(left < right), nil
	case ">":
		return strconv.FormatBool(left > right), nil
	case "<=":
		return strconv.FormatBool(left <= right), nil
	case ">=":
		return strconv.FormatBool(left >= right), nil
	default:
		return "", fmt.Errorf("debug: unsupported operator %q", op)
	}
}

func validateValue(value string) (string, error) {
	trimmed := strings.TrimSpace(value)
	if _, err := strconv.ParseInt(trimmed, 10, 64); err == nil {
		return trimmed, nil
	}
	if _, err := strconv.ParseFloat(trimmed, 64); err == nil {
		return trimmed, nil
	}
	if strings.HasPrefix(trimmed, `"`) && strings.HasSuffix(trimmed, `"`) {
		return trimmed, nil
	}
	if trimmed == "true" || trimmed == "false" {
		return trimmed, nil
	}
	return "", fmt.Errorf("debug: invalid value format %q", value)
}
