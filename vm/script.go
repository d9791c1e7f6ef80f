package vm

import (
	"fmt"
	"slices"
	"strings"

	"github.com/google/uuid"

	"github.com/chazu/quill/compiler"
	"github.com/chazu/quill/engine"
	"github.com/chazu/quill/pkg/bytecode"
	"github.com/chazu/quill/pkg/variant"
)

// maxFrames bounds call nesting.
const maxFrames = 1024

// ---------------------------------------------------------------------------
// CallFrame: Execution state for a function invocation
// ---------------------------------------------------------------------------

type frame struct {
	mod   *module
	chunk *bytecode.Chunk
	fn    int // index into mod.unit.Functions, -1 for the top level
	ip    int // instruction pointer
	bp    int // stack index of slot 0
}

// module is a unit together with the host functions its HostRefs resolved
// to. Frames of library functions defined in another script's unit carry
// that unit's module.
type module struct {
	unit  *bytecode.Unit
	hosts []*hostFunction
}

// callTarget is what a FunctionID refers to: a script function or a
// library function.
type callTarget struct {
	fn   int
	host *hostFunction
}

// ---------------------------------------------------------------------------
// Script: one execution instance of a unit
// ---------------------------------------------------------------------------

// Script is an execution instance of a compiled unit. Its stack, frames and
// global variables persist across Step calls.
type Script struct {
	id      uuid.UUID
	runtime *Runtime
	unit    *bytecode.Unit
	mod     *module

	globals map[string]variant.Variant
	stack   []variant.Variant
	frames  []*frame

	status    engine.Status
	err       error
	running   bool // inside Step
	reentered bool // Step was called from a host function during Step
	oob       int  // nesting of out-of-band CallFunction runs

	targets   []callTarget
	targetIDs map[string]engine.FunctionID
}

func newScript(r *Runtime, u *bytecode.Unit, hosts []*hostFunction, bindings map[string]variant.Variant) *Script {
	s := &Script{
		id:        uuid.New(),
		runtime:   r,
		unit:      u,
		mod:       &module{unit: u, hosts: hosts},
		globals:   make(map[string]variant.Variant, len(bindings)),
		stack:     make([]variant.Variant, 0, 64),
		status:    engine.StatusCreated,
		targetIDs: make(map[string]engine.FunctionID),
	}
	for name, v := range bindings {
		s.globals[name] = v
	}
	return s
}

// ID implements engine.Script.
func (s *Script) ID() string { return s.id.String() }

// Name returns the name of the unit the script runs.
func (s *Script) Name() string { return s.unit.Name }

// Unit returns the unit the script runs.
func (s *Script) Unit() *bytecode.Unit { return s.unit }

// Status implements engine.Script.
func (s *Script) Status() engine.Status { return s.status }

// IsFinished implements engine.Script.
func (s *Script) IsFinished() bool { return s.status == engine.StatusFinished }

// Err implements engine.Script.
func (s *Script) Err() error { return s.err }

// Execute runs one step and reports whether the script is still healthy.
func (s *Script) Execute() bool {
	return s.Step() != engine.StatusFailed
}

// Step runs the script until it finishes, reaches a wait statement or
// fails. Stepping a finished script does nothing; stepping a failed one
// keeps returning StatusFailed.
func (s *Script) Step() engine.Status {
	if s.running {
		s.reentered = true
		return engine.StatusFailed
	}
	switch s.status {
	case engine.StatusFinished, engine.StatusFailed:
		return s.status
	}
	if s.runtime.Closed() {
		s.fail(ErrRuntimeClosed)
		return s.status
	}

	if s.status == engine.StatusCreated {
		s.frames = append(s.frames, &frame{mod: s.mod, chunk: s.unit.Main, fn: -1})
	}
	s.status = engine.StatusRunning
	s.running = true
	suspended, err := s.run(0)
	s.running = false

	switch {
	case err != nil:
		s.fail(err)
	case suspended:
		s.status = engine.StatusSuspended
	default:
		s.status = engine.StatusFinished
		s.stack = s.stack[:0]
		s.runtime.engine.logf(engine.LogDebug, "script %s finished", s.id)
	}
	return s.status
}

func (s *Script) fail(err error) {
	s.status = engine.StatusFailed
	s.err = err
	s.frames = nil
	s.stack = s.stack[:0]
	s.runtime.engine.logf(engine.LogError, "script %s failed: %v", s.id, err)
}

// GetVariable returns a top-level variable.
func (s *Script) GetVariable(name string) (variant.Variant, bool) {
	v, ok := s.globals[name]
	return v, ok
}

// SetVariable sets a top-level variable.
func (s *Script) SetVariable(name string, v variant.Variant) {
	s.globals[name] = v
}

// ---------------------------------------------------------------------------
// Function lookup and out-of-band calls
// ---------------------------------------------------------------------------

// FindFunction resolves a signature to a callable id. With an empty
// scopeHint the script's public functions are searched first, then the
// public functions of the libraries the unit requires. Otherwise only the
// public functions of the named library are searched, and only when the
// unit was compiled against it. A lookup whose
// signature ends in {} only matches functions that return a value.
func (s *Script) FindFunction(scopeHint, signature string) engine.FunctionID {
	sig, err := compiler.ParseLookup(signature)
	if err != nil {
		return engine.InvalidID
	}
	shape := sig.Shape()
	cacheKey := scopeHint + "\x00" + sig.Key()
	if id, ok := s.targetIDs[cacheKey]; ok {
		return id
	}

	t, ok := s.lookupTarget(scopeHint, shape)
	if !ok || (sig.Returns && !s.targetReturns(t)) {
		return engine.InvalidID
	}
	s.targets = append(s.targets, t)
	id := engine.FunctionID(len(s.targets))
	s.targetIDs[cacheKey] = id
	return id
}

func (s *Script) lookupTarget(scopeHint, shape string) (callTarget, bool) {
	publicIn := func(name string) (callTarget, bool) {
		lib, ok := s.runtime.existingLibrary(name)
		if !ok {
			return callTarget{}, false
		}
		h := lib.lookup(shape)
		if h == nil || h.vis != engine.Public {
			return callTarget{}, false
		}
		return callTarget{fn: -1, host: h}, true
	}

	if scopeHint != "" {
		if !slices.Contains(s.unit.Libraries, scopeHint) {
			return callTarget{}, false
		}
		return publicIn(scopeHint)
	}
	for i, f := range s.unit.Functions {
		if !f.Private && strings.TrimSuffix(f.Signature, " {}") == shape {
			return callTarget{fn: i}, true
		}
	}
	for _, name := range s.unit.Libraries {
		if t, ok := publicIn(name); ok {
			return t, true
		}
	}
	return callTarget{}, false
}

func (s *Script) targetReturns(t callTarget) bool {
	if t.host != nil {
		return t.host.sig.Returns
	}
	return s.unit.Functions[t.fn].ReturnsValue()
}

// CallFunction calls a function found with FindFunction and runs it to
// completion. Wait statements inside it are ignored. On error the script's
// own execution state is left as it was.
func (s *Script) CallFunction(id engine.FunctionID, args ...variant.Variant) (variant.Variant, error) {
	if s.runtime.Closed() {
		return variant.NullValue(), ErrRuntimeClosed
	}
	idx := int(id) - 1
	if idx < 0 || idx >= len(s.targets) {
		return variant.NullValue(), fmt.Errorf("%w: %d", ErrInvalidFunction, id)
	}
	t := s.targets[idx]
	if t.host == nil {
		return s.call(s.mod, t.fn, args)
	}
	if n := t.host.sig.Arity(); len(args) != n {
		return variant.NullValue(), fmt.Errorf("%w: %q takes %d, got %d", ErrArgumentCount, t.host.sig.String(), n, len(args))
	}
	v, err := s.invoke(t.host, args)
	if err != nil {
		return variant.NullValue(), &RuntimeError{Script: s.unit.Name, Err: err}
	}
	return v, nil
}

// call runs function index of mod out of band on this script.
func (s *Script) call(mod *module, index int, args []variant.Variant) (variant.Variant, error) {
	fn := mod.unit.Functions[index]
	if len(args) != fn.Arity() {
		return variant.NullValue(), fmt.Errorf("%w: %q takes %d, got %d", ErrArgumentCount, fn.Display, fn.Arity(), len(args))
	}
	if len(s.frames) >= maxFrames {
		return variant.NullValue(), ErrStackOverflow
	}

	sp, base := len(s.stack), len(s.frames)
	s.stack = append(s.stack, args...)
	s.pushFrame(mod, index)

	s.oob++
	_, err := s.run(base)
	s.oob--

	if err != nil {
		s.stack = s.stack[:sp]
		s.frames = s.frames[:base]
		return variant.NullValue(), err
	}
	result := variant.NullValue()
	if fn.ReturnsValue() {
		result = s.stack[len(s.stack)-1]
	}
	s.stack = s.stack[:sp]
	return result, nil
}

// pushFrame enters function index of mod whose arguments are on top of the
// stack.
func (s *Script) pushFrame(mod *module, index int) {
	c := mod.unit.Functions[index].Chunk
	bp := len(s.stack) - int(c.ParamCount)
	for i := int(c.ParamCount); i < int(c.LocalCount); i++ {
		s.stack = append(s.stack, variant.NullValue())
	}
	s.frames = append(s.frames, &frame{mod: mod, chunk: c, fn: index, bp: bp})
}

// invoke calls a host function, turning panics into errors.
func (s *Script) invoke(h *hostFunction, args []variant.Variant) (v variant.Variant, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("host function %q panicked: %v", h.sig.String(), r)
		}
	}()
	v, err = h.call(s, args)
	if err != nil {
		return variant.NullValue(), fmt.Errorf("%s: %w", h.sig.String(), err)
	}
	return v, nil
}
