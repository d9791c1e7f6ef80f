package vm

import (
	"fmt"
	"sort"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/chazu/quill/compiler"
	"github.com/chazu/quill/engine"
	"github.com/chazu/quill/pkg/bytecode"
	"github.com/chazu/quill/pkg/variant"
)

// Runtime owns a set of libraries and the scripts created against them.
// Library registration and lookup are safe for concurrent use; each Script
// must be driven by one goroutine at a time.
type Runtime struct {
	engine *Engine

	mu        sync.RWMutex
	libraries map[string]*Library
	units     map[*bytecode.Unit]bool // compiled here, buffers from the allocator

	closed atomic.Bool
}

func newRuntime(e *Engine) *Runtime {
	return &Runtime{
		engine:    e,
		libraries: make(map[string]*Library),
		units:     make(map[*bytecode.Unit]bool),
	}
}

// Library returns the named library, creating it on first use.
func (r *Runtime) Library(name string) engine.Library {
	return r.library(name)
}

func (r *Runtime) library(name string) *Library {
	r.mu.RLock()
	lib, ok := r.libraries[name]
	r.mu.RUnlock()
	if ok {
		return lib
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if lib, ok := r.libraries[name]; ok {
		return lib
	}
	lib = newLibrary(r, name)
	r.libraries[name] = lib
	return lib
}

func (r *Runtime) existingLibrary(name string) (*Library, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	lib, ok := r.libraries[name]
	return lib, ok
}

// LibraryNames lists the libraries that exist, sorted.
func (r *Runtime) LibraryNames() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.libraries))
	for name := range r.libraries {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// LibraryFunctions implements compiler.Scope.
func (r *Runtime) LibraryFunctions(name string) ([]compiler.FunctionInfo, bool) {
	lib, ok := r.existingLibrary(name)
	if !ok {
		return nil, false
	}
	return lib.functionInfo(), true
}

// Compile compiles text against the given libraries, which must exist.
// On failure the unit is nil and the error is a compiler.ErrorList.
func (r *Runtime) Compile(text, name string, libraries ...string) (*bytecode.Unit, error) {
	if r.closed.Load() {
		return nil, ErrRuntimeClosed
	}
	e := r.engine
	alloc := e.params.Allocator
	unit, err := compiler.Compile(text, compiler.Options{
		Name:      name,
		Libraries: libraries,
		Scope:     r,
		DebugInfo: e.params.EnableDebugInfo,
		Buffer:    alloc.Alloc,
		Grow:      alloc.Realloc,
		Free:      alloc.Free,
	})
	if err != nil {
		e.logf(engine.LogError, "compile %s: %v", name, err)
		return nil, err
	}

	// Member units stay alive with the runtime since their functions may be
	// published.
	if unit.Library == "" {
		r.mu.Lock()
		r.units[unit] = true
		r.mu.Unlock()
	}
	e.logf(engine.LogDebug, "compiled %s: %d functions, %d bytes", name, len(unit.Functions), unit.Size())
	if e.params.LogBytecode {
		e.logf(engine.LogInfo, "%s", unit.Disassemble())
	}
	if e.params.LogSymbols {
		e.logf(engine.LogInfo, "%s", symbolTable(unit))
	}
	return unit, nil
}

func symbolTable(u *bytecode.Unit) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "; symbols of %s\n", u.Name)
	if u.Library != "" {
		fmt.Fprintf(&sb, "library %s\n", u.Library)
	}
	for _, lib := range u.Libraries {
		fmt.Fprintf(&sb, "requires %s\n", lib)
	}
	for _, name := range u.Externals {
		fmt.Fprintf(&sb, "external %s\n", name)
	}
	for i, f := range u.Functions {
		vis := "public"
		if f.Private {
			vis = "private"
		}
		fmt.Fprintf(&sb, "function %d %s %s\n", i, vis, f.Display)
	}
	for _, h := range u.HostRefs {
		fmt.Fprintf(&sb, "host %s:%s\n", h.Library, h.Signature)
	}
	return sb.String()
}

// Release returns the code buffers of u to the engine's allocator. It only
// acts on units this runtime compiled that are not library members, and
// only once. Neither u nor any script created from it may be used
// afterwards.
func (r *Runtime) Release(u *bytecode.Unit) {
	r.mu.Lock()
	owned := r.units[u]
	delete(r.units, u)
	r.mu.Unlock()
	if !owned {
		return
	}
	free := r.engine.params.Allocator.Free
	free(u.Main.Code)
	u.Main.Code = nil
	for _, f := range u.Functions {
		free(f.Chunk.Code)
		f.Chunk.Code = nil
	}
	r.engine.logf(engine.LogDebug, "released %s", u.Name)
}

// StripDebugInfo returns a copy of u without debug metadata.
func (r *Runtime) StripDebugInfo(u *bytecode.Unit) *bytecode.Unit {
	return bytecode.StripDebugInfo(u)
}

// CreateScript instantiates u. Every library the unit requires and every
// host function it calls must be present and visible, otherwise the error
// wraps ErrMissingLibrary or ErrMissingFunction. bindings seed top-level
// variables.
func (r *Runtime) CreateScript(u *bytecode.Unit, bindings map[string]variant.Variant) (engine.Script, error) {
	if r.closed.Load() {
		return nil, ErrRuntimeClosed
	}
	if u == nil || u.Main == nil {
		return nil, fmt.Errorf("create script: nil unit")
	}

	for _, name := range u.Libraries {
		if name == u.Library {
			r.library(name)
			continue
		}
		if _, ok := r.existingLibrary(name); !ok {
			return nil, fmt.Errorf("create script %s: %w %q", u.Name, ErrMissingLibrary, name)
		}
	}

	hosts := make([]*hostFunction, len(u.HostRefs))
	for i, ref := range u.HostRefs {
		lib, ok := r.existingLibrary(ref.Library)
		if !ok {
			return nil, fmt.Errorf("create script %s: %w %q", u.Name, ErrMissingLibrary, ref.Library)
		}
		fn := lib.resolve(ref.Signature)
		if fn == nil || (fn.vis == engine.Private && ref.Library != u.Library) {
			return nil, fmt.Errorf("create script %s: %w %q in library %s", u.Name, ErrMissingFunction, ref.Signature, ref.Library)
		}
		hosts[i] = fn
	}

	s := newScript(r, u, hosts, bindings)
	if u.Library != "" {
		r.publish(s)
	}
	r.engine.logf(engine.LogDebug, "script %s created from %s", s.ID(), u.Name)
	return s, nil
}

// publish registers the functions of a library member script in its
// library so that other scripts importing the library can call them. The
// first script to define a signature keeps it. Published functions execute
// on the calling script, never on the publisher.
func (r *Runtime) publish(s *Script) {
	lib := r.library(s.unit.Library)
	mod := s.mod
	for i, f := range s.unit.Functions {
		sig, err := compiler.ParseSignature(f.Display)
		if err != nil || lib.lookup(sig.Shape()) != nil {
			continue
		}
		vis := engine.Public
		if f.Private {
			vis = engine.Private
		}
		index := i
		lib.addFunction(&hostFunction{
			library: lib.name,
			sig:     sig,
			vis:     vis,
			script:  &scriptFunction{mod: mod, index: index},
			call: func(caller engine.Script, args []variant.Variant) (variant.Variant, error) {
				cs, ok := caller.(*Script)
				if !ok {
					return variant.NullValue(), fmt.Errorf("%q needs a quill script caller", sig.String())
				}
				return cs.call(mod, index, args)
			},
		})
	}
}

// Shutdown marks the runtime closed. Scripts created from it fail on their
// next Step and CallFunction returns ErrRuntimeClosed.
func (r *Runtime) Shutdown() {
	if r.closed.Swap(true) {
		return
	}
	r.engine.logf(engine.LogDebug, "runtime shut down")
}

// Closed reports whether Shutdown has been called.
func (r *Runtime) Closed() bool {
	return r.closed.Load()
}
