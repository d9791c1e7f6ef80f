package compiler

import (
	"github.com/chazu/quill/pkg/bytecode"
)

// FunctionInfo describes one function a library exposes to the compiler.
type FunctionInfo struct {
	Signature string
	Private   bool
}

// Scope gives the compiler read access to the libraries of a runtime.
type Scope interface {
	// LibraryFunctions returns the functions registered in the named
	// library, or false if no such library exists.
	LibraryFunctions(name string) ([]FunctionInfo, bool)
}

// MapScope is a Scope backed by a map of library name to signatures.
// Every function is public.
type MapScope map[string][]string

// LibraryFunctions implements Scope.
func (m MapScope) LibraryFunctions(name string) ([]FunctionInfo, bool) {
	sigs, ok := m[name]
	if !ok {
		return nil, false
	}
	out := make([]FunctionInfo, len(sigs))
	for i, s := range sigs {
		out[i] = FunctionInfo{Signature: s}
	}
	return out, true
}

// Options configures a compilation.
type Options struct {
	// Name identifies the source in units and diagnostics.
	Name string

	// Libraries the script is compiled against in addition to the ones it
	// imports itself.
	Libraries []string

	// Scope resolves library names. May be nil if no libraries are used.
	Scope Scope

	// DebugInfo records source lines and slot names in the unit.
	DebugInfo bool

	// Buffer and Grow, when set, supply the memory chunks emit code into.
	// Free, when set, receives the buffers of a compilation that failed.
	Buffer func(size int) []byte
	Grow   func(buf []byte, n int) []byte
	Free   func(buf []byte)
}

// Compile parses and compiles source into an executable unit. On failure
// it returns nil and an ErrorList describing every problem found.
func Compile(source string, opts Options) (*bytecode.Unit, error) {
	p := NewParser(source, opts.Scope)
	prog := p.ParseProgram(opts.Libraries)
	if err := p.Errors().Err(); err != nil {
		return nil, err
	}

	g := newCodegen(opts)
	unit := g.generate(prog)
	if err := g.errors.Err(); err != nil {
		g.release()
		return nil, err
	}
	return unit, nil
}

// Parse parses source without generating code. It is used by tooling that
// only needs diagnostics.
func Parse(source string, scope Scope, libraries []string) (*Program, error) {
	p := NewParser(source, scope)
	prog := p.ParseProgram(libraries)
	return prog, p.Errors().Err()
}
