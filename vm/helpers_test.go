package vm

import (
	"bytes"
	"testing"

	"github.com/chazu/quill/engine"
	"github.com/chazu/quill/pkg/variant"
)

// newTestRuntime returns a runtime with debug info enabled whose core
// library writes into the returned buffer.
func newTestRuntime(t *testing.T) (*Runtime, *bytes.Buffer) {
	t.Helper()
	var out bytes.Buffer
	e, err := Initialize(Params{EnableDebugInfo: true, Output: &out})
	if err != nil {
		t.Fatalf("Initialize: %v", err)
	}
	t.Cleanup(e.Shutdown)
	r, err := e.CreateRuntime()
	if err != nil {
		t.Fatalf("CreateRuntime: %v", err)
	}
	return r, &out
}

// startScript compiles src against core and the given libraries and
// instantiates it.
func startScript(t *testing.T, r *Runtime, src string, libs ...string) *Script {
	t.Helper()
	unit, err := r.Compile(src, "test", append([]string{CoreLibrary}, libs...)...)
	if err != nil {
		t.Fatalf("Compile: %v", err)
	}
	s, err := r.CreateScript(unit, nil)
	if err != nil {
		t.Fatalf("CreateScript: %v", err)
	}
	return s.(*Script)
}

// runScript runs src to completion and returns its core output.
func runScript(t *testing.T, src string) (*Script, string) {
	t.Helper()
	r, out := newTestRuntime(t)
	s := startScript(t, r, src)
	for !s.IsFinished() {
		if !s.Execute() {
			t.Fatalf("Execute failed: %v", s.Err())
		}
	}
	return s, out.String()
}

func global(t *testing.T, s engine.Script, name string) variant.Variant {
	t.Helper()
	v, ok := s.GetVariable(name)
	if !ok {
		t.Fatalf("variable %q not set", name)
	}
	return v
}
