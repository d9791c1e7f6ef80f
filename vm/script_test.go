package vm

import (
	"errors"
	"testing"

	"github.com/chazu/quill/engine"
	"github.com/chazu/quill/pkg/variant"
)

func TestScriptWaitSuspends(t *testing.T) {
	r, out := newTestRuntime(t)
	s := startScript(t, r, "write \"a\"\nwait\nwrite \"b\"\nwait\nwrite \"c\"\n")

	if s.Status() != engine.StatusCreated {
		t.Errorf("initial status = %v, want created", s.Status())
	}
	wantOut := []string{"a", "ab", "abc"}
	wantStatus := []engine.Status{engine.StatusSuspended, engine.StatusSuspended, engine.StatusFinished}
	for i := range wantOut {
		if got := s.Step(); got != wantStatus[i] {
			t.Errorf("step %d status = %v, want %v", i, got, wantStatus[i])
		}
		if out.String() != wantOut[i] {
			t.Errorf("step %d output = %q, want %q", i, out.String(), wantOut[i])
		}
	}
	if !s.IsFinished() {
		t.Error("IsFinished() = false after last step")
	}
}

func TestScriptFinishedStepIsNoOp(t *testing.T) {
	r, out := newTestRuntime(t)
	s := startScript(t, r, "write \"once\"\n")
	s.Step()
	for i := 0; i < 3; i++ {
		if !s.Execute() {
			t.Fatalf("Execute on finished script returned false")
		}
	}
	if out.String() != "once" {
		t.Errorf("output = %q, want %q", out.String(), "once")
	}
}

func TestScriptFailedStaysFailed(t *testing.T) {
	r, _ := newTestRuntime(t)
	s := startScript(t, r, "set x to 1 / 0\n")
	if s.Execute() {
		t.Fatal("Execute succeeded, want failure")
	}
	if s.Status() != engine.StatusFailed || s.Err() == nil {
		t.Errorf("status = %v err = %v, want failed with error", s.Status(), s.Err())
	}
	if s.Execute() {
		t.Error("Execute on failed script returned true")
	}
}

func TestScriptBindingsAndExternals(t *testing.T) {
	r, _ := newTestRuntime(t)
	unit, err := r.Compile("external score\nset score to score * 2\n", "ext", CoreLibrary)
	if err != nil {
		t.Fatal(err)
	}
	s, err := r.CreateScript(unit, map[string]variant.Variant{"score": variant.Int(21)})
	if err != nil {
		t.Fatal(err)
	}
	s.Step()
	if got := global(t, s, "score"); !got.Equal(variant.Int(42)) {
		t.Errorf("score = %v, want 42", got)
	}

	s.SetVariable("score", variant.Str("reset"))
	if got, _ := s.GetVariable("score"); got.AsString() != "reset" {
		t.Errorf("score after SetVariable = %v", got)
	}
}

func TestScriptCallFunction(t *testing.T) {
	r, out := newTestRuntime(t)
	s := startScript(t, r, `function add {a} plus {b} {}
    wait
    return a + b
end
private function secret
end
write "main"
`)
	// Functions are callable before the script has run.
	id := s.FindFunction("", "add {} plus {} {}")
	if id == engine.InvalidID {
		t.Fatal("FindFunction(add) = InvalidID")
	}
	v, err := s.CallFunction(id, variant.Int(2), variant.Int(3))
	if err != nil {
		t.Fatalf("CallFunction: %v", err)
	}
	if !v.Equal(variant.Int(5)) {
		t.Errorf("add 2 plus 3 = %v, want 5", v)
	}
	if s.Status() != engine.StatusCreated {
		t.Errorf("status after CallFunction = %v, want created", s.Status())
	}

	if got := s.FindFunction("", "secret"); got != engine.InvalidID {
		t.Errorf("FindFunction(secret) = %v, want InvalidID", got)
	}
	if got := s.FindFunction("", "missing {}"); got != engine.InvalidID {
		t.Errorf("FindFunction(missing) = %v, want InvalidID", got)
	}
	if again := s.FindFunction("", "add {x} plus {y} {}"); again != id {
		t.Errorf("second lookup = %v, want %v", again, id)
	}

	s.Step()
	if out.String() != "main" {
		t.Errorf("output = %q, want %q", out.String(), "main")
	}
}

func TestScriptCallFunctionErrorsLeaveStateUnchanged(t *testing.T) {
	r, _ := newTestRuntime(t)
	s := startScript(t, r, `function divide {a} by {b} {}
    return a / b
end
set before to 1
wait
set after to 2
`)
	if got := s.Step(); got != engine.StatusSuspended {
		t.Fatalf("Step = %v, want suspended", got)
	}
	id := s.FindFunction("", "divide {} by {} {}")

	if _, err := s.CallFunction(id, variant.Int(1)); !errors.Is(err, ErrArgumentCount) {
		t.Errorf("CallFunction with 1 arg: err = %v, want ErrArgumentCount", err)
	}
	if _, err := s.CallFunction(id, variant.Int(1), variant.Int(0)); err == nil {
		t.Error("CallFunction dividing by zero succeeded")
	}
	if _, err := s.CallFunction(engine.FunctionID(99)); !errors.Is(err, ErrInvalidFunction) {
		t.Errorf("CallFunction(99): err = %v, want ErrInvalidFunction", err)
	}

	if s.Status() != engine.StatusSuspended {
		t.Errorf("status = %v, want suspended", s.Status())
	}
	if got := s.Step(); got != engine.StatusFinished {
		t.Fatalf("resumed Step = %v, want finished (err %v)", got, s.Err())
	}
	if got := global(t, s, "after"); !got.Equal(variant.Int(2)) {
		t.Errorf("after = %v, want 2", got)
	}
}

func TestScriptFindLibraryFunction(t *testing.T) {
	r, _ := newTestRuntime(t)
	lib := r.Library("host")
	lib.RegisterFunction(engine.Public, "double {x} {}", func(x int64) int64 { return 2 * x })
	lib.RegisterFunction(engine.Private, "hidden {x} {}", func(x int64) int64 { return x })

	s := startScript(t, r, "wait\n", "host")

	for _, hint := range []string{"", "host"} {
		id := s.FindFunction(hint, "double {} {}")
		if id == engine.InvalidID {
			t.Errorf("FindFunction(%q, double) = InvalidID", hint)
			continue
		}
		v, err := s.CallFunction(id, variant.Int(21))
		if err != nil || !v.Equal(variant.Int(42)) {
			t.Errorf("double 21 via %q = %v, %v", hint, v, err)
		}
	}
	if id := s.FindFunction("host", "hidden {} {}"); id != engine.InvalidID {
		t.Error("private library function found")
	}
	if id := s.FindFunction("nowhere", "double {} {}"); id != engine.InvalidID {
		t.Error("function found in unknown library")
	}
	if id := s.FindFunction("core", "size of {} {}"); id == engine.InvalidID {
		t.Error("core function not found by scope hint")
	}
}

func TestScriptFindFunctionIgnoresUnrequiredLibraries(t *testing.T) {
	r, _ := newTestRuntime(t)
	r.Library("secret").RegisterFunction(engine.Public, "leak {}", func() string { return "leaked" })
	s := startScript(t, r, "wait\n")

	if id := s.FindFunction("secret", "leak {}"); id != engine.InvalidID {
		v, err := s.CallFunction(id)
		t.Errorf("FindFunction(secret, leak) = %v, calling it gave %v, %v", id, v, err)
	}
	if id := s.FindFunction("", "leak {}"); id != engine.InvalidID {
		t.Errorf("FindFunction(\"\", leak) = %v, want InvalidID", id)
	}

	imported := startScript(t, r, "wait\n", "secret")
	if id := imported.FindFunction("secret", "leak {}"); id == engine.InvalidID {
		t.Error("FindFunction(secret, leak) = InvalidID for a script compiled against secret")
	}
}

func TestScriptReentrantStepFails(t *testing.T) {
	r, _ := newTestRuntime(t)
	var inner engine.Status
	r.Library("host").RegisterFunction(engine.Public, "poke", engine.HostFunc(func(s engine.Script, _ *variant.Collection) variant.Variant {
		inner = s.Step()
		return variant.NullValue()
	}))
	s := startScript(t, r, "poke\n", "host")
	if s.Execute() {
		t.Fatal("Execute succeeded, want failure")
	}
	if inner != engine.StatusFailed {
		t.Errorf("inner Step = %v, want failed", inner)
	}
	if !errors.Is(s.Err(), ErrReentrant) {
		t.Errorf("Err() = %v, want ErrReentrant", s.Err())
	}
}

func TestScriptHostPanicFailsScript(t *testing.T) {
	r, _ := newTestRuntime(t)
	r.Library("host").RegisterFunction(engine.Public, "explode", func() { panic("boom") })
	s := startScript(t, r, "explode\n", "host")
	if s.Execute() {
		t.Fatal("Execute succeeded, want failure")
	}
	var rt *RuntimeError
	if !errors.As(s.Err(), &rt) || rt.Line != 1 {
		t.Errorf("Err() = %v, want runtime error on line 1", s.Err())
	}
}

func TestScriptAfterRuntimeShutdown(t *testing.T) {
	r, _ := newTestRuntime(t)
	s := startScript(t, r, "function f\nend\nwait\n")
	id := s.FindFunction("", "f")
	r.Shutdown()

	if s.Execute() {
		t.Error("Execute after shutdown returned true")
	}
	if !errors.Is(s.Err(), ErrRuntimeClosed) {
		t.Errorf("Err() = %v, want ErrRuntimeClosed", s.Err())
	}
	if _, err := s.CallFunction(id); !errors.Is(err, ErrRuntimeClosed) {
		t.Errorf("CallFunction err = %v, want ErrRuntimeClosed", err)
	}
}

func TestScriptsAreIndependent(t *testing.T) {
	r, _ := newTestRuntime(t)
	unit, err := r.Compile("external n\nset n to n + 1\n", "counter", CoreLibrary)
	if err != nil {
		t.Fatal(err)
	}
	a, _ := r.CreateScript(unit, map[string]variant.Variant{"n": variant.Int(0)})
	b, _ := r.CreateScript(unit, map[string]variant.Variant{"n": variant.Int(10)})
	a.Step()
	b.Step()
	if got := global(t, a, "n"); !got.Equal(variant.Int(1)) {
		t.Errorf("a.n = %v, want 1", got)
	}
	if got := global(t, b, "n"); !got.Equal(variant.Int(11)) {
		t.Errorf("b.n = %v, want 11", got)
	}
	if a.ID() == b.ID() {
		t.Error("scripts share an ID")
	}
}
