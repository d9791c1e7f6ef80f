package bytecode

import (
	"bytes"
	"reflect"
	"testing"

	"github.com/chazu/quill/pkg/variant"
)

func debugUnit() *Unit {
	main := NewChunk()
	main.AddSourceLocation(0, 1, 1)
	main.EmitConstant(variant.Str("x"))
	main.EmitWithOperand(OpCallHost, 0, 0, 1)
	main.Emit(OpPop)
	main.Emit(OpReturnNull)

	fn := NewChunk()
	fn.ParamCount = 1
	fn.LocalCount = 2
	fn.Flags |= ChunkFlagReturnsValue
	fn.VarNames = []string{"who", "tmp"}
	fn.AddSourceLocation(0, 3, 2)
	fn.EmitWithOperand(OpLoadLocal, 0)
	fn.Emit(OpReturn)

	return &Unit{
		Version:   BytecodeVersion,
		Name:      "test.quill",
		Libraries: []string{"core", "host"},
		Main:      main,
		Functions: []*Function{{Signature: "greet {_} {}", Display: "greet {who} {}", Chunk: fn}},
		HostRefs:  []HostRef{{Library: "core", Signature: "write {_}", Arity: 1}},
	}
}

func TestStripDebugInfo(t *testing.T) {
	u := debugUnit()
	if !u.HasDebugInfo() {
		t.Fatal("fixture should carry debug info")
	}

	s := StripDebugInfo(u)
	if s.HasDebugInfo() {
		t.Error("stripped unit still reports debug info")
	}
	if s.Main.SourceMap != nil || s.Functions[0].Chunk.VarNames != nil {
		t.Error("stripped unit kept debug tables")
	}
	if !bytes.Equal(s.Main.Code, u.Main.Code) {
		t.Error("stripping changed main code")
	}
	if !s.Functions[0].ReturnsValue() {
		t.Error("stripping dropped the returns-value flag")
	}
	if s.Size() >= u.Size() {
		t.Errorf("stripped Size() = %d, want < %d", s.Size(), u.Size())
	}

	// The original must be untouched.
	if !u.HasDebugInfo() {
		t.Error("StripDebugInfo mutated its input")
	}
}

func TestStripDebugInfoIdempotent(t *testing.T) {
	once := StripDebugInfo(debugUnit())
	twice := StripDebugInfo(once)

	if !reflect.DeepEqual(once, twice) {
		t.Error("StripDebugInfo(StripDebugInfo(u)) differs from StripDebugInfo(u)")
	}
}

func TestStripDebugInfoNil(t *testing.T) {
	if StripDebugInfo(nil) != nil {
		t.Error("StripDebugInfo(nil) should be nil")
	}
}

func TestUnitFunctionIndex(t *testing.T) {
	u := debugUnit()
	if idx := u.FunctionIndex("greet {_} {}"); idx != 0 {
		t.Errorf("FunctionIndex = %d, want 0", idx)
	}
	if idx := u.FunctionIndex("missing"); idx != -1 {
		t.Errorf("FunctionIndex(missing) = %d, want -1", idx)
	}
	if u.Functions[0].Arity() != 1 {
		t.Errorf("Arity() = %d, want 1", u.Functions[0].Arity())
	}
}
