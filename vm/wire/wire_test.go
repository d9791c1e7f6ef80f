package wire

import (
	"bytes"
	"errors"
	"testing"

	"github.com/chazu/quill/compiler"
	"github.com/chazu/quill/pkg/bytecode"
	"github.com/chazu/quill/pkg/variant"
	"github.com/fxamacker/cbor/v2"
)

const source = `external limit
function greet {name} {}
    return "hello " + name
end
private function noop
end
set ratio to 2.5
set on to true
set nothing to null
set msg to greet "you"
say msg
wait
`

func compile(t *testing.T, debug bool) *bytecode.Unit {
	t.Helper()
	u, err := compiler.Compile(source, compiler.Options{
		Name:      "wire",
		Libraries: []string{"host"},
		Scope:     compiler.MapScope{"host": {"say {text}"}},
		DebugInfo: debug,
	})
	if err != nil {
		t.Fatalf("Compile: %v", err)
	}
	return u
}

func TestRoundTrip(t *testing.T) {
	for _, debug := range []bool{true, false} {
		u := compile(t, debug)
		data, err := Marshal(u)
		if err != nil {
			t.Fatalf("Marshal: %v", err)
		}
		got, err := Unmarshal(data)
		if err != nil {
			t.Fatalf("Unmarshal: %v", err)
		}

		if got.Disassemble() != u.Disassemble() {
			t.Errorf("debug=%v: disassembly differs after round trip", debug)
		}
		if got.HasDebugInfo() != debug {
			t.Errorf("debug=%v: HasDebugInfo() = %v", debug, got.HasDebugInfo())
		}
		if got.Size() != u.Size() {
			t.Errorf("debug=%v: Size() = %d, want %d", debug, got.Size(), u.Size())
		}
		if len(got.HostRefs) != 1 || got.HostRefs[0].Library != "host" {
			t.Errorf("debug=%v: HostRefs = %+v", debug, got.HostRefs)
		}
		if !got.Functions[1].Private {
			t.Errorf("debug=%v: private flag lost", debug)
		}
		if len(got.Externals) != 1 || got.Externals[0] != "limit" {
			t.Errorf("debug=%v: Externals = %v", debug, got.Externals)
		}
	}
}

func TestMarshalIsDeterministic(t *testing.T) {
	a, err := Marshal(compile(t, true))
	if err != nil {
		t.Fatal(err)
	}
	b, err := Marshal(compile(t, true))
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(a, b) {
		t.Error("encoding the same source twice gave different bytes")
	}
}

func TestConstantKinds(t *testing.T) {
	values := []variant.Variant{
		variant.NullValue(),
		variant.Bool(true),
		variant.Bool(false),
		variant.Int(-42),
		variant.Float(0.125),
		variant.Str("text"),
	}
	for _, v := range values {
		msg, err := constantToMsg(v)
		if err != nil {
			t.Errorf("constantToMsg(%v): %v", v, err)
			continue
		}
		if got := msgToConstant(msg); got.Kind() != v.Kind() || !got.Equal(v) {
			t.Errorf("constant %v decoded as %v", v, got)
		}
	}
	if _, err := constantToMsg(variant.Coll(variant.NewList())); err == nil {
		t.Error("collection constant encoded, want error")
	}
}

func TestUnmarshalErrors(t *testing.T) {
	if _, err := Unmarshal([]byte{0xff, 0x00}); err == nil {
		t.Error("Unmarshal of garbage succeeded")
	}

	data, err := encMode.Marshal(&unitMsg{Version: bytecode.BytecodeVersion + 1, Name: "future"})
	if err != nil {
		t.Fatal(err)
	}
	if _, err := Unmarshal(data); !errors.Is(err, ErrVersion) {
		t.Errorf("Unmarshal future version: err = %v, want ErrVersion", err)
	}

	if _, err := Marshal(nil); err == nil {
		t.Error("Marshal(nil) succeeded")
	}
}

func TestEncodingIsCBOR(t *testing.T) {
	data, err := Marshal(compile(t, false))
	if err != nil {
		t.Fatal(err)
	}
	var generic map[int]any
	if err := cbor.Unmarshal(data, &generic); err != nil {
		t.Fatalf("generic decode: %v", err)
	}
	if generic[2] != "wire" {
		t.Errorf("name field = %v, want wire", generic[2])
	}
}
