package compiler

import (
	"errors"
	"testing"
)

func TestParseSignature(t *testing.T) {
	tests := []struct {
		input   string
		key     string
		arity   int
		returns bool
	}{
		{"say hello", "say hello", 0, false},
		{"say {name}", "say {_}", 1, false},
		{"size of {value} {}", "size of {_} {}", 1, true},
		{"add {a} to {b} {}", "add {_} to {_} {}", 2, true},
		{"is {x} ready ?", "is {_} ready ?", 1, false},
		{"mix {a} & {b}", "mix {_} & {_}", 2, false},
		{"  extra   spaces  {x}  ", "extra spaces {_}", 1, false},
	}

	for _, tc := range tests {
		sig, err := ParseSignature(tc.input)
		if err != nil {
			t.Errorf("ParseSignature(%q) error: %v", tc.input, err)
			continue
		}
		if got := sig.Key(); got != tc.key {
			t.Errorf("ParseSignature(%q).Key() = %q, want %q", tc.input, got, tc.key)
		}
		if got := sig.Arity(); got != tc.arity {
			t.Errorf("ParseSignature(%q).Arity() = %d, want %d", tc.input, got, tc.arity)
		}
		if sig.Returns != tc.returns {
			t.Errorf("ParseSignature(%q).Returns = %v, want %v", tc.input, sig.Returns, tc.returns)
		}
	}
}

func TestParseSignatureMalformed(t *testing.T) {
	tests := []string{
		"",
		"{x} first",
		"{}",
		"say {}  hello",
		"say {",
		"say {1x}",
		"say {a} {a}",
		"set {x}",
		"say true",
		"count and {x}",
		"bad-word",
	}
	for _, input := range tests {
		_, err := ParseSignature(input)
		if err == nil {
			t.Errorf("ParseSignature(%q) succeeded, want error", input)
			continue
		}
		if !errors.Is(err, ErrMalformedSignature) {
			t.Errorf("ParseSignature(%q) error = %v, want ErrMalformedSignature", input, err)
		}
	}
}

func TestParseLookupAllowsAnonymousParams(t *testing.T) {
	sig, err := ParseLookup("add {} to {} {}")
	if err != nil {
		t.Fatalf("ParseLookup error: %v", err)
	}
	if sig.Arity() != 2 {
		t.Errorf("Arity() = %d, want 2", sig.Arity())
	}
	if !sig.Returns {
		t.Error("Returns = false, want true")
	}

	def, _ := ParseSignature("add {a} to {b} {}")
	if sig.Key() != def.Key() {
		t.Errorf("lookup key %q != definition key %q", sig.Key(), def.Key())
	}
}

func TestSignatureString(t *testing.T) {
	sig, err := ParseSignature("write {text} to {target} {}")
	if err != nil {
		t.Fatal(err)
	}
	if got, want := sig.String(), "write {text} to {target} {}"; got != want {
		t.Errorf("String() = %q, want %q", got, want)
	}
	names := sig.ParamNames()
	if len(names) != 2 || names[0] != "text" || names[1] != "target" {
		t.Errorf("ParamNames() = %v, want [text target]", names)
	}
}

func TestShapeIgnoresReturnMarker(t *testing.T) {
	a, _ := ParseSignature("value of {x}")
	b, _ := ParseSignature("value of {y} {}")
	if a.Shape() != b.Shape() {
		t.Errorf("Shape() differs: %q vs %q", a.Shape(), b.Shape())
	}
	if a.Key() == b.Key() {
		t.Errorf("Key() should differ, both %q", a.Key())
	}
}

func TestCanonicalKey(t *testing.T) {
	key, err := CanonicalKey("say   {name}")
	if err != nil {
		t.Fatal(err)
	}
	if key != "say {_}" {
		t.Errorf("CanonicalKey = %q, want %q", key, "say {_}")
	}
	if _, err := CanonicalKey("{x}"); err == nil {
		t.Error("CanonicalKey({x}) succeeded, want error")
	}
}
