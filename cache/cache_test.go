package cache

import (
	"errors"
	"path/filepath"
	"testing"

	"github.com/chazu/quill/compiler"
	"github.com/chazu/quill/pkg/bytecode"
)

func openTest(t *testing.T) *Cache {
	t.Helper()
	c, err := Open(filepath.Join(t.TempDir(), "sub", "units.db"))
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { c.Close() })
	return c
}

func compileUnit(t *testing.T, text string) *bytecode.Unit {
	t.Helper()
	u, err := compiler.Compile(text, compiler.Options{Name: "cached", DebugInfo: true})
	if err != nil {
		t.Fatalf("Compile: %v", err)
	}
	return u
}

func TestKey(t *testing.T) {
	base := Key("set a to 1\n", []string{"core"}, true, nil)
	if base != Key("set a to 1\n", []string{"core"}, true, nil) {
		t.Error("Key is not stable")
	}
	others := []string{
		Key("set a to 2\n", []string{"core"}, true, nil),
		Key("set a to 1\n", []string{"core", "host"}, true, nil),
		Key("set a to 1\n", []string{"core"}, false, nil),
	}
	for i, k := range others {
		if k == base {
			t.Errorf("variant %d has the same key as the base", i)
		}
	}
}

type registry map[string][]compiler.FunctionInfo

func (r registry) LibraryNames() []string {
	names := make([]string, 0, len(r))
	for name := range r {
		names = append(names, name)
	}
	return names
}

func (r registry) LibraryFunctions(name string) ([]compiler.FunctionInfo, bool) {
	funcs, ok := r[name]
	return funcs, ok
}

func TestKeyCoversRegisteredFunctions(t *testing.T) {
	text := "import host\nsay hello\n"
	libs := []string{"core"}
	base := Key(text, libs, true, registry{
		"core": {{Signature: "write {text}"}},
		"host": {{Signature: "say hello"}, {Signature: "say {text}"}},
	})

	reordered := Key(text, libs, true, registry{
		"host": {{Signature: "say {text}"}, {Signature: "say hello"}},
		"core": {{Signature: "write {text}"}},
	})
	if reordered != base {
		t.Error("Key depends on registration order")
	}

	others := map[string]registry{
		"added": {
			"core": {{Signature: "write {text}"}},
			"host": {{Signature: "say hello"}, {Signature: "say {text}"}, {Signature: "say hello {name}"}},
		},
		"private": {
			"core": {{Signature: "write {text}"}},
			"host": {{Signature: "say hello", Private: true}, {Signature: "say {text}"}},
		},
		"new library": {
			"core":  {{Signature: "write {text}"}},
			"host":  {{Signature: "say hello"}, {Signature: "say {text}"}},
			"tools": nil,
		},
	}
	for name, reg := range others {
		if Key(text, libs, true, reg) == base {
			t.Errorf("%s: key unchanged", name)
		}
	}
}

func TestPutGet(t *testing.T) {
	c := openTest(t)
	u := compileUnit(t, "set a to 1 + 2\n")
	key := Key("set a to 1 + 2\n", nil, true, nil)

	if _, ok, err := c.Get(key); err != nil || ok {
		t.Fatalf("Get on empty cache = %v, %v", ok, err)
	}
	if err := c.Put(key, u); err != nil {
		t.Fatalf("Put: %v", err)
	}
	got, ok, err := c.Get(key)
	if err != nil || !ok {
		t.Fatalf("Get = %v, %v", ok, err)
	}
	if got.Disassemble() != u.Disassemble() {
		t.Error("cached unit differs from stored unit")
	}

	if err := c.Put(key, u); err != nil {
		t.Fatalf("second Put: %v", err)
	}
	if n, _ := c.Len(); n != 1 {
		t.Errorf("Len() = %d, want 1", n)
	}

	if err := c.Delete(key); err != nil {
		t.Fatal(err)
	}
	if n, _ := c.Len(); n != 0 {
		t.Errorf("Len() after Delete = %d, want 0", n)
	}
}

func TestCompileUsesCache(t *testing.T) {
	c := openTest(t)
	text := "set x to 42\n"
	calls := 0
	compile := func() (*bytecode.Unit, error) {
		calls++
		return compileUnit(t, text), nil
	}

	for i := 0; i < 3; i++ {
		u, err := c.Compile(text, []string{"core"}, true, nil, compile)
		if err != nil || u == nil {
			t.Fatalf("Compile #%d = %v, %v", i, u, err)
		}
	}
	if calls != 1 {
		t.Errorf("compile called %d times, want 1", calls)
	}
}

func TestCompileErrorIsNotCached(t *testing.T) {
	c := openTest(t)
	boom := errors.New("boom")
	_, err := c.Compile("bad", nil, false, nil, func() (*bytecode.Unit, error) { return nil, boom })
	if !errors.Is(err, boom) {
		t.Errorf("err = %v, want boom", err)
	}
	if n, _ := c.Len(); n != 0 {
		t.Errorf("Len() = %d, want 0", n)
	}
}

func TestUnreadableEntryIsDropped(t *testing.T) {
	c := openTest(t)
	if _, err := c.db.Exec("INSERT INTO units (key, name, libraries, data, created) VALUES ('k', 'x', '', x'ff00', 0)"); err != nil {
		t.Fatal(err)
	}
	if _, ok, err := c.Get("k"); ok || err != nil {
		t.Errorf("Get of corrupt entry = %v, %v, want miss", ok, err)
	}
	if n, _ := c.Len(); n != 0 {
		t.Errorf("Len() = %d, want 0 after drop", n)
	}
}

func TestMemoryCache(t *testing.T) {
	c, err := Open(":memory:")
	if err != nil {
		t.Fatal(err)
	}
	defer c.Close()
	if err := c.Put("m", compileUnit(t, "wait\n")); err != nil {
		t.Fatal(err)
	}
	if _, ok, _ := c.Get("m"); !ok {
		t.Error("in-memory entry not found")
	}
}
