package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/chazu/quill/driver"
	"github.com/chazu/quill/pkg/variant"
)

func TestParseArgs(t *testing.T) {
	got := parseArgs([]string{"fuga", "20", "1.5", "-3"})
	want := []variant.Variant{variant.Str("fuga"), variant.Int(20), variant.Float(1.5), variant.Int(-3)}
	for i := range want {
		if got[i].Kind() != want[i].Kind() || !got[i].Equal(want[i]) {
			t.Errorf("arg %d = %v (%s), want %v (%s)", i, got[i], got[i].Kind(), want[i], want[i].Kind())
		}
	}
}

func TestOptionsFromManifest(t *testing.T) {
	dir := t.TempDir()
	toml := `
[engine]
debug-info = true
block-size = 512

[script]
libraries = ["core", "host"]
call = "greet {} {}"
args = ["you", 2]
`
	if err := os.WriteFile(filepath.Join(dir, "quill.toml"), []byte(toml), 0644); err != nil {
		t.Fatal(err)
	}
	m, err := loadManifest(dir, "")
	if err != nil {
		t.Fatal(err)
	}
	opts := options(m)
	if !opts.Params.EnableDebugInfo || opts.Params.AllocBlockSize != 512 {
		t.Errorf("params = %+v", opts.Params)
	}
	if opts.Call != "greet {} {}" || len(opts.Args) != 2 {
		t.Errorf("call = %q args = %v", opts.Call, opts.Args)
	}
	if !opts.Args[1].Equal(variant.Int(2)) {
		t.Errorf("args[1] = %v, want 2", opts.Args[1])
	}
}

func TestOptionsWithoutManifest(t *testing.T) {
	opts := options(nil)
	if !opts.Params.EnableDebugInfo {
		t.Error("debug info off without a manifest")
	}
	if opts.Suffix != "" || opts.Libraries != nil {
		t.Errorf("unexpected defaults %+v", opts)
	}
}

func TestMinimalManifestKeepsHarnessDefaults(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "quill.toml"), []byte("[engine]\nlogging = false\n"), 0644); err != nil {
		t.Fatal(err)
	}
	script := filepath.Join(dir, "hello.quill")
	if err := os.WriteFile(script, []byte("say hello\n"), 0644); err != nil {
		t.Fatal(err)
	}
	m, err := loadManifest(dir, script)
	if err != nil {
		t.Fatal(err)
	}
	opts := options(m)
	if !opts.Params.EnableDebugInfo {
		t.Error("debug info off with a manifest that does not set it")
	}

	var out bytes.Buffer
	opts.Stdout = &out
	if code := driver.New(opts).Run(context.Background(), script); code != 0 {
		t.Fatalf("Run = %d, want 0", code)
	}
	if out.String() != "Hello!\n" {
		t.Errorf("output = %q, want %q", out.String(), "Hello!\n")
	}
}
