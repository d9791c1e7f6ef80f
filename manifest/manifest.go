// Package manifest handles quill.toml project configuration.
package manifest

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"
)

// FileName is the name of the configuration file FindAndLoad looks for.
const FileName = "quill.toml"

// Manifest represents a quill.toml configuration.
type Manifest struct {
	Project Project `toml:"project"`
	Engine  Engine  `toml:"engine"`
	Script  Script  `toml:"script"`

	// Dir is the directory containing the quill.toml file (set at load time).
	Dir string `toml:"-"`
}

// Project contains project metadata.
type Project struct {
	Name    string `toml:"name"`
	Version string `toml:"version"`
}

// Engine configures the scripting engine.
type Engine struct {
	Logging     bool `toml:"logging"`
	LogBytecode bool `toml:"log-bytecode"`
	LogSymbols  bool `toml:"log-symbols"`
	DebugInfo   bool `toml:"debug-info"` // true unless set
	BlockSize   int  `toml:"block-size"`
}

// Script configures how scripts are loaded, compiled and run. An empty
// Libraries list leaves the harness default in place.
type Script struct {
	Suffix    string   `toml:"suffix"`
	Libraries []string `toml:"libraries"`
	Strip     bool     `toml:"strip"`
	Cache     string   `toml:"cache"`
	Call      string   `toml:"call"`
	Args      []any    `toml:"args"`
}

// Load parses a quill.toml file from the given directory.
func Load(dir string) (*Manifest, error) {
	path := filepath.Join(dir, FileName)
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("cannot read %s: %w", path, err)
	}

	var m Manifest
	meta, err := toml.Decode(string(data), &m)
	if err != nil {
		return nil, fmt.Errorf("parse error in %s: %w", path, err)
	}
	if m.Engine.BlockSize < 0 {
		return nil, fmt.Errorf("%s: block-size must not be negative", path)
	}

	m.Dir, err = filepath.Abs(dir)
	if err != nil {
		return nil, fmt.Errorf("cannot resolve path %s: %w", dir, err)
	}

	// Defaults
	if m.Script.Suffix == "" {
		m.Script.Suffix = "quill"
	}
	if !meta.IsDefined("engine", "debug-info") {
		m.Engine.DebugInfo = true
	}

	return &m, nil
}

// FindAndLoad walks up from startDir to find a quill.toml file,
// then loads and returns the manifest. Returns nil if no manifest is found.
func FindAndLoad(startDir string) (*Manifest, error) {
	dir, err := filepath.Abs(startDir)
	if err != nil {
		return nil, err
	}

	for {
		path := filepath.Join(dir, FileName)
		if _, err := os.Stat(path); err == nil {
			return Load(dir)
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			// Reached root
			return nil, nil
		}
		dir = parent
	}
}

// CachePath returns the absolute path of the unit cache database, or ""
// when caching is off.
func (m *Manifest) CachePath() string {
	if m.Script.Cache == "" {
		return ""
	}
	if filepath.IsAbs(m.Script.Cache) {
		return m.Script.Cache
	}
	return filepath.Join(m.Dir, m.Script.Cache)
}
