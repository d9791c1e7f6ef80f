// Package cache stores compiled units in a SQLite database keyed by the
// source text and compile settings, so unchanged scripts skip compilation.
package cache

import (
	"crypto/sha256"
	"database/sql"
	"encoding/hex"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/chazu/quill/compiler"
	"github.com/chazu/quill/pkg/bytecode"
	"github.com/chazu/quill/vm/wire"
	"github.com/tliron/commonlog"
	_ "modernc.org/sqlite"
)

var log = commonlog.GetLogger("quill.cache")

// Cache is a compiled-unit store backed by SQLite.
type Cache struct {
	db   *sql.DB
	path string
	mu   sync.Mutex
}

// Open opens or creates the cache database at path. ":memory:" gives a
// private in-memory cache.
func Open(path string) (*Cache, error) {
	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, fmt.Errorf("creating cache directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("opening cache: %w", err)
	}
	// An in-memory database lives as long as its one connection.
	db.SetMaxOpenConns(1)

	if _, err := db.Exec("PRAGMA busy_timeout = 5000"); err != nil {
		db.Close()
		return nil, fmt.Errorf("setting busy timeout: %w", err)
	}

	_, err = db.Exec(`CREATE TABLE IF NOT EXISTS units (
		key TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		libraries TEXT NOT NULL,
		data BLOB NOT NULL,
		created INTEGER NOT NULL
	)`)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("creating table: %w", err)
	}

	log.Debugf("cache opened at %s", path)
	return &Cache{db: db, path: path}, nil
}

// Close closes the database connection.
func (c *Cache) Close() error {
	if c.db != nil {
		return c.db.Close()
	}
	return nil
}

// Registry is the library table a compilation resolves calls against.
// *vm.Runtime satisfies it.
type Registry interface {
	LibraryNames() []string
	LibraryFunctions(name string) ([]compiler.FunctionInfo, bool)
}

// Key identifies a compilation: the same text compiled against the same
// libraries with the same debug setting, while reg holds the same
// functions, always yields the same key. reg may be nil.
func Key(text string, libraries []string, debug bool, reg Registry) string {
	h := sha256.New()
	h.Write([]byte(text))
	h.Write([]byte{0})
	h.Write([]byte(strings.Join(libraries, ",")))
	if debug {
		h.Write([]byte{1})
	} else {
		h.Write([]byte{0})
	}
	if reg != nil {
		// Every library counts since the script may import any of them.
		names := append([]string(nil), reg.LibraryNames()...)
		sort.Strings(names)
		for _, name := range names {
			funcs, _ := reg.LibraryFunctions(name)
			sigs := make([]string, len(funcs))
			for i, f := range funcs {
				sigs[i] = f.Signature
				if f.Private {
					sigs[i] += " private"
				}
			}
			sort.Strings(sigs)
			fmt.Fprintf(h, "\x00%s:%s", name, strings.Join(sigs, "\n"))
		}
	}
	return hex.EncodeToString(h.Sum(nil))
}

// Get returns the unit stored under key. A missing entry is not an error.
// Entries that no longer decode are dropped and reported as missing.
func (c *Cache) Get(key string) (*bytecode.Unit, bool, error) {
	var data []byte
	err := c.db.QueryRow("SELECT data FROM units WHERE key = ?", key).Scan(&data)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, false, nil
		}
		return nil, false, fmt.Errorf("querying unit: %w", err)
	}

	u, err := wire.Unmarshal(data)
	if err != nil {
		log.Warningf("dropping unreadable cache entry %s: %v", key, err)
		if derr := c.Delete(key); derr != nil {
			return nil, false, derr
		}
		return nil, false, nil
	}
	return u, true, nil
}

// Put stores u under key, replacing any previous entry.
func (c *Cache) Put(key string, u *bytecode.Unit) error {
	data, err := wire.Marshal(u)
	if err != nil {
		return fmt.Errorf("encoding unit: %w", err)
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	_, err = c.db.Exec(
		"INSERT OR REPLACE INTO units (key, name, libraries, data, created) VALUES (?, ?, ?, ?, ?)",
		key, u.Name, strings.Join(u.Libraries, ","), data, time.Now().Unix(),
	)
	if err != nil {
		return fmt.Errorf("saving unit: %w", err)
	}
	return nil
}

// Delete removes the entry stored under key.
func (c *Cache) Delete(key string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, err := c.db.Exec("DELETE FROM units WHERE key = ?", key); err != nil {
		return fmt.Errorf("deleting unit: %w", err)
	}
	return nil
}

// Len returns the number of stored units.
func (c *Cache) Len() (int, error) {
	var n int
	if err := c.db.QueryRow("SELECT COUNT(*) FROM units").Scan(&n); err != nil {
		return 0, fmt.Errorf("counting units: %w", err)
	}
	return n, nil
}

// Compile returns the cached unit for text when present, otherwise it calls
// compile and stores the result. Cache failures are logged and never stop
// compilation.
func (c *Cache) Compile(text string, libraries []string, debug bool, reg Registry, compile func() (*bytecode.Unit, error)) (*bytecode.Unit, error) {
	key := Key(text, libraries, debug, reg)
	if u, ok, err := c.Get(key); err != nil {
		log.Warningf("cache lookup failed: %v", err)
	} else if ok {
		log.Debugf("cache hit %s (%s)", key[:12], u.Name)
		return u, nil
	}

	u, err := compile()
	if err != nil {
		return nil, err
	}
	if err := c.Put(key, u); err != nil {
		log.Warningf("cache store failed: %v", err)
	}
	return u, nil
}
