// Package loader turns a script path into source text ready for
// compilation.
package loader

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"regexp"
	"strings"
)

// DefaultSuffix is the file extension quill scripts use.
const DefaultSuffix = "quill"

// ErrMalformedPath is wrapped by the PreconditionError returned for paths
// that do not have the form stem.extension.
var ErrMalformedPath = errors.New("malformed script path")

var pathPattern = regexp.MustCompile(`^(.+)\.([A-Za-z]+)$`)

// PreconditionError reports a caller mistake that no retry can fix.
type PreconditionError struct {
	Path string
	Err  error
}

func (e *PreconditionError) Error() string {
	return fmt.Sprintf("%s: %v", e.Path, e.Err)
}

func (e *PreconditionError) Unwrap() error { return e.Err }

// IsPrecondition reports whether err is, or wraps, a PreconditionError.
func IsPrecondition(err error) bool {
	var pe *PreconditionError
	return errors.As(err, &pe)
}

// Source is the text of one script and where it came from.
type Source struct {
	Name string // identifier used in diagnostics, usually the given path
	Path string // file actually read; empty for in-memory sources
	Text string
}

// Resolve derives the file to read for path. A path whose extension is
// already suffix is returned unchanged with renamed false; otherwise the
// extension is replaced by suffix.
func Resolve(path, suffix string) (resolved string, renamed bool, err error) {
	m := pathPattern.FindStringSubmatch(path)
	if m == nil {
		return "", false, &PreconditionError{Path: path, Err: ErrMalformedPath}
	}
	if m[2] == suffix {
		return path, false, nil
	}
	return m[1] + "." + suffix, true, nil
}

// Load resolves path and reads the file it names.
func Load(path, suffix string) (*Source, error) {
	resolved, _, err := Resolve(path, suffix)
	if err != nil {
		return nil, err
	}
	f, err := os.Open(resolved)
	if err != nil {
		return nil, fmt.Errorf("load %s: %w", path, err)
	}
	defer f.Close()

	text, err := readLines(f)
	if err != nil {
		return nil, fmt.Errorf("load %s: %w", resolved, err)
	}
	return &Source{Name: path, Path: resolved, Text: text}, nil
}

// FromString wraps text that did not come from a file.
func FromString(name, text string) *Source {
	s, _ := readLines(strings.NewReader(text))
	return &Source{Name: name, Text: s}
}

// readLines copies r terminating every line, including a partial last
// one, with a single \n.
func readLines(r io.Reader) (string, error) {
	var sb strings.Builder
	br := bufio.NewReader(r)
	for {
		line, err := br.ReadString('\n')
		if line != "" {
			line = strings.TrimSuffix(line, "\n")
			line = strings.TrimSuffix(line, "\r")
			sb.WriteString(line)
			sb.WriteByte('\n')
		}
		if err == io.EOF {
			return sb.String(), nil
		}
		if err != nil {
			return "", err
		}
	}
}
