package compiler

import (
	"errors"
	"fmt"
	"strings"
)

// ---------------------------------------------------------------------------
// Signatures: the positional token patterns that name callable functions
// ---------------------------------------------------------------------------

// ErrMalformedSignature is returned for signatures that break the grammar.
var ErrMalformedSignature = errors.New("malformed signature")

// SigPart is one token of a signature: either a literal word or a
// parameter placeholder.
type SigPart struct {
	Word  string
	Param bool
	Name  string // parameter name, may be empty in lookups
}

// Signature is a parsed function signature such as
// "say {name} & {age} {}". Words are matched literally at call sites,
// each {name} placeholder takes one argument, and a trailing bare {}
// marks a function that returns a value.
type Signature struct {
	Parts   []SigPart
	Returns bool
}

// ParseSignature parses a signature as written in a definition: parameter
// placeholders must be named, and a bare {} is only allowed as the final
// return marker.
func ParseSignature(text string) (*Signature, error) {
	return parseSignature(text, false)
}

// ParseLookup parses a signature used to look a function up. Parameter
// placeholders may be anonymous; a bare {} in final position is still the
// return marker.
func ParseLookup(text string) (*Signature, error) {
	return parseSignature(text, true)
}

func parseSignature(text string, lookup bool) (*Signature, error) {
	fields := strings.Fields(text)
	if len(fields) == 0 {
		return nil, fmt.Errorf("%w: empty", ErrMalformedSignature)
	}
	sig := &Signature{}
	for i, f := range fields {
		last := i == len(fields)-1
		if strings.HasPrefix(f, "{") || strings.HasSuffix(f, "}") {
			if len(f) < 2 || !strings.HasPrefix(f, "{") || !strings.HasSuffix(f, "}") {
				return nil, fmt.Errorf("%w: bad placeholder %q", ErrMalformedSignature, f)
			}
			name := f[1 : len(f)-1]
			if name == "" && last && i > 0 {
				sig.Returns = true
				continue
			}
			if name == "" && !lookup {
				return nil, fmt.Errorf("%w: parameter placeholder in %q must be named", ErrMalformedSignature, text)
			}
			if name != "" && !isIdentifier(name) {
				return nil, fmt.Errorf("%w: bad parameter name %q", ErrMalformedSignature, name)
			}
			sig.Parts = append(sig.Parts, SigPart{Param: true, Name: name})
			continue
		}
		if !isSignatureWord(f) {
			return nil, fmt.Errorf("%w: bad word %q", ErrMalformedSignature, f)
		}
		sig.Parts = append(sig.Parts, SigPart{Word: f})
	}
	if err := sig.validate(); err != nil {
		return nil, err
	}
	return sig, nil
}

func (s *Signature) validate() error {
	if len(s.Parts) == 0 || s.Parts[0].Param {
		return fmt.Errorf("%w: must begin with a word", ErrMalformedSignature)
	}
	first := s.Parts[0].Word
	if statementKeywords[first] {
		return fmt.Errorf("%w: cannot begin with keyword %q", ErrMalformedSignature, first)
	}
	seen := make(map[string]bool)
	for _, p := range s.Parts {
		if !p.Param && expressionKeywords[p.Word] {
			return fmt.Errorf("%w: cannot contain keyword %q", ErrMalformedSignature, p.Word)
		}
		if p.Param && p.Name != "" {
			if seen[p.Name] {
				return fmt.Errorf("%w: duplicate parameter %q", ErrMalformedSignature, p.Name)
			}
			seen[p.Name] = true
		}
	}
	return nil
}

// Arity returns the number of parameter placeholders.
func (s *Signature) Arity() int {
	n := 0
	for _, p := range s.Parts {
		if p.Param {
			n++
		}
	}
	return n
}

// ParamNames returns the placeholder names in order.
func (s *Signature) ParamNames() []string {
	var names []string
	for _, p := range s.Parts {
		if p.Param {
			names = append(names, p.Name)
		}
	}
	return names
}

// Shape returns the call-site shape of the signature: words verbatim and
// parameters as {_}. Two signatures with the same shape cannot be told
// apart at a call site.
func (s *Signature) Shape() string {
	parts := make([]string, len(s.Parts))
	for i, p := range s.Parts {
		if p.Param {
			parts[i] = "{_}"
		} else {
			parts[i] = p.Word
		}
	}
	return strings.Join(parts, " ")
}

// Key returns the canonical form used to identify the function: the shape
// followed by " {}" when the function returns a value.
func (s *Signature) Key() string {
	if s.Returns {
		return s.Shape() + " {}"
	}
	return s.Shape()
}

// String renders the signature with parameter names.
func (s *Signature) String() string {
	parts := make([]string, 0, len(s.Parts)+1)
	for _, p := range s.Parts {
		if p.Param {
			parts = append(parts, "{"+p.Name+"}")
		} else {
			parts = append(parts, p.Word)
		}
	}
	if s.Returns {
		parts = append(parts, "{}")
	}
	return strings.Join(parts, " ")
}

// CanonicalKey parses a lookup signature and returns its Key.
func CanonicalKey(text string) (string, error) {
	sig, err := ParseLookup(text)
	if err != nil {
		return "", err
	}
	return sig.Key(), nil
}

func isIdentifier(s string) bool {
	for i, r := range s {
		if !(isIdentStart(r) || (i > 0 && isDigit(r))) {
			return false
		}
	}
	return s != ""
}

func isSignatureWord(s string) bool {
	return s == "&" || s == "?" || isIdentifier(s)
}
