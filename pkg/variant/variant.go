// Package variant defines the tagged values that cross the boundary between
// host Go code and quill scripts.
package variant

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

// Kind identifies the type held by a Variant.
type Kind uint8

const (
	Null Kind = iota
	Boolean
	Integer
	Real
	String
	CollectionKind
)

var kindNames = map[Kind]string{
	Null:           "null",
	Boolean:        "boolean",
	Integer:        "integer",
	Real:           "number",
	String:         "string",
	CollectionKind: "collection",
}

func (k Kind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}
	return fmt.Sprintf("Kind(%d)", k)
}

// Variant is a tagged value: null, boolean, integer, real, string or a
// reference to a Collection. The zero value is null.
type Variant struct {
	kind Kind
	i    int64
	f    float64
	s    string
	c    *Collection
}

// NullValue returns the null Variant.
func NullValue() Variant { return Variant{} }

// Bool wraps a boolean.
func Bool(b bool) Variant {
	v := Variant{kind: Boolean}
	if b {
		v.i = 1
	}
	return v
}

// Int wraps an integer.
func Int(i int64) Variant { return Variant{kind: Integer, i: i} }

// Float wraps a real number.
func Float(f float64) Variant { return Variant{kind: Real, f: f} }

// Str wraps a string.
func Str(s string) Variant { return Variant{kind: String, s: s} }

// Coll wraps a collection reference. A nil collection becomes null.
func Coll(c *Collection) Variant {
	if c == nil {
		return Variant{}
	}
	return Variant{kind: CollectionKind, c: c}
}

// Kind returns the type tag.
func (v Variant) Kind() Kind { return v.kind }

func (v Variant) IsNull() bool       { return v.kind == Null }
func (v Variant) IsBool() bool       { return v.kind == Boolean }
func (v Variant) IsInteger() bool    { return v.kind == Integer }
func (v Variant) IsReal() bool       { return v.kind == Real }
func (v Variant) IsNumber() bool     { return v.kind == Integer || v.kind == Real }
func (v Variant) IsString() bool     { return v.kind == String }
func (v Variant) IsCollection() bool { return v.kind == CollectionKind }

// AsBool returns the boolean payload. Non-boolean values report their
// truthiness.
func (v Variant) AsBool() bool {
	if v.kind == Boolean {
		return v.i != 0
	}
	return v.Truthy()
}

// AsInteger returns the value as an integer. Reals are truncated, strings
// are parsed; anything else yields 0 and false.
func (v Variant) AsInteger() (int64, bool) {
	switch v.kind {
	case Integer:
		return v.i, true
	case Real:
		return int64(v.f), true
	case Boolean:
		return v.i, true
	case String:
		i, err := strconv.ParseInt(strings.TrimSpace(v.s), 10, 64)
		if err != nil {
			f, ferr := strconv.ParseFloat(strings.TrimSpace(v.s), 64)
			if ferr != nil {
				return 0, false
			}
			return int64(f), true
		}
		return i, true
	}
	return 0, false
}

// AsReal returns the value as a float64.
func (v Variant) AsReal() (float64, bool) {
	switch v.kind {
	case Integer:
		return float64(v.i), true
	case Real:
		return v.f, true
	case String:
		f, err := strconv.ParseFloat(strings.TrimSpace(v.s), 64)
		return f, err == nil
	}
	return 0, false
}

// AsString returns the string payload, or the printed form for other kinds.
func (v Variant) AsString() string {
	if v.kind == String {
		return v.s
	}
	return v.String()
}

// AsCollection returns the collection reference or nil.
func (v Variant) AsCollection() *Collection {
	if v.kind == CollectionKind {
		return v.c
	}
	return nil
}

// Truthy reports whether the value counts as true in a condition.
// null, false, 0, 0.0, "" and empty collections are false.
func (v Variant) Truthy() bool {
	switch v.kind {
	case Null:
		return false
	case Boolean, Integer:
		return v.i != 0
	case Real:
		return v.f != 0
	case String:
		return v.s != ""
	case CollectionKind:
		return v.c.Len() > 0
	}
	return false
}

// Equal compares two variants. Integers and reals compare numerically;
// collections compare by identity.
func (v Variant) Equal(o Variant) bool {
	if v.IsNumber() && o.IsNumber() {
		if v.kind == Integer && o.kind == Integer {
			return v.i == o.i
		}
		a, _ := v.AsReal()
		b, _ := o.AsReal()
		return a == b
	}
	if v.kind != o.kind {
		return false
	}
	switch v.kind {
	case Null:
		return true
	case Boolean:
		return v.i == o.i
	case String:
		return v.s == o.s
	case CollectionKind:
		return v.c == o.c
	}
	return false
}

// String returns a printable representation.
func (v Variant) String() string {
	switch v.kind {
	case Null:
		return "null"
	case Boolean:
		if v.i != 0 {
			return "true"
		}
		return "false"
	case Integer:
		return strconv.FormatInt(v.i, 10)
	case Real:
		if math.Trunc(v.f) == v.f && !math.IsInf(v.f, 0) && math.Abs(v.f) < 1e15 {
			return strconv.FormatFloat(v.f, 'f', 1, 64)
		}
		return strconv.FormatFloat(v.f, 'g', -1, 64)
	case String:
		return v.s
	case CollectionKind:
		return v.c.String()
	}
	return fmt.Sprintf("<%s>", v.kind)
}

// Compare orders two comparable variants: numbers with numbers, strings
// with strings. ok is false for any other pairing.
func Compare(a, b Variant) (cmp int, ok bool) {
	if a.IsNumber() && b.IsNumber() {
		if a.kind == Integer && b.kind == Integer {
			switch {
			case a.i < b.i:
				return -1, true
			case a.i > b.i:
				return 1, true
			}
			return 0, true
		}
		x, _ := a.AsReal()
		y, _ := b.AsReal()
		switch {
		case x < y:
			return -1, true
		case x > y:
			return 1, true
		}
		return 0, true
	}
	if a.kind == String && b.kind == String {
		return strings.Compare(a.s, b.s), true
	}
	return 0, false
}
