package variant

import (
	"fmt"
	"sort"
	"strings"
)

// Key addresses an entry in a Collection. Only integer and string keys are
// allowed.
type Key struct {
	isString bool
	i        int64
	s        string
}

// IntKey returns an integer key.
func IntKey(i int64) Key { return Key{i: i} }

// StrKey returns a string key.
func StrKey(s string) Key { return Key{isString: true, s: s} }

// KeyOf converts a variant to a key. Reals with an integral value are
// accepted as integer keys.
func KeyOf(v Variant) (Key, bool) {
	switch v.kind {
	case Integer:
		return IntKey(v.i), true
	case String:
		return StrKey(v.s), true
	case Real:
		if float64(int64(v.f)) == v.f {
			return IntKey(int64(v.f)), true
		}
	}
	return Key{}, false
}

// IsString reports whether the key is a string key.
func (k Key) IsString() bool { return k.isString }

// Int returns the integer form of an integer key.
func (k Key) Int() int64 { return k.i }

// Str returns the string form of a string key.
func (k Key) Str() string { return k.s }

// Variant returns the key as a Variant.
func (k Key) Variant() Variant {
	if k.isString {
		return Str(k.s)
	}
	return Int(k.i)
}

func (k Key) String() string {
	if k.isString {
		return fmt.Sprintf("%q", k.s)
	}
	return fmt.Sprintf("%d", k.i)
}

// less orders integer keys before string keys.
func (k Key) less(o Key) bool {
	if k.isString != o.isString {
		return !k.isString
	}
	if k.isString {
		return k.s < o.s
	}
	return k.i < o.i
}

// Entry is a key/value pair of a Collection.
type Entry struct {
	Key   Key
	Value Variant
}

// Collection is an ordered, key-addressable container of Variants.
// Iteration order is by key: integers ascending, then strings.
// A Collection is not safe for concurrent mutation.
type Collection struct {
	entries []Entry
}

// NewCollection creates an empty collection.
func NewCollection() *Collection {
	return &Collection{}
}

// NewList creates a collection keyed 1..n from the given values.
func NewList(values ...Variant) *Collection {
	c := &Collection{entries: make([]Entry, len(values))}
	for i, v := range values {
		c.entries[i] = Entry{Key: IntKey(int64(i + 1)), Value: v}
	}
	return c
}

func (c *Collection) search(k Key) (int, bool) {
	i := sort.Search(len(c.entries), func(i int) bool {
		return !c.entries[i].Key.less(k)
	})
	return i, i < len(c.entries) && c.entries[i].Key == k
}

// Set stores a value under a key, replacing any existing value.
func (c *Collection) Set(k Key, v Variant) {
	i, found := c.search(k)
	if found {
		c.entries[i].Value = v
		return
	}
	c.entries = append(c.entries, Entry{})
	copy(c.entries[i+1:], c.entries[i:])
	c.entries[i] = Entry{Key: k, Value: v}
}

// Emplace stores a value under an integer or string key. It mirrors the
// common host-side construction pattern; other key types are ignored and
// reported as false.
func (c *Collection) Emplace(key any, v Variant) bool {
	switch k := key.(type) {
	case int:
		c.Set(IntKey(int64(k)), v)
	case int64:
		c.Set(IntKey(k), v)
	case string:
		c.Set(StrKey(k), v)
	default:
		return false
	}
	return true
}

// Get returns the value stored under k.
func (c *Collection) Get(k Key) (Variant, bool) {
	if c == nil {
		return Variant{}, false
	}
	i, found := c.search(k)
	if !found {
		return Variant{}, false
	}
	return c.entries[i].Value, true
}

// At is a convenience for integer-keyed access; missing keys yield null.
func (c *Collection) At(i int64) Variant {
	v, _ := c.Get(IntKey(i))
	return v
}

// Delete removes k and reports whether it was present.
func (c *Collection) Delete(k Key) bool {
	i, found := c.search(k)
	if !found {
		return false
	}
	c.entries = append(c.entries[:i], c.entries[i+1:]...)
	return true
}

// Len returns the number of entries.
func (c *Collection) Len() int {
	if c == nil {
		return 0
	}
	return len(c.entries)
}

// Entries returns a copy of the entries in key order.
func (c *Collection) Entries() []Entry {
	if c == nil {
		return nil
	}
	out := make([]Entry, len(c.entries))
	copy(out, c.entries)
	return out
}

// Keys returns the keys in order.
func (c *Collection) Keys() []Key {
	keys := make([]Key, 0, c.Len())
	for _, e := range c.Entries() {
		keys = append(keys, e.Key)
	}
	return keys
}

func (c *Collection) String() string {
	var sb strings.Builder
	sb.WriteByte('[')
	for i, e := range c.Entries() {
		if i > 0 {
			sb.WriteString(", ")
		}
		if e.Key.IsString() {
			sb.WriteString(e.Key.String())
			sb.WriteString(": ")
		}
		if e.Value.IsString() {
			sb.WriteString(fmt.Sprintf("%q", e.Value.s))
		} else {
			sb.WriteString(e.Value.String())
		}
	}
	sb.WriteByte(']')
	return sb.String()
}
