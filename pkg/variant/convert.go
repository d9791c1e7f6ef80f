package variant

import (
	"fmt"
	"sort"
)

// FromAny converts a Go value to a Variant. Supported inputs are nil,
// bool, the integer and float types, string, Variant, *Collection,
// []any and map[string]any (recursively).
func FromAny(x any) (Variant, error) {
	switch v := x.(type) {
	case nil:
		return Variant{}, nil
	case Variant:
		return v, nil
	case *Collection:
		return Coll(v), nil
	case bool:
		return Bool(v), nil
	case int:
		return Int(int64(v)), nil
	case int8:
		return Int(int64(v)), nil
	case int16:
		return Int(int64(v)), nil
	case int32:
		return Int(int64(v)), nil
	case int64:
		return Int(v), nil
	case uint:
		return Int(int64(v)), nil
	case uint8:
		return Int(int64(v)), nil
	case uint16:
		return Int(int64(v)), nil
	case uint32:
		return Int(int64(v)), nil
	case float32:
		return Float(float64(v)), nil
	case float64:
		return Float(v), nil
	case string:
		return Str(v), nil
	case []any:
		c := NewCollection()
		for i, e := range v {
			ev, err := FromAny(e)
			if err != nil {
				return Variant{}, fmt.Errorf("element %d: %w", i+1, err)
			}
			c.Set(IntKey(int64(i+1)), ev)
		}
		return Coll(c), nil
	case map[string]any:
		c := NewCollection()
		keys := make([]string, 0, len(v))
		for k := range v {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			ev, err := FromAny(v[k])
			if err != nil {
				return Variant{}, fmt.Errorf("key %q: %w", k, err)
			}
			c.Set(StrKey(k), ev)
		}
		return Coll(c), nil
	}
	return Variant{}, fmt.Errorf("unsupported host value of type %T", x)
}

// Interface converts a Variant back to a plain Go value. Collections whose
// keys are exactly 1..n become []any; any other collection becomes
// map[string]any with integer keys printed in decimal.
func (v Variant) Interface() any {
	switch v.kind {
	case Boolean:
		return v.i != 0
	case Integer:
		return v.i
	case Real:
		return v.f
	case String:
		return v.s
	case CollectionKind:
		entries := v.c.Entries()
		sequential := true
		for i, e := range entries {
			if e.Key.IsString() || e.Key.Int() != int64(i+1) {
				sequential = false
				break
			}
		}
		if sequential {
			out := make([]any, len(entries))
			for i, e := range entries {
				out[i] = e.Value.Interface()
			}
			return out
		}
		out := make(map[string]any, len(entries))
		for _, e := range entries {
			k := e.Key.Str()
			if !e.Key.IsString() {
				k = fmt.Sprintf("%d", e.Key.Int())
			}
			out[k] = e.Value.Interface()
		}
		return out
	}
	return nil
}
