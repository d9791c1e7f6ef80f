package vm

import (
	"errors"
	"fmt"
	"reflect"

	"github.com/chazu/quill/compiler"
	"github.com/chazu/quill/engine"
	"github.com/chazu/quill/pkg/variant"
)

var (
	scriptType     = reflect.TypeOf((*engine.Script)(nil)).Elem()
	errorType      = reflect.TypeOf((*error)(nil)).Elem()
	variantType    = reflect.TypeOf(variant.Variant{})
	collectionType = reflect.TypeOf((*variant.Collection)(nil))
	anySliceType   = reflect.TypeOf([]any(nil))
	anyMapType     = reflect.TypeOf(map[string]any(nil))
	anyType        = reflect.TypeOf((*any)(nil)).Elem()
)

// ---------------------------------------------------------------------------
// Host function adaptation
// ---------------------------------------------------------------------------

// wrapHostFunc adapts fn to the hostCall convention. Accepted shapes:
//
//	engine.HostFunc
//	func([engine.Script,] P1, ..., Pn) [R] [error]
//
// where n is the signature's arity and every P and R is a type the engine
// can marshal. Signatures ending in {} require a result.
func wrapHostFunc(fn any, sig *compiler.Signature) (hostCall, error) {
	if fn == nil {
		return nil, errors.New("nil function")
	}
	switch f := fn.(type) {
	case engine.HostFunc:
		return rawCall(f), nil
	case func(engine.Script, *variant.Collection) variant.Variant:
		return rawCall(f), nil
	}

	v := reflect.ValueOf(fn)
	t := v.Type()
	if t.Kind() != reflect.Func {
		return nil, fmt.Errorf("%T is not a function", fn)
	}
	if t.IsVariadic() {
		return nil, errors.New("variadic functions are not supported")
	}

	first := 0
	if t.NumIn() > 0 && t.In(0) == scriptType {
		first = 1
	}
	if n := t.NumIn() - first; n != sig.Arity() {
		return nil, fmt.Errorf("function takes %d arguments, signature has %d placeholders", n, sig.Arity())
	}
	for i := first; i < t.NumIn(); i++ {
		if !marshallable(t.In(i)) {
			return nil, fmt.Errorf("unsupported parameter type %s", t.In(i))
		}
	}

	hasErr := t.NumOut() > 0 && t.Out(t.NumOut()-1) == errorType
	results := t.NumOut()
	if hasErr {
		results--
	}
	if results > 1 {
		return nil, errors.New("functions may return at most one value besides an error")
	}
	if results == 1 && !marshallable(t.Out(0)) {
		return nil, fmt.Errorf("unsupported result type %s", t.Out(0))
	}
	if sig.Returns && results == 0 {
		return nil, errors.New("signature returns a value but the function has no result")
	}

	return func(s engine.Script, args []variant.Variant) (variant.Variant, error) {
		in := make([]reflect.Value, t.NumIn())
		if first == 1 {
			in[0] = reflect.ValueOf(&s).Elem()
		}
		for i, a := range args {
			rv, err := toGo(a, t.In(first+i))
			if err != nil {
				return variant.NullValue(), fmt.Errorf("argument %d: %w", i+1, err)
			}
			in[first+i] = rv
		}
		out := v.Call(in)
		if hasErr {
			if errv := out[len(out)-1]; !errv.IsNil() {
				return variant.NullValue(), errv.Interface().(error)
			}
		}
		if results == 0 {
			return variant.NullValue(), nil
		}
		return fromGo(out[0])
	}, nil
}

func rawCall(f engine.HostFunc) hostCall {
	return func(s engine.Script, args []variant.Variant) (variant.Variant, error) {
		return f(s, variant.NewList(args...)), nil
	}
}

func marshallable(t reflect.Type) bool {
	switch t {
	case variantType, collectionType, anySliceType, anyMapType, anyType:
		return true
	}
	switch t.Kind() {
	case reflect.Bool, reflect.String,
		reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64,
		reflect.Float32, reflect.Float64:
		return true
	}
	return false
}

// ---------------------------------------------------------------------------
// Type Marshaling: Variant <-> Go conversion
// ---------------------------------------------------------------------------

// toGo converts a script value to a Go value of type t.
func toGo(v variant.Variant, t reflect.Type) (reflect.Value, error) {
	switch t {
	case variantType:
		return reflect.ValueOf(v), nil
	case collectionType:
		c := v.AsCollection()
		if c == nil {
			return reflect.Value{}, fmt.Errorf("expected collection, got %s", v.Kind())
		}
		return reflect.ValueOf(c), nil
	case anySliceType:
		c := v.AsCollection()
		if c == nil {
			return reflect.Value{}, fmt.Errorf("expected collection, got %s", v.Kind())
		}
		out := make([]any, 0, c.Len())
		for _, e := range c.Entries() {
			out = append(out, e.Value.Interface())
		}
		return reflect.ValueOf(out), nil
	case anyMapType:
		c := v.AsCollection()
		if c == nil {
			return reflect.Value{}, fmt.Errorf("expected collection, got %s", v.Kind())
		}
		out := make(map[string]any, c.Len())
		for _, e := range c.Entries() {
			out[e.Key.String()] = e.Value.Interface()
		}
		return reflect.ValueOf(out), nil
	case anyType:
		rv := reflect.New(anyType).Elem()
		if x := v.Interface(); x != nil {
			rv.Set(reflect.ValueOf(x))
		}
		return rv, nil
	}

	rv := reflect.New(t).Elem()
	switch t.Kind() {
	case reflect.Bool:
		rv.SetBool(v.Truthy())

	case reflect.String:
		rv.SetString(v.AsString())

	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		i, ok := v.AsInteger()
		if !ok {
			return reflect.Value{}, fmt.Errorf("expected integer, got %s", v.Kind())
		}
		if rv.OverflowInt(i) {
			return reflect.Value{}, fmt.Errorf("integer %d overflows %s", i, t)
		}
		rv.SetInt(i)

	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		i, ok := v.AsInteger()
		if !ok {
			return reflect.Value{}, fmt.Errorf("expected integer, got %s", v.Kind())
		}
		if i < 0 || rv.OverflowUint(uint64(i)) {
			return reflect.Value{}, fmt.Errorf("integer %d out of range for %s", i, t)
		}
		rv.SetUint(uint64(i))

	case reflect.Float32, reflect.Float64:
		f, ok := v.AsReal()
		if !ok {
			return reflect.Value{}, fmt.Errorf("expected number, got %s", v.Kind())
		}
		rv.SetFloat(f)

	default:
		return reflect.Value{}, fmt.Errorf("unsupported type %s", t)
	}
	return rv, nil
}

// fromGo converts a Go result to a script value.
func fromGo(rv reflect.Value) (variant.Variant, error) {
	switch rv.Kind() {
	case reflect.Bool:
		return variant.Bool(rv.Bool()), nil
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return variant.Int(rv.Int()), nil
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return variant.Int(int64(rv.Uint())), nil
	case reflect.Float32, reflect.Float64:
		return variant.Float(rv.Float()), nil
	case reflect.String:
		return variant.Str(rv.String()), nil
	case reflect.Interface, reflect.Pointer, reflect.Slice, reflect.Map:
		if rv.IsNil() {
			return variant.NullValue(), nil
		}
	}
	return variant.FromAny(rv.Interface())
}
