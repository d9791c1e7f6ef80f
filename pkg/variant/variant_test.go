package variant

import (
	"reflect"
	"testing"
)

func TestZeroValueIsNull(t *testing.T) {
	var v Variant
	if !v.IsNull() {
		t.Errorf("zero Variant kind = %s, want null", v.Kind())
	}
	if v.Truthy() {
		t.Error("null should not be truthy")
	}
}

func TestTruthy(t *testing.T) {
	tests := []struct {
		v    Variant
		want bool
	}{
		{NullValue(), false},
		{Bool(true), true},
		{Bool(false), false},
		{Int(0), false},
		{Int(-3), true},
		{Float(0), false},
		{Float(0.5), true},
		{Str(""), false},
		{Str("x"), true},
		{Coll(NewCollection()), false},
		{Coll(NewList(Int(1))), true},
	}
	for _, tt := range tests {
		if got := tt.v.Truthy(); got != tt.want {
			t.Errorf("%v.Truthy() = %v, want %v", tt.v, got, tt.want)
		}
	}
}

func TestEqualNumericCrossKind(t *testing.T) {
	if !Int(2).Equal(Float(2.0)) {
		t.Error("Int(2) should equal Float(2.0)")
	}
	if Int(2).Equal(Str("2")) {
		t.Error("Int(2) should not equal Str(\"2\")")
	}
	a := NewCollection()
	if !Coll(a).Equal(Coll(a)) {
		t.Error("collection should equal itself")
	}
	if Coll(a).Equal(Coll(NewCollection())) {
		t.Error("distinct collections compare by identity")
	}
}

func TestCompare(t *testing.T) {
	if c, ok := Compare(Int(1), Float(1.5)); !ok || c != -1 {
		t.Errorf("Compare(1, 1.5) = %d, %v; want -1, true", c, ok)
	}
	if c, ok := Compare(Str("b"), Str("a")); !ok || c != 1 {
		t.Errorf("Compare(b, a) = %d, %v; want 1, true", c, ok)
	}
	if _, ok := Compare(Str("a"), Int(1)); ok {
		t.Error("Compare(string, integer) should not be ok")
	}
}

func TestString(t *testing.T) {
	tests := []struct {
		v    Variant
		want string
	}{
		{NullValue(), "null"},
		{Bool(true), "true"},
		{Int(42), "42"},
		{Float(2), "2.0"},
		{Float(2.5), "2.5"},
		{Str("hi"), "hi"},
		{Coll(NewList(Int(1), Str("a"))), `[1, "a"]`},
	}
	for _, tt := range tests {
		if got := tt.v.String(); got != tt.want {
			t.Errorf("String() = %q, want %q", got, tt.want)
		}
	}
}

func TestAsInteger(t *testing.T) {
	if i, ok := Str(" 12 ").AsInteger(); !ok || i != 12 {
		t.Errorf("AsInteger(\" 12 \") = %d, %v", i, ok)
	}
	if i, ok := Float(3.9).AsInteger(); !ok || i != 3 {
		t.Errorf("AsInteger(3.9) = %d, %v", i, ok)
	}
	if _, ok := Str("abc").AsInteger(); ok {
		t.Error("AsInteger(\"abc\") should fail")
	}
}

func TestCollectionOrdering(t *testing.T) {
	c := NewCollection()
	c.Set(StrKey("name"), Str("fuga"))
	c.Set(IntKey(2), Int(20))
	c.Set(IntKey(1), Str("first"))
	c.Set(StrKey("age"), Int(3))

	keys := c.Keys()
	want := []Key{IntKey(1), IntKey(2), StrKey("age"), StrKey("name")}
	if !reflect.DeepEqual(keys, want) {
		t.Errorf("Keys() = %v, want %v", keys, want)
	}

	c.Set(IntKey(2), Int(21))
	if c.Len() != 4 {
		t.Errorf("Len() after replace = %d, want 4", c.Len())
	}
	if v := c.At(2); !v.Equal(Int(21)) {
		t.Errorf("At(2) = %v, want 21", v)
	}

	if !c.Delete(StrKey("age")) {
		t.Error("Delete(age) = false, want true")
	}
	if c.Delete(StrKey("age")) {
		t.Error("second Delete(age) = true, want false")
	}
}

func TestEmplace(t *testing.T) {
	c := NewCollection()
	if !c.Emplace(1, Str("fuga")) || !c.Emplace("k", Int(20)) {
		t.Fatal("Emplace with int/string keys failed")
	}
	if c.Emplace(1.5, Int(0)) {
		t.Error("Emplace with float key should be rejected")
	}
	if c.Len() != 2 {
		t.Errorf("Len() = %d, want 2", c.Len())
	}
}

func TestFromAnyRoundTrip(t *testing.T) {
	in := map[string]any{
		"list": []any{int64(1), "two", 3.5, true, nil},
		"n":    int64(7),
	}
	v, err := FromAny(in)
	if err != nil {
		t.Fatalf("FromAny: %v", err)
	}
	got := v.Interface()
	if !reflect.DeepEqual(got, in) {
		t.Errorf("Interface() = %#v, want %#v", got, in)
	}

	if _, err := FromAny(struct{}{}); err == nil {
		t.Error("FromAny(struct{}) should fail")
	}
}
