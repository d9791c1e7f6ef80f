package bytecode

// Function is a script-defined function compiled into a Unit.
type Function struct {
	Signature string // canonical signature key
	Display   string // signature as written in the source
	Private   bool   // hidden from host lookups
	Chunk     *Chunk
}

// Arity returns the number of parameters.
func (f *Function) Arity() int {
	return int(f.Chunk.ParamCount)
}

// ReturnsValue reports whether the function produces a value.
func (f *Function) ReturnsValue() bool {
	return f.Chunk.ReturnsValue()
}

// HostRef names a host function the unit's code calls. References are
// resolved against the owning runtime when a script is instantiated.
type HostRef struct {
	Library   string
	Signature string // canonical signature key
	Arity     int
	Returns   bool
}

// Unit is the executable form of a script: the top-level chunk, the
// functions it defines and the set of libraries it was compiled against.
// A Unit is immutable once produced and may back any number of scripts.
type Unit struct {
	Version   uint16
	Name      string   // originating source identifier
	Library   string   // library the script declared itself part of, if any
	Libraries []string // required libraries, in compile order
	Externals []string // variables the host is expected to supply
	Main      *Chunk
	Functions []*Function
	HostRefs  []HostRef
}

// HasDebugInfo reports whether any chunk of the unit carries debug info.
func (u *Unit) HasDebugInfo() bool {
	if u == nil {
		return false
	}
	if u.Main != nil && u.Main.HasDebugInfo() {
		return true
	}
	for _, f := range u.Functions {
		if f.Chunk.HasDebugInfo() {
			return true
		}
	}
	return false
}

// FunctionIndex returns the index of the function with the given canonical
// signature, or -1.
func (u *Unit) FunctionIndex(signature string) int {
	for i, f := range u.Functions {
		if f.Signature == signature {
			return i
		}
	}
	return -1
}

// Size returns the approximate in-memory footprint of the unit in bytes:
// code, constants and debug tables.
func (u *Unit) Size() int {
	size := 0
	add := func(c *Chunk) {
		if c == nil {
			return
		}
		size += len(c.Code) + len(c.Constants)*16
		size += len(c.SourceMap) * 10
		for _, n := range c.VarNames {
			size += len(n)
		}
	}
	add(u.Main)
	for _, f := range u.Functions {
		add(f.Chunk)
	}
	return size
}

// StripDebugInfo returns a copy of u without source maps or slot names.
// The executable content is unchanged. Stripping an already stripped unit
// yields an equivalent unit.
func StripDebugInfo(u *Unit) *Unit {
	if u == nil {
		return nil
	}
	out := &Unit{
		Version:   u.Version,
		Name:      u.Name,
		Library:   u.Library,
		Libraries: append([]string(nil), u.Libraries...),
		Externals: append([]string(nil), u.Externals...),
		Main:      u.Main.stripped(),
		HostRefs:  append([]HostRef(nil), u.HostRefs...),
	}
	for _, f := range u.Functions {
		out.Functions = append(out.Functions, &Function{
			Signature: f.Signature,
			Display:   f.Display,
			Private:   f.Private,
			Chunk:     f.Chunk.stripped(),
		})
	}
	return out
}
