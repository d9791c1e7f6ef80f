// Package wire serializes compiled units to CBOR so they can be cached or
// shipped between processes without recompiling.
package wire

import (
	"errors"
	"fmt"

	"github.com/chazu/quill/pkg/bytecode"
	"github.com/chazu/quill/pkg/variant"
	"github.com/fxamacker/cbor/v2"
)

// ErrVersion is returned when decoding a unit produced by an incompatible
// bytecode version.
var ErrVersion = errors.New("wire: unsupported bytecode version")

var encMode cbor.EncMode

func init() {
	em, err := cbor.CanonicalEncOptions().EncMode()
	if err != nil {
		panic(fmt.Sprintf("wire: failed to create CBOR enc mode: %v", err))
	}
	encMode = em
}

type unitMsg struct {
	Version   uint16        `cbor:"1,keyasint"`
	Name      string        `cbor:"2,keyasint"`
	Library   string        `cbor:"3,keyasint,omitempty"`
	Libraries []string      `cbor:"4,keyasint,omitempty"`
	Externals []string      `cbor:"5,keyasint,omitempty"`
	Main      chunkMsg      `cbor:"6,keyasint"`
	Functions []functionMsg `cbor:"7,keyasint,omitempty"`
	HostRefs  []hostRefMsg  `cbor:"8,keyasint,omitempty"`
}

type functionMsg struct {
	Signature string   `cbor:"1,keyasint"`
	Display   string   `cbor:"2,keyasint"`
	Private   bool     `cbor:"3,keyasint,omitempty"`
	Chunk     chunkMsg `cbor:"4,keyasint"`
}

type hostRefMsg struct {
	Library   string `cbor:"1,keyasint"`
	Signature string `cbor:"2,keyasint"`
	Arity     int    `cbor:"3,keyasint"`
	Returns   bool   `cbor:"4,keyasint,omitempty"`
}

type chunkMsg struct {
	Version    uint16        `cbor:"1,keyasint"`
	Flags      uint16        `cbor:"2,keyasint"`
	Code       []byte        `cbor:"3,keyasint"`
	Constants  []constantMsg `cbor:"4,keyasint,omitempty"`
	ParamCount uint8         `cbor:"5,keyasint,omitempty"`
	LocalCount uint8         `cbor:"6,keyasint,omitempty"`
	SourceMap  [][3]uint32   `cbor:"7,keyasint,omitempty"`
	VarNames   []string      `cbor:"8,keyasint,omitempty"`
}

// constantMsg is a tagged scalar. Units never hold collection constants.
type constantMsg struct {
	Kind uint8   `cbor:"1,keyasint"`
	Int  int64   `cbor:"2,keyasint,omitempty"`
	Real float64 `cbor:"3,keyasint,omitempty"`
	Str  string  `cbor:"4,keyasint,omitempty"`
}

// Marshal encodes u deterministically: equal units yield equal bytes.
func Marshal(u *bytecode.Unit) ([]byte, error) {
	if u == nil || u.Main == nil {
		return nil, errors.New("wire: nil unit")
	}
	msg := unitMsg{
		Version:   u.Version,
		Name:      u.Name,
		Library:   u.Library,
		Libraries: u.Libraries,
		Externals: u.Externals,
	}
	var err error
	if msg.Main, err = chunkToMsg(u.Main); err != nil {
		return nil, fmt.Errorf("wire: main: %w", err)
	}
	for _, f := range u.Functions {
		c, err := chunkToMsg(f.Chunk)
		if err != nil {
			return nil, fmt.Errorf("wire: function %q: %w", f.Display, err)
		}
		msg.Functions = append(msg.Functions, functionMsg{
			Signature: f.Signature,
			Display:   f.Display,
			Private:   f.Private,
			Chunk:     c,
		})
	}
	for _, h := range u.HostRefs {
		msg.HostRefs = append(msg.HostRefs, hostRefMsg(h))
	}
	return encMode.Marshal(&msg)
}

// Unmarshal decodes a unit produced by Marshal.
func Unmarshal(data []byte) (*bytecode.Unit, error) {
	var msg unitMsg
	if err := cbor.Unmarshal(data, &msg); err != nil {
		return nil, fmt.Errorf("wire: unmarshal unit: %w", err)
	}
	if msg.Version != bytecode.BytecodeVersion {
		return nil, fmt.Errorf("%w %d", ErrVersion, msg.Version)
	}
	u := &bytecode.Unit{
		Version:   msg.Version,
		Name:      msg.Name,
		Library:   msg.Library,
		Libraries: msg.Libraries,
		Externals: msg.Externals,
		Main:      msgToChunk(msg.Main),
	}
	for _, f := range msg.Functions {
		u.Functions = append(u.Functions, &bytecode.Function{
			Signature: f.Signature,
			Display:   f.Display,
			Private:   f.Private,
			Chunk:     msgToChunk(f.Chunk),
		})
	}
	for _, h := range msg.HostRefs {
		u.HostRefs = append(u.HostRefs, bytecode.HostRef(h))
	}
	return u, nil
}

func chunkToMsg(c *bytecode.Chunk) (chunkMsg, error) {
	msg := chunkMsg{
		Version:    c.Version,
		Flags:      uint16(c.Flags),
		Code:       c.Code,
		ParamCount: c.ParamCount,
		LocalCount: c.LocalCount,
		VarNames:   c.VarNames,
	}
	for i, v := range c.Constants {
		k, err := constantToMsg(v)
		if err != nil {
			return chunkMsg{}, fmt.Errorf("constant %d: %w", i, err)
		}
		msg.Constants = append(msg.Constants, k)
	}
	for _, loc := range c.SourceMap {
		msg.SourceMap = append(msg.SourceMap, [3]uint32{loc.BytecodeOffset, loc.Line, uint32(loc.Column)})
	}
	return msg, nil
}

func msgToChunk(msg chunkMsg) *bytecode.Chunk {
	c := &bytecode.Chunk{
		Version:    msg.Version,
		Flags:      bytecode.ChunkFlags(msg.Flags),
		Code:       msg.Code,
		ParamCount: msg.ParamCount,
		LocalCount: msg.LocalCount,
		VarNames:   msg.VarNames,
	}
	if c.Code == nil {
		c.Code = []byte{}
	}
	for _, k := range msg.Constants {
		c.Constants = append(c.Constants, msgToConstant(k))
	}
	for _, loc := range msg.SourceMap {
		c.SourceMap = append(c.SourceMap, bytecode.SourceLocation{
			BytecodeOffset: loc[0],
			Line:           loc[1],
			Column:         uint16(loc[2]),
		})
	}
	return c
}

func constantToMsg(v variant.Variant) (constantMsg, error) {
	msg := constantMsg{Kind: uint8(v.Kind())}
	switch v.Kind() {
	case variant.Null:
	case variant.Boolean:
		if v.AsBool() {
			msg.Int = 1
		}
	case variant.Integer:
		msg.Int, _ = v.AsInteger()
	case variant.Real:
		msg.Real, _ = v.AsReal()
	case variant.String:
		msg.Str = v.AsString()
	default:
		return constantMsg{}, fmt.Errorf("cannot encode %s constant", v.Kind())
	}
	return msg, nil
}

func msgToConstant(msg constantMsg) variant.Variant {
	switch variant.Kind(msg.Kind) {
	case variant.Boolean:
		return variant.Bool(msg.Int != 0)
	case variant.Integer:
		return variant.Int(msg.Int)
	case variant.Real:
		return variant.Float(msg.Real)
	case variant.String:
		return variant.Str(msg.Str)
	}
	return variant.NullValue()
}
