package bytecode

import (
	"encoding/binary"
	"errors"
	"math"

	"github.com/chazu/quill/pkg/variant"
)

var (
	// ErrJumpTooFar is recorded when a jump target is beyond the reach of a
	// 16-bit signed offset.
	ErrJumpTooFar = errors.New("jump too far")

	// ErrTooManyConstants is recorded when the constant pool outgrows a
	// 16-bit index.
	ErrTooManyConstants = errors.New("too many constants")
)

// BytecodeVersion is the current bytecode format version.
// Increment when making incompatible changes to the format.
const BytecodeVersion uint16 = 1

// ChunkFlags contains compilation flags for a chunk.
type ChunkFlags uint16

const (
	// ChunkFlagDebug indicates debug information is present.
	ChunkFlagDebug ChunkFlags = 1 << 0

	// ChunkFlagReturnsValue marks a function chunk whose signature carries
	// the trailing value marker.
	ChunkFlagReturnsValue ChunkFlags = 1 << 1
)

// SourceLocation maps bytecode position to source location for debugging.
type SourceLocation struct {
	BytecodeOffset uint32 // Offset in code section
	Line           uint32 // Source line number (1-based)
	Column         uint16 // Source column number (1-based)
}

// Chunk is compiled bytecode for the top-level script or one function.
type Chunk struct {
	// Header
	Version uint16     // Bytecode format version
	Flags   ChunkFlags // Compilation flags

	// Code section
	Code []byte // Bytecode instructions

	// Constant pool: scalars referenced by OpConst and variable names
	// referenced by OpLoadGlobal/OpStoreGlobal.
	Constants []variant.Variant

	ParamCount uint8 // Number of parameters (occupy the first local slots)
	LocalCount uint8 // Total frame slots including parameters

	// Debug information (optional, present if ChunkFlagDebug is set)
	SourceMap []SourceLocation // Bytecode offset -> source location
	VarNames  []string         // Slot names for debugging

	grow   func(buf []byte, n int) []byte
	consts map[variant.Variant]uint16
	err    error
}

// NewChunk creates a new empty chunk with the current version.
func NewChunk() *Chunk {
	return &Chunk{
		Version:   BytecodeVersion,
		Code:      make([]byte, 0, 64),
		Constants: make([]variant.Variant, 0, 8),
	}
}

// NewChunkWithBuffer creates a chunk that emits into buf and calls grow
// whenever more capacity is needed. grow receives the current buffer and the
// number of extra bytes required and must return a buffer with the same
// contents and enough capacity.
func NewChunkWithBuffer(buf []byte, grow func(buf []byte, n int) []byte) *Chunk {
	c := NewChunk()
	c.Code = buf[:0]
	c.grow = grow
	return c
}

func (c *Chunk) reserve(n int) {
	if len(c.Code)+n <= cap(c.Code) || c.grow == nil {
		return
	}
	c.Code = c.grow(c.Code, n)
}

// AddConstant adds a constant to the pool and returns its index.
// If an identical constant (same kind and value) exists, returns its index.
// Once the pool is full it records ErrTooManyConstants and returns 0.
func (c *Chunk) AddConstant(value variant.Variant) uint16 {
	if c.consts == nil {
		c.consts = make(map[variant.Variant]uint16, len(c.Constants))
		for i, v := range c.Constants {
			if _, ok := c.consts[v]; !ok && i <= math.MaxUint16 {
				c.consts[v] = uint16(i)
			}
		}
	}
	if idx, ok := c.consts[value]; ok {
		return idx
	}
	if len(c.Constants) > math.MaxUint16 {
		c.fail(ErrTooManyConstants)
		return 0
	}
	idx := uint16(len(c.Constants))
	c.Constants = append(c.Constants, value)
	c.consts[value] = idx
	return idx
}

// Err returns the first limit the chunk exceeded while being built. The
// code of a chunk with an error must not be executed.
func (c *Chunk) Err() error {
	return c.err
}

func (c *Chunk) fail(err error) {
	if c.err == nil {
		c.err = err
	}
}

// GetConstant returns the constant at the given index.
// Panics if the index is out of bounds.
func (c *Chunk) GetConstant(index uint16) variant.Variant {
	return c.Constants[index]
}

// Emit appends a single-byte opcode to the code section.
func (c *Chunk) Emit(op Opcode) int {
	c.reserve(1)
	offset := len(c.Code)
	c.Code = append(c.Code, byte(op))
	return offset
}

// EmitWithOperand appends an opcode with operand bytes.
func (c *Chunk) EmitWithOperand(op Opcode, operands ...byte) int {
	c.reserve(1 + len(operands))
	offset := len(c.Code)
	c.Code = append(c.Code, byte(op))
	c.Code = append(c.Code, operands...)
	return offset
}

// EmitConstant emits an OpConst instruction for the given value.
// Adds the constant to the pool if not already present.
func (c *Chunk) EmitConstant(value variant.Variant) int {
	idx := c.AddConstant(value)
	return c.EmitWithOperand(OpConst, byte(idx>>8), byte(idx))
}

// EmitJump emits a jump instruction with a placeholder offset.
// Returns the offset of the placeholder for later patching.
func (c *Chunk) EmitJump(op Opcode) int {
	c.reserve(3)
	offset := len(c.Code)
	c.Code = append(c.Code, byte(op), 0xFF, 0xFF)
	return offset + 1
}

// PatchJump patches a jump instruction's offset to jump to the current position.
func (c *Chunk) PatchJump(placeholderOffset int) {
	c.PatchJumpTo(placeholderOffset, len(c.Code))
}

// PatchJumpTo patches a jump to go to a specific offset.
func (c *Chunk) PatchJumpTo(placeholderOffset int, target int) {
	jumpFrom := placeholderOffset + 2
	delta := target - jumpFrom
	if delta < math.MinInt16 || delta > math.MaxInt16 {
		c.fail(ErrJumpTooFar)
	}

	c.Code[placeholderOffset] = byte(delta >> 8)
	c.Code[placeholderOffset+1] = byte(delta)
}

// EmitLoop emits a backward jump to the given loop start.
func (c *Chunk) EmitLoop(loopStart int) {
	c.reserve(3)
	jumpFrom := len(c.Code) + 3
	delta := loopStart - jumpFrom
	if delta < math.MinInt16 {
		c.fail(ErrJumpTooFar)
	}

	c.Code = append(c.Code, byte(OpJump))
	c.Code = append(c.Code, byte(delta>>8), byte(delta))
}

// CurrentOffset returns the current offset in the code section.
func (c *Chunk) CurrentOffset() int {
	return len(c.Code)
}

// CodeLen returns the length of the code section.
func (c *Chunk) CodeLen() int {
	return len(c.Code)
}

// ConstantCount returns the number of constants in the pool.
func (c *Chunk) ConstantCount() int {
	return len(c.Constants)
}

// ReturnsValue reports whether the chunk's function returns a value.
func (c *Chunk) ReturnsValue() bool {
	return c.Flags&ChunkFlagReturnsValue != 0
}

// HasDebugInfo reports whether the chunk carries a source map or names.
func (c *Chunk) HasDebugInfo() bool {
	return c.Flags&ChunkFlagDebug != 0
}

// AddSourceLocation adds a debug source location mapping. Consecutive
// entries for the same line are collapsed.
func (c *Chunk) AddSourceLocation(bytecodeOffset uint32, line uint32, column uint16) {
	c.Flags |= ChunkFlagDebug
	if n := len(c.SourceMap); n > 0 && c.SourceMap[n-1].Line == line {
		return
	}
	c.SourceMap = append(c.SourceMap, SourceLocation{
		BytecodeOffset: bytecodeOffset,
		Line:           line,
		Column:         column,
	})
}

// GetSourceLocation returns the source location for a bytecode offset.
// Returns line 0, column 0 if no mapping exists.
func (c *Chunk) GetSourceLocation(offset uint32) (line uint32, column uint16) {
	for i := len(c.SourceMap) - 1; i >= 0; i-- {
		if c.SourceMap[i].BytecodeOffset <= offset {
			return c.SourceMap[i].Line, c.SourceMap[i].Column
		}
	}
	return 0, 0
}

// ReadUint16 decodes a big-endian operand at offset.
func (c *Chunk) ReadUint16(offset int) uint16 {
	return binary.BigEndian.Uint16(c.Code[offset:])
}

// ReadInt16 decodes a signed jump operand at offset.
func (c *Chunk) ReadInt16(offset int) int16 {
	return int16(binary.BigEndian.Uint16(c.Code[offset:]))
}

// stripped returns a copy of the chunk without debug information.
func (c *Chunk) stripped() *Chunk {
	if c == nil {
		return nil
	}
	out := &Chunk{
		Version:    c.Version,
		Flags:      c.Flags &^ ChunkFlagDebug,
		Code:       append([]byte(nil), c.Code...),
		Constants:  append([]variant.Variant(nil), c.Constants...),
		ParamCount: c.ParamCount,
		LocalCount: c.LocalCount,
	}
	return out
}
