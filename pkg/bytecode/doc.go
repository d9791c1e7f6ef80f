// Package bytecode defines the executable form of a quill script.
//
// A compiled script is a Unit: one top-level Chunk, the Chunks of the
// functions the script defines, and the host function references and
// library names the code depends on. Units are produced by the compiler
// package, executed by the vm package and never modified after
// compilation, so one Unit may back any number of concurrently running
// scripts.
//
// # Chunks
//
// A Chunk is a flat byte slice of stack-machine instructions (see
// opcodes.go) with a constant pool of scalar Variants. Operands are
// big-endian; jumps are signed 16-bit offsets relative to the end of the
// jump instruction.
//
// # Debug information
//
// When compiled with debug info a Chunk carries a source map (bytecode
// offset to line/column) and the names of its frame slots. StripDebugInfo
// returns a copy of a Unit without either; execution is unaffected but
// runtime errors can no longer cite source lines.
package bytecode
