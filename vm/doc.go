// Package vm implements the quill execution engine.
//
// This package contains:
//   - Engine and Runtime, which own libraries and compile scripts
//   - Library, the registry of host functions callable from scripts
//   - Script, a resumable instance of a compiled unit
//   - The bytecode interpreter and the core library
package vm
