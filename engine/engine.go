// Package engine declares the host-facing contracts of the quill scripting
// engine: runtimes, libraries of host functions, script instances and the
// pluggable logging and allocation strategies. The vm package implements
// them.
package engine

import (
	"github.com/chazu/quill/pkg/bytecode"
	"github.com/chazu/quill/pkg/variant"
)

// Visibility controls which scripts may call a host function.
type Visibility int

const (
	// Public functions are callable from any script that requires the
	// library.
	Public Visibility = iota
	// Private functions are callable only from scripts that declare
	// themselves part of the library.
	Private
)

func (v Visibility) String() string {
	if v == Private {
		return "private"
	}
	return "public"
}

// HostFunc is the raw form of a host function. Arguments arrive keyed 1..n
// in signature order. The returned value is ignored for functions whose
// signature does not end with {}.
type HostFunc func(s Script, args *variant.Collection) variant.Variant

// Status is the execution state of a script instance.
type Status int

const (
	StatusCreated Status = iota
	StatusRunning
	StatusSuspended
	StatusFinished
	StatusFailed
)

var statusNames = [...]string{"created", "running", "suspended", "finished", "failed"}

func (s Status) String() string {
	if int(s) < len(statusNames) {
		return statusNames[s]
	}
	return "unknown"
}

// FunctionID identifies a function found with Script.FindFunction.
type FunctionID uint64

// InvalidID is returned when a lookup finds nothing.
const InvalidID FunctionID = 0

// Library is a named namespace of host functions owned by a runtime.
type Library interface {
	Name() string

	// RegisterFunction adds fn under signature. It returns false, leaving
	// the library unchanged, if the signature is malformed, already
	// registered, or does not agree with fn's shape.
	RegisterFunction(vis Visibility, signature string, fn any) bool

	// Signatures lists the canonical keys of every registered function.
	Signatures() []string
}

// Runtime owns a set of libraries and produces scripts.
type Runtime interface {
	Library(name string) Library
	Compile(text, name string, libraries ...string) (*bytecode.Unit, error)
	StripDebugInfo(u *bytecode.Unit) *bytecode.Unit
	CreateScript(u *bytecode.Unit, bindings map[string]variant.Variant) (Script, error)
	Shutdown()
}

// Script is one execution instance of a compiled unit. A Script is not
// safe for concurrent use.
type Script interface {
	// ID uniquely identifies the instance.
	ID() string
	Name() string

	// Step runs until the script finishes, suspends or fails.
	Step() Status
	// Execute is Step() != StatusFailed.
	Execute() bool

	IsFinished() bool
	Status() Status
	// Err returns the error that moved the script to StatusFailed.
	Err() error

	FindFunction(scopeHint, signature string) FunctionID
	CallFunction(id FunctionID, args ...variant.Variant) (variant.Variant, error)

	GetVariable(name string) (variant.Variant, bool)
	SetVariable(name string, v variant.Variant)
}
