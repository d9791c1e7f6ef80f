package vm

import (
	"errors"
	"fmt"
)

var (
	// ErrMissingLibrary means a unit requires a library the runtime lacks.
	ErrMissingLibrary = errors.New("missing library")
	// ErrMissingFunction means a unit calls a host function that is not
	// registered or not visible to it.
	ErrMissingFunction = errors.New("missing function")
	// ErrInvalidFunction is returned by CallFunction for unknown ids.
	ErrInvalidFunction = errors.New("invalid function id")
	// ErrArgumentCount is returned when a call supplies the wrong number of
	// arguments.
	ErrArgumentCount = errors.New("wrong number of arguments")
	// ErrRuntimeClosed is returned once the owning runtime was shut down.
	ErrRuntimeClosed = errors.New("runtime is shut down")
	// ErrEngineShutdown is returned by an engine after Shutdown.
	ErrEngineShutdown = errors.New("engine is shut down")
	// ErrReentrant is reported when a host function steps its own script.
	ErrReentrant = errors.New("script re-entered while running")
	// ErrStackOverflow is raised when script calls nest too deeply.
	ErrStackOverflow = errors.New("stack overflow")
)

// RuntimeError is a failure raised while a script executes. Line is 0 when
// the unit carries no debug information.
type RuntimeError struct {
	Script   string
	Function string // display signature, empty for the top level
	Line     int
	Err      error
}

func (e *RuntimeError) Error() string {
	where := e.Script
	if e.Line > 0 {
		where = fmt.Sprintf("%s:%d", e.Script, e.Line)
	}
	if e.Function != "" {
		return fmt.Sprintf("%s: in %q: %v", where, e.Function, e.Err)
	}
	return fmt.Sprintf("%s: %v", where, e.Err)
}

func (e *RuntimeError) Unwrap() error {
	return e.Err
}
