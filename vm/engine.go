package vm

import (
	"fmt"
	"io"
	"os"
	"sync"

	"github.com/chazu/quill/engine"
)

// Params configures an Engine. The zero value is usable: logging off, no
// debug info, pooled allocation with DefaultBlockSize.
type Params struct {
	// EnableLogging routes engine diagnostics to Logger.
	EnableLogging bool
	// LogBytecode writes the disassembly of every compiled unit.
	LogBytecode bool
	// LogSymbols writes the functions and variables of every compiled unit.
	LogSymbols bool
	// EnableDebugInfo records source lines and variable names in units so
	// runtime errors can cite them.
	EnableDebugInfo bool

	// Logger receives diagnostics. Defaults to a commonlog logger named
	// "quill.vm".
	Logger engine.Logger

	// AllocBlockSize is the granularity of bytecode buffers.
	AllocBlockSize int
	// Allocator supplies bytecode buffers. Defaults to a PoolAllocator.
	Allocator engine.Allocator

	// Output is where the core library writes. Defaults to os.Stdout.
	Output io.Writer
}

// Engine is the process-wide entry point. It owns the runtimes it creates.
type Engine struct {
	params Params
	log    engine.Logger

	mu       sync.Mutex
	runtimes []*Runtime
	closed   bool
}

// Initialize validates params and returns a ready engine.
func Initialize(params Params) (*Engine, error) {
	if params.AllocBlockSize < 0 {
		return nil, fmt.Errorf("invalid allocation block size %d", params.AllocBlockSize)
	}
	if params.Allocator == nil {
		params.Allocator = NewPoolAllocator(params.AllocBlockSize)
	}
	if params.Output == nil {
		params.Output = os.Stdout
	}

	e := &Engine{params: params, log: discardLogger{}}
	if params.EnableLogging {
		e.log = params.Logger
		if e.log == nil {
			e.log = NewCommonLogger("quill.vm")
		}
	}
	e.logf(engine.LogInfo, "engine initialized (debug info: %v)", params.EnableDebugInfo)
	return e, nil
}

func (e *Engine) logf(level engine.LogLevel, format string, args ...any) {
	e.log.Log(level, fmt.Sprintf(format, args...))
}

// Params returns the effective configuration.
func (e *Engine) Params() Params {
	return e.params
}

// CreateRuntime creates a runtime with the core library registered.
func (e *Engine) CreateRuntime() (*Runtime, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.closed {
		return nil, ErrEngineShutdown
	}
	r := newRuntime(e)
	registerCore(r)
	e.runtimes = append(e.runtimes, r)
	return r, nil
}

// Shutdown shuts down every runtime. Scripts created from them stop
// executing. Shutdown is idempotent.
func (e *Engine) Shutdown() {
	e.mu.Lock()
	runtimes := e.runtimes
	e.runtimes = nil
	wasClosed := e.closed
	e.closed = true
	e.mu.Unlock()

	for _, r := range runtimes {
		r.Shutdown()
	}
	if !wasClosed {
		e.logf(engine.LogInfo, "engine shut down")
	}
}
