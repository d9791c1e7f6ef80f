// Package driver runs quill scripts end to end: load, compile, instantiate
// and step to completion. It is the harness behind the quill command.
package driver

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/chazu/quill/cache"
	"github.com/chazu/quill/engine"
	"github.com/chazu/quill/loader"
	"github.com/chazu/quill/pkg/bytecode"
	"github.com/chazu/quill/pkg/variant"
	"github.com/chazu/quill/vm"
	"github.com/tliron/commonlog"
)

var log = commonlog.GetLogger("quill.driver")

// HostLibrary is the library InstallHost registers its functions in.
const HostLibrary = "host"

// Options configures a Harness. The zero value runs .quill scripts against
// the core and host libraries.
type Options struct {
	// Suffix is the script file extension. Defaults to loader.DefaultSuffix.
	Suffix string
	// Libraries the script is compiled against. Defaults to core and host.
	Libraries []string
	// Strip removes debug info before instantiation.
	Strip bool

	// Call, when set, names a function to call after the first step, in
	// lookup form such as "greet {} {}". Args are passed to it.
	Call string
	Args []variant.Variant

	// Bindings seed the script's top-level variables.
	Bindings map[string]variant.Variant

	Params vm.Params
	// Cache, when set, stores compiled units between runs.
	Cache *cache.Cache

	// Setup runs after the host library is installed and before
	// compilation. Returning an error aborts the run.
	Setup func(r *vm.Runtime) error

	// Stdout receives the host library's output. Defaults to os.Stdout.
	Stdout io.Writer
}

// Harness drives one script at a time.
type Harness struct {
	opts Options
}

// New returns a harness with defaults applied to opts.
func New(opts Options) *Harness {
	if opts.Suffix == "" {
		opts.Suffix = loader.DefaultSuffix
	}
	if len(opts.Libraries) == 0 {
		opts.Libraries = []string{vm.CoreLibrary, HostLibrary}
	}
	if opts.Stdout == nil {
		opts.Stdout = os.Stdout
	}
	if opts.Params.Output == nil {
		opts.Params.Output = opts.Stdout
	}
	return &Harness{opts: opts}
}

// Run loads the script at path and runs it. It returns the process exit
// code: 0 on success, 1 on any failure.
func (h *Harness) Run(ctx context.Context, path string) int {
	src, err := loader.Load(path, h.opts.Suffix)
	if err != nil {
		log.Errorf("%v", err)
		return 1
	}
	if err := h.RunSource(ctx, src); err != nil {
		log.Errorf("%v", err)
		return 1
	}
	return 0
}

// RunSource compiles and runs src.
func (h *Harness) RunSource(ctx context.Context, src *loader.Source) error {
	e, err := vm.Initialize(h.opts.Params)
	if err != nil {
		return fmt.Errorf("initialize engine: %w", err)
	}
	defer e.Shutdown()

	r, err := e.CreateRuntime()
	if err != nil {
		return err
	}
	if err := InstallHost(r, h.opts.Stdout); err != nil {
		return err
	}
	if h.opts.Setup != nil {
		if err := h.opts.Setup(r); err != nil {
			return fmt.Errorf("setup: %w", err)
		}
	}

	unit, err := h.compile(r, src)
	if err != nil {
		return err
	}
	if h.opts.Strip {
		full := unit
		unit = r.StripDebugInfo(full)
		r.Release(full)
	}
	defer r.Release(unit)

	s, err := r.CreateScript(unit, h.opts.Bindings)
	if err != nil {
		return err
	}
	log.Debugf("running %s as %s", src.Name, s.ID())

	if h.opts.Call != "" {
		if err := step(ctx, s); err != nil {
			return err
		}
		result, err := Call(s, h.opts.Call, h.opts.Args...)
		if err != nil {
			return err
		}
		log.Infof("%s returned %s", h.opts.Call, result)
	}
	return Drive(ctx, s)
}

func (h *Harness) compile(r *vm.Runtime, src *loader.Source) (*bytecode.Unit, error) {
	compile := func() (*bytecode.Unit, error) {
		return r.Compile(src.Text, src.Name, h.opts.Libraries...)
	}
	var (
		unit *bytecode.Unit
		err  error
	)
	if h.opts.Cache != nil {
		unit, err = h.opts.Cache.Compile(src.Text, h.opts.Libraries, h.opts.Params.EnableDebugInfo, r, compile)
	} else {
		unit, err = compile()
	}
	if err != nil {
		return nil, fmt.Errorf("compile %s: %w", src.Name, err)
	}
	return unit, nil
}

// Drive steps s until it finishes, fails or ctx is done.
func Drive(ctx context.Context, s engine.Script) error {
	for !s.IsFinished() {
		if err := step(ctx, s); err != nil {
			return err
		}
	}
	return nil
}

func step(ctx context.Context, s engine.Script) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("%s: %w", s.Name(), err)
	}
	if !s.Execute() {
		err := s.Err()
		if err == nil {
			err = errors.New("execution failed")
		}
		return fmt.Errorf("%s: %w", s.Name(), err)
	}
	return nil
}

// ErrNoFunction is returned by Call when the signature matches nothing.
var ErrNoFunction = errors.New("function not found")

// Call finds the function matching signature in s and calls it.
func Call(s engine.Script, signature string, args ...variant.Variant) (variant.Variant, error) {
	id := s.FindFunction("", signature)
	if id == engine.InvalidID {
		return variant.NullValue(), fmt.Errorf("%w: %q", ErrNoFunction, signature)
	}
	v, err := s.CallFunction(id, args...)
	if err != nil {
		return variant.NullValue(), fmt.Errorf("call %q: %w", signature, err)
	}
	return v, nil
}

// InstallHost registers the host library: "say hello" and "say {text}"
// write to w. A registration conflict is an error.
func InstallHost(r *vm.Runtime, w io.Writer) error {
	lib := r.Library(HostLibrary)
	ok := lib.RegisterFunction(engine.Public, "say hello", func() error {
		_, err := fmt.Fprintln(w, "Hello!")
		return err
	})
	ok = ok && lib.RegisterFunction(engine.Public, "say {text}", func(text string) error {
		_, err := fmt.Fprintln(w, text)
		return err
	})
	if !ok {
		return fmt.Errorf("register %s library: signature conflict", HostLibrary)
	}
	return nil
}
