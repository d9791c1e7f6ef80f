package vm

import (
	"sort"
	"sync"

	"github.com/chazu/quill/compiler"
	"github.com/chazu/quill/engine"
	"github.com/chazu/quill/pkg/variant"
)

// hostCall is the uniform calling convention every registered function is
// adapted to.
type hostCall func(s engine.Script, args []variant.Variant) (variant.Variant, error)

type hostFunction struct {
	library string
	sig     *compiler.Signature
	vis     engine.Visibility
	call    hostCall

	// script is set for functions a library member script defined. They run
	// as frames on the calling script.
	script *scriptFunction
}

type scriptFunction struct {
	mod   *module
	index int
}

// Library is a named set of host functions. It is safe for concurrent use.
type Library struct {
	name    string
	runtime *Runtime

	mu    sync.RWMutex
	funcs map[string]*hostFunction // by signature shape
}

func newLibrary(r *Runtime, name string) *Library {
	return &Library{
		name:    name,
		runtime: r,
		funcs:   make(map[string]*hostFunction),
	}
}

// Name returns the library name.
func (l *Library) Name() string {
	return l.name
}

// RegisterFunction implements engine.Library. fn is either an
// engine.HostFunc or a Go function whose parameters and results the engine
// can marshal; see wrapHostFunc.
func (l *Library) RegisterFunction(vis engine.Visibility, signature string, fn any) bool {
	e := l.runtime.engine
	sig, err := compiler.ParseSignature(signature)
	if err != nil {
		e.logf(engine.LogWarning, "library %s: rejected %q: %v", l.name, signature, err)
		return false
	}
	call, err := wrapHostFunc(fn, sig)
	if err != nil {
		e.logf(engine.LogWarning, "library %s: rejected %q: %v", l.name, signature, err)
		return false
	}

	return l.add(vis, sig, call)
}

func (l *Library) add(vis engine.Visibility, sig *compiler.Signature, call hostCall) bool {
	return l.addFunction(&hostFunction{library: l.name, sig: sig, vis: vis, call: call})
}

func (l *Library) addFunction(h *hostFunction) bool {
	e := l.runtime.engine
	sig, vis := h.sig, h.vis
	l.mu.Lock()
	defer l.mu.Unlock()
	shape := sig.Shape()
	if existing, ok := l.funcs[shape]; ok {
		e.logf(engine.LogWarning, "library %s: %q conflicts with %q", l.name, sig.String(), existing.sig.String())
		return false
	}
	l.funcs[shape] = h
	e.logf(engine.LogDebug, "library %s: registered %s function %q", l.name, vis, sig.Key())
	return true
}

// Signatures implements engine.Library.
func (l *Library) Signatures() []string {
	l.mu.RLock()
	defer l.mu.RUnlock()
	out := make([]string, 0, len(l.funcs))
	for _, f := range l.funcs {
		out = append(out, f.sig.Key())
	}
	sort.Strings(out)
	return out
}

// lookup finds a function by signature shape.
func (l *Library) lookup(shape string) *hostFunction {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.funcs[shape]
}

// resolve finds the function a compiled HostRef names.
func (l *Library) resolve(key string) *hostFunction {
	sig, err := compiler.ParseLookup(key)
	if err != nil {
		return nil
	}
	f := l.lookup(sig.Shape())
	if f == nil || f.sig.Key() != key {
		return nil
	}
	return f
}

func (l *Library) functionInfo() []compiler.FunctionInfo {
	l.mu.RLock()
	defer l.mu.RUnlock()
	out := make([]compiler.FunctionInfo, 0, len(l.funcs))
	for _, f := range l.funcs {
		out = append(out, compiler.FunctionInfo{
			Signature: f.sig.String(),
			Private:   f.vis == engine.Private,
		})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Signature < out[j].Signature })
	return out
}
