package server

import (
	"fmt"

	"github.com/chazu/quill/vm"
)

// request is a unit of work to be executed on the worker goroutine.
type request struct {
	fn   func(*vm.Runtime) any
	done chan result
}

// result holds the return value from a runtime operation.
type result struct {
	value any
	err   error
}

// Worker serializes analysis requests on one goroutine so editor events
// are handled in the order they arrive.
type Worker struct {
	runtime  *vm.Runtime
	requests chan request
	quit     chan struct{}
}

// NewWorker creates a Worker and starts the processing goroutine.
func NewWorker(r *vm.Runtime) *Worker {
	w := &Worker{
		runtime:  r,
		requests: make(chan request, 64),
		quit:     make(chan struct{}),
	}
	go w.loop()
	return w
}

func (w *Worker) loop() {
	for {
		select {
		case req := <-w.requests:
			req.done <- w.execute(req.fn)
		case <-w.quit:
			return
		}
	}
}

// execute runs fn, recovering from panics.
func (w *Worker) execute(fn func(*vm.Runtime) any) result {
	var res result
	func() {
		defer func() {
			if r := recover(); r != nil {
				res.err = fmt.Errorf("%v", r)
			}
		}()
		res.value = fn(w.runtime)
	}()
	return res
}

// Do submits fn and blocks until it completes. A panic in fn is returned
// as an error. Do fails once the worker is stopped.
func (w *Worker) Do(fn func(*vm.Runtime) any) (any, error) {
	req := request{fn: fn, done: make(chan result, 1)}
	select {
	case w.requests <- req:
	case <-w.quit:
		return nil, fmt.Errorf("worker stopped")
	}
	select {
	case res := <-req.done:
		return res.value, res.err
	case <-w.quit:
		return nil, fmt.Errorf("worker stopped")
	}
}

// Stop shuts down the worker goroutine. It is safe to call more than once.
func (w *Worker) Stop() {
	select {
	case <-w.quit:
	default:
		close(w.quit)
	}
}
