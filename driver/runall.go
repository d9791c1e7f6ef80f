package driver

import (
	"context"
	"fmt"

	"github.com/chazu/quill/pkg/bytecode"
	"github.com/chazu/quill/pkg/variant"
	"github.com/chazu/quill/vm"
	"golang.org/x/sync/errgroup"
)

// RunAll drives n scripts created from unit concurrently on r. bindings
// returns the bindings of instance i and may be nil. The first failure
// cancels the others.
func RunAll(ctx context.Context, r *vm.Runtime, unit *bytecode.Unit, n int, bindings func(i int) map[string]variant.Variant) error {
	g, ctx := errgroup.WithContext(ctx)
	for i := 0; i < n; i++ {
		var b map[string]variant.Variant
		if bindings != nil {
			b = bindings(i)
		}
		s, err := r.CreateScript(unit, b)
		if err != nil {
			return fmt.Errorf("instance %d: %w", i, err)
		}
		g.Go(func() error {
			if err := Drive(ctx, s); err != nil {
				return fmt.Errorf("instance %d: %w", i, err)
			}
			return nil
		})
	}
	return g.Wait()
}
