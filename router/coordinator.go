package router

import (
	"context"
	"fmt"

	"golang.org/x/sync/errgroup"

	"github.com/icn-project/icn-core/icnerr"
)

// SubOperation is one cancellation-scoped unit of a coordinated operation:
// given a rollback hook, do the work, returning an error if it could not
// complete before ctx is done.
type SubOperation struct {
	Name string
	Do   func(ctx context.Context) error
	// Rollback undoes partial effects of Do; invoked only if Do partially
	// committed before the overall operation failed or timed out.
	Rollback func()
}

// Coordinator runs a set of sub-operations under a single deadline,
// guaranteeing that on timeout or failure no partial writes are left
// committed: per spec.md 4.6, debits without audit events, receipts
// without anchoring, and checkpoint states without signature sets must be
// rolled back or quarantined.
type Coordinator struct{}

// Run executes every sub-operation concurrently under ctx. If ctx's
// deadline elapses or any sub-operation returns an error, outstanding
// sub-operations are cancelled, completed-but-now-invalid ones have their
// Rollback hook invoked, and Run returns icnerr.ErrTimeout or the
// triggering error.
func (Coordinator) Run(ctx context.Context, ops []SubOperation) error {
	group, gctx := errgroup.WithContext(ctx)
	completed := make([]bool, len(ops))

	for i, op := range ops {
		i, op := i, op
		group.Go(func() error {
			if err := op.Do(gctx); err != nil {
				return fmt.Errorf("router: sub-operation %q: %w", op.Name, err)
			}
			completed[i] = true
			return nil
		})
	}

	err := group.Wait()
	if err != nil {
		rollbackCompleted(ops, completed)
		if ctx.Err() != nil {
			return icnerr.ErrTimeout
		}
		return err
	}
	if ctx.Err() != nil {
		rollbackCompleted(ops, completed)
		return icnerr.ErrTimeout
	}
	return nil
}

func rollbackCompleted(ops []SubOperation, completed []bool) {
	for i, op := range ops {
		if completed[i] && op.Rollback != nil {
			op.Rollback()
		}
	}
}
