// Package tx provides transaction management abstractions.
// Domain services depend on these interfaces; the pgx implementation lives in
// infrastructure/storage/postgres.
package tx

import (
	"context"
)

// Manager defines the contract for transaction management.
type Manager interface {
	// RunInTransaction executes fn within a database transaction.
	// If fn returns an error (or ctx is cancelled), the transaction is rolled back
	// and nothing fn wrote is visible. Otherwise it is committed.
	//
	// Nested calls reuse the existing transaction from context.
	RunInTransaction(ctx context.Context, fn func(ctx context.Context) error) error
}

// ReadOnlyManager extends Manager with read-only transaction support.
type ReadOnlyManager interface {
	Manager

	// ReadOnly executes fn in a read-only transaction.
	ReadOnly(ctx context.Context, fn func(ctx context.Context) error) error
}

// AfterCommit collects callbacks that must only run once the outermost
// transaction has committed (cache invalidation and similar side effects).
type AfterCommit struct {
	fns []func(ctx context.Context)
}

type afterCommitKey struct{}

// WithAfterCommit attaches a collector to ctx unless one is already present.
func WithAfterCommit(ctx context.Context) (context.Context, *AfterCommit, bool) {
	if ac, ok := ctx.Value(afterCommitKey{}).(*AfterCommit); ok {
		return ctx, ac, false
	}
	ac := &AfterCommit{}
	return context.WithValue(ctx, afterCommitKey{}, ac), ac, true
}

// OnCommit registers fn on the collector in ctx.
// Without a collector fn runs immediately.
func OnCommit(ctx context.Context, fn func(ctx context.Context)) {
	if ac, ok := ctx.Value(afterCommitKey{}).(*AfterCommit); ok {
		ac.fns = append(ac.fns, fn)
		return
	}
	fn(ctx)
}

// Run invokes the collected callbacks in registration order.
func (a *AfterCommit) Run(ctx context.Context) {
	for _, fn := range a.fns {
		fn(ctx)
	}
	a.fns = nil
}
