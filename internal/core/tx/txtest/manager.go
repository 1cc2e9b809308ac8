// Package txtest provides an in-memory tx.Manager for unit tests.
package txtest

import (
	"context"

	"repairpos/internal/core/tx"
)

// Snapshotter is implemented by in-memory repositories that can restore
// their state when a transaction rolls back.
type Snapshotter interface {
	// Snapshot captures current state and returns a function restoring it.
	Snapshot() (restore func())
}

// Manager runs fn directly. On error every registered store is restored to
// its state at BEGIN, which mirrors a database rollback.
type Manager struct {
	stores    []Snapshotter
	Commits   int
	Rollbacks int
}

type inTxKey struct{}

// New creates a manager that rolls back the given stores.
func New(stores ...Snapshotter) *Manager {
	return &Manager{stores: stores}
}

// RunInTransaction implements tx.Manager.
func (m *Manager) RunInTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	if ctx.Value(inTxKey{}) != nil {
		return fn(ctx)
	}

	restores := make([]func(), 0, len(m.stores))
	for _, s := range m.stores {
		restores = append(restores, s.Snapshot())
	}

	ctx, ac, _ := tx.WithAfterCommit(ctx)
	txCtx := context.WithValue(ctx, inTxKey{}, true)

	err := fn(txCtx)
	if err == nil {
		err = ctx.Err()
	}
	if err != nil {
		for i := len(restores) - 1; i >= 0; i-- {
			restores[i]()
		}
		m.Rollbacks++
		return err
	}

	m.Commits++
	ac.Run(ctx)
	return nil
}

// ReadOnly implements tx.ReadOnlyManager.
func (m *Manager) ReadOnly(ctx context.Context, fn func(ctx context.Context) error) error {
	return fn(ctx)
}

var _ tx.ReadOnlyManager = (*Manager)(nil)
