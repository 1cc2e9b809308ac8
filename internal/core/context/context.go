// Package context carries the acting user and the running operation
// through context.Context.
package context

import (
	"context"

	"repairpos/internal/core/id"
)

type actorKey struct{}

// WithActor records the user performing the work. Authentication happens
// outside this module; callers pass the resolved user ID.
func WithActor(ctx context.Context, userID id.ID) context.Context {
	return context.WithValue(ctx, actorKey{}, userID)
}

// ActorID returns the acting user, or the nil ID.
func ActorID(ctx context.Context) id.ID {
	if v, ok := ctx.Value(actorKey{}).(id.ID); ok {
		return v
	}
	return id.Nil()
}

// Operation names a unit of background or command work (a seed run, a
// worker tick) so its log lines can be correlated.
type Operation struct {
	Name string
	ID   string
}

type operationKey struct{}

// StartOperation attaches a new operation with a fresh ID.
func StartOperation(ctx context.Context, name string) context.Context {
	return context.WithValue(ctx, operationKey{}, Operation{Name: name, ID: id.New().String()})
}

// OperationFrom returns the operation in ctx.
func OperationFrom(ctx context.Context) (Operation, bool) {
	op, ok := ctx.Value(operationKey{}).(Operation)
	return op, ok
}
