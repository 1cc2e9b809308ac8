package location

import (
	"context"

	"repairpos/internal/core/id"
)

// Repository defines persistence for locations.
// Reads skip tombstoned rows; a missing row is apperror NotFound.
type Repository interface {
	Create(ctx context.Context, loc *Location) error
	Update(ctx context.Context, loc *Location) error
	GetByID(ctx context.Context, id id.ID) (*Location, error)
	GetForUpdate(ctx context.Context, id id.ID) (*Location, error)
	GetBySystemKey(ctx context.Context, key SystemKey) (*Location, error)
	GetDefault(ctx context.Context) (*Location, error)

	// ListSelectable returns locations users may pick (not system-use-only).
	ListSelectable(ctx context.Context) ([]*Location, error)

	// ClearDefault clears default_location on every row except keepID.
	ClearDefault(ctx context.Context, keepID id.ID) error
}
