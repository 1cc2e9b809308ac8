package product

import (
	"context"

	"repairpos/internal/core/id"
)

// Reader loads product data. GetByID returns apperror NotFound for unknown
// or tombstoned products.
type Reader interface {
	GetByID(ctx context.Context, id id.ID) (*Product, error)
	GetCosts(ctx context.Context, productID id.ID) ([]Cost, error)
}
