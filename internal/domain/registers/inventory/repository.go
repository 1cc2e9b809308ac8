package inventory

import (
	"context"
	"time"

	"repairpos/internal/core/id"
)

// IncrementRepository persists ledger rows.
type IncrementRepository interface {
	Create(ctx context.Context, inc *Increment) error

	// GetForUpdate locks a live increment; NotFound otherwise.
	GetForUpdate(ctx context.Context, id id.ID) (*Increment, error)

	// MarkDeleted tombstones an increment.
	MarkDeleted(ctx context.Context, id id.ID, at time.Time) error

	// SumQuantity returns the sum of live amounts, 0 when there are none.
	SumQuantity(ctx context.Context, productID, locationID id.ID) (int64, error)

	// SumByProduct returns live sums per location.
	SumByProduct(ctx context.Context, productID id.ID) (map[id.ID]int64, error)

	// ProductsChangedSince lists products with increments created or voided
	// after since.
	ProductsChangedSince(ctx context.Context, since time.Time) ([]id.ID, error)

	// ListBySerial returns the increments linked to a serial, oldest first.
	ListBySerial(ctx context.Context, serialID id.ID) ([]Increment, error)
}

// SerialRepository persists serial numbers and the increment-serial pivot.
type SerialRepository interface {
	// LockByNumbers locks the serials of a product by number, tombstoned
	// ones included. Unknown numbers are absent from the result.
	LockByNumbers(ctx context.Context, productID id.ID, numbers []string) (map[string]*SerialNumber, error)

	// Find returns a serial by number, tombstoned ones included.
	Find(ctx context.Context, productID id.ID, number string) (*SerialNumber, error)

	Create(ctx context.Context, s *SerialNumber) error
	Update(ctx context.Context, s *SerialNumber) error

	// Link records that an increment touched the serials.
	Link(ctx context.Context, incrementID id.ID, serialIDs []id.ID) error

	// ListByIncrement returns the serials linked to an increment.
	ListByIncrement(ctx context.Context, incrementID id.ID) ([]*SerialNumber, error)
}

// TransferRepository persists transfers.
type TransferRepository interface {
	Create(ctx context.Context, t *Transfer) error
	Update(ctx context.Context, t *Transfer) error
	GetByID(ctx context.Context, id id.ID) (*Transfer, error)
	GetForUpdate(ctx context.Context, id id.ID) (*Transfer, error)

	// ListByProduct returns live transfers of a product, newest first.
	ListByProduct(ctx context.Context, productID id.ID) ([]*Transfer, error)
}
