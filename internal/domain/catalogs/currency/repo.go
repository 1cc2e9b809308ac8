package currency

import (
	"context"

	"repairpos/internal/core/id"
)

// Repository defines persistence for currencies and their taxes.
// Reads never return tombstoned rows; a missing row is apperror NotFound.
type Repository interface {
	Create(ctx context.Context, c *Currency) error
	Update(ctx context.Context, c *Currency) error
	GetByID(ctx context.Context, id id.ID) (*Currency, error)
	List(ctx context.Context) ([]*Currency, error)

	// FindByCode retrieves a currency by ISO code.
	FindByCode(ctx context.Context, code string) (*Currency, error)

	// GetForUpdate retrieves a currency with a row lock.
	GetForUpdate(ctx context.Context, id id.ID) (*Currency, error)

	// GetDefaultForShare retrieves the default currency under FOR SHARE so a
	// concurrent default flip waits for the reading transaction.
	GetDefaultForShare(ctx context.Context) (*Currency, error)

	// GetBaseForShare retrieves the currency with rate exactly 1.0000.
	GetBaseForShare(ctx context.Context) (*Currency, error)

	// ClearDefault clears is_default on every currency except keepID.
	ClearDefault(ctx context.Context, keepID id.ID) error

	CreateTax(ctx context.Context, t *Tax) error
	UpdateTax(ctx context.Context, t *Tax) error
	GetTaxByID(ctx context.Context, id id.ID) (*Tax, error)
	GetTaxForUpdate(ctx context.Context, id id.ID) (*Tax, error)
	FindTaxByCode(ctx context.Context, code string) (*Tax, error)
	ListTaxes(ctx context.Context, currencyID id.ID) ([]*Tax, error)

	// GetDefaultTaxForShare retrieves the default tax of a currency under FOR SHARE.
	GetDefaultTaxForShare(ctx context.Context, currencyID id.ID) (*Tax, error)

	// ClearDefaultTax clears default_tax on the currency's taxes except keepID.
	ClearDefaultTax(ctx context.Context, currencyID, keepID id.ID) error
}
