// Package monetary computes line item amounts and document totals against
// a frozen copy of the currency and tax in effect when the document was
// created.
package monetary

import (
	"context"

	"github.com/shopspring/decimal"

	"repairpos/internal/core/apperror"
	"repairpos/internal/core/id"
	"repairpos/internal/core/types"
	"repairpos/internal/domain/catalogs/currency"
)

// Snapshot is a value copy of currency and tax data. It holds no live
// reference, so later master data edits never reach a stored document.
type Snapshot struct {
	CurrencyID   id.ID           `db:"ref_currency_id" json:"currencyId"`
	CurrencyName string          `db:"ref_currency_name" json:"currencyName"`
	CurrencyCode string          `db:"ref_currency_code" json:"currencyCode"`
	CurrencyRate decimal.Decimal `db:"ref_currency_rate" json:"currencyRate"`

	// Base currency (rate 1.0000), set only when CurrencyRate is not 1.0000
	DefaultCurrencyID   *id.ID              `db:"ref_default_currency_id" json:"defaultCurrencyId,omitempty"`
	DefaultCurrencyName *string             `db:"ref_default_currency_name" json:"defaultCurrencyName,omitempty"`
	DefaultCurrencyCode *string             `db:"ref_default_currency_code" json:"defaultCurrencyCode,omitempty"`
	DefaultCurrencyRate decimal.NullDecimal `db:"ref_default_currency_rate" json:"defaultCurrencyRate"`

	TaxID   id.ID           `db:"ref_tax_id" json:"taxId"`
	TaxCode string          `db:"ref_tax_code" json:"taxCode"`
	TaxRate decimal.Decimal `db:"ref_tax_rate" json:"taxRate"`

	// Currency the tax belonged to at capture time
	TaxCurrencyName string          `db:"ref_tax_currency_name" json:"taxCurrencyName"`
	TaxCurrencyCode string          `db:"ref_tax_currency_code" json:"taxCurrencyCode"`
	TaxCurrencyRate decimal.Decimal `db:"ref_tax_currency_rate" json:"taxCurrencyRate"`
}

// HasBaseCurrency reports whether the base currency fields are populated.
func (s Snapshot) HasBaseCurrency() bool {
	return s.DefaultCurrencyID != nil
}

// Rates resolves currencies and taxes for a snapshot. Default lookups
// return configuration errors when the defaults are missing.
type Rates interface {
	DefaultCurrency(ctx context.Context) (*currency.Currency, error)
	DefaultTax(ctx context.Context, currencyID id.ID) (*currency.Tax, error)
	BaseCurrency(ctx context.Context) (*currency.Currency, error)
	GetCurrency(ctx context.Context, id id.ID) (*currency.Currency, error)
	GetTax(ctx context.Context, id id.ID) (*currency.Tax, error)
}

// SnapshotService captures snapshots.
type SnapshotService struct {
	rates Rates
}

// NewSnapshotService creates a snapshot service.
func NewSnapshotService(rates Rates) *SnapshotService {
	return &SnapshotService{rates: rates}
}

// Capture freezes the currency and tax to use for a new document.
// Without overrides the system defaults apply. A tax override alone brings
// its own currency; both overrides must agree. Call it inside the
// transaction that writes the document so the default rows stay locked
// until commit.
func (s *SnapshotService) Capture(ctx context.Context, currencyOverride, taxOverride *id.ID) (Snapshot, error) {
	var (
		cur *currency.Currency
		tax *currency.Tax
		err error
	)

	if taxOverride != nil {
		if tax, err = s.rates.GetTax(ctx, *taxOverride); err != nil {
			return Snapshot{}, err
		}
	}

	switch {
	case currencyOverride != nil:
		if cur, err = s.rates.GetCurrency(ctx, *currencyOverride); err != nil {
			return Snapshot{}, err
		}
		if tax != nil && tax.CurrencyID != cur.ID {
			return Snapshot{}, apperror.NewState(apperror.CodeMismatchedCurrencyTax, "tax does not belong to currency").
				WithDetail("currencyId", cur.ID.String()).
				WithDetail("taxId", tax.ID.String())
		}
	case tax != nil:
		if cur, err = s.rates.GetCurrency(ctx, tax.CurrencyID); err != nil {
			return Snapshot{}, err
		}
	default:
		if cur, err = s.rates.DefaultCurrency(ctx); err != nil {
			return Snapshot{}, err
		}
	}

	if tax == nil {
		if tax, err = s.rates.DefaultTax(ctx, cur.ID); err != nil {
			return Snapshot{}, err
		}
	}

	snap := Snapshot{
		CurrencyID:      cur.ID,
		CurrencyName:    cur.Name,
		CurrencyCode:    cur.Code,
		CurrencyRate:    cur.ExchangeRate,
		TaxID:           tax.ID,
		TaxCode:         tax.TaxCode,
		TaxRate:         tax.TaxRate,
		TaxCurrencyName: cur.Name,
		TaxCurrencyCode: cur.Code,
		TaxCurrencyRate: cur.ExchangeRate,
	}

	if !types.IsOne(cur.ExchangeRate) {
		base, err := s.rates.BaseCurrency(ctx)
		if err != nil {
			return Snapshot{}, err
		}
		baseID, name, code := base.ID, base.Name, base.Code
		snap.DefaultCurrencyID = &baseID
		snap.DefaultCurrencyName = &name
		snap.DefaultCurrencyCode = &code
		snap.DefaultCurrencyRate = decimal.NewNullDecimal(base.ExchangeRate)
	}

	return snap, nil
}
