package catalog_repo

import (
	"context"

	"github.com/Masterminds/squirrel"

	"repairpos/internal/core/id"
	"repairpos/internal/domain/catalogs/currency"
	"repairpos/internal/infrastructure/storage/postgres"
)

const (
	currencyTable = "cat_currencies"
	taxTable      = "cat_taxes"
)

var _ currency.Repository = (*CurrencyRepo)(nil)

// CurrencyRepo implements currency.Repository for currencies and their taxes.
type CurrencyRepo struct {
	*BaseCatalogRepo[currency.Currency]
	taxes *BaseCatalogRepo[currency.Tax]
}

// NewCurrencyRepo creates a currency repository.
func NewCurrencyRepo(txManager *postgres.TxManager) *CurrencyRepo {
	return &CurrencyRepo{
		BaseCatalogRepo: NewBaseCatalogRepo[currency.Currency](txManager, currencyTable, "currency"),
		taxes:           NewBaseCatalogRepo[currency.Tax](txManager, taxTable, "tax"),
	}
}

func (r *CurrencyRepo) List(ctx context.Context) ([]*currency.Currency, error) {
	return r.FindAll(ctx, r.baseSelect().OrderBy("code"))
}

func (r *CurrencyRepo) FindByCode(ctx context.Context, code string) (*currency.Currency, error) {
	return r.FindOne(ctx, r.baseSelect().Where(squirrel.Eq{"code": code}), code)
}

// GetDefaultForShare locks the default row FOR SHARE; a concurrent default
// flip takes FOR UPDATE on the same row and waits.
func (r *CurrencyRepo) GetDefaultForShare(ctx context.Context) (*currency.Currency, error) {
	q := r.baseSelect().
		Where(squirrel.Eq{"is_default": true}).
		Suffix("FOR SHARE")
	return r.FindOne(ctx, q, "default")
}

func (r *CurrencyRepo) GetBaseForShare(ctx context.Context) (*currency.Currency, error) {
	q := r.baseSelect().
		Where(squirrel.Eq{"exchange_rate": 1}).
		OrderBy("created_at").
		Suffix("FOR SHARE")
	return r.FindOne(ctx, q, "base")
}

func (r *CurrencyRepo) ClearDefault(ctx context.Context, keepID id.ID) error {
	q := r.Builder().
		Update(currencyTable).
		Set("is_default", false).
		Set("version", squirrel.Expr("version + 1")).
		Where(squirrel.Eq{"is_default": true}).
		Where(squirrel.NotEq{"id": keepID})
	return r.exec(ctx, q, "clear default")
}

func (r *CurrencyRepo) CreateTax(ctx context.Context, t *currency.Tax) error {
	return r.taxes.Create(ctx, t)
}

func (r *CurrencyRepo) UpdateTax(ctx context.Context, t *currency.Tax) error {
	return r.taxes.Update(ctx, t)
}

func (r *CurrencyRepo) GetTaxByID(ctx context.Context, taxID id.ID) (*currency.Tax, error) {
	return r.taxes.GetByID(ctx, taxID)
}

func (r *CurrencyRepo) GetTaxForUpdate(ctx context.Context, taxID id.ID) (*currency.Tax, error) {
	return r.taxes.GetForUpdate(ctx, taxID)
}

func (r *CurrencyRepo) FindTaxByCode(ctx context.Context, code string) (*currency.Tax, error) {
	return r.taxes.FindOne(ctx, r.taxes.baseSelect().Where(squirrel.Eq{"tax_code": code}), code)
}

func (r *CurrencyRepo) ListTaxes(ctx context.Context, currencyID id.ID) ([]*currency.Tax, error) {
	q := r.taxes.baseSelect().
		Where(squirrel.Eq{"currency_id": currencyID}).
		OrderBy("tax_code")
	return r.taxes.FindAll(ctx, q)
}

func (r *CurrencyRepo) GetDefaultTaxForShare(ctx context.Context, currencyID id.ID) (*currency.Tax, error) {
	q := r.taxes.baseSelect().
		Where(squirrel.Eq{"currency_id": currencyID, "default_tax": true}).
		Suffix("FOR SHARE")
	return r.taxes.FindOne(ctx, q, currencyID)
}

func (r *CurrencyRepo) ClearDefaultTax(ctx context.Context, currencyID, keepID id.ID) error {
	return r.taxes.exec(ctx, r.clearDefaultTaxQuery(currencyID, keepID), "clear default tax")
}

func (r *CurrencyRepo) clearDefaultTaxQuery(currencyID, keepID id.ID) squirrel.UpdateBuilder {
	return r.Builder().
		Update(taxTable).
		Set("default_tax", false).
		Set("version", squirrel.Expr("version + 1")).
		Where(squirrel.Eq{"currency_id": currencyID, "default_tax": true}).
		Where(squirrel.NotEq{"id": keepID})
}
