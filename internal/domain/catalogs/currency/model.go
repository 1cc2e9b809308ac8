// Package currency provides the Currency and Tax catalogs.
// Exactly one currency is the system default, and each currency has exactly
// one default tax. Both invariants are enforced on the write path.
package currency

import (
	"context"
	"strings"

	"github.com/shopspring/decimal"
	"golang.org/x/text/currency"

	"repairpos/internal/core/apperror"
	"repairpos/internal/core/entity"
	"repairpos/internal/core/id"
	"repairpos/internal/core/types"
)

// Currency represents a monetary unit and its rate against the base currency.
type Currency struct {
	entity.Catalog

	// Code is the ISO 4217 alphabetic code (e.g. "USD")
	Code string `db:"code" json:"code"`

	// ExchangeRate is relative to the base currency, which has exactly 1.0000
	ExchangeRate decimal.Decimal `db:"exchange_rate" json:"exchangeRate"`

	// IsDefault marks the single system default currency
	IsDefault bool `db:"is_default" json:"isDefault"`
}

// NewCurrency creates a new Currency with required fields.
func NewCurrency(name, code string, rate decimal.Decimal) *Currency {
	return &Currency{
		Catalog:      entity.NewCatalog(name),
		Code:         strings.ToUpper(strings.TrimSpace(code)),
		ExchangeRate: rate,
	}
}

// Validate implements entity.Validatable interface.
func (c *Currency) Validate(ctx context.Context) error {
	if err := c.Catalog.Validate(ctx); err != nil {
		return err
	}

	if !IsValidCode(c.Code) {
		return apperror.NewValidation("code must be an ISO 4217 currency code").
			WithDetail("field", "code").
			WithDetail("value", c.Code)
	}

	if !c.ExchangeRate.IsPositive() {
		return apperror.NewValidation("exchange rate must be greater than zero").
			WithDetail("field", "exchangeRate")
	}
	if !types.FitsScale(c.ExchangeRate, types.RateScale) {
		return apperror.NewValidation("exchange rate has too many decimal places").
			WithDetail("field", "exchangeRate").
			WithDetail("value", c.ExchangeRate.String())
	}

	return nil
}

// IsBase reports whether this is the base currency (rate exactly 1.0000).
func (c *Currency) IsBase() bool {
	return types.IsOne(c.ExchangeRate)
}

// IsValidCode reports whether code is a recognized ISO 4217 code.
func IsValidCode(code string) bool {
	if len(code) != 3 || strings.ToUpper(code) != code {
		return false
	}
	unit, err := currency.ParseISO(code)
	return err == nil && unit.String() == code
}

// Tax is a tax rate that exists under exactly one currency.
type Tax struct {
	entity.BaseEntity

	CurrencyID id.ID `db:"currency_id" json:"currencyId"`

	// TaxCode is unique across all taxes
	TaxCode string `db:"tax_code" json:"taxCode"`

	// TaxRate is a fraction, 0.0825 for 8.25%
	TaxRate decimal.Decimal `db:"tax_rate" json:"taxRate"`

	// DefaultTax marks the single default tax of its currency
	DefaultTax bool `db:"default_tax" json:"defaultTax"`

	Removable bool `db:"removable" json:"removable"`
}

// NewTax creates a removable, non-default tax under currencyID.
func NewTax(currencyID id.ID, code string, rate decimal.Decimal) *Tax {
	return &Tax{
		BaseEntity: entity.NewBaseEntity(),
		CurrencyID: currencyID,
		TaxCode:    strings.TrimSpace(code),
		TaxRate:    rate,
		Removable:  true,
	}
}

// Validate implements entity.Validatable interface.
func (t *Tax) Validate(ctx context.Context) error {
	if id.IsNil(t.CurrencyID) {
		return apperror.NewValidation("currency is required").
			WithDetail("field", "currencyId")
	}
	if t.TaxCode == "" {
		return apperror.NewValidation("tax code is required").
			WithDetail("field", "taxCode")
	}
	if !types.InUnitRange(t.TaxRate) {
		return apperror.NewValidation("tax rate must be between 0 and 1").
			WithDetail("field", "taxRate").
			WithDetail("value", t.TaxRate.String())
	}
	if !types.FitsScale(t.TaxRate, types.TaxRateScale) {
		return apperror.NewValidation("tax rate has too many decimal places").
			WithDetail("field", "taxRate").
			WithDetail("value", t.TaxRate.String())
	}
	return nil
}
