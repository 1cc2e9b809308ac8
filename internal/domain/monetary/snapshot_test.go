package monetary_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"repairpos/internal/core/apperror"
	"repairpos/internal/core/id"
	"repairpos/internal/core/tx/txtest"
	"repairpos/internal/core/types"
	"repairpos/internal/domain/audit"
	"repairpos/internal/domain/catalogs/currency"
	"repairpos/internal/domain/catalogs/currency/currencytest"
	"repairpos/internal/domain/monetary"
)

type fixture struct {
	ctx      context.Context
	rates    *currency.Service
	snapshot *monetary.SnapshotService
}

func newFixture() *fixture {
	store := currencytest.New()
	rates := currency.NewService(store, txtest.New(store), audit.Nop{})
	return &fixture{
		ctx:      context.Background(),
		rates:    rates,
		snapshot: monetary.NewSnapshotService(rates),
	}
}

func (f *fixture) currency(t *testing.T, code, rate string, isDefault bool) *currency.Currency {
	t.Helper()
	c := currency.NewCurrency(code+" name", code, types.MustRate(rate))
	c.IsDefault = isDefault
	require.NoError(t, f.rates.CreateCurrency(f.ctx, c))
	return c
}

func (f *fixture) tax(t *testing.T, cur *currency.Currency, code, rate string, isDefault bool) *currency.Tax {
	t.Helper()
	tax := currency.NewTax(cur.ID, code, types.MustRate(rate))
	tax.DefaultTax = isDefault
	require.NoError(t, f.rates.CreateTax(f.ctx, tax))
	return tax
}

func TestCapture_Defaults(t *testing.T) {
	f := newFixture()
	usd := f.currency(t, "USD", "1.0000", true)
	state := f.tax(t, usd, "STATE", "0.0825", true)
	f.tax(t, usd, "CITY", "0.01", false)

	snap, err := f.snapshot.Capture(f.ctx, nil, nil)
	require.NoError(t, err)

	assert.Equal(t, usd.ID, snap.CurrencyID)
	assert.Equal(t, "USD", snap.CurrencyCode)
	assert.Equal(t, state.ID, snap.TaxID)
	assert.True(t, snap.TaxRate.Equal(types.MustRate("0.0825")))
	assert.Equal(t, "USD", snap.TaxCurrencyCode)
	assert.False(t, snap.HasBaseCurrency())
	assert.False(t, snap.DefaultCurrencyRate.Valid)
}

func TestCapture_NonBaseDefaultRecordsBaseCurrency(t *testing.T) {
	f := newFixture()
	usd := f.currency(t, "USD", "1", false)
	cad := f.currency(t, "CAD", "1.3650", true)
	f.tax(t, cad, "GST", "0.05", true)

	snap, err := f.snapshot.Capture(f.ctx, nil, nil)
	require.NoError(t, err)

	assert.Equal(t, cad.ID, snap.CurrencyID)
	require.True(t, snap.HasBaseCurrency())
	assert.Equal(t, usd.ID, *snap.DefaultCurrencyID)
	assert.Equal(t, "USD", *snap.DefaultCurrencyCode)
	assert.True(t, snap.DefaultCurrencyRate.Decimal.Equal(types.One()))
}

func TestCapture_ConfigurationErrors(t *testing.T) {
	t.Run("no default currency", func(t *testing.T) {
		f := newFixture()
		f.currency(t, "USD", "1", false)

		_, err := f.snapshot.Capture(f.ctx, nil, nil)
		assert.True(t, apperror.HasCode(err, apperror.CodeDefaultCurrencyMissing))
	})

	t.Run("no default tax", func(t *testing.T) {
		f := newFixture()
		usd := f.currency(t, "USD", "1", true)
		f.tax(t, usd, "CITY", "0.01", false)

		_, err := f.snapshot.Capture(f.ctx, nil, nil)
		assert.True(t, apperror.HasCode(err, apperror.CodeDefaultTaxMissing))
	})

	t.Run("no base currency", func(t *testing.T) {
		f := newFixture()
		eur := f.currency(t, "EUR", "0.92", true)
		f.tax(t, eur, "VAT", "0.2", true)

		_, err := f.snapshot.Capture(f.ctx, nil, nil)
		assert.True(t, apperror.IsConfiguration(err))
		assert.True(t, apperror.HasCode(err, apperror.CodeBaseCurrencyMissing))
	})
}

func TestCapture_Overrides(t *testing.T) {
	f := newFixture()
	usd := f.currency(t, "USD", "1", true)
	f.tax(t, usd, "STATE", "0.06", true)
	eur := f.currency(t, "EUR", "0.92", false)
	vat := f.tax(t, eur, "VAT", "0.20", true)
	reduced := f.tax(t, eur, "VAT-R", "0.05", false)

	t.Run("currency only uses its default tax", func(t *testing.T) {
		snap, err := f.snapshot.Capture(f.ctx, &eur.ID, nil)
		require.NoError(t, err)
		assert.Equal(t, eur.ID, snap.CurrencyID)
		assert.Equal(t, vat.ID, snap.TaxID)
		assert.Equal(t, "EUR", snap.TaxCurrencyCode)
		require.True(t, snap.HasBaseCurrency())
		assert.Equal(t, usd.ID, *snap.DefaultCurrencyID)
	})

	t.Run("tax only brings its currency", func(t *testing.T) {
		snap, err := f.snapshot.Capture(f.ctx, nil, &reduced.ID)
		require.NoError(t, err)
		assert.Equal(t, eur.ID, snap.CurrencyID)
		assert.Equal(t, reduced.ID, snap.TaxID)
	})

	t.Run("both must agree", func(t *testing.T) {
		_, err := f.snapshot.Capture(f.ctx, &usd.ID, &vat.ID)
		assert.True(t, apperror.HasCode(err, apperror.CodeMismatchedCurrencyTax))
		assert.Equal(t, apperror.KindState, apperror.KindOf(err))
	})

	t.Run("unknown ids", func(t *testing.T) {
		missing := id.New()
		_, err := f.snapshot.Capture(f.ctx, &missing, nil)
		assert.True(t, apperror.IsNotFound(err))
		_, err = f.snapshot.Capture(f.ctx, nil, &missing)
		assert.True(t, apperror.IsNotFound(err))
	})
}

func TestCapture_LaterEditsDoNotReachSnapshot(t *testing.T) {
	f := newFixture()
	usd := f.currency(t, "USD", "1", true)
	state := f.tax(t, usd, "STATE", "0.06", true)

	snap, err := f.snapshot.Capture(f.ctx, nil, nil)
	require.NoError(t, err)

	edited, err := f.rates.GetTax(f.ctx, state.ID)
	require.NoError(t, err)
	edited.TaxRate = types.MustRate("0.09")
	require.NoError(t, f.rates.UpdateTax(f.ctx, edited))

	assert.True(t, snap.TaxRate.Equal(types.MustRate("0.06")))
}
