package currency_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"repairpos/internal/core/apperror"
	"repairpos/internal/core/tx/txtest"
	"repairpos/internal/core/types"
	"repairpos/internal/domain/audit"
	"repairpos/internal/domain/catalogs/currency"
	"repairpos/internal/domain/catalogs/currency/currencytest"
)

type failingRecorder struct{}

func (failingRecorder) Record(context.Context, audit.Entry) error { return errors.New("log unavailable") }

func newService(t *testing.T) (*currency.Service, *currencytest.Store, *audit.Memory) {
	t.Helper()
	store := currencytest.New()
	log := &audit.Memory{}
	return currency.NewService(store, txtest.New(store, log), log), store, log
}

func mustCreateCurrency(t *testing.T, svc *currency.Service, code, rate string, isDefault bool) *currency.Currency {
	t.Helper()
	c := currency.NewCurrency(code+" currency", code, types.MustRate(rate))
	c.IsDefault = isDefault
	require.NoError(t, svc.CreateCurrency(context.Background(), c))
	return c
}

func TestCurrency_Validate(t *testing.T) {
	ctx := context.Background()

	assert.NoError(t, currency.NewCurrency("Dollar", "usd", types.One()).Validate(ctx))

	for _, tc := range []struct {
		name  string
		cur   *currency.Currency
		field string
	}{
		{"empty name", currency.NewCurrency(" ", "USD", types.One()), "name"},
		{"unknown code", currency.NewCurrency("Fake", "ABC", types.One()), "code"},
		{"short code", currency.NewCurrency("Fake", "US", types.One()), "code"},
		{"zero rate", currency.NewCurrency("Dollar", "USD", types.Zero()), "exchangeRate"},
		{"rate past scale", currency.NewCurrency("Euro", "EUR", types.MustRate("0.91235")), "exchangeRate"},
	} {
		t.Run(tc.name, func(t *testing.T) {
			err := tc.cur.Validate(ctx)
			appErr, ok := apperror.AsAppError(err)
			require.True(t, ok)
			assert.Equal(t, apperror.KindValidation, appErr.Kind)
			assert.Equal(t, tc.field, appErr.Details["field"])
		})
	}
}

func TestTax_Validate(t *testing.T) {
	ctx := context.Background()
	usd := currency.NewCurrency("Dollar", "USD", types.One())

	assert.NoError(t, currency.NewTax(usd.ID, "CA", types.MustRate("0.0825")).Validate(ctx))
	assert.Error(t, currency.NewTax(usd.ID, "CA", types.MustRate("1.5")).Validate(ctx))
	assert.Error(t, currency.NewTax(usd.ID, "CA", types.MustRate("-0.01")).Validate(ctx))
	assert.Error(t, currency.NewTax(usd.ID, "", types.MustRate("0.1")).Validate(ctx))
	assert.NoError(t, currency.NewTax(usd.ID, "CA", types.MustRate("0.082500")).Validate(ctx))
	assert.Error(t, currency.NewTax(usd.ID, "CA", types.MustRate("0.0825001")).Validate(ctx))
}

func TestService_SetDefaultCurrency_KeepsSingleDefault(t *testing.T) {
	ctx := context.Background()
	svc, store, log := newService(t)

	usd := mustCreateCurrency(t, svc, "USD", "1", true)
	eur := mustCreateCurrency(t, svc, "EUR", "0.92", false)

	require.NoError(t, svc.SetDefaultCurrency(ctx, eur.ID))

	assert.Equal(t, 1, store.DefaultCount())
	def, err := svc.DefaultCurrency(ctx)
	require.NoError(t, err)
	assert.Equal(t, eur.ID, def.ID)

	old, err := svc.GetCurrency(ctx, usd.ID)
	require.NoError(t, err)
	assert.False(t, old.IsDefault)

	last := log.Entries[len(log.Entries)-1]
	assert.Equal(t, audit.ActionDefault, last.Action)
	assert.Equal(t, eur.ID, last.EntityID)
}

func TestService_CreateCurrency_DefaultTakesOverFlag(t *testing.T) {
	svc, store, _ := newService(t)

	mustCreateCurrency(t, svc, "USD", "1", true)
	cad := mustCreateCurrency(t, svc, "CAD", "1.37", true)

	assert.Equal(t, 1, store.DefaultCount())
	assert.True(t, store.Currencies[cad.ID].IsDefault)
}

func TestService_CreateCurrency_DuplicateCode(t *testing.T) {
	svc, _, _ := newService(t)
	mustCreateCurrency(t, svc, "USD", "1", true)

	err := svc.CreateCurrency(context.Background(), currency.NewCurrency("Other dollar", "USD", types.One()))
	assert.True(t, apperror.HasCode(err, apperror.CodeDuplicate))
}

func TestService_UpdateCurrency_StaleVersion(t *testing.T) {
	ctx := context.Background()
	svc, _, _ := newService(t)
	usd := mustCreateCurrency(t, svc, "USD", "1", true)

	edit, err := svc.GetCurrency(ctx, usd.ID)
	require.NoError(t, err)
	edit.Name = "US Dollar"
	require.NoError(t, svc.UpdateCurrency(ctx, edit))

	usd.Name = "Stale"
	err = svc.UpdateCurrency(ctx, usd)
	assert.True(t, apperror.HasCode(err, apperror.CodeConcurrentModification))
}

func TestService_DeleteCurrency_DefaultNotRemovable(t *testing.T) {
	ctx := context.Background()
	svc, _, _ := newService(t)
	usd := mustCreateCurrency(t, svc, "USD", "1", true)
	eur := mustCreateCurrency(t, svc, "EUR", "0.92", false)

	err := svc.DeleteCurrency(ctx, usd.ID)
	assert.Equal(t, apperror.KindState, apperror.KindOf(err))

	require.NoError(t, svc.DeleteCurrency(ctx, eur.ID))
	_, err = svc.GetCurrency(ctx, eur.ID)
	assert.True(t, apperror.IsNotFound(err))
}

func TestService_Taxes(t *testing.T) {
	ctx := context.Background()
	svc, _, _ := newService(t)
	usd := mustCreateCurrency(t, svc, "USD", "1", true)
	eur := mustCreateCurrency(t, svc, "EUR", "0.92", false)

	state := currency.NewTax(usd.ID, "STATE", types.MustRate("0.06"))
	state.DefaultTax = true
	require.NoError(t, svc.CreateTax(ctx, state))

	vat := currency.NewTax(eur.ID, "VAT", types.MustRate("0.20"))
	vat.DefaultTax = true
	require.NoError(t, svc.CreateTax(ctx, vat))

	city := currency.NewTax(usd.ID, "CITY", types.MustRate("0.0825"))
	city.DefaultTax = true
	require.NoError(t, svc.CreateTax(ctx, city))

	t.Run("default is per currency", func(t *testing.T) {
		def, err := svc.DefaultTax(ctx, usd.ID)
		require.NoError(t, err)
		assert.Equal(t, city.ID, def.ID)

		def, err = svc.DefaultTax(ctx, eur.ID)
		require.NoError(t, err)
		assert.Equal(t, vat.ID, def.ID)
	})

	t.Run("set default flips within currency", func(t *testing.T) {
		require.NoError(t, svc.SetDefaultTax(ctx, state.ID))
		def, err := svc.DefaultTax(ctx, usd.ID)
		require.NoError(t, err)
		assert.Equal(t, state.ID, def.ID)
	})

	t.Run("duplicate code", func(t *testing.T) {
		err := svc.CreateTax(ctx, currency.NewTax(eur.ID, "VAT", types.MustRate("0.1")))
		assert.True(t, apperror.HasCode(err, apperror.CodeDuplicate))
	})

	t.Run("valid pair", func(t *testing.T) {
		ok, err := svc.IsValidPair(ctx, usd.ID, city.ID)
		require.NoError(t, err)
		assert.True(t, ok)

		ok, err = svc.IsValidPair(ctx, eur.ID, city.ID)
		require.NoError(t, err)
		assert.False(t, ok)
	})

	t.Run("default tax not removable", func(t *testing.T) {
		err := svc.DeleteTax(ctx, state.ID)
		assert.True(t, apperror.HasCode(err, apperror.CodeNotRemovable))
	})

	t.Run("non removable tax", func(t *testing.T) {
		fixed := currency.NewTax(usd.ID, "FIXED", types.MustRate("0.01"))
		fixed.Removable = false
		require.NoError(t, svc.CreateTax(ctx, fixed))
		err := svc.DeleteTax(ctx, fixed.ID)
		assert.True(t, apperror.HasCode(err, apperror.CodeNotRemovable))
	})

	t.Run("removable tax", func(t *testing.T) {
		require.NoError(t, svc.DeleteTax(ctx, city.ID))
		ok, err := svc.IsValidPair(ctx, usd.ID, city.ID)
		require.NoError(t, err)
		assert.False(t, ok)
	})
}

func TestService_DefaultResolution_ConfigurationErrors(t *testing.T) {
	ctx := context.Background()
	svc, _, _ := newService(t)

	_, err := svc.DefaultCurrency(ctx)
	require.True(t, apperror.IsConfiguration(err))
	assert.True(t, apperror.HasCode(err, apperror.CodeDefaultCurrencyMissing))

	eur := mustCreateCurrency(t, svc, "EUR", "0.92", true)

	_, err = svc.DefaultTax(ctx, eur.ID)
	assert.True(t, apperror.HasCode(err, apperror.CodeDefaultTaxMissing))

	_, err = svc.BaseCurrency(ctx)
	assert.True(t, apperror.HasCode(err, apperror.CodeBaseCurrencyMissing))

	usd := mustCreateCurrency(t, svc, "USD", "1.0000", false)
	base, err := svc.BaseCurrency(ctx)
	require.NoError(t, err)
	assert.Equal(t, usd.ID, base.ID)
}

func TestService_SetDefaultCurrency_RollsBackWhenLogFails(t *testing.T) {
	ctx := context.Background()
	store := currencytest.New()
	ok := currency.NewService(store, txtest.New(store), audit.Nop{})

	usd := mustCreateCurrency(t, ok, "USD", "1", true)
	eur := mustCreateCurrency(t, ok, "EUR", "0.92", false)

	failing := currency.NewService(store, txtest.New(store), failingRecorder{})
	require.Error(t, failing.SetDefaultCurrency(ctx, eur.ID))

	def, err := ok.DefaultCurrency(ctx)
	require.NoError(t, err)
	assert.Equal(t, usd.ID, def.ID)
	assert.Equal(t, 1, store.DefaultCount())
}
