package inventory_test

import (
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"repairpos/internal/core/apperror"
	"repairpos/internal/core/id"
	"repairpos/internal/domain/registers/inventory"
)

func TestLedger_RecordIncrementRejects(t *testing.T) {
	f := newFixture(t)
	plain := f.plainProduct()
	serialized := f.serializedProduct()

	tests := []struct {
		name string
		in   inventory.IncrementInput
		code string
	}{
		{
			name: "zero amount",
			in:   inventory.IncrementInput{ProductID: plain.ID, LocationID: f.stock.ID},
			code: apperror.CodeNonPositiveQuantity,
		},
		{
			name: "serials on plain product",
			in:   inventory.IncrementInput{ProductID: plain.ID, LocationID: f.stock.ID, Amount: 1, Serials: []string{"X"}},
			code: apperror.CodeSerialCountMismatch,
		},
		{
			name: "missing serials",
			in:   inventory.IncrementInput{ProductID: serialized.ID, LocationID: f.stock.ID, Amount: 2},
			code: apperror.CodeSerialCountMismatch,
		},
		{
			name: "duplicate serial",
			in:   inventory.IncrementInput{ProductID: serialized.ID, LocationID: f.stock.ID, Amount: 2, Serials: []string{"D1", "D1"}},
			code: apperror.CodeValidation,
		},
		{
			name: "blank serial",
			in:   inventory.IncrementInput{ProductID: serialized.ID, LocationID: f.stock.ID, Amount: 1, Serials: []string{" "}},
			code: apperror.CodeValidation,
		},
		{
			name: "duplicate after trimming",
			in:   inventory.IncrementInput{ProductID: serialized.ID, LocationID: f.stock.ID, Amount: 2, Serials: []string{"D1 ", "D1"}},
			code: apperror.CodeValidation,
		},
		{
			name: "amount without magnitude",
			in:   inventory.IncrementInput{ProductID: plain.ID, LocationID: f.stock.ID, Amount: math.MinInt64},
			code: apperror.CodeValidation,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.ledger.RecordIncrement(f.ctx, tt.in)
			assert.True(t, apperror.HasCode(err, tt.code), "got %v", err)
		})
	}
	assert.Empty(t, f.store.Increments)
}

func TestLedger_UnknownProduct(t *testing.T) {
	f := newFixture(t)

	_, err := f.ledger.RecordIncrement(f.ctx, inventory.IncrementInput{
		ProductID: id.New(), LocationID: f.stock.ID, Amount: 1,
	})
	assert.True(t, apperror.IsNotFound(err))
}

func TestLedger_QuantityIsSumOfLiveIncrements(t *testing.T) {
	f := newFixture(t)
	p := f.plainProduct()

	f.adjust(t, p, f.stock, 10)
	f.adjust(t, p, f.stock, -3)
	_, err := f.move(p, f.stock, f.shelf, 2)
	require.NoError(t, err)

	assert.Equal(t, int64(5), f.qty(t, p, f.stock))

	all, err := f.ledger.QuantitiesByProduct(f.ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, map[id.ID]int64{f.stock.ID: 5, f.shelf.ID: 2}, all)

	// stock may go negative
	f.adjust(t, p, f.stock, -9)
	assert.Equal(t, int64(-4), f.qty(t, p, f.stock))
}

func TestLedger_VoidIncrement(t *testing.T) {
	f := newFixture(t)
	p := f.serializedProduct()
	tr := f.adjust(t, p, f.stock, 2, "V1", "V2")

	require.NoError(t, f.ledger.VoidIncrement(f.ctx, tr.ToIncrementID))

	assert.Zero(t, f.qty(t, p, f.stock))
	assert.True(t, f.serial(t, p, "V1").IsDeleted())
	assert.True(t, f.serial(t, p, "V2").IsDeleted())

	err := f.ledger.VoidIncrement(f.ctx, tr.ToIncrementID)
	assert.True(t, apperror.IsNotFound(err))
}

func TestLedger_VoidIncrementBlockedBySerialThatMoved(t *testing.T) {
	f := newFixture(t)
	p := f.serializedProduct()
	tr := f.adjust(t, p, f.stock, 1, "M1")
	_, err := f.move(p, f.stock, f.shelf, 1, "M1")
	require.NoError(t, err)

	err = f.ledger.VoidIncrement(f.ctx, tr.ToIncrementID)

	assert.True(t, apperror.HasCode(err, apperror.CodeSerialLocationMismatch))
	assert.Equal(t, int64(1), f.qty(t, p, f.shelf))
	assert.Zero(t, f.qty(t, p, f.stock))
}

func TestLedger_VoidNegativeIncrementRevivesSerial(t *testing.T) {
	f := newFixture(t)
	p := f.serializedProduct()
	f.adjust(t, p, f.stock, 1, "R1")
	removal := f.adjust(t, p, f.stock, -1, "R1")
	require.True(t, f.serial(t, p, "R1").IsDeleted())

	require.NoError(t, f.ledger.VoidIncrement(f.ctx, removal.ToIncrementID))

	sn := f.serial(t, p, "R1")
	assert.False(t, sn.IsDeleted())
	assert.Equal(t, f.stock.ID, sn.LocationID)
	assert.Equal(t, int64(1), f.qty(t, p, f.stock))
}

func TestLedger_SerialHistoryUnknown(t *testing.T) {
	f := newFixture(t)
	p := f.serializedProduct()

	_, err := f.ledger.SerialHistory(f.ctx, p.ID, "NOPE")
	assert.True(t, apperror.IsNotFound(err))
}

func TestQuantityView_Rebuild(t *testing.T) {
	f := newFixture(t)
	p := f.plainProduct()
	q := f.products.Add("SCREEN-IP12", "120.00", true, false)
	start := time.Now().Add(-time.Second)

	f.adjust(t, p, f.stock, 6)
	f.adjust(t, q, f.shelf, 2)
	require.NoError(t, f.cache.Set(f.ctx, p.ID, f.inTransit.ID, 99))

	n, err := f.view.RebuildChangedSince(f.ctx, start)
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	assert.Equal(t, map[id.ID]int64{f.stock.ID: 6}, f.cache.Values[p.ID])
	assert.Equal(t, map[id.ID]int64{f.shelf.ID: 2}, f.cache.Values[q.ID])

	qty, err := f.view.Get(f.ctx, q.ID, f.shelf.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(2), qty)

	n, err = f.view.RebuildChangedSince(f.ctx, time.Now().Add(time.Hour))
	require.NoError(t, err)
	assert.Zero(t, n)
}
