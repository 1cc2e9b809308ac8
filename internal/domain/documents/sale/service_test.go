package sale_test

import (
	"context"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"repairpos/internal/core/apperror"
	"repairpos/internal/core/id"
	"repairpos/internal/core/numerator"
	"repairpos/internal/core/tx/txtest"
	"repairpos/internal/core/types"
	"repairpos/internal/domain/audit"
	"repairpos/internal/domain/catalogs/currency"
	"repairpos/internal/domain/catalogs/currency/currencytest"
	"repairpos/internal/domain/catalogs/location"
	"repairpos/internal/domain/catalogs/location/locationtest"
	"repairpos/internal/domain/catalogs/product"
	"repairpos/internal/domain/catalogs/product/producttest"
	"repairpos/internal/domain/documents/sale"
	"repairpos/internal/domain/documents/sale/saletest"
	"repairpos/internal/domain/monetary"
	"repairpos/internal/domain/registers/inventory"
	"repairpos/internal/domain/registers/inventory/inventorytest"
)

type fixture struct {
	ctx       context.Context
	rates     *currency.Service
	tax       *currency.Tax
	products  *producttest.Store
	store     *saletest.Store
	inventory *inventorytest.Store
	log       *audit.Memory
	ledger    *inventory.Ledger
	transfers *inventory.TransferService
	sales     *sale.Service

	stock *location.Location
	sold  *location.Location
	user  id.ID
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	ctx := context.Background()

	curStore := currencytest.New()
	rates := currency.NewService(curStore, txtest.New(curStore), audit.Nop{})
	usd := currency.NewCurrency("US Dollar", "USD", types.MustRate("1.0000"))
	usd.IsDefault = true
	require.NoError(t, rates.CreateCurrency(ctx, usd))
	tax := currency.NewTax(usd.ID, "SALES", types.MustRate("0.08"))
	tax.DefaultTax = true
	require.NoError(t, rates.CreateTax(ctx, tax))

	locStore := locationtest.New()
	locations := location.NewService(locStore, txtest.New(locStore), audit.Nop{})
	require.NoError(t, locations.EnsureSystemLocations(ctx))

	products := producttest.New()
	store := saletest.New()
	inv := inventorytest.New()
	log := &audit.Memory{}
	txm := txtest.New(store, inv, log)
	gen := &numerator.MockGenerator{}

	ledger := inventory.NewLedger(inv.IncrementRepo(), inv.SerialRepo(), products, locations, txm)
	transfers := inventory.NewTransferService(ledger, inv.TransferRepo(), gen, txm, log, nil)
	sales := sale.NewService(
		store,
		product.NewService(products),
		locations,
		monetary.NewSnapshotService(rates),
		transfers,
		gen,
		txm,
		log,
	)

	return &fixture{
		ctx:       ctx,
		rates:     rates,
		tax:       tax,
		products:  products,
		store:     store,
		inventory: inv,
		log:       log,
		ledger:    ledger,
		transfers: transfers,
		sales:     sales,
		stock:     locStore.MustDefault(),
		sold:      locStore.MustSystem(location.KeySold),
		user:      id.New(),
	}
}

func dec(s string) *decimal.Decimal {
	d := decimal.RequireFromString(s)
	return &d
}

func (f *fixture) stockUp(t *testing.T, p *product.Product, amount int64, serials ...string) {
	t.Helper()
	_, err := f.transfers.Create(f.ctx, inventory.TransferRequest{
		Type:         inventory.TypeAdjustment,
		ProductID:    p.ID,
		ToLocationID: f.stock.ID,
		Amount:       amount,
		UserID:       f.user,
		Serials:      serials,
	})
	require.NoError(t, err)
}

func (f *fixture) qty(t *testing.T, p *product.Product, loc *location.Location) int64 {
	t.Helper()
	q, err := f.ledger.CurrentQuantity(f.ctx, p.ID, loc.ID)
	require.NoError(t, err)
	return q
}

func (f *fixture) create(t *testing.T, lines ...sale.LineInput) *sale.Sale {
	t.Helper()
	doc, err := f.sales.Create(f.ctx, sale.CreateInput{UserID: f.user, Lines: lines})
	require.NoError(t, err)
	return doc
}

func totals(t *testing.T, doc *sale.Sale) monetary.Totals {
	t.Helper()
	tot, err := doc.Totals()
	require.NoError(t, err)
	return tot
}

func TestCreate_PricesLinesAgainstDefaults(t *testing.T) {
	f := newFixture(t)
	p := f.products.Add("BATTERY-IP11", "100.00", false, false)
	f.products.AddCost(p.ID, "60.00", true)

	doc := f.create(t, sale.LineInput{
		ProductID:            p.ID,
		Quantity:             dec("2"),
		DiscountIsPercentage: true,
		DiscountAmount:       dec("0.10"),
	})

	assert.Equal(t, "S-00001", doc.Number)
	assert.Equal(t, f.stock.ID, doc.LocationID)
	assert.Equal(t, f.tax.ID, doc.Snapshot().TaxID)
	require.Len(t, doc.Lines, 1)
	assert.Equal(t, 1, doc.Lines[0].LineNo)

	a := doc.Lines[0].Amounts()
	assert.True(t, a.UnitDiscount.Equal(decimal.RequireFromString("10")))
	assert.True(t, a.UnitMargin.Equal(decimal.RequireFromString("30")))
	assert.True(t, a.Total.Equal(decimal.RequireFromString("194.40")))

	tot := totals(t, doc)
	assert.True(t, tot.Total.Equal(decimal.RequireFromString("194.40")))
	assert.True(t, tot.TaxTotal.Equal(decimal.RequireFromString("14.40")))
	assert.True(t, tot.CostTotal.Equal(decimal.RequireFromString("120")))

	stored, err := f.sales.GetByID(f.ctx, doc.ID)
	require.NoError(t, err)
	require.Len(t, stored.Lines, 1)
	assert.True(t, totals(t, stored).Total.Equal(tot.Total))

	require.Len(t, f.log.Entries, 1)
	assert.Equal(t, audit.ActionCreate, f.log.Entries[0].Action)
}

func TestCreate_NegativeTotalPersistsNothing(t *testing.T) {
	f := newFixture(t)
	p := f.products.Add("SCREEN-PROTECTOR", "10.00", false, false)

	_, err := f.sales.Create(f.ctx, sale.CreateInput{
		UserID: f.user,
		Lines: []sale.LineInput{
			{ProductID: p.ID, Quantity: dec("1")},
			{ProductID: p.ID, Quantity: dec("1"), DiscountAmount: dec("11.50")},
		},
	})

	appErr, ok := apperror.AsAppError(err)
	require.True(t, ok, "got %v", err)
	assert.Equal(t, apperror.KindValidation, appErr.Kind)
	assert.Equal(t, apperror.CodeNegativeTotal, appErr.Code)
	assert.Equal(t, 2, appErr.Details["lineNo"])

	assert.Empty(t, f.store.Headers)
	assert.Empty(t, f.store.Lines)
	assert.Empty(t, f.log.Entries)
}

func TestCreate_RejectsInvalidInput(t *testing.T) {
	f := newFixture(t)
	p := f.products.Add("CASE", "15.00", false, false)

	_, err := f.sales.Create(f.ctx, sale.CreateInput{Lines: []sale.LineInput{{ProductID: p.ID}}})
	assert.Equal(t, apperror.KindValidation, apperror.KindOf(err))

	_, err = f.sales.Create(f.ctx, sale.CreateInput{UserID: f.user, Lines: []sale.LineInput{{}}})
	assert.Equal(t, apperror.KindValidation, apperror.KindOf(err))

	_, err = f.sales.Create(f.ctx, sale.CreateInput{UserID: f.user, LocationID: &f.sold.ID})
	assert.Equal(t, apperror.KindValidation, apperror.KindOf(err))

	_, err = f.sales.Create(f.ctx, sale.CreateInput{
		UserID: f.user,
		Lines:  []sale.LineInput{{ProductID: p.ID, Quantity: dec("0")}},
	})
	assert.True(t, apperror.HasCode(err, apperror.CodeNonPositiveQuantity))

	assert.Empty(t, f.store.Headers)
}

func TestCreate_SnapshotSurvivesRateChange(t *testing.T) {
	f := newFixture(t)
	p := f.products.Add("CHARGER", "50.00", false, false)
	doc := f.create(t, sale.LineInput{ProductID: p.ID})

	tax, err := f.rates.GetTax(f.ctx, f.tax.ID)
	require.NoError(t, err)
	tax.TaxRate = types.MustRate("0.20")
	require.NoError(t, f.rates.UpdateTax(f.ctx, tax))

	stored, err := f.sales.GetByID(f.ctx, doc.ID)
	require.NoError(t, err)
	assert.True(t, stored.Snapshot().TaxRate.Equal(types.MustRate("0.08")))
	assert.True(t, totals(t, stored).Total.Equal(decimal.RequireFromString("54")))

	updated, err := f.sales.AddLine(f.ctx, doc.ID, sale.LineInput{ProductID: p.ID})
	require.NoError(t, err)
	assert.True(t, updated.Lines[1].TaxRate().Equal(types.MustRate("0.08")))
	assert.True(t, totals(t, updated).Total.Equal(decimal.RequireFromString("108")))
}

func TestGetByID_TotalsFollowLines(t *testing.T) {
	f := newFixture(t)
	ca := currency.NewTax(f.tax.CurrencyID, "CA", types.MustRate("0.0825"))
	require.NoError(t, f.rates.CreateTax(f.ctx, ca))
	p := f.products.Add("TEMPERED-GLASS", "10.10", false, false)

	doc, err := f.sales.Create(f.ctx, sale.CreateInput{
		UserID: f.user,
		TaxID:  &ca.ID,
		Lines:  []sale.LineInput{{ProductID: p.ID}},
	})
	require.NoError(t, err)
	exact := decimal.RequireFromString("10.93325")
	require.True(t, totals(t, doc).Total.Equal(exact))

	// header written through a four place column
	stored := f.store.Headers[doc.ID]
	rec, err := stored.ToRecord()
	require.NoError(t, err)
	rec.TaxTotal = rec.TaxTotal.Round(4)
	rec.Total = rec.Total.Round(4)
	f.store.Headers[doc.ID] = *sale.FromRecord(rec)

	loaded, err := f.sales.GetByID(f.ctx, doc.ID)
	require.NoError(t, err)
	sum := decimal.Zero
	for i := range loaded.Lines {
		sum = sum.Add(loaded.Lines[i].Amounts().Total)
	}
	assert.True(t, sum.Equal(exact), "lines sum to %s", sum)
	assert.True(t, totals(t, loaded).Total.Equal(sum), "total %s", totals(t, loaded).Total)
}

func TestCreate_RejectsDigitsPastColumnScale(t *testing.T) {
	f := newFixture(t)
	p := f.products.Add("SCREW-KIT", "1.00", false, false)

	for _, in := range []sale.LineInput{
		{ProductID: p.ID, Quantity: dec("1.00005")},
		{ProductID: p.ID, UnitSellPrice: dec("10.10001")},
		{ProductID: p.ID, DiscountIsPercentage: true, DiscountAmount: dec("0.1234567")},
	} {
		_, err := f.sales.Create(f.ctx, sale.CreateInput{UserID: f.user, Lines: []sale.LineInput{in}})
		assert.Equal(t, apperror.KindValidation, apperror.KindOf(err))
	}
	assert.Empty(t, f.store.Headers)
}

func TestLineEdits(t *testing.T) {
	f := newFixture(t)
	cable := f.products.Add("CABLE", "20.00", false, false)
	glass := f.products.Add("GLASS", "30.00", false, false)
	doc := f.create(t, sale.LineInput{ProductID: cable.ID}, sale.LineInput{ProductID: glass.ID})
	assert.True(t, totals(t, doc).SubTotal.Equal(decimal.RequireFromString("50")))

	doc, err := f.sales.UpdateLine(f.ctx, doc.ID, doc.Lines[0].ID, sale.LineUpdate{
		Quantity:      dec("3"),
		UnitSellPrice: dec("10.00"),
	})
	require.NoError(t, err)
	assert.True(t, totals(t, doc).SubTotal.Equal(decimal.RequireFromString("60")))
	assert.Equal(t, 2, doc.Version)

	doc, err = f.sales.RemoveLine(f.ctx, doc.ID, doc.Lines[0].ID)
	require.NoError(t, err)
	require.Len(t, doc.Lines, 1)
	assert.Equal(t, 1, doc.Lines[0].LineNo)
	assert.Equal(t, "GLASS", doc.Lines[0].Product().Code)
	assert.True(t, totals(t, doc).SubTotal.Equal(decimal.RequireFromString("30")))

	doc, err = f.sales.RemoveLine(f.ctx, doc.ID, doc.Lines[0].ID)
	require.NoError(t, err)
	assert.Empty(t, doc.Lines)
	assert.True(t, totals(t, doc).Total.IsZero())

	_, err = f.sales.RemoveLine(f.ctx, doc.ID, id.New())
	assert.True(t, apperror.IsNotFound(err))
}

func TestUpdateLine_RejectedEditChangesNothing(t *testing.T) {
	f := newFixture(t)
	p := f.products.Add("KEYBOARD", "40.00", false, false)
	doc := f.create(t, sale.LineInput{ProductID: p.ID})
	lineID := doc.Lines[0].ID

	_, err := f.sales.UpdateLine(f.ctx, doc.ID, lineID, sale.LineUpdate{
		Discount: &sale.Discount{Amount: decimal.RequireFromString("45")},
	})
	assert.True(t, apperror.HasCode(err, apperror.CodeNegativeTotal))

	stored, err := f.sales.GetByID(f.ctx, doc.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, stored.Version)
	assert.True(t, stored.Lines[0].DiscountAmount().IsZero())
	assert.Len(t, f.log.Entries, 1)

	// price and discount applied together as one edit
	doc, err = f.sales.UpdateLine(f.ctx, doc.ID, lineID, sale.LineUpdate{
		UnitSellPrice: dec("60"),
		Discount:      &sale.Discount{Amount: decimal.RequireFromString("45")},
	})
	require.NoError(t, err)
	assert.True(t, doc.Lines[0].Amounts().UnitNet.Equal(decimal.RequireFromString("15")))
}

func TestComplete_MovesStockToSold(t *testing.T) {
	f := newFixture(t)
	cable := f.products.Add("CABLE", "20.00", true, false)
	phone := f.products.Add("PHONE", "500.00", true, true)
	labor := f.products.Add("LABOR", "80.00", false, false)
	f.stockUp(t, cable, 5)
	f.stockUp(t, phone, 2, "P1", "P2")

	doc := f.create(t,
		sale.LineInput{ProductID: cable.ID, Quantity: dec("2")},
		sale.LineInput{ProductID: phone.ID},
		sale.LineInput{ProductID: labor.ID, Quantity: dec("1.5")},
	)

	done, err := f.sales.Complete(f.ctx, doc.ID, f.user, map[id.ID][]string{
		doc.Lines[1].ID: {"P2"},
	})
	require.NoError(t, err)
	assert.True(t, done.Completed)

	assert.Equal(t, int64(3), f.qty(t, cable, f.stock))
	assert.Equal(t, int64(2), f.qty(t, cable, f.sold))
	assert.Equal(t, int64(1), f.qty(t, phone, f.sold))

	sn, err := f.ledger.FindSerial(f.ctx, phone.ID, "P2")
	require.NoError(t, err)
	assert.True(t, sn.IsSold)
	assert.Equal(t, f.sold.ID, sn.LocationID)

	list, err := f.transfers.ListByProduct(f.ctx, cable.ID)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, "Sale "+doc.Number, list[0].Notes)

	_, err = f.sales.AddLine(f.ctx, doc.ID, sale.LineInput{ProductID: cable.ID})
	assert.True(t, apperror.HasCode(err, apperror.CodeDocumentCompleted))

	_, err = f.sales.Complete(f.ctx, doc.ID, f.user, nil)
	assert.True(t, apperror.HasCode(err, apperror.CodeDocumentCompleted))
}

func TestComplete_FractionalInventoriedQuantity(t *testing.T) {
	f := newFixture(t)
	wire := f.products.Add("WIRE-M", "2.00", true, false)
	f.stockUp(t, wire, 10)
	doc := f.create(t, sale.LineInput{ProductID: wire.ID, Quantity: dec("2.5")})
	before := len(f.inventory.Increments)

	_, err := f.sales.Complete(f.ctx, doc.ID, f.user, nil)

	assert.Equal(t, apperror.KindValidation, apperror.KindOf(err))
	assert.Len(t, f.inventory.Increments, before)
}

func TestComplete_FailedMoveRollsBackEverything(t *testing.T) {
	f := newFixture(t)
	cable := f.products.Add("CABLE", "20.00", true, false)
	phone := f.products.Add("PHONE", "500.00", true, true)
	f.stockUp(t, cable, 5)
	f.stockUp(t, phone, 1, "P1")
	doc := f.create(t,
		sale.LineInput{ProductID: cable.ID},
		sale.LineInput{ProductID: phone.ID},
	)
	before := len(f.inventory.Increments)

	_, err := f.sales.Complete(f.ctx, doc.ID, f.user, map[id.ID][]string{
		doc.Lines[1].ID: {"NOT-HERE"},
	})

	assert.True(t, apperror.HasCode(err, apperror.CodeSerialLocationMismatch))
	appErr, _ := apperror.AsAppError(err)
	assert.Equal(t, 2, appErr.Details["lineNo"])

	assert.Len(t, f.inventory.Increments, before)
	assert.Equal(t, int64(5), f.qty(t, cable, f.stock))
	stored, err := f.sales.GetByID(f.ctx, doc.ID)
	require.NoError(t, err)
	assert.False(t, stored.Completed)
}

func TestComplete_SerialsForUnknownLine(t *testing.T) {
	f := newFixture(t)
	labor := f.products.Add("LABOR", "80.00", false, false)
	doc := f.create(t, sale.LineInput{ProductID: labor.ID})

	_, err := f.sales.Complete(f.ctx, doc.ID, f.user, map[id.ID][]string{doc.Lines[0].ID: {"X"}})
	assert.Equal(t, apperror.KindValidation, apperror.KindOf(err))
}

func TestComplete_QuantityPastMoveRange(t *testing.T) {
	f := newFixture(t)
	wire := f.products.Add("WIRE-XL", "0.00", true, false)
	f.stockUp(t, wire, 10)
	doc := f.create(t, sale.LineInput{ProductID: wire.ID, Quantity: dec("9223372036854775808")})
	before := len(f.inventory.Increments)

	_, err := f.sales.Complete(f.ctx, doc.ID, f.user, nil)

	assert.Equal(t, apperror.KindValidation, apperror.KindOf(err))
	assert.Len(t, f.inventory.Increments, before)
	assert.Equal(t, int64(10), f.qty(t, wire, f.stock))
}
