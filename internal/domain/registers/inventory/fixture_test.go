package inventory_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"repairpos/internal/core/id"
	"repairpos/internal/core/numerator"
	"repairpos/internal/core/tx/txtest"
	"repairpos/internal/domain/audit"
	"repairpos/internal/domain/catalogs/location"
	"repairpos/internal/domain/catalogs/location/locationtest"
	"repairpos/internal/domain/catalogs/product"
	"repairpos/internal/domain/catalogs/product/producttest"
	"repairpos/internal/domain/registers/inventory"
	"repairpos/internal/domain/registers/inventory/inventorytest"
)

type fixture struct {
	ctx       context.Context
	products  *producttest.Store
	store     *inventorytest.Store
	cache     *inventorytest.Cache
	log       *audit.Memory
	txm       *txtest.Manager
	ledger    *inventory.Ledger
	transfers *inventory.TransferService
	view      *inventory.QuantityView

	stock     *location.Location
	inTransit *location.Location
	sold      *location.Location
	shelf     *location.Location
	user      id.ID
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	ctx := context.Background()

	locStore := locationtest.New()
	locations := location.NewService(locStore, txtest.New(locStore), audit.Nop{})
	require.NoError(t, locations.EnsureSystemLocations(ctx))
	shelf := location.NewLocation("Back Shelf")
	require.NoError(t, locations.Create(ctx, shelf))

	products := producttest.New()
	store := inventorytest.New()
	cache := inventorytest.NewCache()
	log := &audit.Memory{}
	txm := txtest.New(store, log)

	ledger := inventory.NewLedger(store.IncrementRepo(), store.SerialRepo(), products, locations, txm)
	transfers := inventory.NewTransferService(ledger, store.TransferRepo(), &numerator.MockGenerator{}, txm, log, cache)

	return &fixture{
		ctx:       ctx,
		products:  products,
		store:     store,
		cache:     cache,
		log:       log,
		txm:       txm,
		ledger:    ledger,
		transfers: transfers,
		view:      inventory.NewQuantityView(ledger, cache),
		stock:     locStore.MustDefault(),
		inTransit: locStore.MustSystem(location.KeyInTransit),
		sold:      locStore.MustSystem(location.KeySold),
		shelf:     shelf,
		user:      id.New(),
	}
}

func (f *fixture) plainProduct() *product.Product {
	return f.products.Add("CABLE-USBC", "19.99", true, false)
}

func (f *fixture) serializedProduct() *product.Product {
	return f.products.Add("IPHONE-13", "699.00", true, true)
}

func (f *fixture) adjust(t *testing.T, p *product.Product, loc *location.Location, amount int64, serials ...string) *inventory.Transfer {
	t.Helper()
	tr, err := f.transfers.Create(f.ctx, inventory.TransferRequest{
		Type:         inventory.TypeAdjustment,
		ProductID:    p.ID,
		ToLocationID: loc.ID,
		Amount:       amount,
		UserID:       f.user,
		Serials:      serials,
	})
	require.NoError(t, err)
	return tr
}

func (f *fixture) move(p *product.Product, from, to *location.Location, amount int64, serials ...string) (*inventory.Transfer, error) {
	return f.transfers.Create(f.ctx, inventory.TransferRequest{
		Type:           inventory.TypeTransfer,
		ProductID:      p.ID,
		FromLocationID: &from.ID,
		ToLocationID:   to.ID,
		Amount:         amount,
		UserID:         f.user,
		Serials:        serials,
	})
}

func (f *fixture) qty(t *testing.T, p *product.Product, loc *location.Location) int64 {
	t.Helper()
	q, err := f.ledger.CurrentQuantity(f.ctx, p.ID, loc.ID)
	require.NoError(t, err)
	return q
}

func (f *fixture) serial(t *testing.T, p *product.Product, number string) *inventory.SerialNumber {
	t.Helper()
	sn, err := f.ledger.FindSerial(f.ctx, p.ID, number)
	require.NoError(t, err)
	return sn
}
