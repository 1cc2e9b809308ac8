package inventory

import (
	"context"
	"fmt"
	"time"

	"repairpos/internal/core/id"
	"repairpos/pkg/logger"
)

// QuantityCache holds quantities derived from the ledger. It is never the
// source of truth and can be rebuilt at any time.
type QuantityCache interface {
	// Get returns ok=false on a miss.
	Get(ctx context.Context, productID, locationID id.ID) (qty int64, ok bool, err error)
	Set(ctx context.Context, productID, locationID id.ID, qty int64) error
	InvalidateProduct(ctx context.Context, productID id.ID) error

	// ReplaceProduct swaps all cached quantities of a product at once.
	ReplaceProduct(ctx context.Context, productID id.ID, quantities map[id.ID]int64) error
}

// NopCache caches nothing.
type NopCache struct{}

func (NopCache) Get(context.Context, id.ID, id.ID) (int64, bool, error) { return 0, false, nil }

func (NopCache) Set(context.Context, id.ID, id.ID, int64) error { return nil }

func (NopCache) InvalidateProduct(context.Context, id.ID) error { return nil }

func (NopCache) ReplaceProduct(context.Context, id.ID, map[id.ID]int64) error { return nil }

// QuantityView serves quantity reads from the cache with ledger fallback.
type QuantityView struct {
	ledger *Ledger
	cache  QuantityCache
}

// NewQuantityView creates a read view over the ledger.
func NewQuantityView(ledger *Ledger, cache QuantityCache) *QuantityView {
	if cache == nil {
		cache = NopCache{}
	}
	return &QuantityView{ledger: ledger, cache: cache}
}

// Get returns the quantity of a product at a location.
// Cache errors degrade to a ledger read.
func (v *QuantityView) Get(ctx context.Context, productID, locationID id.ID) (int64, error) {
	qty, ok, err := v.cache.Get(ctx, productID, locationID)
	if err != nil {
		logger.Warn(ctx, "quantity cache read failed", "product_id", productID, "error", err)
	}
	if ok && err == nil {
		return qty, nil
	}

	qty, err = v.ledger.CurrentQuantity(ctx, productID, locationID)
	if err != nil {
		return 0, err
	}
	if err := v.cache.Set(ctx, productID, locationID, qty); err != nil {
		logger.Warn(ctx, "quantity cache fill failed", "product_id", productID, "error", err)
	}
	return qty, nil
}

// Rebuild rewrites the cached quantities of the products from the ledger.
func (v *QuantityView) Rebuild(ctx context.Context, productIDs []id.ID) error {
	for _, productID := range productIDs {
		if err := ctx.Err(); err != nil {
			return err
		}
		quantities, err := v.ledger.QuantitiesByProduct(ctx, productID)
		if err != nil {
			return fmt.Errorf("sum quantities for %s: %w", productID, err)
		}
		if err := v.cache.ReplaceProduct(ctx, productID, quantities); err != nil {
			return fmt.Errorf("replace cached quantities for %s: %w", productID, err)
		}
	}
	return nil
}

// RebuildChangedSince rebuilds products with increments newer than since.
func (v *QuantityView) RebuildChangedSince(ctx context.Context, since time.Time) (int, error) {
	productIDs, err := v.ledger.increments.ProductsChangedSince(ctx, since)
	if err != nil {
		return 0, fmt.Errorf("list changed products: %w", err)
	}
	return len(productIDs), v.Rebuild(ctx, productIDs)
}
