// Package product exposes the product data the monetary and inventory
// cores read. Products are maintained elsewhere; this package never writes.
package product

import (
	"github.com/shopspring/decimal"

	"repairpos/internal/core/entity"
	"repairpos/internal/core/id"
	"repairpos/internal/core/types"
)

// Product is the subset of product master data used by line items and the
// inventory ledger.
type Product struct {
	entity.BaseEntity

	Code        string          `db:"code" json:"code"`
	Description string          `db:"description" json:"description"`
	SellPrice   decimal.Decimal `db:"sell_price" json:"sellPrice"`

	// AverageCost is the stored fallback when no cost rows exist
	AverageCost decimal.Decimal `db:"average_cost" json:"averageCost"`

	Taxable     bool `db:"taxable" json:"taxable"`
	Inventoried bool `db:"inventoried" json:"inventoried"`
	Serialized  bool `db:"serialized" json:"serialized"`
}

// Cost is a supplier or internal cost for a product.
// At most one cost per product is the default.
type Cost struct {
	entity.BaseEntity

	ProductID    id.ID           `db:"product_id" json:"productId"`
	Amount       decimal.Decimal `db:"cost" json:"cost"`
	IsDefault    bool            `db:"default_cost" json:"defaultCost"`
	SupplierCode string          `db:"supplier_code" json:"supplierCode"`
}

// Resolved is a product together with the cost a new line item freezes.
type Resolved struct {
	*Product
	Cost decimal.Decimal
}

// EffectiveCost picks the cost a new line uses: the default cost, else the
// mean of the live costs, else the stored average, else zero.
func EffectiveCost(costs []Cost, averageCost decimal.Decimal) decimal.Decimal {
	live := make([]decimal.Decimal, 0, len(costs))
	for _, c := range costs {
		if c.IsDeleted() {
			continue
		}
		if c.IsDefault {
			return c.Amount
		}
		live = append(live, c.Amount)
	}
	if len(live) > 0 {
		return types.Average(live...)
	}
	return averageCost
}
