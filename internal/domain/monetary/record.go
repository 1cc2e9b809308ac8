package monetary

import (
	"github.com/shopspring/decimal"
)

// LineRecord is the flat storage shape of a Line.
type LineRecord struct {
	ProductRef
	Snapshot

	Quantity             decimal.Decimal `db:"quantity"`
	UnitSellPrice        decimal.Decimal `db:"unit_sell_price"`
	UnitDiscount         decimal.Decimal `db:"unit_sell_price_discount_amount"`
	UnitNet              decimal.Decimal `db:"unit_sell_price_total"`
	DiscountIsPercentage bool            `db:"unit_discount_is_percentage"`
	DiscountAmount       decimal.Decimal `db:"unit_discount_amount"`
	UnitTax              decimal.Decimal `db:"unit_tax_amount"`
	UnitMargin           decimal.Decimal `db:"unit_profit_margin"`
	SubTotal             decimal.Decimal `db:"total_subtotal"`
	DiscountTotal        decimal.Decimal `db:"total_discount_amount"`
	CostTotal            decimal.Decimal `db:"total_cost"`
	MarginTotal          decimal.Decimal `db:"total_profit_margin"`
	TaxTotal             decimal.Decimal `db:"total_tax"`
	Total                decimal.Decimal `db:"total"`
}

// Record flattens the line for storage.
func (l *Line) Record() LineRecord {
	a := l.amounts
	return LineRecord{
		ProductRef:           l.product,
		Snapshot:             l.snapshot,
		Quantity:             l.quantity,
		UnitSellPrice:        l.unitSellPrice,
		UnitDiscount:         a.UnitDiscount,
		UnitNet:              a.UnitNet,
		DiscountIsPercentage: l.discountIsPercentage,
		DiscountAmount:       l.discountAmount,
		UnitTax:              a.UnitTax,
		UnitMargin:           a.UnitMargin,
		SubTotal:             a.SubTotal,
		DiscountTotal:        a.DiscountTotal,
		CostTotal:            a.CostTotal,
		MarginTotal:          a.MarginTotal,
		TaxTotal:             a.TaxTotal,
		Total:                a.Total,
	}
}

// LineFromRecord rebuilds a line from storage. Derived columns are not
// trusted; they are recomputed from the stored inputs and frozen fields.
func LineFromRecord(rec LineRecord) (Line, error) {
	l := Line{
		product:              rec.ProductRef,
		snapshot:             rec.Snapshot,
		quantity:             rec.Quantity,
		unitSellPrice:        rec.UnitSellPrice,
		discountIsPercentage: rec.DiscountIsPercentage,
		discountAmount:       rec.DiscountAmount,
	}
	if err := l.Compute(); err != nil {
		return Line{}, err
	}
	return l, nil
}

// TotalsRecord is the flat storage shape of document totals.
type TotalsRecord struct {
	SubTotal      decimal.Decimal `db:"total_subtotal"`
	DiscountTotal decimal.Decimal `db:"total_discount_amount"`
	CostTotal     decimal.Decimal `db:"total_cost"`
	MarginTotal   decimal.Decimal `db:"total_profit_margin"`
	TaxTotal      decimal.Decimal `db:"total_tax"`
	Total         decimal.Decimal `db:"total"`
}
