package monetary

import (
	"github.com/shopspring/decimal"

	"repairpos/internal/core/apperror"
)

// Totals are document level sums of the line amounts.
type Totals struct {
	SubTotal      decimal.Decimal `json:"totalSubTotal"`
	DiscountTotal decimal.Decimal `json:"totalDiscountAmount"`
	CostTotal     decimal.Decimal `json:"totalCostTotal"`
	MarginTotal   decimal.Decimal `json:"totalProfitMarginTotal"`
	TaxTotal      decimal.Decimal `json:"totalTaxAmount"`
	Total         decimal.Decimal `json:"total"`
}

// Document carries the snapshot and totals of a monetary document.
// Concrete documents embed it and own their lines.
type Document struct {
	snapshot Snapshot
	totals   Totals
	stale    bool
}

// NewDocument creates a document with no lines and zero totals.
func NewDocument(snap Snapshot) Document {
	return Document{snapshot: snap, totals: zeroTotals()}
}

// DocumentFromRecord restores stored totals.
func DocumentFromRecord(snap Snapshot, rec TotalsRecord) Document {
	return Document{snapshot: snap, totals: Totals(rec)}
}

// Snapshot returns the document snapshot.
func (d *Document) Snapshot() Snapshot { return d.snapshot }

// MarkStale flags the totals as outdated. Call on every line set change.
func (d *Document) MarkStale() { d.stale = true }

// IsStale reports whether totals need recomputing.
func (d *Document) IsStale() bool { return d.stale }

// RecomputeTotals sums the lines into the document totals.
// An empty line set yields zero totals.
func (d *Document) RecomputeTotals(lines []Line) {
	t := zeroTotals()
	for i := range lines {
		a := lines[i].Amounts()
		t.SubTotal = t.SubTotal.Add(a.SubTotal)
		t.DiscountTotal = t.DiscountTotal.Add(a.DiscountTotal)
		t.CostTotal = t.CostTotal.Add(a.CostTotal)
		t.MarginTotal = t.MarginTotal.Add(a.MarginTotal)
		t.TaxTotal = t.TaxTotal.Add(a.TaxTotal)
		t.Total = t.Total.Add(a.Total)
	}
	d.totals = t
	d.stale = false
}

// Totals returns the current totals, or an error while they are stale.
func (d *Document) Totals() (Totals, error) {
	if d.stale {
		return Totals{}, apperror.NewState(apperror.CodeStaleTotals, "document totals are stale")
	}
	return d.totals, nil
}

// Validate rejects a document whose total is negative.
func (d *Document) Validate() error {
	t, err := d.Totals()
	if err != nil {
		return err
	}
	if t.Total.IsNegative() {
		return apperror.NewValidationCode(apperror.CodeNegativeTotal, "document total must not be negative").
			WithDetail("total", t.Total.String())
	}
	return nil
}

// TotalsRecord returns the storage shape of the totals.
func (d *Document) TotalsRecord() (TotalsRecord, error) {
	t, err := d.Totals()
	if err != nil {
		return TotalsRecord{}, err
	}
	return TotalsRecord(t), nil
}

func zeroTotals() Totals {
	return Totals{
		SubTotal:      decimal.Zero,
		DiscountTotal: decimal.Zero,
		CostTotal:     decimal.Zero,
		MarginTotal:   decimal.Zero,
		TaxTotal:      decimal.Zero,
		Total:         decimal.Zero,
	}
}
