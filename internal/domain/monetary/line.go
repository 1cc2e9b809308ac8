package monetary

import (
	"github.com/shopspring/decimal"

	"repairpos/internal/core/apperror"
	"repairpos/internal/core/id"
	"repairpos/internal/core/types"
	"repairpos/internal/domain/catalogs/product"
)

// ProductRef is the product data frozen on a line when it is created.
type ProductRef struct {
	// ProductID is nil once the product is gone; the frozen fields remain
	ProductID   *id.ID          `db:"ref_product_id" json:"productId,omitempty"`
	Code        string          `db:"ref_product_code" json:"productCode"`
	Description string          `db:"ref_product_description" json:"productDescription"`
	SellPrice   decimal.Decimal `db:"ref_product_sell_price" json:"productSellPrice"`
	CostAmount  decimal.Decimal `db:"ref_product_cost_amount" json:"productCostAmount"`
	Serialized  bool            `db:"ref_product_serialized" json:"productSerialized"`
	Inventoried bool            `db:"ref_product_inventoried" json:"productInventoried"`
	Taxable     bool            `db:"ref_product_taxable" json:"productTaxable"`
}

// Amounts are the derived values of a line.
type Amounts struct {
	UnitDiscount  decimal.Decimal `json:"unitSellPriceDiscountAmount"`
	UnitNet       decimal.Decimal `json:"unitSellPriceTotal"`
	UnitTax       decimal.Decimal `json:"unitTaxAmount"`
	UnitMargin    decimal.Decimal `json:"unitProfitMargin"`
	SubTotal      decimal.Decimal `json:"totalSubTotal"`
	DiscountTotal decimal.Decimal `json:"totalDiscountAmount"`
	CostTotal     decimal.Decimal `json:"totalCostTotal"`
	MarginTotal   decimal.Decimal `json:"totalProfitMarginTotal"`
	TaxTotal      decimal.Decimal `json:"totalTaxAmount"`
	Total         decimal.Decimal `json:"total"`
}

// Line is one product entry on a monetary document.
// Inputs change only through the setters, each of which recomputes the
// derived amounts. A rejected edit leaves the line as it was.
type Line struct {
	product  ProductRef
	snapshot Snapshot

	quantity             decimal.Decimal
	unitSellPrice        decimal.Decimal
	discountIsPercentage bool
	discountAmount       decimal.Decimal

	amounts Amounts
}

// NewLine creates a line for one unit of the product at its sell price.
func NewLine(p product.Resolved, snap Snapshot) (Line, error) {
	l := Line{
		product: ProductRef{
			ProductID:   id.Ptr(p.ID),
			Code:        p.Code,
			Description: p.Description,
			SellPrice:   p.SellPrice,
			CostAmount:  p.Cost,
			Serialized:  p.Serialized,
			Inventoried: p.Inventoried,
			Taxable:     p.Taxable,
		},
		snapshot:       snap,
		quantity:       decimal.NewFromInt(1),
		unitSellPrice:  p.SellPrice,
		discountAmount: decimal.Zero,
	}
	if err := l.Compute(); err != nil {
		return Line{}, err
	}
	return l, nil
}

// Product returns the frozen product fields.
func (l *Line) Product() ProductRef { return l.product }

// Snapshot returns the currency and tax the line was priced with.
func (l *Line) Snapshot() Snapshot { return l.snapshot }

func (l *Line) Quantity() decimal.Decimal { return l.quantity }

func (l *Line) UnitSellPrice() decimal.Decimal { return l.unitSellPrice }

func (l *Line) DiscountIsPercentage() bool { return l.discountIsPercentage }

func (l *Line) DiscountAmount() decimal.Decimal { return l.discountAmount }

// Amounts returns a copy of the derived values.
func (l *Line) Amounts() Amounts { return l.amounts }

// SetQuantity changes the quantity and recomputes.
func (l *Line) SetQuantity(q decimal.Decimal) error {
	next := *l
	next.quantity = q
	return l.apply(next)
}

// SetUnitSellPrice changes the unit price and recomputes.
func (l *Line) SetUnitSellPrice(price decimal.Decimal) error {
	next := *l
	next.unitSellPrice = price
	return l.apply(next)
}

// SetDiscount changes the discount and recomputes. A percentage discount is
// a fraction (0.10 is 10%); a flat discount is an amount per unit.
func (l *Line) SetDiscount(isPercentage bool, amount decimal.Decimal) error {
	next := *l
	next.discountIsPercentage = isPercentage
	next.discountAmount = amount
	return l.apply(next)
}

// Inputs are the editable values of a line.
type Inputs struct {
	Quantity             decimal.Decimal
	UnitSellPrice        decimal.Decimal
	DiscountIsPercentage bool
	DiscountAmount       decimal.Decimal
}

// Inputs returns the current editable values.
func (l *Line) Inputs() Inputs {
	return Inputs{
		Quantity:             l.quantity,
		UnitSellPrice:        l.unitSellPrice,
		DiscountIsPercentage: l.discountIsPercentage,
		DiscountAmount:       l.discountAmount,
	}
}

// SetInputs replaces all editable values as one edit and recomputes.
func (l *Line) SetInputs(in Inputs) error {
	next := *l
	next.quantity = in.Quantity
	next.unitSellPrice = in.UnitSellPrice
	next.discountIsPercentage = in.DiscountIsPercentage
	next.discountAmount = in.DiscountAmount
	return l.apply(next)
}

// DetachProduct clears the product reference. Frozen product fields stay.
func (l *Line) DetachProduct() {
	l.product.ProductID = nil
}

func (l *Line) apply(next Line) error {
	if err := next.Compute(); err != nil {
		return err
	}
	*l = next
	return nil
}

// TaxRate is the rate applied to the line: the snapshot rate, or zero for
// a non-taxable product.
func (l *Line) TaxRate() decimal.Decimal {
	if !l.product.Taxable {
		return decimal.Zero
	}
	return l.snapshot.TaxRate
}

// Compute derives every amount from the inputs. It is deterministic and
// does no I/O. A net unit price below zero is allowed, a negative total is not.
func (l *Line) Compute() error {
	if !l.quantity.IsPositive() {
		return apperror.NewValidationCode(apperror.CodeNonPositiveQuantity, "quantity must be greater than zero").
			WithDetail("field", "quantity").
			WithDetail("value", l.quantity.String())
	}
	if l.unitSellPrice.IsNegative() {
		return apperror.NewValidation("unit sell price must not be negative").
			WithDetail("field", "unitSellPrice")
	}
	if l.discountAmount.IsNegative() ||
		(l.discountIsPercentage && l.discountAmount.GreaterThan(decimal.NewFromInt(1))) {
		return apperror.NewValidationCode(apperror.CodeInvalidDiscount, "invalid discount amount").
			WithDetail("field", "discountAmount").
			WithDetail("value", l.discountAmount.String())
	}
	if err := l.checkScale(); err != nil {
		return err
	}

	var a Amounts
	if l.discountIsPercentage {
		a.UnitDiscount = l.unitSellPrice.Mul(l.discountAmount)
	} else {
		a.UnitDiscount = l.discountAmount
	}
	a.UnitNet = l.unitSellPrice.Sub(a.UnitDiscount)
	a.UnitTax = l.TaxRate().Mul(a.UnitNet)
	a.UnitMargin = a.UnitNet.Sub(l.product.CostAmount)

	a.SubTotal = a.UnitNet.Mul(l.quantity)
	a.DiscountTotal = a.UnitDiscount.Mul(l.quantity)
	a.CostTotal = l.product.CostAmount.Mul(l.quantity)
	a.MarginTotal = a.UnitMargin.Mul(l.quantity)
	a.TaxTotal = a.UnitTax.Mul(l.quantity)
	a.Total = a.SubTotal.Add(a.TaxTotal)

	if a.Total.IsNegative() {
		return apperror.NewValidationCode(apperror.CodeNegativeTotal, "line total must not be negative").
			WithDetail("total", a.Total.String())
	}

	l.amounts = a
	return nil
}

// checkScale rejects inputs carrying more fractional digits than their
// storage columns keep, so a stored line recomputes to the same amounts.
func (l *Line) checkScale() error {
	for _, in := range []struct {
		field string
		value decimal.Decimal
		scale int32
	}{
		{"quantity", l.quantity, types.QuantityScale},
		{"unitSellPrice", l.unitSellPrice, types.MoneyScale},
		{"discountAmount", l.discountAmount, types.DiscountScale},
		{"taxRate", l.snapshot.TaxRate, types.TaxRateScale},
	} {
		if !types.FitsScale(in.value, in.scale) {
			return apperror.NewValidation("too many decimal places").
				WithDetail("field", in.field).
				WithDetail("value", in.value.String()).
				WithDetail("scale", in.scale)
		}
	}
	return nil
}
