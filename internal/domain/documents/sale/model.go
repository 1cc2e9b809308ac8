// Package sale provides the Sale document: a monetary document whose lines
// share one currency/tax snapshot and which moves stock to the sold
// location when completed.
package sale

import (
	"context"

	"github.com/shopspring/decimal"

	"repairpos/internal/core/apperror"
	"repairpos/internal/core/entity"
	"repairpos/internal/core/id"
	"repairpos/internal/domain/monetary"
)

// Sale is a sale document.
type Sale struct {
	entity.Document

	// LocationID is where sold stock leaves from
	LocationID id.ID `db:"location_id" json:"locationId"`

	Money monetary.Document `db:"-" json:"-"`

	Lines []SaleLine `db:"-" json:"lines"`
}

// SaleLine is one line of a sale.
type SaleLine struct {
	ID     id.ID `json:"lineId"`
	LineNo int   `json:"lineNo"`
	monetary.Line
}

// NewSale creates an empty sale priced with snap.
func NewSale(createdBy, locationID id.ID, snap monetary.Snapshot) *Sale {
	return &Sale{
		Document:   entity.NewDocument(createdBy),
		LocationID: locationID,
		Money:      monetary.NewDocument(snap),
	}
}

// Snapshot returns the currency and tax the sale is priced with.
func (s *Sale) Snapshot() monetary.Snapshot { return s.Money.Snapshot() }

// Totals returns the document totals.
func (s *Sale) Totals() (monetary.Totals, error) { return s.Money.Totals() }

// AppendLine adds a line and marks the totals stale.
func (s *Sale) AppendLine(line monetary.Line) *SaleLine {
	s.Lines = append(s.Lines, SaleLine{
		ID:     id.New(),
		LineNo: len(s.Lines) + 1,
		Line:   line,
	})
	s.Money.MarkStale()
	return &s.Lines[len(s.Lines)-1]
}

// Line finds a line by ID.
func (s *Sale) Line(lineID id.ID) (*SaleLine, error) {
	for i := range s.Lines {
		if s.Lines[i].ID == lineID {
			return &s.Lines[i], nil
		}
	}
	return nil, apperror.NewNotFound("sale line", lineID)
}

// RemoveLine drops a line and renumbers the rest.
func (s *Sale) RemoveLine(lineID id.ID) error {
	for i := range s.Lines {
		if s.Lines[i].ID != lineID {
			continue
		}
		s.Lines = append(s.Lines[:i], s.Lines[i+1:]...)
		for j := range s.Lines {
			s.Lines[j].LineNo = j + 1
		}
		s.Money.MarkStale()
		return nil
	}
	return apperror.NewNotFound("sale line", lineID)
}

// Recalculate refreshes the totals from the current lines.
func (s *Sale) Recalculate() {
	lines := make([]monetary.Line, len(s.Lines))
	for i := range s.Lines {
		lines[i] = s.Lines[i].Line
	}
	s.Money.RecomputeTotals(lines)
}

// Validate implements entity.Validatable.
func (s *Sale) Validate(ctx context.Context) error {
	if err := s.Document.Validate(ctx); err != nil {
		return err
	}
	if id.IsNil(s.LocationID) {
		return apperror.NewValidation("location is required").
			WithDetail("field", "locationId")
	}
	return s.Money.Validate()
}

// LineInput describes a line to add.
type LineInput struct {
	ProductID id.ID `json:"productId" validate:"required"`

	// Nil quantity means one unit, nil price means the product sell price
	Quantity      *decimal.Decimal `json:"quantity,omitempty"`
	UnitSellPrice *decimal.Decimal `json:"unitSellPrice,omitempty"`

	DiscountIsPercentage bool             `json:"unitDiscountIsPercentage"`
	DiscountAmount       *decimal.Decimal `json:"unitDiscountAmount,omitempty"`
}

// LineUpdate holds the line inputs to change. Nil fields stay as they are.
type LineUpdate struct {
	Quantity      *decimal.Decimal `json:"quantity,omitempty"`
	UnitSellPrice *decimal.Decimal `json:"unitSellPrice,omitempty"`
	Discount      *Discount        `json:"discount,omitempty"`
}

// Discount is a discount setting.
type Discount struct {
	IsPercentage bool            `json:"isPercentage"`
	Amount       decimal.Decimal `json:"amount"`
}

// CreateInput describes a new sale.
type CreateInput struct {
	// Nil location means the default location
	LocationID *id.ID `json:"locationId,omitempty"`
	CurrencyID *id.ID `json:"currencyId,omitempty"`
	TaxID      *id.ID `json:"taxId,omitempty"`

	UserID  id.ID       `json:"userId" validate:"required"`
	Comment string      `json:"comment" validate:"max=2000"`
	Lines   []LineInput `json:"lines" validate:"dive"`
}

func (in LineInput) apply(l *monetary.Line) error {
	next := l.Inputs()
	if in.Quantity != nil {
		next.Quantity = *in.Quantity
	}
	if in.UnitSellPrice != nil {
		next.UnitSellPrice = *in.UnitSellPrice
	}
	if in.DiscountAmount != nil {
		next.DiscountIsPercentage = in.DiscountIsPercentage
		next.DiscountAmount = *in.DiscountAmount
	}
	return l.SetInputs(next)
}

func (u LineUpdate) apply(l *monetary.Line) error {
	next := l.Inputs()
	if u.Quantity != nil {
		next.Quantity = *u.Quantity
	}
	if u.UnitSellPrice != nil {
		next.UnitSellPrice = *u.UnitSellPrice
	}
	if u.Discount != nil {
		next.DiscountIsPercentage = u.Discount.IsPercentage
		next.DiscountAmount = u.Discount.Amount
	}
	return l.SetInputs(next)
}
