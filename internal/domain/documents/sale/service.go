package sale

import (
	"context"
	"fmt"
	"math"

	"github.com/shopspring/decimal"

	"repairpos/internal/core/apperror"
	"repairpos/internal/core/id"
	"repairpos/internal/core/numerator"
	"repairpos/internal/core/tx"
	"repairpos/internal/core/validation"
	"repairpos/internal/domain/audit"
	"repairpos/internal/domain/catalogs/location"
	"repairpos/internal/domain/catalogs/product"
	"repairpos/internal/domain/monetary"
	"repairpos/internal/domain/registers/inventory"
	"repairpos/pkg/logger"
)

const (
	entitySale   = "sale"
	numberPrefix = "S"
)

// Products resolves a product and its effective cost.
type Products interface {
	Resolve(ctx context.Context, productID id.ID) (product.Resolved, error)
}

// Locations resolves stock locations.
type Locations interface {
	Get(ctx context.Context, locationID id.ID) (*location.Location, error)
	GetDefault(ctx context.Context) (*location.Location, error)
	GetSystem(ctx context.Context, key location.SystemKey) (*location.Location, error)
}

// Snapshots captures the currency and tax for a new document.
type Snapshots interface {
	Capture(ctx context.Context, currencyOverride, taxOverride *id.ID) (monetary.Snapshot, error)
}

// Transfers moves stock.
type Transfers interface {
	Create(ctx context.Context, req inventory.TransferRequest) (*inventory.Transfer, error)
}

// Service provides business operations for sales.
type Service struct {
	repo      Repository
	products  Products
	locations Locations
	snapshots Snapshots
	transfers Transfers
	numerator numerator.Generator
	txManager tx.Manager
	audit     audit.Recorder
}

// NewService creates a sale service.
func NewService(
	repo Repository,
	products Products,
	locations Locations,
	snapshots Snapshots,
	transfers Transfers,
	gen numerator.Generator,
	txManager tx.Manager,
	recorder audit.Recorder,
) *Service {
	if recorder == nil {
		recorder = audit.Nop{}
	}
	return &Service{
		repo:      repo,
		products:  products,
		locations: locations,
		snapshots: snapshots,
		transfers: transfers,
		numerator: gen,
		txManager: txManager,
		audit:     recorder,
	}
}

// Create builds a sale with its lines and stores it.
// The snapshot is captured inside the transaction so the default currency
// and tax rows stay locked until the sale is written. A sale whose total
// would be negative is rejected before anything is stored.
func (s *Service) Create(ctx context.Context, in CreateInput) (*Sale, error) {
	if err := validation.Struct(in); err != nil {
		return nil, err
	}

	var doc *Sale
	err := s.txManager.RunInTransaction(ctx, func(ctx context.Context) error {
		loc, err := s.sellingLocation(ctx, in.LocationID)
		if err != nil {
			return err
		}
		snap, err := s.snapshots.Capture(ctx, in.CurrencyID, in.TaxID)
		if err != nil {
			return err
		}

		doc = NewSale(in.UserID, loc.ID, snap)
		doc.Comment = in.Comment
		for i, li := range in.Lines {
			line, err := s.buildLine(ctx, snap, li)
			if err != nil {
				return withLineNo(err, i+1)
			}
			doc.AppendLine(line)
		}
		doc.Recalculate()
		if err := doc.Validate(ctx); err != nil {
			return err
		}

		number, err := s.numerator.GetNextNumber(ctx, numerator.DefaultConfig(numberPrefix), nil, doc.Date)
		if err != nil {
			return fmt.Errorf("generate number: %w", err)
		}
		doc.Number = number

		if err := s.repo.Create(ctx, doc); err != nil {
			return fmt.Errorf("create sale: %w", err)
		}
		if err := s.repo.SaveLines(ctx, doc.ID, doc.Lines); err != nil {
			return fmt.Errorf("save lines: %w", err)
		}

		entry := audit.NewEntry(ctx, entitySale, doc.ID, audit.ActionCreate)
		entry.UserID = id.Ptr(in.UserID)
		entry.UserNote = in.Comment
		entry.SystemNote = fmt.Sprintf("%s created with %d lines", doc.Number, len(doc.Lines))
		return s.audit.Record(ctx, entry)
	})
	if err != nil {
		return nil, err
	}

	logger.Info(ctx, "sale created", "id", doc.ID, "number", doc.Number)
	return doc, nil
}

// GetByID retrieves a sale with its lines.
func (s *Service) GetByID(ctx context.Context, saleID id.ID) (*Sale, error) {
	return s.load(ctx, saleID, false)
}

// AddLine appends a line priced with the sale snapshot.
func (s *Service) AddLine(ctx context.Context, saleID id.ID, in LineInput) (*Sale, error) {
	if err := validation.Struct(in); err != nil {
		return nil, err
	}
	return s.mutate(ctx, saleID, "line added", func(ctx context.Context, doc *Sale) error {
		line, err := s.buildLine(ctx, doc.Snapshot(), in)
		if err != nil {
			return err
		}
		doc.AppendLine(line)
		return nil
	})
}

// UpdateLine changes the inputs of a line.
func (s *Service) UpdateLine(ctx context.Context, saleID, lineID id.ID, u LineUpdate) (*Sale, error) {
	return s.mutate(ctx, saleID, "line updated", func(_ context.Context, doc *Sale) error {
		line, err := doc.Line(lineID)
		if err != nil {
			return err
		}
		if err := u.apply(&line.Line); err != nil {
			return withLineNo(err, line.LineNo)
		}
		doc.Money.MarkStale()
		return nil
	})
}

// RemoveLine deletes a line.
func (s *Service) RemoveLine(ctx context.Context, saleID, lineID id.ID) (*Sale, error) {
	return s.mutate(ctx, saleID, "line removed", func(_ context.Context, doc *Sale) error {
		return doc.RemoveLine(lineID)
	})
}

// Complete moves the stock of every inventoried line from the sale
// location to the system sold location and freezes the sale. serials maps
// a line ID to the serial numbers sold on it. The moves and the sale update
// commit together.
func (s *Service) Complete(ctx context.Context, saleID, userID id.ID, serials map[id.ID][]string) (*Sale, error) {
	var doc *Sale
	err := s.txManager.RunInTransaction(ctx, func(ctx context.Context) error {
		var err error
		doc, err = s.load(ctx, saleID, true)
		if err != nil {
			return err
		}
		if err := doc.CanModify(); err != nil {
			return err
		}
		if err := checkStockLines(doc, serials); err != nil {
			return err
		}

		sold, err := s.locations.GetSystem(ctx, location.KeySold)
		if err != nil {
			return err
		}

		moved := 0
		for _, line := range doc.Lines {
			if !movesStock(&line) {
				continue
			}
			_, err := s.transfers.Create(ctx, inventory.TransferRequest{
				Type:           inventory.TypeTransfer,
				ProductID:      *line.Product().ProductID,
				FromLocationID: id.Ptr(doc.LocationID),
				ToLocationID:   sold.ID,
				Amount:         line.Quantity().IntPart(),
				UserID:         userID,
				Notes:          "Sale " + doc.Number,
				Serials:        serials[line.ID],
			})
			if err != nil {
				return withLineNo(err, line.LineNo)
			}
			moved++
		}

		doc.MarkCompleted()
		if err := s.repo.Update(ctx, doc); err != nil {
			return err
		}

		entry := audit.NewEntry(ctx, entitySale, doc.ID, audit.ActionUpdate)
		entry.UserID = id.Ptr(userID)
		entry.SystemNote = fmt.Sprintf("%s completed, %d lines moved to sold", doc.Number, moved)
		return s.audit.Record(ctx, entry)
	})
	if err != nil {
		return nil, err
	}

	logger.Info(ctx, "sale completed", "id", doc.ID, "number", doc.Number)
	return doc, nil
}

func (s *Service) mutate(ctx context.Context, saleID id.ID, note string, fn func(ctx context.Context, doc *Sale) error) (*Sale, error) {
	var doc *Sale
	err := s.txManager.RunInTransaction(ctx, func(ctx context.Context) error {
		var err error
		doc, err = s.load(ctx, saleID, true)
		if err != nil {
			return err
		}
		if err := doc.CanModify(); err != nil {
			return err
		}
		before, err := doc.Totals()
		if err != nil {
			return err
		}

		if err := fn(ctx, doc); err != nil {
			return err
		}
		doc.Recalculate()
		if err := doc.Validate(ctx); err != nil {
			return err
		}
		after, _ := doc.Totals()

		doc.Touch()
		if err := s.repo.Update(ctx, doc); err != nil {
			return err
		}
		if err := s.repo.SaveLines(ctx, doc.ID, doc.Lines); err != nil {
			return fmt.Errorf("save lines: %w", err)
		}

		entry := audit.NewEntry(ctx, entitySale, doc.ID, audit.ActionUpdate)
		entry.SystemNote = doc.Number + ": " + note
		entry.Changes = map[string]any{
			"total": map[string]string{"old": before.Total.String(), "new": after.Total.String()},
		}
		return s.audit.Record(ctx, entry)
	})
	if err != nil {
		return nil, err
	}
	return doc, nil
}

func (s *Service) load(ctx context.Context, saleID id.ID, forUpdate bool) (*Sale, error) {
	get := s.repo.GetByID
	if forUpdate {
		get = s.repo.GetForUpdate
	}
	doc, err := get(ctx, saleID)
	if err != nil {
		return nil, err
	}
	lines, err := s.repo.GetLines(ctx, saleID)
	if err != nil {
		return nil, fmt.Errorf("get lines: %w", err)
	}
	doc.Lines = lines
	// header totals always follow the lines
	doc.Recalculate()
	return doc, nil
}

func (s *Service) sellingLocation(ctx context.Context, locationID *id.ID) (*location.Location, error) {
	if locationID == nil {
		return s.locations.GetDefault(ctx)
	}
	loc, err := s.locations.Get(ctx, *locationID)
	if err != nil {
		return nil, err
	}
	if loc.SystemUseOnly {
		return nil, apperror.NewValidation("cannot sell from a system location").
			WithDetail("field", "locationId")
	}
	return loc, nil
}

func (s *Service) buildLine(ctx context.Context, snap monetary.Snapshot, in LineInput) (monetary.Line, error) {
	p, err := s.products.Resolve(ctx, in.ProductID)
	if err != nil {
		return monetary.Line{}, err
	}
	line, err := monetary.NewLine(p, snap)
	if err != nil {
		return monetary.Line{}, err
	}
	if err := in.apply(&line); err != nil {
		return monetary.Line{}, err
	}
	return line, nil
}

// maxMoveQuantity is the largest quantity a stock move can carry.
var maxMoveQuantity = decimal.NewFromInt(math.MaxInt64)

func movesStock(line *SaleLine) bool {
	ref := line.Product()
	return ref.Inventoried && ref.ProductID != nil
}

// checkStockLines runs before any stock moves: inventoried lines need whole
// quantities and serials may only be given for lines that move stock.
func checkStockLines(doc *Sale, serials map[id.ID][]string) error {
	moving := make(map[id.ID]bool, len(doc.Lines))
	for i := range doc.Lines {
		line := &doc.Lines[i]
		if !movesStock(line) {
			continue
		}
		if !line.Quantity().IsInteger() {
			return apperror.NewValidation("inventoried line quantity must be a whole number").
				WithDetail("lineNo", line.LineNo).
				WithDetail("quantity", line.Quantity().String())
		}
		if line.Quantity().GreaterThan(maxMoveQuantity) {
			return apperror.NewValidation("inventoried line quantity is too large").
				WithDetail("lineNo", line.LineNo).
				WithDetail("quantity", line.Quantity().String())
		}
		moving[line.ID] = true
	}
	for lineID := range serials {
		if !moving[lineID] {
			return apperror.NewValidation("serials given for a line that moves no stock").
				WithDetail("lineId", lineID.String())
		}
	}
	return nil
}

func withLineNo(err error, lineNo int) error {
	if appErr, ok := apperror.AsAppError(err); ok {
		return appErr.WithDetail("lineNo", lineNo)
	}
	return err
}
