package inventory

import (
	"context"
	"fmt"
	"math"
	"strings"
	"time"

	"repairpos/internal/core/apperror"
	"repairpos/internal/core/id"
	"repairpos/internal/core/tx"
	"repairpos/internal/domain/catalogs/location"
	"repairpos/internal/domain/catalogs/product"
	"repairpos/pkg/logger"
)

// Products loads product flags.
type Products interface {
	GetByID(ctx context.Context, id id.ID) (*product.Product, error)
}

// Locations loads locations.
type Locations interface {
	Get(ctx context.Context, id id.ID) (*location.Location, error)
}

// IncrementInput describes one ledger write.
type IncrementInput struct {
	ProductID  id.ID
	LocationID id.ID
	Amount     int64
	Serials    []string

	// PairedWith is the other location of the same transfer. Nil for
	// adjustments: a negative unpaired increment dissolves its serials.
	PairedWith *id.ID
}

// Ledger records increments and answers quantity queries.
type Ledger struct {
	increments IncrementRepository
	serials    SerialRepository
	products   Products
	locations  Locations
	txManager  tx.Manager
}

// NewLedger creates a ledger.
func NewLedger(
	increments IncrementRepository,
	serials SerialRepository,
	products Products,
	locations Locations,
	txManager tx.Manager,
) *Ledger {
	return &Ledger{
		increments: increments,
		serials:    serials,
		products:   products,
		locations:  locations,
		txManager:  txManager,
	}
}

// CurrentQuantity returns the quantity of a product at a location.
func (l *Ledger) CurrentQuantity(ctx context.Context, productID, locationID id.ID) (int64, error) {
	return l.increments.SumQuantity(ctx, productID, locationID)
}

// QuantitiesByProduct returns the quantity per location of a product.
func (l *Ledger) QuantitiesByProduct(ctx context.Context, productID id.ID) (map[id.ID]int64, error) {
	return l.increments.SumByProduct(ctx, productID)
}

// RecordIncrement appends an increment and applies the serial policy:
//   - a negative amount requires each serial to be at this location;
//     without a paired location the serial is dissolved
//   - a positive amount creates new serials, revives dissolved ones, or
//     moves serials that are at the paired source location
//
// Serials moved to the system "sold" location are flagged sold.
func (l *Ledger) RecordIncrement(ctx context.Context, in IncrementInput) (*Increment, error) {
	if in.Amount == 0 {
		return nil, apperror.NewValidationCode(apperror.CodeNonPositiveQuantity, "increment amount must not be zero").
			WithDetail("field", "amount")
	}
	if in.Amount == math.MinInt64 {
		return nil, apperror.NewValidation("increment amount is out of range").
			WithDetail("field", "amount")
	}
	in.Serials = trimSerials(in.Serials)

	p, err := l.products.GetByID(ctx, in.ProductID)
	if err != nil {
		return nil, err
	}
	if !p.Inventoried {
		return nil, apperror.NewState(apperror.CodeNotInventoried,
			"Product is not inventoried, inventory tracking is not possible until enabled.").
			WithDetail("productId", p.ID.String())
	}
	if err := checkSerials(p, in.Amount, in.Serials); err != nil {
		return nil, err
	}

	loc, err := l.locations.Get(ctx, in.LocationID)
	if err != nil {
		return nil, err
	}

	var inc *Increment
	err = l.txManager.RunInTransaction(ctx, func(ctx context.Context) error {
		now := time.Now().UTC()
		inc = &Increment{
			ID:         id.New(),
			ProductID:  p.ID,
			LocationID: loc.ID,
			Amount:     in.Amount,
			CreatedAt:  now,
		}
		if err := l.increments.Create(ctx, inc); err != nil {
			return fmt.Errorf("create increment: %w", err)
		}
		if len(in.Serials) == 0 {
			return nil
		}
		return l.applySerials(ctx, inc, loc, in, now)
	})
	if err != nil {
		return nil, err
	}

	logger.Debug(ctx, "increment recorded",
		"product_id", inc.ProductID,
		"location_id", inc.LocationID,
		"amount", inc.Amount,
	)
	return inc, nil
}

func checkSerials(p *product.Product, amount int64, serials []string) error {
	if !p.Serialized {
		if len(serials) > 0 {
			return apperror.NewValidationCode(apperror.CodeSerialCountMismatch, "product is not serialized").
				WithDetail("productId", p.ID.String())
		}
		return nil
	}

	if int64(len(serials)) != abs(amount) {
		return apperror.NewValidationCode(apperror.CodeSerialCountMismatch, "serial count must equal amount").
			WithDetail("amount", abs(amount)).
			WithDetail("serials", len(serials))
	}

	seen := make(map[string]struct{}, len(serials))
	for _, s := range serials {
		if s == "" {
			return apperror.NewValidation("serial number must not be empty").
				WithDetail("field", "serials")
		}
		if _, dup := seen[s]; dup {
			return apperror.NewValidation("duplicate serial number").
				WithDetail("serial", s)
		}
		seen[s] = struct{}{}
	}
	return nil
}

func (l *Ledger) applySerials(ctx context.Context, inc *Increment, loc *location.Location, in IncrementInput, now time.Time) error {
	existing, err := l.serials.LockByNumbers(ctx, inc.ProductID, in.Serials)
	if err != nil {
		return fmt.Errorf("lock serials: %w", err)
	}

	ids := make([]id.ID, 0, len(in.Serials))
	for _, number := range in.Serials {
		sn := existing[number]

		if inc.Amount < 0 {
			if sn == nil || sn.IsDeleted() || sn.LocationID != loc.ID {
				return serialMismatch(number, loc.ID)
			}
			if in.PairedWith == nil {
				sn.MarkDeleted()
				sn.UpdatedAt = now
				if err := l.serials.Update(ctx, sn); err != nil {
					return err
				}
			}
			ids = append(ids, sn.ID)
			continue
		}

		switch {
		case sn == nil:
			sn = &SerialNumber{
				ID:           id.New(),
				SerialNumber: number,
				ProductID:    inc.ProductID,
				LocationID:   loc.ID,
				IsSold:       loc.Is(location.KeySold),
				CreatedAt:    now,
				UpdatedAt:    now,
			}
			if err := l.serials.Create(ctx, sn); err != nil {
				return err
			}
		case sn.IsDeleted() || (in.PairedWith != nil && sn.LocationID == *in.PairedWith):
			sn.Revive()
			sn.LocationID = loc.ID
			sn.IsSold = loc.Is(location.KeySold)
			sn.UpdatedAt = now
			if err := l.serials.Update(ctx, sn); err != nil {
				return err
			}
		default:
			return apperror.NewState(apperror.CodeSerialAlreadyTracked, "serial number is already tracked at another location").
				WithDetail("serial", number).
				WithDetail("locationId", sn.LocationID.String())
		}
		ids = append(ids, sn.ID)
	}

	return l.serials.Link(ctx, inc.ID, ids)
}

// VoidIncrement tombstones an increment so it no longer counts. Its serial
// effects are reverted: serials it brought in are dissolved, serials it
// dissolved are revived. A serial that has moved on since blocks the void.
func (l *Ledger) VoidIncrement(ctx context.Context, incrementID id.ID) error {
	return l.txManager.RunInTransaction(ctx, func(ctx context.Context) error {
		inc, err := l.increments.GetForUpdate(ctx, incrementID)
		if err != nil {
			return err
		}

		linked, err := l.serials.ListByIncrement(ctx, inc.ID)
		if err != nil {
			return fmt.Errorf("list serials: %w", err)
		}

		now := time.Now().UTC()
		for _, sn := range linked {
			if sn.LocationID != inc.LocationID {
				return serialMismatch(sn.SerialNumber, inc.LocationID)
			}
			if inc.Amount > 0 {
				if sn.IsDeleted() {
					return serialMismatch(sn.SerialNumber, inc.LocationID)
				}
				sn.MarkDeleted()
			} else {
				if !sn.IsDeleted() {
					continue
				}
				sn.Revive()
			}
			sn.UpdatedAt = now
			if err := l.serials.Update(ctx, sn); err != nil {
				return err
			}
		}

		return l.increments.MarkDeleted(ctx, inc.ID, now)
	})
}

// FindSerial returns a serial of a product, dissolved ones included.
func (l *Ledger) FindSerial(ctx context.Context, productID id.ID, number string) (*SerialNumber, error) {
	return l.serials.Find(ctx, productID, number)
}

// SerialHistory returns every increment that touched a serial, oldest first.
func (l *Ledger) SerialHistory(ctx context.Context, productID id.ID, number string) ([]Increment, error) {
	sn, err := l.serials.Find(ctx, productID, number)
	if err != nil {
		return nil, err
	}
	return l.increments.ListBySerial(ctx, sn.ID)
}

func serialMismatch(number string, locationID id.ID) error {
	return apperror.NewState(apperror.CodeSerialLocationMismatch, "serial number is not at the location").
		WithDetail("serial", number).
		WithDetail("locationId", locationID.String())
}

// trimSerials returns a copy of serials with surrounding spaces removed.
func trimSerials(serials []string) []string {
	if serials == nil {
		return nil
	}
	out := make([]string, len(serials))
	for i, sn := range serials {
		out[i] = strings.TrimSpace(sn)
	}
	return out
}

func abs(n int64) int64 {
	if n < 0 {
		return -n
	}
	return n
}
