package inventory

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	"repairpos/internal/core/apperror"
	"repairpos/internal/core/id"
	"repairpos/internal/core/numerator"
	"repairpos/internal/core/tx"
	"repairpos/internal/core/validation"
	"repairpos/internal/domain"
	"repairpos/internal/domain/audit"
	"repairpos/pkg/logger"
)

const entityTransfer = "inventory_transfer"

var tracer = otel.Tracer("repairpos/inventory")

// TransferRequest is a request to move or adjust stock.
type TransferRequest struct {
	Type           TransferType `json:"type" validate:"required,oneof=location_transfer adjustment multistore_transfer"`
	ProductID      id.ID        `json:"productId" validate:"required"`
	FromLocationID *id.ID       `json:"fromLocationId"`
	ToLocationID   id.ID        `json:"toLocationId" validate:"required"`

	// Amount is signed for adjustments; paired types use its magnitude,
	// so math.MinInt64 is out of range
	Amount  int64    `json:"amount" validate:"ne=0,min=-9223372036854775807"`
	UserID  id.ID    `json:"userId" validate:"required"`
	Notes   string   `json:"notes" validate:"max=2000"`
	Serials []string `json:"serials" validate:"unique,dive,required,max=128"`
}

// Validate trims the serial numbers, then checks tags and the rules
// between fields. It runs before any ledger write.
func (r *TransferRequest) Validate() error {
	r.Serials = trimSerials(r.Serials)
	if err := validation.Struct(r); err != nil {
		return err
	}

	if r.Type.IsPaired() {
		if r.FromLocationID == nil {
			return apperror.NewValidation("transfer requires a source location").
				WithDetail("field", "fromLocationId")
		}
		if *r.FromLocationID == r.ToLocationID {
			return apperror.NewValidationCode(apperror.CodeSameLocation, "source and destination must differ").
				WithDetail("locationId", r.ToLocationID.String())
		}
		return nil
	}

	if r.FromLocationID != nil {
		return apperror.NewValidation("adjustment must not have a source location").
			WithDetail("field", "fromLocationId")
	}
	return nil
}

// TransferService creates transfers as single atomic ledger operations.
type TransferService struct {
	ledger    *Ledger
	transfers TransferRepository
	numerator numerator.Generator
	txManager tx.Manager
	audit     audit.Recorder
	cache     QuantityCache
	hooks     *domain.HookRegistry[*Transfer]
	metrics   transferMetrics
}

// NewTransferService creates a transfer service. A nil cache disables
// cache invalidation.
func NewTransferService(
	ledger *Ledger,
	transfers TransferRepository,
	gen numerator.Generator,
	txManager tx.Manager,
	recorder audit.Recorder,
	cache QuantityCache,
) *TransferService {
	if recorder == nil {
		recorder = audit.Nop{}
	}
	if cache == nil {
		cache = NopCache{}
	}
	return &TransferService{
		ledger:    ledger,
		transfers: transfers,
		numerator: gen,
		txManager: txManager,
		audit:     recorder,
		cache:     cache,
		hooks:     domain.NewHookRegistry[*Transfer](),
		metrics:   defaultTransferMetrics(),
	}
}

// WithMeter records transfer counters on m instead of the global meter.
func (s *TransferService) WithMeter(m metric.Meter) *TransferService {
	s.metrics = newTransferMetrics(m)
	return s
}

// Hooks exposes lifecycle hooks for created transfers.
func (s *TransferService) Hooks() *domain.HookRegistry[*Transfer] {
	return s.hooks
}

// Create validates the request and writes the increments, the transfer row
// and its log entry in one transaction. Nested in a caller's transaction it
// joins it.
func (s *TransferService) Create(ctx context.Context, req TransferRequest) (*Transfer, error) {
	ctx, span := tracer.Start(ctx, "inventory.CreateTransfer")
	defer span.End()
	span.SetAttributes(
		attribute.String("transfer.type", string(req.Type)),
		attribute.Int64("transfer.amount", req.Amount),
	)

	if err := req.Validate(); err != nil {
		return nil, err
	}

	var t *Transfer
	err := s.txManager.RunInTransaction(ctx, func(ctx context.Context) error {
		var err error
		t, err = s.create(ctx, req)
		return err
	})
	if err != nil {
		span.RecordError(err)
		return nil, err
	}

	logger.Info(ctx, "inventory transfer created",
		"id", t.ID,
		"number", t.Number,
		"type", t.Type,
		"product_id", t.ProductID,
	)
	return t, nil
}

func (s *TransferService) create(ctx context.Context, req TransferRequest) (*Transfer, error) {
	t := &Transfer{
		ID:           id.New(),
		Type:         req.Type,
		ProductID:    req.ProductID,
		ToLocationID: req.ToLocationID,
		UserID:       req.UserID,
		Notes:        req.Notes,
	}

	if req.Type.IsPaired() {
		n := abs(req.Amount)
		from, err := s.ledger.RecordIncrement(ctx, IncrementInput{
			ProductID:  req.ProductID,
			LocationID: *req.FromLocationID,
			Amount:     -n,
			Serials:    req.Serials,
			PairedWith: &req.ToLocationID,
		})
		if err != nil {
			return nil, err
		}
		to, err := s.ledger.RecordIncrement(ctx, IncrementInput{
			ProductID:  req.ProductID,
			LocationID: req.ToLocationID,
			Amount:     n,
			Serials:    req.Serials,
			PairedWith: req.FromLocationID,
		})
		if err != nil {
			return nil, err
		}
		t.FromLocationID = &from.LocationID
		t.FromIncrementID = &from.ID
		t.ToIncrementID = to.ID
	} else {
		to, err := s.ledger.RecordIncrement(ctx, IncrementInput{
			ProductID:  req.ProductID,
			LocationID: req.ToLocationID,
			Amount:     req.Amount,
			Serials:    req.Serials,
		})
		if err != nil {
			return nil, err
		}
		t.ToIncrementID = to.ID
	}

	number, err := s.numerator.GetNextNumber(ctx, numerator.LabelConfig(req.Type.LabelPrefix()), nil, time.Now())
	if err != nil {
		return nil, fmt.Errorf("generate transfer number: %w", err)
	}
	t.Number = number

	now := time.Now().UTC()
	t.CreatedAt, t.UpdatedAt = now, now
	if err := s.transfers.Create(ctx, t); err != nil {
		return nil, fmt.Errorf("create transfer: %w", err)
	}

	if err := s.hooks.Run(ctx, domain.AfterCreate, t); err != nil {
		return nil, err
	}

	entry := audit.NewEntry(ctx, entityTransfer, t.ID, audit.ActionCreate)
	entry.UserID = id.Ptr(req.UserID)
	entry.UserNote = req.Notes
	entry.SystemNote = describe(t, req.Amount)
	if err := s.audit.Record(ctx, entry); err != nil {
		return nil, fmt.Errorf("record transfer log: %w", err)
	}

	s.afterCommit(ctx, t, abs(req.Amount))
	return t, nil
}

// ReplaceAdjustment tombstones an adjustment and its increment and creates
// a new adjustment from req, in one transaction. Only adjustments can be
// replaced; paired transfers are corrected with a new transfer.
func (s *TransferService) ReplaceAdjustment(ctx context.Context, transferID id.ID, req TransferRequest) (*Transfer, error) {
	if req.Type != TypeAdjustment {
		return nil, apperror.NewValidation("replacement must be an adjustment").
			WithDetail("field", "type")
	}
	if err := req.Validate(); err != nil {
		return nil, err
	}

	var replacement *Transfer
	err := s.txManager.RunInTransaction(ctx, func(ctx context.Context) error {
		old, err := s.voidAdjustment(ctx, transferID, &req.ProductID)
		if err != nil {
			return err
		}

		replacement, err = s.create(ctx, req)
		if err != nil {
			return err
		}

		entry := audit.NewEntry(ctx, entityTransfer, old.ID, audit.ActionReplace)
		entry.UserID = id.Ptr(req.UserID)
		entry.SystemNote = fmt.Sprintf("%s replaced by %s", old.Number, replacement.Number)
		entry.Changes = map[string]any{"replacementId": replacement.ID.String()}
		return s.audit.Record(ctx, entry)
	})
	if err != nil {
		return nil, err
	}

	logger.Info(ctx, "adjustment replaced", "old_id", transferID, "new_id", replacement.ID)
	return replacement, nil
}

// RemoveAdjustment tombstones an adjustment and its increment.
func (s *TransferService) RemoveAdjustment(ctx context.Context, transferID id.ID) error {
	return s.txManager.RunInTransaction(ctx, func(ctx context.Context) error {
		old, err := s.voidAdjustment(ctx, transferID, nil)
		if err != nil {
			return err
		}
		entry := audit.NewEntry(ctx, entityTransfer, old.ID, audit.ActionDelete)
		entry.SystemNote = old.Number + " removed"
		return s.audit.Record(ctx, entry)
	})
}

func (s *TransferService) voidAdjustment(ctx context.Context, transferID id.ID, productID *id.ID) (*Transfer, error) {
	old, err := s.transfers.GetForUpdate(ctx, transferID)
	if err != nil {
		return nil, err
	}
	if old.Type != TypeAdjustment {
		return nil, apperror.NewState(apperror.CodeNotReplaceable, "Can only edit/remove inventory adjustments").
			WithDetail("transferId", old.ID.String())
	}
	if productID != nil && old.ProductID != *productID {
		return nil, apperror.NewState(apperror.CodeMismatchedProduct, "Mismatch of ProductID and Inventory Increment in request").
			WithDetail("transferId", old.ID.String())
	}

	if err := s.ledger.VoidIncrement(ctx, old.ToIncrementID); err != nil {
		return nil, err
	}

	old.MarkDeleted()
	old.UpdatedAt = time.Now().UTC()
	if err := s.transfers.Update(ctx, old); err != nil {
		return nil, err
	}

	s.afterCommit(ctx, old, 0)
	return old, nil
}

// Get retrieves a transfer.
func (s *TransferService) Get(ctx context.Context, transferID id.ID) (*Transfer, error) {
	return s.transfers.GetByID(ctx, transferID)
}

// ListByProduct returns the live transfers of a product, newest first.
func (s *TransferService) ListByProduct(ctx context.Context, productID id.ID) ([]*Transfer, error) {
	return s.transfers.ListByProduct(ctx, productID)
}

// afterCommit drops cached quantities and counts the movement once the
// transaction commits. Cache failures are logged; the ledger stays
// authoritative.
func (s *TransferService) afterCommit(ctx context.Context, t *Transfer, units int64) {
	tx.OnCommit(ctx, func(ctx context.Context) {
		s.metrics.record(ctx, t, units)
		if err := s.cache.InvalidateProduct(ctx, t.ProductID); err != nil {
			logger.Warn(ctx, "quantity cache invalidation failed", "product_id", t.ProductID, "error", err)
		}
		if err := s.hooks.Run(ctx, domain.AfterCommit, t); err != nil {
			logger.Warn(ctx, "after commit hook failed", "transfer_id", t.ID, "error", err)
		}
	})
}

func describe(t *Transfer, amount int64) string {
	if t.Type.IsPaired() {
		return fmt.Sprintf("%s: %d moved from %s to %s", t.Number, abs(amount), t.FromLocationID, t.ToLocationID)
	}
	return fmt.Sprintf("%s: adjusted by %+d at %s", t.Number, amount, t.ToLocationID)
}
