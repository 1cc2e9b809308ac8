package register_repo

import (
	"context"

	"github.com/Masterminds/squirrel"

	"repairpos/internal/core/apperror"
	"repairpos/internal/core/id"
	"repairpos/internal/domain/registers/inventory"
	"repairpos/internal/infrastructure/storage/postgres"
)

var (
	_ inventory.TransferRepository = (*TransferRepo)(nil)

	transferCols = postgres.ExtractDBColumns[inventory.Transfer]()
)

// TransferRepo implements inventory.TransferRepository.
type TransferRepo struct {
	repo
}

// NewTransferRepo creates a transfer repository.
func NewTransferRepo(txManager *postgres.TxManager) *TransferRepo {
	return &TransferRepo{repo: newRepo(txManager)}
}

func (r *TransferRepo) Create(ctx context.Context, t *inventory.Transfer) error {
	q := r.builder.Insert(transfersTable).SetMap(postgres.StructToMap(t))
	_, err := r.exec(ctx, q, "inventory transfer", t.Number)
	return err
}

// Update rewrites the mutable part of a transfer: its increments, notes and
// tombstone.
func (r *TransferRepo) Update(ctx context.Context, t *inventory.Transfer) error {
	q := r.builder.Update(transfersTable).
		Set("from_increment_id", t.FromIncrementID).
		Set("to_increment_id", t.ToIncrementID).
		Set("notes", t.Notes).
		Set("updated_at", t.UpdatedAt).
		Set("deleted_at", t.DeletedAt).
		Where(squirrel.Eq{"id": t.ID})

	n, err := r.exec(ctx, q, "inventory transfer", t.ID)
	if err != nil {
		return err
	}
	if n == 0 {
		return apperror.NewNotFound("inventory transfer", t.ID)
	}
	return nil
}

func (r *TransferRepo) GetByID(ctx context.Context, transferID id.ID) (*inventory.Transfer, error) {
	return r.getOne(ctx, r.liveSelect().Where(squirrel.Eq{"id": transferID}), transferID)
}

func (r *TransferRepo) GetForUpdate(ctx context.Context, transferID id.ID) (*inventory.Transfer, error) {
	q := r.liveSelect().
		Where(squirrel.Eq{"id": transferID}).
		Suffix("FOR UPDATE")
	return r.getOne(ctx, q, transferID)
}

func (r *TransferRepo) ListByProduct(ctx context.Context, productID id.ID) ([]*inventory.Transfer, error) {
	q := r.liveSelect().
		Where(squirrel.Eq{"product_id": productID}).
		OrderBy("created_at DESC", "number DESC")

	var out []*inventory.Transfer
	if err := r.selectAll(ctx, &out, q, "inventory transfers"); err != nil {
		return nil, err
	}
	return out, nil
}

func (r *TransferRepo) liveSelect() squirrel.SelectBuilder {
	return r.builder.Select(transferCols...).
		From(transfersTable).
		Where(squirrel.Eq{"deleted_at": nil})
}

func (r *TransferRepo) getOne(ctx context.Context, q squirrel.SelectBuilder, key id.ID) (*inventory.Transfer, error) {
	var t inventory.Transfer
	if err := r.get(ctx, &t, q, "inventory transfer", key); err != nil {
		return nil, err
	}
	return &t, nil
}
