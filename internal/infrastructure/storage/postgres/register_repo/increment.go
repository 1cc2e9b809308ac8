// Package register_repo provides PostgreSQL implementations of the
// inventory ledger repositories.
package register_repo

import (
	"context"
	"fmt"
	"time"

	"github.com/Masterminds/squirrel"
	"github.com/georgysavva/scany/v2/pgxscan"

	"repairpos/internal/core/apperror"
	"repairpos/internal/core/id"
	"repairpos/internal/domain/registers/inventory"
	"repairpos/internal/infrastructure/storage/postgres"
)

const (
	incrementsTable    = "reg_inventory_increments"
	incrementSerials   = "reg_increment_serials"
	serialNumbersTable = "reg_serial_numbers"
	transfersTable     = "doc_inventory_transfers"
)

// repo carries the pieces every register repository needs.
type repo struct {
	txManager *postgres.TxManager
	builder   squirrel.StatementBuilderType
}

func newRepo(txManager *postgres.TxManager) repo {
	return repo{
		txManager: txManager,
		builder:   squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar),
	}
}

func (r repo) exec(ctx context.Context, q squirrel.Sqlizer, entity string, key any) (int64, error) {
	sql, args, err := q.ToSql()
	if err != nil {
		return 0, fmt.Errorf("build %s statement: %w", entity, err)
	}
	tag, err := r.txManager.GetQuerier(ctx).Exec(ctx, sql, args...)
	if err != nil {
		return 0, postgres.MapError(err, entity, key)
	}
	return tag.RowsAffected(), nil
}

func (r repo) get(ctx context.Context, dst any, q squirrel.Sqlizer, entity string, key any) error {
	sql, args, err := q.ToSql()
	if err != nil {
		return fmt.Errorf("build %s query: %w", entity, err)
	}
	if err := pgxscan.Get(ctx, r.txManager.GetQuerier(ctx), dst, sql, args...); err != nil {
		return postgres.MapError(err, entity, key)
	}
	return nil
}

func (r repo) selectAll(ctx context.Context, dst any, q squirrel.Sqlizer, entity string) error {
	sql, args, err := q.ToSql()
	if err != nil {
		return fmt.Errorf("build %s query: %w", entity, err)
	}
	if err := pgxscan.Select(ctx, r.txManager.GetQuerier(ctx), dst, sql, args...); err != nil {
		return fmt.Errorf("list %s: %w", entity, err)
	}
	return nil
}

var (
	_ inventory.IncrementRepository = (*IncrementRepo)(nil)

	incrementCols = postgres.ExtractDBColumns[inventory.Increment]()
)

// IncrementRepo implements inventory.IncrementRepository.
type IncrementRepo struct {
	repo
}

// NewIncrementRepo creates an increment repository.
func NewIncrementRepo(txManager *postgres.TxManager) *IncrementRepo {
	return &IncrementRepo{repo: newRepo(txManager)}
}

func (r *IncrementRepo) Create(ctx context.Context, inc *inventory.Increment) error {
	q := r.builder.Insert(incrementsTable).SetMap(postgres.StructToMap(inc))
	_, err := r.exec(ctx, q, "inventory increment", inc.ID)
	return err
}

func (r *IncrementRepo) GetForUpdate(ctx context.Context, incrementID id.ID) (*inventory.Increment, error) {
	q := r.builder.Select(incrementCols...).
		From(incrementsTable).
		Where(squirrel.Eq{"id": incrementID, "deleted_at": nil}).
		Suffix("FOR UPDATE")

	var inc inventory.Increment
	if err := r.get(ctx, &inc, q, "inventory increment", incrementID); err != nil {
		return nil, err
	}
	return &inc, nil
}

func (r *IncrementRepo) MarkDeleted(ctx context.Context, incrementID id.ID, at time.Time) error {
	q := r.builder.Update(incrementsTable).
		Set("deleted_at", at).
		Where(squirrel.Eq{"id": incrementID})

	n, err := r.exec(ctx, q, "inventory increment", incrementID)
	if err != nil {
		return err
	}
	if n == 0 {
		return apperror.NewNotFound("inventory increment", incrementID)
	}
	return nil
}

func (r *IncrementRepo) SumQuantity(ctx context.Context, productID, locationID id.ID) (int64, error) {
	q := sumQuery(r.builder, productID).
		Where(squirrel.Eq{"location_id": locationID})

	var sum int64
	if err := r.get(ctx, &sum, q, "inventory quantity", productID); err != nil {
		return 0, err
	}
	return sum, nil
}

type locationSum struct {
	LocationID id.ID `db:"location_id"`
	Quantity   int64 `db:"quantity"`
}

func (r *IncrementRepo) SumByProduct(ctx context.Context, productID id.ID) (map[id.ID]int64, error) {
	q := r.builder.Select("location_id", "SUM(amount)::bigint AS quantity").
		From(incrementsTable).
		Where(squirrel.Eq{"product_id": productID, "deleted_at": nil}).
		GroupBy("location_id")

	var rows []locationSum
	if err := r.selectAll(ctx, &rows, q, "inventory quantities"); err != nil {
		return nil, err
	}
	out := make(map[id.ID]int64, len(rows))
	for _, row := range rows {
		out[row.LocationID] = row.Quantity
	}
	return out, nil
}

// ProductsChangedSince also reports products whose increments were voided
// after since.
func (r *IncrementRepo) ProductsChangedSince(ctx context.Context, since time.Time) ([]id.ID, error) {
	q := r.builder.Select("DISTINCT product_id").
		From(incrementsTable).
		Where(squirrel.Or{
			squirrel.Gt{"created_at": since},
			squirrel.Gt{"deleted_at": since},
		})

	var ids []id.ID
	if err := r.selectAll(ctx, &ids, q, "changed products"); err != nil {
		return nil, err
	}
	return ids, nil
}

func (r *IncrementRepo) ListBySerial(ctx context.Context, serialID id.ID) ([]inventory.Increment, error) {
	cols := make([]string, len(incrementCols))
	for i, c := range incrementCols {
		cols[i] = "i." + c
	}
	q := r.builder.Select(cols...).
		From(incrementsTable + " i").
		Join(incrementSerials + " s ON s.increment_id = i.id").
		Where(squirrel.Eq{"s.serial_id": serialID}).
		OrderBy("i.created_at", "i.id")

	var out []inventory.Increment
	if err := r.selectAll(ctx, &out, q, "serial increments"); err != nil {
		return nil, err
	}
	return out, nil
}

func sumQuery(b squirrel.StatementBuilderType, productID id.ID) squirrel.SelectBuilder {
	return b.Select("COALESCE(SUM(amount), 0)::bigint").
		From(incrementsTable).
		Where(squirrel.Eq{"product_id": productID, "deleted_at": nil})
}
