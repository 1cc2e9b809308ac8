// Package document_repo provides PostgreSQL implementations of document
// repositories.
package document_repo

import (
	"context"
	"fmt"

	"github.com/Masterminds/squirrel"
	"github.com/georgysavva/scany/v2/pgxscan"

	"repairpos/internal/core/apperror"
	"repairpos/internal/core/id"
	"repairpos/internal/domain/documents/sale"
	"repairpos/internal/infrastructure/storage/postgres"
)

const (
	salesTable     = "doc_sales"
	saleLinesTable = "doc_sale_lines"
)

var (
	_ sale.Repository = (*SaleRepo)(nil)

	saleCols     = postgres.ExtractDBColumns[sale.Record]()
	saleLineCols = postgres.ExtractDBColumns[sale.LineRecord]()
)

// SaleRepo implements sale.Repository. Lines are rewritten as a set on
// every save.
type SaleRepo struct {
	txManager *postgres.TxManager
	inserter  *postgres.BatchInserter
	builder   squirrel.StatementBuilderType
}

// NewSaleRepo creates a sale repository.
func NewSaleRepo(txManager *postgres.TxManager) *SaleRepo {
	return &SaleRepo{
		txManager: txManager,
		inserter:  postgres.NewBatchInserter(txManager),
		builder:   squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar),
	}
}

func (r *SaleRepo) Create(ctx context.Context, s *sale.Sale) error {
	rec, err := s.ToRecord()
	if err != nil {
		return err
	}

	sql, args, err := r.builder.Insert(salesTable).SetMap(postgres.StructToMap(rec)).ToSql()
	if err != nil {
		return fmt.Errorf("build insert: %w", err)
	}
	if _, err := r.txManager.GetQuerier(ctx).Exec(ctx, sql, args...); err != nil {
		return postgres.MapError(err, "sale", s.Number)
	}
	return nil
}

func (r *SaleRepo) Update(ctx context.Context, s *sale.Sale) error {
	q, err := r.updateQuery(s)
	if err != nil {
		return err
	}
	sql, args, err := q.ToSql()
	if err != nil {
		return fmt.Errorf("build update: %w", err)
	}

	tag, err := r.txManager.GetQuerier(ctx).Exec(ctx, sql, args...)
	if err != nil {
		return postgres.MapError(err, "sale", s.ID)
	}
	if tag.RowsAffected() == 0 {
		return apperror.NewConcurrentModification("sale", s.ID)
	}
	return nil
}

// updateQuery writes the header; the stored row must hold the previous
// version.
func (r *SaleRepo) updateQuery(s *sale.Sale) (squirrel.UpdateBuilder, error) {
	rec, err := s.ToRecord()
	if err != nil {
		return squirrel.UpdateBuilder{}, err
	}
	data := postgres.StructToMap(rec)
	delete(data, "id")
	delete(data, "created_at")

	return r.builder.Update(salesTable).
		SetMap(data).
		Where(squirrel.Eq{"id": s.ID, "version": s.StoredVersion()}), nil
}

func (r *SaleRepo) GetByID(ctx context.Context, saleID id.ID) (*sale.Sale, error) {
	return r.getOne(ctx, r.headerSelect(saleID), saleID)
}

func (r *SaleRepo) GetForUpdate(ctx context.Context, saleID id.ID) (*sale.Sale, error) {
	return r.getOne(ctx, r.headerSelect(saleID).Suffix("FOR UPDATE"), saleID)
}

func (r *SaleRepo) GetLines(ctx context.Context, saleID id.ID) ([]sale.SaleLine, error) {
	sql, args, err := r.builder.Select(saleLineCols...).
		From(saleLinesTable).
		Where(squirrel.Eq{"sale_id": saleID}).
		OrderBy("line_no").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	var recs []sale.LineRecord
	if err := pgxscan.Select(ctx, r.txManager.GetQuerier(ctx), &recs, sql, args...); err != nil {
		return nil, fmt.Errorf("get sale lines: %w", err)
	}
	return sale.LinesFromRecords(recs)
}

// SaveLines deletes the stored lines and copies the new set in.
func (r *SaleRepo) SaveLines(ctx context.Context, saleID id.ID, lines []sale.SaleLine) error {
	sql, args, err := r.builder.Delete(saleLinesTable).
		Where(squirrel.Eq{"sale_id": saleID}).
		ToSql()
	if err != nil {
		return fmt.Errorf("build delete: %w", err)
	}
	if _, err := r.txManager.GetQuerier(ctx).Exec(ctx, sql, args...); err != nil {
		return postgres.MapError(err, "sale line", saleID)
	}

	cols, rows := postgres.StructRows(sale.ToLineRecords(saleID, lines))
	return r.inserter.Insert(ctx, saleLinesTable, cols, rows)
}

func (r *SaleRepo) headerSelect(saleID id.ID) squirrel.SelectBuilder {
	return r.builder.Select(saleCols...).
		From(salesTable).
		Where(squirrel.Eq{"id": saleID, "deleted_at": nil})
}

func (r *SaleRepo) getOne(ctx context.Context, q squirrel.SelectBuilder, saleID id.ID) (*sale.Sale, error) {
	sql, args, err := q.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	var rec sale.Record
	if err := pgxscan.Get(ctx, r.txManager.GetQuerier(ctx), &rec, sql, args...); err != nil {
		return nil, postgres.MapError(err, "sale", saleID)
	}
	return sale.FromRecord(rec), nil
}
