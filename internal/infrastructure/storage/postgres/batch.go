package postgres

import (
	"context"
	"fmt"

	"github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5"
)

// BatchInserter bulk-inserts rows with the COPY protocol. COPY runs inside
// the transaction in ctx; outside one Insert falls back to a multi-row
// INSERT.
type BatchInserter struct {
	txManager *TxManager
}

// NewBatchInserter creates a new batch inserter.
func NewBatchInserter(txManager *TxManager) *BatchInserter {
	return &BatchInserter{txManager: txManager}
}

// CopyFromSlice performs a COPY of rows. Requires a transaction.
func (b *BatchInserter) CopyFromSlice(ctx context.Context, table string, columns []string, rows [][]any) (int64, error) {
	tx := b.txManager.GetTx(ctx)
	if tx == nil {
		return 0, fmt.Errorf("CopyFromSlice requires transaction context")
	}
	return tx.CopyFrom(ctx, pgx.Identifier{table}, columns, pgx.CopyFromRows(rows))
}

// Insert stores rows, using COPY when ctx carries a transaction.
func (b *BatchInserter) Insert(ctx context.Context, table string, columns []string, rows [][]any) error {
	if len(rows) == 0 {
		return nil
	}

	if b.txManager.GetTx(ctx) != nil {
		if _, err := b.CopyFromSlice(ctx, table, columns, rows); err != nil {
			return fmt.Errorf("copy into %s: %w", table, err)
		}
		return nil
	}

	sql, args, err := InsertRowsQuery(table, columns, rows).ToSql()
	if err != nil {
		return fmt.Errorf("build insert: %w", err)
	}
	if _, err := b.txManager.GetQuerier(ctx).Exec(ctx, sql, args...); err != nil {
		return fmt.Errorf("insert into %s: %w", table, err)
	}
	return nil
}

// InsertRowsQuery builds a multi-row INSERT.
func InsertRowsQuery(table string, columns []string, rows [][]any) squirrel.InsertBuilder {
	q := squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar).
		Insert(table).
		Columns(columns...)
	for _, row := range rows {
		q = q.Values(row...)
	}
	return q
}

// StructRows flattens items into COPY rows ordered like ExtractDBColumns[T].
func StructRows[T any](items []T) ([]string, [][]any) {
	columns := ExtractDBColumns[T]()
	rows := make([][]any, 0, len(items))
	for i := range items {
		values := StructToMap(&items[i])
		row := make([]any, len(columns))
		for j, col := range columns {
			row[j] = values[col]
		}
		rows = append(rows, row)
	}
	return columns, rows
}
