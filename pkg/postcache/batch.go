package postcache

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
)

// MultiRowBatchSize is the number of rows per multi-row INSERT statement.
// Kept low enough that rows*columns stays under SQLite's historical limit of
// 999 bound parameters.
const MultiRowBatchSize = 200

// DeleteBatchSize is the number of keys per DELETE ... IN (...) statement.
const DeleteBatchSize = 500

// rowBatch accumulates rows for one table as a flat argument slice.
type rowBatch struct {
	table string
	cols  []string
	args  []any
}

func newRowBatch(table string, cols ...string) *rowBatch {
	return &rowBatch{table: table, cols: cols}
}

// add appends one row. vals must match cols in length and order.
func (b *rowBatch) add(vals ...any) {
	b.args = append(b.args, vals...)
}

// rows returns the number of rows in the batch.
func (b *rowBatch) rows() int {
	return len(b.args) / len(b.cols)
}

// buildInsertSQL builds an INSERT OR REPLACE statement for n rows.
func buildInsertSQL(table string, cols []string, n int) string {
	oneRowPlaceholders := make([]string, len(cols))
	for i := range oneRowPlaceholders {
		oneRowPlaceholders[i] = "?"
	}
	oneRow := "(" + strings.Join(oneRowPlaceholders, ", ") + ")"

	rows := make([]string, n)
	for i := range rows {
		rows[i] = oneRow
	}

	return fmt.Sprintf("INSERT OR REPLACE INTO %s (%s) VALUES %s",
		table, strings.Join(cols, ", "), strings.Join(rows, ", "))
}

// buildDeleteSQL builds a DELETE matching n keys on col.
func buildDeleteSQL(table, col string, n int) string {
	return fmt.Sprintf("DELETE FROM %s WHERE %s IN (%s)",
		table, col, strings.TrimSuffix(strings.Repeat("?, ", n), ", "))
}

// insertRows writes b inside tx. Full batches share one prepared statement;
// the remainder goes out as a single shorter statement.
func insertRows(ctx context.Context, tx *sql.Tx, b *rowBatch) error {
	n := b.rows()
	if n == 0 {
		return nil
	}
	width := len(b.cols)

	i := 0
	if n >= MultiRowBatchSize {
		stmt, err := tx.PrepareContext(ctx, buildInsertSQL(b.table, b.cols, MultiRowBatchSize))
		if err != nil {
			return fmt.Errorf("prepare %s insert: %w", b.table, err)
		}
		defer stmt.Close()

		for ; i+MultiRowBatchSize <= n; i += MultiRowBatchSize {
			if _, err := stmt.ExecContext(ctx, b.args[i*width:(i+MultiRowBatchSize)*width]...); err != nil {
				return fmt.Errorf("insert %s batch at %d: %w", b.table, i, err)
			}
		}
	}

	if rem := n - i; rem > 0 {
		if _, err := tx.ExecContext(ctx, buildInsertSQL(b.table, b.cols, rem), b.args[i*width:]...); err != nil {
			return fmt.Errorf("insert %s rows at %d: %w", b.table, i, err)
		}
	}
	return nil
}

// deleteWhereIn deletes every row of table whose col is one of keys and
// returns the number of rows removed.
func deleteWhereIn(ctx context.Context, tx *sql.Tx, table, col string, keys []string) (int64, error) {
	var total int64
	for start := 0; start < len(keys); start += DeleteBatchSize {
		end := min(start+DeleteBatchSize, len(keys))
		args := make([]any, 0, end-start)
		for _, k := range keys[start:end] {
			args = append(args, k)
		}

		res, err := tx.ExecContext(ctx, buildDeleteSQL(table, col, len(args)), args...)
		if err != nil {
			return total, fmt.Errorf("delete from %s: %w", table, err)
		}
		n, err := res.RowsAffected()
		if err != nil {
			return total, fmt.Errorf("delete from %s: rows affected: %w", table, err)
		}
		total += n
	}
	return total, nil
}
