package inventory

import (
	"context"
	"database/sql"
	"fmt"
)

type postgresRepo struct{ db *sql.DB }

func NewPostgresRepository(db *sql.DB) Repository { return &postgresRepo{db: db} }

// Reserve applies one conditional decrement per line inside a single
// transaction. The `stock >= quantity` predicate makes each decrement a
// compare-and-swap at the row level; a zero-row update means insufficient
// stock and rolls back the whole batch.
func (r *postgresRepo) Reserve(ctx context.Context, lines []Line) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	for _, line := range lines {
		res, err := tx.ExecContext(ctx, `
			UPDATE products SET stock = stock - $1, updated_at = NOW()
			WHERE id = $2 AND stock >= $1`,
			line.Quantity, line.ProductID)
		if err != nil {
			return fmt.Errorf("reserve %s: %w", line.ProductID, err)
		}
		affected, err := res.RowsAffected()
		if err != nil {
			return err
		}
		if affected == 0 {
			issue, err := r.shortage(ctx, line)
			if err != nil {
				return err
			}
			return &StockConflictError{Issues: []StockIssue{issue}}
		}
	}
	return tx.Commit()
}

// Release flips the order's stock_reserved flag and re-increments stock in
// one transaction. When the flag is already false the whole operation is
// skipped, so a replayed failure webhook never double-credits stock.
func (r *postgresRepo) Release(ctx context.Context, orderID string, lines []Line) (bool, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return false, err
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx, `
		UPDATE orders SET stock_reserved = false, updated_at = NOW()
		WHERE id = $1 AND stock_reserved = true`, orderID)
	if err != nil {
		return false, fmt.Errorf("clear stock_reserved: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	if affected == 0 {
		return false, nil // already released
	}

	for _, line := range lines {
		if _, err := tx.ExecContext(ctx, `
			UPDATE products SET stock = stock + $1, updated_at = NOW()
			WHERE id = $2`,
			line.Quantity, line.ProductID); err != nil {
			return false, fmt.Errorf("release %s: %w", line.ProductID, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return false, err
	}
	return true, nil
}

// shortage reads current stock outside the aborted transaction to report what
// was actually available.
func (r *postgresRepo) shortage(ctx context.Context, line Line) (StockIssue, error) {
	issue := StockIssue{ProductID: line.ProductID, Requested: line.Quantity}
	err := r.db.QueryRowContext(ctx,
		`SELECT name, stock FROM products WHERE id = $1`, line.ProductID).
		Scan(&issue.ProductName, &issue.Available)
	if err == sql.ErrNoRows {
		return issue, nil
	}
	return issue, err
}
