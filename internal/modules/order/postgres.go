package order

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
)

type postgresRepo struct{ db *sql.DB }

func NewPostgresRepository(db *sql.DB) Repository { return &postgresRepo{db: db} }

const orderColumns = `id, gateway_order_id, buyer_id, buyer_email,
	subtotal, tax, shipping, total, status, payment_status, stock_reserved,
	request_hash, gateway_payment_id, captured_amount, failure_code, failure_reason,
	created_at, updated_at`

// Create inserts the order and all its items inside a single transaction.
func (r *postgresRepo) Create(ctx context.Context, o *Order) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx, `
		INSERT INTO orders
		  (id, gateway_order_id, buyer_id, buyer_email,
		   subtotal, tax, shipping, total, status, payment_status, stock_reserved, request_hash)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12)`,
		o.ID, nullable(o.GatewayOrderID), o.BuyerID, o.BuyerEmail,
		o.Subtotal, o.Tax, o.Shipping, o.Total, o.Status, o.PaymentStatus,
		o.StockReserved, o.RequestHash)
	if err != nil {
		return fmt.Errorf("insert order: %w", err)
	}

	for _, item := range o.Items {
		_, err = tx.ExecContext(ctx, `
			INSERT INTO order_items (id, order_id, product_id, quantity, unit_price, name)
			VALUES ($1,$2,$3,$4,$5,$6)`,
			item.ID, o.ID, item.ProductID, item.Quantity, item.UnitPrice, item.Name)
		if err != nil {
			return fmt.Errorf("insert order_item: %w", err)
		}
	}

	return tx.Commit()
}

func (r *postgresRepo) GetByID(ctx context.Context, id string) (*Order, error) {
	uid, err := uuid.Parse(id)
	if err != nil {
		return nil, err
	}
	o, err := scanOrder(r.db.QueryRowContext(ctx,
		`SELECT `+orderColumns+` FROM orders WHERE id=$1`, uid))
	if err != nil {
		return nil, err
	}
	o.Items, err = r.listItems(ctx, o.ID)
	return o, err
}

func (r *postgresRepo) GetByGatewayOrderID(ctx context.Context, gatewayOrderID string) (*Order, error) {
	o, err := scanOrder(r.db.QueryRowContext(ctx,
		`SELECT `+orderColumns+` FROM orders WHERE gateway_order_id=$1`, gatewayOrderID))
	if err != nil {
		return nil, err
	}
	o.Items, err = r.listItems(ctx, o.ID)
	return o, err
}

func (r *postgresRepo) ListByBuyer(ctx context.Context, buyerID string) ([]*Order, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+orderColumns+` FROM orders WHERE buyer_id=$1 ORDER BY created_at DESC`, buyerID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var orders []*Order
	for rows.Next() {
		o, err := scanOrderRows(rows)
		if err != nil {
			return nil, err
		}
		orders = append(orders, o)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	for _, o := range orders {
		if o.Items, err = r.listItems(ctx, o.ID); err != nil {
			return nil, err
		}
	}
	return orders, nil
}

func (r *postgresRepo) MarkPaymentCompleted(ctx context.Context, id string, paymentID string, capturedAmount *float64) error {
	_, err := r.db.ExecContext(ctx, `
		UPDATE orders
		SET payment_status=$1, status=$2,
		    gateway_payment_id=COALESCE(NULLIF($3,''), gateway_payment_id),
		    captured_amount=COALESCE($4, captured_amount),
		    paid_at=COALESCE(paid_at, NOW()), updated_at=NOW()
		WHERE id=$5`,
		PaymentCompleted, StatusProcessing, paymentID, capturedAmount, id)
	return err
}

func (r *postgresRepo) UpdateCaptureMetadata(ctx context.Context, id string, paymentID string, capturedAmount float64) error {
	_, err := r.db.ExecContext(ctx, `
		UPDATE orders
		SET gateway_payment_id=COALESCE(NULLIF($1,''), gateway_payment_id),
		    captured_amount=$2, updated_at=NOW()
		WHERE id=$3`,
		paymentID, capturedAmount, id)
	return err
}

func (r *postgresRepo) MarkPaymentFailed(ctx context.Context, id string, paymentID, failureCode, failureReason string) error {
	_, err := r.db.ExecContext(ctx, `
		UPDATE orders
		SET payment_status=$1, status=$2,
		    gateway_payment_id=COALESCE(NULLIF($3,''), gateway_payment_id),
		    failure_code=$4, failure_reason=$5, failed_at=NOW(), updated_at=NOW()
		WHERE id=$6`,
		PaymentFailed, StatusFailed, paymentID, failureCode, failureReason, id)
	return err
}

func (r *postgresRepo) UpdateStatus(ctx context.Context, id string, status Status) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE orders SET status=$1, updated_at=$2 WHERE id=$3`,
		status, time.Now(), id)
	return err
}

func (r *postgresRepo) RecordDeadLetter(ctx context.Context, d *DeadLetter) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO webhook_dead_letters (id, event_type, gateway_order_id, payload, received_at)
		VALUES ($1,$2,$3,$4,NOW())`,
		d.ID, d.EventType, d.GatewayOrderID, []byte(d.Payload))
	return err
}

// ── helpers ──────────────────────────────────────────────────────────────────

type rowScanner interface{ Scan(dest ...interface{}) error }

func scanOrder(row rowScanner) (*Order, error) {
	o := &Order{}
	var gatewayOrderID, gatewayPaymentID, failureCode, failureReason sql.NullString
	var capturedAmount sql.NullFloat64
	err := row.Scan(
		&o.ID, &gatewayOrderID, &o.BuyerID, &o.BuyerEmail,
		&o.Subtotal, &o.Tax, &o.Shipping, &o.Total, &o.Status, &o.PaymentStatus,
		&o.StockReserved, &o.RequestHash, &gatewayPaymentID, &capturedAmount,
		&failureCode, &failureReason, &o.CreatedAt, &o.UpdatedAt)
	if err != nil {
		return nil, err
	}
	o.GatewayOrderID = gatewayOrderID.String
	o.GatewayPaymentID = gatewayPaymentID.String
	o.FailureCode = failureCode.String
	o.FailureReason = failureReason.String
	if capturedAmount.Valid {
		o.CapturedAmount = &capturedAmount.Float64
	}
	return o, nil
}

func scanOrderRows(rows *sql.Rows) (*Order, error) { return scanOrder(rows) }

func (r *postgresRepo) listItems(ctx context.Context, orderID uuid.UUID) ([]*LineItem, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, order_id, product_id, quantity, unit_price, name
		FROM order_items WHERE order_id=$1`, orderID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []*LineItem
	for rows.Next() {
		item := &LineItem{}
		if err := rows.Scan(&item.ID, &item.OrderID, &item.ProductID,
			&item.Quantity, &item.UnitPrice, &item.Name); err != nil {
			return nil, err
		}
		items = append(items, item)
	}
	return items, rows.Err()
}

func nullable(s string) interface{} {
	if s == "" {
		return nil
	}
	return s
}
