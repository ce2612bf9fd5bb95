package orders

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// CompletePayment: catat event_id processor (idempotent) -> flip pending -> completed.
// Kalau event sudah pernah diproses atau order bukan pending, tidak ada perubahan.
func (r *Repo) CompletePayment(ctx context.Context, p PaymentCompletion) (bool, error) {
	if _, err := uuid.Parse(p.OrderID); err != nil {
		return false, ErrNotFound
	}
	tx, err := r.DB.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return false, err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	var orderExists bool
	if err := tx.QueryRow(ctx, `SELECT EXISTS(SELECT 1 FROM orders WHERE id=$1)`, p.OrderID).Scan(&orderExists); err != nil {
		return false, err
	}
	if !orderExists {
		return false, ErrNotFound
	}

	ct, err := tx.Exec(ctx, `
		INSERT INTO payment_events(event_id, order_id, event_type, received_at)
		VALUES ($1,$2,$3,$4)
		ON CONFLICT (event_id) DO NOTHING`, p.EventID, p.OrderID, p.EventType, p.At)
	if err != nil {
		return false, err
	}
	if ct.RowsAffected() == 0 {
		return false, nil // redelivery
	}

	ct, err = tx.Exec(ctx, `
		UPDATE orders SET payment_status='completed', updated_at=$2
		WHERE id=$1 AND payment_status='pending'`, p.OrderID, p.At)
	if err != nil {
		return false, err
	}
	if err := tx.Commit(ctx); err != nil {
		return false, err
	}
	return ct.RowsAffected() == 1, nil
}
