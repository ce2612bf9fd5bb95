package orders

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Repo is the Postgres-backed Store.
type Repo struct{ DB *pgxpool.Pool }

var _ Store = (*Repo)(nil)

const orderColumns = `id, order_number, customer_name, customer_email, customer_phone,
	shipping_address, city, COALESCE(notes, ''), total_amount, shipping_fee, status, payment_status,
	COALESCE(payment_intent_id, ''), COALESCE(idempotency_key, ''), COALESCE(tracking_number, ''), COALESCE(shipping_carrier, ''),
	created_at, packed_at, shipped_at, delivered_at, updated_at`

func scanOrder(row pgx.Row) (*Order, error) {
	var o Order
	err := row.Scan(&o.ID, &o.OrderNumber, &o.CustomerName, &o.CustomerEmail, &o.CustomerPhone,
		&o.ShippingAddress, &o.City, &o.Notes, &o.TotalAmount, &o.ShippingFee, &o.Status, &o.PaymentStatus,
		&o.PaymentIntentID, &o.IdempotencyKey, &o.TrackingNumber, &o.ShippingCarrier,
		&o.CreatedAt, &o.PackedAt, &o.ShippedAt, &o.DeliveredAt, &o.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &o, nil
}

func validIDs(ids []string) []string {
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		if _, err := uuid.Parse(id); err == nil {
			out = append(out, id)
		}
	}
	return out
}

// ProductsByID skips ids that are not uuids; callers treat them as unknown.
func (r *Repo) ProductsByID(ctx context.Context, ids []string) (map[string]Product, error) {
	out := map[string]Product{}
	ids = validIDs(ids)
	if len(ids) == 0 {
		return out, nil
	}
	rows, err := r.DB.Query(ctx, `
		SELECT id, name_ar, name_en, price, is_active
		FROM products WHERE id = ANY($1::uuid[])`, ids)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	for rows.Next() {
		var p Product
		if err := rows.Scan(&p.ID, &p.NameAr, &p.NameEn, &p.Price, &p.Active); err != nil {
			return nil, err
		}
		out[p.ID] = p
	}
	return out, rows.Err()
}

// CreateOrder: order + items dalam satu transaksi, tidak ada order tanpa item.
func (r *Repo) CreateOrder(ctx context.Context, o *Order, items []OrderItem) error {
	tx, err := r.DB.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	_, err = tx.Exec(ctx, `
		INSERT INTO orders(id, order_number, customer_name, customer_email, customer_phone,
			shipping_address, city, notes, total_amount, shipping_fee, status, payment_status,
			idempotency_key, created_at, updated_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,NULLIF($8,''),$9,$10,$11,$12,NULLIF($13,''),$14,$15)`,
		o.ID, o.OrderNumber, o.CustomerName, o.CustomerEmail, o.CustomerPhone,
		o.ShippingAddress, o.City, o.Notes, o.TotalAmount, o.ShippingFee, string(o.Status), string(o.PaymentStatus),
		o.IdempotencyKey, o.CreatedAt, o.UpdatedAt)
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == "23505" && pgErr.ConstraintName == idempotencyIndex {
		return ErrDuplicateOrder
	}
	if err != nil {
		return fmt.Errorf("insert order: %w", err)
	}

	for _, it := range items {
		_, err = tx.Exec(ctx, `
			INSERT INTO order_items(id, order_id, product_id, product_name, quantity, unit_price, line_total)
			VALUES ($1,$2,$3,$4,$5,$6,$7)`,
			it.ID, o.ID, it.ProductID, it.ProductName, it.Quantity, it.UnitPrice, it.LineTotal)
		if err != nil {
			return fmt.Errorf("insert order item %s: %w", it.ProductID, err)
		}
	}
	return tx.Commit(ctx)
}

const idempotencyIndex = "orders_idempotency_key_uidx"

func (r *Repo) FindByIdempotencyKey(ctx context.Context, key string) (*Order, error) {
	var id string
	err := r.DB.QueryRow(ctx, `SELECT id FROM orders WHERE idempotency_key=$1`, key).Scan(&id)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return r.GetOrder(ctx, id)
}

func (r *Repo) SetPaymentIntent(ctx context.Context, orderID, intentID string, at time.Time) error {
	ct, err := r.DB.Exec(ctx, `
		UPDATE orders SET payment_intent_id=$2, updated_at=$3 WHERE id=$1`, orderID, intentID, at)
	if err != nil {
		return err
	}
	if ct.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *Repo) GetOrder(ctx context.Context, orderID string) (*Order, error) {
	if _, err := uuid.Parse(orderID); err != nil {
		return nil, ErrNotFound
	}
	o, err := scanOrder(r.DB.QueryRow(ctx, `SELECT `+orderColumns+` FROM orders WHERE id=$1`, orderID))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}

	rows, err := r.DB.Query(ctx, `
		SELECT id, order_id, product_id, product_name, quantity, unit_price, line_total
		FROM order_items WHERE order_id=$1 ORDER BY product_name, id`, orderID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	for rows.Next() {
		var it OrderItem
		if err := rows.Scan(&it.ID, &it.OrderID, &it.ProductID, &it.ProductName, &it.Quantity, &it.UnitPrice, &it.LineTotal); err != nil {
			return nil, err
		}
		o.Items = append(o.Items, it)
	}
	return o, rows.Err()
}

func (r *Repo) ListOrders(ctx context.Context, f ListFilter) ([]Order, error) {
	var (
		where []string
		args  []any
	)
	if f.Status != "" {
		args = append(args, string(f.Status))
		where = append(where, fmt.Sprintf("status=$%d", len(args)))
	}
	if f.PaymentStatus != "" {
		args = append(args, string(f.PaymentStatus))
		where = append(where, fmt.Sprintf("payment_status=$%d", len(args)))
	}
	if f.MissingPaymentIntent {
		where = append(where, "payment_intent_id IS NULL")
	}
	q := `SELECT ` + orderColumns + ` FROM orders`
	if len(where) > 0 {
		q += ` WHERE ` + strings.Join(where, " AND ")
	}
	args = append(args, f.Limit)
	q += fmt.Sprintf(" ORDER BY created_at DESC LIMIT $%d", len(args))

	rows, err := r.DB.Query(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Order
	for rows.Next() {
		o, err := scanOrder(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *o)
	}
	return out, rows.Err()
}

func (r *Repo) UpdateStatus(ctx context.Context, u StatusUpdate) error {
	var packedAt, deliveredAt *time.Time
	switch u.To {
	case StatusPacked:
		packedAt = &u.At
	case StatusDelivered:
		deliveredAt = &u.At
	}
	ct, err := r.DB.Exec(ctx, `
		UPDATE orders
		SET status=$3, updated_at=$4,
			packed_at=COALESCE($5::timestamptz, packed_at),
			delivered_at=COALESCE($6::timestamptz, delivered_at)
		WHERE id=$1 AND status=$2`,
		u.OrderID, string(u.From), string(u.To), u.At, packedAt, deliveredAt)
	if err != nil {
		return err
	}
	if ct.RowsAffected() == 0 {
		return r.missOrConflict(ctx, u.OrderID)
	}
	return nil
}

func (r *Repo) MarkShipped(ctx context.Context, u ShipUpdate) error {
	ct, err := r.DB.Exec(ctx, `
		UPDATE orders
		SET status='shipped', tracking_number=$3, shipping_carrier=NULLIF($4,''),
			shipped_at=$5, updated_at=$5
		WHERE id=$1 AND status=$2`,
		u.OrderID, string(u.From), u.TrackingNumber, u.Carrier, u.At)
	if err != nil {
		return err
	}
	if ct.RowsAffected() == 0 {
		return r.missOrConflict(ctx, u.OrderID)
	}
	return nil
}

func (r *Repo) missOrConflict(ctx context.Context, orderID string) error {
	var one int
	err := r.DB.QueryRow(ctx, `SELECT 1 FROM orders WHERE id=$1`, orderID).Scan(&one)
	if errors.Is(err, pgx.ErrNoRows) {
		return ErrNotFound
	}
	if err != nil {
		return err
	}
	return ErrStatusConflict
}
