package orders

import (
	"context"
	"fmt"
	"net/mail"
	"strings"
	"time"

	"github.com/ariefcatur/go-storefront-orders/internal/payments"
	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
	log "github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

var tracer = otel.Tracer("github.com/ariefcatur/go-storefront-orders/internal/orders")

type PaymentGateway interface {
	CreatePaymentIntent(ctx context.Context, amountMinor int64, currency string, metadata map[string]string) (payments.Intent, error)
}

type ItemInput struct {
	ProductID string          `json:"id"`
	Quantity  int             `json:"quantity"`
	Price     decimal.Decimal `json:"price"`   // informational, catalog price wins
	NameAr    string          `json:"name_ar"` // informational, catalog name wins
}

type CreateOrderInput struct {
	CustomerName    string          `json:"customer_name"`
	CustomerEmail   string          `json:"customer_email"`
	CustomerPhone   string          `json:"customer_phone"`
	ShippingAddress string          `json:"shipping_address"`
	City            string          `json:"city"`
	Notes           string          `json:"notes,omitempty"`
	Items           []ItemInput     `json:"items"`
	ShippingFee     decimal.Decimal `json:"shipping_fee"`

	// IdempotencyKey comes from the Idempotency-Key header, not the body.
	IdempotencyKey string `json:"-"`
}

type CreateOrderResult struct {
	OrderID      string          `json:"order_id"`
	OrderNumber  string          `json:"order_number"`
	ClientSecret string          `json:"client_secret"`
	TotalAmount  decimal.Decimal `json:"total_amount"`
	Idempotent   bool            `json:"idempotent,omitempty"`
}

const (
	MaxQuantity          = 10000
	maxIdempotencyKeyLen = 255
)

// maxTotal is the largest amount the orders.total_amount column holds.
var maxTotal = decimal.RequireFromString("9999999999.99")

func (in *CreateOrderInput) normalize() {
	in.CustomerName = strings.TrimSpace(in.CustomerName)
	in.CustomerEmail = strings.TrimSpace(in.CustomerEmail)
	in.CustomerPhone = strings.TrimSpace(in.CustomerPhone)
	in.ShippingAddress = strings.TrimSpace(in.ShippingAddress)
	in.City = strings.TrimSpace(in.City)
	in.Notes = strings.TrimSpace(in.Notes)
	in.IdempotencyKey = strings.TrimSpace(in.IdempotencyKey)
}

func (in CreateOrderInput) Validate() error {
	required := []struct{ field, value string }{
		{"customer_name", in.CustomerName},
		{"customer_email", in.CustomerEmail},
		{"customer_phone", in.CustomerPhone},
		{"shipping_address", in.ShippingAddress},
		{"city", in.City},
	}
	for _, r := range required {
		if strings.TrimSpace(r.value) == "" {
			return &ValidationError{Field: r.field, Reason: "is required"}
		}
	}
	if _, err := mail.ParseAddress(strings.TrimSpace(in.CustomerEmail)); err != nil {
		return &ValidationError{Field: "customer_email", Reason: "is not a valid email address"}
	}
	if len(in.Items) == 0 {
		return &ValidationError{Field: "items", Reason: "must not be empty"}
	}
	for _, it := range in.Items {
		if strings.TrimSpace(it.ProductID) == "" {
			return &ValidationError{Field: "items.id", Reason: "is required"}
		}
		if it.Quantity < 1 {
			return &ValidationError{Field: "items.quantity", Reason: "must be at least 1"}
		}
		if it.Quantity > MaxQuantity {
			return &ValidationError{Field: "items.quantity", Reason: fmt.Sprintf("must be at most %d", MaxQuantity)}
		}
	}
	if in.ShippingFee.IsNegative() {
		return &ValidationError{Field: "shipping_fee", Reason: "must not be negative"}
	}
	if len(in.IdempotencyKey) > maxIdempotencyKeyLen {
		return &ValidationError{Field: "idempotency_key", Reason: fmt.Sprintf("must be at most %d characters", maxIdempotencyKeyLen)}
	}
	return nil
}

// Service is the checkout side of the order lifecycle.
type Service struct {
	Store    Store
	Gateway  PaymentGateway
	Events   EventPublisher   // optional
	Idem     IdempotencyCache // optional
	Currency string
	Prefix   string
	Producer string
	Now      func() time.Time
}

func (s *Service) now() time.Time {
	if s.Now != nil {
		return s.Now().UTC()
	}
	return time.Now().UTC()
}

// CreateOrder validates input, persists the order with its items in one
// transaction and then asks the processor for a payment intent. A gateway
// failure leaves the order pending without an intent reference.
//
// With an idempotency key, a repeated request returns the order created by
// the first one instead of a new order, and retries the intent request when
// that order is still awaiting payment.
func (s *Service) CreateOrder(ctx context.Context, in CreateOrderInput) (*CreateOrderResult, error) {
	ctx, span := tracer.Start(ctx, "orders.CreateOrder")
	defer span.End()

	in.normalize()
	if err := in.Validate(); err != nil {
		return nil, err
	}

	if in.IdempotencyKey != "" {
		prior, err := s.findByKey(ctx, in.IdempotencyKey)
		if err != nil {
			return nil, err
		}
		if prior != nil {
			return s.replay(ctx, prior)
		}
	}

	order, items, err := s.buildOrder(ctx, in)
	if err != nil {
		return nil, err
	}
	order.IdempotencyKey = in.IdempotencyKey
	span.SetAttributes(attribute.String("order.id", order.ID), attribute.String("order.number", order.OrderNumber))
	logger := log.WithContext(ctx).WithFields(log.Fields{"order_id": order.ID, "order_number": order.OrderNumber})

	if err := s.Store.CreateOrder(ctx, order, items); err != nil {
		if errors.Is(err, ErrDuplicateOrder) && in.IdempotencyKey != "" {
			// lost the race to a concurrent request with the same key
			prior, ferr := s.Store.FindByIdempotencyKey(ctx, in.IdempotencyKey)
			if ferr != nil {
				return nil, persistErr("load order by idempotency key", ferr)
			}
			return s.replay(ctx, prior)
		}
		span.SetStatus(codes.Error, "insert order")
		return nil, persistErr("insert order", err)
	}
	logger.WithField("total", order.TotalAmount.String()).Info("order created")
	if in.IdempotencyKey != "" && s.Idem != nil {
		if err := s.Idem.Remember(ctx, in.IdempotencyKey, order.ID); err != nil {
			logger.WithError(err).Warn("cache idempotency key failed")
		}
	}

	qty := make([]ItemQty, 0, len(items))
	for _, it := range items {
		qty = append(qty, ItemQty{ProductID: it.ProductID, Qty: it.Quantity})
	}
	PublishBestEffort(ctx, s.Events, TopicOrderCreated, EventOrderCreated, s.Producer, order.ID, OrderCreatedPayload{
		OrderID:     order.ID,
		OrderNumber: order.OrderNumber,
		TotalAmount: order.TotalAmount.String(),
		Items:       qty,
	})

	intent, err := s.requestIntent(ctx, order)
	if err != nil {
		span.SetStatus(codes.Error, "payment intent")
		return nil, err
	}

	if err := s.Store.SetPaymentIntent(ctx, order.ID, intent.ID, s.now()); err != nil {
		logger.WithError(err).WithField("payment_intent_id", intent.ID).Error("store payment intent reference failed")
		return nil, persistErr("store payment intent", err)
	}

	return &CreateOrderResult{
		OrderID:      order.ID,
		OrderNumber:  order.OrderNumber,
		ClientSecret: intent.ClientSecret,
		TotalAmount:  order.TotalAmount,
	}, nil
}

func (s *Service) requestIntent(ctx context.Context, order *Order) (payments.Intent, error) {
	logger := log.WithContext(ctx).WithFields(log.Fields{"order_id": order.ID, "order_number": order.OrderNumber})
	amount, err := payments.ToMinorUnits(order.TotalAmount)
	if err != nil {
		logger.WithError(err).Error("order total not representable, order left pending without intent")
		return payments.Intent{}, errors.Wrapf(ErrPaymentGateway, "order %s: %v", order.OrderNumber, err)
	}
	intent, err := s.Gateway.CreatePaymentIntent(ctx, amount, s.Currency, map[string]string{
		"order_id":     order.ID,
		"order_number": order.OrderNumber,
	})
	if err != nil {
		logger.WithError(err).Error("payment intent failed, order left pending without intent")
		return payments.Intent{}, errors.Wrapf(ErrPaymentGateway, "order %s: %v", order.OrderNumber, err)
	}
	return intent, nil
}

// findByKey returns nil, nil when no order holds key.
func (s *Service) findByKey(ctx context.Context, key string) (*Order, error) {
	if s.Idem != nil {
		id, ok, err := s.Idem.Lookup(ctx, key)
		if err != nil {
			log.WithContext(ctx).WithError(err).Warn("idempotency cache lookup failed, falling back to store")
		}
		if ok {
			if o, err := s.Store.GetOrder(ctx, id); err == nil {
				return o, nil
			}
		}
	}
	o, err := s.Store.FindByIdempotencyKey(ctx, key)
	if errors.Is(err, ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, persistErr("load order by idempotency key", err)
	}
	return o, nil
}

// replay answers a repeated create request with the existing order. The
// processor dedups intents per order, so asking again returns the same
// intent, or creates the one a failed first attempt never got.
func (s *Service) replay(ctx context.Context, o *Order) (*CreateOrderResult, error) {
	log.WithContext(ctx).WithFields(log.Fields{"order_id": o.ID, "order_number": o.OrderNumber}).Info("idempotent create order replayed")
	res := &CreateOrderResult{
		OrderID:     o.ID,
		OrderNumber: o.OrderNumber,
		TotalAmount: o.TotalAmount,
		Idempotent:  true,
	}
	if o.Status != StatusPending || o.PaymentStatus != PaymentPending {
		return res, nil
	}
	intent, err := s.requestIntent(ctx, o)
	if err != nil {
		return nil, err
	}
	if intent.ID != o.PaymentIntentID {
		if err := s.Store.SetPaymentIntent(ctx, o.ID, intent.ID, s.now()); err != nil {
			return nil, persistErr("store payment intent", err)
		}
	}
	res.ClientSecret = intent.ClientSecret
	return res, nil
}

func (s *Service) buildOrder(ctx context.Context, in CreateOrderInput) (*Order, []OrderItem, error) {
	ids := make([]string, 0, len(in.Items))
	for _, it := range in.Items {
		ids = append(ids, it.ProductID)
	}
	products, err := s.Store.ProductsByID(ctx, ids)
	if err != nil {
		return nil, nil, persistErr("load products", err)
	}

	now := s.now()
	orderID := uuid.NewString()
	subtotal := decimal.Zero
	items := make([]OrderItem, 0, len(in.Items))
	for _, it := range in.Items {
		p, ok := products[it.ProductID]
		if !ok || !p.Active {
			return nil, nil, &ValidationError{Field: "items.id", Reason: "unknown product " + it.ProductID}
		}
		line := p.Price.Mul(decimal.NewFromInt(int64(it.Quantity)))
		subtotal = subtotal.Add(line)
		items = append(items, OrderItem{
			ID:          uuid.NewString(),
			OrderID:     orderID,
			ProductID:   p.ID,
			ProductName: p.NameAr,
			Quantity:    it.Quantity,
			UnitPrice:   p.Price,
			LineTotal:   line,
		})
	}

	total := subtotal.Add(in.ShippingFee)
	if total.GreaterThan(maxTotal) {
		return nil, nil, &ValidationError{Field: "total_amount", Reason: "exceeds the maximum order amount"}
	}

	order := &Order{
		ID:              orderID,
		OrderNumber:     NewOrderNumber(s.Prefix, now),
		CustomerName:    in.CustomerName,
		CustomerEmail:   in.CustomerEmail,
		CustomerPhone:   in.CustomerPhone,
		ShippingAddress: in.ShippingAddress,
		City:            in.City,
		Notes:           in.Notes,
		ShippingFee:     in.ShippingFee,
		TotalAmount:     total,
		Status:          StatusPending,
		PaymentStatus:   PaymentPending,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
	return order, items, nil
}

func (s *Service) GetOrder(ctx context.Context, orderID string) (*Order, error) {
	if strings.TrimSpace(orderID) == "" {
		return nil, &ValidationError{Field: "order_id", Reason: "is required"}
	}
	o, err := s.Store.GetOrder(ctx, orderID)
	if errors.Is(err, ErrNotFound) {
		return nil, err
	}
	if err != nil {
		return nil, persistErr("load order", err)
	}
	return o, nil
}
