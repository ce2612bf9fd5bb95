package httpx

import (
	"context"
	"net/http"
	"time"

	"github.com/ariefcatur/go-storefront-orders/internal/orders"
	"github.com/go-chi/chi/v5"
)

type OrderService interface {
	CreateOrder(ctx context.Context, in orders.CreateOrderInput) (*orders.CreateOrderResult, error)
	GetOrder(ctx context.Context, orderID string) (*orders.Order, error)
}

type OrdersHandler struct {
	Orders OrderService
}

type orderDetailsReq struct {
	OrderID string `json:"order_id"`
}

func (h *OrdersHandler) Register(r chi.Router) {
	r.Post("/orders", h.createOrder)
	r.Get("/orders/{id}", h.getOrder)
	r.Post("/order-details", h.orderDetails)
}

func (h *OrdersHandler) createOrder(w http.ResponseWriter, r *http.Request) {
	var in orders.CreateOrderInput
	if err := decode(w, r, &in); err != nil {
		writeError(w, r, err)
		return
	}
	in.IdempotencyKey = r.Header.Get("Idempotency-Key")

	ctx, cancel := context.WithTimeout(r.Context(), 20*time.Second)
	defer cancel()

	res, err := h.Orders.CreateOrder(ctx, in)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (h *OrdersHandler) getOrder(w http.ResponseWriter, r *http.Request) {
	h.writeOrder(w, r, chi.URLParam(r, "id"))
}

func (h *OrdersHandler) orderDetails(w http.ResponseWriter, r *http.Request) {
	var req orderDetailsReq
	if err := decode(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	h.writeOrder(w, r, req.OrderID)
}

func (h *OrdersHandler) writeOrder(w http.ResponseWriter, r *http.Request, orderID string) {
	ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
	defer cancel()

	o, err := h.Orders.GetOrder(ctx, orderID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, o)
}
