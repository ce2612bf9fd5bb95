package httpx

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/ariefcatur/go-storefront-orders/internal/catalog"
	"github.com/ariefcatur/go-storefront-orders/internal/orders"
	"github.com/go-chi/chi/v5"
	log "github.com/sirupsen/logrus"
)

type AuthResolver interface {
	Resolve(ctx context.Context, bearer string) (orders.AuthContext, error)
}

type AdminService interface {
	Get(ctx context.Context, auth orders.AuthContext, orderID string) (*orders.Order, error)
	List(ctx context.Context, auth orders.AuthContext, f orders.ListFilter) ([]orders.Order, error)
	AdvanceStatus(ctx context.Context, auth orders.AuthContext, orderID string, to orders.Status) (*orders.Order, error)
	MarkShipped(ctx context.Context, auth orders.AuthContext, orderID, trackingNumber, carrier string) (*orders.Order, error)
}

type OrderNotifier interface {
	SendTrackingNotification(ctx context.Context, orderID string) error
	ConfirmOnce(ctx context.Context, orderID string) error
}

type CategoryStore interface {
	CreateCategory(ctx context.Context, c catalog.Category) error
}

type AdminHandler struct {
	Auth       AuthResolver
	Admin      AdminService
	Notifier   OrderNotifier
	Categories CategoryStore
}

type authKey struct{}

func authFrom(ctx context.Context) orders.AuthContext {
	ac, _ := ctx.Value(authKey{}).(orders.AuthContext)
	return ac
}

type statusReq struct {
	Status string `json:"status"`
}

type shipReq struct {
	OrderID        string `json:"order_id"`
	TrackingNumber string `json:"tracking_number"`
	Carrier        string `json:"carrier"`
}

type shipResp struct {
	Success           bool          `json:"success"`
	Order             *orders.Order `json:"order"`
	NotificationError string        `json:"notification_error,omitempty"`
}

func (h *AdminHandler) Register(r chi.Router) {
	r.Group(func(r chi.Router) {
		r.Use(h.authenticate)
		r.Post("/tracking-notification", h.trackingNotification)
		r.Route("/admin", func(r chi.Router) {
			r.Get("/orders", h.list)
			r.Get("/orders/{id}", h.get)
			r.Post("/orders/{id}/status", h.advance)
			r.Post("/orders/{id}/ship", h.ship)
			r.Post("/orders/{id}/notify-tracking", h.notifyTracking)
			r.Post("/orders/{id}/notify-confirmation", h.notifyConfirmation)
			r.Post("/categories", h.createCategory)
		})
	})
}

// authenticate resolves the bearer token. Capability checks stay in the operations.
func (h *AdminHandler) authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ac, err := h.Auth.Resolve(r.Context(), r.Header.Get("Authorization"))
		if err != nil {
			writeError(w, r, err)
			return
		}
		ctx := context.WithValue(r.Context(), authKey{}, ac)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func (h *AdminHandler) list(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	f := orders.ListFilter{
		MissingPaymentIntent: q.Get("missing_payment_intent") == "true",
	}
	if s := q.Get("status"); s != "" {
		st, ok := orders.ParseStatus(s)
		if !ok {
			writeErr(w, http.StatusBadRequest, "unknown status "+s)
			return
		}
		f.Status = st
	}
	if s := q.Get("payment_status"); s != "" {
		f.PaymentStatus = orders.PaymentStatus(s)
	}
	if s := q.Get("limit"); s != "" {
		n, err := strconv.Atoi(s)
		if err != nil {
			writeErr(w, http.StatusBadRequest, "limit must be a number")
			return
		}
		f.Limit = n
	}

	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()
	out, err := h.Admin.List(ctx, authFrom(r.Context()), f)
	if err != nil {
		writeError(w, r, err)
		return
	}
	if out == nil {
		out = []orders.Order{}
	}
	writeJSON(w, http.StatusOK, out)
}

func (h *AdminHandler) get(w http.ResponseWriter, r *http.Request) {
	o, err := h.Admin.Get(r.Context(), authFrom(r.Context()), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, o)
}

func (h *AdminHandler) advance(w http.ResponseWriter, r *http.Request) {
	var req statusReq
	if err := decode(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	to, ok := orders.ParseStatus(req.Status)
	if !ok {
		writeErr(w, http.StatusBadRequest, "unknown status "+req.Status)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()
	o, err := h.Admin.AdvanceStatus(ctx, authFrom(r.Context()), chi.URLParam(r, "id"), to)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, o)
}

func (h *AdminHandler) ship(w http.ResponseWriter, r *http.Request) {
	var req shipReq
	if err := decode(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	h.shipAndNotify(w, r, chi.URLParam(r, "id"), req)
}

func (h *AdminHandler) trackingNotification(w http.ResponseWriter, r *http.Request) {
	var req shipReq
	if err := decode(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	h.shipAndNotify(w, r, req.OrderID, req)
}

// shipAndNotify persists tracking first; an email failure is reported but
// leaves the order shipped.
func (h *AdminHandler) shipAndNotify(w http.ResponseWriter, r *http.Request, orderID string, req shipReq) {
	ctx, cancel := context.WithTimeout(r.Context(), 20*time.Second)
	defer cancel()

	o, err := h.Admin.MarkShipped(ctx, authFrom(r.Context()), orderID, req.TrackingNumber, req.Carrier)
	if err != nil {
		writeError(w, r, err)
		return
	}
	resp := shipResp{Success: true, Order: o}
	if err := h.Notifier.SendTrackingNotification(ctx, o.ID); err != nil {
		log.WithContext(ctx).WithError(err).WithField("order_id", o.ID).Warn("tracking email failed")
		resp.NotificationError = publicMessage(err)
	}
	writeJSON(w, http.StatusOK, resp)
}

func (h *AdminHandler) notifyTracking(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 20*time.Second)
	defer cancel()

	o, err := h.Admin.Get(ctx, authFrom(r.Context()), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	if err := h.Notifier.SendTrackingNotification(ctx, o.ID); err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"success": true})
}

// notifyConfirmation re-drives the confirmation email for a paid order,
// e.g. when order.payment.completed never reached the notifier. Already
// confirmed orders are not emailed twice.
func (h *AdminHandler) notifyConfirmation(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 20*time.Second)
	defer cancel()

	o, err := h.Admin.Get(ctx, authFrom(r.Context()), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	if o.PaymentStatus != orders.PaymentCompleted {
		writeErr(w, http.StatusConflict, "order payment is not completed")
		return
	}
	if err := h.Notifier.ConfirmOnce(ctx, o.ID); err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"success": true})
}

func (h *AdminHandler) createCategory(w http.ResponseWriter, r *http.Request) {
	if !authFrom(r.Context()).IsAdmin() {
		writeError(w, r, orders.ErrForbidden)
		return
	}
	var in catalog.CategoryInput
	if err := decode(w, r, &in); err != nil {
		writeError(w, r, err)
		return
	}
	c, err := in.Build(time.Now())
	if err != nil {
		writeError(w, r, err)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()
	if err := h.Categories.CreateCategory(ctx, c); err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, c)
}
