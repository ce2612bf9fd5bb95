package httpx

import (
	"encoding/json"
	"net/http"

	"github.com/ariefcatur/go-storefront-orders/internal/auth"
	"github.com/ariefcatur/go-storefront-orders/internal/catalog"
	"github.com/ariefcatur/go-storefront-orders/internal/notify"
	"github.com/ariefcatur/go-storefront-orders/internal/orders"
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
)

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func writeErr(w http.ResponseWriter, code int, msg string) {
	writeJSON(w, code, map[string]string{"error": msg})
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, orders.ErrValidation):
		return http.StatusBadRequest
	case errors.Is(err, auth.ErrUnauthenticated):
		return http.StatusUnauthorized
	case errors.Is(err, orders.ErrForbidden):
		return http.StatusForbidden
	case errors.Is(err, orders.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, orders.ErrInvalidTransition),
		errors.Is(err, notify.ErrNoTracking),
		errors.Is(err, catalog.ErrSlugTaken):
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

// writeError maps domain errors to status codes. Server-side failures keep
// their detail in the log, not the body.
func writeError(w http.ResponseWriter, r *http.Request, err error) {
	code := statusFor(err)
	if code >= http.StatusInternalServerError {
		log.WithContext(r.Context()).WithError(err).WithField("path", r.URL.Path).Error("request failed")
		writeErr(w, code, publicMessage(err))
		return
	}
	writeErr(w, code, err.Error())
}

func publicMessage(err error) string {
	switch {
	case errors.Is(err, orders.ErrPaymentGateway):
		return "payment provider unavailable"
	case errors.Is(err, orders.ErrPersistence):
		return "could not save order"
	case errors.Is(err, notify.ErrDelivery):
		return "email delivery failed"
	default:
		return "internal error"
	}
}

func decode(w http.ResponseWriter, r *http.Request, v any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, 1<<20))
	if err := dec.Decode(v); err != nil {
		return &orders.ValidationError{Field: "body", Reason: "invalid json"}
	}
	return nil
}
