package httpx

import (
	"context"
	"io"
	"net/http"

	"github.com/ariefcatur/go-storefront-orders/internal/payments"
	"github.com/ariefcatur/go-storefront-orders/internal/webhook"
	"github.com/go-chi/chi/v5"
	log "github.com/sirupsen/logrus"
)

const maxWebhookBody = 64 << 10

type WebhookProcessor interface {
	Handle(ctx context.Context, rawBody []byte, signatureHeader string) (webhook.Outcome, error)
}

type WebhookHandler struct {
	Processor WebhookProcessor
}

func (h *WebhookHandler) Register(r chi.Router) {
	r.Post("/webhooks/stripe", h.receive)
}

// receive answers 400 for every failure so the processor redelivers.
func (h *WebhookHandler) receive(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(io.LimitReader(r.Body, maxWebhookBody))
	if err != nil {
		writeErr(w, http.StatusBadRequest, "read body")
		return
	}

	outcome, err := h.Processor.Handle(r.Context(), body, r.Header.Get(payments.SignatureHeader))
	if err != nil {
		log.WithContext(r.Context()).WithError(err).Warn("webhook rejected")
		writeErr(w, http.StatusBadRequest, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"received": true, "outcome": outcome})
}
