package payments

import (
	"encoding/json"

	"github.com/pkg/errors"
	"github.com/stripe/stripe-go/v81"
	"github.com/stripe/stripe-go/v81/webhook"
)

const (
	SignatureHeader = "Stripe-Signature"

	EventPaymentIntentSucceeded = "payment_intent.succeeded"
)

var (
	ErrSignature      = errors.New("webhook signature verification failed")
	ErrMalformedEvent = errors.New("malformed webhook event")
)

// Event is the verified subset of a processor event the system acts on.
type Event struct {
	ID              string
	Type            string
	PaymentIntentID string
	Metadata        map[string]string
}

type Verifier struct {
	Secret string
}

// Verify fails closed: a missing header, a missing secret or a bad signature all yield ErrSignature.
func (v Verifier) Verify(rawBody []byte, signatureHeader string) (Event, error) {
	if signatureHeader == "" {
		return Event{}, errors.Wrap(ErrSignature, "missing signature header")
	}
	if v.Secret == "" {
		return Event{}, errors.Wrap(ErrSignature, "webhook secret not configured")
	}
	ev, err := webhook.ConstructEventWithOptions(rawBody, signatureHeader, v.Secret, webhook.ConstructEventOptions{
		IgnoreAPIVersionMismatch: true,
	})
	if err != nil {
		return Event{}, errors.Wrap(ErrSignature, err.Error())
	}

	out := Event{ID: ev.ID, Type: string(ev.Type)}
	if out.Type != EventPaymentIntentSucceeded {
		return out, nil
	}
	if ev.Data == nil || len(ev.Data.Raw) == 0 {
		return out, errors.Wrap(ErrMalformedEvent, "event has no data object")
	}
	var pi stripe.PaymentIntent
	if err := json.Unmarshal(ev.Data.Raw, &pi); err != nil {
		return out, errors.Wrapf(ErrMalformedEvent, "decode payment intent: %v", err)
	}
	out.PaymentIntentID = pi.ID
	out.Metadata = pi.Metadata
	return out, nil
}
