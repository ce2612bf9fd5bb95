// Package payments wraps the payment processor: creating payment intents
// for checkout and verifying the signature of its webhook callbacks.
package payments

import (
	"context"
	"net/http"
	"time"

	"github.com/pkg/errors"
	"github.com/stripe/stripe-go/v81"
	"github.com/stripe/stripe-go/v81/client"
)

var ErrGateway = errors.New("payment processor request failed")

type Intent struct {
	ID           string
	ClientSecret string
}

type intentCreator func(params *stripe.PaymentIntentParams) (*stripe.PaymentIntent, error)

type Gateway struct {
	create intentCreator
}

func NewGateway(secretKey string, timeout time.Duration) *Gateway {
	httpClient := &http.Client{Timeout: timeout}
	backends := &stripe.Backends{
		API: stripe.GetBackendWithConfig(stripe.APIBackend, &stripe.BackendConfig{
			HTTPClient: httpClient,
		}),
	}
	sc := &client.API{}
	sc.Init(secretKey, backends)
	return &Gateway{create: sc.PaymentIntents.New}
}

func (g *Gateway) CreatePaymentIntent(ctx context.Context, amountMinor int64, currency string, metadata map[string]string) (Intent, error) {
	if amountMinor <= 0 {
		return Intent{}, errors.Wrapf(ErrGateway, "amount must be positive, got %d", amountMinor)
	}
	params := &stripe.PaymentIntentParams{
		Amount:   stripe.Int64(amountMinor),
		Currency: stripe.String(currency),
		AutomaticPaymentMethods: &stripe.PaymentIntentAutomaticPaymentMethodsParams{
			Enabled: stripe.Bool(true),
		},
	}
	params.Context = ctx
	// one intent per order; a retried request gets the intent back
	if id := metadata["order_id"]; id != "" {
		params.SetIdempotencyKey("pi-order-" + id)
	}
	for k, v := range metadata {
		params.AddMetadata(k, v)
	}

	pi, err := g.create(params)
	if err != nil {
		return Intent{}, errors.Wrapf(ErrGateway, "create payment intent: %v", err)
	}
	return Intent{ID: pi.ID, ClientSecret: pi.ClientSecret}, nil
}
