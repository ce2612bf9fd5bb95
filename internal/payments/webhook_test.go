package payments

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stripe/stripe-go/v81/webhook"
)

const testSecret = "whsec_test"

const succeededBody = `{
  "id": "evt_1",
  "object": "event",
  "type": "payment_intent.succeeded",
  "data": {"object": {"id": "pi_1", "object": "payment_intent", "metadata": {"order_id": "o-1", "order_number": "NAT-1-ABC"}}}
}`

func sign(body string, secret string) string {
	return webhook.GenerateTestSignedPayload(&webhook.UnsignedPayload{
		Payload: []byte(body),
		Secret:  secret,
	}).Header
}

func TestVerify_Succeeded(t *testing.T) {
	v := Verifier{Secret: testSecret}

	ev, err := v.Verify([]byte(succeededBody), sign(succeededBody, testSecret))
	require.NoError(t, err)
	assert.Equal(t, "evt_1", ev.ID)
	assert.Equal(t, EventPaymentIntentSucceeded, ev.Type)
	assert.Equal(t, "pi_1", ev.PaymentIntentID)
	assert.Equal(t, "o-1", ev.Metadata["order_id"])
}

func TestVerify_FailsClosed(t *testing.T) {
	v := Verifier{Secret: testSecret}

	_, err := v.Verify([]byte(succeededBody), "")
	assert.ErrorIs(t, err, ErrSignature)

	_, err = v.Verify([]byte(succeededBody), sign(succeededBody, "whsec_other"))
	assert.ErrorIs(t, err, ErrSignature)

	tampered := sign(succeededBody, testSecret)
	_, err = v.Verify([]byte(succeededBody+" "), tampered)
	assert.ErrorIs(t, err, ErrSignature)

	_, err = Verifier{}.Verify([]byte(succeededBody), sign(succeededBody, ""))
	assert.ErrorIs(t, err, ErrSignature)
}

func TestVerify_OtherTypesPassThrough(t *testing.T) {
	body := `{"id":"evt_2","object":"event","type":"charge.refunded","data":{"object":{"id":"ch_1"}}}`
	ev, err := Verifier{Secret: testSecret}.Verify([]byte(body), sign(body, testSecret))
	require.NoError(t, err)
	assert.Equal(t, "charge.refunded", ev.Type)
	assert.Empty(t, ev.Metadata)
}
