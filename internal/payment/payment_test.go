package payment

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"net/http"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stripe/stripe-go/v76/webhook"

	"github.com/BruksfildServices01/clinic-api/internal/config"
)

const whsec = "whsec_test_secret"

func signedStripeHeader(t *testing.T, payload []byte) http.Header {
	t.Helper()
	signed := webhook.GenerateTestSignedPayload(&webhook.UnsignedPayload{
		Payload: payload,
		Secret:  whsec,
	})
	h := http.Header{}
	h.Set("Stripe-Signature", signed.Header)
	return h
}

func TestStripe_ParseWebhookCompletedSession(t *testing.T) {
	invoiceID := uuid.New()
	payload := []byte(`{
		"id": "evt_1",
		"object": "event",
		"type": "checkout.session.completed",
		"data": {"object": {
			"id": "cs_test_1",
			"object": "checkout.session",
			"client_reference_id": "` + invoiceID.String() + `",
			"payment_status": "paid",
			"amount_total": 7550,
			"payment_intent": "pi_123"
		}}
	}`)

	s := NewStripe("sk_test_x", whsec)
	ev, err := s.ParseWebhook(context.Background(), payload, signedStripeHeader(t, payload))
	require.NoError(t, err)

	assert.False(t, ev.Ignored)
	assert.Equal(t, "cs_test_1", ev.Session.ID)
	assert.Equal(t, invoiceID, ev.Session.InvoiceID)
	assert.True(t, ev.Session.Paid)
	assert.Equal(t, 75.5, ev.Session.Amount)
	assert.Equal(t, "pi_123", ev.Session.PaymentID)
}

func TestStripe_ParseWebhookIgnoresOtherEvents(t *testing.T) {
	payload := []byte(`{"id":"evt_2","object":"event","type":"customer.created","data":{"object":{}}}`)

	s := NewStripe("sk_test_x", whsec)
	ev, err := s.ParseWebhook(context.Background(), payload, signedStripeHeader(t, payload))
	require.NoError(t, err)
	assert.True(t, ev.Ignored)
}

func TestStripe_ParseWebhookRejectsBadSignature(t *testing.T) {
	payload := []byte(`{"id":"evt_3","object":"event","type":"checkout.session.completed","data":{"object":{}}}`)
	h := http.Header{}
	h.Set("Stripe-Signature", "t=1,v1=deadbeef")

	s := NewStripe("sk_test_x", whsec)
	_, err := s.ParseWebhook(context.Background(), payload, h)
	assert.True(t, errors.Is(err, ErrInvalidSignature))
}

func TestVerifyMPSignature(t *testing.T) {
	secret := "mp-secret"
	manifest := "id:123456;request-id:req-1;ts:1700000000;"
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(manifest))
	sig := "ts=1700000000,v1=" + hex.EncodeToString(mac.Sum(nil))

	assert.NoError(t, verifyMPSignature(secret, sig, "req-1", "123456"))
	assert.ErrorIs(t, verifyMPSignature(secret, sig, "req-2", "123456"), ErrInvalidSignature)
	assert.ErrorIs(t, verifyMPSignature("other", sig, "req-1", "123456"), ErrInvalidSignature)
	assert.ErrorIs(t, verifyMPSignature(secret, "garbage", "req-1", "123456"), ErrInvalidSignature)
}

func TestNew(t *testing.T) {
	gw, err := New(&config.Config{})
	require.NoError(t, err)
	assert.Nil(t, gw)

	gw, err = New(&config.Config{PaymentProvider: ProviderStripe, StripeSecretKey: "sk_test_x"})
	require.NoError(t, err)
	assert.Equal(t, ProviderStripe, gw.Name())

	_, err = New(&config.Config{PaymentProvider: "paypal"})
	assert.Error(t, err)
}

func TestExpandURL(t *testing.T) {
	id := uuid.New()
	got := ExpandURL("https://app/pay?invoice_id={INVOICE_ID}&session_id={CHECKOUT_SESSION_ID}", id)
	assert.Equal(t, "https://app/pay?invoice_id="+id.String()+"&session_id={CHECKOUT_SESSION_ID}", got)
}
