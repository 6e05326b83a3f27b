package payment

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"github.com/stripe/stripe-go/v76"
	"github.com/stripe/stripe-go/v76/client"
	"github.com/stripe/stripe-go/v76/webhook"

	"github.com/BruksfildServices01/clinic-api/internal/domain/invoice"
)

// Stripe settles invoices through Stripe Checkout.
type Stripe struct {
	api           *client.API
	webhookSecret string
}

func NewStripe(secretKey, webhookSecret string) *Stripe {
	api := &client.API{}
	api.Init(secretKey, nil)
	return &Stripe{api: api, webhookSecret: webhookSecret}
}

func (s *Stripe) Name() string { return ProviderStripe }

func (s *Stripe) CreateCheckout(ctx context.Context, req CheckoutRequest) (*Session, error) {
	params := &stripe.CheckoutSessionParams{
		Mode:              stripe.String(string(stripe.CheckoutSessionModePayment)),
		SuccessURL:        stripe.String(req.SuccessURL),
		CancelURL:         stripe.String(req.CancelURL),
		ClientReferenceID: stripe.String(req.InvoiceID.String()),
		LineItems: []*stripe.CheckoutSessionLineItemParams{
			{
				PriceData: &stripe.CheckoutSessionLineItemPriceDataParams{
					Currency:   stripe.String(strings.ToLower(req.Currency)),
					UnitAmount: stripe.Int64(invoice.ToMinorUnits(req.Amount)),
					ProductData: &stripe.CheckoutSessionLineItemPriceDataProductDataParams{
						Name: stripe.String(req.Description),
					},
				},
				Quantity: stripe.Int64(1),
			},
		},
	}
	if req.CustomerEmail != "" {
		params.CustomerEmail = stripe.String(req.CustomerEmail)
	}
	params.AddMetadata("invoice_id", req.InvoiceID.String())
	params.Context = ctx

	cs, err := s.api.CheckoutSessions.New(params)
	if err != nil {
		return nil, fmt.Errorf("stripe: create checkout session: %w", err)
	}
	return stripeSession(cs), nil
}

func (s *Stripe) GetSession(ctx context.Context, id string) (*Session, error) {
	params := &stripe.CheckoutSessionParams{}
	params.Context = ctx
	params.AddExpand("payment_intent")

	cs, err := s.api.CheckoutSessions.Get(id, params)
	if err != nil {
		return nil, fmt.Errorf("stripe: get checkout session: %w", err)
	}
	return stripeSession(cs), nil
}

func (s *Stripe) ParseWebhook(_ context.Context, payload []byte, header http.Header) (*Event, error) {
	ev, err := webhook.ConstructEventWithOptions(
		payload,
		header.Get("Stripe-Signature"),
		s.webhookSecret,
		webhook.ConstructEventOptions{IgnoreAPIVersionMismatch: true},
	)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidSignature, err)
	}

	switch string(ev.Type) {
	case "checkout.session.completed", "checkout.session.async_payment_succeeded":
	default:
		return &Event{Ignored: true}, nil
	}

	var cs stripe.CheckoutSession
	if err := json.Unmarshal(ev.Data.Raw, &cs); err != nil {
		return nil, fmt.Errorf("stripe: decode checkout session: %w", err)
	}
	return &Event{Session: *stripeSession(&cs)}, nil
}

func stripeSession(cs *stripe.CheckoutSession) *Session {
	ref := cs.ClientReferenceID
	if ref == "" {
		ref = cs.Metadata["invoice_id"]
	}

	out := &Session{
		ID:        cs.ID,
		URL:       cs.URL,
		InvoiceID: parseInvoiceID(ref),
		Amount:    invoice.FromMinorUnits(cs.AmountTotal),
		Paid:      cs.PaymentStatus == stripe.CheckoutSessionPaymentStatusPaid,
		PaymentID: cs.ID,
	}
	if cs.PaymentIntent != nil && cs.PaymentIntent.ID != "" {
		out.PaymentID = cs.PaymentIntent.ID
	}
	return out
}
