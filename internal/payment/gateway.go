// Package payment abstracts the hosted checkout providers used to settle
// invoices.
package payment

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/google/uuid"

	"github.com/BruksfildServices01/clinic-api/internal/config"
)

const (
	ProviderStripe      = "stripe"
	ProviderMercadoPago = "mercadopago"
)

var (
	ErrInvalidSignature = errors.New("invalid webhook signature")
	// ErrLookupUnsupported is returned when a provider cannot resolve a
	// stored checkout reference without the customer's redirect.
	ErrLookupUnsupported = errors.New("session lookup not supported")
)

type CheckoutRequest struct {
	InvoiceID     uuid.UUID
	Amount        float64
	Currency      string
	Description   string
	CustomerEmail string
	SuccessURL    string
	CancelURL     string
}

// Session is a checkout as seen by the provider. Amount is what the
// customer is charged; zero when the provider does not report it.
type Session struct {
	ID        string
	URL       string
	InvoiceID uuid.UUID
	Amount    float64
	Paid      bool
	PaymentID string
}

// Event is a verified provider notification. Ignored is set for event
// types that carry no payment.
type Event struct {
	Ignored bool
	Session Session
}

type Gateway interface {
	Name() string
	CreateCheckout(ctx context.Context, req CheckoutRequest) (*Session, error)
	GetSession(ctx context.Context, id string) (*Session, error)
	ParseWebhook(ctx context.Context, payload []byte, header http.Header) (*Event, error)
}

// New builds the configured gateway. It returns nil when payments are
// disabled.
func New(cfg *config.Config) (Gateway, error) {
	switch cfg.PaymentProvider {
	case "":
		return nil, nil
	case ProviderStripe:
		return NewStripe(cfg.StripeSecretKey, cfg.StripeWebhookSecret), nil
	case ProviderMercadoPago:
		mp, err := NewMercadoPago(cfg.MercadoPagoAccessToken, cfg.MercadoPagoWebhookSecret)
		if err != nil {
			return nil, err
		}
		return mp, nil
	}
	return nil, fmt.Errorf("unknown payment provider %q", cfg.PaymentProvider)
}

// ExpandURL fills the {INVOICE_ID} placeholder of a return URL.
func ExpandURL(tmpl string, invoiceID uuid.UUID) string {
	return strings.ReplaceAll(tmpl, "{INVOICE_ID}", invoiceID.String())
}

func parseInvoiceID(ref string) uuid.UUID {
	id, err := uuid.Parse(ref)
	if err != nil {
		return uuid.Nil
	}
	return id
}
