package payment

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	mpconfig "github.com/mercadopago/sdk-go/pkg/config"
	mppayment "github.com/mercadopago/sdk-go/pkg/payment"
	"github.com/mercadopago/sdk-go/pkg/preference"

	"github.com/BruksfildServices01/clinic-api/internal/domain/invoice"
)

// MercadoPago settles invoices through Checkout Pro. The checkout is a
// preference; once paid, the customer returns with a payment id, which is
// what GetSession resolves.
type MercadoPago struct {
	preferences   preference.Client
	payments      mppayment.Client
	webhookSecret string
}

func NewMercadoPago(accessToken, webhookSecret string) (*MercadoPago, error) {
	cfg, err := mpconfig.New(accessToken)
	if err != nil {
		return nil, fmt.Errorf("mercadopago: config: %w", err)
	}
	return &MercadoPago{
		preferences:   preference.NewClient(cfg),
		payments:      mppayment.NewClient(cfg),
		webhookSecret: webhookSecret,
	}, nil
}

func (m *MercadoPago) Name() string { return ProviderMercadoPago }

func (m *MercadoPago) CreateCheckout(ctx context.Context, req CheckoutRequest) (*Session, error) {
	pref, err := m.preferences.Create(ctx, preference.Request{
		Items: []preference.ItemRequest{
			{
				ID:         req.InvoiceID.String(),
				Title:      req.Description,
				Quantity:   1,
				UnitPrice:  invoice.Round(req.Amount),
				CurrencyID: strings.ToUpper(req.Currency),
			},
		},
		Payer: &preference.PayerRequest{
			Email: req.CustomerEmail,
		},
		BackURLs: &preference.BackURLsRequest{
			Success: req.SuccessURL,
			Failure: req.CancelURL,
			Pending: req.SuccessURL,
		},
		AutoReturn:        "approved",
		ExternalReference: req.InvoiceID.String(),
	})
	if err != nil {
		return nil, fmt.Errorf("mercadopago: create preference: %w", err)
	}

	return &Session{
		ID:        pref.ID,
		URL:       pref.InitPoint,
		InvoiceID: req.InvoiceID,
		Amount:    invoice.Round(req.Amount),
	}, nil
}

// GetSession resolves a payment id. Preference ids cannot be looked up.
func (m *MercadoPago) GetSession(ctx context.Context, id string) (*Session, error) {
	paymentID, err := strconv.Atoi(id)
	if err != nil {
		return nil, ErrLookupUnsupported
	}

	p, err := m.payments.Get(ctx, paymentID)
	if err != nil {
		return nil, fmt.Errorf("mercadopago: get payment: %w", err)
	}

	return &Session{
		ID:        id,
		InvoiceID: parseInvoiceID(p.ExternalReference),
		Amount:    p.TransactionAmount,
		Paid:      p.Status == "approved",
		PaymentID: strconv.Itoa(p.ID),
	}, nil
}

type mpNotification struct {
	Type   string `json:"type"`
	Action string `json:"action"`
	Data   struct {
		ID string `json:"id"`
	} `json:"data"`
}

// ParseWebhook verifies the x-signature header and resolves the notified
// payment through the API; the notification body itself is not trusted.
func (m *MercadoPago) ParseWebhook(ctx context.Context, payload []byte, header http.Header) (*Event, error) {
	var n mpNotification
	if err := json.Unmarshal(payload, &n); err != nil {
		return nil, fmt.Errorf("mercadopago: decode notification: %w", err)
	}

	if err := verifyMPSignature(
		m.webhookSecret,
		header.Get("x-signature"),
		header.Get("x-request-id"),
		n.Data.ID,
	); err != nil {
		return nil, err
	}

	if n.Type != "payment" || n.Data.ID == "" {
		return &Event{Ignored: true}, nil
	}

	s, err := m.GetSession(ctx, n.Data.ID)
	if err != nil {
		return nil, err
	}
	return &Event{Session: *s}, nil
}

// verifyMPSignature checks "ts=<ts>,v1=<hmac>" against the manifest
// "id:<data.id>;request-id:<x-request-id>;ts:<ts>;".
func verifyMPSignature(secret, signature, requestID, dataID string) error {
	var ts, v1 string
	for _, part := range strings.Split(signature, ",") {
		k, v, ok := strings.Cut(strings.TrimSpace(part), "=")
		if !ok {
			continue
		}
		switch k {
		case "ts":
			ts = v
		case "v1":
			v1 = v
		}
	}
	if ts == "" || v1 == "" {
		return ErrInvalidSignature
	}

	manifest := "id:" + strings.ToLower(dataID) + ";request-id:" + requestID + ";ts:" + ts + ";"
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(manifest))
	expected := hex.EncodeToString(mac.Sum(nil))

	if !hmac.Equal([]byte(expected), []byte(v1)) {
		return ErrInvalidSignature
	}
	return nil
}
