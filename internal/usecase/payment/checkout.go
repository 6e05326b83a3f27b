package payment

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/BruksfildServices01/clinic-api/internal/audit"
	"github.com/BruksfildServices01/clinic-api/internal/authz"
	"github.com/BruksfildServices01/clinic-api/internal/cache"
	domain "github.com/BruksfildServices01/clinic-api/internal/domain/invoice"
	"github.com/BruksfildServices01/clinic-api/internal/httperr"
	"github.com/BruksfildServices01/clinic-api/internal/payment"
)

// lockPending marks a checkout being created by another request.
const lockPending = "pending"

type CheckoutOptions struct {
	Currency   string
	SuccessURL string
	CancelURL  string
	LockTTL    time.Duration
}

type CheckoutResult struct {
	InvoiceID uuid.UUID `json:"invoice_id"`
	Provider  string    `json:"provider"`
	SessionID string    `json:"session_id"`
	URL       string    `json:"url"`
	Amount    float64   `json:"amount"`
	Reused    bool      `json:"reused"`
}

// InitiateCheckout opens a hosted checkout for a PENDING invoice. While
// the lock for the invoice lives, repeated calls return the same session,
// unless the invoice was repriced since it was opened.
type InitiateCheckout struct {
	repo    domain.Repository
	gateway payment.Gateway
	locks   cache.Store
	policy  *authz.Policy
	audit   *audit.Dispatcher
	log     zerolog.Logger
	opts    CheckoutOptions
	now     func() time.Time
}

func NewInitiateCheckout(
	repo domain.Repository,
	gateway payment.Gateway,
	locks cache.Store,
	policy *authz.Policy,
	audit *audit.Dispatcher,
	log zerolog.Logger,
	opts CheckoutOptions,
) *InitiateCheckout {
	if opts.LockTTL <= 0 {
		opts.LockTTL = 30 * time.Minute
	}
	return &InitiateCheckout{
		repo:    repo,
		gateway: gateway,
		locks:   locks,
		policy:  policy,
		audit:   audit,
		log:     log,
		opts:    opts,
		now:     func() time.Time { return time.Now().UTC() },
	}
}

func (uc *InitiateCheckout) Execute(
	ctx context.Context,
	pr authz.Principal,
	invoiceID uuid.UUID,
) (*CheckoutResult, error) {

	if uc.gateway == nil {
		return nil, httperr.ErrBusiness("payments_disabled")
	}

	inv, err := uc.repo.GetInvoice(ctx, invoiceID)
	if err != nil {
		return nil, err
	}

	if err := uc.policy.Authorize(
		pr,
		authz.EntityPayment,
		authz.ActionCreate,
		authz.InvoiceResource(inv),
	); err != nil {
		return nil, err
	}

	if err := domain.CanPay(domain.Status(inv.Status)); err != nil {
		return nil, err
	}

	// --------------------------------------------------
	// Lock: one open session per invoice
	// --------------------------------------------------
	key := cache.PrefixCheckout + inv.ID.String()
	acquired, err := uc.locks.SetNX(ctx, key, lockPending, uc.opts.LockTTL)
	if err != nil {
		return nil, fmt.Errorf("acquire checkout lock: %w", err)
	}
	if !acquired {
		open, err := uc.existing(ctx, key, inv.ID)
		if err != nil {
			return nil, err
		}
		if domain.SameAmount(open.Amount, inv.Amount) {
			return open, nil
		}

		// opened for a previous amount
		uc.release(ctx, key)
		acquired, err = uc.locks.SetNX(ctx, key, lockPending, uc.opts.LockTTL)
		if err != nil {
			return nil, fmt.Errorf("acquire checkout lock: %w", err)
		}
		if !acquired {
			return nil, httperr.ErrBusinessf("checkout_in_progress", "a checkout for this invoice is being created")
		}
	}

	email := ""
	if inv.Patient != nil {
		email = inv.Patient.Email
	}

	session, err := uc.gateway.CreateCheckout(ctx, payment.CheckoutRequest{
		InvoiceID:     inv.ID,
		Amount:        inv.Amount,
		Currency:      uc.opts.Currency,
		Description:   "Invoice " + inv.ID.String()[:8],
		CustomerEmail: email,
		SuccessURL:    payment.ExpandURL(uc.opts.SuccessURL, inv.ID),
		CancelURL:     payment.ExpandURL(uc.opts.CancelURL, inv.ID),
	})
	if err != nil {
		uc.release(ctx, key)
		return nil, err
	}

	res := &CheckoutResult{
		InvoiceID: inv.ID,
		Provider:  uc.gateway.Name(),
		SessionID: session.ID,
		URL:       session.URL,
		Amount:    inv.Amount,
	}

	if err := uc.repo.SetCheckoutSession(ctx, inv.ID, res.Provider, res.SessionID, res.Amount, uc.now()); err != nil {
		uc.release(ctx, key)
		return nil, err
	}

	b, _ := json.Marshal(res)
	if err := uc.locks.Set(ctx, key, string(b), uc.opts.LockTTL); err != nil {
		uc.log.Warn().Err(err).Str("invoice_id", inv.ID.String()).Msg("failed to store checkout session in lock")
	}

	uc.audit.Dispatch(audit.Event{
		ClinicID: inv.ClinicID,
		UserID:   pr.UserRef(),
		Action:   "checkout_started",
		Entity:   "invoice",
		EntityID: &inv.ID,
		Metadata: map[string]any{"provider": res.Provider, "session_id": res.SessionID, "amount": res.Amount},
	})

	return res, nil
}

func (uc *InitiateCheckout) existing(ctx context.Context, key string, invoiceID uuid.UUID) (*CheckoutResult, error) {
	v, ok, err := uc.locks.Get(ctx, key)
	if err != nil {
		return nil, fmt.Errorf("read checkout lock: %w", err)
	}
	if !ok || v == lockPending {
		return nil, httperr.ErrBusinessf("checkout_in_progress", "a checkout for this invoice is being created")
	}

	var res CheckoutResult
	if err := json.Unmarshal([]byte(v), &res); err != nil || res.InvoiceID != invoiceID {
		return nil, httperr.ErrBusinessf("checkout_in_progress", "a checkout for this invoice is being created")
	}
	res.Reused = true
	return &res, nil
}

func (uc *InitiateCheckout) release(ctx context.Context, key string) {
	if err := uc.locks.Del(ctx, key); err != nil {
		uc.log.Warn().Err(err).Str("key", key).Msg("failed to release checkout lock")
	}
}
