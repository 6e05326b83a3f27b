package payment

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/BruksfildServices01/clinic-api/internal/audit"
	"github.com/BruksfildServices01/clinic-api/internal/authz"
	"github.com/BruksfildServices01/clinic-api/internal/cache"
	domain "github.com/BruksfildServices01/clinic-api/internal/domain/invoice"
	"github.com/BruksfildServices01/clinic-api/internal/httperr"
	"github.com/BruksfildServices01/clinic-api/internal/models"
	"github.com/BruksfildServices01/clinic-api/internal/payment"
)

// Settler applies confirmed gateway payments to invoices. Verify, the
// webhook and reconciliation all converge here.
type Settler struct {
	repo    domain.Repository
	gateway payment.Gateway
	locks   cache.Store
	policy  *authz.Policy
	audit   *audit.Dispatcher
	log     zerolog.Logger
	now     func() time.Time
}

func NewSettler(
	repo domain.Repository,
	gateway payment.Gateway,
	locks cache.Store,
	policy *authz.Policy,
	audit *audit.Dispatcher,
	log zerolog.Logger,
) *Settler {
	return &Settler{
		repo:    repo,
		gateway: gateway,
		locks:   locks,
		policy:  policy,
		audit:   audit,
		log:     log,
		now:     func() time.Time { return time.Now().UTC() },
	}
}

// Verify checks a checkout session the customer returned from.
func (s *Settler) Verify(
	ctx context.Context,
	pr authz.Principal,
	sessionID string,
) (*models.Invoice, error) {

	if s.gateway == nil {
		return nil, httperr.ErrBusiness("payments_disabled")
	}
	if sessionID == "" {
		return nil, httperr.ErrBusinessf("invalid_request", "session_id is required")
	}

	session, err := s.gateway.GetSession(ctx, sessionID)
	if err != nil {
		if errors.Is(err, payment.ErrLookupUnsupported) {
			return nil, httperr.ErrBusinessf("invalid_session", "unknown checkout session")
		}
		return nil, err
	}
	if session.InvoiceID == uuid.Nil {
		return nil, httperr.ErrBusinessf("invalid_session", "session does not reference an invoice")
	}

	inv, err := s.repo.GetInvoice(ctx, session.InvoiceID)
	if err != nil {
		return nil, err
	}
	if err := s.policy.Authorize(
		pr,
		authz.EntityInvoice,
		authz.ActionRead,
		authz.InvoiceResource(inv),
	); err != nil {
		return nil, err
	}

	if !session.Paid {
		return inv, nil
	}
	return s.MarkPaid(ctx, pr.UserRef(), session)
}

// Webhook applies a provider notification. A payment whose amount does
// not match the invoice is acknowledged but not applied.
func (s *Settler) Webhook(ctx context.Context, ev *payment.Event) error {
	if ev.Ignored || !ev.Session.Paid {
		return nil
	}
	_, err := s.MarkPaid(ctx, nil, &ev.Session)
	if httperr.IsBusiness(err, "amount_mismatch") {
		s.log.Error().
			Err(err).
			Str("invoice_id", ev.Session.InvoiceID.String()).
			Str("payment_id", ev.Session.PaymentID).
			Msg("payment left unapplied")
		return nil
	}
	return err
}

// MarkPaid is idempotent: a second call for a paid invoice returns it
// unchanged.
func (s *Settler) MarkPaid(
	ctx context.Context,
	userID *uuid.UUID,
	session *payment.Session,
) (*models.Invoice, error) {

	if session.InvoiceID == uuid.Nil {
		return nil, httperr.ErrBusinessf("invalid_session", "session does not reference an invoice")
	}

	provider := ""
	if s.gateway != nil {
		provider = s.gateway.Name()
	}

	inv, applied, err := s.repo.MarkPaid(ctx, domain.Payment{
		InvoiceID: session.InvoiceID,
		PaymentID: session.PaymentID,
		Provider:  provider,
		Amount:    session.Amount,
		PaidAt:    s.now(),
	})
	if err != nil {
		return nil, err
	}
	if !applied {
		return inv, nil
	}

	if err := s.locks.Del(ctx, cache.PrefixCheckout+inv.ID.String()); err != nil {
		s.log.Warn().Err(err).Str("invoice_id", inv.ID.String()).Msg("failed to clear checkout lock")
	}

	s.audit.Dispatch(audit.Event{
		ClinicID: inv.ClinicID,
		UserID:   userID,
		Action:   "invoice_paid",
		Entity:   "invoice",
		EntityID: &inv.ID,
		Metadata: map[string]any{"payment_id": session.PaymentID, "provider": provider},
	})

	s.log.Info().
		Str("invoice_id", inv.ID.String()).
		Str("payment_id", session.PaymentID).
		Msg("invoice paid")

	return inv, nil
}

// Reconcile re-checks invoices whose checkout started before the grace
// period and settles the ones the provider reports as paid.
func (s *Settler) Reconcile(ctx context.Context, grace time.Duration, limit int) (int, error) {
	if s.gateway == nil {
		return 0, nil
	}

	invoices, err := s.repo.ListAwaitingPayment(ctx, s.now().Add(-grace), limit)
	if err != nil {
		return 0, err
	}

	settled := 0
	for _, inv := range invoices {
		session, err := s.gateway.GetSession(ctx, inv.CheckoutSessionID)
		if errors.Is(err, payment.ErrLookupUnsupported) {
			continue
		}
		if err != nil {
			s.log.Warn().Err(err).Str("invoice_id", inv.ID.String()).Msg("reconcile: session lookup failed")
			continue
		}
		if !session.Paid || session.InvoiceID != inv.ID {
			continue
		}
		if _, err := s.MarkPaid(ctx, nil, session); err != nil {
			s.log.Warn().Err(err).Str("invoice_id", inv.ID.String()).Msg("reconcile: mark paid failed")
			continue
		}
		settled++
	}
	return settled, nil
}
