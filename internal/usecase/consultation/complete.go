package consultation

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/BruksfildServices01/clinic-api/internal/audit"
	"github.com/BruksfildServices01/clinic-api/internal/authz"
	domainappt "github.com/BruksfildServices01/clinic-api/internal/domain/appointment"
	domain "github.com/BruksfildServices01/clinic-api/internal/domain/consultation"
	domaininv "github.com/BruksfildServices01/clinic-api/internal/domain/invoice"
	"github.com/BruksfildServices01/clinic-api/internal/httperr"
	"github.com/BruksfildServices01/clinic-api/internal/models"
	"github.com/BruksfildServices01/clinic-api/internal/outbox"
)

// ======================================================
// INPUT / OUTPUT
// ======================================================

type CompleteInput struct {
	AppointmentID uuid.UUID
	Diagnosis     string
	Treatment     string
}

type CompleteResult struct {
	Consultation *models.Consultation
	InvoiceID    *uuid.UUID
}

// InvoiceOptions configures the invoice raised with each consultation.
type InvoiceOptions struct {
	FallbackFee float64
	// DedupWindow skips the invoice when the patient already has a PENDING
	// invoice younger than this. Zero disables the check.
	DedupWindow time.Duration
}

// ======================================================
// USE CASE
// ======================================================

// Complete records a consultation, completes its appointment and raises
// the consultation invoice.
type Complete struct {
	repo   domain.Repository
	policy *authz.Policy
	audit  *audit.Dispatcher
	log    zerolog.Logger
	opts   InvoiceOptions
	now    func() time.Time
}

func NewComplete(
	repo domain.Repository,
	policy *authz.Policy,
	audit *audit.Dispatcher,
	log zerolog.Logger,
	opts InvoiceOptions,
) *Complete {
	return &Complete{
		repo:   repo,
		policy: policy,
		audit:  audit,
		log:    log,
		opts:   opts,
		now:    func() time.Time { return time.Now().UTC() },
	}
}

// ======================================================
// EXECUTE
// ======================================================

func (uc *Complete) Execute(
	ctx context.Context,
	pr authz.Principal,
	in CompleteInput,
) (*CompleteResult, error) {

	in.Diagnosis = strings.TrimSpace(in.Diagnosis)
	in.Treatment = strings.TrimSpace(in.Treatment)
	if in.Diagnosis == "" || in.Treatment == "" {
		return nil, httperr.ErrBusinessf("invalid_request", "diagnosis and treatment are required")
	}

	// --------------------------------------------------
	// Appointment + authorization
	// --------------------------------------------------
	ap, err := uc.repo.GetAppointment(ctx, in.AppointmentID)
	if err != nil {
		return nil, err
	}

	if err := uc.policy.Authorize(
		pr,
		authz.EntityConsultation,
		authz.ActionCreate,
		authz.ConsultationResource(ap),
	); err != nil {
		return nil, err
	}

	exists, err := uc.repo.ConsultationExists(ctx, ap.ID)
	if err != nil {
		return nil, err
	}
	if exists {
		return nil, httperr.ErrBusiness("consultation_exists")
	}

	if err := domainappt.CanComplete(domainappt.Status(ap.Status)); err != nil {
		return nil, err
	}

	// --------------------------------------------------
	// Consultation + appointment, one transaction
	// --------------------------------------------------
	now := uc.now()
	c := &models.Consultation{
		AppointmentID: ap.ID,
		Diagnosis:     in.Diagnosis,
		Treatment:     in.Treatment,
	}
	var invoice *models.Invoice

	err = uc.repo.Transaction(ctx, func(tx domain.Repository) error {
		if err := tx.CreateConsultation(ctx, c); err != nil {
			return err
		}
		if err := tx.CompleteAppointment(ctx, ap.ID, now); err != nil {
			return err
		}
		if err := tx.AppendEvent(ctx, outbox.AggregateConsultation, c.ID,
			outbox.EventConsultationCompleted, outbox.ConsultationCompleted{
				ConsultationID: c.ID,
				AppointmentID:  ap.ID,
				PatientID:      ap.PatientID,
				DoctorID:       ap.DoctorID,
				ClinicID:       ap.ClinicID,
				CompletedAt:    now,
			}); err != nil {
			return err
		}

		// the invoice is best effort: its savepoint rolls back alone
		if err := tx.Transaction(ctx, func(sp domain.Repository) error {
			inv, err := uc.raiseInvoice(ctx, sp, ap, c, now)
			invoice = inv
			return err
		}); err != nil {
			invoice = nil
			uc.log.Warn().
				Err(err).
				Str("consultation_id", c.ID.String()).
				Str("patient_id", ap.PatientID.String()).
				Msg("consultation invoice not created")
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	// --------------------------------------------------
	// Audit
	// --------------------------------------------------
	clinicID := ap.ClinicID
	uc.audit.Dispatch(audit.Event{
		ClinicID: &clinicID,
		UserID:   pr.UserRef(),
		Action:   "consultation_created",
		Entity:   "consultation",
		EntityID: &c.ID,
		Metadata: map[string]any{"appointment_id": ap.ID},
	})

	res := &CompleteResult{Consultation: c}
	if invoice != nil {
		res.InvoiceID = &invoice.ID
		uc.audit.Dispatch(audit.Event{
			ClinicID: &clinicID,
			UserID:   pr.UserRef(),
			Action:   "invoice_created",
			Entity:   "invoice",
			EntityID: &invoice.ID,
			Metadata: map[string]any{"amount": invoice.Amount, "consultation_id": c.ID},
		})
	}

	return res, nil
}

// raiseInvoice returns nil without error when the invoice is skipped.
func (uc *Complete) raiseInvoice(
	ctx context.Context,
	tx domain.Repository,
	ap *models.Appointment,
	c *models.Consultation,
	now time.Time,
) (*models.Invoice, error) {

	exists, err := tx.InvoiceExistsForConsultation(ctx, c.ID)
	if err != nil {
		return nil, err
	}
	if exists {
		uc.skip(c, "consultation already invoiced")
		return nil, nil
	}

	if uc.opts.DedupWindow > 0 {
		recent, err := tx.LatestPendingInvoice(ctx, ap.PatientID)
		if err != nil {
			return nil, err
		}
		if recent != nil && now.Sub(recent.CreatedAt) < uc.opts.DedupWindow {
			uc.skip(c, "patient has a recent pending invoice")
			return nil, nil
		}
	}

	price, err := tx.LatestActiveServicePrice(ctx, ap.ClinicID)
	if err != nil {
		return nil, err
	}

	clinicID := ap.ClinicID
	inv := &models.Invoice{
		PatientID:      ap.PatientID,
		ClinicID:       &clinicID,
		ConsultationID: &c.ID,
		Amount:         domaininv.AmountFor(price, uc.opts.FallbackFee),
		Status:         string(domaininv.StatusPending),
	}
	if err := tx.CreateInvoice(ctx, inv); err != nil {
		return nil, err
	}

	if err := tx.AppendEvent(ctx, outbox.AggregateInvoice, inv.ID,
		outbox.EventInvoiceCreated, outbox.InvoicePayload(inv)); err != nil {
		return nil, err
	}

	return inv, nil
}

func (uc *Complete) skip(c *models.Consultation, reason string) {
	uc.log.Warn().
		Str("consultation_id", c.ID.String()).
		Str("reason", reason).
		Msg("consultation invoice skipped")
}
