package repository

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	domain "github.com/BruksfildServices01/clinic-api/internal/domain/invoice"
	"github.com/BruksfildServices01/clinic-api/internal/httperr"
	"github.com/BruksfildServices01/clinic-api/internal/models"
	"github.com/BruksfildServices01/clinic-api/internal/outbox"
)

type InvoiceGormRepository struct {
	db *gorm.DB
}

func NewInvoiceGormRepository(db *gorm.DB) *InvoiceGormRepository {
	return &InvoiceGormRepository{db: db}
}

// --------------------------------------------------
// Invoice (CRUD)
// --------------------------------------------------

func (r *InvoiceGormRepository) GetInvoice(
	ctx context.Context,
	id uuid.UUID,
) (*models.Invoice, error) {

	var inv models.Invoice
	if err := r.db.WithContext(ctx).
		Preload("Patient", unscoped).
		First(&inv, "id = ?", id).Error; err != nil {
		return nil, notFound(err, "invoice")
	}
	return &inv, nil
}

func (r *InvoiceGormRepository) GetPatient(
	ctx context.Context,
	id uuid.UUID,
) (*models.Patient, error) {

	var p models.Patient
	if err := r.db.WithContext(ctx).
		Preload("Appointments", appointmentLinks).
		First(&p, "id = ?", id).Error; err != nil {
		return nil, notFound(err, "patient")
	}
	return &p, nil
}

func (r *InvoiceGormRepository) CreateInvoice(
	ctx context.Context,
	inv *models.Invoice,
) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(inv).Error; err != nil {
			if httperr.IsUniqueViolation(err) {
				return httperr.ErrBusiness("invoice_exists")
			}
			return err
		}
		return outbox.Append(tx, outbox.AggregateInvoice, inv.ID.String(),
			outbox.EventInvoiceCreated, outbox.InvoicePayload(inv))
	})
}

func (r *InvoiceGormRepository) UpdateAmount(
	ctx context.Context,
	inv *models.Invoice,
) error {

	res := r.db.WithContext(ctx).
		Model(&models.Invoice{}).
		Where("id = ? AND status = ?", inv.ID, string(domain.StatusPending)).
		Updates(map[string]any{
			"amount":              inv.Amount,
			"checkout_session_id": "",
			"checkout_amount":     nil,
			"checkout_started_at": nil,
			"payment_provider":    "",
			"updated_at":          time.Now().UTC(),
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return httperr.ErrBusiness("invalid_state")
	}

	inv.CheckoutSessionID = ""
	inv.CheckoutAmount = nil
	inv.CheckoutStartedAt = nil
	inv.PaymentProvider = ""
	return nil
}

func (r *InvoiceGormRepository) Cancel(
	ctx context.Context,
	inv *models.Invoice,
	at time.Time,
) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&models.Invoice{}).
			Where("id = ? AND status = ?", inv.ID, string(domain.StatusPending)).
			Updates(map[string]any{
				"status":       string(domain.StatusCancelled),
				"cancelled_at": at,
				"updated_at":   at,
			})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return httperr.ErrBusiness("invalid_state")
		}

		inv.Status = string(domain.StatusCancelled)
		inv.CancelledAt = &at
		return outbox.Append(tx, outbox.AggregateInvoice, inv.ID.String(),
			outbox.EventInvoiceCancelled, outbox.InvoicePayload(inv))
	})
}

func (r *InvoiceGormRepository) DeleteInvoice(
	ctx context.Context,
	id uuid.UUID,
) error {

	res := r.db.WithContext(ctx).
		Where("id = ? AND status <> ?", id, string(domain.StatusPaid)).
		Delete(&models.Invoice{})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return httperr.ErrBusiness("invalid_state")
	}
	return nil
}

func (r *InvoiceGormRepository) ListInvoices(
	ctx context.Context,
	f domain.ListFilter,
) ([]models.Invoice, error) {

	q := r.db.WithContext(ctx).Preload("Patient", unscoped)

	if f.ClinicID != uuid.Nil {
		q = q.Where("clinic_id = ?", f.ClinicID)
	}
	if f.PatientID != uuid.Nil {
		q = q.Where("patient_id = ?", f.PatientID)
	}
	if f.Status != "" {
		q = q.Where("status = ?", string(f.Status))
	}
	if !f.From.IsZero() {
		q = q.Where("created_at >= ?", f.From.UTC())
	}
	if !f.To.IsZero() {
		q = q.Where("created_at < ?", f.To.UTC())
	}

	var out []models.Invoice
	if err := q.Order("created_at DESC").Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

// --------------------------------------------------
// Payment
// --------------------------------------------------

func (r *InvoiceGormRepository) SetCheckoutSession(
	ctx context.Context,
	id uuid.UUID,
	provider string,
	sessionID string,
	amount float64,
	at time.Time,
) error {

	res := r.db.WithContext(ctx).
		Model(&models.Invoice{}).
		Where("id = ? AND status = ? AND amount = ?", id, string(domain.StatusPending), amount).
		Updates(map[string]any{
			"payment_provider":    provider,
			"checkout_session_id": sessionID,
			"checkout_amount":     amount,
			"checkout_started_at": at,
			"updated_at":          at,
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return httperr.ErrBusiness("invalid_state")
	}
	return nil
}

// MarkPaid only moves PENDING invoices, so concurrent verify and webhook
// calls settle the invoice exactly once. When the provider reports the
// charged amount it must equal the invoice amount.
func (r *InvoiceGormRepository) MarkPaid(
	ctx context.Context,
	p domain.Payment,
) (*models.Invoice, bool, error) {

	var inv models.Invoice
	applied := false

	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var paymentID *string
		if p.PaymentID != "" {
			paymentID = &p.PaymentID
		}

		q := tx.Model(&models.Invoice{}).
			Where("id = ? AND status = ?", p.InvoiceID, string(domain.StatusPending))
		if p.Amount > 0 {
			q = q.Where("amount = ?", domain.Round(p.Amount))
		}

		res := q.Updates(map[string]any{
			"status":            string(domain.StatusPaid),
			"paid_at":           p.PaidAt,
			"stripe_payment_id": paymentID,
			"payment_provider":  p.Provider,
			"updated_at":        p.PaidAt,
		})
		if res.Error != nil {
			if httperr.IsUniqueViolation(res.Error) {
				return httperr.ErrBusiness("payment_already_applied")
			}
			return res.Error
		}

		if err := tx.First(&inv, "id = ?", p.InvoiceID).Error; err != nil {
			return notFound(err, "invoice")
		}

		if res.RowsAffected == 0 {
			switch {
			case inv.Status == string(domain.StatusPaid):
				return nil
			case inv.Status == string(domain.StatusPending) && p.Amount > 0:
				return httperr.ErrBusinessf("amount_mismatch",
					"payment of %.2f does not match the invoice amount %.2f", p.Amount, inv.Amount)
			}
			return httperr.ErrBusiness("invalid_state")
		}

		applied = true
		return outbox.Append(tx, outbox.AggregateInvoice, inv.ID.String(),
			outbox.EventInvoicePaid, outbox.InvoicePayload(&inv))
	})
	if err != nil {
		return nil, false, err
	}

	return &inv, applied, nil
}

func (r *InvoiceGormRepository) ListAwaitingPayment(
	ctx context.Context,
	startedBefore time.Time,
	limit int,
) ([]models.Invoice, error) {

	var out []models.Invoice
	err := r.db.WithContext(ctx).
		Where("status = ? AND checkout_session_id <> '' AND checkout_started_at < ?",
			string(domain.StatusPending), startedBefore).
		Order("checkout_started_at ASC").
		Limit(limit).
		Find(&out).Error
	return out, err
}

// Compile-time check
var _ domain.Repository = (*InvoiceGormRepository)(nil)
