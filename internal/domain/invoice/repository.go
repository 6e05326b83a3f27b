package invoice

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/BruksfildServices01/clinic-api/internal/models"
)

// ListFilter narrows an invoice listing. Zero values do not filter.
type ListFilter struct {
	ClinicID  uuid.UUID
	PatientID uuid.UUID
	Status    Status
	From      time.Time
	To        time.Time
}

// Payment is a settled gateway payment being applied to an invoice.
// Amount is what the provider charged; zero when it did not say.
type Payment struct {
	InvoiceID uuid.UUID
	PaymentID string
	Provider  string
	Amount    float64
	PaidAt    time.Time
}

type Repository interface {
	// -------- Invoice (CRUD) --------
	GetInvoice(
		ctx context.Context,
		id uuid.UUID,
	) (*models.Invoice, error)

	// GetPatient loads the patient with its appointment links.
	GetPatient(
		ctx context.Context,
		id uuid.UUID,
	) (*models.Patient, error)

	// CreateInvoice stores inv and its invoice.created event atomically.
	CreateInvoice(
		ctx context.Context,
		inv *models.Invoice,
	) error

	// UpdateAmount reprices a PENDING invoice and drops its open checkout
	// session.
	UpdateAmount(
		ctx context.Context,
		inv *models.Invoice,
	) error

	// Cancel moves a PENDING invoice to CANCELLED and records the event.
	Cancel(
		ctx context.Context,
		inv *models.Invoice,
		at time.Time,
	) error

	DeleteInvoice(
		ctx context.Context,
		id uuid.UUID,
	) error

	ListInvoices(
		ctx context.Context,
		f ListFilter,
	) ([]models.Invoice, error)

	// -------- Payment --------
	SetCheckoutSession(
		ctx context.Context,
		id uuid.UUID,
		provider string,
		sessionID string,
		amount float64,
		at time.Time,
	) error

	// MarkPaid applies p once. applied is false when the invoice was
	// already paid. A payment for another amount fails with
	// amount_mismatch and leaves the invoice PENDING.
	MarkPaid(
		ctx context.Context,
		p Payment,
	) (inv *models.Invoice, applied bool, err error)

	ListAwaitingPayment(
		ctx context.Context,
		startedBefore time.Time,
		limit int,
	) ([]models.Invoice, error)
}
