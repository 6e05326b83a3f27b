package consultation

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/BruksfildServices01/clinic-api/internal/models"
)

// ListFilter narrows a consultation listing through its appointment.
type ListFilter struct {
	ClinicID  uuid.UUID
	DoctorID  uuid.UUID
	PatientID uuid.UUID
}

type Repository interface {
	// Transaction runs fn against a repository bound to one transaction.
	// Calling it again on that repository opens a savepoint.
	Transaction(
		ctx context.Context,
		fn func(tx Repository) error,
	) error

	// -------- Appointment --------
	GetAppointment(
		ctx context.Context,
		id uuid.UUID,
	) (*models.Appointment, error)

	// CompleteAppointment moves an open appointment to COMPLETED.
	// It fails with invalid_state when the appointment is no longer open.
	CompleteAppointment(
		ctx context.Context,
		id uuid.UUID,
		at time.Time,
	) error

	// -------- Consultation --------
	ConsultationExists(
		ctx context.Context,
		appointmentID uuid.UUID,
	) (bool, error)

	// CreateConsultation fails with consultation_exists when the
	// appointment already has one.
	CreateConsultation(
		ctx context.Context,
		c *models.Consultation,
	) error

	GetConsultation(
		ctx context.Context,
		id uuid.UUID,
	) (*models.Consultation, error)

	ListConsultations(
		ctx context.Context,
		f ListFilter,
	) ([]models.Consultation, error)

	// -------- Invoice side effect --------
	LatestActiveServicePrice(
		ctx context.Context,
		clinicID uuid.UUID,
	) (*float64, error)

	InvoiceExistsForConsultation(
		ctx context.Context,
		consultationID uuid.UUID,
	) (bool, error)

	// LatestPendingInvoice returns nil when the patient has none.
	LatestPendingInvoice(
		ctx context.Context,
		patientID uuid.UUID,
	) (*models.Invoice, error)

	CreateInvoice(
		ctx context.Context,
		inv *models.Invoice,
	) error

	// -------- Outbox --------
	AppendEvent(
		ctx context.Context,
		aggregateType string,
		aggregateID uuid.UUID,
		eventType string,
		payload any,
	) error
}
