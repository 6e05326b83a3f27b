package appointment

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/BruksfildServices01/clinic-api/internal/models"
)

// Slot is the time a doctor is considered busy around a scheduled
// appointment.
const Slot = 30 * time.Minute

// ListFilter narrows an appointment listing. Zero values do not filter.
type ListFilter struct {
	ClinicID  uuid.UUID
	DoctorID  uuid.UUID
	PatientID uuid.UUID
	Status    Status
	From      time.Time
	To        time.Time
}

type Repository interface {
	// -------- Clinic / participants --------
	GetClinic(
		ctx context.Context,
		id uuid.UUID,
	) (*models.Clinic, error)

	GetDoctor(
		ctx context.Context,
		id uuid.UUID,
	) (*models.Doctor, error)

	// GetPatient loads the patient with its appointment links.
	GetPatient(
		ctx context.Context,
		id uuid.UUID,
	) (*models.Patient, error)

	// -------- Appointment (create / conflict) --------
	CreateAppointment(
		ctx context.Context,
		ap *models.Appointment,
	) error

	AssertNoTimeConflict(
		ctx context.Context,
		doctorID uuid.UUID,
		at time.Time,
		excludeID uuid.UUID,
	) error

	// -------- Appointment (read / state change) --------
	GetAppointment(
		ctx context.Context,
		id uuid.UUID,
	) (*models.Appointment, error)

	// UpdateAppointment writes ap only while the stored status is still
	// from; otherwise it fails with invalid_state.
	UpdateAppointment(
		ctx context.Context,
		ap *models.Appointment,
		from Status,
	) error

	HasConsultation(
		ctx context.Context,
		appointmentID uuid.UUID,
	) (bool, error)

	DeleteAppointment(
		ctx context.Context,
		id uuid.UUID,
	) error

	ListAppointments(
		ctx context.Context,
		f ListFilter,
	) ([]models.Appointment, error)

	// -------- Agenda --------
	GetWorkingHours(
		ctx context.Context,
		doctorID uuid.UUID,
		weekday time.Weekday,
	) (*models.WorkingHours, error)

	ListBusy(
		ctx context.Context,
		doctorID uuid.UUID,
		from, to time.Time,
	) ([]time.Time, error)
}
