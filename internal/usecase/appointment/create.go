package appointment

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/BruksfildServices01/clinic-api/internal/audit"
	"github.com/BruksfildServices01/clinic-api/internal/authz"
	domain "github.com/BruksfildServices01/clinic-api/internal/domain/appointment"
	"github.com/BruksfildServices01/clinic-api/internal/httperr"
	"github.com/BruksfildServices01/clinic-api/internal/models"
)

// ======================================================
// INPUT
// ======================================================

type CreateAppointmentInput struct {
	PatientID uuid.UUID
	DoctorID  uuid.UUID
	// optional; must match the doctor's clinic when given
	ClinicID uuid.UUID

	ScheduledAt time.Time
	Notes       string
}

// ======================================================
// USE CASE
// ======================================================

type CreateAppointment struct {
	repo   domain.Repository
	policy *authz.Policy
	audit  *audit.Dispatcher
	now    func() time.Time
}

func NewCreateAppointment(
	repo domain.Repository,
	policy *authz.Policy,
	audit *audit.Dispatcher,
) *CreateAppointment {
	return &CreateAppointment{
		repo:   repo,
		policy: policy,
		audit:  audit,
		now:    time.Now,
	}
}

// ======================================================
// EXECUTE
// ======================================================

func (uc *CreateAppointment) Execute(
	ctx context.Context,
	pr authz.Principal,
	in CreateAppointmentInput,
) (*models.Appointment, error) {

	if pr.Role == models.RolePatient && in.PatientID == uuid.Nil {
		in.PatientID = pr.PatientID
	}
	if in.PatientID == uuid.Nil || in.DoctorID == uuid.Nil {
		return nil, httperr.ErrBusinessf("invalid_request", "patient_id and doctor_id are required")
	}
	if in.ScheduledAt.IsZero() {
		return nil, httperr.ErrBusinessf("invalid_request", "scheduled_at is required")
	}

	// --------------------------------------------------
	// Participants
	// --------------------------------------------------
	doctor, err := uc.repo.GetDoctor(ctx, in.DoctorID)
	if err != nil {
		return nil, err
	}
	if in.ClinicID != uuid.Nil && in.ClinicID != doctor.ClinicID {
		return nil, httperr.ErrBusinessf("doctor_not_in_clinic", "the doctor does not work at this clinic")
	}

	patient, err := uc.repo.GetPatient(ctx, in.PatientID)
	if err != nil {
		return nil, err
	}

	ap := &models.Appointment{
		PatientID:   in.PatientID,
		DoctorID:    doctor.ID,
		ClinicID:    doctor.ClinicID,
		ScheduledAt: in.ScheduledAt.UTC(),
		Status:      string(domain.InitialStatus()),
		Notes:       in.Notes,
	}

	if err := uc.policy.Authorize(
		pr,
		authz.EntityAppointment,
		authz.ActionCreate,
		authz.AppointmentResource(ap),
	); err != nil {
		return nil, err
	}

	// staff only book patients already linked to their clinic
	if err := uc.policy.Authorize(
		pr,
		authz.EntityPatient,
		authz.ActionRead,
		authz.PatientResource(patient, patient.Appointments),
	); err != nil {
		return nil, err
	}

	// --------------------------------------------------
	// Schedule
	// --------------------------------------------------
	if !ap.ScheduledAt.After(uc.now()) {
		return nil, httperr.ErrBusinessf("scheduled_in_past", "appointments must be scheduled in the future")
	}

	if err := uc.repo.AssertNoTimeConflict(ctx, doctor.ID, ap.ScheduledAt, uuid.Nil); err != nil {
		return nil, err
	}

	if err := uc.repo.CreateAppointment(ctx, ap); err != nil {
		return nil, err
	}

	uc.audit.Dispatch(audit.Event{
		ClinicID: &ap.ClinicID,
		UserID:   pr.UserRef(),
		Action:   "appointment_created",
		Entity:   "appointment",
		EntityID: &ap.ID,
	})

	return ap, nil
}
