package repository

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	domain "github.com/BruksfildServices01/clinic-api/internal/domain/appointment"
	"github.com/BruksfildServices01/clinic-api/internal/httperr"
	"github.com/BruksfildServices01/clinic-api/internal/models"
)

type AppointmentGormRepository struct {
	db *gorm.DB
}

func NewAppointmentGormRepository(db *gorm.DB) *AppointmentGormRepository {
	return &AppointmentGormRepository{db: db}
}

// --------------------------------------------------
// Clinic / participants
// --------------------------------------------------

func (r *AppointmentGormRepository) GetClinic(
	ctx context.Context,
	id uuid.UUID,
) (*models.Clinic, error) {

	var clinic models.Clinic
	if err := r.db.WithContext(ctx).First(&clinic, "id = ?", id).Error; err != nil {
		return nil, notFound(err, "clinic")
	}
	return &clinic, nil
}

func (r *AppointmentGormRepository) GetDoctor(
	ctx context.Context,
	id uuid.UUID,
) (*models.Doctor, error) {

	var doctor models.Doctor
	if err := r.db.WithContext(ctx).
		Preload("User").
		First(&doctor, "id = ?", id).Error; err != nil {
		return nil, notFound(err, "doctor")
	}
	return &doctor, nil
}

func (r *AppointmentGormRepository) GetPatient(
	ctx context.Context,
	id uuid.UUID,
) (*models.Patient, error) {

	var patient models.Patient
	if err := r.db.WithContext(ctx).
		Preload("Appointments", appointmentLinks).
		First(&patient, "id = ?", id).Error; err != nil {
		return nil, notFound(err, "patient")
	}
	return &patient, nil
}

// --------------------------------------------------
// Appointment
// --------------------------------------------------

func (r *AppointmentGormRepository) CreateAppointment(
	ctx context.Context,
	ap *models.Appointment,
) error {
	return r.db.WithContext(ctx).Create(ap).Error
}

func (r *AppointmentGormRepository) AssertNoTimeConflict(
	ctx context.Context,
	doctorID uuid.UUID,
	at time.Time,
	excludeID uuid.UUID,
) error {

	var count int64
	if err := r.db.WithContext(ctx).
		Model(&models.Appointment{}).
		Where(
			"doctor_id = ? AND status IN ? AND scheduled_at > ? AND scheduled_at < ? AND id <> ?",
			doctorID,
			domain.OpenStatuses(),
			at.Add(-domain.Slot),
			at.Add(domain.Slot),
			excludeID,
		).
		Count(&count).Error; err != nil {
		return err
	}

	if count > 0 {
		return httperr.ErrBusiness("time_conflict")
	}

	return nil
}

// GetAppointment loads the appointment with its participants. Doctors and
// patients are loaded even when soft-deleted so history stays readable.
func (r *AppointmentGormRepository) GetAppointment(
	ctx context.Context,
	id uuid.UUID,
) (*models.Appointment, error) {

	var ap models.Appointment
	if err := r.db.WithContext(ctx).
		Preload("Patient", unscoped).
		Preload("Doctor", unscoped).
		Preload("Doctor.User", unscoped).
		Preload("Consultation").
		First(&ap, "id = ?", id).Error; err != nil {
		return nil, notFound(err, "appointment")
	}

	return &ap, nil
}

func (r *AppointmentGormRepository) UpdateAppointment(
	ctx context.Context,
	ap *models.Appointment,
	from domain.Status,
) error {

	res := r.db.WithContext(ctx).
		Model(ap).
		Where("status = ?", string(from)).
		Select("ScheduledAt", "Status", "Notes", "CompletedAt", "CancelledAt", "UpdatedAt").
		Updates(ap)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return httperr.ErrBusiness("invalid_state")
	}
	return nil
}

func (r *AppointmentGormRepository) HasConsultation(
	ctx context.Context,
	appointmentID uuid.UUID,
) (bool, error) {

	var count int64
	err := r.db.WithContext(ctx).
		Model(&models.Consultation{}).
		Where("appointment_id = ?", appointmentID).
		Count(&count).Error
	return count > 0, err
}

func (r *AppointmentGormRepository) DeleteAppointment(
	ctx context.Context,
	id uuid.UUID,
) error {
	return r.db.WithContext(ctx).Delete(&models.Appointment{}, "id = ?", id).Error
}

func (r *AppointmentGormRepository) ListAppointments(
	ctx context.Context,
	f domain.ListFilter,
) ([]models.Appointment, error) {

	q := r.db.WithContext(ctx).
		Preload("Patient", unscoped).
		Preload("Doctor", unscoped).
		Preload("Doctor.User", unscoped)

	if f.ClinicID != uuid.Nil {
		q = q.Where("clinic_id = ?", f.ClinicID)
	}
	if f.DoctorID != uuid.Nil {
		q = q.Where("doctor_id = ?", f.DoctorID)
	}
	if f.PatientID != uuid.Nil {
		q = q.Where("patient_id = ?", f.PatientID)
	}
	if f.Status != "" {
		q = q.Where("status = ?", string(f.Status))
	}
	if !f.From.IsZero() {
		q = q.Where("scheduled_at >= ?", f.From.UTC())
	}
	if !f.To.IsZero() {
		q = q.Where("scheduled_at < ?", f.To.UTC())
	}

	var apps []models.Appointment
	if err := q.Order("scheduled_at ASC").Find(&apps).Error; err != nil {
		return nil, err
	}

	return apps, nil
}

// Compile-time check
var _ domain.Repository = (*AppointmentGormRepository)(nil)

// --------------------------------------------------
// Agenda
// --------------------------------------------------

// GetWorkingHours returns nil without error when the doctor has no agenda
// for weekday.
func (r *AppointmentGormRepository) GetWorkingHours(
	ctx context.Context,
	doctorID uuid.UUID,
	weekday time.Weekday,
) (*models.WorkingHours, error) {

	var wh models.WorkingHours
	err := r.db.WithContext(ctx).
		Where("doctor_id = ? AND weekday = ?", doctorID, int(weekday)).
		First(&wh).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &wh, nil
}

// ListBusy returns the start of every open appointment that overlaps
// [from, to), ascending.
func (r *AppointmentGormRepository) ListBusy(
	ctx context.Context,
	doctorID uuid.UUID,
	from, to time.Time,
) ([]time.Time, error) {

	var starts []time.Time
	err := r.db.WithContext(ctx).
		Model(&models.Appointment{}).
		Where(
			"doctor_id = ? AND status IN ? AND scheduled_at > ? AND scheduled_at < ?",
			doctorID,
			domain.OpenStatuses(),
			from.UTC().Add(-domain.Slot),
			to.UTC(),
		).
		Order("scheduled_at ASC").
		Pluck("scheduled_at", &starts).Error
	return starts, err
}
