package repository

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	domainappt "github.com/BruksfildServices01/clinic-api/internal/domain/appointment"
	domain "github.com/BruksfildServices01/clinic-api/internal/domain/consultation"
	domaininv "github.com/BruksfildServices01/clinic-api/internal/domain/invoice"
	"github.com/BruksfildServices01/clinic-api/internal/httperr"
	"github.com/BruksfildServices01/clinic-api/internal/models"
	"github.com/BruksfildServices01/clinic-api/internal/outbox"
)

type ConsultationGormRepository struct {
	db *gorm.DB
}

func NewConsultationGormRepository(db *gorm.DB) *ConsultationGormRepository {
	return &ConsultationGormRepository{db: db}
}

// Transaction nests as a savepoint when r is already transactional.
func (r *ConsultationGormRepository) Transaction(
	ctx context.Context,
	fn func(tx domain.Repository) error,
) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(&ConsultationGormRepository{db: tx})
	})
}

// --------------------------------------------------
// Appointment
// --------------------------------------------------

func (r *ConsultationGormRepository) GetAppointment(
	ctx context.Context,
	id uuid.UUID,
) (*models.Appointment, error) {

	var ap models.Appointment
	if err := r.db.WithContext(ctx).First(&ap, "id = ?", id).Error; err != nil {
		return nil, notFound(err, "appointment")
	}
	return &ap, nil
}

func (r *ConsultationGormRepository) CompleteAppointment(
	ctx context.Context,
	id uuid.UUID,
	at time.Time,
) error {

	res := r.db.WithContext(ctx).
		Model(&models.Appointment{}).
		Where("id = ? AND status IN ?", id, domainappt.OpenStatuses()).
		Updates(map[string]any{
			"status":       string(domainappt.StatusCompleted),
			"completed_at": at,
			"updated_at":   at,
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return httperr.ErrBusiness("invalid_state")
	}
	return nil
}

// --------------------------------------------------
// Consultation
// --------------------------------------------------

func (r *ConsultationGormRepository) ConsultationExists(
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

func (r *ConsultationGormRepository) CreateConsultation(
	ctx context.Context,
	c *models.Consultation,
) error {

	if err := r.db.WithContext(ctx).Create(c).Error; err != nil {
		if httperr.IsUniqueViolation(err) {
			return httperr.ErrBusiness("consultation_exists")
		}
		return err
	}
	return nil
}

func (r *ConsultationGormRepository) GetConsultation(
	ctx context.Context,
	id uuid.UUID,
) (*models.Consultation, error) {

	var c models.Consultation
	if err := r.consultationQuery(ctx).First(&c, "consultations.id = ?", id).Error; err != nil {
		return nil, notFound(err, "consultation")
	}
	return &c, nil
}

func (r *ConsultationGormRepository) ListConsultations(
	ctx context.Context,
	f domain.ListFilter,
) ([]models.Consultation, error) {

	q := r.consultationQuery(ctx).
		Joins("JOIN appointments ON appointments.id = consultations.appointment_id")

	if f.ClinicID != uuid.Nil {
		q = q.Where("appointments.clinic_id = ?", f.ClinicID)
	}
	if f.DoctorID != uuid.Nil {
		q = q.Where("appointments.doctor_id = ?", f.DoctorID)
	}
	if f.PatientID != uuid.Nil {
		q = q.Where("appointments.patient_id = ?", f.PatientID)
	}

	var out []models.Consultation
	if err := q.Order("consultations.created_at DESC").Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

func (r *ConsultationGormRepository) consultationQuery(ctx context.Context) *gorm.DB {
	return r.db.WithContext(ctx).
		Preload("Appointment").
		Preload("Appointment.Patient", unscoped).
		Preload("Appointment.Doctor", unscoped).
		Preload("Appointment.Doctor.User", unscoped).
		Preload("Prescriptions").
		Preload("Invoice")
}

// --------------------------------------------------
// Invoice side effect
// --------------------------------------------------

func (r *ConsultationGormRepository) LatestActiveServicePrice(
	ctx context.Context,
	clinicID uuid.UUID,
) (*float64, error) {

	var svc models.Service
	err := r.db.WithContext(ctx).
		Where("clinic_id = ? AND is_active = ?", clinicID, true).
		Order("created_at DESC").
		First(&svc).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &svc.Price, nil
}

func (r *ConsultationGormRepository) InvoiceExistsForConsultation(
	ctx context.Context,
	consultationID uuid.UUID,
) (bool, error) {

	var count int64
	err := r.db.WithContext(ctx).
		Model(&models.Invoice{}).
		Where("consultation_id = ?", consultationID).
		Count(&count).Error
	return count > 0, err
}

func (r *ConsultationGormRepository) LatestPendingInvoice(
	ctx context.Context,
	patientID uuid.UUID,
) (*models.Invoice, error) {

	var inv models.Invoice
	err := r.db.WithContext(ctx).
		Where("patient_id = ? AND status = ?", patientID, string(domaininv.StatusPending)).
		Order("created_at DESC").
		First(&inv).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &inv, nil
}

func (r *ConsultationGormRepository) CreateInvoice(
	ctx context.Context,
	inv *models.Invoice,
) error {
	return r.db.WithContext(ctx).Create(inv).Error
}

// --------------------------------------------------
// Outbox
// --------------------------------------------------

func (r *ConsultationGormRepository) AppendEvent(
	ctx context.Context,
	aggregateType string,
	aggregateID uuid.UUID,
	eventType string,
	payload any,
) error {
	return outbox.Append(r.db.WithContext(ctx), aggregateType, aggregateID.String(), eventType, payload)
}

// Compile-time check
var _ domain.Repository = (*ConsultationGormRepository)(nil)
