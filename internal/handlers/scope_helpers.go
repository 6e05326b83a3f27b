package handlers

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/BruksfildServices01/clinic-api/internal/authz"
	"github.com/BruksfildServices01/clinic-api/internal/models"
)

func withDeleted(db *gorm.DB) *gorm.DB {
	return db.Unscoped()
}

// appointmentsVisibleTo limits nested appointment preloads to what the
// principal could list through /appointments.
func appointmentsVisibleTo(policy *authz.Policy, pr authz.Principal) func(db *gorm.DB) *gorm.DB {
	f, err := policy.ListFilter(pr, authz.EntityAppointment)
	return func(db *gorm.DB) *gorm.DB {
		if err != nil {
			return db.Where("1 = 0")
		}
		if f.ClinicID != uuid.Nil {
			db = db.Where("clinic_id = ?", f.ClinicID)
		}
		if f.DoctorID != uuid.Nil {
			db = db.Where("doctor_id = ?", f.DoctorID)
		}
		if f.PatientID != uuid.Nil {
			db = db.Where("patient_id = ?", f.PatientID)
		}
		return db.Order("scheduled_at DESC")
	}
}

// patientResource resolves the clinics and doctors a patient is linked
// to through every appointment, whatever its status.
func patientResource(ctx context.Context, db *gorm.DB, p *models.Patient) (authz.Resource, error) {
	var links []models.Appointment
	if err := db.WithContext(ctx).
		Select("clinic_id", "doctor_id", "patient_id").
		Where("patient_id = ?", p.ID).
		Find(&links).Error; err != nil {
		return authz.Resource{}, err
	}
	return authz.PatientResource(p, links), nil
}

// scopePatients applies a list filter to a patients query.
func scopePatients(q *gorm.DB, f authz.Filter) *gorm.DB {
	if f.ClinicID != uuid.Nil {
		q = q.Where(
			"(patients.registered_clinic_id = ? OR patients.id IN (?))",
			f.ClinicID,
			q.Session(&gorm.Session{NewDB: true}).
				Model(&models.Appointment{}).
				Select("patient_id").
				Where("clinic_id = ?", f.ClinicID),
		)
	}
	if f.DoctorID != uuid.Nil {
		q = q.Where(
			"patients.id IN (?)",
			q.Session(&gorm.Session{NewDB: true}).
				Model(&models.Appointment{}).
				Select("patient_id").
				Where("doctor_id = ?", f.DoctorID),
		)
	}
	if f.PatientID != uuid.Nil {
		q = q.Where("patients.id = ?", f.PatientID)
	}
	return q
}
