package repository

import (
	"errors"

	"gorm.io/gorm"

	"github.com/BruksfildServices01/clinic-api/internal/httperr"
)

func notFound(err error, entity string) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return httperr.ErrNotFound(entity)
	}
	return err
}

func unscoped(db *gorm.DB) *gorm.DB {
	return db.Unscoped()
}

// appointmentLinks loads only the columns that tie a patient to clinics
// and doctors.
func appointmentLinks(db *gorm.DB) *gorm.DB {
	return db.Select("id", "patient_id", "clinic_id", "doctor_id")
}
