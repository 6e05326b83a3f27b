package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type Doctor struct {
	ID     uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	UserID uuid.UUID `gorm:"type:uuid;uniqueIndex;not null" json:"user_id"`
	User   *User     `gorm:"constraint:OnUpdate:CASCADE,OnDelete:CASCADE;" json:"user,omitempty"`

	ClinicID uuid.UUID `gorm:"type:uuid;index;not null" json:"clinic_id"`

	Specialization string `gorm:"size:120;not null" json:"specialization"`
	LicenseNumber  string `gorm:"size:60" json:"license_number,omitempty"`

	Appointments []Appointment `gorm:"foreignKey:DoctorID" json:"appointments,omitempty"`

	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`
}

func (d *Doctor) BeforeCreate(*gorm.DB) error {
	assignID(&d.ID)
	return nil
}
