package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type Appointment struct {
	ID uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`

	PatientID uuid.UUID `gorm:"type:uuid;index;not null" json:"patient_id"`
	Patient   *Patient  `gorm:"constraint:OnUpdate:CASCADE,OnDelete:RESTRICT;" json:"patient,omitempty"`

	DoctorID uuid.UUID `gorm:"type:uuid;index;not null" json:"doctor_id"`
	Doctor   *Doctor   `gorm:"constraint:OnUpdate:CASCADE,OnDelete:RESTRICT;" json:"doctor,omitempty"`

	ClinicID uuid.UUID `gorm:"type:uuid;index;not null" json:"clinic_id"`

	ScheduledAt time.Time `gorm:"index;not null" json:"scheduled_at"`
	Status      string    `gorm:"size:20;index;not null" json:"status"`
	Notes       string    `gorm:"size:500" json:"notes,omitempty"`

	CompletedAt *time.Time `json:"completed_at,omitempty"`
	CancelledAt *time.Time `json:"cancelled_at,omitempty"`

	Consultation *Consultation `gorm:"foreignKey:AppointmentID" json:"consultation,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (a *Appointment) BeforeCreate(*gorm.DB) error {
	assignID(&a.ID)
	return nil
}
