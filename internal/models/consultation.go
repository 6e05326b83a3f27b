package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Consultation is created once per appointment and is immutable afterwards.
type Consultation struct {
	ID            uuid.UUID    `gorm:"type:uuid;primaryKey" json:"id"`
	AppointmentID uuid.UUID    `gorm:"type:uuid;uniqueIndex;not null" json:"appointment_id"`
	Appointment   *Appointment `gorm:"constraint:OnUpdate:CASCADE,OnDelete:CASCADE;" json:"appointment,omitempty"`

	Diagnosis string `gorm:"type:text;not null" json:"diagnosis"`
	Treatment string `gorm:"type:text;not null" json:"treatment"`

	Prescriptions []Prescription `gorm:"foreignKey:ConsultationID" json:"prescriptions,omitempty"`
	Invoice       *Invoice       `gorm:"foreignKey:ConsultationID" json:"invoice,omitempty"`

	CreatedAt time.Time `json:"created_at"`
}

func (c *Consultation) BeforeCreate(*gorm.DB) error {
	assignID(&c.ID)
	return nil
}
