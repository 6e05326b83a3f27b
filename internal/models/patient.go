package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Patient is not clinic scoped. RegisteredClinicID only records which
// clinic's staff created the record, when it was not self-registered.
type Patient struct {
	ID     uuid.UUID  `gorm:"type:uuid;primaryKey" json:"id"`
	UserID *uuid.UUID `gorm:"type:uuid;uniqueIndex" json:"user_id,omitempty"`
	User   *User      `gorm:"constraint:OnUpdate:CASCADE,OnDelete:CASCADE;" json:"-"`

	FirstName   string     `gorm:"size:80;not null" json:"first_name"`
	LastName    string     `gorm:"size:80;not null" json:"last_name"`
	Phone       string     `gorm:"size:20" json:"phone"`
	Email       string     `gorm:"size:100" json:"email,omitempty"`
	DateOfBirth *time.Time `gorm:"type:date" json:"date_of_birth,omitempty"`
	Address     string     `gorm:"size:255" json:"address,omitempty"`

	RegisteredClinicID *uuid.UUID `gorm:"type:uuid;index" json:"registered_clinic_id,omitempty"`

	Appointments []Appointment `gorm:"foreignKey:PatientID" json:"appointments,omitempty"`

	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`
}

func (p *Patient) BeforeCreate(*gorm.DB) error {
	assignID(&p.ID)
	return nil
}

func (p *Patient) FullName() string {
	return p.FirstName + " " + p.LastName
}
