package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type Role string

const (
	RoleAdmin        Role = "ADMIN"
	RoleDoctor       Role = "DOCTOR"
	RoleReceptionist Role = "RECEPTIONIST"
	RolePatient      Role = "PATIENT"
)

func (r Role) Valid() bool {
	switch r {
	case RoleAdmin, RoleDoctor, RoleReceptionist, RolePatient:
		return true
	}
	return false
}

// IsStaff reports whether the role is bound to a clinic.
func (r Role) IsStaff() bool {
	return r == RoleAdmin || r == RoleDoctor || r == RoleReceptionist
}

type User struct {
	ID       uuid.UUID  `gorm:"type:uuid;primaryKey" json:"id"`
	ClinicID *uuid.UUID `gorm:"type:uuid;index" json:"clinic_id"`
	Clinic   *Clinic    `gorm:"constraint:OnUpdate:CASCADE,OnDelete:SET NULL;" json:"clinic,omitempty"`

	Name         string `gorm:"size:100;not null" json:"name"`
	Email        string `gorm:"size:100;uniqueIndex;not null" json:"email"`
	PasswordHash string `gorm:"size:255;not null" json:"-"`
	Role         Role   `gorm:"size:20;not null" json:"role"`

	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`
}

func (u *User) BeforeCreate(*gorm.DB) error {
	assignID(&u.ID)
	return nil
}
