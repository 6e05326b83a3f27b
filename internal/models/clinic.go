package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Clinic is the tenant boundary: staff users, services and appointments
// all belong to exactly one clinic.
type Clinic struct {
	ID       uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	Name     string    `gorm:"size:120;not null" json:"name"`
	Address  string    `gorm:"size:255" json:"address"`
	Phone    string    `gorm:"size:20" json:"phone"`
	Timezone string    `gorm:"size:64;default:'UTC'" json:"timezone"`

	LogoURL string `gorm:"size:512" json:"logo_url,omitempty"`
	LogoKey string `gorm:"size:255" json:"-"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (c *Clinic) BeforeCreate(*gorm.DB) error {
	assignID(&c.ID)
	return nil
}
