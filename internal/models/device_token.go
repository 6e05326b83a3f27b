package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// DeviceToken is a push registration for one of a user's devices.
type DeviceToken struct {
	ID       uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	UserID   uuid.UUID `gorm:"type:uuid;index;not null" json:"user_id"`
	Token    string    `gorm:"size:512;uniqueIndex;not null" json:"token"`
	Platform string    `gorm:"size:20" json:"platform,omitempty"`

	CreatedAt time.Time `json:"created_at"`
}

func (d *DeviceToken) BeforeCreate(*gorm.DB) error {
	assignID(&d.ID)
	return nil
}
