package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// WorkingHours is one weekday of a doctor's agenda, in the clinic's
// timezone. Times are HH:MM; the lunch break is optional.
type WorkingHours struct {
	ID       uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	DoctorID uuid.UUID `gorm:"type:uuid;uniqueIndex:idx_working_hours_day;not null" json:"doctor_id"`

	Weekday int `gorm:"uniqueIndex:idx_working_hours_day;not null" json:"weekday"`

	StartTime  string `gorm:"size:5" json:"start_time"`
	EndTime    string `gorm:"size:5" json:"end_time"`
	LunchStart string `gorm:"size:5" json:"lunch_start,omitempty"`
	LunchEnd   string `gorm:"size:5" json:"lunch_end,omitempty"`
	Active     bool   `json:"active"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (w *WorkingHours) BeforeCreate(*gorm.DB) error {
	assignID(&w.ID)
	return nil
}
