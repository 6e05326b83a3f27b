package handlers

import (
	"time"

	"github.com/BruksfildServices01/clinic-api/internal/models"
	"github.com/BruksfildServices01/clinic-api/internal/timezone"
)

// --------------------------------------------------
// Timezone per clinic
// --------------------------------------------------

func locationFromClinic(clinic *models.Clinic) *time.Location {
	if clinic == nil {
		return timezone.Location(timezone.DefaultTimezone)
	}
	return timezone.Location(clinic.Timezone)
}

// parseBirthDate accepts a plain date or an RFC3339 timestamp.
func parseBirthDate(s string) (*time.Time, error) {
	if s == "" {
		return nil, nil
	}
	d, err := time.Parse("2006-01-02", s)
	if err != nil {
		ts, err2 := time.Parse(time.RFC3339, s)
		if err2 != nil {
			return nil, err
		}
		d = time.Date(ts.Year(), ts.Month(), ts.Day(), 0, 0, 0, 0, time.UTC)
	}
	if d.After(time.Now()) {
		return nil, errFutureDate
	}
	return &d, nil
}
