package appointment

import (
	"time"

	"github.com/BruksfildServices01/clinic-api/internal/httperr"
	"github.com/BruksfildServices01/clinic-api/internal/models"
)

// ===============================
// Domain Actions
// ===============================

func Confirm(ap *models.Appointment) error {
	if err := CanConfirm(Status(ap.Status)); err != nil {
		return err
	}

	ap.Status = string(StatusConfirmed)
	return nil
}

func Cancel(ap *models.Appointment, now time.Time) error {
	if err := CanCancel(Status(ap.Status)); err != nil {
		return err
	}

	ap.Status = string(StatusCancelled)
	ap.CancelledAt = &now
	return nil
}

func Complete(ap *models.Appointment, now time.Time) error {
	if err := CanComplete(Status(ap.Status)); err != nil {
		return err
	}

	ap.Status = string(StatusCompleted)
	ap.CompletedAt = &now
	return nil
}

func Reschedule(ap *models.Appointment, at time.Time) error {
	if err := CanReschedule(Status(ap.Status)); err != nil {
		return err
	}

	ap.ScheduledAt = at
	return nil
}

// Transition applies a status change requested through an update.
// COMPLETED is only reachable by recording a consultation.
func Transition(ap *models.Appointment, target Status, now time.Time) error {
	if Status(ap.Status) == target {
		return nil
	}

	switch target {
	case StatusConfirmed:
		return Confirm(ap)
	case StatusCancelled:
		return Cancel(ap, now)
	case StatusCompleted:
		return httperr.ErrBusinessf("invalid_transition", "appointments are completed by recording a consultation")
	}
	return httperr.ErrBusiness("invalid_transition")
}
