package appointment

import "github.com/BruksfildServices01/clinic-api/internal/httperr"

// ===============================
// Appointment Status
// ===============================

type Status string

const (
	StatusScheduled Status = "SCHEDULED"
	StatusConfirmed Status = "CONFIRMED"
	StatusCompleted Status = "COMPLETED"
	StatusCancelled Status = "CANCELLED"
)

func ParseStatus(s string) (Status, error) {
	switch st := Status(s); st {
	case StatusScheduled, StatusConfirmed, StatusCompleted, StatusCancelled:
		return st, nil
	}
	return "", httperr.ErrBusinessf("invalid_status", "unknown appointment status %q", s)
}

// Open reports whether the appointment can still be attended.
func (s Status) Open() bool {
	return s == StatusScheduled || s == StatusConfirmed
}

// OpenStatuses lists the statuses from which an appointment may complete.
func OpenStatuses() []string {
	return []string{string(StatusScheduled), string(StatusConfirmed)}
}

// ===============================
// Validations
// ===============================

func CanConfirm(current Status) error {
	if current != StatusScheduled {
		return httperr.ErrBusiness("invalid_state")
	}
	return nil
}

func CanCancel(current Status) error {
	if !current.Open() {
		return httperr.ErrBusiness("invalid_state")
	}
	return nil
}

func CanComplete(current Status) error {
	if !current.Open() {
		return httperr.ErrBusiness("invalid_state")
	}
	return nil
}

func CanReschedule(current Status) error {
	if !current.Open() {
		return httperr.ErrBusiness("invalid_state")
	}
	return nil
}

func InitialStatus() Status {
	return StatusScheduled
}
