package invoice

import "github.com/BruksfildServices01/clinic-api/internal/httperr"

// ===============================
// Invoice Status
// ===============================

type Status string

const (
	StatusPending   Status = "PENDING"
	StatusPaid      Status = "PAID"
	StatusCancelled Status = "CANCELLED"
)

func ParseStatus(s string) (Status, error) {
	switch st := Status(s); st {
	case StatusPending, StatusPaid, StatusCancelled:
		return st, nil
	}
	return "", httperr.ErrBusinessf("invalid_status", "unknown invoice status %q", s)
}

// ===============================
// Validations
// ===============================

func CanPay(current Status) error {
	if current != StatusPending {
		return httperr.ErrBusiness("invalid_state")
	}
	return nil
}

func CanCancel(current Status) error {
	if current != StatusPending {
		return httperr.ErrBusiness("invalid_state")
	}
	return nil
}

// CanChangeAmount allows repricing while nothing was charged.
func CanChangeAmount(current Status) error {
	if current != StatusPending {
		return httperr.ErrBusiness("invalid_state")
	}
	return nil
}

func CanDelete(current Status) error {
	if current == StatusPaid {
		return httperr.ErrBusinessf("invalid_state", "paid invoices cannot be deleted")
	}
	return nil
}
