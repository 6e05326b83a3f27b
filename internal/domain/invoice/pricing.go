package invoice

import (
	"math"

	"github.com/BruksfildServices01/clinic-api/internal/httperr"
)

// AmountFor picks the consultation fee: the clinic's current service price
// when there is one, the configured fallback otherwise.
func AmountFor(servicePrice *float64, fallback float64) float64 {
	if servicePrice != nil {
		return Round(*servicePrice)
	}
	return Round(fallback)
}

// Round keeps two decimals, matching the decimal(10,2) column.
func Round(amount float64) float64 {
	return math.Round(amount*100) / 100
}

func ValidateAmount(amount float64) error {
	if amount < 0 || math.IsNaN(amount) || math.IsInf(amount, 0) {
		return httperr.ErrBusinessf("invalid_amount", "amount must be a non-negative number")
	}
	if amount >= 1e8 {
		return httperr.ErrBusinessf("invalid_amount", "amount is too large")
	}
	return nil
}

// FromMinorUnits converts cents back to an amount.
func FromMinorUnits(cents int64) float64 {
	return float64(cents) / 100
}

// SameAmount compares two amounts at cent precision.
func SameAmount(a, b float64) bool {
	return ToMinorUnits(a) == ToMinorUnits(b)
}

// ToMinorUnits converts an amount to the smallest currency unit (cents).
func ToMinorUnits(amount float64) int64 {
	return int64(math.Round(amount * 100))
}
