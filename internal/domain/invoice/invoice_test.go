package invoice

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/BruksfildServices01/clinic-api/internal/httperr"
)

func TestAmountFor(t *testing.T) {
	price := 129.999
	assert.Equal(t, 130.0, AmountFor(&price, 50))
	assert.Equal(t, 50.0, AmountFor(nil, 50))

	zero := 0.0
	assert.Equal(t, 0.0, AmountFor(&zero, 50))
}

func TestValidateAmount(t *testing.T) {
	assert.NoError(t, ValidateAmount(0))
	assert.NoError(t, ValidateAmount(80.5))
	assert.True(t, httperr.IsBusiness(ValidateAmount(-1), "invalid_amount"))
	assert.True(t, httperr.IsBusiness(ValidateAmount(math.NaN()), "invalid_amount"))
	assert.True(t, httperr.IsBusiness(ValidateAmount(1e9), "invalid_amount"))
}

func TestToMinorUnits(t *testing.T) {
	assert.Equal(t, int64(1999), ToMinorUnits(19.99))
	assert.Equal(t, int64(5000), ToMinorUnits(50))
	assert.Equal(t, int64(1), ToMinorUnits(0.005))
}

func TestStatusRules(t *testing.T) {
	assert.NoError(t, CanPay(StatusPending))
	assert.Error(t, CanPay(StatusPaid))
	assert.Error(t, CanPay(StatusCancelled))

	assert.NoError(t, CanCancel(StatusPending))
	assert.Error(t, CanCancel(StatusPaid))

	assert.NoError(t, CanDelete(StatusPending))
	assert.NoError(t, CanDelete(StatusCancelled))
	assert.Error(t, CanDelete(StatusPaid))

	_, err := ParseStatus("paid")
	assert.True(t, httperr.IsBusiness(err, "invalid_status"))
}
