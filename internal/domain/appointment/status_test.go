package appointment

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/BruksfildServices01/clinic-api/internal/httperr"
	"github.com/BruksfildServices01/clinic-api/internal/models"
)

func TestTransition(t *testing.T) {
	now := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)

	cases := []struct {
		name    string
		from    Status
		to      Status
		errCode string
	}{
		{"confirm scheduled", StatusScheduled, StatusConfirmed, ""},
		{"cancel scheduled", StatusScheduled, StatusCancelled, ""},
		{"cancel confirmed", StatusConfirmed, StatusCancelled, ""},
		{"same status is a no-op", StatusConfirmed, StatusConfirmed, ""},
		{"complete through update", StatusScheduled, StatusCompleted, "invalid_transition"},
		{"back to scheduled", StatusConfirmed, StatusScheduled, "invalid_transition"},
		{"cancel completed", StatusCompleted, StatusCancelled, "invalid_state"},
		{"confirm cancelled", StatusCancelled, StatusConfirmed, "invalid_state"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			ap := &models.Appointment{Status: string(tc.from)}
			err := Transition(ap, tc.to, now)
			if tc.errCode != "" {
				assert.True(t, httperr.IsBusiness(err, tc.errCode), "got %v", err)
				assert.Equal(t, string(tc.from), ap.Status)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, string(tc.to), ap.Status)
		})
	}
}

func TestCancel_StampsTime(t *testing.T) {
	now := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	ap := &models.Appointment{Status: string(StatusScheduled)}

	require.NoError(t, Cancel(ap, now))
	require.NotNil(t, ap.CancelledAt)
	assert.Equal(t, now, *ap.CancelledAt)
}

func TestReschedule_OnlyWhileOpen(t *testing.T) {
	at := time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)

	open := &models.Appointment{Status: string(StatusConfirmed)}
	require.NoError(t, Reschedule(open, at))
	assert.Equal(t, at, open.ScheduledAt)

	done := &models.Appointment{Status: string(StatusCompleted)}
	assert.True(t, httperr.IsBusiness(Reschedule(done, at), "invalid_state"))
}

func TestParseStatus(t *testing.T) {
	s, err := ParseStatus("CONFIRMED")
	require.NoError(t, err)
	assert.Equal(t, StatusConfirmed, s)

	_, err = ParseStatus("confirmed")
	assert.True(t, httperr.IsBusiness(err, "invalid_status"))
}
