package timezone

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLocation(t *testing.T) {
	assert.Equal(t, "America/Sao_Paulo", Location("America/Sao_Paulo").String())
	assert.Equal(t, time.UTC, Location(""))
	assert.Equal(t, time.UTC, Location("Mars/Olympus"))

	assert.True(t, IsValid("Europe/Lisbon"))
	assert.False(t, IsValid(""))
	assert.False(t, IsValid("Mars/Olympus"))
}

func TestDayRange(t *testing.T) {
	loc := Location("America/Sao_Paulo")

	from, to, err := DayRange("2030-01-07", "2030-01-08", loc)
	require.NoError(t, err)
	assert.Equal(t, time.Date(2030, 1, 7, 3, 0, 0, 0, time.UTC), from)
	assert.Equal(t, time.Date(2030, 1, 9, 3, 0, 0, 0, time.UTC), to)

	from, to, err = DayRange("", "2030-01-07", loc)
	require.NoError(t, err)
	assert.True(t, from.IsZero())
	assert.Equal(t, time.Date(2030, 1, 8, 3, 0, 0, 0, time.UTC), to)

	_, _, err = DayRange("07/01/2030", "", loc)
	assert.ErrorIs(t, err, ErrInvalidDay)
}
