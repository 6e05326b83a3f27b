package audit

import (
	"testing"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/BruksfildServices01/clinic-api/internal/dbtest"
	"github.com/BruksfildServices01/clinic-api/internal/models"
)

func TestDispatcher_WritesOnClose(t *testing.T) {
	db := dbtest.New(t)
	d := NewDispatcher(New(db), zerolog.Nop())

	clinicID := uuid.New()
	entityID := uuid.New()
	d.Dispatch(Event{
		ClinicID: &clinicID,
		Action:   "invoice_created",
		Entity:   "invoice",
		EntityID: &entityID,
		Metadata: map[string]any{"amount": 80},
	})
	d.Close()

	var logs []models.AuditLog
	require.NoError(t, db.Find(&logs).Error)
	require.Len(t, logs, 1)
	assert.Equal(t, "invoice_created", logs[0].Action)
	assert.Equal(t, entityID, *logs[0].EntityID)
	assert.JSONEq(t, `{"amount":80}`, logs[0].Metadata)
}

func TestDispatcher_NilIsNoop(t *testing.T) {
	var d *Dispatcher
	assert.NotPanics(t, func() {
		d.Dispatch(Event{Action: "x"})
		d.Close()
	})
}
