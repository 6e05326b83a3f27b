package outbox

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/BruksfildServices01/clinic-api/internal/dbtest"
	"github.com/BruksfildServices01/clinic-api/internal/models"
)

type recordingSink struct {
	seen []string
	fail bool
}

func (s *recordingSink) Name() string { return "recording" }

func (s *recordingSink) Handle(_ context.Context, ev models.OutboxEvent) error {
	if s.fail {
		return errors.New("sink down")
	}
	s.seen = append(s.seen, ev.EventType)
	return nil
}

func TestRelay_ProcessesInOrder(t *testing.T) {
	db := dbtest.New(t)
	id := uuid.NewString()
	require.NoError(t, Append(db, AggregateInvoice, id, EventInvoiceCreated, map[string]string{"id": id}))
	require.NoError(t, Append(db, AggregateInvoice, id, EventInvoicePaid, map[string]string{"id": id}))

	sink := &recordingSink{}
	relay := NewRelay(db, zerolog.Nop(), sink)

	n, err := relay.ProcessPending(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, n)
	assert.Equal(t, []string{EventInvoiceCreated, EventInvoicePaid}, sink.seen)

	var pending int64
	require.NoError(t, db.Model(&models.OutboxEvent{}).Where("processed_at IS NULL").Count(&pending).Error)
	assert.Zero(t, pending)

	n, err = relay.ProcessPending(context.Background())
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestRelay_RetriesFailingSink(t *testing.T) {
	db := dbtest.New(t)
	require.NoError(t, Append(db, AggregateInvoice, uuid.NewString(), EventInvoicePaid, struct{}{}))

	sink := &recordingSink{fail: true}
	relay := NewRelay(db, zerolog.Nop(), sink)
	relay.maxRetries = 2

	for i := 0; i < 3; i++ {
		n, err := relay.ProcessPending(context.Background())
		require.NoError(t, err)
		assert.Zero(t, n)
	}

	var ev models.OutboxEvent
	require.NoError(t, db.First(&ev).Error)
	assert.Equal(t, 2, ev.RetryCount)
	assert.Equal(t, "recording: sink down", ev.LastError)
	assert.Nil(t, ev.ProcessedAt)

	sink.fail = false
	n, err := relay.ProcessPending(context.Background())
	require.NoError(t, err)
	assert.Zero(t, n, "events past the retry budget are left for inspection")
}

func TestRelay_NoSinksMarksProcessed(t *testing.T) {
	db := dbtest.New(t)
	require.NoError(t, Append(db, AggregateConsultation, uuid.NewString(), EventConsultationCompleted, struct{}{}))

	n, err := NewRelay(db, zerolog.Nop()).ProcessPending(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}
