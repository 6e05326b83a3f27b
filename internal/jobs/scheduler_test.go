package jobs

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type countingRelay struct {
	runs   atomic.Int32
	purges atomic.Int32
}

func (r *countingRelay) ProcessPending(context.Context) (int, error) {
	r.runs.Add(1)
	return 1, nil
}

func (r *countingRelay) Purge(context.Context, time.Duration) (int64, error) {
	r.purges.Add(1)
	return 0, nil
}

type failingReconciler struct {
	runs  atomic.Int32
	grace atomic.Int64
}

func (r *failingReconciler) Reconcile(_ context.Context, grace time.Duration, _ int) (int, error) {
	r.runs.Add(1)
	r.grace.Store(int64(grace))
	return 0, errors.New("gateway down")
}

func TestScheduler_RunsJobs(t *testing.T) {
	s := New(zerolog.Nop())
	relay := &countingRelay{}
	rec := &failingReconciler{}

	require.NoError(t, s.AddOutboxRelay(relay, 20*time.Millisecond))
	require.NoError(t, s.AddPaymentReconcile(rec, 20*time.Millisecond))

	s.Start()
	defer s.Stop()

	assert.Eventually(t, func() bool {
		return relay.runs.Load() >= 2 && rec.runs.Load() >= 2
	}, 2*time.Second, 10*time.Millisecond)

	// the purge job waits a full day
	assert.Zero(t, relay.purges.Load())
	assert.Equal(t, int64(ReconcileGrace), rec.grace.Load())
}

func TestScheduler_ZeroIntervalDisables(t *testing.T) {
	s := New(zerolog.Nop())
	relay := &countingRelay{}

	require.NoError(t, s.AddOutboxRelay(relay, 0))
	require.NoError(t, s.AddPaymentReconcile(&failingReconciler{}, 0))
	assert.Zero(t, s.cron.Len())

	s.Start()
	s.Stop()
	assert.Zero(t, relay.runs.Load())
}
