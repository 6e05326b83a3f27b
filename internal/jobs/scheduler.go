// Package jobs runs the periodic background work of the API process.
package jobs

import (
	"context"
	"fmt"
	"time"

	"github.com/go-co-op/gocron"
	"github.com/rs/zerolog"
)

type OutboxRelay interface {
	ProcessPending(ctx context.Context) (int, error)
	Purge(ctx context.Context, retention time.Duration) (int64, error)
}

type PaymentReconciler interface {
	Reconcile(ctx context.Context, grace time.Duration, limit int) (int, error)
}

const (
	jobTimeout = 2 * time.Minute

	ReconcileGrace = time.Minute
	reconcileBatch = 50

	outboxRetention = 30 * 24 * time.Hour
)

// Scheduler wraps gocron. Every job runs in singleton mode: a tick that
// fires while the previous run is still busy is skipped.
type Scheduler struct {
	cron *gocron.Scheduler
	log  zerolog.Logger
	ctx  context.Context
	stop context.CancelFunc
}

func New(log zerolog.Logger) *Scheduler {
	ctx, cancel := context.WithCancel(context.Background())
	s := gocron.NewScheduler(time.UTC)
	s.SingletonModeAll()
	return &Scheduler{cron: s, log: log.With().Str("component", "jobs").Logger(), ctx: ctx, stop: cancel}
}

// ======================================================
// JOBS
// ======================================================

// AddOutboxRelay polls the outbox every interval. Zero disables it.
func (s *Scheduler) AddOutboxRelay(relay OutboxRelay, every time.Duration) error {
	if every <= 0 {
		s.log.Info().Msg("outbox relay disabled")
		return nil
	}

	if err := s.add("outbox_relay", every, func(ctx context.Context) error {
		n, err := relay.ProcessPending(ctx)
		if n > 0 {
			s.log.Debug().Int("processed", n).Msg("outbox relayed")
		}
		return err
	}); err != nil {
		return err
	}

	return s.add("outbox_purge", 24*time.Hour, func(ctx context.Context) error {
		n, err := relay.Purge(ctx, outboxRetention)
		if n > 0 {
			s.log.Info().Int64("purged", n).Msg("outbox purged")
		}
		return err
	})
}

// AddPaymentReconcile re-checks open checkouts every interval. Zero
// disables it.
func (s *Scheduler) AddPaymentReconcile(r PaymentReconciler, every time.Duration) error {
	if every <= 0 || r == nil {
		s.log.Info().Msg("payment reconciliation disabled")
		return nil
	}

	return s.add("payment_reconcile", every, func(ctx context.Context) error {
		n, err := r.Reconcile(ctx, ReconcileGrace, reconcileBatch)
		if n > 0 {
			s.log.Info().Int("settled", n).Msg("payments reconciled")
		}
		return err
	})
}

func (s *Scheduler) add(name string, every time.Duration, run func(ctx context.Context) error) error {
	_, err := s.cron.Every(every).WaitForSchedule().Tag(name).Do(func() {
		ctx, cancel := context.WithTimeout(s.ctx, jobTimeout)
		defer cancel()

		if err := run(ctx); err != nil {
			s.log.Error().Err(err).Str("job", name).Msg("job failed")
		}
	})
	if err != nil {
		return fmt.Errorf("schedule %s: %w", name, err)
	}
	return nil
}

// ======================================================
// LIFECYCLE
// ======================================================

func (s *Scheduler) Start() {
	s.cron.StartAsync()
	s.log.Info().Int("jobs", s.cron.Len()).Msg("scheduler started")
}

// Stop cancels running jobs and waits for the scheduler to halt.
func (s *Scheduler) Stop() {
	s.stop()
	s.cron.Stop()
}
