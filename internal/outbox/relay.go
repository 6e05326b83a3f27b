package outbox

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"github.com/BruksfildServices01/clinic-api/internal/models"
)

// Sink receives relayed events. Handle must be safe to call again for an
// event it already saw, since a failure in another sink retries the event.
type Sink interface {
	Name() string
	Handle(ctx context.Context, ev models.OutboxEvent) error
}

type Relay struct {
	db         *gorm.DB
	sinks      []Sink
	log        zerolog.Logger
	batchSize  int
	maxRetries int
}

func NewRelay(db *gorm.DB, log zerolog.Logger, sinks ...Sink) *Relay {
	return &Relay{
		db:         db,
		sinks:      sinks,
		log:        log,
		batchSize:  100,
		maxRetries: 5,
	}
}

// ProcessPending hands every unprocessed event to the sinks, oldest first,
// and returns how many were marked processed.
func (r *Relay) ProcessPending(ctx context.Context) (int, error) {
	var events []models.OutboxEvent
	if err := r.db.WithContext(ctx).
		Where("processed_at IS NULL AND retry_count < ?", r.maxRetries).
		Order("id ASC").
		Limit(r.batchSize).
		Find(&events).Error; err != nil {
		return 0, fmt.Errorf("load pending events: %w", err)
	}

	processed := 0
	for _, ev := range events {
		if err := r.dispatch(ctx, ev); err != nil {
			r.log.Warn().
				Err(err).
				Uint("event_id", ev.ID).
				Str("event_type", ev.EventType).
				Int("retry_count", ev.RetryCount+1).
				Msg("outbox event failed")

			if err := r.markFailed(ctx, ev.ID, err); err != nil {
				return processed, err
			}
			continue
		}

		if err := r.markProcessed(ctx, ev.ID); err != nil {
			return processed, err
		}
		processed++
	}

	if processed > 0 {
		r.log.Debug().Int("count", processed).Msg("outbox events relayed")
	}
	return processed, nil
}

func (r *Relay) dispatch(ctx context.Context, ev models.OutboxEvent) error {
	for _, s := range r.sinks {
		if err := s.Handle(ctx, ev); err != nil {
			return fmt.Errorf("%s: %w", s.Name(), err)
		}
	}
	return nil
}

func (r *Relay) markProcessed(ctx context.Context, id uint) error {
	now := time.Now().UTC()
	return r.db.WithContext(ctx).
		Model(&models.OutboxEvent{}).
		Where("id = ?", id).
		Updates(map[string]any{"processed_at": now, "last_error": ""}).Error
}

func (r *Relay) markFailed(ctx context.Context, id uint, cause error) error {
	return r.db.WithContext(ctx).
		Model(&models.OutboxEvent{}).
		Where("id = ?", id).
		Updates(map[string]any{
			"retry_count": gorm.Expr("retry_count + 1"),
			"last_error":  cause.Error(),
		}).Error
}

// Purge deletes processed events older than retention.
func (r *Relay) Purge(ctx context.Context, retention time.Duration) (int64, error) {
	res := r.db.WithContext(ctx).
		Where("processed_at IS NOT NULL AND processed_at < ?", time.Now().UTC().Add(-retention)).
		Delete(&models.OutboxEvent{})
	return res.RowsAffected, res.Error
}
