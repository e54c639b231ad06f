package services

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/usazehan/healthcare-admin-dashboard/metrics"
	"github.com/usazehan/healthcare-admin-dashboard/models"
)

// Ingestor validates, stores and broadcasts prediction events regardless of
// which transport delivered them.
type Ingestor struct {
	store EventStore
	cache *CacheService
	log   *zap.Logger
	now   func() time.Time
}

func NewIngestor(store EventStore, cache *CacheService, log *zap.Logger) *Ingestor {
	if log == nil {
		log = zap.NewNop()
	}
	return &Ingestor{store: store, cache: cache, log: log, now: time.Now}
}

// Ingest stores one event. source labels metrics ("http", "mqtt", "grpc").
func (i *Ingestor) Ingest(ctx context.Context, source string, p models.PredictionEventPayload) (*models.PredictionEvent, error) {
	event, err := NewEvent(p, i.now())
	if err != nil {
		metrics.EventsRejected.WithLabelValues(source).Inc()
		return nil, err
	}
	if err := i.store.Record(ctx, &event); err != nil {
		metrics.EventsRejected.WithLabelValues(source).Inc()
		return nil, err
	}
	metrics.EventsIngested.WithLabelValues(source).Inc()

	if err := i.cache.Publish(ctx, PredictionsChannel, event); err != nil {
		i.log.Warn("redis publish failed", zap.String("appointment_id", event.AppointmentID), zap.Error(err))
	}
	return &event, nil
}

func (i *Ingestor) List(ctx context.Context, f EventFilter) ([]models.PredictionEvent, error) {
	return i.store.List(ctx, f)
}
