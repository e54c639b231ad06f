package server

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/usazehan/healthcare-admin-dashboard/collector"
	"github.com/usazehan/healthcare-admin-dashboard/config"
	"github.com/usazehan/healthcare-admin-dashboard/models"
	"github.com/usazehan/healthcare-admin-dashboard/registry"
	"github.com/usazehan/healthcare-admin-dashboard/reporter"
	"github.com/usazehan/healthcare-admin-dashboard/services"
)

// OpenRegistry returns the Postgres registry when a database is configured,
// otherwise an in-memory one. The returned func releases the pool.
func OpenRegistry(ctx context.Context, cfg *config.Config, log *zap.Logger) (registry.Registry, func(), error) {
	if !cfg.Database.Enabled() {
		log.Warn("no database configured, model versions are kept in memory")
		return registry.NewMemory(), func() {}, nil
	}
	pool, err := registry.OpenPool(ctx, cfg.Database.GetDSN(), log)
	if err != nil {
		return nil, nil, err
	}
	reg := registry.NewPostgres(pool)
	if err := migrateOrClose(ctx, reg, pool.Close); err != nil {
		return nil, nil, err
	}
	return reg, pool.Close, nil
}

// OpenEventStore returns the gorm event store when a database is configured,
// otherwise an in-memory one.
func OpenEventStore(ctx context.Context, cfg *config.Config, log *zap.Logger) (services.EventStore, func(), error) {
	if !cfg.Database.Enabled() {
		log.Warn("no database configured, prediction events are kept in memory")
		return services.NewMemoryEventStore(), func() {}, nil
	}
	db, err := services.OpenGorm(ctx, cfg.Database.GetDSN(), log)
	if err != nil {
		return nil, nil, err
	}
	store := services.NewGormEventStore(db)
	closeFn := func() {
		if sqlDB, err := db.DB(); err == nil {
			_ = sqlDB.Close()
		}
	}
	if err := migrateOrClose(ctx, store, closeFn); err != nil {
		return nil, nil, err
	}
	return store, closeFn, nil
}

type migrator interface {
	Migrate(ctx context.Context) error
}

// migrateOrClose releases the connection when the schema cannot be applied.
func migrateOrClose(ctx context.Context, m migrator, closeFn func()) error {
	if err := m.Migrate(ctx); err != nil {
		closeFn()
		return fmt.Errorf("migrate: %w", err)
	}
	return nil
}

// OpenCache connects to redis when configured. A failed connection is logged
// and the service continues without a cache.
func OpenCache(ctx context.Context, cfg *config.Config, log *zap.Logger) *services.CacheService {
	cache, err := services.NewCacheService(ctx, cfg.Redis.URL, log)
	if err != nil {
		log.Warn("redis unavailable, continuing without cache", zap.Error(err))
	}
	return cache
}

const (
	transportNone = ""
	transportHTTP = "http"
	transportMQTT = "mqtt"
)

// reportTransport picks one transport so each prediction reaches the
// analytics log once. MQTT wins over the HTTP endpoint when both are set.
func reportTransport(cfg *config.Config) string {
	switch {
	case cfg.MQTT.URL != "":
		return transportMQTT
	case cfg.Analytics.URL != "":
		return transportHTTP
	default:
		return transportNone
	}
}

// ReporterSinks builds the sink prediction events are forwarded to: an MQTT
// topic when MQTT_URL is set, otherwise the analytics HTTP endpoint when
// ANALYTICS_URL is set. The returned func disconnects MQTT.
func ReporterSinks(cfg *config.Config, log *zap.Logger) ([]reporter.Sink, func(), error) {
	var sinks []reporter.Sink
	cleanup := func() {}

	switch reportTransport(cfg) {
	case transportHTTP:
		sinks = append(sinks, reporter.NewHTTPSink(cfg.Analytics.URL, &http.Client{Timeout: cfg.Analytics.Timeout}))
	case transportMQTT:
		if cfg.Analytics.URL != "" {
			log.Info("MQTT_URL set, not posting predictions to ANALYTICS_URL", zap.String("analytics_url", cfg.Analytics.URL))
		}
		opts := collector.ClientOptions(cfg.MQTT.URL, cfg.Service, log, nil)
		client, err := collector.Connect(opts, 10*time.Second)
		if err != nil {
			return nil, nil, fmt.Errorf("mqtt reporter: %w", err)
		}
		topic := collector.PublishTopic(cfg.MQTT.Topic, cfg.Service)
		sinks = append(sinks, reporter.NewMQTTSink(client, topic))
		cleanup = func() { client.Disconnect(250) }
		log.Info("reporting predictions over mqtt", zap.String("topic", topic))
	}
	return sinks, cleanup, nil
}

// NewReporter starts a reporter over ReporterSinks.
func NewReporter(cfg *config.Config, log *zap.Logger) (*reporter.Reporter, func(), error) {
	sinks, cleanup, err := ReporterSinks(cfg, log)
	if err != nil {
		return nil, nil, err
	}
	rep := reporter.New(log, cfg.Analytics.Timeout, cfg.Analytics.QueueSize, sinks...)
	if !rep.Enabled() {
		log.Info("prediction reporting disabled")
	}
	return rep, cleanup, nil
}

// PreloadModel loads the configured model version so the first request does
// not pay for it. A missing version is not fatal.
func PreloadModel(ctx context.Context, cfg *config.Config, manager *services.ModelManager, log *zap.Logger) {
	if cfg.Model.Name == "" {
		return
	}
	if err := manager.Load(ctx, cfg.Model.Name, cfg.Model.Version); err != nil {
		log.Warn("model not preloaded",
			zap.String("model", cfg.Model.Name),
			zap.String("version", cfg.Model.Version),
			zap.Error(err))
	}
}

// IngestSink stores reported events through a local ingestor, for a service
// that owns the event log itself.
type IngestSink struct {
	ingestor *services.Ingestor
}

func NewIngestSink(ingestor *services.Ingestor) *IngestSink {
	return &IngestSink{ingestor: ingestor}
}

func (s *IngestSink) Name() string { return "local" }

func (s *IngestSink) Send(ctx context.Context, e models.PredictionEventPayload) error {
	_, err := s.ingestor.Ingest(ctx, "local", e)
	return err
}
