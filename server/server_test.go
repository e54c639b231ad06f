package server

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/usazehan/healthcare-admin-dashboard/config"
	"github.com/usazehan/healthcare-admin-dashboard/models"
	"github.com/usazehan/healthcare-admin-dashboard/registry"
	"github.com/usazehan/healthcare-admin-dashboard/services"
)

func testConfig() *config.Config {
	return &config.Config{
		Service:   config.ModelService,
		Server:    config.ServerConfig{Host: "127.0.0.1", Port: 0},
		CORS:      config.CORSConfig{AllowedOrigins: "*"},
		Analytics: config.AnalyticsConfig{Timeout: time.Second, QueueSize: 4},
	}
}

func TestNewRouter(t *testing.T) {
	r := NewRouter(testConfig(), zap.NewNop(), func() map[string]string {
		return map[string]string{"no_show_prediction": "v3"}
	})

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health", nil))
	if w.Code != http.StatusOK || !strings.Contains(w.Body.String(), `"v3"`) {
		t.Errorf("/health = %d %s", w.Code, w.Body)
	}

	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	if w.Code != http.StatusOK || !strings.Contains(w.Body.String(), "http_requests_total") {
		t.Errorf("/metrics = %d, missing request counter", w.Code)
	}
}

func TestMemoryFallbacks(t *testing.T) {
	ctx := context.Background()
	cfg := testConfig()

	reg, closeReg, err := OpenRegistry(ctx, cfg, zap.NewNop())
	if err != nil {
		t.Fatalf("OpenRegistry: %v", err)
	}
	defer closeReg()
	if _, ok := reg.(*registry.Memory); !ok {
		t.Errorf("registry = %T, want *registry.Memory", reg)
	}

	store, closeStore, err := OpenEventStore(ctx, cfg, zap.NewNop())
	if err != nil {
		t.Fatalf("OpenEventStore: %v", err)
	}
	defer closeStore()
	if _, ok := store.(*services.MemoryEventStore); !ok {
		t.Errorf("store = %T, want *services.MemoryEventStore", store)
	}

	if OpenCache(ctx, cfg, zap.NewNop()).Available() {
		t.Error("cache should be disabled without REDIS_URL")
	}
}

func TestReporterSinks(t *testing.T) {
	cfg := testConfig()
	sinks, cleanup, err := ReporterSinks(cfg, zap.NewNop())
	if err != nil {
		t.Fatalf("ReporterSinks: %v", err)
	}
	cleanup()
	if len(sinks) != 0 {
		t.Errorf("got %d sinks with nothing configured", len(sinks))
	}

	cfg.Analytics.URL = "http://analytics.test/analytics/predictions"
	sinks, cleanup, err = ReporterSinks(cfg, zap.NewNop())
	if err != nil {
		t.Fatalf("ReporterSinks: %v", err)
	}
	cleanup()
	if len(sinks) != 1 || sinks[0].Name() != "http" {
		t.Errorf("sinks = %v, want one http sink", sinks)
	}
}

func TestReportTransportIsExclusive(t *testing.T) {
	tests := []struct {
		name      string
		analytics string
		mqtt      string
		want      string
	}{
		{"nothing", "", "", transportNone},
		{"http only", "http://analytics.test/analytics/predictions", "", transportHTTP},
		{"mqtt only", "", "tcp://broker:1883", transportMQTT},
		{"mqtt replaces http", "http://analytics.test/analytics/predictions", "tcp://broker:1883", transportMQTT},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := testConfig()
			cfg.Analytics.URL = tt.analytics
			cfg.MQTT.URL = tt.mqtt
			if got := reportTransport(cfg); got != tt.want {
				t.Errorf("reportTransport() = %q, want %q", got, tt.want)
			}
		})
	}
}

type fakeMigrator struct{ err error }

func (f fakeMigrator) Migrate(ctx context.Context) error { return f.err }

func TestMigrateOrClose(t *testing.T) {
	closed := false
	err := migrateOrClose(context.Background(), fakeMigrator{err: errors.New("permission denied")}, func() { closed = true })
	if err == nil || !closed {
		t.Errorf("failed migration: err = %v, closed = %v; want error and closed", err, closed)
	}

	closed = false
	if err := migrateOrClose(context.Background(), fakeMigrator{}, func() { closed = true }); err != nil || closed {
		t.Errorf("successful migration: err = %v, closed = %v; want nil and open", err, closed)
	}
}

func TestIngestSink(t *testing.T) {
	store := services.NewMemoryEventStore()
	sink := NewIngestSink(services.NewIngestor(store, nil, nil))
	p := 0.42
	if err := sink.Send(context.Background(), models.PredictionEventPayload{AppointmentID: "a", NoShowProbability: &p}); err != nil {
		t.Fatalf("Send: %v", err)
	}
	events, _ := store.List(context.Background(), services.EventFilter{})
	if len(events) != 1 || events[0].RiskLevel != "Medium" {
		t.Errorf("stored %+v", events)
	}
	if err := sink.Send(context.Background(), models.PredictionEventPayload{}); err == nil {
		t.Error("expected invalid event error")
	}
}

func TestRunStopsOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		done <- Run(ctx, testConfig(), zap.NewNop(), http.NotFoundHandler(), nil)
	}()

	time.Sleep(50 * time.Millisecond)
	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Errorf("Run() = %v, want nil", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("Run did not return after cancel")
	}
}
