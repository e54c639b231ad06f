package config

import (
	"strings"
	"testing"
	"time"

	"github.com/spf13/viper"
)

var configKeys = []string{
	"SERVICE_HOST", "SERVER_PORT", "GRPC_PORT", "GRPC_MAX_STREAMS",
	"DB_DSN", "DB_HOST", "DB_PORT", "DB_USER", "DB_PASSWORD", "DB_NAME", "DB_SSLMODE",
	"REDIS_URL", "MQTT_URL", "MQTT_TOPIC",
	"ANALYTICS_URL", "ANALYTICS_TIMEOUT_MS", "REPORTER_QUEUE_SIZE",
	"ML_SERVICE_ADDR", "ML_SERVICE_TIMEOUT_MS", "MODEL_NAME", "MODEL_VERSION",
	"JWT_SECRET", "JWT_EXPIRY_HOURS", "AUTH_CLIENT_ID", "AUTH_CLIENT_SECRET_HASH",
	"CORS_ALLOWED_ORIGINS", "LOG_LEVEL", "LOG_FORMAT",
}

// clearEnv blanks every key LoadConfig reads. Empty values count as unset.
func clearEnv(t *testing.T) {
	t.Helper()
	for _, key := range configKeys {
		t.Setenv(key, "")
	}
}

func TestGetDSN(t *testing.T) {
	db := DatabaseConfig{
		Host:     "localhost",
		Port:     5432,
		User:     "healthcare",
		Password: "secret",
		Name:     "healthcare",
		SSLMode:  "disable",
	}
	dsn := db.GetDSN()

	expected := "host=localhost port=5432 user=healthcare password=secret dbname=healthcare sslmode=disable"
	if dsn != expected {
		t.Errorf("GetDSN() = %q, want %q", dsn, expected)
	}
}

func TestGetDSNPrefersURL(t *testing.T) {
	db := DatabaseConfig{
		URL:     "postgres://ml:pw@db.example.com:5433/models",
		Host:    "ignored",
		Port:    5432,
		SSLMode: "require",
	}
	if got := db.GetDSN(); got != db.URL {
		t.Errorf("GetDSN() = %q, want %q", got, db.URL)
	}
	if !db.Enabled() {
		t.Error("Enabled() should be true when URL is set")
	}
	if (DatabaseConfig{}).Enabled() {
		t.Error("Enabled() should be false for empty config")
	}
}

func TestGetIntEnv(t *testing.T) {
	t.Run("uses default when unset", func(t *testing.T) {
		t.Setenv("TEST_INT_VAR", "")
		v := viper.New()
		v.AutomaticEnv()
		v.SetDefault("TEST_INT_VAR", 8080)
		got, err := getIntEnv(v, "TEST_INT_VAR")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if got != 8080 {
			t.Errorf("getIntEnv() = %d, want %d", got, 8080)
		}
	})

	t.Run("parses valid int", func(t *testing.T) {
		t.Setenv("TEST_INT_VAR", " 9090 ")
		v := viper.New()
		v.AutomaticEnv()
		got, err := getIntEnv(v, "TEST_INT_VAR")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if got != 9090 {
			t.Errorf("getIntEnv() = %d, want %d", got, 9090)
		}
	})

	t.Run("error on invalid int", func(t *testing.T) {
		t.Setenv("TEST_INT_VAR", "not_int")
		v := viper.New()
		v.AutomaticEnv()
		_, err := getIntEnv(v, "TEST_INT_VAR")
		if err == nil {
			t.Error("expected error for invalid int value")
		}
		if err != nil && !strings.Contains(err.Error(), "TEST_INT_VAR") {
			t.Errorf("error should name the key, got %v", err)
		}
	})
}

func TestLoadConfigServiceDefaults(t *testing.T) {
	tests := []struct {
		service      string
		port         int
		grpcPort     int
		model        string
		analyticsURL string
	}{
		{ModelService, 8000, 50051, "no_show_prediction", ""},
		{AnalyticsService, 8001, 50052, "analytics_model", ""},
		{PredictionService, 8002, 0, "no_show_prediction", "http://localhost:8001/analytics/predictions"},
	}
	for _, tt := range tests {
		t.Run(tt.service, func(t *testing.T) {
			clearEnv(t)

			cfg, err := LoadConfig(tt.service)
			if err != nil {
				t.Fatalf("LoadConfig() error: %v", err)
			}
			if cfg.Service != tt.service {
				t.Errorf("Service = %q, want %q", cfg.Service, tt.service)
			}
			if cfg.Server.Port != tt.port {
				t.Errorf("Server.Port = %d, want %d", cfg.Server.Port, tt.port)
			}
			if cfg.GRPC.Port != tt.grpcPort {
				t.Errorf("GRPC.Port = %d, want %d", cfg.GRPC.Port, tt.grpcPort)
			}
			if cfg.Model.Name != tt.model {
				t.Errorf("Model.Name = %q, want %q", cfg.Model.Name, tt.model)
			}
			if cfg.Analytics.URL != tt.analyticsURL {
				t.Errorf("Analytics.URL = %q, want %q", cfg.Analytics.URL, tt.analyticsURL)
			}
		})
	}
}

func TestLoadConfigDefaults(t *testing.T) {
	clearEnv(t)

	cfg, err := LoadConfig(ModelService)
	if err != nil {
		t.Fatalf("LoadConfig() error: %v", err)
	}

	if cfg.Server.Addr() != "0.0.0.0:8000" {
		t.Errorf("Server.Addr() = %q, want %q", cfg.Server.Addr(), "0.0.0.0:8000")
	}
	if cfg.GRPC.MaxStreams != 10 {
		t.Errorf("GRPC.MaxStreams = %d, want 10", cfg.GRPC.MaxStreams)
	}
	if cfg.Database.Enabled() {
		t.Error("database should be disabled by default")
	}
	if cfg.Database.Port != 5432 {
		t.Errorf("Database.Port = %d, want 5432", cfg.Database.Port)
	}
	if cfg.Analytics.Timeout != 2*time.Second {
		t.Errorf("Analytics.Timeout = %v, want 2s", cfg.Analytics.Timeout)
	}
	if cfg.Analytics.QueueSize != 256 {
		t.Errorf("Analytics.QueueSize = %d, want 256", cfg.Analytics.QueueSize)
	}
	if cfg.Model.Version != "latest" {
		t.Errorf("Model.Version = %q, want %q", cfg.Model.Version, "latest")
	}
	if cfg.JWT.Secret != "" {
		t.Error("JWT secret should be empty by default")
	}
	if cfg.JWT.ExpiryHours != 24 {
		t.Errorf("JWT.ExpiryHours = %d, want 24", cfg.JWT.ExpiryHours)
	}
	if cfg.CORS.AllowedOrigins != "*" {
		t.Errorf("CORS.AllowedOrigins = %q, want %q", cfg.CORS.AllowedOrigins, "*")
	}
	if cfg.Logging.Level != "info" || cfg.Logging.Format != "json" {
		t.Errorf("Logging = %+v, want info/json", cfg.Logging)
	}
}

func TestLoadConfigCustom(t *testing.T) {
	clearEnv(t)
	t.Setenv("SERVER_PORT", "3000")
	t.Setenv("GRPC_PORT", "6000")
	t.Setenv("DB_HOST", "db.prod")
	t.Setenv("DB_PORT", "5433")
	t.Setenv("ANALYTICS_TIMEOUT_MS", "500")
	t.Setenv("JWT_EXPIRY_HOURS", "48")
	t.Setenv("MODEL_VERSION", "v3")

	cfg, err := LoadConfig(ModelService)
	if err != nil {
		t.Fatalf("LoadConfig() error: %v", err)
	}

	if cfg.Server.Port != 3000 {
		t.Errorf("Server.Port = %d, want 3000", cfg.Server.Port)
	}
	if cfg.GRPC.Port != 6000 {
		t.Errorf("GRPC.Port = %d, want 6000", cfg.GRPC.Port)
	}
	if cfg.Database.Host != "db.prod" || !cfg.Database.Enabled() {
		t.Errorf("Database.Host = %q, want %q", cfg.Database.Host, "db.prod")
	}
	if cfg.Database.Port != 5433 {
		t.Errorf("Database.Port = %d, want 5433", cfg.Database.Port)
	}
	if cfg.Analytics.Timeout != 500*time.Millisecond {
		t.Errorf("Analytics.Timeout = %v, want 500ms", cfg.Analytics.Timeout)
	}
	if cfg.JWT.ExpiryHours != 48 {
		t.Errorf("JWT.ExpiryHours = %d, want 48", cfg.JWT.ExpiryHours)
	}
	if cfg.Model.Version != "v3" {
		t.Errorf("Model.Version = %q, want %q", cfg.Model.Version, "v3")
	}
}

func TestLoadConfigInvalidPort(t *testing.T) {
	clearEnv(t)
	t.Setenv("SERVER_PORT", "invalid")

	_, err := LoadConfig(ModelService)
	if err == nil {
		t.Error("expected error for invalid SERVER_PORT")
	}
}

func TestLoadConfigUnknownService(t *testing.T) {
	if _, err := LoadConfig("billing-service"); err == nil {
		t.Error("expected error for unknown service")
	}
}
