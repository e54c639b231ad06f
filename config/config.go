package config

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

const (
	ModelService      = "model-service"
	AnalyticsService  = "analytics-service"
	PredictionService = "prediction-service"
)

type Config struct {
	Service   string
	Server    ServerConfig
	GRPC      GRPCConfig
	Database  DatabaseConfig
	Redis     RedisConfig
	MQTT      MQTTConfig
	Analytics AnalyticsConfig
	MLService MLServiceConfig
	Model     ModelConfig
	JWT       JWTConfig
	Auth      AuthConfig
	CORS      CORSConfig
	Logging   LoggingConfig
}

type ServerConfig struct {
	Host string
	Port int
}

func (s ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

// GRPCConfig is disabled when Port is 0.
type GRPCConfig struct {
	Port       int
	MaxStreams int
}

type DatabaseConfig struct {
	URL      string
	Host     string
	Port     int
	User     string
	Password string
	Name     string
	SSLMode  string
}

// Enabled reports whether a database was configured at all. Services fall
// back to in-memory stores otherwise.
func (d DatabaseConfig) Enabled() bool {
	return d.URL != "" || d.Host != ""
}

func (d DatabaseConfig) GetDSN() string {
	if d.URL != "" {
		return d.URL
	}
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		d.Host, d.Port, d.User, d.Password, d.Name, d.SSLMode,
	)
}

type RedisConfig struct {
	URL string
}

type MQTTConfig struct {
	URL   string
	Topic string
}

// AnalyticsConfig controls best-effort forwarding of prediction events. An
// empty URL disables the HTTP sink.
type AnalyticsConfig struct {
	URL       string
	Timeout   time.Duration
	QueueSize int
}

type MLServiceConfig struct {
	Addr    string
	Timeout time.Duration
}

type ModelConfig struct {
	Name    string
	Version string
}

// JWTConfig disables authentication when Secret is empty.
type JWTConfig struct {
	Secret      string
	ExpiryHours int
}

type AuthConfig struct {
	ClientID         string
	ClientSecretHash string
}

type CORSConfig struct {
	AllowedOrigins string
}

type LoggingConfig struct {
	Level  string
	Format string
}

type serviceDefaults struct {
	port         int
	grpcPort     int
	model        string
	analyticsURL string
}

var defaults = map[string]serviceDefaults{
	ModelService: {
		port:     8000,
		grpcPort: 50051,
		model:    "no_show_prediction",
	},
	AnalyticsService: {
		port:     8001,
		grpcPort: 50052,
		model:    "analytics_model",
	},
	PredictionService: {
		port:         8002,
		model:        "no_show_prediction",
		analyticsURL: "http://localhost:8001/analytics/predictions",
	},
}

// LoadConfig reads configuration for service from the environment and an
// optional .env file in the working directory.
func LoadConfig(service string) (*Config, error) {
	d, ok := defaults[service]
	if !ok {
		return nil, fmt.Errorf("unknown service %q", service)
	}

	_ = godotenv.Load()

	v := viper.New()
	v.AutomaticEnv()

	v.SetDefault("SERVICE_HOST", "0.0.0.0")
	v.SetDefault("SERVER_PORT", d.port)
	v.SetDefault("GRPC_PORT", d.grpcPort)
	v.SetDefault("GRPC_MAX_STREAMS", 10)
	v.SetDefault("DB_PORT", 5432)
	v.SetDefault("DB_USER", "healthcare")
	v.SetDefault("DB_PASSWORD", "healthcare_dev_password")
	v.SetDefault("DB_NAME", "healthcare")
	v.SetDefault("DB_SSLMODE", "disable")
	v.SetDefault("MQTT_TOPIC", "healthcare/predictions/+")
	v.SetDefault("ANALYTICS_URL", d.analyticsURL)
	v.SetDefault("ANALYTICS_TIMEOUT_MS", 2000)
	v.SetDefault("REPORTER_QUEUE_SIZE", 256)
	v.SetDefault("ML_SERVICE_ADDR", "localhost:50051")
	v.SetDefault("ML_SERVICE_TIMEOUT_MS", 5000)
	v.SetDefault("MODEL_NAME", d.model)
	v.SetDefault("MODEL_VERSION", "latest")
	v.SetDefault("JWT_EXPIRY_HOURS", 24)
	v.SetDefault("AUTH_CLIENT_ID", "ml-admin")
	v.SetDefault("CORS_ALLOWED_ORIGINS", "*")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("LOG_FORMAT", "json")

	ints := map[string]*int{}
	cfg := &Config{
		Service: service,
		Server: ServerConfig{
			Host: v.GetString("SERVICE_HOST"),
		},
		Database: DatabaseConfig{
			URL:      v.GetString("DB_DSN"),
			Host:     v.GetString("DB_HOST"),
			User:     v.GetString("DB_USER"),
			Password: v.GetString("DB_PASSWORD"),
			Name:     v.GetString("DB_NAME"),
			SSLMode:  v.GetString("DB_SSLMODE"),
		},
		Redis: RedisConfig{
			URL: v.GetString("REDIS_URL"),
		},
		MQTT: MQTTConfig{
			URL:   v.GetString("MQTT_URL"),
			Topic: v.GetString("MQTT_TOPIC"),
		},
		Analytics: AnalyticsConfig{
			URL: v.GetString("ANALYTICS_URL"),
		},
		MLService: MLServiceConfig{
			Addr: v.GetString("ML_SERVICE_ADDR"),
		},
		Model: ModelConfig{
			Name:    v.GetString("MODEL_NAME"),
			Version: v.GetString("MODEL_VERSION"),
		},
		JWT: JWTConfig{
			Secret: v.GetString("JWT_SECRET"),
		},
		Auth: AuthConfig{
			ClientID:         v.GetString("AUTH_CLIENT_ID"),
			ClientSecretHash: v.GetString("AUTH_CLIENT_SECRET_HASH"),
		},
		CORS: CORSConfig{
			AllowedOrigins: v.GetString("CORS_ALLOWED_ORIGINS"),
		},
		Logging: LoggingConfig{
			Level:  v.GetString("LOG_LEVEL"),
			Format: v.GetString("LOG_FORMAT"),
		},
	}

	var analyticsTimeoutMS, mlTimeoutMS int
	ints["SERVER_PORT"] = &cfg.Server.Port
	ints["GRPC_PORT"] = &cfg.GRPC.Port
	ints["GRPC_MAX_STREAMS"] = &cfg.GRPC.MaxStreams
	ints["DB_PORT"] = &cfg.Database.Port
	ints["ANALYTICS_TIMEOUT_MS"] = &analyticsTimeoutMS
	ints["REPORTER_QUEUE_SIZE"] = &cfg.Analytics.QueueSize
	ints["ML_SERVICE_TIMEOUT_MS"] = &mlTimeoutMS
	ints["JWT_EXPIRY_HOURS"] = &cfg.JWT.ExpiryHours

	for key, dst := range ints {
		n, err := getIntEnv(v, key)
		if err != nil {
			return nil, err
		}
		*dst = n
	}

	cfg.Analytics.Timeout = time.Duration(analyticsTimeoutMS) * time.Millisecond
	cfg.MLService.Timeout = time.Duration(mlTimeoutMS) * time.Millisecond

	return cfg, nil
}

func getIntEnv(v *viper.Viper, key string) (int, error) {
	raw := strings.TrimSpace(v.GetString(key))
	parsed, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return parsed, nil
}
