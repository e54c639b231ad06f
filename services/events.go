package services

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/usazehan/healthcare-admin-dashboard/classifier"
	"github.com/usazehan/healthcare-admin-dashboard/models"
	"github.com/usazehan/healthcare-admin-dashboard/retry"
)

var ErrInvalidEvent = errors.New("invalid prediction event")

// Timestamps without a zone are read as UTC.
var eventTimeLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999",
	"2006-01-02 15:04:05.999999999",
}

// NewEvent validates a payload and builds the event to store. An empty
// prediction_time means now; an empty risk_level is derived from the
// probability; a risk_level that disagrees with the probability is rejected.
func NewEvent(p models.PredictionEventPayload, now time.Time) (models.PredictionEvent, error) {
	appointmentID := strings.TrimSpace(p.AppointmentID)
	if appointmentID == "" {
		return models.PredictionEvent{}, fmt.Errorf("%w: appointment_id is required", ErrInvalidEvent)
	}
	if p.NoShowProbability == nil {
		return models.PredictionEvent{}, fmt.Errorf("%w: no_show_probability is required", ErrInvalidEvent)
	}
	prob := *p.NoShowProbability
	if math.IsNaN(prob) || prob < 0 || prob > 1 {
		return models.PredictionEvent{}, fmt.Errorf("%w: no_show_probability %v outside [0,1]", ErrInvalidEvent, prob)
	}

	expected := classifier.RiskLevelFor(prob)
	if p.RiskLevel != "" {
		level, err := classifier.ParseRiskLevel(p.RiskLevel)
		if err != nil {
			return models.PredictionEvent{}, fmt.Errorf("%w: %v", ErrInvalidEvent, err)
		}
		if level != expected {
			return models.PredictionEvent{}, fmt.Errorf("%w: risk_level %s does not match probability %v (%s)",
				ErrInvalidEvent, level, prob, expected)
		}
	}

	ts, err := parseEventTime(p.PredictionTime, now)
	if err != nil {
		return models.PredictionEvent{}, err
	}

	return models.PredictionEvent{
		ID:                uuid.New(),
		AppointmentID:     appointmentID,
		PredictionTime:    ts,
		NoShowProbability: prob,
		RiskLevel:         string(expected),
	}, nil
}

func parseEventTime(s string, now time.Time) (time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return now.UTC(), nil
	}
	for _, layout := range eventTimeLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, fmt.Errorf("%w: prediction_time %q is not an ISO-8601 timestamp", ErrInvalidEvent, s)
}

const (
	DefaultEventLimit = 50
	MaxEventLimit     = 200
)

// ClampLimit applies the default page size to n <= 0 and caps it.
func ClampLimit(n int) int {
	if n <= 0 {
		return DefaultEventLimit
	}
	if n > MaxEventLimit {
		return MaxEventLimit
	}
	return n
}

// EventFilter narrows List. Before is an exclusive cursor on prediction_time.
type EventFilter struct {
	AppointmentID string
	RiskLevel     string
	Before        *time.Time
	Limit         int
}

// EventStore is the append-only prediction event log.
type EventStore interface {
	Record(ctx context.Context, e *models.PredictionEvent) error
	List(ctx context.Context, f EventFilter) ([]models.PredictionEvent, error)
}

type GormEventStore struct {
	db *gorm.DB
}

func NewGormEventStore(db *gorm.DB) *GormEventStore {
	return &GormEventStore{db: db}
}

// OpenGorm connects to Postgres through gorm, retrying the first ping.
func OpenGorm(ctx context.Context, dsn string, log *zap.Logger) (*gorm.DB, error) {
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("get sql db handle: %w", err)
	}
	if err := retry.Do(ctx, retry.Startup, log, "postgres", sqlDB.PingContext); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}
	return db, nil
}

func (s *GormEventStore) Migrate(ctx context.Context) error {
	return s.db.WithContext(ctx).AutoMigrate(&models.PredictionEvent{})
}

func (s *GormEventStore) Record(ctx context.Context, e *models.PredictionEvent) error {
	if err := s.db.WithContext(ctx).Create(e).Error; err != nil {
		return fmt.Errorf("insert prediction event: %w", err)
	}
	return nil
}

func (s *GormEventStore) List(ctx context.Context, f EventFilter) ([]models.PredictionEvent, error) {
	query := s.db.WithContext(ctx).Model(&models.PredictionEvent{}).
		Order("prediction_time DESC, id DESC")

	if f.Limit > 0 {
		query = query.Limit(f.Limit)
	}
	if f.Before != nil {
		query = query.Where("prediction_time < ?", *f.Before)
	}
	if f.AppointmentID != "" {
		query = query.Where("appointment_id = ?", f.AppointmentID)
	}
	if f.RiskLevel != "" {
		query = query.Where("risk_level = ?", f.RiskLevel)
	}

	var rows []models.PredictionEvent
	if err := query.Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("query prediction events: %w", err)
	}
	return rows, nil
}

// MemoryEventStore keeps events in process. Used in tests and when no
// database is configured.
type MemoryEventStore struct {
	mu     sync.RWMutex
	events []models.PredictionEvent
}

func NewMemoryEventStore() *MemoryEventStore {
	return &MemoryEventStore{}
}

func (s *MemoryEventStore) Record(ctx context.Context, e *models.PredictionEvent) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if e.CreatedAt.IsZero() {
		e.CreatedAt = time.Now().UTC()
	}
	s.events = append(s.events, *e)
	return nil
}

func (s *MemoryEventStore) List(ctx context.Context, f EventFilter) ([]models.PredictionEvent, error) {
	s.mu.RLock()
	matched := make([]models.PredictionEvent, 0, len(s.events))
	for _, e := range s.events {
		if f.Before != nil && !e.PredictionTime.Before(*f.Before) {
			continue
		}
		if f.AppointmentID != "" && e.AppointmentID != f.AppointmentID {
			continue
		}
		if f.RiskLevel != "" && e.RiskLevel != f.RiskLevel {
			continue
		}
		matched = append(matched, e)
	}
	s.mu.RUnlock()

	sort.SliceStable(matched, func(i, j int) bool {
		if !matched[i].PredictionTime.Equal(matched[j].PredictionTime) {
			return matched[i].PredictionTime.After(matched[j].PredictionTime)
		}
		return matched[i].ID.String() > matched[j].ID.String()
	})
	if f.Limit > 0 && len(matched) > f.Limit {
		matched = matched[:f.Limit]
	}
	return matched, nil
}
