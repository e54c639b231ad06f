package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/usazehan/healthcare-admin-dashboard/models"
)

func prob(p float64) *float64 { return &p }

func TestNewEvent(t *testing.T) {
	now := time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)

	tests := []struct {
		name     string
		payload  models.PredictionEventPayload
		wantErr  bool
		wantRisk string
		wantTime time.Time
	}{
		{
			name:     "derives risk level and defaults time",
			payload:  models.PredictionEventPayload{AppointmentID: "apt-1", NoShowProbability: prob(0.72)},
			wantRisk: "High",
			wantTime: now,
		},
		{
			name: "accepts consistent risk level in any case",
			payload: models.PredictionEventPayload{
				AppointmentID: "apt-2", NoShowProbability: prob(0.3), RiskLevel: "medium",
				PredictionTime: "2024-02-28T10:15:00+02:00",
			},
			wantRisk: "Medium",
			wantTime: time.Date(2024, 2, 28, 8, 15, 0, 0, time.UTC),
		},
		{
			name: "zone-less timestamp is UTC",
			payload: models.PredictionEventPayload{
				AppointmentID: "apt-3", NoShowProbability: prob(0.1), PredictionTime: "2024-02-28T10:15:00.123456",
			},
			wantRisk: "Low",
			wantTime: time.Date(2024, 2, 28, 10, 15, 0, 123456000, time.UTC),
		},
		{
			name:    "inconsistent risk level",
			payload: models.PredictionEventPayload{AppointmentID: "apt-4", NoShowProbability: prob(0.9), RiskLevel: "Low"},
			wantErr: true,
		},
		{
			name:    "unknown risk level",
			payload: models.PredictionEventPayload{AppointmentID: "apt-5", NoShowProbability: prob(0.9), RiskLevel: "Severe"},
			wantErr: true,
		},
		{
			name:    "missing appointment",
			payload: models.PredictionEventPayload{NoShowProbability: prob(0.5)},
			wantErr: true,
		},
		{
			name:    "missing probability",
			payload: models.PredictionEventPayload{AppointmentID: "apt-6"},
			wantErr: true,
		},
		{
			name:    "probability out of range",
			payload: models.PredictionEventPayload{AppointmentID: "apt-7", NoShowProbability: prob(1.2)},
			wantErr: true,
		},
		{
			name:    "bad timestamp",
			payload: models.PredictionEventPayload{AppointmentID: "apt-8", NoShowProbability: prob(0.2), PredictionTime: "yesterday"},
			wantErr: true,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e, err := NewEvent(tt.payload, now)
			if tt.wantErr {
				if !errors.Is(err, ErrInvalidEvent) {
					t.Errorf("expected ErrInvalidEvent, got %v", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("NewEvent() error: %v", err)
			}
			if e.RiskLevel != tt.wantRisk {
				t.Errorf("RiskLevel = %q, want %q", e.RiskLevel, tt.wantRisk)
			}
			if !e.PredictionTime.Equal(tt.wantTime) {
				t.Errorf("PredictionTime = %v, want %v", e.PredictionTime, tt.wantTime)
			}
			if e.ID.String() == "00000000-0000-0000-0000-000000000000" {
				t.Error("ID should be set")
			}
		})
	}
}

func seedEvents(t *testing.T, store EventStore) time.Time {
	t.Helper()
	base := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	rows := []struct {
		id string
		p  float64
	}{
		{"apt-1", 0.1}, {"apt-2", 0.5}, {"apt-1", 0.8}, {"apt-3", 0.9}, {"apt-2", 0.2},
	}
	for i, r := range rows {
		e, err := NewEvent(models.PredictionEventPayload{
			AppointmentID:     r.id,
			NoShowProbability: prob(r.p),
			PredictionTime:    base.Add(time.Duration(i) * time.Minute).Format(time.RFC3339),
		}, base)
		if err != nil {
			t.Fatalf("NewEvent() error: %v", err)
		}
		if err := store.Record(context.Background(), &e); err != nil {
			t.Fatalf("Record() error: %v", err)
		}
	}
	return base
}

func TestMemoryEventStoreList(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryEventStore()
	base := seedEvents(t, store)

	all, err := store.List(ctx, EventFilter{})
	if err != nil {
		t.Fatalf("List() error: %v", err)
	}
	if len(all) != 5 {
		t.Fatalf("List() returned %d events, want 5", len(all))
	}
	for i := 1; i < len(all); i++ {
		if all[i].PredictionTime.After(all[i-1].PredictionTime) {
			t.Fatal("events should be newest first")
		}
	}

	t.Run("by appointment", func(t *testing.T) {
		got, _ := store.List(ctx, EventFilter{AppointmentID: "apt-1"})
		if len(got) != 2 {
			t.Errorf("got %d events, want 2", len(got))
		}
	})

	t.Run("by risk level", func(t *testing.T) {
		got, _ := store.List(ctx, EventFilter{RiskLevel: "High"})
		if len(got) != 2 {
			t.Errorf("got %d events, want 2", len(got))
		}
	})

	t.Run("cursor and limit", func(t *testing.T) {
		before := base.Add(3 * time.Minute)
		got, _ := store.List(ctx, EventFilter{Before: &before, Limit: 2})
		if len(got) != 2 {
			t.Fatalf("got %d events, want 2", len(got))
		}
		if !got[0].PredictionTime.Equal(base.Add(2*time.Minute)) {
			t.Errorf("first event at %v, want %v", got[0].PredictionTime, base.Add(2*time.Minute))
		}
	})
}

func TestIngestor(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryEventStore()
	ing := NewIngestor(store, NewCacheServiceFromClient(nil), nil)

	e, err := ing.Ingest(ctx, "http", models.PredictionEventPayload{AppointmentID: "apt-9", NoShowProbability: prob(0.65)})
	if err != nil {
		t.Fatalf("Ingest() error: %v", err)
	}
	if e.RiskLevel != "High" {
		t.Errorf("RiskLevel = %q, want High", e.RiskLevel)
	}

	if _, err := ing.Ingest(ctx, "http", models.PredictionEventPayload{AppointmentID: "apt-9", NoShowProbability: prob(0.65), RiskLevel: "Low"}); !errors.Is(err, ErrInvalidEvent) {
		t.Errorf("expected ErrInvalidEvent, got %v", err)
	}

	stored, _ := ing.List(ctx, EventFilter{})
	if len(stored) != 1 {
		t.Errorf("store has %d events, want 1", len(stored))
	}
}

func TestClampLimit(t *testing.T) {
	tests := []struct{ in, want int }{
		{0, DefaultEventLimit},
		{-3, DefaultEventLimit},
		{10, 10},
		{MaxEventLimit + 1, MaxEventLimit},
	}
	for _, tt := range tests {
		if got := ClampLimit(tt.in); got != tt.want {
			t.Errorf("ClampLimit(%d) = %d, want %d", tt.in, got, tt.want)
		}
	}
}
