package registry

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/usazehan/healthcare-admin-dashboard/classifier"
)

func TestNextVersion(t *testing.T) {
	tests := []struct {
		name     string
		existing []string
		want     string
	}{
		{"empty", nil, "v1"},
		{"sequential", []string{"v1", "v2"}, "v3"},
		{"gap", []string{"v1", "v7"}, "v8"},
		{"custom names ignored", []string{"prod", "v2", "vx"}, "v3"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := nextVersion(tt.existing); got != tt.want {
				t.Errorf("nextVersion(%v) = %q, want %q", tt.existing, got, tt.want)
			}
		})
	}
}

func sampleVersion(name, version string, bias float64) *ModelVersion {
	return &ModelVersion{
		Name:    name,
		Version: version,
		Metrics: classifier.Metrics{Accuracy: 0.8},
		Weights: classifier.Weights{
			Sizes:  []int{2, 1},
			Layers: []classifier.LayerWeights{{W: []float64{0, 0}, B: []float64{bias}}},
		},
	}
}

func TestMemorySaveAndLoad(t *testing.T) {
	ctx := context.Background()
	reg := NewMemory()
	tick := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	reg.now = func() time.Time {
		tick = tick.Add(time.Second)
		return tick
	}

	first := sampleVersion("no_show_prediction", "", 1)
	if err := reg.Save(ctx, first); err != nil {
		t.Fatalf("Save() error: %v", err)
	}
	if first.Version != "v1" || first.Status != StatusReady || first.RunID == "" {
		t.Errorf("Save() did not fill fields: %+v", first)
	}

	second := sampleVersion("no_show_prediction", "", 2)
	if err := reg.Save(ctx, second); err != nil {
		t.Fatalf("Save() error: %v", err)
	}
	if second.Version != "v2" {
		t.Errorf("second Version = %q, want v2", second.Version)
	}

	latest, err := reg.Load(ctx, "no_show_prediction", Latest)
	if err != nil {
		t.Fatalf("Load(latest) error: %v", err)
	}
	if latest.Version != "v2" || latest.Weights.Layers[0].B[0] != 2 {
		t.Errorf("Load(latest) = %s with bias %v, want v2 with bias 2", latest.Version, latest.Weights.Layers[0].B[0])
	}

	pinned, err := reg.Load(ctx, "no_show_prediction", "v1")
	if err != nil {
		t.Fatalf("Load(v1) error: %v", err)
	}
	if pinned.Weights.Layers[0].B[0] != 1 {
		t.Errorf("Load(v1) bias = %v, want 1", pinned.Weights.Layers[0].B[0])
	}
}

func TestMemoryRejectsDuplicates(t *testing.T) {
	ctx := context.Background()
	reg := NewMemory()
	if err := reg.Save(ctx, sampleVersion("m", "prod", 0)); err != nil {
		t.Fatalf("Save() error: %v", err)
	}
	if err := reg.Save(ctx, sampleVersion("m", "prod", 1)); !errors.Is(err, ErrVersionExists) {
		t.Errorf("expected ErrVersionExists, got %v", err)
	}
	if err := reg.Save(ctx, sampleVersion("m", Latest, 1)); err == nil {
		t.Error("expected error for reserved version name")
	}
	if err := reg.Save(ctx, sampleVersion(" ", "", 1)); err == nil {
		t.Error("expected error for empty model name")
	}
}

func TestMemoryNotFound(t *testing.T) {
	ctx := context.Background()
	reg := NewMemory()
	if _, err := reg.Load(ctx, "missing", Latest); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
	_ = reg.Save(ctx, sampleVersion("m", "", 0))
	if _, err := reg.Load(ctx, "m", "v9"); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestMemoryListNewestFirstWithoutWeights(t *testing.T) {
	ctx := context.Background()
	reg := NewMemory()
	for i := 0; i < 3; i++ {
		if err := reg.Save(ctx, sampleVersion("m", "", float64(i))); err != nil {
			t.Fatalf("Save() error: %v", err)
		}
	}

	list, err := reg.List(ctx, "m")
	if err != nil {
		t.Fatalf("List() error: %v", err)
	}
	want := []string{"v3", "v2", "v1"}
	if len(list) != len(want) {
		t.Fatalf("List() returned %d versions, want %d", len(list), len(want))
	}
	for i, mv := range list {
		if mv.Version != want[i] {
			t.Errorf("list[%d].Version = %q, want %q", i, mv.Version, want[i])
		}
		if len(mv.Weights.Layers) != 0 {
			t.Errorf("list[%d] should not carry weights", i)
		}
	}

	empty, err := reg.List(ctx, "other")
	if err != nil {
		t.Fatalf("List() error: %v", err)
	}
	if empty == nil || len(empty) != 0 {
		t.Errorf("List() for unknown model = %v, want empty slice", empty)
	}
}

func TestAssignVersionRenumbersAfterConflict(t *testing.T) {
	ctx := context.Background()
	stored := []string{"v1"}
	raced := false
	insert := func(ctx context.Context, version string) error {
		if !raced {
			// another writer takes the same number first
			raced = true
			stored = append(stored, version)
			return ErrVersionExists
		}
		for _, v := range stored {
			if v == version {
				return ErrVersionExists
			}
		}
		stored = append(stored, version)
		return nil
	}
	existing := func(ctx context.Context) ([]string, error) { return stored, nil }

	got, err := assignVersion(ctx, existing, insert)
	if err != nil {
		t.Fatalf("assignVersion() error: %v", err)
	}
	if got != "v3" {
		t.Errorf("assignVersion() = %q, want v3", got)
	}
}

func TestAssignVersionGivesUp(t *testing.T) {
	calls := 0
	insert := func(ctx context.Context, version string) error {
		calls++
		return ErrVersionExists
	}
	existing := func(ctx context.Context) ([]string, error) { return nil, nil }

	if _, err := assignVersion(context.Background(), existing, insert); !errors.Is(err, ErrVersionExists) {
		t.Errorf("err = %v, want ErrVersionExists", err)
	}
	if calls != autoVersionAttempts {
		t.Errorf("insert called %d times, want %d", calls, autoVersionAttempts)
	}
}

func TestAssignVersionPassesOtherErrors(t *testing.T) {
	boom := errors.New("connection reset")
	_, err := assignVersion(context.Background(),
		func(ctx context.Context) ([]string, error) { return nil, nil },
		func(ctx context.Context, version string) error { return boom })
	if !errors.Is(err, boom) {
		t.Errorf("err = %v, want %v", err, boom)
	}
}
