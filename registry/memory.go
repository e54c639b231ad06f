package registry

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/usazehan/healthcare-admin-dashboard/classifier"
)

// Memory is a process-local Registry used when no database is configured.
type Memory struct {
	mu       sync.RWMutex
	versions map[string][]ModelVersion
	now      func() time.Time
}

func NewMemory() *Memory {
	return &Memory{
		versions: make(map[string][]ModelVersion),
		now:      time.Now,
	}
}

func (m *Memory) Save(ctx context.Context, mv *ModelVersion) error {
	if err := validateName(mv.Name, mv.Version); err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	existing := m.versions[mv.Name]
	if mv.Version == "" {
		names := make([]string, len(existing))
		for i, v := range existing {
			names[i] = v.Version
		}
		mv.Version = nextVersion(names)
	}
	for _, v := range existing {
		if v.Version == mv.Version {
			return fmt.Errorf("%s/%s: %w", mv.Name, mv.Version, ErrVersionExists)
		}
	}

	mv.Status = StatusReady
	mv.RunID = uuid.NewString()
	mv.CreatedAt = m.now().UTC()
	m.versions[mv.Name] = append(existing, *mv)
	return nil
}

func (m *Memory) Load(ctx context.Context, name, version string) (*ModelVersion, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	existing := m.versions[name]
	if version == Latest || version == "" {
		if len(existing) == 0 {
			return nil, fmt.Errorf("%s: %w", name, ErrNotFound)
		}
		mv := existing[len(existing)-1]
		return &mv, nil
	}
	for _, v := range existing {
		if v.Version == version {
			mv := v
			return &mv, nil
		}
	}
	return nil, fmt.Errorf("%s/%s: %w", name, version, ErrNotFound)
}

// List returns versions newest first.
func (m *Memory) List(ctx context.Context, name string) ([]ModelVersion, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	existing := m.versions[name]
	out := make([]ModelVersion, 0, len(existing))
	for i := len(existing) - 1; i >= 0; i-- {
		v := existing[i]
		v.Weights = classifier.Weights{}
		out = append(out, v)
	}
	return out, nil
}
