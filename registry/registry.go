package registry

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/usazehan/healthcare-admin-dashboard/classifier"
)

// Latest selects the most recently saved version in Load.
const Latest = "latest"

const StatusReady = "READY"

var (
	ErrNotFound      = errors.New("model version not found")
	ErrVersionExists = errors.New("model version already exists")
)

// ModelVersion is an immutable snapshot of trained weights. Weights are
// omitted from List results.
type ModelVersion struct {
	Name      string             `json:"name"`
	Version   string             `json:"version"`
	Status    string             `json:"status"`
	RunID     string             `json:"run_id"`
	Metrics   classifier.Metrics `json:"metrics"`
	Weights   classifier.Weights `json:"-"`
	CreatedAt time.Time          `json:"created_at"`
}

// Registry stores model versions. Save fills in Version when empty as well as
// Status, RunID and CreatedAt.
type Registry interface {
	Save(ctx context.Context, mv *ModelVersion) error
	Load(ctx context.Context, name, version string) (*ModelVersion, error)
	List(ctx context.Context, name string) ([]ModelVersion, error)
}

// nextVersion returns "v<N+1>" where N is the highest "v<N>" in existing.
func nextVersion(existing []string) string {
	highest := 0
	for _, v := range existing {
		if !strings.HasPrefix(v, "v") {
			continue
		}
		n, err := strconv.Atoi(v[1:])
		if err == nil && n > highest {
			highest = n
		}
	}
	return fmt.Sprintf("v%d", highest+1)
}

const autoVersionAttempts = 5

// assignVersion inserts under the next free "vN". When a concurrent save
// claims the same number first, it renumbers and tries again.
func assignVersion(ctx context.Context, existing func(context.Context) ([]string, error), insert func(context.Context, string) error) (string, error) {
	var err error
	for attempt := 0; attempt < autoVersionAttempts; attempt++ {
		names, listErr := existing(ctx)
		if listErr != nil {
			return "", listErr
		}
		version := nextVersion(names)
		err = insert(ctx, version)
		if !errors.Is(err, ErrVersionExists) {
			return version, err
		}
	}
	return "", err
}

func validateName(name, version string) error {
	if strings.TrimSpace(name) == "" {
		return errors.New("model name is required")
	}
	if version == Latest {
		return fmt.Errorf("%q is reserved", Latest)
	}
	return nil
}
