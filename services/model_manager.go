package services

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/usazehan/healthcare-admin-dashboard/classifier"
	"github.com/usazehan/healthcare-admin-dashboard/features"
	"github.com/usazehan/healthcare-admin-dashboard/metrics"
	"github.com/usazehan/healthcare-admin-dashboard/registry"
)

var (
	ErrInvalidInput = errors.New("invalid input")
	ErrUnknownModel = errors.New("unknown model")
)

// modelSlugs maps URL path segments to registry model names.
var modelSlugs = map[string]string{
	"no-show":           classifier.NoShowModel,
	"treatment-outcome": classifier.TreatmentOutcomeModel,
	"readmission-risk":  classifier.ReadmissionRiskModel,
	"analytics":         classifier.AnalyticsModel,
}

// ModelForSlug resolves a URL segment such as "no-show" to a model name.
func ModelForSlug(slug string) (string, error) {
	name, ok := modelSlugs[slug]
	if !ok {
		return "", fmt.Errorf("%w: %q", ErrUnknownModel, slug)
	}
	return name, nil
}

type handle struct {
	model   *classifier.NetworkModel
	version string
}

// ModelManager caches one loaded model per name, backed by a registry.
type ModelManager struct {
	registry registry.Registry
	encoder  *features.Encoder
	opts     []classifier.Option
	log      *zap.Logger

	mu      sync.RWMutex
	handles map[string]handle
}

func NewModelManager(reg registry.Registry, log *zap.Logger, opts ...classifier.Option) *ModelManager {
	if log == nil {
		log = zap.NewNop()
	}
	return &ModelManager{
		registry: reg,
		encoder:  features.Default(),
		opts:     opts,
		log:      log,
		handles:  make(map[string]handle),
	}
}

// Get returns the cached model for name, loading the latest version on
// first use.
func (m *ModelManager) Get(ctx context.Context, name string) (classifier.Model, error) {
	m.mu.RLock()
	h, ok := m.handles[name]
	m.mu.RUnlock()
	if ok {
		return h.model, nil
	}

	if err := m.Load(ctx, name, registry.Latest); err != nil {
		return nil, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.handles[name].model, nil
}

// Load replaces the cached model for name with a specific registry version.
func (m *ModelManager) Load(ctx context.Context, name, version string) error {
	mv, err := m.registry.Load(ctx, name, version)
	if err != nil {
		return err
	}
	model := classifier.NewNetworkModel(name, m.encoder, m.opts...)
	if err := model.Load(mv.Weights); err != nil {
		return fmt.Errorf("load %s/%s: %w", name, mv.Version, err)
	}

	m.mu.Lock()
	m.handles[name] = handle{model: model, version: mv.Version}
	m.mu.Unlock()

	m.log.Info("model loaded", zap.String("model", name), zap.String("version", mv.Version))
	return nil
}

// LoadedVersion reports the version currently served for name.
func (m *ModelManager) LoadedVersion(name string) (string, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	h, ok := m.handles[name]
	return h.version, ok
}

func (m *ModelManager) Versions(ctx context.Context, name string) ([]registry.ModelVersion, error) {
	return m.registry.List(ctx, name)
}

// Train fits a fresh network, stores it as a new version and starts serving
// it. An empty version is numbered by the registry.
func (m *ModelManager) Train(ctx context.Context, name, version string, training, validation classifier.LabeledData) (*registry.ModelVersion, error) {
	if version != "" {
		if _, err := m.registry.Load(ctx, name, version); err == nil {
			return nil, fmt.Errorf("%s/%s: %w", name, version, registry.ErrVersionExists)
		} else if !errors.Is(err, registry.ErrNotFound) {
			return nil, err
		}
	}
	if err := m.validate("training_data", training, true); err != nil {
		return nil, err
	}
	if err := m.validate("validation_data", validation, false); err != nil {
		return nil, err
	}

	start := time.Now()
	model := classifier.NewNetworkModel(name, m.encoder, m.opts...)
	trained, err := model.Train(ctx, training, validation)
	metrics.TrainingDuration.WithLabelValues(name).Observe(time.Since(start).Seconds())
	if err != nil {
		metrics.TrainingRuns.WithLabelValues(name, "failed").Inc()
		return nil, fmt.Errorf("train %s: %w", name, err)
	}

	weights, _ := model.Weights()
	mv := &registry.ModelVersion{
		Name:    name,
		Version: version,
		Metrics: trained,
		Weights: weights,
	}
	if err := m.registry.Save(ctx, mv); err != nil {
		metrics.TrainingRuns.WithLabelValues(name, "failed").Inc()
		return nil, err
	}

	m.mu.Lock()
	m.handles[name] = handle{model: model, version: mv.Version}
	m.mu.Unlock()

	metrics.TrainingRuns.WithLabelValues(name, "succeeded").Inc()
	m.log.Info("model trained",
		zap.String("model", name),
		zap.String("version", mv.Version),
		zap.String("run_id", mv.RunID),
		zap.Float64("accuracy", trained.Accuracy),
		zap.Float64("val_auc", trained.ValAUC),
		zap.Int("epochs", trained.Epochs),
		zap.Duration("took", time.Since(start)),
	)
	return mv, nil
}

func (m *ModelManager) validate(field string, d classifier.LabeledData, required bool) error {
	if required && len(d.Features) == 0 {
		return fmt.Errorf("%w: %s is empty", ErrInvalidInput, field)
	}
	if len(d.Features) != len(d.Labels) {
		return fmt.Errorf("%w: %s has %d feature rows but %d labels",
			ErrInvalidInput, field, len(d.Features), len(d.Labels))
	}
	for i, y := range d.Labels {
		if y != 0 && y != 1 {
			return fmt.Errorf("%w: %s label %d is %v, want 0 or 1", ErrInvalidInput, field, i, y)
		}
	}
	if _, err := m.encoder.EncodeBatch(d.Features); err != nil {
		return fmt.Errorf("%s: %w", field, err)
	}
	return nil
}

// Served lists the loaded version of every cached model.
func (m *ModelManager) Served() map[string]string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make(map[string]string, len(m.handles))
	for name, h := range m.handles {
		out[name] = h.version
	}
	return out
}
