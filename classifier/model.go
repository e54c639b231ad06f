package classifier

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/usazehan/healthcare-admin-dashboard/features"
)

// Model names used by the services and the registry.
const (
	NoShowModel           = "no_show_prediction"
	TreatmentOutcomeModel = "treatment_outcome"
	ReadmissionRiskModel  = "readmission_risk"
	AnalyticsModel        = "analytics_model"
)

var ErrNotLoaded = errors.New("model not loaded")

type Prediction struct {
	Probability float64   `json:"no_show_probability"`
	RiskLevel   RiskLevel `json:"risk_level"`
}

// LabeledData is the wire shape of a training or validation set.
type LabeledData struct {
	Features []map[string]interface{} `json:"features"`
	Labels   []float64                `json:"labels"`
}

// Model is the capability set shared by every model variant.
type Model interface {
	Name() string
	Preprocess(attrs map[string]interface{}) ([]float64, error)
	Train(ctx context.Context, training, validation LabeledData) (Metrics, error)
	Predict(attrs map[string]interface{}) (Prediction, error)
}

// NetworkModel is a Model backed by a feed-forward Network. It is safe for
// concurrent use; Train and Load swap the network atomically.
type NetworkModel struct {
	name    string
	encoder *features.Encoder
	hidden  []int
	dropout float64
	cfg     TrainConfig

	mu  sync.RWMutex
	net *Network
}

type Option func(*NetworkModel)

func WithHiddenSizes(sizes ...int) Option {
	return func(m *NetworkModel) { m.hidden = append([]int(nil), sizes...) }
}

func WithDropout(d float64) Option {
	return func(m *NetworkModel) { m.dropout = d }
}

func WithTrainConfig(cfg TrainConfig) Option {
	return func(m *NetworkModel) { m.cfg = cfg }
}

func NewNetworkModel(name string, encoder *features.Encoder, opts ...Option) *NetworkModel {
	m := &NetworkModel{
		name:    name,
		encoder: encoder,
		hidden:  DefaultHiddenSizes,
		dropout: DefaultDropout,
		cfg:     DefaultTrainConfig(),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

func (m *NetworkModel) Name() string {
	return m.name
}

func (m *NetworkModel) Preprocess(attrs map[string]interface{}) ([]float64, error) {
	return m.encoder.Encode(attrs)
}

func (m *NetworkModel) Predict(attrs map[string]interface{}) (Prediction, error) {
	m.mu.RLock()
	net := m.net
	m.mu.RUnlock()
	if net == nil {
		return Prediction{}, fmt.Errorf("%s: %w", m.name, ErrNotLoaded)
	}

	x, err := m.Preprocess(attrs)
	if err != nil {
		return Prediction{}, err
	}
	p, err := net.Predict(x)
	if err != nil {
		return Prediction{}, fmt.Errorf("%s: %w", m.name, err)
	}
	return Prediction{Probability: p, RiskLevel: RiskLevelFor(p)}, nil
}

func (m *NetworkModel) Train(ctx context.Context, training, validation LabeledData) (Metrics, error) {
	train, err := m.dataset(training)
	if err != nil {
		return Metrics{}, fmt.Errorf("training data: %w", err)
	}
	val, err := m.dataset(validation)
	if err != nil {
		return Metrics{}, fmt.Errorf("validation data: %w", err)
	}

	sizes := append([]int{m.encoder.Size()}, m.hidden...)
	sizes = append(sizes, 1)

	net, metrics, err := Train(ctx, sizes, m.dropout, m.cfg, train, val)
	if err != nil {
		return Metrics{}, err
	}

	m.mu.Lock()
	m.net = net
	m.mu.Unlock()
	return metrics, nil
}

func (m *NetworkModel) dataset(d LabeledData) (Dataset, error) {
	if len(d.Features) != len(d.Labels) {
		return Dataset{}, fmt.Errorf("%d feature rows but %d labels", len(d.Features), len(d.Labels))
	}
	x, err := m.encoder.EncodeBatch(d.Features)
	if err != nil {
		return Dataset{}, err
	}
	return Dataset{X: x, Y: d.Labels}, nil
}

// Weights exports the current network. ok is false when nothing is loaded.
func (m *NetworkModel) Weights() (Weights, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.net == nil {
		return Weights{}, false
	}
	return m.net.Weights(), true
}

// Load replaces the network with one rebuilt from w.
func (m *NetworkModel) Load(w Weights) error {
	net, err := FromWeights(w)
	if err != nil {
		return fmt.Errorf("%s: %w", m.name, err)
	}
	if net.InputSize() != m.encoder.Size() {
		return fmt.Errorf("%s: %w: network takes %d inputs, encoder produces %d",
			m.name, ErrShapeMismatch, net.InputSize(), m.encoder.Size())
	}
	m.mu.Lock()
	m.net = net
	m.mu.Unlock()
	return nil
}

func (m *NetworkModel) Loaded() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.net != nil
}
