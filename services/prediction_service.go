package services

import (
	"context"
	"errors"
	"time"

	"github.com/usazehan/healthcare-admin-dashboard/classifier"
	"github.com/usazehan/healthcare-admin-dashboard/features"
	"github.com/usazehan/healthcare-admin-dashboard/metrics"
	"github.com/usazehan/healthcare-admin-dashboard/models"
	"github.com/usazehan/healthcare-admin-dashboard/registry"
	"github.com/usazehan/healthcare-admin-dashboard/reporter"
)

type PredictionRequest struct {
	AppointmentID string                 `json:"appointment_id,omitempty"`
	Features      map[string]interface{} `json:"features"`
}

// PredictionService runs a model on one request and forwards the result to
// the reporter when the request names an appointment.
type PredictionService struct {
	models   *ModelManager
	reporter *reporter.Reporter
	now      func() time.Time
}

func NewPredictionService(manager *ModelManager, rep *reporter.Reporter) *PredictionService {
	return &PredictionService{models: manager, reporter: rep, now: time.Now}
}

func (s *PredictionService) Predict(ctx context.Context, modelName string, req PredictionRequest) (classifier.Prediction, error) {
	start := time.Now()
	defer func() {
		metrics.PredictionLatency.WithLabelValues(modelName).Observe(time.Since(start).Seconds())
	}()

	model, err := s.models.Get(ctx, modelName)
	if err != nil {
		metrics.PredictionsFailed.WithLabelValues(modelName, failureReason(err)).Inc()
		return classifier.Prediction{}, err
	}

	pred, err := model.Predict(req.Features)
	if err != nil {
		metrics.PredictionsFailed.WithLabelValues(modelName, failureReason(err)).Inc()
		return classifier.Prediction{}, err
	}
	metrics.PredictionsServed.WithLabelValues(modelName, string(pred.RiskLevel)).Inc()

	if req.AppointmentID != "" {
		p := pred.Probability
		s.reporter.Report(models.PredictionEventPayload{
			AppointmentID:     req.AppointmentID,
			PredictionTime:    s.now().UTC().Format(time.RFC3339Nano),
			NoShowProbability: &p,
			RiskLevel:         string(pred.RiskLevel),
		})
	}
	return pred, nil
}

func failureReason(err error) string {
	switch {
	case errors.Is(err, features.ErrInvalidValue), errors.Is(err, ErrInvalidInput):
		return "invalid_input"
	case errors.Is(err, registry.ErrNotFound), errors.Is(err, classifier.ErrNotLoaded):
		return "no_model"
	default:
		return "internal"
	}
}
