package rpc

import (
	"context"
	"encoding/base64"
	"fmt"
	"runtime/debug"
	"time"

	"go.uber.org/zap"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/usazehan/healthcare-admin-dashboard/classifier"
	"github.com/usazehan/healthcare-admin-dashboard/metrics"
	"github.com/usazehan/healthcare-admin-dashboard/services"
)

// NewServer builds a grpc server with recovery and logging interceptors.
// maxStreams caps concurrent calls per connection.
func NewServer(log *zap.Logger, maxStreams int) *grpc.Server {
	opts := []grpc.ServerOption{
		grpc.ChainUnaryInterceptor(RecoveryInterceptor(log), LoggingInterceptor(log)),
	}
	if maxStreams > 0 {
		opts = append(opts, grpc.MaxConcurrentStreams(uint32(maxStreams)))
	}
	return grpc.NewServer(opts...)
}

func LoggingInterceptor(log *zap.Logger) grpc.UnaryServerInterceptor {
	return func(ctx context.Context, req interface{}, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (interface{}, error) {
		start := time.Now()
		resp, err := handler(ctx, req)
		code := status.Code(err)
		metrics.RPCRequests.WithLabelValues(info.FullMethod, code.String()).Inc()

		fields := []zap.Field{
			zap.String("method", info.FullMethod),
			zap.String("code", code.String()),
			zap.Duration("latency", time.Since(start)),
		}
		switch code {
		case codes.OK:
			log.Info("grpc request", fields...)
		case codes.Internal, codes.Unknown:
			log.Error("grpc request", append(fields, zap.Error(err))...)
		default:
			log.Warn("grpc request", append(fields, zap.Error(err))...)
		}
		return resp, err
	}
}

func RecoveryInterceptor(log *zap.Logger) grpc.UnaryServerInterceptor {
	return func(ctx context.Context, req interface{}, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (resp interface{}, err error) {
		defer func() {
			if r := recover(); r != nil {
				log.Error("grpc handler panic",
					zap.String("method", info.FullMethod),
					zap.Any("panic", r),
					zap.ByteString("stack", debug.Stack()),
				)
				err = status.Errorf(codes.Internal, "panic: %v", r)
			}
		}()
		return handler(ctx, req)
	}
}

// MLServer serves MLService from the local models.
type MLServer struct {
	predictions *services.PredictionService
}

func NewMLServer(predictions *services.PredictionService) *MLServer {
	return &MLServer{predictions: predictions}
}

func (s *MLServer) PredictNoShow(ctx context.Context, req *PredictNoShowRequest) (*NoShowPrediction, error) {
	pred, err := s.predictions.Predict(ctx, classifier.NoShowModel, services.PredictionRequest{
		AppointmentID: req.AppointmentID,
		Features:      req.Features,
	})
	if err != nil {
		return nil, toStatus(err)
	}
	return &NoShowPrediction{
		PatientID:     req.PatientID,
		AppointmentID: req.AppointmentID,
		Probability:   pred.Probability,
		RiskLevel:     RiskLevelOf(pred.RiskLevel),
	}, nil
}

func (s *MLServer) PredictTreatmentOutcome(ctx context.Context, req *PredictTreatmentOutcomeRequest) (*TreatmentOutcome, error) {
	pred, err := s.predictions.Predict(ctx, classifier.TreatmentOutcomeModel, services.PredictionRequest{
		Features: req.TreatmentData,
	})
	if err != nil {
		return nil, toStatus(err)
	}
	return &TreatmentOutcome{
		PatientID:        req.PatientID,
		PredictedOutcome: classifier.OutcomeFor(pred.Probability),
		Confidence:       pred.Probability,
	}, nil
}

func (s *MLServer) AssessReadmissionRisk(ctx context.Context, req *AssessReadmissionRiskRequest) (*ReadmissionRisk, error) {
	pred, err := s.predictions.Predict(ctx, classifier.ReadmissionRiskModel, services.PredictionRequest{
		Features: req.PatientData,
	})
	if err != nil {
		return nil, toStatus(err)
	}
	return &ReadmissionRisk{
		PatientID: req.PatientID,
		RiskScore: pred.Probability,
		RiskLevel: RiskLevelOf(pred.RiskLevel),
	}, nil
}

func (s *MLServer) GetTreatmentRecommendations(ctx context.Context, req *GetTreatmentRecommendationsRequest) (*TreatmentRecommendations, error) {
	return nil, status.Error(codes.Unimplemented, "treatment recommendations are not available")
}

func (s *MLServer) AnalyzeDrugInteractions(ctx context.Context, req *AnalyzeDrugInteractionsRequest) (*DrugInteractions, error) {
	return nil, status.Error(codes.Unimplemented, "drug interaction analysis is not available")
}

// AnalyticsServer serves AnalyticsService from the prediction event log.
type AnalyticsServer struct {
	ingestor *services.Ingestor
}

func NewAnalyticsServer(ingestor *services.Ingestor) *AnalyticsServer {
	return &AnalyticsServer{ingestor: ingestor}
}

func (s *AnalyticsServer) GetAppointmentNoShowPredictions(ctx context.Context, req *GetAppointmentNoShowPredictionsRequest) (*GetAppointmentNoShowPredictionsResponse, error) {
	before, err := decodePageToken(req.PageToken)
	if err != nil {
		return nil, status.Error(codes.InvalidArgument, err.Error())
	}
	limit := services.ClampLimit(int(req.PageSize))

	events, err := s.ingestor.List(ctx, services.EventFilter{
		AppointmentID: req.AppointmentID,
		RiskLevel:     string(req.RiskLevel.Classifier()),
		Before:        before,
		Limit:         limit + 1,
	})
	if err != nil {
		return nil, toStatus(err)
	}

	resp := &GetAppointmentNoShowPredictionsResponse{Predictions: []AppointmentNoShowPrediction{}}
	hasMore := len(events) > limit
	if hasMore {
		events = events[:limit]
	}
	for _, e := range events {
		level, _ := classifier.ParseRiskLevel(e.RiskLevel)
		resp.Predictions = append(resp.Predictions, AppointmentNoShowPrediction{
			ID:             e.ID.String(),
			AppointmentID:  e.AppointmentID,
			PredictionTime: e.PredictionTime,
			Probability:    e.NoShowProbability,
			RiskLevel:      RiskLevelOf(level),
		})
	}
	if hasMore && len(events) > 0 {
		resp.NextPageToken = encodePageToken(events[len(events)-1].PredictionTime)
	}
	return resp, nil
}

func (s *AnalyticsServer) GetPatientRiskPredictions(ctx context.Context, req *GetPatientRiskPredictionsRequest) (*GetPatientRiskPredictionsResponse, error) {
	return nil, status.Error(codes.Unimplemented, "patient risk predictions are not available")
}

func (s *AnalyticsServer) GetResourceUtilizationPredictions(ctx context.Context, req *GetResourceUtilizationPredictionsRequest) (*GetResourceUtilizationPredictionsResponse, error) {
	return nil, status.Error(codes.Unimplemented, "resource utilization predictions are not available")
}

func encodePageToken(t time.Time) string {
	return base64.RawURLEncoding.EncodeToString([]byte(t.UTC().Format(time.RFC3339Nano)))
}

func decodePageToken(token string) (*time.Time, error) {
	if token == "" {
		return nil, nil
	}
	raw, err := base64.RawURLEncoding.DecodeString(token)
	if err != nil {
		return nil, fmt.Errorf("malformed page token")
	}
	t, err := time.Parse(time.RFC3339Nano, string(raw))
	if err != nil {
		return nil, fmt.Errorf("malformed page token")
	}
	return &t, nil
}
