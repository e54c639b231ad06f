package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/usazehan/healthcare-admin-dashboard/models"
	"github.com/usazehan/healthcare-admin-dashboard/reporter"
	"github.com/usazehan/healthcare-admin-dashboard/rpc"
)

// NoShowPredictor is the part of the MLService client the proxy needs.
type NoShowPredictor interface {
	PredictNoShow(ctx context.Context, in *rpc.PredictNoShowRequest, opts ...grpc.CallOption) (*rpc.NoShowPrediction, error)
}

// NoShowProxy answers REST no-show predictions by calling MLService and
// reports each result that names an appointment.
type NoShowProxy struct {
	client   NoShowPredictor
	reporter *reporter.Reporter
	timeout  time.Duration
	now      func() time.Time
}

func NewNoShowProxy(client NoShowPredictor, rep *reporter.Reporter, timeout time.Duration) *NoShowProxy {
	return &NoShowProxy{client: client, reporter: rep, timeout: timeout, now: time.Now}
}

type NoShowResponse struct {
	PatientID     string  `json:"patient_id"`
	AppointmentID string  `json:"appointment_id,omitempty"`
	Probability   float64 `json:"probability"`
	RiskLevel     string  `json:"risk_level"`
}

func (h *NoShowProxy) Predict(c *gin.Context) {
	var req PredictRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	ctx := c.Request.Context()
	if h.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, h.timeout)
		defer cancel()
	}

	// The appointment id stays here: this service reports the event.
	resp, err := h.client.PredictNoShow(ctx, &rpc.PredictNoShowRequest{
		PatientID: req.PatientID,
		Features:  req.Features,
	})
	if err != nil {
		st := status.Convert(err)
		c.JSON(httpStatusForCode(st.Code()), gin.H{"error": st.Message()})
		return
	}

	level := string(resp.RiskLevel.Classifier())
	if req.AppointmentID != "" {
		p := resp.Probability
		h.reporter.Report(models.PredictionEventPayload{
			AppointmentID:     req.AppointmentID,
			PredictionTime:    h.now().UTC().Format(time.RFC3339Nano),
			NoShowProbability: &p,
			RiskLevel:         level,
		})
	}

	c.JSON(http.StatusOK, NoShowResponse{
		PatientID:     req.PatientID,
		AppointmentID: req.AppointmentID,
		Probability:   resp.Probability,
		RiskLevel:     level,
	})
}

func httpStatusForCode(code codes.Code) int {
	switch code {
	case codes.InvalidArgument:
		return http.StatusBadRequest
	case codes.FailedPrecondition, codes.NotFound:
		return http.StatusNotFound
	case codes.AlreadyExists:
		return http.StatusConflict
	case codes.Unimplemented:
		return http.StatusNotImplemented
	case codes.Unavailable:
		return http.StatusServiceUnavailable
	case codes.DeadlineExceeded:
		return http.StatusGatewayTimeout
	default:
		return http.StatusInternalServerError
	}
}
