package handlers

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/usazehan/healthcare-admin-dashboard/classifier"
	"github.com/usazehan/healthcare-admin-dashboard/registry"
	"github.com/usazehan/healthcare-admin-dashboard/services"
)

// ModelHandler serves /models/:model for the model slugs a service exposes.
type ModelHandler struct {
	manager     *services.ModelManager
	predictions *services.PredictionService
	slugs       map[string]bool
}

func NewModelHandler(manager *services.ModelManager, predictions *services.PredictionService, slugs ...string) *ModelHandler {
	allowed := make(map[string]bool, len(slugs))
	for _, s := range slugs {
		allowed[s] = true
	}
	return &ModelHandler{manager: manager, predictions: predictions, slugs: allowed}
}

type PredictRequest struct {
	PatientID     string                 `json:"patient_id"`
	AppointmentID string                 `json:"appointment_id,omitempty"`
	Features      map[string]interface{} `json:"features" binding:"required"`
}

type PredictResponse struct {
	PatientID  string                `json:"patient_id"`
	Prediction classifier.Prediction `json:"prediction"`
}

type TrainRequest struct {
	TrainingData   classifier.LabeledData `json:"training_data"`
	ValidationData classifier.LabeledData `json:"validation_data"`
	ModelVersion   string                 `json:"model_version"`
}

type TrainResponse struct {
	ModelVersion string             `json:"model_version"`
	RunID        string             `json:"run_id"`
	Metrics      classifier.Metrics `json:"metrics"`
}

// modelName resolves the :model path segment, answering 404 itself when the
// slug is unknown or not served here.
func (h *ModelHandler) modelName(c *gin.Context) (string, bool) {
	slug := c.Param("model")
	name, err := services.ModelForSlug(slug)
	if err == nil && !h.slugs[slug] {
		err = fmt.Errorf("%w: %q", services.ErrUnknownModel, slug)
	}
	if err != nil {
		respondError(c, err)
		return "", false
	}
	return name, true
}

func (h *ModelHandler) Predict(c *gin.Context) {
	name, ok := h.modelName(c)
	if !ok {
		return
	}
	var req PredictRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	pred, err := h.predictions.Predict(c.Request.Context(), name, services.PredictionRequest{
		AppointmentID: req.AppointmentID,
		Features:      req.Features,
	})
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, PredictResponse{PatientID: req.PatientID, Prediction: pred})
}

func (h *ModelHandler) Train(c *gin.Context) {
	name, ok := h.modelName(c)
	if !ok {
		return
	}
	var req TrainRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	mv, err := h.manager.Train(c.Request.Context(), name, req.ModelVersion, req.TrainingData, req.ValidationData)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, TrainResponse{ModelVersion: mv.Version, RunID: mv.RunID, Metrics: mv.Metrics})
}

func (h *ModelHandler) Versions(c *gin.Context) {
	name, ok := h.modelName(c)
	if !ok {
		return
	}
	versions, err := h.manager.Versions(c.Request.Context(), name)
	if err != nil {
		respondError(c, err)
		return
	}
	if versions == nil {
		versions = []registry.ModelVersion{}
	}
	c.JSON(http.StatusOK, versions)
}

// Activate switches the served model to an existing version.
func (h *ModelHandler) Activate(c *gin.Context) {
	name, ok := h.modelName(c)
	if !ok {
		return
	}
	if err := h.manager.Load(c.Request.Context(), name, c.Param("version")); err != nil {
		respondError(c, err)
		return
	}
	version, _ := h.manager.LoadedVersion(name)
	c.JSON(http.StatusOK, gin.H{"model": name, "version": version})
}

// Register mounts the model routes. guard protects the routes that change
// which weights are served.
func (h *ModelHandler) Register(r gin.IRouter, guard gin.HandlerFunc) {
	g := r.Group("/models/:model")
	g.POST("/predict", h.Predict)
	g.GET("/versions", h.Versions)
	g.POST("/train", guard, h.Train)
	g.POST("/versions/:version/activate", guard, h.Activate)
}
