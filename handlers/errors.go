package handlers

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/usazehan/healthcare-admin-dashboard/classifier"
	"github.com/usazehan/healthcare-admin-dashboard/features"
	"github.com/usazehan/healthcare-admin-dashboard/registry"
	"github.com/usazehan/healthcare-admin-dashboard/services"
)

// statusFor classifies a service error into an HTTP status.
func statusFor(err error) int {
	switch {
	case errors.Is(err, features.ErrInvalidValue),
		errors.Is(err, services.ErrInvalidInput),
		errors.Is(err, services.ErrInvalidEvent):
		return http.StatusBadRequest
	case errors.Is(err, registry.ErrNotFound),
		errors.Is(err, classifier.ErrNotLoaded),
		errors.Is(err, services.ErrUnknownModel):
		return http.StatusNotFound
	case errors.Is(err, registry.ErrVersionExists):
		return http.StatusConflict
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	default:
		return http.StatusInternalServerError
	}
}

func respondError(c *gin.Context, err error) {
	c.JSON(statusFor(err), gin.H{"error": err.Error()})
}
