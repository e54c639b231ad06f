package handlers

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/usazehan/healthcare-admin-dashboard/classifier"
	"github.com/usazehan/healthcare-admin-dashboard/models"
	"github.com/usazehan/healthcare-admin-dashboard/services"
)

const listCacheTTL = 10 * time.Second

type AnalyticsHandler struct {
	ingestor *services.Ingestor
	cache    *services.CacheService
}

func NewAnalyticsHandler(ingestor *services.Ingestor, cache *services.CacheService) *AnalyticsHandler {
	return &AnalyticsHandler{ingestor: ingestor, cache: cache}
}

// Ingest accepts one prediction event from a prediction service.
func (h *AnalyticsHandler) Ingest(c *gin.Context) {
	var payload models.PredictionEventPayload
	if err := c.ShouldBindJSON(&payload); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	event, err := h.ingestor.Ingest(c.Request.Context(), "http", payload)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusAccepted, gin.H{"status": "accepted", "id": event.ID})
}

func (h *AnalyticsHandler) List(c *gin.Context) {
	p, err := ParsePagination(c)
	if err != nil {
		respondError(c, err)
		return
	}

	appointmentID := c.Query("appointment_id")
	riskLevel := c.Query("risk_level")
	if riskLevel != "" {
		level, err := classifier.ParseRiskLevel(riskLevel)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		riskLevel = string(level)
	}

	beforeStr := ""
	if p.Before != nil {
		beforeStr = p.Before.Format(time.RFC3339Nano)
	}
	cacheKey := fmt.Sprintf("analytics:predictions:%s:%s:%d:%s", appointmentID, riskLevel, p.Limit, beforeStr)

	var cached CursorResponse
	if err := h.cache.Get(c.Request.Context(), cacheKey, &cached); err == nil && cached.Data != nil {
		c.JSON(http.StatusOK, cached)
		return
	}

	rows, err := h.ingestor.List(c.Request.Context(), services.EventFilter{
		AppointmentID: appointmentID,
		RiskLevel:     riskLevel,
		Before:        p.Before,
		Limit:         p.Limit + 1,
	})
	if err != nil {
		respondError(c, err)
		return
	}

	hasMore := len(rows) > p.Limit
	if hasMore {
		rows = rows[:p.Limit]
	}
	var nextCursor string
	if hasMore && len(rows) > 0 {
		nextCursor = rows[len(rows)-1].PredictionTime.Format(time.RFC3339Nano)
	}
	if rows == nil {
		rows = []models.PredictionEvent{}
	}

	resp := CursorResponse{Data: rows, NextCursor: nextCursor, HasMore: hasMore}
	go h.cache.Set(context.Background(), cacheKey, resp, listCacheTTL)

	c.JSON(http.StatusOK, resp)
}

func (h *AnalyticsHandler) Register(r gin.IRouter) {
	g := r.Group("/analytics")
	g.POST("/predictions", h.Ingest)
	g.GET("/predictions", h.List)
}
