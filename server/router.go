package server

import (
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/usazehan/healthcare-admin-dashboard/config"
	"github.com/usazehan/healthcare-admin-dashboard/handlers"
	"github.com/usazehan/healthcare-admin-dashboard/middleware"
)

// NewRouter returns a gin engine with the shared middleware stack and the
// /health and /metrics routes. served may be nil.
func NewRouter(cfg *config.Config, log *zap.Logger, served func() map[string]string) *gin.Engine {
	r := gin.New()
	r.Use(
		middleware.Recovery(log),
		middleware.RequestLogger(log),
		middleware.Metrics(),
		middleware.SetupCORS(cfg.CORS),
	)
	r.GET("/health", handlers.Health(cfg.Service, served))
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))
	return r
}
