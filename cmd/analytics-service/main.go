package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/usazehan/healthcare-admin-dashboard/collector"
	"github.com/usazehan/healthcare-admin-dashboard/config"
	"github.com/usazehan/healthcare-admin-dashboard/handlers"
	"github.com/usazehan/healthcare-admin-dashboard/middleware"
	"github.com/usazehan/healthcare-admin-dashboard/reporter"
	"github.com/usazehan/healthcare-admin-dashboard/rpc"
	"github.com/usazehan/healthcare-admin-dashboard/server"
	"github.com/usazehan/healthcare-admin-dashboard/services"
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "analytics-service",
		Short: "Prediction event log and analytics model over REST and gRPC",
	}
	rootCmd.AddCommand(serveCmd(), migrateCmd(), server.HashSecretCmd())

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the REST and gRPC servers and the MQTT collector",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServer()
		},
	}
}

func migrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Create the prediction event and model version tables",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, log, err := server.Setup(config.AnalyticsService)
			if err != nil {
				return err
			}
			defer log.Sync()
			_, closeReg, err := server.OpenRegistry(cmd.Context(), cfg, log)
			if err != nil {
				return err
			}
			closeReg()
			_, closeStore, err := server.OpenEventStore(cmd.Context(), cfg, log)
			if err != nil {
				return err
			}
			closeStore()
			log.Info("migrations applied")
			return nil
		},
	}
}

func runServer() error {
	cfg, log, err := server.Setup(config.AnalyticsService)
	if err != nil {
		return err
	}
	defer log.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	reg, closeReg, err := server.OpenRegistry(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer closeReg()

	store, closeStore, err := server.OpenEventStore(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer closeStore()

	cache := server.OpenCache(ctx, cfg, log)
	defer cache.Close()

	ingestor := services.NewIngestor(store, cache, log)

	// analytics predictions that name an appointment go straight to the local log
	rep := reporter.New(log, cfg.Analytics.Timeout, cfg.Analytics.QueueSize, server.NewIngestSink(ingestor))
	defer func() {
		drainCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := rep.Close(drainCtx); err != nil {
			log.Warn("reporter did not drain", zap.Error(err))
		}
	}()

	manager := services.NewModelManager(reg, log)
	predictions := services.NewPredictionService(manager, rep)
	authService := services.NewAuthService(cfg.JWT, cfg.Auth)
	if !authService.Enabled() {
		log.Warn("JWT_SECRET not set, training routes and live feed are unauthenticated")
	}
	server.PreloadModel(ctx, cfg, manager, log)

	if cfg.MQTT.URL != "" {
		c := collector.New(ingestor, cfg.MQTT.Topic, log)
		go func() {
			if err := c.Run(ctx, cfg.MQTT.URL); err != nil {
				log.Error("collector stopped", zap.Error(err))
			}
		}()
	}

	router := server.NewRouter(cfg, log, manager.Served)
	router.POST("/auth/token", handlers.NewAuthHandler(authService).Token)
	handlers.NewModelHandler(manager, predictions, "analytics").
		Register(router, middleware.RequireRole(authService, services.RoleAdmin))
	handlers.NewAnalyticsHandler(ingestor, cache).Register(router)
	router.GET("/analytics/live", handlers.LiveWebSocket(cache, authService, log))

	grpcSrv := rpc.NewServer(log, cfg.GRPC.MaxStreams)
	rpc.RegisterAnalyticsServiceServer(grpcSrv, rpc.NewAnalyticsServer(ingestor))

	return server.Run(ctx, cfg, log, router, grpcSrv)
}
