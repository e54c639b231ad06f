package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/usazehan/healthcare-admin-dashboard/config"
	"github.com/usazehan/healthcare-admin-dashboard/handlers"
	"github.com/usazehan/healthcare-admin-dashboard/middleware"
	"github.com/usazehan/healthcare-admin-dashboard/rpc"
	"github.com/usazehan/healthcare-admin-dashboard/server"
	"github.com/usazehan/healthcare-admin-dashboard/services"
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "model-service",
		Short: "No-show, treatment outcome and readmission risk models over REST and gRPC",
	}
	rootCmd.AddCommand(serveCmd(), migrateCmd(), server.HashSecretCmd())

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the REST and gRPC servers",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServer()
		},
	}
}

func migrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Create the model version tables",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, log, err := server.Setup(config.ModelService)
			if err != nil {
				return err
			}
			defer log.Sync()
			_, closeReg, err := server.OpenRegistry(cmd.Context(), cfg, log)
			if err != nil {
				return err
			}
			closeReg()
			log.Info("migrations applied")
			return nil
		},
	}
}

func runServer() error {
	cfg, log, err := server.Setup(config.ModelService)
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

	rep, closeSinks, err := server.NewReporter(cfg, log)
	if err != nil {
		return err
	}
	defer closeSinks()
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
		log.Warn("JWT_SECRET not set, training routes are unauthenticated")
	}
	server.PreloadModel(ctx, cfg, manager, log)

	router := server.NewRouter(cfg, log, manager.Served)
	router.POST("/auth/token", handlers.NewAuthHandler(authService).Token)
	handlers.NewModelHandler(manager, predictions, "no-show", "treatment-outcome", "readmission-risk").
		Register(router, middleware.RequireRole(authService, services.RoleAdmin))

	grpcSrv := rpc.NewServer(log, cfg.GRPC.MaxStreams)
	rpc.RegisterMLServiceServer(grpcSrv, rpc.NewMLServer(predictions))

	return server.Run(ctx, cfg, log, router, grpcSrv)
}
