package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/usazehan/healthcare-admin-dashboard/config"
	"github.com/usazehan/healthcare-admin-dashboard/handlers"
	"github.com/usazehan/healthcare-admin-dashboard/rpc"
	"github.com/usazehan/healthcare-admin-dashboard/server"
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "prediction-service",
		Short: "REST front for no-show predictions served by model-service",
	}
	rootCmd.AddCommand(&cobra.Command{
		Use:   "serve",
		Short: "Start the REST server",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServer()
		},
	})

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func runServer() error {
	cfg, log, err := server.Setup(config.PredictionService)
	if err != nil {
		return err
	}
	defer log.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	conn, err := rpc.Dial(cfg.MLService.Addr)
	if err != nil {
		return fmt.Errorf("dial model service: %w", err)
	}
	defer conn.Close()
	log.Info("using model service", zap.String("addr", cfg.MLService.Addr))

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

	router := server.NewRouter(cfg, log, nil)
	router.POST("/predict/no-show", handlers.NewNoShowProxy(rpc.NewMLClient(conn), rep, cfg.MLService.Timeout).Predict)

	return server.Run(ctx, cfg, log, router, nil)
}
