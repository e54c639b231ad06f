package server

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"go.uber.org/zap"
	"google.golang.org/grpc"

	"github.com/usazehan/healthcare-admin-dashboard/config"
)

const shutdownTimeout = 10 * time.Second

// Run serves handler on the HTTP address and grpcSrv, when not nil, on the
// gRPC port until ctx ends or either server fails. Both are then stopped.
func Run(ctx context.Context, cfg *config.Config, log *zap.Logger, handler http.Handler, grpcSrv *grpc.Server) error {
	httpSrv := &http.Server{
		Addr:              cfg.Server.Addr(),
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
	}

	errs := make(chan error, 2)
	go func() {
		log.Info("http server listening", zap.String("addr", httpSrv.Addr))
		if err := httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errs <- fmt.Errorf("http server: %w", err)
		}
	}()

	if grpcSrv != nil && cfg.GRPC.Port > 0 {
		addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.GRPC.Port)
		lis, err := net.Listen("tcp", addr)
		if err != nil {
			_ = httpSrv.Close()
			return fmt.Errorf("grpc listen: %w", err)
		}
		go func() {
			log.Info("grpc server listening", zap.String("addr", addr))
			if err := grpcSrv.Serve(lis); err != nil {
				errs <- fmt.Errorf("grpc server: %w", err)
			}
		}()
	}

	var runErr error
	select {
	case <-ctx.Done():
		log.Info("shutting down")
	case runErr = <-errs:
		log.Error("server failed", zap.Error(runErr))
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if grpcSrv != nil {
		stopped := make(chan struct{})
		go func() {
			grpcSrv.GracefulStop()
			close(stopped)
		}()
		select {
		case <-stopped:
		case <-shutdownCtx.Done():
			grpcSrv.Stop()
		}
	}
	if err := httpSrv.Shutdown(shutdownCtx); err != nil {
		log.Warn("http shutdown", zap.Error(err))
	}
	return runErr
}
