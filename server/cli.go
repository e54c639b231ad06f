package server

import (
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/usazehan/healthcare-admin-dashboard/config"
	"github.com/usazehan/healthcare-admin-dashboard/logger"
	"github.com/usazehan/healthcare-admin-dashboard/services"
)

// Setup loads configuration for service and builds its logger.
func Setup(service string) (*config.Config, *zap.Logger, error) {
	cfg, err := config.LoadConfig(service)
	if err != nil {
		return nil, nil, fmt.Errorf("load config: %w", err)
	}
	log, err := logger.New(cfg.Logging.Level, cfg.Logging.Format)
	if err != nil {
		return nil, nil, err
	}
	return cfg, log.With(zap.String("service", service)), nil
}

// HashSecretCmd prints the bcrypt hash to put in AUTH_CLIENT_SECRET_HASH.
func HashSecretCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "hash-secret <secret>",
		Short: "Print the bcrypt hash of a client secret",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			hash, err := (&services.AuthService{}).HashSecret(args[0])
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), hash)
			return nil
		},
	}
}
