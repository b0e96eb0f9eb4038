package main

import (
	"log/slog"
	"os"

	"github.com/corray333/backend-labs/idempotent-order/internal/app"
	"github.com/corray333/backend-labs/idempotent-order/internal/config"
	"github.com/spf13/cobra"
)

func newRootCmd() *cobra.Command {
	var configFile, envFile string

	cmd := &cobra.Command{
		Use:           "order-svc",
		Short:         "Idempotent order creation service",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := config.Init(configFile, envFile); err != nil {
				return err
			}

			return app.MustNewApp().Run()
		},
	}

	cmd.Flags().StringVar(&configFile, "config", "", "path to the config file (default ./config.yaml or /etc/order-svc/config.yaml)")
	cmd.Flags().StringVar(&envFile, "env-file", ".env", "path to the env file")

	return cmd
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		slog.Error("Application failed", "error", err)
		os.Exit(1)
	}
}
