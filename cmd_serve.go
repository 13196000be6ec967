package main

import (
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/Chative-core-poc-v1/lexroute/internal/server"
	logx "github.com/Chative-core-poc-v1/lexroute/pkg/logger"
)

var serveAddr string

// serveCmd starts the HTTP API and browser test form
var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP server",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		if serveAddr != "" {
			cfg.Server.Addr = serveAddr
		}

		store, closer, err := openRepository(ctx, cfg)
		if err != nil {
			return err
		}
		defer closer.Close()

		runner, err := buildRunner(ctx, cfg, store)
		if err != nil {
			return err
		}

		if err := server.New(cfg.Server, runner, store).Run(ctx); err != nil {
			logx.Error().Err(err).Msg("HTTP server stopped with error")
			return err
		}
		logx.Info().Msg("HTTP server stopped")
		return nil
	},
}

func init() {
	serveCmd.Flags().StringVar(&serveAddr, "addr", "", "Listen address (overrides SERVER_ADDR)")
}
