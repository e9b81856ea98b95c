package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/Sundussheikhdev/sync-board-BE/internal/app"
	"github.com/Sundussheikhdev/sync-board-BE/internal/config"
	"github.com/Sundussheikhdev/sync-board-BE/internal/log"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var (
		configPath string
		overrides  config.Config
	)

	cmd := &cobra.Command{
		Use:          "syncboard-server",
		Short:        "Collaborative whiteboard and chat server",
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			bootLogger := log.New("info")

			cfg, path, err := config.Load(bootLogger, configPath)
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}
			cfg.UpdateFrom(overrides)

			logger := log.New(cfg.LogLevel)
			logger.Info().Str("config", path).Str("addr", cfg.Addr).Msg("starting syncboard server")

			application, err := app.New(&cfg, logger)
			if err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			if err := application.Run(ctx); err != nil {
				return fmt.Errorf("server exited: %w", err)
			}
			logger.Info().Msg("server stopped")
			return nil
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", "", "path to config file")
	cmd.Flags().StringVar(&overrides.Addr, "addr", "", "HTTP listen address")
	cmd.Flags().StringVar(&overrides.LogLevel, "log-level", "", "log level (debug, info, warn, error)")
	cmd.Flags().StringVar(&overrides.DatabasePath, "db", "", "path to SQLite database file")
	cmd.Flags().StringVar(&overrides.UploadDir, "upload-dir", "", "directory for uploaded files")
	cmd.Flags().DurationVar(&overrides.ShutdownTimeout, "shutdown-timeout", 0, "graceful shutdown timeout")

	return cmd
}
