package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/vovakirdan/codeshare-server/internal/app"
	"github.com/vovakirdan/codeshare-server/internal/config"
	"github.com/vovakirdan/codeshare-server/internal/log"
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
		Use:           "codeshare-server",
		Short:         "Room state store for collaborative code editing",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			boot := log.New("info", "console")
			cfg, path, err := config.Load(boot, configPath)
			if err != nil {
				return err
			}
			cfg.UpdateFrom(overrides)

			logger := log.New(cfg.LogLevel, cfg.LogFormat)
			logger.Info().Str("config", path).Str("addr", cfg.Addr).Msg("starting codeshare server")

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			application, err := app.New(cfg, logger)
			if err != nil {
				return err
			}
			if err := application.Run(ctx); err != nil {
				return fmt.Errorf("server exited with error: %w", err)
			}
			logger.Info().Msg("server stopped")
			return nil
		},
	}

	f := cmd.Flags()
	f.StringVar(&configPath, "config", "", "path to config.yaml")
	f.StringVar(&overrides.Addr, "addr", "", "HTTP listen address")
	f.DurationVar(&overrides.ReadHeaderTimeout, "read-header-timeout", 0, "HTTP read header timeout")
	f.DurationVar(&overrides.ShutdownTimeout, "shutdown-timeout", 0, "graceful shutdown timeout")
	f.StringVar(&overrides.LogLevel, "log-level", "", "debug, info, warn or error")
	f.StringVar(&overrides.LogFormat, "log-format", "", "console or json")
	f.StringVar(&overrides.DatabasePath, "db", "", "SQLite database path")
	f.DurationVar(&overrides.FlushInterval, "flush-interval", 0, "how often room content is persisted")
	f.IntVar(&overrides.RateLimitPerMinute, "rate-limit", 0, "store commands per connection per minute")

	return cmd
}
