package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/d60-Lab/postfeed/internal/app"
	"github.com/d60-Lab/postfeed/pkg/logger"
	"github.com/d60-Lab/postfeed/pkg/reporting"
	"github.com/d60-Lab/postfeed/pkg/tracing"
)

func newServeCommand() *cobra.Command {
	var embeddedRedis bool
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP server",
		RunE: func(_ *cobra.Command, _ []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			defer func() { _ = logger.Sync() }()

			if err := reporting.Init(cfg.Sentry); err != nil {
				logger.Warn("sentry disabled", zap.Error(err))
			}
			defer reporting.Flush()

			ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			shutdownTracing, err := tracing.Init(ctx, cfg.Tracing)
			if err != nil {
				return err
			}
			defer func() {
				if err := shutdownTracing(context.Background()); err != nil {
					logger.Warn("tracing shutdown", zap.Error(err))
				}
			}()

			a, err := app.New(cfg, app.Options{EmbeddedRedis: embeddedRedis})
			if err != nil {
				return err
			}
			defer func() {
				if err := a.Close(); err != nil {
					logger.Error("close app", zap.Error(err))
				}
			}()
			return a.Run(ctx)
		},
	}
	cmd.Flags().BoolVar(&embeddedRedis, "embedded-redis", false, "Use an in-process redis instead of redis.addr")
	return cmd
}
