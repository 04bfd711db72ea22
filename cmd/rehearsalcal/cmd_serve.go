package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	appLog "rehearsalcal/internal/log"
	"rehearsalcal/internal/pipeline"
	"rehearsalcal/internal/watch"
	"rehearsalcal/internal/web"
)

func serveCmd() *cobra.Command {
	var listen string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve calendars over HTTP and regenerate them on the refresh schedule",
		RunE: func(cmd *cobra.Command, args []string) error {
			if listen != "" {
				cfg.Listen = listen
			}
			if err := validConfig(); err != nil {
				return err
			}
			builder, err := newBuilder()
			if err != nil {
				return fmt.Errorf("serve: %w", err)
			}
			ctx := cmd.Context()

			srv := web.NewServer(cfg, func(ctx context.Context) (*pipeline.Result, error) {
				return generate(ctx, builder)
			}, builder, debug)

			if cfg.BasicAuth == nil {
				appLog.Warn("HTTP basic auth is disabled; calendars are readable by anyone who can reach " + cfg.Listen)
			}

			// The server answers 503 until a build succeeds.
			if err := srv.Refresh(ctx); err != nil && !isCanceled(err) {
				appLog.Error("initial generation failed", err)
			}
			if err := watch.Schedule(ctx, cfg.RefreshCron, srv.Refresh); err != nil {
				return fmt.Errorf("serve: %w", err)
			}

			if err := srv.Run(ctx); err != nil {
				return fmt.Errorf("serve: HTTP server: %w", err)
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&listen, "listen", "l", "", "HTTP listen address (overrides config)")
	return cmd
}
