package main

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	appLog "rehearsalcal/internal/log"
	"rehearsalcal/internal/watch"
	"rehearsalcal/internal/workbook"
)

func watchCmd() *cobra.Command {
	var debounce time.Duration

	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Regenerate calendars whenever the workbook file changes",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := validConfig(); err != nil {
				return err
			}
			if workbook.IsRemote(cfg.Workbook) {
				return errors.New("watch: remote workbooks cannot be watched, use serve with a refresh schedule")
			}
			builder, err := newBuilder()
			if err != nil {
				return fmt.Errorf("watch: %w", err)
			}

			regenerate := func(ctx context.Context) error {
				res, err := generate(ctx, builder)
				if err != nil {
					return err
				}
				appLog.Info("calendars regenerated", "persons", len(res.Groups), "out_dir", cfg.OutDir)
				return nil
			}

			ctx := cmd.Context()
			// A broken workbook is expected while someone is editing it.
			if err := regenerate(ctx); err != nil && !isCanceled(err) {
				appLog.Error("initial generation failed", err)
			}
			return watch.New(cfg.Workbook, debounce, regenerate).Run(ctx)
		},
	}

	cmd.Flags().DurationVar(&debounce, "debounce", watch.DefaultDebounce, "quiet period after the last change")
	return cmd
}
