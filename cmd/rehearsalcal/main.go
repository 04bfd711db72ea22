package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	_ "time/tzdata"

	"github.com/spf13/cobra"

	"rehearsalcal/internal/cast"
	"rehearsalcal/internal/config"
	"rehearsalcal/internal/grid"
	"rehearsalcal/internal/ics"
	appLog "rehearsalcal/internal/log"
	"rehearsalcal/internal/pipeline"
	"rehearsalcal/internal/workbook"
)

const version = "0.1.0"

var (
	cfg        *config.Config
	configPath string
	debug      bool

	// CLI overrides; empty means "use the config file".
	flagWorkbook string
	flagOutDir   string
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)

	rootCmd := &cobra.Command{
		Use:           "rehearsalcal",
		Short:         "Turn a rehearsal workbook into one iCalendar file per cast member",
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			var err error
			cfg, err = config.Load(configPath)
			if err != nil {
				return fmt.Errorf("loading config: %w", err)
			}
			if flagWorkbook != "" {
				cfg.Workbook = flagWorkbook
			}
			if flagOutDir != "" {
				cfg.OutDir = flagOutDir
			}
			if debug {
				cfg.LogLevel = "debug"
			}
			setupLogging()
			return nil
		},
	}

	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "rehearsalcal.yaml", "path to config file (created with defaults if missing)")
	rootCmd.PersistentFlags().BoolVar(&debug, "debug", false, "enable debug logging")
	rootCmd.PersistentFlags().StringVarP(&flagWorkbook, "workbook", "w", "", "workbook path or URL (overrides config)")
	rootCmd.PersistentFlags().StringVarP(&flagOutDir, "out", "o", "", "output directory (overrides config)")

	rootCmd.AddCommand(
		runCmd(),
		previewCmd(),
		watchCmd(),
		serveCmd(),
		configCmd(),
	)

	rootCmd.SetContext(ctx)

	err := rootCmd.Execute()
	stop()
	if err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func setupLogging() {
	appLog.SetFormat(os.Stderr, cfg.LogFormat)
	appLog.SetLevel(appLog.ParseLevel(cfg.LogLevel))
}

// validConfig normalizes and validates cfg for commands that read the
// workbook.
func validConfig() error {
	cfg.Normalize()
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid config %s: %w", configPath, err)
	}
	return nil
}

func newBuilder() (*ics.Builder, error) {
	loc, err := cfg.Location()
	if err != nil {
		return nil, err
	}
	return ics.NewBuilder(ics.Options{
		Location:        loc,
		DefaultDuration: cfg.DefaultDuration(),
		Title:           cfg.EventTitle,
		ProductID:       cfg.ProductID,
	}), nil
}

// pipelineOptions resolves the workbook (downloading it when remote) and
// returns the options for one pipeline run.
func pipelineOptions(ctx context.Context) (pipeline.Options, error) {
	res, err := workbook.NewFetcher(cfg.CacheDir).Resolve(ctx, cfg.Workbook)
	if err != nil {
		return pipeline.Options{}, err
	}
	if res.FromCache {
		appLog.Warn("using cached workbook", "path", res.Path)
	}
	return pipeline.Options{
		Workbook:      res.Path,
		ScheduleSheet: cfg.ScheduleSheet,
		CastSheet:     cfg.CastSheet,
		Marks:         cast.Marks{Performs: cfg.Marks.Performs, SilentPlay: cfg.Marks.SilentPlay},
	}, nil
}

// generate runs the whole pipeline once and writes calendars to OutDir.
func generate(ctx context.Context, builder *ics.Builder) (*pipeline.Result, error) {
	opts, err := pipelineOptions(ctx)
	if err != nil {
		return nil, err
	}
	return pipeline.Run(ctx, grid.NewExcelSource(), opts, ics.NewWriter(cfg.OutDir, builder))
}

func isCanceled(err error) bool {
	return errors.Is(err, context.Canceled)
}
