package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"rehearsalcal/internal/grid"
	"rehearsalcal/internal/pipeline"
	"rehearsalcal/internal/report"
)

func previewCmd() *cobra.Command {
	var person string

	cmd := &cobra.Command{
		Use:   "preview",
		Short: "Print each person's schedule without writing calendars",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := validConfig(); err != nil {
				return err
			}
			ctx := cmd.Context()

			opts, err := pipelineOptions(ctx)
			if err != nil {
				return fmt.Errorf("preview: %w", err)
			}
			res, err := pipeline.Build(ctx, grid.NewExcelSource(), opts)
			if err != nil {
				return fmt.Errorf("preview: %w", err)
			}

			out := cmd.OutOrStdout()
			fmt.Fprintln(out, report.Summary(res.Occasions, res.Groups))
			fmt.Fprintln(out)
			return report.Write(out, res.Groups, res.Facts.DefaultLocation, person)
		},
	}

	cmd.Flags().StringVarP(&person, "person", "p", "", "only show this person")
	return cmd
}
