package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"rehearsalcal/internal/report"
)

func runCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "run",
		Short: "Generate all calendars once and exit",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := validConfig(); err != nil {
				return err
			}
			builder, err := newBuilder()
			if err != nil {
				return fmt.Errorf("run: %w", err)
			}

			res, err := generate(cmd.Context(), builder)
			if err != nil {
				return fmt.Errorf("run: %w", err)
			}

			fmt.Fprintln(cmd.OutOrStdout(), report.Summary(res.Occasions, res.Groups))
			for _, g := range res.Groups {
				fmt.Fprintf(cmd.OutOrStdout(), "  %-24s %3d events\n", g.Person, len(g.Pairs))
			}
			fmt.Fprintf(cmd.OutOrStdout(), "calendars written to %s\n", cfg.OutDir)
			return nil
		},
	}
}
