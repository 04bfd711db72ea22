package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"rehearsalcal/internal/config"
)

func configCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Inspect or reset the configuration file",
	}
	cmd.AddCommand(configInitCmd(), configShowCmd())
	return cmd
}

func configInitCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "init",
		Short: "Write the default configuration to --config",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := config.Save(configPath, config.DefaultConfig()); err != nil {
				return fmt.Errorf("config init: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "default config written to %s\n", configPath)
			return nil
		},
	}
}

func configShowCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show",
		Short: "Print the effective configuration and validate it",
		RunE: func(cmd *cobra.Command, args []string) error {
			shown := *cfg
			if shown.BasicAuth != nil {
				masked := *shown.BasicAuth
				masked.Password = "********"
				shown.BasicAuth = &masked
			}
			data, err := yaml.Marshal(&shown)
			if err != nil {
				return fmt.Errorf("config show: %w", err)
			}
			fmt.Fprint(cmd.OutOrStdout(), string(data))

			if err := validConfig(); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "# config is valid")
			return nil
		},
	}
}
