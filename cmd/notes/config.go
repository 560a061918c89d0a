package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newConfigCmd(e *env) *cobra.Command {
	return &cobra.Command{
		Use:   "config",
		Short: "Print the effective configuration",
		Args:  cobra.NoArgs,
		RunE: func(*cobra.Command, []string) error {
			cfg, err := loadConfig(e)
			if err != nil {
				return err
			}
			fmt.Fprintln(e.out, "Configuration:")
			cfg.PrintSummary(e.out)
			return nil
		},
	}
}
