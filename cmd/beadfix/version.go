package main

import (
	"github.com/spf13/cobra"

	"bead-fixer/internal/output"
	"bead-fixer/internal/version"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	RunE: func(cmd *cobra.Command, args []string) error {
		return output.Write(cmd.OutOrStdout(), format, version.Get())
	},
}
