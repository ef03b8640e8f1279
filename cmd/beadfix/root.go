package main

import (
	"io"
	"log/slog"
	"strings"

	"github.com/spf13/cobra"

	"bead-fixer/internal/config"
	"bead-fixer/internal/output"
	"bead-fixer/internal/version"
)

var (
	cfgFile      string
	outputFormat string

	cfgManager *config.Manager
	format     output.Format
	logger     = slog.Default()
)

var rootCmd = &cobra.Command{
	Use:   "beadfix",
	Short: "Fix fiducial models of tilt series",
	Long: `beadfix corrects fiducial (bead) models of tilt series.

It steps through the large residuals an alignment run reports and moves
points by their residuals, walks the model for gaps in bead tracks, and
centers points on beads in the images.`,
	Version:      version.Version,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		f, err := output.ParseFormat(outputFormat)
		if err != nil {
			return err
		}
		format = f

		mgr, err := config.NewManager(cfgFile)
		if err != nil {
			return err
		}
		cfgManager = mgr
		logger = newLogger(mgr.Get(), cmd.ErrOrStderr())
		slog.SetDefault(logger)
		if file := mgr.File(); file != "" {
			logger.Debug("config loaded", "file", file)
		}
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(
		&cfgFile, "config", "", "config file (default: ./config.yaml or ~/.bead-fixer/config.yaml)",
	)
	rootCmd.PersistentFlags().StringVarP(
		&outputFormat, "output", "o", "text", "output format: text, yaml or json",
	)

	rootCmd.AddCommand(versionCmd)
	rootCmd.AddCommand(residualsCmd)
	rootCmd.AddCommand(gapsCmd)
	rootCmd.AddCommand(centerCmd)
	rootCmd.AddCommand(fixCmd)
	rootCmd.AddCommand(projectCmd)
}

func newLogger(cfg *config.Config, w io.Writer) *slog.Logger {
	opts := &slog.HandlerOptions{Level: cfg.Level()}
	if strings.EqualFold(cfg.Log.Format, "json") {
		return slog.New(slog.NewJSONHandler(w, opts))
	}
	return slog.New(slog.NewTextHandler(w, opts))
}

// settings returns the loaded configuration, or the defaults when the root
// pre-run hook has not run.
func settings() *config.Config {
	if cfgManager == nil {
		return config.Default()
	}
	return cfgManager.Get()
}
