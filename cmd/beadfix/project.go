package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"bead-fixer/internal/config"
	"bead-fixer/internal/output"
	"bead-fixer/internal/project"
)

var (
	projLog         string
	projModel       string
	projImages      []string
	projDiameter    float64
	projLight       bool
	projDescription string
	projConfig      string
)

var projectCmd = &cobra.Command{
	Use:   "project",
	Short: "Create and inspect project files",
}

var projectInitCmd = &cobra.Command{
	Use:   "init PATH",
	Short: "Create a project file",
	Long: `Create a project file tying an alignment log to its model and image
stack. Paths are stored relative to the project file. The ` + project.Ext + `
extension is added when missing.

Examples:
  beadfix project init run1 --log align.log --model beads.json -i tilt.tif
  beadfix project init run1 --write-config config.yaml`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		path := args[0]
		if filepath.Ext(path) != project.Ext {
			path += project.Ext
		}
		if _, err := os.Stat(path); err == nil {
			return fmt.Errorf("project %s already exists", path)
		}

		name := strings.TrimSuffix(filepath.Base(path), project.Ext)
		p := project.New(name)
		p.Description = projDescription
		p.Settings.Diameter = settings().Bead.Diameter
		p.Settings.LightBeads = settings().Bead.Light
		if cmd.Flags().Changed("diameter") {
			p.Settings.Diameter = projDiameter
		}
		if cmd.Flags().Changed("light") {
			p.Settings.LightBeads = projLight
		}
		if projLog != "" {
			p.SetLog(path, projLog)
		}
		if projModel != "" {
			p.SetModel(path, projModel)
		}
		p.AddImages(path, projImages...)

		if err := p.Save(path); err != nil {
			return fmt.Errorf("save project: %w", err)
		}
		logger.Info("project created", "path", path)

		if projConfig != "" {
			if err := config.WriteDefault(projConfig); err != nil {
				return err
			}
			logger.Info("default config written", "path", projConfig)
		}
		return output.Write(cmd.OutOrStdout(), format, describe(path, p))
	},
}

var projectShowCmd = &cobra.Command{
	Use:   "show PATH",
	Short: "Show a project file with resolved paths",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		p, err := project.Load(args[0])
		if err != nil {
			return err
		}
		return output.Write(cmd.OutOrStdout(), format, describe(args[0], p))
	},
}

func init() {
	f := projectInitCmd.Flags()
	f.StringVar(&projLog, "log", "", "alignment log")
	f.StringVar(&projModel, "model", "", "fiducial model (default: <name>_fid.json)")
	f.StringSliceVarP(&projImages, "images", "i", nil, "image files, one per section")
	f.Float64Var(&projDiameter, "diameter", 0, "bead diameter in pixels")
	f.BoolVar(&projLight, "light", false, "beads are brighter than the background")
	f.StringVar(&projDescription, "description", "", "free text description")
	f.StringVar(&projConfig, "write-config", "", "also write the default configuration to this file")

	projectCmd.AddCommand(projectInitCmd)
	projectCmd.AddCommand(projectShowCmd)
}

type projectInfo struct {
	Path        string   `json:"path" yaml:"path"`
	Name        string   `json:"name" yaml:"name"`
	Description string   `json:"description,omitempty" yaml:"description,omitempty"`
	Log         string   `json:"log,omitempty" yaml:"log,omitempty"`
	Model       string   `json:"model" yaml:"model"`
	Images      []string `json:"images,omitempty" yaml:"images,omitempty"`
	Diameter    float64  `json:"diameter" yaml:"diameter"`
	LightBeads  bool     `json:"light_beads" yaml:"light_beads"`
}

func describe(path string, p *project.File) projectInfo {
	return projectInfo{
		Path:        path,
		Name:        p.Name,
		Description: p.Description,
		Log:         p.GetLogPath(path),
		Model:       p.GetModelPath(path),
		Images:      p.GetImagePaths(path),
		Diameter:    p.Settings.Diameter,
		LightBeads:  p.Settings.LightBeads,
	}
}

func (i projectInfo) String() string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s (%s)\n  model:  %s", i.Name, i.Path, i.Model)
	if i.Log != "" {
		fmt.Fprintf(&b, "\n  log:    %s", i.Log)
	}
	fmt.Fprintf(&b, "\n  images: %d", len(i.Images))
	polarity := "dark"
	if i.LightBeads {
		polarity = "light"
	}
	fmt.Fprintf(&b, "\n  beads:  %g px, %s", i.Diameter, polarity)
	return b.String()
}
