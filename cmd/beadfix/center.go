package main

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"bead-fixer/internal/bead"
	"bead-fixer/internal/output"
	"bead-fixer/internal/volume"
	"bead-fixer/internal/volume/cvsource"
	"bead-fixer/pkg/geometry"
)

var (
	centerSection  int
	centerDiameter float64
	centerLight    bool
	centerOpenCV   bool
)

var centerCmd = &cobra.Command{
	Use:   "center X Y IMAGE...",
	Short: "Find the bead nearest a position",
	Long: `Find the center of the bead nearest (X, Y) on one section of an image
stack. Each IMAGE is one section, in order.

Examples:
  beadfix center 120 88 tilt_*.tif --section 30 --diameter 6
  beadfix center 120 88 stack.png --light --opencv`,
	Args: cobra.MinimumNArgs(3),
	RunE: func(cmd *cobra.Command, args []string) error {
		x, err := strconv.ParseFloat(args[0], 64)
		if err != nil {
			return fmt.Errorf("bad X %q: %w", args[0], err)
		}
		y, err := strconv.ParseFloat(args[1], 64)
		if err != nil {
			return fmt.Errorf("bad Y %q: %w", args[1], err)
		}

		cfg := settings()
		diameter := cfg.Bead.Diameter
		if cmd.Flags().Changed("diameter") {
			diameter = centerDiameter
		}
		light := cfg.Bead.Light
		if cmd.Flags().Changed("light") {
			light = centerLight
		}

		src, closeImages, err := loadImages(args[2:], centerOpenCV)
		if err != nil {
			return err
		}
		defer closeImages()

		pol := bead.PolarityOf(light)
		c, err := bead.NewFinder(src).FindCenter(geometry.NewPoint2D(x, y), centerSection, diameter, pol)
		if err != nil {
			return err
		}
		logger.Debug("bead centered", "seed_x", x, "seed_y", y, "section", centerSection, "polarity", pol)
		return output.Write(cmd.OutOrStdout(), format, centerResult{X: c.X, Y: c.Y, Section: centerSection})
	},
}

func init() {
	centerCmd.Flags().IntVar(&centerSection, "section", 0, "section to search, from 0")
	centerCmd.Flags().Float64Var(&centerDiameter, "diameter", 0, "bead diameter in pixels (default: bead.diameter setting)")
	centerCmd.Flags().BoolVar(&centerLight, "light", false, "beads are brighter than the background")
	centerCmd.Flags().BoolVar(&centerOpenCV, "opencv", false, "decode images with OpenCV")
}

type centerResult struct {
	X       float64 `json:"x" yaml:"x"`
	Y       float64 `json:"y" yaml:"y"`
	Section int     `json:"section" yaml:"section"`
}

func (r centerResult) String() string {
	return fmt.Sprintf("%.2f %.2f %d", r.X, r.Y, r.Section)
}

// loadImages reads an image stack with the Go decoders, or with OpenCV
// when useCV is set. The returned func releases the stack.
func loadImages(paths []string, useCV bool) (volume.Source, func(), error) {
	if useCV {
		s, err := cvsource.Load(paths...)
		if err != nil {
			return nil, nil, err
		}
		return s, func() { s.Close() }, nil
	}
	v, err := volume.Load(paths...)
	if err != nil {
		return nil, nil, err
	}
	return v, func() {}, nil
}
