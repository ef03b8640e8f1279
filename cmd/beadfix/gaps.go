package main

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"bead-fixer/internal/gap"
	"bead-fixer/internal/model"
	"bead-fixer/internal/output"
	"bead-fixer/internal/status"
)

var gapsSections int

var gapsCmd = &cobra.Command{
	Use:   "gaps MODEL",
	Short: "List gaps in the bead tracks of a model",
	Long: `List every place a bead track skips a section, starts after the
first section or ends before the last.

The section count comes from --sections, then the gap.sections setting,
and otherwise from the highest section in the model.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		m, err := model.Load(args[0])
		if err != nil {
			return err
		}
		n := gapsSections
		if n <= 0 {
			n = settings().Gap.Sections
		}
		if n <= 0 {
			n = sectionCount(m)
		}
		logger.Debug("listing gaps", "model", args[0], "sections", n)
		return output.Write(cmd.OutOrStdout(), format, listGaps(m, n))
	},
}

func init() {
	gapsCmd.Flags().IntVar(&gapsSections, "sections", 0, "number of sections in the tilt series")
}

type gapEntry struct {
	Object  int  `json:"object" yaml:"object"`
	Contour int  `json:"contour" yaml:"contour"`
	Point   int  `json:"point" yaml:"point"`
	Section int  `json:"section" yaml:"section"`
	Before  bool `json:"before,omitempty" yaml:"before,omitempty"`
}

type gapList []gapEntry

func (l gapList) String() string {
	if len(l) == 0 {
		return "No gaps found"
	}
	var b strings.Builder
	fmt.Fprintf(&b, "%d gaps", len(l))
	for _, g := range l {
		where := "after"
		if g.Before {
			where = "before"
		}
		fmt.Fprintf(&b, "\n  obj %d cont %d pt %d: missing %s section %d", g.Object, g.Contour, g.Point, where, g.Section)
	}
	return b.String()
}

// listGaps walks m forward from the start and returns every gap found. It
// stops early if the walk comes back to a gap already listed.
func listGaps(m *model.Model, sections int) gapList {
	f := gap.NewFinder(m, status.Discard, sections)
	var c gap.Cursor
	list := gapList{}
	seen := make(map[gapEntry]bool)
	for {
		g, err := f.FindNext(&c, gap.Forward)
		if errors.Is(err, gap.ErrNoGapFound) || g == nil {
			return list
		}
		p, _ := m.Point(g.Index())
		e := gapEntry{
			Object:  g.Object + 1,
			Contour: g.Contour + 1,
			Point:   g.Point + 1,
			Section: p.Section(),
			Before:  g.Before,
		}
		if seen[e] {
			logger.Warn("gap walk came back to a listed gap", "object", e.Object, "contour", e.Contour, "point", e.Point)
			return list
		}
		seen[e] = true
		list = append(list, e)
	}
}

// sectionCount returns one past the highest section holding a point.
func sectionCount(m *model.Model) int {
	n := 0
	for ob := 0; ob < m.NumObjects(); ob++ {
		for co := 0; co < m.NumContours(ob); co++ {
			for _, p := range m.Points(ob, co) {
				n = max(n, p.Section()+1)
			}
		}
	}
	return n
}
