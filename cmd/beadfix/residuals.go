package main

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"bead-fixer/internal/alignlog"
	"bead-fixer/internal/model"
	"bead-fixer/internal/output"
	"bead-fixer/internal/residual"
	"bead-fixer/internal/status"
)

var (
	residualsModel string
	residualsRows  bool
)

var residualsCmd = &cobra.Command{
	Use:   "residuals LOG",
	Short: "Summarize the large residuals of an alignment log",
	Long: `Summarize the residual tables of an alignment log, per area.

With --model every residual is matched to its model point and the ones
that cannot be found are listed.

Examples:
  beadfix residuals align.log
  beadfix residuals align.log --model beads.json -o yaml`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		idx, err := alignlog.ParseFile(args[0])
		if err != nil {
			return err
		}
		if n := idx.InvalidCount(); n > 0 {
			logger.Warn("residual rows with unreadable fields", "log", args[0], "rows", n)
		}

		rep := residualReport{Summary: idx.Summarize()}
		if residualsRows {
			rep.Rows = idx.Residuals
		}
		if residualsModel != "" {
			m, err := model.Load(residualsModel)
			if err != nil {
				return err
			}
			rep.Resolved, rep.Unresolved = resolveAll(m, idx, settings().Residual.Tolerance)
		}
		return output.Write(cmd.OutOrStdout(), format, rep)
	},
}

func init() {
	residualsCmd.Flags().StringVar(&residualsModel, "model", "", "fiducial model to match residuals against")
	residualsCmd.Flags().BoolVar(&residualsRows, "rows", false, "include every residual row")
}

type unresolvedRow struct {
	Row    int    `json:"row" yaml:"row"`
	Point  string `json:"point" yaml:"point"`
	Reason string `json:"reason" yaml:"reason"`
}

type residualReport struct {
	alignlog.Summary `yaml:",inline"`

	Rows       []alignlog.Residual `json:"rows,omitempty" yaml:"rows,omitempty"`
	Resolved   int                 `json:"resolved,omitempty" yaml:"resolved,omitempty"`
	Unresolved []unresolvedRow     `json:"unresolved,omitempty" yaml:"unresolved,omitempty"`
}

func (r residualReport) String() string {
	var b strings.Builder
	b.WriteString(r.Summary.String())
	for _, row := range r.Rows {
		fmt.Fprintf(&b, "\n  %-22s (%7.2f,%7.2f) %6.2f,%6.2f  %5.2f SDs",
			row.Key(), row.Center.X, row.Center.Y, row.Residual.X, row.Residual.Y, row.StdDevs)
	}
	if r.Resolved > 0 || len(r.Unresolved) > 0 {
		fmt.Fprintf(&b, "\n%d residuals matched to model points, %d not", r.Resolved, len(r.Unresolved))
		for _, u := range r.Unresolved {
			fmt.Fprintf(&b, "\n  row %d %s: %s", u.Row+1, u.Point, u.Reason)
		}
	}
	return b.String()
}

// resolveAll walks every row of idx through a navigator on m, with
// look-once off, and collects the rows whose points cannot be found.
func resolveAll(m *model.Model, idx *alignlog.Index, tolerance float64) (int, []unresolvedRow) {
	nav := residual.NewNavigator(m, status.Discard)
	nav.SetLookOnce(false)
	nav.SetTolerance(tolerance)
	nav.Load(idx)

	resolved := 0
	var bad []unresolvedRow
	for {
		v, err := nav.Next()
		var ue *residual.UnresolvableError
		switch {
		case err == nil:
			resolved++
		case errors.As(err, &ue):
			bad = append(bad, unresolvedRow{Row: ue.Row, Point: ue.Key.String(), Reason: ue.Reason.Error()})
		default:
			return resolved, bad
		}
		if v == nil {
			return resolved, bad
		}
	}
}
