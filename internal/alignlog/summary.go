package alignlog

import (
	"fmt"
	"strings"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

// AreaSummary describes the residual rows of one area.
type AreaSummary struct {
	Area    int     `json:"area" yaml:"area"`
	X       int     `json:"x" yaml:"x"`
	Y       int     `json:"y" yaml:"y"`
	Count   int     `json:"count" yaml:"count"`
	Invalid int     `json:"invalid,omitempty" yaml:"invalid,omitempty"`
	Mean    float64 `json:"mean" yaml:"mean"`
	StdDev  float64 `json:"sd" yaml:"sd"`
	Max     float64 `json:"max" yaml:"max"`
	MaxRow  int     `json:"max_row" yaml:"max_row"`
}

// Summary describes a whole log.
type Summary struct {
	Style     Style         `json:"style" yaml:"style"`
	Residuals int           `json:"residuals" yaml:"residuals"`
	Invalid   int           `json:"invalid" yaml:"invalid"`
	Areas     []AreaSummary `json:"areas" yaml:"areas"`
}

// Summarize computes residual magnitude statistics per area. Rows with
// unreadable fields are counted but left out of the statistics.
func (idx *Index) Summarize() Summary {
	s := Summary{
		Style:     idx.Style,
		Residuals: len(idx.Residuals),
		Invalid:   idx.InvalidCount(),
		Areas:     make([]AreaSummary, 0, len(idx.Areas)),
	}

	for i, a := range idx.Areas {
		as := AreaSummary{Area: i, X: a.X, Y: a.Y, Count: a.NumPoints, MaxRow: -1}
		mags := make([]float64, 0, a.NumPoints)
		rows := make([]int, 0, a.NumPoints)
		for j := a.FirstResidual; j < a.FirstResidual+a.NumPoints && j < len(idx.Residuals); j++ {
			r := idx.Residuals[j]
			if !r.Valid {
				as.Invalid++
				continue
			}
			mags = append(mags, r.Magnitude())
			rows = append(rows, j)
		}

		switch len(mags) {
		case 0:
		case 1:
			as.Mean = mags[0]
			as.Max = mags[0]
			as.MaxRow = rows[0]
		default:
			as.Mean, as.StdDev = stat.MeanStdDev(mags, nil)
			imax := floats.MaxIdx(mags)
			as.Max = mags[imax]
			as.MaxRow = rows[imax]
		}
		s.Areas = append(s.Areas, as)
	}
	return s
}

func (s Summary) String() string {
	var b strings.Builder
	fmt.Fprintf(&b, "%d residuals (%s)", s.Residuals, s.Style)
	if s.Invalid > 0 {
		fmt.Fprintf(&b, ", %d unreadable", s.Invalid)
	}
	for _, a := range s.Areas {
		name := "global"
		if a.Area > 0 {
			name = fmt.Sprintf("area %d %d", a.X, a.Y)
		}
		fmt.Fprintf(&b, "\n  %-12s %4d  mean %6.2f  sd %6.2f  max %6.2f", name, a.Count, a.Mean, a.StdDev, a.Max)
		if a.MaxRow >= 0 {
			fmt.Fprintf(&b, " (row %d)", a.MaxRow+1)
		}
	}
	return b.String()
}
