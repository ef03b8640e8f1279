// Package alignlog reads the residual report of a tilt-series alignment log.
//
// The log lists, for the global solution and then for each local area, a
// table of fiducial points whose residual is large. Each row names the
// point, the view it was measured in, the point's fitted position and the
// residual vector. Two table layouts exist: the current one lists object and
// contour numbers, the legacy one a sequential point number.
package alignlog

import (
	"errors"
	"fmt"

	"bead-fixer/pkg/geometry"
)

// Style identifies the residual table layout of a log.
type Style int

const (
	StyleUnknown Style = iota
	// StyleObjectContour rows are: object contour view x y dx dy sd.
	StyleObjectContour
	// StyleLegacy rows are: point view x y dx dy sd, where point counts the
	// model's contours that have more than one point.
	StyleLegacy
)

func (s Style) String() string {
	switch s {
	case StyleObjectContour:
		return "object-contour"
	case StyleLegacy:
		return "legacy"
	default:
		return "unknown"
	}
}

// MarshalText lets reports print the style by name.
func (s Style) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// Area is one solution area of the log. Area 0 is the global solution at
// (0, 0); later areas are local alignments.
type Area struct {
	X             int `json:"x" yaml:"x"`
	Y             int `json:"y" yaml:"y"`
	FirstResidual int `json:"first_residual" yaml:"first_residual"`
	NumPoints     int `json:"num_points" yaml:"num_points"`
}

// Key identifies a measured point independent of which area reported it.
type Key struct {
	Object  int `json:"object" yaml:"object"`
	Contour int `json:"contour" yaml:"contour"`
	View    int `json:"view" yaml:"view"`
}

func (k Key) String() string {
	return fmt.Sprintf("obj %d cont %d view %d", k.Object, k.Contour, k.View)
}

// Residual is one row of a residual table. Object, Contour and View are
// 1-based as printed in the log. For legacy logs Object is 1 and Contour
// holds the point number.
type Residual struct {
	Object   int              `json:"object" yaml:"object"`
	Contour  int              `json:"contour" yaml:"contour"`
	View     int              `json:"view" yaml:"view"`
	Center   geometry.Point2D `json:"center" yaml:"center"`
	Residual geometry.Point2D `json:"residual" yaml:"residual"`
	StdDevs  float64          `json:"sd" yaml:"sd"`
	Area     int              `json:"area" yaml:"area"`

	// LookedAt is set once the navigator has shown this row.
	LookedAt bool `json:"looked_at,omitempty" yaml:"looked_at,omitempty"`

	// Valid is false if a numeric field could not be read; the fields up to
	// the bad one hold what was read and the rest are zero.
	Valid bool `json:"valid" yaml:"valid"`
}

// Key returns the point identity of the row.
func (r Residual) Key() Key {
	return Key{Object: r.Object, Contour: r.Contour, View: r.View}
}

// Magnitude returns the length of the residual vector.
func (r Residual) Magnitude() float64 {
	return r.Residual.Length()
}

// Index is a parsed log.
type Index struct {
	Style     Style      `json:"style" yaml:"style"`
	Areas     []Area     `json:"areas" yaml:"areas"`
	Residuals []Residual `json:"residuals" yaml:"residuals"`
}

// Len returns the number of residual rows.
func (idx *Index) Len() int {
	if idx == nil {
		return 0
	}
	return len(idx.Residuals)
}

// InvalidCount returns the number of rows with unreadable fields.
func (idx *Index) InvalidCount() int {
	n := 0
	for _, r := range idx.Residuals {
		if !r.Valid {
			n++
		}
	}
	return n
}

// CountToExamine returns how many rows show a point that is neither in
// seen nor listed earlier in the log.
func (idx *Index) CountToExamine(seen func(Key) bool) int {
	listed := make(map[Key]bool, len(idx.Residuals))
	n := 0
	for _, r := range idx.Residuals {
		k := r.Key()
		if listed[k] {
			continue
		}
		listed[k] = true
		if seen != nil && seen(k) {
			continue
		}
		n++
	}
	return n
}

// Check verifies the structural invariants of the index: area row ranges
// are contiguous and every row points at the area that contains it.
func (idx *Index) Check() error {
	if len(idx.Residuals) > 0 && len(idx.Areas) == 0 {
		return errors.New("residuals without areas")
	}
	next := 0
	for i, a := range idx.Areas {
		if a.FirstResidual != next {
			return fmt.Errorf("area %d starts at %d, expected %d", i, a.FirstResidual, next)
		}
		for j := a.FirstResidual; j < a.FirstResidual+a.NumPoints; j++ {
			if j >= len(idx.Residuals) {
				return fmt.Errorf("area %d claims row %d of %d", i, j, len(idx.Residuals))
			}
			if idx.Residuals[j].Area != i {
				return fmt.Errorf("row %d belongs to area %d, recorded as %d", j, i, idx.Residuals[j].Area)
			}
		}
		next += a.NumPoints
	}
	if next != len(idx.Residuals) {
		return fmt.Errorf("areas cover %d rows of %d", next, len(idx.Residuals))
	}
	return nil
}
