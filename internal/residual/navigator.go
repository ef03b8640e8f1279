// Package residual steps through the residual rows of an alignment log,
// selecting the matching model point for each, and moves points by their
// residual vector.
package residual

import (
	"fmt"
	"math"

	"bead-fixer/internal/alignlog"
	"bead-fixer/internal/model"
	"bead-fixer/internal/status"
	"bead-fixer/pkg/geometry"
)

// DefaultTolerance is how far, in pixels, a model point may sit from the
// position printed in the log and still be taken as the same point.
const DefaultTolerance = 15.0

// ArrowHead is the length of the residual arrow's head strokes.
const ArrowHead = 2.5

// Store is the part of a model the navigator and mover work on.
// *model.Model satisfies it.
type Store interface {
	NumObjects() int
	NumContours(ob int) int
	Points(ob, co int) []geometry.Point3D
	Point(idx model.Index) (geometry.Point3D, bool)
	CurrentIndex() model.Index
	SetCurrentIndex(idx model.Index)
	BeginEdit()
	EndEdit()
	SetPoint(idx model.Index, p geometry.Point3D) error
}

// bell levels for the next residual message
const (
	bellSuppressed = -1
	bellNormal     = 0
	bellRing       = 1
)

// Visit describes the row the navigator stopped on.
type Visit struct {
	Row         int
	Residual    alignlog.Residual
	Area        int
	EnteredArea bool

	// Resolved is set when Index names the model point for the row.
	Resolved bool
	Index    model.Index
	Arrow    []geometry.Point3D
}

// Resolution is the point most recently matched to a residual row.
type Resolution struct {
	Row      int
	Index    model.Index
	Residual alignlog.Residual
	Arrow    []geometry.Point3D
}

// Navigator walks the residuals of a parsed log.
type Navigator struct {
	store Store
	sink  status.Sink

	style alignlog.Style
	areas []alignlog.Area
	rows  []alignlog.Residual

	looked   LookedSet
	lookOnce bool
	current  int
	area     int
	bell     int
	quiet    bool

	tolerance float64

	resolved    Resolution
	hasResolved bool
	generation  int
}

// NewNavigator returns a navigator over store with no log loaded. Messages
// go to sink, which may be nil.
func NewNavigator(store Store, sink status.Sink) *Navigator {
	return &Navigator{
		store:     store,
		sink:      sink,
		current:   -1,
		area:      -1,
		tolerance: DefaultTolerance,
	}
}

// SetTolerance changes the match distance used to resolve rows. Values <= 0
// restore the default.
func (n *Navigator) SetTolerance(pixels float64) {
	if pixels <= 0 {
		pixels = DefaultTolerance
	}
	n.tolerance = pixels
}

// Load replaces the residual rows with those of idx and rewinds to before
// the first row. The looked-at set is kept so a reread log does not show
// points again.
func (n *Navigator) Load(idx *alignlog.Index) {
	n.style = alignlog.StyleUnknown
	n.areas = nil
	n.rows = nil
	if idx != nil {
		n.style = idx.Style
		n.areas = append([]alignlog.Area(nil), idx.Areas...)
		n.rows = append([]alignlog.Residual(nil), idx.Residuals...)
	}
	n.current = -1
	n.area = -1
	n.bell = bellNormal
	n.clearResolved()
}

// ToExamine returns how many listed points have not been looked at yet.
func (n *Navigator) ToExamine() int {
	idx := alignlog.Index{Residuals: n.rows}
	return idx.CountToExamine(n.looked.Contains)
}

// Len returns the number of residual rows.
func (n *Navigator) Len() int { return len(n.rows) }

// Areas returns the solution areas of the loaded log.
func (n *Navigator) Areas() []alignlog.Area { return n.areas }

// Row returns residual row i.
func (n *Navigator) Row(i int) (alignlog.Residual, bool) {
	if i < 0 || i >= len(n.rows) {
		return alignlog.Residual{}, false
	}
	return n.rows[i], true
}

// Current returns the row position: -1 before the first row, Len() after
// the last.
func (n *Navigator) Current() int { return n.current }

// CurrentArea returns the area of the last row shown, or -1.
func (n *Navigator) CurrentArea() int { return n.area }

// LookOnce reports whether points already shown are skipped.
func (n *Navigator) LookOnce() bool { return n.lookOnce }

// SetLookOnce sets whether points already shown are skipped.
func (n *Navigator) SetLookOnce(on bool) { n.lookOnce = on }

// Looked returns the looked-at set.
func (n *Navigator) Looked() *LookedSet { return &n.looked }

// ResetLookedAt forgets which points have been shown.
func (n *Navigator) ResetLookedAt() {
	n.looked.Reset()
}

// Resolved returns the point matched by the last successful step. It is
// cleared at the start of every step.
func (n *Navigator) Resolved() (Resolution, bool) {
	return n.resolved, n.hasResolved
}

func (n *Navigator) clearResolved() {
	n.resolved = Resolution{}
	n.hasResolved = false
}

// Next advances to the next row, skipping points already shown when
// look-once is on, and selects its model point. When the row cannot be
// matched to a point the returned Visit is still filled in (without
// Resolved) and the error is an *UnresolvableError.
func (n *Navigator) Next() (*Visit, error) {
	bell := n.bell
	n.bell = bellNormal
	n.clearResolved()

	if len(n.rows) == 0 {
		status.Alertf(n.sink, "No residual data")
		return nil, ErrNoResidualData
	}

	found := false
	for {
		n.current++
		if n.current >= len(n.rows) {
			n.current = len(n.rows)
			status.Alertf(n.sink, "No more residuals!")
			return nil, ErrNoMoreResiduals
		}
		found = n.looked.Contains(n.rows[n.current].Key())
		if !n.lookOnce || !found {
			break
		}
	}

	r := &n.rows[n.current]
	if !found {
		n.looked.Add(r.Key())
	}
	r.LookedAt = true

	visit := &Visit{Row: n.current, Residual: *r, Area: r.Area}
	if r.Area != n.area {
		n.announceArea(r.Area)
		n.area = r.Area
		visit.EnteredArea = true
		if bell == bellNormal {
			bell = bellRing
		}
	}

	idx, z, err := n.resolve(*r)
	if err != nil {
		status.Alertf(n.sink, "%s", unresolvedText(err, n.tolerance))
		return visit, &UnresolvableError{Row: n.current, Key: r.Key(), Reason: err}
	}
	n.store.SetCurrentIndex(idx)

	switch {
	case bell > 0:
		status.Alertf(n.sink, "%s", residualText(*r))
	case !n.quiet:
		status.Infof(n.sink, "%s", residualText(*r))
	}

	arrow := geometry.ResidualArrow(r.Center, r.Residual, z, ArrowHead)
	n.generation++
	n.resolved = Resolution{Row: n.current, Index: idx, Residual: *r, Arrow: arrow}
	n.hasResolved = true

	visit.Resolved = true
	visit.Index = idx
	visit.Arrow = arrow
	return visit, nil
}

// Previous backs up to the nearest earlier row (one already shown, when
// look-once is on) and shows it again.
func (n *Navigator) Previous() (*Visit, error) {
	if len(n.rows) == 0 {
		status.Alertf(n.sink, "No residual data")
		return nil, ErrNoResidualData
	}

	target := -1
	for i := min(n.current, len(n.rows)) - 1; i >= 0; i-- {
		if !n.lookOnce || n.rows[i].LookedAt {
			target = i
			break
		}
	}
	if target < 0 {
		if n.lookOnce {
			status.Alertf(n.sink, "There is no previous residual.  Try turning off \"Examine points once\".")
		} else {
			status.Alertf(n.sink, "There is no previous residual.")
		}
		return nil, ErrNoPrevious
	}

	// Forget the row being left so stepping forward shows it again.
	if n.current >= 0 && n.current < len(n.rows) {
		n.looked.Remove(n.rows[n.current].Key())
	}

	if a := n.rows[target].Area; a != n.area {
		n.area = a
		if a == 0 {
			status.Infof(n.sink, "Backing up into global solution residuals.")
		} else {
			status.Infof(n.sink, "Backing up into local area %d %d.", n.areas[a].X, n.areas[a].Y)
		}
		n.bell = bellRing
	}

	n.current = target - 1
	lookOnce := n.lookOnce
	n.lookOnce = false
	visit, err := n.Next()
	n.lookOnce = lookOnce
	return visit, err
}

// JumpBeforeArea positions the navigator just before the first row of area
// so the next step lands on it without ringing the bell.
func (n *Navigator) JumpBeforeArea(area int) error {
	if area < 0 || area >= len(n.areas) {
		return ErrNoSuchArea
	}
	n.current = n.areas[area].FirstResidual - 1
	n.bell = bellSuppressed
	return nil
}

// NextLocal skips to the first row of the next local area.
func (n *Navigator) NextLocal() (*Visit, error) {
	target := max(n.area+1, 1)
	if target >= len(n.areas) {
		status.Alertf(n.sink, "No more local areas")
		return nil, ErrNoMoreAreas
	}
	if err := n.JumpBeforeArea(target); err != nil {
		return nil, err
	}
	return n.Next()
}

func (n *Navigator) announceArea(a int) {
	if a < 0 || a >= len(n.areas) {
		return
	}
	area := n.areas[a]
	if a == 0 {
		status.Infof(n.sink, "Entering global solution,  %d residuals", area.NumPoints)
		return
	}
	status.Infof(n.sink, "Entering local area %d  %d,  %d residuals", area.X, area.Y, area.NumPoints)
}

// resolve finds the model point for r without touching the selection. It
// returns the point's index and its Z.
func (n *Navigator) resolve(r alignlog.Residual) (model.Index, float64, error) {
	ob, co := -1, -1
	switch n.style {
	case alignlog.StyleLegacy:
		count := 0
		for i := 0; i < n.store.NumObjects() && ob < 0; i++ {
			for j := 0; j < n.store.NumContours(i); j++ {
				if len(n.store.Points(i, j)) > 1 {
					count++
				}
				if count == r.Contour {
					ob, co = i, j
					break
				}
			}
		}
		if ob < 0 {
			return model.NoIndex, 0, ErrContourNotFound
		}
	default:
		if r.Object < 1 || r.Object > n.store.NumObjects() {
			return model.NoIndex, 0, ErrObjectNotFound
		}
		ob = r.Object - 1
		if r.Contour < 1 || r.Contour > n.store.NumContours(ob) {
			return model.NoIndex, 0, ErrContourNotFound
		}
		co = r.Contour - 1
	}

	tolSq := n.tolerance * n.tolerance
	for i, p := range n.store.Points(ob, co) {
		if int(math.Floor(p.Z+1.5)) != r.View {
			continue
		}
		if p.XY().DistanceSq(r.Center) > tolSq {
			return model.NoIndex, 0, ErrTooFar
		}
		return model.Index{Object: ob, Contour: co, Point: i}, p.Z, nil
	}
	return model.NoIndex, 0, ErrPointNotFound
}

func residualText(r alignlog.Residual) string {
	return fmt.Sprintf("Residual =%6.2f (%5.1f,%5.1f),%5.2f SDs",
		r.Magnitude(), r.Residual.X, r.Residual.Y, r.StdDevs)
}

func unresolvedText(err error, tol float64) string {
	switch err {
	case ErrObjectNotFound:
		return "Object not found!"
	case ErrContourNotFound:
		return "Contour not found!"
	case ErrTooFar:
		return fmt.Sprintf("Point is > %g pixels from position in log file", tol)
	default:
		return "Point not found in contour!"
	}
}
