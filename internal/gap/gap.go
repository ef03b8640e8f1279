// Package gap walks a fiducial model looking for tracks with missing
// points: a section skipped in the middle of a contour, a track that starts
// after the first section, or one that stops before the last.
package gap

import (
	"errors"
	"slices"

	"gonum.org/v1/gonum/floats"

	"bead-fixer/internal/model"
	"bead-fixer/internal/status"
	"bead-fixer/pkg/geometry"
)

// ArrowSize is the length of the arrow marking a gap.
const ArrowSize = 12

// ErrNoGapFound is returned when the walk reaches the end of the model.
var ErrNoGapFound = errors.New("no gap found")

// Direction is the traversal order.
type Direction int

const (
	Forward  Direction = 1
	Backward Direction = -1
)

func (d Direction) String() string {
	if d == Backward {
		return "backward"
	}
	return "forward"
}

// Store is the read side of a model plus the selection. *model.Model
// satisfies it.
type Store interface {
	NumObjects() int
	NumContours(ob int) int
	Points(ob, co int) []geometry.Point3D
	Point(idx model.Index) (geometry.Point3D, bool)
	CurrentIndex() model.Index
	SetCurrentIndex(idx model.Index)
}

// Cursor is where the last gap was found. The zero value has not found
// anything yet; each session keeps its own.
type Cursor struct {
	Object  int  `json:"object"`
	Contour int  `json:"contour"`
	Point   int  `json:"point"`
	Before  bool `json:"before"`

	// Initialized is false until the first search, and after Reset.
	Initialized bool `json:"initialized"`
}

// Reset makes the next search start over from the first contour.
func (c *Cursor) Reset() {
	c.Initialized = false
}

func (c *Cursor) valid() bool {
	return c.Object >= 0 && c.Contour >= 0 && c.Point >= 0
}

func (c *Cursor) index() model.Index {
	return model.Index{Object: c.Object, Contour: c.Contour, Point: c.Point}
}

// Gap is a reported gap. Before marks a track missing points ahead of
// Point, which is then its lowest point; otherwise the section after Point
// is missing.
type Gap struct {
	Object  int                `json:"object"`
	Contour int                `json:"contour"`
	Point   int                `json:"point"`
	Before  bool               `json:"before"`
	Arrow   []geometry.Point3D `json:"arrow,omitempty"`
}

// Index returns the model index of the gap point.
func (g *Gap) Index() model.Index {
	return model.Index{Object: g.Object, Contour: g.Contour, Point: g.Point}
}

// Finder searches a model for gaps.
type Finder struct {
	store    Store
	sink     status.Sink
	sections int

	verboseBefore bool
}

// NewFinder returns a finder over store for an image stack with the given
// number of sections.
func NewFinder(store Store, sink status.Sink, sections int) *Finder {
	return &Finder{store: store, sink: sink, sections: sections, verboseBefore: true}
}

// SetSections changes the section count used for the end-of-track check.
func (f *Finder) SetSections(n int) {
	f.sections = n
}

// FindNext resumes the walk from c in direction dir and stops at the first
// gap that differs from the one c already holds. It selects the gap point
// in the model and advances c. When nothing is left it leaves the
// selection alone and returns ErrNoGapFound.
func (f *Finder) FindNext(c *Cursor, dir Direction) (*Gap, error) {
	if dir != Backward {
		dir = Forward
	}
	step := int(dir)

	ob, co, pt := c.Object, c.Contour, c.Point
	lookback := false
	if !c.Initialized || !c.valid() {
		ob, co, pt = 0, 0, enterTrack
		c.Object = -1
		c.Before = false
		lookback = true
	}
	c.Initialized = true

	nobj := f.store.NumObjects()
	for ; ob >= 0 && ob < nobj; ob += step {
		ncont := f.store.NumContours(ob)
		for ; co >= 0 && co < ncont; co += step {
			if g := f.scanContour(c, ob, co, pt, dir, lookback); g != nil {
				return g, nil
			}
			pt = enterTrack
			if dir == Forward {
				lookback = true
			}
		}

		pt = enterTrack
		if dir == Forward {
			co = 0
			lookback = true
		} else if ob > 0 {
			co = f.store.NumContours(ob-1) - 1
		}
	}

	if dir == Forward {
		status.Alertf(f.sink, "No more gaps found!")
	} else {
		status.Alertf(f.sink, "No gaps found back to beginning of model.")
	}
	return nil, ErrNoGapFound
}

// enterTrack starts a scan at the lowest section of a track going forward,
// or at the highest going backward.
const enterTrack = -1

// scanContour visits the points of one track in section order, whatever
// order they are stored in, starting at point start. The end-of-track gap
// is the last thing reported going forward and the missing start the last
// going backward, so a resumed scan never goes back over a reported gap.
func (f *Finder) scanContour(c *Cursor, ob, co, start int, dir Direction, lookback bool) *Gap {
	pts := f.store.Points(ob, co)
	if len(pts) == 0 {
		return nil
	}
	// Nothing lies below the missing start of a track.
	if dir == Backward && c.Before && c.Object == ob && c.Contour == co {
		return nil
	}

	zs := make([]float64, len(pts))
	for i, p := range pts {
		zs[i] = p.Z
	}
	sorted := make([]float64, len(zs))
	copy(sorted, zs)
	order := make([]int, len(zs))
	floats.Argsort(sorted, order)
	last := len(order) - 1
	iMin, iMax := order[0], order[last]
	zMin, zMax := sorted[0], sorted[last]

	if lookback && zMin > 0.5 {
		if g := f.found(c, ob, co, iMin, true); g != nil {
			if f.verboseBefore {
				status.Alertf(f.sink, "Contour %d is missing points before current point.  Use PageDown to get to view with missing point.", co+1)
			} else {
				status.Alertf(f.sink, "Contour %d is missing points before current point.", co+1)
			}
			f.verboseBefore = false
			return g
		}
	}

	pos := slices.Index(order, start)
	if pos < 0 {
		pos = 0
		if dir == Backward {
			pos = last
		}
	}
	for ; pos >= 0 && pos <= last; pos += int(dir) {
		if pos == last {
			continue
		}
		i := order[pos]
		if hasSection(zs, int(zs[i]+1.5)) {
			continue
		}
		if g := f.found(c, ob, co, i, false); g != nil {
			return g
		}
	}

	if dir == Forward {
		if zMax+1.1 < float64(f.sections) {
			return f.found(c, ob, co, iMax, false)
		}
	} else if zMin > 0.5 {
		if g := f.found(c, ob, co, iMin, true); g != nil {
			status.Alertf(f.sink, "Contour %d is missing points before current point.", co+1)
			return g
		}
	}
	return nil
}

func hasSection(zs []float64, z int) bool {
	for _, v := range zs {
		if int(v+0.5) == z {
			return true
		}
	}
	return false
}

// found records a gap in c and selects it, or returns nil if c already
// holds exactly this gap.
func (f *Finder) found(c *Cursor, ob, co, pt int, before bool) *Gap {
	if c.Object == ob && c.Contour == co && c.Point == pt && c.Before == before {
		return nil
	}
	c.Object, c.Contour, c.Point, c.Before = ob, co, pt, before
	f.store.SetCurrentIndex(c.index())
	return f.gapAt(c)
}

func (f *Finder) gapAt(c *Cursor) *Gap {
	g := &Gap{Object: c.Object, Contour: c.Contour, Point: c.Point, Before: c.Before}
	if p, ok := f.store.Point(g.Index()); ok {
		g.Arrow = geometry.VerticalArrow(p, g.Before, ArrowSize)
	}
	return g
}

// Last returns the gap c holds, without searching or touching the model.
func (f *Finder) Last(c *Cursor) (*Gap, bool) {
	if !c.Initialized || !c.valid() {
		return nil, false
	}
	return f.gapAt(c), true
}

// ResetToCurrent makes the model's current point the place the next search
// resumes from. It does nothing if no point is selected.
func (f *Finder) ResetToCurrent(c *Cursor) {
	idx := f.store.CurrentIndex()
	if idx.Object < 0 || idx.Contour < 0 || idx.Point < 0 {
		return
	}
	c.Object, c.Contour, c.Point = idx.Object, idx.Contour, idx.Point
	c.Before = false
	c.Initialized = true
}

// Reattach selects the point of the last gap again. It reports false if
// there is none.
func (f *Finder) Reattach(c *Cursor) bool {
	if !c.valid() || !c.Initialized {
		return false
	}
	f.store.SetCurrentIndex(c.index())
	return true
}
