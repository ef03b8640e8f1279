package session

import (
	"math"

	"bead-fixer/internal/bead"
	"bead-fixer/internal/gap"
	"bead-fixer/internal/model"
	"bead-fixer/internal/status"
	"bead-fixer/pkg/geometry"
)

// CenterAt finds the bead nearest (x, y) on the current section.
func (s *Session) CenterAt(x, y float64) (geometry.Point2D, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.center(geometry.NewPoint2D(x, y))
}

func (s *Session) center(seed geometry.Point2D) (geometry.Point2D, error) {
	if s.beads == nil {
		return seed, ErrNoImages
	}
	return s.beads.FindCenter(seed, s.section, s.settings.Diameter, bead.PolarityOf(s.settings.LightBeads))
}

// InsertPoint adds a point at (x, y) on the current section, centering it
// on the nearest bead first when autocentering is on. The point goes after
// the closest point below this section in the current contour; in seed
// mode a new contour is started when this section already has a point or
// the nearest point is more than two diameters away. It reports whether
// the click was handled; residual mode leaves clicks alone.
func (s *Session) InsertPoint(x, y float64) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.mode == ModeResidual {
		return false, nil
	}
	z := s.section
	at := geometry.NewPoint2D(x, y)

	if s.settings.AutoCenter {
		c, err := s.center(at)
		if err != nil {
			status.Alertf(s.sink, "Autocentering failed to find a point")
			return true, err
		}
		at = c
	}

	cur := s.model.CurrentIndex()
	hasContour := cur.Object >= 0 && cur.Contour >= 0 && cur.Contour < s.model.NumContours(cur.Object)
	if s.mode == ModeGap && !hasContour {
		status.Alertf(s.sink, "No automatic new contours in gap filling mode.\nUse \"Reattach to Point at Gap\" first to fill the current gap.")
		return true, ErrNoContour
	}

	ob := cur.Object
	if ob < 0 || ob >= s.model.NumObjects() {
		if s.model.NumObjects() == 0 {
			s.model.AddObject("fiducials")
		}
		ob = 0
	}

	s.model.BeginEdit()
	defer s.model.EndEdit()

	co := cur.Contour
	if !hasContour {
		var err error
		if co, err = s.model.NewContour(ob); err != nil {
			status.Alertf(s.sink, "Failed to get contour to add point to")
			return true, err
		}
	}

	p := geometry.Point3D{X: at.X, Y: at.Y, Z: float64(z)}
	pts := s.model.Points(ob, co)
	index := insertAfterBelow(pts, z)

	if s.mode == ModeSeed && s.settings.AutoNewContour && len(pts) > 0 {
		zdiff, dist := nearestSection(pts, p)
		if zdiff < 0.5 || dist > 2*s.settings.Diameter {
			var err error
			if co, err = s.model.NewContour(ob); err != nil {
				status.Alertf(s.sink, "Failed to get contour to add point to")
				return true, err
			}
			index = 0
		}
	}

	if err := s.model.InsertPoint(ob, co, index, p); err != nil {
		return true, err
	}
	s.model.SetCurrentIndex(model.Index{Object: ob, Contour: co, Point: index})

	if s.mode == ModeGap {
		s.updateGapArrow(p, s.model.Points(ob, co))
	}
	return true, nil
}

// insertAfterBelow returns the position after the point closest below
// section z, or 0.
func insertAfterBelow(pts []geometry.Point3D, z int) int {
	index := 0
	best := math.Inf(1)
	for i, q := range pts {
		d := float64(z) - q.Z
		if q.Z < float64(z) && d < best {
			best = d
			index = i + 1
		}
	}
	return index
}

// nearestSection returns the Z distance to the point nearest p in Z and
// that point's distance from p.
func nearestSection(pts []geometry.Point3D, p geometry.Point3D) (zdiff, dist float64) {
	zdiff = math.Inf(1)
	for _, q := range pts {
		if d := math.Abs(p.Z - q.Z); d < zdiff {
			zdiff = d
			dist = q.Distance(p)
		}
	}
	return zdiff, dist
}

// updateGapArrow keeps the gap arrow on a freshly filled track while the
// track still needs points in the same direction.
func (s *Session) updateGapArrow(p geometry.Point3D, pts []geometry.Point3D) {
	z := int(p.Z)
	if s.cursor.Before && z > 0 {
		s.marker = geometry.VerticalArrow(p, true, gap.ArrowSize)
		return
	}
	if z <= 0 || z >= s.sections()-1 {
		return
	}
	for _, q := range pts {
		if int(q.Z+0.5) == z+1 {
			return
		}
	}
	s.marker = geometry.VerticalArrow(p, false, gap.ArrowSize)
}

// ModifyPoint recenters the current point on the bead nearest (x, y). The
// point must be on the current section. It reports whether the point moved.
func (s *Session) ModifyPoint(x, y float64) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	idx := s.model.CurrentIndex()
	p, ok := s.model.Point(idx)
	if !ok {
		return false, nil
	}
	if p.Section() != s.section {
		return false, ErrWrongSection
	}
	c, err := s.center(geometry.NewPoint2D(x, y))
	if err != nil {
		return false, err
	}

	p.X, p.Y = c.X, c.Y
	s.model.BeginEdit()
	err = s.model.SetPoint(idx, p)
	s.model.EndEdit()
	if err != nil {
		return false, err
	}
	return true, nil
}
