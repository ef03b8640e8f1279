// Package model holds a fiducial model: objects made of contours, each
// contour a track of bead positions through the sections of a tilt series.
//
// The model carries a current point (the selection the operator is working
// on) and an undo log. Mutations made between BeginEdit and EndEdit form one
// undoable unit.
package model

import (
	"errors"
	"fmt"

	"bead-fixer/pkg/geometry"
)

// ErrIndexOutOfRange is returned when an object, contour or point index does
// not exist in the model.
var ErrIndexOutOfRange = errors.New("model index out of range")

// Index addresses a point (or, with Point < 0, a contour) in the model.
type Index struct {
	Object  int `json:"object"`
	Contour int `json:"contour"`
	Point   int `json:"point"`
}

// NoIndex is the empty selection.
var NoIndex = Index{Object: -1, Contour: -1, Point: -1}

func (i Index) String() string {
	return fmt.Sprintf("obj %d cont %d pt %d", i.Object+1, i.Contour+1, i.Point+1)
}

// Contour is an ordered list of points.
type Contour struct {
	Points []geometry.Point3D `json:"points"`
}

// Object is a named collection of contours.
type Object struct {
	Name     string     `json:"name,omitempty"`
	Contours []*Contour `json:"contours"`
}

// Model is an in-memory fiducial model. It is not safe for concurrent use;
// the correction engine drives it from a single goroutine.
type Model struct {
	Name    string    `json:"name,omitempty"`
	Objects []*Object `json:"objects"`

	current Index
	undo    []unit
	redo    []unit
	open    *unit
	depth   int
}

// New returns an empty model with no selection.
func New() *Model {
	return &Model{current: NoIndex}
}

// AddObject appends an empty object and returns its index.
func (m *Model) AddObject(name string) int {
	m.Objects = append(m.Objects, &Object{Name: name})
	return len(m.Objects) - 1
}

// AddContour appends a contour holding pts to object ob. It is not recorded
// in the undo log; use NewContour for interactive edits.
func (m *Model) AddContour(ob int, pts ...geometry.Point3D) (int, error) {
	if ob < 0 || ob >= len(m.Objects) {
		return -1, fmt.Errorf("object %d: %w", ob, ErrIndexOutOfRange)
	}
	c := &Contour{Points: append([]geometry.Point3D(nil), pts...)}
	o := m.Objects[ob]
	o.Contours = append(o.Contours, c)
	return len(o.Contours) - 1, nil
}

// NumObjects returns the number of objects.
func (m *Model) NumObjects() int {
	return len(m.Objects)
}

// NumContours returns the number of contours in object ob, or 0 if ob does
// not exist.
func (m *Model) NumContours(ob int) int {
	if ob < 0 || ob >= len(m.Objects) {
		return 0
	}
	return len(m.Objects[ob].Contours)
}

// NumPoints returns the number of points in a contour, or 0 if it does not
// exist.
func (m *Model) NumPoints(ob, co int) int {
	return len(m.Points(ob, co))
}

// Points returns the points of a contour, or nil if it does not exist. The
// slice belongs to the model and must not be modified.
func (m *Model) Points(ob, co int) []geometry.Point3D {
	c := m.contour(ob, co)
	if c == nil {
		return nil
	}
	return c.Points
}

// Point returns the point at idx.
func (m *Model) Point(idx Index) (geometry.Point3D, bool) {
	pts := m.Points(idx.Object, idx.Contour)
	if idx.Point < 0 || idx.Point >= len(pts) {
		return geometry.Point3D{}, false
	}
	return pts[idx.Point], true
}

// Valid reports whether idx names an existing point.
func (m *Model) Valid(idx Index) bool {
	_, ok := m.Point(idx)
	return ok
}

// CurrentIndex returns the current selection.
func (m *Model) CurrentIndex() Index {
	return m.current
}

// SetCurrentIndex changes the current selection. Out-of-range components
// are kept as given; callers use Valid to check.
func (m *Model) SetCurrentIndex(idx Index) {
	m.current = idx
}

// CurrentPoint returns the selected point, if any.
func (m *Model) CurrentPoint() (geometry.Point3D, bool) {
	return m.Point(m.current)
}

func (m *Model) contour(ob, co int) *Contour {
	if ob < 0 || ob >= len(m.Objects) {
		return nil
	}
	o := m.Objects[ob]
	if co < 0 || co >= len(o.Contours) {
		return nil
	}
	return o.Contours[co]
}
