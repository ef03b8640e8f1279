package model

import (
	"fmt"

	"bead-fixer/pkg/geometry"
)

type changeKind int

const (
	changeShift changeKind = iota
	changeInsert
	changeNewContour
)

// change is one reversible edit.
type change struct {
	kind   changeKind
	index  Index
	before geometry.Point3D
	after  geometry.Point3D
}

// unit is a group of changes undone together.
type unit struct {
	changes []change
}

// BeginEdit opens an undo unit. Calls nest; the unit closes at the matching
// outermost EndEdit.
func (m *Model) BeginEdit() {
	if m.depth == 0 {
		m.open = &unit{}
	}
	m.depth++
}

// EndEdit closes the unit opened by BeginEdit. Empty units are dropped.
func (m *Model) EndEdit() {
	if m.depth == 0 {
		return
	}
	m.depth--
	if m.depth > 0 {
		return
	}
	if len(m.open.changes) > 0 {
		m.undo = append(m.undo, *m.open)
		m.redo = nil
	}
	m.open = nil
}

func (m *Model) record(c change) {
	if m.open != nil {
		m.open.changes = append(m.open.changes, c)
		return
	}
	m.undo = append(m.undo, unit{changes: []change{c}})
	m.redo = nil
}

// SetPoint overwrites the point at idx.
func (m *Model) SetPoint(idx Index, p geometry.Point3D) error {
	c := m.contour(idx.Object, idx.Contour)
	if c == nil || idx.Point < 0 || idx.Point >= len(c.Points) {
		return fmt.Errorf("set point %s: %w", idx, ErrIndexOutOfRange)
	}
	m.record(change{kind: changeShift, index: idx, before: c.Points[idx.Point], after: p})
	c.Points[idx.Point] = p
	return nil
}

// InsertPoint inserts p into contour (ob, co) before position at; at equal
// to the point count appends.
func (m *Model) InsertPoint(ob, co, at int, p geometry.Point3D) error {
	c := m.contour(ob, co)
	if c == nil || at < 0 || at > len(c.Points) {
		return fmt.Errorf("insert point at %d in obj %d cont %d: %w", at, ob+1, co+1, ErrIndexOutOfRange)
	}
	c.Points = append(c.Points, geometry.Point3D{})
	copy(c.Points[at+1:], c.Points[at:])
	c.Points[at] = p
	m.record(change{kind: changeInsert, index: Index{Object: ob, Contour: co, Point: at}, after: p})
	return nil
}

// NewContour appends an empty contour to object ob as an undoable edit and
// returns its index.
func (m *Model) NewContour(ob int) (int, error) {
	if ob < 0 || ob >= len(m.Objects) {
		return -1, fmt.Errorf("new contour in object %d: %w", ob+1, ErrIndexOutOfRange)
	}
	o := m.Objects[ob]
	o.Contours = append(o.Contours, &Contour{})
	co := len(o.Contours) - 1
	m.record(change{kind: changeNewContour, index: Index{Object: ob, Contour: co, Point: -1}})
	return co, nil
}

// CanUndo reports whether there is a unit to undo.
func (m *Model) CanUndo() bool { return len(m.undo) > 0 }

// CanRedo reports whether there is a unit to redo.
func (m *Model) CanRedo() bool { return len(m.redo) > 0 }

// Undo reverts the most recent unit. It returns false if there is nothing
// to undo or an edit is still open.
func (m *Model) Undo() bool {
	if m.open != nil || len(m.undo) == 0 {
		return false
	}
	u := m.undo[len(m.undo)-1]
	m.undo = m.undo[:len(m.undo)-1]
	for i := len(u.changes) - 1; i >= 0; i-- {
		m.revert(u.changes[i])
	}
	m.redo = append(m.redo, u)
	return true
}

// Redo reapplies the most recently undone unit.
func (m *Model) Redo() bool {
	if m.open != nil || len(m.redo) == 0 {
		return false
	}
	u := m.redo[len(m.redo)-1]
	m.redo = m.redo[:len(m.redo)-1]
	for _, c := range u.changes {
		m.apply(c)
	}
	m.undo = append(m.undo, u)
	return true
}

func (m *Model) revert(c change) {
	switch c.kind {
	case changeShift:
		if ct := m.contour(c.index.Object, c.index.Contour); ct != nil && c.index.Point < len(ct.Points) {
			ct.Points[c.index.Point] = c.before
		}
	case changeInsert:
		if ct := m.contour(c.index.Object, c.index.Contour); ct != nil && c.index.Point < len(ct.Points) {
			ct.Points = append(ct.Points[:c.index.Point], ct.Points[c.index.Point+1:]...)
		}
	case changeNewContour:
		o := m.Objects[c.index.Object]
		if c.index.Contour < len(o.Contours) {
			o.Contours = append(o.Contours[:c.index.Contour], o.Contours[c.index.Contour+1:]...)
		}
	}
}

func (m *Model) apply(c change) {
	switch c.kind {
	case changeShift:
		if ct := m.contour(c.index.Object, c.index.Contour); ct != nil && c.index.Point < len(ct.Points) {
			ct.Points[c.index.Point] = c.after
		}
	case changeInsert:
		if ct := m.contour(c.index.Object, c.index.Contour); ct != nil && c.index.Point <= len(ct.Points) {
			ct.Points = append(ct.Points, geometry.Point3D{})
			copy(ct.Points[c.index.Point+1:], ct.Points[c.index.Point:])
			ct.Points[c.index.Point] = c.after
		}
	case changeNewContour:
		o := m.Objects[c.index.Object]
		o.Contours = append(o.Contours, &Contour{})
	}
}
