package residual

import (
	"bead-fixer/internal/model"
	"bead-fixer/internal/status"
	"bead-fixer/pkg/geometry"
)

// DefaultUndoDistance is how far a moved point may drift before Undo
// refuses to put it back.
const DefaultUndoDistance = 10.0

// Mover shifts the point found by a Navigator to the position its residual
// predicts, and can put it back once.
type Mover struct {
	nav   *Navigator
	store Store
	sink  status.Sink

	undoDistance float64

	pending  bool
	movedGen int
	idx      model.Index
	before   geometry.Point3D
	after    geometry.Point3D
}

// NewMover returns a mover for the points resolved by nav.
func NewMover(nav *Navigator) *Mover {
	return &Mover{
		nav:          nav,
		store:        nav.store,
		sink:         nav.sink,
		undoDistance: DefaultUndoDistance,
	}
}

// SetUndoDistance changes how far a moved point may drift and still be
// put back. Values <= 0 restore the default.
func (m *Mover) SetUndoDistance(d float64) {
	if d <= 0 {
		d = DefaultUndoDistance
	}
	m.undoDistance = d
}

// CanMove reports whether a resolved point is waiting to be moved.
func (m *Mover) CanMove() bool {
	_, ok := m.nav.Resolved()
	return ok && m.movedGen != m.nav.generation
}

// CanUndo reports whether a move is pending.
func (m *Mover) CanUndo() bool { return m.pending }

// MoveByResidual moves the resolved point to center+residual. The model's
// current point must still be the resolved one.
func (m *Mover) MoveByResidual() error {
	res, ok := m.nav.Resolved()
	if !ok {
		return ErrNothingResolved
	}
	if m.movedGen == m.nav.generation {
		return ErrAlreadyMoved
	}
	cur := m.store.CurrentIndex()
	p, ok := m.store.Point(cur)
	if cur != res.Index || !ok {
		status.Alertf(m.sink, "The current point is not the same as the point with the last residual examined!")
		return ErrStalePointSelection
	}

	target := res.Residual.Center.Add(res.Residual.Residual)
	after := p
	after.X, after.Y = target.X, target.Y

	m.store.BeginEdit()
	err := m.store.SetPoint(cur, after)
	m.store.EndEdit()
	if err != nil {
		return err
	}

	m.pending = true
	m.movedGen = m.nav.generation
	m.idx = cur
	m.before = p
	m.after = after
	return nil
}

// Undo puts the last moved point back where it was, provided it is still
// near where it was moved to and on the same section. It does nothing when
// no move is pending.
func (m *Mover) Undo() error {
	if !m.pending {
		return nil
	}
	m.pending = false

	p, ok := m.store.Point(m.idx)
	limit := m.undoDistance * m.undoDistance
	if !ok || p.Z != m.after.Z || p.PlanarDistanceSq(m.after) >= limit {
		status.Alertf(m.sink, "Moved point no longer exists or is not close enough to where it was moved to!")
		return ErrNotRevertible
	}

	m.store.BeginEdit()
	err := m.store.SetPoint(m.idx, m.before)
	m.store.EndEdit()
	if err != nil {
		return err
	}
	m.store.SetCurrentIndex(m.idx)
	m.movedGen = 0
	return nil
}

// MoveAll moves every remaining residual point of the current local area,
// stepping through the area with nav. It returns the number of points
// moved.
func MoveAll(nav *Navigator, m *Mover) (int, error) {
	start := nav.area
	if start < 1 || nav.current < 0 || nav.current >= len(nav.rows) {
		return 0, ErrNotInLocalArea
	}

	nav.quiet = true
	defer func() { nav.quiet = false }()

	moved := 0
	for nav.area == start && nav.current < len(nav.rows) {
		if m.CanMove() && m.MoveByResidual() == nil {
			moved++
		}
		nav.bell = bellSuppressed
		if _, err := nav.Next(); err == ErrNoMoreResiduals || err == ErrNoResidualData {
			break
		}
	}
	status.Infof(nav.sink, "Moved %d points", moved)
	return moved, nil
}
