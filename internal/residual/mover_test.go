package residual

import (
	"testing"

	"bead-fixer/internal/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMoveThenUndoRestoresPoint(t *testing.T) {
	nav, m, _ := newNavigator(t)
	mv := NewMover(nav)
	idx := model.Index{Object: 0, Contour: 0, Point: 1}

	_, err := nav.Next()
	require.NoError(t, err)
	before, _ := m.Point(idx)
	require.True(t, mv.CanMove())

	require.NoError(t, mv.MoveByResidual())
	moved, _ := m.Point(idx)
	assert.Equal(t, pt(101, 99, 1), moved, "moved to logged center plus residual")
	assert.True(t, mv.CanUndo())
	assert.False(t, mv.CanMove())

	require.NoError(t, mv.Undo())
	after, _ := m.Point(idx)
	assert.Equal(t, before, after)
	assert.False(t, mv.CanUndo())

	assert.NoError(t, mv.Undo(), "undo with nothing pending does nothing")
}

func TestMoveIsOneUndoableModelEdit(t *testing.T) {
	nav, m, _ := newNavigator(t)
	mv := NewMover(nav)

	_, err := nav.Next()
	require.NoError(t, err)
	require.NoError(t, mv.MoveByResidual())

	require.True(t, m.CanUndo())
	require.True(t, m.Undo())
	p, _ := m.Point(model.Index{Object: 0, Contour: 0, Point: 1})
	assert.Equal(t, pt(100.5, 100, 1), p)
	assert.False(t, m.CanUndo())
}

func TestMoveRequiresResolvedPoint(t *testing.T) {
	nav, _, _ := newNavigator(t)
	mv := NewMover(nav)
	assert.ErrorIs(t, mv.MoveByResidual(), ErrNothingResolved)

	_, err := nav.Next()
	require.NoError(t, err)
	require.NoError(t, mv.MoveByResidual())
	assert.ErrorIs(t, mv.MoveByResidual(), ErrAlreadyMoved)
}

func TestMoveRejectsStaleSelection(t *testing.T) {
	nav, m, rec := newNavigator(t)
	mv := NewMover(nav)

	_, err := nav.Next()
	require.NoError(t, err)
	m.SetCurrentIndex(model.Index{Object: 0, Contour: 1, Point: 0})

	assert.ErrorIs(t, mv.MoveByResidual(), ErrStalePointSelection)
	assert.True(t, rec.Last().Alert)
	assert.False(t, m.CanUndo(), "model untouched")
	p, _ := m.Point(model.Index{Object: 0, Contour: 0, Point: 1})
	assert.Equal(t, pt(100.5, 100, 1), p)
}

func TestUndoRefusesDriftedPoint(t *testing.T) {
	nav, m, rec := newNavigator(t)
	mv := NewMover(nav)
	idx := model.Index{Object: 0, Contour: 0, Point: 1}

	_, err := nav.Next()
	require.NoError(t, err)
	require.NoError(t, mv.MoveByResidual())
	require.NoError(t, m.SetPoint(idx, pt(120, 99, 1)))

	assert.ErrorIs(t, mv.Undo(), ErrNotRevertible)
	assert.Contains(t, rec.Last().Text, "not close enough")
	p, _ := m.Point(idx)
	assert.Equal(t, pt(120, 99, 1), p)
	assert.False(t, mv.CanUndo())
}

func TestUndoRefusesPointOnOtherSection(t *testing.T) {
	nav, m, _ := newNavigator(t)
	mv := NewMover(nav)
	idx := model.Index{Object: 0, Contour: 0, Point: 1}

	_, err := nav.Next()
	require.NoError(t, err)
	require.NoError(t, mv.MoveByResidual())
	require.NoError(t, m.SetPoint(idx, pt(101, 99, 2)))

	assert.ErrorIs(t, mv.Undo(), ErrNotRevertible)
}

func TestMoveAllMovesRestOfLocalArea(t *testing.T) {
	nav, m, rec := newNavigator(t)
	mv := NewMover(nav)

	_, err := nav.NextLocal()
	require.NoError(t, err)

	n, err := MoveAll(nav, mv)
	require.NoError(t, err)
	assert.Equal(t, 2, n)
	assert.Equal(t, "Moved 2 points", rec.Last().Text)

	p, _ := m.Point(model.Index{Object: 0, Contour: 0, Point: 1})
	assert.Equal(t, pt(101, 99, 1), p)
	p, _ = m.Point(model.Index{Object: 0, Contour: 1, Point: 4})
	assert.Equal(t, pt(200, 203, 4), p)
	assert.Equal(t, nav.Len(), nav.Current())
}

func TestMoveAllNeedsLocalArea(t *testing.T) {
	nav, _, _ := newNavigator(t)
	mv := NewMover(nav)

	_, err := MoveAll(nav, mv)
	assert.ErrorIs(t, err, ErrNotInLocalArea)

	_, err = nav.Next()
	require.NoError(t, err)
	_, err = MoveAll(nav, mv)
	assert.ErrorIs(t, err, ErrNotInLocalArea)
}
