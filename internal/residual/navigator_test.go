package residual

import (
	"testing"

	"bead-fixer/internal/alignlog"
	"bead-fixer/internal/model"
	"bead-fixer/internal/status"
	"bead-fixer/pkg/geometry"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func pt(x, y, z float64) geometry.Point3D {
	return geometry.Point3D{X: x, Y: y, Z: z}
}

func row(ob, co, view int, cx, cy, dx, dy float64, area int) alignlog.Residual {
	return alignlog.Residual{
		Object: ob, Contour: co, View: view,
		Center:   geometry.NewPoint2D(cx, cy),
		Residual: geometry.NewPoint2D(dx, dy),
		StdDevs:  2.5,
		Area:     area,
		Valid:    true,
	}
}

// Two five-section tracks; the second point of the first track sits half a
// pixel off its logged position.
func newTrackModel(t *testing.T) *model.Model {
	t.Helper()
	m := model.New()
	ob := m.AddObject("beads")
	_, err := m.AddContour(ob, pt(100, 100, 0), pt(100.5, 100, 1), pt(100, 100, 2), pt(100, 100, 3), pt(100, 100, 4))
	require.NoError(t, err)
	_, err = m.AddContour(ob, pt(200, 200, 0), pt(200, 200, 1), pt(200, 200, 2), pt(200, 200, 3), pt(200, 200, 4))
	require.NoError(t, err)
	return m
}

// Global area with three rows, local area (1, 1) with two; row 3 repeats
// the point of row 0.
func newTrackLog() *alignlog.Index {
	return &alignlog.Index{
		Style: alignlog.StyleObjectContour,
		Areas: []alignlog.Area{
			{X: 0, Y: 0, FirstResidual: 0, NumPoints: 3},
			{X: 1, Y: 1, FirstResidual: 3, NumPoints: 2},
		},
		Residuals: []alignlog.Residual{
			row(1, 1, 2, 100, 100, 1, -1, 0),
			row(1, 2, 3, 200, 200, 2, 0, 0),
			row(1, 1, 4, 100, 100, 0, 1, 0),
			row(1, 1, 2, 100, 100, 1, -1, 1),
			row(1, 2, 5, 200, 200, 0, 3, 1),
		},
	}
}

func newNavigator(t *testing.T) (*Navigator, *model.Model, *status.Recorder) {
	t.Helper()
	m := newTrackModel(t)
	rec := &status.Recorder{}
	nav := NewNavigator(m, rec)
	nav.Load(newTrackLog())
	return nav, m, rec
}

func TestNextWalksRowsInLogOrder(t *testing.T) {
	nav, m, rec := newNavigator(t)

	wantIdx := []model.Index{
		{Object: 0, Contour: 0, Point: 1},
		{Object: 0, Contour: 1, Point: 2},
		{Object: 0, Contour: 0, Point: 3},
		{Object: 0, Contour: 0, Point: 1},
		{Object: 0, Contour: 1, Point: 4},
	}
	for i, want := range wantIdx {
		v, err := nav.Next()
		require.NoError(t, err, "row %d", i)
		assert.Equal(t, i, v.Row)
		assert.True(t, v.Resolved)
		assert.Equal(t, want, v.Index)
		assert.Equal(t, want, m.CurrentIndex())
	}

	_, err := nav.Next()
	assert.ErrorIs(t, err, ErrNoMoreResiduals)
	assert.Equal(t, nav.Len(), nav.Current())
	assert.True(t, rec.Contains("Entering global solution"))
	assert.True(t, rec.Contains("Entering local area 1  1,  2 residuals"))
	assert.True(t, rec.Contains("No more residuals!"))
}

func TestNextAnnouncesAreaAndRings(t *testing.T) {
	nav, _, rec := newNavigator(t)

	v, err := nav.Next()
	require.NoError(t, err)
	assert.True(t, v.EnteredArea)
	assert.Equal(t, 0, nav.CurrentArea())
	assert.True(t, rec.Last().Alert, "first residual of an area rings")
	assert.Equal(t, "Residual =  1.41 (  1.0, -1.0), 2.50 SDs", rec.Last().Text)

	v, err = nav.Next()
	require.NoError(t, err)
	assert.False(t, v.EnteredArea)
	assert.False(t, rec.Last().Alert)
}

func TestNextPreviousNextRoundTrip(t *testing.T) {
	for start := 1; start <= 3; start++ {
		ref, _, _ := newNavigator(t)
		nav, _, _ := newNavigator(t)
		for i := 0; i < start; i++ {
			_, err := ref.Next()
			require.NoError(t, err)
			_, err = nav.Next()
			require.NoError(t, err)
		}

		want, err := ref.Next()
		require.NoError(t, err)

		_, err = nav.Next()
		require.NoError(t, err)
		_, err = nav.Previous()
		require.NoError(t, err)
		got, err := nav.Next()
		require.NoError(t, err)

		assert.Equal(t, want.Row, got.Row, "start %d", start)
		assert.Equal(t, want.Index, got.Index, "start %d", start)
	}
}

func TestLookOnceVisitsEachRowAtMostOnce(t *testing.T) {
	nav, _, _ := newNavigator(t)
	nav.SetLookOnce(true)

	seen := map[int]bool{}
	for i := 0; i < nav.Len(); i++ {
		v, err := nav.Next()
		if err != nil {
			assert.ErrorIs(t, err, ErrNoMoreResiduals)
			continue
		}
		assert.False(t, seen[v.Row], "row %d visited twice", v.Row)
		seen[v.Row] = true
	}
	assert.False(t, seen[3], "repeated point is skipped")
	assert.Len(t, seen, 4)

	_, err := nav.Next()
	assert.ErrorIs(t, err, ErrNoMoreResiduals)
	assert.Equal(t, 0, nav.ToExamine())
}

func TestPreviousMessages(t *testing.T) {
	nav, _, rec := newNavigator(t)
	_, err := nav.Next()
	require.NoError(t, err)

	_, err = nav.Previous()
	assert.ErrorIs(t, err, ErrNoPrevious)
	assert.Equal(t, "There is no previous residual.", rec.Last().Text)

	nav.SetLookOnce(true)
	_, err = nav.Previous()
	assert.ErrorIs(t, err, ErrNoPrevious)
	assert.Contains(t, rec.Last().Text, "Examine points once")
}

func TestPreviousFreesLeftRowWithLookOnce(t *testing.T) {
	nav, _, _ := newNavigator(t)
	nav.SetLookOnce(true)

	_, err := nav.Next()
	require.NoError(t, err)
	_, err = nav.Next()
	require.NoError(t, err)

	v, err := nav.Previous()
	require.NoError(t, err)
	assert.Equal(t, 0, v.Row)
	assert.True(t, nav.LookOnce(), "look-once restored")

	v, err = nav.Next()
	require.NoError(t, err)
	assert.Equal(t, 1, v.Row, "row left by backing up is shown again")
}

func TestPreviousAcrossAreas(t *testing.T) {
	nav, _, rec := newNavigator(t)
	log := newTrackLog()
	log.Areas = append(log.Areas, alignlog.Area{X: 2, Y: 1, FirstResidual: 5, NumPoints: 1})
	log.Residuals = append(log.Residuals, row(1, 2, 5, 200, 200, 0, 3, 2))
	nav.Load(log)

	require.NoError(t, nav.JumpBeforeArea(1))
	_, err := nav.Next()
	require.NoError(t, err)

	v, err := nav.Previous()
	require.NoError(t, err)
	assert.Equal(t, 2, v.Row)
	assert.Equal(t, 0, nav.CurrentArea())
	assert.True(t, rec.Contains("Backing up into global solution residuals."))
	assert.True(t, rec.Last().Alert)

	require.NoError(t, nav.JumpBeforeArea(2))
	_, err = nav.Next()
	require.NoError(t, err)
	v, err = nav.Previous()
	require.NoError(t, err)
	assert.Equal(t, 4, v.Row)
	assert.Equal(t, 1, nav.CurrentArea())
	assert.True(t, rec.Contains("Backing up into local area 1 1."))
}

func TestJumpBeforeAreaSuppressesBell(t *testing.T) {
	nav, _, rec := newNavigator(t)

	require.NoError(t, nav.JumpBeforeArea(1))
	assert.Equal(t, 2, nav.Current())
	v, err := nav.Next()
	require.NoError(t, err)
	assert.Equal(t, 3, v.Row)
	assert.True(t, v.EnteredArea)
	assert.False(t, rec.Last().Alert)

	assert.ErrorIs(t, nav.JumpBeforeArea(2), ErrNoSuchArea)
	assert.ErrorIs(t, nav.JumpBeforeArea(-1), ErrNoSuchArea)
}

func TestNextLocal(t *testing.T) {
	nav, _, _ := newNavigator(t)

	v, err := nav.NextLocal()
	require.NoError(t, err)
	assert.Equal(t, 3, v.Row)
	assert.Equal(t, 1, nav.CurrentArea())

	_, err = nav.NextLocal()
	assert.ErrorIs(t, err, ErrNoMoreAreas)
}

func TestUnresolvableRows(t *testing.T) {
	tests := []struct {
		name   string
		row    alignlog.Residual
		reason error
	}{
		{"object", row(4, 1, 2, 100, 100, 0, 0, 0), ErrObjectNotFound},
		{"contour", row(1, 7, 2, 100, 100, 0, 0, 0), ErrContourNotFound},
		{"view", row(1, 1, 9, 100, 100, 0, 0, 0), ErrPointNotFound},
		{"distance", row(1, 1, 2, 130, 100, 0, 0, 0), ErrTooFar},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := newTrackModel(t)
			rec := &status.Recorder{}
			nav := NewNavigator(m, rec)
			nav.Load(&alignlog.Index{
				Style:     alignlog.StyleObjectContour,
				Areas:     []alignlog.Area{{NumPoints: 1}},
				Residuals: []alignlog.Residual{tt.row},
			})

			v, err := nav.Next()
			require.Error(t, err)
			assert.ErrorIs(t, err, ErrUnresolvable)
			assert.ErrorIs(t, err, tt.reason)
			var ue *UnresolvableError
			require.ErrorAs(t, err, &ue)
			assert.Equal(t, 0, ue.Row)

			require.NotNil(t, v)
			assert.False(t, v.Resolved)
			assert.Equal(t, model.NoIndex, m.CurrentIndex())
			_, ok := nav.Resolved()
			assert.False(t, ok)
			assert.True(t, rec.Last().Alert)
		})
	}
}

func TestLegacyRowsCountMultiPointContours(t *testing.T) {
	m := model.New()
	a := m.AddObject("a")
	_, err := m.AddContour(a, pt(5, 5, 0))
	require.NoError(t, err)
	_, err = m.AddContour(a, pt(10, 10, 0), pt(10, 10, 1))
	require.NoError(t, err)
	b := m.AddObject("b")
	_, err = m.AddContour(b, pt(20, 20, 0), pt(20, 20, 1))
	require.NoError(t, err)

	nav := NewNavigator(m, nil)
	nav.Load(&alignlog.Index{
		Style: alignlog.StyleLegacy,
		Areas: []alignlog.Area{{NumPoints: 3}},
		Residuals: []alignlog.Residual{
			row(1, 1, 1, 10, 10, 0, 0, 0),
			row(1, 2, 2, 20, 20, 0, 0, 0),
			row(1, 3, 2, 20, 20, 0, 0, 0),
		},
	})

	v, err := nav.Next()
	require.NoError(t, err)
	assert.Equal(t, model.Index{Object: 0, Contour: 1, Point: 0}, v.Index)

	v, err = nav.Next()
	require.NoError(t, err)
	assert.Equal(t, model.Index{Object: 1, Contour: 0, Point: 1}, v.Index)

	_, err = nav.Next()
	assert.ErrorIs(t, err, ErrContourNotFound)
}

func TestEmptyLogReportsNoData(t *testing.T) {
	rec := &status.Recorder{}
	nav := NewNavigator(model.New(), rec)
	nav.Load(nil)

	_, err := nav.Next()
	assert.ErrorIs(t, err, ErrNoResidualData)
	_, err = nav.Previous()
	assert.ErrorIs(t, err, ErrNoResidualData)
	assert.Equal(t, "No residual data", rec.Last().Text)
}

func TestReloadKeepsLookedSet(t *testing.T) {
	nav, _, _ := newNavigator(t)
	nav.SetLookOnce(true)
	assert.Equal(t, 4, nav.ToExamine())

	_, err := nav.Next()
	require.NoError(t, err)
	nav.Load(newTrackLog())
	assert.Equal(t, -1, nav.Current())
	assert.Equal(t, 3, nav.ToExamine())

	v, err := nav.Next()
	require.NoError(t, err)
	assert.Equal(t, 1, v.Row)

	nav.ResetLookedAt()
	assert.Equal(t, 4, nav.ToExamine())
}

func TestLookedSetTombstones(t *testing.T) {
	var s LookedSet
	k1 := alignlog.Key{Object: 1, Contour: 1, View: 1}
	k2 := alignlog.Key{Object: 1, Contour: 2, View: 1}
	s.Add(k1)
	s.Add(k2)

	assert.Equal(t, 1, s.Remove(k1))
	assert.False(t, s.Contains(k1))
	assert.True(t, s.Contains(k2))
	assert.Equal(t, 1, s.Len())
	assert.Equal(t, 0, s.Remove(k1))

	s.Add(k1)
	assert.True(t, s.Contains(k1))
	s.Reset()
	assert.Equal(t, 0, s.Len())
}
