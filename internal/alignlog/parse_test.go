package alignlog

import (
	"errors"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"testing"

	"bead-fixer/pkg/geometry"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseObjectContourLog(t *testing.T) {
	idx, err := ParseFile(filepath.Join("testdata", "objcont.log"))
	require.NoError(t, err)
	require.NoError(t, idx.Check())

	assert.Equal(t, StyleObjectContour, idx.Style)
	require.Len(t, idx.Residuals, 6)
	require.Len(t, idx.Areas, 3, "two local areas plus the global one")

	assert.Equal(t, Area{X: 0, Y: 0, FirstResidual: 0, NumPoints: 3}, idx.Areas[0])
	assert.Equal(t, Area{X: 1, Y: 1, FirstResidual: 3, NumPoints: 2}, idx.Areas[1])
	assert.Equal(t, Area{X: 2, Y: 1, FirstResidual: 5, NumPoints: 1}, idx.Areas[2])

	r := idx.Residuals[1]
	assert.Equal(t, Key{Object: 1, Contour: 2, View: 5}, r.Key())
	assert.Equal(t, geometry.Point2D{X: 300.5, Y: 150.25}, r.Center)
	assert.Equal(t, geometry.Point2D{X: -1.5, Y: 0.75}, r.Residual)
	assert.InDelta(t, 2.8, r.StdDevs, 1e-9)
	assert.True(t, r.Valid)
	assert.False(t, r.LookedAt)

	for i, res := range idx.Residuals {
		assert.Equal(t, i >= 3, res.Area > 0, "row %d area %d", i, res.Area)
	}
}

func TestParseLegacyLog(t *testing.T) {
	idx, err := ParseFile(filepath.Join("testdata", "legacy.log"))
	require.NoError(t, err)

	assert.Equal(t, StyleLegacy, idx.Style)
	require.Len(t, idx.Residuals, 2)
	require.Len(t, idx.Areas, 1)

	r := idx.Residuals[0]
	assert.Equal(t, 1, r.Object)
	assert.Equal(t, 2, r.Contour, "legacy point number is stored as the contour")
	assert.Equal(t, 4, r.View)
	assert.Equal(t, geometry.Point2D{X: 1, Y: 2}, r.Residual)
}

func TestParseNoResidualData(t *testing.T) {
	idx, err := ParseFile(filepath.Join("testdata", "noresid.log"))
	assert.ErrorIs(t, err, ErrNoResidualData)
	require.NotNil(t, idx, "an empty index comes back with the error")
	assert.Equal(t, 0, idx.Len())
	assert.Empty(t, idx.Areas)
}

func TestParseMissingFile(t *testing.T) {
	_, err := ParseFile(filepath.Join(t.TempDir(), "nope.log"))
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrIO)
	assert.ErrorIs(t, err, os.ErrNotExist)

	var pe *ParseError
	require.True(t, errors.As(err, &pe))
	assert.Contains(t, pe.Path, "nope.log")
}

type failingReader struct{}

func (failingReader) Read([]byte) (int, error) { return 0, errors.New("disk on fire") }

func TestParseReadFailure(t *testing.T) {
	_, err := Parse(failingReader{})
	assert.ErrorIs(t, err, ErrIO)
	assert.Contains(t, err.Error(), "disk on fire")
}

func TestParseKeepsBadRowsAsInvalid(t *testing.T) {
	log := strings.Join([]string{
		"   #     #     #      X         Y        X         Y      SDs",
		"     1     5    x3   10.0   20.0    1.0    1.0    2.0",
		"     1     6     4   10.0   oops    1.0    1.0    2.0",
		"     1     7     4   10.0   20.0    1.0",
		"     1     8     4   10.0   20.0    1.0    1.0    2.0",
		"",
	}, "\n")

	idx, err := Parse(strings.NewReader(log))
	require.NoError(t, err)
	require.Len(t, idx.Residuals, 4)

	bad := idx.Residuals[0]
	assert.False(t, bad.Valid)
	assert.Equal(t, 1, bad.Object)
	assert.Equal(t, 5, bad.Contour)
	assert.Equal(t, 0, bad.View)

	partial := idx.Residuals[1]
	assert.False(t, partial.Valid)
	assert.Equal(t, 10.0, partial.Center.X)
	assert.Equal(t, 0.0, partial.Center.Y)

	assert.False(t, idx.Residuals[2].Valid, "short row")
	assert.True(t, idx.Residuals[3].Valid)
	assert.Equal(t, 3, idx.InvalidCount())
}

func TestParseStopsWithoutAreaMarker(t *testing.T) {
	log := strings.Join([]string{
		"   #     #     #      X         Y        X         Y      SDs",
		"     1     1     1   10.0   20.0    1.0    1.0    2.0",
		"",
		" no marker follows, so this second table is never reached",
		"   #     #     #      X         Y        X         Y      SDs",
		"     1     2     1   10.0   20.0    1.0    1.0    2.0",
		"",
	}, "\n")

	idx, err := Parse(strings.NewReader(log))
	require.NoError(t, err)
	assert.Len(t, idx.Residuals, 1)
	assert.Len(t, idx.Areas, 1)
}

func TestParseStyleChosenOnce(t *testing.T) {
	log := strings.Join([]string{
		"   #     #      X         Y        X         Y      SDs",
		"    3     2   10.0   20.0    1.0    1.0    2.0",
		"",
		" Doing local area  1  2",
		"   #     #     #      X         Y        X         Y      SDs",
		"    4     2   11.0   21.0    1.0    1.0    2.0",
		"",
	}, "\n")

	idx, err := Parse(strings.NewReader(log))
	require.NoError(t, err)
	assert.Equal(t, StyleLegacy, idx.Style)
	require.Len(t, idx.Residuals, 2)
	assert.Equal(t, Key{Object: 1, Contour: 4, View: 2}, idx.Residuals[1].Key())
	assert.Equal(t, Area{X: 1, Y: 2, FirstResidual: 1, NumPoints: 1}, idx.Areas[1])
}

func TestParseCountsMatchInput(t *testing.T) {
	// N well-formed rows over A local areas give N residuals and A+1 areas.
	for _, tc := range []struct {
		name string
		rows []int
	}{
		{"global only", []int{4}},
		{"three areas", []int{2, 3, 1, 5}},
		{"empty local area", []int{1, 0, 2}},
	} {
		t.Run(tc.name, func(t *testing.T) {
			var b strings.Builder
			total := 0
			for a, n := range tc.rows {
				if a > 0 {
					b.WriteString(" Doing local area  " + itoa(a) + "  " + itoa(a+1) + "\n")
				}
				b.WriteString("   #     #     #      X         Y        X         Y      SDs\n")
				for i := 0; i < n; i++ {
					b.WriteString("     1     " + itoa(i+1) + "     " + itoa(a+1) + "   10.0   20.0    1.0    1.0    2.0\n")
				}
				b.WriteString("\n")
				total += n
			}

			idx, err := Parse(strings.NewReader(b.String()))
			require.NoError(t, err)
			require.NoError(t, idx.Check())
			assert.Len(t, idx.Residuals, total)
			assert.Len(t, idx.Areas, len(tc.rows))
		})
	}
}

func itoa(i int) string {
	return strconv.Itoa(i)
}

func TestCheckRejectsBrokenIndex(t *testing.T) {
	rows := func(areas ...int) []Residual {
		out := make([]Residual, len(areas))
		for i, a := range areas {
			out[i] = Residual{Area: a}
		}
		return out
	}
	tests := []struct {
		name string
		idx  Index
		want string
	}{
		{"rows without areas", Index{Residuals: rows(0)}, "residuals without areas"},
		{"area does not start where the last ended", Index{
			Areas:     []Area{{NumPoints: 1}, {FirstResidual: 2, NumPoints: 1}},
			Residuals: rows(0, 1),
		}, "area 1 starts at 2, expected 1"},
		{"area claims missing rows", Index{
			Areas:     []Area{{NumPoints: 3}},
			Residuals: rows(0, 0),
		}, "area 0 claims row 2 of 2"},
		{"row in the wrong area", Index{
			Areas:     []Area{{NumPoints: 1}, {FirstResidual: 1, NumPoints: 1}},
			Residuals: rows(0, 0),
		}, "row 1 belongs to area 1, recorded as 0"},
		{"rows outside every area", Index{
			Areas:     []Area{{NumPoints: 1}},
			Residuals: rows(0, 0),
		}, "areas cover 1 rows of 2"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.EqualError(t, tt.idx.Check(), tt.want)
		})
	}

	assert.NoError(t, (&Index{}).Check())
}

func TestCountToExamine(t *testing.T) {
	idx, err := ParseFile(filepath.Join("testdata", "objcont.log"))
	require.NoError(t, err)

	// obj 1 cont 1 view 3 appears twice
	assert.Equal(t, 5, idx.CountToExamine(nil))

	seen := func(k Key) bool { return k == Key{Object: 1, Contour: 2, View: 5} }
	assert.Equal(t, 4, idx.CountToExamine(seen))
}

func TestSummarize(t *testing.T) {
	idx, err := ParseFile(filepath.Join("testdata", "objcont.log"))
	require.NoError(t, err)

	s := idx.Summarize()
	assert.Equal(t, StyleObjectContour, s.Style)
	assert.Equal(t, 6, s.Residuals)
	require.Len(t, s.Areas, 3)

	global := s.Areas[0]
	assert.Equal(t, 3, global.Count)
	assert.InDelta(t, 2.23607, global.Max, 1e-4)
	assert.Equal(t, 0, global.MaxRow)
	assert.Greater(t, global.StdDev, 0.0)

	single := s.Areas[2]
	assert.Equal(t, 1, single.Count)
	assert.InDelta(t, 1.41421, single.Mean, 1e-4)
	assert.Equal(t, 0.0, single.StdDev)
	assert.Equal(t, 5, single.MaxRow)
}
