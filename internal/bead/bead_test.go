package bead

import (
	"testing"

	"bead-fixer/internal/volume"
	"bead-fixer/pkg/geometry"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// paintDisk sets every pixel whose center lies within r of (cx, cy) on
// section z.
func paintDisk(v *volume.Volume, z int, cx, cy, r, val float64) {
	nx, ny, _ := v.Size()
	for iy := 0; iy < ny; iy++ {
		for ix := 0; ix < nx; ix++ {
			dx := float64(ix) + 0.5 - cx
			dy := float64(iy) + 0.5 - cy
			if dx*dx+dy*dy <= r*r {
				v.Set(ix, iy, z, val)
			}
		}
	}
}

func TestFindCenterBrightBead(t *testing.T) {
	v := volume.New(80, 80, 2)
	paintDisk(v, 1, 40, 40, 4, 100)
	f := NewFinder(v)

	for _, seed := range []geometry.Point2D{{X: 45, Y: 40}, {X: 40, Y: 35}, {X: 36.2, Y: 43.1}} {
		got, err := f.FindCenter(seed, 1, 8, Bright)
		require.NoError(t, err, "seed %v", seed)
		assert.InDelta(t, 40, got.X, 1, "seed %v", seed)
		assert.InDelta(t, 40, got.Y, 1, "seed %v", seed)
	}
}

func TestFindCenterDarkBead(t *testing.T) {
	v := volume.New(80, 80, 1)
	v.Fill(0, 120)
	paintDisk(v, 0, 40, 40, 4, 20)
	f := NewFinder(v)

	got, err := f.FindCenter(geometry.NewPoint2D(36, 43), 0, 8, Dark)
	require.NoError(t, err)
	assert.InDelta(t, 40, got.X, 1)
	assert.InDelta(t, 40, got.Y, 1)
}

func TestFindCenterFlatImage(t *testing.T) {
	v := volume.New(80, 80, 1)
	v.Fill(0, 50)
	f := NewFinder(v)

	for _, pol := range []Polarity{Bright, Dark} {
		_, err := f.FindCenter(geometry.NewPoint2D(45, 40), 0, 8, pol)
		assert.ErrorIs(t, err, ErrNotFound, pol.String())
	}
}

func TestFindCenterBadInput(t *testing.T) {
	v := volume.New(20, 20, 1)
	f := NewFinder(v)

	_, err := f.FindCenter(geometry.NewPoint2D(10, 10), 0, 0, Bright)
	assert.ErrorIs(t, err, ErrBadDiameter)

	_, err = f.FindCenter(geometry.NewPoint2D(10, 10), 3, 8, Bright)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestFindCenterNearImageEdge(t *testing.T) {
	v := volume.New(40, 40, 1)
	paintDisk(v, 0, 6, 6, 3, 200)
	f := NewFinder(v)

	got, err := f.FindCenter(geometry.NewPoint2D(2, 2), 0, 6, Bright)
	require.NoError(t, err)
	assert.InDelta(t, 6, got.X, 1)
	assert.InDelta(t, 6, got.Y, 1)
}

func TestPolarityOf(t *testing.T) {
	assert.Equal(t, Bright, PolarityOf(true))
	assert.Equal(t, Dark, PolarityOf(false))
	assert.Equal(t, "dark", Dark.String())
}
