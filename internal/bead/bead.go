// Package bead locates the center of a gold bead near a seed position by
// an intensity-weighted centroid search in expanding rings.
package bead

import (
	"errors"
	"fmt"
	"math"

	"gonum.org/v1/gonum/stat"

	"bead-fixer/internal/volume"
	"bead-fixer/pkg/geometry"
)

// MaxSearch bounds the search distance from the seed, in pixels.
const MaxSearch = 50

const (
	edgeWidth   = 1.5
	buffer      = 1.5
	fartherCrit = 2.0
	noResult    = -1e30
)

var (
	// ErrNotFound is returned when no pixel in the search area gave a
	// centroid of the requested polarity.
	ErrNotFound = errors.New("bead center not found")

	ErrBadDiameter = errors.New("bead diameter must be positive")
)

// Polarity says whether beads are brighter or darker than background.
type Polarity int

const (
	Dark   Polarity = -1
	Bright Polarity = 1
)

func (p Polarity) String() string {
	if p == Bright {
		return "bright"
	}
	return "dark"
}

// PolarityOf returns Bright when light is set.
func PolarityOf(light bool) Polarity {
	if light {
		return Bright
	}
	return Dark
}

// Finder searches one image volume.
type Finder struct {
	src volume.Source

	edge []float64
}

// NewFinder returns a finder reading pixels from src.
func NewFinder(src volume.Source) *Finder {
	return &Finder{src: src}
}

// FindCenter returns the bead center nearest seed on section z for beads of
// the given diameter. Rings one radius wide are searched outward from the
// seed; in each ring the pixel whose surrounding disk has the largest
// integral above its local edge level wins, and a ring's winner replaces
// the overall best if it is more than twice as strong, or stronger and
// within one radius of it.
func (f *Finder) FindCenter(seed geometry.Point2D, z int, diameter float64, pol Polarity) (geometry.Point2D, error) {
	if diameter <= 0 {
		return geometry.Point2D{}, ErrBadDiameter
	}
	nx, ny, nz := f.src.Size()
	if z < 0 || z >= nz {
		return geometry.Point2D{}, fmt.Errorf("section %d of %d: %w", z, nz, ErrNotFound)
	}
	sign := -1.0
	if pol == Bright {
		sign = 1
	}

	xcen := int(math.Floor(seed.X + 0.5))
	ycen := int(math.Floor(seed.Y + 0.5))
	radius := diameter / 2
	search := int(math.Max(6, math.Min(MaxSearch, 3*radius)))

	sumrad := radius + buffer
	look := int(2*(sumrad+edgeWidth) + 2)
	radCrit := sumrad * sumrad
	edgeCrit := (sumrad + edgeWidth) * (sumrad + edgeWidth)

	var grand geometry.Point2D
	grandMax := noResult
	numRing := int(float64(search)/radius + 1)

	for ring := 0; ring < numRing; ring++ {
		inner := float64(ring) * radius
		outer := float64(ring+1) * radius
		innerCrit, outerCrit := inner*inner, outer*outer

		ringMax := noResult
		var ringAt geometry.Point2D
		for x := xcen - search; x <= xcen+search; x++ {
			if x < 0 || x >= nx {
				continue
			}
			for y := ycen - search; y <= ycen+search; y++ {
				if y < 0 || y >= ny {
					continue
				}
				dx, dy := float64(x-xcen), float64(y-ycen)
				rsq := dx*dx + dy*dy
				if rsq < innerCrit || rsq >= outerCrit {
					continue
				}

				x0, x1 := max(0, x-look), min(nx-1, x+look)
				y0, y1 := max(0, y-look), min(ny-1, y+look)

				f.edge = f.edge[:0]
				for iy := y0; iy <= y1; iy++ {
					for ix := x0; ix <= x1; ix++ {
						d := pixelDistSq(ix, iy, x, y)
						if d > radCrit && d <= edgeCrit {
							f.edge = append(f.edge, f.src.Value(ix, iy, z))
						}
					}
				}
				if len(f.edge) == 0 {
					continue
				}
				edge := stat.Mean(f.edge, nil)

				var xsum, ysum, wsum, total float64
				for iy := y0; iy <= y1; iy++ {
					for ix := x0; ix <= x1; ix++ {
						if pixelDistSq(ix, iy, x, y) > radCrit {
							continue
						}
						v := f.src.Value(ix, iy, z) - edge
						total += v
						if sign*v > 0 {
							xsum += float64(ix) * v
							ysum += float64(iy) * v
							wsum += v
						}
					}
				}

				if wsum != 0 && total*sign > ringMax {
					ringMax = total * sign
					ringAt = geometry.NewPoint2D(xsum/wsum+0.5, ysum/wsum+0.5)
				}
			}
		}

		if ringMax <= noResult {
			continue
		}
		if ringMax > fartherCrit*grandMax ||
			(ringMax > grandMax && ringAt.DistanceSq(grand) < radius*radius) {
			grand = ringAt
			grandMax = ringMax
		}
	}

	if grandMax < -1e29 {
		return geometry.Point2D{}, ErrNotFound
	}
	return grand, nil
}

// pixelDistSq is the squared distance from the center of pixel (ix, iy) to
// the corner point (x, y).
func pixelDistSq(ix, iy, x, y int) float64 {
	dx := float64(ix) + 0.5 - float64(x)
	dy := float64(iy) + 0.5 - float64(y)
	return dx*dx + dy*dy
}
