// Package cvsource reads image stacks through OpenCV. It satisfies
// volume.Source and handles the formats OpenCV decodes, which is a wider set
// than the pure Go decoders in package volume.
package cvsource

import (
	"fmt"

	"bead-fixer/internal/volume"

	"gocv.io/x/gocv"
)

// Stack holds one 8-bit greyscale Mat per section. Call Close when done.
type Stack struct {
	sections []gocv.Mat
	nx, ny   int
}

var _ volume.Source = (*Stack)(nil)

// Load reads each path as a greyscale section.
func Load(paths ...string) (*Stack, error) {
	mats := make([]gocv.Mat, 0, len(paths))
	for _, path := range paths {
		m := gocv.IMRead(path, gocv.IMReadGrayScale)
		if m.Empty() {
			m.Close()
			closeAll(mats)
			return nil, fmt.Errorf("failed to read image %s", path)
		}
		mats = append(mats, m)
	}
	s, err := FromMats(mats)
	if err != nil {
		closeAll(mats)
		return nil, err
	}
	return s, nil
}

// FromMats wraps existing single-channel 8-bit Mats; the Stack takes
// ownership of them.
func FromMats(mats []gocv.Mat) (*Stack, error) {
	s := &Stack{sections: mats}
	for z, m := range mats {
		if m.Channels() != 1 {
			return nil, fmt.Errorf("section %d has %d channels, want 1", z, m.Channels())
		}
		if z == 0 {
			s.nx, s.ny = m.Cols(), m.Rows()
			continue
		}
		if m.Cols() != s.nx || m.Rows() != s.ny {
			return nil, fmt.Errorf("section %d is %dx%d, expected %dx%d: %w",
				z, m.Cols(), m.Rows(), s.nx, s.ny, volume.ErrSizeMismatch)
		}
	}
	return s, nil
}

// Size implements volume.Source.
func (s *Stack) Size() (int, int, int) {
	return s.nx, s.ny, len(s.sections)
}

// Value implements volume.Source.
func (s *Stack) Value(x, y, z int) float64 {
	if z < 0 || z >= len(s.sections) || x < 0 || x >= s.nx || y < 0 || y >= s.ny {
		return 0
	}
	return float64(s.sections[z].GetUCharAt(y, x))
}

// Close releases the Mats.
func (s *Stack) Close() error {
	closeAll(s.sections)
	s.sections = nil
	return nil
}

func closeAll(mats []gocv.Mat) {
	for _, m := range mats {
		m.Close()
	}
}
