// Package volume provides pixel access to an image stack: one 2D image per
// section of a tilt series.
package volume

import (
	"errors"
	"fmt"
	"image"
	"image/color"
	_ "image/jpeg"
	_ "image/png"
	"os"

	_ "golang.org/x/image/tiff"
)

// Source is read access to a stack of sections. Coordinates outside the
// stack return 0.
type Source interface {
	Value(x, y, z int) float64
	Size() (nx, ny, nz int)
}

// ErrSizeMismatch is returned when sections of a stack differ in size.
var ErrSizeMismatch = errors.New("sections differ in size")

// Volume is an in-memory float32 stack, X fastest.
type Volume struct {
	nx, ny, nz int
	data       []float32
}

// New allocates a zero-filled volume.
func New(nx, ny, nz int) *Volume {
	if nx < 0 || ny < 0 || nz < 0 {
		nx, ny, nz = 0, 0, 0
	}
	return &Volume{nx: nx, ny: ny, nz: nz, data: make([]float32, nx*ny*nz)}
}

// Size implements Source.
func (v *Volume) Size() (int, int, int) {
	return v.nx, v.ny, v.nz
}

// Value implements Source.
func (v *Volume) Value(x, y, z int) float64 {
	if !v.inside(x, y, z) {
		return 0
	}
	return float64(v.data[v.offset(x, y, z)])
}

// Set stores val at (x, y, z); out-of-range writes are ignored.
func (v *Volume) Set(x, y, z int, val float64) {
	if !v.inside(x, y, z) {
		return
	}
	v.data[v.offset(x, y, z)] = float32(val)
}

// Fill sets every pixel of section z to val.
func (v *Volume) Fill(z int, val float64) {
	if z < 0 || z >= v.nz {
		return
	}
	sec := v.data[z*v.nx*v.ny : (z+1)*v.nx*v.ny]
	for i := range sec {
		sec[i] = float32(val)
	}
}

func (v *Volume) inside(x, y, z int) bool {
	return x >= 0 && x < v.nx && y >= 0 && y < v.ny && z >= 0 && z < v.nz
}

func (v *Volume) offset(x, y, z int) int {
	return (z*v.ny+y)*v.nx + x
}

// FromImages builds a volume with one section per image. Colour images are
// reduced to luminance; 16-bit grey images keep their full range.
func FromImages(imgs []image.Image) (*Volume, error) {
	if len(imgs) == 0 {
		return New(0, 0, 0), nil
	}
	b0 := imgs[0].Bounds()
	v := New(b0.Dx(), b0.Dy(), len(imgs))
	for z, img := range imgs {
		b := img.Bounds()
		if b.Dx() != v.nx || b.Dy() != v.ny {
			return nil, fmt.Errorf("section %d is %dx%d, expected %dx%d: %w",
				z, b.Dx(), b.Dy(), v.nx, v.ny, ErrSizeMismatch)
		}
		for y := 0; y < v.ny; y++ {
			for x := 0; x < v.nx; x++ {
				v.data[v.offset(x, y, z)] = float32(intensity(img.At(b.Min.X+x, b.Min.Y+y)))
			}
		}
	}
	return v, nil
}

func intensity(c color.Color) float64 {
	switch g := c.(type) {
	case color.Gray:
		return float64(g.Y)
	case color.Gray16:
		return float64(g.Y)
	}
	r, g, b, _ := c.RGBA()
	// Fast luminance: (19595*R + 38470*G + 7471*B) >> 16
	return float64((19595*(r>>8) + 38470*(g>>8) + 7471*(b>>8)) >> 16)
}

// Load decodes one section per file (TIFF, PNG or JPEG) into a volume, in
// the order given.
func Load(paths ...string) (*Volume, error) {
	imgs := make([]image.Image, 0, len(paths))
	for _, path := range paths {
		img, err := decode(path)
		if err != nil {
			return nil, err
		}
		imgs = append(imgs, img)
	}
	return FromImages(imgs)
}

func decode(path string) (image.Image, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open image: %w", err)
	}
	defer file.Close()

	img, _, err := image.Decode(file)
	if err != nil {
		return nil, fmt.Errorf("failed to decode image %s: %w", path, err)
	}
	return img, nil
}
