package cvsource

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gocv.io/x/gocv"
)

func TestStackValue(t *testing.T) {
	m := gocv.Zeros(4, 6, gocv.MatTypeCV8U)
	m.SetUCharAt(2, 5, 200)

	s, err := FromMats([]gocv.Mat{m})
	require.NoError(t, err)
	defer s.Close()

	nx, ny, nz := s.Size()
	assert.Equal(t, []int{6, 4, 1}, []int{nx, ny, nz})
	assert.Equal(t, 200.0, s.Value(5, 2, 0))
	assert.Equal(t, 0.0, s.Value(6, 2, 0))
	assert.Equal(t, 0.0, s.Value(5, 2, 1))
}

func TestStackSizeMismatch(t *testing.T) {
	a := gocv.NewMatWithSize(4, 4, gocv.MatTypeCV8U)
	b := gocv.NewMatWithSize(5, 4, gocv.MatTypeCV8U)
	defer a.Close()
	defer b.Close()

	_, err := FromMats([]gocv.Mat{a, b})
	assert.Error(t, err)
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load("does-not-exist.tif")
	assert.Error(t, err)
}
