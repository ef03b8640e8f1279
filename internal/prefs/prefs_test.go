package prefs

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFallbacks(t *testing.T) {
	p := Open(filepath.Join(t.TempDir(), "none.json"))

	assert.False(t, p.Has(KeyDiameter))
	assert.Equal(t, 3.0, p.Float(KeyDiameter, 3))
	assert.Equal(t, 2, p.Int(KeyMode, 2))
	assert.True(t, p.Bool(KeyAutoCenter, true))
	assert.Equal(t, 0, p.Int(KeyDiameter, 0))
}

func TestSaveAndReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "preferences.json")
	p := Open(path)
	p.SetFloat(KeyDiameter, 6.5)
	p.SetInt(KeyOverlayOffset, -3)
	p.SetInt(KeyMode, 1)
	p.SetBool(KeyLightBeads, true)
	p.SetFloat("unused", 2.5)
	require.NoError(t, p.Save())

	q := Open(path)
	assert.Equal(t, path, q.Path())
	assert.Equal(t, 6.5, q.Float(KeyDiameter, 0))
	assert.Equal(t, -3, q.Int(KeyOverlayOffset, 0))
	assert.Equal(t, 1, q.Int(KeyMode, 0))
	assert.True(t, q.Bool(KeyLightBeads, false))
	assert.Equal(t, 3, q.Int("unused", 0), "ints round half away from zero")
	assert.False(t, q.Bool(KeyDiameter, false), "wrong type gives the fallback")
}

func TestCorruptFileGivesEmptyPrefs(t *testing.T) {
	path := filepath.Join(t.TempDir(), "preferences.json")
	require.NoError(t, os.WriteFile(path, []byte("not json"), 0o644))

	p := Open(path)
	assert.False(t, p.Has(KeyMode))
	assert.Equal(t, 4, p.Int(KeyMode, 4))
}

func TestDefaultPath(t *testing.T) {
	assert.Equal(t, "preferences.json", filepath.Base(DefaultPath()))
	assert.Equal(t, "bead-fixer", filepath.Base(filepath.Dir(DefaultPath())))
}
