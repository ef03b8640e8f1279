// Package prefs provides JSON-based user preferences: the bead settings and
// toggles the operator last used, restored when a session starts.
package prefs

import (
	"encoding/json"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"sync"
)

const (
	appDir    = "bead-fixer"
	prefsFile = "preferences.json"
)

// Keys saved by a session on close.
const (
	KeyAutoCenter     = "auto_center"
	KeyDiameter       = "diameter"
	KeyLightBeads     = "light_beads"
	KeyOverlayOffset  = "overlay_offset"
	KeyMode           = "mode"
	KeyReverseOverlay = "reverse_overlay"
	KeyAutoNewContour = "auto_new_contour"
	KeyLookOnce       = "look_once"
)

// Prefs is a JSON object of named settings. It is safe for concurrent use.
type Prefs struct {
	mu     sync.RWMutex
	values map[string]any
	path   string
}

// DefaultPath returns the preferences file under the user config
// directory.
func DefaultPath() string {
	configDir, err := os.UserConfigDir()
	if err != nil {
		configDir = filepath.Join(os.Getenv("HOME"), ".config")
	}
	return filepath.Join(configDir, appDir, prefsFile)
}

// Load reads preferences from DefaultPath.
func Load() *Prefs {
	return Open(DefaultPath())
}

// Open reads preferences from path. A missing or unreadable file gives
// empty preferences that will be written to path on Save.
func Open(path string) *Prefs {
	p := &Prefs{
		values: make(map[string]any),
		path:   path,
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return p
	}
	_ = json.Unmarshal(data, &p.values)
	return p
}

// Path returns the file Save writes to.
func (p *Prefs) Path() string { return p.path }

// Save writes preferences to disk.
func (p *Prefs) Save() error {
	p.mu.RLock()
	data, err := json.MarshalIndent(p.values, "", "  ")
	p.mu.RUnlock()
	if err != nil {
		return err
	}

	if err := os.MkdirAll(filepath.Dir(p.path), 0o755); err != nil {
		return fmt.Errorf("save preferences: %w", err)
	}
	return os.WriteFile(p.path, data, 0o644)
}

// Has reports whether key is set.
func (p *Prefs) Has(key string) bool {
	p.mu.RLock()
	defer p.mu.RUnlock()
	_, ok := p.values[key]
	return ok
}

// lookup returns the value under key if it holds a T. Numbers are always
// held as float64, as they come back from JSON.
func lookup[T any](p *Prefs, key string) (T, bool) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	v, ok := p.values[key].(T)
	return v, ok
}

// Float returns a number preference, or fallback if not set.
func (p *Prefs) Float(key string, fallback float64) float64 {
	if v, ok := lookup[float64](p, key); ok {
		return v
	}
	return fallback
}

// SetFloat stores a number preference.
func (p *Prefs) SetFloat(key string, val float64) {
	p.set(key, val)
}

// Int returns a number preference rounded to an int, or fallback if not
// set.
func (p *Prefs) Int(key string, fallback int) int {
	if v, ok := lookup[float64](p, key); ok {
		return int(math.Round(v))
	}
	return fallback
}

// SetInt stores an integer preference.
func (p *Prefs) SetInt(key string, val int) {
	p.set(key, float64(val))
}

// Bool returns a bool preference, or fallback if not set.
func (p *Prefs) Bool(key string, fallback bool) bool {
	if v, ok := lookup[bool](p, key); ok {
		return v
	}
	return fallback
}

// SetBool stores a bool preference.
func (p *Prefs) SetBool(key string, val bool) {
	p.set(key, val)
}

func (p *Prefs) set(key string, val any) {
	p.mu.Lock()
	p.values[key] = val
	p.mu.Unlock()
}
