// Package session is the operator-facing surface of the correction engine.
// A Session owns one model, its image stack and the residual, gap and bead
// tools, and dispatches hotkeys and remote messages to them according to
// the selected mode.
package session

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"github.com/google/uuid"

	"bead-fixer/internal/bead"
	"bead-fixer/internal/config"
	"bead-fixer/internal/gap"
	"bead-fixer/internal/model"
	"bead-fixer/internal/prefs"
	"bead-fixer/internal/residual"
	"bead-fixer/internal/status"
	"bead-fixer/internal/volume"
	"bead-fixer/pkg/geometry"
)

// Mode selects which tools the hotkeys drive.
type Mode int

const (
	// ModeSeed places new beads, starting contours automatically.
	ModeSeed Mode = iota
	// ModeGap walks gaps in tracks and fills them.
	ModeGap
	// ModeResidual steps through large residuals of an alignment log.
	ModeResidual
)

func (m Mode) String() string {
	switch m {
	case ModeSeed:
		return "seed"
	case ModeGap:
		return "gap"
	case ModeResidual:
		return "residual"
	default:
		return fmt.Sprintf("mode(%d)", int(m))
	}
}

// ParseMode accepts a mode name or its number.
func ParseMode(s string) (Mode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "seed", "0":
		return ModeSeed, nil
	case "gap", "gaps", "1":
		return ModeGap, nil
	case "residual", "residuals", "2":
		return ModeResidual, nil
	}
	return ModeSeed, fmt.Errorf("unknown mode %q", s)
}

var (
	ErrNoImages     = errors.New("no image stack loaded")
	ErrNoContour    = errors.New("no current contour to add to")
	ErrNoLogFile    = errors.New("no alignment log open")
	ErrWrongSection = errors.New("current point is not on the current section")
)

// Settings are the operator's toggles.
type Settings struct {
	Diameter       float64
	LightBeads     bool
	AutoCenter     bool
	AutoNewContour bool
	LookOnce       bool
	Overlay        bool
	OverlayOffset  int
	ReverseOverlay bool
	Tolerance      float64
	UndoDistance   float64

	// Sections overrides the image stack's section count for gap checks.
	Sections int
}

// SettingsFrom takes the settings in cfg.
func SettingsFrom(cfg *config.Config) Settings {
	return Settings{
		Diameter:       cfg.Bead.Diameter,
		LightBeads:     cfg.Bead.Light,
		AutoCenter:     cfg.Bead.AutoCenter,
		AutoNewContour: cfg.Bead.AutoNewContour,
		LookOnce:       cfg.Residual.LookOnce,
		Overlay:        cfg.Overlay.Enabled,
		OverlayOffset:  cfg.Overlay.Offset,
		ReverseOverlay: cfg.Overlay.Reverse,
		Tolerance:      cfg.Residual.Tolerance,
		UndoDistance:   cfg.Residual.UndoDistance,
		Sections:       cfg.Gap.Sections,
	}
}

// ApplyPrefs overrides s with the values saved in p.
func (s *Settings) ApplyPrefs(p *prefs.Prefs) {
	s.AutoCenter = p.Bool(prefs.KeyAutoCenter, s.AutoCenter)
	s.Diameter = p.Float(prefs.KeyDiameter, s.Diameter)
	s.LightBeads = p.Bool(prefs.KeyLightBeads, s.LightBeads)
	s.OverlayOffset = p.Int(prefs.KeyOverlayOffset, s.OverlayOffset)
	s.ReverseOverlay = p.Bool(prefs.KeyReverseOverlay, s.ReverseOverlay)
	s.AutoNewContour = p.Bool(prefs.KeyAutoNewContour, s.AutoNewContour)
	s.LookOnce = p.Bool(prefs.KeyLookOnce, s.LookOnce)
}

func (s Settings) savePrefs(p *prefs.Prefs) {
	p.SetBool(prefs.KeyAutoCenter, s.AutoCenter)
	p.SetFloat(prefs.KeyDiameter, s.Diameter)
	p.SetBool(prefs.KeyLightBeads, s.LightBeads)
	p.SetInt(prefs.KeyOverlayOffset, s.OverlayOffset)
	p.SetBool(prefs.KeyReverseOverlay, s.ReverseOverlay)
	p.SetBool(prefs.KeyAutoNewContour, s.AutoNewContour)
	p.SetBool(prefs.KeyLookOnce, s.LookOnce)
}

// Options configure a new Session.
type Options struct {
	Model    *model.Model
	Images   volume.Source // may be nil; centering is then unavailable
	Sink     status.Sink
	Logger   *slog.Logger
	Prefs    *prefs.Prefs // saved on Close when set
	Settings Settings
	Mode     Mode
}

// Session is one correction session. Its methods are safe to call from the
// goroutine running Watch and the one handling operator input.
type Session struct {
	mu sync.Mutex

	id     string
	model  *model.Model
	images volume.Source
	sink   status.Sink
	logger *slog.Logger
	prefs  *prefs.Prefs

	mode     Mode
	settings Settings
	section  int
	logPath  string
	marker   []geometry.Point3D

	nav    *residual.Navigator
	mover  *residual.Mover
	gaps   *gap.Finder
	cursor gap.Cursor
	beads  *bead.Finder
}

// New starts a session on opts.Model.
func New(opts Options) *Session {
	m := opts.Model
	if m == nil {
		m = model.New()
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	id := uuid.NewString()
	logger = logger.With("session", id)

	sink := opts.Sink
	if sink == nil {
		sink = status.NewLogSink(logger)
	}

	s := &Session{
		id:       id,
		model:    m,
		images:   opts.Images,
		sink:     sink,
		logger:   logger,
		prefs:    opts.Prefs,
		settings: opts.Settings,
	}
	s.setMode(opts.Mode)
	if s.settings.Diameter <= 0 {
		s.settings.Diameter = config.Default().Bead.Diameter
	}

	s.nav = residual.NewNavigator(m, sink)
	s.nav.SetLookOnce(s.settings.LookOnce)
	s.nav.SetTolerance(s.settings.Tolerance)
	s.mover = residual.NewMover(s.nav)
	s.mover.SetUndoDistance(s.settings.UndoDistance)
	s.gaps = gap.NewFinder(m, sink, s.sections())
	if s.images != nil {
		s.beads = bead.NewFinder(s.images)
	}

	logger.Debug("session started", "mode", s.mode, "diameter", s.settings.Diameter)
	return s
}

func (s *Session) sections() int {
	if s.settings.Sections > 0 {
		return s.settings.Sections
	}
	if s.images != nil {
		_, _, nz := s.images.Size()
		return nz
	}
	return 0
}

// ID returns the session's unique identifier.
func (s *Session) ID() string { return s.id }

// Model returns the model being corrected.
func (s *Session) Model() *model.Model { return s.model }

// Mode returns the current mode.
func (s *Session) Mode() Mode {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.mode
}

// SetMode switches mode. The overlay only shows in seed mode.
func (s *Session) SetMode(m Mode) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.setMode(m)
}

func (s *Session) setMode(m Mode) {
	if m < ModeSeed {
		m = ModeSeed
	}
	if m > ModeResidual {
		m = ModeResidual
	}
	if m != s.mode {
		s.logger.Debug("mode changed", "from", s.mode, "to", m)
	}
	s.mode = m
}

// Settings returns a copy of the current settings.
func (s *Session) Settings() Settings {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.settings
}

// UpdateSettings applies fn to the settings and pushes the result to the
// tools.
func (s *Session) UpdateSettings(fn func(*Settings)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	fn(&s.settings)
	s.applySettings()
}

func (s *Session) applySettings() {
	s.nav.SetLookOnce(s.settings.LookOnce)
	s.nav.SetTolerance(s.settings.Tolerance)
	s.mover.SetUndoDistance(s.settings.UndoDistance)
	s.gaps.SetSections(s.sections())
}

// Section returns the section the operator is viewing.
func (s *Session) Section() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.section
}

// SetSection changes the section the operator is viewing.
func (s *Session) SetSection(z int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.section = z
}

// Marker returns the arrow currently drawn over the image, if any.
func (s *Session) Marker() []geometry.Point3D {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]geometry.Point3D(nil), s.marker...)
}

// Overlay reports whether the overlay is showing and the section it shows.
func (s *Session) Overlay() (on bool, section int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	on = s.settings.Overlay && s.mode == ModeSeed
	return on, s.section + s.settings.OverlayOffset
}

// ToggleOverlay turns the overlay on or off.
func (s *Session) ToggleOverlay() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.settings.Overlay = !s.settings.Overlay
	return s.settings.Overlay
}

// Close saves the settings to the preferences, if the session has them.
func (s *Session) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.prefs == nil {
		return nil
	}
	s.settings.savePrefs(s.prefs)
	s.prefs.SetInt(prefs.KeyMode, int(s.mode))
	if err := s.prefs.Save(); err != nil {
		return fmt.Errorf("close session: %w", err)
	}
	s.logger.Debug("preferences saved", "path", s.prefs.Path())
	return nil
}
