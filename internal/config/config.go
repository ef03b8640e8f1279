// Package config loads bead-fixer settings from defaults, an optional YAML
// file and BEADFIX_ environment variables.
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"math"
	"os"
	"strings"
	"sync"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

// EnvPrefix is the prefix of environment overrides, e.g.
// BEADFIX_BEAD_DIAMETER.
const EnvPrefix = "BEADFIX"

// Config is the full set of settings.
type Config struct {
	Mode     string         `mapstructure:"mode" yaml:"mode"`
	Bead     BeadConfig     `mapstructure:"bead" yaml:"bead"`
	Residual ResidualConfig `mapstructure:"residual" yaml:"residual"`
	Gap      GapConfig      `mapstructure:"gap" yaml:"gap"`
	Overlay  OverlayConfig  `mapstructure:"overlay" yaml:"overlay"`
	Log      LogConfig      `mapstructure:"log" yaml:"log"`
}

// BeadConfig controls centering and seeding.
type BeadConfig struct {
	Diameter       float64 `mapstructure:"diameter" yaml:"diameter"`
	Light          bool    `mapstructure:"light" yaml:"light"`
	AutoCenter     bool    `mapstructure:"auto_center" yaml:"auto_center"`
	AutoNewContour bool    `mapstructure:"auto_new_contour" yaml:"auto_new_contour"`
}

// ResidualConfig controls residual navigation and moves.
type ResidualConfig struct {
	LookOnce     bool    `mapstructure:"look_once" yaml:"look_once"`
	Tolerance    float64 `mapstructure:"tolerance" yaml:"tolerance"`
	UndoDistance float64 `mapstructure:"undo_distance" yaml:"undo_distance"`
}

// GapConfig controls the gap search.
type GapConfig struct {
	// Sections overrides the section count of the image stack; 0 uses the
	// stack.
	Sections int `mapstructure:"sections" yaml:"sections"`
}

// OverlayConfig controls the overlay of another section while fixing.
type OverlayConfig struct {
	Enabled bool `mapstructure:"enabled" yaml:"enabled"`
	Offset  int  `mapstructure:"offset" yaml:"offset"`
	Reverse bool `mapstructure:"reverse" yaml:"reverse"`
}

// LogConfig controls structured logging.
type LogConfig struct {
	Level  string `mapstructure:"level" yaml:"level"`
	Format string `mapstructure:"format" yaml:"format"`
}

// Default returns the built-in settings.
func Default() *Config {
	return &Config{
		Mode: "residual",
		Bead: BeadConfig{
			Diameter:       3,
			Light:          false,
			AutoCenter:     true,
			AutoNewContour: true,
		},
		Residual: ResidualConfig{
			LookOnce:     true,
			Tolerance:    15,
			UndoDistance: 10,
		},
		Overlay: OverlayConfig{Offset: 4},
		Log:     LogConfig{Level: "info", Format: "text"},
	}
}

// Level returns the slog level named by Log.Level, defaulting to info.
func (c *Config) Level() slog.Level {
	var l slog.Level
	if err := l.UnmarshalText([]byte(c.Log.Level)); err != nil {
		return slog.LevelInfo
	}
	return l
}

// Validate checks values the engine cannot work with.
func (c *Config) Validate() error {
	var errs []error
	if !finitePositive(c.Bead.Diameter) {
		errs = append(errs, fmt.Errorf("bead.diameter must be positive, got %g", c.Bead.Diameter))
	}
	switch strings.ToLower(c.Mode) {
	case "seed", "gap", "residual", "residuals":
	default:
		errs = append(errs, fmt.Errorf("mode must be seed, gap or residual, got %q", c.Mode))
	}
	if !finitePositive(c.Residual.Tolerance) {
		errs = append(errs, fmt.Errorf("residual.tolerance must be positive, got %g", c.Residual.Tolerance))
	}
	if math.IsNaN(c.Residual.UndoDistance) || math.IsInf(c.Residual.UndoDistance, 0) {
		errs = append(errs, fmt.Errorf("residual.undo_distance must be finite, got %g", c.Residual.UndoDistance))
	}
	return errors.Join(errs...)
}

func finitePositive(v float64) bool {
	return v > 0 && !math.IsInf(v, 1)
}

// Manager loads configuration and reloads it when the file changes.
type Manager struct {
	v *viper.Viper

	mu        sync.RWMutex
	config    *Config
	callbacks []func(*Config)
}

// NewManager loads defaults, cfgFile (or config.yaml in the working
// directory or $HOME/.bead-fixer when cfgFile is empty) and environment
// overrides.
func NewManager(cfgFile string) (*Manager, error) {
	cm := &Manager{v: viper.New()}
	if err := cm.initViper(cfgFile); err != nil {
		return nil, err
	}
	cfg, err := cm.load()
	if err != nil {
		return nil, err
	}
	cm.config = cfg
	return cm, nil
}

func (cm *Manager) initViper(cfgFile string) error {
	v := cm.v
	d := Default()
	v.SetDefault("mode", d.Mode)
	v.SetDefault("bead.diameter", d.Bead.Diameter)
	v.SetDefault("bead.light", d.Bead.Light)
	v.SetDefault("bead.auto_center", d.Bead.AutoCenter)
	v.SetDefault("bead.auto_new_contour", d.Bead.AutoNewContour)
	v.SetDefault("residual.look_once", d.Residual.LookOnce)
	v.SetDefault("residual.tolerance", d.Residual.Tolerance)
	v.SetDefault("residual.undo_distance", d.Residual.UndoDistance)
	v.SetDefault("gap.sections", d.Gap.Sections)
	v.SetDefault("overlay.enabled", d.Overlay.Enabled)
	v.SetDefault("overlay.offset", d.Overlay.Offset)
	v.SetDefault("overlay.reverse", d.Overlay.Reverse)
	v.SetDefault("log.level", d.Log.Level)
	v.SetDefault("log.format", d.Log.Format)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("$HOME/.bead-fixer")
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return fmt.Errorf("error reading config file: %w", err)
		}
	}
	return nil
}

func (cm *Manager) load() (*Config, error) {
	var cfg Config
	if err := cm.v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Get returns the current configuration.
func (cm *Manager) Get() *Config {
	cm.mu.RLock()
	defer cm.mu.RUnlock()
	return cm.config
}

// File returns the config file in use, or "" when running on defaults.
func (cm *Manager) File() string {
	return cm.v.ConfigFileUsed()
}

// OnChange registers a callback for config changes.
func (cm *Manager) OnChange(fn func(*Config)) {
	cm.mu.Lock()
	defer cm.mu.Unlock()
	cm.callbacks = append(cm.callbacks, fn)
}

// WatchConfig reloads the configuration when its file changes. Invalid
// edits are logged and the previous configuration is kept.
func (cm *Manager) WatchConfig(logger *slog.Logger) {
	cm.v.OnConfigChange(func(e fsnotify.Event) {
		cfg, err := cm.load()
		if err != nil {
			if logger != nil {
				logger.Warn("config reload failed", "file", e.Name, "error", err)
			}
			return
		}

		cm.mu.Lock()
		cm.config = cfg
		callbacks := make([]func(*Config), len(cm.callbacks))
		copy(callbacks, cm.callbacks)
		cm.mu.Unlock()

		for _, fn := range callbacks {
			fn(cfg)
		}
	})
	cm.v.WatchConfig()
}

// WriteDefault writes the default configuration to path.
func WriteDefault(path string) error {
	data, err := yaml.Marshal(Default())
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}
	header := []byte("# bead-fixer configuration\n# Any key can be overridden with BEADFIX_<SECTION>_<KEY>, e.g. BEADFIX_BEAD_DIAMETER=6\n\n")
	return os.WriteFile(path, append(header, data...), 0o644)
}
