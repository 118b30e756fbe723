package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"
)

// UIMode selects how playback progress is shown
type UIMode string

const (
	UITrace UIMode = "trace"
	UITUI   UIMode = "tui"
	UIQuiet UIMode = "quiet"
)

// OutputConfig selects the MIDI output port
type OutputConfig struct {
	PortName string `json:"portName,omitempty"` // name, substring or index; empty picks the first port
}

// FetchConfig limits remote loads
type FetchConfig struct {
	TimeoutSeconds int   `json:"timeoutSeconds,omitempty"`
	MaxBytes       int64 `json:"maxBytes,omitempty"`

	timeout time.Duration // per-run override, not saved
}

// Timeout returns the fetch timeout as a duration
func (f FetchConfig) Timeout() time.Duration {
	if f.timeout > 0 {
		return f.timeout
	}
	return time.Duration(f.TimeoutSeconds) * time.Second
}

// SetTimeout overrides the timeout for this run. The saved value is
// rounded up to whole seconds so a short timeout never turns into none.
func (f *FetchConfig) SetTimeout(d time.Duration) {
	if d <= 0 {
		f.timeout = 0
		f.TimeoutSeconds = 0
		return
	}
	f.timeout = d
	f.TimeoutSeconds = int((d + time.Second - 1) / time.Second)
}

// UIConfig stores UI preferences
type UIConfig struct {
	Mode    UIMode `json:"mode,omitempty"`
	Palette string `json:"palette,omitempty"` // path to a .gpl file, empty for built-in
}

// Config is the main configuration structure
type Config struct {
	Output OutputConfig `json:"output,omitempty"`
	Fetch  FetchConfig  `json:"fetch,omitempty"`
	UI     UIConfig     `json:"ui,omitempty"`
	Debug  bool         `json:"debug,omitempty"`
}

// DefaultConfig returns a config with sensible defaults
func DefaultConfig() *Config {
	return &Config{
		Fetch: FetchConfig{
			TimeoutSeconds: 30,
			MaxBytes:       16 << 20,
		},
		UI: UIConfig{
			Mode: UITrace,
		},
	}
}

// ConfigDir returns the config directory path
func ConfigDir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".config", "go-midiplay"), nil
}

// ConfigPath returns the full path to config.json
func ConfigPath() (string, error) {
	dir, err := ConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "config.json"), nil
}

// Load reads the config from disk, or returns defaults if not found
func Load() (*Config, error) {
	path, err := ConfigPath()
	if err != nil {
		return DefaultConfig(), nil
	}
	return LoadFrom(path)
}

// LoadFrom reads the config at path. Fields missing from the file keep
// their defaults.
func LoadFrom(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return DefaultConfig(), nil
		}
		return nil, err
	}

	cfg := DefaultConfig()
	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("config %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config %s: %w", path, err)
	}
	return cfg, nil
}

// Validate checks field ranges
func (c *Config) Validate() error {
	switch c.UI.Mode {
	case "", UITrace, UITUI, UIQuiet:
	default:
		return fmt.Errorf("unknown ui mode %q", c.UI.Mode)
	}
	if c.Fetch.TimeoutSeconds < 0 {
		return fmt.Errorf("negative fetch timeout")
	}
	if c.Fetch.MaxBytes < 0 {
		return fmt.Errorf("negative fetch size limit")
	}
	return nil
}

// Save writes the config to disk
func (c *Config) Save() error {
	path, err := ConfigPath()
	if err != nil {
		return err
	}
	return c.SaveTo(path)
}

// SaveTo writes the config to path, creating its directory
func (c *Config) SaveTo(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return err
	}

	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return err
	}

	return os.WriteFile(path, data, 0644)
}
