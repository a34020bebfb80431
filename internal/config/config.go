package config

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/BurntSushi/toml"
)

// Config holds player defaults shared by the command-line tools.
type Config struct {
	Playback Playback `toml:"playback"`
	Click    Click    `toml:"click"`
	Log      Log      `toml:"log"`
}

type Playback struct {
	HitringMs      int64  `toml:"hitring_ms"`
	PollIntervalMs int    `toml:"poll_interval_ms"`
	NoteDelimiter  string `toml:"note_delimiter"`
	RequireOrdered bool   `toml:"require_ordered"`
}

type Click struct {
	Enabled    bool    `toml:"enabled"`
	SampleRate int     `toml:"sample_rate"`
	FreqHz     float64 `toml:"frequency_hz"`
	Gain       float32 `toml:"gain"`
	DurationMs int     `toml:"duration_ms"`
}

type Log struct {
	Level string `toml:"level"` // zerolog level name
}

const defaultConfigTOML = `# museplay player settings

[playback]
hitring_ms = 500
poll_interval_ms = 1
note_delimiter = ":"
require_ordered = true

[click]
enabled = false
sample_rate = 48000
frequency_hz = 1760.0
gain = 0.4
duration_ms = 30

[log]
level = "info"
`

func Default() Config {
	return Config{
		Playback: Playback{HitringMs: 500, PollIntervalMs: 1, NoteDelimiter: ":", RequireOrdered: true},
		Click:    Click{SampleRate: 48000, FreqHz: 1760, Gain: 0.4, DurationMs: 30},
		Log:      Log{Level: "info"},
	}
}

// Dir returns the museplay config directory under the user config dir.
func Dir() (string, error) {
	dir, err := os.UserConfigDir()
	if err != nil {
		return "", fmt.Errorf("user config dir: %w", err)
	}
	return filepath.Join(dir, "museplay"), nil
}

// DefaultPath returns the path of config.toml in Dir.
func DefaultPath() (string, error) {
	dir, err := Dir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "config.toml"), nil
}

// Load reads the config at path, writing the defaults there first if the
// file does not exist. An empty path means DefaultPath. On error the
// defaults are returned alongside it.
func Load(path string) (Config, error) {
	if path == "" {
		p, err := DefaultPath()
		if err != nil {
			return Default(), err
		}
		path = p
	}
	if _, err := os.Stat(path); os.IsNotExist(err) {
		if mkErr := os.MkdirAll(filepath.Dir(path), 0755); mkErr != nil {
			return Default(), fmt.Errorf("create config dir: %w", mkErr)
		}
		if wErr := os.WriteFile(path, []byte(defaultConfigTOML), 0644); wErr != nil {
			return Default(), fmt.Errorf("write default config: %w", wErr)
		}
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return Default(), fmt.Errorf("read config: %w", err)
	}
	return Parse(data)
}

// Parse decodes TOML over the defaults, so missing keys keep default values.
func Parse(data []byte) (Config, error) {
	cfg := Default()
	if _, err := toml.NewDecoder(bytes.NewReader(data)).Decode(&cfg); err != nil {
		return Default(), fmt.Errorf("parse config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Default(), err
	}
	return cfg, nil
}

func (c Config) Validate() error {
	if c.Playback.HitringMs < 0 {
		return fmt.Errorf("playback.hitring_ms must not be negative, got %d", c.Playback.HitringMs)
	}
	if c.Playback.PollIntervalMs < 1 || c.Playback.PollIntervalMs > 20 {
		return fmt.Errorf("playback.poll_interval_ms must be between 1 and 20, got %d", c.Playback.PollIntervalMs)
	}
	if c.Playback.NoteDelimiter == "" {
		return fmt.Errorf("playback.note_delimiter must not be empty")
	}
	if c.Click.SampleRate <= 0 {
		return fmt.Errorf("click.sample_rate must be positive, got %d", c.Click.SampleRate)
	}
	if nyquist := float64(c.Click.SampleRate) / 2; c.Click.FreqHz <= 0 || c.Click.FreqHz >= nyquist {
		return fmt.Errorf("click.frequency_hz must be between 0 and %g (exclusive), got %g", nyquist, c.Click.FreqHz)
	}
	if c.Click.Gain < 0 {
		return fmt.Errorf("click.gain must not be negative, got %g", c.Click.Gain)
	}
	if c.Click.DurationMs <= 0 {
		return fmt.Errorf("click.duration_ms must be positive, got %d", c.Click.DurationMs)
	}
	return nil
}

func (p Playback) PollInterval() time.Duration {
	return time.Duration(p.PollIntervalMs) * time.Millisecond
}

func (c Click) Duration() time.Duration {
	return time.Duration(c.DurationMs) * time.Millisecond
}
