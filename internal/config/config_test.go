package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestParseOverridesDefaults(t *testing.T) {
	cfg, err := Parse([]byte(`
[playback]
hitring_ms = 250

[click]
enabled = true
`))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if cfg.Playback.HitringMs != 250 {
		t.Errorf("hitring_ms = %d, want 250", cfg.Playback.HitringMs)
	}
	if !cfg.Click.Enabled {
		t.Error("click.enabled should be true")
	}
	if cfg.Playback.PollIntervalMs != 1 {
		t.Errorf("poll_interval_ms = %d, want default 1", cfg.Playback.PollIntervalMs)
	}
	if cfg.Click.SampleRate != 48000 {
		t.Errorf("sample_rate = %d, want default 48000", cfg.Click.SampleRate)
	}
	if got := cfg.Playback.PollInterval(); got != time.Millisecond {
		t.Errorf("poll interval = %v, want 1ms", got)
	}
}

func TestParseRejectsInvalid(t *testing.T) {
	cases := map[string]string{
		"negative hitring": "[playback]\nhitring_ms = -1\n",
		"slow poll":        "[playback]\npoll_interval_ms = 100\n",
		"empty delimiter":  "[playback]\nnote_delimiter = \"\"\n",
		"zero frequency":   "[click]\nfrequency_hz = 0.0\n",
		"above nyquist":    "[click]\nsample_rate = 8000\nfrequency_hz = 4000.0\n",
		"negative gain":    "[click]\ngain = -0.5\n",
		"bad toml":         "[playback\n",
	}
	for name, data := range cases {
		t.Run(name, func(t *testing.T) {
			cfg, err := Parse([]byte(data))
			if err == nil {
				t.Fatalf("expected error")
			}
			if cfg != Default() {
				t.Fatalf("expected defaults on error, got %+v", cfg)
			}
		})
	}
}

func TestDefaultTOMLMatchesDefault(t *testing.T) {
	cfg, err := Parse([]byte(defaultConfigTOML))
	if err != nil {
		t.Fatalf("parse default toml: %v", err)
	}
	if cfg != Default() {
		t.Fatalf("default toml = %+v, want %+v", cfg, Default())
	}
}

func TestLoadWritesDefaultsWhenMissing(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "config.toml")
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg != Default() {
		t.Fatalf("load = %+v, want defaults", cfg)
	}
	if _, err := os.Stat(path); err != nil {
		t.Fatalf("default config not written: %v", err)
	}
}
