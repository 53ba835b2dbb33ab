// Package config manages the persisted preferences of the solfege tools.
// Settings are stored as JSON at os.UserConfigDir()/algo-solfege/config.json.
package config

import (
	"encoding/json"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/cwbudde/algo-solfege/output"
	"github.com/cwbudde/algo-solfege/tone"
)

// DefaultLocale is used when the environment names no supported language.
const DefaultLocale = "it"

// Locales lists the supported interface languages.
var Locales = []string{"it", "en", "fr", "es"}

// Config holds all persistent user preferences.
type Config struct {
	Locale     string `json:"locale"`
	Instrument string `json:"instrument"`
	Backend    string `json:"backend"`
	SampleRate int    `json:"sample_rate"`
	PresetPath string `json:"preset_path,omitempty"`
}

// Default returns a Config populated with defaults.
func Default() Config {
	return Config{
		Locale:     DetectLocale(os.Getenv("LANG")),
		Instrument: string(tone.Piano),
		Backend:    output.BackendDevice,
		SampleRate: output.DefaultSampleRate,
	}
}

// DetectLocale maps a POSIX locale string such as "fr_FR.UTF-8" to a
// supported language code.
func DetectLocale(lang string) string {
	lang = strings.ToLower(strings.TrimSpace(lang))
	if i := strings.IndexAny(lang, "_.-@"); i >= 0 {
		lang = lang[:i]
	}
	if slices.Contains(Locales, lang) {
		return lang
	}
	return DefaultLocale
}

// Path returns the absolute path to the config file.
func Path() (string, error) {
	dir, err := os.UserConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "algo-solfege", "config.json"), nil
}

// Load reads the config file. A missing or unreadable file yields the
// defaults; invalid individual values are replaced by their defaults.
func Load() Config {
	path, err := Path()
	if err != nil {
		return Default()
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return Default()
	}
	cfg := Default()
	if err := json.Unmarshal(data, &cfg); err != nil {
		return Default()
	}
	return cfg.normalize()
}

// Save writes cfg to disk, creating the directory if needed.
func Save(cfg Config) error {
	path, err := Path()
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil {
		return err
	}
	data, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o600)
}

func (c Config) normalize() Config {
	def := Default()
	if !slices.Contains(Locales, c.Locale) {
		c.Locale = def.Locale
	}
	if !tone.Instrument(c.Instrument).Valid() {
		c.Instrument = def.Instrument
	}
	switch c.Backend {
	case output.BackendDevice, output.BackendWAV, output.BackendNull:
	default:
		c.Backend = def.Backend
	}
	if c.SampleRate <= 0 {
		c.SampleRate = def.SampleRate
	}
	return c
}
