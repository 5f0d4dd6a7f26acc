// Package config loads videoseq settings from a TOML file with environment
// overrides.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"

	"github.com/pelletier/go-toml/v2"
)

const envPrefix = "VIDEOSEQ_"

type Config struct {
	// ClipsDir holds the media files offered as clips.
	ClipsDir string `toml:"clips_dir"`
	// Listen is the address of the clip server.
	Listen string `toml:"listen"`
	// ServerURL points imports at a remote clip server. When empty, clips
	// are listed straight from ClipsDir.
	ServerURL   string `toml:"server_url"`
	ExportDir   string `toml:"export_dir"`
	ProjectsDir string `toml:"projects_dir"`
	LogLevel    string `toml:"log_level"`
	// LogFile receives logs while the TUI owns the terminal.
	LogFile   string `toml:"log_file"`
	Metronome bool   `toml:"metronome"`
	MIDIPort  string `toml:"midi_port"`
}

func Default() Config {
	home, err := os.UserHomeDir()
	if err != nil {
		home = "."
	}
	return Config{
		ClipsDir:    "./clips",
		Listen:      "127.0.0.1:5173",
		ExportDir:   ".",
		ProjectsDir: home,
		LogLevel:    "info",
		LogFile:     filepath.Join(os.TempDir(), "videoseq.log"),
	}
}

// DefaultPath is where Load looks when no path is given.
func DefaultPath() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		return ""
	}
	return filepath.Join(dir, "videoseq", "config.toml")
}

// Load reads path on top of the defaults and applies VIDEOSEQ_* variables.
// An empty path falls back to DefaultPath, which may be absent.
func Load(path string) (Config, error) {
	cfg := Default()

	explicit := path != ""
	if !explicit {
		path = DefaultPath()
	}
	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case err == nil:
			if err := toml.Unmarshal(data, &cfg); err != nil {
				return Config{}, fmt.Errorf("error parsing %s: %w", path, err)
			}
		case errors.Is(err, fs.ErrNotExist) && !explicit:
		default:
			return Config{}, fmt.Errorf("error reading %s: %w", path, err)
		}
	}

	if err := cfg.applyEnv(os.LookupEnv); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c *Config) applyEnv(lookup func(string) (string, bool)) error {
	strs := map[string]*string{
		"CLIPS_DIR":    &c.ClipsDir,
		"LISTEN":       &c.Listen,
		"SERVER_URL":   &c.ServerURL,
		"EXPORT_DIR":   &c.ExportDir,
		"PROJECTS_DIR": &c.ProjectsDir,
		"LOG_LEVEL":    &c.LogLevel,
		"LOG_FILE":     &c.LogFile,
		"MIDI_PORT":    &c.MIDIPort,
	}
	for key, dst := range strs {
		if v, ok := lookup(envPrefix + key); ok {
			*dst = v
		}
	}
	if v, ok := lookup(envPrefix + "METRONOME"); ok {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("invalid %sMETRONOME %q: %w", envPrefix, v, err)
		}
		c.Metronome = b
	}
	return nil
}

// Write saves the config as TOML, creating the directory if needed.
func Write(path string, cfg Config) error {
	data, err := toml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("error encoding config: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0750); err != nil {
		return fmt.Errorf("error creating config directory: %w", err)
	}
	return os.WriteFile(path, data, 0600)
}
