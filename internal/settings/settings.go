// Package settings loads the optional zpeople settings file.
package settings

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/hjson/hjson-go/v4"
)

// Settings are user preferences read from settings.hjson.
type Settings struct {
	SessionDir string `json:"session_dir,omitempty"`
	LogLevel   string `json:"log_level,omitempty"`
	LogFile    string `json:"log_file,omitempty"`
}

// NewDefault returns the settings used when no file exists.
func NewDefault() *Settings {
	return &Settings{LogLevel: "info"}
}

// DefaultPath returns the settings file location.
func DefaultPath() string {
	if d := os.Getenv("XDG_CONFIG_HOME"); d != "" {
		return filepath.Join(d, "zpeople", "settings.hjson")
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "settings.hjson"
	}
	return filepath.Join(home, ".config", "zpeople", "settings.hjson")
}

// Load reads the settings file at path over the defaults. A missing file is
// not an error. Unknown and duplicate keys are.
func Load(path string) (*Settings, error) {
	s := NewDefault()

	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return s, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read settings: %w", err)
	}

	if err := s.decode(data); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	return s, nil
}

func (s *Settings) decode(data []byte) error {
	options := hjson.DefaultDecoderOptions()
	options.DisallowUnknownFields = true
	options.DisallowDuplicateKeys = true
	if err := hjson.UnmarshalWithOptions(data, s, options); err != nil {
		return err
	}

	if _, err := s.Level(); err != nil {
		return err
	}
	return nil
}

// Encode renders the settings as hjson.
func (s *Settings) Encode() ([]byte, error) {
	options := hjson.DefaultOptions()
	options.QuoteAlways = true
	options.EmitRootBraces = false
	options.IndentBy = "  "
	return hjson.MarshalWithOptions(s, options)
}

// Level parses LogLevel. An empty level means info.
func (s *Settings) Level() (slog.Level, error) {
	var lvl slog.Level
	if strings.TrimSpace(s.LogLevel) == "" {
		return slog.LevelInfo, nil
	}
	if err := lvl.UnmarshalText([]byte(s.LogLevel)); err != nil {
		return 0, fmt.Errorf("log_level: %w", err)
	}
	return lvl, nil
}
