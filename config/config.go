// Package config loads multidraw settings from TOML files and the
// environment.
//
// A settings file looks like:
//
//	# 0 auto, 1 indirect, 2 base vertex, 3 multi-draw indirect,
//	# 4 draw elements, 5 compute. Names are accepted too.
//	multidraw_mode = "auto"
//	log_level = "info"
//
// MULTIDRAW_MODE and MULTIDRAW_LOG_LEVEL override the file.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/pelletier/go-toml/v2"

	"github.com/gogpu/multidraw"
	"github.com/gogpu/multidraw/glcore"
)

// Environment variables that override file settings.
const (
	EnvMode     = "MULTIDRAW_MODE"
	EnvLogLevel = "MULTIDRAW_LOG_LEVEL"
)

// ErrInvalid is returned for settings that do not parse.
var ErrInvalid = errors.New("config: invalid setting")

// Settings are the user-facing multidraw settings.
type Settings struct {
	// MultidrawMode is a strategy name or number. Empty means auto.
	MultidrawMode string `toml:"multidraw_mode"`

	// LogLevel is debug, info, warn or error. Empty means warn.
	LogLevel string `toml:"log_level"`
}

// Default returns settings selecting the strategy from capabilities and
// logging warnings and errors.
func Default() Settings {
	return Settings{MultidrawMode: "auto", LogLevel: "warn"}
}

// Load reads path, applies environment overrides and validates the result.
// A missing file is not an error: defaults and the environment apply.
func Load(path string) (Settings, error) {
	s := Default()
	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case errors.Is(err, os.ErrNotExist):
		case err != nil:
			return s, fmt.Errorf("config: read %s: %w", path, err)
		default:
			if s, err = Parse(data); err != nil {
				return s, fmt.Errorf("config: %s: %w", path, err)
			}
		}
	}
	s.applyEnv()
	return s, s.Validate()
}

// Parse decodes TOML settings over the defaults. Unknown keys are errors.
func Parse(data []byte) (Settings, error) {
	s := Default()
	dec := toml.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&s); err != nil {
		var derr *toml.DecodeError
		if errors.As(err, &derr) {
			row, col := derr.Position()
			return s, fmt.Errorf("%w: line %d column %d: %s", ErrInvalid, row, col, derr.Error())
		}
		return s, fmt.Errorf("%w: %w", ErrInvalid, err)
	}
	return s, nil
}

func (s *Settings) applyEnv() {
	if v, ok := os.LookupEnv(EnvMode); ok {
		s.MultidrawMode = v
	}
	if v, ok := os.LookupEnv(EnvLogLevel); ok {
		s.LogLevel = v
	}
}

// Validate checks every setting parses.
func (s Settings) Validate() error {
	if _, err := multidraw.ParseStrategy(s.MultidrawMode); err != nil {
		return fmt.Errorf("%w: multidraw_mode: %w", ErrInvalid, err)
	}
	if _, err := s.Level(); err != nil {
		return err
	}
	return nil
}

// Strategy returns the configured strategy, resolving auto from caps.
// Invalid modes resolve like auto.
func (s Settings) Strategy(caps glcore.Capabilities) multidraw.Strategy {
	st, err := multidraw.ParseStrategy(s.MultidrawMode)
	if err != nil || st == multidraw.StrategyAuto {
		return multidraw.ResolveAuto(caps)
	}
	return st
}

// Level returns the configured log level.
func (s Settings) Level() (slog.Level, error) {
	switch strings.ToLower(strings.TrimSpace(s.LogLevel)) {
	case "debug":
		return slog.LevelDebug, nil
	case "info":
		return slog.LevelInfo, nil
	case "warn", "warning", "":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return slog.LevelWarn, fmt.Errorf("%w: log_level %q", ErrInvalid, s.LogLevel)
	}
}

// Marshal encodes s as TOML.
func (s Settings) Marshal() ([]byte, error) {
	return toml.Marshal(s)
}
