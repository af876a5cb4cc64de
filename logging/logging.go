// Package logging builds the process logger. Structured JSON goes to a
// size-rotated file, and interactive runs can add a console writer on
// stderr. Stdout is never touched, so command output stays machine-parseable.
package logging

import (
	"fmt"
	"io"
	"os"
	"time"

	"github.com/rs/zerolog"
	"gopkg.in/natefinch/lumberjack.v2"
)

// Config selects the log level and sinks. Field names follow the
// "logging" block of the config file.
type Config struct {
	// Level is a zerolog level name ("debug", "info", ...); empty means info.
	Level string `mapstructure:"level"`
	// File enables the rotating JSON sink when non-empty.
	File       string `mapstructure:"file"`
	MaxSizeMB  int    `mapstructure:"max_size_mb"`
	MaxBackups int    `mapstructure:"max_backups"`
	MaxAgeDays int    `mapstructure:"max_age_days"`
	// Console adds a human-readable writer on stderr.
	Console bool `mapstructure:"console"`
}

// DefaultConfig logs info and above to the console only.
func DefaultConfig() Config {
	return Config{
		Level:      "info",
		MaxSizeMB:  50,
		MaxBackups: 3,
		MaxAgeDays: 28,
		Console:    true,
	}
}

// New builds a logger from the config. With no sinks enabled it returns a
// no-op logger.
func New(cfg Config) (zerolog.Logger, error) {
	level := zerolog.InfoLevel
	if cfg.Level != "" {
		parsed, err := zerolog.ParseLevel(cfg.Level)
		if err != nil {
			return zerolog.Nop(), fmt.Errorf("New: parse level %q: %w", cfg.Level, err)
		}
		level = parsed
	}

	var writers []io.Writer
	if cfg.Console {
		writers = append(writers, zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339})
	}
	if cfg.File != "" {
		writers = append(writers, &lumberjack.Logger{
			Filename:   cfg.File,
			MaxSize:    cfg.MaxSizeMB,
			MaxBackups: cfg.MaxBackups,
			MaxAge:     cfg.MaxAgeDays,
			Compress:   true,
		})
	}
	if len(writers) == 0 {
		return zerolog.Nop(), nil
	}

	logger := zerolog.New(zerolog.MultiLevelWriter(writers...)).
		Level(level).
		With().Timestamp().Logger()
	return logger, nil
}
