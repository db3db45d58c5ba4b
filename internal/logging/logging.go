// Package logging builds the zap loggers used by the service and the CLI.
package logging

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/natefinch/lumberjack.v2"
)

// Config controls log level, encoding and outputs.
type Config struct {
	// Level is one of debug, info, warn, error.
	Level string `toml:"level" valid:"in(debug|info|warn|error)"`
	// Format is "json" or "console".
	Format string `toml:"format" valid:"in(json|console)"`
	// Output is "stdout", "stderr" or empty to disable console output.
	Output string `toml:"output" valid:"in(stdout|stderr)"`

	// File, when set, receives JSON logs rotated by size.
	File       string `toml:"file"`
	MaxSizeMB  int    `toml:"max_size_mb"`
	MaxBackups int    `toml:"max_backups"`
	MaxAgeDays int    `toml:"max_age_days"`
	Compress   bool   `toml:"compress"`

	Caller bool `toml:"caller"`
}

// DefaultConfig logs info and above as JSON to stderr.
func DefaultConfig() Config {
	return Config{
		Level:      "info",
		Format:     "json",
		Output:     "stderr",
		MaxSizeMB:  100,
		MaxBackups: 5,
		MaxAgeDays: 30,
		Compress:   true,
	}
}

// ParseLevel converts a level name to a zap level. Empty means info.
func ParseLevel(level string) (zapcore.Level, error) {
	if strings.TrimSpace(level) == "" {
		return zapcore.InfoLevel, nil
	}
	var l zapcore.Level
	if err := l.UnmarshalText([]byte(strings.ToLower(strings.TrimSpace(level)))); err != nil {
		return l, fmt.Errorf("invalid log level %q: %w", level, err)
	}
	return l, nil
}

func encoderConfig() zapcore.EncoderConfig {
	cfg := zap.NewProductionEncoderConfig()
	cfg.TimeKey = "ts"
	cfg.EncodeTime = zapcore.ISO8601TimeEncoder
	cfg.EncodeDuration = zapcore.MillisDurationEncoder
	return cfg
}

func consoleEncoder(format string) zapcore.Encoder {
	if format == "console" {
		cfg := encoderConfig()
		cfg.EncodeLevel = zapcore.CapitalLevelEncoder
		return zapcore.NewConsoleEncoder(cfg)
	}
	return zapcore.NewJSONEncoder(encoderConfig())
}

// createFileWriter returns a size rotated writer for path.
func createFileWriter(cfg Config) (zapcore.WriteSyncer, error) {
	if err := os.MkdirAll(filepath.Dir(cfg.File), 0o700); err != nil {
		return nil, fmt.Errorf("failed to create log directory: %w", err)
	}
	return zapcore.AddSync(&lumberjack.Logger{
		Filename:   cfg.File,
		MaxSize:    cfg.MaxSizeMB, // megabytes
		MaxBackups: cfg.MaxBackups,
		MaxAge:     cfg.MaxAgeDays, // days
		Compress:   cfg.Compress,
	}), nil
}

// New creates a logger from cfg.
func New(cfg Config) (*zap.Logger, error) {
	var console io.Writer
	switch cfg.Output {
	case "stdout":
		console = os.Stdout
	case "stderr":
		console = os.Stderr
	}
	return build(cfg, console)
}

// NewWithWriter creates a logger that writes its console output to w. It is
// meant for tests and for embedding the logger in other tools.
func NewWithWriter(cfg Config, w io.Writer) (*zap.Logger, error) {
	return build(cfg, w)
}

func build(cfg Config, console io.Writer) (*zap.Logger, error) {
	level, err := ParseLevel(cfg.Level)
	if err != nil {
		return nil, err
	}
	atomic := zap.NewAtomicLevelAt(level)

	var cores []zapcore.Core
	if console != nil {
		cores = append(cores, zapcore.NewCore(consoleEncoder(cfg.Format), zapcore.AddSync(console), atomic))
	}
	if cfg.File != "" {
		w, err := createFileWriter(cfg)
		if err != nil {
			return nil, err
		}
		cores = append(cores, zapcore.NewCore(zapcore.NewJSONEncoder(encoderConfig()), w, atomic))
	}
	if len(cores) == 0 {
		return zap.NewNop(), nil
	}

	var opts []zap.Option
	if cfg.Caller {
		opts = append(opts, zap.AddCaller())
	}
	opts = append(opts, zap.AddStacktrace(zapcore.ErrorLevel))

	return zap.New(zapcore.NewTee(cores...), opts...), nil
}
