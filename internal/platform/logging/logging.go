// Package logging builds the structured process logger shared by every
// tariffdesk command.
package logging

import (
	"fmt"
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

const (
	// FormatConsole renders human-readable development output.
	FormatConsole = "console"
	// FormatJSON renders one JSON object per line.
	FormatJSON = "json"
)

// Config selects level and encoding for the process logger.
type Config struct {
	Level  string `env:"TARIFFDESK_LOG_LEVEL" envDefault:"info"`
	Format string `env:"TARIFFDESK_LOG_FORMAT" envDefault:"console"`
}

// New builds a named logger for service.
func New(service string, cfg Config) (*zap.Logger, error) {
	levelText := strings.TrimSpace(cfg.Level)
	if levelText == "" {
		levelText = "info"
	}
	level, err := zapcore.ParseLevel(levelText)
	if err != nil {
		return nil, fmt.Errorf("parse log level: %w", err)
	}

	var zcfg zap.Config
	switch strings.ToLower(strings.TrimSpace(cfg.Format)) {
	case FormatJSON:
		zcfg = zap.NewProductionConfig()
	case FormatConsole, "":
		zcfg = zap.NewDevelopmentConfig()
		zcfg.Development = false
	default:
		return nil, fmt.Errorf("unknown log format %q", cfg.Format)
	}
	zcfg.Level = zap.NewAtomicLevelAt(level)
	zcfg.DisableStacktrace = level > zapcore.DebugLevel

	logger, err := zcfg.Build()
	if err != nil {
		return nil, fmt.Errorf("build logger: %w", err)
	}
	service = strings.TrimSpace(service)
	if service != "" {
		logger = logger.Named(service)
	}
	return logger, nil
}

// Install makes logger the zap global and routes the stdlib log package
// through it. The returned func restores the previous state.
func Install(logger *zap.Logger) func() {
	if logger == nil {
		return func() {}
	}
	restoreGlobals := zap.ReplaceGlobals(logger)
	restoreStd := zap.RedirectStdLog(logger)
	return func() {
		restoreStd()
		restoreGlobals()
	}
}

// OrNop returns logger, or a no-op logger when nil.
func OrNop(logger *zap.Logger) *zap.Logger {
	if logger == nil {
		return zap.NewNop()
	}
	return logger
}
