package cmd

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/tariffdesk/tariffdesk/internal/platform/config"
	"github.com/tariffdesk/tariffdesk/internal/platform/logging"
	"github.com/tariffdesk/tariffdesk/internal/platform/otel"
)

const defaultOTelShutdownTimeout = 5 * time.Second

// Service identifiers for command startup telemetry and logger naming.
const (
	ServiceAPI     = "api"
	ServiceWeb     = "web"
	ServiceScraper = "scraper"
	ServiceSeed    = "seed"
)

// RunOptions controls shared entrypoint behavior for service commands.
type RunOptions struct {
	// ShutdownTimeout sets the timeout used when stopping telemetry.
	ShutdownTimeout time.Duration
	// Logging overrides the env-derived logger configuration.
	Logging *logging.Config
}

// ParseConfig loads environment defaults into cfg.
func ParseConfig[T any](cfg *T) error {
	if cfg == nil {
		return errors.New("config target is required")
	}
	return config.ParseEnv(cfg)
}

// ParseArgs parses command-line flags.
func ParseArgs(fs *flag.FlagSet, args []string) error {
	if fs == nil {
		return errors.New("flag parser is required")
	}
	if args == nil {
		args = []string{}
	}
	return fs.Parse(args)
}

// ParseConfigFromArgs loads defaults from env and then parses flags.
func ParseConfigFromArgs[T any](cfg *T, fs *flag.FlagSet, args []string) error {
	if err := ParseConfig(cfg); err != nil {
		return err
	}
	return ParseArgs(fs, args)
}

// RunWithTelemetry configures logging and tracing, then executes a service
// run loop with the service logger.
func RunWithTelemetry(ctx context.Context, service string, run func(context.Context, *zap.Logger) error) error {
	return RunWithTelemetryAndOptions(ctx, service, RunOptions{}, run)
}

// RunWithTelemetryAndOptions configures logging and tracing, then executes a
// service run loop with the service logger.
func RunWithTelemetryAndOptions(ctx context.Context, service string, options RunOptions, run func(context.Context, *zap.Logger) error) error {
	service = strings.TrimSpace(service)
	if service == "" {
		return fmt.Errorf("service name is required")
	}
	if run == nil {
		return fmt.Errorf("run function is required")
	}
	if ctx == nil {
		ctx = context.Background()
	}

	logCfg := logging.Config{}
	if options.Logging != nil {
		logCfg = *options.Logging
	} else if err := config.ParseEnv(&logCfg); err != nil {
		return err
	}
	logger, err := logging.New(service, logCfg)
	if err != nil {
		return err
	}
	restore := logging.Install(logger)
	defer func() {
		_ = logger.Sync()
		restore()
	}()

	shutdown, err := otel.Setup(ctx, service)
	if err != nil {
		return err
	}
	defer func() {
		shutdownTimeout := options.ShutdownTimeout
		if shutdownTimeout <= 0 {
			shutdownTimeout = defaultOTelShutdownTimeout
		}
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := shutdown(shutdownCtx); err != nil {
			logger.Warn("otel shutdown", zap.Error(err))
		}
	}()
	return run(ctx, logger)
}
