// Package api parses REST API flags and launches the service.
package api

import (
	"context"
	"flag"
	"strings"

	"go.uber.org/zap"

	entrypoint "github.com/tariffdesk/tariffdesk/internal/platform/cmd"
	"github.com/tariffdesk/tariffdesk/internal/platform/discovery"
	server "github.com/tariffdesk/tariffdesk/internal/services/api/app"
	"github.com/tariffdesk/tariffdesk/internal/services/api/authn"
	"github.com/tariffdesk/tariffdesk/internal/services/api/predict"
)

// Config holds API command configuration.
type Config struct {
	Addr           string   `env:"TARIFFDESK_API_ADDR"`
	DBPath         string   `env:"TARIFFDESK_API_DB_PATH" envDefault:"data/api.db"`
	AllowedOrigins []string `env:"TARIFFDESK_API_ALLOWED_ORIGINS" envDefault:"http://localhost:3000" envSeparator:","`
	BcryptCost     int      `env:"TARIFFDESK_BCRYPT_COST" envDefault:"10"`
	JWT            authn.Config
	Predict        predict.Config
}

// ParseConfig parses environment and flags into Config.
func ParseConfig(fs *flag.FlagSet, args []string) (Config, error) {
	var cfg Config
	if err := entrypoint.ParseConfig(&cfg); err != nil {
		return Config{}, err
	}
	if strings.TrimSpace(cfg.Addr) == "" {
		cfg.Addr = discovery.DefaultListenAddr(discovery.ServiceAPI)
	}
	fs.StringVar(&cfg.Addr, "addr", cfg.Addr, "HTTP listen address")
	fs.StringVar(&cfg.DBPath, "db", cfg.DBPath, "SQLite database path")
	if err := entrypoint.ParseArgs(fs, args); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Run starts the REST API service.
func Run(ctx context.Context, cfg Config) error {
	return entrypoint.RunWithTelemetry(ctx, entrypoint.ServiceAPI, func(ctx context.Context, logger *zap.Logger) error {
		return server.Run(ctx, server.Config{
			Addr:           cfg.Addr,
			DBPath:         cfg.DBPath,
			AllowedOrigins: cfg.AllowedOrigins,
			BcryptCost:     cfg.BcryptCost,
			JWT:            cfg.JWT,
			Predict:        cfg.Predict,
		}, logger)
	})
}
