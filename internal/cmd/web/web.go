// Package web parses frontend flags and launches the service.
package web

import (
	"context"
	"flag"
	"strings"

	"go.uber.org/zap"

	entrypoint "github.com/tariffdesk/tariffdesk/internal/platform/cmd"
	"github.com/tariffdesk/tariffdesk/internal/platform/discovery"
	server "github.com/tariffdesk/tariffdesk/internal/services/web/app"
	"github.com/tariffdesk/tariffdesk/internal/services/web/tariffcache"
)

// Config holds web command configuration.
type Config struct {
	Addr        string `env:"TARIFFDESK_WEB_ADDR"`
	APIBaseURL  string `env:"TARIFFDESK_WEB_API_URL"`
	CacheDBPath string `env:"TARIFFDESK_WEB_CACHE_DB_PATH" envDefault:"data/web.db"`
	Cache       tariffcache.Config
}

// ParseConfig parses environment and flags into Config.
func ParseConfig(fs *flag.FlagSet, args []string) (Config, error) {
	var cfg Config
	if err := entrypoint.ParseConfig(&cfg); err != nil {
		return Config{}, err
	}
	if strings.TrimSpace(cfg.Addr) == "" {
		cfg.Addr = discovery.DefaultListenAddr(discovery.ServiceWeb)
	}
	fs.StringVar(&cfg.Addr, "addr", cfg.Addr, "HTTP listen address")
	fs.StringVar(&cfg.APIBaseURL, "api", cfg.APIBaseURL, "REST API base URL")
	fs.StringVar(&cfg.CacheDBPath, "cache-db", cfg.CacheDBPath, "SQLite tariff cache path")
	if err := entrypoint.ParseArgs(fs, args); err != nil {
		return Config{}, err
	}
	cfg.APIBaseURL = discovery.OrDefaultHTTPBaseURL(cfg.APIBaseURL, discovery.ServiceAPI)
	return cfg, nil
}

// Run starts the web frontend.
func Run(ctx context.Context, cfg Config) error {
	return entrypoint.RunWithTelemetry(ctx, entrypoint.ServiceWeb, func(ctx context.Context, logger *zap.Logger) error {
		return server.Run(ctx, server.Config{
			Addr:        cfg.Addr,
			APIBaseURL:  cfg.APIBaseURL,
			CacheDBPath: cfg.CacheDBPath,
			Cache:       cfg.Cache,
		}, logger)
	})
}
