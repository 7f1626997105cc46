// Package scraper parses WITS scraper flags and runs one import.
package scraper

import (
	"context"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"go.uber.org/zap"

	entrypoint "github.com/tariffdesk/tariffdesk/internal/platform/cmd"
	apisqlite "github.com/tariffdesk/tariffdesk/internal/services/api/storage/sqlite"
	"github.com/tariffdesk/tariffdesk/internal/services/scraper"
	"github.com/tariffdesk/tariffdesk/internal/services/scraper/wits"
)

// Config holds scraper command configuration.
type Config struct {
	DBPath        string   `env:"TARIFFDESK_SCRAPER_DB_PATH" envDefault:"data/api.db"`
	Countries     []string `env:"TARIFFDESK_SCRAPER_COUNTRIES" envSeparator:","`
	Products      []string `env:"TARIFFDESK_SCRAPER_PRODUCTS" envSeparator:","`
	Concurrency   int      `env:"TARIFFDESK_SCRAPER_CONCURRENCY" envDefault:"50"`
	PairsPerFlush int      `env:"TARIFFDESK_SCRAPER_PAIRS_PER_FLUSH" envDefault:"10"`
	WITS          wits.Config
}

// ParseConfig parses environment and flags into Config.
func ParseConfig(fs *flag.FlagSet, args []string) (Config, error) {
	var cfg Config
	if err := entrypoint.ParseConfig(&cfg); err != nil {
		return Config{}, err
	}
	fs.StringVar(&cfg.DBPath, "db", cfg.DBPath, "SQLite database path of the API")
	fs.Func("countries", "comma-separated WITS country codes (default: full codelist)", func(v string) error {
		cfg.Countries = splitList(v)
		return nil
	})
	fs.Func("products", "comma-separated HTS codes", func(v string) error {
		cfg.Products = splitList(v)
		return nil
	})
	fs.IntVar(&cfg.Concurrency, "concurrency", cfg.Concurrency, "concurrent WITS requests")
	fs.IntVar(&cfg.PairsPerFlush, "pairs-per-flush", cfg.PairsPerFlush, "country pairs written per transaction")
	fs.StringVar(&cfg.WITS.BaseURL, "wits-url", cfg.WITS.BaseURL, "WITS SDMX base URL")
	if err := entrypoint.ParseArgs(fs, args); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func splitList(v string) []string {
	var out []string
	for _, item := range strings.Split(v, ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	return out
}

// Run scrapes WITS into the API database.
func Run(ctx context.Context, cfg Config) error {
	return entrypoint.RunWithTelemetry(ctx, entrypoint.ServiceScraper, func(ctx context.Context, logger *zap.Logger) error {
		_, err := Scrape(ctx, cfg, logger)
		return err
	})
}

// Scrape runs one import against cfg.DBPath.
func Scrape(ctx context.Context, cfg Config, logger *zap.Logger) (scraper.Report, error) {
	if dir := filepath.Dir(cfg.DBPath); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return scraper.Report{}, fmt.Errorf("create storage dir: %w", err)
		}
	}
	store, err := apisqlite.Open(ctx, cfg.DBPath)
	if err != nil {
		return scraper.Report{}, fmt.Errorf("open api sqlite store: %w", err)
	}
	defer store.Close()

	s := scraper.New(wits.New(cfg.WITS, nil), store, scraper.Config{
		Countries:     cfg.Countries,
		Products:      cfg.Products,
		Concurrency:   cfg.Concurrency,
		PairsPerFlush: cfg.PairsPerFlush,
	}, logger)
	return s.Run(ctx)
}
