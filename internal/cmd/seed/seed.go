// Package seed parses seed flags and loads the development catalog.
package seed

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"go.uber.org/zap"

	entrypoint "github.com/tariffdesk/tariffdesk/internal/platform/cmd"
	apisqlite "github.com/tariffdesk/tariffdesk/internal/services/api/storage/sqlite"
	"github.com/tariffdesk/tariffdesk/internal/tools/seed"
)

// Config holds seed command configuration.
type Config struct {
	DBPath     string `env:"TARIFFDESK_API_DB_PATH" envDefault:"data/api.db"`
	File       string `env:"TARIFFDESK_SEED_FILE"`
	BcryptCost int    `env:"TARIFFDESK_BCRYPT_COST" envDefault:"10"`
}

// ParseConfig parses environment and flags into Config.
func ParseConfig(fs *flag.FlagSet, args []string) (Config, error) {
	var cfg Config
	if err := entrypoint.ParseConfig(&cfg); err != nil {
		return Config{}, err
	}
	fs.StringVar(&cfg.DBPath, "db", cfg.DBPath, "SQLite database path of the API")
	fs.StringVar(&cfg.File, "file", cfg.File, "seed YAML file (default: embedded development seed)")
	if err := entrypoint.ParseArgs(fs, args); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Run applies the seed file to the API database.
func Run(ctx context.Context, cfg Config, out io.Writer) error {
	if out == nil {
		out = io.Discard
	}
	return entrypoint.RunWithTelemetry(ctx, entrypoint.ServiceSeed, func(ctx context.Context, logger *zap.Logger) error {
		result, err := Seed(ctx, cfg, logger)
		if err != nil {
			return err
		}
		_, err = fmt.Fprintf(out, "seeded %d countries, %d products, %d accounts (%d unchanged)\n",
			result.Countries, result.Products, result.Accounts, result.Unchanged)
		return err
	})
}

// Seed loads cfg.File, or the embedded seed, into cfg.DBPath.
func Seed(ctx context.Context, cfg Config, logger *zap.Logger) (seed.Result, error) {
	file, err := load(cfg.File)
	if err != nil {
		return seed.Result{}, err
	}
	if dir := filepath.Dir(cfg.DBPath); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return seed.Result{}, fmt.Errorf("create storage dir: %w", err)
		}
	}
	store, err := apisqlite.Open(ctx, cfg.DBPath)
	if err != nil {
		return seed.Result{}, fmt.Errorf("open api sqlite store: %w", err)
	}
	defer store.Close()
	return seed.Apply(ctx, store, file, cfg.BcryptCost, logger)
}

func load(path string) (seed.File, error) {
	if strings.TrimSpace(path) == "" {
		return seed.Default()
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return seed.File{}, fmt.Errorf("read seed file: %w", err)
	}
	return seed.Parse(data)
}
