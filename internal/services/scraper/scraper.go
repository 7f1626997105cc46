// Package scraper bulk-imports reported tariffs from WITS into the API store.
package scraper

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"unicode/utf8"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/tariffdesk/tariffdesk/internal/platform/logging"
	"github.com/tariffdesk/tariffdesk/internal/services/api/country"
	"github.com/tariffdesk/tariffdesk/internal/services/api/product"
	"github.com/tariffdesk/tariffdesk/internal/services/api/storage"
	"github.com/tariffdesk/tariffdesk/internal/services/scraper/wits"
)

// DefaultProducts are the HTS codes scraped when none are configured.
var DefaultProducts = []string{"847330", "847170", "851712", "847130", "854231"}

const (
	DefaultConcurrency   = 50
	DefaultPairsPerFlush = 10
	// worldAggregate is the WITS "World" partner, never a destination.
	worldAggregate = "000"
	progressEvery  = 100
	maxNameLength  = 100
)

// Source provides WITS data.
type Source interface {
	Countries(ctx context.Context) ([]wits.Country, error)
	Tariffs(ctx context.Context, origin, dest string, products []string) (map[string][]wits.Observation, error)
}

// Config selects what to scrape.
type Config struct {
	// Countries restricts the run to these codes instead of the codelist.
	Countries     []string
	Products      []string
	Concurrency   int
	PairsPerFlush int
}

// Report summarizes a run.
type Report struct {
	Pairs    int
	Skipped  int
	Inserted int
	Updated  int
}

// Scraper fetches every lane and writes the cleaned periods in batches.
type Scraper struct {
	source Source
	store  storage.ImportStore
	cfg    Config
	logger *zap.Logger
}

// New builds a scraper, filling unset config with defaults.
func New(source Source, store storage.ImportStore, cfg Config, logger *zap.Logger) *Scraper {
	if len(cfg.Products) == 0 {
		cfg.Products = DefaultProducts
	}
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = DefaultConcurrency
	}
	if cfg.PairsPerFlush <= 0 {
		cfg.PairsPerFlush = DefaultPairsPerFlush
	}
	return &Scraper{
		source: source,
		store:  store,
		cfg:    cfg,
		logger: logging.OrNop(logger).Named("scraper"),
	}
}

type pair struct {
	origin string
	dest   string
}

// run holds the state shared by the pair workers.
type run struct {
	s         *Scraper
	countries map[string]country.Country
	total     int

	mu      sync.Mutex
	report  Report
	pending storage.ImportBatch
	pairs   int
}

// Run scrapes every ordered pair of countries.
func (s *Scraper) Run(ctx context.Context) (Report, error) {
	if s.source == nil || s.store == nil {
		return Report{}, errors.New("scraper source and store are required")
	}
	countries, err := s.countries(ctx)
	if err != nil {
		return Report{}, err
	}
	if len(countries) == 0 {
		return Report{}, errors.New("no countries to scrape")
	}
	products, err := s.products()
	if err != nil {
		return Report{}, err
	}

	r := &run{s: s, countries: make(map[string]country.Country, len(countries))}
	for _, c := range countries {
		r.countries[c.Code] = c
	}
	lanes := pairs(countries)
	r.total = len(lanes)
	s.logger.Info("scrape started",
		zap.Int("countries", len(countries)),
		zap.Int("pairs", len(lanes)),
		zap.Int("concurrency", s.cfg.Concurrency),
	)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.cfg.Concurrency)
	for _, lane := range lanes {
		if gctx.Err() != nil {
			break
		}
		g.Go(func() error {
			return r.handle(gctx, lane, products)
		})
	}
	if err := g.Wait(); err != nil {
		return r.report, err
	}
	if err := ctx.Err(); err != nil {
		return r.report, err
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.flush(ctx); err != nil {
		return r.report, err
	}
	s.logger.Info("scrape complete",
		zap.Int("pairs", r.report.Pairs),
		zap.Int("skipped", r.report.Skipped),
		zap.Int("inserted", r.report.Inserted),
		zap.Int("updated", r.report.Updated),
	)
	return r.report, nil
}

func (s *Scraper) countries(ctx context.Context) ([]country.Country, error) {
	var raw []wits.Country
	if len(s.cfg.Countries) > 0 {
		for _, code := range s.cfg.Countries {
			raw = append(raw, wits.Country{Code: code, Name: code})
		}
	} else {
		listed, err := s.source.Countries(ctx)
		if err != nil {
			return nil, err
		}
		raw = listed
	}

	seen := map[string]bool{}
	out := make([]country.Country, 0, len(raw))
	for _, c := range raw {
		normalized, err := country.Normalize(country.Country{Code: c.Code, Name: truncate(c.Name, maxNameLength)})
		if err != nil {
			s.logger.Debug("skip country", zap.String("code", c.Code), zap.Error(err))
			continue
		}
		if seen[normalized.Code] {
			continue
		}
		seen[normalized.Code] = true
		out = append(out, normalized)
	}
	return out, nil
}

func (s *Scraper) products() ([]string, error) {
	out := make([]string, 0, len(s.cfg.Products))
	for _, raw := range s.cfg.Products {
		code, err := product.NormalizeHTSCode(raw)
		if err != nil {
			return nil, fmt.Errorf("product %q: %w", raw, err)
		}
		out = append(out, code)
	}
	return out, nil
}

// pairs lists ordered lanes, leaving out same-country lanes and the world
// aggregate as destination.
func pairs(countries []country.Country) []pair {
	var out []pair
	for _, o := range countries {
		for _, d := range countries {
			if o.Code == d.Code || d.Code == worldAggregate {
				continue
			}
			out = append(out, pair{origin: o.Code, dest: d.Code})
		}
	}
	return out
}

func (r *run) handle(ctx context.Context, lane pair, products []string) error {
	data, err := r.s.source.Tariffs(ctx, lane.origin, lane.dest, products)
	if err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		level := r.s.logger.Warn
		if errors.Is(err, wits.ErrNotFound) {
			level = r.s.logger.Debug
		}
		level("skip pair", zap.String("origin", lane.origin), zap.String("dest", lane.dest), zap.Error(err))
	}
	items := lanePeriods(lane, data)

	r.mu.Lock()
	defer r.mu.Unlock()
	r.report.Pairs++
	if err != nil {
		r.report.Skipped++
	}
	if r.report.Pairs%progressEvery == 0 {
		r.s.logger.Info("scrape progress",
			zap.Int("processed", r.report.Pairs),
			zap.Int("total", r.total),
			zap.Int("inserted", r.report.Inserted),
			zap.Int("updated", r.report.Updated),
		)
	}
	if len(items) == 0 {
		return nil
	}
	r.pending.Tariffs = append(r.pending.Tariffs, items...)
	r.pairs++
	if r.pairs < r.s.cfg.PairsPerFlush {
		return nil
	}
	return r.flush(ctx)
}

func lanePeriods(lane pair, data map[string][]wits.Observation) []storage.ImportTariff {
	var items []storage.ImportTariff
	for code, observations := range data {
		hts, err := product.NormalizeHTSCode(code)
		if err != nil {
			continue
		}
		for _, period := range Clean(observations) {
			items = append(items, storage.ImportTariff{
				OriginCountry: lane.origin,
				DestCountry:   lane.dest,
				HTSCode:       hts,
				EffectiveDate: period.Effective,
				ExpiryDate:    period.Expiry,
				AdValoremRate: period.Rate,
			})
		}
	}
	return items
}

// flush writes the pending batch. The caller holds r.mu.
func (r *run) flush(ctx context.Context) error {
	if len(r.pending.Tariffs) == 0 {
		return nil
	}
	batch := r.pending
	countries := map[string]bool{}
	products := map[string]bool{}
	for _, item := range batch.Tariffs {
		for _, code := range []string{item.OriginCountry, item.DestCountry} {
			if !countries[code] {
				countries[code] = true
				batch.Countries = append(batch.Countries, r.countries[code])
			}
		}
		if !products[item.HTSCode] {
			products[item.HTSCode] = true
			batch.Products = append(batch.Products, product.Product{HTSCode: item.HTSCode, Name: item.HTSCode, Enabled: true})
		}
	}

	r.s.logger.Info("flush tariffs", zap.Int("pairs", r.pairs), zap.Int("tariffs", len(batch.Tariffs)))
	result, err := r.s.store.ImportTariffs(ctx, batch)
	if err != nil {
		return fmt.Errorf("import tariffs: %w", err)
	}
	r.report.Inserted += result.Inserted
	r.report.Updated += result.Updated
	r.pending = storage.ImportBatch{}
	r.pairs = 0
	return nil
}

func truncate(s string, limit int) string {
	s = strings.TrimSpace(s)
	if utf8.RuneCountInString(s) <= limit {
		return s
	}
	return strings.TrimSpace(string([]rune(s)[:limit]))
}
