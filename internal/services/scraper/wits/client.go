// Package wits reads tariff data from the World Bank WITS SDMX API.
package wits

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v5"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	platformotel "github.com/tariffdesk/tariffdesk/internal/platform/otel"
	"github.com/tariffdesk/tariffdesk/internal/platform/timeouts"
)

// DefaultBaseURL is the public WITS SDMX REST root.
const DefaultBaseURL = "https://wits.worldbank.org/API/V1/SDMX/V21/rest"

const (
	defaultMaxAttempts = 5
	defaultRetryBase   = 500 * time.Millisecond
	// maxResponseBytes bounds a single SDMX document.
	maxResponseBytes = 64 << 20
)

// ErrNotFound is returned when WITS has no data for a request.
var ErrNotFound = errors.New("wits: no data")

// StatusError is a non-retryable HTTP failure.
type StatusError struct {
	Status int
	URL    string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("wits: %s returned %d", e.URL, e.Status)
}

// Config tunes the client.
type Config struct {
	BaseURL     string        `env:"TARIFFDESK_WITS_BASE_URL" envDefault:"https://wits.worldbank.org/API/V1/SDMX/V21/rest"`
	MaxAttempts int           `env:"TARIFFDESK_WITS_MAX_ATTEMPTS" envDefault:"5"`
	RetryBase   time.Duration `env:"TARIFFDESK_WITS_RETRY_BASE" envDefault:"500ms"`
	Timeout     time.Duration `env:"TARIFFDESK_WITS_TIMEOUT" envDefault:"60s"`
}

// Client fetches and decodes WITS documents.
type Client struct {
	baseURL     string
	http        *http.Client
	maxAttempts int
	retryBase   time.Duration
	timeout     time.Duration
	tracer      trace.Tracer
}

// New builds a client. A nil httpClient uses http.DefaultClient.
func New(cfg Config, httpClient *http.Client) *Client {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	baseURL := strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = defaultMaxAttempts
	}
	if cfg.RetryBase <= 0 {
		cfg.RetryBase = defaultRetryBase
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = timeouts.ScraperRequest
	}
	return &Client{
		baseURL:     baseURL,
		http:        httpClient,
		maxAttempts: cfg.MaxAttempts,
		retryBase:   cfg.RetryBase,
		timeout:     cfg.Timeout,
		tracer:      platformotel.Tracer("tariffdesk/scraper/wits"),
	}
}

// Countries returns the WITS reporter codelist.
func (c *Client) Countries(ctx context.Context) ([]Country, error) {
	data, err := c.fetch(ctx, "codelist", c.baseURL+"/codelist/all/")
	if err != nil {
		return nil, fmt.Errorf("fetch country codelist: %w", err)
	}
	return ParseCountries(data)
}

// Tariffs returns the reported observations for one lane, keyed by product
// code. origin is the exporting partner and dest the reporting importer.
func (c *Client) Tariffs(ctx context.Context, origin, dest string, products []string) (map[string][]Observation, error) {
	data, err := c.fetch(ctx, "tariffs", c.TariffURL(origin, dest, products))
	if err != nil {
		return nil, err
	}
	return ParseTariffs(data)
}

// TariffURL is the TRAINS data query for a lane.
func (c *Client) TariffURL(origin, dest string, products []string) string {
	key := strings.Join([]string{"A", dest, origin, strings.Join(products, "+"), "reported"}, ".")
	query := url.Values{"startperiod": {"1988"}, "detail": {"dataOnly"}}
	return c.baseURL + "/data/DF_WITS_Tariff_TRAINS/" + key + "/?" + query.Encode()
}

// fetch GETs target, retrying rate limits, unavailability and transport
// errors with exponential backoff.
func (c *Client) fetch(ctx context.Context, name, target string) ([]byte, error) {
	ctx, span := c.tracer.Start(ctx, "wits."+name,
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(attribute.String("url.full", target)),
	)
	defer span.End()

	policy := backoff.NewExponentialBackOff()
	policy.InitialInterval = c.retryBase
	policy.Multiplier = 2
	policy.RandomizationFactor = 0.1

	attempts := 0
	data, err := backoff.Retry(ctx, func() ([]byte, error) {
		attempts++
		return c.get(ctx, target)
	},
		backoff.WithBackOff(policy),
		backoff.WithMaxTries(uint(c.maxAttempts)),
	)
	span.SetAttributes(attribute.Int("wits.attempts", attempts))
	if err != nil {
		if !errors.Is(err, ErrNotFound) {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
		return nil, err
	}
	return data, nil
}

func (c *Client) get(ctx context.Context, target string) ([]byte, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return nil, backoff.Permanent(fmt.Errorf("build request: %w", err))
	}
	req.Header.Set("Accept", "application/xml")
	platformotel.InjectHTTP(ctx, req.Header)

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusOK:
		data, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
		if err != nil {
			return nil, fmt.Errorf("read %s: %w", target, err)
		}
		return data, nil
	case resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode == http.StatusServiceUnavailable:
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil, &StatusError{Status: resp.StatusCode, URL: target}
	case resp.StatusCode == http.StatusNotFound:
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil, backoff.Permanent(ErrNotFound)
	default:
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil, backoff.Permanent(&StatusError{Status: resp.StatusCode, URL: target})
	}
}
