// Package server wires the web frontend runtime and HTTP lifecycle.
package server

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"go.uber.org/zap"

	"github.com/tariffdesk/tariffdesk/internal/platform/logging"
	"github.com/tariffdesk/tariffdesk/internal/platform/timeouts"
	"github.com/tariffdesk/tariffdesk/internal/services/web"
	"github.com/tariffdesk/tariffdesk/internal/services/web/apiclient"
	"github.com/tariffdesk/tariffdesk/internal/services/web/tariffcache"
	cachesqlite "github.com/tariffdesk/tariffdesk/internal/services/web/tariffcache/sqlite"
)

// Config holds the runtime settings of the web server.
type Config struct {
	Addr        string
	APIBaseURL  string
	CacheDBPath string
	Cache       tariffcache.Config
}

// Server hosts the frontend pages.
type Server struct {
	listener   net.Listener
	httpServer *http.Server
	cacheStore *cachesqlite.Store
	logger     *zap.Logger
}

// New opens the tariff cache, builds the API client and listens on cfg.Addr.
func New(ctx context.Context, cfg Config, logger *zap.Logger) (*Server, error) {
	logger = logging.OrNop(logger)
	if strings.TrimSpace(cfg.APIBaseURL) == "" {
		return nil, errors.New("api base url is required")
	}
	cacheStore, err := openCacheStore(ctx, cfg.CacheDBPath, cfg.Cache.MaxPrimaryBytes)
	if err != nil {
		return nil, err
	}
	listener, err := net.Listen("tcp", cfg.Addr)
	if err != nil {
		_ = cacheStore.Close()
		return nil, fmt.Errorf("listen on %s: %w", cfg.Addr, err)
	}

	frontend := web.New(web.Deps{
		API:    apiclient.New(cfg.APIBaseURL, nil),
		Cache:  tariffcache.New(cacheStore, nil, cfg.Cache, logger),
		Logger: logger,
	})
	return &Server{
		listener: listener,
		httpServer: &http.Server{
			Handler:           frontend.Handler(),
			ReadHeaderTimeout: timeouts.ReadHeader,
		},
		cacheStore: cacheStore,
		logger:     logger,
	}, nil
}

// Addr returns the listener address.
func (s *Server) Addr() string {
	if s == nil || s.listener == nil {
		return ""
	}
	return s.listener.Addr().String()
}

// Run creates and serves a web server until the context ends.
func Run(ctx context.Context, cfg Config, logger *zap.Logger) error {
	server, err := New(ctx, cfg, logger)
	if err != nil {
		return err
	}
	return server.Serve(ctx)
}

// Serve handles requests until ctx is cancelled, then shuts down gracefully.
func (s *Server) Serve(ctx context.Context) error {
	if s == nil {
		return errors.New("server is nil")
	}
	if ctx == nil {
		ctx = context.Background()
	}
	defer s.Close()

	s.logger.Info("web server listening", zap.String("addr", s.Addr()))
	serveErr := make(chan error, 1)
	go func() {
		serveErr <- s.httpServer.Serve(s.listener)
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), timeouts.Shutdown)
		defer cancel()
		if err := s.httpServer.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("shutdown http: %w", err)
		}
		return serveResult(<-serveErr)
	case err := <-serveErr:
		return serveResult(err)
	}
}

func serveResult(err error) error {
	if err == nil || errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	return fmt.Errorf("serve http: %w", err)
}

// Close releases server resources.
func (s *Server) Close() {
	if s == nil {
		return
	}
	if s.httpServer != nil {
		_ = s.httpServer.Close()
	}
	if s.listener != nil {
		_ = s.listener.Close()
	}
	if s.cacheStore != nil {
		if err := s.cacheStore.Close(); err != nil {
			s.logger.Warn("close web cache store", zap.Error(err))
		}
	}
}

func openCacheStore(ctx context.Context, path string, maxBytes int) (*cachesqlite.Store, error) {
	if strings.TrimSpace(path) == "" {
		path = filepath.Join("data", "web.db")
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create cache dir: %w", err)
		}
	}
	if maxBytes <= 0 {
		maxBytes = tariffcache.DefaultMaxPrimaryBytes
	}
	return cachesqlite.Open(ctx, path, maxBytes)
}
