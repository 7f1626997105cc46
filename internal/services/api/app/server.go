// Package server wires the API runtime and HTTP lifecycle.
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
	"github.com/tariffdesk/tariffdesk/internal/services/api/authn"
	"github.com/tariffdesk/tariffdesk/internal/services/api/httpapi"
	"github.com/tariffdesk/tariffdesk/internal/services/api/predict"
	"github.com/tariffdesk/tariffdesk/internal/services/api/service"
	apisqlite "github.com/tariffdesk/tariffdesk/internal/services/api/storage/sqlite"
)

// Config holds the runtime settings of the API server.
type Config struct {
	Addr           string
	DBPath         string
	AllowedOrigins []string
	BcryptCost     int
	JWT            authn.Config
	Predict        predict.Config
}

// Server hosts the REST API and its storage.
type Server struct {
	listener   net.Listener
	httpServer *http.Server
	store      *apisqlite.Store
	logger     *zap.Logger
}

// New opens storage, builds the services and listens on cfg.Addr.
func New(ctx context.Context, cfg Config, logger *zap.Logger) (*Server, error) {
	logger = logging.OrNop(logger)
	issuer, err := authn.NewIssuer(cfg.JWT)
	if err != nil {
		return nil, err
	}
	predictor, err := predict.New(ctx, cfg.Predict)
	if err != nil {
		return nil, err
	}
	if _, ok := predictor.(predict.Unavailable); ok {
		logger.Warn("TARIFFDESK_GEMINI_API_KEY not set; prediction disabled")
	}

	store, err := openStore(ctx, cfg.DBPath)
	if err != nil {
		return nil, err
	}
	listener, err := net.Listen("tcp", cfg.Addr)
	if err != nil {
		_ = store.Close()
		return nil, fmt.Errorf("listen on %s: %w", cfg.Addr, err)
	}

	accounts := service.NewAccounts(store, cfg.BcryptCost)
	api := httpapi.New(httpapi.Deps{
		Catalog:        service.NewCatalog(store),
		Tariffs:        service.NewTariffs(store),
		Accounts:       accounts,
		Issuer:         issuer,
		Predictor:      predictor,
		Logger:         logger,
		AllowedOrigins: cfg.AllowedOrigins,
	})
	return &Server{
		listener: listener,
		httpServer: &http.Server{
			Handler:           api.Handler(),
			ReadHeaderTimeout: timeouts.ReadHeader,
		},
		store:  store,
		logger: logger,
	}, nil
}

// Addr returns the listener address.
func (s *Server) Addr() string {
	if s == nil || s.listener == nil {
		return ""
	}
	return s.listener.Addr().String()
}

// Run creates and serves an API server until the context ends.
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

	s.logger.Info("api server listening", zap.String("addr", s.Addr()))
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
		err := <-serveErr
		if err == nil || errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("serve http: %w", err)
	case err := <-serveErr:
		if err == nil || errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("serve http: %w", err)
	}
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
	if s.store != nil {
		if err := s.store.Close(); err != nil {
			s.logger.Warn("close api store", zap.Error(err))
		}
	}
}

func openStore(ctx context.Context, path string) (*apisqlite.Store, error) {
	if strings.TrimSpace(path) == "" {
		path = filepath.Join("data", "api.db")
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create storage dir: %w", err)
		}
	}
	store, err := apisqlite.Open(ctx, path)
	if err != nil {
		return nil, fmt.Errorf("open api sqlite store: %w", err)
	}
	return store, nil
}
