// Package httpapi exposes the API use cases as a JSON REST surface.
package httpapi

import (
	"net/http"
	"slices"
	"strings"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	apperrors "github.com/tariffdesk/tariffdesk/internal/platform/errors"
	"github.com/tariffdesk/tariffdesk/internal/platform/httpx"
	"github.com/tariffdesk/tariffdesk/internal/platform/logging"
	platformotel "github.com/tariffdesk/tariffdesk/internal/platform/otel"
	"github.com/tariffdesk/tariffdesk/internal/services/api/authn"
	"github.com/tariffdesk/tariffdesk/internal/services/api/predict"
	"github.com/tariffdesk/tariffdesk/internal/services/api/service"
)

const tracerName = "github.com/tariffdesk/tariffdesk/internal/services/api/httpapi"

// Deps are the collaborators behind the REST surface.
type Deps struct {
	Catalog   *service.Catalog
	Tariffs   *service.Tariffs
	Accounts  *service.Accounts
	Issuer    *authn.Issuer
	Predictor predict.Predictor
	Logger    *zap.Logger
	// AllowedOrigins lists browser origins granted CORS access.
	AllowedOrigins []string
}

// Server routes REST requests to the API services.
type Server struct {
	catalog   *service.Catalog
	tariffs   *service.Tariffs
	accounts  *service.Accounts
	issuer    *authn.Issuer
	guard     *authn.Guard
	predictor predict.Predictor
	logger    *zap.Logger
	origins   []string
}

// New creates a REST server.
func New(deps Deps) *Server {
	predictor := deps.Predictor
	if predictor == nil {
		predictor = predict.Unavailable{}
	}
	return &Server{
		catalog:   deps.Catalog,
		tariffs:   deps.Tariffs,
		accounts:  deps.Accounts,
		issuer:    deps.Issuer,
		guard:     authn.NewGuard(deps.Issuer, deps.Accounts),
		predictor: predictor,
		logger:    logging.OrNop(deps.Logger).Named("httpapi"),
		origins:   deps.AllowedOrigins,
	}
}

// Handler returns the routed handler wrapped in the API middleware chain.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	s.RegisterRoutes(mux)
	return httpx.Chain(mux,
		httpx.RequestID(),
		httpx.AccessLog(s.logger),
		httpx.RecoverPanic(s.logger),
		s.trace(),
		s.cors(),
	)
}

// RegisterRoutes registers every REST endpoint on mux.
func (s *Server) RegisterRoutes(mux *http.ServeMux) {
	authed := s.guard.Authenticated()
	admin := s.guard.Admin()
	super := s.guard.SuperAdmin()
	handle := func(pattern string, guard httpx.Middleware, h http.HandlerFunc) {
		if guard == nil {
			mux.Handle(pattern, h)
			return
		}
		mux.Handle(pattern, guard(h))
	}

	handle("GET /health", nil, s.handleHealth)

	handle("POST /api/users/register", nil, s.handleRegister)
	handle("POST /api/users/login", nil, s.handleLogin)
	handle("POST /api/users/logout", nil, s.handleLogout)
	handle("GET /api/users/me", authed, s.handleMe)
	handle("PUT /api/users/me/password", authed, s.handleChangePassword)
	handle("GET /api/users", admin, s.handleListUsers)
	handle("PUT /api/users/upgrade-role", admin, s.handleUpgradeRole)
	handle("PUT /api/users/downgrade-role", super, s.handleDowngradeRole)
	handle("DELETE /api/users/{email}", admin, s.handleDeleteUser)

	handle("GET /api/countries", authed, s.handleListCountries)
	handle("GET /api/countries/{code}", authed, s.handleGetCountry)
	handle("POST /api/countries", admin, s.handleCreateCountry)
	handle("PUT /api/countries/{code}", admin, s.handleUpdateCountry)
	handle("DELETE /api/countries/{code}", admin, s.handleDeleteCountry)

	handle("GET /api/products", authed, s.handleListProducts)
	handle("GET /api/products/{hts}", authed, s.handleGetProduct)
	handle("POST /api/products", admin, s.handleCreateProduct)
	handle("PUT /api/products/{hts}", admin, s.handleUpdateProduct)
	handle("DELETE /api/products/{hts}", admin, s.handleDeleteProduct)

	handle("GET /api/tariffs", authed, s.handleListTariffs)
	handle("GET /api/tariffs/{id}", authed, s.handleGetTariff)
	handle("POST /api/tariffs/resolve", authed, s.handleResolveTariff)
	handle("POST /api/tariffs/calculate", authed, s.handleCalculate)
	handle("POST /api/tariffs", admin, s.handleAddTariff)
	handle("PUT /api/tariffs/{id}", admin, s.handleUpdateTariff)
	handle("DELETE /api/tariffs/{id}", admin, s.handleDeleteTariff)
	handle("POST /api/tariffs/{id}/products", admin, s.handleAddTariffProduct)
	handle("DELETE /api/tariffs/{id}/products/{hts}", admin, s.handleRemoveTariffProduct)

	handle("POST /api/predict", authed, s.handlePredict)
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	_ = httpx.WriteJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// fail logs unexpected errors before writing the error response.
func (s *Server) fail(w http.ResponseWriter, r *http.Request, err error) {
	if _, ok := apperrors.As(err); !ok {
		s.logger.Error("request failed",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.String("request_id", httpx.RequestIDFromContext(r.Context())),
			zap.Error(err),
		)
	}
	if span := trace.SpanFromContext(r.Context()); span.IsRecording() {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	httpx.WriteError(w, err)
}

func (s *Server) ok(w http.ResponseWriter, status int, payload any) {
	_ = httpx.WriteJSON(w, status, payload)
}

// trace continues the caller's trace and opens a server span per request.
func (s *Server) trace() httpx.Middleware {
	tracer := platformotel.Tracer(tracerName)
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := platformotel.ExtractHTTP(r.Context(), r.Header)
			ctx, span := tracer.Start(ctx, "HTTP "+r.Method,
				trace.WithSpanKind(trace.SpanKindServer),
				trace.WithAttributes(
					attribute.String("http.request.method", r.Method),
					attribute.String("url.path", r.URL.Path),
				),
			)
			defer span.End()
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// cors grants configured origins credentialed access and answers
// preflight requests.
func (s *Server) cors() httpx.Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			origin := strings.TrimSpace(r.Header.Get("Origin"))
			if origin != "" && s.originAllowed(origin) {
				h := w.Header()
				h.Set("Access-Control-Allow-Origin", origin)
				h.Set("Access-Control-Allow-Credentials", "true")
				h.Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE")
				h.Set("Access-Control-Allow-Headers", "Authorization, Content-Type")
				h.Add("Vary", "Origin")
			}
			if r.Method == http.MethodOptions {
				w.WriteHeader(http.StatusNoContent)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func (s *Server) originAllowed(origin string) bool {
	return slices.ContainsFunc(s.origins, func(allowed string) bool {
		allowed = strings.TrimRight(strings.TrimSpace(allowed), "/")
		return allowed == "*" || strings.EqualFold(allowed, origin)
	})
}
