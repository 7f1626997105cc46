// Package web serves the server-rendered tariffdesk frontend. Pages call the
// REST API with the bearer token kept in the session cookie.
package web

import (
	"context"
	"net/http"
	"time"

	"github.com/a-h/templ"
	"go.uber.org/zap"

	"github.com/tariffdesk/tariffdesk/internal/platform/httpx"
	"github.com/tariffdesk/tariffdesk/internal/platform/logging"
	"github.com/tariffdesk/tariffdesk/internal/services/web/apiclient"
	"github.com/tariffdesk/tariffdesk/internal/services/web/platform/flash"
	"github.com/tariffdesk/tariffdesk/internal/services/web/platform/sessioncookie"
	"github.com/tariffdesk/tariffdesk/internal/services/web/tariffcache"
	"github.com/tariffdesk/tariffdesk/internal/services/web/templates"
)

// Deps wires the frontend to the API and its tariff cache.
type Deps struct {
	API    *apiclient.Client
	Cache  *tariffcache.Cache
	Logger *zap.Logger
}

// Server renders pages.
type Server struct {
	api    *apiclient.Client
	cache  *tariffcache.Cache
	logger *zap.Logger
	now    func() time.Time
}

// New builds a frontend server. A nil cache keeps tariffs in memory only.
func New(deps Deps) *Server {
	logger := logging.OrNop(deps.Logger).Named("web")
	cache := deps.Cache
	if cache == nil {
		cache = tariffcache.New(nil, nil, tariffcache.Config{}, logger)
	}
	return &Server{
		api:    deps.API,
		cache:  cache,
		logger: logger,
		now:    time.Now,
	}
}

// Handler returns the routed handler wrapped in the shared middleware.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	s.RegisterRoutes(mux)
	return httpx.Chain(mux,
		httpx.RequestID(),
		httpx.AccessLog(s.logger),
		httpx.RecoverPanic(s.logger),
	)
}

// RegisterRoutes registers every page on mux.
func (s *Server) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("GET /health", s.handleHealth)
	mux.HandleFunc("GET /{$}", s.handleHome)

	mux.HandleFunc("GET /login", s.handleLoginPage)
	mux.HandleFunc("POST /login", s.handleLogin)
	mux.HandleFunc("GET /signup", s.handleSignupPage)
	mux.HandleFunc("POST /signup", s.handleSignup)
	mux.HandleFunc("POST /logout", s.handleLogout)
	mux.HandleFunc("GET /logout", s.handleLogout)

	mux.Handle("GET /profile", s.requireUser(s.handleProfile))
	mux.Handle("POST /profile/password", s.requireUser(s.handleChangePassword))

	mux.Handle("GET /calculator", s.requireUser(s.handleCalculatorPage))
	mux.Handle("POST /calculator", s.requireUser(s.handleCalculate))

	mux.Handle("GET /tariffs", s.requireUser(s.handleTariffs))
	mux.Handle("GET /tariffs/export.csv", s.requireUser(s.handleExportCSV))
	mux.Handle("GET /tariffs/export.xlsx", s.requireUser(s.handleExportXLSX))
	mux.Handle("POST /tariffs/refresh", s.requireUser(s.handleRefreshTariffs))
	mux.Handle("GET /heatmap", s.requireUser(s.handleHeatmap))

	mux.Handle("GET /simulation", s.requireUser(s.handleSimulationPage))
	mux.Handle("POST /simulation", s.requireUser(s.handleSimulate))

	mux.Handle("GET /admin/tariffs", s.requireAdmin(s.handleAdminTariffs))
	mux.Handle("GET /admin/tariffs/new", s.requireAdmin(s.handleNewTariffPage))
	mux.Handle("POST /admin/tariffs", s.requireAdmin(s.handleCreateTariff))
	mux.Handle("GET /admin/tariffs/{id}/edit", s.requireAdmin(s.handleEditTariffPage))
	mux.Handle("POST /admin/tariffs/{id}", s.requireAdmin(s.handleUpdateTariff))
	mux.Handle("POST /admin/tariffs/{id}/delete", s.requireAdmin(s.handleDeleteTariff))
	mux.Handle("POST /admin/tariffs/{id}/products", s.requireAdmin(s.handleLinkProduct))
	mux.Handle("POST /admin/tariffs/{id}/products/{hts}/delete", s.requireAdmin(s.handleUnlinkProduct))

	mux.Handle("GET /admin/users", s.requireAdmin(s.handleUsers))
	mux.Handle("POST /admin/users/{action}", s.requireAdmin(s.handleUserAction))
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	_ = httpx.WriteJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleHome(w http.ResponseWriter, r *http.Request) {
	sess, _ := s.session(r)
	s.page(w, r, http.StatusOK, "", sess.viewer(), templates.Home(sess.viewer()))
}

// page renders body inside the layout, consuming any pending flash notice.
func (s *Server) page(w http.ResponseWriter, r *http.Request, status int, title string, viewer *apiclient.User, body templ.Component) {
	var notice *flash.Notice
	if n, ok := flash.ReadAndClear(w, r); ok {
		notice = &n
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	layout := templates.Layout(templates.Page{Title: title, Viewer: viewer, Notice: notice, Body: body})
	if err := layout.Render(r.Context(), w); err != nil {
		s.logger.Warn("render page", zap.String("path", r.URL.Path), zap.Error(err))
	}
}

// redirect sends the browser to location with an optional notice.
func (s *Server) redirect(w http.ResponseWriter, r *http.Request, location string, notice *flash.Notice) {
	if notice != nil {
		flash.Write(w, r, *notice)
	}
	httpx.WriteRedirect(w, r, location)
}

// fail renders an API or transport failure. Expired sessions go back to
// the login page.
func (s *Server) fail(w http.ResponseWriter, r *http.Request, viewer *apiclient.User, err error) {
	status := apiclient.StatusOf(err)
	if status == http.StatusUnauthorized {
		sessioncookie.Clear(w, r)
		notice := flash.Warning("Your session has expired. Please log in again.")
		s.redirect(w, r, "/login", &notice)
		return
	}
	message := err.Error()
	if _, ok := apiclient.AsError(err); !ok {
		s.logger.Error("api call failed",
			zap.String("path", r.URL.Path),
			zap.String("request_id", httpx.RequestIDFromContext(r.Context())),
			zap.Error(err),
		)
		message = "The tariff service is unavailable. Please try again shortly."
	}
	s.page(w, r, status, http.StatusText(status), viewer, templates.ErrorPage(status, message))
}

type session struct {
	token string
	user  apiclient.User
}

func (s session) viewer() *apiclient.User {
	if s.token == "" {
		return nil
	}
	return &s.user
}

// session resolves the signed-in user from the session cookie.
func (s *Server) session(r *http.Request) (session, error) {
	token, ok := sessioncookie.Read(r)
	if !ok {
		return session{}, nil
	}
	user, err := s.api.Me(r.Context(), token)
	if err != nil {
		return session{}, err
	}
	return session{token: token, user: user}, nil
}

type sessionHandler func(w http.ResponseWriter, r *http.Request, sess session)

func (s *Server) requireUser(next sessionHandler) http.Handler {
	return s.requireRole(next, func(apiclient.User) bool { return true })
}

func (s *Server) requireAdmin(next sessionHandler) http.Handler {
	return s.requireRole(next, apiclient.User.IsAdmin)
}

func (s *Server) requireRole(next sessionHandler, allow func(apiclient.User) bool) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		sess, err := s.session(r)
		if err != nil {
			if status := apiclient.StatusOf(err); status == http.StatusUnauthorized || status == http.StatusForbidden || status == http.StatusNotFound {
				sessioncookie.Clear(w, r)
				sess = session{}
			} else {
				s.fail(w, r, nil, err)
				return
			}
		}
		if sess.token == "" {
			notice := flash.Warning("Please log in to continue.")
			s.redirect(w, r, "/login", &notice)
			return
		}
		if !allow(sess.user) {
			s.page(w, r, http.StatusForbidden, "Forbidden", sess.viewer(),
				templates.ErrorPage(http.StatusForbidden, "You do not have permission to view this page."))
			return
		}
		next(w, r, sess)
	})
}

// tariffs returns the cached tariff list, fetching it from the API on a miss.
func (s *Server) tariffs(ctx context.Context, token string) ([]apiclient.Tariff, error) {
	if cached, ok := s.cache.Load(ctx); ok {
		return cached, nil
	}
	list, err := s.api.ListTariffs(ctx, token, "", "")
	if err != nil {
		return nil, err
	}
	if err := s.cache.Save(ctx, list); err != nil {
		s.logger.Warn("save tariff cache", zap.Error(err))
	}
	return list, nil
}

func (s *Server) invalidateTariffs(ctx context.Context) {
	if err := s.cache.Clear(ctx); err != nil {
		s.logger.Warn("clear tariff cache", zap.Error(err))
	}
}
