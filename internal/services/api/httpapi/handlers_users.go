package httpapi

import (
	"net/http"

	"github.com/tariffdesk/tariffdesk/internal/platform/httpx"
	"github.com/tariffdesk/tariffdesk/internal/platform/requestctx"
	"github.com/tariffdesk/tariffdesk/internal/services/api/authn"
)

func (s *Server) handleRegister(w http.ResponseWriter, r *http.Request) {
	var req credentialsRequest
	if err := httpx.DecodeJSON(w, r, &req); err != nil {
		s.fail(w, r, err)
		return
	}
	created, err := s.accounts.Register(r.Context(), req.Email, req.Password)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	s.ok(w, http.StatusCreated, toUserJSON(created))
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req credentialsRequest
	if err := httpx.DecodeJSON(w, r, &req); err != nil {
		s.fail(w, r, err)
		return
	}
	account, err := s.accounts.Authenticate(r.Context(), req.Email, req.Password)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	token, err := s.issuer.Issue(account)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	http.SetCookie(w, &http.Cookie{
		Name:     authn.CookieName,
		Value:    token.Value,
		Path:     "/",
		MaxAge:   int(s.issuer.TTL().Seconds()),
		HttpOnly: true,
		Secure:   httpx.IsHTTPS(r),
		SameSite: http.SameSiteStrictMode,
	})
	s.ok(w, http.StatusOK, loginResponse{Token: token.Value, ExpiresIn: s.issuer.TTL().Milliseconds()})
}

func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	http.SetCookie(w, &http.Cookie{
		Name:     authn.CookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   httpx.IsHTTPS(r),
		SameSite: http.SameSiteStrictMode,
	})
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleMe(w http.ResponseWriter, r *http.Request) {
	account, err := s.accounts.Get(r.Context(), requestctx.EmailFromContext(r.Context()))
	if err != nil {
		s.fail(w, r, err)
		return
	}
	s.ok(w, http.StatusOK, toUserJSON(account))
}

func (s *Server) handleChangePassword(w http.ResponseWriter, r *http.Request) {
	var req changePasswordRequest
	if err := httpx.DecodeJSON(w, r, &req); err != nil {
		s.fail(w, r, err)
		return
	}
	email := requestctx.EmailFromContext(r.Context())
	if err := s.accounts.ChangePassword(r.Context(), email, req.CurrentPassword, req.NewPassword); err != nil {
		s.fail(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleListUsers(w http.ResponseWriter, r *http.Request) {
	users, err := s.accounts.List(r.Context())
	if err != nil {
		s.fail(w, r, err)
		return
	}
	out := make([]userJSON, 0, len(users))
	for _, u := range users {
		out = append(out, toUserJSON(u))
	}
	s.ok(w, http.StatusOK, out)
}

func (s *Server) handleUpgradeRole(w http.ResponseWriter, r *http.Request) {
	var req roleChangeRequest
	if err := httpx.DecodeJSON(w, r, &req); err != nil {
		s.fail(w, r, err)
		return
	}
	updated, err := s.accounts.UpgradeRole(r.Context(), requestctx.EmailFromContext(r.Context()), req.Email)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	s.ok(w, http.StatusOK, toUserJSON(updated))
}

func (s *Server) handleDowngradeRole(w http.ResponseWriter, r *http.Request) {
	var req roleChangeRequest
	if err := httpx.DecodeJSON(w, r, &req); err != nil {
		s.fail(w, r, err)
		return
	}
	updated, err := s.accounts.DowngradeRole(r.Context(), requestctx.EmailFromContext(r.Context()), req.Email)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	s.ok(w, http.StatusOK, toUserJSON(updated))
}

func (s *Server) handleDeleteUser(w http.ResponseWriter, r *http.Request) {
	if err := s.accounts.Delete(r.Context(), requestctx.EmailFromContext(r.Context()), r.PathValue("email")); err != nil {
		s.fail(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
