package web

import (
	"net/http"
	"strings"

	"go.uber.org/zap"

	"github.com/tariffdesk/tariffdesk/internal/services/web/apiclient"
	"github.com/tariffdesk/tariffdesk/internal/services/web/platform/flash"
	"github.com/tariffdesk/tariffdesk/internal/services/web/platform/sessioncookie"
	"github.com/tariffdesk/tariffdesk/internal/services/web/templates"
)

func (s *Server) handleLoginPage(w http.ResponseWriter, r *http.Request) {
	s.page(w, r, http.StatusOK, "Log in", nil, templates.Login(templates.AuthForm{}))
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	email := strings.TrimSpace(r.PostFormValue("email"))
	password := r.PostFormValue("password")
	form := templates.AuthForm{Email: email}

	if err := s.signIn(w, r, email, password); err != nil {
		apiErr, ok := apiclient.AsError(err)
		if !ok {
			s.fail(w, r, nil, err)
			return
		}
		form.Error = apiErr.Message
		form.Fields = apiErr.Fields
		s.page(w, r, apiErr.Status, "Log in", nil, templates.Login(form))
		return
	}
	notice := flash.Success("Welcome back.")
	s.redirect(w, r, "/", &notice)
}

// signIn logs in through the API and stores the token in the session cookie.
func (s *Server) signIn(w http.ResponseWriter, r *http.Request, email, password string) error {
	sess, err := s.api.Login(r.Context(), email, password)
	if err != nil {
		return err
	}
	sessioncookie.Write(w, r, sess.Token, sess.TTL())
	return nil
}

func (s *Server) handleSignupPage(w http.ResponseWriter, r *http.Request) {
	s.page(w, r, http.StatusOK, "Sign up", nil, templates.Signup(templates.AuthForm{}))
}

func (s *Server) handleSignup(w http.ResponseWriter, r *http.Request) {
	email := strings.TrimSpace(r.PostFormValue("email"))
	password := r.PostFormValue("password")
	form := templates.AuthForm{Email: email}

	if password != r.PostFormValue("confirm") {
		form.Fields = map[string]string{"confirm": "passwords do not match"}
		s.page(w, r, http.StatusBadRequest, "Sign up", nil, templates.Signup(form))
		return
	}
	if _, err := s.api.Register(r.Context(), email, password); err != nil {
		apiErr, ok := apiclient.AsError(err)
		if !ok {
			s.fail(w, r, nil, err)
			return
		}
		form.Error = apiErr.Message
		form.Fields = apiErr.Fields
		s.page(w, r, apiErr.Status, "Sign up", nil, templates.Signup(form))
		return
	}
	if err := s.signIn(w, r, email, password); err != nil {
		notice := flash.Success("Account created. Please log in.")
		s.redirect(w, r, "/login", &notice)
		return
	}
	notice := flash.Success("Account created.")
	s.redirect(w, r, "/", &notice)
}

func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	sessioncookie.Clear(w, r)
	if err := s.api.Logout(r.Context()); err != nil {
		s.logger.Debug("api logout", zap.Error(err))
	}
	notice := flash.Success("You have been logged out.")
	s.redirect(w, r, "/login", &notice)
}

func (s *Server) handleProfile(w http.ResponseWriter, r *http.Request, sess session) {
	s.page(w, r, http.StatusOK, "Profile", sess.viewer(), templates.Profile(sess.user, templates.PasswordForm{}))
}

func (s *Server) handleChangePassword(w http.ResponseWriter, r *http.Request, sess session) {
	current := r.PostFormValue("current_password")
	next := r.PostFormValue("new_password")
	if next != r.PostFormValue("confirm") {
		form := templates.PasswordForm{Fields: map[string]string{"confirm": "passwords do not match"}}
		s.page(w, r, http.StatusBadRequest, "Profile", sess.viewer(), templates.Profile(sess.user, form))
		return
	}
	if err := s.api.ChangePassword(r.Context(), sess.token, current, next); err != nil {
		apiErr, ok := apiclient.AsError(err)
		if !ok {
			s.fail(w, r, sess.viewer(), err)
			return
		}
		form := templates.PasswordForm{Error: apiErr.Message, Fields: apiErr.Fields}
		s.page(w, r, apiErr.Status, "Profile", sess.viewer(), templates.Profile(sess.user, form))
		return
	}
	notice := flash.Success("Password updated.")
	s.redirect(w, r, "/profile", &notice)
}
