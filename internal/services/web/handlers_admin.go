package web

import (
	"math"
	"net/http"
	"strconv"
	"strings"

	apperrors "github.com/tariffdesk/tariffdesk/internal/platform/errors"
	"github.com/tariffdesk/tariffdesk/internal/services/web/apiclient"
	"github.com/tariffdesk/tariffdesk/internal/services/web/calculator"
	"github.com/tariffdesk/tariffdesk/internal/services/web/platform/flash"
	"github.com/tariffdesk/tariffdesk/internal/services/web/tariffview"
	"github.com/tariffdesk/tariffdesk/internal/services/web/templates"
)

const adminTariffsPath = "/admin/tariffs"

func (s *Server) handleAdminTariffs(w http.ResponseWriter, r *http.Request, sess session) {
	list, err := s.api.ListTariffs(r.Context(), sess.token, "", "")
	if err != nil {
		s.fail(w, r, sess.viewer(), err)
		return
	}
	countries, err := s.api.ListCountries(r.Context(), sess.token)
	if err != nil {
		s.fail(w, r, sess.viewer(), err)
		return
	}
	view := templates.AdminTariffsView{Tariffs: list, Names: tariffview.NamesFrom(countries)}
	s.page(w, r, http.StatusOK, "Manage tariffs", sess.viewer(), templates.AdminTariffs(view))
}

func (s *Server) tariffForm(w http.ResponseWriter, r *http.Request, sess session, status int, view templates.TariffFormView) {
	countries, err := s.api.ListCountries(r.Context(), sess.token)
	if err != nil {
		s.fail(w, r, sess.viewer(), err)
		return
	}
	view.Countries = countries
	title := "Add tariff"
	if view.ID != "" {
		title = "Edit tariff"
	}
	s.page(w, r, status, title, sess.viewer(), templates.TariffForm(view))
}

// formFailure renders API validation failures on the form and anything else
// as an error page.
func (s *Server) formFailure(w http.ResponseWriter, r *http.Request, sess session, view templates.TariffFormView, err error) {
	apiErr, ok := apiclient.AsError(err)
	if !ok || apiErr.Status == http.StatusUnauthorized {
		s.fail(w, r, sess.viewer(), err)
		return
	}
	view.Error = apiErr.Message
	view.Fields = apiErr.Fields
	s.tariffForm(w, r, sess, apiErr.Status, view)
}

func (s *Server) handleNewTariffPage(w http.ResponseWriter, r *http.Request, sess session) {
	s.tariffForm(w, r, sess, http.StatusOK, templates.TariffFormView{Values: templates.TariffFormValues{Enabled: true}})
}

func tariffFormValues(r *http.Request) templates.TariffFormValues {
	return templates.TariffFormValues{
		Origin:        strings.TrimSpace(r.PostFormValue("origin")),
		Dest:          strings.TrimSpace(r.PostFormValue("dest")),
		EffectiveDate: strings.TrimSpace(r.PostFormValue("effective_date")),
		ExpiryDate:    strings.TrimSpace(r.PostFormValue("expiry_date")),
		AdValorem:     strings.TrimSpace(r.PostFormValue("ad_valorem")),
		Specific:      strings.TrimSpace(r.PostFormValue("specific")),
		HTSCode:       strings.TrimSpace(r.PostFormValue("hts_code")),
		Enabled:       r.PostFormValue("enabled") == "true",
	}
}

// rates parses the optional rate inputs. The ad valorem input is a percentage.
func rates(values templates.TariffFormValues) (adValoremPercent, specific *float64, err error) {
	fields := apperrors.FieldErrors{}
	parse := func(raw, field string) *float64 {
		raw = strings.TrimSuffix(strings.TrimSpace(raw), "%")
		if raw == "" {
			return nil
		}
		v, err := calculator.ParseAmount(raw)
		if err != nil {
			fields.Add(field, "rate "+err.Error())
			return nil
		}
		return &v
	}
	adValoremPercent = parse(values.AdValorem, "adValoremRate")
	specific = parse(values.Specific, "specificRate")
	return adValoremPercent, specific, fields.Err()
}

func optional(value string) *string {
	if value == "" {
		return nil
	}
	return &value
}

func (s *Server) handleCreateTariff(w http.ResponseWriter, r *http.Request, sess session) {
	values := tariffFormValues(r)
	view := templates.TariffFormView{Values: values}
	adValorem, specific, err := rates(values)
	if err != nil {
		domainErr, _ := apperrors.As(err)
		view.Fields = domainErr.Fields
		s.tariffForm(w, r, sess, http.StatusBadRequest, view)
		return
	}
	created, err := s.api.AddTariff(r.Context(), sess.token, apiclient.NewTariff{
		OriginCountry: values.Origin,
		DestCountry:   values.Dest,
		EffectiveDate: values.EffectiveDate,
		ExpiryDate:    optional(values.ExpiryDate),
		AdValoremRate: adValorem,
		SpecificRate:  specific,
		HTSCode:       values.HTSCode,
	})
	if err != nil {
		s.formFailure(w, r, sess, view, err)
		return
	}
	s.invalidateTariffs(r.Context())
	notice := flash.Success("Tariff " + created.ID + " created.")
	s.redirect(w, r, adminTariffsPath, &notice)
}

func (s *Server) handleEditTariffPage(w http.ResponseWriter, r *http.Request, sess session) {
	id := r.PathValue("id")
	t, err := s.api.GetTariff(r.Context(), sess.token, id)
	if err != nil {
		s.fail(w, r, sess.viewer(), err)
		return
	}
	values := templates.TariffFormValues{
		Origin:        t.OriginCountry,
		Dest:          t.DestCountry,
		EffectiveDate: t.EffectiveDate,
		AdValorem:     formatPercentInput(t.AdValoremRate),
		Enabled:       t.Enabled,
	}
	if t.ExpiryDate != nil {
		values.ExpiryDate = *t.ExpiryDate
	}
	if t.SpecificRate != nil {
		values.Specific = strconv.FormatFloat(*t.SpecificRate, 'f', -1, 64)
	}
	s.tariffForm(w, r, sess, http.StatusOK, templates.TariffFormView{ID: id, Values: values})
}

func formatPercentInput(rate float64) string {
	return strconv.FormatFloat(math.Round(rate*100*1e6)/1e6, 'f', -1, 64)
}

func (s *Server) handleUpdateTariff(w http.ResponseWriter, r *http.Request, sess session) {
	id := r.PathValue("id")
	values := tariffFormValues(r)
	view := templates.TariffFormView{ID: id, Values: values}
	adValorem, specific, err := rates(values)
	if err != nil {
		domainErr, _ := apperrors.As(err)
		view.Fields = domainErr.Fields
		s.tariffForm(w, r, sess, http.StatusBadRequest, view)
		return
	}
	if adValorem != nil {
		decimal := *adValorem / 100
		adValorem = &decimal
	}
	enabled := values.Enabled
	_, err = s.api.UpdateTariff(r.Context(), sess.token, id, apiclient.TariffChanges{
		OriginCountry: optional(values.Origin),
		DestCountry:   optional(values.Dest),
		EffectiveDate: optional(values.EffectiveDate),
		ExpiryDate:    optional(values.ExpiryDate),
		AdValoremRate: adValorem,
		SpecificRate:  specific,
		Enabled:       &enabled,
	})
	if err != nil {
		s.formFailure(w, r, sess, view, err)
		return
	}
	s.invalidateTariffs(r.Context())
	notice := flash.Success("Tariff updated.")
	s.redirect(w, r, adminTariffsPath, &notice)
}

// mutate runs an admin action and reports the outcome as a notice on the
// tariff list.
func (s *Server) mutate(w http.ResponseWriter, r *http.Request, sess session, success string, action func() error) {
	if err := action(); err != nil {
		apiErr, ok := apiclient.AsError(err)
		if !ok || apiErr.Status == http.StatusUnauthorized {
			s.fail(w, r, sess.viewer(), err)
			return
		}
		notice := flash.Error(apiErr.Message)
		s.redirect(w, r, adminTariffsPath, &notice)
		return
	}
	s.invalidateTariffs(r.Context())
	notice := flash.Success(success)
	s.redirect(w, r, adminTariffsPath, &notice)
}

func (s *Server) handleDeleteTariff(w http.ResponseWriter, r *http.Request, sess session) {
	soft := r.PostFormValue("soft") != "false"
	message := "Tariff deleted."
	if soft {
		message = "Tariff expired."
	}
	s.mutate(w, r, sess, message, func() error {
		return s.api.DeleteTariff(r.Context(), sess.token, r.PathValue("id"), soft)
	})
}

func (s *Server) handleLinkProduct(w http.ResponseWriter, r *http.Request, sess session) {
	link := apiclient.ProductLink{
		Name:        strings.TrimSpace(r.PostFormValue("name")),
		HTSCode:     strings.TrimSpace(r.PostFormValue("hts_code")),
		Description: strings.TrimSpace(r.PostFormValue("description")),
	}
	s.mutate(w, r, sess, "Product linked.", func() error {
		_, err := s.api.AddTariffProduct(r.Context(), sess.token, r.PathValue("id"), link)
		return err
	})
}

func (s *Server) handleUnlinkProduct(w http.ResponseWriter, r *http.Request, sess session) {
	s.mutate(w, r, sess, "Product removed.", func() error {
		_, err := s.api.RemoveTariffProduct(r.Context(), sess.token, r.PathValue("id"), r.PathValue("hts"))
		return err
	})
}

var userActions = map[string]string{
	"upgrade":   "User upgraded to admin.",
	"downgrade": "Admin downgraded to user.",
	"delete":    "User deleted.",
}

func (s *Server) handleUsers(w http.ResponseWriter, r *http.Request, sess session) {
	users, err := s.api.ListUsers(r.Context(), sess.token)
	if err != nil {
		s.fail(w, r, sess.viewer(), err)
		return
	}
	view := templates.UsersView{Viewer: sess.user, Users: users}
	query := r.URL.Query()
	if action := query.Get("confirm"); userActions[action] != "" && query.Get("email") != "" {
		view.Confirm = &templates.UserAction{Action: action, Email: query.Get("email")}
	}
	s.page(w, r, http.StatusOK, "Users", sess.viewer(), templates.Users(view))
}

func (s *Server) handleUserAction(w http.ResponseWriter, r *http.Request, sess session) {
	action := r.PathValue("action")
	success, ok := userActions[action]
	if !ok {
		s.page(w, r, http.StatusNotFound, "Not found", sess.viewer(), templates.ErrorPage(http.StatusNotFound, "Unknown action."))
		return
	}
	email := strings.TrimSpace(r.PostFormValue("email"))
	var err error
	switch action {
	case "upgrade":
		_, err = s.api.UpgradeRole(r.Context(), sess.token, email)
	case "downgrade":
		_, err = s.api.DowngradeRole(r.Context(), sess.token, email)
	case "delete":
		err = s.api.DeleteUser(r.Context(), sess.token, email)
	}
	notice := flash.Success(success)
	if err != nil {
		apiErr, ok := apiclient.AsError(err)
		if !ok || apiErr.Status == http.StatusUnauthorized {
			s.fail(w, r, sess.viewer(), err)
			return
		}
		notice = flash.Error(apiErr.Message)
	}
	s.redirect(w, r, "/admin/users", &notice)
}
