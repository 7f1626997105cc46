package web

import (
	"mime"
	"net/http"
	"strconv"
	"strings"

	"go.uber.org/zap"

	apperrors "github.com/tariffdesk/tariffdesk/internal/platform/errors"
	"github.com/tariffdesk/tariffdesk/internal/services/web/apiclient"
	"github.com/tariffdesk/tariffdesk/internal/services/web/calculator"
	"github.com/tariffdesk/tariffdesk/internal/services/web/platform/flash"
	"github.com/tariffdesk/tariffdesk/internal/services/web/tariffview"
	"github.com/tariffdesk/tariffdesk/internal/services/web/templates"
)

func tariffQuery(r *http.Request) tariffview.Query {
	values := r.URL.Query()
	page, _ := strconv.Atoi(values.Get("page"))
	hide, _ := strconv.ParseBool(values.Get("hide_expired"))
	return tariffview.Query{
		Origin:      strings.TrimSpace(values.Get("origin")),
		Mode:        tariffview.ParseMode(values.Get("mode")),
		HideExpired: hide,
		Page:        page,
	}
}

// tariffData loads tariffs and country names for the table views.
func (s *Server) tariffData(r *http.Request, sess session) ([]apiclient.Tariff, tariffview.Names, error) {
	list, err := s.tariffs(r.Context(), sess.token)
	if err != nil {
		return nil, nil, err
	}
	countries, err := s.api.ListCountries(r.Context(), sess.token)
	if err != nil {
		return nil, nil, err
	}
	return list, tariffview.NamesFrom(countries), nil
}

func (s *Server) handleTariffs(w http.ResponseWriter, r *http.Request, sess session) {
	list, names, err := s.tariffData(r, sess)
	if err != nil {
		s.fail(w, r, sess.viewer(), err)
		return
	}
	table := tariffview.Build(list, names, tariffQuery(r), s.now())
	s.page(w, r, http.StatusOK, "Tariffs", sess.viewer(), templates.Tariffs(templates.TariffsView{Table: table}))
}

func (s *Server) handleExportCSV(w http.ResponseWriter, r *http.Request, sess session) {
	s.export(w, r, sess, "csv", "text/csv; charset=utf-8", func(rows []tariffview.Row) ([]byte, error) {
		return tariffview.CSV(rows), nil
	})
}

func (s *Server) handleExportXLSX(w http.ResponseWriter, r *http.Request, sess session) {
	s.export(w, r, sess, "xlsx", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet", tariffview.XLSX)
}

func (s *Server) export(w http.ResponseWriter, r *http.Request, sess session, ext, contentType string, encode func([]tariffview.Row) ([]byte, error)) {
	q := tariffQuery(r)
	q.Page = 0
	back := "/tariffs?" + templates.TariffQueryString(q)
	if q.Origin == "" {
		notice := flash.Warning("Select a country before exporting.")
		s.redirect(w, r, back, &notice)
		return
	}
	list, names, err := s.tariffData(r, sess)
	if err != nil {
		s.fail(w, r, sess.viewer(), err)
		return
	}
	rows := tariffview.Rows(list, names, q, s.now())
	if len(rows) == 0 {
		notice := flash.Warning("There are no tariffs to export for this selection.")
		s.redirect(w, r, back, &notice)
		return
	}
	data, err := encode(rows)
	if err != nil {
		s.logger.Error("encode export", zap.String("format", ext), zap.Error(err))
		s.page(w, r, http.StatusInternalServerError, "Export failed", sess.viewer(),
			templates.ErrorPage(http.StatusInternalServerError, "Could not build the export."))
		return
	}
	filename := tariffview.ExportFilename(q.Mode, names.Name(q.Origin), ext)
	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Content-Disposition", attachment(filename))
	w.Header().Set("Content-Length", strconv.Itoa(len(data)))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(data)
}

// attachment formats a Content-Disposition header, quoting or RFC 2231
// encoding the filename as needed.
func attachment(filename string) string {
	if v := mime.FormatMediaType("attachment", map[string]string{"filename": filename}); v != "" {
		return v
	}
	return "attachment"
}

func (s *Server) handleRefreshTariffs(w http.ResponseWriter, r *http.Request, sess session) {
	s.invalidateTariffs(r.Context())
	if _, err := s.tariffs(r.Context(), sess.token); err != nil {
		s.fail(w, r, sess.viewer(), err)
		return
	}
	back := "/tariffs"
	if q := r.PostFormValue("query"); q != "" {
		back += "?" + q
	}
	notice := flash.Success("Tariff data refreshed.")
	s.redirect(w, r, back, &notice)
}

func (s *Server) handleHeatmap(w http.ResponseWriter, r *http.Request, sess session) {
	list, names, err := s.tariffData(r, sess)
	if err != nil {
		s.fail(w, r, sess.viewer(), err)
		return
	}
	origin := strings.TrimSpace(r.URL.Query().Get("origin"))
	view := templates.HeatmapView{Origins: tariffview.Origins(list, names), Origin: origin}
	if origin != "" {
		view.Cells = tariffview.Heatmap(list, names, origin, s.now())
	}
	s.page(w, r, http.StatusOK, "Heatmap", sess.viewer(), templates.Heatmap(view))
}

// calculatorView loads the select options for the calculator.
func (s *Server) calculatorView(r *http.Request, sess session) (templates.CalculatorView, error) {
	products, err := s.api.ListProducts(r.Context(), sess.token, false)
	if err != nil {
		return templates.CalculatorView{}, err
	}
	countries, err := s.api.ListCountries(r.Context(), sess.token)
	if err != nil {
		return templates.CalculatorView{}, err
	}
	return templates.CalculatorView{Products: products, Countries: countries}, nil
}

func (s *Server) handleCalculatorPage(w http.ResponseWriter, r *http.Request, sess session) {
	view, err := s.calculatorView(r, sess)
	if err != nil {
		s.fail(w, r, sess.viewer(), err)
		return
	}
	s.page(w, r, http.StatusOK, "Calculator", sess.viewer(), templates.Calculator(view))
}

func (s *Server) handleCalculate(w http.ResponseWriter, r *http.Request, sess session) {
	view, err := s.calculatorView(r, sess)
	if err != nil {
		s.fail(w, r, sess.viewer(), err)
		return
	}
	view.Form = calculator.Form{
		Product:   r.PostFormValue("product"),
		Origin:    r.PostFormValue("origin"),
		Dest:      r.PostFormValue("dest"),
		Quantity:  r.PostFormValue("quantity"),
		UnitPrice: r.PostFormValue("unit_price"),
	}
	req, err := view.Form.Request()
	if err != nil {
		domainErr, _ := apperrors.As(err)
		if domainErr != nil {
			view.Fields = domainErr.Fields
		}
		s.page(w, r, http.StatusBadRequest, "Calculator", sess.viewer(), templates.Calculator(view))
		return
	}
	result, err := s.api.Calculate(r.Context(), sess.token, req)
	if err != nil {
		apiErr, ok := apiclient.AsError(err)
		if !ok || apiErr.Status == http.StatusUnauthorized {
			s.fail(w, r, sess.viewer(), err)
			return
		}
		view.Error = apiErr.Message
		s.page(w, r, apiErr.Status, "Calculator", sess.viewer(), templates.Calculator(view))
		return
	}
	view.Result = &result
	s.page(w, r, http.StatusOK, "Calculator", sess.viewer(), templates.Calculator(view))
}
