package web

import (
	"errors"
	"io"
	"net/http"
	"strings"

	"github.com/tariffdesk/tariffdesk/internal/services/web/apiclient"
	"github.com/tariffdesk/tariffdesk/internal/services/web/templates"
)

// maxUploadBytes bounds the PDF accepted from the browser.
const maxUploadBytes = 10 << 20

func (s *Server) simulationView(r *http.Request, sess session) (templates.SimulationView, error) {
	countries, err := s.api.ListCountries(r.Context(), sess.token)
	if err != nil {
		return templates.SimulationView{}, err
	}
	return templates.SimulationView{Countries: countries}, nil
}

func (s *Server) handleSimulationPage(w http.ResponseWriter, r *http.Request, sess session) {
	view, err := s.simulationView(r, sess)
	if err != nil {
		s.fail(w, r, sess.viewer(), err)
		return
	}
	s.page(w, r, http.StatusOK, "Simulation", sess.viewer(), templates.Simulation(view))
}

func (s *Server) handleSimulate(w http.ResponseWriter, r *http.Request, sess session) {
	view, err := s.simulationView(r, sess)
	if err != nil {
		s.fail(w, r, sess.viewer(), err)
		return
	}
	render := func(status int) {
		s.page(w, r, status, "Simulation", sess.viewer(), templates.Simulation(view))
	}

	r.Body = http.MaxBytesReader(w, r.Body, maxUploadBytes+1<<20)
	file, header, err := r.FormFile("file")
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			view.Error = "The file is larger than 10 MB."
			render(http.StatusRequestEntityTooLarge)
			return
		}
		view.Error = "Choose a PDF file to upload."
		render(http.StatusBadRequest)
		return
	}
	defer file.Close()
	data, err := io.ReadAll(io.LimitReader(file, maxUploadBytes+1))
	if err != nil {
		view.Error = "The upload could not be read."
		render(http.StatusBadRequest)
		return
	}
	if len(data) > maxUploadBytes {
		view.Error = "The file is larger than 10 MB."
		render(http.StatusRequestEntityTooLarge)
		return
	}

	view.Country = strings.TrimSpace(r.FormValue("country"))
	prediction, err := s.api.Predict(r.Context(), sess.token, header.Filename, view.Country, data)
	if err != nil {
		apiErr, ok := apiclient.AsError(err)
		if !ok || apiErr.Status == http.StatusUnauthorized {
			s.fail(w, r, sess.viewer(), err)
			return
		}
		view.Error = apiErr.Message
		render(apiErr.Status)
		return
	}
	view.Prediction = &prediction
	render(http.StatusOK)
}
