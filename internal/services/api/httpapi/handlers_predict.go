package httpapi

import (
	"context"
	"net/http"

	"github.com/tariffdesk/tariffdesk/internal/platform/timeouts"
	"github.com/tariffdesk/tariffdesk/internal/services/api/predict"
)

func (s *Server) handlePredict(w http.ResponseWriter, r *http.Request) {
	upload, err := predict.ReadUpload(w, r)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Predict)
	defer cancel()
	report, err := s.predictor.Predict(ctx, upload)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	s.ok(w, http.StatusOK, predictionJSON{Filename: upload.Filename, Country: upload.Country, Report: report})
}
