package httpapi

import (
	"net/http"
	"strings"
	"time"

	apperrors "github.com/tariffdesk/tariffdesk/internal/platform/errors"
	"github.com/tariffdesk/tariffdesk/internal/platform/httpx"
	"github.com/tariffdesk/tariffdesk/internal/platform/id"
	"github.com/tariffdesk/tariffdesk/internal/platform/requestctx"
	"github.com/tariffdesk/tariffdesk/internal/services/api/service"
	"github.com/tariffdesk/tariffdesk/internal/services/api/tariff"
)

func (s *Server) handleListTariffs(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	tariffs, err := s.tariffs.List(r.Context(), query.Get("filter"), query.Get("hts_code"))
	if err != nil {
		s.fail(w, r, err)
		return
	}
	s.ok(w, http.StatusOK, toTariffsJSON(tariffs))
}

// tariffID reads the {id} path value. Values NewID could not have produced
// are answered 404 without a store lookup.
func (s *Server) tariffID(w http.ResponseWriter, r *http.Request) (string, bool) {
	value := r.PathValue("id")
	if !id.Valid(value) {
		s.fail(w, r, apperrors.New(apperrors.CodeTariffNotFound, "tariff not found: "+value))
		return "", false
	}
	return value, true
}

func (s *Server) handleGetTariff(w http.ResponseWriter, r *http.Request) {
	tariffID, ok := s.tariffID(w, r)
	if !ok {
		return
	}
	found, err := s.tariffs.Get(r.Context(), tariffID)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	s.ok(w, http.StatusOK, toTariffJSON(found))
}

func (s *Server) handleAddTariff(w http.ResponseWriter, r *http.Request) {
	var req addTariffRequest
	if err := httpx.DecodeJSON(w, r, &req); err != nil {
		s.fail(w, r, err)
		return
	}
	in, err := req.input()
	if err != nil {
		s.fail(w, r, err)
		return
	}
	created, err := s.tariffs.Add(r.Context(), in, requestctx.EmailFromContext(r.Context()))
	if err != nil {
		s.fail(w, r, err)
		return
	}
	s.ok(w, http.StatusCreated, toTariffJSON(created))
}

func (s *Server) handleUpdateTariff(w http.ResponseWriter, r *http.Request) {
	tariffID, ok := s.tariffID(w, r)
	if !ok {
		return
	}
	var req updateTariffRequest
	if err := httpx.DecodeJSON(w, r, &req); err != nil {
		s.fail(w, r, err)
		return
	}
	in, err := req.input()
	if err != nil {
		s.fail(w, r, err)
		return
	}
	updated, err := s.tariffs.Update(r.Context(), tariffID, in)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	s.ok(w, http.StatusOK, toTariffJSON(updated))
}

func (s *Server) handleDeleteTariff(w http.ResponseWriter, r *http.Request) {
	tariffID, ok := s.tariffID(w, r)
	if !ok {
		return
	}
	soft, err := queryBool(r, "soft_delete", true)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	if err := s.tariffs.Delete(r.Context(), tariffID, soft); err != nil {
		s.fail(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleAddTariffProduct(w http.ResponseWriter, r *http.Request) {
	tariffID, ok := s.tariffID(w, r)
	if !ok {
		return
	}
	var req tariffProductRequest
	if err := httpx.DecodeJSON(w, r, &req); err != nil {
		s.fail(w, r, err)
		return
	}
	updated, err := s.tariffs.AddProduct(r.Context(), tariffID, service.ProductLink{
		Name:        req.Name,
		HTSCode:     req.HTSCode,
		Description: req.Description,
	})
	if err != nil {
		s.fail(w, r, err)
		return
	}
	s.ok(w, http.StatusOK, toTariffJSON(updated))
}

func (s *Server) handleRemoveTariffProduct(w http.ResponseWriter, r *http.Request) {
	tariffID, ok := s.tariffID(w, r)
	if !ok {
		return
	}
	updated, err := s.tariffs.RemoveProduct(r.Context(), tariffID, r.PathValue("hts"))
	if err != nil {
		s.fail(w, r, err)
		return
	}
	s.ok(w, http.StatusOK, toTariffJSON(updated))
}

func (s *Server) handleResolveTariff(w http.ResponseWriter, r *http.Request) {
	var req resolveRequest
	if err := httpx.DecodeJSON(w, r, &req); err != nil {
		s.fail(w, r, err)
		return
	}
	day, err := requestDate(req.Date)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	found, err := s.tariffs.Resolve(r.Context(), tariff.ResolveQuery{
		Product:       req.Product,
		Date:          day,
		OriginCountry: req.OriginCountry,
		DestCountry:   req.DestCountry,
	})
	if err != nil {
		s.fail(w, r, err)
		return
	}
	s.ok(w, http.StatusOK, toTariffJSON(found))
}

func (s *Server) handleCalculate(w http.ResponseWriter, r *http.Request) {
	var req calculateRequest
	if err := httpx.DecodeJSON(w, r, &req); err != nil {
		s.fail(w, r, err)
		return
	}
	day, err := requestDate(req.Date)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	result, err := s.tariffs.Calculate(r.Context(), tariff.CalculationInput{
		Product:       req.Product,
		OriginCountry: req.OriginCountry,
		DestCountry:   req.DestCountry,
		Quantity:      req.Quantity,
		UnitPrice:     req.UnitPrice,
		Date:          day,
	})
	if err != nil {
		s.fail(w, r, err)
		return
	}
	s.ok(w, http.StatusOK, toCalculationJSON(result))
}

// requestDate parses an optional YYYY-MM-DD body field; empty stays zero.
func requestDate(value string) (time.Time, error) {
	if strings.TrimSpace(value) == "" {
		return time.Time{}, nil
	}
	day, err := tariff.ParseDate(value)
	if err != nil {
		return time.Time{}, apperrors.Invalid("date", "date must be YYYY-MM-DD")
	}
	return day, nil
}
