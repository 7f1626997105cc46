package httpapi

import (
	"net/http"

	"github.com/tariffdesk/tariffdesk/internal/platform/httpx"
	"github.com/tariffdesk/tariffdesk/internal/services/api/country"
	"github.com/tariffdesk/tariffdesk/internal/services/api/product"
	"github.com/tariffdesk/tariffdesk/internal/services/api/service"
)

func (s *Server) handleListCountries(w http.ResponseWriter, r *http.Request) {
	countries, err := s.catalog.ListCountries(r.Context())
	if err != nil {
		s.fail(w, r, err)
		return
	}
	out := make([]countryJSON, 0, len(countries))
	for _, c := range countries {
		out = append(out, toCountryJSON(c))
	}
	s.ok(w, http.StatusOK, out)
}

func (s *Server) handleGetCountry(w http.ResponseWriter, r *http.Request) {
	found, err := s.catalog.GetCountry(r.Context(), r.PathValue("code"))
	if err != nil {
		s.fail(w, r, err)
		return
	}
	s.ok(w, http.StatusOK, toCountryJSON(found))
}

func (s *Server) handleCreateCountry(w http.ResponseWriter, r *http.Request) {
	var req countryJSON
	if err := httpx.DecodeJSON(w, r, &req); err != nil {
		s.fail(w, r, err)
		return
	}
	created, err := s.catalog.CreateCountry(r.Context(), country.Country{Code: req.Code, Name: req.Name})
	if err != nil {
		s.fail(w, r, err)
		return
	}
	s.ok(w, http.StatusCreated, toCountryJSON(created))
}

func (s *Server) handleUpdateCountry(w http.ResponseWriter, r *http.Request) {
	var req updateCountryRequest
	if err := httpx.DecodeJSON(w, r, &req); err != nil {
		s.fail(w, r, err)
		return
	}
	updated, err := s.catalog.UpdateCountry(r.Context(), r.PathValue("code"), req.Name)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	s.ok(w, http.StatusOK, toCountryJSON(updated))
}

func (s *Server) handleDeleteCountry(w http.ResponseWriter, r *http.Request) {
	if err := s.catalog.DeleteCountry(r.Context(), r.PathValue("code")); err != nil {
		s.fail(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleListProducts(w http.ResponseWriter, r *http.Request) {
	includeDisabled, err := queryBool(r, "include_disabled", false)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	products, err := s.catalog.ListProducts(r.Context(), includeDisabled)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	out := make([]productJSON, 0, len(products))
	for _, p := range products {
		out = append(out, toProductJSON(p))
	}
	s.ok(w, http.StatusOK, out)
}

func (s *Server) handleGetProduct(w http.ResponseWriter, r *http.Request) {
	found, err := s.catalog.GetProduct(r.Context(), r.PathValue("hts"))
	if err != nil {
		s.fail(w, r, err)
		return
	}
	s.ok(w, http.StatusOK, toProductJSON(found))
}

func (s *Server) handleCreateProduct(w http.ResponseWriter, r *http.Request) {
	var req createProductRequest
	if err := httpx.DecodeJSON(w, r, &req); err != nil {
		s.fail(w, r, err)
		return
	}
	enabled := true
	if req.Enabled != nil {
		enabled = *req.Enabled
	}
	created, err := s.catalog.CreateProduct(r.Context(), product.Product{
		HTSCode:     req.HTSCode,
		Name:        req.Name,
		Description: req.Description,
		Enabled:     enabled,
	})
	if err != nil {
		s.fail(w, r, err)
		return
	}
	s.ok(w, http.StatusCreated, toProductJSON(created))
}

func (s *Server) handleUpdateProduct(w http.ResponseWriter, r *http.Request) {
	var req updateProductRequest
	if err := httpx.DecodeJSON(w, r, &req); err != nil {
		s.fail(w, r, err)
		return
	}
	updated, err := s.catalog.UpdateProduct(r.Context(), r.PathValue("hts"), service.ProductUpdate{
		Name:        req.Name,
		Description: req.Description,
		Enabled:     req.Enabled,
	})
	if err != nil {
		s.fail(w, r, err)
		return
	}
	s.ok(w, http.StatusOK, toProductJSON(updated))
}

func (s *Server) handleDeleteProduct(w http.ResponseWriter, r *http.Request) {
	soft, err := queryBool(r, "soft_delete", true)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	if err := s.catalog.DeleteProduct(r.Context(), r.PathValue("hts"), soft); err != nil {
		s.fail(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
