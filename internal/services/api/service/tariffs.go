package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	apperrors "github.com/tariffdesk/tariffdesk/internal/platform/errors"
	"github.com/tariffdesk/tariffdesk/internal/platform/id"
	"github.com/tariffdesk/tariffdesk/internal/services/api/filter"
	"github.com/tariffdesk/tariffdesk/internal/services/api/product"
	"github.com/tariffdesk/tariffdesk/internal/services/api/storage"
	"github.com/tariffdesk/tariffdesk/internal/services/api/tariff"
)

// TariffStore is the persistence needed by Tariffs.
type TariffStore interface {
	storage.TariffStore
	storage.ProductStore
}

// Tariffs maintains tariffs and prices trades against them.
type Tariffs struct {
	store TariffStore
	clock func() time.Time
	newID func() (string, error)
}

// NewTariffs creates a tariff service.
func NewTariffs(store TariffStore) *Tariffs {
	return &Tariffs{store: store, clock: time.Now, newID: id.NewID}
}

func (s *Tariffs) configured() error {
	if s == nil || s.store == nil {
		return fmt.Errorf("tariff store is not configured")
	}
	return nil
}

func tariffNotFound(err error, tariffID string) error {
	return notFound(err, apperrors.CodeTariffNotFound, "tariff not found: "+tariffID)
}

// Add validates and stores a new tariff, superseding the current tariff for
// the same lane and product.
func (s *Tariffs) Add(ctx context.Context, in tariff.AddInput, createdBy string) (tariff.Tariff, error) {
	if err := s.configured(); err != nil {
		return tariff.Tariff{}, err
	}
	t, meta, err := tariff.New(in, createdBy, s.clock, s.newID)
	if err != nil {
		return tariff.Tariff{}, err
	}
	return s.store.AddTariff(ctx, t, meta)
}

// Get returns one tariff with its products.
func (s *Tariffs) Get(ctx context.Context, tariffID string) (tariff.Tariff, error) {
	if err := s.configured(); err != nil {
		return tariff.Tariff{}, err
	}
	tariffID = strings.TrimSpace(tariffID)
	t, err := s.store.GetTariff(ctx, tariffID)
	if err != nil {
		return tariff.Tariff{}, tariffNotFound(err, tariffID)
	}
	return t, nil
}

// List returns tariffs matching an optional filter expression. A non-empty
// htsCode lists only enabled tariffs linked to that code.
func (s *Tariffs) List(ctx context.Context, filterExpr, htsCode string) ([]tariff.Tariff, error) {
	if err := s.configured(); err != nil {
		return nil, err
	}
	cond, err := filter.ParseTariffFilter(filterExpr)
	if err != nil {
		return nil, err
	}
	query := storage.TariffQuery{Filter: cond}
	if strings.TrimSpace(htsCode) != "" {
		code, err := product.NormalizeHTSCode(htsCode)
		if err != nil {
			return nil, err
		}
		query.HTSCode = code
		query.EnabledOnly = true
	}
	return s.store.ListTariffs(ctx, query)
}

// Update applies a partial update to a tariff.
func (s *Tariffs) Update(ctx context.Context, tariffID string, in tariff.UpdateInput) (tariff.Tariff, error) {
	current, err := s.Get(ctx, tariffID)
	if err != nil {
		return tariff.Tariff{}, err
	}
	updated, err := tariff.Apply(current, in, s.clock)
	if err != nil {
		return tariff.Tariff{}, err
	}
	if err := s.store.UpdateTariff(ctx, updated); err != nil {
		return tariff.Tariff{}, tariffNotFound(err, current.ID)
	}
	return updated, nil
}

// Delete expires a tariff before its effective date when soft, otherwise
// removes it.
func (s *Tariffs) Delete(ctx context.Context, tariffID string, soft bool) error {
	current, err := s.Get(ctx, tariffID)
	if err != nil {
		return err
	}
	if !soft {
		return tariffNotFound(s.store.DeleteTariff(ctx, current.ID), current.ID)
	}
	expiry := tariff.SoftDeleteExpiry(current)
	current.ExpiryDate = &expiry
	current.UpdatedAt = s.clock().UTC()
	return tariffNotFound(s.store.UpdateTariff(ctx, current), current.ID)
}

// ProductLink names a product to link to a tariff. HTSCode and Description
// are used only when no enabled product has the name.
type ProductLink struct {
	Name        string
	HTSCode     string
	Description string
}

// AddProduct links the enabled product named in.Name to a tariff, creating
// the product first when none exists.
func (s *Tariffs) AddProduct(ctx context.Context, tariffID string, in ProductLink) (tariff.Tariff, error) {
	current, err := s.Get(ctx, tariffID)
	if err != nil {
		return tariff.Tariff{}, err
	}
	name := strings.TrimSpace(in.Name)
	if name == "" {
		return tariff.Tariff{}, apperrors.Invalid("name", "product name is required")
	}

	linked, err := s.store.FindEnabledProductByName(ctx, name)
	switch {
	case errors.Is(err, storage.ErrNotFound):
		if strings.TrimSpace(in.HTSCode) == "" {
			return tariff.Tariff{}, apperrors.Invalid("htsCode", "HTS code is required to create product "+name)
		}
		linked, err = product.Normalize(product.Product{
			HTSCode:     in.HTSCode,
			Name:        name,
			Description: in.Description,
			Enabled:     true,
		})
		if err != nil {
			return tariff.Tariff{}, err
		}
		if err := s.store.CreateProduct(ctx, linked); err != nil {
			return tariff.Tariff{}, err
		}
	case err != nil:
		return tariff.Tariff{}, err
	}

	if current.HasProduct(linked.HTSCode) {
		return tariff.Tariff{}, apperrors.New(apperrors.CodeProductAlreadyLinked,
			"product "+linked.HTSCode+" is already linked to this tariff")
	}
	if err := s.store.LinkProduct(ctx, current.ID, linked.HTSCode); err != nil {
		return tariff.Tariff{}, tariffNotFound(err, current.ID)
	}
	return s.Get(ctx, current.ID)
}

// RemoveProduct unlinks a product from a tariff.
func (s *Tariffs) RemoveProduct(ctx context.Context, tariffID, htsCode string) (tariff.Tariff, error) {
	current, err := s.Get(ctx, tariffID)
	if err != nil {
		return tariff.Tariff{}, err
	}
	code, err := product.NormalizeHTSCode(htsCode)
	if err != nil {
		return tariff.Tariff{}, err
	}
	if _, err := s.store.GetProduct(ctx, code); err != nil {
		return tariff.Tariff{}, notFound(err, apperrors.CodeProductNotFound, "product not found: "+code)
	}
	if err := s.store.UnlinkProduct(ctx, current.ID, code); err != nil {
		return tariff.Tariff{}, err
	}
	return s.Get(ctx, current.ID)
}

// Resolve returns the tariff in force for a product between two countries
// on a date.
func (s *Tariffs) Resolve(ctx context.Context, query tariff.ResolveQuery) (tariff.Tariff, error) {
	if err := s.configured(); err != nil {
		return tariff.Tariff{}, err
	}
	query, err := query.Normalize()
	if err != nil {
		return tariff.Tariff{}, err
	}
	candidates, err := s.store.ListLaneTariffs(ctx, query.Product, query.OriginCountry, query.DestCountry)
	if err != nil {
		return tariff.Tariff{}, err
	}
	best, ok := tariff.PickActive(candidates, query.Date)
	if !ok {
		return tariff.Tariff{}, tariff.ErrNoTariff
	}
	return best, nil
}

// Calculate prices a trade. Domestic trade carries no duty and skips the
// tariff lookup.
func (s *Tariffs) Calculate(ctx context.Context, in tariff.CalculationInput) (tariff.Calculation, error) {
	if err := s.configured(); err != nil {
		return tariff.Calculation{}, err
	}
	in, err := in.Normalize(s.clock)
	if err != nil {
		return tariff.Calculation{}, err
	}
	if in.SameCountry() {
		return tariff.Calculate(in, nil)
	}
	applied, err := s.Resolve(ctx, in.ResolveQuery())
	if err != nil {
		return tariff.Calculation{}, err
	}
	return tariff.Calculate(in, &applied)
}
