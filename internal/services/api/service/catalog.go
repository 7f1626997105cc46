package service

import (
	"context"
	"fmt"

	apperrors "github.com/tariffdesk/tariffdesk/internal/platform/errors"
	"github.com/tariffdesk/tariffdesk/internal/services/api/country"
	"github.com/tariffdesk/tariffdesk/internal/services/api/product"
	"github.com/tariffdesk/tariffdesk/internal/services/api/storage"
)

// CatalogStore is the persistence needed by Catalog.
type CatalogStore interface {
	storage.CountryStore
	storage.ProductStore
}

// Catalog maintains countries and products.
type Catalog struct {
	store CatalogStore
}

// NewCatalog creates a catalog service.
func NewCatalog(store CatalogStore) *Catalog {
	return &Catalog{store: store}
}

func (c *Catalog) configured() error {
	if c == nil || c.store == nil {
		return fmt.Errorf("catalog store is not configured")
	}
	return nil
}

// CreateCountry validates and stores a new country.
func (c *Catalog) CreateCountry(ctx context.Context, in country.Country) (country.Country, error) {
	if err := c.configured(); err != nil {
		return country.Country{}, err
	}
	normalized, err := country.Normalize(in)
	if err != nil {
		return country.Country{}, err
	}
	if err := c.store.CreateCountry(ctx, normalized); err != nil {
		return country.Country{}, err
	}
	return normalized, nil
}

// GetCountry returns one country.
func (c *Catalog) GetCountry(ctx context.Context, code string) (country.Country, error) {
	if err := c.configured(); err != nil {
		return country.Country{}, err
	}
	code = country.NormalizeCode(code)
	found, err := c.store.GetCountry(ctx, code)
	if err != nil {
		return country.Country{}, notFound(err, apperrors.CodeCountryNotFound, "country not found: "+code)
	}
	return found, nil
}

// ListCountries returns every country ordered by name.
func (c *Catalog) ListCountries(ctx context.Context) ([]country.Country, error) {
	if err := c.configured(); err != nil {
		return nil, err
	}
	return c.store.ListCountries(ctx)
}

// UpdateCountry renames a country.
func (c *Catalog) UpdateCountry(ctx context.Context, code, name string) (country.Country, error) {
	if err := c.configured(); err != nil {
		return country.Country{}, err
	}
	updated, err := country.Normalize(country.Country{Code: code, Name: name})
	if err != nil {
		return country.Country{}, err
	}
	if err := c.store.UpdateCountry(ctx, updated); err != nil {
		return country.Country{}, notFound(err, apperrors.CodeCountryNotFound, "country not found: "+updated.Code)
	}
	return updated, nil
}

// DeleteCountry removes a country that no tariff references.
func (c *Catalog) DeleteCountry(ctx context.Context, code string) error {
	if err := c.configured(); err != nil {
		return err
	}
	code = country.NormalizeCode(code)
	return notFound(c.store.DeleteCountry(ctx, code), apperrors.CodeCountryNotFound, "country not found: "+code)
}

// CreateProduct validates and stores a new product.
func (c *Catalog) CreateProduct(ctx context.Context, in product.Product) (product.Product, error) {
	if err := c.configured(); err != nil {
		return product.Product{}, err
	}
	normalized, err := product.Normalize(in)
	if err != nil {
		return product.Product{}, err
	}
	if err := c.store.CreateProduct(ctx, normalized); err != nil {
		return product.Product{}, err
	}
	return normalized, nil
}

// GetProduct returns one product by HTS code.
func (c *Catalog) GetProduct(ctx context.Context, htsCode string) (product.Product, error) {
	if err := c.configured(); err != nil {
		return product.Product{}, err
	}
	code, err := product.NormalizeHTSCode(htsCode)
	if err != nil {
		return product.Product{}, err
	}
	found, err := c.store.GetProduct(ctx, code)
	if err != nil {
		return product.Product{}, notFound(err, apperrors.CodeProductNotFound, "product not found: "+code)
	}
	return found, nil
}

// ListProducts returns enabled products, or all of them when
// includeDisabled is set.
func (c *Catalog) ListProducts(ctx context.Context, includeDisabled bool) ([]product.Product, error) {
	if err := c.configured(); err != nil {
		return nil, err
	}
	return c.store.ListProducts(ctx, includeDisabled)
}

// ProductUpdate is a partial product update; nil fields are unchanged.
type ProductUpdate struct {
	Name        *string
	Description *string
	Enabled     *bool
}

// UpdateProduct applies a partial update to a product.
func (c *Catalog) UpdateProduct(ctx context.Context, htsCode string, in ProductUpdate) (product.Product, error) {
	current, err := c.GetProduct(ctx, htsCode)
	if err != nil {
		return product.Product{}, err
	}
	if in.Name != nil {
		current.Name = *in.Name
	}
	if in.Description != nil {
		current.Description = *in.Description
	}
	if in.Enabled != nil {
		current.Enabled = *in.Enabled
	}
	updated, err := product.Normalize(current)
	if err != nil {
		return product.Product{}, err
	}
	if err := c.store.UpdateProduct(ctx, updated); err != nil {
		return product.Product{}, notFound(err, apperrors.CodeProductNotFound, "product not found: "+updated.HTSCode)
	}
	return updated, nil
}

// DeleteProduct disables a product when soft, otherwise removes it along
// with its tariff links.
func (c *Catalog) DeleteProduct(ctx context.Context, htsCode string, soft bool) error {
	if err := c.configured(); err != nil {
		return err
	}
	code, err := product.NormalizeHTSCode(htsCode)
	if err != nil {
		return err
	}
	return notFound(c.store.DeleteProduct(ctx, code, soft), apperrors.CodeProductNotFound, "product not found: "+code)
}
