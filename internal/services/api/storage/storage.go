package storage

import (
	"context"
	"time"

	apperrors "github.com/tariffdesk/tariffdesk/internal/platform/errors"
	"github.com/tariffdesk/tariffdesk/internal/services/api/country"
	"github.com/tariffdesk/tariffdesk/internal/services/api/filter"
	"github.com/tariffdesk/tariffdesk/internal/services/api/product"
	"github.com/tariffdesk/tariffdesk/internal/services/api/tariff"
	"github.com/tariffdesk/tariffdesk/internal/services/api/user"
)

// ErrNotFound indicates a requested record is missing.
var ErrNotFound = apperrors.New(apperrors.CodeNotFound, "record not found")

// CountryStore persists trading countries.
type CountryStore interface {
	CreateCountry(ctx context.Context, c country.Country) error
	PutCountry(ctx context.Context, c country.Country) error
	GetCountry(ctx context.Context, code string) (country.Country, error)
	ListCountries(ctx context.Context) ([]country.Country, error)
	UpdateCountry(ctx context.Context, c country.Country) error
	DeleteCountry(ctx context.Context, code string) error
}

// ProductStore persists HTS-coded products.
type ProductStore interface {
	CreateProduct(ctx context.Context, p product.Product) error
	PutProduct(ctx context.Context, p product.Product) error
	GetProduct(ctx context.Context, htsCode string) (product.Product, error)
	FindEnabledProductByName(ctx context.Context, name string) (product.Product, error)
	ListProducts(ctx context.Context, includeDisabled bool) ([]product.Product, error)
	UpdateProduct(ctx context.Context, p product.Product) error
	// DeleteProduct disables the product when soft, otherwise removes it
	// and its tariff links.
	DeleteProduct(ctx context.Context, htsCode string, soft bool) error
}

// TariffQuery narrows a tariff listing.
type TariffQuery struct {
	Filter      filter.SQLCondition
	HTSCode     string
	EnabledOnly bool
}

// TariffStore persists tariffs and their product links.
type TariffStore interface {
	// AddTariff inserts t, creating meta when its HTS code is unknown and
	// superseding the current tariff for the same lane and product in the
	// same transaction.
	AddTariff(ctx context.Context, t tariff.Tariff, meta product.Product) (tariff.Tariff, error)
	GetTariff(ctx context.Context, id string) (tariff.Tariff, error)
	ListTariffs(ctx context.Context, query TariffQuery) ([]tariff.Tariff, error)
	UpdateTariff(ctx context.Context, t tariff.Tariff) error
	DeleteTariff(ctx context.Context, id string) error
	LinkProduct(ctx context.Context, tariffID, htsCode string) error
	UnlinkProduct(ctx context.Context, tariffID, htsCode string) error
	// ListLaneTariffs returns enabled tariffs from origin to dest linked to
	// an enabled product whose name or HTS code equals productKey.
	ListLaneTariffs(ctx context.Context, productKey, origin, dest string) ([]tariff.Tariff, error)
}

// UserStore persists accounts.
type UserStore interface {
	CreateUser(ctx context.Context, u user.User) error
	PutUser(ctx context.Context, u user.User) error
	GetUser(ctx context.Context, email string) (user.User, error)
	ListUsers(ctx context.Context) ([]user.User, error)
	UpdateUserPassword(ctx context.Context, email, passwordHash string, updatedAt time.Time) error
	UpdateUserRole(ctx context.Context, email string, role user.Role, updatedAt time.Time) error
	DeleteUser(ctx context.Context, email string) error
}

// ImportBatch is a unit of bulk-imported tariffs. Countries and products
// are created when missing; tariffs are matched on lane, dates, and HTS
// code.
type ImportBatch struct {
	Countries []country.Country
	Products  []product.Product
	Tariffs   []ImportTariff
}

// ImportTariff is one imported tariff for a single product.
type ImportTariff struct {
	OriginCountry string
	DestCountry   string
	HTSCode       string
	EffectiveDate time.Time
	ExpiryDate    *time.Time
	AdValoremRate float64
	SpecificRate  *float64
}

// ImportResult counts the writes made by an import.
type ImportResult struct {
	Inserted int
	Updated  int
}

// ImportStore applies bulk imports.
type ImportStore interface {
	ImportTariffs(ctx context.Context, batch ImportBatch) (ImportResult, error)
}

// Store is the full persistence surface of the API service.
type Store interface {
	CountryStore
	ProductStore
	TariffStore
	UserStore
	ImportStore
	Close() error
}
