// Package seed loads a development catalog and admin accounts into the API
// store.
package seed

import (
	"bytes"
	"context"
	_ "embed"
	"errors"
	"fmt"
	"io"

	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"github.com/tariffdesk/tariffdesk/internal/platform/logging"
	"github.com/tariffdesk/tariffdesk/internal/services/api/country"
	"github.com/tariffdesk/tariffdesk/internal/services/api/product"
	"github.com/tariffdesk/tariffdesk/internal/services/api/storage"
	"github.com/tariffdesk/tariffdesk/internal/services/api/user"
)

//go:embed seed.yaml
var defaultFile []byte

// File is the seed document.
type File struct {
	Countries []Country `yaml:"countries"`
	Products  []Product `yaml:"products"`
	Admins    []Account `yaml:"admins"`
}

// Country is a seeded country. Codes follow the WITS codelist.
type Country struct {
	Code string `yaml:"code"`
	Name string `yaml:"name"`
}

type Product struct {
	HTSCode     string `yaml:"hts_code"`
	Name        string `yaml:"name"`
	Description string `yaml:"description"`
}

// Account is a seeded login. Role is user, admin or super_admin.
type Account struct {
	Email    string `yaml:"email"`
	Password string `yaml:"password"`
	Role     string `yaml:"role"`
}

// Default returns the embedded development seed.
func Default() (File, error) {
	return Parse(defaultFile)
}

// Parse decodes a seed document, rejecting unknown keys.
func Parse(data []byte) (File, error) {
	var f File
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&f); err != nil && !errors.Is(err, io.EOF) {
		return File{}, fmt.Errorf("decode seed file: %w", err)
	}
	return f, nil
}

// Store is the persistence the seed writes through.
type Store interface {
	PutCountry(ctx context.Context, c country.Country) error
	PutProduct(ctx context.Context, p product.Product) error
	GetUser(ctx context.Context, email string) (user.User, error)
	PutUser(ctx context.Context, u user.User) error
}

// Result counts the records written.
type Result struct {
	Countries int
	Products  int
	Accounts  int
	// Unchanged counts accounts that already had the seeded role and password.
	Unchanged int
}

// Apply upserts every record in f. Running it twice leaves the store as it
// was after the first run. Every record is validated before the first write.
func Apply(ctx context.Context, store Store, f File, bcryptCost int, logger *zap.Logger) (Result, error) {
	logger = logging.OrNop(logger).Named("seed")
	countries, products, accounts, err := validate(f)
	if err != nil {
		return Result{}, err
	}

	var result Result
	for _, c := range countries {
		if err := store.PutCountry(ctx, c); err != nil {
			return result, err
		}
		result.Countries++
	}
	for _, p := range products {
		if err := store.PutProduct(ctx, p); err != nil {
			return result, err
		}
		result.Products++
	}
	for _, a := range accounts {
		written, err := putAccount(ctx, store, a, bcryptCost)
		if err != nil {
			return result, fmt.Errorf("account %q: %w", a.Email, err)
		}
		if !written {
			result.Unchanged++
			continue
		}
		result.Accounts++
	}
	logger.Info("seed applied",
		zap.Int("countries", result.Countries),
		zap.Int("products", result.Products),
		zap.Int("accounts", result.Accounts),
		zap.Int("unchanged_accounts", result.Unchanged),
	)
	return result, nil
}

// account is a seed account after normalization.
type account struct {
	Email    string
	Password string
	Role     user.Role
}

func validate(f File) ([]country.Country, []product.Product, []account, error) {
	countries := make([]country.Country, 0, len(f.Countries))
	for _, raw := range f.Countries {
		c, err := country.Normalize(country.Country{Code: raw.Code, Name: raw.Name})
		if err != nil {
			return nil, nil, nil, fmt.Errorf("country %q: %w", raw.Code, err)
		}
		countries = append(countries, c)
	}
	products := make([]product.Product, 0, len(f.Products))
	for _, raw := range f.Products {
		p, err := product.Normalize(product.Product{HTSCode: raw.HTSCode, Name: raw.Name, Description: raw.Description, Enabled: true})
		if err != nil {
			return nil, nil, nil, fmt.Errorf("product %q: %w", raw.HTSCode, err)
		}
		products = append(products, p)
	}
	accounts := make([]account, 0, len(f.Admins))
	for _, raw := range f.Admins {
		role, err := user.ParseRole(raw.Role)
		if err != nil {
			return nil, nil, nil, fmt.Errorf("account %q: %w", raw.Email, err)
		}
		email, err := user.NormalizeEmail(raw.Email)
		if err != nil {
			return nil, nil, nil, fmt.Errorf("account %q: %w", raw.Email, err)
		}
		if err := user.ValidatePassword(raw.Password); err != nil {
			return nil, nil, nil, fmt.Errorf("account %q: %w", raw.Email, err)
		}
		accounts = append(accounts, account{Email: email, Password: raw.Password, Role: role})
	}
	return countries, products, accounts, nil
}

// putAccount writes the account unless it already matches.
func putAccount(ctx context.Context, store Store, a account, cost int) (bool, error) {
	existing, err := store.GetUser(ctx, a.Email)
	switch {
	case err == nil:
		same, err := user.CheckPassword(existing.PasswordHash, a.Password)
		if err != nil {
			return false, err
		}
		if same && existing.Role == a.Role {
			return false, nil
		}
	case !errors.Is(err, storage.ErrNotFound):
		return false, err
	}
	u, err := user.New(a.Email, a.Password, a.Role, cost, nil)
	if err != nil {
		return false, err
	}
	if err := store.PutUser(ctx, u); err != nil {
		return false, err
	}
	return true, nil
}
