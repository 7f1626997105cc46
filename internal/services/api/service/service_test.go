package service

import (
	"context"
	"fmt"
	"math"
	"path/filepath"
	"testing"
	"time"

	"golang.org/x/crypto/bcrypt"

	apperrors "github.com/tariffdesk/tariffdesk/internal/platform/errors"
	"github.com/tariffdesk/tariffdesk/internal/services/api/country"
	"github.com/tariffdesk/tariffdesk/internal/services/api/product"
	"github.com/tariffdesk/tariffdesk/internal/services/api/storage/sqlite"
	"github.com/tariffdesk/tariffdesk/internal/services/api/tariff"
	"github.com/tariffdesk/tariffdesk/internal/services/api/user"
)

var testNow = time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)

func openStore(t *testing.T) *sqlite.Store {
	t.Helper()
	store, err := sqlite.Open(context.Background(), filepath.Join(t.TempDir(), "api.db"))
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func newTestTariffs(t *testing.T) (*Tariffs, *Catalog) {
	t.Helper()
	store := openStore(t)
	catalog := NewCatalog(store)
	for _, c := range []country.Country{{Code: "sg", Name: "Singapore"}, {Code: "US", Name: "United States"}} {
		if _, err := catalog.CreateCountry(context.Background(), c); err != nil {
			t.Fatalf("create country: %v", err)
		}
	}
	seq := 0
	tariffs := NewTariffs(store)
	tariffs.clock = func() time.Time { return testNow }
	tariffs.newID = func() (string, error) {
		seq++
		return fmt.Sprintf("tariff-%d", seq), nil
	}
	return tariffs, catalog
}

func date(t *testing.T, value string) time.Time {
	t.Helper()
	d, err := tariff.ParseDate(value)
	if err != nil {
		t.Fatalf("parse date: %v", err)
	}
	return d
}

func floatPtr(v float64) *float64 { return &v }

func requireCode(t *testing.T, err error, code apperrors.Code) {
	t.Helper()
	if got := apperrors.CodeOf(err); got != code {
		t.Fatalf("error code = %q, want %q (err=%v)", got, code, err)
	}
}

func addLaptopTariff(t *testing.T, s *Tariffs, effective string, percent float64) tariff.Tariff {
	t.Helper()
	created, err := s.Add(context.Background(), tariff.AddInput{
		OriginCountry:    "SG",
		DestCountry:      "US",
		EffectiveDate:    date(t, effective),
		AdValoremPercent: floatPtr(percent),
		HTSCode:          "8471.30",
		Products:         []tariff.ProductMeta{{Name: "Laptops"}},
	}, "admin@example.com")
	if err != nil {
		t.Fatalf("add tariff: %v", err)
	}
	return created
}

func TestCatalogCountryErrors(t *testing.T) {
	_, catalog := newTestTariffs(t)
	ctx := context.Background()

	_, err := catalog.GetCountry(ctx, "zz")
	requireCode(t, err, apperrors.CodeCountryNotFound)
	_, err = catalog.CreateCountry(ctx, country.Country{Code: "S", Name: "Short"})
	requireCode(t, err, apperrors.CodeValidation)
	_, err = catalog.CreateCountry(ctx, country.Country{Code: "SG", Name: "Again"})
	requireCode(t, err, apperrors.CodeCountryExists)

	updated, err := catalog.UpdateCountry(ctx, "sg", " Republic of Singapore ")
	if err != nil {
		t.Fatalf("update country: %v", err)
	}
	if updated != (country.Country{Code: "SG", Name: "Republic of Singapore"}) {
		t.Fatalf("updated = %+v", updated)
	}
	requireCode(t, catalog.DeleteCountry(ctx, "ZZ"), apperrors.CodeCountryNotFound)
}

func TestCatalogProductUpdateAndDelete(t *testing.T) {
	_, catalog := newTestTariffs(t)
	ctx := context.Background()

	if _, err := catalog.CreateProduct(ctx, product.Product{HTSCode: "8517.12", Name: "Phones", Enabled: true}); err != nil {
		t.Fatalf("create product: %v", err)
	}
	desc := "Cellular handsets"
	updated, err := catalog.UpdateProduct(ctx, "851712", ProductUpdate{Description: &desc})
	if err != nil {
		t.Fatalf("update product: %v", err)
	}
	if updated.Name != "Phones" || updated.Description != desc || !updated.Enabled {
		t.Fatalf("updated = %+v", updated)
	}
	_, err = catalog.UpdateProduct(ctx, "999999", ProductUpdate{Description: &desc})
	requireCode(t, err, apperrors.CodeProductNotFound)

	if err := catalog.DeleteProduct(ctx, "851712", true); err != nil {
		t.Fatalf("soft delete: %v", err)
	}
	got, err := catalog.GetProduct(ctx, "851712")
	if err != nil {
		t.Fatalf("get soft deleted: %v", err)
	}
	if got.Enabled {
		t.Fatalf("product still enabled")
	}
	requireCode(t, catalog.DeleteProduct(ctx, "999999", false), apperrors.CodeProductNotFound)
}

func TestCalculateWithTariff(t *testing.T) {
	s, _ := newTestTariffs(t)
	ctx := context.Background()
	created := addLaptopTariff(t, s, "2024-01-01", 10)

	got, err := s.Calculate(ctx, tariff.CalculationInput{
		Product:       "Laptops",
		OriginCountry: "sg",
		DestCountry:   "us",
		Quantity:      10,
		UnitPrice:     100,
	})
	if err != nil {
		t.Fatalf("calculate: %v", err)
	}
	if got.TariffID != created.ID || math.Abs(got.Duty-100) > 1e-9 || math.Abs(got.TotalImportCost-1100) > 1e-9 {
		t.Fatalf("calculation = %+v", got)
	}

	_, err = s.Calculate(ctx, tariff.CalculationInput{
		Product:       "Laptops",
		OriginCountry: "US",
		DestCountry:   "SG",
		Quantity:      1,
		UnitPrice:     1,
	})
	requireCode(t, err, apperrors.CodeNoTariffFound)
}

func TestCalculateDomesticSkipsLookup(t *testing.T) {
	s, _ := newTestTariffs(t)
	got, err := s.Calculate(context.Background(), tariff.CalculationInput{
		Product:       "Anything",
		OriginCountry: "SG",
		DestCountry:   "SG",
		Quantity:      2,
		UnitPrice:     50,
	})
	if err != nil {
		t.Fatalf("calculate: %v", err)
	}
	if got.Duty != 0 || got.TotalImportCost != 100 || got.TariffID != "" {
		t.Fatalf("calculation = %+v", got)
	}
}

func TestResolvePicksTariffInForce(t *testing.T) {
	s, _ := newTestTariffs(t)
	ctx := context.Background()
	old := addLaptopTariff(t, s, "2023-01-01", 12)
	current := addLaptopTariff(t, s, "2024-06-01", 8)

	for _, tc := range []struct {
		day  string
		want string
	}{
		{day: "2023-07-01", want: old.ID},
		{day: "2024-05-31", want: old.ID},
		{day: "2024-06-01", want: current.ID},
	} {
		got, err := s.Resolve(ctx, tariff.ResolveQuery{Product: "847130", Date: date(t, tc.day), OriginCountry: "SG", DestCountry: "US"})
		if err != nil {
			t.Fatalf("resolve %s: %v", tc.day, err)
		}
		if got.ID != tc.want {
			t.Fatalf("resolve %s = %s, want %s", tc.day, got.ID, tc.want)
		}
	}

	_, err := s.Resolve(ctx, tariff.ResolveQuery{Product: "Laptops", Date: date(t, "2022-01-01"), OriginCountry: "SG", DestCountry: "US"})
	requireCode(t, err, apperrors.CodeNoTariffFound)
}

func TestSoftDeleteRetiresTariff(t *testing.T) {
	s, _ := newTestTariffs(t)
	ctx := context.Background()
	created := addLaptopTariff(t, s, "2024-01-01", 10)

	if err := s.Delete(ctx, created.ID, true); err != nil {
		t.Fatalf("soft delete: %v", err)
	}
	got, err := s.Get(ctx, created.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.ExpiryDate == nil || tariff.FormatDate(*got.ExpiryDate) != "2023-12-31" {
		t.Fatalf("expiry = %v", got.ExpiryDate)
	}
	_, err = s.Resolve(ctx, tariff.ResolveQuery{Product: "Laptops", Date: date(t, "2024-02-01"), OriginCountry: "SG", DestCountry: "US"})
	requireCode(t, err, apperrors.CodeNoTariffFound)

	if err := s.Delete(ctx, created.ID, false); err != nil {
		t.Fatalf("hard delete: %v", err)
	}
	_, err = s.Get(ctx, created.ID)
	requireCode(t, err, apperrors.CodeTariffNotFound)
}

func TestAddAndRemoveProduct(t *testing.T) {
	s, _ := newTestTariffs(t)
	ctx := context.Background()
	created := addLaptopTariff(t, s, "2024-01-01", 10)

	_, err := s.AddProduct(ctx, created.ID, ProductLink{Name: "Desktops"})
	requireCode(t, err, apperrors.CodeValidation)

	got, err := s.AddProduct(ctx, created.ID, ProductLink{Name: "Desktops", HTSCode: "847170"})
	if err != nil {
		t.Fatalf("add product: %v", err)
	}
	if !got.HasProduct("847170") {
		t.Fatalf("products = %+v", got.Products)
	}
	_, err = s.AddProduct(ctx, created.ID, ProductLink{Name: "Desktops"})
	requireCode(t, err, apperrors.CodeProductAlreadyLinked)

	got, err = s.RemoveProduct(ctx, created.ID, "847170")
	if err != nil {
		t.Fatalf("remove product: %v", err)
	}
	if got.HasProduct("847170") {
		t.Fatalf("product still linked")
	}
	_, err = s.RemoveProduct(ctx, created.ID, "847170")
	requireCode(t, err, apperrors.CodeProductNotLinked)
	_, err = s.RemoveProduct(ctx, created.ID, "999999")
	requireCode(t, err, apperrors.CodeProductNotFound)
	_, err = s.RemoveProduct(ctx, "missing", "847170")
	requireCode(t, err, apperrors.CodeTariffNotFound)
}

func TestUpdateRevalidates(t *testing.T) {
	s, _ := newTestTariffs(t)
	ctx := context.Background()
	created := addLaptopTariff(t, s, "2024-01-01", 10)

	rate := 0.2
	updated, err := s.Update(ctx, created.ID, tariff.UpdateInput{AdValoremRate: &rate})
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if updated.AdValoremRate != 0.2 {
		t.Fatalf("rate = %v", updated.AdValoremRate)
	}
	expiry := date(t, "2023-01-01")
	_, err = s.Update(ctx, created.ID, tariff.UpdateInput{ExpiryDate: &expiry})
	requireCode(t, err, apperrors.CodeValidation)
}

func TestListByFilterAndHTSCode(t *testing.T) {
	s, _ := newTestTariffs(t)
	ctx := context.Background()
	addLaptopTariff(t, s, "2024-01-01", 10)

	got, err := s.List(ctx, `origin_country = "SG"`, "")
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(got) != 1 {
		t.Fatalf("filtered = %+v", got)
	}
	got, err = s.List(ctx, "", "8471.30")
	if err != nil {
		t.Fatalf("list by hts: %v", err)
	}
	if len(got) != 1 {
		t.Fatalf("by hts = %+v", got)
	}
	_, err = s.List(ctx, `origin_country = `, "")
	requireCode(t, err, apperrors.CodeInvalidFilter)
}

func newTestAccounts(t *testing.T) *Accounts {
	t.Helper()
	accounts := NewAccounts(openStore(t), bcrypt.MinCost)
	accounts.clock = func() time.Time { return testNow }
	return accounts
}

func TestRegisterAndAuthenticate(t *testing.T) {
	accounts := newTestAccounts(t)
	ctx := context.Background()

	u, err := accounts.Register(ctx, " Ana@Example.com ", "Secret123")
	if err != nil {
		t.Fatalf("register: %v", err)
	}
	if u.Email != "ana@example.com" || u.Role != user.RoleUser {
		t.Fatalf("user = %+v", u)
	}
	_, err = accounts.Register(ctx, "ana@example.com", "Secret123")
	requireCode(t, err, apperrors.CodeUserExists)
	_, err = accounts.Register(ctx, "bo@example.com", "short")
	requireCode(t, err, apperrors.CodeValidation)

	if _, err := accounts.Authenticate(ctx, "ANA@example.com", "Secret123"); err != nil {
		t.Fatalf("authenticate: %v", err)
	}
	_, err = accounts.Authenticate(ctx, "ana@example.com", "Wrong1234")
	requireCode(t, err, apperrors.CodeInvalidCredentials)
	_, err = accounts.Authenticate(ctx, "nobody@example.com", "Secret123")
	requireCode(t, err, apperrors.CodeUserNotFound)
	if err.Error() != "we couldn't find an account with that email" {
		t.Fatalf("message = %q", err.Error())
	}
}

func TestChangePassword(t *testing.T) {
	accounts := newTestAccounts(t)
	ctx := context.Background()
	if _, err := accounts.Register(ctx, "ana@example.com", "Secret123"); err != nil {
		t.Fatalf("register: %v", err)
	}

	requireCode(t, accounts.ChangePassword(ctx, "ana@example.com", "Nope12345", "Better123"), apperrors.CodeInvalidCredentials)
	requireCode(t, accounts.ChangePassword(ctx, "ana@example.com", "Secret123", "weak"), apperrors.CodeValidation)
	if err := accounts.ChangePassword(ctx, "ana@example.com", "Secret123", "Better123"); err != nil {
		t.Fatalf("change password: %v", err)
	}
	if _, err := accounts.Authenticate(ctx, "ana@example.com", "Better123"); err != nil {
		t.Fatalf("authenticate with new password: %v", err)
	}
}

func TestRoleTransitionsAndDelete(t *testing.T) {
	accounts := newTestAccounts(t)
	ctx := context.Background()
	store := accounts.store
	for _, seed := range []struct {
		email string
		role  user.Role
	}{
		{"root@example.com", user.RoleSuperAdmin},
		{"admin@example.com", user.RoleAdmin},
		{"ana@example.com", user.RoleUser},
	} {
		u, err := user.New(seed.email, "Secret123", seed.role, bcrypt.MinCost, accounts.clock)
		if err != nil {
			t.Fatalf("new user: %v", err)
		}
		if err := store.CreateUser(ctx, u); err != nil {
			t.Fatalf("create user: %v", err)
		}
	}

	upgraded, err := accounts.UpgradeRole(ctx, "admin@example.com", "ana@example.com")
	if err != nil {
		t.Fatalf("upgrade: %v", err)
	}
	if upgraded.Role != user.RoleAdmin {
		t.Fatalf("role = %q", upgraded.Role)
	}
	_, err = accounts.UpgradeRole(ctx, "admin@example.com", "ana@example.com")
	requireCode(t, err, apperrors.CodeInvalidRoleTransition)

	_, err = accounts.DowngradeRole(ctx, "admin@example.com", "ana@example.com")
	requireCode(t, err, apperrors.CodeForbidden)
	if _, err := accounts.DowngradeRole(ctx, "root@example.com", "ana@example.com"); err != nil {
		t.Fatalf("downgrade: %v", err)
	}

	requireCode(t, accounts.Delete(ctx, "admin@example.com", "root@example.com"), apperrors.CodeForbidden)
	requireCode(t, accounts.Delete(ctx, "root@example.com", "root@example.com"), apperrors.CodeInvalidRoleTransition)
	if err := accounts.Delete(ctx, "admin@example.com", "ana@example.com"); err != nil {
		t.Fatalf("delete: %v", err)
	}
	_, err = accounts.Get(ctx, "ana@example.com")
	requireCode(t, err, apperrors.CodeUserNotFound)
}
