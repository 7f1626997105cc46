package web

import (
	"bytes"
	"context"
	"io"
	"mime"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/textproto"
	"net/url"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/tariffdesk/tariffdesk/internal/services/api/authn"
	"github.com/tariffdesk/tariffdesk/internal/services/api/httpapi"
	"github.com/tariffdesk/tariffdesk/internal/services/api/service"
	apisqlite "github.com/tariffdesk/tariffdesk/internal/services/api/storage/sqlite"
	"github.com/tariffdesk/tariffdesk/internal/services/api/user"
	"github.com/tariffdesk/tariffdesk/internal/services/web/apiclient"
	"github.com/tariffdesk/tariffdesk/internal/services/web/platform/flash"
	"github.com/tariffdesk/tariffdesk/internal/services/web/platform/sessioncookie"
)

const password = "Secret123"

type harness struct {
	web http.Handler
	api *apiclient.Client
}

func newHarness(t *testing.T) harness {
	t.Helper()
	ctx := context.Background()
	store, err := apisqlite.Open(ctx, filepath.Join(t.TempDir(), "api.db"))
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })
	for _, seed := range []struct {
		email string
		role  user.Role
	}{
		{"root@example.com", user.RoleSuperAdmin},
		{"ana@example.com", user.RoleUser},
	} {
		u, err := user.New(seed.email, password, seed.role, bcrypt.MinCost, nil)
		if err != nil {
			t.Fatalf("new user: %v", err)
		}
		if err := store.PutUser(ctx, u); err != nil {
			t.Fatalf("put user: %v", err)
		}
	}
	issuer, err := authn.NewIssuer(authn.Config{Secret: "0123456789abcdef0123456789abcdef", Issuer: "tariffdesk", TTL: time.Hour})
	if err != nil {
		t.Fatalf("new issuer: %v", err)
	}
	apiServer := httptest.NewServer(httpapi.New(httpapi.Deps{
		Catalog:  service.NewCatalog(store),
		Tariffs:  service.NewTariffs(store),
		Accounts: service.NewAccounts(store, bcrypt.MinCost),
		Issuer:   issuer,
	}).Handler())
	t.Cleanup(apiServer.Close)

	client := apiclient.New(apiServer.URL, apiServer.Client())
	return harness{web: New(Deps{API: client}).Handler(), api: client}
}

// browser replays cookies between requests like a user agent.
type browser struct {
	t       *testing.T
	handler http.Handler
	cookies map[string]*http.Cookie
}

func (h harness) browser(t *testing.T) *browser {
	return &browser{t: t, handler: h.web, cookies: map[string]*http.Cookie{}}
}

func (b *browser) send(req *http.Request) *httptest.ResponseRecorder {
	b.t.Helper()
	for _, c := range b.cookies {
		req.AddCookie(c)
	}
	rr := httptest.NewRecorder()
	b.handler.ServeHTTP(rr, req)
	for _, c := range rr.Result().Cookies() {
		if c.MaxAge < 0 {
			delete(b.cookies, c.Name)
			continue
		}
		b.cookies[c.Name] = c
	}
	return rr
}

func (b *browser) get(path string) *httptest.ResponseRecorder {
	return b.send(httptest.NewRequest(http.MethodGet, path, nil))
}

func (b *browser) post(path string, form url.Values) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	return b.send(req)
}

func (b *browser) login(email string) {
	b.t.Helper()
	rr := b.post("/login", url.Values{"email": {email}, "password": {password}})
	if rr.Code != http.StatusSeeOther || rr.Header().Get("Location") != "/" {
		b.t.Fatalf("login status = %d location = %q body = %s", rr.Code, rr.Header().Get("Location"), rr.Body)
	}
	if b.cookies[sessioncookie.Name] == nil {
		b.t.Fatal("expected session cookie after login")
	}
}

func (b *browser) token() string {
	return b.cookies[sessioncookie.Name].Value
}

func requireBody(t *testing.T, rr *httptest.ResponseRecorder, status int, fragments ...string) {
	t.Helper()
	if rr.Code != status {
		t.Fatalf("status = %d, want %d; body = %s", rr.Code, status, rr.Body)
	}
	body := rr.Body.String()
	for _, fragment := range fragments {
		if !strings.Contains(body, fragment) {
			t.Fatalf("body missing %q:\n%s", fragment, body)
		}
	}
}

func (h harness) seedCatalog(t *testing.T, token string) {
	t.Helper()
	ctx := context.Background()
	for _, c := range []apiclient.Country{{Code: "SG", Name: "Singapore"}, {Code: "US", Name: "United States"}} {
		if _, err := h.api.CreateCountry(ctx, token, c); err != nil {
			t.Fatalf("create country: %v", err)
		}
	}
	if _, err := h.api.CreateProduct(ctx, token, apiclient.NewProduct{HTSCode: "847130", Name: "Laptop"}); err != nil {
		t.Fatalf("create product: %v", err)
	}
}

func TestPagesRequireLogin(t *testing.T) {
	b := newHarness(t).browser(t)
	rr := b.get("/tariffs")
	if rr.Code != http.StatusSeeOther || rr.Header().Get("Location") != "/login" {
		t.Fatalf("status = %d location = %q", rr.Code, rr.Header().Get("Location"))
	}
	requireBody(t, b.get("/login"), http.StatusOK, "Please log in to continue.")
}

func TestLoginFailureRendersForm(t *testing.T) {
	b := newHarness(t).browser(t)
	rr := b.post("/login", url.Values{"email": {"root@example.com"}, "password": {"wrong-password"}})
	requireBody(t, rr, http.StatusUnauthorized, "invalid email or password", `value="root@example.com"`)
}

func TestSignupLogsIn(t *testing.T) {
	b := newHarness(t).browser(t)
	rr := b.post("/signup", url.Values{"email": {"new@example.com"}, "password": {"Welcome42"}, "confirm": {"different"}})
	requireBody(t, rr, http.StatusBadRequest, "passwords do not match")

	rr = b.post("/signup", url.Values{"email": {"new@example.com"}, "password": {"longenough"}, "confirm": {"longenough"}})
	requireBody(t, rr, http.StatusBadRequest, "password must contain an uppercase letter")
	if b.cookies[sessioncookie.Name] != nil {
		t.Fatal("weak password signup should not create a session")
	}

	rr = b.post("/signup", url.Values{"email": {"new@example.com"}, "password": {"Welcome42"}, "confirm": {"Welcome42"}})
	if rr.Code != http.StatusSeeOther || b.cookies[sessioncookie.Name] == nil {
		t.Fatalf("signup status = %d body = %s", rr.Code, rr.Body)
	}
	requireBody(t, b.get("/profile"), http.StatusOK, "new@example.com", "Account created.")
}

func TestAdminTariffWorkflowAndExports(t *testing.T) {
	h := newHarness(t)
	b := h.browser(t)
	b.login("root@example.com")
	h.seedCatalog(t, b.token())

	rr := b.post("/admin/tariffs", url.Values{
		"origin":         {"SG"},
		"dest":           {"US"},
		"effective_date": {"2024-01-01"},
		"ad_valorem":     {"5%"},
		"hts_code":       {"847130"},
	})
	if rr.Code != http.StatusSeeOther || rr.Header().Get("Location") != "/admin/tariffs" {
		t.Fatalf("create status = %d body = %s", rr.Code, rr.Body)
	}
	requireBody(t, b.get("/admin/tariffs"), http.StatusOK, "Singapore → United States", "5.00%", "847130 Laptop")

	requireBody(t, b.get("/tariffs?origin=SG&mode=export"), http.StatusOK, "United States", "Matches: 1", "Avg ad valorem: 0.0500")

	rr = b.get("/tariffs/export.csv?origin=SG&mode=export")
	if rr.Code != http.StatusOK {
		t.Fatalf("csv status = %d body = %s", rr.Code, rr.Body)
	}
	if _, params, err := mime.ParseMediaType(rr.Header().Get("Content-Disposition")); err != nil || params["filename"] != "tariffs_export_Singapore.csv" {
		t.Fatalf("content disposition = %q (%v)", rr.Header().Get("Content-Disposition"), err)
	}
	wantCSV := "from,to,effectiveDate,expiryDate,adValoremRate,specificRate,products\n" +
		`"Singapore","United States","2024-01-01","","0.05","","847130"`
	if rr.Body.String() != wantCSV {
		t.Fatalf("csv =\n%s", rr.Body)
	}

	rr = b.get("/tariffs/export.xlsx?origin=SG&mode=export")
	if rr.Code != http.StatusOK || !bytes.HasPrefix(rr.Body.Bytes(), []byte("PK")) {
		t.Fatalf("xlsx status = %d", rr.Code)
	}

	rr = b.get("/tariffs/export.csv?origin=SG&mode=import")
	if rr.Code != http.StatusSeeOther {
		t.Fatalf("empty export status = %d", rr.Code)
	}
	if b.cookies[flash.CookieName] == nil {
		t.Fatal("expected warning notice for empty export")
	}

	requireBody(t, b.get("/heatmap?origin=SG"), http.StatusOK, "heat-4", "United States")
}

func TestTariffCacheInvalidatedOnAdminChange(t *testing.T) {
	h := newHarness(t)
	b := h.browser(t)
	b.login("root@example.com")
	h.seedCatalog(t, b.token())

	requireBody(t, b.get("/tariffs?origin=SG"), http.StatusOK)
	created, err := h.api.AddTariff(context.Background(), b.token(), apiclient.NewTariff{
		OriginCountry: "SG", DestCountry: "US", EffectiveDate: "2024-01-01", HTSCode: "847130",
	})
	if err != nil {
		t.Fatalf("add tariff: %v", err)
	}
	// Created behind the frontend's back, so the cached empty list is served.
	requireBody(t, b.get("/tariffs?origin=SG"), http.StatusOK, "Matches: 0")

	rr := b.post("/tariffs/refresh", url.Values{"query": {"origin=SG"}})
	if rr.Code != http.StatusSeeOther || rr.Header().Get("Location") != "/tariffs?origin=SG" {
		t.Fatalf("refresh status = %d location = %q", rr.Code, rr.Header().Get("Location"))
	}
	requireBody(t, b.get("/tariffs?origin=SG"), http.StatusOK, "Matches: 1")

	rr = b.post("/admin/tariffs/"+created.ID+"/delete", url.Values{"soft": {"false"}})
	if rr.Code != http.StatusSeeOther {
		t.Fatalf("delete status = %d", rr.Code)
	}
	requireBody(t, b.get("/tariffs?origin=SG"), http.StatusOK, "Matches: 0")
}

func TestCalculator(t *testing.T) {
	h := newHarness(t)
	b := h.browser(t)
	b.login("root@example.com")
	h.seedCatalog(t, b.token())
	rate := 5.0
	if _, err := h.api.AddTariff(context.Background(), b.token(), apiclient.NewTariff{
		OriginCountry: "SG", DestCountry: "US", EffectiveDate: "2024-01-01", HTSCode: "847130", AdValoremRate: &rate,
	}); err != nil {
		t.Fatalf("add tariff: %v", err)
	}

	rr := b.post("/calculator", url.Values{"product": {"Laptop"}, "origin": {"SG"}, "dest": {"US"}, "quantity": {"10"}, "unit_price": {"$1,000"}})
	requireBody(t, rr, http.StatusOK, "5.00%", "500.00", "10,500.00", "10,000.00")

	rr = b.post("/calculator", url.Values{"product": {"Laptop"}, "origin": {"SG"}, "dest": {"US"}, "quantity": {"-1"}, "unit_price": {"abc"}})
	requireBody(t, rr, http.StatusBadRequest, "quantity cannot be negative", "unit price must be a number")
}

func TestRegularUserCannotOpenAdminPages(t *testing.T) {
	b := newHarness(t).browser(t)
	b.login("ana@example.com")
	requireBody(t, b.get("/admin/tariffs"), http.StatusForbidden, "You do not have permission")
	home := b.get("/")
	requireBody(t, home, http.StatusOK, "ana@example.com")
	if strings.Contains(home.Body.String(), "/admin/users") {
		t.Fatal("regular users must not see admin links")
	}
}

func TestUserManagementConfirmsActions(t *testing.T) {
	b := newHarness(t).browser(t)
	b.login("root@example.com")

	requireBody(t, b.get("/admin/users?confirm=upgrade&email=ana@example.com"), http.StatusOK, "Upgrade to admin ana@example.com?")
	rr := b.post("/admin/users/upgrade", url.Values{"email": {"ana@example.com"}})
	if rr.Code != http.StatusSeeOther {
		t.Fatalf("upgrade status = %d", rr.Code)
	}
	requireBody(t, b.get("/admin/users"), http.StatusOK, "User upgraded to admin.", "Downgrade to user")

	rr = b.post("/admin/users/upgrade", url.Values{"email": {"ana@example.com"}})
	if rr.Code != http.StatusSeeOther {
		t.Fatalf("second upgrade status = %d", rr.Code)
	}
	requireBody(t, b.get("/admin/users"), http.StatusOK, "only users can be upgraded to admin")
}

func TestSimulationReportsUnavailablePredictor(t *testing.T) {
	b := newHarness(t).browser(t)
	b.login("ana@example.com")

	var body bytes.Buffer
	form := multipart.NewWriter(&body)
	header := make(textproto.MIMEHeader)
	header.Set("Content-Disposition", `form-data; name="file"; filename="policy.pdf"`)
	header.Set("Content-Type", "application/pdf")
	part, err := form.CreatePart(header)
	if err != nil {
		t.Fatalf("create part: %v", err)
	}
	_, _ = io.WriteString(part, "%PDF-1.7 test")
	_ = form.Close()

	req := httptest.NewRequest(http.MethodPost, "/simulation", &body)
	req.Header.Set("Content-Type", form.FormDataContentType())
	requireBody(t, b.send(req), http.StatusServiceUnavailable, "prediction is not configured")
}

func TestLogoutClearsSession(t *testing.T) {
	b := newHarness(t).browser(t)
	b.login("ana@example.com")
	rr := b.post("/logout", nil)
	if rr.Code != http.StatusSeeOther || b.cookies[sessioncookie.Name] != nil {
		t.Fatalf("logout status = %d cookies = %v", rr.Code, b.cookies)
	}
	if rr := b.get("/profile"); rr.Code != http.StatusSeeOther {
		t.Fatalf("profile after logout status = %d", rr.Code)
	}
}
