// Package apiclient is a typed client for the tariffdesk REST API.
package apiclient

import (
	"bytes"
	"context"
	"encoding/json"
	stderrors "errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/tariffdesk/tariffdesk/internal/platform/httpx"
	platformotel "github.com/tariffdesk/tariffdesk/internal/platform/otel"
	"github.com/tariffdesk/tariffdesk/internal/platform/timeouts"
)

const tracerName = "github.com/tariffdesk/tariffdesk/internal/services/web/apiclient"

// Error is a non-2xx API response.
type Error struct {
	Status  int
	Code    string
	Message string
	Fields  map[string]string
}

func (e *Error) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("api returned %d", e.Status)
	}
	return e.Message
}

// AsError unwraps an API error.
func AsError(err error) (*Error, bool) {
	var apiErr *Error
	if !stderrors.As(err, &apiErr) {
		return nil, false
	}
	return apiErr, true
}

// StatusOf returns the API status carried by err, or 502 for transport
// failures.
func StatusOf(err error) int {
	if err == nil {
		return http.StatusOK
	}
	if apiErr, ok := AsError(err); ok {
		return apiErr.Status
	}
	return http.StatusBadGateway
}

// Client calls the REST API on behalf of a browser session.
type Client struct {
	baseURL string
	http    *http.Client
	tracer  trace.Tracer
}

// New returns a client for the API at baseURL.
func New(baseURL string, httpClient *http.Client) *Client {
	if httpClient == nil {
		httpClient = &http.Client{}
	}
	return &Client{
		baseURL: strings.TrimRight(strings.TrimSpace(baseURL), "/"),
		http:    httpClient,
		tracer:  platformotel.Tracer(tracerName),
	}
}

// BaseURL returns the API root.
func (c *Client) BaseURL() string {
	return c.baseURL
}

type call struct {
	method  string
	path    string
	query   url.Values
	token   string
	body    io.Reader
	ctype   string
	timeout time.Duration
}

func (c *Client) jsonCall(method, path, token string, payload any) (call, error) {
	req := call{method: method, path: path, token: token}
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			return call{}, fmt.Errorf("encode %s %s: %w", method, path, err)
		}
		req.body = bytes.NewReader(data)
		req.ctype = "application/json"
	}
	return req, nil
}

func (c *Client) do(ctx context.Context, req call, out any) error {
	timeout := req.timeout
	if timeout <= 0 {
		timeout = timeouts.APIRequest
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	ctx, span := c.tracer.Start(ctx, req.method+" "+req.path,
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(attribute.String("http.request.method", req.method)),
	)
	defer span.End()

	target := c.baseURL + req.path
	if len(req.query) > 0 {
		target += "?" + req.query.Encode()
	}
	httpReq, err := http.NewRequestWithContext(ctx, req.method, target, req.body)
	if err != nil {
		return fmt.Errorf("build %s %s: %w", req.method, req.path, err)
	}
	httpReq.Header.Set("Accept", "application/json")
	if req.ctype != "" {
		httpReq.Header.Set("Content-Type", req.ctype)
	}
	if req.token != "" {
		httpReq.Header.Set("Authorization", "Bearer "+req.token)
	}
	if id := httpx.RequestIDFromContext(ctx); id != "" {
		httpReq.Header.Set(httpx.RequestIDHeader, id)
	}
	platformotel.InjectHTTP(ctx, httpReq.Header)

	resp, err := c.http.Do(httpReq)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return fmt.Errorf("%s %s: %w", req.method, req.path, err)
	}
	defer resp.Body.Close()
	span.SetAttributes(attribute.Int("http.response.status_code", resp.StatusCode))

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		apiErr := decodeError(resp)
		span.SetStatus(codes.Error, apiErr.Error())
		return apiErr
	}
	if out == nil || resp.StatusCode == http.StatusNoContent {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode %s %s: %w", req.method, req.path, err)
	}
	return nil
}

func decodeError(resp *http.Response) *Error {
	apiErr := &Error{Status: resp.StatusCode}
	var body httpx.ErrorBody
	data, _ := io.ReadAll(io.LimitReader(resp.Body, httpx.MaxJSONBody))
	if err := json.Unmarshal(data, &body); err == nil {
		apiErr.Code = body.Code
		apiErr.Message = body.Error
		apiErr.Fields = body.Fields
	}
	if apiErr.Message == "" {
		apiErr.Message = http.StatusText(resp.StatusCode)
	}
	return apiErr
}

func (c *Client) send(ctx context.Context, method, path, token string, payload, out any) error {
	req, err := c.jsonCall(method, path, token, payload)
	if err != nil {
		return err
	}
	return c.do(ctx, req, out)
}

// Health checks that the API is reachable.
func (c *Client) Health(ctx context.Context) error {
	return c.send(ctx, http.MethodGet, "/health", "", nil, nil)
}

// Register creates a regular account.
func (c *Client) Register(ctx context.Context, email, password string) (User, error) {
	var out User
	err := c.send(ctx, http.MethodPost, "/api/users/register", "", credentials{Email: email, Password: password}, &out)
	return out, err
}

// Login exchanges credentials for a bearer token.
func (c *Client) Login(ctx context.Context, email, password string) (Session, error) {
	var out Session
	err := c.send(ctx, http.MethodPost, "/api/users/login", "", credentials{Email: email, Password: password}, &out)
	return out, err
}

// Logout asks the API to clear its own cookie.
func (c *Client) Logout(ctx context.Context) error {
	return c.send(ctx, http.MethodPost, "/api/users/logout", "", nil, nil)
}

// Me returns the account behind token.
func (c *Client) Me(ctx context.Context, token string) (User, error) {
	var out User
	err := c.send(ctx, http.MethodGet, "/api/users/me", token, nil, &out)
	return out, err
}

// ChangePassword replaces the caller's password.
func (c *Client) ChangePassword(ctx context.Context, token, current, next string) error {
	body := map[string]string{"currentPassword": current, "newPassword": next}
	return c.send(ctx, http.MethodPut, "/api/users/me/password", token, body, nil)
}

// ListUsers lists every account.
func (c *Client) ListUsers(ctx context.Context, token string) ([]User, error) {
	var out []User
	err := c.send(ctx, http.MethodGet, "/api/users", token, nil, &out)
	return out, err
}

// UpgradeRole promotes email to admin.
func (c *Client) UpgradeRole(ctx context.Context, token, email string) (User, error) {
	var out User
	err := c.send(ctx, http.MethodPut, "/api/users/upgrade-role", token, map[string]string{"email": email}, &out)
	return out, err
}

// DowngradeRole demotes an admin to user.
func (c *Client) DowngradeRole(ctx context.Context, token, email string) (User, error) {
	var out User
	err := c.send(ctx, http.MethodPut, "/api/users/downgrade-role", token, map[string]string{"email": email}, &out)
	return out, err
}

// DeleteUser removes an account.
func (c *Client) DeleteUser(ctx context.Context, token, email string) error {
	return c.send(ctx, http.MethodDelete, "/api/users/"+url.PathEscape(email), token, nil, nil)
}

// ListCountries lists the country catalog.
func (c *Client) ListCountries(ctx context.Context, token string) ([]Country, error) {
	var out []Country
	err := c.send(ctx, http.MethodGet, "/api/countries", token, nil, &out)
	return out, err
}

// GetCountry returns one country.
func (c *Client) GetCountry(ctx context.Context, token, code string) (Country, error) {
	var out Country
	err := c.send(ctx, http.MethodGet, "/api/countries/"+url.PathEscape(code), token, nil, &out)
	return out, err
}

// CreateCountry adds a country.
func (c *Client) CreateCountry(ctx context.Context, token string, country Country) (Country, error) {
	var out Country
	err := c.send(ctx, http.MethodPost, "/api/countries", token, country, &out)
	return out, err
}

// UpdateCountry renames a country.
func (c *Client) UpdateCountry(ctx context.Context, token, code, name string) (Country, error) {
	var out Country
	err := c.send(ctx, http.MethodPut, "/api/countries/"+url.PathEscape(code), token, map[string]string{"name": name}, &out)
	return out, err
}

// DeleteCountry removes an unreferenced country.
func (c *Client) DeleteCountry(ctx context.Context, token, code string) error {
	return c.send(ctx, http.MethodDelete, "/api/countries/"+url.PathEscape(code), token, nil, nil)
}

// ListProducts lists the product catalog.
func (c *Client) ListProducts(ctx context.Context, token string, includeDisabled bool) ([]Product, error) {
	var out []Product
	req, err := c.jsonCall(http.MethodGet, "/api/products", token, nil)
	if err != nil {
		return nil, err
	}
	if includeDisabled {
		req.query = url.Values{"include_disabled": {"true"}}
	}
	err = c.do(ctx, req, &out)
	return out, err
}

// GetProduct returns one product.
func (c *Client) GetProduct(ctx context.Context, token, htsCode string) (Product, error) {
	var out Product
	err := c.send(ctx, http.MethodGet, "/api/products/"+url.PathEscape(htsCode), token, nil, &out)
	return out, err
}

// CreateProduct adds a product.
func (c *Client) CreateProduct(ctx context.Context, token string, product NewProduct) (Product, error) {
	var out Product
	err := c.send(ctx, http.MethodPost, "/api/products", token, product, &out)
	return out, err
}

// UpdateProduct applies a partial product update.
func (c *Client) UpdateProduct(ctx context.Context, token, htsCode string, changes ProductChanges) (Product, error) {
	var out Product
	err := c.send(ctx, http.MethodPut, "/api/products/"+url.PathEscape(htsCode), token, changes, &out)
	return out, err
}

// DeleteProduct disables a product, or removes it when soft is false.
func (c *Client) DeleteProduct(ctx context.Context, token, htsCode string, soft bool) error {
	req, err := c.jsonCall(http.MethodDelete, "/api/products/"+url.PathEscape(htsCode), token, nil)
	if err != nil {
		return err
	}
	req.query = url.Values{"soft_delete": {strconv.FormatBool(soft)}}
	return c.do(ctx, req, nil)
}

// ListTariffs lists tariffs matching an optional filter expression and
// HTS code.
func (c *Client) ListTariffs(ctx context.Context, token, filter, htsCode string) ([]Tariff, error) {
	var out []Tariff
	req, err := c.jsonCall(http.MethodGet, "/api/tariffs", token, nil)
	if err != nil {
		return nil, err
	}
	query := url.Values{}
	if strings.TrimSpace(filter) != "" {
		query.Set("filter", filter)
	}
	if strings.TrimSpace(htsCode) != "" {
		query.Set("hts_code", htsCode)
	}
	req.query = query
	err = c.do(ctx, req, &out)
	return out, err
}

// GetTariff returns one tariff.
func (c *Client) GetTariff(ctx context.Context, token, id string) (Tariff, error) {
	var out Tariff
	err := c.send(ctx, http.MethodGet, "/api/tariffs/"+url.PathEscape(id), token, nil, &out)
	return out, err
}

// AddTariff creates a tariff.
func (c *Client) AddTariff(ctx context.Context, token string, in NewTariff) (Tariff, error) {
	var out Tariff
	err := c.send(ctx, http.MethodPost, "/api/tariffs", token, in, &out)
	return out, err
}

// UpdateTariff applies a partial tariff update.
func (c *Client) UpdateTariff(ctx context.Context, token, id string, changes TariffChanges) (Tariff, error) {
	var out Tariff
	err := c.send(ctx, http.MethodPut, "/api/tariffs/"+url.PathEscape(id), token, changes, &out)
	return out, err
}

// DeleteTariff expires a tariff, or removes it when soft is false.
func (c *Client) DeleteTariff(ctx context.Context, token, id string, soft bool) error {
	req, err := c.jsonCall(http.MethodDelete, "/api/tariffs/"+url.PathEscape(id), token, nil)
	if err != nil {
		return err
	}
	req.query = url.Values{"soft_delete": {strconv.FormatBool(soft)}}
	return c.do(ctx, req, nil)
}

// AddTariffProduct links a product to a tariff.
func (c *Client) AddTariffProduct(ctx context.Context, token, id string, link ProductLink) (Tariff, error) {
	var out Tariff
	err := c.send(ctx, http.MethodPost, "/api/tariffs/"+url.PathEscape(id)+"/products", token, link, &out)
	return out, err
}

// RemoveTariffProduct unlinks a product from a tariff.
func (c *Client) RemoveTariffProduct(ctx context.Context, token, id, htsCode string) (Tariff, error) {
	var out Tariff
	path := "/api/tariffs/" + url.PathEscape(id) + "/products/" + url.PathEscape(htsCode)
	err := c.send(ctx, http.MethodDelete, path, token, nil, &out)
	return out, err
}

// ResolveTariff finds the tariff that applies to a shipment on date.
func (c *Client) ResolveTariff(ctx context.Context, token, product, origin, dest, date string) (Tariff, error) {
	var out Tariff
	body := map[string]string{"product": product, "originCountry": origin, "destCountry": dest, "date": date}
	err := c.send(ctx, http.MethodPost, "/api/tariffs/resolve", token, body, &out)
	return out, err
}

// Calculate prices a shipment.
func (c *Client) Calculate(ctx context.Context, token string, in CalculationRequest) (Calculation, error) {
	var out Calculation
	err := c.send(ctx, http.MethodPost, "/api/tariffs/calculate", token, in, &out)
	return out, err
}

// Predict uploads a PDF and returns the generated report.
func (c *Client) Predict(ctx context.Context, token, filename, country string, data []byte) (Prediction, error) {
	var buf bytes.Buffer
	form := multipart.NewWriter(&buf)
	part, err := form.CreatePart(pdfPartHeader(filename))
	if err != nil {
		return Prediction{}, fmt.Errorf("build upload: %w", err)
	}
	if _, err := part.Write(data); err != nil {
		return Prediction{}, fmt.Errorf("build upload: %w", err)
	}
	if strings.TrimSpace(country) != "" {
		if err := form.WriteField("country", country); err != nil {
			return Prediction{}, fmt.Errorf("build upload: %w", err)
		}
	}
	if err := form.Close(); err != nil {
		return Prediction{}, fmt.Errorf("build upload: %w", err)
	}

	var out Prediction
	err = c.do(ctx, call{
		method:  http.MethodPost,
		path:    "/api/predict",
		token:   token,
		body:    &buf,
		ctype:   form.FormDataContentType(),
		timeout: timeouts.Predict,
	}, &out)
	return out, err
}

type credentials struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}
