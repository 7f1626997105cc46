package apiclient

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestClientSendsBearerTokenAndDecodes(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/tariffs" {
			t.Errorf("path = %q", r.URL.Path)
		}
		if got := r.Header.Get("Authorization"); got != "Bearer tok" {
			t.Errorf("authorization = %q", got)
		}
		if got := r.URL.Query().Get("hts_code"); got != "847130" {
			t.Errorf("hts_code = %q", got)
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, `[{"id":"t1","originCountry":"SG","destCountry":"US","effectiveDate":"2024-01-01","expiryDate":null,"adValoremRate":0.05,"products":[{"htsCode":"847130","name":"Laptop"}]}]`)
	}))
	defer srv.Close()

	client := New(srv.URL+"/", srv.Client())
	tariffs, err := client.ListTariffs(context.Background(), "tok", "", "847130")
	if err != nil {
		t.Fatalf("list tariffs: %v", err)
	}
	if len(tariffs) != 1 {
		t.Fatalf("tariffs = %d, want 1", len(tariffs))
	}
	if diff := cmp.Diff([]string{"847130"}, tariffs[0].HTSCodes()); diff != "" {
		t.Fatalf("hts codes mismatch (-want +got):\n%s", diff)
	}
	if tariffs[0].ExpiryDate != nil {
		t.Fatalf("expiry = %v, want nil", *tariffs[0].ExpiryDate)
	}
}

func TestClientMapsErrorBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusConflict)
		_, _ = io.WriteString(w, `{"error":"an account with that email already exists","code":"USER_EXISTS"}`)
	}))
	defer srv.Close()

	_, err := New(srv.URL, nil).Register(context.Background(), "a@example.com", "password1")
	apiErr, ok := AsError(err)
	if !ok {
		t.Fatalf("expected api error, got %v", err)
	}
	if apiErr.Status != http.StatusConflict || apiErr.Code != "USER_EXISTS" {
		t.Fatalf("error = %+v", apiErr)
	}
	if apiErr.Error() != "an account with that email already exists" {
		t.Fatalf("message = %q", apiErr.Error())
	}
	if StatusOf(err) != http.StatusConflict {
		t.Fatalf("status = %d", StatusOf(err))
	}
}

func TestClientErrorWithoutBodyUsesStatusText(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
	}))
	defer srv.Close()

	err := New(srv.URL, nil).DeleteUser(context.Background(), "tok", "x@example.com")
	if err == nil || err.Error() != "Forbidden" {
		t.Fatalf("err = %v", err)
	}
}

func TestTransportFailureIsBadGateway(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	srv.Close()

	err := New(srv.URL, nil).Health(context.Background())
	if err == nil {
		t.Fatal("expected error")
	}
	if StatusOf(err) != http.StatusBadGateway {
		t.Fatalf("status = %d", StatusOf(err))
	}
}

func TestDeleteTariffSendsSoftFlag(t *testing.T) {
	var gotQuery string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodDelete {
			t.Errorf("method = %s", r.Method)
		}
		gotQuery = r.URL.RawQuery
		w.WriteHeader(http.StatusNoContent)
	}))
	defer srv.Close()

	if err := New(srv.URL, nil).DeleteTariff(context.Background(), "tok", "t1", false); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if gotQuery != "soft_delete=false" {
		t.Fatalf("query = %q", gotQuery)
	}
}

func TestPredictUploadsMultipartPDF(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		file, header, err := r.FormFile("file")
		if err != nil {
			t.Errorf("form file: %v", err)
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		defer file.Close()
		data, _ := io.ReadAll(file)
		if header.Filename != "invoice.pdf" || header.Header.Get("Content-Type") != "application/pdf" {
			t.Errorf("header = %+v", header.Header)
		}
		if !strings.HasPrefix(string(data), "%PDF-") {
			t.Errorf("data = %q", data)
		}
		_ = json.NewEncoder(w).Encode(Prediction{Filename: header.Filename, Country: r.FormValue("country"), Report: "ok"})
	}))
	defer srv.Close()

	got, err := New(srv.URL, nil).Predict(context.Background(), "tok", "invoice.pdf", "US", []byte("%PDF-1.7 body"))
	if err != nil {
		t.Fatalf("predict: %v", err)
	}
	if diff := cmp.Diff(Prediction{Filename: "invoice.pdf", Country: "US", Report: "ok"}, got); diff != "" {
		t.Fatalf("prediction mismatch (-want +got):\n%s", diff)
	}
}

func TestCreateProductOmitsUnsetEnabled(t *testing.T) {
	var bodies []map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var body map[string]any
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			t.Errorf("decode body: %v", err)
		}
		bodies = append(bodies, body)
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusCreated)
		_, _ = io.WriteString(w, `{"htsCode":"847130","name":"Laptop","enabled":true}`)
	}))
	defer srv.Close()

	client := New(srv.URL, srv.Client())
	if _, err := client.CreateProduct(context.Background(), "tok", NewProduct{HTSCode: "847130", Name: "Laptop"}); err != nil {
		t.Fatalf("create product: %v", err)
	}
	disabled := false
	if _, err := client.CreateProduct(context.Background(), "tok", NewProduct{HTSCode: "847170", Name: "SSD", Enabled: &disabled}); err != nil {
		t.Fatalf("create disabled product: %v", err)
	}
	if len(bodies) != 2 {
		t.Fatalf("requests = %d, want 2", len(bodies))
	}
	if _, ok := bodies[0]["enabled"]; ok {
		t.Fatalf("body = %v, want no enabled field", bodies[0])
	}
	if got, ok := bodies[1]["enabled"]; !ok || got != false {
		t.Fatalf("body = %v, want enabled false", bodies[1])
	}
}
