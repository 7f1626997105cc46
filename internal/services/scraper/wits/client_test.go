package wits

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"
)

func testClient(srv *httptest.Server) *Client {
	return New(Config{BaseURL: srv.URL, MaxAttempts: 3, RetryBase: time.Millisecond, Timeout: time.Second}, srv.Client())
}

func TestTariffURL(t *testing.T) {
	c := New(Config{}, nil)
	got := c.TariffURL("702", "840", []string{"847130", "854231"})
	want := DefaultBaseURL + "/data/DF_WITS_Tariff_TRAINS/A.840.702.847130+854231.reported/?detail=dataOnly&startperiod=1988"
	if got != want {
		t.Fatalf("url = %q, want %q", got, want)
	}
}

func TestTariffsRetriesTransientStatus(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !strings.Contains(r.URL.Path, "A.840.702.847130.reported") {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		if calls.Add(1) < 3 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		_, _ = w.Write([]byte(tariffXML))
	}))
	defer srv.Close()

	got, err := testClient(srv).Tariffs(context.Background(), "702", "840", []string{"847130"})
	if err != nil {
		t.Fatalf("tariffs: %v", err)
	}
	if calls.Load() != 3 {
		t.Fatalf("calls = %d, want 3", calls.Load())
	}
	if len(got["847130"]) != 2 {
		t.Fatalf("observations = %v", got)
	}
}

func TestTariffsGivesUpAfterMaxAttempts(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer srv.Close()

	_, err := testClient(srv).Tariffs(context.Background(), "702", "840", []string{"847130"})
	var statusErr *StatusError
	if !errors.As(err, &statusErr) || statusErr.Status != http.StatusTooManyRequests {
		t.Fatalf("err = %v, want 429 status error", err)
	}
	if calls.Load() != 3 {
		t.Fatalf("calls = %d, want 3", calls.Load())
	}
}

func TestTariffsDoesNotRetryPermanentStatus(t *testing.T) {
	cases := map[int]func(error) bool{
		http.StatusNotFound: func(err error) bool { return errors.Is(err, ErrNotFound) },
		http.StatusInternalServerError: func(err error) bool {
			var statusErr *StatusError
			return errors.As(err, &statusErr) && statusErr.Status == http.StatusInternalServerError
		},
	}
	for status, check := range cases {
		var calls atomic.Int32
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			calls.Add(1)
			w.WriteHeader(status)
		}))
		_, err := testClient(srv).Tariffs(context.Background(), "702", "840", []string{"847130"})
		srv.Close()
		if !check(err) {
			t.Fatalf("status %d: err = %v", status, err)
		}
		if calls.Load() != 1 {
			t.Fatalf("status %d: calls = %d, want 1", status, calls.Load())
		}
	}
}

func TestCountries(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/codelist/all/" {
			http.NotFound(w, r)
			return
		}
		_, _ = w.Write([]byte(codelistXML))
	}))
	defer srv.Close()

	countries, err := testClient(srv).Countries(context.Background())
	if err != nil {
		t.Fatalf("countries: %v", err)
	}
	if len(countries) != 3 || countries[0].Name != "Singapore" {
		t.Fatalf("countries = %+v", countries)
	}
}

func TestFetchStopsOnCancel(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	c := New(Config{BaseURL: srv.URL, MaxAttempts: 5, RetryBase: time.Hour}, srv.Client())
	if _, err := c.Tariffs(ctx, "702", "840", []string{"847130"}); err == nil {
		t.Fatal("expected error for cancelled context")
	}
}
