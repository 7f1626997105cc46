package server

import (
	"context"
	"net/http"
	"path/filepath"
	"testing"
	"time"
)

func TestServerServesHealthAndStops(t *testing.T) {
	srv, err := New(context.Background(), Config{
		Addr:        "127.0.0.1:0",
		APIBaseURL:  "http://127.0.0.1:1",
		CacheDBPath: filepath.Join(t.TempDir(), "nested", "web.db"),
	}, nil)
	if err != nil {
		t.Fatalf("new server: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	serveDone := make(chan error, 1)
	go func() {
		serveDone <- srv.Serve(ctx)
	}()

	resp, err := http.Get("http://" + srv.Addr() + "/health")
	if err != nil {
		t.Fatalf("get health: %v", err)
	}
	_ = resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d", resp.StatusCode)
	}

	resp, err = http.Get("http://" + srv.Addr() + "/login")
	if err != nil {
		t.Fatalf("get login: %v", err)
	}
	_ = resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("login status = %d", resp.StatusCode)
	}

	cancel()
	select {
	case err := <-serveDone:
		if err != nil {
			t.Fatalf("serve: %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("timeout waiting for server shutdown")
	}
}

func TestNewRequiresAPIBaseURL(t *testing.T) {
	_, err := New(context.Background(), Config{Addr: "127.0.0.1:0", CacheDBPath: filepath.Join(t.TempDir(), "web.db")}, nil)
	if err == nil {
		t.Fatal("expected error for missing api base url")
	}
}
