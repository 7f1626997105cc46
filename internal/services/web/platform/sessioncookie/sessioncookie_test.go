package sessioncookie

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func TestRead(t *testing.T) {
	t.Parallel()

	if _, ok := Read(nil); ok {
		t.Fatalf("expected nil request to have no session cookie")
	}
	req := httptest.NewRequest(http.MethodGet, "http://example.com", nil)
	if _, ok := Read(req); ok {
		t.Fatalf("expected missing cookie")
	}
	req.AddCookie(&http.Cookie{Name: Name, Value: "  tok  "})
	value, ok := Read(req)
	if !ok || value != "tok" {
		t.Fatalf("Read() = %q, %v", value, ok)
	}
}

func TestWriteAndClear(t *testing.T) {
	t.Parallel()

	req := httptest.NewRequest(http.MethodGet, "https://app.example.test", nil)
	rr := httptest.NewRecorder()
	Write(rr, req, "tok", 72*time.Hour)
	cookie, err := http.ParseSetCookie(rr.Header().Get("Set-Cookie"))
	if err != nil {
		t.Fatalf("ParseSetCookie() error = %v", err)
	}
	if cookie.Name != Name || cookie.Value != "tok" {
		t.Fatalf("cookie = %s=%s", cookie.Name, cookie.Value)
	}
	if !cookie.Secure || !cookie.HttpOnly {
		t.Fatalf("expected secure httponly cookie")
	}
	if cookie.MaxAge != 259200 {
		t.Fatalf("MaxAge = %d", cookie.MaxAge)
	}

	clearRR := httptest.NewRecorder()
	Clear(clearRR, httptest.NewRequest(http.MethodGet, "http://app.example.test", nil))
	cleared, err := http.ParseSetCookie(clearRR.Header().Get("Set-Cookie"))
	if err != nil {
		t.Fatalf("ParseSetCookie() error = %v", err)
	}
	if cleared.MaxAge >= 0 || cleared.Secure {
		t.Fatalf("cleared cookie = %+v", cleared)
	}
}
