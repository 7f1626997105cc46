package flash

import (
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestWriteThenReadAndClear(t *testing.T) {
	t.Parallel()

	rr := httptest.NewRecorder()
	Write(rr, httptest.NewRequest(http.MethodPost, "/tariffs/export.csv", nil), Warning("  Nothing to export  "))
	setCookie := rr.Header().Get("Set-Cookie")
	if setCookie == "" {
		t.Fatal("expected flash cookie")
	}

	req := httptest.NewRequest(http.MethodGet, "/tariffs", nil)
	cookie, err := http.ParseSetCookie(setCookie)
	if err != nil {
		t.Fatalf("ParseSetCookie() error = %v", err)
	}
	req.AddCookie(cookie)
	next := httptest.NewRecorder()
	notice, ok := ReadAndClear(next, req)
	if !ok {
		t.Fatal("expected notice")
	}
	if notice.Kind != KindWarning || notice.Message != "Nothing to export" {
		t.Fatalf("notice = %+v", notice)
	}
	cleared, err := http.ParseSetCookie(next.Header().Get("Set-Cookie"))
	if err != nil || cleared.MaxAge >= 0 {
		t.Fatalf("expected clearing cookie, got %v %v", cleared, err)
	}
}

func TestWriteIgnoresInvalidNotices(t *testing.T) {
	t.Parallel()

	for _, notice := range []Notice{{Kind: KindSuccess}, {Kind: "loud", Message: "x"}} {
		rr := httptest.NewRecorder()
		Write(rr, httptest.NewRequest(http.MethodGet, "/", nil), notice)
		if rr.Header().Get("Set-Cookie") != "" {
			t.Fatalf("expected no cookie for %+v", notice)
		}
	}
}

func TestReadAndClearRejectsGarbage(t *testing.T) {
	t.Parallel()

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.AddCookie(&http.Cookie{Name: CookieName, Value: "%%%"})
	if _, ok := ReadAndClear(httptest.NewRecorder(), req); ok {
		t.Fatal("expected garbage cookie to be ignored")
	}
}
