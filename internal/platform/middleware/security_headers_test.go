package middleware

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
)

func TestSecurityHeaders(t *testing.T) {
	for _, hsts := range []bool{false, true} {
		e := echo.New()
		rec := httptest.NewRecorder()
		c := e.NewContext(httptest.NewRequest(http.MethodGet, "/api/v1/patients", nil), rec)

		if err := SecurityHeaders(hsts)(ok)(c); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		for _, kv := range apiHeaders {
			if got := rec.Header().Get(kv[0]); got != kv[1] {
				t.Errorf("%s: expected %q, got %q", kv[0], kv[1], got)
			}
		}
		if got := rec.Header().Get("Strict-Transport-Security") != ""; got != hsts {
			t.Errorf("hsts=%v: expected Strict-Transport-Security present=%v", hsts, hsts)
		}
	}
}

func TestSecurityHeaders_HandlerError(t *testing.T) {
	e := echo.New()
	rec := httptest.NewRecorder()
	c := e.NewContext(httptest.NewRequest(http.MethodGet, "/", nil), rec)

	want := errors.New("boom")
	if err := SecurityHeaders(false)(func(c echo.Context) error { return want })(c); err != want {
		t.Errorf("expected handler error, got %v", err)
	}
	if rec.Header().Get("Cache-Control") != "no-store" {
		t.Error("expected headers even when the handler fails")
	}
}
