package middleware

import (
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/labstack/echo/v4"
)

func TestParseLimit(t *testing.T) {
	tests := []struct {
		in   string
		want int64
	}{
		{"512", 512},
		{"4K", 4 << 10},
		{"2M", 2 << 20},
		{"2mb", 2 << 20},
		{"1G", 1 << 30},
		{"", 1 << 20},
		{"lots", 1 << 20},
		{"-5", 1 << 20},
	}
	for _, tt := range tests {
		if got := ParseLimit(tt.in); got != tt.want {
			t.Errorf("ParseLimit(%q) = %d, want %d", tt.in, got, tt.want)
		}
	}
}

func TestBodyLimit_AllowsSmallBody(t *testing.T) {
	e := echo.New()
	req := httptest.NewRequest(http.MethodPost, "/api/v1/patients", strings.NewReader(`{"name":"Jane"}`))
	c := e.NewContext(req, httptest.NewRecorder())

	h := BodyLimit("1K")(func(c echo.Context) error {
		b, err := io.ReadAll(c.Request().Body)
		if err != nil {
			return err
		}
		return c.String(http.StatusOK, string(b))
	})
	if err := h(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestBodyLimit_RejectsByContentLength(t *testing.T) {
	e := echo.New()
	req := httptest.NewRequest(http.MethodPost, "/api/v1/patients", strings.NewReader(strings.Repeat("a", 2048)))
	c := e.NewContext(req, httptest.NewRecorder())

	called := false
	err := BodyLimit("1K")(func(c echo.Context) error {
		called = true
		return nil
	})(c)
	if called {
		t.Error("expected handler not to run")
	}
	httpErr, ok := err.(*echo.HTTPError)
	if !ok || httpErr.Code != http.StatusRequestEntityTooLarge {
		t.Errorf("expected 413, got %v", err)
	}
}

func TestBodyLimit_EnforcesLimitDuringRead(t *testing.T) {
	e := echo.New()
	req := httptest.NewRequest(http.MethodPost, "/api/v1/patients", strings.NewReader(strings.Repeat("a", 2048)))
	req.ContentLength = -1
	c := e.NewContext(req, httptest.NewRecorder())

	err := BodyLimit("1K")(func(c echo.Context) error {
		_, err := io.ReadAll(c.Request().Body)
		return err
	})(c)
	httpErr, ok := err.(*echo.HTTPError)
	if !ok || httpErr.Code != http.StatusRequestEntityTooLarge {
		t.Errorf("expected 413 while reading, got %v", err)
	}
}

func TestBodyLimit_SkipsEmptyBody(t *testing.T) {
	e := echo.New()
	c := e.NewContext(httptest.NewRequest(http.MethodGet, "/api/v1/patients", nil), httptest.NewRecorder())
	if err := BodyLimit("1")(func(c echo.Context) error { return nil })(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}
