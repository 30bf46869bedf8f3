package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"

	"github.com/awv/awv/internal/platform/auth"
)

func limitedRequest(h echo.HandlerFunc, userID, ip string) (*httptest.ResponseRecorder, error) {
	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/api/v1/templates", nil)
	req.RemoteAddr = ip + ":1234"
	if userID != "" {
		req = req.WithContext(auth.WithUser(req.Context(), userID, []string{auth.RoleNurse}))
	}
	rec := httptest.NewRecorder()
	return rec, h(e.NewContext(req, rec))
}

func TestRateLimit_ExceedsBurst(t *testing.T) {
	h := RateLimit(RateLimitConfig{RequestsPerSecond: 1, BurstSize: 2})(ok)

	for i := 0; i < 2; i++ {
		if _, err := limitedRequest(h, "", "10.0.0.1"); err != nil {
			t.Fatalf("request %d: unexpected error: %v", i, err)
		}
	}
	rec, err := limitedRequest(h, "", "10.0.0.1")
	httpErr, isHTTP := err.(*echo.HTTPError)
	if !isHTTP || httpErr.Code != http.StatusTooManyRequests {
		t.Fatalf("expected 429, got %v", err)
	}
	if rec.Header().Get("Retry-After") != "1" {
		t.Errorf("expected Retry-After 1, got %q", rec.Header().Get("Retry-After"))
	}
}

func TestRateLimit_KeysByUserThenIP(t *testing.T) {
	h := RateLimit(RateLimitConfig{RequestsPerSecond: 1, BurstSize: 1})(ok)

	if _, err := limitedRequest(h, "dr-a", "10.0.0.1"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, err := limitedRequest(h, "dr-b", "10.0.0.1"); err != nil {
		t.Errorf("expected a different user on the same IP to pass, got %v", err)
	}
	if _, err := limitedRequest(h, "", "10.0.0.2"); err != nil {
		t.Errorf("expected an anonymous caller to pass, got %v", err)
	}
	if _, err := limitedRequest(h, "dr-a", "10.0.0.9"); err == nil {
		t.Error("expected dr-a to be limited from any IP")
	}
}

func TestRateLimit_DisabledAtZeroRate(t *testing.T) {
	h := RateLimit(RateLimitConfig{})(ok)
	for i := 0; i < 5; i++ {
		if _, err := limitedRequest(h, "", "10.0.0.1"); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
	}
}

func TestRateLimit_DefaultConfig(t *testing.T) {
	cfg := DefaultRateLimitConfig()
	if cfg.RequestsPerSecond != 100 || cfg.BurstSize != 200 {
		t.Errorf("unexpected defaults: %+v", cfg)
	}
}
