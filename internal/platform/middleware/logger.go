package middleware

import (
	"errors"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/awv/awv/internal/platform/auth"
)

// Logger writes one line per request. Health probes log at debug so they
// do not drown the access log. Client errors log at warn, server errors at
// error.
func Logger(logger zerolog.Logger) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			start := time.Now()
			err := next(c)

			status := c.Response().Status
			var he *echo.HTTPError
			if errors.As(err, &he) {
				status = he.Code
			}

			var evt *zerolog.Event
			switch {
			case status >= 500:
				evt = logger.Error().Err(err)
			case status >= 400 || err != nil:
				evt = logger.Warn().Err(err)
			case strings.HasPrefix(c.Request().URL.Path, "/health"):
				evt = logger.Debug()
			default:
				evt = logger.Info()
			}

			rid, _ := c.Get(requestIDKey).(string)
			evt.Str("request_id", rid).
				Str("user_id", auth.UserIDFromContext(c.Request().Context())).
				Str("method", c.Request().Method).
				Str("route", c.Path()).
				Str("path", c.Request().URL.Path).
				Int("status", status).
				Int64("bytes_out", c.Response().Size).
				Dur("latency", time.Since(start)).
				Str("remote_ip", c.RealIP()).
				Msg("request")
			return err
		}
	}
}
