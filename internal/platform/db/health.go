package db

import (
	"context"
	"net/http"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/labstack/echo/v4"
)

// Pinger is a store that can confirm its database is reachable.
type Pinger interface {
	Ping(ctx context.Context) error
}

type poolStats struct {
	Total    int32  `json:"total"`
	Idle     int32  `json:"idle"`
	Acquired int32  `json:"acquired"`
	Max      int32  `json:"max"`
	Waited   int64  `json:"waited"`
	WaitTime string `json:"waitTime"`
}

// StoreHealth is the /health/db response body.
type StoreHealth struct {
	Status  string     `json:"status"`
	Latency string     `json:"latency"`
	Error   string     `json:"error,omitempty"`
	Pool    *poolStats `json:"pool,omitempty"`
}

// CheckStore pings p with timeout and reports the result.
func CheckStore(ctx context.Context, p Pinger, timeout time.Duration) StoreHealth {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	start := time.Now()
	err := p.Ping(ctx)
	h := StoreHealth{Status: "healthy", Latency: time.Since(start).Round(time.Microsecond).String()}
	if err != nil {
		h.Status = "unhealthy"
		h.Error = err.Error()
	}
	if pool, ok := p.(*pgxpool.Pool); ok {
		st := pool.Stat()
		h.Pool = &poolStats{
			Total:    st.TotalConns(),
			Idle:     st.IdleConns(),
			Acquired: st.AcquiredConns(),
			Max:      st.MaxConns(),
			Waited:   st.EmptyAcquireCount(),
			WaitTime: st.AcquireDuration().String(),
		}
	}
	return h
}

// HealthHandler serves CheckStore, answering 503 when the store is down.
func HealthHandler(p Pinger) echo.HandlerFunc {
	return func(c echo.Context) error {
		h := CheckStore(c.Request().Context(), p, 5*time.Second)
		code := http.StatusOK
		if h.Error != "" {
			code = http.StatusServiceUnavailable
		}
		return c.JSON(code, h)
	}
}
