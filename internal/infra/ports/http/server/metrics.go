package server

import (
	"context"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/qrave1/eyeson-go/internal/application/metric"
)

const readyTimeout = 5 * time.Second

// ReadyCheck reports whether the server can do its job, e.g. whether the
// eyeson API accepts the configured key.
type ReadyCheck func(ctx context.Context) error

type healthResponse struct {
	Status              string `json:"status"`
	ObserverConnections int    `json:"observer_connections"`
	Error               string `json:"error,omitempty"`
}

// NewMetrics creates the metrics server: /metrics, /health (liveness) and
// /ready, which runs ready on every call. A nil ready is always ready.
func NewMetrics(ready ReadyCheck) *echo.Echo {
	e := echo.New()

	e.HideBanner = true
	e.HidePort = true

	e.GET("/metrics", echo.WrapHandler(promhttp.Handler()))

	e.GET("/health", func(c echo.Context) error {
		return c.JSON(http.StatusOK, healthResponse{
			Status:              "ok",
			ObserverConnections: metric.ObserverConnections(),
		})
	})

	e.GET("/ready", func(c echo.Context) error {
		if ready == nil {
			return c.JSON(http.StatusOK, healthResponse{Status: "ok"})
		}

		ctx, cancel := context.WithTimeout(c.Request().Context(), readyTimeout)
		defer cancel()

		if err := ready(ctx); err != nil {
			return c.JSON(http.StatusServiceUnavailable, healthResponse{Status: "unavailable", Error: err.Error()})
		}

		return c.JSON(http.StatusOK, healthResponse{Status: "ok"})
	})

	return e
}
