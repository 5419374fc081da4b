package middleware

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/rs/zerolog"

	"github.com/qrave1/eyeson-go/internal/application/constant"
	"github.com/qrave1/eyeson-go/internal/infra/appctx"
)

// Logger logs every request through zerolog. Server errors log at error
// level, client errors at warn.
func Logger(logger zerolog.Logger) echo.MiddlewareFunc {
	return middleware.RequestLoggerWithConfig(
		middleware.RequestLoggerConfig{
			LogStatus:  true,
			LogURI:     true,
			LogMethod:  true,
			LogError:   true,
			LogLatency: true,

			LogValuesFunc: func(c echo.Context, v middleware.RequestLoggerValues) error {
				event := logger.Info()
				if v.Error != nil || v.Status >= http.StatusInternalServerError {
					event = logger.Error().Err(v.Error)
				} else if v.Status >= http.StatusBadRequest {
					event = logger.Warn()
				}

				if id, ok := appctx.RequestID(c.Request().Context()); ok {
					event = event.Str(constant.RequestID, id)
				}

				event.
					Int(constant.Status, v.Status).
					Str(constant.Path, v.URI).
					Str(constant.Method, v.Method).
					Int64(constant.Latency, v.Latency.Milliseconds()).
					Msg("HTTP request")

				return nil
			},
		},
	)
}
