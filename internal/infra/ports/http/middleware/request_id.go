package middleware

import (
	"github.com/labstack/echo/v4"

	"github.com/qrave1/eyeson-go/internal/infra/appctx"
)

const HeaderRequestID = echo.HeaderXRequestID

// RequestID keeps an incoming X-Request-Id or generates one, echoes it in the
// response and stores it in the request context.
func RequestID() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			id := c.Request().Header.Get(HeaderRequestID)
			if id == "" {
				id = appctx.NewRequestID()
			}

			c.Response().Header().Set(HeaderRequestID, id)
			c.SetRequest(c.Request().WithContext(appctx.WithRequestID(c.Request().Context(), id)))

			return next(c)
		}
	}
}
