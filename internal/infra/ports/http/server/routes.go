package server

import (
	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"github.com/rs/zerolog"

	"github.com/qrave1/eyeson-go/internal/infra/ports/http/handlers"
	"github.com/qrave1/eyeson-go/internal/infra/ports/http/middleware"
)

func New(
	logger zerolog.Logger,
	forwardHandler *handlers.ForwardHandler,
	webhookHandler *handlers.WebhookHandler,
) *echo.Echo {
	e := echo.New()

	e.HideBanner = true
	e.HidePort = true

	e.Use(echomw.Recover())
	e.Use(middleware.RequestID())
	e.Use(middleware.Logger(logger))
	e.Use(middleware.Prometheus())

	e.POST("/webhooks", webhookHandler.Receive)
	e.GET("/webhooks/:room", webhookHandler.Events)
	e.DELETE("/webhooks/:room", webhookHandler.Forget)

	e.GET("/:room", forwardHandler.Forward)

	return e
}
