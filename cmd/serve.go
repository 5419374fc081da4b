package cmd

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/qrave1/eyeson-go/internal/application/constant"
	"github.com/qrave1/eyeson-go/internal/infra/adapters/memory"
	"github.com/qrave1/eyeson-go/internal/infra/ports/http/handlers"
	"github.com/qrave1/eyeson-go/internal/infra/ports/http/server"
)

const shutdownTimeout = 5 * time.Second

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the meeting forward server",
	Long: `Run the meeting forward server.

GET /<room-id> joins the room as the demo user and redirects to the meeting.
POST /webhooks receives eyeson webhook deliveries and GET /webhooks/<room-id>
lists the latest ones kept for a room (DELETE forgets them). The metrics
server exposes /metrics, /health and /ready. When EYESON_WEBHOOK_URL is
set it is registered on start and cleared on shutdown.`,
	Args: cobra.NoArgs,
	RunE: runServe,
}

func runServe(cmd *cobra.Command, _ []string) error {
	ctx, cancel := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	a, err := newApp(os.Stdout)
	if err != nil {
		return err
	}

	a.logger.Info().Bool("debug", a.cfg.Debug).Msg("running forward server")

	if url := a.cfg.Eyeson.WebhookURL; url != "" {
		hook, err := a.client.RegisterWebhook(ctx, url, a.cfg.Eyeson.WebhookTypes)
		if err != nil {
			return fmt.Errorf("register webhook: %w", err)
		}
		if hook != nil {
			a.logger.Info().Str("webhook_id", hook.ID).Strs("types", hook.Types).Msg("webhook registered")
		}
	}

	echoSrv := server.New(
		a.logger,
		handlers.NewForwardHandler(a.client, a.cfg.Eyeson.DemoUser, a.logger),
		handlers.NewWebhookHandler(memory.NewWebhookEventRepository(memory.DefaultEventsPerRoom), a.logger),
	)
	metricsSrv := server.NewMetrics(a.ready)

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		a.logger.Info().Str("port", a.cfg.Port).Msg("HTTP server listening")
		return listen(echoSrv, ":"+a.cfg.Port, "HTTP server")
	})

	g.Go(func() error {
		a.logger.Info().Str("port", a.cfg.MetricPort).Msg("metrics server listening")
		return listen(metricsSrv, ":"+a.cfg.MetricPort, "metrics server")
	})

	g.Go(func() error {
		<-gctx.Done()
		a.logger.Info().Msg("shutting down servers")

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer shutdownCancel()

		if err := echoSrv.Shutdown(shutdownCtx); err != nil {
			a.logger.Error().Err(err).Msg("failed to gracefully shutdown HTTP server")
		}
		if err := metricsSrv.Shutdown(shutdownCtx); err != nil {
			a.logger.Error().Err(err).Msg("failed to gracefully shutdown metrics server")
		}

		if a.cfg.Eyeson.WebhookURL != "" {
			if err := a.client.ClearWebhook(shutdownCtx); err != nil {
				a.logger.Error().Str(constant.Error, err.Error()).Msg("clear webhook")
			}
		}

		return nil
	})

	return g.Wait()
}

// ready checks that the API key is accepted and, when the server owns the
// webhook, that it is still registered to this server.
func (a *app) ready(ctx context.Context) error {
	url := a.cfg.Eyeson.WebhookURL
	if url == "" {
		_, err := a.client.ListRooms(ctx)
		return err
	}

	hook, err := a.client.GetWebhook(ctx)
	if err != nil {
		return err
	}
	if hook == nil || hook.URL != url {
		return fmt.Errorf("webhook %s is not registered", url)
	}

	return nil
}

func listen(e *echo.Echo, addr, name string) error {
	if err := e.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("%s: %w", name, err)
	}
	return nil
}
