package eyeson

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	"github.com/qrave1/eyeson-go/internal/application/constant"
)

type webhookRequest struct {
	URL   string `json:"url"`
	Types string `json:"types"`
}

// RegisterWebhook registers targetURL for the given event types, replacing
// any existing webhook of the account, and returns the webhook as stored by
// the server.
func (c *Client) RegisterWebhook(ctx context.Context, targetURL string, types []string) (*Webhook, error) {
	if err := required("url", targetURL, "webhook URL is required"); err != nil {
		return nil, err
	}

	req := webhookRequest{URL: targetURL, Types: strings.Join(types, ",")}
	if err := c.api.Post(ctx, "/webhooks", req, nil); err != nil {
		return nil, fmt.Errorf("register webhook: %w", err)
	}

	return c.GetWebhook(ctx)
}

// GetWebhook returns the registered webhook, or nil when there is none.
func (c *Client) GetWebhook(ctx context.Context) (*Webhook, error) {
	var hook *Webhook
	if err := c.api.Get(ctx, "/webhooks", &hook); err != nil {
		return nil, fmt.Errorf("get webhook: %w", err)
	}

	if hook == nil || hook.ID == "" {
		return nil, nil
	}
	return hook, nil
}

// ClearWebhook deletes the registered webhook. It is a no-op when none is
// registered.
func (c *Client) ClearWebhook(ctx context.Context) error {
	hook, err := c.GetWebhook(ctx)
	if err != nil {
		return err
	}
	if hook == nil {
		return nil
	}

	if err := c.api.Delete(ctx, "/webhooks/"+url.PathEscape(hook.ID), nil); err != nil {
		return fmt.Errorf("clear webhook: %w", err)
	}

	c.logger.Debug().Str(constant.URL, hook.URL).Msg("webhook cleared")
	return nil
}
