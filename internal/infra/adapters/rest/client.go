package rest

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/qrave1/eyeson-go/internal/application/constant"
	"github.com/qrave1/eyeson-go/internal/application/metric"
	"github.com/qrave1/eyeson-go/internal/infra/appctx"
)

// maxErrorBody caps how much of a failed response is kept in RequestError.
const maxErrorBody = 4 << 10

type Config struct {
	// BaseURL is scheme and host of the API, e.g. "https://api.eyeson.team".
	BaseURL string
	// APIKey is sent verbatim in the Authorization header when non-empty.
	APIKey string
	// HTTPClient is used for all requests. If nil, http.DefaultClient is used.
	HTTPClient *http.Client
	Logger     zerolog.Logger
}

// Client performs single requests against the eyeson API. It never retries
// and never caches.
type Client struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
	logger     zerolog.Logger
}

func New(cfg Config) (*Client, error) {
	if cfg.BaseURL == "" {
		return nil, errors.New("rest: BaseURL is required")
	}

	u, err := url.Parse(cfg.BaseURL)
	if err != nil {
		return nil, fmt.Errorf("rest: invalid BaseURL %q: %w", cfg.BaseURL, err)
	}
	if u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("rest: BaseURL %q must include scheme and host", cfg.BaseURL)
	}

	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = http.DefaultClient
	}

	return &Client{
		baseURL:    strings.TrimRight(cfg.BaseURL, "/"),
		apiKey:     cfg.APIKey,
		httpClient: httpClient,
		logger:     cfg.Logger,
	}, nil
}

// WithoutAPIKey returns a client for the same host that sends no
// Authorization header. Room operations authorize through the access key in
// the path instead.
func (c *Client) WithoutAPIKey() *Client {
	cp := *c
	cp.apiKey = ""
	return &cp
}

func (c *Client) BaseURL() string {
	return c.baseURL
}

func (c *Client) Get(ctx context.Context, path string, out any) error {
	return c.Do(ctx, http.MethodGet, path, nil, out)
}

func (c *Client) Post(ctx context.Context, path string, body, out any) error {
	return c.Do(ctx, http.MethodPost, path, body, out)
}

func (c *Client) Put(ctx context.Context, path string, body, out any) error {
	return c.Do(ctx, http.MethodPut, path, body, out)
}

func (c *Client) Delete(ctx context.Context, path string, out any) error {
	return c.Do(ctx, http.MethodDelete, path, nil, out)
}

// Do issues exactly one request. body may be nil, a *Form (sent as
// multipart/form-data) or any JSON-serialisable value. On 200/201/204 a
// non-empty response body is decoded into out (when out is non-nil); an
// empty body leaves out untouched.
func (c *Client) Do(ctx context.Context, method, path string, body, out any) error {
	reader, contentType, err := encodeBody(body)
	if err != nil {
		return fmt.Errorf("encode request body: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}

	req.Header.Set("Accept", "application/json")
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	if c.apiKey != "" {
		req.Header.Set("Authorization", c.apiKey)
	}
	if id, ok := appctx.RequestID(ctx); ok {
		req.Header.Set("X-Request-ID", id)
	}

	start := time.Now()

	resp, err := c.httpClient.Do(req)
	if err != nil {
		metric.RecordAPIRequest(method, 0, time.Since(start))
		c.logger.Debug().
			Str(constant.Method, method).
			Str(constant.Path, path).
			Err(err).
			Msg("eyeson request failed")

		return &NetworkError{Method: method, Path: path, Err: err}
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		metric.RecordAPIRequest(method, resp.StatusCode, time.Since(start))
		return &NetworkError{Method: method, Path: path, Err: fmt.Errorf("read response body: %w", err)}
	}

	elapsed := time.Since(start)
	metric.RecordAPIRequest(method, resp.StatusCode, elapsed)
	c.logger.Debug().
		Str(constant.Method, method).
		Str(constant.Path, path).
		Int(constant.Status, resp.StatusCode).
		Int64(constant.Latency, elapsed.Milliseconds()).
		Msg("eyeson request")

	if !successful(resp.StatusCode) {
		if len(respBody) > maxErrorBody {
			respBody = respBody[:maxErrorBody]
		}
		return &RequestError{
			Method:     method,
			Path:       path,
			StatusCode: resp.StatusCode,
			Body:       string(respBody),
		}
	}

	if out == nil || len(bytes.TrimSpace(respBody)) == 0 {
		return nil
	}

	if err := json.Unmarshal(respBody, out); err != nil {
		return fmt.Errorf("decode %s %s response: %w", method, path, err)
	}

	return nil
}

func successful(status int) bool {
	switch status {
	case http.StatusOK, http.StatusCreated, http.StatusNoContent:
		return true
	default:
		return false
	}
}

func encodeBody(body any) (io.Reader, string, error) {
	switch b := body.(type) {
	case nil:
		return nil, "", nil
	case *Form:
		buf, contentType, err := b.encode()
		if err != nil {
			return nil, "", err
		}
		return buf, contentType, nil
	default:
		encoded, err := json.Marshal(b)
		if err != nil {
			return nil, "", err
		}
		return bytes.NewReader(encoded), "application/json", nil
	}
}
