package rainforest

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/ppiankov/buybox/internal/observability"
	"github.com/ppiankov/buybox/internal/util"
)

// Request views
const (
	ViewProduct = "product"
	ViewOffers  = "offers"
)

const (
	maxBodyBytes     = 8 << 20
	maxErrorTextSize = 1024
)

var errMalformedBody = errors.New("malformed response body")

// TransportError is a failed request: a non-200 status after the retry
// budget, a malformed body, or no response at all (Status 0).
type TransportError struct {
	Status int
	Body   string // compact JSON error payload
	Err    error
}

func (e *TransportError) Error() string {
	if e.Status == 0 {
		return fmt.Sprintf("request failed: %v", e.Err)
	}
	if e.Err != nil {
		return fmt.Sprintf("HTTP %d: %v: %s", e.Status, e.Err, e.Body)
	}
	return fmt.Sprintf("HTTP %d: %s", e.Status, e.Body)
}

func (e *TransportError) Unwrap() error {
	return e.Err
}

// Options configures a Client
type Options struct {
	BaseURL     string
	APIKey      string
	UserAgent   string
	Timeout     time.Duration
	Retries     int           // additional attempts after the first
	BackoffBase time.Duration // first backoff delay, doubled per retry
	HTTPProxy   string
	HTTPSProxy  string
	Logger      *slog.Logger
	Metrics     *observability.Metrics
	Sleep       func(context.Context, time.Duration) error // defaults to SleepContext
}

// Client calls the Rainforest request endpoint
type Client struct {
	baseURL     string
	apiKey      string
	userAgent   string
	httpClient  *http.Client
	retries     int
	backoffBase time.Duration
	sleep       func(context.Context, time.Duration) error
	logger      *slog.Logger
	metrics     *observability.Metrics
}

// NewClient creates a new Client with the given options
func NewClient(opts Options) (*Client, error) {
	proxy, err := util.NewProxyFunc(opts.HTTPProxy, opts.HTTPSProxy)
	if err != nil {
		return nil, fmt.Errorf("rainforest: %w", err)
	}

	transport := http.DefaultTransport.(*http.Transport).Clone()
	transport.Proxy = proxy

	c := &Client{
		baseURL:   opts.BaseURL,
		apiKey:    opts.APIKey,
		userAgent: opts.UserAgent,
		httpClient: &http.Client{
			Timeout:   opts.Timeout,
			Transport: transport,
		},
		retries:     opts.Retries,
		backoffBase: opts.BackoffBase,
		sleep:       opts.Sleep,
		logger:      opts.Logger,
		metrics:     opts.Metrics,
	}
	if c.retries < 0 {
		c.retries = 0
	}
	if c.backoffBase <= 0 {
		c.backoffBase = time.Second
	}
	if c.sleep == nil {
		c.sleep = SleepContext
	}
	if c.logger == nil {
		c.logger = slog.New(slog.DiscardHandler)
	}
	return c, nil
}

// Product fetches the product view of an ASIN
func (c *Client) Product(ctx context.Context, domain, asin string) (*ProductResponse, error) {
	body, err := c.Get(ctx, ViewProduct, domain, asin)
	if err != nil {
		return nil, fmt.Errorf("product: %w", err)
	}

	var resp ProductResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("product: %w", malformed(body, err))
	}
	return &resp, nil
}

// Offers fetches the offers view of an ASIN
func (c *Client) Offers(ctx context.Context, domain, asin string) (*OffersResponse, error) {
	body, err := c.Get(ctx, ViewOffers, domain, asin)
	if err != nil {
		return nil, fmt.Errorf("offers: %w", err)
	}

	var resp OffersResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("offers: %w", malformed(body, err))
	}
	return &resp, nil
}

// Get requests one view and returns the raw JSON body. 429 and 5xx
// responses are retried with exponential backoff; the wait blocks the
// calling goroutine.
func (c *Client) Get(ctx context.Context, view, domain, asin string) (json.RawMessage, error) {
	params := url.Values{}
	params.Set("api_key", c.apiKey)
	params.Set("type", view)
	params.Set("amazon_domain", domain)
	params.Set("asin", asin)

	backoff := c.backoffBase
	for attempt := 0; ; attempt++ {
		status, body, err := c.do(ctx, params)
		c.metrics.ObserveRequest(view, status)
		if err != nil {
			c.logger.Warn("request failed",
				slog.String("asin", asin),
				slog.String("view", view),
				slog.String("error", err.Error()),
			)
			return nil, &TransportError{Err: err}
		}

		if status == http.StatusOK {
			if !json.Valid(body) {
				return nil, malformed(body, errMalformedBody)
			}
			return body, nil
		}

		if isRetryableStatus(status) && attempt < c.retries {
			c.logger.Debug("retrying request",
				slog.String("asin", asin),
				slog.String("view", view),
				slog.Int("status", status),
				slog.Int("attempt", attempt+1),
				slog.Duration("delay", backoff),
			)
			c.metrics.ObserveRetry(view)
			if err := c.sleep(ctx, backoff); err != nil {
				return nil, &TransportError{Err: err}
			}
			backoff *= 2
			continue
		}

		return nil, &TransportError{Status: status, Body: errorPayload(body)}
	}
}

// do performs one round trip. Errors returned here carry no request URL so
// the API key never reaches logs or reports.
func (c *Client) do(ctx context.Context, params url.Values) (int, []byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"?"+params.Encode(), nil)
	if err != nil {
		return 0, nil, fmt.Errorf("create request: %w", redact(err))
	}

	req.Header.Set("Accept", "application/json")
	if c.userAgent != "" {
		req.Header.Set("User-Agent", c.userAgent)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return 0, nil, fmt.Errorf("fetch: %w", redact(err))
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return 0, nil, fmt.Errorf("read body: %w", redact(err))
	}

	return resp.StatusCode, body, nil
}

// SleepContext blocks for d, returning early with the context error once
// ctx is done
func SleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// isRetryableStatus determines if a status code warrants another attempt
func isRetryableStatus(status int) bool {
	return status == http.StatusTooManyRequests || (status >= 500 && status <= 599)
}

// redact strips the request URL from net/http errors
func redact(err error) error {
	var urlErr *url.Error
	if errors.As(err, &urlErr) {
		return urlErr.Err
	}
	return err
}

func malformed(body []byte, err error) *TransportError {
	return &TransportError{
		Status: http.StatusOK,
		Body:   errorPayload(body),
		Err:    err,
	}
}

// errorPayload returns the body as compact JSON, wrapping non-JSON text
// as {"error": "<text>"} truncated to maxErrorTextSize bytes
func errorPayload(body []byte) string {
	var buf bytes.Buffer
	if json.Valid(body) && json.Compact(&buf, body) == nil {
		return buf.String()
	}
	if len(body) > maxErrorTextSize {
		body = body[:maxErrorTextSize]
	}
	buf.Reset()
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(map[string]string{"error": string(body)}); err != nil {
		return string(body)
	}
	return strings.TrimSuffix(buf.String(), "\n")
}
