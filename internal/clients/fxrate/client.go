// Package fxrate fetches daily currency conversion rates
package fxrate

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"github.com/bobmcallan/finhub/internal/common"
	"github.com/bobmcallan/finhub/internal/interfaces"
	"github.com/bobmcallan/finhub/internal/models"
)

// Compile-time interface check
var _ interfaces.FXClient = (*Client)(nil)

const (
	DefaultBaseURL   = "https://www.finanzen.net"
	DefaultTimeout   = 15 * time.Second
	DefaultRateLimit = 1
)

// Client implements the FXClient interface
type Client struct {
	baseURL    string
	httpClient *http.Client
	logger     *common.Logger
	limiter    *rate.Limiter
}

// ClientOption configures the client
type ClientOption func(*Client)

// WithBaseURL sets the base URL
func WithBaseURL(baseURL string) ClientOption {
	return func(c *Client) {
		c.baseURL = strings.TrimRight(baseURL, "/")
	}
}

// WithLogger sets the logger
func WithLogger(logger *common.Logger) ClientOption {
	return func(c *Client) {
		c.logger = logger
	}
}

// WithRateLimit sets the rate limit
func WithRateLimit(requestsPerSecond int) ClientOption {
	return func(c *Client) {
		if requestsPerSecond > 0 {
			c.limiter = rate.NewLimiter(rate.Limit(requestsPerSecond), requestsPerSecond)
		}
	}
}

// WithTimeout sets the HTTP timeout
func WithTimeout(timeout time.Duration) ClientOption {
	return func(c *Client) {
		c.httpClient.Timeout = timeout
	}
}

// NewClient creates a new conversion rate client
func NewClient(opts ...ClientOption) *Client {
	c := &Client{
		baseURL:    DefaultBaseURL,
		httpClient: &http.Client{Timeout: DefaultTimeout},
		limiter:    rate.NewLimiter(rate.Limit(DefaultRateLimit), DefaultRateLimit),
		logger:     common.NewSilentLogger(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// NewClientFromConfig applies the configured URL, rate and timeout
func NewClientFromConfig(cfg common.ClientConfig, logger *common.Logger) *Client {
	opts := []ClientOption{WithLogger(logger), WithTimeout(cfg.GetTimeout()), WithRateLimit(cfg.RateLimit)}
	if cfg.BaseURL != "" {
		opts = append(opts, WithBaseURL(cfg.BaseURL))
	}
	return NewClient(opts...)
}

// APIError represents an unexpected answer of the rate endpoint
type APIError struct {
	StatusCode int
	Message    string
	Endpoint   string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("FX rate error: %s (status: %d, endpoint: %s)", e.Message, e.StatusCode, e.Endpoint)
}

func (e *APIError) Unwrap() error { return models.ErrExternal }

// GetRate returns the amount of to bought by one unit of from on the given day.
// The endpoint answers with a JSON array whose first element is the rate,
// either as a number or as a string.
func (c *Client) GetRate(ctx context.Context, from, to string, on models.Date) (float64, error) {
	if strings.EqualFold(from, to) {
		return 1, nil
	}
	if err := c.limiter.Wait(ctx); err != nil {
		return 0, fmt.Errorf("rate limit wait: %w", err)
	}

	endpoint := fmt.Sprintf("/ajax/currencyConverter_Exchangerate/%s/%s/%s",
		strings.ToUpper(from), strings.ToUpper(to), on.Time().Format("2006-01-02"))
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+endpoint, nil)
	if err != nil {
		return 0, fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return 0, fmt.Errorf("failed to execute request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return 0, fmt.Errorf("failed to read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		if len(body) > 512 {
			body = body[:512]
		}
		return 0, &APIError{StatusCode: resp.StatusCode, Message: string(body), Endpoint: endpoint}
	}

	var values []json.RawMessage
	if err := json.Unmarshal(body, &values); err != nil || len(values) == 0 {
		return 0, models.NewDataError(models.ErrExternal, "fx_payload", "", "expected a non-empty JSON array", endpoint)
	}
	r, err := decodeRate(values[0])
	if err != nil || r <= 0 {
		return 0, models.NewDataError(models.ErrExternal, "fx_payload", "", fmt.Sprintf("bad rate %s", values[0]), endpoint)
	}

	c.logger.Debug().Str("from", from).Str("to", to).Float64("rate", r).Msg("FX rate fetched")
	return r, nil
}

func decodeRate(raw json.RawMessage) (float64, error) {
	var f float64
	if err := json.Unmarshal(raw, &f); err == nil {
		return f, nil
	}
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return 0, err
	}
	return strconv.ParseFloat(strings.ReplaceAll(strings.TrimSpace(s), ",", "."), 64)
}
