// Package justetf scrapes fund prices and profiles from justETF profile pages
package justetf

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"time"

	"golang.org/x/net/html"
	"golang.org/x/net/publicsuffix"
	"golang.org/x/time/rate"

	"github.com/bobmcallan/finhub/internal/common"
	"github.com/bobmcallan/finhub/internal/interfaces"
	"github.com/bobmcallan/finhub/internal/models"
)

// Compile-time interface check
var _ interfaces.FundDataClient = (*Client)(nil)

const (
	DefaultBaseURL   = "https://www.justetf.com/de/etf-profile.html"
	DefaultTimeout   = 30 * time.Second
	DefaultRateLimit = 1 // requests per second
	userAgent        = "Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0 Safari/537.36"
)

// Client implements the FundDataClient interface
type Client struct {
	baseURL    string
	httpClient *http.Client
	logger     *common.Logger
	limiter    *rate.Limiter
	today      func() models.Date
}

// ClientOption configures the client
type ClientOption func(*Client)

// WithBaseURL sets the profile page URL
func WithBaseURL(baseURL string) ClientOption {
	return func(c *Client) {
		c.baseURL = baseURL
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

// WithToday overrides the date stamped on scraped prices
func WithToday(today func() models.Date) ClientOption {
	return func(c *Client) {
		c.today = today
	}
}

// NewClient creates a new justETF client. Cookies set by the site are kept
// for the lifetime of the client.
func NewClient(opts ...ClientOption) *Client {
	jar, _ := cookiejar.New(&cookiejar.Options{PublicSuffixList: publicsuffix.List})
	c := &Client{
		baseURL: DefaultBaseURL,
		httpClient: &http.Client{
			Timeout: DefaultTimeout,
			Jar:     jar,
		},
		limiter: rate.NewLimiter(rate.Limit(DefaultRateLimit), DefaultRateLimit),
		logger:  common.NewSilentLogger(),
		today:   models.Today,
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

// APIError represents an unexpected answer of the site
type APIError struct {
	StatusCode int
	Message    string
	Endpoint   string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("justETF error: %s (status: %d, endpoint: %s)", e.Message, e.StatusCode, e.Endpoint)
}

// Unwrap classifies every site failure as external.
func (e *APIError) Unwrap() error { return models.ErrExternal }

// page fetches and parses the profile page of one fund
func (c *Client) page(ctx context.Context, isin string) (*html.Node, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("rate limit wait: %w", err)
	}

	params := url.Values{}
	params.Set("query", isin)
	params.Set("groupField", "index")
	params.Set("from", "search")
	params.Set("isin", isin)
	reqURL := fmt.Sprintf("%s?%s", c.baseURL, params.Encode())

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)

	c.logger.Debug().Str("isin", isin).Msg("justETF profile request")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to execute request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, &APIError{
			StatusCode: resp.StatusCode,
			Message:    string(body),
			Endpoint:   isin,
		}
	}

	doc, err := html.Parse(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to parse profile page of %s: %w", isin, err)
	}
	return doc, nil
}

// GetPrice returns the quote shown in the first infobox of the profile page,
// dated today
func (c *Client) GetPrice(ctx context.Context, isin string) (*models.PriceObservation, error) {
	doc, err := c.page(ctx, isin)
	if err != nil {
		return nil, err
	}
	currency, price, err := parsePrice(doc)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", isin, err)
	}
	return &models.PriceObservation{
		ISIN:     isin,
		Price:    price,
		Currency: currency,
		Date:     c.today(),
	}, nil
}

// GetProfile returns the fund's descriptive metadata
func (c *Client) GetProfile(ctx context.Context, isin string) (*models.FundProfile, error) {
	doc, err := c.page(ctx, isin)
	if err != nil {
		return nil, err
	}
	p, err := parseProfile(doc)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", isin, err)
	}
	p.ISIN = isin
	return p, nil
}
