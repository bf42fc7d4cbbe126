// Package coinmarketcap scrapes the cryptocurrency ranking pages
package coinmarketcap

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/PaesslerAG/jsonpath"
	"golang.org/x/net/html"
	"golang.org/x/time/rate"

	"github.com/bobmcallan/finhub/internal/common"
	"github.com/bobmcallan/finhub/internal/interfaces"
	"github.com/bobmcallan/finhub/internal/models"
)

// Compile-time interface check
var _ interfaces.CryptoClient = (*Client)(nil)

const (
	DefaultBaseURL   = "https://coinmarketcap.com"
	DefaultTimeout   = 30 * time.Second
	DefaultRateLimit = 1 // requests per second

	// ListingCurrency is the quote currency of the scraped ranking.
	ListingCurrency = "USD"

	statePath   = "$.props.initialState"
	listingPath = "$.cryptocurrency.listingLatest.data"
)

// symbolRenames aligns ranking tickers with exchange tickers.
var symbolRenames = map[string]string{"MIOTA": "IOTA"}

// Client implements the CryptoClient interface
type Client struct {
	baseURL    string
	httpClient *http.Client
	logger     *common.Logger
	limiter    *rate.Limiter
	today      func() models.Date
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

// WithToday overrides the date stamped on listings
func WithToday(today func() models.Date) ClientOption {
	return func(c *Client) {
		c.today = today
	}
}

// NewClient creates a new CoinMarketCap scraper
func NewClient(opts ...ClientOption) *Client {
	c := &Client{
		baseURL:    DefaultBaseURL,
		httpClient: &http.Client{Timeout: DefaultTimeout},
		limiter:    rate.NewLimiter(rate.Limit(DefaultRateLimit), DefaultRateLimit),
		logger:     common.NewSilentLogger(),
		today:      models.Today,
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
	return fmt.Sprintf("CoinMarketCap error: %s (status: %d, endpoint: %s)", e.Message, e.StatusCode, e.Endpoint)
}

// Unwrap classifies every site failure as external.
func (e *APIError) Unwrap() error { return models.ErrExternal }

func pageURL(base string, page int) string {
	if page == 0 {
		return base + "/"
	}
	return fmt.Sprintf("%s/?page=%d", base, page+1)
}

// GetListings scrapes the first pages of the ranking, 100 coins per page.
// Prices and volumes are in USD.
func (c *Client) GetListings(ctx context.Context, pages int) ([]models.CryptoListing, error) {
	if pages <= 0 {
		pages = 1
	}
	var out []models.CryptoListing
	for page := 0; page < pages; page++ {
		listings, err := c.listingPage(ctx, pageURL(c.baseURL, page))
		if err != nil {
			return nil, err
		}
		out = append(out, listings...)
	}
	c.logger.Info().Int("pages", pages).Int("coins", len(out)).Msg("Crypto listings scraped")
	return out, nil
}

func (c *Client) listingPage(ctx context.Context, addr string) ([]models.CryptoListing, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("rate limit wait: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, addr, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	c.logger.Debug().Str("url", addr).Msg("CoinMarketCap request")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to execute request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, &APIError{StatusCode: resp.StatusCode, Message: string(body), Endpoint: addr}
	}

	doc, err := html.Parse(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", addr, err)
	}
	payload := nextData(doc)
	if payload == "" {
		return nil, models.NewDataError(models.ErrExternal, "next_data", "", "no __NEXT_DATA__ script", addr)
	}
	return parseListings(payload, c.today())
}

// nextData returns the JSON body of the __NEXT_DATA__ script.
func nextData(n *html.Node) string {
	if n.Type == html.ElementNode && n.Data == "script" {
		for _, a := range n.Attr {
			if a.Key == "id" && a.Val == "__NEXT_DATA__" && n.FirstChild != nil {
				return n.FirstChild.Data
			}
		}
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if s := nextData(c); s != "" {
			return s
		}
	}
	return ""
}

func getPath(path string, obj any) (any, error) {
	v, err := jsonpath.Get(path, obj)
	if err != nil {
		return nil, models.NewDataError(models.ErrExternal, "listing_payload", "", fmt.Sprintf("%s: %v", path, err))
	}
	return v, nil
}

// parseListings decodes the page state. The listing is a header object with
// keysArr naming the columns, followed by one positional array per coin.
func parseListings(payload string, today models.Date) ([]models.CryptoListing, error) {
	var page any
	if err := json.Unmarshal([]byte(payload), &page); err != nil {
		return nil, models.NewDataError(models.ErrExternal, "listing_payload", "", err.Error())
	}
	raw, err := getPath(statePath, page)
	if err != nil {
		return nil, err
	}
	stateJSON, ok := raw.(string)
	if !ok {
		return nil, models.NewDataError(models.ErrExternal, "listing_payload", "", "initialState is not a string")
	}
	var state any
	if err := json.Unmarshal([]byte(stateJSON), &state); err != nil {
		return nil, models.NewDataError(models.ErrExternal, "listing_payload", "", err.Error())
	}
	raw, err = getPath(listingPath, state)
	if err != nil {
		return nil, err
	}
	data, ok := raw.([]any)
	if !ok || len(data) == 0 {
		return nil, models.NewDataError(models.ErrExternal, "listing_payload", "", "listing data is empty")
	}

	header, ok := data[0].(map[string]any)
	if !ok {
		return nil, models.NewDataError(models.ErrExternal, "listing_payload", "", "listing header missing")
	}
	keys, _ := header["keysArr"].([]any)
	index := make(map[string]int, len(keys))
	for i, k := range keys {
		if s, ok := k.(string); ok {
			index[s] = i
		}
	}
	for _, k := range []string{"name", "symbol", "quote.USD.price"} {
		if _, ok := index[k]; !ok {
			return nil, models.NewDataError(models.ErrExternal, "listing_payload", k, "listing lacks key")
		}
	}

	out := make([]models.CryptoListing, 0, len(data)-1)
	for _, entry := range data[1:] {
		row, ok := entry.([]any)
		if !ok {
			continue
		}
		str := func(key string) string {
			if i, ok := index[key]; ok && i < len(row) {
				s, _ := row[i].(string)
				return s
			}
			return ""
		}
		num := func(key string) float64 {
			if i, ok := index[key]; ok && i < len(row) {
				f, _ := row[i].(float64)
				return f
			}
			return 0
		}
		symbol := str("symbol")
		if renamed, ok := symbolRenames[symbol]; ok {
			symbol = renamed
		}
		out = append(out, models.CryptoListing{
			Name:      str("name"),
			Symbol:    symbol,
			Price:     num("quote.USD.price"),
			Volume24h: num("quote.USD.volume24h"),
			Change1h:  num("quote.USD.percentChange1h"),
			Change24h: num("quote.USD.percentChange24h"),
			Change7d:  num("quote.USD.percentChange7d"),
			Currency:  ListingCurrency,
			Date:      today,
		})
	}
	return out, nil
}
