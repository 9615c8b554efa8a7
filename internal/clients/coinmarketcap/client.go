// Package coinmarketcap provides a client for the CoinMarketCap API
package coinmarketcap

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"cryptofolio/internal/common"
	"cryptofolio/internal/interfaces"
	"cryptofolio/internal/models"
)

const (
	DefaultBaseURL   = "https://pro-api.coinmarketcap.com/v1"
	DefaultTimeout   = 30 * time.Second
	DefaultRateLimit = 2 // requests per second
	maxAttempts      = 3
)

// Client implements the MarketClient interface against CoinMarketCap.
type Client struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
	logger     *common.Logger
	limiter    *rate.Limiter
}

var _ interfaces.MarketClient = (*Client)(nil)

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
		c.limiter = rate.NewLimiter(rate.Limit(requestsPerSecond), requestsPerSecond)
	}
}

// WithTimeout sets the HTTP timeout
func WithTimeout(timeout time.Duration) ClientOption {
	return func(c *Client) {
		c.httpClient.Timeout = timeout
	}
}

// NewClient creates a new CoinMarketCap client
func NewClient(apiKey string, opts ...ClientOption) *Client {
	c := &Client{
		baseURL: DefaultBaseURL,
		apiKey:  apiKey,
		httpClient: &http.Client{
			Timeout: DefaultTimeout,
		},
		limiter: rate.NewLimiter(rate.Limit(DefaultRateLimit), DefaultRateLimit),
		logger:  common.NewSilentLogger(),
	}

	for _, opt := range opts {
		opt(c)
	}

	return c
}

// APIError represents an API error
type APIError struct {
	StatusCode int
	Message    string
	Endpoint   string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("CoinMarketCap API error: %s (status: %d, endpoint: %s)", e.Message, e.StatusCode, e.Endpoint)
}

// retryable reports whether a response status warrants another attempt.
func retryable(statusCode int) bool {
	return statusCode == http.StatusTooManyRequests || statusCode >= 500
}

// get performs a rate-limited GET request with retry on 429/5xx.
func (c *Client) get(ctx context.Context, path string, params url.Values, result interface{}) error {
	reqURL := fmt.Sprintf("%s%s?%s", c.baseURL, path, params.Encode())

	var lastErr error
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		if err := c.limiter.Wait(ctx); err != nil {
			return fmt.Errorf("rate limit wait: %w", err)
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
		if err != nil {
			return fmt.Errorf("failed to create request: %w", err)
		}
		req.Header.Set("X-CMC_PRO_API_KEY", c.apiKey)
		req.Header.Set("Accept", "application/json")

		c.logger.Debug().Str("url", c.baseURL+path).Int("attempt", attempt).Msg("CoinMarketCap API request")

		resp, err := c.httpClient.Do(req)
		if err != nil {
			lastErr = fmt.Errorf("failed to execute request: %w", err)
			continue
		}

		if resp.StatusCode != http.StatusOK {
			body, _ := io.ReadAll(resp.Body)
			resp.Body.Close()
			apiErr := &APIError{
				StatusCode: resp.StatusCode,
				Message:    strings.TrimSpace(string(body)),
				Endpoint:   path,
			}
			if !retryable(resp.StatusCode) {
				return apiErr
			}
			lastErr = apiErr
			continue
		}

		err = json.NewDecoder(resp.Body).Decode(result)
		resp.Body.Close()
		if err != nil {
			return fmt.Errorf("failed to decode response: %w", err)
		}
		return nil
	}

	return fmt.Errorf("request failed after %d attempts: %w", maxAttempts, lastErr)
}

// --- Response shapes ---

type statusEnvelope struct {
	ErrorCode    int    `json:"error_code"`
	ErrorMessage string `json:"error_message"`
}

type usdQuote struct {
	Price            float64   `json:"price"`
	Volume24h        float64   `json:"volume_24h"`
	MarketCap        float64   `json:"market_cap"`
	PercentChange24h float64   `json:"percent_change_24h"`
	LastUpdated      time.Time `json:"last_updated"`
}

type quoteEntry struct {
	ID     int                 `json:"id"`
	Symbol string              `json:"symbol"`
	Name   string              `json:"name"`
	Quote  map[string]usdQuote `json:"quote"`
}

type quotesResponse struct {
	Status statusEnvelope        `json:"status"`
	Data   map[string]quoteEntry `json:"data"`
}

type listingsResponse struct {
	Status statusEnvelope `json:"status"`
	Data   []listingEntry `json:"data"`
}

type listingEntry struct {
	ID      int                 `json:"id"`
	Symbol  string              `json:"symbol"`
	Name    string              `json:"name"`
	CMCRank int                 `json:"cmc_rank"`
	Quote   map[string]usdQuote `json:"quote"`
}

func toQuote(symbol string, q usdQuote) models.Quote {
	return models.Quote{
		Symbol:           strings.ToUpper(symbol),
		Price:            q.Price,
		Volume24h:        q.Volume24h,
		MarketCap:        q.MarketCap,
		PercentChange24h: q.PercentChange24h,
		LastUpdated:      q.LastUpdated,
		Source:           "coinmarketcap",
	}
}

// GetQuotes retrieves latest USD quotes for the given symbols, keyed by
// upper-case symbol. Symbols the provider does not know are absent from the
// result rather than an error.
func (c *Client) GetQuotes(ctx context.Context, symbols []string) (map[string]models.Quote, error) {
	if len(symbols) == 0 {
		return map[string]models.Quote{}, nil
	}

	upper := make([]string, 0, len(symbols))
	for _, s := range symbols {
		s = strings.ToUpper(strings.TrimSpace(s))
		if s != "" {
			upper = append(upper, s)
		}
	}

	params := url.Values{}
	params.Set("symbol", strings.Join(upper, ","))
	params.Set("convert", "USD")
	params.Set("skip_invalid", "true")

	var resp quotesResponse
	if err := c.get(ctx, "/cryptocurrency/quotes/latest", params, &resp); err != nil {
		return nil, err
	}
	if resp.Status.ErrorCode != 0 {
		return nil, &APIError{
			StatusCode: http.StatusOK,
			Message:    resp.Status.ErrorMessage,
			Endpoint:   "/cryptocurrency/quotes/latest",
		}
	}

	quotes := make(map[string]models.Quote, len(resp.Data))
	for symbol, entry := range resp.Data {
		usd, ok := entry.Quote["USD"]
		if !ok || usd.Price <= 0 {
			continue
		}
		quotes[strings.ToUpper(symbol)] = toQuote(symbol, usd)
	}
	return quotes, nil
}

// GetListings retrieves the top market listings by capitalization.
func (c *Client) GetListings(ctx context.Context, limit int) ([]interfaces.Listing, error) {
	if limit <= 0 {
		limit = 100
	}

	params := url.Values{}
	params.Set("start", "1")
	params.Set("limit", strconv.Itoa(limit))
	params.Set("convert", "USD")
	params.Set("sort", "market_cap")

	var resp listingsResponse
	if err := c.get(ctx, "/cryptocurrency/listings/latest", params, &resp); err != nil {
		return nil, err
	}
	if resp.Status.ErrorCode != 0 {
		return nil, &APIError{
			StatusCode: http.StatusOK,
			Message:    resp.Status.ErrorMessage,
			Endpoint:   "/cryptocurrency/listings/latest",
		}
	}

	listings := make([]interfaces.Listing, 0, len(resp.Data))
	for _, entry := range resp.Data {
		l := interfaces.Listing{
			SourceID: entry.ID,
			Symbol:   strings.ToUpper(entry.Symbol),
			Name:     entry.Name,
			Rank:     entry.CMCRank,
		}
		if usd, ok := entry.Quote["USD"]; ok {
			l.Quote = toQuote(entry.Symbol, usd)
		}
		listings = append(listings, l)
	}
	return listings, nil
}
