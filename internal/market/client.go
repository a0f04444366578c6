package market

import (
	"context"
	"fmt"
	"math"
	"net/http"
	"strconv"
	"strings"
	"time"

	"crypto-journal-go/internal/config"
	"github.com/go-resty/resty/v2"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

// ClientInterface defines the interface for the ticker price client.
type ClientInterface interface {
	GetTickerPrices() (map[string]float64, error)
}

// Client fetches public ticker prices from a Binance-style REST API.
// The journal only reads prices, so no API key or signing is involved.
type Client struct {
	client  *resty.Client
	logger  *zap.Logger
	limiter *rate.Limiter
	quote   string
}

// ensure Client implements the interface
var _ ClientInterface = (*Client)(nil)

// NewClient creates a new ticker price client.
func NewClient(cfg *config.Market, logger *zap.Logger) *Client {
	client := resty.New().SetBaseURL(cfg.BaseURL)

	// rate.Limit is requests per second.
	limiter := rate.NewLimiter(rate.Limit(cfg.RateLimit), cfg.RateLimitBurst)

	return &Client{
		client:  client,
		logger:  logger,
		limiter: limiter,
		quote:   cfg.QuoteAsset,
	}
}

// TickerPrice represents the response for a single ticker price.
type TickerPrice struct {
	Symbol string `json:"symbol"`
	Price  string `json:"price"`
}

// doRequest handles the actual request execution with rate limiting and retry logic.
func (c *Client) doRequest(ctx context.Context, method, url string, req *resty.Request) (*resty.Response, error) {
	var resp *resty.Response
	var err error
	const maxRetries = 3

	for i := 0; i < maxRetries; i++ {
		// Wait for the rate limiter
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, fmt.Errorf("rate limiter wait failed: %w", err)
		}

		c.logger.Debug("Executing request", zap.String("method", method), zap.String("url", c.client.BaseURL+url))
		resp, err = req.Execute(method, url)

		if err == nil && !resp.IsError() {
			return resp, nil // Success
		}

		// Analyze error and decide whether to retry
		shouldRetry := false
		var retryAfter time.Duration

		if resp != nil {
			statusCode := resp.StatusCode()
			if statusCode == http.StatusTooManyRequests || statusCode == 418 { // HTTP 429 or 418
				shouldRetry = true
				retryAfterHeader := resp.Header().Get("Retry-After")
				if seconds, err := strconv.Atoi(retryAfterHeader); err == nil {
					retryAfter = time.Duration(seconds) * time.Second
				}
			} else if statusCode >= 500 { // Server errors
				shouldRetry = true
			}
		} else { // Network or other client-side errors
			shouldRetry = true
		}

		if !shouldRetry {
			return nil, fmt.Errorf("request failed with status %s: %s", resp.Status(), resp.String())
		}

		// If we should retry, calculate wait time
		if retryAfter == 0 {
			// Exponential backoff: 1s, 2s, 4s
			retryAfter = time.Duration(math.Pow(2, float64(i))) * time.Second
		}

		c.logger.Warn("Request failed, retrying...",
			zap.Int("attempt", i+1),
			zap.Duration("retry_after", retryAfter),
			zap.Error(err),
		)

		select {
		case <-time.After(retryAfter):
			continue
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}

	if err != nil {
		return nil, fmt.Errorf("request failed after %d attempts: %w", maxRetries, err)
	}
	return nil, fmt.Errorf("request failed after %d attempts with status %s", maxRetries, resp.Status())
}

// GetTickerPrices fetches the latest price for every symbol quoted in the
// configured quote asset, keyed by base token symbol ("PEPEUSDT" -> "PEPE").
func (c *Client) GetTickerPrices() (map[string]float64, error) {
	var tickers []*TickerPrice

	req := c.client.R().
		SetResult(&tickers).
		SetHeader("Content-Type", "application/json")
	ctx := context.Background()

	resp, err := c.doRequest(ctx, "GET", "/ticker/price", req)
	if err != nil {
		return nil, fmt.Errorf("failed to get ticker prices: %w", err)
	}

	result := resp.Result().(*[]*TickerPrice)
	prices := make(map[string]float64, len(*result))
	for _, tp := range *result {
		if !strings.HasSuffix(tp.Symbol, c.quote) {
			continue
		}
		price, err := strconv.ParseFloat(tp.Price, 64)
		if err != nil {
			c.logger.Warn("Skipping unparsable ticker price",
				zap.String("symbol", tp.Symbol),
				zap.String("price", tp.Price),
			)
			continue
		}
		base := strings.TrimSuffix(tp.Symbol, c.quote)
		prices[base] = price
	}

	return prices, nil
}
