package market

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

// setupTestClient creates a new test server and a Client configured to use it.
func setupTestClient(handler http.Handler) (*Client, *httptest.Server) {
	server := httptest.NewServer(handler)

	c := &Client{
		client:  resty.New().SetBaseURL(server.URL),
		logger:  zap.NewNop(),
		limiter: rate.NewLimiter(rate.Inf, 1), // Allow all requests in tests
		quote:   "USDT",
	}
	return c, server
}

func TestGetTickerPrices(t *testing.T) {
	t.Run("Success", func(t *testing.T) {
		mockResponse := `[
			{"symbol": "PEPEUSDT", "price": "0.0000125"},
			{"symbol": "SOLUSDT", "price": "150.50"},
			{"symbol": "SOLBTC", "price": "0.0025"},
			{"symbol": "BADUSDT", "price": "not-a-number"}
		]`
		handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, "/ticker/price", r.URL.Path)
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusOK)
			_, _ = w.Write([]byte(mockResponse))
		})

		c, server := setupTestClient(handler)
		defer server.Close()

		prices, err := c.GetTickerPrices()
		require.NoError(t, err)

		// Only USDT-quoted symbols, keyed by base token, bad rows skipped.
		require.Len(t, prices, 2)
		assert.InDelta(t, 0.0000125, prices["PEPE"], 1e-12)
		assert.InDelta(t, 150.50, prices["SOL"], 1e-9)
	})

	t.Run("APIError", func(t *testing.T) {
		handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusBadRequest)
			_, _ = w.Write([]byte(`{"code": -1100, "msg": "Illegal parameter"}`))
		})

		c, server := setupTestClient(handler)
		defer server.Close()

		prices, err := c.GetTickerPrices()
		assert.Error(t, err)
		assert.Contains(t, err.Error(), "failed to get ticker prices")
		assert.Nil(t, prices)
	})

	t.Run("ExhaustedRetriesReportStatus", func(t *testing.T) {
		handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Retry-After", "1")
			w.WriteHeader(http.StatusTooManyRequests)
		})

		c, server := setupTestClient(handler)
		defer server.Close()

		_, err := c.GetTickerPrices()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "after 3 attempts")
		assert.Contains(t, err.Error(), "429")
		assert.NotContains(t, err.Error(), "%!w")
	})

	t.Run("RetriesServerErrors", func(t *testing.T) {
		var calls atomic.Int32
		handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if calls.Add(1) == 1 {
				w.WriteHeader(http.StatusInternalServerError)
				return
			}
			w.Header().Set("Content-Type", "application/json")
			_, _ = w.Write([]byte(`[{"symbol": "SOLUSDT", "price": "150"}]`))
		})

		c, server := setupTestClient(handler)
		defer server.Close()

		prices, err := c.GetTickerPrices()
		require.NoError(t, err)
		assert.InDelta(t, 150.0, prices["SOL"], 1e-9)
		assert.Equal(t, int32(2), calls.Load())
	})
}

// staticClient feeds the refresher canned prices without a network.
type staticClient struct {
	prices map[string]float64
	err    error
}

func (s *staticClient) GetTickerPrices() (map[string]float64, error) {
	return s.prices, s.err
}

func TestRefresher(t *testing.T) {
	client := &staticClient{prices: map[string]float64{"SOL": 150}}
	r := NewRefresher(client, time.Hour, zap.NewNop())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		r.Run(ctx)
		close(done)
	}()

	// Run refreshes once immediately.
	assert.Eventually(t, func() bool {
		prices, updated := r.Prices()
		return !updated.IsZero() && prices["SOL"] == 150
	}, time.Second, 10*time.Millisecond)

	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("refresher did not stop on context cancel")
	}
}

func TestRefresherKeepsSnapshotOnFailure(t *testing.T) {
	client := &staticClient{prices: map[string]float64{"SOL": 150}}
	r := NewRefresher(client, time.Hour, zap.NewNop())

	r.refresh()
	client.err = assert.AnError
	r.refresh()

	prices, updated := r.Prices()
	assert.False(t, updated.IsZero())
	assert.InDelta(t, 150.0, prices["SOL"], 1e-9)
}
