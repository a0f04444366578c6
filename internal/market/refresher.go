package market

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"
)

// Refresher keeps a cached snapshot of ticker prices, refreshed on a fixed
// interval. Handlers read the snapshot instead of hitting the API per request.
type Refresher struct {
	client   ClientInterface
	logger   *zap.Logger
	interval time.Duration

	mu      sync.RWMutex
	prices  map[string]float64
	updated time.Time
}

// NewRefresher creates a new price Refresher.
func NewRefresher(client ClientInterface, interval time.Duration, logger *zap.Logger) *Refresher {
	return &Refresher{
		client:   client,
		logger:   logger,
		interval: interval,
		prices:   make(map[string]float64),
	}
}

// Run refreshes once immediately, then on every tick until the context is
// cancelled. A failed refresh keeps the previous snapshot.
func (r *Refresher) Run(ctx context.Context) {
	r.logger.Info("Starting price refresher", zap.Duration("interval", r.interval))
	r.refresh()

	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			r.logger.Info("Stopping price refresher...")
			return
		case <-ticker.C:
			r.refresh()
		}
	}
}

// Prices returns the latest snapshot and the time it was taken.
func (r *Refresher) Prices() (map[string]float64, time.Time) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	snapshot := make(map[string]float64, len(r.prices))
	for symbol, price := range r.prices {
		snapshot[symbol] = price
	}
	return snapshot, r.updated
}

func (r *Refresher) refresh() {
	prices, err := r.client.GetTickerPrices()
	if err != nil {
		r.logger.Error("Price refresh failed", zap.Error(err))
		return
	}

	r.mu.Lock()
	r.prices = prices
	r.updated = time.Now()
	r.mu.Unlock()

	r.logger.Debug("Refreshed ticker prices", zap.Int("count", len(prices)))
}
