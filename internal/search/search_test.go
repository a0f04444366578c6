package search

import (
	"sync"
	"testing"
	"time"

	"crypto-journal-go/internal/models"
	"crypto-journal-go/internal/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// fakeScanner records every scan so tests can assert how often the
// persistence layer was actually hit.
type fakeScanner struct {
	mu      sync.Mutex
	queries []string
	matches *store.RawMatches
	delays  map[string]time.Duration
}

func newFakeScanner() *fakeScanner {
	return &fakeScanner{
		matches: &store.RawMatches{},
		delays:  make(map[string]time.Duration),
	}
}

func (f *fakeScanner) SearchRaw(query string) (*store.RawMatches, error) {
	f.mu.Lock()
	f.queries = append(f.queries, query)
	delay := f.delays[query]
	f.mu.Unlock()

	if delay > 0 {
		time.Sleep(delay)
	}
	return f.matches, nil
}

func (f *fakeScanner) scanned() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.queries...)
}

func TestScanEmptyQuerySkipsStore(t *testing.T) {
	testCases := []struct {
		name  string
		query string
	}{
		{name: "Empty", query: ""},
		{name: "Whitespace only", query: "   \t "},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			scanner := newFakeScanner()
			svc := NewService(scanner, time.Millisecond, zap.NewNop())

			results, err := svc.Scan(tc.query)
			assert.NoError(t, err)
			assert.Nil(t, results)
			assert.Empty(t, scanner.scanned())
		})
	}
}

func TestScanShapesResults(t *testing.T) {
	scanner := newFakeScanner()
	scanner.matches = &store.RawMatches{
		Trades: []models.Trade{
			{Model: gorm.Model{ID: 1}, TokenSymbol: "PEPE", TokenName: "Pepe"},
		},
		Notes: []store.NoteMatch{
			{
				Note:        models.Note{Model: gorm.Model{ID: 9}, TradeID: 1, Content: "aped in on the pepe breakout"},
				TradeRef:    "01J0TEST",
				TradeSymbol: "PEPE",
			},
		},
		Influencers: []models.Influencer{
			{Model: gorm.Model{ID: 4}, Name: "PepeWhale", Platform: "twitter", Handle: "@pepewhale"},
		},
	}
	svc := NewService(scanner, time.Millisecond, zap.NewNop())

	results, err := svc.Scan("pepe")
	require.NoError(t, err)
	require.Len(t, results, 3)

	// Grouped by type: trades, then notes, then influencers.
	assert.Equal(t, Result{Type: TypeTrade, ID: 1, Title: "PEPE", Subtitle: "Pepe"}, results[0])
	// Note hits surface under the owning trade's identity.
	assert.Equal(t, TypeNote, results[1].Type)
	assert.Equal(t, uint(1), results[1].ID)
	assert.Equal(t, "PEPE", results[1].Title)
	assert.Equal(t, "aped in on the pepe breakout", results[1].Subtitle)
	assert.Equal(t, Result{Type: TypeInfluencer, ID: 4, Title: "PepeWhale", Subtitle: "twitter @pepewhale"}, results[2])

	// Determinism: the same query against unchanged data yields the same order.
	again, err := svc.Scan("pepe")
	require.NoError(t, err)
	assert.Equal(t, results, again)
}

func TestQueryDebouncesKeystrokes(t *testing.T) {
	scanner := newFakeScanner()
	svc := NewService(scanner, 30*time.Millisecond, zap.NewNop())

	var mu sync.Mutex
	var delivered []string
	deliver := func(q string) func([]Result, error) {
		return func([]Result, error) {
			mu.Lock()
			delivered = append(delivered, q)
			mu.Unlock()
		}
	}

	svc.Query("a", deliver("a"))
	svc.Query("ap", deliver("ap"))
	svc.Query("app", deliver("app"))

	time.Sleep(200 * time.Millisecond)

	// Exactly one scan, for the final query.
	assert.Equal(t, []string{"app"}, scanner.scanned())
	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, []string{"app"}, delivered)
}

func TestQueryResetsQuietWindow(t *testing.T) {
	scanner := newFakeScanner()
	svc := NewService(scanner, 50*time.Millisecond, zap.NewNop())

	svc.Query("btc", func([]Result, error) {})
	time.Sleep(25 * time.Millisecond) // inside the quiet window
	svc.Query("btcd", func([]Result, error) {})

	time.Sleep(200 * time.Millisecond)
	assert.Equal(t, []string{"btcd"}, scanner.scanned())
}

func TestQuerySupersededChannelCloses(t *testing.T) {
	scanner := newFakeScanner()
	svc := NewService(scanner, time.Hour, zap.NewNop()) // never fires on its own

	first := svc.Query("one", func([]Result, error) {})
	second := svc.Query("two", func([]Result, error) {})

	select {
	case <-first:
	case <-time.After(time.Second):
		t.Fatal("superseded invocation was never cancelled")
	}

	select {
	case <-second:
		t.Fatal("latest invocation must stay pending")
	default:
	}
}

func TestQueryDiscardsStaleResults(t *testing.T) {
	scanner := newFakeScanner()
	scanner.delays["slow"] = 100 * time.Millisecond
	svc := NewService(scanner, 10*time.Millisecond, zap.NewNop())

	var mu sync.Mutex
	var delivered []string
	deliver := func(q string) func([]Result, error) {
		return func([]Result, error) {
			mu.Lock()
			delivered = append(delivered, q)
			mu.Unlock()
		}
	}

	svc.Query("slow", deliver("slow"))
	time.Sleep(40 * time.Millisecond) // slow scan is now in flight
	svc.Query("fast", deliver("fast"))

	time.Sleep(300 * time.Millisecond)

	// Both scans ran, but the slow one resolved after it was superseded
	// and its result must never surface.
	assert.Equal(t, []string{"slow", "fast"}, scanner.scanned())
	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, []string{"fast"}, delivered)
}
