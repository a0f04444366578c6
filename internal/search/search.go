// Package search implements debounced cross-entity search over trades,
// notes and influencers.
package search

import (
	"strings"
	"sync"
	"time"
	"unicode/utf8"

	"crypto-journal-go/internal/store"
	"go.uber.org/zap"
)

// Result types.
const (
	TypeTrade      = "trade"
	TypeNote       = "note"
	TypeInfluencer = "influencer"
)

const subtitleLimit = 80

// Result is one ranked search hit. Note hits carry the identity of the
// trade that owns the note.
type Result struct {
	Type     string `json:"type"`
	ID       uint   `json:"id"`
	Title    string `json:"title"`
	Subtitle string `json:"subtitle"`
}

// Scanner is the slice of the persistence collaborator the search layer needs.
type Scanner interface {
	SearchRaw(query string) (*store.RawMatches, error)
}

// Service turns raw store matches into display results, coalescing rapid
// successive queries through a cancellable debounce timer.
type Service struct {
	scanner Scanner
	logger  *zap.Logger
	wait    time.Duration

	mu         sync.Mutex
	timer      *time.Timer
	seq        uint64        // invocation tag; stale results are discarded
	superseded chan struct{} // closed when the pending invocation is replaced
}

// NewService creates a new search Service with the given quiet window.
func NewService(scanner Scanner, wait time.Duration, logger *zap.Logger) *Service {
	return &Service{scanner: scanner, logger: logger, wait: wait}
}

// Wait returns the configured quiet window.
func (s *Service) Wait() time.Duration {
	return s.wait
}

// Scan queries the store immediately. An empty or whitespace-only query
// yields nil without touching the store. Results are grouped by type in
// store order, so an unchanged data set always produces the same order.
func (s *Service) Scan(query string) ([]Result, error) {
	if strings.TrimSpace(query) == "" {
		return nil, nil
	}

	raw, err := s.scanner.SearchRaw(query)
	if err != nil {
		return nil, err
	}

	results := make([]Result, 0, len(raw.Trades)+len(raw.Notes)+len(raw.Influencers))
	for _, t := range raw.Trades {
		subtitle := t.TokenName
		if subtitle == "" {
			subtitle = t.ContractAddress
		}
		results = append(results, Result{
			Type:     TypeTrade,
			ID:       t.ID,
			Title:    t.TokenSymbol,
			Subtitle: subtitle,
		})
	}
	for _, n := range raw.Notes {
		results = append(results, Result{
			Type:     TypeNote,
			ID:       n.Note.TradeID,
			Title:    n.TradeSymbol,
			Subtitle: truncate(n.Note.Content),
		})
	}
	for _, inf := range raw.Influencers {
		subtitle := inf.Platform
		if inf.Handle != "" {
			subtitle = inf.Platform + " " + inf.Handle
		}
		results = append(results, Result{
			Type:     TypeInfluencer,
			ID:       inf.ID,
			Title:    inf.Name,
			Subtitle: strings.TrimSpace(subtitle),
		})
	}
	return results, nil
}

// Query schedules a debounced Scan. Only the last query issued within the
// quiet window reaches the store; earlier pending invocations are
// cancelled, not queued. deliver runs on the timer goroutine and is
// skipped entirely for invocations superseded before their results are in.
// The returned channel is closed once this invocation has been superseded,
// so callers waiting on deliver can stop waiting.
func (s *Service) Query(query string, deliver func([]Result, error)) <-chan struct{} {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.seq++
	seq := s.seq
	if s.timer != nil {
		s.timer.Stop()
	}
	if s.superseded != nil {
		close(s.superseded)
	}
	cancelled := make(chan struct{})
	s.superseded = cancelled

	s.timer = time.AfterFunc(s.wait, func() {
		if s.stale(seq) {
			return
		}
		results, err := s.Scan(query)
		if s.stale(seq) {
			// A newer query arrived while scanning; its results win.
			s.logger.Debug("Discarding stale search results", zap.String("query", query))
			return
		}
		deliver(results, err)
	})
	return cancelled
}

func (s *Service) stale(seq uint64) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return seq != s.seq
}

func truncate(content string) string {
	if utf8.RuneCountInString(content) <= subtitleLimit {
		return content
	}
	runes := []rune(content)
	return string(runes[:subtitleLimit]) + "..."
}
