// Package server exposes the journal over an HTTP JSON API.
package server

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"crypto-journal-go/internal/config"
	"crypto-journal-go/internal/market"
	"crypto-journal-go/internal/search"
	"crypto-journal-go/internal/store"
	"go.uber.org/zap"
)

// Server wires the store, search service and price refresher into an
// http.Server with graceful shutdown.
type Server struct {
	server    *http.Server
	store     store.Store
	search    *search.Service
	refresher *market.Refresher
	logger    *zap.Logger
}

// New creates a new Server. refresher may be nil when the market client
// is disabled; the prices endpoint then reports no data.
func New(cfg *config.Server, st store.Store, svc *search.Service, refresher *market.Refresher, logger *zap.Logger) *Server {
	s := &Server{
		store:     st,
		search:    svc,
		refresher: refresher,
		logger:    logger.Named("server"),
	}

	mux := http.NewServeMux()

	mux.HandleFunc("GET /api/trades", s.listTradesHandler)
	mux.HandleFunc("POST /api/trades", s.createTradeHandler)
	mux.HandleFunc("GET /api/trades/{id}", s.getTradeHandler)
	mux.HandleFunc("PUT /api/trades/{id}", s.updateTradeHandler)
	mux.HandleFunc("DELETE /api/trades/{id}", s.deleteTradeHandler)
	mux.HandleFunc("PUT /api/trades/{id}/tags", s.setTradeTagsHandler)
	mux.HandleFunc("GET /api/trades/{id}/notes", s.listNotesHandler)
	mux.HandleFunc("POST /api/trades/{id}/notes", s.createNoteHandler)
	mux.HandleFunc("DELETE /api/notes/{id}", s.deleteNoteHandler)

	mux.HandleFunc("GET /api/tags", s.listTagsHandler)
	mux.HandleFunc("POST /api/tags", s.createTagHandler)
	mux.HandleFunc("DELETE /api/tags/{id}", s.deleteTagHandler)

	mux.HandleFunc("GET /api/influencers", s.listInfluencersHandler)
	mux.HandleFunc("POST /api/influencers", s.createInfluencerHandler)
	mux.HandleFunc("DELETE /api/influencers/{id}", s.deleteInfluencerHandler)
	mux.HandleFunc("GET /api/calls", s.listCallsHandler)
	mux.HandleFunc("POST /api/calls", s.createCallHandler)

	mux.HandleFunc("GET /api/analytics", s.analyticsHandler)
	mux.HandleFunc("GET /api/search", s.searchHandler)
	mux.HandleFunc("GET /api/settings", s.listSettingsHandler)
	mux.HandleFunc("PUT /api/settings/{key}", s.setSettingHandler)
	mux.HandleFunc("GET /api/prices", s.pricesHandler)
	mux.HandleFunc("GET /health", s.healthHandler)

	s.server = &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.Port),
		Handler: mux,
	}
	return s
}

// Start runs the HTTP server in a new goroutine.
func (s *Server) Start() {
	s.logger.Info("Starting API server", zap.String("address", s.server.Addr))
	go func() {
		if err := s.server.ListenAndServe(); err != http.ErrServerClosed {
			s.logger.Error("API server failed", zap.Error(err))
		}
	}()
}

// Stop gracefully shuts down the server.
func (s *Server) Stop(ctx context.Context) error {
	s.logger.Info("Stopping API server...")
	return s.server.Shutdown(ctx)
}

func (s *Server) healthHandler(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	fmt.Fprintln(w, "OK")
}

// searchWaitSlack is added on top of the configured debounce window to
// bound how long a search request may wait before giving up.
const searchWaitSlack = 5 * time.Second
