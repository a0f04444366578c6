package server

import (
	"encoding/json"
	"errors"
	"math"
	"net/http"
	"strconv"
	"time"

	"crypto-journal-go/internal/analytics"
	"crypto-journal-go/internal/models"
	"crypto-journal-go/internal/search"
	"crypto-journal-go/internal/store"
	"go.uber.org/zap"
)

func (s *Server) writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.logger.Error("Failed to encode response", zap.Error(err))
	}
}

func (s *Server) storeError(w http.ResponseWriter, msg string, err error) {
	if errors.Is(err, store.ErrNotFound) {
		http.Error(w, msg+": not found", http.StatusNotFound)
		return
	}
	s.logger.Error(msg, zap.Error(err))
	http.Error(w, msg, http.StatusInternalServerError)
}

func pathID(r *http.Request) (uint, error) {
	id, err := strconv.ParseUint(r.PathValue("id"), 10, 32)
	return uint(id), err
}

// validTrade rejects malformed trades at the persistence boundary so the
// aggregator can assume validated input.
func validTrade(t *models.Trade) string {
	switch t.Direction {
	case models.DirectionBuy, models.DirectionSell:
	default:
		return "direction must be 'buy' or 'sell'"
	}
	switch t.Status {
	case models.StatusOpen, models.StatusClosed, models.StatusPartial:
	default:
		return "status must be 'open', 'closed' or 'partial'"
	}
	if t.Status == models.StatusClosed && t.PnlAmount == nil {
		return "closed trades require pnl_amount"
	}
	if t.Status != models.StatusClosed && t.PnlAmount != nil {
		return "pnl_amount is only valid on closed trades"
	}
	if t.TokenSymbol == "" {
		return "token_symbol is required"
	}
	return ""
}

func (s *Server) listTradesHandler(w http.ResponseWriter, r *http.Request) {
	filter := store.TradeFilter{Status: r.URL.Query().Get("status")}
	trades, err := s.store.ListTrades(filter)
	if err != nil {
		s.storeError(w, "Failed to list trades", err)
		return
	}
	s.writeJSON(w, http.StatusOK, trades)
}

func (s *Server) createTradeHandler(w http.ResponseWriter, r *http.Request) {
	var trade models.Trade
	if err := json.NewDecoder(r.Body).Decode(&trade); err != nil {
		http.Error(w, "Invalid trade payload", http.StatusBadRequest)
		return
	}
	if msg := validTrade(&trade); msg != "" {
		http.Error(w, msg, http.StatusBadRequest)
		return
	}
	if trade.EntryDate.IsZero() {
		trade.EntryDate = time.Now()
	}
	if err := s.store.CreateTrade(&trade); err != nil {
		s.storeError(w, "Failed to create trade", err)
		return
	}
	s.writeJSON(w, http.StatusCreated, trade)
}

func (s *Server) getTradeHandler(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		http.Error(w, "Invalid trade id", http.StatusBadRequest)
		return
	}
	trade, err := s.store.GetTrade(id)
	if err != nil {
		s.storeError(w, "Failed to get trade", err)
		return
	}
	s.writeJSON(w, http.StatusOK, trade)
}

func (s *Server) updateTradeHandler(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		http.Error(w, "Invalid trade id", http.StatusBadRequest)
		return
	}
	existing, err := s.store.GetTrade(id)
	if err != nil {
		s.storeError(w, "Failed to get trade", err)
		return
	}

	var trade models.Trade
	if err := json.NewDecoder(r.Body).Decode(&trade); err != nil {
		http.Error(w, "Invalid trade payload", http.StatusBadRequest)
		return
	}
	trade.Model = existing.Model
	trade.Ref = existing.Ref
	if msg := validTrade(&trade); msg != "" {
		http.Error(w, msg, http.StatusBadRequest)
		return
	}
	if err := s.store.UpdateTrade(&trade); err != nil {
		s.storeError(w, "Failed to update trade", err)
		return
	}
	s.writeJSON(w, http.StatusOK, trade)
}

func (s *Server) deleteTradeHandler(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		http.Error(w, "Invalid trade id", http.StatusBadRequest)
		return
	}
	if err := s.store.DeleteTrade(id); err != nil {
		s.storeError(w, "Failed to delete trade", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) setTradeTagsHandler(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		http.Error(w, "Invalid trade id", http.StatusBadRequest)
		return
	}
	var payload struct {
		TagIDs []uint `json:"tag_ids"`
	}
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		http.Error(w, "Invalid tag payload", http.StatusBadRequest)
		return
	}
	if err := s.store.SetTradeTags(id, payload.TagIDs); err != nil {
		s.storeError(w, "Failed to set trade tags", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) listNotesHandler(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		http.Error(w, "Invalid trade id", http.StatusBadRequest)
		return
	}
	notes, err := s.store.ListNotes(id)
	if err != nil {
		s.storeError(w, "Failed to list notes", err)
		return
	}
	s.writeJSON(w, http.StatusOK, notes)
}

func (s *Server) createNoteHandler(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		http.Error(w, "Invalid trade id", http.StatusBadRequest)
		return
	}
	var note models.Note
	if err := json.NewDecoder(r.Body).Decode(&note); err != nil {
		http.Error(w, "Invalid note payload", http.StatusBadRequest)
		return
	}
	if note.Content == "" {
		http.Error(w, "content is required", http.StatusBadRequest)
		return
	}
	note.TradeID = id
	if err := s.store.CreateNote(&note); err != nil {
		s.storeError(w, "Failed to create note", err)
		return
	}
	s.writeJSON(w, http.StatusCreated, note)
}

func (s *Server) deleteNoteHandler(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		http.Error(w, "Invalid note id", http.StatusBadRequest)
		return
	}
	if err := s.store.DeleteNote(id); err != nil {
		s.storeError(w, "Failed to delete note", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) listTagsHandler(w http.ResponseWriter, r *http.Request) {
	tags, err := s.store.ListTags()
	if err != nil {
		s.storeError(w, "Failed to list tags", err)
		return
	}
	s.writeJSON(w, http.StatusOK, tags)
}

func (s *Server) createTagHandler(w http.ResponseWriter, r *http.Request) {
	var tag models.Tag
	if err := json.NewDecoder(r.Body).Decode(&tag); err != nil {
		http.Error(w, "Invalid tag payload", http.StatusBadRequest)
		return
	}
	if tag.Name == "" {
		http.Error(w, "name is required", http.StatusBadRequest)
		return
	}
	switch tag.Category {
	case models.CategoryNarrative, models.CategoryTechnical, models.CategoryMeta:
	case "":
		tag.Category = models.CategoryNarrative
	default:
		http.Error(w, "category must be 'narrative', 'technical' or 'meta'", http.StatusBadRequest)
		return
	}
	if err := s.store.CreateTag(&tag); err != nil {
		s.storeError(w, "Failed to create tag", err)
		return
	}
	s.writeJSON(w, http.StatusCreated, tag)
}

func (s *Server) deleteTagHandler(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		http.Error(w, "Invalid tag id", http.StatusBadRequest)
		return
	}
	if err := s.store.DeleteTag(id); err != nil {
		s.storeError(w, "Failed to delete tag", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) listInfluencersHandler(w http.ResponseWriter, r *http.Request) {
	influencers, err := s.store.ListInfluencers()
	if err != nil {
		s.storeError(w, "Failed to list influencers", err)
		return
	}
	s.writeJSON(w, http.StatusOK, influencers)
}

func (s *Server) createInfluencerHandler(w http.ResponseWriter, r *http.Request) {
	var influencer models.Influencer
	if err := json.NewDecoder(r.Body).Decode(&influencer); err != nil {
		http.Error(w, "Invalid influencer payload", http.StatusBadRequest)
		return
	}
	if influencer.Name == "" {
		http.Error(w, "name is required", http.StatusBadRequest)
		return
	}
	if err := s.store.CreateInfluencer(&influencer); err != nil {
		s.storeError(w, "Failed to create influencer", err)
		return
	}
	s.writeJSON(w, http.StatusCreated, influencer)
}

func (s *Server) deleteInfluencerHandler(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		http.Error(w, "Invalid influencer id", http.StatusBadRequest)
		return
	}
	if err := s.store.DeleteInfluencer(id); err != nil {
		s.storeError(w, "Failed to delete influencer", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) listCallsHandler(w http.ResponseWriter, r *http.Request) {
	calls, err := s.store.ListInfluencerCalls()
	if err != nil {
		s.storeError(w, "Failed to list influencer calls", err)
		return
	}
	s.writeJSON(w, http.StatusOK, calls)
}

func (s *Server) createCallHandler(w http.ResponseWriter, r *http.Request) {
	var call models.InfluencerCall
	if err := json.NewDecoder(r.Body).Decode(&call); err != nil {
		http.Error(w, "Invalid call payload", http.StatusBadRequest)
		return
	}
	if call.InfluencerID == 0 || call.Content == "" {
		http.Error(w, "influencer_id and content are required", http.StatusBadRequest)
		return
	}
	if call.CallDate.IsZero() {
		call.CallDate = time.Now()
	}
	if err := s.store.CreateInfluencerCall(&call); err != nil {
		s.storeError(w, "Failed to create influencer call", err)
		return
	}
	s.writeJSON(w, http.StatusCreated, call)
}

// analyticsResponse renders the infinite profit-factor sentinel as JSON
// null; every other value passes through as a number.
type analyticsResponse struct {
	*analytics.Summary
	ProfitFactor *float64 `json:"profit_factor"`
}

func (s *Server) analyticsHandler(w http.ResponseWriter, r *http.Request) {
	filter, err := dateFilter(r)
	if err != nil {
		http.Error(w, "Invalid date filter, use YYYY-MM-DD", http.StatusBadRequest)
		return
	}

	trades, err := s.store.ListTrades(filter)
	if err != nil {
		s.storeError(w, "Failed to list trades", err)
		return
	}
	tagsByTrade, err := s.store.TagsByTrade()
	if err != nil {
		s.storeError(w, "Failed to resolve tags", err)
		return
	}
	emotionsByTrade, err := s.store.EmotionsByTrade()
	if err != nil {
		s.storeError(w, "Failed to resolve emotions", err)
		return
	}

	summary, err := analytics.Compute(trades, tagsByTrade, emotionsByTrade)
	var integrity *analytics.IntegrityError
	if errors.As(err, &integrity) {
		s.logger.Error("Analytics rejected inconsistent trade", zap.Error(err))
		http.Error(w, "Stored trade data is inconsistent: "+integrity.Error(), http.StatusUnprocessableEntity)
		return
	}
	if err != nil {
		s.logger.Error("Analytics computation failed", zap.Error(err))
		http.Error(w, "Failed to compute analytics", http.StatusInternalServerError)
		return
	}

	resp := analyticsResponse{Summary: summary}
	if !math.IsInf(summary.ProfitFactor, 1) {
		pf := summary.ProfitFactor
		resp.ProfitFactor = &pf
	}
	s.writeJSON(w, http.StatusOK, resp)
}

func dateFilter(r *http.Request) (store.TradeFilter, error) {
	var filter store.TradeFilter
	if from := r.URL.Query().Get("from"); from != "" {
		t, err := time.Parse("2006-01-02", from)
		if err != nil {
			return filter, err
		}
		filter.From = &t
	}
	if to := r.URL.Query().Get("to"); to != "" {
		t, err := time.Parse("2006-01-02", to)
		if err != nil {
			return filter, err
		}
		filter.To = &t
	}
	return filter, nil
}

// searchHandler is debounced: rapid successive requests coalesce so only
// the last one inside the quiet window scans the store. Superseded
// requests respond 204 without a body.
func (s *Server) searchHandler(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query().Get("q")

	type outcome struct {
		results []search.Result
		err     error
	}
	done := make(chan outcome, 1)
	cancelled := s.search.Query(query, func(results []search.Result, err error) {
		done <- outcome{results: results, err: err}
	})

	select {
	case o := <-done:
		if o.err != nil {
			s.logger.Error("Search failed", zap.String("query", query), zap.Error(o.err))
			http.Error(w, "Search failed", http.StatusInternalServerError)
			return
		}
		if o.results == nil {
			o.results = []search.Result{}
		}
		s.writeJSON(w, http.StatusOK, o.results)
	case <-cancelled:
		w.WriteHeader(http.StatusNoContent)
	case <-r.Context().Done():
	case <-time.After(s.search.Wait() + searchWaitSlack):
		w.WriteHeader(http.StatusNoContent)
	}
}

func (s *Server) listSettingsHandler(w http.ResponseWriter, r *http.Request) {
	settings, err := s.store.ListSettings()
	if err != nil {
		s.storeError(w, "Failed to list settings", err)
		return
	}
	s.writeJSON(w, http.StatusOK, settings)
}

func (s *Server) setSettingHandler(w http.ResponseWriter, r *http.Request) {
	key := r.PathValue("key")
	var payload struct {
		Value string `json:"value"`
	}
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		http.Error(w, "Invalid setting payload", http.StatusBadRequest)
		return
	}
	if err := s.store.SetSetting(key, payload.Value); err != nil {
		s.storeError(w, "Failed to save setting", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// pricesResponse pairs the cached ticker snapshot with the unrealized
// P&L of every open position it covers.
type pricesResponse struct {
	UpdatedAt time.Time            `json:"updated_at"`
	Prices    map[string]float64   `json:"prices"`
	Positions []analytics.Position `json:"positions"`
}

func (s *Server) pricesHandler(w http.ResponseWriter, r *http.Request) {
	if s.refresher == nil {
		http.Error(w, "Market data is disabled", http.StatusServiceUnavailable)
		return
	}
	prices, updated := s.refresher.Prices()

	trades, err := s.store.ListTrades(store.TradeFilter{})
	if err != nil {
		s.storeError(w, "Failed to list trades", err)
		return
	}

	resp := pricesResponse{
		UpdatedAt: updated,
		Prices:    prices,
		Positions: analytics.Unrealized(trades, prices),
	}
	if resp.Positions == nil {
		resp.Positions = []analytics.Position{}
	}
	s.writeJSON(w, http.StatusOK, resp)
}
