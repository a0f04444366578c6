// Package analytics computes journal statistics as pure functions over
// in-memory trade snapshots. Nothing here touches the store or keeps state.
package analytics

import (
	"fmt"
	"math"
	"sort"

	"crypto-journal-go/internal/models"
)

// IntegrityError signals a stored trade that violates the closed/pnl
// invariant. It is fatal to the single computation, not to the process.
type IntegrityError struct {
	TradeID uint
	Ref     string
	Reason  string
}

func (e *IntegrityError) Error() string {
	return fmt.Sprintf("trade %d (%s): %s", e.TradeID, e.Ref, e.Reason)
}

// Bucket aggregates closed trades sharing one tag or emotion. A trade
// with several tags contributes to every one of its buckets in full.
type Bucket struct {
	Key        string  `json:"key"`
	TradeCount int     `json:"trade_count"`
	Wins       int     `json:"wins"`
	TotalPnl   float64 `json:"total_pnl"`
}

// MonthBucket is one calendar month of realized P&L.
type MonthBucket struct {
	Month      string  `json:"month"` // "2006-01"
	TotalPnl   float64 `json:"total_pnl"`
	TradeCount int     `json:"trade_count"`
}

// Summary holds every statistic the journal surfaces. ProfitFactor is
// math.Inf(1) when there are winners and no losers; callers that
// serialize to JSON must handle that sentinel themselves.
type Summary struct {
	TotalTrades  int     `json:"total_trades"`
	ClosedTrades int     `json:"closed_trades"`
	Winners      int     `json:"winners"`
	Losers       int     `json:"losers"`
	WinRate      float64 `json:"win_rate"` // percentage, 0 when no closed trades
	TotalPnl     float64 `json:"total_pnl"`
	AvgWin       float64 `json:"avg_win"`
	AvgLoss      float64 `json:"avg_loss"`
	GrossProfit  float64 `json:"gross_profit"`
	GrossLoss    float64 `json:"gross_loss"` // negative or zero
	ProfitFactor float64 `json:"-"`
	BiggestWin   float64 `json:"biggest_win"`
	BiggestLoss  float64 `json:"biggest_loss"`

	ByTag     []Bucket      `json:"by_tag"`
	ByEmotion []Bucket      `json:"by_emotion"`
	Monthly   []MonthBucket `json:"monthly"`
}

// Compute aggregates the given trade set. Only closed trades contribute to
// win/loss statistics; zero-pnl trades count as neither win nor loss.
// Tag and emotion associations are resolved by the caller (see store).
func Compute(trades []models.Trade, tagsByTrade map[uint][]models.Tag, emotionByTrade map[uint]string) (*Summary, error) {
	summary := &Summary{TotalTrades: len(trades)}

	tagBuckets := make(map[string]*Bucket)
	emotionBuckets := make(map[string]*Bucket)
	monthBuckets := make(map[string]*MonthBucket)

	for _, t := range trades {
		if err := checkIntegrity(&t); err != nil {
			return nil, err
		}
		if !t.Closed() {
			continue
		}

		pnl := *t.PnlAmount
		summary.ClosedTrades++
		summary.TotalPnl += pnl

		win := pnl > 0
		switch {
		case win:
			summary.Winners++
			summary.GrossProfit += pnl
			if pnl > summary.BiggestWin {
				summary.BiggestWin = pnl
			}
		case pnl < 0:
			summary.Losers++
			summary.GrossLoss += pnl
			if pnl < summary.BiggestLoss {
				summary.BiggestLoss = pnl
			}
		}

		for _, tag := range tagsByTrade[t.ID] {
			addToBucket(tagBuckets, tag.Name, pnl, win)
		}
		if emotion, ok := emotionByTrade[t.ID]; ok {
			addToBucket(emotionBuckets, emotion, pnl, win)
		}

		month := bucketMonth(&t)
		mb, ok := monthBuckets[month]
		if !ok {
			mb = &MonthBucket{Month: month}
			monthBuckets[month] = mb
		}
		mb.TotalPnl += pnl
		mb.TradeCount++
	}

	if summary.ClosedTrades > 0 {
		summary.WinRate = float64(summary.Winners) / float64(summary.ClosedTrades) * 100
	}
	if summary.Winners > 0 {
		summary.AvgWin = summary.GrossProfit / float64(summary.Winners)
	}
	if summary.Losers > 0 {
		summary.AvgLoss = summary.GrossLoss / float64(summary.Losers)
	}
	summary.ProfitFactor = profitFactor(summary.GrossProfit, summary.GrossLoss)

	summary.ByTag = sortedBuckets(tagBuckets)
	summary.ByEmotion = sortedBuckets(emotionBuckets)
	summary.Monthly = sortedMonths(monthBuckets)

	return summary, nil
}

// checkIntegrity fails fast on a trade whose status and pnl disagree.
// The store is expected to reject such records at write time.
func checkIntegrity(t *models.Trade) error {
	if t.Status == models.StatusClosed && t.PnlAmount == nil {
		return &IntegrityError{TradeID: t.ID, Ref: t.Ref, Reason: "closed trade has no pnl_amount"}
	}
	if t.Status != models.StatusClosed && t.PnlAmount != nil {
		return &IntegrityError{TradeID: t.ID, Ref: t.Ref, Reason: "pnl_amount set on a trade that is not closed"}
	}
	return nil
}

// profitFactor is gross profit over gross loss magnitude. With winners and
// no losers the ratio is unbounded and reported as math.Inf(1); with
// neither it is 0.
func profitFactor(grossProfit, grossLoss float64) float64 {
	if grossLoss == 0 {
		if grossProfit > 0 {
			return math.Inf(1)
		}
		return 0
	}
	return grossProfit / math.Abs(grossLoss)
}

// bucketMonth places a closed trade in the calendar month it was exited.
// Closed trades without an exit date fall back to the entry date.
func bucketMonth(t *models.Trade) string {
	when := t.EntryDate
	if t.ExitDate != nil {
		when = *t.ExitDate
	}
	return when.Format("2006-01")
}

func addToBucket(buckets map[string]*Bucket, key string, pnl float64, win bool) {
	b, ok := buckets[key]
	if !ok {
		b = &Bucket{Key: key}
		buckets[key] = b
	}
	b.TradeCount++
	b.TotalPnl += pnl
	if win {
		b.Wins++
	}
}

func sortedBuckets(buckets map[string]*Bucket) []Bucket {
	result := make([]Bucket, 0, len(buckets))
	for _, b := range buckets {
		result = append(result, *b)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].Key < result[j].Key })
	return result
}

func sortedMonths(buckets map[string]*MonthBucket) []MonthBucket {
	result := make([]MonthBucket, 0, len(buckets))
	for _, b := range buckets {
		result = append(result, *b)
	}
	// "2006-01" keys sort chronologically
	sort.Slice(result, func(i, j int) bool { return result[i].Month < result[j].Month })
	return result
}
