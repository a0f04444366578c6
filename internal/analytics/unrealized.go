package analytics

import "crypto-journal-go/internal/models"

// Position is the mark-to-market state of one open trade.
type Position struct {
	TradeID       uint    `json:"trade_id"`
	Ref           string  `json:"ref"`
	TokenSymbol   string  `json:"token_symbol"`
	EntryPrice    float64 `json:"entry_price"`
	CurrentPrice  float64 `json:"current_price"`
	Quantity      float64 `json:"quantity"`
	UnrealizedPnl float64 `json:"unrealized_pnl"`
}

// Unrealized marks open and partial trades to the given ticker prices,
// keyed by token symbol. Trades without a quoted price are skipped.
func Unrealized(trades []models.Trade, prices map[string]float64) []Position {
	var positions []Position
	for _, t := range trades {
		if t.Status == models.StatusClosed {
			continue
		}
		price, ok := prices[t.TokenSymbol]
		if !ok {
			continue
		}

		pnl := (price - t.EntryPrice) * t.Quantity
		if t.Direction == models.DirectionSell {
			pnl = -pnl
		}
		positions = append(positions, Position{
			TradeID:       t.ID,
			Ref:           t.Ref,
			TokenSymbol:   t.TokenSymbol,
			EntryPrice:    t.EntryPrice,
			CurrentPrice:  price,
			Quantity:      t.Quantity,
			UnrealizedPnl: pnl,
		})
	}
	return positions
}
