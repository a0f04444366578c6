package models

import (
	"time"

	"gorm.io/gorm"
)

// Trade direction values.
const (
	DirectionBuy  = "buy"
	DirectionSell = "sell"
)

// Trade status values.
const (
	StatusOpen    = "open"
	StatusClosed  = "closed"
	StatusPartial = "partial"
)

// Trade represents a single position record in the journal.
// PnlAmount and PnlPercent stay nil until the trade is closed.
type Trade struct {
	gorm.Model
	Ref             string     `gorm:"uniqueIndex" json:"ref"` // ULID, sortable external id
	TokenSymbol     string     `gorm:"not null" json:"token_symbol"`
	TokenName       string     `json:"token_name"`
	ContractAddress string     `json:"contract_address"`
	Direction       string     `gorm:"not null" json:"direction"` // "buy" or "sell"
	EntryPrice      float64    `json:"entry_price"`
	ExitPrice       *float64   `json:"exit_price,omitempty"`
	EntryDate       time.Time  `json:"entry_date"`
	ExitDate        *time.Time `json:"exit_date,omitempty"`
	Quantity        float64    `json:"quantity"`
	Status          string     `gorm:"not null;default:open" json:"status"` // open, closed or partial
	PnlAmount       *float64   `json:"pnl_amount,omitempty"`
	PnlPercent      *float64   `json:"pnl_percent,omitempty"`

	Tags  []Tag  `gorm:"many2many:trade_tags" json:"tags,omitempty"`
	Notes []Note `json:"notes,omitempty"`
}

// Closed reports whether the trade carries a realized result.
func (t *Trade) Closed() bool {
	return t.Status == StatusClosed && t.PnlAmount != nil
}
