package models

import (
	"time"

	"gorm.io/gorm"
)

// Influencer is a tracked caller on some platform (twitter, telegram, youtube...).
// Deleting an influencer removes all of its calls.
type Influencer struct {
	gorm.Model
	Name     string `gorm:"not null" json:"name"`
	Platform string `json:"platform"`
	Handle   string `json:"handle,omitempty"`
	Link     string `json:"link,omitempty"`
	Notes    string `json:"notes,omitempty"`

	Calls []InfluencerCall `json:"calls,omitempty"`
}

// InfluencerCall records a single call made by an influencer, optionally
// linked to the trade it prompted.
type InfluencerCall struct {
	gorm.Model
	InfluencerID uint      `gorm:"index;not null" json:"influencer_id"`
	TradeID      *uint     `json:"trade_id,omitempty"`
	Content      string    `gorm:"not null" json:"content"`
	CallDate     time.Time `json:"call_date"`
	Outcome      string    `json:"outcome,omitempty"`
}
