package models

import "gorm.io/gorm"

// Note is a free-text journal entry attached to a trade.
// Emotion records the trader's state of mind at the time of writing
// (e.g. "confident", "fomo", "fearful"); empty means none was recorded.
type Note struct {
	gorm.Model
	TradeID uint   `gorm:"index;not null" json:"trade_id"`
	Content string `gorm:"not null" json:"content"`
	Emotion string `json:"emotion,omitempty"`
}
