package store

import (
	"errors"
	"time"

	"crypto-journal-go/internal/models"
)

// ErrNotFound is returned when a requested record does not exist.
var ErrNotFound = errors.New("record not found")

// TradeFilter narrows ListTrades. Zero values mean "no filter".
type TradeFilter struct {
	Status string
	From   *time.Time // inclusive, against entry_date
	To     *time.Time // exclusive, against entry_date
}

// NoteMatch is a note hit from SearchRaw together with the identity of
// the trade that owns it.
type NoteMatch struct {
	Note        models.Note
	TradeRef    string
	TradeSymbol string
}

// RawMatches holds the records matching a search query, grouped by entity.
type RawMatches struct {
	Trades      []models.Trade
	Notes       []NoteMatch
	Influencers []models.Influencer
}

// Store is the persistence collaborator consumed by the analytics and
// search layers. All errors are propagated to the caller unchanged.
type Store interface {
	CreateTrade(t *models.Trade) error
	GetTrade(id uint) (*models.Trade, error)
	UpdateTrade(t *models.Trade) error
	DeleteTrade(id uint) error
	ListTrades(f TradeFilter) ([]models.Trade, error)
	SetTradeTags(tradeID uint, tagIDs []uint) error
	ListTradeTagIDs(tradeID uint) ([]uint, error)
	TagsByTrade() (map[uint][]models.Tag, error)
	EmotionsByTrade() (map[uint]string, error)

	CreateTag(t *models.Tag) error
	ListTags() ([]models.Tag, error)
	DeleteTag(id uint) error

	CreateNote(n *models.Note) error
	ListNotes(tradeID uint) ([]models.Note, error)
	DeleteNote(id uint) error

	CreateInfluencer(i *models.Influencer) error
	ListInfluencers() ([]models.Influencer, error)
	DeleteInfluencer(id uint) error
	CreateInfluencerCall(c *models.InfluencerCall) error
	ListInfluencerCalls() ([]models.InfluencerCall, error)

	GetSetting(key string) (string, error)
	SetSetting(key, value string) error
	ListSettings() (map[string]string, error)

	SearchRaw(query string) (*RawMatches, error)
}
