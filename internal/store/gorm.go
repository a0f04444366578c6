package store

import (
	"errors"
	"fmt"
	"strings"

	"crypto-journal-go/internal/models"
	"github.com/oklog/ulid/v2"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// GormStore implements Store on top of a gorm SQLite database.
type GormStore struct {
	db     *gorm.DB
	logger *zap.Logger
}

// ensure GormStore implements the interface
var _ Store = (*GormStore)(nil)

// New creates a new GormStore.
func New(db *gorm.DB, logger *zap.Logger) *GormStore {
	return &GormStore{db: db, logger: logger}
}

// CreateTrade inserts a new trade, assigning a ULID ref if none is set.
func (s *GormStore) CreateTrade(t *models.Trade) error {
	if t.Ref == "" {
		t.Ref = ulid.Make().String()
	}
	if err := s.db.Create(t).Error; err != nil {
		return fmt.Errorf("failed to create trade: %w", err)
	}
	return nil
}

func (s *GormStore) GetTrade(id uint) (*models.Trade, error) {
	var trade models.Trade
	err := s.db.Preload("Tags").Preload("Notes").First(&trade, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get trade %d: %w", id, err)
	}
	return &trade, nil
}

func (s *GormStore) UpdateTrade(t *models.Trade) error {
	if err := s.db.Save(t).Error; err != nil {
		return fmt.Errorf("failed to update trade %d: %w", t.ID, err)
	}
	return nil
}

// DeleteTrade removes a trade together with its notes and tag associations.
func (s *GormStore) DeleteTrade(id uint) error {
	err := s.db.Transaction(func(tx *gorm.DB) error {
		var trade models.Trade
		if err := tx.First(&trade, id).Error; err != nil {
			return err
		}
		if err := tx.Model(&trade).Association("Tags").Clear(); err != nil {
			return err
		}
		if err := tx.Where("trade_id = ?", id).Delete(&models.Note{}).Error; err != nil {
			return err
		}
		return tx.Delete(&trade).Error
	})
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return ErrNotFound
	}
	if err != nil {
		return fmt.Errorf("failed to delete trade %d: %w", id, err)
	}
	return nil
}

// ListTrades returns trades matching the filter, oldest entry first.
func (s *GormStore) ListTrades(f TradeFilter) ([]models.Trade, error) {
	q := s.db.Order("entry_date asc, id asc")
	if f.Status != "" {
		q = q.Where("status = ?", f.Status)
	}
	if f.From != nil {
		q = q.Where("entry_date >= ?", *f.From)
	}
	if f.To != nil {
		q = q.Where("entry_date < ?", *f.To)
	}

	var trades []models.Trade
	if err := q.Find(&trades).Error; err != nil {
		return nil, fmt.Errorf("failed to list trades: %w", err)
	}
	return trades, nil
}

// SetTradeTags replaces the tag set of a trade.
func (s *GormStore) SetTradeTags(tradeID uint, tagIDs []uint) error {
	var trade models.Trade
	if err := s.db.First(&trade, tradeID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrNotFound
		}
		return fmt.Errorf("failed to get trade %d: %w", tradeID, err)
	}

	var tags []models.Tag
	if len(tagIDs) > 0 {
		if err := s.db.Find(&tags, tagIDs).Error; err != nil {
			return fmt.Errorf("failed to resolve tags: %w", err)
		}
	}

	if err := s.db.Model(&trade).Association("Tags").Replace(tags); err != nil {
		return fmt.Errorf("failed to set tags for trade %d: %w", tradeID, err)
	}
	return nil
}

func (s *GormStore) ListTradeTagIDs(tradeID uint) ([]uint, error) {
	var ids []uint
	err := s.db.Table("trade_tags").Where("trade_id = ?", tradeID).Pluck("tag_id", &ids).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list tag ids for trade %d: %w", tradeID, err)
	}
	return ids, nil
}

// TagsByTrade resolves the full tag association map for the aggregator.
func (s *GormStore) TagsByTrade() (map[uint][]models.Tag, error) {
	var tags []models.Tag
	if err := s.db.Find(&tags).Error; err != nil {
		return nil, fmt.Errorf("failed to list tags: %w", err)
	}
	tagByID := make(map[uint]models.Tag, len(tags))
	for _, t := range tags {
		tagByID[t.ID] = t
	}

	var links []struct {
		TradeID uint
		TagID   uint
	}
	if err := s.db.Table("trade_tags").Find(&links).Error; err != nil {
		return nil, fmt.Errorf("failed to list trade tag links: %w", err)
	}

	result := make(map[uint][]models.Tag)
	for _, link := range links {
		tag, ok := tagByID[link.TagID]
		if !ok {
			continue // dangling link, tag was deleted
		}
		result[link.TradeID] = append(result[link.TradeID], tag)
	}
	return result, nil
}

// EmotionsByTrade maps each trade to the emotion of its most recent note
// that recorded one. Trades whose notes carry no emotion are absent.
func (s *GormStore) EmotionsByTrade() (map[uint]string, error) {
	var notes []models.Note
	err := s.db.Where("emotion != ''").Order("created_at asc, id asc").Find(&notes).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list notes: %w", err)
	}

	result := make(map[uint]string)
	for _, n := range notes {
		result[n.TradeID] = n.Emotion // later notes win
	}
	return result, nil
}

func (s *GormStore) CreateTag(t *models.Tag) error {
	if err := s.db.Create(t).Error; err != nil {
		return fmt.Errorf("failed to create tag: %w", err)
	}
	return nil
}

func (s *GormStore) ListTags() ([]models.Tag, error) {
	var tags []models.Tag
	if err := s.db.Order("name asc").Find(&tags).Error; err != nil {
		return nil, fmt.Errorf("failed to list tags: %w", err)
	}
	return tags, nil
}

// DeleteTag removes a tag and its trade associations. Child tags keep
// their parent_id: the parent relation is a lookup, not ownership.
// Tags are hard-deleted: names are unique and a soft-deleted row would
// keep occupying the index, blocking recreation under the same name.
func (s *GormStore) DeleteTag(id uint) error {
	err := s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Exec("DELETE FROM trade_tags WHERE tag_id = ?", id).Error; err != nil {
			return err
		}
		res := tx.Unscoped().Delete(&models.Tag{}, id)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return ErrNotFound
		}
		return nil
	})
	if errors.Is(err, ErrNotFound) {
		return ErrNotFound
	}
	if err != nil {
		return fmt.Errorf("failed to delete tag %d: %w", id, err)
	}
	return nil
}

func (s *GormStore) CreateNote(n *models.Note) error {
	if err := s.db.Create(n).Error; err != nil {
		return fmt.Errorf("failed to create note: %w", err)
	}
	return nil
}

func (s *GormStore) ListNotes(tradeID uint) ([]models.Note, error) {
	var notes []models.Note
	err := s.db.Where("trade_id = ?", tradeID).Order("created_at asc, id asc").Find(&notes).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list notes for trade %d: %w", tradeID, err)
	}
	return notes, nil
}

func (s *GormStore) DeleteNote(id uint) error {
	res := s.db.Delete(&models.Note{}, id)
	if res.Error != nil {
		return fmt.Errorf("failed to delete note %d: %w", id, res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *GormStore) CreateInfluencer(i *models.Influencer) error {
	if err := s.db.Create(i).Error; err != nil {
		return fmt.Errorf("failed to create influencer: %w", err)
	}
	return nil
}

func (s *GormStore) ListInfluencers() ([]models.Influencer, error) {
	var influencers []models.Influencer
	if err := s.db.Order("name asc, id asc").Find(&influencers).Error; err != nil {
		return nil, fmt.Errorf("failed to list influencers: %w", err)
	}
	return influencers, nil
}

// DeleteInfluencer removes an influencer and cascades to all of its calls
// inside one transaction.
func (s *GormStore) DeleteInfluencer(id uint) error {
	err := s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("influencer_id = ?", id).Delete(&models.InfluencerCall{}).Error; err != nil {
			return err
		}
		res := tx.Delete(&models.Influencer{}, id)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return ErrNotFound
		}
		return nil
	})
	if errors.Is(err, ErrNotFound) {
		return ErrNotFound
	}
	if err != nil {
		return fmt.Errorf("failed to delete influencer %d: %w", id, err)
	}
	return nil
}

func (s *GormStore) CreateInfluencerCall(c *models.InfluencerCall) error {
	var influencer models.Influencer
	if err := s.db.First(&influencer, c.InfluencerID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrNotFound
		}
		return fmt.Errorf("failed to get influencer %d: %w", c.InfluencerID, err)
	}
	if err := s.db.Create(c).Error; err != nil {
		return fmt.Errorf("failed to create influencer call: %w", err)
	}
	return nil
}

func (s *GormStore) ListInfluencerCalls() ([]models.InfluencerCall, error) {
	var calls []models.InfluencerCall
	if err := s.db.Order("call_date asc, id asc").Find(&calls).Error; err != nil {
		return nil, fmt.Errorf("failed to list influencer calls: %w", err)
	}
	return calls, nil
}

func (s *GormStore) GetSetting(key string) (string, error) {
	var setting models.Setting
	err := s.db.Where("key = ?", key).First(&setting).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return "", ErrNotFound
	}
	if err != nil {
		return "", fmt.Errorf("failed to get setting '%s': %w", key, err)
	}
	return setting.Value, nil
}

func (s *GormStore) SetSetting(key, value string) error {
	var setting models.Setting
	err := s.db.Where(models.Setting{Key: key}).
		Assign(models.Setting{Value: value}).
		FirstOrCreate(&setting).Error
	if err != nil {
		return fmt.Errorf("failed to set setting '%s': %w", key, err)
	}
	return nil
}

func (s *GormStore) ListSettings() (map[string]string, error) {
	var settings []models.Setting
	if err := s.db.Find(&settings).Error; err != nil {
		return nil, fmt.Errorf("failed to list settings: %w", err)
	}
	result := make(map[string]string, len(settings))
	for _, st := range settings {
		result[st.Key] = st.Value
	}
	return result, nil
}

// SearchRaw returns every trade, note and influencer matching the query as a
// case-insensitive substring. Rows come back in id order so the same query
// against unchanged data always yields the same result.
func (s *GormStore) SearchRaw(query string) (*RawMatches, error) {
	pattern := "%" + strings.ToLower(query) + "%"
	matches := &RawMatches{}

	err := s.db.
		Where("LOWER(token_symbol) LIKE ? OR LOWER(token_name) LIKE ? OR LOWER(contract_address) LIKE ?",
			pattern, pattern, pattern).
		Order("id asc").
		Find(&matches.Trades).Error
	if err != nil {
		return nil, fmt.Errorf("failed to search trades: %w", err)
	}

	var notes []models.Note
	err = s.db.Where("LOWER(content) LIKE ?", pattern).Order("id asc").Find(&notes).Error
	if err != nil {
		return nil, fmt.Errorf("failed to search notes: %w", err)
	}
	if len(notes) > 0 {
		tradeIDs := make([]uint, 0, len(notes))
		for _, n := range notes {
			tradeIDs = append(tradeIDs, n.TradeID)
		}
		var owners []models.Trade
		if err := s.db.Find(&owners, tradeIDs).Error; err != nil {
			return nil, fmt.Errorf("failed to resolve note owners: %w", err)
		}
		ownerByID := make(map[uint]models.Trade, len(owners))
		for _, t := range owners {
			ownerByID[t.ID] = t
		}
		for _, n := range notes {
			owner := ownerByID[n.TradeID]
			matches.Notes = append(matches.Notes, NoteMatch{
				Note:        n,
				TradeRef:    owner.Ref,
				TradeSymbol: owner.TokenSymbol,
			})
		}
	}

	err = s.db.
		Where("LOWER(name) LIKE ? OR LOWER(handle) LIKE ?", pattern, pattern).
		Order("id asc").
		Find(&matches.Influencers).Error
	if err != nil {
		return nil, fmt.Errorf("failed to search influencers: %w", err)
	}

	return matches, nil
}
