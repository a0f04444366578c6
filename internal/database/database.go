package database

import (
	"fmt"

	"crypto-journal-go/internal/config"
	"crypto-journal-go/internal/models"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

// NewDatabase creates a new database connection and performs auto-migration.
func NewDatabase(cfg *config.Config) (*gorm.DB, error) {
	db, err := gorm.Open(sqlite.Open(cfg.Database.DSN), &gorm.Config{})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	if err := AutoMigrate(db, cfg); err != nil {
		return nil, err
	}

	return db, nil
}

// AutoMigrate creates or updates tables in place and seeds defaults.
// Journal data must survive restarts, so nothing is ever dropped here.
func AutoMigrate(db *gorm.DB, cfg *config.Config) error {
	err := db.AutoMigrate(
		&models.Trade{},
		&models.Tag{},
		&models.Note{},
		&models.Influencer{},
		&models.InfluencerCall{},
		&models.Setting{},
	)
	if err != nil {
		return fmt.Errorf("failed to auto-migrate database: %w", err)
	}

	// Seed default tags from the config
	for _, name := range cfg.Journal.DefaultTags {
		tag := models.Tag{Name: name, Category: models.CategoryNarrative}
		if err := db.FirstOrCreate(&tag, models.Tag{Name: name}).Error; err != nil {
			return fmt.Errorf("failed to seed tag '%s': %w", name, err)
		}
	}

	// Seed the theme setting if it has never been set
	if cfg.Journal.DefaultTheme != "" {
		theme := models.Setting{Key: "theme", Value: cfg.Journal.DefaultTheme}
		if err := db.FirstOrCreate(&theme, models.Setting{Key: "theme"}).Error; err != nil {
			return fmt.Errorf("failed to seed theme setting: %w", err)
		}
	}

	return nil
}
