package database

import (
	"fmt"

	"flatfinder/server/internal/models"
)

func (d *Database) RunMigrations() error {
	if err := d.db.AutoMigrate(&models.Listing{}, &models.UserPreference{}); err != nil {
		return fmt.Errorf("failed to migrate schema: %w", err)
	}

	// Composite index for the common location + flat type search
	err := d.db.Exec(`
		CREATE INDEX IF NOT EXISTS idx_listings_search
		ON listings(status, category, location, bedrooms);
	`).Error
	if err != nil {
		return fmt.Errorf("failed to create search index: %w", err)
	}

	// Spatial index on coordinates
	err = d.db.Exec(`
		CREATE INDEX IF NOT EXISTS idx_listings_coordinates
		ON listings(latitude, longitude);
	`).Error
	if err != nil {
		return fmt.Errorf("failed to create coordinates index: %w", err)
	}

	return nil
}
