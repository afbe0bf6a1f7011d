package database

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"flatfinder/server/internal/models"
)

// GetPreference returns the saved preference of userID, or nil when there is none
func (d *Database) GetPreference(ctx context.Context, userID string) (*models.UserPreference, error) {
	var pref models.UserPreference
	err := d.db.WithContext(ctx).Where("user_id = ?", userID).First(&pref).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get preference: %w", err)
	}
	return &pref, nil
}

// UpsertPreference creates or replaces the preference of pref.UserID
func (d *Database) UpsertPreference(ctx context.Context, pref *models.UserPreference) error {
	if pref.UserID == "" {
		return fmt.Errorf("%w: user id is required", models.ErrInvalidPreference)
	}
	err := d.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "user_id"}},
		UpdateAll: true,
	}).Create(pref).Error
	if err != nil {
		return fmt.Errorf("failed to save preference: %w", err)
	}
	return nil
}

// DeletePreference removes a saved preference. Deleting a missing one is not an error.
func (d *Database) DeletePreference(ctx context.Context, userID string) error {
	err := d.db.WithContext(ctx).Where("user_id = ?", userID).Delete(&models.UserPreference{}).Error
	if err != nil {
		return fmt.Errorf("failed to delete preference: %w", err)
	}
	return nil
}

// ListPreferences returns every saved preference
func (d *Database) ListPreferences(ctx context.Context) ([]models.UserPreference, error) {
	var prefs []models.UserPreference
	if err := d.db.WithContext(ctx).Order("user_id ASC").Find(&prefs).Error; err != nil {
		return nil, fmt.Errorf("failed to list preferences: %w", err)
	}
	return prefs, nil
}
