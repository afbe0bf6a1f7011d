package models

import "time"

// UserPreference holds a user's saved search defaults
type UserPreference struct {
	UserID             string    `gorm:"primaryKey" json:"user_id"`
	PreferredLocation  string    `json:"preferred_location"`
	PreferredUnitType  string    `json:"preferred_unit_type"`
	PreferredLocations []string  `gorm:"serializer:json" json:"preferred_locations"`
	UpdatedAt          time.Time `json:"updated_at"`
}

// DefaultLocation returns the primary preferred location, falling back to the
// first entry of PreferredLocations.
func (p *UserPreference) DefaultLocation() string {
	if p.PreferredLocation != "" {
		return p.PreferredLocation
	}
	if len(p.PreferredLocations) > 0 {
		return p.PreferredLocations[0]
	}
	return ""
}

// Clone returns a deep copy so callers can hold it without sharing the slice
func (p *UserPreference) Clone() *UserPreference {
	if p == nil {
		return nil
	}
	c := *p
	if p.PreferredLocations != nil {
		c.PreferredLocations = append([]string(nil), p.PreferredLocations...)
	}
	return &c
}

// Matches checks if a listing fits the preferred locations and unit type.
// Empty preference fields match everything.
func (p *UserPreference) Matches(listing *Listing) bool {
	if p == nil {
		return false
	}

	if p.PreferredUnitType != "" && p.PreferredUnitType != listing.UnitType {
		return false
	}

	locations := p.PreferredLocations
	if p.PreferredLocation != "" {
		locations = append([]string{p.PreferredLocation}, locations...)
	}
	if len(locations) == 0 {
		return true
	}
	for _, location := range locations {
		if location == listing.Location {
			return true
		}
	}
	return false
}
