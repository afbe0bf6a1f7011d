package api

import (
	"fmt"

	"flatfinder/server/config"
	"flatfinder/server/internal/models"
)

type PreferenceRequest struct {
	PreferredLocation  string   `json:"preferred_location" binding:"omitempty,catalog_location"`
	PreferredUnitType  string   `json:"preferred_unit_type" binding:"omitempty,catalog_unit"`
	PreferredLocations []string `json:"preferred_locations" binding:"omitempty,max=10,dive,catalog_location"`
}

// toPreference stores catalog spellings so preferences compare equal to listings
func (r PreferenceRequest) toPreference(userID string, catalog *config.Catalog) *models.UserPreference {
	pref := &models.UserPreference{UserID: userID}
	if town, ok := catalog.Town(r.PreferredLocation); ok {
		pref.PreferredLocation = town.Name
	}
	if unit, ok := catalog.UnitByLabel(r.PreferredUnitType); ok {
		pref.PreferredUnitType = unit.Label
	}
	for _, name := range r.PreferredLocations {
		if town, ok := catalog.Town(name); ok {
			pref.PreferredLocations = append(pref.PreferredLocations, town.Name)
		}
	}
	return pref
}

type CreateSessionRequest struct {
	UserID string `json:"user_id" binding:"max=64"`
}

type RecommendationRequest struct {
	Enabled *bool `json:"enabled" binding:"required"`
}

type ListingRequest struct {
	Reference string   `json:"reference" binding:"required,max=64"`
	Title     string   `json:"title" binding:"max=200"`
	Block     string   `json:"block" binding:"max=16"`
	Street    string   `json:"street" binding:"max=200"`
	Location  string   `json:"location" binding:"required,catalog_location"`
	UnitType  string   `json:"unit_type" binding:"required,catalog_unit"`
	Price     float64  `json:"price" binding:"required,gt=0"`
	AreaSqft  float64  `json:"area_sqft" binding:"gte=0"`
	SellerID  string   `json:"seller_id" binding:"max=64"`
	Latitude  *float64 `json:"latitude" binding:"omitempty,gte=-90,lte=90"`
	Longitude *float64 `json:"longitude" binding:"omitempty,gte=-180,lte=180"`
}

func (r ListingRequest) toListing(catalog *config.Catalog) *models.Listing {
	town, _ := catalog.Town(r.Location)
	unit, _ := catalog.UnitByLabel(r.UnitType)
	return &models.Listing{
		Reference: r.Reference,
		Title:     r.Title,
		Block:     r.Block,
		Street:    r.Street,
		Location:  town.Name,
		UnitType:  unit.Label,
		Bedrooms:  unit.Bedrooms,
		Price:     r.Price,
		AreaSqft:  r.AreaSqft,
		Category:  models.CategoryHDB,
		SellerID:  r.SellerID,
		Latitude:  r.Latitude,
		Longitude: r.Longitude,
	}
}

// ImportedListing is a listing row of a bulk import, which may carry its
// own category and approval status. Feeds that export the bedroom code
// must agree with the unit type.
type ImportedListing struct {
	ListingRequest
	Bedrooms *int   `json:"bedrooms" binding:"omitempty,gte=1"`
	Category string `json:"category" binding:"omitempty,max=16"`
	Status   string `json:"status" binding:"omitempty,oneof=pending approved rejected"`
}

func (r ImportedListing) toListing(catalog *config.Catalog) (*models.Listing, error) {
	listing := r.ListingRequest.toListing(catalog)
	if r.Bedrooms != nil {
		unit, ok := catalog.UnitByBedrooms(*r.Bedrooms)
		if !ok {
			return nil, fmt.Errorf("%w: %s: unknown bedroom code %d", models.ErrInvalidListing, r.Reference, *r.Bedrooms)
		}
		if unit.Label != listing.UnitType {
			return nil, fmt.Errorf("%w: %s: bedroom code %d is %s, not %s",
				models.ErrInvalidListing, r.Reference, *r.Bedrooms, unit.Label, listing.UnitType)
		}
	}
	if r.Category != "" {
		listing.Category = r.Category
	}
	listing.Status = r.Status
	return listing, nil
}

type ImportRequest struct {
	Listings []ImportedListing `json:"listings" binding:"required,min=1,dive"`
}

type ListingUpdateRequest struct {
	Title     *string  `json:"title" binding:"omitempty,max=200"`
	Block     *string  `json:"block" binding:"omitempty,max=16"`
	Street    *string  `json:"street" binding:"omitempty,max=200"`
	Location  *string  `json:"location" binding:"omitempty,catalog_location"`
	UnitType  *string  `json:"unit_type" binding:"omitempty,catalog_unit"`
	Price     *float64 `json:"price" binding:"omitempty,gt=0"`
	AreaSqft  *float64 `json:"area_sqft" binding:"omitempty,gte=0"`
	Latitude  *float64 `json:"latitude" binding:"omitempty,gte=-90,lte=90"`
	Longitude *float64 `json:"longitude" binding:"omitempty,gte=-180,lte=180"`
}

func (r ListingUpdateRequest) toUpdate(catalog *config.Catalog) models.ListingUpdate {
	update := models.ListingUpdate{
		Title:     r.Title,
		Block:     r.Block,
		Street:    r.Street,
		Price:     r.Price,
		AreaSqft:  r.AreaSqft,
		Latitude:  r.Latitude,
		Longitude: r.Longitude,
	}
	if r.Location != nil {
		if town, ok := catalog.Town(*r.Location); ok {
			update.Location = &town.Name
		}
	}
	if r.UnitType != nil {
		if unit, ok := catalog.UnitByLabel(*r.UnitType); ok {
			update.UnitType = &unit.Label
			update.Bedrooms = &unit.Bedrooms
		}
	}
	return update
}
