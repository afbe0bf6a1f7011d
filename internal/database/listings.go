package database

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"flatfinder/server/internal/models"
	"flatfinder/server/internal/search"
)

var ErrUnsupportedPredicate = errors.New("unsupported predicate")

// searchColumns whitelists the columns predicates may reference
var searchColumns = map[search.Column]string{
	search.ColumnLocation: "location",
	search.ColumnBedrooms: "bedrooms",
	search.ColumnPrice:    "price",
	search.ColumnArea:     "area_sqft",
	search.ColumnCategory: "category",
	search.ColumnStatus:   "status",
}

var searchOps = map[search.Op]string{
	search.OpEq:  "=",
	search.OpGte: ">=",
	search.OpLte: "<=",
}

// Search returns every listing matching all predicates, cheapest first
func (d *Database) Search(ctx context.Context, predicates search.PredicateSet) ([]models.Listing, error) {
	query := d.db.WithContext(ctx).Model(&models.Listing{})
	for _, p := range predicates {
		column, ok := searchColumns[p.Column]
		if !ok {
			return nil, fmt.Errorf("%w: column %q", ErrUnsupportedPredicate, p.Column)
		}
		op, ok := searchOps[p.Op]
		if !ok {
			return nil, fmt.Errorf("%w: operator %q", ErrUnsupportedPredicate, p.Op)
		}
		query = query.Where(fmt.Sprintf("%s %s ?", column, op), p.Value)
	}

	var listings []models.Listing
	if err := query.Order("price ASC").Order("id ASC").Find(&listings).Error; err != nil {
		return nil, fmt.Errorf("failed to search listings: %w", err)
	}
	return listings, nil
}

// CreateListing stores a new listing awaiting approval
func (d *Database) CreateListing(ctx context.Context, listing *models.Listing) error {
	listing.ID = 0
	listing.Status = models.StatusPending
	if listing.Category == "" {
		listing.Category = models.CategoryHDB
	}

	if err := d.db.WithContext(ctx).Create(listing).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return fmt.Errorf("%w: reference %q already exists", models.ErrInvalidListing, listing.Reference)
		}
		return fmt.Errorf("failed to create listing: %w", err)
	}
	return nil
}

func (d *Database) GetListing(ctx context.Context, id int64) (*models.Listing, error) {
	var listing models.Listing
	err := d.db.WithContext(ctx).First(&listing, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, models.ErrListingNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get listing: %w", err)
	}
	return &listing, nil
}

// UpdateListing applies the non-nil fields of update and returns the stored listing
func (d *Database) UpdateListing(ctx context.Context, id int64, update models.ListingUpdate) (*models.Listing, error) {
	changes := map[string]interface{}{}
	if update.Title != nil {
		changes["title"] = *update.Title
	}
	if update.Block != nil {
		changes["block"] = *update.Block
	}
	if update.Street != nil {
		changes["street"] = *update.Street
	}
	if update.Location != nil {
		changes["location"] = *update.Location
	}
	if update.UnitType != nil {
		changes["unit_type"] = *update.UnitType
	}
	if update.Bedrooms != nil {
		changes["bedrooms"] = *update.Bedrooms
	}
	if update.Price != nil {
		changes["price"] = *update.Price
	}
	if update.AreaSqft != nil {
		changes["area_sqft"] = *update.AreaSqft
	}
	if update.Latitude != nil {
		changes["latitude"] = *update.Latitude
	}
	if update.Longitude != nil {
		changes["longitude"] = *update.Longitude
	}

	var listing models.Listing
	err := d.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.First(&listing, id).Error; err != nil {
			return err
		}
		if len(changes) == 0 {
			return nil
		}
		if err := tx.Model(&listing).Updates(changes).Error; err != nil {
			return err
		}
		return tx.First(&listing, id).Error
	})
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, models.ErrListingNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to update listing: %w", err)
	}
	return &listing, nil
}

func (d *Database) DeleteListing(ctx context.Context, id int64) error {
	result := d.db.WithContext(ctx).Delete(&models.Listing{}, id)
	if result.Error != nil {
		return fmt.Errorf("failed to delete listing: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return models.ErrListingNotFound
	}
	return nil
}

// allowedTransitions lists the statuses a listing may move to from each status
var allowedTransitions = map[string][]string{
	models.StatusPending:  {models.StatusApproved, models.StatusRejected},
	models.StatusApproved: {models.StatusRejected},
	models.StatusRejected: {models.StatusApproved},
}

// SetListingStatus moves a listing through the approval workflow
func (d *Database) SetListingStatus(ctx context.Context, id int64, status string) (*models.Listing, error) {
	var listing models.Listing
	err := d.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.First(&listing, id).Error; err != nil {
			return err
		}
		if !canTransition(listing.Status, status) {
			return fmt.Errorf("%w: %s to %s", models.ErrInvalidTransition, listing.Status, status)
		}
		listing.Status = status
		return tx.Model(&listing).Update("status", status).Error
	})
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, models.ErrListingNotFound
	}
	if err != nil {
		if errors.Is(err, models.ErrInvalidTransition) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to update listing status: %w", err)
	}
	return &listing, nil
}

func canTransition(from, to string) bool {
	for _, allowed := range allowedTransitions[from] {
		if allowed == to {
			return true
		}
	}
	return false
}

// UpsertListings inserts or replaces a batch of listings keyed by reference,
// all inside one transaction. Imported listings keep the status they carry.
func (d *Database) UpsertListings(ctx context.Context, listings []*models.Listing) error {
	_, err := d.ImportListings(ctx, listings)
	return err
}

// ImportListings upserts a batch like UpsertListings and returns the stored
// rows that became approved with this batch. Rows that were approved already
// are not returned.
func (d *Database) ImportListings(ctx context.Context, listings []*models.Listing) ([]models.Listing, error) {
	if len(listings) == 0 {
		return nil, nil
	}

	var approved []models.Listing
	err := d.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		refs := make([]string, len(listings))
		for i, l := range listings {
			refs[i] = l.Reference
		}
		var previous []models.Listing
		if err := tx.Select("reference", "status").Where("reference IN ?", refs).Find(&previous).Error; err != nil {
			return fmt.Errorf("failed to load existing listings: %w", err)
		}
		wasApproved := make(map[string]bool, len(previous))
		for _, l := range previous {
			wasApproved[l.Reference] = l.Status == models.StatusApproved
		}

		if err := upsertListings(tx, listings); err != nil {
			return err
		}

		var newly []string
		for _, l := range listings {
			if l.Status == models.StatusApproved && !wasApproved[l.Reference] {
				newly = append(newly, l.Reference)
			}
		}
		if len(newly) == 0 {
			return nil
		}
		return tx.Where("reference IN ?", newly).Order("id ASC").Find(&approved).Error
	})
	if err != nil {
		return nil, err
	}
	return approved, nil
}

// upsertListings writes listings using tx. Coordinates missing from a row
// keep the stored values.
func upsertListings(tx *gorm.DB, listings []*models.Listing) error {
	for _, l := range listings {
		if l.Category == "" {
			l.Category = models.CategoryHDB
		}
		if l.Status == "" {
			l.Status = models.StatusPending
		}
	}
	updates := clause.AssignmentColumns([]string{
		"title", "block", "street", "location", "unit_type", "bedrooms", "price",
		"area_sqft", "category", "status", "seller_id", "updated_at",
	})
	updates = append(updates, clause.Assignments(map[string]interface{}{
		"latitude":  gorm.Expr("COALESCE(excluded.latitude, listings.latitude)"),
		"longitude": gorm.Expr("COALESCE(excluded.longitude, listings.longitude)"),
	})...)

	err := tx.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "reference"}},
		DoUpdates: updates,
	}).Create(listings).Error
	if err != nil {
		return fmt.Errorf("failed to upsert listings: %w", err)
	}
	return nil
}

// ListingsInLocation returns the approved listings of one location
func (d *Database) ListingsInLocation(ctx context.Context, location string) ([]models.Listing, error) {
	var listings []models.Listing
	err := d.db.WithContext(ctx).
		Where("location = ? AND status = ?", location, models.StatusApproved).
		Order("id ASC").
		Find(&listings).Error
	if err != nil {
		return nil, fmt.Errorf("failed to get listings for %s: %w", location, err)
	}
	return listings, nil
}
