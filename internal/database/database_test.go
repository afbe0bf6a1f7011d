package database

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"flatfinder/server/config"
	"flatfinder/server/internal/models"
	"flatfinder/server/internal/search"
)

func setupTestDB(t *testing.T) *Database {
	db, err := NewTestDB()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db
}

func seedListings(t *testing.T, db *Database) {
	listings := []*models.Listing{
		{Reference: "T-1", Location: "TAMPINES", UnitType: "4 ROOM", Bedrooms: 4, Price: 450000, AreaSqft: 1000, Status: models.StatusApproved},
		{Reference: "T-2", Location: "TAMPINES", UnitType: "4 ROOM", Bedrooms: 4, Price: 650000, AreaSqft: 1100, Status: models.StatusApproved},
		{Reference: "T-3", Location: "TAMPINES", UnitType: "3 ROOM", Bedrooms: 3, Price: 350000, AreaSqft: 700, Status: models.StatusApproved},
		{Reference: "T-4", Location: "TAMPINES", UnitType: "4 ROOM", Bedrooms: 4, Price: 500000, AreaSqft: 1000, Status: models.StatusPending},
		{Reference: "B-1", Location: "BEDOK", UnitType: "4 ROOM", Bedrooms: 4, Price: 480000, AreaSqft: 950, Status: models.StatusApproved},
		{Reference: "C-1", Location: "TAMPINES", UnitType: "4 ROOM", Bedrooms: 4, Price: 900000, AreaSqft: 1200, Category: "CONDO", Status: models.StatusApproved},
	}
	require.NoError(t, db.UpsertListings(context.Background(), listings))
}

func references(listings []models.Listing) []string {
	refs := make([]string, len(listings))
	for i, l := range listings {
		refs[i] = l.Reference
	}
	return refs
}

func TestDatabase_Search(t *testing.T) {
	db := setupTestDB(t)
	seedListings(t, db)
	builder := search.NewQueryBuilder(config.DefaultCatalog(), search.WithDomainConstants())

	tests := []struct {
		name     string
		criteria search.Criteria
		expected []string
	}{
		{
			name:     "No constraints returns approved HDB listings",
			criteria: search.DefaultCriteria(),
			expected: []string{"T-3", "T-1", "B-1", "T-2"},
		},
		{
			name: "Location, unit type and price range",
			criteria: search.Criteria{
				Location: "TAMPINES",
				UnitType: "4 ROOM",
				MinPrice: "300000",
				MaxPrice: "600000",
			},
			expected: []string{"T-1"},
		},
		{
			name:     "Area range",
			criteria: search.Criteria{MinArea: "950", MaxArea: "1000"},
			expected: []string{"T-1", "B-1"},
		},
		{
			name:     "Nothing matches",
			criteria: search.Criteria{Location: "YISHUN"},
			expected: []string{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			listings, err := db.Search(context.Background(), builder.Build(tt.criteria))
			require.NoError(t, err)
			assert.Equal(t, tt.expected, references(listings))
		})
	}
}

func TestDatabase_SearchRejectsUnknownColumns(t *testing.T) {
	db := setupTestDB(t)

	_, err := db.Search(context.Background(), search.PredicateSet{
		{Column: search.Column("id; DROP TABLE listings"), Op: search.OpEq, Value: 1},
	})
	assert.ErrorIs(t, err, ErrUnsupportedPredicate)

	_, err = db.Search(context.Background(), search.PredicateSet{
		{Column: search.ColumnPrice, Op: search.Op("like"), Value: 1},
	})
	assert.ErrorIs(t, err, ErrUnsupportedPredicate)
}

func TestDatabase_SearchHonoursContext(t *testing.T) {
	db := setupTestDB(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := db.Search(ctx, search.PredicateSet{})
	assert.Error(t, err)
}

func TestDatabase_ListingCRUD(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()

	listing := &models.Listing{
		Reference: "NEW-1",
		Location:  "PUNGGOL",
		UnitType:  "5 ROOM",
		Bedrooms:  5,
		Price:     700000,
		Status:    models.StatusApproved, // ignored on create
	}
	require.NoError(t, db.CreateListing(ctx, listing))
	assert.NotZero(t, listing.ID)
	assert.Equal(t, models.StatusPending, listing.Status)
	assert.Equal(t, models.CategoryHDB, listing.Category)

	err := db.CreateListing(ctx, &models.Listing{Reference: "NEW-1", Location: "PUNGGOL"})
	assert.ErrorIs(t, err, models.ErrInvalidListing)

	got, err := db.GetListing(ctx, listing.ID)
	require.NoError(t, err)
	assert.Equal(t, "PUNGGOL", got.Location)

	price := 720000.0
	title := "Corner unit"
	updated, err := db.UpdateListing(ctx, listing.ID, models.ListingUpdate{Price: &price, Title: &title})
	require.NoError(t, err)
	assert.Equal(t, price, updated.Price)
	assert.Equal(t, title, updated.Title)
	assert.Equal(t, "PUNGGOL", updated.Location)

	_, err = db.UpdateListing(ctx, 9999, models.ListingUpdate{Price: &price})
	assert.ErrorIs(t, err, models.ErrListingNotFound)

	require.NoError(t, db.DeleteListing(ctx, listing.ID))
	_, err = db.GetListing(ctx, listing.ID)
	assert.ErrorIs(t, err, models.ErrListingNotFound)
	assert.ErrorIs(t, db.DeleteListing(ctx, listing.ID), models.ErrListingNotFound)
}

func TestDatabase_SetListingStatus(t *testing.T) {
	tests := []struct {
		from    string
		to      string
		wantErr bool
	}{
		{from: models.StatusPending, to: models.StatusApproved},
		{from: models.StatusPending, to: models.StatusRejected},
		{from: models.StatusApproved, to: models.StatusRejected},
		{from: models.StatusRejected, to: models.StatusApproved},
		{from: models.StatusApproved, to: models.StatusApproved, wantErr: true},
		{from: models.StatusApproved, to: models.StatusPending, wantErr: true},
		{from: models.StatusPending, to: "archived", wantErr: true},
	}

	for i, tt := range tests {
		t.Run(fmt.Sprintf("%s->%s", tt.from, tt.to), func(t *testing.T) {
			db := setupTestDB(t)
			ctx := context.Background()
			listing := &models.Listing{Reference: fmt.Sprintf("S-%d", i), Location: "BEDOK", Status: tt.from}
			require.NoError(t, db.UpsertListings(ctx, []*models.Listing{listing}))

			got, err := db.SetListingStatus(ctx, listing.ID, tt.to)
			if tt.wantErr {
				assert.ErrorIs(t, err, models.ErrInvalidTransition)
				stored, err := db.GetListing(ctx, listing.ID)
				require.NoError(t, err)
				assert.Equal(t, tt.from, stored.Status)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.to, got.Status)
		})
	}

	db := setupTestDB(t)
	_, err := db.SetListingStatus(context.Background(), 42, models.StatusApproved)
	assert.ErrorIs(t, err, models.ErrListingNotFound)
}

func TestDatabase_UpsertListingsReplacesByReference(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()

	require.NoError(t, db.UpsertListings(ctx, []*models.Listing{
		{Reference: "R-1", Location: "BEDOK", Price: 400000, Status: models.StatusApproved},
	}))
	require.NoError(t, db.UpsertListings(ctx, []*models.Listing{
		{Reference: "R-1", Location: "BEDOK", Price: 420000, Status: models.StatusApproved},
		{Reference: "R-2", Location: "BEDOK", Price: 300000},
	}))

	listings, err := db.Search(ctx, search.PredicateSet{})
	require.NoError(t, err)
	require.Len(t, listings, 2)
	assert.Equal(t, "R-2", listings[0].Reference)
	assert.Equal(t, models.StatusPending, listings[0].Status)
	assert.Equal(t, 420000.0, listings[1].Price)

	assert.NoError(t, db.UpsertListings(ctx, nil))
}

func TestDatabase_ReimportKeepsCoordinates(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()

	listing := &models.Listing{Reference: "G-1", Location: "BEDOK", Price: 400000, Status: models.StatusApproved}
	require.NoError(t, db.UpsertListings(ctx, []*models.Listing{listing}))

	lat, lon := 1.3236, 103.9273
	_, err := db.UpdateListing(ctx, listing.ID, models.ListingUpdate{Latitude: &lat, Longitude: &lon})
	require.NoError(t, err)

	require.NoError(t, db.UpsertListings(ctx, []*models.Listing{
		{Reference: "G-1", Location: "BEDOK", Price: 410000, Status: models.StatusApproved},
	}))

	got, err := db.GetListing(ctx, listing.ID)
	require.NoError(t, err)
	assert.Equal(t, 410000.0, got.Price)
	require.NotNil(t, got.Latitude)
	require.NotNil(t, got.Longitude)
	assert.Equal(t, lat, *got.Latitude)
	assert.Equal(t, lon, *got.Longitude)

	// Coordinates in the row still replace the stored ones
	newLat := 1.33
	require.NoError(t, db.UpsertListings(ctx, []*models.Listing{
		{Reference: "G-1", Location: "BEDOK", Price: 410000, Status: models.StatusApproved, Latitude: &newLat, Longitude: &lon},
	}))
	got, err = db.GetListing(ctx, listing.ID)
	require.NoError(t, err)
	assert.Equal(t, newLat, *got.Latitude)
}

func TestDatabase_ImportListingsReportsNewlyApproved(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()

	approved, err := db.ImportListings(ctx, []*models.Listing{
		{Reference: "N-1", Location: "BEDOK", Price: 400000, Status: models.StatusApproved},
		{Reference: "N-2", Location: "BEDOK", Price: 410000},
	})
	require.NoError(t, err)
	require.Len(t, approved, 1)
	assert.Equal(t, "N-1", approved[0].Reference)
	assert.NotZero(t, approved[0].ID)

	// N-1 was approved already, N-2 moves from pending to approved
	approved, err = db.ImportListings(ctx, []*models.Listing{
		{Reference: "N-1", Location: "BEDOK", Price: 395000, Status: models.StatusApproved},
		{Reference: "N-2", Location: "BEDOK", Price: 410000, Status: models.StatusApproved},
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"N-2"}, references(approved))

	approved, err = db.ImportListings(ctx, nil)
	assert.NoError(t, err)
	assert.Empty(t, approved)
}

func TestDatabase_Preferences(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()

	pref, err := db.GetPreference(ctx, "u1")
	require.NoError(t, err)
	assert.Nil(t, pref)

	require.NoError(t, db.UpsertPreference(ctx, &models.UserPreference{
		UserID:             "u1",
		PreferredUnitType:  "4 ROOM",
		PreferredLocations: []string{"TAMPINES", "BEDOK"},
	}))
	require.NoError(t, db.UpsertPreference(ctx, &models.UserPreference{
		UserID:             "u1",
		PreferredLocation:  "PUNGGOL",
		PreferredUnitType:  "5 ROOM",
		PreferredLocations: []string{"SENGKANG"},
	}))

	pref, err = db.GetPreference(ctx, "u1")
	require.NoError(t, err)
	require.NotNil(t, pref)
	assert.Equal(t, "PUNGGOL", pref.PreferredLocation)
	assert.Equal(t, "5 ROOM", pref.PreferredUnitType)
	assert.Equal(t, []string{"SENGKANG"}, pref.PreferredLocations)

	all, err := db.ListPreferences(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 1)

	assert.ErrorIs(t, db.UpsertPreference(ctx, &models.UserPreference{}), models.ErrInvalidPreference)

	require.NoError(t, db.DeletePreference(ctx, "u1"))
	pref, err = db.GetPreference(ctx, "u1")
	require.NoError(t, err)
	assert.Nil(t, pref)
}

func TestDatabase_ListingStats(t *testing.T) {
	db := setupTestDB(t)
	seedListings(t, db)

	stats, err := db.ListingStats(context.Background(), "")
	require.NoError(t, err)
	require.Len(t, stats, 2)

	assert.Equal(t, "BEDOK", stats[0].Location)
	assert.Equal(t, 1, stats[0].ListingCount)
	assert.Equal(t, 480000.0, stats[0].MedianPrice)

	// Pending listings are excluded, the condo is approved so it counts
	tampines := stats[1]
	assert.Equal(t, "TAMPINES", tampines.Location)
	assert.Equal(t, 4, tampines.ListingCount)
	assert.Equal(t, 350000.0, tampines.MinPrice)
	assert.Equal(t, 900000.0, tampines.MaxPrice)
	assert.Equal(t, 550000.0, tampines.MedianPrice)
	assert.InDelta(t, 587500.0, tampines.AveragePrice, 0.01)
	assert.Greater(t, tampines.AvgPricePerSqft, 0.0)

	only, err := db.ListingStats(context.Background(), "BEDOK")
	require.NoError(t, err)
	assert.Len(t, only, 1)
}

func TestDatabase_ListingsInLocation(t *testing.T) {
	db := setupTestDB(t)
	seedListings(t, db)

	listings, err := db.ListingsInLocation(context.Background(), "TAMPINES")
	require.NoError(t, err)
	assert.Len(t, listings, 4)
	for _, l := range listings {
		assert.Equal(t, models.StatusApproved, l.Status)
	}
}

func TestMedian(t *testing.T) {
	assert.Equal(t, 0.0, median(nil))
	assert.Equal(t, 2.0, median([]float64{3, 1, 2}))
	assert.Equal(t, 2.5, median([]float64{4, 1, 3, 2}))
}
