package database

import (
	"context"
	"fmt"
	"sort"

	"flatfinder/server/internal/models"
)

// ListingStats aggregates approved listings per location. An empty location
// returns every location.
func (d *Database) ListingStats(ctx context.Context, location string) ([]models.LocationStats, error) {
	var stats []models.LocationStats
	err := d.db.WithContext(ctx).Raw(`
		SELECT
			location,
			COUNT(*) as listing_count,
			COALESCE(AVG(price), 0) as average_price,
			COALESCE(MIN(price), 0) as min_price,
			COALESCE(MAX(price), 0) as max_price,
			COALESCE(AVG(price / NULLIF(area_sqft, 0)), 0) as avg_price_per_sqft
		FROM listings
		WHERE status = ?
		AND (? = '' OR location = ?)
		GROUP BY location
		ORDER BY location
	`, models.StatusApproved, location, location).Scan(&stats).Error
	if err != nil {
		return nil, fmt.Errorf("failed to get listing stats: %w", err)
	}

	// sqlite has no median aggregate
	for i := range stats {
		var prices []float64
		err := d.db.WithContext(ctx).Model(&models.Listing{}).
			Where("status = ? AND location = ?", models.StatusApproved, stats[i].Location).
			Pluck("price", &prices).Error
		if err != nil {
			return nil, fmt.Errorf("failed to get prices for %s: %w", stats[i].Location, err)
		}
		stats[i].MedianPrice = median(prices)
	}
	return stats, nil
}

func median(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	sorted := append([]float64(nil), values...)
	sort.Float64s(sorted)
	mid := len(sorted) / 2
	if len(sorted)%2 == 0 {
		return (sorted[mid-1] + sorted[mid]) / 2
	}
	return sorted[mid]
}
