package models

import "time"

// Listing statuses used by the approval workflow
const (
	StatusPending  = "pending"
	StatusApproved = "approved"
	StatusRejected = "rejected"
)

// CategoryHDB is the property category of public housing resale flats
const CategoryHDB = "HDB"

type Listing struct {
	ID        int64     `gorm:"primaryKey" json:"id"`
	Reference string    `gorm:"uniqueIndex;not null" json:"reference"`
	Title     string    `json:"title"`
	Block     string    `json:"block"`
	Street    string    `json:"street"`
	Location  string    `gorm:"index;not null" json:"location"`
	UnitType  string    `json:"unit_type"`
	Bedrooms  int       `gorm:"index" json:"bedrooms"`
	Price     float64   `gorm:"index" json:"price"`
	AreaSqft  float64   `json:"area_sqft"`
	Category  string    `gorm:"index;not null;default:HDB" json:"category"`
	Status    string    `gorm:"index;not null;default:pending" json:"status"`
	SellerID  string    `gorm:"index" json:"seller_id"`
	Latitude  *float64  `json:"latitude"`
	Longitude *float64  `json:"longitude"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// PricePerSqft returns zero when the floor area is unknown
func (l *Listing) PricePerSqft() float64 {
	if l.AreaSqft <= 0 {
		return 0
	}
	return l.Price / l.AreaSqft
}

// HasCoordinates reports whether both latitude and longitude are known
func (l *Listing) HasCoordinates() bool {
	return l.Latitude != nil && l.Longitude != nil
}

// ListingUpdate carries the seller editable fields of a listing. Nil fields are left as is.
type ListingUpdate struct {
	Title     *string
	Block     *string
	Street    *string
	Location  *string
	UnitType  *string
	Bedrooms  *int
	Price     *float64
	AreaSqft  *float64
	Latitude  *float64
	Longitude *float64
}

type LocationStats struct {
	Location        string  `json:"location"`
	ListingCount    int     `json:"listing_count"`
	AveragePrice    float64 `json:"average_price"`
	MedianPrice     float64 `json:"median_price"`
	MinPrice        float64 `json:"min_price"`
	MaxPrice        float64 `json:"max_price"`
	AvgPricePerSqft float64 `json:"avg_price_per_sqft"`
}
