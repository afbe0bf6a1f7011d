package search

import (
	"errors"
	"fmt"
	"strings"

	"flatfinder/server/config"
)

var (
	ErrUnknownField = errors.New("unknown filter field")
	ErrNoPreference = errors.New("no saved preference available")
	ErrSearchFailed = errors.New("search failed, please try again")
	ErrStaleResult  = errors.New("search superseded by a newer request")
)

// Field names a single editable criterion
type Field string

const (
	FieldLocation Field = "location"
	FieldUnitType Field = "unit_type"
	FieldMinPrice Field = "min_price"
	FieldMaxPrice Field = "max_price"
	FieldMinArea  Field = "min_area"
	FieldMaxArea  Field = "max_area"
)

// Fields lists every editable field in a stable order
var Fields = []Field{FieldLocation, FieldUnitType, FieldMinPrice, FieldMaxPrice, FieldMinArea, FieldMaxArea}

var fieldAliases = map[string]Field{
	"unittype": FieldUnitType,
	"minprice": FieldMinPrice,
	"maxprice": FieldMaxPrice,
	"minarea":  FieldMinArea,
	"maxarea":  FieldMaxArea,
}

// ParseField accepts both snake_case and camelCase field names
func ParseField(name string) (Field, error) {
	f := Field(name)
	if f.Valid() {
		return f, nil
	}
	if alias, ok := fieldAliases[strings.ToLower(name)]; ok {
		return alias, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownField, name)
}

func (f Field) Valid() bool {
	for _, known := range Fields {
		if f == known {
			return true
		}
	}
	return false
}

// derived fields follow the saved preference while recommendations are on
func (f Field) derived() bool {
	return f == FieldLocation || f == FieldUnitType
}

// Criteria is the current search query. Values are kept exactly as entered;
// an empty string or "ALL" means no constraint.
type Criteria struct {
	Location string `json:"location"`
	UnitType string `json:"unit_type"`
	MinPrice string `json:"min_price"`
	MaxPrice string `json:"max_price"`
	MinArea  string `json:"min_area"`
	MaxArea  string `json:"max_area"`
}

// DefaultCriteria returns criteria without any constraint
func DefaultCriteria() Criteria {
	return Criteria{
		Location: config.AllValue,
		UnitType: config.AllValue,
	}
}

// Get returns the raw value of f
func (c Criteria) Get(f Field) string {
	switch f {
	case FieldLocation:
		return c.Location
	case FieldUnitType:
		return c.UnitType
	case FieldMinPrice:
		return c.MinPrice
	case FieldMaxPrice:
		return c.MaxPrice
	case FieldMinArea:
		return c.MinArea
	case FieldMaxArea:
		return c.MaxArea
	}
	return ""
}

// With returns a copy of c with f set to value
func (c Criteria) With(f Field, value string) Criteria {
	c.set(f, value)
	return c
}

func (c *Criteria) set(f Field, value string) {
	switch f {
	case FieldLocation:
		c.Location = value
	case FieldUnitType:
		c.UnitType = value
	case FieldMinPrice:
		c.MinPrice = value
	case FieldMaxPrice:
		c.MaxPrice = value
	case FieldMinArea:
		c.MinArea = value
	case FieldMaxArea:
		c.MaxArea = value
	}
}

// IsUnset reports whether value is the "no constraint" sentinel
func IsUnset(value string) bool {
	value = strings.TrimSpace(value)
	return value == "" || strings.EqualFold(value, config.AllValue)
}
