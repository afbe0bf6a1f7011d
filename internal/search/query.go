package search

import (
	"math"
	"strconv"
	"strings"

	"flatfinder/server/config"
	"flatfinder/server/internal/models"
)

// Column is a listing store column a predicate can target
type Column string

const (
	ColumnLocation Column = "location"
	ColumnBedrooms Column = "bedrooms"
	ColumnPrice    Column = "price"
	ColumnArea     Column = "area_sqft"
	ColumnCategory Column = "category"
	ColumnStatus   Column = "status"
)

type Op string

const (
	OpEq  Op = "eq"
	OpGte Op = "gte"
	OpLte Op = "lte"
)

// Predicate is a single column constraint. Value is a string, int or float64
// depending on the column.
type Predicate struct {
	Column Column `json:"column"`
	Op     Op     `json:"op"`
	Value  any    `json:"value"`
}

type PredicateSet []Predicate

// Find returns the first predicate on column with op
func (ps PredicateSet) Find(column Column, op Op) (Predicate, bool) {
	for _, p := range ps {
		if p.Column == column && p.Op == op {
			return p, true
		}
	}
	return Predicate{}, false
}

// References reports whether any predicate targets column
func (ps PredicateSet) References(column Column) bool {
	for _, p := range ps {
		if p.Column == column {
			return true
		}
	}
	return false
}

// QueryBuilder translates criteria into listing store predicates
type QueryBuilder struct {
	catalog   *config.Catalog
	constants PredicateSet
}

type BuilderOption func(*QueryBuilder)

// WithDomainConstants restricts every query to approved HDB listings
func WithDomainConstants() BuilderOption {
	return func(b *QueryBuilder) {
		b.constants = PredicateSet{
			{Column: ColumnCategory, Op: OpEq, Value: models.CategoryHDB},
			{Column: ColumnStatus, Op: OpEq, Value: models.StatusApproved},
		}
	}
}

func NewQueryBuilder(catalog *config.Catalog, opts ...BuilderOption) *QueryBuilder {
	b := &QueryBuilder{catalog: catalog}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

func (b *QueryBuilder) Catalog() *config.Catalog {
	return b.catalog
}

// Build maps criteria onto predicates. It never fails: unset fields and values
// that cannot be interpreted produce no predicate. Identical criteria always
// produce identical predicate sets.
func (b *QueryBuilder) Build(c Criteria) PredicateSet {
	predicates := PredicateSet{}

	if !IsUnset(c.Location) {
		location := config.NormalizeName(c.Location)
		if town, ok := b.catalog.Town(location); ok {
			location = town.Name
		}
		predicates = append(predicates, Predicate{Column: ColumnLocation, Op: OpEq, Value: location})
	}

	if !IsUnset(c.UnitType) {
		// Unknown categories have no bedroom code and add no constraint
		if unit, ok := b.catalog.UnitByLabel(c.UnitType); ok {
			predicates = append(predicates, Predicate{Column: ColumnBedrooms, Op: OpEq, Value: unit.Bedrooms})
		}
	}

	predicates = appendRange(predicates, ColumnPrice, c.MinPrice, c.MaxPrice)
	predicates = appendRange(predicates, ColumnArea, c.MinArea, c.MaxArea)

	return append(predicates, b.constants...)
}

// appendRange adds >= min and <= max predicates. When both bounds are given
// and min exceeds max they are swapped.
func appendRange(predicates PredicateSet, column Column, minText, maxText string) PredicateSet {
	lo, hasMin := parseBound(minText)
	hi, hasMax := parseBound(maxText)

	if hasMin && hasMax && lo > hi {
		lo, hi = hi, lo
	}
	if hasMin {
		predicates = append(predicates, Predicate{Column: column, Op: OpGte, Value: lo})
	}
	if hasMax {
		predicates = append(predicates, Predicate{Column: column, Op: OpLte, Value: hi})
	}
	return predicates
}

// parseBound reads a non-negative number, tolerating thousands separators
func parseBound(text string) (float64, bool) {
	if IsUnset(text) {
		return 0, false
	}
	cleaned := strings.ReplaceAll(strings.TrimSpace(text), ",", "")
	v, err := strconv.ParseFloat(cleaned, 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) || v < 0 {
		return 0, false
	}
	return v, true
}
