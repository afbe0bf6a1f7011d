package config

import (
	"errors"
	"fmt"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// AllValue is the catalog sentinel meaning "no constraint"
const AllValue = "ALL"

var ErrInvalidCatalog = errors.New("invalid catalog")

// Town represents a searchable HDB town
type Town struct {
	Name   string    `json:"name"`
	Center []float64 `json:"center"` // lat, lon
}

// UnitType maps a display category onto the bedroom code stored with each listing
type UnitType struct {
	Label    string `json:"label"`
	Bedrooms int    `json:"bedrooms"`
}

// Catalog is the fixed set of locations and unit types a search can use.
// It is immutable once built.
type Catalog struct {
	towns       []Town
	townsByName map[string]Town
	units       []UnitType
	unitsByName map[string]UnitType
	unitsByCode map[int]UnitType
}

var upper = cases.Upper(language.English)

// NormalizeName upper-cases a catalog name and collapses inner whitespace,
// so " tampines " and "Tampines" resolve to the same entry.
func NormalizeName(name string) string {
	return upper.String(strings.Join(strings.Fields(name), " "))
}

// NewCatalog validates the given towns and unit types and builds the lookup tables.
// Every unit type label and bedroom code must be unique so the mapping is bidirectional.
func NewCatalog(towns []Town, units []UnitType) (*Catalog, error) {
	c := &Catalog{
		townsByName: make(map[string]Town, len(towns)),
		unitsByName: make(map[string]UnitType, len(units)),
		unitsByCode: make(map[int]UnitType, len(units)),
	}

	for _, town := range towns {
		name := NormalizeName(town.Name)
		if name == "" || name == AllValue {
			return nil, fmt.Errorf("%w: town name %q is reserved or empty", ErrInvalidCatalog, town.Name)
		}
		if _, exists := c.townsByName[name]; exists {
			return nil, fmt.Errorf("%w: duplicate town %q", ErrInvalidCatalog, name)
		}
		if len(town.Center) != 0 && len(town.Center) != 2 {
			return nil, fmt.Errorf("%w: town %q center must be [lat, lon]", ErrInvalidCatalog, name)
		}
		town.Name = name
		c.townsByName[name] = town
		c.towns = append(c.towns, town)
	}

	for _, unit := range units {
		label := NormalizeName(unit.Label)
		if label == "" || label == AllValue {
			return nil, fmt.Errorf("%w: unit type label %q is reserved or empty", ErrInvalidCatalog, unit.Label)
		}
		if unit.Bedrooms <= 0 {
			return nil, fmt.Errorf("%w: unit type %q needs a positive bedroom code", ErrInvalidCatalog, label)
		}
		if _, exists := c.unitsByName[label]; exists {
			return nil, fmt.Errorf("%w: duplicate unit type %q", ErrInvalidCatalog, label)
		}
		if other, exists := c.unitsByCode[unit.Bedrooms]; exists {
			return nil, fmt.Errorf("%w: unit types %q and %q share bedroom code %d",
				ErrInvalidCatalog, other.Label, label, unit.Bedrooms)
		}
		unit.Label = label
		c.unitsByName[label] = unit
		c.unitsByCode[unit.Bedrooms] = unit
		c.units = append(c.units, unit)
	}

	if len(c.towns) == 0 || len(c.units) == 0 {
		return nil, fmt.Errorf("%w: at least one town and one unit type are required", ErrInvalidCatalog)
	}
	return c, nil
}

// MustCatalog is like NewCatalog but panics on invalid input
func MustCatalog(towns []Town, units []UnitType) *Catalog {
	c, err := NewCatalog(towns, units)
	if err != nil {
		panic(err)
	}
	return c
}

// Town returns the catalog entry for name
func (c *Catalog) Town(name string) (Town, bool) {
	town, ok := c.townsByName[NormalizeName(name)]
	return town, ok
}

// UnitByLabel resolves a display category such as "4 ROOM"
func (c *Catalog) UnitByLabel(label string) (UnitType, bool) {
	unit, ok := c.unitsByName[NormalizeName(label)]
	return unit, ok
}

// UnitByBedrooms resolves a stored bedroom code back to its display category
func (c *Catalog) UnitByBedrooms(bedrooms int) (UnitType, bool) {
	unit, ok := c.unitsByCode[bedrooms]
	return unit, ok
}

func (c *Catalog) Towns() []Town {
	towns := make([]Town, len(c.towns))
	copy(towns, c.towns)
	return towns
}

func (c *Catalog) UnitTypes() []UnitType {
	units := make([]UnitType, len(c.units))
	copy(units, c.units)
	return units
}

// DefaultTowns is the built-in list of HDB towns
var DefaultTowns = []Town{
	{Name: "ANG MO KIO", Center: []float64{1.3691, 103.8454}},
	{Name: "BEDOK", Center: []float64{1.3236, 103.9273}},
	{Name: "BISHAN", Center: []float64{1.3526, 103.8352}},
	{Name: "BUKIT BATOK", Center: []float64{1.3590, 103.7637}},
	{Name: "BUKIT MERAH", Center: []float64{1.2819, 103.8239}},
	{Name: "BUKIT PANJANG", Center: []float64{1.3774, 103.7719}},
	{Name: "BUKIT TIMAH", Center: []float64{1.3294, 103.8021}},
	{Name: "CENTRAL AREA", Center: []float64{1.2870, 103.8520}},
	{Name: "CHOA CHU KANG", Center: []float64{1.3840, 103.7470}},
	{Name: "CLEMENTI", Center: []float64{1.3162, 103.7649}},
	{Name: "GEYLANG", Center: []float64{1.3201, 103.8918}},
	{Name: "HOUGANG", Center: []float64{1.3612, 103.8863}},
	{Name: "JURONG EAST", Center: []float64{1.3329, 103.7436}},
	{Name: "JURONG WEST", Center: []float64{1.3404, 103.7090}},
	{Name: "KALLANG/WHAMPOA", Center: []float64{1.3100, 103.8651}},
	{Name: "MARINE PARADE", Center: []float64{1.3020, 103.9071}},
	{Name: "PASIR RIS", Center: []float64{1.3721, 103.9474}},
	{Name: "PUNGGOL", Center: []float64{1.3984, 103.9072}},
	{Name: "QUEENSTOWN", Center: []float64{1.2942, 103.7861}},
	{Name: "SEMBAWANG", Center: []float64{1.4491, 103.8185}},
	{Name: "SENGKANG", Center: []float64{1.3868, 103.8914}},
	{Name: "SERANGOON", Center: []float64{1.3554, 103.8679}},
	{Name: "TAMPINES", Center: []float64{1.3496, 103.9568}},
	{Name: "TOA PAYOH", Center: []float64{1.3343, 103.8563}},
	{Name: "WOODLANDS", Center: []float64{1.4382, 103.7890}},
	{Name: "YISHUN", Center: []float64{1.4304, 103.8354}},
}

// DefaultUnitTypes is the built-in flat type table. EXECUTIVE has no numeric
// label, it is stored under its own code.
var DefaultUnitTypes = []UnitType{
	{Label: "1 ROOM", Bedrooms: 1},
	{Label: "2 ROOM", Bedrooms: 2},
	{Label: "3 ROOM", Bedrooms: 3},
	{Label: "4 ROOM", Bedrooms: 4},
	{Label: "5 ROOM", Bedrooms: 5},
	{Label: "EXECUTIVE", Bedrooms: 6},
}

// DefaultCatalog returns the built-in catalog
func DefaultCatalog() *Catalog {
	return MustCatalog(DefaultTowns, DefaultUnitTypes)
}
