package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
)

// catalogFile is the on-disk shape of a catalog override
type catalogFile struct {
	Towns     []Town     `json:"towns"`
	UnitTypes []UnitType `json:"unit_types"`
}

// LoadCatalogFile reads a catalog from a JSON file. Missing sections fall back
// to the built-in towns or unit types.
func LoadCatalogFile(path string) (*Catalog, error) {
	// Get absolute path to config file
	absPath, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("failed to get absolute path: %w", err)
	}

	data, err := os.ReadFile(absPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read catalog file: %w", err)
	}

	var file catalogFile
	if err := json.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("failed to parse catalog file: %w", err)
	}

	if len(file.Towns) == 0 {
		file.Towns = DefaultTowns
	}
	if len(file.UnitTypes) == 0 {
		file.UnitTypes = DefaultUnitTypes
	}
	return NewCatalog(file.Towns, file.UnitTypes)
}
