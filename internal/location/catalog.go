package location

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// ErrInvalidRecord is returned when the data source contains a record the catalog cannot hold.
var ErrInvalidRecord = errors.New("invalid location record")

// Catalog is the immutable, ordered collection of locations loaded at startup.
// Record order is significant: the resolver breaks ties by it.
type Catalog struct {
	records []Location
	byName  map[string]int
}

// DeriveCity returns the trailing comma-separated segment of address, trimmed.
// An address without a comma yields the whole trimmed string.
func DeriveCity(address string) string {
	idx := strings.LastIndex(address, ",")
	return strings.TrimSpace(address[idx+1:])
}

// NewCatalog builds a catalog from raw records, deriving City for each one.
// Records must have a name and a rating within 0-5.
func NewCatalog(raw []Location) (*Catalog, error) {
	c := &Catalog{
		records: make([]Location, 0, len(raw)),
		byName:  make(map[string]int, len(raw)),
	}

	for i, r := range raw {
		if strings.TrimSpace(r.Name) == "" {
			return nil, fmt.Errorf("record %d: empty name: %w", i, ErrInvalidRecord)
		}
		if r.Rating < 0 || r.Rating > 5 {
			return nil, fmt.Errorf("record %d (%s): rating %v outside 0-5: %w", i, r.Name, r.Rating, ErrInvalidRecord)
		}

		r.City = DeriveCity(r.Address)

		if _, dup := c.byName[r.Name]; dup {
			slog.Warn("duplicate location name in catalog", "name", r.Name)
		} else {
			c.byName[r.Name] = len(c.records)
		}
		c.records = append(c.records, r)
	}

	return c, nil
}

// LoadCatalogFile reads a JSON or YAML data source and builds the catalog.
func LoadCatalogFile(path string) (*Catalog, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading catalog %s: %w", path, err)
	}

	var raw []Location
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		err = yaml.Unmarshal(b, &raw)
	default:
		err = json.Unmarshal(b, &raw)
	}
	if err != nil {
		return nil, fmt.Errorf("parsing catalog %s: %w", path, err)
	}

	c, err := NewCatalog(raw)
	if err != nil {
		return nil, fmt.Errorf("building catalog from %s: %w", path, err)
	}
	return c, nil
}

// All returns a copy of the records in catalog order.
func (c *Catalog) All() []Location {
	out := make([]Location, len(c.records))
	copy(out, c.records)
	return out
}

// Len returns the number of records.
func (c *Catalog) Len() int { return len(c.records) }

// ByName looks up a record by its exact name.
func (c *Catalog) ByName(name string) (Location, bool) {
	idx, ok := c.byName[name]
	if !ok {
		return Location{}, false
	}
	return c.records[idx], true
}

// Cities returns the distinct cities in order of first appearance.
func (c *Catalog) Cities() []string {
	seen := make(map[string]struct{})
	cities := make([]string, 0)
	for _, r := range c.records {
		if _, ok := seen[r.City]; ok {
			continue
		}
		seen[r.City] = struct{}{}
		cities = append(cities, r.City)
	}
	return cities
}
