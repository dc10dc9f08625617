package location

import "strings"

// AllCities is the city criterion that disables city filtering and enables grouping.
const AllCities = "all"

// Criteria are the user-entered filter inputs. A nil MinRating disables the rating filter.
type Criteria struct {
	Search    string
	City      string
	MinRating *float64
}

func (c Criteria) allCities() bool {
	return c.City == "" || c.City == AllCities
}

// Result is the filtered view. Groups is set only when every city is selected.
type Result struct {
	Locations []Location  `json:"locations"`
	Groups    []CityGroup `json:"groups,omitempty"`
}

// Matches reports whether a single record satisfies all active predicates.
func (c Criteria) Matches(l Location) bool {
	if q := strings.ToLower(c.Search); q != "" {
		if !strings.Contains(strings.ToLower(l.Name), q) &&
			!strings.Contains(strings.ToLower(l.City), q) &&
			!strings.Contains(strings.ToLower(l.Address), q) {
			return false
		}
	}
	if !c.allCities() && l.City != c.City {
		return false
	}
	if c.MinRating != nil && l.Rating < *c.MinRating {
		return false
	}
	return true
}

// Filter returns the records matching criteria, preserving input order.
func Filter(records []Location, c Criteria) []Location {
	out := make([]Location, 0, len(records))
	for _, l := range records {
		if c.Matches(l) {
			out = append(out, l)
		}
	}
	return out
}

// GroupByCity groups records by city. Groups appear in the order their city is first seen.
func GroupByCity(records []Location) []CityGroup {
	index := make(map[string]int)
	groups := make([]CityGroup, 0)
	for _, l := range records {
		i, ok := index[l.City]
		if !ok {
			i = len(groups)
			index[l.City] = i
			groups = append(groups, CityGroup{City: l.City})
		}
		groups[i].Locations = append(groups[i].Locations, l)
	}
	return groups
}

// Apply filters records and groups the result when the city criterion is "all".
func Apply(records []Location, c Criteria) Result {
	res := Result{Locations: Filter(records, c)}
	if c.allCities() {
		res.Groups = GroupByCity(res.Locations)
	}
	return res
}
