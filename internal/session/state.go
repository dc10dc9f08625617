package session

import (
	"errors"
	"fmt"
	"sync"

	"github.com/neexbeast/takeabreak/internal/location"
)

// Mode is the main-screen presentation mode.
type Mode string

const (
	ModeList Mode = "list"
	ModeMap  Mode = "map"
)

// ErrNotInCatalog is returned when a recommendation does not name a catalog record.
var ErrNotInCatalog = errors.New("location not in catalog")

// ErrInvalidMode is returned by SetMode for anything other than list or map.
var ErrInvalidMode = errors.New("invalid presentation mode")

// ViewState is the per-session view model shared by the catalog, chat and map consumers.
// Setters are the only mutation path.
type ViewState struct {
	catalog *location.Catalog

	mu          sync.RWMutex
	recommended *location.Location
	userLoc     *location.UserCoordinates
	mode        Mode
}

// Snapshot is a point-in-time copy of a ViewState.
type Snapshot struct {
	Recommended  *location.Location        `json:"recommended_location"`
	UserLocation *location.UserCoordinates `json:"user_location"`
	Mode         Mode                      `json:"presentation_mode"`
}

// NewViewState returns a state in list mode with nothing recommended.
func NewViewState(catalog *location.Catalog) *ViewState {
	return &ViewState{catalog: catalog, mode: ModeList}
}

// Catalog returns the shared read-only catalog.
func (s *ViewState) Catalog() *location.Catalog { return s.catalog }

// Recommended returns the current recommendation, if any.
func (s *ViewState) Recommended() (location.Location, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.recommended == nil {
		return location.Location{}, false
	}
	return *s.recommended, true
}

// SetRecommended records loc as the recommendation. The stored value is the catalog's own
// record with the same name; a name the catalog does not hold is rejected.
func (s *ViewState) SetRecommended(loc location.Location) error {
	rec, ok := s.catalog.ByName(loc.Name)
	if !ok {
		return fmt.Errorf("recommending %q: %w", loc.Name, ErrNotInCatalog)
	}

	s.mu.Lock()
	s.recommended = &rec
	s.mu.Unlock()
	return nil
}

// ClearRecommended drops the recommendation. Clearing an absent one is a no-op.
func (s *ViewState) ClearRecommended() {
	s.mu.Lock()
	s.recommended = nil
	s.mu.Unlock()
}

// ConsumeRecommended returns and clears the recommendation in one step and focuses the map,
// which is what the map view does when it picks one up.
func (s *ViewState) ConsumeRecommended() (location.Location, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.recommended == nil {
		return location.Location{}, false
	}
	rec := *s.recommended
	s.recommended = nil
	s.mode = ModeMap
	return rec, true
}

// UserLocation returns the last known device position, if any.
func (s *ViewState) UserLocation() (location.UserCoordinates, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.userLoc == nil {
		return location.UserCoordinates{}, false
	}
	return *s.userLoc, true
}

// SetUserLocation stores the device position. nil forgets it.
func (s *ViewState) SetUserLocation(c *location.UserCoordinates) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if c == nil {
		s.userLoc = nil
		return
	}
	v := *c
	s.userLoc = &v
}

// Mode returns the presentation mode.
func (s *ViewState) Mode() Mode {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.mode
}

// SetMode sets the presentation mode.
func (s *ViewState) SetMode(m Mode) error {
	if m != ModeList && m != ModeMap {
		return fmt.Errorf("setting mode %q: %w", m, ErrInvalidMode)
	}
	s.mu.Lock()
	s.mode = m
	s.mu.Unlock()
	return nil
}

// ToggleMode flips between list and map and returns the new mode.
func (s *ViewState) ToggleMode() Mode {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.mode == ModeMap {
		s.mode = ModeList
	} else {
		s.mode = ModeMap
	}
	return s.mode
}

// Recommend sets the recommendation and switches to the map in one step.
func (s *ViewState) Recommend(loc location.Location) error {
	rec, ok := s.catalog.ByName(loc.Name)
	if !ok {
		return fmt.Errorf("recommending %q: %w", loc.Name, ErrNotInCatalog)
	}

	s.mu.Lock()
	s.recommended = &rec
	s.mode = ModeMap
	s.mu.Unlock()
	return nil
}

// Snapshot copies the current state.
func (s *ViewState) Snapshot() Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()

	snap := Snapshot{Mode: s.mode}
	if s.recommended != nil {
		rec := *s.recommended
		snap.Recommended = &rec
	}
	if s.userLoc != nil {
		u := *s.userLoc
		snap.UserLocation = &u
	}
	return snap
}
