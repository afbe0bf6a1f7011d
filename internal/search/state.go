package search

import (
	"flatfinder/server/internal/models"
)

// Mode is the recommendation mode of a search
type Mode int

const (
	ModeManual Mode = iota
	ModeRecommended
)

// String returns the string representation of a Mode
func (m Mode) String() string {
	switch m {
	case ModeManual:
		return "MANUAL"
	case ModeRecommended:
		return "RECOMMENDED"
	default:
		return "UNKNOWN"
	}
}

func (m Mode) MarshalText() ([]byte, error) {
	return []byte(m.String()), nil
}

// FilterState owns the criteria of one search together with its recommendation mode.
// It is not safe for concurrent use; Session serializes access.
type FilterState struct {
	criteria Criteria
	mode     Mode
}

// NewFilterState starts in manual mode with empty criteria
func NewFilterState() *FilterState {
	return &FilterState{criteria: DefaultCriteria()}
}

func (s *FilterState) Criteria() Criteria {
	return s.criteria
}

func (s *FilterState) Mode() Mode {
	return s.mode
}

// SetField stores value for f. Editing location or unit type while recommended
// switches the state to manual before the value is applied; the current derived
// values stay in place. Values are not validated here.
func (s *FilterState) SetField(f Field, value string) error {
	if !f.Valid() {
		return ErrUnknownField
	}
	if f.derived() && s.mode == ModeRecommended {
		s.mode = ModeManual
	}
	s.criteria.set(f, value)
	return nil
}

// ApplyRecommendation copies the preferred location and unit type into the criteria.
// A nil preference leaves the criteria untouched.
func (s *FilterState) ApplyRecommendation(pref *models.UserPreference) {
	if pref == nil {
		return
	}
	s.criteria.Location = pref.DefaultLocation()
	s.criteria.UnitType = pref.PreferredUnitType
}

// Reset clears every field but keeps the mode
func (s *FilterState) Reset() {
	s.criteria = DefaultCriteria()
}

func (s *FilterState) setMode(m Mode) {
	s.mode = m
}
