package search

import (
	"flatfinder/server/internal/models"
)

// Toggle moves a FilterState between recommended and manual mode.
//
// RECOMMENDED -> MANUAL happens on Disable or on a direct edit of location or
// unit type (see FilterState.SetField); the derived values are kept as the new
// manual starting point. MANUAL -> RECOMMENDED only happens on Enable and only
// with a preference available, and immediately overwrites the derived fields.
type Toggle struct {
	state *FilterState
	pref  *models.UserPreference
}

// NewToggle seeds state from pref. The search starts recommended when a
// preference exists and manual otherwise.
func NewToggle(state *FilterState, pref *models.UserPreference) *Toggle {
	t := &Toggle{state: state, pref: pref.Clone()}
	if t.pref != nil {
		t.state.setMode(ModeRecommended)
		t.state.ApplyRecommendation(t.pref)
	} else {
		t.state.setMode(ModeManual)
	}
	return t
}

// Enable switches to recommended mode
func (t *Toggle) Enable() error {
	if t.pref == nil {
		return ErrNoPreference
	}
	t.state.setMode(ModeRecommended)
	t.state.ApplyRecommendation(t.pref)
	return nil
}

// Disable switches to manual mode, keeping the current values
func (t *Toggle) Disable() {
	t.state.setMode(ModeManual)
}

// Set enables or disables recommendations
func (t *Toggle) Set(enabled bool) error {
	if enabled {
		return t.Enable()
	}
	t.Disable()
	return nil
}

// PreferenceChanged replaces the stored preference. While recommended the new
// values are applied right away; losing the preference drops to manual mode.
func (t *Toggle) PreferenceChanged(pref *models.UserPreference) {
	t.pref = pref.Clone()
	if t.state.Mode() != ModeRecommended {
		return
	}
	if t.pref == nil {
		t.state.setMode(ModeManual)
		return
	}
	t.state.ApplyRecommendation(t.pref)
}

// HasPreference reports whether recommended mode can be entered
func (t *Toggle) HasPreference() bool {
	return t.pref != nil
}

// Preference returns a copy of the stored preference, or nil
func (t *Toggle) Preference() *models.UserPreference {
	return t.pref.Clone()
}

// Editable reports whether f accepts direct input in the current mode
func (t *Toggle) Editable(f Field) bool {
	if !f.Valid() {
		return false
	}
	return !(f.derived() && t.state.Mode() == ModeRecommended)
}
