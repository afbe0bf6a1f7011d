package search

import (
	"context"
	"sync"

	"flatfinder/server/internal/models"
)

// Session is one search view: filter state, recommendation toggle and the
// executor holding its results. State changes are serialized by a mutex;
// the store query itself runs outside the lock.
type Session struct {
	mu      sync.Mutex
	state   *FilterState
	toggle  *Toggle
	builder *QueryBuilder
	exec    *Executor
}

// Snapshot is a point in time copy of a session
type Snapshot struct {
	Criteria      Criteria         `json:"criteria"`
	Mode          Mode             `json:"mode"`
	HasPreference bool             `json:"has_preference"`
	Editable      map[Field]bool   `json:"editable"`
	Loading       bool             `json:"loading"`
	Results       []models.Listing `json:"results"`
}

// NewSession seeds a session from pref, which may be nil
func NewSession(builder *QueryBuilder, exec *Executor, pref *models.UserPreference) *Session {
	state := NewFilterState()
	return &Session{
		state:   state,
		toggle:  NewToggle(state, pref),
		builder: builder,
		exec:    exec,
	}
}

func (s *Session) SetField(f Field, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.SetField(f, value)
}

// SetFields applies several edits at once. Every field is checked before any is applied.
func (s *Session) SetFields(values map[Field]string) error {
	for f := range values {
		if !f.Valid() {
			return ErrUnknownField
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	for _, f := range Fields {
		if v, ok := values[f]; ok {
			_ = s.state.SetField(f, v)
		}
	}
	return nil
}

// SetRecommendation turns recommended mode on or off
func (s *Session) SetRecommendation(enabled bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.toggle.Set(enabled)
}

// Reset clears the criteria. In recommended mode the derived fields are
// restored from the preference right after.
func (s *Session) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state.Reset()
	if s.state.Mode() == ModeRecommended {
		s.state.ApplyRecommendation(s.toggle.Preference())
	}
}

func (s *Session) PreferenceChanged(pref *models.UserPreference) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.toggle.PreferenceChanged(pref)
}

// Query returns the predicates for the current criteria
func (s *Session) Query() PredicateSet {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.builder.Build(s.state.Criteria())
}

// Search runs the current query
func (s *Session) Search(ctx context.Context) ([]models.Listing, error) {
	return s.exec.Run(ctx, s.Query())
}

func (s *Session) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()

	editable := make(map[Field]bool, len(Fields))
	for _, f := range Fields {
		editable[f] = s.toggle.Editable(f)
	}
	return Snapshot{
		Criteria:      s.state.Criteria(),
		Mode:          s.state.Mode(),
		HasPreference: s.toggle.HasPreference(),
		Editable:      editable,
		Loading:       s.exec.Loading(),
		Results:       s.exec.Results(),
	}
}
