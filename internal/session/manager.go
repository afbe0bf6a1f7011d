package session

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"flatfinder/server/internal/events"
	"flatfinder/server/internal/models"
	"flatfinder/server/internal/search"
)

var ErrSessionNotFound = errors.New("session not found")

// PreferenceStore loads the saved preference of a user. A nil preference
// without error means the user has none.
type PreferenceStore interface {
	GetPreference(ctx context.Context, userID string) (*models.UserPreference, error)
}

type entry struct {
	session  *search.Session
	userID   string
	lastSeen time.Time

	// ctx is cancelled when the session is deleted or expires, aborting its searches
	ctx    context.Context
	cancel context.CancelFunc
}

// Manager keeps the live search sessions keyed by id
type Manager struct {
	mu       sync.RWMutex
	sessions map[string]*entry

	prefs   PreferenceStore
	store   search.ListingStore
	builder *search.QueryBuilder
	timeout time.Duration
	ttl     time.Duration
	logger  *logrus.Logger
	now     func() time.Time
}

// NewManager creates a session manager. Sessions idle for longer than ttl
// are removed by Expire; a ttl of zero keeps them forever.
func NewManager(prefs PreferenceStore, store search.ListingStore, builder *search.QueryBuilder, timeout, ttl time.Duration, logger *logrus.Logger) *Manager {
	if logger == nil {
		logger = logrus.New()
	}
	return &Manager{
		sessions: make(map[string]*entry),
		prefs:    prefs,
		store:    store,
		builder:  builder,
		timeout:  timeout,
		ttl:      ttl,
		logger:   logger,
		now:      time.Now,
	}
}

// Create opens a session for userID, seeded from the user's saved preference.
// An empty userID opens an anonymous session in manual mode.
func (m *Manager) Create(ctx context.Context, userID string) (string, *search.Session, error) {
	var pref *models.UserPreference
	if userID != "" {
		var err error
		pref, err = m.prefs.GetPreference(ctx, userID)
		if err != nil {
			return "", nil, fmt.Errorf("failed to load preference: %w", err)
		}
	}

	sessionCtx, cancel := context.WithCancel(context.Background())
	e := &entry{
		session:  search.NewSession(m.builder, search.NewExecutor(m.store, m.timeout, m.logger), pref),
		userID:   userID,
		lastSeen: m.now(),
		ctx:      sessionCtx,
		cancel:   cancel,
	}
	id := uuid.NewString()

	m.mu.Lock()
	m.sessions[id] = e
	m.mu.Unlock()

	// an update published before the entry existed was not forwarded to it
	if userID != "" {
		latest, err := m.prefs.GetPreference(ctx, userID)
		if err != nil {
			m.logger.WithError(err).WithField("session_id", id).Warn("Failed to refresh preference of new session")
		} else {
			e.session.PreferenceChanged(latest)
			if pref == nil && latest != nil {
				// nobody holds the id yet, so the session still has its initial state
				_ = e.session.SetRecommendation(true)
			}
			pref = latest
		}
	}

	m.logger.WithFields(logrus.Fields{
		"session_id":  id,
		"user_id":     userID,
		"recommended": pref != nil,
	}).Info("Created search session")
	return id, e.session, nil
}

// Get returns a session and marks it as used
func (m *Manager) Get(id string) (*search.Session, error) {
	e, err := m.touch(id)
	if err != nil {
		return nil, err
	}
	return e.session, nil
}

func (m *Manager) touch(id string) (*entry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	e, ok := m.sessions[id]
	if !ok {
		return nil, ErrSessionNotFound
	}
	e.lastSeen = m.now()
	return e, nil
}

// Search runs the session's current query. The search is aborted when ctx is
// done or the session is deleted.
func (m *Manager) Search(ctx context.Context, id string) ([]models.Listing, error) {
	e, err := m.touch(id)
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	stop := context.AfterFunc(e.ctx, cancel)
	defer stop()

	return e.session.Search(ctx)
}

func (m *Manager) Delete(id string) error {
	m.mu.Lock()
	e, ok := m.sessions[id]
	delete(m.sessions, id)
	m.mu.Unlock()

	if !ok {
		return ErrSessionNotFound
	}
	e.cancel()
	return nil
}

// Expire removes the sessions idle for longer than the ttl and returns how many were removed
func (m *Manager) Expire() int {
	if m.ttl <= 0 {
		return 0
	}
	cutoff := m.now().Add(-m.ttl)

	m.mu.Lock()
	var expired []*entry
	for id, e := range m.sessions {
		if e.lastSeen.Before(cutoff) {
			expired = append(expired, e)
			delete(m.sessions, id)
		}
	}
	m.mu.Unlock()

	for _, e := range expired {
		e.cancel()
	}
	return len(expired)
}

func (m *Manager) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.sessions)
}

// Close cancels every session
func (m *Manager) Close() {
	m.mu.Lock()
	sessions := m.sessions
	m.sessions = make(map[string]*entry)
	m.mu.Unlock()

	for _, e := range sessions {
		e.cancel()
	}
}

// Subscribe forwards preference updates from bus to the sessions of the same user
func (m *Manager) Subscribe(bus *events.Bus) (unsubscribe func()) {
	return bus.Subscribe(events.TopicPreferenceUpdated, m.handlePreferenceUpdated)
}

func (m *Manager) handlePreferenceUpdated(ev events.Event) error {
	payload, ok := ev.Payload.(events.PreferenceUpdated)
	if !ok {
		return fmt.Errorf("unexpected payload %T for %s", ev.Payload, ev.Topic)
	}
	if payload.UserID == "" {
		return fmt.Errorf("preference event without user id")
	}

	m.mu.RLock()
	var targets []*search.Session
	for _, e := range m.sessions {
		if e.userID == payload.UserID {
			targets = append(targets, e.session)
		}
	}
	m.mu.RUnlock()

	for _, s := range targets {
		s.PreferenceChanged(payload.Preference.Clone())
	}
	m.logger.WithFields(logrus.Fields{
		"user_id":  payload.UserID,
		"removed":  payload.Preference == nil,
		"sessions": len(targets),
	}).Debug("Forwarded preference update")
	return nil
}
