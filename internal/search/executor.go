package search

import (
	"context"
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"flatfinder/server/internal/models"
)

// ListingStore runs predicate queries and returns the full result set
type ListingStore interface {
	Search(ctx context.Context, predicates PredicateSet) ([]models.Listing, error)
}

// Executor runs searches against a ListingStore and keeps the latest results.
//
// Every run takes a sequence number. Results are applied only when the run is
// still the most recent one issued, so a slow earlier query can never overwrite
// the results of a later one.
type Executor struct {
	store   ListingStore
	logger  *logrus.Logger
	timeout time.Duration

	mu       sync.Mutex
	seq      uint64
	inFlight int
	results  []models.Listing
}

// NewExecutor creates an executor. A zero timeout leaves queries bounded only by the caller's context.
func NewExecutor(store ListingStore, timeout time.Duration, logger *logrus.Logger) *Executor {
	if logger == nil {
		logger = logrus.New()
		logger.SetFormatter(&logrus.JSONFormatter{})
		logger.SetOutput(os.Stdout)
	}
	return &Executor{
		store:   store,
		logger:  logger,
		timeout: timeout,
		results: []models.Listing{},
	}
}

// Run issues predicates against the store. On success the stored results are
// replaced and returned. On failure the previous results are kept and the error
// wraps ErrSearchFailed. A run overtaken by a newer one returns ErrStaleResult.
// The loading flag is cleared in every case.
func (e *Executor) Run(ctx context.Context, predicates PredicateSet) ([]models.Listing, error) {
	e.mu.Lock()
	e.seq++
	seq := e.seq
	e.inFlight++
	e.mu.Unlock()

	defer func() {
		e.mu.Lock()
		e.inFlight--
		e.mu.Unlock()
	}()

	if e.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, e.timeout)
		defer cancel()
	}

	listings, err := e.store.Search(ctx, predicates)
	if err != nil {
		e.logger.WithError(err).WithFields(logrus.Fields{
			"sequence":   seq,
			"predicates": len(predicates),
		}).Error("Listing search failed")
		return nil, fmt.Errorf("%w: %w", ErrSearchFailed, err)
	}
	if listings == nil {
		listings = []models.Listing{}
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	if seq != e.seq {
		e.logger.WithFields(logrus.Fields{
			"sequence": seq,
			"latest":   e.seq,
		}).Debug("Discarding superseded search results")
		return nil, ErrStaleResult
	}
	e.results = listings
	return cloneListings(listings), nil
}

// Loading reports whether a search is in flight
func (e *Executor) Loading() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.inFlight > 0
}

// Results returns a copy of the last applied result list
func (e *Executor) Results() []models.Listing {
	e.mu.Lock()
	defer e.mu.Unlock()
	return cloneListings(e.results)
}

func cloneListings(listings []models.Listing) []models.Listing {
	out := make([]models.Listing, len(listings))
	copy(out, listings)
	return out
}
