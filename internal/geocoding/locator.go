package geocoding

import (
	"context"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"

	"flatfinder/server/internal/events"
	"flatfinder/server/internal/models"
)

// ListingUpdater stores coordinates found for a listing
type ListingUpdater interface {
	UpdateListing(ctx context.Context, id int64, update models.ListingUpdate) (*models.Listing, error)
}

// Locator fills in the coordinates of approved listings that have none
type Locator struct {
	geocoder *Geocoder
	store    ListingUpdater
	logger   *logrus.Logger
}

func NewLocator(geocoder *Geocoder, store ListingUpdater, logger *logrus.Logger) *Locator {
	if logger == nil {
		logger = logrus.New()
	}
	return &Locator{geocoder: geocoder, store: store, logger: logger}
}

func (l *Locator) Subscribe(bus *events.Bus) (unsubscribe func()) {
	return bus.Subscribe(events.TopicListingApproved, l.handleListingApproved)
}

func (l *Locator) handleListingApproved(ev events.Event) error {
	payload, ok := ev.Payload.(events.ListingEvent)
	if !ok {
		return fmt.Errorf("unexpected payload %T for %s", ev.Payload, ev.Topic)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	return l.Locate(ctx, &payload.Listing)
}

// Locate geocodes listing and stores its coordinates. Listings that already
// have coordinates or were never stored are left alone.
func (l *Locator) Locate(ctx context.Context, listing *models.Listing) error {
	if listing.HasCoordinates() || listing.ID == 0 {
		return nil
	}

	lat, lon, err := l.geocoder.GeocodeAddress(ctx, Address(listing))
	if err != nil {
		return fmt.Errorf("failed to geocode listing %d: %w", listing.ID, err)
	}

	if _, err := l.store.UpdateListing(ctx, listing.ID, models.ListingUpdate{
		Latitude:  &lat,
		Longitude: &lon,
	}); err != nil {
		return fmt.Errorf("failed to store coordinates for listing %d: %w", listing.ID, err)
	}

	l.logger.WithFields(logrus.Fields{
		"listing_id": listing.ID,
		"latitude":   lat,
		"longitude":  lon,
	}).Info("Stored listing coordinates")
	return nil
}
