package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"html"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"flatfinder/server/config"
	"flatfinder/server/internal/events"
	"flatfinder/server/internal/models"
)

// Store is the data the notifier reads to decide who cares about a listing
type Store interface {
	ListPreferences(ctx context.Context) ([]models.UserPreference, error)
	ListingStats(ctx context.Context, location string) ([]models.LocationStats, error)
}

// Service posts newly approved listings to a Telegram chat
type Service struct {
	logger *logrus.Logger
	client *http.Client
	config config.TelegramConfig
	store  Store
}

func NewService(cfg config.TelegramConfig, store Store, logger *logrus.Logger) *Service {
	if logger == nil {
		logger = logrus.New()
	}
	return &Service{
		logger: logger,
		client: &http.Client{
			Timeout: 10 * time.Second,
		},
		config: cfg,
		store:  store,
	}
}

// Subscribe registers the service for approved listing events
func (s *Service) Subscribe(bus *events.Bus) (unsubscribe func()) {
	return bus.Subscribe(events.TopicListingApproved, s.handleListingApproved)
}

func (s *Service) handleListingApproved(ev events.Event) error {
	payload, ok := ev.Payload.(events.ListingEvent)
	if !ok {
		return fmt.Errorf("unexpected payload %T for %s", ev.Payload, ev.Topic)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	return s.NotifyListing(ctx, &payload.Listing)
}

// SendMessage sends a message to the configured Telegram chat
func (s *Service) SendMessage(ctx context.Context, message string) error {
	if !s.config.Enabled {
		return nil
	}

	if s.config.BotToken == "" {
		return errors.New("telegram bot token is not configured")
	}

	if s.config.ChatID == "" {
		return errors.New("telegram chat ID is not configured")
	}

	url := fmt.Sprintf("%s/bot%s/sendMessage", strings.TrimRight(s.config.APIBaseURL, "/"), s.config.BotToken)
	payload := map[string]interface{}{
		"chat_id":    s.config.ChatID,
		"text":       message,
		"parse_mode": "HTML",
	}

	jsonData, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to marshal message payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(jsonData))
	if err != nil {
		return fmt.Errorf("failed to build telegram request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		return fmt.Errorf("failed to send message to Telegram API: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		switch resp.StatusCode {
		case http.StatusUnauthorized, http.StatusNotFound:
			return errors.New("invalid bot token, check the token issued by @BotFather")
		case http.StatusBadRequest:
			return fmt.Errorf("invalid chat ID or message format: %s", string(body))
		case http.StatusForbidden:
			return errors.New("bot was blocked by the user or chat")
		default:
			return fmt.Errorf("telegram API error (status %d): %s", resp.StatusCode, string(body))
		}
	}

	return nil
}

// NotifyListing announces a listing when at least one saved preference matches it
func (s *Service) NotifyListing(ctx context.Context, listing *models.Listing) error {
	if !s.config.Enabled {
		return nil
	}

	prefs, err := s.store.ListPreferences(ctx)
	if err != nil {
		return fmt.Errorf("failed to load preferences: %w", err)
	}

	interested := 0
	for i := range prefs {
		if prefs[i].Matches(listing) {
			interested++
		}
	}
	if interested == 0 {
		s.logger.WithField("reference", listing.Reference).Debug("No preference matches listing, skipping notification")
		return nil
	}

	analysis := s.priceAnalysis(ctx, listing)
	if err := s.SendMessage(ctx, formatListing(listing, analysis, interested)); err != nil {
		return err
	}

	s.logger.WithFields(logrus.Fields{
		"reference":  listing.Reference,
		"interested": interested,
	}).Info("Sent listing notification")
	return nil
}

// priceAnalysis compares a listing with the median price of its location
func (s *Service) priceAnalysis(ctx context.Context, listing *models.Listing) string {
	stats, err := s.store.ListingStats(ctx, listing.Location)
	if err != nil {
		s.logger.WithError(err).Error("Failed to get price analysis")
		return "Location comparison unavailable"
	}
	if len(stats) == 0 || stats[0].MedianPrice <= 0 {
		return "No other approved listings in this location"
	}
	return compareToMedian(listing.Price, stats[0].MedianPrice)
}

func compareToMedian(price, median float64) string {
	diff := ((price - median) / median) * 100
	switch {
	case diff <= -10:
		return fmt.Sprintf("%.1f%% below location median ($%.0f)", -diff, median)
	case diff >= 10:
		return fmt.Sprintf("%.1f%% above location median ($%.0f)", diff, median)
	default:
		return fmt.Sprintf("Close to location median ($%.0f)", median)
	}
}

func formatListing(listing *models.Listing, analysis string, interested int) string {
	address := strings.TrimSpace(listing.Block + " " + listing.Street)
	if address == "" {
		address = listing.Title
	}

	perSqft := "N/A"
	if v := listing.PricePerSqft(); v > 0 {
		perSqft = fmt.Sprintf("$%.0f/sqft", v)
	}

	return fmt.Sprintf(
		"<b>New %s Listing!</b>\n\n"+
			"🏠 %s\n"+
			"📍 %s\n"+
			"🚪 %s\n"+
			"💰 $%.0f\n"+
			"📐 %.0f sqft (%s)\n"+
			"📊 %s\n\n"+
			"Matches %d saved preference(s)",
		html.EscapeString(listing.Category),
		html.EscapeString(address),
		html.EscapeString(listing.Location),
		html.EscapeString(listing.UnitType),
		listing.Price,
		listing.AreaSqft,
		perSqft,
		analysis,
		interested,
	)
}
