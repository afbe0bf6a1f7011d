package geocoding

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"flatfinder/server/config"
	"flatfinder/server/internal/models"
)

var ErrNoResults = errors.New("no geocoding results")

// Geocoder resolves addresses through a Nominatim compatible API, caching
// every answer in memory and optionally on disk
type Geocoder struct {
	logger    *logrus.Logger
	baseURL   string
	cacheFile string
	cache     map[string][]float64
	cacheLock sync.RWMutex
	client    *http.Client
	interval  time.Duration

	// requests are spaced by interval
	rateLock    sync.Mutex
	lastRequest time.Time
}

func NewGeocoder(cfg config.GeocodingConfig, logger *logrus.Logger) *Geocoder {
	if logger == nil {
		logger = logrus.New()
	}

	g := &Geocoder{
		logger:   logger,
		baseURL:  strings.TrimRight(cfg.BaseURL, "/"),
		cache:    make(map[string][]float64),
		client:   &http.Client{Timeout: 10 * time.Second},
		interval: cfg.RequestInterval,
	}

	if cfg.CacheDir != "" {
		if err := os.MkdirAll(cfg.CacheDir, 0755); err != nil {
			logger.WithError(err).Warn("Could not create geocode cache directory")
		} else {
			g.cacheFile = filepath.Join(cfg.CacheDir, "geocode_cache.json")
			g.loadCache()
		}
	}

	return g
}

func (g *Geocoder) loadCache() {
	data, err := os.ReadFile(g.cacheFile)
	if err != nil {
		if !os.IsNotExist(err) {
			g.logger.Warnf("Could not load geocode cache: %v", err)
		}
		return
	}

	g.cacheLock.Lock()
	defer g.cacheLock.Unlock()
	if err := json.Unmarshal(data, &g.cache); err != nil {
		g.logger.Errorf("Failed to parse geocode cache: %v", err)
		return
	}

	g.logger.Infof("Loaded %d cached addresses", len(g.cache))
}

func (g *Geocoder) saveCache() {
	if g.cacheFile == "" {
		return
	}

	g.cacheLock.RLock()
	data, err := json.Marshal(g.cache)
	g.cacheLock.RUnlock()
	if err != nil {
		g.logger.Errorf("Failed to marshal geocode cache: %v", err)
		return
	}

	if err := os.WriteFile(g.cacheFile, data, 0644); err != nil {
		g.logger.Errorf("Failed to save geocode cache: %v", err)
	}
}

// Address formats the street address of a listing for lookup
func Address(l *models.Listing) string {
	parts := make([]string, 0, 3)
	if street := strings.TrimSpace(strings.TrimSpace(l.Block) + " " + strings.TrimSpace(l.Street)); street != "" {
		parts = append(parts, street)
	}
	if l.Location != "" {
		parts = append(parts, l.Location)
	}
	parts = append(parts, "Singapore")
	return strings.Join(parts, ", ")
}

type nominatimResponse []struct {
	Lat string `json:"lat"`
	Lon string `json:"lon"`
}

// GeocodeAddress returns the latitude and longitude of address
func (g *Geocoder) GeocodeAddress(ctx context.Context, address string) (float64, float64, error) {
	cacheKey := strings.ToUpper(strings.TrimSpace(address))

	g.cacheLock.RLock()
	coords, ok := g.cache[cacheKey]
	g.cacheLock.RUnlock()
	if ok && len(coords) == 2 {
		g.logger.WithField("address", address).Debug("Found coordinates in cache")
		return coords[0], coords[1], nil
	}

	if err := g.wait(ctx); err != nil {
		return 0, 0, err
	}

	params := url.Values{
		"q":            []string{address},
		"format":       []string{"json"},
		"limit":        []string{"1"},
		"countrycodes": []string{"sg"},
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, g.baseURL+"/search?"+params.Encode(), nil)
	if err != nil {
		return 0, 0, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("User-Agent", "FlatFinder Listing Service/1.0")

	resp, err := g.client.Do(req)
	if err != nil {
		return 0, 0, fmt.Errorf("geocoding request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return 0, 0, fmt.Errorf("geocoding API error (status %d): %s", resp.StatusCode, string(body))
	}

	var result nominatimResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return 0, 0, fmt.Errorf("failed to parse response: %w", err)
	}
	if len(result) == 0 {
		return 0, 0, fmt.Errorf("%w for %q", ErrNoResults, address)
	}

	lat, err := strconv.ParseFloat(result[0].Lat, 64)
	if err != nil {
		return 0, 0, fmt.Errorf("invalid latitude %q: %w", result[0].Lat, err)
	}
	lon, err := strconv.ParseFloat(result[0].Lon, 64)
	if err != nil {
		return 0, 0, fmt.Errorf("invalid longitude %q: %w", result[0].Lon, err)
	}

	g.logger.WithFields(logrus.Fields{
		"address":   address,
		"latitude":  lat,
		"longitude": lon,
	}).Info("Successfully geocoded address")

	g.cacheLock.Lock()
	g.cache[cacheKey] = []float64{lat, lon}
	g.cacheLock.Unlock()
	g.saveCache()

	return lat, lon, nil
}

// wait blocks until interval has passed since the previous request
func (g *Geocoder) wait(ctx context.Context) error {
	g.rateLock.Lock()
	defer g.rateLock.Unlock()

	if delay := time.Until(g.lastRequest.Add(g.interval)); delay > 0 {
		timer := time.NewTimer(delay)
		defer timer.Stop()
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-timer.C:
		}
	}
	g.lastRequest = time.Now()
	return nil
}
