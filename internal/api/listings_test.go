package api

import (
	"fmt"
	"net/http"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"flatfinder/server/internal/events"
	"flatfinder/server/internal/models"
)

func newListingBody(reference string) gin.H {
	return gin.H{
		"reference": reference,
		"block":     "201",
		"street":    "Tampines St 21",
		"location":  "tampines",
		"unit_type": "executive",
		"price":     720000,
		"area_sqft": 1500,
		"seller_id": "s1",
	}
}

func TestListingWorkflow(t *testing.T) {
	s := newTestServer(t)

	approved := make(chan events.ListingEvent, 1)
	defer s.bus.Subscribe(events.TopicListingApproved, func(ev events.Event) error {
		approved <- ev.Payload.(events.ListingEvent)
		return nil
	})()

	w := s.do(t, http.MethodPost, "/api/listings", newListingBody("N-1"))
	require.Equal(t, http.StatusCreated, w.Code)
	var listing models.Listing
	decode(t, w, &listing)
	assert.Equal(t, "TAMPINES", listing.Location)
	assert.Equal(t, "EXECUTIVE", listing.UnitType)
	assert.Equal(t, 6, listing.Bedrooms)
	assert.Equal(t, models.StatusPending, listing.Status)
	assert.Equal(t, models.CategoryHDB, listing.Category)

	w = s.do(t, http.MethodPost, "/api/listings", newListingBody("N-1"))
	assert.Equal(t, http.StatusBadRequest, w.Code)

	path := fmt.Sprintf("/api/listings/%d", listing.ID)

	// Pending listings are not searchable yet
	w = s.do(t, http.MethodGet, "/api/listings?location=TAMPINES", nil)
	var found []models.Listing
	decode(t, w, &found)
	assert.Empty(t, found)

	w = s.do(t, http.MethodPost, path+"/approve", nil)
	require.Equal(t, http.StatusOK, w.Code)
	select {
	case ev := <-approved:
		assert.Equal(t, "N-1", ev.Listing.Reference)
		assert.Equal(t, "approved", ev.Action)
	case <-time.After(time.Second):
		t.Fatal("approval was not published")
	}

	w = s.do(t, http.MethodPost, path+"/approve", nil)
	assert.Equal(t, http.StatusConflict, w.Code)

	w = s.do(t, http.MethodGet, "/api/listings?location=TAMPINES&unit_type=EXECUTIVE", nil)
	decode(t, w, &found)
	assert.Equal(t, []string{"N-1"}, refs(found))

	w = s.do(t, http.MethodPut, path, gin.H{"price": 700000, "unit_type": "5 room"})
	require.Equal(t, http.StatusOK, w.Code)
	decode(t, w, &listing)
	assert.Equal(t, 700000.0, listing.Price)
	assert.Equal(t, "5 ROOM", listing.UnitType)
	assert.Equal(t, 5, listing.Bedrooms)

	w = s.do(t, http.MethodPut, path, gin.H{"price": -1})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = s.do(t, http.MethodPost, path+"/reject", nil)
	require.Equal(t, http.StatusOK, w.Code)
	decode(t, w, &listing)
	assert.Equal(t, models.StatusRejected, listing.Status)

	w = s.do(t, http.MethodDelete, path, nil)
	assert.Equal(t, http.StatusNoContent, w.Code)
	w = s.do(t, http.MethodGet, path, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestCreateListingValidation(t *testing.T) {
	s := newTestServer(t)

	tests := []struct {
		name   string
		mutate func(gin.H)
	}{
		{name: "Missing reference", mutate: func(b gin.H) { delete(b, "reference") }},
		{name: "Unknown town", mutate: func(b gin.H) { b["location"] = "ATLANTIS" }},
		{name: "Unknown unit type", mutate: func(b gin.H) { b["unit_type"] = "PENTHOUSE" }},
		{name: "Zero price", mutate: func(b gin.H) { b["price"] = 0 }},
		{name: "Bad latitude", mutate: func(b gin.H) { b["latitude"] = 91.5 }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			body := newListingBody("V-1")
			tt.mutate(body)
			w := s.do(t, http.MethodPost, "/api/listings", body)
			assert.Equal(t, http.StatusBadRequest, w.Code)
		})
	}
}

func TestListingInvalidID(t *testing.T) {
	s := newTestServer(t)

	w := s.do(t, http.MethodGet, "/api/listings/abc", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	w = s.do(t, http.MethodPost, "/api/listings/0/approve", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	w = s.do(t, http.MethodPost, "/api/listings/999/approve", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestImportListings(t *testing.T) {
	s := newTestServer(t)

	rows := make([]gin.H, 3)
	for i := range rows {
		rows[i] = newListingBody(fmt.Sprintf("IMP-%d", i))
	}
	rows[0]["status"] = models.StatusApproved

	w := s.do(t, http.MethodPost, "/api/listings/import", gin.H{"listings": rows})
	require.Equal(t, http.StatusAccepted, w.Code)
	assert.JSONEq(t, `{"queued":3,"queued_batches":2}`, w.Body.String())
	assert.Equal(t, 2, s.queue.Len())

	rows[1]["status"] = "archived"
	w = s.do(t, http.MethodPost, "/api/listings/import", gin.H{"listings": rows})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = s.do(t, http.MethodPost, "/api/listings/import", gin.H{"listings": []gin.H{}})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestImportListingsChecksBedroomCode(t *testing.T) {
	s := newTestServer(t)

	row := newListingBody("IMP-B")
	row["bedrooms"] = 6
	w := s.do(t, http.MethodPost, "/api/listings/import", gin.H{"listings": []gin.H{row}})
	require.Equal(t, http.StatusAccepted, w.Code)

	// An executive flat exported with the 4 ROOM code
	row["bedrooms"] = 4
	w = s.do(t, http.MethodPost, "/api/listings/import", gin.H{"listings": []gin.H{row}})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "bedroom code 4 is 4 ROOM, not EXECUTIVE")

	row["bedrooms"] = 9
	w = s.do(t, http.MethodPost, "/api/listings/import", gin.H{"listings": []gin.H{row}})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "unknown bedroom code 9")

	assert.Equal(t, 1, s.queue.Len())
}

func TestImportListingsQueueFull(t *testing.T) {
	s := newTestServer(t)

	rows := make([]gin.H, 10)
	for i := range rows {
		rows[i] = newListingBody(fmt.Sprintf("IMP-%d", i))
	}

	// Five batches of two against a queue holding four
	w := s.do(t, http.MethodPost, "/api/listings/import", gin.H{"listings": rows})
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	assert.JSONEq(t, `{"error":"queue is full","queued":8,"queued_batches":4}`, w.Body.String())
}

func TestStatsAndExtent(t *testing.T) {
	s := newTestServer(t)
	s.seed(t)

	w := s.do(t, http.MethodGet, "/api/stats", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var stats []models.LocationStats
	decode(t, w, &stats)
	require.Len(t, stats, 2)
	assert.Equal(t, "BEDOK", stats[0].Location)
	assert.Equal(t, 1, stats[0].ListingCount)

	w = s.do(t, http.MethodGet, "/api/stats?location=tampines", nil)
	decode(t, w, &stats)
	require.Len(t, stats, 1)
	assert.Equal(t, 3, stats[0].ListingCount)
	assert.Equal(t, 450000.0, stats[0].MedianPrice)

	w = s.do(t, http.MethodGet, "/api/towns/atlantis/extent", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = s.do(t, http.MethodGet, "/api/towns/tampines/extent", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var fc struct {
		Type     string `json:"type"`
		Features []struct {
			Properties map[string]interface{} `json:"properties"`
		} `json:"features"`
	}
	decode(t, w, &fc)
	assert.Equal(t, "FeatureCollection", fc.Type)
	// one located listing, the town center and the bound around the listing
	assert.Len(t, fc.Features, 3)
}
