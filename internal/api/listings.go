package api

import (
	"net/http"
	"sort"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"flatfinder/server/internal/events"
	"flatfinder/server/internal/models"
	"flatfinder/server/internal/search"
)

// SearchListings runs a one-off query built from the query string. Parameter
// names follow the session criteria, snake_case or camelCase.
func (h *Handler) SearchListings(c *gin.Context) {
	query := c.Request.URL.Query()
	names := make([]string, 0, len(query))
	for name := range query {
		names = append(names, name)
	}
	sort.Strings(names)

	criteria := search.DefaultCriteria()
	for _, name := range names {
		f, err := search.ParseField(name)
		if err != nil {
			h.respondError(c, err, "Invalid search parameter")
			return
		}
		criteria = criteria.With(f, query.Get(name))
	}

	listings, err := h.db.Search(c.Request.Context(), h.builder.Build(criteria))
	if err != nil {
		h.respondError(c, err, "Failed to search listings")
		return
	}

	c.JSON(http.StatusOK, listings)
}

// CreateListing stores a seller's listing for admin review
func (h *Handler) CreateListing(c *gin.Context) {
	var req ListingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	listing := req.toListing(h.catalog)
	if err := h.db.CreateListing(c.Request.Context(), listing); err != nil {
		h.respondError(c, err, "Failed to create listing")
		return
	}

	c.JSON(http.StatusCreated, listing)
}

// ImportListings queues listings for bulk upsert in batches of at most maxBatchSize
func (h *Handler) ImportListings(c *gin.Context) {
	var req ImportRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	listings := make([]*models.Listing, len(req.Listings))
	for i, row := range req.Listings {
		listing, err := row.toListing(h.catalog)
		if err != nil {
			h.respondError(c, err, "Invalid import row")
			return
		}
		listings[i] = listing
	}

	batches := 0
	for start := 0; start < len(listings); start += h.maxBatchSize {
		end := start + h.maxBatchSize
		if end > len(listings) {
			end = len(listings)
		}
		if err := h.queue.Push(listings[start:end]); err != nil {
			h.logger.WithError(err).WithField("queued_batches", batches).Warn("Import queue rejected batch")
			c.JSON(statusFor(err), gin.H{
				"error":          err.Error(),
				"queued_batches": batches,
				"queued":         start,
			})
			return
		}
		batches++
	}

	c.JSON(http.StatusAccepted, gin.H{
		"queued":         len(listings),
		"queued_batches": batches,
	})
}

func (h *Handler) GetListing(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}

	listing, err := h.db.GetListing(c.Request.Context(), id)
	if err != nil {
		h.respondError(c, err, "Failed to get listing")
		return
	}

	c.JSON(http.StatusOK, listing)
}

func (h *Handler) UpdateListing(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}

	var req ListingUpdateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	listing, err := h.db.UpdateListing(c.Request.Context(), id, req.toUpdate(h.catalog))
	if err != nil {
		h.respondError(c, err, "Failed to update listing")
		return
	}

	c.JSON(http.StatusOK, listing)
}

func (h *Handler) DeleteListing(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}

	if err := h.db.DeleteListing(c.Request.Context(), id); err != nil {
		h.respondError(c, err, "Failed to delete listing")
		return
	}

	c.Status(http.StatusNoContent)
}

func (h *Handler) ApproveListing(c *gin.Context) {
	h.setListingStatus(c, models.StatusApproved)
}

func (h *Handler) RejectListing(c *gin.Context) {
	h.setListingStatus(c, models.StatusRejected)
}

func (h *Handler) setListingStatus(c *gin.Context, status string) {
	id, ok := parseID(c)
	if !ok {
		return
	}

	listing, err := h.db.SetListingStatus(c.Request.Context(), id, status)
	if err != nil {
		h.respondError(c, err, "Failed to update listing status")
		return
	}

	h.logger.WithFields(logrus.Fields{
		"listing_id": listing.ID,
		"status":     listing.Status,
	}).Info("Listing status changed")

	if status == models.StatusApproved {
		h.publish(events.Event{
			Topic:   events.TopicListingApproved,
			Payload: events.ListingEvent{Listing: *listing, Action: "approved"},
		})
	}

	c.JSON(http.StatusOK, listing)
}
