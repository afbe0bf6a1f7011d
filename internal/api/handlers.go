package api

import (
	"errors"
	"net/http"
	"os"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"flatfinder/server/config"
	"flatfinder/server/internal/database"
	"flatfinder/server/internal/events"
	"flatfinder/server/internal/geometry"
	"flatfinder/server/internal/models"
	"flatfinder/server/internal/queue"
	"flatfinder/server/internal/search"
	"flatfinder/server/internal/session"
)

type Handler struct {
	db           *database.Database
	catalog      *config.Catalog
	builder      *search.QueryBuilder
	sessions     *session.Manager
	queue        *queue.ListingQueue
	bus          *events.Bus
	maxBatchSize int
	logger       *logrus.Logger
}

// Dependencies groups the services the handlers work with
type Dependencies struct {
	DB           *database.Database
	Builder      *search.QueryBuilder
	Sessions     *session.Manager
	Queue        *queue.ListingQueue
	Bus          *events.Bus
	MaxBatchSize int
}

func NewHandler(deps Dependencies, logger *logrus.Logger) *Handler {
	if logger == nil {
		logger = logrus.New()
		logger.SetFormatter(&logrus.JSONFormatter{})
		logger.SetOutput(os.Stdout)
	}
	if deps.MaxBatchSize <= 0 {
		deps.MaxBatchSize = 100
	}

	return &Handler{
		db:           deps.DB,
		catalog:      deps.Builder.Catalog(),
		builder:      deps.Builder,
		sessions:     deps.Sessions,
		queue:        deps.Queue,
		bus:          deps.Bus,
		maxBatchSize: deps.MaxBatchSize,
		logger:       logger,
	}
}

// statusFor maps domain errors to HTTP status codes
func statusFor(err error) int {
	switch {
	case errors.Is(err, session.ErrSessionNotFound), errors.Is(err, models.ErrListingNotFound):
		return http.StatusNotFound
	case errors.Is(err, search.ErrUnknownField), errors.Is(err, models.ErrInvalidListing),
		errors.Is(err, models.ErrInvalidPreference):
		return http.StatusBadRequest
	case errors.Is(err, search.ErrNoPreference), errors.Is(err, search.ErrStaleResult),
		errors.Is(err, models.ErrInvalidTransition):
		return http.StatusConflict
	case errors.Is(err, search.ErrSearchFailed):
		return http.StatusBadGateway
	case errors.Is(err, queue.ErrQueueFull), errors.Is(err, queue.ErrQueueClosed):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// respondError writes err with its mapped status. Server side failures are
// logged and answered with message instead of the error text.
func (h *Handler) respondError(c *gin.Context, err error, message string) {
	status := statusFor(err)
	switch {
	case errors.Is(err, search.ErrSearchFailed):
		// The cause stays in the log, the client gets the retry hint
		c.JSON(status, gin.H{"error": search.ErrSearchFailed.Error()})
	case status >= http.StatusInternalServerError:
		h.logger.WithError(err).Error(message)
		c.JSON(status, gin.H{"error": message})
	default:
		c.JSON(status, gin.H{"error": err.Error()})
	}
}

func (h *Handler) publish(ev events.Event) {
	if h.bus == nil {
		return
	}
	if err := h.bus.Publish(ev); err != nil {
		h.logger.WithError(err).WithField("topic", ev.Topic).Warn("Failed to publish event")
	}
}

func (h *Handler) GetCatalog(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"all":        config.AllValue,
		"towns":      h.catalog.Towns(),
		"unit_types": h.catalog.UnitTypes(),
	})
}

func (h *Handler) GetStats(c *gin.Context) {
	location := c.Query("location")
	if location != "" {
		location = config.NormalizeName(location)
	}

	stats, err := h.db.ListingStats(c.Request.Context(), location)
	if err != nil {
		h.respondError(c, err, "Failed to get listing stats")
		return
	}

	c.JSON(http.StatusOK, stats)
}

func (h *Handler) GetTownExtent(c *gin.Context) {
	town, ok := h.catalog.Town(c.Param("town"))
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "Town not found"})
		return
	}

	listings, err := h.db.ListingsInLocation(c.Request.Context(), town.Name)
	if err != nil {
		h.respondError(c, err, "Failed to get town listings")
		return
	}

	c.JSON(http.StatusOK, geometry.TownExtent(town, listings))
}

func parseID(c *gin.Context) (int64, bool) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid listing id"})
		return 0, false
	}
	return id, true
}
