package api

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"flatfinder/server/internal/search"
)

type sessionResponse struct {
	ID string `json:"id"`
	search.Snapshot
}

func (h *Handler) CreateSession(c *gin.Context) {
	var req CreateSessionRequest
	// The body is optional, an empty one opens an anonymous session
	if err := c.ShouldBindJSON(&req); err != nil && !errors.Is(err, io.EOF) {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	id, s, err := h.sessions.Create(c.Request.Context(), req.UserID)
	if err != nil {
		h.respondError(c, err, "Failed to create session")
		return
	}

	c.JSON(http.StatusCreated, sessionResponse{ID: id, Snapshot: s.Snapshot()})
}

func (h *Handler) GetSession(c *gin.Context) {
	id := c.Param("id")
	s, err := h.sessions.Get(id)
	if err != nil {
		h.respondError(c, err, "Failed to get session")
		return
	}

	c.JSON(http.StatusOK, sessionResponse{ID: id, Snapshot: s.Snapshot()})
}

// UpdateCriteria applies every field of the body. Numbers are accepted for
// the bounds and null clears a field.
func (h *Handler) UpdateCriteria(c *gin.Context) {
	id := c.Param("id")
	s, err := h.sessions.Get(id)
	if err != nil {
		h.respondError(c, err, "Failed to get session")
		return
	}

	var body map[string]interface{}
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	values := make(map[search.Field]string, len(body))
	for name, raw := range body {
		f, err := search.ParseField(name)
		if err != nil {
			h.respondError(c, err, "Invalid criteria")
			return
		}
		v, err := criterionValue(raw)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": fmt.Sprintf("%s: %v", name, err)})
			return
		}
		values[f] = v
	}

	if err := s.SetFields(values); err != nil {
		h.respondError(c, err, "Failed to update criteria")
		return
	}

	c.JSON(http.StatusOK, sessionResponse{ID: id, Snapshot: s.Snapshot()})
}

func criterionValue(raw interface{}) (string, error) {
	switch v := raw.(type) {
	case nil:
		return "", nil
	case string:
		return v, nil
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64), nil
	default:
		return "", fmt.Errorf("unsupported value %v", raw)
	}
}

func (h *Handler) SetRecommendation(c *gin.Context) {
	id := c.Param("id")
	s, err := h.sessions.Get(id)
	if err != nil {
		h.respondError(c, err, "Failed to get session")
		return
	}

	var req RecommendationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if err := s.SetRecommendation(*req.Enabled); err != nil {
		h.respondError(c, err, "Failed to toggle recommendations")
		return
	}

	c.JSON(http.StatusOK, sessionResponse{ID: id, Snapshot: s.Snapshot()})
}

func (h *Handler) ResetSession(c *gin.Context) {
	id := c.Param("id")
	s, err := h.sessions.Get(id)
	if err != nil {
		h.respondError(c, err, "Failed to get session")
		return
	}

	s.Reset()
	c.JSON(http.StatusOK, sessionResponse{ID: id, Snapshot: s.Snapshot()})
}

// SearchSession runs the session's query. A run overtaken by a newer search
// of the same session answers 409 and leaves the newer results in place.
func (h *Handler) SearchSession(c *gin.Context) {
	listings, err := h.sessions.Search(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.respondError(c, err, "Failed to search listings")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"results": listings,
		"count":   len(listings),
	})
}

func (h *Handler) DeleteSession(c *gin.Context) {
	if err := h.sessions.Delete(c.Param("id")); err != nil {
		h.respondError(c, err, "Failed to delete session")
		return
	}
	c.Status(http.StatusNoContent)
}
