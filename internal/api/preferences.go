package api

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"flatfinder/server/internal/events"
)

func (h *Handler) GetPreference(c *gin.Context) {
	pref, err := h.db.GetPreference(c.Request.Context(), c.Param("user_id"))
	if err != nil {
		h.respondError(c, err, "Failed to get preference")
		return
	}
	if pref == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "No saved preference"})
		return
	}

	c.JSON(http.StatusOK, pref)
}

// UpdatePreference saves a user's preference and tells their open sessions
func (h *Handler) UpdatePreference(c *gin.Context) {
	var req PreferenceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	pref := req.toPreference(c.Param("user_id"), h.catalog)
	if err := h.db.UpsertPreference(c.Request.Context(), pref); err != nil {
		h.respondError(c, err, "Failed to save preference")
		return
	}

	h.publish(events.Event{
		Topic:   events.TopicPreferenceUpdated,
		Payload: events.PreferenceUpdated{UserID: pref.UserID, Preference: pref.Clone()},
	})

	c.JSON(http.StatusOK, pref)
}

// DeletePreference removes a user's preference. Their recommended sessions
// fall back to manual mode.
func (h *Handler) DeletePreference(c *gin.Context) {
	userID := c.Param("user_id")
	if err := h.db.DeletePreference(c.Request.Context(), userID); err != nil {
		h.respondError(c, err, "Failed to delete preference")
		return
	}

	h.publish(events.Event{
		Topic:   events.TopicPreferenceUpdated,
		Payload: events.PreferenceUpdated{UserID: userID},
	})

	c.Status(http.StatusNoContent)
}
