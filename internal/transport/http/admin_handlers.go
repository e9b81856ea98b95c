package http

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/Sundussheikhdev/sync-board-BE/internal/session"
)

// AdminHandlers provides HTTP handlers for operational endpoints.
type AdminHandlers struct {
	mgr *session.Manager
	log *zerolog.Logger
}

// NewAdminHandlers creates a new admin handlers instance.
func NewAdminHandlers(mgr *session.Manager, logger *zerolog.Logger) *AdminHandlers {
	return &AdminHandlers{mgr: mgr, log: logger}
}

// TriggerCleanup runs the room sweep on demand. Rate limiting inside the
// manager may suppress the run; the response says which happened.
// POST /api/cleanup
func (h *AdminHandlers) TriggerCleanup(c *gin.Context) {
	ran := h.mgr.TriggerCleanup(c.Request.Context())
	if !ran {
		h.log.Debug().Msg("cleanup trigger suppressed by rate limit")
	}
	c.JSON(http.StatusOK, gin.H{"triggered": ran})
}

// CleanupStatus reports the pending cleanup schedule.
// GET /api/cleanup/status
func (h *AdminHandlers) CleanupStatus(c *gin.Context) {
	c.JSON(http.StatusOK, h.mgr.Status())
}

// PurgeRoom force-purges one room immediately.
// POST /api/cleanup/rooms/:room_id
func (h *AdminHandlers) PurgeRoom(c *gin.Context) {
	roomID := c.Param("room_id")
	h.mgr.PurgeRoom(c.Request.Context(), roomID)
	h.log.Info().Str("room", roomID).Msg("room purged via admin endpoint")
	c.JSON(http.StatusOK, gin.H{"room_id": roomID, "purged": true})
}
