package http

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/Sundussheikhdev/sync-board-BE/internal/session"
	"github.com/Sundussheikhdev/sync-board-BE/internal/store"
)

// UserHandlers provides HTTP handlers for name availability and the global
// user listing.
type UserHandlers struct {
	store store.Store
	mgr   *session.Manager
	log   *zerolog.Logger
}

// NewUserHandlers creates a new user handlers instance.
func NewUserHandlers(st store.Store, mgr *session.Manager, logger *zerolog.Logger) *UserHandlers {
	return &UserHandlers{
		store: st,
		mgr:   mgr,
		log:   logger,
	}
}

// CheckNameRequest represents the name availability request body.
type CheckNameRequest struct {
	Name string `json:"name" binding:"required,min=1,max=64"`
}

// CheckNameResponse represents the name availability response body.
type CheckNameResponse struct {
	Name      string `json:"name"`
	Available bool   `json:"available"`
}

// GlobalNameResponse represents a registered name claim.
type GlobalNameResponse struct {
	Name     string `json:"name"`
	RoomID   string `json:"room_id"`
	IsOnline bool   `json:"is_online"`
	LastSeen string `json:"last_seen"`
}

// CheckName handles pre-join name availability probes.
// POST /api/users/check
func (h *UserHandlers) CheckName(c *gin.Context) {
	var req CheckNameRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.log.Debug().Err(err).Msg("invalid check name request")
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid request body"})
		return
	}

	// Guest-style names are never claimable, so they are never "available".
	if session.IsGuestName(req.Name) {
		c.JSON(http.StatusOK, CheckNameResponse{Name: req.Name, Available: false})
		return
	}

	available, err := h.store.IsNameAvailable(c.Request.Context(), req.Name, "")
	if err != nil {
		h.log.Error().Err(err).Str("name", req.Name).Msg("failed to check name")
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "internal server error"})
		return
	}

	c.JSON(http.StatusOK, CheckNameResponse{Name: req.Name, Available: available})
}

// ListActive handles listing name claims with current online state.
// GET /api/users
func (h *UserHandlers) ListActive(c *gin.Context) {
	claims, err := h.store.ListNames(c.Request.Context())
	if err != nil {
		h.log.Error().Err(err).Msg("failed to list names")
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "internal server error"})
		return
	}

	response := make([]GlobalNameResponse, 0, len(claims))
	for _, claim := range claims {
		response = append(response, GlobalNameResponse{
			Name:     claim.Name,
			RoomID:   claim.RoomID,
			IsOnline: claim.IsOnline,
			LastSeen: claim.LastSeen.Format(time.RFC3339Nano),
		})
	}

	c.JSON(http.StatusOK, gin.H{
		"users":        response,
		"active_names": h.mgr.ActiveNames(),
	})
}
