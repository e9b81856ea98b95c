package http

import (
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/Sundussheikhdev/sync-board-BE/internal/session"
	"github.com/Sundussheikhdev/sync-board-BE/internal/store"
)

// RoomHandlers provides HTTP handlers for room management endpoints.
type RoomHandlers struct {
	store        store.Store
	mgr          *session.Manager
	messageLimit int
	log          *zerolog.Logger
}

// NewRoomHandlers creates a new room handlers instance.
func NewRoomHandlers(st store.Store, mgr *session.Manager, messageLimit int, logger *zerolog.Logger) *RoomHandlers {
	return &RoomHandlers{
		store:        st,
		mgr:          mgr,
		messageLimit: messageLimit,
		log:          logger,
	}
}

// CreateRoomRequest represents the create room request body.
type CreateRoomRequest struct {
	RoomID    string `json:"room_id" binding:"required,min=1,max=64"`
	CreatedBy string `json:"created_by"`
}

// RoomResponse represents a room in API responses.
type RoomResponse struct {
	RoomID       string `json:"room_id"`
	CreatedBy    string `json:"created_by,omitempty"`
	CreatedAt    string `json:"created_at"`
	LastActivity string `json:"last_activity"`
	UserCount    int    `json:"user_count"`
	ActiveConns  int    `json:"active_connections"`
}

// MessageResponse represents a chat message in API responses.
type MessageResponse struct {
	ID        int64   `json:"id"`
	UserID    string  `json:"user_id"`
	UserName  string  `json:"user_name"`
	Message   string  `json:"message"`
	FileURL   *string `json:"file_url,omitempty"`
	FileName  *string `json:"file_name,omitempty"`
	FileType  *string `json:"file_type,omitempty"`
	CreatedAt string  `json:"created_at"`
}

// CreateRoom handles room creation.
// POST /api/rooms
func (h *RoomHandlers) CreateRoom(c *gin.Context) {
	var req CreateRoomRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.log.Debug().Err(err).Msg("invalid create room request")
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid request body"})
		return
	}

	room, err := h.store.CreateRoom(c.Request.Context(), req.RoomID, req.CreatedBy)
	if err != nil {
		if strings.Contains(err.Error(), "UNIQUE") {
			c.JSON(http.StatusConflict, ErrorResponse{Error: "room already exists"})
			return
		}
		h.log.Error().Err(err).Str("room", req.RoomID).Msg("failed to create room")
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "internal server error"})
		return
	}

	h.log.Info().Str("room", room.ID).Str("created_by", room.CreatedBy).Msg("room created")
	c.JSON(http.StatusCreated, h.roomResponse(room))
}

// ListRooms handles listing active rooms.
// GET /api/rooms
func (h *RoomHandlers) ListRooms(c *gin.Context) {
	rooms, err := h.store.ListRooms(c.Request.Context())
	if err != nil {
		h.log.Error().Err(err).Msg("failed to list rooms")
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "internal server error"})
		return
	}

	response := make([]RoomResponse, 0, len(rooms))
	for _, room := range rooms {
		response = append(response, h.roomResponse(room))
	}
	c.JSON(http.StatusOK, response)
}

// RoomInfo handles the live room snapshot.
// GET /api/rooms/:room_id/info
func (h *RoomHandlers) RoomInfo(c *gin.Context) {
	roomID := c.Param("room_id")

	room, err := h.store.GetRoom(c.Request.Context(), roomID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			c.JSON(http.StatusNotFound, ErrorResponse{Error: "room not found"})
			return
		}
		h.log.Error().Err(err).Str("room", roomID).Msg("failed to load room")
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "internal server error"})
		return
	}

	info := h.mgr.RoomInfo(c.Request.Context(), roomID)
	c.JSON(http.StatusOK, gin.H{
		"room":  h.roomResponse(room),
		"users": info.Users,
		"count": info.Count,
	})
}

// RoomUsers handles listing the live roster for a room.
// GET /api/rooms/:room_id/users
func (h *RoomHandlers) RoomUsers(c *gin.Context) {
	roomID := c.Param("room_id")
	info := h.mgr.RoomInfo(c.Request.Context(), roomID)
	c.JSON(http.StatusOK, gin.H{
		"room_id": roomID,
		"users":   info.Users,
		"count":   info.Count,
	})
}

// RoomMessages handles the chat history for a room.
// GET /api/rooms/:room_id/messages?limit=N
func (h *RoomHandlers) RoomMessages(c *gin.Context) {
	roomID := c.Param("room_id")

	limit := h.messageLimit
	if raw := c.Query("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 1 {
			c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid limit"})
			return
		}
		if parsed < limit {
			limit = parsed
		}
	}

	messages, err := h.store.RecentMessages(c.Request.Context(), roomID, limit)
	if err != nil {
		h.log.Error().Err(err).Str("room", roomID).Msg("failed to load messages")
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "internal server error"})
		return
	}

	response := make([]MessageResponse, 0, len(messages))
	for _, msg := range messages {
		response = append(response, MessageResponse{
			ID:        msg.ID,
			UserID:    msg.UserID,
			UserName:  msg.UserName,
			Message:   msg.Body,
			FileURL:   msg.FileURL,
			FileName:  msg.FileName,
			FileType:  msg.FileType,
			CreatedAt: msg.CreatedAt.Format(time.RFC3339Nano),
		})
	}
	c.JSON(http.StatusOK, gin.H{"room_id": roomID, "messages": response})
}

func (h *RoomHandlers) roomResponse(room *store.Room) RoomResponse {
	return RoomResponse{
		RoomID:       room.ID,
		CreatedBy:    room.CreatedBy,
		CreatedAt:    room.CreatedAt.Format(time.RFC3339Nano),
		LastActivity: room.LastActivity.Format(time.RFC3339Nano),
		UserCount:    room.UserCount,
		ActiveConns:  h.mgr.Count(room.ID),
	}
}
