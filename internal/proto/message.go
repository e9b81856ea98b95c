package proto

import (
	"encoding/json"
	"time"
)

// Inbound is the envelope for messages coming from the client.
type Inbound struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data"`
}

// Inbound message types.
const (
	InboundTypeDraw        = "draw"
	InboundTypeStrokeStart = "stroke_start"
	InboundTypeStrokePoint = "stroke_point"
	InboundTypeStrokeEnd   = "stroke_end"
	InboundTypeChat        = "chat"
	InboundTypeJoin        = "join"
	InboundTypeLeave       = "leave"
	InboundTypeNameChange  = "name_change"
	InboundTypeRoomInfo    = "get_room_info"
	InboundTypeClearCanvas = "clear_canvas"
	InboundTypeHeartbeat   = "heartbeat"
)

// Outbound message types.
const (
	OutboundTypeDraw              = "draw"
	OutboundTypeStrokeStart       = "stroke_start"
	OutboundTypeStrokePoint       = "stroke_point"
	OutboundTypeStrokeEnd         = "stroke_end"
	OutboundTypeChat              = "chat"
	OutboundTypeUserJoined        = "user_joined"
	OutboundTypeUserLeft          = "user_left"
	OutboundTypeNameChange        = "name_change"
	OutboundTypeRoomInfo          = "room_info"
	OutboundTypeCanvasState       = "canvas_state"
	OutboundTypeClearCanvas       = "clear_canvas"
	OutboundTypeHeartbeatResponse = "heartbeat_response"
)

// Outbound is the envelope for messages sent to clients. Every broadcast
// carries the server-side timestamp of the event.
type Outbound struct {
	Type      string `json:"type"`
	Data      any    `json:"data,omitempty"`
	Timestamp string `json:"timestamp"`
}

// NewOutbound builds an outbound envelope stamped with the given time.
func NewOutbound(msgType string, data any, ts time.Time) Outbound {
	return Outbound{
		Type:      msgType,
		Data:      data,
		Timestamp: ts.Format(time.RFC3339Nano),
	}
}

// StrokePointData carries one appended point for an in-flight stroke.
type StrokePointData struct {
	StrokeID string          `json:"strokeId"`
	Point    json.RawMessage `json:"point"`
}

// StrokeEndData finalizes an in-flight stroke.
type StrokeEndData struct {
	StrokeID string `json:"strokeId"`
}

// NameChangeData is the inbound rename request.
type NameChangeData struct {
	NewName string `json:"new_name"`
}

// ChatData is the client-owned chat payload. The session layer persists the
// fields it understands and relays the whole object untouched.
type ChatData struct {
	UserID   string `json:"userId"`
	UserName string `json:"userName"`
	Message  string `json:"message"`
	FileURL  string `json:"fileUrl,omitempty"`
	FileName string `json:"fileName,omitempty"`
	FileType string `json:"fileType,omitempty"`
}

// UserEventData announces a join, leave, or rename to room peers.
type UserEventData struct {
	UserID    string `json:"user_id"`
	UserName  string `json:"user_name,omitempty"`
	OldName   string `json:"old_name,omitempty"`
	NewName   string `json:"new_name,omitempty"`
	Timestamp string `json:"timestamp"`
}

// RoomUserData is one roster entry in a room_info payload.
type RoomUserData struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	JoinedAt string `json:"joined_at"`
	IsOnline bool   `json:"is_online"`
}

// RoomInfoData is the room snapshot sent on join and on roster changes.
type RoomInfoData struct {
	RoomID string         `json:"room_id"`
	Users  []RoomUserData `json:"users"`
	Count  int            `json:"count"`
}

// CanvasStateData replays the full drawing log to a joining client.
type CanvasStateData struct {
	Drawings []map[string]any `json:"drawings"`
}
