package http

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/Sundussheikhdev/sync-board-BE/internal/proto"
	"github.com/Sundussheikhdev/sync-board-BE/internal/session"
)

const wsWriteTimeout = 10 * time.Second

// WSHandler upgrades HTTP connections and bridges them to the session
// manager.
type WSHandler struct {
	mgr     *session.Manager
	origins []string
	log     *zerolog.Logger
}

// NewWSHandler builds a new WebSocket handler.
func NewWSHandler(mgr *session.Manager, origins []string, logger *zerolog.Logger) *WSHandler {
	return &WSHandler{mgr: mgr, origins: origins, log: logger}
}

// Serve handles GET /ws/:room_id?user_name=...
func (h *WSHandler) Serve(c *gin.Context) {
	roomID := c.Param("room_id")
	userName := c.Query("user_name")

	opts := &websocket.AcceptOptions{}
	for _, origin := range h.origins {
		if origin == "*" {
			opts.InsecureSkipVerify = true
			opts.OriginPatterns = nil
			break
		}
		opts.OriginPatterns = append(opts.OriginPatterns, origin)
	}

	conn, err := websocket.Accept(c.Writer, c.Request, opts)
	if err != nil {
		h.log.Error().Err(err).Str("room", roomID).Msg("ws accept error")
		return
	}

	ctx := c.Request.Context()
	wc := &wsConn{conn: conn, writeTimeout: wsWriteTimeout}

	identity, err := h.mgr.Join(ctx, wc, roomID, userName)
	if err != nil {
		var reject *session.RejectError
		if errors.As(err, &reject) {
			h.log.Info().Str("room", roomID).Str("name", userName).Int("code", reject.Code).Msg("ws join rejected")
			_ = conn.Close(websocket.StatusCode(reject.Code), reject.Reason)
			return
		}
		h.log.Error().Err(err).Str("room", roomID).Msg("ws join failed")
		_ = conn.Close(websocket.StatusInternalError, "join failed")
		return
	}

	defer h.mgr.Disconnect(context.WithoutCancel(ctx), wc, roomID)
	defer conn.Close(websocket.StatusNormalClosure, "closing")

	h.readLoop(ctx, conn, wc, identity, roomID)
}

func (h *WSHandler) readLoop(ctx context.Context, conn *websocket.Conn, wc *wsConn, identity *session.Identity, roomID string) {
	for {
		var inbound proto.Inbound
		if err := wsjson.Read(ctx, conn, &inbound); err != nil {
			status := websocket.CloseStatus(err)
			if status == websocket.StatusNormalClosure || status == websocket.StatusGoingAway {
				return
			}
			h.log.Debug().Err(err).Str("room", roomID).Str("user", identity.Name).Msg("ws read ended")
			return
		}

		switch inbound.Type {
		case proto.InboundTypeDraw:
			h.mgr.Draw(ctx, wc, inbound.Data)
		case proto.InboundTypeStrokeStart:
			h.mgr.StrokeStart(ctx, wc, inbound.Data)
		case proto.InboundTypeStrokePoint:
			var data proto.StrokePointData
			if err := json.Unmarshal(inbound.Data, &data); err != nil {
				h.log.Debug().Err(err).Str("room", roomID).Msg("malformed stroke_point")
				continue
			}
			h.mgr.StrokePoint(ctx, wc, data.StrokeID, data.Point)
		case proto.InboundTypeStrokeEnd:
			var data proto.StrokeEndData
			if err := json.Unmarshal(inbound.Data, &data); err != nil {
				h.log.Debug().Err(err).Str("room", roomID).Msg("malformed stroke_end")
				continue
			}
			h.mgr.StrokeEnd(ctx, wc, data.StrokeID)
		case proto.InboundTypeChat:
			h.mgr.Chat(ctx, wc, inbound.Data)
		case proto.InboundTypeClearCanvas:
			h.mgr.ClearCanvas(ctx, wc)
		case proto.InboundTypeNameChange:
			var data proto.NameChangeData
			if err := json.Unmarshal(inbound.Data, &data); err != nil {
				h.log.Debug().Err(err).Str("room", roomID).Msg("malformed name_change")
				continue
			}
			h.mgr.Rename(ctx, wc, data.NewName)
		case proto.InboundTypeRoomInfo:
			h.mgr.SendRoomInfo(ctx, wc, roomID)
		case proto.InboundTypeHeartbeat:
			h.mgr.Heartbeat(wc)
		case proto.InboundTypeJoin:
			// Admission already happened at upgrade time.
		case proto.InboundTypeLeave:
			return
		default:
			h.log.Debug().Str("type", inbound.Type).Str("room", roomID).Msg("unknown inbound type")
		}
	}
}

// wsConn adapts a websocket connection to the session layer. Send carries its
// own deadline so one slow client cannot stall a broadcast pass forever.
type wsConn struct {
	conn         *websocket.Conn
	writeTimeout time.Duration
}

func (c *wsConn) Send(data []byte) error {
	ctx, cancel := context.WithTimeout(context.Background(), c.writeTimeout)
	defer cancel()
	return c.conn.Write(ctx, websocket.MessageText, data)
}

func (c *wsConn) Close(code int, reason string) error {
	return c.conn.Close(websocket.StatusCode(code), reason)
}
