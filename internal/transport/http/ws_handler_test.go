package http

import (
	"context"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"

	"github.com/Sundussheikhdev/sync-board-BE/internal/proto"
	"github.com/Sundussheikhdev/sync-board-BE/internal/session"
)

func dialWS(t *testing.T, ctx context.Context, baseURL, roomID, userName string) *websocket.Conn {
	t.Helper()

	url := baseURL + "/ws/" + roomID
	if userName != "" {
		url += "?user_name=" + userName
	}
	conn, _, err := websocket.Dial(ctx, url, nil)
	if err != nil {
		t.Fatalf("dial %s: %v", url, err)
	}
	return conn
}

// readUntil reads messages until one of the wanted type arrives.
func readUntil(t *testing.T, ctx context.Context, conn *websocket.Conn, msgType string) proto.Outbound {
	t.Helper()

	for {
		var out proto.Outbound
		if err := wsjson.Read(ctx, conn, &out); err != nil {
			t.Fatalf("waiting for %s: %v", msgType, err)
		}
		if out.Type == msgType {
			return out
		}
	}
}

func TestWSJoinReceivesRoomInfo(t *testing.T) {
	engine, st, _ := createTestRouter(t)
	seedRoom(t, st, "board")

	srv := httptest.NewServer(engine)
	defer srv.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	conn := dialWS(t, ctx, srv.URL, "board", "alice")
	defer conn.Close(websocket.StatusNormalClosure, "done")

	info := readUntil(t, ctx, conn, proto.OutboundTypeRoomInfo)
	if info.Timestamp == "" {
		t.Fatal("room_info missing timestamp")
	}
}

func TestWSJoinUnknownRoomClosedWithCode(t *testing.T) {
	engine, _, _ := createTestRouter(t)

	srv := httptest.NewServer(engine)
	defer srv.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	conn := dialWS(t, ctx, srv.URL, "ghost", "alice")
	defer conn.Close(websocket.StatusNormalClosure, "done")

	var out proto.Outbound
	err := wsjson.Read(ctx, conn, &out)
	if err == nil {
		t.Fatal("expected close, got a message")
	}
	if status := websocket.CloseStatus(err); status != websocket.StatusCode(session.CodeRoomNotFound) {
		t.Fatalf("close status = %d, want %d", status, session.CodeRoomNotFound)
	}
}

func TestWSDuplicateNameClosedWithCode(t *testing.T) {
	engine, st, _ := createTestRouter(t)
	seedRoom(t, st, "board")

	srv := httptest.NewServer(engine)
	defer srv.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	first := dialWS(t, ctx, srv.URL, "board", "alice")
	defer first.Close(websocket.StatusNormalClosure, "done")
	readUntil(t, ctx, first, proto.OutboundTypeRoomInfo)

	// Same name from a different room trips the global uniqueness check.
	seedRoom(t, st, "other")
	second := dialWS(t, ctx, srv.URL, "other", "alice")
	defer second.Close(websocket.StatusNormalClosure, "done")

	var out proto.Outbound
	err := wsjson.Read(ctx, second, &out)
	if err == nil {
		t.Fatal("expected close, got a message")
	}
	if status := websocket.CloseStatus(err); status != websocket.StatusCode(session.CodeNameTaken) {
		t.Fatalf("close status = %d, want %d", status, session.CodeNameTaken)
	}
}

func TestWSHeartbeatEcho(t *testing.T) {
	engine, st, _ := createTestRouter(t)
	seedRoom(t, st, "board")

	srv := httptest.NewServer(engine)
	defer srv.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	conn := dialWS(t, ctx, srv.URL, "board", "alice")
	defer conn.Close(websocket.StatusNormalClosure, "done")
	readUntil(t, ctx, conn, proto.OutboundTypeRoomInfo)

	if err := wsjson.Write(ctx, conn, proto.Inbound{Type: proto.InboundTypeHeartbeat}); err != nil {
		t.Fatalf("write heartbeat: %v", err)
	}
	readUntil(t, ctx, conn, proto.OutboundTypeHeartbeatResponse)
}

func TestWSChatFanOut(t *testing.T) {
	engine, st, _ := createTestRouter(t)
	seedRoom(t, st, "board")

	srv := httptest.NewServer(engine)
	defer srv.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	alice := dialWS(t, ctx, srv.URL, "board", "alice")
	defer alice.Close(websocket.StatusNormalClosure, "done")
	readUntil(t, ctx, alice, proto.OutboundTypeRoomInfo)

	bob := dialWS(t, ctx, srv.URL, "board", "bob")
	defer bob.Close(websocket.StatusNormalClosure, "done")
	readUntil(t, ctx, bob, proto.OutboundTypeRoomInfo)

	// Wait until alice sees bob before sending, so fan-out is settled.
	readUntil(t, ctx, alice, proto.OutboundTypeUserJoined)

	msg := map[string]any{
		"type": proto.InboundTypeChat,
		"data": map[string]any{"userId": "x", "userName": "bob", "message": "hi"},
	}
	if err := wsjson.Write(ctx, bob, msg); err != nil {
		t.Fatalf("write chat: %v", err)
	}

	chat := readUntil(t, ctx, alice, proto.OutboundTypeChat)
	data, ok := chat.Data.(map[string]any)
	if !ok {
		t.Fatalf("chat data type %T", chat.Data)
	}
	if data["message"] != "hi" || data["userName"] != "bob" {
		t.Fatalf("unexpected chat payload: %v", data)
	}
}
