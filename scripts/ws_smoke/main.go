package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"net/url"
	"os"
	"time"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"

	"github.com/Sundussheikhdev/sync-board-BE/internal/proto"
)

func main() {
	if err := run(); err != nil {
		log.Printf("ws_smoke: %v", err)
		os.Exit(1)
	}
}

func run() error {
	addr := flag.String("addr", "ws://localhost:8080", "server base address")
	user := flag.String("user", "smoke-tester", "display name to join with")
	room := flag.String("room", "general", "room id")
	text := flag.String("text", "hello from smoke test", "chat message to send")
	timeout := flag.Duration("timeout", 5*time.Second, "total timeout for the run")
	flag.Parse()

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	target := *addr + "/ws/" + url.PathEscape(*room) + "?user_name=" + url.QueryEscape(*user)
	conn, _, err := websocket.Dial(ctx, target, nil)
	if err != nil {
		return fmt.Errorf("dial: %w", err)
	}
	defer conn.Close(websocket.StatusNormalClosure, "bye")

	// The server greets every joiner with room_info.
	var greeting proto.Outbound
	if err := wsjson.Read(ctx, conn, &greeting); err != nil {
		return fmt.Errorf("read greeting: %w", err)
	}
	fmt.Printf("greeting: type=%s ts=%s\n", greeting.Type, greeting.Timestamp)

	chatPayload, err := json.Marshal(proto.ChatData{UserName: *user, Message: *text})
	if err != nil {
		return fmt.Errorf("marshal chat: %w", err)
	}
	if err := wsjson.Write(ctx, conn, proto.Inbound{Type: proto.InboundTypeChat, Data: chatPayload}); err != nil {
		return fmt.Errorf("send chat: %w", err)
	}

	if err := wsjson.Write(ctx, conn, proto.Inbound{Type: proto.InboundTypeHeartbeat}); err != nil {
		return fmt.Errorf("send heartbeat: %w", err)
	}

	for {
		var out proto.Outbound
		if err := wsjson.Read(ctx, conn, &out); err != nil {
			return fmt.Errorf("read: %w", err)
		}
		fmt.Printf("received: type=%s ts=%s\n", out.Type, out.Timestamp)
		if out.Type == proto.OutboundTypeHeartbeatResponse {
			return nil
		}
	}
}
