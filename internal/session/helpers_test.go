package session

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/Sundussheikhdev/sync-board-BE/internal/proto"
	"github.com/Sundussheikhdev/sync-board-BE/internal/store"
	"github.com/Sundussheikhdev/sync-board-BE/internal/store/sqlite"
)

// fakeConn records what the manager sends and how it closes the connection.
type fakeConn struct {
	name     string
	sent     []proto.Outbound
	closed   bool
	code     int
	reason   string
	failSend bool
}

func (c *fakeConn) Send(data []byte) error {
	if c.failSend {
		return errors.New("write on broken pipe")
	}
	var out proto.Outbound
	if err := json.Unmarshal(data, &out); err != nil {
		return err
	}
	c.sent = append(c.sent, out)
	return nil
}

func (c *fakeConn) Close(code int, reason string) error {
	c.closed = true
	c.code = code
	c.reason = reason
	return nil
}

// sentTypes returns the message types delivered to the connection, in order.
func (c *fakeConn) sentTypes() []string {
	types := make([]string, 0, len(c.sent))
	for _, out := range c.sent {
		types = append(types, out.Type)
	}
	return types
}

func (c *fakeConn) received(msgType string) bool {
	for _, out := range c.sent {
		if out.Type == msgType {
			return true
		}
	}
	return false
}

func (c *fakeConn) countOf(msgType string) int {
	n := 0
	for _, out := range c.sent {
		if out.Type == msgType {
			n++
		}
	}
	return n
}

// fakeClock drives the manager's time source in tests.
type fakeClock struct {
	t time.Time
}

func (c *fakeClock) Now() time.Time { return c.t }

func (c *fakeClock) Advance(d time.Duration) { c.t = c.t.Add(d) }

func newTestManager(t *testing.T) (*Manager, store.Store, *fakeClock) {
	t.Helper()

	st, err := sqlite.New(":memory:")
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { st.Close() })

	logger := zerolog.Nop()
	m := NewManager(st, &logger, DefaultOptions())

	clock := &fakeClock{t: time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)}
	m.now = clock.Now
	return m, st, clock
}

func createRoom(t *testing.T, st store.Store, roomID string) {
	t.Helper()
	if _, err := st.CreateRoom(context.Background(), roomID, "tester"); err != nil {
		t.Fatalf("create room %s: %v", roomID, err)
	}
}

func mustJoin(t *testing.T, m *Manager, conn Conn, roomID, name string) *Identity {
	t.Helper()
	id, err := m.Join(context.Background(), conn, roomID, name)
	if err != nil {
		t.Fatalf("join %s as %q: %v", roomID, name, err)
	}
	return id
}
