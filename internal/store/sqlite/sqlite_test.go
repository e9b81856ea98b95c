package sqlite

import (
	"context"
	"testing"
	"time"

	"github.com/Sundussheikhdev/sync-board-BE/internal/store"
)

func newTestStore(t *testing.T) *SQLiteStore {
	t.Helper()

	s, err := New(":memory:")
	if err != nil {
		t.Fatalf("failed to create store: %v", err)
	}
	t.Cleanup(func() { s.Close() })

	return s
}

func TestRoomLifecycle(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	room, err := s.CreateRoom(ctx, "design-review", "alice")
	if err != nil {
		t.Fatalf("create room: %v", err)
	}
	if room.ID != "design-review" || !room.IsActive {
		t.Fatalf("unexpected room: %+v", room)
	}

	exists, err := s.RoomExists(ctx, "design-review")
	if err != nil || !exists {
		t.Fatalf("expected room to exist, got exists=%v err=%v", exists, err)
	}

	exists, err = s.RoomExists(ctx, "ghost")
	if err != nil || exists {
		t.Fatalf("expected ghost room to be absent, got exists=%v err=%v", exists, err)
	}

	if err := s.DeactivateAndPurge(ctx, "design-review"); err != nil {
		t.Fatalf("purge room: %v", err)
	}

	// A purged room no longer counts as existing for admission.
	exists, err = s.RoomExists(ctx, "design-review")
	if err != nil || exists {
		t.Fatalf("expected purged room inactive, got exists=%v err=%v", exists, err)
	}
}

func TestAddRemoveRoomUsers(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	if _, err := s.CreateRoom(ctx, "r1", "alice"); err != nil {
		t.Fatalf("create room: %v", err)
	}

	if err := s.AddUser(ctx, "r1", "u1", "alice"); err != nil {
		t.Fatalf("add user: %v", err)
	}
	if err := s.AddUser(ctx, "r1", "u2", "bob"); err != nil {
		t.Fatalf("add user: %v", err)
	}

	// Re-adding an existing user must not duplicate the roster entry.
	if err := s.AddUser(ctx, "r1", "u1", "alice"); err != nil {
		t.Fatalf("re-add user: %v", err)
	}

	users, err := s.UsersForRoom(ctx, "r1")
	if err != nil {
		t.Fatalf("users for room: %v", err)
	}
	if len(users) != 2 {
		t.Fatalf("expected 2 users, got %d", len(users))
	}

	room, err := s.GetRoom(ctx, "r1")
	if err != nil {
		t.Fatalf("get room: %v", err)
	}
	if room.UserCount != 2 {
		t.Fatalf("expected user_count 2, got %d", room.UserCount)
	}

	if err := s.RemoveUser(ctx, "r1", "u1"); err != nil {
		t.Fatalf("remove user: %v", err)
	}
	// Removing an absent user is a no-op, not an error, and must not
	// disturb the counter.
	if err := s.RemoveUser(ctx, "r1", "u1"); err != nil {
		t.Fatalf("remove absent user: %v", err)
	}

	room, err = s.GetRoom(ctx, "r1")
	if err != nil {
		t.Fatalf("get room: %v", err)
	}
	if room.UserCount != 1 {
		t.Fatalf("expected user_count 1, got %d", room.UserCount)
	}
}

func TestCanvasStateRoundTrip(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	if _, err := s.CreateRoom(ctx, "r1", ""); err != nil {
		t.Fatalf("create room: %v", err)
	}

	// No document yet: empty log, no error.
	drawings, err := s.GetCanvasState(ctx, "r1")
	if err != nil {
		t.Fatalf("get empty canvas: %v", err)
	}
	if len(drawings) != 0 {
		t.Fatalf("expected empty canvas, got %d entries", len(drawings))
	}

	saved := []store.Drawing{
		{"id": "s1", "color": "#000", "points": []any{map[string]any{"x": 1.0, "y": 2.0}}},
		{"tool": "rect", "x": 10.0, "y": 20.0},
	}
	if err := s.SaveCanvasState(ctx, "r1", saved); err != nil {
		t.Fatalf("save canvas: %v", err)
	}

	drawings, err = s.GetCanvasState(ctx, "r1")
	if err != nil {
		t.Fatalf("get canvas: %v", err)
	}
	if len(drawings) != 2 {
		t.Fatalf("expected 2 drawings, got %d", len(drawings))
	}
	if drawings[0]["id"] != "s1" || drawings[1]["tool"] != "rect" {
		t.Fatalf("drawings out of order: %+v", drawings)
	}

	// Clear replaces the document with an empty log.
	if err := s.SaveCanvasState(ctx, "r1", nil); err != nil {
		t.Fatalf("clear canvas: %v", err)
	}
	drawings, err = s.GetCanvasState(ctx, "r1")
	if err != nil || len(drawings) != 0 {
		t.Fatalf("expected cleared canvas, got %d entries err=%v", len(drawings), err)
	}
}

func TestMessagesChronologicalWithLimit(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	if _, err := s.CreateRoom(ctx, "r1", ""); err != nil {
		t.Fatalf("create room: %v", err)
	}

	for _, body := range []string{"first", "second", "third"} {
		msg := &store.Message{RoomID: "r1", UserID: "u1", UserName: "alice", Body: body}
		if err := s.SaveMessage(ctx, msg); err != nil {
			t.Fatalf("save message %q: %v", body, err)
		}
		if msg.ID == 0 {
			t.Fatalf("expected message id to be set")
		}
	}

	messages, err := s.RecentMessages(ctx, "r1", 2)
	if err != nil {
		t.Fatalf("recent messages: %v", err)
	}
	if len(messages) != 2 {
		t.Fatalf("expected 2 messages, got %d", len(messages))
	}
	if messages[0].Body != "second" || messages[1].Body != "third" {
		t.Fatalf("expected chronological tail, got %q then %q", messages[0].Body, messages[1].Body)
	}
}

func TestNameAvailability(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	ok, err := s.IsNameAvailable(ctx, "Alice", "")
	if err != nil || !ok {
		t.Fatalf("unclaimed name should be available, got ok=%v err=%v", ok, err)
	}

	if err := s.RegisterName(ctx, "Alice", "u1", "r1"); err != nil {
		t.Fatalf("register name: %v", err)
	}

	ok, err = s.IsNameAvailable(ctx, "Alice", "")
	if err != nil || ok {
		t.Fatalf("online name should be taken, got ok=%v err=%v", ok, err)
	}

	// The holder checking their own name sees it as available.
	ok, err = s.IsNameAvailable(ctx, "Alice", "u1")
	if err != nil || !ok {
		t.Fatalf("own claim should be available, got ok=%v err=%v", ok, err)
	}

	// A recently-offline claim is still held.
	if err := s.SetOnline(ctx, "Alice", false); err != nil {
		t.Fatalf("set offline: %v", err)
	}
	ok, err = s.IsNameAvailable(ctx, "Alice", "")
	if err != nil || ok {
		t.Fatalf("recently offline name should be taken, got ok=%v err=%v", ok, err)
	}

	// Backdate last_seen beyond the reclaim window: now available.
	_, err = s.db.Exec(`UPDATE global_names SET last_seen = ? WHERE name = 'Alice'`,
		time.Now().Add(-3*time.Minute))
	if err != nil {
		t.Fatalf("backdate last_seen: %v", err)
	}
	ok, err = s.IsNameAvailable(ctx, "Alice", "")
	if err != nil || !ok {
		t.Fatalf("stale offline name should be reclaimable, got ok=%v err=%v", ok, err)
	}
}

func TestPurgeStaleNames(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	if err := s.RegisterName(ctx, "Alice", "u1", "r1"); err != nil {
		t.Fatalf("register name: %v", err)
	}
	if err := s.RegisterName(ctx, "Bob", "u2", "r1"); err != nil {
		t.Fatalf("register name: %v", err)
	}
	if err := s.SetOnline(ctx, "Bob", false); err != nil {
		t.Fatalf("set offline: %v", err)
	}
	if _, err := s.db.Exec(`UPDATE global_names SET last_seen = ? WHERE name = 'Bob'`,
		time.Now().Add(-time.Hour)); err != nil {
		t.Fatalf("backdate last_seen: %v", err)
	}

	removed, err := s.PurgeStaleNames(ctx, time.Now().Add(-10*time.Minute))
	if err != nil {
		t.Fatalf("purge stale names: %v", err)
	}
	if removed != 1 {
		t.Fatalf("expected 1 purged claim, got %d", removed)
	}

	// The online claim survives.
	ok, err := s.IsNameAvailable(ctx, "Alice", "")
	if err != nil || ok {
		t.Fatalf("online claim should survive purge, got ok=%v err=%v", ok, err)
	}
}
