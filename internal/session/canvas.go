package session

import "github.com/Sundussheikhdev/sync-board-BE/internal/store"

// Drawing is one canvas entry: an atomic draw event or a finalized stroke,
// kept exactly as the client sent it.
type Drawing = store.Drawing

// canvas holds the authoritative in-memory drawing log per room plus the
// in-flight strokes that have started but not yet ended. Not safe for
// parallel mutation; the Manager serializes access.
type canvas struct {
	// states is the append-only replay log per room.
	states map[string][]Drawing
	// active maps room -> stroke id -> accumulating stroke.
	active map[string]map[string]Drawing
}

func newCanvas() *canvas {
	return &canvas{
		states: make(map[string][]Drawing),
		active: make(map[string]map[string]Drawing),
	}
}

// append adds a finalized drawing to a room's log and returns the new log.
func (c *canvas) append(roomID string, d Drawing) []Drawing {
	c.states[roomID] = append(c.states[roomID], d)
	return c.states[roomID]
}

// snapshot returns a copy of a room's log, or nil if none is loaded.
func (c *canvas) snapshot(roomID string) []Drawing {
	state, ok := c.states[roomID]
	if !ok {
		return nil
	}
	out := make([]Drawing, len(state))
	copy(out, state)
	return out
}

// load installs a log fetched from the store as the in-memory state.
func (c *canvas) load(roomID string, drawings []Drawing) {
	state := make([]Drawing, len(drawings))
	copy(state, drawings)
	c.states[roomID] = state
}

// strokeStart records a new in-flight stroke.
func (c *canvas) strokeStart(roomID, strokeID string, data Drawing) {
	if c.active[roomID] == nil {
		c.active[roomID] = make(map[string]Drawing)
	}
	c.active[roomID][strokeID] = data
}

// strokePoint appends a point to an in-flight stroke. A point for an unknown
// stroke id is silently dropped: the stroke may already have ended on a
// slower peer.
func (c *canvas) strokePoint(roomID, strokeID string, point any) bool {
	stroke, ok := c.active[roomID][strokeID]
	if !ok {
		return false
	}
	points, _ := stroke["points"].([]any)
	stroke["points"] = append(points, point)
	return true
}

// strokeEnd finalizes an in-flight stroke into the room's log and returns the
// updated log. Ending an unknown stroke returns ok=false and changes nothing.
func (c *canvas) strokeEnd(roomID, strokeID string) (state []Drawing, ok bool) {
	stroke, exists := c.active[roomID][strokeID]
	if !exists {
		return nil, false
	}
	delete(c.active[roomID], strokeID)
	if len(c.active[roomID]) == 0 {
		delete(c.active, roomID)
	}
	return c.append(roomID, stroke), true
}

// clear atomically replaces a room's log with an empty one.
func (c *canvas) clear(roomID string) {
	c.states[roomID] = []Drawing{}
}

// drop discards all canvas data for a room, in-flight strokes included.
func (c *canvas) drop(roomID string) {
	delete(c.states, roomID)
	delete(c.active, roomID)
}
