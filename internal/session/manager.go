package session

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/Sundussheikhdev/sync-board-BE/internal/proto"
	"github.com/Sundussheikhdev/sync-board-BE/internal/store"
)

// Options tunes the Manager's background behavior.
type Options struct {
	// ConnectionTimeout is how long a connection may go without a heartbeat
	// before the reaper closes it.
	ConnectionTimeout time.Duration
	// RoomGracePeriod is how long an empty room's data survives before the
	// cleanup sweep purges it.
	RoomGracePeriod time.Duration
	// CleanupCheckInterval rate-limits the on-demand cleanup trigger.
	CleanupCheckInterval time.Duration
}

// DefaultOptions returns the production defaults.
func DefaultOptions() Options {
	return Options{
		ConnectionTimeout:    5 * time.Minute,
		RoomGracePeriod:      5 * time.Minute,
		CleanupCheckInterval: time.Minute,
	}
}

// Manager is the single owner of all live session state: the connection
// registry, the canvas logs, heartbeat records, and the cleanup schedule.
// One mutex serializes every mutation, so no two state transitions ever
// interleave mid-way; transport goroutines and the background loops all go
// through the public methods.
type Manager struct {
	mu sync.Mutex

	reg    *registry
	canvas *canvas

	heartbeats    map[Conn]time.Time
	cleanupAt     map[string]time.Time
	disconnecting map[Conn]struct{}
	lastCleanup   time.Time

	store store.Store
	log   *zerolog.Logger
	opts  Options

	// now is swappable so reaper and sweep tests can simulate time.
	now func() time.Time
}

// NewManager builds a session manager around the persistence collaborator.
func NewManager(st store.Store, logger *zerolog.Logger, opts Options) *Manager {
	if opts.ConnectionTimeout <= 0 {
		opts.ConnectionTimeout = DefaultOptions().ConnectionTimeout
	}
	if opts.RoomGracePeriod <= 0 {
		opts.RoomGracePeriod = DefaultOptions().RoomGracePeriod
	}
	if opts.CleanupCheckInterval <= 0 {
		opts.CleanupCheckInterval = DefaultOptions().CleanupCheckInterval
	}

	return &Manager{
		reg:           newRegistry(),
		canvas:        newCanvas(),
		heartbeats:    make(map[Conn]time.Time),
		cleanupAt:     make(map[string]time.Time),
		disconnecting: make(map[Conn]struct{}),
		store:         st,
		log:           logger,
		opts:          opts,
		now:           time.Now,
	}
}

// ==== Presence & identity ====

// Join admits a connection into a room, resolving its identity first. All
// admission checks run before any state mutation: a rejected connection is
// never observable in the registry. The returned RejectError carries the
// close code the transport should use.
func (m *Manager) Join(ctx context.Context, conn Conn, roomID, requestedName string) (*Identity, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	exists, err := m.store.RoomExists(ctx, roomID)
	if err != nil {
		m.log.Error().Err(err).Str("room", roomID).Msg("room existence check failed")
		return nil, rejectRoomNotFound(roomID)
	}
	if !exists {
		return nil, rejectRoomNotFound(roomID)
	}

	now := m.now()
	var identity *Identity
	reused := false

	if requestedName != "" {
		if existing := m.reg.identityByName(roomID, requestedName); existing != nil {
			// Same name already live in this room: the new connection
			// inherits the identity id instead of forking a duplicate.
			identity = &Identity{
				ID:       existing.ID,
				Name:     existing.Name,
				RoomID:   roomID,
				JoinedAt: now,
				Kind:     existing.Kind,
			}
			reused = true
			if !identity.IsGuest() {
				if err := m.store.SetOnline(ctx, identity.Name, true); err != nil {
					m.log.Warn().Err(err).Str("name", identity.Name).Msg("set name online failed")
				}
			}
		}
	}

	if identity == nil {
		id := newIdentityID()
		name := requestedName
		kind := Named
		if name == "" {
			name = guestName(id)
			kind = Guest
		}

		if kind == Named {
			available, err := m.store.IsNameAvailable(ctx, name, "")
			if err != nil {
				// Collaborator failure degrades to "available", matching the
				// best-effort durability posture. The claim below still runs.
				m.log.Warn().Err(err).Str("name", name).Msg("name availability check failed")
				available = true
			}
			if !available {
				return nil, rejectNameTaken(name)
			}
			if err := m.store.RegisterName(ctx, name, id, roomID); err != nil {
				m.log.Warn().Err(err).Str("name", name).Msg("register name failed")
			}
		}

		identity = &Identity{ID: id, Name: name, RoomID: roomID, JoinedAt: now, Kind: kind}
	}

	m.reg.admit(roomID, conn, identity)
	m.heartbeats[conn] = now
	m.cancelCleanupLocked(roomID)

	if !reused {
		if err := m.store.AddUser(ctx, roomID, identity.ID, identity.Name); err != nil {
			m.log.Warn().Err(err).Str("room", roomID).Str("user", identity.Name).Msg("persist room user failed")
		}
	}

	m.log.Info().
		Str("room", roomID).
		Str("user", identity.Name).
		Str("user_id", identity.ID).
		Bool("reused", reused).
		Int("connections", m.reg.count(roomID)).
		Msg("connection admitted")

	m.sendRoomInfoLocked(ctx, conn, roomID)
	m.sendCanvasStateLocked(ctx, conn, roomID)

	if !reused {
		m.broadcastLocked(ctx, roomID, proto.NewOutbound(proto.OutboundTypeUserJoined, proto.UserEventData{
			UserID:    identity.ID,
			UserName:  identity.Name,
			Timestamp: now.Format(time.RFC3339Nano),
		}, now), conn, false)
		m.broadcastRoomInfoLocked(ctx, roomID)
	}

	return identity, nil
}

// Disconnect removes a connection from a room and settles its identity.
// Idempotent and re-entrant: a connection already mid-disconnect is skipped.
func (m *Manager) Disconnect(ctx context.Context, conn Conn, roomID string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.disconnectLocked(ctx, conn, roomID)
}

func (m *Manager) disconnectLocked(ctx context.Context, conn Conn, roomID string) {
	if _, busy := m.disconnecting[conn]; busy {
		return
	}
	m.disconnecting[conn] = struct{}{}
	defer func() {
		delete(m.disconnecting, conn)
		delete(m.heartbeats, conn)
	}()

	identity := m.reg.identity(conn)
	m.reg.removeConn(roomID, conn)

	if identity != nil {
		now := m.now()
		siblings := m.reg.siblingConns(roomID, identity.ID, conn)

		switch {
		case identity.IsGuest():
			// Guest identities never linger: drop them even if sibling
			// connections remain.
			m.reg.dropMember(roomID, identity.ID)
			if err := m.store.RemoveUser(ctx, roomID, identity.ID); err != nil {
				m.log.Warn().Err(err).Str("room", roomID).Str("user_id", identity.ID).Msg("remove guest failed")
			}
			// A guest that renamed itself holds a real name claim. The
			// identity does not outlive the connection, so release the
			// claim outright instead of parking it offline.
			if !IsGuestName(identity.Name) {
				if err := m.store.UnregisterName(ctx, identity.Name); err != nil {
					m.log.Warn().Err(err).Str("name", identity.Name).Msg("release renamed guest name failed")
				}
			}
			m.notifyLeftLocked(ctx, roomID, identity, conn, now)
		case len(siblings) == 0:
			m.reg.dropMember(roomID, identity.ID)
			if err := m.store.RemoveUser(ctx, roomID, identity.ID); err != nil {
				m.log.Warn().Err(err).Str("room", roomID).Str("user_id", identity.ID).Msg("remove user failed")
			}
			// The name claim survives for rejoin; only the online flag flips.
			if err := m.store.SetOnline(ctx, identity.Name, false); err != nil {
				m.log.Warn().Err(err).Str("name", identity.Name).Msg("set name offline failed")
			}
			m.notifyLeftLocked(ctx, roomID, identity, conn, now)
		default:
			m.log.Debug().
				Str("room", roomID).
				Str("user", identity.Name).
				Int("siblings", len(siblings)).
				Msg("identity kept alive by sibling connections")
		}

		m.reg.dropIdentity(conn)
	}

	// A room held open only by guests is not considered occupied.
	if m.reg.count(roomID) > 0 && m.reg.namedCount(roomID) == 0 {
		m.evictGuestsLocked(ctx, roomID)
	}

	if m.reg.count(roomID) == 0 {
		m.scheduleCleanupLocked(roomID)
		m.triggerCleanupLocked(ctx)
	}
}

func (m *Manager) notifyLeftLocked(ctx context.Context, roomID string, identity *Identity, sender Conn, now time.Time) {
	m.broadcastLocked(ctx, roomID, proto.NewOutbound(proto.OutboundTypeUserLeft, proto.UserEventData{
		UserID:    identity.ID,
		UserName:  identity.Name,
		Timestamp: now.Format(time.RFC3339Nano),
	}, now), sender, false)
	m.broadcastRoomInfoLocked(ctx, roomID)
}

// Rename re-runs the global-uniqueness check for the connection's identity
// and applies the new name. Failure leaves all state unchanged and keeps the
// connection open; the caller reports the result to the client.
func (m *Manager) Rename(ctx context.Context, conn Conn, newName string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	identity := m.reg.identity(conn)
	if identity == nil || newName == "" {
		return false
	}

	if !IsGuestName(newName) {
		available, err := m.store.IsNameAvailable(ctx, newName, identity.ID)
		if err != nil {
			m.log.Warn().Err(err).Str("name", newName).Msg("rename availability check failed")
			available = true
		}
		if !available {
			return false
		}
	}

	oldName := identity.Name
	// Sibling connections carry their own Identity values; rename all of them.
	for _, c := range m.reg.roomConns(identity.RoomID) {
		if id := m.reg.identity(c); id != nil && id.ID == identity.ID {
			id.Name = newName
		}
	}

	if err := m.store.UpdateUserName(ctx, identity.RoomID, identity.ID, newName); err != nil {
		m.log.Warn().Err(err).Str("user_id", identity.ID).Msg("persist rename failed")
	}
	if !IsGuestName(oldName) {
		if err := m.store.UnregisterName(ctx, oldName); err != nil {
			m.log.Warn().Err(err).Str("name", oldName).Msg("unregister old name failed")
		}
	}
	if !IsGuestName(newName) {
		if err := m.store.RegisterName(ctx, newName, identity.ID, identity.RoomID); err != nil {
			m.log.Warn().Err(err).Str("name", newName).Msg("register new name failed")
		}
	}

	now := m.now()
	m.broadcastLocked(ctx, identity.RoomID, proto.NewOutbound(proto.OutboundTypeNameChange, proto.UserEventData{
		UserID:    identity.ID,
		OldName:   oldName,
		NewName:   newName,
		Timestamp: now.Format(time.RFC3339Nano),
	}, now), conn, false)

	m.log.Info().Str("old", oldName).Str("new", newName).Msg("user renamed")
	return true
}

// Heartbeat refreshes the connection's liveness record and replies to the
// sender only. It has no other side effects.
func (m *Manager) Heartbeat(conn Conn) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, tracked := m.heartbeats[conn]; !tracked {
		return
	}
	now := m.now()
	m.heartbeats[conn] = now
	m.sendLocked(conn, proto.NewOutbound(proto.OutboundTypeHeartbeatResponse, nil, now))
}

// ==== Canvas events ====

// Draw appends a legacy whole-shape draw event to the room's canvas,
// persists the log, and fans the event out to peers.
func (m *Manager) Draw(ctx context.Context, conn Conn, data json.RawMessage) {
	m.mu.Lock()
	defer m.mu.Unlock()

	identity := m.reg.identity(conn)
	if identity == nil {
		return
	}
	roomID := identity.RoomID

	var drawing Drawing
	if err := json.Unmarshal(data, &drawing); err != nil {
		m.log.Debug().Err(err).Str("room", roomID).Msg("malformed draw payload")
		return
	}

	state := m.canvas.append(roomID, drawing)
	m.persistCanvasLocked(ctx, roomID, state)

	m.broadcastLocked(ctx, roomID, proto.NewOutbound(proto.OutboundTypeDraw, drawing, m.now()), conn, false)
}

// StrokeStart opens an in-flight stroke and fans the event out.
func (m *Manager) StrokeStart(ctx context.Context, conn Conn, data json.RawMessage) {
	m.mu.Lock()
	defer m.mu.Unlock()

	identity := m.reg.identity(conn)
	if identity == nil {
		return
	}
	roomID := identity.RoomID

	var stroke Drawing
	if err := json.Unmarshal(data, &stroke); err != nil {
		m.log.Debug().Err(err).Str("room", roomID).Msg("malformed stroke_start payload")
		return
	}
	strokeID, _ := stroke["id"].(string)
	if strokeID == "" {
		return
	}

	m.canvas.strokeStart(roomID, strokeID, stroke)
	m.broadcastLocked(ctx, roomID, proto.NewOutbound(proto.OutboundTypeStrokeStart, stroke, m.now()), conn, false)
}

// StrokePoint appends a point to an in-flight stroke and fans the event out.
// A point for an unknown stroke id is a silent no-op on the canvas, but the
// event is still relayed so slower peers can render it.
func (m *Manager) StrokePoint(ctx context.Context, conn Conn, strokeID string, point json.RawMessage) {
	m.mu.Lock()
	defer m.mu.Unlock()

	identity := m.reg.identity(conn)
	if identity == nil {
		return
	}
	roomID := identity.RoomID

	var p any
	if err := json.Unmarshal(point, &p); err != nil {
		m.log.Debug().Err(err).Str("room", roomID).Msg("malformed stroke_point payload")
		return
	}
	m.canvas.strokePoint(roomID, strokeID, p)

	m.broadcastLocked(ctx, roomID, proto.NewOutbound(proto.OutboundTypeStrokePoint, proto.StrokePointData{
		StrokeID: strokeID,
		Point:    point,
	}, m.now()), conn, false)
}

// StrokeEnd finalizes an in-flight stroke into the canvas, persists the
// updated log, and fans the event out.
func (m *Manager) StrokeEnd(ctx context.Context, conn Conn, strokeID string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	identity := m.reg.identity(conn)
	if identity == nil {
		return
	}
	roomID := identity.RoomID

	if state, ok := m.canvas.strokeEnd(roomID, strokeID); ok {
		m.persistCanvasLocked(ctx, roomID, state)
	}

	m.broadcastLocked(ctx, roomID, proto.NewOutbound(proto.OutboundTypeStrokeEnd, proto.StrokeEndData{
		StrokeID: strokeID,
	}, m.now()), conn, false)
}

// ClearCanvas empties the room's canvas in memory and in the store, then
// fans the event out.
func (m *Manager) ClearCanvas(ctx context.Context, conn Conn) {
	m.mu.Lock()
	defer m.mu.Unlock()

	identity := m.reg.identity(conn)
	if identity == nil {
		return
	}
	roomID := identity.RoomID

	m.canvas.clear(roomID)
	m.persistCanvasLocked(ctx, roomID, []Drawing{})

	m.broadcastLocked(ctx, roomID, proto.NewOutbound(proto.OutboundTypeClearCanvas, map[string]any{}, m.now()), conn, false)
}

// ==== Chat ====

// Chat persists a chat message best-effort and relays the client payload
// untouched to the other connections in the room.
func (m *Manager) Chat(ctx context.Context, conn Conn, data json.RawMessage) {
	m.mu.Lock()
	defer m.mu.Unlock()

	identity := m.reg.identity(conn)
	if identity == nil {
		return
	}
	roomID := identity.RoomID

	var payload proto.ChatData
	if err := json.Unmarshal(data, &payload); err != nil {
		m.log.Debug().Err(err).Str("room", roomID).Msg("malformed chat payload")
		return
	}

	msg := &store.Message{
		RoomID:   roomID,
		UserID:   payload.UserID,
		UserName: payload.UserName,
		Body:     payload.Message,
	}
	if payload.FileURL != "" {
		msg.FileURL = &payload.FileURL
	}
	if payload.FileName != "" {
		msg.FileName = &payload.FileName
	}
	if payload.FileType != "" {
		msg.FileType = &payload.FileType
	}
	if err := m.store.SaveMessage(ctx, msg); err != nil {
		m.log.Warn().Err(err).Str("room", roomID).Msg("persist chat message failed")
	}
	if err := m.store.TouchRoom(ctx, roomID); err != nil {
		m.log.Warn().Err(err).Str("room", roomID).Msg("touch room failed")
	}

	m.broadcastLocked(ctx, roomID, proto.NewOutbound(proto.OutboundTypeChat, data, m.now()), conn, false)
}

// ==== Room info & reads ====

// SendRoomInfo replies to a get_room_info request from one connection.
func (m *Manager) SendRoomInfo(ctx context.Context, conn Conn, roomID string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sendRoomInfoLocked(ctx, conn, roomID)
}

// RoomInfo returns the room snapshot used by the HTTP surface.
func (m *Manager) RoomInfo(ctx context.Context, roomID string) proto.RoomInfoData {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.roomInfoLocked(ctx, roomID)
}

// Members returns each distinct identity in a room once, in admission order.
func (m *Manager) Members(roomID string) []Identity {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.reg.membersInOrder(roomID)
}

// Count returns the number of live connections in a room.
func (m *Manager) Count(roomID string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.reg.count(roomID)
}

// ActiveNames returns the named identities currently online, one entry per
// distinct name.
func (m *Manager) ActiveNames() []string {
	m.mu.Lock()
	defer m.mu.Unlock()

	seen := make(map[string]struct{})
	var names []string
	for roomID := range m.reg.conns {
		for _, id := range m.reg.membersInOrder(roomID) {
			if id.IsGuest() {
				continue
			}
			if _, ok := seen[id.Name]; ok {
				continue
			}
			seen[id.Name] = struct{}{}
			names = append(names, id.Name)
		}
	}
	return names
}

func (m *Manager) roomInfoLocked(ctx context.Context, roomID string) proto.RoomInfoData {
	info := proto.RoomInfoData{RoomID: roomID, Users: []proto.RoomUserData{}}

	users, err := m.store.UsersForRoom(ctx, roomID)
	if err != nil {
		m.log.Warn().Err(err).Str("room", roomID).Msg("load room users failed")
		return info
	}

	for _, u := range users {
		// Guests are invisible in the roster.
		if u.Name == "" || IsGuestName(u.Name) {
			continue
		}
		info.Users = append(info.Users, proto.RoomUserData{
			ID:       u.ID,
			Name:     u.Name,
			JoinedAt: u.JoinedAt.Format(time.RFC3339Nano),
			IsOnline: u.IsOnline,
		})
	}
	info.Count = len(info.Users)
	return info
}

func (m *Manager) sendRoomInfoLocked(ctx context.Context, conn Conn, roomID string) {
	m.sendLocked(conn, proto.NewOutbound(proto.OutboundTypeRoomInfo, m.roomInfoLocked(ctx, roomID), m.now()))
}

func (m *Manager) sendCanvasStateLocked(ctx context.Context, conn Conn, roomID string) {
	state := m.canvas.snapshot(roomID)
	if state == nil {
		// Memory is the fast path; the store is the fallback and gets
		// mirrored in for subsequent joins.
		loaded, err := m.store.GetCanvasState(ctx, roomID)
		if err != nil {
			m.log.Warn().Err(err).Str("room", roomID).Msg("load canvas state failed")
			return
		}
		if len(loaded) > 0 {
			m.canvas.load(roomID, loaded)
			state = loaded
		}
	}
	if len(state) == 0 {
		return
	}

	m.sendLocked(conn, proto.NewOutbound(proto.OutboundTypeCanvasState, proto.CanvasStateData{
		Drawings: state,
	}, m.now()))
}

// broadcastRoomInfoLocked refreshes the roster for everyone in the room,
// the instigator included: their own view must reflect the new roster too.
func (m *Manager) broadcastRoomInfoLocked(ctx context.Context, roomID string) {
	m.broadcastLocked(ctx, roomID, proto.NewOutbound(proto.OutboundTypeRoomInfo, m.roomInfoLocked(ctx, roomID), m.now()), nil, true)
}

// ==== Delivery ====

// broadcastLocked serializes the event once and attempts delivery to every
// connection in the room except the sender (unless includeSender). Failing
// connections are quarantined during the pass and routed through the
// disconnect path only after it completes, so the set being iterated is
// never mutated mid-flight.
func (m *Manager) broadcastLocked(ctx context.Context, roomID string, out proto.Outbound, sender Conn, includeSender bool) {
	conns := m.reg.roomConns(roomID)
	if len(conns) == 0 {
		return
	}

	data, err := json.Marshal(out)
	if err != nil {
		m.log.Error().Err(err).Str("type", out.Type).Msg("marshal outbound failed")
		return
	}

	var broken []Conn
	for _, c := range conns {
		if c == sender && !includeSender {
			continue
		}
		if err := c.Send(data); err != nil {
			m.log.Warn().Err(err).Str("room", roomID).Str("type", out.Type).Msg("send failed, quarantining connection")
			broken = append(broken, c)
		}
	}

	for _, c := range broken {
		m.disconnectLocked(ctx, c, roomID)
	}
}

// sendLocked delivers one message to a single connection, best-effort.
func (m *Manager) sendLocked(conn Conn, out proto.Outbound) {
	data, err := json.Marshal(out)
	if err != nil {
		m.log.Error().Err(err).Str("type", out.Type).Msg("marshal outbound failed")
		return
	}
	if err := conn.Send(data); err != nil {
		m.log.Warn().Err(err).Str("type", out.Type).Msg("direct send failed")
	}
}

func (m *Manager) persistCanvasLocked(ctx context.Context, roomID string, state []Drawing) {
	// Fire-and-forget from the real-time path's perspective: a failed write
	// degrades durability, not the session.
	if err := m.store.SaveCanvasState(ctx, roomID, state); err != nil {
		m.log.Warn().Err(err).Str("room", roomID).Msg("persist canvas state failed")
	}
}
