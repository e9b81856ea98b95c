package session

import (
	"context"
	"time"
)

// nameLedgerTTL is how long an offline name claim survives before the sweep
// deletes it outright. Longer than the reclaim window, so a claim is always
// reclaimable before it disappears.
const nameLedgerTTL = 10 * time.Minute

// CleanupStatus is the snapshot served by the admin surface.
type CleanupStatus struct {
	PendingRooms  []PendingRoom `json:"pending_rooms"`
	ActiveRooms   int           `json:"active_rooms"`
	LastSweep     *time.Time    `json:"last_sweep,omitempty"`
	GracePeriod   string        `json:"grace_period"`
	CheckInterval string        `json:"check_interval"`
}

// PendingRoom is an empty room waiting out its grace period.
type PendingRoom struct {
	RoomID   string    `json:"room_id"`
	PurgeAt  time.Time `json:"purge_at"`
	Overdue  bool      `json:"overdue"`
}

// SweepStale closes every connection whose heartbeat record is older than the
// connection timeout. Closing runs the normal disconnect path, so leave
// notifications and cleanup scheduling follow as usual. Returns how many
// connections were reaped.
func (m *Manager) SweepStale(ctx context.Context) int {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.now()
	var stale []Conn
	for conn, last := range m.heartbeats {
		if now.Sub(last) > m.opts.ConnectionTimeout {
			stale = append(stale, conn)
		}
	}

	for _, conn := range stale {
		id := m.reg.identity(conn)
		if id == nil {
			// Dangling record with no identity: nothing to settle, just
			// close and stop tracking.
			_ = conn.Close(CodeTimeout, "heartbeat timeout")
			delete(m.heartbeats, conn)
			continue
		}
		m.log.Info().Str("room", id.RoomID).Str("user", id.Name).Msg("closing stale connection")
		_ = conn.Close(CodeTimeout, "heartbeat timeout")
		m.disconnectLocked(ctx, conn, id.RoomID)
	}
	return len(stale)
}

// SweepRooms purges every empty room whose grace period has expired, and
// defensively schedules any room found occupied only by guests. Returns how
// many rooms were purged.
func (m *Manager) SweepRooms(ctx context.Context) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.sweepRoomsLocked(ctx)
}

func (m *Manager) sweepRoomsLocked(ctx context.Context) int {
	now := m.now()
	m.lastCleanup = now

	purged := 0
	for roomID, at := range m.cleanupAt {
		if now.Before(at) {
			continue
		}
		if m.reg.count(roomID) > 0 && m.reg.namedCount(roomID) > 0 {
			// Someone came back while the entry was pending.
			delete(m.cleanupAt, roomID)
			continue
		}
		m.purgeRoomLocked(ctx, roomID)
		purged++
	}

	// A room that never went through the disconnect path can still end up
	// guest-only (e.g. a named user reaped by SweepStale mid-sweep). Catch it.
	for _, roomID := range m.reg.roomIDs() {
		if m.reg.namedCount(roomID) == 0 {
			m.evictGuestsLocked(ctx, roomID)
			if m.reg.count(roomID) == 0 {
				m.scheduleCleanupLocked(roomID)
			}
		}
	}

	if removed, err := m.store.PurgeStaleNames(ctx, now.Add(-nameLedgerTTL)); err != nil {
		m.log.Warn().Err(err).Msg("purge stale names failed")
	} else if removed > 0 {
		m.log.Info().Int("removed", removed).Msg("purged stale name claims")
	}
	return purged
}

// TriggerCleanup runs a room sweep on demand, rate-limited so chatty callers
// cannot turn it into a hot loop. Reports whether a sweep actually ran.
func (m *Manager) TriggerCleanup(ctx context.Context) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.triggerCleanupLocked(ctx)
}

func (m *Manager) triggerCleanupLocked(ctx context.Context) bool {
	now := m.now()
	if !m.lastCleanup.IsZero() && now.Sub(m.lastCleanup) < m.opts.CleanupCheckInterval {
		return false
	}
	m.sweepRoomsLocked(ctx)
	return true
}

// PurgeRoom force-purges one room immediately, evicting any remaining
// connections first. Used by the admin surface.
func (m *Manager) PurgeRoom(ctx context.Context, roomID string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, conn := range m.reg.roomConns(roomID) {
		_ = conn.Close(CodeRoomClosed, "room closed")
		m.disconnectLocked(ctx, conn, roomID)
	}
	m.purgeRoomLocked(ctx, roomID)
}

// Status reports the cleanup schedule for the admin surface.
func (m *Manager) Status() CleanupStatus {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.now()
	status := CleanupStatus{
		PendingRooms:  []PendingRoom{},
		ActiveRooms:   len(m.reg.conns),
		GracePeriod:   m.opts.RoomGracePeriod.String(),
		CheckInterval: m.opts.CleanupCheckInterval.String(),
	}
	if !m.lastCleanup.IsZero() {
		t := m.lastCleanup
		status.LastSweep = &t
	}
	for roomID, at := range m.cleanupAt {
		status.PendingRooms = append(status.PendingRooms, PendingRoom{
			RoomID:  roomID,
			PurgeAt: at,
			Overdue: !now.Before(at),
		})
	}
	return status
}

// scheduleCleanupLocked marks a room for purging after the grace period.
// Re-scheduling an already pending room keeps the earlier deadline.
func (m *Manager) scheduleCleanupLocked(roomID string) {
	if _, pending := m.cleanupAt[roomID]; pending {
		return
	}
	m.cleanupAt[roomID] = m.now().Add(m.opts.RoomGracePeriod)
	m.log.Info().
		Str("room", roomID).
		Time("purge_at", m.cleanupAt[roomID]).
		Msg("room scheduled for cleanup")
}

// cancelCleanupLocked withdraws a pending purge, typically because someone
// rejoined within the grace period.
func (m *Manager) cancelCleanupLocked(roomID string) {
	if _, pending := m.cleanupAt[roomID]; pending {
		delete(m.cleanupAt, roomID)
		m.log.Info().Str("room", roomID).Msg("room cleanup cancelled")
	}
}

// evictGuestsLocked closes the residual guest connections of a room that has
// no named members left.
func (m *Manager) evictGuestsLocked(ctx context.Context, roomID string) {
	for _, conn := range m.reg.guestConns(roomID) {
		_ = conn.Close(CodeRoomClosed, "room closed")
		m.disconnectLocked(ctx, conn, roomID)
	}
}

// purgeRoomLocked drops all in-memory and persisted state for a room. Any
// connection still registered is closed first so no socket outlives its
// bookkeeping.
func (m *Manager) purgeRoomLocked(ctx context.Context, roomID string) {
	for _, conn := range m.reg.roomConns(roomID) {
		_ = conn.Close(CodeRoomClosed, "room closed")
		delete(m.heartbeats, conn)
	}
	delete(m.cleanupAt, roomID)
	m.canvas.drop(roomID)
	m.reg.dropRoom(roomID)

	if err := m.store.DeactivateAndPurge(ctx, roomID); err != nil {
		m.log.Warn().Err(err).Str("room", roomID).Msg("purge room data failed")
		return
	}
	m.log.Info().Str("room", roomID).Msg("room purged")
}
