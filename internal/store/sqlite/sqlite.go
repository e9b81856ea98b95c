package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/Sundussheikhdev/sync-board-BE/internal/store"
)

// nameReclaimWindow is how long a name claim must sit offline before another
// user may take it over.
const nameReclaimWindow = 2 * time.Minute

const schema = `
CREATE TABLE IF NOT EXISTS rooms (
	id            TEXT PRIMARY KEY,
	name          TEXT NOT NULL,
	created_by    TEXT NOT NULL DEFAULT '',
	created_at    DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
	last_activity DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
	user_count    INTEGER NOT NULL DEFAULT 0,
	is_active     BOOLEAN NOT NULL DEFAULT 1
);

CREATE TABLE IF NOT EXISTS room_users (
	room_id   TEXT NOT NULL,
	user_id   TEXT NOT NULL,
	name      TEXT NOT NULL,
	joined_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
	is_online BOOLEAN NOT NULL DEFAULT 1,
	last_seen DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
	PRIMARY KEY (room_id, user_id),
	FOREIGN KEY (room_id) REFERENCES rooms(id)
);

CREATE TABLE IF NOT EXISTS messages (
	id         INTEGER PRIMARY KEY AUTOINCREMENT,
	room_id    TEXT NOT NULL,
	user_id    TEXT NOT NULL,
	user_name  TEXT NOT NULL,
	body       TEXT NOT NULL,
	file_url   TEXT,
	file_name  TEXT,
	file_type  TEXT,
	created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
	FOREIGN KEY (room_id) REFERENCES rooms(id)
);

CREATE TABLE IF NOT EXISTS canvas_states (
	room_id    TEXT PRIMARY KEY,
	drawings   TEXT NOT NULL DEFAULT '[]',
	updated_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
	FOREIGN KEY (room_id) REFERENCES rooms(id)
);

CREATE TABLE IF NOT EXISTS global_names (
	name          TEXT PRIMARY KEY,
	user_id       TEXT NOT NULL,
	room_id       TEXT NOT NULL,
	is_online     BOOLEAN NOT NULL DEFAULT 1,
	last_seen     DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
	registered_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
);

CREATE INDEX IF NOT EXISTS idx_messages_room ON messages(room_id, created_at DESC);
CREATE INDEX IF NOT EXISTS idx_room_users_room ON room_users(room_id);
`

// SQLiteStore implements store.Store for SQLite.
type SQLiteStore struct {
	db *sql.DB
}

// New creates a new SQLite store and applies the schema.
// dbPath is the path to the SQLite database file.
func New(dbPath string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}

	// SQLite works best with a single connection.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping sqlite: %w", err)
	}

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("apply schema: %w", err)
	}

	return &SQLiteStore{db: db}, nil
}

// NewWithSetup creates a new SQLite store and runs a setup function after the
// schema is applied. Useful for tests to seed data.
func NewWithSetup(dbPath string, setup func(*sql.DB) error) (*SQLiteStore, error) {
	s, err := New(dbPath)
	if err != nil {
		return nil, err
	}

	if setup != nil {
		if err := setup(s.db); err != nil {
			s.db.Close()
			return nil, fmt.Errorf("setup: %w", err)
		}
	}

	return s, nil
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// ==== RoomStore implementation ====

// CreateRoom creates a new active room and returns it.
func (s *SQLiteStore) CreateRoom(ctx context.Context, name, createdBy string) (*store.Room, error) {
	// Room IDs are the human-chosen names, matching how clients address
	// the websocket endpoint.
	query := `
		INSERT INTO rooms (id, name, created_by)
		VALUES (?, ?, ?)
	`
	if _, err := s.db.ExecContext(ctx, query, name, name, createdBy); err != nil {
		return nil, fmt.Errorf("insert room: %w", err)
	}

	return s.GetRoom(ctx, name)
}

// RoomExists reports whether an active room with this ID exists.
func (s *SQLiteStore) RoomExists(ctx context.Context, roomID string) (bool, error) {
	query := `SELECT 1 FROM rooms WHERE id = ? AND is_active = 1`

	var one int
	err := s.db.QueryRowContext(ctx, query, roomID).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("query room: %w", err)
	}
	return true, nil
}

// GetRoom retrieves a room by ID.
func (s *SQLiteStore) GetRoom(ctx context.Context, roomID string) (*store.Room, error) {
	query := `
		SELECT id, name, created_by, created_at, last_activity, user_count, is_active
		FROM rooms
		WHERE id = ?
	`
	var room store.Room
	err := s.db.QueryRowContext(ctx, query, roomID).Scan(
		&room.ID,
		&room.Name,
		&room.CreatedBy,
		&room.CreatedAt,
		&room.LastActivity,
		&room.UserCount,
		&room.IsActive,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("room %s: %w", roomID, store.ErrNotFound)
		}
		return nil, fmt.Errorf("query room: %w", err)
	}

	return &room, nil
}

// ListRooms lists all active rooms.
func (s *SQLiteStore) ListRooms(ctx context.Context) ([]*store.Room, error) {
	query := `
		SELECT id, name, created_by, created_at, last_activity, user_count, is_active
		FROM rooms
		WHERE is_active = 1
		ORDER BY created_at
	`
	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("query rooms: %w", err)
	}
	defer rows.Close()

	var rooms []*store.Room
	for rows.Next() {
		var room store.Room
		if err := rows.Scan(
			&room.ID,
			&room.Name,
			&room.CreatedBy,
			&room.CreatedAt,
			&room.LastActivity,
			&room.UserCount,
			&room.IsActive,
		); err != nil {
			return nil, fmt.Errorf("scan room: %w", err)
		}
		rooms = append(rooms, &room)
	}

	return rooms, rows.Err()
}

// TouchRoom bumps a room's last_activity timestamp.
func (s *SQLiteStore) TouchRoom(ctx context.Context, roomID string) error {
	query := `UPDATE rooms SET last_activity = CURRENT_TIMESTAMP WHERE id = ?`
	if _, err := s.db.ExecContext(ctx, query, roomID); err != nil {
		return fmt.Errorf("touch room: %w", err)
	}
	return nil
}

// DeactivateAndPurge marks a room inactive and deletes its users, messages,
// and canvas rows.
func (s *SQLiteStore) DeactivateAndPurge(ctx context.Context, roomID string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin purge: %w", err)
	}
	defer tx.Rollback()

	steps := []string{
		`DELETE FROM room_users WHERE room_id = ?`,
		`DELETE FROM messages WHERE room_id = ?`,
		`DELETE FROM canvas_states WHERE room_id = ?`,
		`UPDATE rooms SET is_active = 0, user_count = 0, last_activity = CURRENT_TIMESTAMP WHERE id = ?`,
	}
	for _, q := range steps {
		if _, err := tx.ExecContext(ctx, q, roomID); err != nil {
			return fmt.Errorf("purge room: %w", err)
		}
	}

	return tx.Commit()
}

// ==== RoomUserStore implementation ====

// AddUser inserts a user into a room's roster, or marks an existing entry
// online again.
func (s *SQLiteStore) AddUser(ctx context.Context, roomID, userID, userName string) error {
	var one int
	err := s.db.QueryRowContext(ctx,
		`SELECT 1 FROM room_users WHERE room_id = ? AND user_id = ?`,
		roomID, userID,
	).Scan(&one)
	switch {
	case err == nil:
		query := `
			UPDATE room_users SET is_online = 1, last_seen = CURRENT_TIMESTAMP
			WHERE room_id = ? AND user_id = ?
		`
		if _, err := s.db.ExecContext(ctx, query, roomID, userID); err != nil {
			return fmt.Errorf("mark user online: %w", err)
		}
		return nil
	case errors.Is(err, sql.ErrNoRows):
		query := `
			INSERT INTO room_users (room_id, user_id, name)
			VALUES (?, ?, ?)
		`
		if _, err := s.db.ExecContext(ctx, query, roomID, userID, userName); err != nil {
			return fmt.Errorf("insert room user: %w", err)
		}
		bump := `
			UPDATE rooms SET user_count = user_count + 1, last_activity = CURRENT_TIMESTAMP
			WHERE id = ?
		`
		if _, err := s.db.ExecContext(ctx, bump, roomID); err != nil {
			return fmt.Errorf("bump user count: %w", err)
		}
		return nil
	default:
		return fmt.Errorf("query room user: %w", err)
	}
}

// RemoveUser deletes a user from a room's roster.
func (s *SQLiteStore) RemoveUser(ctx context.Context, roomID, userID string) error {
	res, err := s.db.ExecContext(ctx,
		`DELETE FROM room_users WHERE room_id = ? AND user_id = ?`,
		roomID, userID,
	)
	if err != nil {
		return fmt.Errorf("delete room user: %w", err)
	}

	affected, err := res.RowsAffected()
	if err != nil || affected == 0 {
		return nil
	}

	query := `
		UPDATE rooms SET user_count = MAX(0, user_count - 1), last_activity = CURRENT_TIMESTAMP
		WHERE id = ?
	`
	if _, err := s.db.ExecContext(ctx, query, roomID); err != nil {
		return fmt.Errorf("drop user count: %w", err)
	}
	return nil
}

// UpdateUserName renames a user inside a room's roster.
func (s *SQLiteStore) UpdateUserName(ctx context.Context, roomID, userID, newName string) error {
	query := `
		UPDATE room_users SET name = ?, last_seen = CURRENT_TIMESTAMP
		WHERE room_id = ? AND user_id = ?
	`
	if _, err := s.db.ExecContext(ctx, query, newName, roomID, userID); err != nil {
		return fmt.Errorf("update user name: %w", err)
	}
	return nil
}

// UsersForRoom returns the roster for a room.
func (s *SQLiteStore) UsersForRoom(ctx context.Context, roomID string) ([]*store.RoomUser, error) {
	query := `
		SELECT user_id, name, joined_at, is_online, last_seen
		FROM room_users
		WHERE room_id = ?
		ORDER BY joined_at
	`
	rows, err := s.db.QueryContext(ctx, query, roomID)
	if err != nil {
		return nil, fmt.Errorf("query room users: %w", err)
	}
	defer rows.Close()

	var users []*store.RoomUser
	for rows.Next() {
		var u store.RoomUser
		if err := rows.Scan(&u.ID, &u.Name, &u.JoinedAt, &u.IsOnline, &u.LastSeen); err != nil {
			return nil, fmt.Errorf("scan room user: %w", err)
		}
		users = append(users, &u)
	}

	return users, rows.Err()
}

// ==== MessageStore implementation ====

// SaveMessage persists a chat message.
func (s *SQLiteStore) SaveMessage(ctx context.Context, msg *store.Message) error {
	query := `
		INSERT INTO messages (room_id, user_id, user_name, body, file_url, file_name, file_type)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`
	res, err := s.db.ExecContext(ctx, query,
		msg.RoomID, msg.UserID, msg.UserName, msg.Body, msg.FileURL, msg.FileName, msg.FileType,
	)
	if err != nil {
		return fmt.Errorf("insert message: %w", err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return fmt.Errorf("get last insert id: %w", err)
	}
	msg.ID = id
	return nil
}

// RecentMessages returns up to limit most recent messages in chronological order.
func (s *SQLiteStore) RecentMessages(ctx context.Context, roomID string, limit int) ([]*store.Message, error) {
	query := `
		SELECT id, room_id, user_id, user_name, body, file_url, file_name, file_type, created_at
		FROM messages
		WHERE room_id = ?
		ORDER BY created_at DESC, id DESC
		LIMIT ?
	`
	rows, err := s.db.QueryContext(ctx, query, roomID, limit)
	if err != nil {
		return nil, fmt.Errorf("query messages: %w", err)
	}
	defer rows.Close()

	var messages []*store.Message
	for rows.Next() {
		var m store.Message
		if err := rows.Scan(
			&m.ID, &m.RoomID, &m.UserID, &m.UserName, &m.Body,
			&m.FileURL, &m.FileName, &m.FileType, &m.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("scan message: %w", err)
		}
		messages = append(messages, &m)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	// Query is newest-first for the LIMIT; callers want chronological order.
	for i, j := 0, len(messages)-1; i < j; i, j = i+1, j-1 {
		messages[i], messages[j] = messages[j], messages[i]
	}
	return messages, nil
}

// ==== CanvasStore implementation ====

// SaveCanvasState replaces the stored drawing log for a room.
func (s *SQLiteStore) SaveCanvasState(ctx context.Context, roomID string, drawings []store.Drawing) error {
	data, err := store.EncodeDrawings(drawings)
	if err != nil {
		return fmt.Errorf("encode drawings: %w", err)
	}

	query := `
		INSERT INTO canvas_states (room_id, drawings, updated_at)
		VALUES (?, ?, CURRENT_TIMESTAMP)
		ON CONFLICT(room_id) DO UPDATE SET drawings = excluded.drawings, updated_at = CURRENT_TIMESTAMP
	`
	if _, err := s.db.ExecContext(ctx, query, roomID, string(data)); err != nil {
		return fmt.Errorf("upsert canvas state: %w", err)
	}
	return nil
}

// GetCanvasState returns the stored drawing log for a room.
func (s *SQLiteStore) GetCanvasState(ctx context.Context, roomID string) ([]store.Drawing, error) {
	var data string
	err := s.db.QueryRowContext(ctx,
		`SELECT drawings FROM canvas_states WHERE room_id = ?`,
		roomID,
	).Scan(&data)
	if errors.Is(err, sql.ErrNoRows) {
		return []store.Drawing{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("query canvas state: %w", err)
	}

	drawings, err := store.DecodeDrawings([]byte(data))
	if err != nil {
		return nil, fmt.Errorf("decode drawings: %w", err)
	}
	return drawings, nil
}

// ==== NameStore implementation ====

// IsNameAvailable reports whether name can be claimed.
func (s *SQLiteStore) IsNameAvailable(ctx context.Context, name, excludingID string) (bool, error) {
	query := `
		SELECT user_id, is_online, last_seen
		FROM global_names
		WHERE name = ?
	`
	var (
		userID   string
		isOnline bool
		lastSeen time.Time
	)
	err := s.db.QueryRowContext(ctx, query, name).Scan(&userID, &isOnline, &lastSeen)
	if errors.Is(err, sql.ErrNoRows) {
		return true, nil
	}
	if err != nil {
		return false, fmt.Errorf("query global name: %w", err)
	}

	// A user's own claim never blocks them.
	if excludingID != "" && userID == excludingID {
		return true, nil
	}
	if isOnline {
		return false, nil
	}

	// Offline claims become reclaimable after a short window.
	return time.Since(lastSeen) > nameReclaimWindow, nil
}

// RegisterName claims a name for a user.
func (s *SQLiteStore) RegisterName(ctx context.Context, name, userID, roomID string) error {
	query := `
		INSERT INTO global_names (name, user_id, room_id, is_online, last_seen, registered_at)
		VALUES (?, ?, ?, 1, CURRENT_TIMESTAMP, CURRENT_TIMESTAMP)
		ON CONFLICT(name) DO UPDATE SET
			user_id = excluded.user_id,
			room_id = excluded.room_id,
			is_online = 1,
			last_seen = CURRENT_TIMESTAMP
	`
	if _, err := s.db.ExecContext(ctx, query, name, userID, roomID); err != nil {
		return fmt.Errorf("register name: %w", err)
	}
	return nil
}

// UnregisterName releases a name claim entirely.
func (s *SQLiteStore) UnregisterName(ctx context.Context, name string) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM global_names WHERE name = ?`, name); err != nil {
		return fmt.Errorf("unregister name: %w", err)
	}
	return nil
}

// SetOnline flips the online flag on a name claim and refreshes last_seen.
func (s *SQLiteStore) SetOnline(ctx context.Context, name string, online bool) error {
	query := `
		UPDATE global_names SET is_online = ?, last_seen = CURRENT_TIMESTAMP
		WHERE name = ?
	`
	if _, err := s.db.ExecContext(ctx, query, online, name); err != nil {
		return fmt.Errorf("set name online: %w", err)
	}
	return nil
}

// ListNames returns all current name claims.
func (s *SQLiteStore) ListNames(ctx context.Context) ([]*store.GlobalName, error) {
	query := `
		SELECT name, user_id, room_id, is_online, last_seen, registered_at
		FROM global_names
		ORDER BY registered_at
	`
	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("query global names: %w", err)
	}
	defer rows.Close()

	var names []*store.GlobalName
	for rows.Next() {
		var n store.GlobalName
		if err := rows.Scan(&n.Name, &n.UserID, &n.RoomID, &n.IsOnline, &n.LastSeen, &n.RegisteredAt); err != nil {
			return nil, fmt.Errorf("scan global name: %w", err)
		}
		names = append(names, &n)
	}

	return names, rows.Err()
}

// PurgeStaleNames deletes offline claims not seen since cutoff.
func (s *SQLiteStore) PurgeStaleNames(ctx context.Context, cutoff time.Time) (int, error) {
	res, err := s.db.ExecContext(ctx,
		`DELETE FROM global_names WHERE is_online = 0 AND last_seen < ?`,
		cutoff,
	)
	if err != nil {
		return 0, fmt.Errorf("purge stale names: %w", err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return 0, nil
	}
	return int(affected), nil
}
