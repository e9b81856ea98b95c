package store

import (
	"context"
	"encoding/json"
	"errors"
	"time"
)

// ErrNotFound is returned when a requested record does not exist.
var ErrNotFound = errors.New("not found")

// Room represents a collaboration room.
type Room struct {
	ID           string
	Name         string
	CreatedBy    string
	CreatedAt    time.Time
	LastActivity time.Time
	UserCount    int
	IsActive     bool
}

// RoomUser is a user record inside a room's roster.
type RoomUser struct {
	ID       string
	Name     string
	JoinedAt time.Time
	IsOnline bool
	LastSeen time.Time
}

// Message represents a persisted chat message, optionally with a file attachment.
type Message struct {
	ID        int64
	RoomID    string
	UserID    string
	UserName  string
	Body      string
	FileURL   *string
	FileName  *string
	FileType  *string
	CreatedAt time.Time
}

// GlobalName is a claim on a display name across all rooms.
type GlobalName struct {
	Name         string
	UserID       string
	RoomID       string
	IsOnline     bool
	LastSeen     time.Time
	RegisteredAt time.Time
}

// Drawing is one canvas entry as the client sent it: either an atomic draw
// event or a finalized multi-point stroke.
type Drawing = map[string]any

// RoomStore handles room persistence.
type RoomStore interface {
	// CreateRoom creates a new active room and returns it.
	CreateRoom(ctx context.Context, name, createdBy string) (*Room, error)

	// RoomExists reports whether an active room with this ID exists.
	RoomExists(ctx context.Context, roomID string) (bool, error)

	// GetRoom retrieves a room by ID.
	GetRoom(ctx context.Context, roomID string) (*Room, error)

	// ListRooms lists all active rooms.
	ListRooms(ctx context.Context) ([]*Room, error)

	// TouchRoom bumps a room's last_activity timestamp.
	TouchRoom(ctx context.Context, roomID string) error

	// DeactivateAndPurge marks a room inactive and deletes its users,
	// messages, and canvas rows. The room row itself is kept.
	DeactivateAndPurge(ctx context.Context, roomID string) error
}

// RoomUserStore handles the per-room roster.
type RoomUserStore interface {
	// AddUser inserts a user into a room's roster, or marks an existing
	// entry online again.
	AddUser(ctx context.Context, roomID, userID, userName string) error

	// RemoveUser deletes a user from a room's roster. Removing a user that
	// is not present is not an error.
	RemoveUser(ctx context.Context, roomID, userID string) error

	// UpdateUserName renames a user inside a room's roster.
	UpdateUserName(ctx context.Context, roomID, userID, newName string) error

	// UsersForRoom returns the roster for a room.
	UsersForRoom(ctx context.Context, roomID string) ([]*RoomUser, error)
}

// MessageStore handles chat message persistence.
type MessageStore interface {
	// SaveMessage persists a chat message.
	SaveMessage(ctx context.Context, msg *Message) error

	// RecentMessages returns up to limit most recent messages for a room,
	// in chronological order.
	RecentMessages(ctx context.Context, roomID string, limit int) ([]*Message, error)
}

// CanvasStore handles the per-room drawing log mirror.
type CanvasStore interface {
	// SaveCanvasState replaces the stored drawing log for a room.
	SaveCanvasState(ctx context.Context, roomID string, drawings []Drawing) error

	// GetCanvasState returns the stored drawing log for a room. A room with
	// no canvas document yields an empty slice.
	GetCanvasState(ctx context.Context, roomID string) ([]Drawing, error)
}

// NameStore arbitrates global display-name uniqueness.
type NameStore interface {
	// IsNameAvailable reports whether name can be claimed. A name held by
	// excludingID is available to that same user. A name whose holder went
	// offline long enough ago is reclaimable.
	IsNameAvailable(ctx context.Context, name, excludingID string) (bool, error)

	// RegisterName claims a name for a user. An existing claim on the same
	// name is overwritten.
	RegisterName(ctx context.Context, name, userID, roomID string) error

	// UnregisterName releases a name claim entirely.
	UnregisterName(ctx context.Context, name string) error

	// SetOnline flips the online flag on a name claim and refreshes last_seen.
	SetOnline(ctx context.Context, name string, online bool) error

	// ListNames returns all current name claims.
	ListNames(ctx context.Context) ([]*GlobalName, error)

	// PurgeStaleNames deletes offline claims not seen since cutoff and
	// returns how many were removed.
	PurgeStaleNames(ctx context.Context, cutoff time.Time) (int, error)
}

// Store aggregates all storage interfaces.
type Store interface {
	RoomStore
	RoomUserStore
	MessageStore
	CanvasStore
	NameStore

	// Close closes the underlying database connection.
	Close() error
}

// EncodeDrawings serializes a drawing log for storage as a single document.
func EncodeDrawings(drawings []Drawing) ([]byte, error) {
	if drawings == nil {
		drawings = []Drawing{}
	}
	return json.Marshal(drawings)
}

// DecodeDrawings parses a stored drawing log document.
func DecodeDrawings(data []byte) ([]Drawing, error) {
	if len(data) == 0 {
		return []Drawing{}, nil
	}
	var drawings []Drawing
	if err := json.Unmarshal(data, &drawings); err != nil {
		return nil, err
	}
	return drawings, nil
}
