package session

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// GuestPrefix is the reserved prefix of auto-generated display names. Names
// carrying it are exempt from global uniqueness and are discarded on
// disconnect instead of being marked offline.
const GuestPrefix = "User "

// IdentityKind tells a human-chosen name apart from an auto-generated one.
// It is decided at creation time and never changes, even across renames.
type IdentityKind int

const (
	// Named is a human-chosen, globally unique display name.
	Named IdentityKind = iota
	// Guest is an auto-generated throwaway identity.
	Guest
)

// Identity is the logical user a connection presents as. Multiple physical
// connections may share one Identity ID (same name, same room).
type Identity struct {
	ID       string
	Name     string
	RoomID   string
	JoinedAt time.Time
	Kind     IdentityKind
}

// IsGuest reports whether the identity was auto-generated.
func (id *Identity) IsGuest() bool {
	return id.Kind == Guest
}

// IsGuestName reports whether a display name carries the reserved guest
// prefix. Needed for roster entries read back from the store, where only the
// name survives.
func IsGuestName(name string) bool {
	return strings.HasPrefix(name, GuestPrefix)
}

// newIdentityID returns a short unique identity id.
func newIdentityID() string {
	return uuid.NewString()[:8]
}

// guestName derives the auto-generated display name for an identity id.
func guestName(id string) string {
	return GuestPrefix + id
}
