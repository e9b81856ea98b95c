package session

import "fmt"

// WebSocket close codes visible to clients. The three codes must stay
// distinguishable: clients key their retry/UX behavior on them.
const (
	// CodeNameTaken rejects a join or rename because the display name is
	// held by another online user.
	CodeNameTaken = 4001
	// CodeTimeout closes a connection whose heartbeat went stale.
	CodeTimeout = 4002
	// CodeRoomClosed evicts residual guest connections when a room loses
	// its last named member.
	CodeRoomClosed = 4003
	// CodeRoomNotFound rejects a join into a room the persistence layer
	// does not know.
	CodeRoomNotFound = 4004
)

// RejectError reports a refused admission. It is returned before any session
// state is mutated, so a rejected connection is never partially admitted.
type RejectError struct {
	Code   int
	Reason string
}

func (e *RejectError) Error() string {
	return fmt.Sprintf("admission rejected (%d): %s", e.Code, e.Reason)
}

func rejectRoomNotFound(roomID string) *RejectError {
	return &RejectError{Code: CodeRoomNotFound, Reason: "room " + roomID + " does not exist"}
}

func rejectNameTaken(name string) *RejectError {
	return &RejectError{Code: CodeNameTaken, Reason: "username " + name + " is already taken"}
}
