package session

// Conn is one live bidirectional session endpoint as seen by the session
// layer. The transport adapter owns the underlying socket; the Manager owns
// the Conn value for its lifetime and never shares it across rooms.
type Conn interface {
	// Send delivers one serialized outbound message. A non-nil error marks
	// the connection as broken; the Manager will route it through the
	// disconnect path after the current fan-out pass.
	Send(data []byte) error

	// Close shuts the connection down with a close code and reason.
	Close(code int, reason string) error
}
