package session

// registry is the in-memory bookkeeping for live connections: which
// connections sit in which room, and which identity each connection presents
// as. It is not safe for parallel mutation; the Manager serializes access.
type registry struct {
	// conns preserves admission order per room.
	conns map[string][]Conn
	// identities maps each live connection to its identity.
	identities map[Conn]*Identity
	// members tracks identity IDs per room.
	members map[string]map[string]struct{}
}

func newRegistry() *registry {
	return &registry{
		conns:      make(map[string][]Conn),
		identities: make(map[Conn]*Identity),
		members:    make(map[string]map[string]struct{}),
	}
}

// admit adds a connection with its identity to a room, creating the room's
// bookkeeping on first admission.
func (r *registry) admit(roomID string, conn Conn, id *Identity) {
	r.conns[roomID] = append(r.conns[roomID], conn)
	r.identities[conn] = id
	if r.members[roomID] == nil {
		r.members[roomID] = make(map[string]struct{})
	}
	r.members[roomID][id.ID] = struct{}{}
}

// removeConn drops a connection from a room's ordered set. The identity entry
// is left for the caller to settle (leave semantics depend on it).
func (r *registry) removeConn(roomID string, conn Conn) {
	conns := r.conns[roomID]
	for i, c := range conns {
		if c == conn {
			r.conns[roomID] = append(conns[:i], conns[i+1:]...)
			break
		}
	}
	if len(r.conns[roomID]) == 0 {
		delete(r.conns, roomID)
	}
}

// dropIdentity removes the identity entry for a connection.
func (r *registry) dropIdentity(conn Conn) {
	delete(r.identities, conn)
}

// dropMember removes an identity id from a room's member set.
func (r *registry) dropMember(roomID, identityID string) {
	if m := r.members[roomID]; m != nil {
		delete(m, identityID)
		if len(m) == 0 {
			delete(r.members, roomID)
		}
	}
}

// dropRoom discards all bookkeeping for a room.
func (r *registry) dropRoom(roomID string) {
	for _, c := range r.conns[roomID] {
		delete(r.identities, c)
	}
	delete(r.conns, roomID)
	delete(r.members, roomID)
}

// identity returns the identity a connection presents as, or nil.
func (r *registry) identity(conn Conn) *Identity {
	return r.identities[conn]
}

// roomConns returns a copy of a room's connection list, safe to iterate
// while the registry is being mutated.
func (r *registry) roomConns(roomID string) []Conn {
	conns := r.conns[roomID]
	out := make([]Conn, len(conns))
	copy(out, conns)
	return out
}

// count returns the number of live connections in a room.
func (r *registry) count(roomID string) int {
	return len(r.conns[roomID])
}

// identityByName finds a live identity holding the exact display name in a
// room, or nil.
func (r *registry) identityByName(roomID, name string) *Identity {
	for _, c := range r.conns[roomID] {
		if id := r.identities[c]; id != nil && id.Name == name {
			return id
		}
	}
	return nil
}

// siblingConns returns the other connections in a room sharing an identity id.
func (r *registry) siblingConns(roomID, identityID string, except Conn) []Conn {
	var out []Conn
	for _, c := range r.conns[roomID] {
		if c == except {
			continue
		}
		if id := r.identities[c]; id != nil && id.ID == identityID {
			out = append(out, c)
		}
	}
	return out
}

// membersInOrder returns each distinct identity in a room once, in admission
// order.
func (r *registry) membersInOrder(roomID string) []Identity {
	seen := make(map[string]struct{})
	var out []Identity
	for _, c := range r.conns[roomID] {
		id := r.identities[c]
		if id == nil {
			continue
		}
		if _, ok := seen[id.ID]; ok {
			continue
		}
		seen[id.ID] = struct{}{}
		out = append(out, *id)
	}
	return out
}

// namedCount returns how many connections in a room present a named (non
// guest) identity.
func (r *registry) namedCount(roomID string) int {
	n := 0
	for _, c := range r.conns[roomID] {
		if id := r.identities[c]; id != nil && !id.IsGuest() {
			n++
		}
	}
	return n
}

// guestConns returns the connections in a room presenting guest identities.
func (r *registry) guestConns(roomID string) []Conn {
	var out []Conn
	for _, c := range r.conns[roomID] {
		if id := r.identities[c]; id != nil && id.IsGuest() {
			out = append(out, c)
		}
	}
	return out
}

// roomIDs returns all rooms with at least one live connection.
func (r *registry) roomIDs() []string {
	out := make([]string, 0, len(r.conns))
	for roomID := range r.conns {
		out = append(out, roomID)
	}
	return out
}
