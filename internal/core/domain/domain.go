package domain

import (
	"time"
	"unicode"
)

// Connection represents one live client socket. It is owned exclusively
// by the connection registry; CurrentRoom is kept in sync with room
// membership (a connection belongs to at most one room).
type Connection struct {
	ID          string
	CurrentRoom string
	ConnectedAt time.Time
}

// Joined reports whether the connection currently occupies a room.
func (c *Connection) Joined() bool {
	return c.CurrentRoom != ""
}

// Room represents one document's live collaboration session. A Room
// exists only while it has members; the registry drops it the instant
// the member set empties.
type Room struct {
	ID               string
	Members          map[string]struct{} // connection ids
	LastKnownContent string
	Language         string
	Title            string
	CreatedAt        time.Time
}

// ChangeEvent is a transient message relayed to the other members of a
// room; it exists only for the duration of fan-out dispatch.
type ChangeEvent struct {
	RoomID             string
	OriginConnectionID string
	Payload            string
}

// Document is the persistent snippet record behind a room, owned by the
// external document store.
type Document struct {
	ID        string
	Content   string
	Language  string
	Title     string
	CreatedAt time.Time
	UpdatedAt time.Time
}

const maxRoomIDLen = 128

// ValidRoomID reports whether id is acceptable as a room identifier
// (the document's public id: a custom slug or storage id).
func ValidRoomID(id string) bool {
	if id == "" || len(id) > maxRoomIDLen {
		return false
	}
	for _, r := range id {
		if unicode.IsSpace(r) || unicode.IsControl(r) {
			return false
		}
	}
	return true
}
