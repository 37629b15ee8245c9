package services

import (
	"log/slog"
	"sync"
	"time"

	"github.com/Ranjeet550/kodeshare-relay/internal/app/registry"
	"github.com/Ranjeet550/kodeshare-relay/internal/core/domain"
	"github.com/Ranjeet550/kodeshare-relay/pkg/logging"
)

// LeaveInfo reports the outcome of removing a connection from its room.
// Left is false when the connection was not joined anywhere.
type LeaveInfo struct {
	RoomID  string
	Members int
	Left    bool
}

// JoinResult reports the outcome of a join: the new member count,
// whether the room was created by this join (hydration trigger), and
// the room implicitly left when the connection switched rooms.
type JoinResult struct {
	Members  int
	Created  bool
	Switched LeaveInfo
}

// RoomSnapshot is a read-only view of a room's document state.
type RoomSnapshot struct {
	RoomID   string
	Members  int
	Content  string
	Language string
	Title    string
}

// Membership owns the roomID → Room mapping and its join/leave
// transitions. A single mutex serializes every room mutation; rooms are
// created lazily on first join and dropped the instant they empty, so
// no room exists with zero members at rest.
type Membership struct {
	mu       sync.RWMutex
	rooms    map[string]*domain.Room
	seeding  map[string]chan struct{}
	registry *registry.Registry
	log      *slog.Logger
}

func NewMembership(log *slog.Logger, reg *registry.Registry) *Membership {
	return &Membership{
		rooms:    make(map[string]*domain.Room),
		seeding:  make(map[string]chan struct{}),
		registry: reg,
		log:      log,
	}
}

// Join adds the connection to roomID. Joining the room it already
// occupies is idempotent. If the connection occupied a different room
// it is removed from there first and Switched carries that room's
// leave accounting.
func (m *Membership) Join(roomID, connectionID string) (JoinResult, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	conn, ok := m.registry.Get(connectionID)
	if !ok {
		return JoinResult{}, domain.ErrConnectionNotFound
	}

	if conn.CurrentRoom == roomID {
		return JoinResult{Members: m.countLocked(roomID)}, nil
	}

	var res JoinResult
	if conn.CurrentRoom != "" {
		res.Switched = m.removeLocked(conn.CurrentRoom, connectionID)
	}

	room, exists := m.rooms[roomID]
	if !exists {
		room = &domain.Room{
			ID:        roomID,
			Members:   make(map[string]struct{}),
			CreatedAt: time.Now(),
		}
		m.rooms[roomID] = room
		// latch created under the same lock as the room, so a join that
		// observes the room also observes its in-flight hydration
		m.seeding[roomID] = make(chan struct{})
		res.Created = true
	}
	room.Members[connectionID] = struct{}{}
	m.registry.SetRoom(connectionID, roomID)
	res.Members = len(room.Members)
	return res, nil
}

// Leave removes the connection from whatever room it occupies. Unjoined
// connections are a no-op, not an error.
func (m *Membership) Leave(connectionID string) LeaveInfo {
	m.mu.Lock()
	defer m.mu.Unlock()

	conn, ok := m.registry.Get(connectionID)
	if !ok || conn.CurrentRoom == "" {
		return LeaveInfo{}
	}
	info := m.removeLocked(conn.CurrentRoom, connectionID)
	m.registry.SetRoom(connectionID, "")
	return info
}

// removeLocked drops the membership and garbage-collects the room when
// its member set empties. Callers hold m.mu.
func (m *Membership) removeLocked(roomID, connectionID string) LeaveInfo {
	room, ok := m.rooms[roomID]
	if !ok {
		// registry pointed at a room we do not track; self-heal by
		// clearing the stale reference
		m.log.Error("membership - remove - connection referenced unknown room",
			logging.Room(roomID), logging.Conn(connectionID))
		m.registry.SetRoom(connectionID, "")
		return LeaveInfo{}
	}
	delete(room.Members, connectionID)
	count := len(room.Members)
	if count == 0 {
		delete(m.rooms, roomID)
		m.markSeededLocked(roomID)
	}
	return LeaveInfo{RoomID: roomID, Members: count, Left: true}
}

// MarkSeeded releases joins held on Seeding. Called once hydration of
// a freshly created room finished, whatever the outcome.
func (m *Membership) MarkSeeded(roomID string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.markSeededLocked(roomID)
}

func (m *Membership) markSeededLocked(roomID string) {
	if ch, ok := m.seeding[roomID]; ok {
		delete(m.seeding, roomID)
		close(ch)
	}
}

// Seeding returns the channel closed when the room's hydration
// completes, or nil when no hydration is in flight.
func (m *Membership) Seeding(roomID string) <-chan struct{} {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if ch, ok := m.seeding[roomID]; ok {
		return ch
	}
	return nil
}

// MemberCount returns 0 for an unknown room; unknown and empty are
// observably identical.
func (m *Membership) MemberCount(roomID string) int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.countLocked(roomID)
}

func (m *Membership) countLocked(roomID string) int {
	if room, ok := m.rooms[roomID]; ok {
		return len(room.Members)
	}
	return 0
}

// Members returns a copy of the room's member ids.
func (m *Membership) Members(roomID string) []string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	room, ok := m.rooms[roomID]
	if !ok {
		return nil
	}
	ids := make([]string, 0, len(room.Members))
	for id := range room.Members {
		ids = append(ids, id)
	}
	return ids
}

// SetContent records the most recently broadcast document text.
func (m *Membership) SetContent(roomID, content string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	room, ok := m.rooms[roomID]
	if !ok {
		return false
	}
	room.LastKnownContent = content
	return true
}

// SetDocument seeds the room with hydrated document state.
func (m *Membership) SetDocument(roomID string, doc *domain.Document) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	room, ok := m.rooms[roomID]
	if !ok {
		return false
	}
	room.LastKnownContent = doc.Content
	room.Language = doc.Language
	room.Title = doc.Title
	return true
}

// Snapshot returns the room's current document view for join responses.
func (m *Membership) Snapshot(roomID string) (RoomSnapshot, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	room, ok := m.rooms[roomID]
	if !ok {
		return RoomSnapshot{}, false
	}
	return RoomSnapshot{
		RoomID:   roomID,
		Members:  len(room.Members),
		Content:  room.LastKnownContent,
		Language: room.Language,
		Title:    room.Title,
	}, true
}

// Stats returns the live room and member totals.
func (m *Membership) Stats() (rooms, members int) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	rooms = len(m.rooms)
	for _, room := range m.rooms {
		members += len(room.Members)
	}
	return rooms, members
}
