package services

import (
	"context"
	"encoding/json"
	"log/slog"

	"github.com/Ranjeet550/kodeshare-relay/internal/app/registry"
	"github.com/Ranjeet550/kodeshare-relay/internal/core/domain"
	"github.com/Ranjeet550/kodeshare-relay/pkg/logging"
)

// Relay fans a change event out to every current member of its room
// except the origin. It holds no state of its own: membership is read,
// never mutated, and a dead peer never blocks delivery to healthy ones.
type Relay struct {
	rooms    *Membership
	registry *registry.Registry
	log      *slog.Logger
}

func NewRelay(log *slog.Logger, rooms *Membership, reg *registry.Registry) *Relay {
	return &Relay{
		rooms:    rooms,
		registry: reg,
		log:      log,
	}
}

// Broadcast delivers ev.Payload to all other members of ev.RoomID.
// Per-recipient failures are logged and swallowed.
func (r *Relay) Broadcast(ctx context.Context, ev domain.ChangeEvent) {
	data, _ := json.Marshal(domain.ContentEvent{
		Type:    domain.TypeContent,
		Payload: ev.Payload,
	})
	for _, id := range r.rooms.Members(ev.RoomID) {
		if id == ev.OriginConnectionID {
			continue
		}
		r.deliver(ctx, id, ev.RoomID, data)
	}
}

// Announce pushes the current member count to every member of the room,
// the triggering connection included.
func (r *Relay) Announce(ctx context.Context, roomID string, count int) {
	data, _ := json.Marshal(domain.MembersEvent{
		Type:  domain.TypeMembers,
		Count: count,
	})
	for _, id := range r.rooms.Members(roomID) {
		r.deliver(ctx, id, roomID, data)
	}
}

func (r *Relay) deliver(ctx context.Context, connectionID, roomID string, data []byte) {
	c := r.registry.Client(connectionID)
	if c == nil {
		// unregistered mid-broadcast; the disconnect path cleans up
		return
	}
	if err := c.Send(ctx, data); err != nil {
		r.log.WarnContext(ctx, "relay - deliver - send to peer failed",
			logging.Room(roomID), logging.Conn(connectionID), logging.Err(err))
	}
}
