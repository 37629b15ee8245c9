package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/Ranjeet550/kodeshare-relay/internal/app/registry"
	"github.com/Ranjeet550/kodeshare-relay/internal/core/contracts"
	"github.com/Ranjeet550/kodeshare-relay/internal/core/domain"
	"github.com/Ranjeet550/kodeshare-relay/pkg/logging"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

var tracer = otel.Tracer("session-coordinator")

// SessionCoordinator is the façade every transport lifecycle event is
// routed through. It wires the registry, room membership and relay
// together, hydrates rooms from the document store on first join, and
// owns the debounced persistence policy. Store calls run off the
// membership critical path; only join hydration failure ever surfaces
// to a client.
type SessionCoordinator struct {
	registry  *registry.Registry
	rooms     *Membership
	relay     *Relay
	debouncer *Debouncer
	store     contracts.DocumentStore
	presence  contracts.PresenceMirror
	tx        contracts.Transactor
	log       *slog.Logger

	presenceTTL time.Duration
}

func NewSessionCoordinator(
	log *slog.Logger,
	reg *registry.Registry,
	rooms *Membership,
	relay *Relay,
	debouncer *Debouncer,
	store contracts.DocumentStore,
	presence contracts.PresenceMirror,
	tx contracts.Transactor,
	presenceTTL time.Duration,
) *SessionCoordinator {
	return &SessionCoordinator{
		registry:    reg,
		rooms:       rooms,
		relay:       relay,
		debouncer:   debouncer,
		store:       store,
		presence:    presence,
		tx:          tx,
		log:         log,
		presenceTTL: presenceTTL,
	}
}

// OnConnect registers the transport client and returns its connection id.
func (c *SessionCoordinator) OnConnect(ctx context.Context, client contracts.Client) string {
	id := c.registry.Register(client)
	c.log.InfoContext(ctx, "coordinator - on connect - connection registered",
		logging.Conn(id), slog.Int("connections", c.registry.Len()))
	return id
}

// OnJoin moves the connection into roomID, hydrating the room from the
// document store when this join created it, and announces the new
// member count to the whole room. The returned snapshot carries the
// count and hydrated content for the join response.
func (c *SessionCoordinator) OnJoin(ctx context.Context, connectionID, roomID string) (RoomSnapshot, error) {
	ctx, span := tracer.Start(ctx, "SessionCoordinator.OnJoin", trace.WithAttributes(
		attribute.String("relay.conn_id", connectionID),
		attribute.String("relay.room_id", roomID),
	))
	defer span.End()

	if !domain.ValidRoomID(roomID) {
		span.RecordError(domain.ErrInvalidRoomID)
		c.log.WarnContext(ctx, "coordinator - on join - malformed room id",
			logging.Room(roomID), logging.Conn(connectionID))
		return RoomSnapshot{}, domain.ErrInvalidRoomID
	}

	res, err := c.rooms.Join(roomID, connectionID)
	if err != nil {
		span.RecordError(err)
		c.log.WarnContext(ctx, "coordinator - on join - join for unknown connection",
			logging.Room(roomID), logging.Conn(connectionID), logging.Err(err))
		return RoomSnapshot{}, err
	}

	// the switch out of the previous room is a full leave: remaining
	// members learn the decrement, an emptied room is flushed and
	// destroyed
	if res.Switched.Left {
		c.afterLeave(ctx, connectionID, res.Switched)
	}

	if res.Created {
		err := c.hydrate(ctx, roomID)
		c.rooms.MarkSeeded(roomID)
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, "hydration failed")
			// undo the failed join, leaving the connection unjoined; a
			// room switch is not unwound, the previous room already saw
			// the leave
			c.rooms.Leave(connectionID)
			c.log.ErrorContext(ctx, "coordinator - on join - hydration failed",
				logging.Room(roomID), logging.Conn(connectionID), logging.Err(err))
			return RoomSnapshot{}, fmt.Errorf("%w: %w", domain.ErrHydrationFailed, err)
		}
	} else if seeding := c.rooms.Seeding(roomID); seeding != nil {
		// another connection created the room and its store fetch is
		// still in flight; hold the join response until content arrived
		// so this member never sees a blank document
		select {
		case <-seeding:
		case <-ctx.Done():
			return RoomSnapshot{}, ctx.Err()
		}
	}

	c.markOnline(ctx, roomID, connectionID)
	c.relay.Announce(ctx, roomID, res.Members)

	snap, ok := c.rooms.Snapshot(roomID)
	if !ok {
		// the room can only vanish here if every member left between
		// the join and this read; treat as a failed join
		span.SetStatus(codes.Error, "room destroyed during join")
		return RoomSnapshot{}, domain.ErrNotJoined
	}
	span.SetAttributes(attribute.Int("relay.members", snap.Members))
	span.SetStatus(codes.Ok, "joined")
	c.log.InfoContext(ctx, "coordinator - on join - joined room",
		logging.Room(roomID), logging.Conn(connectionID), slog.Int("members", snap.Members))
	return snap, nil
}

// OnChange relays the payload to the other members of the connection's
// room and schedules the debounced write-back. Events from unjoined or
// unknown connections are discarded with a log entry, never an error.
func (c *SessionCoordinator) OnChange(ctx context.Context, connectionID, payload string) {
	ctx, span := tracer.Start(ctx, "SessionCoordinator.OnChange", trace.WithAttributes(
		attribute.String("relay.conn_id", connectionID),
		attribute.Int("relay.payload_size", len(payload)),
	))
	defer span.End()

	conn, ok := c.registry.Get(connectionID)
	if !ok || !conn.Joined() {
		c.log.DebugContext(ctx, "coordinator - on change - stale or unjoined event discarded",
			logging.Conn(connectionID))
		return
	}
	roomID := conn.CurrentRoom
	span.SetAttributes(attribute.String("relay.room_id", roomID))

	c.rooms.SetContent(roomID, payload)
	c.relay.Broadcast(ctx, domain.ChangeEvent{
		RoomID:             roomID,
		OriginConnectionID: connectionID,
		Payload:            payload,
	})
	c.debouncer.Schedule(roomID, payload)
}

// OnDisconnect removes the connection from its room, announces the
// decrement to the remaining members, and unregisters. When the room
// empties, the pending debounced write is flushed rather than dropped.
func (c *SessionCoordinator) OnDisconnect(ctx context.Context, connectionID string) {
	ctx, span := tracer.Start(ctx, "SessionCoordinator.OnDisconnect", trace.WithAttributes(
		attribute.String("relay.conn_id", connectionID),
	))
	defer span.End()

	info := c.rooms.Leave(connectionID)
	if info.Left {
		span.SetAttributes(attribute.String("relay.room_id", info.RoomID))
		c.afterLeave(ctx, connectionID, info)
	}
	c.registry.Unregister(connectionID)
	c.log.InfoContext(ctx, "coordinator - on disconnect - connection unregistered",
		logging.Conn(connectionID), slog.Int("connections", c.registry.Len()))
}

// afterLeave runs the shared accounting for explicit disconnects and
// implicit room switches.
func (c *SessionCoordinator) afterLeave(ctx context.Context, connectionID string, info LeaveInfo) {
	c.markOffline(ctx, info.RoomID, connectionID)
	if info.Members == 0 {
		// room destroyed; write the final edit out now
		c.debouncer.Flush(context.WithoutCancel(ctx), info.RoomID)
		c.clearPresence(ctx, info.RoomID)
		c.log.InfoContext(ctx, "coordinator - after leave - room destroyed",
			logging.Room(info.RoomID))
		return
	}
	c.relay.Announce(ctx, info.RoomID, info.Members)
}

// hydrate fetches or lazily creates the document behind a freshly
// created room and seeds its content. Runs in one store transaction so
// concurrent first joins cannot double-create.
func (c *SessionCoordinator) hydrate(ctx context.Context, roomID string) error {
	var doc *domain.Document
	err := c.withTx(ctx, func(txCtx context.Context) error {
		var err error
		doc, err = c.store.FetchDocument(txCtx, roomID)
		if errors.Is(err, domain.ErrDocumentNotFound) {
			doc, err = c.store.CreateDocument(txCtx, roomID, "")
		}
		return err
	})
	if err != nil {
		return err
	}
	c.rooms.SetDocument(roomID, doc)
	c.log.InfoContext(ctx, "coordinator - hydrate - room seeded from store",
		logging.Room(roomID), slog.Int("content_len", len(doc.Content)))
	return nil
}

func (c *SessionCoordinator) withTx(ctx context.Context, fn func(ctx context.Context) error) error {
	if c.tx == nil {
		return fn(ctx)
	}
	return c.tx.WithTx(ctx, fn)
}

// Presence mirror calls are best effort and fire-and-forget: the
// authoritative member counts live in Membership.

func (c *SessionCoordinator) markOnline(ctx context.Context, roomID, connectionID string) {
	if c.presence == nil {
		return
	}
	go func() {
		ctx := context.WithoutCancel(ctx)
		if err := c.presence.MarkOnline(ctx, roomID, connectionID, c.presenceTTL); err != nil {
			c.log.WarnContext(ctx, "coordinator - presence - mark online failed",
				logging.Room(roomID), logging.Conn(connectionID), logging.Err(err))
		}
	}()
}

func (c *SessionCoordinator) markOffline(ctx context.Context, roomID, connectionID string) {
	if c.presence == nil {
		return
	}
	go func() {
		ctx := context.WithoutCancel(ctx)
		if err := c.presence.MarkOffline(ctx, roomID, connectionID); err != nil {
			c.log.WarnContext(ctx, "coordinator - presence - mark offline failed",
				logging.Room(roomID), logging.Conn(connectionID), logging.Err(err))
		}
	}()
}

func (c *SessionCoordinator) clearPresence(ctx context.Context, roomID string) {
	if c.presence == nil {
		return
	}
	go func() {
		ctx := context.WithoutCancel(ctx)
		if err := c.presence.ClearRoom(ctx, roomID); err != nil {
			c.log.WarnContext(ctx, "coordinator - presence - clear room failed",
				logging.Room(roomID), logging.Err(err))
		}
	}()
}
