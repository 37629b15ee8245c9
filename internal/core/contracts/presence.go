package contracts

import (
	"context"
	"time"
)

// For each room, use ZSET to mirror presence info. The mirror is
// operational only: live member counts always come from in-memory
// membership, never from here.
type PresenceMirror interface {
	// MarkOnline sets the TTL-based entry for a connection
	MarkOnline(ctx context.Context, roomID string, connectionID string, ttl time.Duration) error
	// MarkOffline removes a single connection from the room set
	MarkOffline(ctx context.Context, roomID string, connectionID string) error
	// ClearRoom drops the whole set when the room is destroyed
	ClearRoom(ctx context.Context, roomID string) error
}
