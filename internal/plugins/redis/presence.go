package redis

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisPresenceMirror keeps a best-effort copy of room membership in a
// ZSet per room, scored by last-seen time. Nothing reads it on the hot
// path; it exists for operational visibility and as the seam for a
// future multi-node backplane.
type RedisPresenceMirror struct {
	rdb *redis.Client
}

func NewRedisPresenceMirror(rdb *redis.Client) *RedisPresenceMirror {
	return &RedisPresenceMirror{
		rdb: rdb,
	}
}

func (p *RedisPresenceMirror) key(roomID string) string {
	return "presence:" + roomID
}

// MarkOnline adds/updates a connection in the room's ZSet with the
// current timestamp.
func (p *RedisPresenceMirror) MarkOnline(
	ctx context.Context,
	roomID string,
	connectionID string,
	ttl time.Duration,
) error {
	key := p.key(roomID)
	now := time.Now().Unix()

	err := p.rdb.ZAdd(ctx, key, redis.Z{
		Score:  float64(now),
		Member: connectionID,
	}).Err()
	if err != nil {
		return err
	}

	// Expire the whole ZSet so an abandoned room does not leak memory.
	return p.rdb.Expire(ctx, key, ttl*2).Err()
}

// MarkOffline drops a single connection from the room's ZSet.
func (p *RedisPresenceMirror) MarkOffline(ctx context.Context, roomID string, connectionID string) error {
	return p.rdb.ZRem(ctx, p.key(roomID), connectionID).Err()
}

// ClearRoom deletes the entire ZSet when the room is destroyed.
func (p *RedisPresenceMirror) ClearRoom(ctx context.Context, roomID string) error {
	return p.rdb.Del(ctx, p.key(roomID)).Err()
}
