package services

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/Ranjeet550/kodeshare-relay/internal/core/contracts"
	"github.com/Ranjeet550/kodeshare-relay/pkg/logging"
)

type pendingWrite struct {
	payload string
	gen     uint64
	timer   *time.Timer
}

// Debouncer collapses persistence calls per room: only the most recent
// payload inside the quiet window is written, so a burst of changes
// produces exactly one write after the burst ends. Flush forces the
// write out immediately when a room is about to be destroyed.
type Debouncer struct {
	mu      sync.Mutex
	window  time.Duration
	store   contracts.DocumentStore
	log     *slog.Logger
	pending map[string]*pendingWrite
	gen     uint64
}

func NewDebouncer(log *slog.Logger, store contracts.DocumentStore, window time.Duration) *Debouncer {
	return &Debouncer{
		window:  window,
		store:   store,
		log:     log,
		pending: make(map[string]*pendingWrite),
	}
}

// Schedule replaces the room's pending payload and restarts its quiet
// window. Each arming carries a generation so a timer callback that
// already expired but is still waiting on the lock cannot consume the
// payload that superseded it.
func (d *Debouncer) Schedule(roomID, payload string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if p, ok := d.pending[roomID]; ok {
		p.timer.Stop()
	}
	d.armLocked(roomID, payload)
}

func (d *Debouncer) armLocked(roomID, payload string) {
	d.gen++
	gen := d.gen
	p := &pendingWrite{payload: payload, gen: gen}
	p.timer = time.AfterFunc(d.window, func() { d.fire(roomID, gen) })
	d.pending[roomID] = p
}

// Flush writes the room's pending payload immediately, if any. Called
// when the last member leaves so the final edit is not lost to a timer
// that would otherwise never matter again.
func (d *Debouncer) Flush(ctx context.Context, roomID string) {
	d.mu.Lock()
	p, ok := d.pending[roomID]
	if !ok {
		d.mu.Unlock()
		return
	}
	p.timer.Stop()
	payload := p.payload
	delete(d.pending, roomID)
	d.mu.Unlock()

	d.persist(ctx, roomID, payload)
}

func (d *Debouncer) fire(roomID string, gen uint64) {
	d.mu.Lock()
	p, ok := d.pending[roomID]
	if !ok || p.gen != gen {
		// flushed or replaced between timer fire and lock acquisition
		d.mu.Unlock()
		return
	}
	payload := p.payload
	delete(d.pending, roomID)
	d.mu.Unlock()

	// store calls never run under the lock or on a caller's goroutine
	d.persist(context.Background(), roomID, payload)
}

func (d *Debouncer) persist(ctx context.Context, roomID, payload string) {
	if err := d.store.PersistDocument(ctx, roomID, payload); err != nil {
		d.log.ErrorContext(ctx, "debouncer - persist - document write failed",
			logging.Room(roomID), logging.Err(err))
		// re-arm so the payload is retried at the next cycle unless a
		// newer change superseded it meanwhile
		d.mu.Lock()
		if _, ok := d.pending[roomID]; !ok {
			d.armLocked(roomID, payload)
		}
		d.mu.Unlock()
		return
	}
	d.log.DebugContext(ctx, "debouncer - persist - document write success",
		logging.Room(roomID))
}

// PendingRooms reports how many rooms currently have an unwritten edit.
func (d *Debouncer) PendingRooms() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.pending)
}
