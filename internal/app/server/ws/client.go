package ws

import (
	"context"
	"errors"
	"sync"
)

// RuntimeClient adapts a websocket to the relay's Client contract: a
// buffered outbound queue drained by one writer goroutine, so a slow
// peer backs up its own queue instead of the broadcaster.
type RuntimeClient struct {
	ctx    context.Context
	cancel context.CancelFunc
	ws     *WebSocket
	out    chan []byte
	once   sync.Once
}

func NewClient(parent context.Context, ws *WebSocket, sendBuffer int) *RuntimeClient {
	ctx, cancel := context.WithCancel(parent)
	c := &RuntimeClient{
		ctx:    ctx,
		cancel: cancel,
		ws:     ws,
		out:    make(chan []byte, sendBuffer),
	}
	go c.writeLoop()
	return c
}

// Send enqueues without blocking: a peer that stopped draining its
// queue loses frames rather than stalling the broadcast to everyone
// else.
func (c *RuntimeClient) Send(ctx context.Context, data []byte) error {
	select {
	case <-c.ctx.Done():
		return errors.New("client closed")
	case <-ctx.Done():
		return ctx.Err()
	case c.out <- data:
		return nil
	default:
		return errors.New("send queue full")
	}
}

// Close is safe against concurrent Send: the queue is never closed,
// only the context is cancelled, so a Send racing a Close degrades to
// an error instead of a panic. The queue itself is reclaimed with the
// client once every sender has returned.
func (c *RuntimeClient) Close() {
	c.once.Do(func() {
		c.cancel()
		c.ws.Close()
	})
}

func (c *RuntimeClient) writeLoop() {
	defer c.Close()
	for {
		select {
		case <-c.ctx.Done():
			return
		case data := <-c.out:
			_ = c.ws.WriteMessage(data)
		}
	}
}
