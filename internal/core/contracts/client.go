package contracts

import "context"

// Client represents the minimal interface required for the relay to
// deliver frames to an individual transport connection.
type Client interface {
	Send(ctx context.Context, data []byte) error
	Close()
}
