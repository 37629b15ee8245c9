package contracts

import (
	"context"

	"github.com/Ranjeet550/kodeshare-relay/internal/core/domain"
)

// DocumentStore is the external persistence collaborator. The relay
// never owns snippet records; it hydrates from here on first join and
// writes back debounced snapshots.
type DocumentStore interface {
	// FetchDocument returns the record behind roomID, or
	// domain.ErrDocumentNotFound.
	FetchDocument(ctx context.Context, roomID string) (*domain.Document, error)
	// CreateDocument is used when a room is joined for the first time
	// and no record exists.
	CreateDocument(ctx context.Context, roomID string, initialContent string) (*domain.Document, error)
	// PersistDocument writes the latest content. Best effort; callers
	// log failures and retry on the next debounce cycle.
	PersistDocument(ctx context.Context, roomID string, content string) error
}
