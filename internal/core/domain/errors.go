package domain

import "errors"

var (
	ErrInvalidRoomID      = errors.New("invalid room id")
	ErrDocumentNotFound   = errors.New("document not found")
	ErrConnectionNotFound = errors.New("connection not found")
	ErrNotJoined          = errors.New("connection not joined to any room")
	ErrHydrationFailed    = errors.New("document hydration failed")
)
