package audit

import (
	"context"
	"time"
)

// Engine scores one URL under one device profile.
type Engine interface {
	Audit(ctx context.Context, req EngineRequest) (Report, error)
}

// TabularStore appends ordered rows to a spreadsheet-like destination.
type TabularStore interface {
	Append(ctx context.Context, row []any) error
}

// BlobStore writes raw artifacts and returns a URI.
type BlobStore interface {
	PutObject(ctx context.Context, path string, contentType string, data []byte) (string, error)
	// URL returns the address an object at path will be reachable at.
	URL(path string) string
}

// Publisher pushes completion events to Pub/Sub (or similar).
type Publisher interface {
	Publish(ctx context.Context, topic string, payload any) (string, error)
}

// KeyDeriver maps a URL to its short stable key.
type KeyDeriver interface {
	Key(url string) string
}

// Clock returns the current time (useful for testing).
type Clock interface {
	Now() time.Time
}

// IDGenerator produces batch run IDs.
type IDGenerator interface {
	NewID() (string, error)
}
