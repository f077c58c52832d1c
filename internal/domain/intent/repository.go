package intent

import "context"

// Store is the durable repository of exit intents.
//
// Concurrency contract: single writer, serialized through the monitor's
// control path. Readers outside that path may observe a stale snapshot.
type Store interface {
	// LoadAll returns every persisted intent. On a corrupt document it
	// returns an empty set together with an error wrapping
	// ErrCorruptStore; it never refuses to start.
	LoadAll(ctx context.Context) ([]*ExitIntent, error)

	// SaveAll atomically replaces the persisted document with the given
	// intents (write-temp-then-rename).
	SaveAll(ctx context.Context, intents []*ExitIntent) error

	// Upsert inserts or replaces a single intent by ID.
	Upsert(ctx context.Context, it *ExitIntent) error
}
