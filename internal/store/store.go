// Package store persists scored property lookups keyed by address text.
package store

import (
	"context"

	"github.com/sells-group/lead-qualifier/internal/model"
)

// Store defines the persistence interface for the property cache.
type Store interface {
	// GetEntry returns the cached entry for an address key, or nil when absent.
	GetEntry(ctx context.Context, address string) (*model.CacheEntry, error)
	// PutEntry inserts or replaces an entry. The stored feedback is reset to
	// entry.Feedback, which callers leave nil for fresh fetches.
	PutEntry(ctx context.Context, entry model.CacheEntry) error
	// SetFeedback updates the feedback of an existing entry and reports whether
	// a row matched. It never creates a row.
	SetFeedback(ctx context.Context, address, feedback string) (bool, error)

	// Lifecycle
	Migrate(ctx context.Context) error
	Close() error
}

// Driver names accepted by Open.
const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
)
