package driven

import (
	"context"

	"github.com/avillega/iptv-cache/internal/catalog"
)

// CatalogRepository defines the interface for durable catalog persistence.
// This is a driven port implemented by concrete adapters (e.g., BoltDB).
// Writes are whole-snapshot replacements, never partial updates.
type CatalogRepository interface {
	// ReplaceSnapshot atomically replaces all stored channel and genre rows
	// plus the snapshot metadata with the contents of snap.
	ReplaceSnapshot(ctx context.Context, snap *catalog.Snapshot) error

	// LoadSnapshot reads back the last persisted snapshot. Returns
	// catalog.ErrNoSnapshot if nothing has been persisted yet.
	LoadSnapshot(ctx context.Context) (*catalog.Snapshot, error)

	// Ping checks if the repository is accessible and operational.
	Ping(ctx context.Context) error
}
