package driven

import (
	"context"
	"time"

	"github.com/avillega/iptv-cache/internal/guide"
)

// GuideRepository defines the interface for durable program-guide persistence.
// This is a driven port implemented by concrete adapters (e.g., BoltDB).
// Channel ids passed to query methods must already be normalized.
type GuideRepository interface {
	// Clear removes all program and icon rows.
	Clear(ctx context.Context) error

	// InsertPrograms persists one ingestion batch of programs.
	InsertPrograms(ctx context.Context, programs []guide.Program) error

	// PutIcon upserts the icon for a channel; later writes win.
	PutIcon(ctx context.Context, icon guide.Icon) error

	// Icon retrieves the icon for a channel. Returns guide.ErrIconNotFound
	// if no icon is stored for the id.
	Icon(ctx context.Context, channelID string) (guide.Icon, error)

	// CurrentProgram returns the program whose interval contains now for the
	// channel. Returns guide.ErrProgramNotFound when none matches.
	CurrentProgram(ctx context.Context, channelID string, now time.Time) (guide.Program, error)

	// UpcomingPrograms returns up to limit programs with start >= now for the
	// channel, ascending by start.
	UpcomingPrograms(ctx context.Context, channelID string, now time.Time, limit int) ([]guide.Program, error)

	// DeleteExpired removes programs whose stop precedes olderThan and
	// returns how many rows were deleted.
	DeleteExpired(ctx context.Context, olderThan time.Time) (int, error)

	// CountPrograms returns the number of stored program rows.
	CountPrograms(ctx context.Context) (int, error)

	// LastUpdate returns when the guide was last successfully refreshed, or
	// the zero time if never.
	LastUpdate(ctx context.Context) (time.Time, error)

	// SetLastUpdate records a successful refresh instant.
	SetLastUpdate(ctx context.Context, t time.Time) error

	// Ping checks if the repository is accessible and operational.
	Ping(ctx context.Context) error
}
