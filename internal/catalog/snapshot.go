package catalog

import (
	"time"
)

// Snapshot is an immutable-once-published view of the full catalog as of one
// rebuild. Readers never observe a half-built snapshot: a new snapshot only
// replaces the old one after the external transform fully succeeds.
type Snapshot struct {
	channels    []Channel
	genres      []string
	lastUpdated time.Time
	sourceURL   string
	guideURLs   []string
}

// NewSnapshot creates a Snapshot from a completed transform result.
func NewSnapshot(channels []Channel, genres []string, sourceURL string, guideURLs []string, lastUpdated time.Time) *Snapshot {
	return &Snapshot{
		channels:    channels,
		genres:      genres,
		lastUpdated: lastUpdated,
		sourceURL:   sourceURL,
		guideURLs:   guideURLs,
	}
}

// Channels returns all channel records in the snapshot.
func (s *Snapshot) Channels() []Channel {
	return s.channels
}

// Genres returns the genre set of the snapshot.
func (s *Snapshot) Genres() []string {
	return s.genres
}

// LastUpdated returns when the snapshot was built.
func (s *Snapshot) LastUpdated() time.Time {
	return s.lastUpdated
}

// SourceURL returns the playlist source URL the snapshot was built from.
func (s *Snapshot) SourceURL() string {
	return s.sourceURL
}

// GuideURLs returns the guide source URLs announced by the playlist.
func (s *Snapshot) GuideURLs() []string {
	return s.guideURLs
}

// Load is the result of the external playlist transform, the raw material for
// a snapshot.
type Load struct {
	Channels  []Channel
	Genres    []string
	GuideURLs []string
}

// EventKind identifies a catalog notification.
type EventKind int

const (
	// EventUpdated signals that a rebuild succeeded and a new snapshot is
	// published.
	EventUpdated EventKind = iota
	// EventError signals that a rebuild attempt failed; the prior snapshot is
	// still in effect.
	EventError
)

// String returns the string representation of an EventKind.
func (k EventKind) String() string {
	switch k {
	case EventUpdated:
		return "updated"
	case EventError:
		return "error"
	default:
		return "unknown"
	}
}

// Event is delivered to registered listeners after a rebuild attempt.
// For EventUpdated, Snapshot is the newly published snapshot; for EventError,
// Err carries the failure and Snapshot the still-current prior snapshot (nil
// when none exists yet).
type Event struct {
	Kind     EventKind
	Snapshot *Snapshot
	Err      error
}
