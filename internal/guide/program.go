// Package guide holds the program-guide domain: time-bounded program entries
// keyed by normalized channel id, and channel icons.
package guide

import (
	"strings"
	"time"
)

// Program represents one program interval for a channel. Its natural identity
// is (channel id, start, stop); storage may back it with a surrogate key.
type Program struct {
	channelID   string
	start       time.Time
	stop        time.Time
	title       string
	description string
	category    string
}

// NewProgram creates a Program. The channel id must already be normalized by
// the caller. It validates that the id is not empty and that start precedes
// stop.
// Returns ErrEmptyChannelID or ErrInvalidInterval on invalid input.
func NewProgram(channelID string, start, stop time.Time, title, description, category string) (Program, error) {
	trimmedID := strings.TrimSpace(channelID)
	if trimmedID == "" {
		return Program{}, ErrEmptyChannelID
	}
	if !start.Before(stop) {
		return Program{}, ErrInvalidInterval
	}

	return Program{
		channelID:   trimmedID,
		start:       start,
		stop:        stop,
		title:       strings.TrimSpace(title),
		description: strings.TrimSpace(description),
		category:    strings.TrimSpace(category),
	}, nil
}

// ChannelID returns the normalized channel id the program belongs to.
func (p Program) ChannelID() string {
	return p.channelID
}

// Start returns the program's start instant.
func (p Program) Start() time.Time {
	return p.start
}

// Stop returns the program's stop instant.
func (p Program) Stop() time.Time {
	return p.stop
}

// Title returns the program's title.
func (p Program) Title() string {
	return p.title
}

// Description returns the program's description.
func (p Program) Description() string {
	return p.description
}

// Category returns the program's category.
func (p Program) Category() string {
	return p.category
}

// Airing reports whether the program's interval contains the given instant.
// The interval is half open: start is included, stop is not, so two adjacent
// programs never both air at the boundary.
func (p Program) Airing(now time.Time) bool {
	return !now.Before(p.start) && now.Before(p.stop)
}

// Icon maps a normalized channel id to its icon URL. At most one icon exists
// per id; later writes win.
type Icon struct {
	ChannelID string
	URL       string
}
