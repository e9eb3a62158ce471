// Package catalog holds the channel-catalog domain: channel records, the
// atomic snapshot that publishes them, and the events emitted when the
// snapshot changes.
package catalog

import (
	"strings"
)

// Channel represents a single catalog channel record. Records are replaced
// wholesale when the catalog is rebuilt, never partially mutated.
type Channel struct {
	id          string
	name        string
	genres      []string
	epgID       string
	logo        string
	poster      string
	background  string
	description string
}

// NewChannel creates a Channel with the given attributes. It validates that
// id and name are not empty and trims whitespace.
// Returns ErrEmptyID or ErrEmptyName on invalid input.
func NewChannel(id, name, epgID string, genres []string, logo, poster, background, description string) (Channel, error) {
	trimmedID := strings.TrimSpace(id)
	if trimmedID == "" {
		return Channel{}, ErrEmptyID
	}

	trimmedName := strings.TrimSpace(name)
	if trimmedName == "" {
		return Channel{}, ErrEmptyName
	}

	return Channel{
		id:          trimmedID,
		name:        trimmedName,
		genres:      genres,
		epgID:       strings.TrimSpace(epgID),
		logo:        strings.TrimSpace(logo),
		poster:      strings.TrimSpace(poster),
		background:  strings.TrimSpace(background),
		description: description,
	}, nil
}

// ID returns the channel's unique identifier.
func (c Channel) ID() string {
	return c.id
}

// Name returns the channel's display name.
func (c Channel) Name() string {
	return c.name
}

// Genres returns the channel's genre set.
func (c Channel) Genres() []string {
	return c.genres
}

// EPGID returns the guide-linkage identifier used to match program data.
func (c Channel) EPGID() string {
	return c.epgID
}

// Logo returns the channel's logo URL.
func (c Channel) Logo() string {
	return c.logo
}

// Poster returns the channel's poster URL.
func (c Channel) Poster() string {
	return c.poster
}

// Background returns the channel's background image URL.
func (c Channel) Background() string {
	return c.background
}

// Description returns the channel's description.
func (c Channel) Description() string {
	return c.description
}

// HasGenre reports whether the channel's genre set contains the literal genre
// string.
func (c Channel) HasGenre(genre string) bool {
	for _, g := range c.genres {
		if g == genre {
			return true
		}
	}
	return false
}
