// Package normalize canonicalizes channel identifiers. The normalized form is
// the join key between the channel catalog and the program guide, which come
// from independently formatted sources, so every lookup in either dataset must
// go through ID before comparing.
package normalize

import "strings"

// ID returns the canonical form of a channel identifier: lowercase, keeping
// only word characters and literal dots. An empty or absent identifier
// normalizes to "". The function is pure and idempotent.
func ID(raw string) string {
	raw = strings.ToLower(strings.TrimSpace(raw))
	if raw == "" {
		return ""
	}

	var sb strings.Builder
	sb.Grow(len(raw))
	for _, r := range raw {
		switch {
		case r >= 'a' && r <= 'z':
			sb.WriteRune(r)
		case r >= '0' && r <= '9':
			sb.WriteRune(r)
		case r == '_' || r == '.':
			sb.WriteRune(r)
		}
	}
	return sb.String()
}

// Normalizer canonicalizes identifiers with an optional configured suffix,
// allowing suffix-insensitive comparison between sources that disagree on
// whether ids carry a country suffix (e.g. "rai1" vs "rai1.it").
type Normalizer struct {
	suffix string
}

// New creates a Normalizer. The suffix, if not empty, is normalized itself so
// comparisons stay consistent.
func New(suffix string) Normalizer {
	return Normalizer{suffix: ID(suffix)}
}

// ID returns the canonical form of raw.
func (n Normalizer) ID(raw string) string {
	return ID(raw)
}

// StripSuffix returns the canonical form of raw with the configured suffix
// removed, when present.
func (n Normalizer) StripSuffix(raw string) string {
	id := ID(raw)
	if n.suffix != "" {
		id = strings.TrimSuffix(id, n.suffix)
	}
	return id
}

// WithSuffix returns the canonical form of raw with the configured suffix
// appended, when not already present.
func (n Normalizer) WithSuffix(raw string) string {
	id := ID(raw)
	if id == "" || n.suffix == "" {
		return id
	}
	if strings.HasSuffix(id, n.suffix) {
		return id
	}
	return id + n.suffix
}
