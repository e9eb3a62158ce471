package driven

import (
	"context"

	"github.com/avillega/iptv-cache/internal/catalog"
)

// PlaylistTransformer defines the interface to the external playlist-to-channel
// transform. The transform downloads the playlist behind url and converts its
// entries into catalog channels, the genre set, and any guide URLs the
// playlist announces. Transform configuration is bound at adapter construction.
type PlaylistTransformer interface {
	// Transform runs the external transform for url. It either fully succeeds
	// or returns an error; partial results are never returned.
	Transform(ctx context.Context, url string) (catalog.Load, error)
}
