package driven

import "context"

// Fetcher defines the interface for retrieving raw bytes from a URL.
// This is a driven port implemented by concrete adapters (e.g., HTTP client
// with per-fetch timeout and transparent decompression).
type Fetcher interface {
	// Fetch retrieves the body behind url. Implementations apply their own
	// per-fetch timeout; ctx bounds the whole operation.
	Fetch(ctx context.Context, url string) ([]byte, error)
}
