package driven

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"sync"
	"time"

	"github.com/klauspost/compress/flate"
	"github.com/klauspost/compress/gzip"

	"github.com/avillega/iptv-cache/circuitbreaker"
	"github.com/avillega/iptv-cache/logging"
)

const defaultFetchTimeout = 30 * time.Second

// HTTPFetcher retrieves raw bytes over HTTP with a per-fetch timeout and
// transparent decompression. It implements the driven.Fetcher port.
//
// Guide feeds are commonly served gzip- or deflate-compressed with no
// reliable Content-Encoding header, so the body is decoded by trying gzip,
// then raw deflate, then falling back to the bytes as-is.
//
// Each distinct URL gets its own circuit breaker: a source that keeps
// failing is skipped quickly instead of burning the full timeout on every
// refresh cycle.
type HTTPFetcher struct {
	client     *http.Client
	logger     *logging.Logger
	breakerCfg circuitbreaker.Config

	mu       sync.Mutex
	breakers map[string]circuitbreaker.CircuitBreaker
}

// NewHTTPFetcher creates a new HTTP fetcher. If timeout is zero it defaults
// to 30 seconds. breakerCfg.Logger and breakerCfg.Source are filled in per
// URL.
func NewHTTPFetcher(timeout time.Duration, breakerCfg circuitbreaker.Config, logger *logging.Logger) *HTTPFetcher {
	if timeout <= 0 {
		timeout = defaultFetchTimeout
	}
	return &HTTPFetcher{
		client:     &http.Client{Timeout: timeout},
		logger:     logger,
		breakerCfg: breakerCfg,
		breakers:   make(map[string]circuitbreaker.CircuitBreaker),
	}
}

// Fetch retrieves and decodes the body behind url.
func (f *HTTPFetcher) Fetch(ctx context.Context, url string) ([]byte, error) {
	var body []byte
	err := f.breakerFor(url).Execute(func() error {
		raw, err := f.fetchRaw(ctx, url)
		if err != nil {
			return err
		}
		body = decode(raw)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return body, nil
}

func (f *HTTPFetcher) breakerFor(url string) circuitbreaker.CircuitBreaker {
	f.mu.Lock()
	defer f.mu.Unlock()

	cb, ok := f.breakers[url]
	if !ok {
		cfg := f.breakerCfg
		cfg.Logger = f.logger
		cfg.Source = url
		cb = circuitbreaker.New(cfg)
		f.breakers[url] = cb
	}
	return cb
}

func (f *HTTPFetcher) fetchRaw(ctx context.Context, url string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("creating HTTP request: %w", err)
	}

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetching %s: %w", url, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected HTTP status for %s: %d %s", url, resp.StatusCode, resp.Status)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("reading response body: %w", err)
	}

	return body, nil
}

// decode tries gzip, then raw deflate, then returns the bytes unchanged.
func decode(raw []byte) []byte {
	if gz, err := gzip.NewReader(bytes.NewReader(raw)); err == nil {
		if decoded, err := io.ReadAll(gz); err == nil {
			gz.Close()
			return decoded
		}
		gz.Close()
	}

	fr := flate.NewReader(bytes.NewReader(raw))
	if decoded, err := io.ReadAll(fr); err == nil && len(decoded) > 0 {
		fr.Close()
		return decoded
	}
	fr.Close()

	return raw
}
