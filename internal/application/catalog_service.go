package application

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/avillega/iptv-cache/config"
	"github.com/avillega/iptv-cache/internal/catalog"
	"github.com/avillega/iptv-cache/internal/normalize"
	"github.com/avillega/iptv-cache/internal/port/driven"
	"github.com/avillega/iptv-cache/logging"
	"github.com/avillega/iptv-cache/metrics"
)

// filterKind identifies the last applied channel filter.
type filterKind int

const (
	filterNone filterKind = iota
	filterGenre
	filterSearch
)

// CatalogService owns the channel-catalog snapshot and its durable store.
// The snapshot is replaced wholesale by Rebuild and never partially mutated;
// readers always observe either the prior complete snapshot or the new one.
type CatalogService struct {
	transformer driven.PlaylistTransformer
	repo        driven.CatalogRepository
	norm        normalize.Normalizer
	logger      *logging.Logger

	routingPrefix  string
	updateInterval time.Duration

	rebuilding atomic.Bool

	mu          sync.RWMutex
	snapshot    *catalog.Snapshot
	lastFilter  filterKind
	lastVal     string
	listeners   []func(catalog.Event)
	listenersMu sync.Mutex

	now func() time.Time
}

// NewCatalogService creates a catalog service. updateInterval is the "HH:MM"
// staleness interval; a malformed value falls back to the 12h default with a
// warning.
func NewCatalogService(
	transformer driven.PlaylistTransformer,
	repo driven.CatalogRepository,
	norm normalize.Normalizer,
	routingPrefix string,
	updateInterval string,
	logger *logging.Logger,
) *CatalogService {
	s := &CatalogService{
		transformer:   transformer,
		repo:          repo,
		norm:          norm,
		logger:        logger,
		routingPrefix: routingPrefix,
		now:           time.Now,
	}
	s.SetUpdateInterval(updateInterval)
	return s
}

// SetUpdateInterval re-parses the "HH:MM" staleness interval, falling back to
// the default on malformed input.
func (s *CatalogService) SetUpdateInterval(interval string) {
	d, err := config.ParseUpdateInterval(interval)
	if err != nil {
		s.logger.Warn("Malformed catalog update interval, using default", map[string]interface{}{
			"interval": interval,
			"default":  config.DefaultUpdateInterval.String(),
			"error":    err.Error(),
		})
	}
	s.mu.Lock()
	s.updateInterval = d
	s.mu.Unlock()
}

// Start loads the last persisted snapshot so queries can be served before the
// first rebuild. A missing snapshot is not an error; a persistence failure is
// logged and the service starts empty.
func (s *CatalogService) Start(ctx context.Context) error {
	snap, err := s.repo.LoadSnapshot(ctx)
	if err != nil {
		if errors.Is(err, catalog.ErrNoSnapshot) {
			return nil
		}
		s.logger.Error("Failed to load persisted catalog snapshot", map[string]interface{}{
			"error": err.Error(),
		})
		return nil
	}

	s.mu.Lock()
	s.snapshot = snap
	s.mu.Unlock()

	metrics.SetChannelsCached(len(snap.Channels()))
	s.logger.Info("Loaded persisted catalog snapshot", map[string]interface{}{
		"channels":     len(snap.Channels()),
		"last_updated": snap.LastUpdated().Format(time.RFC3339),
	})
	return nil
}

// OnEvent registers a listener for rebuild notifications. Listeners only
// ever observe a fully built snapshot.
func (s *CatalogService) OnEvent(fn func(catalog.Event)) {
	s.listenersMu.Lock()
	defer s.listenersMu.Unlock()
	s.listeners = append(s.listeners, fn)
}

func (s *CatalogService) notify(ev catalog.Event) {
	s.listenersMu.Lock()
	listeners := make([]func(catalog.Event), len(s.listeners))
	copy(listeners, s.listeners)
	s.listenersMu.Unlock()

	for _, fn := range listeners {
		fn(ev)
	}
}

// Rebuild runs the external playlist transform and, on success, publishes and
// persists a new snapshot. A concurrent call while one rebuild is in progress
// is dropped and returns catalog.ErrRebuildRunning without side effects. On
// transform failure the prior snapshot, in memory and durable, is left
// untouched.
func (s *CatalogService) Rebuild(ctx context.Context, url string) error {
	if strings.TrimSpace(url) == "" {
		return catalog.ErrEmptyURL
	}
	if !s.rebuilding.CompareAndSwap(false, true) {
		metrics.RecordSingleFlightDrop("catalog")
		return catalog.ErrRebuildRunning
	}
	defer s.rebuilding.Store(false)

	started := s.now()

	load, err := s.transformer.Transform(ctx, url)
	if err != nil {
		metrics.RecordCatalogRebuild(metrics.OutcomeError)
		s.logger.LogCatalogRebuildFailed(url, err)
		s.notify(catalog.Event{Kind: catalog.EventError, Snapshot: s.Snapshot(), Err: err})
		return fmt.Errorf("catalog rebuild: %w", err)
	}

	snap := catalog.NewSnapshot(load.Channels, load.Genres, url, load.GuideURLs, s.now())

	s.mu.Lock()
	s.snapshot = snap
	s.mu.Unlock()

	// Write through before acknowledging; a persistence failure must not
	// block serving the fresh in-memory snapshot.
	if err := s.repo.ReplaceSnapshot(ctx, snap); err != nil {
		s.logger.Error("Failed to persist catalog snapshot", map[string]interface{}{
			"error": err.Error(),
		})
	}

	metrics.RecordCatalogRebuild(metrics.OutcomeSuccess)
	metrics.SetChannelsCached(len(snap.Channels()))
	s.logger.LogCatalogRebuilt(len(snap.Channels()), len(snap.Genres()), s.now().Sub(started))
	s.notify(catalog.Event{Kind: catalog.EventUpdated, Snapshot: snap})
	return nil
}

// IsRebuilding reports whether a rebuild is currently in progress.
func (s *CatalogService) IsRebuilding() bool {
	return s.rebuilding.Load()
}

// Snapshot returns the current snapshot, or nil when none has been built or
// loaded yet.
func (s *CatalogService) Snapshot() *catalog.Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.snapshot
}

// IsStale reports whether the catalog needs a rebuild: true when no snapshot
// exists, or when the configured interval has elapsed since the last one.
func (s *CatalogService) IsStale() bool {
	s.mu.RLock()
	snap := s.snapshot
	interval := s.updateInterval
	s.mu.RUnlock()

	if snap == nil {
		return true
	}
	return s.now().Sub(snap.LastUpdated()) >= interval
}

// GetChannel resolves a channel by identifier. The raw id is stripped of the
// routing prefix and normalized, then matched in order against channel id,
// guide-linkage id, and name; the first hit wins.
func (s *CatalogService) GetChannel(rawID string) (catalog.Channel, error) {
	snap := s.Snapshot()
	if snap == nil {
		return catalog.Channel{}, catalog.ErrChannelNotFound
	}

	trimmed := strings.TrimPrefix(strings.TrimSpace(rawID), s.routingPrefix)
	want := s.norm.StripSuffix(trimmed)
	if want == "" {
		return catalog.Channel{}, catalog.ErrChannelNotFound
	}

	for _, ch := range snap.Channels() {
		if s.norm.StripSuffix(ch.ID()) == want {
			return ch, nil
		}
	}
	for _, ch := range snap.Channels() {
		if epgID := ch.EPGID(); epgID != "" && s.norm.StripSuffix(epgID) == want {
			return ch, nil
		}
	}
	for _, ch := range snap.Channels() {
		if s.norm.StripSuffix(ch.Name()) == want {
			return ch, nil
		}
	}

	return catalog.Channel{}, catalog.ErrChannelNotFound
}

// ChannelsByGenre returns channels whose genre set contains the literal
// genre string, and remembers the filter for FilteredChannels.
func (s *CatalogService) ChannelsByGenre(genre string) []catalog.Channel {
	s.mu.Lock()
	s.lastFilter = filterGenre
	s.lastVal = genre
	s.mu.Unlock()

	return s.channelsByGenre(genre)
}

func (s *CatalogService) channelsByGenre(genre string) []catalog.Channel {
	snap := s.Snapshot()
	if snap == nil {
		return []catalog.Channel{}
	}

	result := []catalog.Channel{}
	for _, ch := range snap.Channels() {
		if ch.HasGenre(genre) {
			result = append(result, ch)
		}
	}
	return result
}

// SearchChannels returns channels whose normalized name contains the
// normalized query; an empty query matches all. The filter is remembered for
// FilteredChannels.
func (s *CatalogService) SearchChannels(query string) []catalog.Channel {
	s.mu.Lock()
	s.lastFilter = filterSearch
	s.lastVal = query
	s.mu.Unlock()

	return s.searchChannels(query)
}

func (s *CatalogService) searchChannels(query string) []catalog.Channel {
	snap := s.Snapshot()
	if snap == nil {
		return []catalog.Channel{}
	}

	want := normalize.ID(query)
	result := []catalog.Channel{}
	for _, ch := range snap.Channels() {
		if want == "" || strings.Contains(normalize.ID(ch.Name()), want) {
			result = append(result, ch)
		}
	}
	return result
}

// FilteredChannels replays the last applied genre or search filter. With no
// filter applied yet it returns all channels.
func (s *CatalogService) FilteredChannels() []catalog.Channel {
	s.mu.RLock()
	kind, val := s.lastFilter, s.lastVal
	s.mu.RUnlock()

	switch kind {
	case filterGenre:
		return s.channelsByGenre(val)
	case filterSearch:
		return s.searchChannels(val)
	default:
		snap := s.Snapshot()
		if snap == nil {
			return []catalog.Channel{}
		}
		return snap.Channels()
	}
}

// Genres returns the genre set of the current snapshot.
func (s *CatalogService) Genres() []string {
	snap := s.Snapshot()
	if snap == nil {
		return []string{}
	}
	return snap.Genres()
}

// ChannelCount returns the number of channels in the current snapshot.
func (s *CatalogService) ChannelCount() int {
	snap := s.Snapshot()
	if snap == nil {
		return 0
	}
	return len(snap.Channels())
}

// LastUpdated returns when the current snapshot was built, or the zero time
// when none exists.
func (s *CatalogService) LastUpdated() time.Time {
	snap := s.Snapshot()
	if snap == nil {
		return time.Time{}
	}
	return snap.LastUpdated()
}
