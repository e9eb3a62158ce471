package application

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/avillega/iptv-cache/config"
	"github.com/avillega/iptv-cache/internal/catalog"
	"github.com/avillega/iptv-cache/internal/guide"
	"github.com/avillega/iptv-cache/logging"
)

const (
	cleanupInterval       = 6 * time.Hour
	stalenessPollInterval = 60 * time.Second
)

// Status is a point-in-time summary of the cache engine.
type Status struct {
	IsUpdating        bool
	CatalogLastUpdate time.Time
	GuideLastUpdate   time.Time
	ChannelCount      int
	ProgramCount      int
	Timezone          string
}

// Facade is the query surface of the cache engine. It serves catalog and
// guide lookups from the current cached state and transparently kicks off a
// background rebuild or refresh when that state has gone stale.
type Facade struct {
	catalog   *CatalogService
	guide     *GuideService
	scheduler *Scheduler
	logger    *logging.Logger

	// cfgMu guards the fields below, replaced by ApplyConfig on the config
	// watcher goroutine while trigger closures and background refreshes
	// read them.
	cfgMu       sync.RWMutex
	sourceURL   string
	guideSource string
	timezone    *time.Location
}

// NewFacade wires the catalog and guide services behind one query surface.
// When the configured guide source is empty, guide URLs announced by the
// playlist take over after each successful rebuild.
func NewFacade(
	catalogSvc *CatalogService,
	guideSvc *GuideService,
	scheduler *Scheduler,
	cfg *config.Config,
	logger *logging.Logger,
) *Facade {
	loc, err := cfg.Location()
	if err != nil {
		logger.Warn("Invalid guide timezone, using UTC", map[string]interface{}{
			"error": err.Error(),
		})
	}

	f := &Facade{
		catalog:     catalogSvc,
		guide:       guideSvc,
		scheduler:   scheduler,
		logger:      logger,
		sourceURL:   cfg.Catalog.PlaylistURL,
		guideSource: cfg.Guide.Source,
		timezone:    loc,
	}

	catalogSvc.OnEvent(f.onCatalogEvent)
	return f
}

// onCatalogEvent adopts playlist-announced guide URLs when no explicit guide
// source is configured.
func (f *Facade) onCatalogEvent(ev catalog.Event) {
	if ev.Kind != catalog.EventUpdated || ev.Snapshot == nil {
		return
	}
	f.cfgMu.RLock()
	configured := f.guideSource
	f.cfgMu.RUnlock()
	if configured != "" {
		return
	}
	urls := ev.Snapshot.GuideURLs()
	if len(urls) == 0 {
		return
	}
	f.guide.SetSource(strings.Join(urls, ","))
	f.logger.Info("Adopted guide sources from playlist", map[string]interface{}{
		"sources": len(urls),
	})
}

// Start loads persisted state and brings stale state up to date in the
// background, then installs the periodic triggers.
func (f *Facade) Start(ctx context.Context, cfg *config.Config) error {
	if err := f.catalog.Start(ctx); err != nil {
		return err
	}

	if f.catalog.IsStale() {
		go f.rebuildInBackground()
	}
	if f.guide.NeedsUpdate(ctx) {
		go f.refreshGuideInBackground()
	}

	f.registerTriggers(cfg)
	return nil
}

// ApplyConfig takes over a reloaded configuration: source values and the
// staleness interval are updated and every periodic trigger is re-registered,
// canceling its prior registration.
func (f *Facade) ApplyConfig(cfg *config.Config) {
	f.cfgMu.Lock()
	f.sourceURL = cfg.Catalog.PlaylistURL
	f.guideSource = cfg.Guide.Source
	if loc, err := cfg.Location(); err == nil {
		f.timezone = loc
	}
	f.cfgMu.Unlock()

	f.catalog.SetUpdateInterval(cfg.Catalog.UpdateInterval)
	if cfg.Guide.Source != "" {
		f.guide.SetSource(cfg.Guide.Source)
	}

	f.registerTriggers(cfg)
}

func (f *Facade) registerTriggers(cfg *config.Config) {
	f.cfgMu.RLock()
	loc := f.timezone
	f.cfgMu.RUnlock()

	hour, minute := cfg.RefreshClock()
	f.scheduler.RegisterDailyAt(TriggerGuideRefresh, hour, minute, loc, func() {
		f.refreshGuideInBackground()
	})
	f.scheduler.RegisterEvery(TriggerCleanup, cleanupInterval, func() {
		f.guide.CleanupExpired(context.Background())
	})
	f.scheduler.RegisterEvery(TriggerStalenessPoll, stalenessPollInterval, func() {
		if f.catalog.Snapshot() == nil || !f.catalog.IsStale() {
			return
		}
		f.rebuildInBackground()
	})
}

func (f *Facade) rebuildInBackground() {
	f.cfgMu.RLock()
	url := f.sourceURL
	f.cfgMu.RUnlock()

	if err := f.catalog.Rebuild(context.Background(), url); err != nil && err != catalog.ErrRebuildRunning {
		f.logger.Error("Background catalog rebuild failed", map[string]interface{}{
			"error": err.Error(),
		})
	}
}

func (f *Facade) refreshGuideInBackground() {
	if err := f.guide.Refresh(context.Background()); err != nil && err != guide.ErrRefreshRunning {
		f.logger.Error("Background guide refresh failed", map[string]interface{}{
			"error": err.Error(),
		})
	}
}

// maybeRefresh kicks off background updates for whichever side of the cache
// has gone stale. Queries keep serving the current data meanwhile.
func (f *Facade) maybeRefresh(ctx context.Context) {
	if f.catalog.IsStale() {
		go f.rebuildInBackground()
	}
	if f.guide.NeedsUpdate(ctx) {
		go f.refreshGuideInBackground()
	}
}

// GetChannel resolves a channel by id, guide linkage or name.
func (f *Facade) GetChannel(ctx context.Context, id string) (catalog.Channel, error) {
	f.maybeRefresh(ctx)
	return f.catalog.GetChannel(id)
}

// ChannelsByGenre lists channels carrying the genre.
func (f *Facade) ChannelsByGenre(ctx context.Context, genre string) []catalog.Channel {
	f.maybeRefresh(ctx)
	return f.catalog.ChannelsByGenre(genre)
}

// SearchChannels lists channels whose name matches the query; an empty query
// matches all.
func (f *Facade) SearchChannels(ctx context.Context, query string) []catalog.Channel {
	f.maybeRefresh(ctx)
	return f.catalog.SearchChannels(query)
}

// FilteredChannels replays the last applied filter.
func (f *Facade) FilteredChannels(ctx context.Context) []catalog.Channel {
	return f.catalog.FilteredChannels()
}

// Genres lists the genres of the current catalog.
func (f *Facade) Genres(ctx context.Context) []string {
	return f.catalog.Genres()
}

// CurrentProgram returns the program airing now on the channel.
func (f *Facade) CurrentProgram(ctx context.Context, channelID string) (guide.Program, error) {
	f.maybeRefresh(ctx)
	return f.guide.CurrentProgram(ctx, channelID)
}

// UpcomingPrograms returns the next programs on the channel.
func (f *Facade) UpcomingPrograms(ctx context.Context, channelID string) ([]guide.Program, error) {
	f.maybeRefresh(ctx)
	return f.guide.UpcomingPrograms(ctx, channelID)
}

// ChannelIcon returns the guide icon stored for the channel.
func (f *Facade) ChannelIcon(ctx context.Context, channelID string) (guide.Icon, error) {
	return f.guide.ChannelIcon(ctx, channelID)
}

// RebuildNow forces a catalog rebuild. An empty url rebuilds from the
// configured playlist URL; a non-empty url targets that playlist instead.
func (f *Facade) RebuildNow(ctx context.Context, url string) error {
	if url == "" {
		f.cfgMu.RLock()
		url = f.sourceURL
		f.cfgMu.RUnlock()
	}
	return f.catalog.Rebuild(ctx, url)
}

// RefreshGuideNow forces a guide refresh from the configured sources.
func (f *Facade) RefreshGuideNow(ctx context.Context) error {
	return f.guide.Refresh(ctx)
}

// Status summarizes the current cache state.
func (f *Facade) Status(ctx context.Context) Status {
	f.cfgMu.RLock()
	loc := f.timezone
	f.cfgMu.RUnlock()

	return Status{
		IsUpdating:        f.catalog.IsRebuilding() || f.guide.IsRefreshing(),
		CatalogLastUpdate: f.catalog.LastUpdated(),
		GuideLastUpdate:   f.guide.LastUpdate(ctx),
		ChannelCount:      f.catalog.ChannelCount(),
		ProgramCount:      f.guide.ProgramCount(ctx),
		Timezone:          loc.String(),
	}
}

// Stop cancels all periodic triggers.
func (f *Facade) Stop() {
	f.scheduler.Stop()
}
