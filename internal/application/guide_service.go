package application

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/avillega/iptv-cache/internal/guide"
	"github.com/avillega/iptv-cache/internal/normalize"
	"github.com/avillega/iptv-cache/internal/port/driven"
	"github.com/avillega/iptv-cache/internal/xmltv"
	"github.com/avillega/iptv-cache/logging"
	"github.com/avillega/iptv-cache/metrics"
)

const (
	// retentionLookback keeps the currently airing program queryable: rows
	// whose stop precedes now minus this window are expired.
	retentionLookback = time.Hour

	// ingestHorizon bounds how far into the future programs are ingested.
	ingestHorizon = 7 * 24 * time.Hour

	// guideStaleAfter is how old the last refresh may be before the guide is
	// considered due for an update.
	guideStaleAfter = 24 * time.Hour

	// insertBatchSize is the number of programs persisted per transaction.
	insertBatchSize = 500

	// maxUpcoming caps the upcoming-programs listing per channel.
	maxUpcoming = 2
)

// GuideService ingests XMLTV program data from one or more sources into the
// durable guide store and serves point-in-time queries against it.
type GuideService struct {
	fetcher driven.Fetcher
	repo    driven.GuideRepository
	norm    normalize.Normalizer
	logger  *logging.Logger

	// sourceMu guards source, which is replaced at runtime by config
	// reloads and playlist announcements while refresh goroutines read it.
	sourceMu sync.RWMutex
	source   string

	refreshing atomic.Bool

	now func() time.Time
}

// NewGuideService creates a guide service. source is the configured guide
// source value: a comma-separated list of URLs, a single guide URL, or a URL
// whose body is itself a newline list of guide URLs.
func NewGuideService(
	fetcher driven.Fetcher,
	repo driven.GuideRepository,
	norm normalize.Normalizer,
	source string,
	logger *logging.Logger,
) *GuideService {
	return &GuideService{
		fetcher: fetcher,
		repo:    repo,
		norm:    norm,
		logger:  logger,
		source:  strings.TrimSpace(source),
		now:     time.Now,
	}
}

// SetSource replaces the configured guide source value. Takes effect on the
// next refresh.
func (s *GuideService) SetSource(source string) {
	s.sourceMu.Lock()
	s.source = strings.TrimSpace(source)
	s.sourceMu.Unlock()
}

// Source returns the current guide source value.
func (s *GuideService) Source() string {
	s.sourceMu.RLock()
	defer s.sourceMu.RUnlock()
	return s.source
}

// resolvedSources holds the refresh source list. When the configured source
// turned out to be a direct guide document, its already fetched body is kept
// so ingestion does not download it twice.
type resolvedSources struct {
	urls []string
	// body is the prefetched document for urls[0], nil when not prefetched.
	body []byte
}

// resolveSources expands the configured source value into concrete guide
// URLs. A comma-separated value is split literally; a single URL is fetched
// and probed: a body carrying an XMLTV marker is the guide itself, a body of
// http-prefixed lines is a list of further guide URLs.
func (s *GuideService) resolveSources(ctx context.Context) (resolvedSources, error) {
	source := s.Source()
	if source == "" {
		return resolvedSources{}, guide.ErrEmptySource
	}

	if strings.Contains(source, ",") {
		var urls []string
		for _, part := range strings.Split(source, ",") {
			if trimmed := strings.TrimSpace(part); trimmed != "" {
				urls = append(urls, trimmed)
			}
		}
		if len(urls) == 0 {
			return resolvedSources{}, guide.ErrEmptySource
		}
		return resolvedSources{urls: urls}, nil
	}

	body, err := s.fetcher.Fetch(ctx, source)
	if err != nil {
		return resolvedSources{}, fmt.Errorf("fetching guide source: %w", err)
	}

	if looksLikeXMLTV(body) {
		return resolvedSources{urls: []string{source}, body: body}, nil
	}

	if urls := parseURLList(body); len(urls) > 0 {
		return resolvedSources{urls: urls}, nil
	}

	// Neither marker matched; treat the configured URL as the guide and let
	// the parser report what is wrong with it.
	return resolvedSources{urls: []string{source}, body: body}, nil
}

func looksLikeXMLTV(body []byte) bool {
	head := body
	if len(head) > 512 {
		head = head[:512]
	}
	return bytes.Contains(head, []byte("<tv")) || bytes.Contains(head, []byte("<?xml"))
}

func parseURLList(body []byte) []string {
	var urls []string
	for _, line := range strings.Split(string(body), "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		if !strings.HasPrefix(line, "http") {
			return nil
		}
		urls = append(urls, line)
	}
	return urls
}

// Refresh rebuilds the guide store from the configured sources: the store is
// cleared, each source is fetched, parsed and ingested, and the refresh
// instant is recorded. A concurrent call while a refresh is in progress is
// dropped and returns guide.ErrRefreshRunning. A source that fails to fetch
// or parse is logged and skipped; the refresh fails only when every source
// fails.
func (s *GuideService) Refresh(ctx context.Context) error {
	if !s.refreshing.CompareAndSwap(false, true) {
		metrics.RecordSingleFlightDrop("guide")
		return guide.ErrRefreshRunning
	}
	defer s.refreshing.Store(false)

	started := s.now()

	resolved, err := s.resolveSources(ctx)
	if err != nil {
		metrics.RecordGuideRefresh(metrics.OutcomeError)
		return fmt.Errorf("guide refresh: %w", err)
	}

	s.logger.LogGuideRefreshStarted(len(resolved.urls))

	if err := s.repo.Clear(ctx); err != nil {
		metrics.RecordGuideRefresh(metrics.OutcomeError)
		return fmt.Errorf("clearing guide store: %w", err)
	}

	total := 0
	failed := 0
	for i, url := range resolved.urls {
		var body []byte
		if i == 0 && resolved.body != nil {
			body = resolved.body
		} else {
			body, err = s.fetcher.Fetch(ctx, url)
			if err != nil {
				failed++
				metrics.RecordGuideSourceError()
				s.logger.LogGuideSourceFailed(url, err)
				continue
			}
		}

		n, err := s.ingest(ctx, body)
		if err != nil {
			failed++
			metrics.RecordGuideSourceError()
			s.logger.LogGuideSourceFailed(url, err)
			continue
		}
		total += n
	}

	if failed == len(resolved.urls) {
		metrics.RecordGuideRefresh(metrics.OutcomeError)
		return fmt.Errorf("guide refresh: all %d sources failed", failed)
	}

	if err := s.repo.SetLastUpdate(ctx, s.now()); err != nil {
		s.logger.Error("Failed to record guide refresh time", map[string]interface{}{
			"error": err.Error(),
		})
	}

	metrics.RecordGuideRefresh(metrics.OutcomeSuccess)
	if count, err := s.repo.CountPrograms(ctx); err == nil {
		metrics.SetProgramsStored(count)
	}
	s.logger.LogGuideRefreshFinished(total, failed, s.now().Sub(started))

	// Sources routinely carry history; drop it right away rather than
	// waiting for the periodic cleanup.
	s.CleanupExpired(ctx)
	return nil
}

// ingest parses one XMLTV document and persists its icons and programs.
// Programs outside the retention-to-horizon window are rejected; malformed
// entries are skipped. Returns how many programs were stored.
func (s *GuideService) ingest(ctx context.Context, body []byte) (int, error) {
	result, err := xmltv.Parse(bytes.NewReader(body))
	if err != nil {
		return 0, fmt.Errorf("parsing guide document: %w", err)
	}

	for _, ch := range result.Channels {
		if ch.IconSrc == "" {
			continue
		}
		icon := guide.Icon{ChannelID: s.norm.StripSuffix(ch.ID), URL: ch.IconSrc}
		if icon.ChannelID == "" {
			continue
		}
		if err := s.repo.PutIcon(ctx, icon); err != nil {
			return 0, fmt.Errorf("storing channel icon: %w", err)
		}
	}

	now := s.now()
	windowStart := now.Add(-retentionLookback)
	windowEnd := now.Add(ingestHorizon)

	stored := 0
	batch := make([]guide.Program, 0, insertBatchSize)
	for _, p := range result.Programmes {
		if p.Stop.Before(windowStart) || p.Start.After(windowEnd) {
			continue
		}
		program, err := guide.NewProgram(s.norm.StripSuffix(p.ChannelID), p.Start, p.Stop, p.Title, p.Description, p.Category)
		if err != nil {
			continue
		}
		batch = append(batch, program)
		if len(batch) == insertBatchSize {
			if err := s.repo.InsertPrograms(ctx, batch); err != nil {
				return stored, fmt.Errorf("inserting program batch: %w", err)
			}
			stored += len(batch)
			batch = batch[:0]
		}
	}
	if len(batch) > 0 {
		if err := s.repo.InsertPrograms(ctx, batch); err != nil {
			return stored, fmt.Errorf("inserting program batch: %w", err)
		}
		stored += len(batch)
	}

	return stored, nil
}

// CleanupExpired deletes programs whose stop precedes now minus the retention
// lookback. Errors are logged, not returned; cleanup is best effort.
func (s *GuideService) CleanupExpired(ctx context.Context) {
	deleted, err := s.repo.DeleteExpired(ctx, s.now().Add(-retentionLookback))
	if err != nil {
		s.logger.Error("Guide cleanup failed", map[string]interface{}{
			"error": err.Error(),
		})
		return
	}
	if deleted > 0 {
		metrics.RecordProgramsExpired(deleted)
		if count, err := s.repo.CountPrograms(ctx); err == nil {
			metrics.SetProgramsStored(count)
		}
	}
	s.logger.LogRetentionCleanup(deleted)
}

// CurrentProgram returns the program airing now on the channel.
func (s *GuideService) CurrentProgram(ctx context.Context, channelID string) (guide.Program, error) {
	return s.repo.CurrentProgram(ctx, s.norm.StripSuffix(channelID), s.now())
}

// UpcomingPrograms returns the next programs on the channel, capped at two
// entries, ascending by start time.
func (s *GuideService) UpcomingPrograms(ctx context.Context, channelID string) ([]guide.Program, error) {
	return s.repo.UpcomingPrograms(ctx, s.norm.StripSuffix(channelID), s.now(), maxUpcoming)
}

// ChannelIcon returns the stored icon for the channel.
func (s *GuideService) ChannelIcon(ctx context.Context, channelID string) (guide.Icon, error) {
	return s.repo.Icon(ctx, s.norm.StripSuffix(channelID))
}

// IsAvailable reports whether guide data can be served: at least one program
// is stored and no refresh is rewriting the store right now.
func (s *GuideService) IsAvailable(ctx context.Context) bool {
	if s.refreshing.Load() {
		return false
	}
	count, err := s.repo.CountPrograms(ctx)
	if err != nil {
		return false
	}
	return count > 0
}

// NeedsUpdate reports whether the guide has never been refreshed or the last
// refresh is older than a day.
func (s *GuideService) NeedsUpdate(ctx context.Context) bool {
	last, err := s.repo.LastUpdate(ctx)
	if err != nil {
		if !errors.Is(err, context.Canceled) {
			s.logger.Warn("Failed to read guide refresh time", map[string]interface{}{
				"error": err.Error(),
			})
		}
		return true
	}
	if last.IsZero() {
		return true
	}
	return s.now().Sub(last) > guideStaleAfter
}

// IsRefreshing reports whether a refresh is currently rewriting the store.
func (s *GuideService) IsRefreshing() bool {
	return s.refreshing.Load()
}

// ProgramCount returns the number of stored programs.
func (s *GuideService) ProgramCount(ctx context.Context) int {
	count, err := s.repo.CountPrograms(ctx)
	if err != nil {
		return 0
	}
	return count
}

// LastUpdate returns when the guide was last refreshed, or the zero time.
func (s *GuideService) LastUpdate(ctx context.Context) time.Time {
	last, err := s.repo.LastUpdate(ctx)
	if err != nil {
		return time.Time{}
	}
	return last
}
