package application

import (
	"context"
	"io"
	"time"

	"github.com/avillega/iptv-cache/internal/catalog"
	"github.com/avillega/iptv-cache/internal/guide"
	"github.com/avillega/iptv-cache/logging"
)

func testLogger() *logging.Logger {
	return logging.NewWithWriter(logging.ERROR, "test", io.Discard)
}

// mockCatalogRepository is a mock implementation of driven.CatalogRepository for testing.
type mockCatalogRepository struct {
	replaceSnapshotFunc func(ctx context.Context, snap *catalog.Snapshot) error
	loadSnapshotFunc    func(ctx context.Context) (*catalog.Snapshot, error)
	pingFunc            func(ctx context.Context) error
}

func (m *mockCatalogRepository) ReplaceSnapshot(ctx context.Context, snap *catalog.Snapshot) error {
	if m.replaceSnapshotFunc != nil {
		return m.replaceSnapshotFunc(ctx, snap)
	}
	return nil
}

func (m *mockCatalogRepository) LoadSnapshot(ctx context.Context) (*catalog.Snapshot, error) {
	if m.loadSnapshotFunc != nil {
		return m.loadSnapshotFunc(ctx)
	}
	return nil, catalog.ErrNoSnapshot
}

func (m *mockCatalogRepository) Ping(ctx context.Context) error {
	if m.pingFunc != nil {
		return m.pingFunc(ctx)
	}
	return nil
}

// mockGuideRepository is a mock implementation of driven.GuideRepository for testing.
type mockGuideRepository struct {
	clearFunc            func(ctx context.Context) error
	insertProgramsFunc   func(ctx context.Context, programs []guide.Program) error
	putIconFunc          func(ctx context.Context, icon guide.Icon) error
	iconFunc             func(ctx context.Context, channelID string) (guide.Icon, error)
	currentProgramFunc   func(ctx context.Context, channelID string, now time.Time) (guide.Program, error)
	upcomingProgramsFunc func(ctx context.Context, channelID string, now time.Time, limit int) ([]guide.Program, error)
	deleteExpiredFunc    func(ctx context.Context, olderThan time.Time) (int, error)
	countProgramsFunc    func(ctx context.Context) (int, error)
	lastUpdateFunc       func(ctx context.Context) (time.Time, error)
	setLastUpdateFunc    func(ctx context.Context, t time.Time) error
	pingFunc             func(ctx context.Context) error
}

func (m *mockGuideRepository) Clear(ctx context.Context) error {
	if m.clearFunc != nil {
		return m.clearFunc(ctx)
	}
	return nil
}

func (m *mockGuideRepository) InsertPrograms(ctx context.Context, programs []guide.Program) error {
	if m.insertProgramsFunc != nil {
		return m.insertProgramsFunc(ctx, programs)
	}
	return nil
}

func (m *mockGuideRepository) PutIcon(ctx context.Context, icon guide.Icon) error {
	if m.putIconFunc != nil {
		return m.putIconFunc(ctx, icon)
	}
	return nil
}

func (m *mockGuideRepository) Icon(ctx context.Context, channelID string) (guide.Icon, error) {
	if m.iconFunc != nil {
		return m.iconFunc(ctx, channelID)
	}
	return guide.Icon{}, guide.ErrIconNotFound
}

func (m *mockGuideRepository) CurrentProgram(ctx context.Context, channelID string, now time.Time) (guide.Program, error) {
	if m.currentProgramFunc != nil {
		return m.currentProgramFunc(ctx, channelID, now)
	}
	return guide.Program{}, guide.ErrProgramNotFound
}

func (m *mockGuideRepository) UpcomingPrograms(ctx context.Context, channelID string, now time.Time, limit int) ([]guide.Program, error) {
	if m.upcomingProgramsFunc != nil {
		return m.upcomingProgramsFunc(ctx, channelID, now, limit)
	}
	return []guide.Program{}, nil
}

func (m *mockGuideRepository) DeleteExpired(ctx context.Context, olderThan time.Time) (int, error) {
	if m.deleteExpiredFunc != nil {
		return m.deleteExpiredFunc(ctx, olderThan)
	}
	return 0, nil
}

func (m *mockGuideRepository) CountPrograms(ctx context.Context) (int, error) {
	if m.countProgramsFunc != nil {
		return m.countProgramsFunc(ctx)
	}
	return 0, nil
}

func (m *mockGuideRepository) LastUpdate(ctx context.Context) (time.Time, error) {
	if m.lastUpdateFunc != nil {
		return m.lastUpdateFunc(ctx)
	}
	return time.Time{}, nil
}

func (m *mockGuideRepository) SetLastUpdate(ctx context.Context, t time.Time) error {
	if m.setLastUpdateFunc != nil {
		return m.setLastUpdateFunc(ctx, t)
	}
	return nil
}

func (m *mockGuideRepository) Ping(ctx context.Context) error {
	if m.pingFunc != nil {
		return m.pingFunc(ctx)
	}
	return nil
}

// mockFetcher is a mock implementation of driven.Fetcher for testing.
type mockFetcher struct {
	fetchFunc func(ctx context.Context, url string) ([]byte, error)
}

func (m *mockFetcher) Fetch(ctx context.Context, url string) ([]byte, error) {
	if m.fetchFunc != nil {
		return m.fetchFunc(ctx, url)
	}
	return nil, nil
}

// mockTransformer is a mock implementation of driven.PlaylistTransformer for testing.
type mockTransformer struct {
	transformFunc func(ctx context.Context, url string) (catalog.Load, error)
}

func (m *mockTransformer) Transform(ctx context.Context, url string) (catalog.Load, error) {
	if m.transformFunc != nil {
		return m.transformFunc(ctx, url)
	}
	return catalog.Load{}, nil
}
