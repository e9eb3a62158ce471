package driven

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"go.etcd.io/bbolt"

	"github.com/avillega/iptv-cache/internal/guide"
)

// setupTestDB creates a temporary BoltDB instance for testing.
func setupTestDB(t *testing.T) *bbolt.DB {
	t.Helper()

	dbPath := filepath.Join(t.TempDir(), "test.db")
	db, err := bbolt.Open(dbPath, 0600, nil)
	if err != nil {
		t.Fatalf("failed to open test database: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	return db
}

func mustProgram(t *testing.T, channelID string, start, stop time.Time, title string) guide.Program {
	t.Helper()
	p, err := guide.NewProgram(channelID, start, stop, title, "", "")
	if err != nil {
		t.Fatalf("creating test program: %v", err)
	}
	return p
}

func TestNewGuideBoltDBRepository(t *testing.T) {
	t.Run("creates repository and buckets successfully", func(t *testing.T) {
		db := setupTestDB(t)

		repo, err := NewGuideBoltDBRepository(db)
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if repo == nil {
			t.Fatal("expected non-nil repository")
		}

		err = db.View(func(tx *bbolt.Tx) error {
			for _, name := range []string{programsBucket, iconsBucket, guideMetaBucket} {
				if tx.Bucket([]byte(name)) == nil {
					t.Errorf("expected bucket %q to exist", name)
				}
			}
			return nil
		})
		if err != nil {
			t.Fatalf("failed to verify buckets: %v", err)
		}
	})

	t.Run("returns error for nil database", func(t *testing.T) {
		if _, err := NewGuideBoltDBRepository(nil); err == nil {
			t.Error("expected error for nil database")
		}
	})
}

func TestGuideBoltDBRepository_CurrentProgram(t *testing.T) {
	now := time.Date(2026, 3, 10, 20, 30, 0, 0, time.UTC)

	t.Run("returns the program whose interval contains now", func(t *testing.T) {
		db := setupTestDB(t)
		repo, _ := NewGuideBoltDBRepository(db)

		programs := []guide.Program{
			mustProgram(t, "rai1", now.Add(-2*time.Hour), now.Add(-time.Hour), "Earlier"),
			mustProgram(t, "rai1", now.Add(-30*time.Minute), now.Add(30*time.Minute), "Airing"),
			mustProgram(t, "rai1", now.Add(time.Hour), now.Add(2*time.Hour), "Later"),
			mustProgram(t, "rai2", now.Add(-30*time.Minute), now.Add(30*time.Minute), "Other channel"),
		}
		if err := repo.InsertPrograms(context.Background(), programs); err != nil {
			t.Fatalf("inserting programs: %v", err)
		}

		got, err := repo.CurrentProgram(context.Background(), "rai1", now)
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if got.Title() != "Airing" {
			t.Errorf("expected Airing, got %q", got.Title())
		}
	})

	t.Run("returns not found when nothing airs", func(t *testing.T) {
		db := setupTestDB(t)
		repo, _ := NewGuideBoltDBRepository(db)

		programs := []guide.Program{
			mustProgram(t, "rai1", now.Add(time.Hour), now.Add(2*time.Hour), "Later"),
		}
		if err := repo.InsertPrograms(context.Background(), programs); err != nil {
			t.Fatalf("inserting programs: %v", err)
		}

		if _, err := repo.CurrentProgram(context.Background(), "rai1", now); !errors.Is(err, guide.ErrProgramNotFound) {
			t.Errorf("expected ErrProgramNotFound, got %v", err)
		}
	})

	t.Run("returns not found for unknown channel", func(t *testing.T) {
		db := setupTestDB(t)
		repo, _ := NewGuideBoltDBRepository(db)

		if _, err := repo.CurrentProgram(context.Background(), "nope", now); !errors.Is(err, guide.ErrProgramNotFound) {
			t.Errorf("expected ErrProgramNotFound, got %v", err)
		}
	})

	t.Run("hands over to the next program at the stop boundary", func(t *testing.T) {
		db := setupTestDB(t)
		repo, _ := NewGuideBoltDBRepository(db)

		// Back-to-back schedule: exactly one program airs at the handover
		// instant, and it is the one that starts there.
		handover := now.Add(time.Hour)
		programs := []guide.Program{
			mustProgram(t, "rai1", now, handover, "Ending"),
			mustProgram(t, "rai1", handover, handover.Add(time.Hour), "Starting"),
		}
		if err := repo.InsertPrograms(context.Background(), programs); err != nil {
			t.Fatalf("inserting programs: %v", err)
		}

		got, err := repo.CurrentProgram(context.Background(), "rai1", handover)
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if got.Title() != "Starting" {
			t.Errorf("expected the starting program at the boundary, got %q", got.Title())
		}

		// With no successor, the stop instant itself is off the air.
		lone := setupTestDB(t)
		loneRepo, _ := NewGuideBoltDBRepository(lone)
		if err := loneRepo.InsertPrograms(context.Background(), []guide.Program{
			mustProgram(t, "rai1", now, handover, "Ending"),
		}); err != nil {
			t.Fatalf("inserting programs: %v", err)
		}
		if _, err := loneRepo.CurrentProgram(context.Background(), "rai1", handover); !errors.Is(err, guide.ErrProgramNotFound) {
			t.Errorf("expected ErrProgramNotFound at the stop instant, got %v", err)
		}
	})
}

func TestGuideBoltDBRepository_UpcomingPrograms(t *testing.T) {
	now := time.Date(2026, 3, 10, 20, 30, 0, 0, time.UTC)

	t.Run("returns programs ascending by start up to the limit", func(t *testing.T) {
		db := setupTestDB(t)
		repo, _ := NewGuideBoltDBRepository(db)

		programs := []guide.Program{
			mustProgram(t, "rai1", now.Add(3*time.Hour), now.Add(4*time.Hour), "Third"),
			mustProgram(t, "rai1", now.Add(time.Hour), now.Add(2*time.Hour), "First"),
			mustProgram(t, "rai1", now.Add(2*time.Hour), now.Add(3*time.Hour), "Second"),
			mustProgram(t, "rai1", now.Add(-time.Hour), now.Add(-30*time.Minute), "Past"),
			mustProgram(t, "rai2", now.Add(time.Hour), now.Add(2*time.Hour), "Other channel"),
		}
		if err := repo.InsertPrograms(context.Background(), programs); err != nil {
			t.Fatalf("inserting programs: %v", err)
		}

		got, err := repo.UpcomingPrograms(context.Background(), "rai1", now, 2)
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if len(got) != 2 {
			t.Fatalf("expected 2 programs, got %d", len(got))
		}
		if got[0].Title() != "First" || got[1].Title() != "Second" {
			t.Errorf("unexpected order: %q, %q", got[0].Title(), got[1].Title())
		}
	})

	t.Run("returns empty slice when nothing is upcoming", func(t *testing.T) {
		db := setupTestDB(t)
		repo, _ := NewGuideBoltDBRepository(db)

		got, err := repo.UpcomingPrograms(context.Background(), "rai1", now, 2)
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if len(got) != 0 {
			t.Errorf("expected empty result, got %d", len(got))
		}
	})
}

func TestGuideBoltDBRepository_DeleteExpired(t *testing.T) {
	now := time.Date(2026, 3, 10, 20, 30, 0, 0, time.UTC)

	t.Run("removes only programs that stopped before the cutoff", func(t *testing.T) {
		db := setupTestDB(t)
		repo, _ := NewGuideBoltDBRepository(db)

		programs := []guide.Program{
			mustProgram(t, "rai1", now.Add(-3*time.Hour), now.Add(-2*time.Hour), "Expired"),
			mustProgram(t, "rai1", now.Add(-30*time.Minute), now.Add(30*time.Minute), "Airing"),
			mustProgram(t, "rai2", now.Add(-4*time.Hour), now.Add(-3*time.Hour), "Also expired"),
		}
		if err := repo.InsertPrograms(context.Background(), programs); err != nil {
			t.Fatalf("inserting programs: %v", err)
		}

		deleted, err := repo.DeleteExpired(context.Background(), now.Add(-time.Hour))
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if deleted != 2 {
			t.Errorf("expected 2 deleted rows, got %d", deleted)
		}

		count, err := repo.CountPrograms(context.Background())
		if err != nil {
			t.Fatalf("counting programs: %v", err)
		}
		if count != 1 {
			t.Errorf("expected 1 remaining program, got %d", count)
		}
	})
}

func TestGuideBoltDBRepository_Clear(t *testing.T) {
	t.Run("removes all programs and icons", func(t *testing.T) {
		db := setupTestDB(t)
		repo, _ := NewGuideBoltDBRepository(db)

		now := time.Now()
		programs := []guide.Program{
			mustProgram(t, "rai1", now, now.Add(time.Hour), "Show"),
		}
		if err := repo.InsertPrograms(context.Background(), programs); err != nil {
			t.Fatalf("inserting programs: %v", err)
		}
		if err := repo.PutIcon(context.Background(), guide.Icon{ChannelID: "rai1", URL: "http://example.com/rai1.png"}); err != nil {
			t.Fatalf("storing icon: %v", err)
		}

		if err := repo.Clear(context.Background()); err != nil {
			t.Fatalf("expected no error, got %v", err)
		}

		count, err := repo.CountPrograms(context.Background())
		if err != nil {
			t.Fatalf("counting programs: %v", err)
		}
		if count != 0 {
			t.Errorf("expected empty store, got %d programs", count)
		}
		if _, err := repo.Icon(context.Background(), "rai1"); !errors.Is(err, guide.ErrIconNotFound) {
			t.Errorf("expected ErrIconNotFound, got %v", err)
		}
	})
}

func TestGuideBoltDBRepository_Icons(t *testing.T) {
	t.Run("later writes win", func(t *testing.T) {
		db := setupTestDB(t)
		repo, _ := NewGuideBoltDBRepository(db)

		if err := repo.PutIcon(context.Background(), guide.Icon{ChannelID: "rai1", URL: "http://example.com/old.png"}); err != nil {
			t.Fatalf("storing icon: %v", err)
		}
		if err := repo.PutIcon(context.Background(), guide.Icon{ChannelID: "rai1", URL: "http://example.com/new.png"}); err != nil {
			t.Fatalf("storing icon: %v", err)
		}

		icon, err := repo.Icon(context.Background(), "rai1")
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if icon.URL != "http://example.com/new.png" {
			t.Errorf("expected the later icon url, got %q", icon.URL)
		}
	})

	t.Run("returns not found for unknown channel", func(t *testing.T) {
		db := setupTestDB(t)
		repo, _ := NewGuideBoltDBRepository(db)

		if _, err := repo.Icon(context.Background(), "nope"); !errors.Is(err, guide.ErrIconNotFound) {
			t.Errorf("expected ErrIconNotFound, got %v", err)
		}
	})
}

func TestGuideBoltDBRepository_LastUpdate(t *testing.T) {
	t.Run("round-trips the refresh instant", func(t *testing.T) {
		db := setupTestDB(t)
		repo, _ := NewGuideBoltDBRepository(db)

		got, err := repo.LastUpdate(context.Background())
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if !got.IsZero() {
			t.Errorf("expected zero time before first refresh, got %v", got)
		}

		want := time.Date(2026, 3, 10, 4, 30, 0, 0, time.UTC)
		if err := repo.SetLastUpdate(context.Background(), want); err != nil {
			t.Fatalf("expected no error, got %v", err)
		}

		got, err = repo.LastUpdate(context.Background())
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if !got.Equal(want) {
			t.Errorf("expected %v, got %v", want, got)
		}
	})
}

func TestGuideBoltDBRepository_IdenticalStartTimes(t *testing.T) {
	t.Run("keeps two programs with the same channel and start", func(t *testing.T) {
		db := setupTestDB(t)
		repo, _ := NewGuideBoltDBRepository(db)

		now := time.Now()
		programs := []guide.Program{
			mustProgram(t, "rai1", now.Add(time.Hour), now.Add(2*time.Hour), "A"),
			mustProgram(t, "rai1", now.Add(time.Hour), now.Add(90*time.Minute), "B"),
		}
		if err := repo.InsertPrograms(context.Background(), programs); err != nil {
			t.Fatalf("inserting programs: %v", err)
		}

		count, err := repo.CountPrograms(context.Background())
		if err != nil {
			t.Fatalf("counting programs: %v", err)
		}
		if count != 2 {
			t.Errorf("expected both programs stored, got %d", count)
		}
	})
}
