package driven

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.etcd.io/bbolt"

	"github.com/avillega/iptv-cache/internal/guide"
)

const (
	programsBucket  = "programs"
	iconsBucket     = "icons"
	guideMetaBucket = "guide_meta"

	lastUpdateKey = "last_update"
)

// programKeySep separates the three segments of a program key. It sorts
// before any printable byte, so keys order first by channel id, then by
// zero-padded start time.
const programKeySep = byte(0x00)

// GuideBoltDBRepository implements the GuideRepository port using BoltDB.
//
// Program rows are keyed by "<channelID> 0x00 <start unix, zero padded>
// 0x00 <surrogate uuid>". The channel-id prefix makes per-channel scans a
// cursor seek, the padded start keeps each channel's rows in chronological
// order, and the uuid keeps two programs with identical (channel, start)
// from colliding.
type GuideBoltDBRepository struct {
	db *bbolt.DB
}

// NewGuideBoltDBRepository creates a new BoltDB-backed guide repository.
// It initializes the required buckets if they don't exist.
func NewGuideBoltDBRepository(db *bbolt.DB) (*GuideBoltDBRepository, error) {
	if db == nil {
		return nil, errors.New("db cannot be nil")
	}

	err := db.Update(func(tx *bbolt.Tx) error {
		for _, name := range []string{programsBucket, iconsBucket, guideMetaBucket} {
			if _, err := tx.CreateBucketIfNotExists([]byte(name)); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	return &GuideBoltDBRepository{db: db}, nil
}

// programDTO is used for JSON serialization.
type programDTO struct {
	ChannelID   string `json:"channel_id"`
	Start       string `json:"start"`
	Stop        string `json:"stop"`
	Title       string `json:"title,omitempty"`
	Description string `json:"description,omitempty"`
	Category    string `json:"category,omitempty"`
}

func programToDTO(p guide.Program) programDTO {
	return programDTO{
		ChannelID:   p.ChannelID(),
		Start:       p.Start().UTC().Format(time.RFC3339),
		Stop:        p.Stop().UTC().Format(time.RFC3339),
		Title:       p.Title(),
		Description: p.Description(),
		Category:    p.Category(),
	}
}

func dtoToProgram(dto programDTO) (guide.Program, error) {
	start, err := time.Parse(time.RFC3339, dto.Start)
	if err != nil {
		return guide.Program{}, err
	}
	stop, err := time.Parse(time.RFC3339, dto.Stop)
	if err != nil {
		return guide.Program{}, err
	}
	return guide.NewProgram(dto.ChannelID, start, stop, dto.Title, dto.Description, dto.Category)
}

func programKey(p guide.Program) []byte {
	var buf bytes.Buffer
	buf.WriteString(p.ChannelID())
	buf.WriteByte(programKeySep)
	fmt.Fprintf(&buf, "%019d", p.Start().Unix())
	buf.WriteByte(programKeySep)
	buf.WriteString(uuid.NewString())
	return buf.Bytes()
}

func channelPrefix(channelID string) []byte {
	return append([]byte(channelID), programKeySep)
}

// Clear removes all program and icon rows.
func (r *GuideBoltDBRepository) Clear(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	return r.db.Update(func(tx *bbolt.Tx) error {
		for _, name := range []string{programsBucket, iconsBucket} {
			if err := tx.DeleteBucket([]byte(name)); err != nil && !errors.Is(err, bbolt.ErrBucketNotFound) {
				return err
			}
			if _, err := tx.CreateBucket([]byte(name)); err != nil {
				return err
			}
		}
		return nil
	})
}

// InsertPrograms persists one ingestion batch of programs in a single
// transaction.
func (r *GuideBoltDBRepository) InsertPrograms(ctx context.Context, programs []guide.Program) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if len(programs) == 0 {
		return nil
	}

	return r.db.Update(func(tx *bbolt.Tx) error {
		bucket := tx.Bucket([]byte(programsBucket))
		if bucket == nil {
			return errors.New("programs bucket not found")
		}

		for _, p := range programs {
			data, err := json.Marshal(programToDTO(p))
			if err != nil {
				return err
			}
			if err := bucket.Put(programKey(p), data); err != nil {
				return err
			}
		}
		return nil
	})
}

// PutIcon upserts the icon for a channel; later writes win.
func (r *GuideBoltDBRepository) PutIcon(ctx context.Context, icon guide.Icon) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	return r.db.Update(func(tx *bbolt.Tx) error {
		bucket := tx.Bucket([]byte(iconsBucket))
		if bucket == nil {
			return errors.New("icons bucket not found")
		}
		return bucket.Put([]byte(icon.ChannelID), []byte(icon.URL))
	})
}

// Icon retrieves the icon for a channel.
func (r *GuideBoltDBRepository) Icon(ctx context.Context, channelID string) (guide.Icon, error) {
	if err := ctx.Err(); err != nil {
		return guide.Icon{}, err
	}

	var icon guide.Icon
	err := r.db.View(func(tx *bbolt.Tx) error {
		bucket := tx.Bucket([]byte(iconsBucket))
		if bucket == nil {
			return errors.New("icons bucket not found")
		}
		data := bucket.Get([]byte(channelID))
		if data == nil {
			return guide.ErrIconNotFound
		}
		icon = guide.Icon{ChannelID: channelID, URL: string(data)}
		return nil
	})
	return icon, err
}

// CurrentProgram returns the program whose interval contains now for the
// channel.
func (r *GuideBoltDBRepository) CurrentProgram(ctx context.Context, channelID string, now time.Time) (guide.Program, error) {
	if err := ctx.Err(); err != nil {
		return guide.Program{}, err
	}

	var found guide.Program
	err := r.db.View(func(tx *bbolt.Tx) error {
		bucket := tx.Bucket([]byte(programsBucket))
		if bucket == nil {
			return errors.New("programs bucket not found")
		}

		prefix := channelPrefix(channelID)
		c := bucket.Cursor()
		for k, v := c.Seek(prefix); k != nil && bytes.HasPrefix(k, prefix); k, v = c.Next() {
			var dto programDTO
			if err := json.Unmarshal(v, &dto); err != nil {
				continue
			}
			p, err := dtoToProgram(dto)
			if err != nil {
				continue
			}
			if p.Airing(now) {
				found = p
				return nil
			}
			// Rows are ordered by start; past now there is nothing airing.
			if p.Start().After(now) {
				break
			}
		}
		return guide.ErrProgramNotFound
	})
	return found, err
}

// UpcomingPrograms returns up to limit programs with start >= now for the
// channel, ascending by start.
func (r *GuideBoltDBRepository) UpcomingPrograms(ctx context.Context, channelID string, now time.Time, limit int) ([]guide.Program, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if limit <= 0 {
		return []guide.Program{}, nil
	}

	programs := []guide.Program{}
	err := r.db.View(func(tx *bbolt.Tx) error {
		bucket := tx.Bucket([]byte(programsBucket))
		if bucket == nil {
			return errors.New("programs bucket not found")
		}

		prefix := channelPrefix(channelID)
		seek := append(append([]byte{}, prefix...), fmt.Sprintf("%019d", now.Unix())...)

		c := bucket.Cursor()
		for k, v := c.Seek(seek); k != nil && bytes.HasPrefix(k, prefix); k, v = c.Next() {
			var dto programDTO
			if err := json.Unmarshal(v, &dto); err != nil {
				continue
			}
			p, err := dtoToProgram(dto)
			if err != nil {
				continue
			}
			if p.Start().Before(now) {
				continue
			}
			programs = append(programs, p)
			if len(programs) >= limit {
				break
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return programs, nil
}

// DeleteExpired removes programs whose stop precedes olderThan.
func (r *GuideBoltDBRepository) DeleteExpired(ctx context.Context, olderThan time.Time) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}

	deleted := 0
	err := r.db.Update(func(tx *bbolt.Tx) error {
		bucket := tx.Bucket([]byte(programsBucket))
		if bucket == nil {
			return errors.New("programs bucket not found")
		}

		c := bucket.Cursor()
		for k, v := c.First(); k != nil; k, v = c.Next() {
			var dto programDTO
			if err := json.Unmarshal(v, &dto); err != nil {
				continue
			}
			stop, err := time.Parse(time.RFC3339, dto.Stop)
			if err != nil {
				continue
			}
			if stop.Before(olderThan) {
				if err := c.Delete(); err != nil {
					return err
				}
				deleted++
			}
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	return deleted, nil
}

// CountPrograms returns the number of stored program rows.
func (r *GuideBoltDBRepository) CountPrograms(ctx context.Context) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}

	count := 0
	err := r.db.View(func(tx *bbolt.Tx) error {
		bucket := tx.Bucket([]byte(programsBucket))
		if bucket == nil {
			return errors.New("programs bucket not found")
		}
		count = bucket.Stats().KeyN
		return nil
	})
	if err != nil {
		return 0, err
	}
	return count, nil
}

// LastUpdate returns when the guide was last successfully refreshed, or the
// zero time if never.
func (r *GuideBoltDBRepository) LastUpdate(ctx context.Context) (time.Time, error) {
	if err := ctx.Err(); err != nil {
		return time.Time{}, err
	}

	var t time.Time
	err := r.db.View(func(tx *bbolt.Tx) error {
		bucket := tx.Bucket([]byte(guideMetaBucket))
		if bucket == nil {
			return errors.New("guide meta bucket not found")
		}
		data := bucket.Get([]byte(lastUpdateKey))
		if data == nil {
			return nil
		}
		parsed, err := time.Parse(time.RFC3339Nano, string(data))
		if err != nil {
			return err
		}
		t = parsed
		return nil
	})
	return t, err
}

// SetLastUpdate records a successful refresh instant.
func (r *GuideBoltDBRepository) SetLastUpdate(ctx context.Context, t time.Time) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	return r.db.Update(func(tx *bbolt.Tx) error {
		bucket := tx.Bucket([]byte(guideMetaBucket))
		if bucket == nil {
			return errors.New("guide meta bucket not found")
		}
		return bucket.Put([]byte(lastUpdateKey), []byte(t.UTC().Format(time.RFC3339Nano)))
	})
}

// Ping checks if the BoltDB database is accessible and operational.
func (r *GuideBoltDBRepository) Ping(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	return r.db.View(func(tx *bbolt.Tx) error {
		if tx.Bucket([]byte(programsBucket)) == nil {
			return errors.New("programs bucket not found")
		}
		return nil
	})
}
