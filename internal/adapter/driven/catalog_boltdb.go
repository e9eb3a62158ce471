package driven

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"go.etcd.io/bbolt"

	"github.com/avillega/iptv-cache/internal/catalog"
)

const (
	channelsBucket    = "channels"
	genresBucket      = "genres"
	catalogMetaBucket = "catalog_meta"

	catalogMetaKey = "meta"
)

// CatalogBoltDBRepository implements the CatalogRepository port using BoltDB.
// Writes replace the whole stored snapshot in one transaction, so a restart
// never observes a half-written catalog.
type CatalogBoltDBRepository struct {
	db *bbolt.DB
}

// NewCatalogBoltDBRepository creates a new BoltDB-backed catalog repository.
// It initializes the required buckets if they don't exist.
func NewCatalogBoltDBRepository(db *bbolt.DB) (*CatalogBoltDBRepository, error) {
	if db == nil {
		return nil, errors.New("db cannot be nil")
	}

	err := db.Update(func(tx *bbolt.Tx) error {
		for _, name := range []string{channelsBucket, genresBucket, catalogMetaBucket} {
			if _, err := tx.CreateBucketIfNotExists([]byte(name)); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	return &CatalogBoltDBRepository{db: db}, nil
}

// channelDTO is used for JSON serialization.
type channelDTO struct {
	ID          string   `json:"id"`
	Name        string   `json:"name"`
	Genres      []string `json:"genres,omitempty"`
	EPGID       string   `json:"epg_id,omitempty"`
	Logo        string   `json:"logo,omitempty"`
	Poster      string   `json:"poster,omitempty"`
	Background  string   `json:"background,omitempty"`
	Description string   `json:"description,omitempty"`
}

// catalogMetaDTO is used for JSON serialization of snapshot metadata.
type catalogMetaDTO struct {
	LastUpdated string   `json:"last_updated"`
	SourceURL   string   `json:"source_url"`
	GuideURLs   []string `json:"guide_urls,omitempty"`
}

func channelToDTO(ch catalog.Channel) channelDTO {
	return channelDTO{
		ID:          ch.ID(),
		Name:        ch.Name(),
		Genres:      ch.Genres(),
		EPGID:       ch.EPGID(),
		Logo:        ch.Logo(),
		Poster:      ch.Poster(),
		Background:  ch.Background(),
		Description: ch.Description(),
	}
}

func dtoToChannel(dto channelDTO) (catalog.Channel, error) {
	return catalog.NewChannel(dto.ID, dto.Name, dto.EPGID, dto.Genres, dto.Logo, dto.Poster, dto.Background, dto.Description)
}

// ReplaceSnapshot atomically replaces all stored channel and genre rows plus
// the snapshot metadata with the contents of snap.
func (r *CatalogBoltDBRepository) ReplaceSnapshot(ctx context.Context, snap *catalog.Snapshot) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if snap == nil {
		return errors.New("snapshot cannot be nil")
	}

	return r.db.Update(func(tx *bbolt.Tx) error {
		for _, name := range []string{channelsBucket, genresBucket, catalogMetaBucket} {
			if err := tx.DeleteBucket([]byte(name)); err != nil && !errors.Is(err, bbolt.ErrBucketNotFound) {
				return err
			}
			if _, err := tx.CreateBucket([]byte(name)); err != nil {
				return err
			}
		}

		channels := tx.Bucket([]byte(channelsBucket))
		for _, ch := range snap.Channels() {
			data, err := json.Marshal(channelToDTO(ch))
			if err != nil {
				return err
			}
			if err := channels.Put([]byte(ch.ID()), data); err != nil {
				return err
			}
		}

		genres := tx.Bucket([]byte(genresBucket))
		for _, g := range snap.Genres() {
			if err := genres.Put([]byte(g), nil); err != nil {
				return err
			}
		}

		meta := catalogMetaDTO{
			LastUpdated: snap.LastUpdated().UTC().Format(time.RFC3339Nano),
			SourceURL:   snap.SourceURL(),
			GuideURLs:   snap.GuideURLs(),
		}
		data, err := json.Marshal(meta)
		if err != nil {
			return err
		}
		return tx.Bucket([]byte(catalogMetaBucket)).Put([]byte(catalogMetaKey), data)
	})
}

// LoadSnapshot reads back the last persisted snapshot.
func (r *CatalogBoltDBRepository) LoadSnapshot(ctx context.Context) (*catalog.Snapshot, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var snap *catalog.Snapshot
	err := r.db.View(func(tx *bbolt.Tx) error {
		metaBucket := tx.Bucket([]byte(catalogMetaBucket))
		if metaBucket == nil {
			return catalog.ErrNoSnapshot
		}
		metaData := metaBucket.Get([]byte(catalogMetaKey))
		if metaData == nil {
			return catalog.ErrNoSnapshot
		}

		var meta catalogMetaDTO
		if err := json.Unmarshal(metaData, &meta); err != nil {
			return err
		}
		lastUpdated, err := time.Parse(time.RFC3339Nano, meta.LastUpdated)
		if err != nil {
			return err
		}

		var channels []catalog.Channel
		channelBucket := tx.Bucket([]byte(channelsBucket))
		if channelBucket != nil {
			err := channelBucket.ForEach(func(k, v []byte) error {
				var dto channelDTO
				if err := json.Unmarshal(v, &dto); err != nil {
					return err
				}
				ch, err := dtoToChannel(dto)
				if err != nil {
					return err
				}
				channels = append(channels, ch)
				return nil
			})
			if err != nil {
				return err
			}
		}

		var genres []string
		genreBucket := tx.Bucket([]byte(genresBucket))
		if genreBucket != nil {
			err := genreBucket.ForEach(func(k, v []byte) error {
				genres = append(genres, string(k))
				return nil
			})
			if err != nil {
				return err
			}
		}

		snap = catalog.NewSnapshot(channels, genres, meta.SourceURL, meta.GuideURLs, lastUpdated)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return snap, nil
}

// Ping checks if the BoltDB database is accessible and operational.
func (r *CatalogBoltDBRepository) Ping(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	return r.db.View(func(tx *bbolt.Tx) error {
		if tx.Bucket([]byte(channelsBucket)) == nil {
			return errors.New("channels bucket not found")
		}
		return nil
	})
}
