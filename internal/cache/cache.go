package cache

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"go.etcd.io/bbolt"

	"wormsign/internal/model"
)

const (
	FileName = ".worm-sign-cache.db"
	// TTL is how long fetched feeds stay fresh.
	TTL = time.Hour

	bucketFeeds = "feeds"
)

type entry struct {
	StoredAt time.Time                `json:"stored_at"`
	Records  []model.CompromiseRecord `json:"records"`
}

// FeedCache keeps fetched compromise records in a bbolt file, keyed by
// the set of sources that produced them.
type FeedCache struct {
	DB  *bbolt.DB
	TTL time.Duration
	now func() time.Time
}

// DefaultPath is the cache file in the user's home directory.
func DefaultPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, FileName), nil
}

// Open opens (creating if needed) the cache at path.
func Open(path string) (*FeedCache, error) {
	db, err := bbolt.Open(path, 0600, &bbolt.Options{Timeout: time.Second})
	if err != nil {
		return nil, fmt.Errorf("open feed cache %s: %w", path, err)
	}
	return &FeedCache{DB: db, TTL: TTL, now: time.Now}, nil
}

func (c *FeedCache) Close() error {
	return c.DB.Close()
}

// Key normalizes a list of source names into a cache key.
func Key(sources []string) string {
	names := make([]string, 0, len(sources))
	for _, s := range sources {
		if s = strings.TrimSpace(s); s != "" {
			names = append(names, s)
		}
	}
	sort.Strings(names)
	return strings.Join(names, ",")
}

// Get returns the records cached for sources when they are younger than
// the TTL. A stale or missing entry is a miss, not an error.
func (c *FeedCache) Get(sources []string) ([]model.CompromiseRecord, bool, error) {
	var e entry
	var found bool
	err := c.DB.View(func(tx *bbolt.Tx) error {
		b := tx.Bucket([]byte(bucketFeeds))
		if b == nil {
			return nil
		}
		v := b.Get([]byte(Key(sources)))
		if v == nil {
			return nil
		}
		if err := json.Unmarshal(v, &e); err != nil {
			return fmt.Errorf("unmarshal cache entry: %w", err)
		}
		found = true
		return nil
	})
	if err != nil || !found {
		return nil, false, err
	}
	if c.now().Sub(e.StoredAt) > c.TTL {
		return nil, false, nil
	}
	return e.Records, true, nil
}

// Put stores records for sources, stamped with the current time.
func (c *FeedCache) Put(sources []string, records []model.CompromiseRecord) error {
	data, err := json.Marshal(entry{StoredAt: c.now(), Records: records})
	if err != nil {
		return err
	}
	return c.DB.Update(func(tx *bbolt.Tx) error {
		b, err := tx.CreateBucketIfNotExists([]byte(bucketFeeds))
		if err != nil {
			return err
		}
		return b.Put([]byte(Key(sources)), data)
	})
}
