package cache

import (
	"encoding/json"
	"fmt"
	"time"

	bolt "go.etcd.io/bbolt"
)

var snapshotBucket = []byte("entries")

// snapshotStore wraps the bolt database backing snapshot persistence.
type snapshotStore struct {
	db *bolt.DB
}

func openSnapshot(path string) (*snapshotStore, error) {
	db, err := bolt.Open(path, 0o600, &bolt.Options{Timeout: 1 * time.Second})
	if err != nil {
		return nil, fmt.Errorf("cache: open snapshot: %w", err)
	}
	if err := db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(snapshotBucket)
		return err
	}); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("cache: open snapshot: %w", err)
	}
	return &snapshotStore{db: db}, nil
}

func (s *snapshotStore) close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// snapshotRecord is the on-disk form of one entry. Values round-trip
// through encoding/json; epochs are process-local and not persisted.
type snapshotRecord struct {
	Value      json.RawMessage `json:"value"`
	Tags       []string        `json:"tags,omitempty"`
	Profile    string          `json:"profile,omitempty"`
	CreatedAt  time.Time       `json:"created_at"`
	StaleAt    time.Time       `json:"stale_at"`
	ExpireAt   time.Time       `json:"expire_at"`
	Generation uint64          `json:"generation"`
	Marker     string          `json:"marker"`
}

// openAndRestore opens the snapshot database and loads its entries
// into the empty cache, dropping anything already hard expired.
// Invalidation markers survive the round trip, so an entry that was
// invalidated before shutdown still blocks its next reader.
func (c *Cache[V]) openAndRestore() error {
	snap, err := openSnapshot(c.snapshotPath)
	if err != nil {
		return err
	}
	c.snap = snap

	now := c.now()
	err = snap.db.View(func(tx *bolt.Tx) error {
		b := tx.Bucket(snapshotBucket)
		return b.ForEach(func(k, v []byte) error {
			var rec snapshotRecord
			if err := json.Unmarshal(v, &rec); err != nil {
				return fmt.Errorf("cache: decode snapshot entry %q: %w", k, err)
			}
			if !rec.ExpireAt.IsZero() && !now.Before(rec.ExpireAt) {
				return nil
			}
			var value V
			if err := json.Unmarshal(rec.Value, &value); err != nil {
				return fmt.Errorf("cache: decode snapshot value %q: %w", k, err)
			}

			key := string(k)
			e := &entry[V]{
				key:        key,
				value:      value,
				tags:       normalizeTags(rec.Tags),
				profile:    rec.Profile,
				createdAt:  rec.CreatedAt,
				staleAt:    rec.StaleAt,
				expireAt:   rec.ExpireAt,
				generation: rec.Generation,
				marker:     parseMarker(rec.Marker),
			}
			c.entries[key] = e
			for _, tag := range e.tags {
				c.index.index(tag, key)
			}
			return nil
		})
	})
	if err != nil {
		_ = snap.close()
		c.snap = nil
		return err
	}
	return nil
}

// persistSnapshot rewrites the snapshot bucket from the live entries.
func (c *Cache[V]) persistSnapshot() error {
	c.mu.RLock()
	records := make(map[string][]byte, len(c.entries))
	for key, e := range c.entries {
		raw, err := json.Marshal(e.value)
		if err != nil {
			c.mu.RUnlock()
			return fmt.Errorf("cache: encode snapshot value %q: %w", key, err)
		}
		rec := snapshotRecord{
			Value:      raw,
			Tags:       e.tags,
			Profile:    e.profile,
			CreatedAt:  e.createdAt,
			StaleAt:    e.staleAt,
			ExpireAt:   e.expireAt,
			Generation: e.generation,
			Marker:     e.marker.String(),
		}
		buf, err := json.Marshal(rec)
		if err != nil {
			c.mu.RUnlock()
			return fmt.Errorf("cache: encode snapshot entry %q: %w", key, err)
		}
		records[key] = buf
	}
	c.mu.RUnlock()

	return c.snap.db.Update(func(tx *bolt.Tx) error {
		if err := tx.DeleteBucket(snapshotBucket); err != nil {
			return err
		}
		b, err := tx.CreateBucket(snapshotBucket)
		if err != nil {
			return err
		}
		for key, buf := range records {
			if err := b.Put([]byte(key), buf); err != nil {
				return err
			}
		}
		return nil
	})
}

func parseMarker(s string) State {
	switch s {
	case StateStale.String():
		return StateStale
	case StateInvalidated.String():
		return StateInvalidated
	default:
		return StateFresh
	}
}
