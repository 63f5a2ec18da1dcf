// Package local implements the device-local persistent tier: a durable
// key-value store for cached records plus the offline mutation queue.
//
// Records are wrapped in versioned envelopes. Reads past their ttl still
// return the value (explicitly allowed staleness, the whole point of a
// device tier is offline availability) but are logged as stale. A version
// mismatch or undecodable envelope self-heals by deletion.
//
// The sync queue lives in its own bucket, ordered by an append sequence,
// and is excluded from the generic age-based cleanup.
package local

import (
	"context"
	"encoding/binary"
	"encoding/json"
	"time"

	"github.com/rs/zerolog"
	bolt "go.etcd.io/bbolt"
)

// SchemaVersion stamps every envelope. Bumping it invalidates all locally
// cached records on next read (schema migration by deletion).
const SchemaVersion = 1

// MaxEntryAge is the hard ceiling for CleanupExpired: entries older than
// this are garbage regardless of per-read ttl arguments.
const MaxEntryAge = 7 * 24 * time.Hour

var (
	bucketEntries = []byte("entries")
	bucketSync    = []byte("sync_queue")
)

// envelope is the stored wrapper. Unlike the remote tier's envelope it
// carries no tag set; the local tier compares only age.
type envelope struct {
	Data      json.RawMessage `json:"data"`
	Timestamp int64           `json:"timestamp"` // unix milliseconds
	Version   int             `json:"version"`
}

// QueuedMutation is one offline mutation awaiting replay, in append order.
type QueuedMutation struct {
	// Seq is the store-assigned FIFO position.
	Seq uint64 `json:"seq"`

	// ID is the caller-assigned mutation id, used for removal.
	ID string `json:"id"`

	// Payload is the opaque mutation record.
	Payload json.RawMessage `json:"payload"`
}

// Store is the device-local persistent tier. Safe for concurrent use.
type Store struct {
	db  *bolt.DB
	log zerolog.Logger

	// now is swappable so staleness tests can travel in time.
	now func() time.Time
}

// Open opens (creating if needed) the store at path.
func Open(path string) (*Store, error) {
	log := logger()

	db, err := bolt.Open(path, 0o600, &bolt.Options{Timeout: time.Second})
	if err != nil {
		log.Error().Err(err).Str("path", path).Msg("failed to open local store")
		return nil, err
	}

	err = db.Update(func(tx *bolt.Tx) error {
		if _, err := tx.CreateBucketIfNotExists(bucketEntries); err != nil {
			return err
		}
		_, err := tx.CreateBucketIfNotExists(bucketSync)
		return err
	})
	if err != nil {
		_ = db.Close()
		return nil, err
	}

	log.Info().Str("path", path).Msg("local store opened")
	return &Store{db: db, log: log, now: time.Now}, nil
}

// Close releases the underlying database file.
func (s *Store) Close() error {
	err := s.db.Close()
	s.log.Info().Msg("local store closed")
	return err
}

// Get returns the value at key. A record older than ttl is still returned
// (the device tier prefers stale data over no data) but flagged stale in
// the second return. A zero ttl disables the staleness check. Version
// mismatches and corrupt records are deleted and read as absent.
func (s *Store) Get(ctx context.Context, key string, ttl time.Duration) (data json.RawMessage, found, isStale bool) {
	if err := ctx.Err(); err != nil {
		return nil, false, false
	}

	var env envelope
	var corrupt bool
	err := s.db.View(func(tx *bolt.Tx) error {
		raw := tx.Bucket(bucketEntries).Get([]byte(key))
		if raw == nil {
			return errNotFound
		}
		if err := json.Unmarshal(raw, &env); err != nil {
			corrupt = true
			return errNotFound
		}
		return nil
	})
	if err != nil {
		if corrupt {
			s.log.Warn().Str("key", key).Msg("corrupt local record, deleting")
			s.Remove(ctx, key)
		}
		return nil, false, false
	}

	if env.Version != SchemaVersion {
		s.log.Debug().
			Str("key", key).
			Int("version", env.Version).
			Msg("local record version mismatch, deleting")
		s.Remove(ctx, key)
		return nil, false, false
	}

	age := time.Duration(s.now().UnixMilli()-env.Timestamp) * time.Millisecond
	if ttl > 0 && age > ttl {
		s.log.Debug().Str("key", key).Dur("age", age).Msg("serving stale local record")
		return env.Data, true, true
	}
	return env.Data, true, false
}

// Set stores data at key in a fresh envelope.
func (s *Store) Set(ctx context.Context, key string, data json.RawMessage) bool {
	if err := ctx.Err(); err != nil {
		return false
	}

	raw, err := json.Marshal(envelope{
		Data:      data,
		Timestamp: s.now().UnixMilli(),
		Version:   SchemaVersion,
	})
	if err != nil {
		s.log.Error().Err(err).Str("key", key).Msg("local envelope encode failed")
		return false
	}

	err = s.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(bucketEntries).Put([]byte(key), raw)
	})
	if err != nil {
		s.log.Error().Err(err).Str("key", key).Msg("local store write failed")
		return false
	}
	return true
}

// Remove deletes the record at key. Returns true if a record existed.
func (s *Store) Remove(ctx context.Context, key string) bool {
	if err := ctx.Err(); err != nil {
		return false
	}

	var existed bool
	err := s.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketEntries)
		existed = b.Get([]byte(key)) != nil
		return b.Delete([]byte(key))
	})
	if err != nil {
		s.log.Error().Err(err).Str("key", key).Msg("local store delete failed")
		return false
	}
	return existed
}

// Keys returns every stored entry key, excluding the sync queue.
func (s *Store) Keys(ctx context.Context) []string {
	if err := ctx.Err(); err != nil {
		return nil
	}

	var out []string
	_ = s.db.View(func(tx *bolt.Tx) error {
		return tx.Bucket(bucketEntries).ForEach(func(k, _ []byte) error {
			out = append(out, string(k))
			return nil
		})
	})
	return out
}

// CleanupExpired removes entries older than MaxEntryAge along with any
// record that no longer decodes. The sync queue is never touched.
// Returns how many records were removed.
func (s *Store) CleanupExpired(ctx context.Context) int {
	if err := ctx.Err(); err != nil {
		return 0
	}

	cutoff := s.now().Add(-MaxEntryAge).UnixMilli()
	removed := 0
	err := s.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketEntries)
		c := b.Cursor()
		for k, v := c.First(); k != nil; k, v = c.Next() {
			var env envelope
			if err := json.Unmarshal(v, &env); err != nil || env.Timestamp < cutoff {
				if err := c.Delete(); err != nil {
					return err
				}
				removed++
			}
		}
		return nil
	})
	if err != nil {
		s.log.Error().Err(err).Msg("local store cleanup failed")
		return removed
	}
	if removed > 0 {
		s.log.Info().Int("removed", removed).Msg("local store cleanup")
	}
	return removed
}

// AppendSync appends one mutation record to the offline queue.
func (s *Store) AppendSync(ctx context.Context, id string, payload json.RawMessage) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	return s.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketSync)
		seq, err := b.NextSequence()
		if err != nil {
			return err
		}
		raw, err := json.Marshal(QueuedMutation{Seq: seq, ID: id, Payload: payload})
		if err != nil {
			return err
		}
		return b.Put(seqKey(seq), raw)
	})
}

// SyncQueue returns the queued mutations in FIFO order.
func (s *Store) SyncQueue(ctx context.Context) []QueuedMutation {
	if err := ctx.Err(); err != nil {
		return nil
	}

	var out []QueuedMutation
	_ = s.db.View(func(tx *bolt.Tx) error {
		// Big-endian sequence keys make byte order equal append order.
		return tx.Bucket(bucketSync).ForEach(func(_, v []byte) error {
			var m QueuedMutation
			if err := json.Unmarshal(v, &m); err != nil {
				s.log.Warn().Msg("corrupt sync queue record, skipping")
				return nil
			}
			out = append(out, m)
			return nil
		})
	})
	return out
}

// RemoveSync deletes the queued mutation with the given id.
// Returns true if a record was removed.
func (s *Store) RemoveSync(ctx context.Context, id string) bool {
	if err := ctx.Err(); err != nil {
		return false
	}

	var removed bool
	err := s.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketSync)
		c := b.Cursor()
		for k, v := c.First(); k != nil; k, v = c.Next() {
			var m QueuedMutation
			if err := json.Unmarshal(v, &m); err != nil {
				continue
			}
			if m.ID == id {
				removed = true
				return c.Delete()
			}
		}
		return nil
	})
	if err != nil {
		s.log.Error().Err(err).Str("id", id).Msg("sync queue delete failed")
		return false
	}
	return removed
}

// ClearSyncQueue drops every queued mutation. Returns how many there were.
func (s *Store) ClearSyncQueue(ctx context.Context) int {
	if err := ctx.Err(); err != nil {
		return 0
	}

	count := 0
	err := s.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketSync)
		c := b.Cursor()
		for k, _ := c.First(); k != nil; k, _ = c.Next() {
			if err := c.Delete(); err != nil {
				return err
			}
			count++
		}
		return nil
	})
	if err != nil {
		s.log.Error().Err(err).Msg("sync queue clear failed")
	}
	return count
}

func seqKey(seq uint64) []byte {
	var k [8]byte
	binary.BigEndian.PutUint64(k[:], seq)
	return k[:]
}
