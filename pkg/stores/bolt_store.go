package stores

import (
	"context"
	"encoding/binary"
	"fmt"
	"time"

	"github.com/boltdb/bolt"
)

var recordsBucket = []byte("records")

// valueTag prefixes every stored value so that an empty string is never
// stored as a zero-length slice, which bolt cannot tell apart from a miss.
const valueTag byte = 0x01

// BoltStore implements the Store interface on top of a bolt file.
type BoltStore struct {
	db  *bolt.DB
	cfg Config
}

// NewBoltStore creates a new bolt store instance.
func NewBoltStore(cfg Config) (*BoltStore, error) {
	if cfg.Path == "" {
		return nil, invalidConfig("database path is required")
	}
	if cfg.Path == MemoryPath {
		return nil, invalidConfig("bolt does not support in-memory databases")
	}
	if cfg.OpenTimeout == 0 {
		cfg.OpenTimeout = time.Second
	}
	return &BoltStore{cfg: cfg}, nil
}

// Init opens the bolt file, taking its exclusive lock.
func (s *BoltStore) Init(_ context.Context) error {
	db, err := bolt.Open(s.cfg.Path, 0600, &bolt.Options{Timeout: s.cfg.OpenTimeout})
	if err != nil {
		return unavailable("init", fmt.Errorf("failed to open database: %w", err))
	}
	s.db = db
	return nil
}

// Close releases the file lock. It is safe to call more than once.
func (s *BoltStore) Close() error {
	if s.db == nil {
		return nil
	}
	db := s.db
	s.db = nil
	if err := db.Close(); err != nil {
		return unavailable("close", err)
	}
	return nil
}

// Migrate ensures the records bucket exists.
func (s *BoltStore) Migrate(_ context.Context) error {
	if s.db == nil {
		return unavailable("migrate", errClosed)
	}
	err := s.db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(recordsBucket)
		return err
	})
	if err != nil {
		return unavailable("migrate", fmt.Errorf("failed to create bucket: %w", err))
	}
	return nil
}

// Insert creates a new record. An existing id yields ErrDuplicateID.
func (s *BoltStore) Insert(_ context.Context, id int64, value string) error {
	if s.db == nil {
		return unavailableID("insert", id, errClosed)
	}

	var dup bool
	err := s.db.Update(func(tx *bolt.Tx) error {
		bucket, err := s.bucket(tx)
		if err != nil {
			return err
		}
		key := idToBytes(id)
		if bucket.Get(key) != nil {
			dup = true
			return nil
		}
		return bucket.Put(key, encodeValue(value))
	})
	if err != nil {
		return unavailableID("insert", id, fmt.Errorf("failed to insert record: %w", err))
	}
	if dup {
		return duplicateID(id, fmt.Errorf("record %d already exists", id))
	}
	return nil
}

// Read returns the value stored for id. found is false when no record exists.
func (s *BoltStore) Read(_ context.Context, id int64) (string, bool, error) {
	if s.db == nil {
		return "", false, unavailableID("read", id, errClosed)
	}

	var (
		value string
		found bool
	)
	err := s.db.View(func(tx *bolt.Tx) error {
		bucket, err := s.bucket(tx)
		if err != nil {
			return err
		}
		encoded := bucket.Get(idToBytes(id))
		if encoded == nil {
			return nil
		}
		value, err = decodeValue(encoded)
		found = err == nil
		return err
	})
	if err != nil {
		return "", false, unavailableID("read", id, fmt.Errorf("failed to read record: %w", err))
	}
	return value, found, nil
}

// Get returns the record for id, or nil when it does not exist.
func (s *BoltStore) Get(ctx context.Context, id int64) (*Record, error) {
	value, found, err := s.Read(ctx, id)
	if err != nil || !found {
		return nil, err
	}
	return &Record{ID: id, Value: value}, nil
}

// Update replaces the value of an existing record. A missing id affects
// nothing and is reported as updated=false.
func (s *BoltStore) Update(_ context.Context, id int64, value string) (bool, error) {
	if s.db == nil {
		return false, unavailableID("update", id, errClosed)
	}

	var updated bool
	err := s.db.Update(func(tx *bolt.Tx) error {
		bucket, err := s.bucket(tx)
		if err != nil {
			return err
		}
		key := idToBytes(id)
		if bucket.Get(key) == nil {
			return nil
		}
		updated = true
		return bucket.Put(key, encodeValue(value))
	})
	if err != nil {
		return false, unavailableID("update", id, fmt.Errorf("failed to update record: %w", err))
	}
	return updated, nil
}

// Delete removes the record for id. A missing id is reported as deleted=false.
func (s *BoltStore) Delete(_ context.Context, id int64) (bool, error) {
	if s.db == nil {
		return false, unavailableID("delete", id, errClosed)
	}

	var deleted bool
	err := s.db.Update(func(tx *bolt.Tx) error {
		bucket, err := s.bucket(tx)
		if err != nil {
			return err
		}
		key := idToBytes(id)
		if bucket.Get(key) == nil {
			return nil
		}
		deleted = true
		return bucket.Delete(key)
	})
	if err != nil {
		return false, unavailableID("delete", id, fmt.Errorf("failed to delete record: %w", err))
	}
	return deleted, nil
}

// List lists records ordered by id with pagination. A non-positive limit
// returns every record after offset.
func (s *BoltStore) List(_ context.Context, limit, offset int) ([]*Record, error) {
	if s.db == nil {
		return nil, unavailable("list", errClosed)
	}

	records := []*Record{}
	err := s.db.View(func(tx *bolt.Tx) error {
		bucket, err := s.bucket(tx)
		if err != nil {
			return err
		}
		skipped := 0
		c := bucket.Cursor()
		for k, v := c.First(); k != nil; k, v = c.Next() {
			if skipped < offset {
				skipped++
				continue
			}
			if limit > 0 && len(records) >= limit {
				break
			}
			value, err := decodeValue(v)
			if err != nil {
				return err
			}
			records = append(records, &Record{ID: bytesToID(k), Value: value})
		}
		return nil
	})
	if err != nil {
		return nil, unavailable("list", fmt.Errorf("failed to list records: %w", err))
	}
	return records, nil
}

// Count returns the number of stored records.
func (s *BoltStore) Count(_ context.Context) (int64, error) {
	if s.db == nil {
		return 0, unavailable("count", errClosed)
	}

	var n int64
	err := s.db.View(func(tx *bolt.Tx) error {
		bucket, err := s.bucket(tx)
		if err != nil {
			return err
		}
		n = int64(bucket.Stats().KeyN)
		return nil
	})
	if err != nil {
		return 0, unavailable("count", fmt.Errorf("failed to count records: %w", err))
	}
	return n, nil
}

// HealthCheck verifies the bolt file is open and readable.
func (s *BoltStore) HealthCheck(_ context.Context) error {
	if s.db == nil {
		return unavailable("health", errClosed)
	}
	if err := s.db.View(func(tx *bolt.Tx) error {
		_, err := s.bucket(tx)
		return err
	}); err != nil {
		return unavailable("health", err)
	}
	return nil
}

func (s *BoltStore) bucket(tx *bolt.Tx) (*bolt.Bucket, error) {
	bucket := tx.Bucket(recordsBucket)
	if bucket == nil {
		return nil, fmt.Errorf("bucket %q missing, store not migrated", recordsBucket)
	}
	return bucket, nil
}

// idToBytes encodes id so that byte order matches signed integer order.
func idToBytes(id int64) []byte {
	b := make([]byte, 8)
	binary.BigEndian.PutUint64(b, uint64(id)^(1<<63))
	return b
}

func bytesToID(b []byte) int64 {
	return int64(binary.BigEndian.Uint64(b) ^ (1 << 63))
}

func encodeValue(value string) []byte {
	b := make([]byte, 0, len(value)+1)
	b = append(b, valueTag)
	return append(b, value...)
}

func decodeValue(b []byte) (string, error) {
	if len(b) == 0 || b[0] != valueTag {
		return "", fmt.Errorf("corrupt record value")
	}
	return string(b[1:]), nil
}
