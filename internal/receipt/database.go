package receipt

import (
	"context"
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"go.etcd.io/bbolt"
)

const bucketName = "receipts"

// ErrMissingStoreConfig is returned when a store is constructed without its connection settings
var ErrMissingStoreConfig = errors.New("store connection settings are required")

// Store defines the persistence gateway for extracted records
type Store interface {
	// Insert adds one row. Inserting the same record twice creates two rows.
	Insert(ctx context.Context, record Record) error

	// Close closes the store connection
	Close() error
}

// BoltStore implements the Store interface using a local BoltDB file
type BoltStore struct {
	db *bbolt.DB
}

// NewBoltStore creates a new BoltStore instance
func NewBoltStore(path string) (*BoltStore, error) {
	if path == "" {
		return nil, fmt.Errorf("%w: database path", ErrMissingStoreConfig)
	}

	db, err := bbolt.Open(path, 0600, &bbolt.Options{Timeout: 1 * time.Second})
	if err != nil {
		return nil, fmt.Errorf("opening boltdb: %w", err)
	}

	// Create bucket if it doesn't exist
	err = db.Update(func(tx *bbolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists([]byte(bucketName))
		return err
	})
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("creating bucket: %w", err)
	}

	return &BoltStore{db: db}, nil
}

// Insert appends a record under the bucket's next sequence number
func (b *BoltStore) Insert(_ context.Context, record Record) error {
	return b.db.Update(func(tx *bbolt.Tx) error {
		bucket := tx.Bucket([]byte(bucketName))

		seq, err := bucket.NextSequence()
		if err != nil {
			return fmt.Errorf("allocating key: %w", err)
		}

		data, err := json.Marshal(record)
		if err != nil {
			return fmt.Errorf("marshaling record: %w", err)
		}
		return bucket.Put(itob(seq), data)
	})
}

// List returns all records in insertion order
func (b *BoltStore) List() ([]Record, error) {
	records := make([]Record, 0)
	err := b.db.View(func(tx *bbolt.Tx) error {
		bucket := tx.Bucket([]byte(bucketName))
		return bucket.ForEach(func(k, v []byte) error {
			var record Record
			if err := json.Unmarshal(v, &record); err != nil {
				return fmt.Errorf("unmarshaling record: %w", err)
			}
			records = append(records, record)
			return nil
		})
	})
	if err != nil {
		return nil, err
	}
	return records, nil
}

// Close closes the database connection
func (b *BoltStore) Close() error {
	return b.db.Close()
}

// itob encodes a sequence number as a big-endian key so keys sort numerically
func itob(v uint64) []byte {
	key := make([]byte, 8)
	binary.BigEndian.PutUint64(key, v)
	return key
}
