package credstore

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"go.etcd.io/bbolt"
)

var bucketCredentials = []byte("credentials")

// boltOpenTimeout bounds how long Open waits for another process holding the
// database file lock.
const boltOpenTimeout = 2 * time.Second

// Bolt stores the pair under two keys of one bbolt bucket. Set and Clear run
// inside a single update transaction.
type Bolt struct {
	db *bbolt.DB
}

// OpenBolt opens (or creates) the bbolt database at path.
func OpenBolt(path string) (*Bolt, error) {
	if err := os.MkdirAll(filepath.Dir(path), DirPerms); err != nil {
		return nil, fmt.Errorf("credstore: creating directory for %s: %w", path, err)
	}

	db, err := bbolt.Open(path, FilePerms, &bbolt.Options{Timeout: boltOpenTimeout})
	if err != nil {
		return nil, fmt.Errorf("credstore: opening boltdb %s: %w", path, err)
	}

	err = db.Update(func(tx *bbolt.Tx) error {
		_, bErr := tx.CreateBucketIfNotExists(bucketCredentials)
		return bErr
	})
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("credstore: creating credentials bucket: %w", err)
	}

	return &Bolt{db: db}, nil
}

// Get reads both keys in one read transaction.
func (b *Bolt) Get(_ context.Context) (Pair, error) {
	var access, refresh string

	err := b.db.View(func(tx *bbolt.Tx) error {
		bucket := tx.Bucket(bucketCredentials)
		if bucket == nil {
			return errors.New("credentials bucket not found")
		}

		// Values are only valid inside the transaction; copy them out.
		access = string(bucket.Get([]byte(KeyAccess)))
		refresh = string(bucket.Get([]byte(KeyRefresh)))

		return nil
	})
	if err != nil {
		return Pair{}, fmt.Errorf("credstore: reading credentials: %w", err)
	}

	return pairFromValues(access, refresh)
}

// Set writes both keys in one update transaction.
func (b *Bolt) Set(_ context.Context, p Pair) error {
	if err := validate(p); err != nil {
		return err
	}

	err := b.db.Update(func(tx *bbolt.Tx) error {
		bucket := tx.Bucket(bucketCredentials)
		if bucket == nil {
			return errors.New("credentials bucket not found")
		}

		if err := bucket.Put([]byte(KeyAccess), []byte(p.Access)); err != nil {
			return err
		}

		return bucket.Put([]byte(KeyRefresh), []byte(p.Refresh))
	})
	if err != nil {
		return fmt.Errorf("credstore: saving credentials: %w", err)
	}

	return nil
}

// Clear deletes both keys in one update transaction.
func (b *Bolt) Clear(_ context.Context) error {
	err := b.db.Update(func(tx *bbolt.Tx) error {
		bucket := tx.Bucket(bucketCredentials)
		if bucket == nil {
			return nil
		}

		if err := bucket.Delete([]byte(KeyAccess)); err != nil {
			return err
		}

		return bucket.Delete([]byte(KeyRefresh))
	})
	if err != nil {
		return fmt.Errorf("credstore: clearing credentials: %w", err)
	}

	return nil
}

// Close releases the database file lock.
func (b *Bolt) Close() error {
	return b.db.Close()
}
