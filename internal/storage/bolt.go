package storage

import (
	"context"
	"fmt"

	"go.etcd.io/bbolt"
)

// BoltScope stores a scope as one bucket of a BBolt database. Several scopes
// may share a database; each mutation is a single transaction.
type BoltScope struct {
	db     *bbolt.DB
	bucket []byte
}

var _ Scope = (*BoltScope)(nil)

// OpenBolt opens (or creates) the BBolt database at path.
func OpenBolt(path string, options *bbolt.Options) (*bbolt.DB, error) {
	db, err := bbolt.Open(path, 0600, options)
	if err != nil {
		return nil, fmt.Errorf("opening bbolt db: %w", err)
	}
	return db, nil
}

func NewBoltScope(db *bbolt.DB, bucket string) *BoltScope {
	return &BoltScope{db: db, bucket: []byte(bucket)}
}

func (s *BoltScope) Get(_ context.Context, key string) (string, bool, error) {
	var (
		value string
		found bool
	)
	err := s.db.View(func(tx *bbolt.Tx) error {
		b := tx.Bucket(s.bucket)
		if b == nil {
			return nil
		}
		if data := b.Get([]byte(key)); data != nil {
			value = string(data)
			found = true
		}
		return nil
	})
	if err != nil {
		return "", false, fmt.Errorf("failed to read %s/%s: %w", s.bucket, key, err)
	}
	return value, found, nil
}

func (s *BoltScope) Set(_ context.Context, values map[string]string) error {
	err := s.db.Update(func(tx *bbolt.Tx) error {
		b, err := tx.CreateBucketIfNotExists(s.bucket)
		if err != nil {
			return err
		}
		for k, v := range values {
			if err := b.Put([]byte(k), []byte(v)); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to write bucket %s: %w", s.bucket, err)
	}
	return nil
}

func (s *BoltScope) Delete(_ context.Context, keys ...string) error {
	err := s.db.Update(func(tx *bbolt.Tx) error {
		b := tx.Bucket(s.bucket)
		if b == nil {
			return nil
		}
		for _, k := range keys {
			if err := b.Delete([]byte(k)); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to delete from bucket %s: %w", s.bucket, err)
	}
	return nil
}
