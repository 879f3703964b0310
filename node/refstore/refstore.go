// Package refstore persists previous block generator programs by
// height. Compressed generators back-reference earlier ones, so the
// driver needs the referenced programs' raw bytes to build its
// argument list; this store is where a node keeps them.
package refstore

import (
	"encoding/binary"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	bolt "go.etcd.io/bbolt"
)

var log = logrus.WithField("prefix", "refstore")

var bucketGenerators = []byte("generators")

// Store is a bbolt-backed map from block height to generator bytes.
// It is safe for concurrent readers with one writer, which bbolt
// enforces itself.
type Store struct {
	db *bolt.DB
}

// Open creates or opens the store file.
func Open(path string) (*Store, error) {
	db, err := bolt.Open(path, 0o600, nil)
	if err != nil {
		return nil, errors.Wrap(err, "refstore: open")
	}
	err = db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(bucketGenerators)
		return err
	})
	if err != nil {
		_ = db.Close()
		return nil, errors.Wrap(err, "refstore: create bucket")
	}
	return &Store{db: db}, nil
}

// Close releases the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}

func heightKey(height uint64) [8]byte {
	var key [8]byte
	binary.BigEndian.PutUint64(key[:], height)
	return key
}

// Put stores the generator program of one block.
func (s *Store) Put(height uint64, program []byte) error {
	err := s.db.Update(func(tx *bolt.Tx) error {
		key := heightKey(height)
		return tx.Bucket(bucketGenerators).Put(key[:], program)
	})
	if err != nil {
		return errors.Wrapf(err, "refstore: put height %d", height)
	}
	log.WithFields(logrus.Fields{"height": height, "bytes": len(program)}).Debug("stored generator")
	return nil
}

// Get returns the generator stored at height, or ok=false when the
// height holds none.
func (s *Store) Get(height uint64) ([]byte, bool, error) {
	var out []byte
	found := false
	err := s.db.View(func(tx *bolt.Tx) error {
		key := heightKey(height)
		v := tx.Bucket(bucketGenerators).Get(key[:])
		if v != nil {
			out = append([]byte(nil), v...)
			found = true
		}
		return nil
	})
	if err != nil {
		return nil, false, errors.Wrapf(err, "refstore: get height %d", height)
	}
	return out, found, nil
}

// GetMany materializes the ref-program list of a block: one generator
// per referenced height, in the order given. A missing height is an
// error, since the block cannot be decompressed without it.
func (s *Store) GetMany(heights []uint64) ([][]byte, error) {
	out := make([][]byte, 0, len(heights))
	err := s.db.View(func(tx *bolt.Tx) error {
		bucket := tx.Bucket(bucketGenerators)
		for _, height := range heights {
			key := heightKey(height)
			v := bucket.Get(key[:])
			if v == nil {
				return errors.Errorf("no generator stored at height %d", height)
			}
			out = append(out, append([]byte(nil), v...))
		}
		return nil
	})
	if err != nil {
		return nil, errors.Wrap(err, "refstore: get refs")
	}
	return out, nil
}

// Delete removes the generator at height, if any.
func (s *Store) Delete(height uint64) error {
	err := s.db.Update(func(tx *bolt.Tx) error {
		key := heightKey(height)
		return tx.Bucket(bucketGenerators).Delete(key[:])
	})
	return errors.Wrapf(err, "refstore: delete height %d", height)
}

// PruneBelow removes every generator below the given height. Blocks
// only reference a bounded look-back window, so older programs can go.
func (s *Store) PruneBelow(height uint64) (int, error) {
	removed := 0
	err := s.db.Update(func(tx *bolt.Tx) error {
		c := tx.Bucket(bucketGenerators).Cursor()
		limit := heightKey(height)
		for k, _ := c.First(); k != nil; k, _ = c.Next() {
			if string(k) >= string(limit[:]) {
				break
			}
			if err := c.Delete(); err != nil {
				return err
			}
			removed++
		}
		return nil
	})
	if err != nil {
		return 0, errors.Wrap(err, "refstore: prune")
	}
	if removed > 0 {
		log.WithFields(logrus.Fields{"below": height, "removed": removed}).Info("pruned generators")
	}
	return removed, nil
}
