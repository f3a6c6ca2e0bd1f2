// Package store provides the persisted key/value mapping from a header
// hash to its serialized block, backed by bbolt.
package store

import (
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"
	"time"

	bolt "go.etcd.io/bbolt"

	"github.com/somechain-network/node/consensus"
)

var bucketBlocks = []byte("blocks_by_hash")

// DB is the node's block store: an idempotent, hash-keyed mapping from
// header hash to serialized block body.
type DB struct {
	db *bolt.DB
}

// Open creates or opens the bbolt database file under datadir.
func Open(datadir string) (*DB, error) {
	if datadir == "" {
		return nil, fmt.Errorf("datadir required")
	}
	if err := os.MkdirAll(datadir, 0o700); err != nil {
		return nil, fmt.Errorf("create datadir: %w", err)
	}
	path := filepath.Join(datadir, "blocks.db")
	bdb, err := bolt.Open(path, 0o600, &bolt.Options{Timeout: 1 * time.Second})
	if err != nil {
		return nil, fmt.Errorf("open bbolt: %w", err)
	}
	if err := bdb.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(bucketBlocks)
		return err
	}); err != nil {
		_ = bdb.Close()
		return nil, fmt.Errorf("create bucket: %w", err)
	}
	return &DB{db: bdb}, nil
}

func (d *DB) Close() error {
	if d == nil || d.db == nil {
		return nil
	}
	return d.db.Close()
}

// PutBlock stores block under its header hash, serialized canonically.
// Writing the same hash twice is idempotent: the second write overwrites
// with identical bytes.
func (d *DB) PutBlock(hash consensus.Hash, block *consensus.Block) error {
	key, err := hashKey(hash)
	if err != nil {
		return err
	}
	val := consensus.CanonicalBlock(block)
	return d.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(bucketBlocks).Put(key, val)
	})
}

// GetBlock returns the block stored under hash, if any.
func (d *DB) GetBlock(hash consensus.Hash) (*consensus.Block, bool) {
	key, err := hashKey(hash)
	if err != nil {
		return nil, false
	}
	var raw []byte
	_ = d.db.View(func(tx *bolt.Tx) error {
		v := tx.Bucket(bucketBlocks).Get(key)
		if v != nil {
			raw = append([]byte(nil), v...)
		}
		return nil
	})
	if raw == nil {
		return nil, false
	}
	block, err := consensus.ParseBlock(raw)
	if err != nil {
		return nil, false
	}
	return block, true
}

// DeleteBlock removes the entry for hash, used when a block's reference
// count from all tracked chains drops to zero.
func (d *DB) DeleteBlock(hash consensus.Hash) error {
	key, err := hashKey(hash)
	if err != nil {
		return err
	}
	return d.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(bucketBlocks).Delete(key)
	})
}

func hashKey(hash consensus.Hash) ([]byte, error) {
	b, err := hex.DecodeString(string(hash))
	if err != nil {
		return nil, fmt.Errorf("invalid hash: %w", err)
	}
	return b, nil
}
