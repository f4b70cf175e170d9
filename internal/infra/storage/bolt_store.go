package storage

import (
	"context"
	"encoding/binary"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"go.etcd.io/bbolt"

	"homework_portal/internal/domain/homework"
)

var snapshotsBucket = []byte("snapshots")

// BoltStore appends every saved document to a local bbolt file. The newest
// key is the current revision.
type BoltStore struct {
	db  *bbolt.DB
	now func() time.Time
}

// OpenBoltStore opens (or creates) the database file at path.
func OpenBoltStore(path string) (*BoltStore, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("failed to create bolt directory: %w", err)
	}
	db, err := bbolt.Open(path, 0o600, &bbolt.Options{Timeout: time.Second})
	if err != nil {
		return nil, fmt.Errorf("failed to open bolt file: %w", err)
	}
	err = db.Update(func(tx *bbolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(snapshotsBucket)
		return err
	})
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create bolt bucket: %w", err)
	}
	return &BoltStore{db: db, now: time.Now}, nil
}

func (s *BoltStore) Close() error {
	return s.db.Close()
}

func (s *BoltStore) Load(ctx context.Context) (*homework.Snapshot, error) {
	var (
		raw      []byte
		revision string
	)
	err := s.db.View(func(tx *bbolt.Tx) error {
		k, v := tx.Bucket(snapshotsBucket).Cursor().Last()
		if k == nil {
			return nil
		}
		raw = append([]byte(nil), v...)
		revision = strconv.FormatUint(binary.BigEndian.Uint64(k), 10)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to read bolt snapshot: %w", err)
	}
	return loadOrBootstrap(ctx, s, raw, revision, s.now())
}

func (s *BoltStore) Save(_ context.Context, data *homework.DataFile, expectedRevision string) (string, error) {
	encoded, err := prepare(data, s.now())
	if err != nil {
		return "", err
	}

	var revision string
	err = s.db.Update(func(tx *bbolt.Tx) error {
		b := tx.Bucket(snapshotsBucket)
		current := ""
		if k, _ := b.Cursor().Last(); k != nil {
			current = strconv.FormatUint(binary.BigEndian.Uint64(k), 10)
		}
		if current != expectedRevision {
			return fmt.Errorf("%w: stored %q, expected %q", homework.ErrRevisionConflict, current, expectedRevision)
		}
		seq, err := b.NextSequence()
		if err != nil {
			return err
		}
		key := make([]byte, 8)
		binary.BigEndian.PutUint64(key, seq)
		if err := b.Put(key, encoded); err != nil {
			return err
		}
		revision = strconv.FormatUint(seq, 10)
		return nil
	})
	if err != nil {
		return "", err
	}
	return revision, nil
}
