// Package bolt is the default on-disk store, backed by a single bbolt file.
package bolt

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"go.etcd.io/bbolt"

	"filesearch/internal/domain"
	"filesearch/internal/vectorstore"
)

var (
	bucketMeta    = []byte("meta")
	bucketVectors = []byte("vectors")
)

// Storage keeps metadata as JSON and embeddings as raw float32 blobs,
// both keyed by path.
type Storage struct {
	db *bbolt.DB
}

// Open opens or creates the database at path.
func Open(path string) (*Storage, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, err
	}
	db, err := bbolt.Open(path, 0600, &bbolt.Options{Timeout: 5 * time.Second})
	if err != nil {
		return nil, fmt.Errorf("open bolt %s: %w", path, err)
	}

	err = db.Update(func(tx *bbolt.Tx) error {
		if _, err := tx.CreateBucketIfNotExists(bucketMeta); err != nil {
			return err
		}
		if _, err := tx.CreateBucketIfNotExists(bucketVectors); err != nil {
			return err
		}
		return nil
	})
	if err != nil {
		db.Close()
		return nil, err
	}

	return &Storage{db: db}, nil
}

func (s *Storage) Upsert(_ context.Context, records []domain.Record) error {
	if err := vectorstore.ValidateRecords(records); err != nil {
		return err
	}
	return s.db.Update(func(tx *bbolt.Tx) error {
		meta := tx.Bucket(bucketMeta)
		vecs := tx.Bucket(bucketVectors)
		for _, r := range records {
			data, err := json.Marshal(r.Metadata)
			if err != nil {
				return err
			}
			key := []byte(r.Path)
			if err := meta.Put(key, data); err != nil {
				return err
			}
			if err := vecs.Put(key, vectorstore.EncodeVector(r.Embedding)); err != nil {
				return err
			}
		}
		return nil
	})
}

func (s *Storage) Query(ctx context.Context, vector []float32, k int) ([]domain.Neighbor, error) {
	var cands []vectorstore.Candidate
	err := s.db.View(func(tx *bbolt.Tx) error {
		meta := tx.Bucket(bucketMeta)
		return tx.Bucket(bucketVectors).ForEach(func(key, blob []byte) error {
			if err := ctx.Err(); err != nil {
				return err
			}
			vec, err := vectorstore.DecodeVector(blob)
			if err != nil {
				return fmt.Errorf("decode %s: %w", key, err)
			}
			var m domain.Metadata
			if err := json.Unmarshal(meta.Get(key), &m); err != nil {
				return fmt.Errorf("decode metadata %s: %w", key, err)
			}
			cands = append(cands, vectorstore.Candidate{Meta: m, Vector: vec})
			return nil
		})
	})
	if err != nil {
		return nil, err
	}
	return vectorstore.Rank(vector, cands, k), nil
}

func (s *Storage) Delete(_ context.Context, ids []string) error {
	if len(ids) == 0 {
		return nil
	}
	return s.db.Update(func(tx *bbolt.Tx) error {
		meta := tx.Bucket(bucketMeta)
		vecs := tx.Bucket(bucketVectors)
		for _, id := range ids {
			if err := meta.Delete([]byte(id)); err != nil {
				return err
			}
			if err := vecs.Delete([]byte(id)); err != nil {
				return err
			}
		}
		return nil
	})
}

func (s *Storage) All(_ context.Context) ([]domain.Metadata, error) {
	var out []domain.Metadata
	err := s.db.View(func(tx *bbolt.Tx) error {
		return tx.Bucket(bucketMeta).ForEach(func(key, data []byte) error {
			var m domain.Metadata
			if err := json.Unmarshal(data, &m); err != nil {
				return fmt.Errorf("decode metadata %s: %w", key, err)
			}
			out = append(out, m)
			return nil
		})
	})
	return out, err
}

func (s *Storage) Count(_ context.Context) (int, error) {
	n := 0
	err := s.db.View(func(tx *bbolt.Tx) error {
		c := tx.Bucket(bucketMeta).Cursor()
		for k, _ := c.First(); k != nil; k, _ = c.Next() {
			n++
		}
		return nil
	})
	return n, err
}

func (s *Storage) Close() error {
	return s.db.Close()
}
