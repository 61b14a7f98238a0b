// Package sqlite stores embeddings in a single SQLite table.
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"filesearch/internal/domain"
	"filesearch/internal/vectorstore"
)

type Storage struct {
	db *sql.DB
}

// Open creates or opens a SQLite database.
func Open(path string) (*Storage, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, err
	}
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, err
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, err
	}

	s := &Storage{db: db}
	if err := s.initSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to init schema: %w", err)
	}

	return s, nil
}

func (s *Storage) Close() error {
	return s.db.Close()
}

func (s *Storage) initSchema() error {
	queries := []string{
		`CREATE TABLE IF NOT EXISTS items (
			id TEXT PRIMARY KEY,
			name TEXT NOT NULL,
			type TEXT NOT NULL,
			modified_at INTEGER NOT NULL,
			embedding BLOB NOT NULL
		);`,
	}

	for _, q := range queries {
		if _, err := s.db.Exec(q); err != nil {
			return err
		}
	}
	return nil
}

func (s *Storage) Upsert(ctx context.Context, records []domain.Record) error {
	if err := vectorstore.ValidateRecords(records); err != nil {
		return err
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO items (id, name, type, modified_at, embedding)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			name=excluded.name,
			type=excluded.type,
			modified_at=excluded.modified_at,
			embedding=excluded.embedding
	`)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for _, r := range records {
		if _, err := stmt.ExecContext(ctx, r.Path, r.Name, string(r.Category), r.ModifiedAt.UnixNano(), vectorstore.EncodeVector(r.Embedding)); err != nil {
			return fmt.Errorf("upsert %s: %w", r.Path, err)
		}
	}

	return tx.Commit()
}

func (s *Storage) Query(ctx context.Context, vector []float32, k int) ([]domain.Neighbor, error) {
	rows, err := s.db.QueryContext(ctx, "SELECT id, name, type, modified_at, embedding FROM items")
	if err != nil {
		return nil, fmt.Errorf("failed to query items: %w", err)
	}
	defer rows.Close()

	var cands []vectorstore.Candidate
	for rows.Next() {
		var (
			m    domain.Metadata
			cat  string
			ts   int64
			blob []byte
		)
		if err := rows.Scan(&m.Path, &m.Name, &cat, &ts, &blob); err != nil {
			return nil, fmt.Errorf("failed to scan item: %w", err)
		}
		vec, err := vectorstore.DecodeVector(blob)
		if err != nil {
			return nil, fmt.Errorf("decode %s: %w", m.Path, err)
		}
		m.Category = domain.Category(cat)
		m.ModifiedAt = time.Unix(0, ts).UTC()
		cands = append(cands, vectorstore.Candidate{Meta: m, Vector: vec})
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return vectorstore.Rank(vector, cands, k), nil
}

func (s *Storage) Delete(ctx context.Context, ids []string) error {
	if len(ids) == 0 {
		return nil
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	// sqlite caps bound parameters, so delete in slices
	const chunk = 500
	for start := 0; start < len(ids); start += chunk {
		end := min(start+chunk, len(ids))
		part := ids[start:end]
		args := make([]any, len(part))
		for i, id := range part {
			args[i] = id
		}
		q := "DELETE FROM items WHERE id IN (?" + strings.Repeat(",?", len(part)-1) + ")"
		if _, err := tx.ExecContext(ctx, q, args...); err != nil {
			return err
		}
	}

	return tx.Commit()
}

func (s *Storage) All(ctx context.Context) ([]domain.Metadata, error) {
	rows, err := s.db.QueryContext(ctx, "SELECT id, name, type, modified_at FROM items ORDER BY id")
	if err != nil {
		return nil, fmt.Errorf("failed to query items: %w", err)
	}
	defer rows.Close()

	var out []domain.Metadata
	for rows.Next() {
		var (
			m   domain.Metadata
			cat string
			ts  int64
		)
		if err := rows.Scan(&m.Path, &m.Name, &cat, &ts); err != nil {
			return nil, fmt.Errorf("failed to scan item: %w", err)
		}
		m.Category = domain.Category(cat)
		m.ModifiedAt = time.Unix(0, ts).UTC()
		out = append(out, m)
	}
	return out, rows.Err()
}

func (s *Storage) Count(ctx context.Context) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM items").Scan(&n)
	return n, err
}
