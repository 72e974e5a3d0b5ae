// Package cache is the client's local durable copy of server tables,
// kept in a SQLite file.
package cache

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	_ "modernc.org/sqlite" // Pure Go SQLite driver (no CGO)

	"sports_club_backend/pkg/utils"
)

// ErrNotFound is returned when a record or meta key is absent.
var ErrNotFound = errors.New("not found in cache")

// Record is one cached row of a domain.
type Record struct {
	ID   string
	Body json.RawMessage
}

// Store is the cache database.
type Store struct {
	db *sql.DB
}

const schema = `
CREATE TABLE IF NOT EXISTS records (
	domain TEXT NOT NULL,
	id     TEXT NOT NULL,
	body   TEXT NOT NULL,
	PRIMARY KEY (domain, id)
);
CREATE TABLE IF NOT EXISTS meta (
	key   TEXT PRIMARY KEY,
	value TEXT NOT NULL
);`

// Open opens or creates the cache at path.
func Open(path string) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("failed to create cache directory: %w", err)
	}
	dsn := path + "?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)&_pragma=synchronous(NORMAL)"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open cache: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create cache schema: %w", err)
	}
	return &Store{db: db}, nil
}

// Close closes the database.
func (s *Store) Close() error {
	return s.db.Close()
}

// All returns the records of domain ordered by id.
func (s *Store) All(ctx context.Context, domain string) ([]Record, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT id, body FROM records WHERE domain = ?`, domain)
	if err != nil {
		return nil, fmt.Errorf("querying %s: %w", domain, err)
	}
	defer rows.Close()

	var out []Record
	for rows.Next() {
		var r Record
		var body string
		if err := rows.Scan(&r.ID, &body); err != nil {
			return nil, fmt.Errorf("scanning %s: %w", domain, err)
		}
		r.Body = json.RawMessage(body)
		out = append(out, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating %s: %w", domain, err)
	}
	sort.Slice(out, func(i, j int) bool { return utils.CompareIDs(out[i].ID, out[j].ID) < 0 })
	return out, nil
}

// Get returns one record.
func (s *Store) Get(ctx context.Context, domain, id string) (Record, error) {
	var body string
	err := s.db.QueryRowContext(ctx, `SELECT body FROM records WHERE domain = ? AND id = ?`, domain, id).Scan(&body)
	if errors.Is(err, sql.ErrNoRows) {
		return Record{}, ErrNotFound
	}
	if err != nil {
		return Record{}, fmt.Errorf("reading %s/%s: %w", domain, id, err)
	}
	return Record{ID: id, Body: json.RawMessage(body)}, nil
}

// Upsert writes records into domain. A record with an existing id replaces it.
func (s *Store) Upsert(ctx context.Context, domain string, records []Record) error {
	return s.inTx(ctx, func(tx *sql.Tx) error {
		return upsert(ctx, tx, domain, records)
	})
}

// Replace swaps the whole content of domain and writes meta in one transaction.
func (s *Store) Replace(ctx context.Context, domain string, records []Record, meta map[string]string) error {
	return s.inTx(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, `DELETE FROM records WHERE domain = ?`, domain); err != nil {
			return fmt.Errorf("clearing %s: %w", domain, err)
		}
		if err := upsert(ctx, tx, domain, records); err != nil {
			return err
		}
		return setMeta(ctx, tx, meta)
	})
}

// Reset removes every record and meta value except the keys in keep.
func (s *Store) Reset(ctx context.Context, keep ...string) error {
	return s.inTx(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, `DELETE FROM records`); err != nil {
			return fmt.Errorf("clearing records: %w", err)
		}
		kept := map[string]string{}
		for _, k := range keep {
			var v string
			err := tx.QueryRowContext(ctx, `SELECT value FROM meta WHERE key = ?`, k).Scan(&v)
			if err == nil {
				kept[k] = v
			} else if !errors.Is(err, sql.ErrNoRows) {
				return fmt.Errorf("reading meta %s: %w", k, err)
			}
		}
		if _, err := tx.ExecContext(ctx, `DELETE FROM meta`); err != nil {
			return fmt.Errorf("clearing meta: %w", err)
		}
		return setMeta(ctx, tx, kept)
	})
}

// Meta returns the value stored under key.
func (s *Store) Meta(ctx context.Context, key string) (string, error) {
	var v string
	err := s.db.QueryRowContext(ctx, `SELECT value FROM meta WHERE key = ?`, key).Scan(&v)
	if errors.Is(err, sql.ErrNoRows) {
		return "", ErrNotFound
	}
	if err != nil {
		return "", fmt.Errorf("reading meta %s: %w", key, err)
	}
	return v, nil
}

// SetMeta writes meta values in one transaction.
func (s *Store) SetMeta(ctx context.Context, values map[string]string) error {
	return s.inTx(ctx, func(tx *sql.Tx) error {
		return setMeta(ctx, tx, values)
	})
}

func (s *Store) inTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()
	if err := fn(tx); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

func upsert(ctx context.Context, tx *sql.Tx, domain string, records []Record) error {
	stmt, err := tx.PrepareContext(ctx, `INSERT INTO records (domain, id, body) VALUES (?, ?, ?)
		ON CONFLICT(domain, id) DO UPDATE SET body = excluded.body`)
	if err != nil {
		return fmt.Errorf("preparing upsert: %w", err)
	}
	defer stmt.Close()
	for _, r := range records {
		if r.ID == "" {
			return fmt.Errorf("record of %s without id", domain)
		}
		if !json.Valid(r.Body) {
			return fmt.Errorf("record %s/%s is not valid JSON", domain, r.ID)
		}
		if _, err := stmt.ExecContext(ctx, domain, r.ID, string(r.Body)); err != nil {
			return fmt.Errorf("writing %s/%s: %w", domain, r.ID, err)
		}
	}
	return nil
}

func setMeta(ctx context.Context, tx *sql.Tx, values map[string]string) error {
	for k, v := range values {
		_, err := tx.ExecContext(ctx, `INSERT INTO meta (key, value) VALUES (?, ?)
			ON CONFLICT(key) DO UPDATE SET value = excluded.value`, k, v)
		if err != nil {
			return fmt.Errorf("writing meta %s: %w", k, err)
		}
	}
	return nil
}
