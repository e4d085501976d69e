// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package ledger keeps a SQLite history of fetch outcomes and checks the
// files on disk against the last successful fetch.
package ledger

import (
	"context"
	"crypto/sha256"
	"database/sql"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/spf13/afero"

	"github.com/pdiddy/migstat/pkg/types"
)

const (
	// Dir is the ledger directory inside the output directory.
	Dir    = ".migstat"
	dbFile = "ledger.db"
)

// Store manages the ledger database.
type Store struct {
	db *sql.DB
}

// Path returns the ledger database path for an output directory.
func Path(outputDir string) string {
	return filepath.Join(outputDir, Dir, dbFile)
}

// Open opens or creates the ledger under outputDir/.migstat/ and creates the
// schema if it does not exist.
func Open(outputDir string) (*Store, error) {
	dbDir := filepath.Join(outputDir, Dir)
	if err := os.MkdirAll(dbDir, 0o755); err != nil {
		return nil, fmt.Errorf("creating ledger directory: %w", err)
	}

	db, err := sql.Open("sqlite3", Path(outputDir)+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("opening ledger: %w", err)
	}

	s := &Store{db: db}
	if err := s.createSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating schema: %w", err)
	}
	return s, nil
}

// Close releases the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) createSchema() error {
	statements := []string{
		`CREATE TABLE IF NOT EXISTS fetches (
			rowid INTEGER PRIMARY KEY AUTOINCREMENT,
			kind TEXT NOT NULL,
			source_id TEXT NOT NULL,
			name TEXT NOT NULL,
			path TEXT NOT NULL,
			outcome TEXT NOT NULL,
			size INTEGER NOT NULL DEFAULT 0,
			sha256 TEXT,
			error TEXT,
			fetched_at TEXT NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_fetches_path ON fetches(path)`,
	}
	for _, stmt := range statements {
		if _, err := s.db.Exec(stmt); err != nil {
			return fmt.Errorf("executing schema statement: %w", err)
		}
	}
	return nil
}

// Record appends one fetch outcome.
func (s *Store) Record(ctx context.Context, rec types.FetchRecord) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO fetches (kind, source_id, name, path, outcome, size, sha256, error, fetched_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		string(rec.Kind), rec.ID, rec.Name, rec.Path, string(rec.Outcome),
		rec.Size, rec.SHA256, rec.Error, rec.FetchedAt.UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		return fmt.Errorf("recording %s: %w", rec.Name, err)
	}
	return nil
}

// Latest returns the newest record per path, ordered by path.
func (s *Store) Latest(ctx context.Context) ([]types.FetchRecord, error) {
	return s.query(ctx,
		`SELECT kind, source_id, name, path, outcome, size, sha256, error, fetched_at
		 FROM fetches f
		 WHERE rowid = (SELECT MAX(rowid) FROM fetches WHERE path = f.path)
		 ORDER BY path`)
}

// LastSuccess returns the newest successful record per path, ordered by path.
func (s *Store) LastSuccess(ctx context.Context) ([]types.FetchRecord, error) {
	return s.query(ctx,
		`SELECT kind, source_id, name, path, outcome, size, sha256, error, fetched_at
		 FROM fetches f
		 WHERE rowid = (SELECT MAX(rowid) FROM fetches WHERE path = f.path AND outcome = ?)
		 ORDER BY path`, string(types.OutcomeSucceeded))
}

func (s *Store) query(ctx context.Context, q string, args ...any) ([]types.FetchRecord, error) {
	rows, err := s.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("querying ledger: %w", err)
	}
	defer rows.Close()

	var out []types.FetchRecord
	for rows.Next() {
		var (
			rec             types.FetchRecord
			kind, outcome   string
			sum, errMsg, ts sql.NullString
		)
		if err := rows.Scan(&kind, &rec.ID, &rec.Name, &rec.Path, &outcome, &rec.Size, &sum, &errMsg, &ts); err != nil {
			return nil, fmt.Errorf("scanning ledger row: %w", err)
		}
		rec.Kind = types.SourceKind(kind)
		rec.Outcome = types.Outcome(outcome)
		rec.SHA256 = sum.String
		rec.Error = errMsg.String
		if t, err := time.Parse(time.RFC3339Nano, ts.String); err == nil {
			rec.FetchedAt = t
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

// Status is the verification state of one file.
type Status string

const (
	StatusOK               Status = "ok"
	StatusMissing          Status = "missing"
	StatusSizeMismatch     Status = "size mismatch"
	StatusChecksumMismatch Status = "checksum mismatch"
)

// Check is the verification result for one recorded file.
type Check struct {
	Record types.FetchRecord
	Status Status
	Size   int64
}

// Verify compares every last successful fetch with the file on fs. It
// reports problems and never modifies files.
func (s *Store) Verify(ctx context.Context, fs afero.Fs) ([]Check, error) {
	recs, err := s.LastSuccess(ctx)
	if err != nil {
		return nil, err
	}

	checks := make([]Check, 0, len(recs))
	for _, rec := range recs {
		c := Check{Record: rec}
		info, err := fs.Stat(rec.Path)
		switch {
		case errors.Is(err, os.ErrNotExist):
			c.Status = StatusMissing
		case err != nil:
			return nil, fmt.Errorf("stat %s: %w", rec.Path, err)
		case info.Size() != rec.Size:
			c.Size = info.Size()
			c.Status = StatusSizeMismatch
		default:
			c.Size = info.Size()
			sum, err := fileSHA256(fs, rec.Path)
			if err != nil {
				return nil, err
			}
			if sum != rec.SHA256 {
				c.Status = StatusChecksumMismatch
			} else {
				c.Status = StatusOK
			}
		}
		checks = append(checks, c)
	}
	return checks, nil
}

func fileSHA256(fs afero.Fs, path string) (string, error) {
	f, err := fs.Open(path)
	if err != nil {
		return "", fmt.Errorf("opening %s: %w", path, err)
	}
	defer f.Close()

	h := sha256.New()
	if _, err := io.Copy(h, f); err != nil {
		return "", fmt.Errorf("hashing %s: %w", path, err)
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}
