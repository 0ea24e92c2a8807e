// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package corpus persists acquisition records in a SQLite index and exports
// them to interchange formats.
// Implements: prd004-corpus-store (R1-R3); prd007-export (R1-R3);
//
//	docs/ARCHITECTURE § Corpus Store.
package corpus

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	_ "github.com/mattn/go-sqlite3"

	"github.com/pdiddy/corpus-engine/pkg/types"
)

const (
	indexDir = "index"
	dbFile   = "corpus.db"
)

// Store is the corpus index backed by SQLite (R1.1). A single record row per
// work id holds the bibliographic fields, local artifact paths, the relevance
// score, and the raw source metadata.
type Store struct {
	db *sql.DB
}

// Open opens the corpus database under corpusDir/index, creating the
// directory and schema on first use (R1.2). Writes are funneled through one
// connection so concurrent fetch workers never contend on the writer lock.
func Open(cfg types.StorageConfig) (*Store, error) {
	dir := filepath.Join(cfg.CorpusDir, indexDir)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("creating index directory: %w", err)
	}

	dbPath := filepath.Join(dir, dbFile)
	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_foreign_keys=on")
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}
	db.SetMaxOpenConns(1)

	s := &Store{db: db}
	if err := s.createSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating schema: %w", err)
	}
	return s, nil
}

// Close closes the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) createSchema() error {
	statements := []string{
		`CREATE TABLE IF NOT EXISTS items (
			id TEXT PRIMARY KEY,
			title TEXT,
			year INTEGER,
			venue TEXT,
			doi TEXT,
			source_url TEXT,
			pdf_path TEXT,
			html_path TEXT,
			text_path TEXT,
			score REAL,
			kept INTEGER DEFAULT 0,
			meta_json TEXT
		)`,
		`CREATE INDEX IF NOT EXISTS idx_items_kept ON items(kept)`,
	}

	for _, stmt := range statements {
		if _, err := s.db.Exec(stmt); err != nil {
			return err
		}
	}
	return nil
}

// selectCols lists the record columns in scan order. Nullable columns are
// coalesced so rows written by earlier tool versions scan cleanly.
const selectCols = `SELECT id, COALESCE(title, ''), COALESCE(year, 0),
	COALESCE(venue, ''), COALESCE(doi, ''), COALESCE(source_url, ''),
	COALESCE(pdf_path, ''), COALESCE(html_path, ''), COALESCE(text_path, ''),
	COALESCE(score, 0), COALESCE(kept, 0), COALESCE(meta_json, '')`

// Upsert inserts the record or replaces every field of the existing row with
// the same id (R2.1). Replaying a discovery run is therefore idempotent, and
// re-fetching a record only ever adds artifact paths (R2.2).
func (s *Store) Upsert(ctx context.Context, paper types.Paper) error {
	kept := 0
	if paper.Kept {
		kept = 1
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO items (id, title, year, venue, doi, source_url,
			pdf_path, html_path, text_path, score, kept, meta_json)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			title = excluded.title,
			year = excluded.year,
			venue = excluded.venue,
			doi = excluded.doi,
			source_url = excluded.source_url,
			pdf_path = excluded.pdf_path,
			html_path = excluded.html_path,
			text_path = excluded.text_path,
			score = excluded.score,
			kept = excluded.kept,
			meta_json = excluded.meta_json`,
		paper.ID, paper.Title, paper.Year, paper.Venue, paper.DOI,
		paper.SourceURL, paper.PDFPath, paper.HTMLPath, paper.TextPath,
		paper.Score, kept, string(paper.Meta),
	)
	if err != nil {
		return fmt.Errorf("upserting %s: %w", paper.ID, err)
	}
	return nil
}

// Get returns the record with the given id and whether it exists (R2.3).
func (s *Store) Get(ctx context.Context, id string) (types.Paper, bool, error) {
	row := s.db.QueryRowContext(ctx, selectCols+` FROM items WHERE id = ?`, id)

	paper, err := scanPaper(row)
	if err == sql.ErrNoRows {
		return types.Paper{}, false, nil
	}
	if err != nil {
		return types.Paper{}, false, fmt.Errorf("reading %s: %w", id, err)
	}
	return paper, true, nil
}

// Iterate streams records to fn, most recently discovered first (R2.4).
// Iteration stops early when fn returns false.
func (s *Store) Iterate(ctx context.Context, fn func(types.Paper) bool) error {
	rows, err := s.db.QueryContext(ctx, selectCols+` FROM items ORDER BY rowid DESC`)
	if err != nil {
		return fmt.Errorf("querying items: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		paper, err := scanPaper(rows)
		if err != nil {
			return fmt.Errorf("scanning item: %w", err)
		}
		if !fn(paper) {
			return nil
		}
	}
	return rows.Err()
}

// Count returns the number of records in the corpus.
func (s *Store) Count(ctx context.Context) (int, error) {
	var n int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM items`).Scan(&n); err != nil {
		return 0, fmt.Errorf("counting items: %w", err)
	}
	return n, nil
}

// Stats summarizes acquisition progress across the corpus (R3.1).
type Stats struct {
	Total    int `json:"total" yaml:"total"`
	WithPDF  int `json:"with_pdf" yaml:"with_pdf"`
	WithHTML int `json:"with_html" yaml:"with_html"`
	WithText int `json:"with_text" yaml:"with_text"`
	Kept     int `json:"kept" yaml:"kept"`
}

// Stats counts records by acquisition state. Path columns count only when
// non-blank after trimming, matching the fetched test used elsewhere (R3.2).
func (s *Store) Stats(ctx context.Context) (Stats, error) {
	var st Stats
	err := s.db.QueryRowContext(ctx, `
		SELECT COUNT(*),
			COALESCE(SUM(CASE WHEN TRIM(COALESCE(pdf_path, '')) != '' THEN 1 ELSE 0 END), 0),
			COALESCE(SUM(CASE WHEN TRIM(COALESCE(html_path, '')) != '' THEN 1 ELSE 0 END), 0),
			COALESCE(SUM(CASE WHEN TRIM(COALESCE(text_path, '')) != '' THEN 1 ELSE 0 END), 0),
			COALESCE(SUM(CASE WHEN kept = 1 THEN 1 ELSE 0 END), 0)
		FROM items`,
	).Scan(&st.Total, &st.WithPDF, &st.WithHTML, &st.WithText, &st.Kept)
	if err != nil {
		return Stats{}, fmt.Errorf("computing stats: %w", err)
	}
	return st, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanPaper(row rowScanner) (types.Paper, error) {
	var p types.Paper
	var kept int
	var meta string

	err := row.Scan(&p.ID, &p.Title, &p.Year, &p.Venue, &p.DOI, &p.SourceURL,
		&p.PDFPath, &p.HTMLPath, &p.TextPath, &p.Score, &kept, &meta)
	if err != nil {
		return types.Paper{}, err
	}

	p.Kept = kept == 1
	if strings.TrimSpace(meta) != "" {
		p.Meta = json.RawMessage(meta)
	}
	return p, nil
}
