// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package archive records generations in a local SQLite database so the CLI
// can list, show, and export past results. It sits outside the generation
// pipeline; the pipeline itself persists nothing.
package archive

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"

	"github.com/pdiddy/paperviz/pkg/types"
)

const (
	dbFile = "paperviz.db"

	// excerptRunes bounds the stored input excerpt.
	excerptRunes = 500
)

// ErrNotFound is returned when no record matches an ID.
var ErrNotFound = errors.New("record not found")

// Record is one archived generation, successful or not.
type Record struct {
	ID           string           `json:"id" yaml:"id"`
	Kind         types.OutputKind `json:"kind" yaml:"kind"`
	Model        string           `json:"model" yaml:"model"`
	UseReasoning bool             `json:"use_reasoning" yaml:"use_reasoning"`
	Input        string           `json:"input" yaml:"input"`
	Attachment   string           `json:"attachment,omitempty" yaml:"attachment,omitempty"`
	Outcome      string           `json:"outcome" yaml:"outcome"`
	Error        string           `json:"error,omitempty" yaml:"error,omitempty"`
	Raw          string           `json:"raw,omitempty" yaml:"raw,omitempty"`
	Document     *types.Document  `json:"document,omitempty" yaml:"document,omitempty"`
	Elapsed      time.Duration    `json:"elapsed" yaml:"elapsed"`
	CreatedAt    time.Time        `json:"created_at" yaml:"created_at"`
}

// Store manages the archive database.
type Store struct {
	db         *sql.DB
	dir        string
	maxResults int
}

// NewStore opens or creates dir/paperviz.db.
func NewStore(cfg types.ArchiveConfig) (*Store, error) {
	if err := os.MkdirAll(cfg.Dir, 0o755); err != nil {
		return nil, fmt.Errorf("creating archive directory: %w", err)
	}

	dbPath := filepath.Join(cfg.Dir, dbFile)
	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	maxResults := cfg.MaxResults
	if maxResults <= 0 {
		maxResults = 20
	}

	s := &Store{db: db, dir: cfg.Dir, maxResults: maxResults}
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
		`CREATE TABLE IF NOT EXISTS generations (
			id TEXT PRIMARY KEY,
			kind TEXT NOT NULL,
			model TEXT,
			use_reasoning INTEGER NOT NULL DEFAULT 0,
			input TEXT,
			attachment TEXT,
			outcome TEXT NOT NULL,
			error TEXT,
			raw TEXT,
			document TEXT,
			elapsed_ms INTEGER,
			created_at TEXT NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_generations_kind ON generations(kind)`,
		`CREATE INDEX IF NOT EXISTS idx_generations_created ON generations(created_at)`,
	}
	for _, stmt := range statements {
		if _, err := s.db.Exec(stmt); err != nil {
			return fmt.Errorf("executing schema statement: %w", err)
		}
	}
	return nil
}

// Save inserts rec, assigning an ID and timestamp when unset. The input is
// truncated to an excerpt.
func (s *Store) Save(ctx context.Context, rec *Record) error {
	if rec.ID == "" {
		rec.ID = uuid.NewString()
	}
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = time.Now().UTC()
	}
	rec.Input = Excerpt(rec.Input)

	var docJSON sql.NullString
	if rec.Document != nil {
		data, err := json.Marshal(rec.Document)
		if err != nil {
			return fmt.Errorf("marshaling document: %w", err)
		}
		docJSON = sql.NullString{String: string(data), Valid: true}
	}

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO generations (id, kind, model, use_reasoning, input, attachment, outcome, error, raw, document, elapsed_ms, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		rec.ID, string(rec.Kind), rec.Model, rec.UseReasoning, rec.Input, rec.Attachment,
		rec.Outcome, rec.Error, rec.Raw, docJSON, rec.Elapsed.Milliseconds(),
		rec.CreatedAt.Format(time.RFC3339Nano),
	)
	if err != nil {
		return fmt.Errorf("inserting generation %s: %w", rec.ID, err)
	}
	return nil
}

// Get returns the record whose ID equals id or, failing that, the single
// record whose ID starts with id.
func (s *Store) Get(ctx context.Context, id string) (*Record, error) {
	if id == "" {
		return nil, ErrNotFound
	}
	recs, err := s.query(ctx, selectColumns+` WHERE id = ?`, id)
	if err != nil {
		return nil, err
	}
	if len(recs) == 0 {
		recs, err = s.query(ctx, selectColumns+` WHERE id LIKE ? ESCAPE '\' LIMIT 2`, escapeLike(id)+"%")
		if err != nil {
			return nil, err
		}
	}
	switch len(recs) {
	case 0:
		return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	case 1:
		return recs[0], nil
	}
	return nil, fmt.Errorf("id prefix %q is ambiguous", id)
}

// QueryOptions filters List and the exports.
type QueryOptions struct {
	// Query matches a substring of the input excerpt or the raw output.
	Query string

	// Kind filters by output kind.
	Kind types.OutputKind

	// Outcome filters by outcome label.
	Outcome string

	// MaxResults limits the result count. Zero uses the store default.
	MaxResults int
}

// List returns records matching opts, newest first.
func (s *Store) List(ctx context.Context, opts QueryOptions) ([]*Record, error) {
	maxResults := opts.MaxResults
	if maxResults <= 0 {
		maxResults = s.maxResults
	}

	var (
		qb   strings.Builder
		args []any
	)
	qb.WriteString(selectColumns + ` WHERE 1=1`)
	if opts.Query != "" {
		qb.WriteString(` AND (input LIKE ? ESCAPE '\' OR raw LIKE ? ESCAPE '\')`)
		pat := "%" + escapeLike(opts.Query) + "%"
		args = append(args, pat, pat)
	}
	if opts.Kind != "" {
		qb.WriteString(` AND kind = ?`)
		args = append(args, string(opts.Kind))
	}
	if opts.Outcome != "" {
		qb.WriteString(` AND outcome = ?`)
		args = append(args, opts.Outcome)
	}
	qb.WriteString(` ORDER BY created_at DESC LIMIT ?`)
	args = append(args, maxResults)

	return s.query(ctx, qb.String(), args...)
}

func (s *Store) query(ctx context.Context, q string, args ...any) ([]*Record, error) {
	rows, err := s.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("querying generations: %w", err)
	}
	defer rows.Close()
	return scanRecords(rows)
}

// Delete removes the record with exactly id.
func (s *Store) Delete(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM generations WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("deleting generation %s: %w", id, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	return nil
}

const selectColumns = `SELECT id, kind, model, use_reasoning, input, attachment, outcome,
	error, raw, document, elapsed_ms, created_at FROM generations`

func scanRecords(rows *sql.Rows) ([]*Record, error) {
	var out []*Record
	for rows.Next() {
		var (
			rec                  Record
			kind, created        string
			model, input, attach sql.NullString
			errMsg, raw, doc     sql.NullString
			elapsedMS            sql.NullInt64
		)
		if err := rows.Scan(&rec.ID, &kind, &model, &rec.UseReasoning, &input, &attach,
			&rec.Outcome, &errMsg, &raw, &doc, &elapsedMS, &created); err != nil {
			return nil, fmt.Errorf("scanning generation: %w", err)
		}
		rec.Kind = types.OutputKind(kind)
		rec.Model = model.String
		rec.Input = input.String
		rec.Attachment = attach.String
		rec.Error = errMsg.String
		rec.Raw = raw.String
		rec.Elapsed = time.Duration(elapsedMS.Int64) * time.Millisecond
		if t, err := time.Parse(time.RFC3339Nano, created); err == nil {
			rec.CreatedAt = t
		}
		if doc.Valid && doc.String != "" {
			var d types.Document
			if err := json.Unmarshal([]byte(doc.String), &d); err != nil {
				return nil, fmt.Errorf("decoding stored document %s: %w", rec.ID, err)
			}
			rec.Document = &d
		}
		out = append(out, &rec)
	}
	return out, rows.Err()
}

// Excerpt trims s to the stored excerpt length on a rune boundary.
func Excerpt(s string) string {
	s = strings.TrimSpace(s)
	if utf8.RuneCountInString(s) <= excerptRunes {
		return s
	}
	runes := []rune(s)
	return string(runes[:excerptRunes]) + "…"
}

func escapeLike(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return r.Replace(s)
}
