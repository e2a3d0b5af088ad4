package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/michaelbrown/toolbelt/internal/mcpconfig"
	"github.com/michaelbrown/toolbelt/internal/storage"

	_ "modernc.org/sqlite"
)

// Fixed width so created_at sorts as text.
const timeLayout = "2006-01-02T15:04:05.000000000Z"

const loadColumns = `id, source, status, policy, servers, problems, descriptors, created_at`

// SQLiteStore implements storage.Store backed by a SQLite database.
type SQLiteStore struct {
	db *sql.DB
}

// Open creates or opens a SQLite database at the given path and runs migrations.
// Use ":memory:" for an in-memory database (useful for testing).
func Open(dbPath string) (*SQLiteStore, error) {
	if dbPath != ":memory:" {
		dir := filepath.Dir(dbPath)
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("creating db directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}
	if dbPath == ":memory:" {
		// every new connection would get its own empty database
		db.SetMaxOpenConns(1)
	}

	if err := runMigrations(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("running migrations: %w", err)
	}

	return &SQLiteStore{db: db}, nil
}

func (s *SQLiteStore) SaveLoad(ctx context.Context, rec *storage.LoadRecord) error {
	if rec.ID == "" {
		return fmt.Errorf("load record has no id")
	}
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = time.Now().UTC()
	}

	servers, err := json.Marshal(nonNil(rec.Servers))
	if err != nil {
		return fmt.Errorf("marshaling servers: %w", err)
	}
	problems, err := json.Marshal(nonNil(rec.Problems))
	if err != nil {
		return fmt.Errorf("marshaling problems: %w", err)
	}
	descs := rec.Descriptors
	if descs == nil {
		descs = []mcpconfig.ServerDescriptor{}
	}
	descriptors, err := json.Marshal(descs)
	if err != nil {
		return fmt.Errorf("marshaling descriptors: %w", err)
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO loads (`+loadColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		rec.ID, rec.Source, string(rec.Status), rec.Policy,
		string(servers), string(problems), string(descriptors),
		rec.CreatedAt.UTC().Format(timeLayout),
	)
	if err != nil {
		return fmt.Errorf("inserting load: %w", err)
	}
	return nil
}

func (s *SQLiteStore) GetLoad(ctx context.Context, id string) (*storage.LoadRecord, error) {
	// Try exact match first, then prefix match
	rec, err := scanLoad(s.db.QueryRowContext(ctx, `
		SELECT `+loadColumns+` FROM loads WHERE id = ?`, id))
	if err == nil {
		return rec, nil
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT `+loadColumns+` FROM loads WHERE id LIKE ? || '%'`, id)
	if err != nil {
		return nil, fmt.Errorf("querying load: %w", err)
	}
	defer rows.Close()

	var matches []*storage.LoadRecord
	for rows.Next() {
		rec, err := scanLoad(rows)
		if err != nil {
			return nil, err
		}
		matches = append(matches, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	switch len(matches) {
	case 0:
		return nil, fmt.Errorf("load not found: %s", id)
	case 1:
		return matches[0], nil
	default:
		return nil, fmt.Errorf("ambiguous load prefix %q matches %d loads", id, len(matches))
	}
}

func (s *SQLiteStore) ListLoads(ctx context.Context, opts storage.LoadListOptions) ([]storage.LoadRecord, error) {
	limit := opts.Limit
	if limit <= 0 {
		limit = 50
	}

	query := `SELECT ` + loadColumns + ` FROM loads WHERE 1 = 1`
	var args []any

	if opts.Status != "" {
		query += ` AND status = ?`
		args = append(args, string(opts.Status))
	}
	if opts.Source != "" {
		query += ` AND source = ?`
		args = append(args, opts.Source)
	}

	query += ` ORDER BY created_at DESC, rowid DESC LIMIT ? OFFSET ?`
	args = append(args, limit, opts.Offset)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("listing loads: %w", err)
	}
	defer rows.Close()

	var recs []storage.LoadRecord
	for rows.Next() {
		rec, err := scanLoad(rows)
		if err != nil {
			return nil, err
		}
		recs = append(recs, *rec)
	}
	return recs, rows.Err()
}

func (s *SQLiteStore) DeleteLoad(ctx context.Context, id string) error {
	// Resolve prefix first
	rec, err := s.GetLoad(ctx, id)
	if err != nil {
		return err
	}
	_, err = s.db.ExecContext(ctx, `DELETE FROM loads WHERE id = ?`, rec.ID)
	return err
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanLoad(s scanner) (*storage.LoadRecord, error) {
	var (
		rec         storage.LoadRecord
		status      string
		servers     string
		problems    string
		descriptors string
		createdAt   string
	)
	err := s.Scan(&rec.ID, &rec.Source, &status, &rec.Policy,
		&servers, &problems, &descriptors, &createdAt)
	if err != nil {
		return nil, err
	}
	rec.Status = storage.LoadStatus(status)

	if err := json.Unmarshal([]byte(servers), &rec.Servers); err != nil {
		return nil, fmt.Errorf("unmarshaling servers: %w", err)
	}
	if err := json.Unmarshal([]byte(problems), &rec.Problems); err != nil {
		return nil, fmt.Errorf("unmarshaling problems: %w", err)
	}
	if err := json.Unmarshal([]byte(descriptors), &rec.Descriptors); err != nil {
		return nil, fmt.Errorf("unmarshaling descriptors: %w", err)
	}
	rec.CreatedAt, _ = time.Parse(timeLayout, createdAt)
	return &rec, nil
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
