package docstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/mattn/go-sqlite3"
)

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS documents (
    collection TEXT NOT NULL,
    id TEXT NOT NULL,
    doc TEXT NOT NULL,
    created_at TEXT NOT NULL DEFAULT (strftime('%Y-%m-%dT%H:%M:%fZ', 'now')),
    updated_at TEXT NOT NULL DEFAULT (strftime('%Y-%m-%dT%H:%M:%fZ', 'now')),
    PRIMARY KEY (collection, id)
);
CREATE INDEX IF NOT EXISTS idx_documents_collection ON documents (collection, created_at);
`

// SQLiteStore keeps every collection in a single SQLite file. The schema is
// created on open, so no migration step is needed.
type SQLiteStore struct {
	db *sql.DB
}

// OpenSQLite opens (creating if needed) the database at path. Use ":memory:"
// for a throwaway database.
func OpenSQLite(ctx context.Context, path string, unique ...UniqueKey) (*SQLiteStore, error) {
	if path == "" {
		return nil, errors.New("sqlite path is required")
	}
	dsn := ":memory:"
	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, fmt.Errorf("create sqlite dir: %w", err)
		}
		dsn = fmt.Sprintf("file:%s?_busy_timeout=5000&_journal_mode=WAL", filepath.ToSlash(path))
	}

	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	// One connection: a single writer, and an in-memory database lives
	// exactly as long as its connection.
	db.SetMaxOpenConns(1)
	if path != ":memory:" {
		db.SetConnMaxIdleTime(5 * time.Minute)
	}

	if _, err := db.ExecContext(ctx, sqliteSchema); err != nil {
		db.Close()
		return nil, fmt.Errorf("create sqlite schema: %w", err)
	}
	for _, key := range unique {
		if err := validIdent(key.Collection); err != nil {
			db.Close()
			return nil, err
		}
		if err := validIdent(key.Field); err != nil {
			db.Close()
			return nil, err
		}
		q := fmt.Sprintf(
			`CREATE UNIQUE INDEX IF NOT EXISTS uq_documents_%s_%s ON documents (json_extract(doc, '$.%s')) WHERE collection = '%s'`,
			key.Collection, key.Field, key.Field, key.Collection)
		if _, err := db.ExecContext(ctx, q); err != nil {
			db.Close()
			return nil, fmt.Errorf("create unique index %s.%s: %w", key.Collection, key.Field, err)
		}
	}

	return &SQLiteStore{db: db}, nil
}

func (s *SQLiteStore) Create(ctx context.Context, collection string, doc Document) (Document, error) {
	out, err := prepareCreate(doc)
	if err != nil {
		return nil, err
	}
	b, err := jsonString(out)
	if err != nil {
		return nil, err
	}

	_, err = s.db.ExecContext(ctx,
		`INSERT INTO documents (collection, id, doc, created_at, updated_at) VALUES (?, ?, ?, ?, ?)`,
		collection, out.ID(), b, out["createdAt"], out["updatedAt"])
	if err != nil {
		return nil, fmt.Errorf("create %s: %w", collection, mapSQLiteError(err))
	}
	return out, nil
}

func (s *SQLiteStore) FindByID(ctx context.Context, collection, id string) (Document, error) {
	var raw string
	err := s.db.QueryRowContext(ctx,
		`SELECT doc FROM documents WHERE collection = ? AND id = ?`, collection, id,
	).Scan(&raw)
	if err != nil {
		return nil, fmt.Errorf("find %s/%s: %w", collection, id, mapSQLiteError(err))
	}
	return decodeRaw([]byte(raw))
}

// FindMany narrows by scalar string and bool filters in SQL and re-checks
// every filter in Go, which also covers array membership.
func (s *SQLiteStore) FindMany(ctx context.Context, collection string, filter Filter, sorts ...Sort) ([]Document, error) {
	query := `SELECT doc FROM documents WHERE collection = ?`
	args := []interface{}{collection}

	keys := make([]string, 0, len(filter))
	for k := range filter {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		if err := validIdent(k); err != nil {
			return nil, err
		}
		switch v := filter[k].(type) {
		case string:
			query += fmt.Sprintf(` AND (json_extract(doc, '$.%s') = ? OR json_type(doc, '$.%s') = 'array')`, k, k)
			args = append(args, v)
		case bool:
			query += fmt.Sprintf(` AND json_extract(doc, '$.%s') = ?`, k)
			if v {
				args = append(args, 1)
			} else {
				args = append(args, 0)
			}
		}
	}

	orderBy, err := sqliteOrderBy(sorts)
	if err != nil {
		return nil, err
	}
	query += " ORDER BY " + orderBy

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("find %s: %w", collection, err)
	}
	defer rows.Close()

	var result []Document
	for rows.Next() {
		var raw string
		if err := rows.Scan(&raw); err != nil {
			return nil, fmt.Errorf("scan %s: %w", collection, err)
		}
		doc, err := decodeRaw([]byte(raw))
		if err != nil {
			return nil, err
		}
		if Matches(doc, filter) {
			result = append(result, doc)
		}
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate %s: %w", collection, err)
	}
	return result, nil
}

// UpdateByID merges top-level keys like the other backends. json_patch is
// not used because it merges nested objects too.
func (s *SQLiteStore) UpdateByID(ctx context.Context, collection, id string, patch Document) (Document, error) {
	p, err := preparePatch(patch)
	if err != nil {
		return nil, err
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("update %s/%s: %w", collection, id, err)
	}
	defer tx.Rollback()

	var raw string
	err = tx.QueryRowContext(ctx,
		`SELECT doc FROM documents WHERE collection = ? AND id = ?`, collection, id,
	).Scan(&raw)
	if err != nil {
		return nil, fmt.Errorf("update %s/%s: %w", collection, id, mapSQLiteError(err))
	}
	doc, err := decodeRaw([]byte(raw))
	if err != nil {
		return nil, err
	}
	for k, v := range p {
		doc[k] = v
	}
	b, err := jsonString(doc)
	if err != nil {
		return nil, err
	}

	if _, err := tx.ExecContext(ctx,
		`UPDATE documents SET doc = ?, updated_at = ? WHERE collection = ? AND id = ?`,
		b, p["updatedAt"], collection, id); err != nil {
		return nil, fmt.Errorf("update %s/%s: %w", collection, id, mapSQLiteError(err))
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("update %s/%s: %w", collection, id, err)
	}
	return doc, nil
}

func (s *SQLiteStore) DeleteByID(ctx context.Context, collection, id string) (bool, error) {
	res, err := s.db.ExecContext(ctx,
		`DELETE FROM documents WHERE collection = ? AND id = ?`, collection, id)
	if err != nil {
		return false, fmt.Errorf("delete %s/%s: %w", collection, id, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("delete %s/%s: %w", collection, id, err)
	}
	return n > 0, nil
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func sqliteOrderBy(sorts []Sort) (string, error) {
	if len(sorts) == 0 {
		return "created_at ASC, rowid ASC", nil
	}
	parts := make([]string, 0, len(sorts))
	for _, srt := range sorts {
		if err := validIdent(srt.Field); err != nil {
			return "", err
		}
		dir := "ASC"
		if srt.Desc {
			dir = "DESC"
		}
		parts = append(parts, fmt.Sprintf("json_extract(doc, '$.%s') %s", srt.Field, dir))
	}
	return strings.Join(parts, ", "), nil
}

func mapSQLiteError(err error) error {
	if errors.Is(err, sql.ErrNoRows) {
		return ErrNotFound
	}
	var sqliteErr sqlite3.Error
	if errors.As(err, &sqliteErr) &&
		(sqliteErr.ExtendedCode == sqlite3.ErrConstraintUnique || sqliteErr.ExtendedCode == sqlite3.ErrConstraintPrimaryKey) {
		return fmt.Errorf("%s: %w", sqliteErr.Error(), ErrConflict)
	}
	return err
}

func (s *SQLiteStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}
