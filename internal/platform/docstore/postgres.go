package docstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PostgresStore keeps every collection in the documents table created by
// migrations/001_documents.sql, one JSONB value per row.
type PostgresStore struct {
	pool   *pgxpool.Pool
	unique []UniqueKey
}

// NewPostgresStore wraps an open pool. Call EnsureIndexes once after
// migrations have run.
func NewPostgresStore(pool *pgxpool.Pool, unique ...UniqueKey) *PostgresStore {
	return &PostgresStore{pool: pool, unique: unique}
}

// EnsureIndexes creates a partial unique expression index per UniqueKey.
func (s *PostgresStore) EnsureIndexes(ctx context.Context) error {
	for _, key := range s.unique {
		if err := validIdent(key.Collection); err != nil {
			return err
		}
		if err := validIdent(key.Field); err != nil {
			return err
		}
		q := fmt.Sprintf(
			`CREATE UNIQUE INDEX IF NOT EXISTS uq_documents_%s_%s ON documents ((doc->>'%s')) WHERE collection = '%s' AND doc->>'%s' <> ''`,
			key.Collection, key.Field, key.Field, key.Collection, key.Field)
		if _, err := s.pool.Exec(ctx, q); err != nil {
			return fmt.Errorf("create unique index %s.%s: %w", key.Collection, key.Field, err)
		}
	}
	return nil
}

func (s *PostgresStore) Create(ctx context.Context, collection string, doc Document) (Document, error) {
	out, err := prepareCreate(doc)
	if err != nil {
		return nil, err
	}
	b, err := json.Marshal(out)
	if err != nil {
		return nil, fmt.Errorf("encode document: %w", err)
	}

	var raw []byte
	err = s.pool.QueryRow(ctx,
		`INSERT INTO documents (collection, id, doc) VALUES ($1, $2, $3) RETURNING doc`,
		collection, out.ID(), string(b),
	).Scan(&raw)
	if err != nil {
		return nil, fmt.Errorf("create %s: %w", collection, mapPGError(err))
	}
	return decodeRaw(raw)
}

func (s *PostgresStore) FindByID(ctx context.Context, collection, id string) (Document, error) {
	var raw []byte
	err := s.pool.QueryRow(ctx,
		`SELECT doc FROM documents WHERE collection = $1 AND id = $2`,
		collection, id,
	).Scan(&raw)
	if err != nil {
		return nil, fmt.Errorf("find %s/%s: %w", collection, id, mapPGError(err))
	}
	return decodeRaw(raw)
}

func (s *PostgresStore) FindMany(ctx context.Context, collection string, filter Filter, sorts ...Sort) ([]Document, error) {
	f, err := clone(Document(filter))
	if err != nil {
		return nil, err
	}
	fb, err := json.Marshal(f)
	if err != nil {
		return nil, fmt.Errorf("encode filter: %w", err)
	}

	orderBy, err := pgOrderBy(sorts)
	if err != nil {
		return nil, err
	}
	query := `SELECT doc FROM documents WHERE collection = $1 AND doc @> $2::jsonb ORDER BY ` + orderBy

	rows, err := s.pool.Query(ctx, query, collection, string(fb))
	if err != nil {
		return nil, fmt.Errorf("find %s: %w", collection, err)
	}
	defer rows.Close()

	var result []Document
	for rows.Next() {
		var raw []byte
		if err := rows.Scan(&raw); err != nil {
			return nil, fmt.Errorf("scan %s: %w", collection, err)
		}
		doc, err := decodeRaw(raw)
		if err != nil {
			return nil, err
		}
		result = append(result, doc)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate %s: %w", collection, err)
	}
	return result, nil
}

func (s *PostgresStore) UpdateByID(ctx context.Context, collection, id string, patch Document) (Document, error) {
	p, err := preparePatch(patch)
	if err != nil {
		return nil, err
	}
	b, err := json.Marshal(p)
	if err != nil {
		return nil, fmt.Errorf("encode patch: %w", err)
	}

	var raw []byte
	err = s.pool.QueryRow(ctx,
		`UPDATE documents SET doc = doc || $3::jsonb, updated_at = NOW()
		 WHERE collection = $1 AND id = $2 RETURNING doc`,
		collection, id, string(b),
	).Scan(&raw)
	if err != nil {
		return nil, fmt.Errorf("update %s/%s: %w", collection, id, mapPGError(err))
	}
	return decodeRaw(raw)
}

func (s *PostgresStore) DeleteByID(ctx context.Context, collection, id string) (bool, error) {
	tag, err := s.pool.Exec(ctx,
		`DELETE FROM documents WHERE collection = $1 AND id = $2`, collection, id)
	if err != nil {
		return false, fmt.Errorf("delete %s/%s: %w", collection, id, err)
	}
	return tag.RowsAffected() > 0, nil
}

// Close is a no-op; the pool is owned by the caller.
func (s *PostgresStore) Close() error { return nil }

func pgOrderBy(sorts []Sort) (string, error) {
	if len(sorts) == 0 {
		return "created_at ASC", nil
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
		parts = append(parts, fmt.Sprintf("doc->'%s' %s NULLS FIRST", srt.Field, dir))
	}
	return strings.Join(parts, ", "), nil
}

func mapPGError(err error) error {
	if errors.Is(err, pgx.ErrNoRows) {
		return ErrNotFound
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == "23505" {
		return fmt.Errorf("%s: %w", pgErr.ConstraintName, ErrConflict)
	}
	return err
}
