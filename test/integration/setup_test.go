package integration

import (
	"context"
	"fmt"
	"os"
	"testing"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/awv/awv/internal/domain/patient"
	"github.com/awv/awv/internal/platform/db"
	"github.com/awv/awv/internal/platform/docstore"
	"github.com/awv/awv/migrations"
)

// globalPool is shared by every test and is nil when no database is
// configured.
var globalPool *pgxpool.Pool

func TestMain(m *testing.M) {
	url := os.Getenv("TEST_DATABASE_URL")
	if url == "" {
		fmt.Fprintln(os.Stderr, "TEST_DATABASE_URL not set, skipping postgres integration tests")
		os.Exit(0)
	}

	ctx := context.Background()
	pool, err := db.NewPool(ctx, db.PoolConfig{URL: url, MaxConns: 5})
	if err != nil {
		fmt.Fprintf(os.Stderr, "connect: %v\n", err)
		os.Exit(1)
	}
	if _, err := db.NewMigrator(pool, migrations.FS).Up(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "migrate: %v\n", err)
		pool.Close()
		os.Exit(1)
	}

	globalPool = pool
	code := m.Run()
	pool.Close()
	os.Exit(code)
}

// newStore empties the documents table and returns a store with the
// production unique keys.
func newStore(t *testing.T) *docstore.PostgresStore {
	t.Helper()
	ctx := context.Background()
	if _, err := globalPool.Exec(ctx, "DELETE FROM documents"); err != nil {
		t.Fatalf("reset documents: %v", err)
	}
	s := docstore.NewPostgresStore(globalPool, patient.UniqueMRN)
	if err := s.EnsureIndexes(ctx); err != nil {
		t.Fatalf("ensure indexes: %v", err)
	}
	return s
}
