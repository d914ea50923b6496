package integration

import (
	"context"
	"fmt"
	"os"
	"testing"

	"github.com/jackc/pgx/v5/pgxpool"
)

// pgURL is the Postgres the tests run against; empty when none is available.
var pgURL string

func TestMain(m *testing.M) {
	ctx := context.Background()

	cleanup := func() {}
	pgURL = os.Getenv("DATABASE_URL")
	if pgURL == "" && os.Getenv("INTEGRATION_DOCKER") != "" {
		url, stop, err := startPostgresContainer(ctx)
		if err != nil {
			fmt.Fprintf(os.Stderr, "failed to start postgres container: %v\n", err)
			os.Exit(1)
		}
		pgURL, cleanup = url, stop
	}

	code := m.Run()
	cleanup()
	os.Exit(code)
}

func requirePostgres(t *testing.T) {
	t.Helper()
	if pgURL == "" {
		t.Skip("set DATABASE_URL or INTEGRATION_DOCKER=1 to run postgres integration tests")
	}
}

// resetTable drops kv_entries so each test starts from an empty store.
func resetTable(t *testing.T) {
	t.Helper()
	ctx := context.Background()
	pool, err := pgxpool.New(ctx, pgURL)
	if err != nil {
		t.Fatalf("connect: %v", err)
	}
	defer pool.Close()
	if _, err := pool.Exec(ctx, `DROP TABLE IF EXISTS kv_entries`); err != nil {
		t.Fatalf("drop kv_entries: %v", err)
	}
}
