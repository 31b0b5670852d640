// README: Postgres-backed offer tests; skipped unless RIDELINE_TEST_DSN is set.
package offer

import (
	"bufio"
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

func TestPostgresAcceptOnce(t *testing.T) {
	ctx := context.Background()
	store := setupPostgresStore(t)
	now := time.Now().UTC()
	if err := store.Create(ctx, &Offer{ID: "pg_r1", Status: StatusRequested, DriverID: "d1", RequestedAt: &now}); err != nil {
		t.Fatalf("create ride: %v", err)
	}
	svc := NewService(store, WithEventLog(store))

	const attempts = 6
	var wg sync.WaitGroup
	errs := make(chan error, attempts)
	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			errs <- svc.Accept(ctx, AcceptCommand{RideID: "pg_r1", DriverID: "d1"})
		}()
	}
	wg.Wait()
	close(errs)

	success := 0
	for err := range errs {
		if err == nil {
			success++
			continue
		}
		if !errors.Is(err, ErrAlreadyAccepted) {
			t.Fatalf("unexpected error: %v", err)
		}
	}
	if success != 1 {
		t.Fatalf("expected exactly 1 success, got %d", success)
	}
}

func TestPostgresDeclineRoundTrip(t *testing.T) {
	ctx := context.Background()
	store := setupPostgresStore(t)
	if err := store.Create(ctx, &Offer{ID: "pg_r2", Status: StatusRequested, DriverID: "d1"}); err != nil {
		t.Fatalf("create ride: %v", err)
	}
	svc := NewService(store)

	if err := svc.Decline(ctx, DeclineCommand{RideID: "pg_r2", DriverID: "d1"}); err != nil {
		t.Fatalf("decline: %v", err)
	}
	o, err := store.Get(ctx, "pg_r2")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if o.Status != StatusRequestedPendingDriver || o.DriverID != "" {
		t.Fatalf("unexpected state: %+v", o)
	}
	if len(o.DeclinedDriverIDs) != 1 || o.DeclinedDriverIDs[0] != "d1" {
		t.Fatalf("declined ids = %v", o.DeclinedDriverIDs)
	}
	if _, err := store.Get(ctx, "missing"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func setupPostgresStore(t *testing.T) *PostgresStore {
	t.Helper()

	dsn := os.Getenv("RIDELINE_TEST_DSN")
	if dsn == "" {
		t.Skip("RIDELINE_TEST_DSN not set; skipping DB-backed offer tests")
	}

	ctx := context.Background()
	db, err := pgxpool.New(ctx, dsn)
	if err != nil {
		t.Fatalf("connect db: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	if err := applyMigration(ctx, db); err != nil {
		t.Fatalf("apply migration: %v", err)
	}
	if _, err := db.Exec(ctx, "TRUNCATE TABLE offer_events, rides"); err != nil {
		t.Fatalf("truncate tables: %v", err)
	}
	return NewPostgresStore(db)
}

func applyMigration(ctx context.Context, db *pgxpool.Pool) error {
	root, err := repoRoot()
	if err != nil {
		return err
	}
	content, err := os.ReadFile(filepath.Join(root, "migrations", "0001_init.sql"))
	if err != nil {
		return err
	}
	for _, stmt := range splitSQL(stripSQLComments(string(content))) {
		if _, err := db.Exec(ctx, stmt); err != nil {
			return err
		}
	}
	return nil
}

func repoRoot() (string, error) {
	dir, err := os.Getwd()
	if err != nil {
		return "", err
	}
	for i := 0; i < 6; i++ {
		if _, err := os.Stat(filepath.Join(dir, "go.mod")); err == nil {
			return dir, nil
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			break
		}
		dir = parent
	}
	return "", os.ErrNotExist
}

func stripSQLComments(input string) string {
	var b strings.Builder
	scanner := bufio.NewScanner(strings.NewReader(input))
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "--") {
			continue
		}
		b.WriteString(scanner.Text())
		b.WriteString("\n")
	}
	return b.String()
}

func splitSQL(input string) []string {
	parts := strings.Split(input, ";")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if stmt := strings.TrimSpace(p); stmt != "" {
			out = append(out, stmt)
		}
	}
	return out
}
