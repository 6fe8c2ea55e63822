package storage

import (
	"context"
	"errors"
	"os"
	"testing"
	"time"

	"vendordesk/internal/domain"
	"vendordesk/internal/migrate"

	"github.com/jackc/pgx/v5/pgxpool"
)

func TestPostgres_SetGetDelete(t *testing.T) {
	ctx := context.Background()
	pool := testPool(ctx, t)
	defer pool.Close()

	if err := migrate.Apply(ctx, pool); err != nil {
		t.Fatalf("apply migrations: %v", err)
	}
	resetTables(ctx, t, pool)

	repo := NewPostgres(pool, nil)
	if err := repo.Set(ctx, "sess-1", "vendorToken", "first"); err != nil {
		t.Fatalf("Set: %v", err)
	}
	if err := repo.Set(ctx, "sess-1", "vendorToken", "second"); err != nil {
		t.Fatalf("Set overwrite: %v", err)
	}

	got, err := repo.Get(ctx, "sess-1", "vendorToken")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got.Value != "second" || got.SessionID != "sess-1" {
		t.Fatalf("unexpected entry %+v", got)
	}

	if err := repo.Delete(ctx, "sess-1", "vendorToken"); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if _, err := repo.Get(ctx, "sess-1", "vendorToken"); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected not found after delete, got %v", err)
	}
	if err := repo.Delete(ctx, "sess-1", "vendorToken"); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected not found on second delete, got %v", err)
	}
}

func TestPostgres_DeleteSessionScopesToSession(t *testing.T) {
	ctx := context.Background()
	pool := testPool(ctx, t)
	defer pool.Close()

	if err := migrate.Apply(ctx, pool); err != nil {
		t.Fatalf("apply migrations: %v", err)
	}
	resetTables(ctx, t, pool)

	repo := NewPostgres(pool, nil)
	for _, sess := range []string{"a", "b"} {
		if err := repo.Set(ctx, sess, "vendorToken", "tok-"+sess); err != nil {
			t.Fatalf("Set %s: %v", sess, err)
		}
	}
	if err := repo.DeleteSession(ctx, "a"); err != nil {
		t.Fatalf("DeleteSession: %v", err)
	}
	if _, err := repo.Get(ctx, "a", "vendorToken"); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected session a cleared, got %v", err)
	}
	if got, err := repo.Get(ctx, "b", "vendorToken"); err != nil || got.Value != "tok-b" {
		t.Fatalf("expected session b untouched, got %+v err=%v", got, err)
	}
}

func TestPostgres_DeleteIdleKeepsTouchedSessions(t *testing.T) {
	ctx := context.Background()
	pool := testPool(ctx, t)
	defer pool.Close()

	if err := migrate.Apply(ctx, pool); err != nil {
		t.Fatalf("apply migrations: %v", err)
	}
	resetTables(ctx, t, pool)

	repo := NewPostgres(pool, nil)
	for _, sess := range []string{"stale", "active"} {
		if err := repo.Set(ctx, sess, "vendorToken", "tok-"+sess); err != nil {
			t.Fatalf("Set %s: %v", sess, err)
		}
	}
	if _, err := pool.Exec(ctx, `UPDATE client_storage SET updated_at = now() - interval '2 hours'`); err != nil {
		t.Fatalf("age rows: %v", err)
	}
	if err := repo.Touch(ctx, "active"); err != nil {
		t.Fatalf("Touch: %v", err)
	}

	removed, err := repo.DeleteIdle(ctx, time.Now().Add(-time.Hour))
	if err != nil {
		t.Fatalf("DeleteIdle: %v", err)
	}
	if removed != 1 {
		t.Fatalf("expected one idle row removed, got %d", removed)
	}
	if _, err := repo.Get(ctx, "stale", "vendorToken"); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected stale session gone, got %v", err)
	}
	if got, err := repo.Get(ctx, "active", "vendorToken"); err != nil || got.Value != "tok-active" {
		t.Fatalf("expected active session kept, got %+v err=%v", got, err)
	}
}

func testPool(ctx context.Context, t *testing.T) *pgxpool.Pool {
	t.Helper()
	dsn := os.Getenv("TEST_DB_DSN")
	if dsn == "" {
		t.Skip("TEST_DB_DSN not set")
	}
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		t.Fatalf("connect db: %v", err)
	}
	return pool
}

func resetTables(ctx context.Context, t *testing.T, pool *pgxpool.Pool) {
	t.Helper()
	if _, err := pool.Exec(ctx, `TRUNCATE client_storage`); err != nil {
		t.Fatalf("truncate tables: %v", err)
	}
}
