package database

import (
	"context"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"englishdrills/internal/logger"
)

func openTestDB(t *testing.T) *DB {
	t.Helper()
	db, err := Initialize(filepath.Join(t.TempDir(), "drills.db"))
	if err != nil {
		t.Fatalf("Failed to initialize database: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	if err := db.RunMigrations(context.Background(), logger.NewNop()); err != nil {
		t.Fatalf("Failed to run migrations: %v", err)
	}
	return db
}

// TestDatabaseIntegration tests the complete database lifecycle
func TestDatabaseIntegration(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping integration test in short mode")
	}

	db := openTestDB(t)
	ctx := context.Background()

	var name string
	err := db.QueryRowContext(ctx, "SELECT name FROM sqlite_master WHERE type='table' AND name=?", "lesson_snapshots").Scan(&name)
	if err != nil {
		t.Fatalf("Table lesson_snapshots not found: %v", err)
	}

	// Running again is a no-op
	if err := db.RunMigrations(ctx, logger.NewNop()); err != nil {
		t.Fatalf("Second RunMigrations() error = %v", err)
	}
	var count int
	if err := db.QueryRowContext(ctx, "SELECT COUNT(*) FROM migrations").Scan(&count); err != nil {
		t.Fatalf("Failed to count migrations: %v", err)
	}
	if count != 2 {
		t.Errorf("Expected 2 recorded migrations, got %d", count)
	}
}

func TestUpsertSnapshot(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping integration test in short mode")
	}

	db := openTestDB(t)
	ctx := context.Background()
	upsert := db.Dialect.UpsertSnapshotQuery()

	if _, err := db.ExecContext(ctx, upsert, "learner-1", "present-simple", `{"score":1}`, time.Now().UTC()); err != nil {
		t.Fatalf("First upsert failed: %v", err)
	}
	if _, err := db.ExecContext(ctx, upsert, "learner-1", "present-simple", `{"score":2}`, time.Now().UTC()); err != nil {
		t.Fatalf("Second upsert failed: %v", err)
	}

	var data string
	var rows int
	if err := db.QueryRowContext(ctx, "SELECT data, (SELECT COUNT(*) FROM lesson_snapshots) FROM lesson_snapshots WHERE learner_id = ? AND lesson_id = ?",
		"learner-1", "present-simple").Scan(&data, &rows); err != nil {
		t.Fatalf("Failed to read snapshot: %v", err)
	}
	if data != `{"score":2}` || rows != 1 {
		t.Errorf("got data %s in %d rows, want the second write in 1 row", data, rows)
	}
}

// TestDatabaseTransactions tests transaction support
func TestDatabaseTransactions(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping integration test in short mode")
	}

	db := openTestDB(t)
	ctx := context.Background()
	insert := "INSERT INTO lesson_snapshots (learner_id, lesson_id, data, updated_at) VALUES (?, ?, ?, ?)"

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		t.Fatalf("Failed to begin transaction: %v", err)
	}
	if _, err := tx.ExecContext(ctx, insert, "committed", "l", "{}", time.Now()); err != nil {
		tx.Rollback()
		t.Fatalf("Failed to insert in transaction: %v", err)
	}
	if err := tx.Commit(); err != nil {
		t.Fatalf("Failed to commit transaction: %v", err)
	}

	tx2, err := db.BeginTx(ctx, nil)
	if err != nil {
		t.Fatalf("Failed to begin second transaction: %v", err)
	}
	if _, err := tx2.ExecContext(ctx, insert, "rolled-back", "l", "{}", time.Now()); err != nil {
		tx2.Rollback()
		t.Fatalf("Failed to insert in second transaction: %v", err)
	}
	if err := tx2.Rollback(); err != nil {
		t.Fatalf("Failed to rollback transaction: %v", err)
	}

	var count int
	if err := db.QueryRowContext(ctx, "SELECT COUNT(*) FROM lesson_snapshots").Scan(&count); err != nil {
		t.Fatalf("Failed to count rows: %v", err)
	}
	if count != 1 {
		t.Errorf("Expected 1 row after commit and rollback, got %d", count)
	}
}

// TestConcurrentAccess tests concurrent database access
func TestConcurrentAccess(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping integration test in short mode")
	}

	db := openTestDB(t)
	ctx := context.Background()

	if _, err := db.ExecContext(ctx, db.Dialect.UpsertSnapshotQuery(), "reader", "l", `{"streak":3}`, time.Now()); err != nil {
		t.Fatalf("Failed to create test row: %v", err)
	}

	var wg sync.WaitGroup
	for range 10 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			var data string
			err := db.QueryRowContext(ctx, "SELECT data FROM lesson_snapshots WHERE learner_id = ?", "reader").Scan(&data)
			if err != nil {
				t.Errorf("Concurrent read failed: %v", err)
			}
			if data != `{"streak":3}` {
				t.Errorf("Expected snapshot data, got '%s'", data)
			}
		}()
	}
	wg.Wait()
}
