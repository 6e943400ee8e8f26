package db

import (
	"database/sql"
	"testing"

	_ "github.com/mattn/go-sqlite3"
)

func openTestDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := sql.Open("sqlite3", ":memory:")
	if err != nil {
		t.Fatalf("Failed to open in-memory database: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

func TestMigrateCreatesSchema(t *testing.T) {
	db := openTestDB(t)

	if err := Migrate(db, nil); err != nil {
		t.Fatalf("Migrate failed: %v", err)
	}

	// sync_records exists and enforces the natural key
	if _, err := db.Exec(`INSERT INTO sync_records
		(id, record_id, record_type, record_hash, status, created_at, updated_at)
		VALUES ('a', 'r1', 'VACCINATION', 'h1', 'PENDING', '2026-01-01', '2026-01-01')`); err != nil {
		t.Fatalf("Insert into sync_records failed: %v", err)
	}

	_, err := db.Exec(`INSERT INTO sync_records
		(id, record_id, record_type, record_hash, status, created_at, updated_at)
		VALUES ('b', 'r1', 'VACCINATION', 'h2', 'PENDING', '2026-01-01', '2026-01-01')`)
	if err == nil {
		t.Error("Expected UNIQUE violation for duplicate (record_id, record_type), got nil")
	}
}

func TestMigrateIdempotent(t *testing.T) {
	db := openTestDB(t)

	if err := Migrate(db, nil); err != nil {
		t.Fatalf("First Migrate failed: %v", err)
	}
	if err := Migrate(db, nil); err != nil {
		t.Fatalf("Second Migrate failed: %v", err)
	}

	var count int
	if err := db.QueryRow("SELECT COUNT(*) FROM schema_migrations").Scan(&count); err != nil {
		t.Fatalf("Query schema_migrations failed: %v", err)
	}
	if count != 2 {
		t.Errorf("Expected 2 recorded migrations, got %d", count)
	}
}
