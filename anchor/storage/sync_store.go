// Package storage provides the SQLite-backed SyncState store.
package storage

import (
	"context"
	"database/sql"
	"time"

	"github.com/DogStark/petchain-anchor/anchor"
	"github.com/DogStark/petchain-anchor/errors"
)

// SyncStore persists SyncState rows in the sync_records table.
// It implements anchor.Store.
type SyncStore struct {
	db *sql.DB
}

// NewSyncStore creates a new sync store
func NewSyncStore(db *sql.DB) *SyncStore {
	return &SyncStore{db: db}
}

const syncColumns = `id, record_id, record_type, record_hash, store_address, ledger_ref,
	status, retry_count, last_error, synced_at, created_at, updated_at`

// Upsert inserts or fully replaces the state keyed by (record_id, record_type).
// Single-row atomicity only: concurrent upserts for the same key are
// last-writer-wins.
func (s *SyncStore) Upsert(ctx context.Context, state *anchor.SyncState) error {
	now := time.Now()
	if state.CreatedAt.IsZero() {
		state.CreatedAt = now
	}
	state.UpdatedAt = now

	query := `
		INSERT INTO sync_records (` + syncColumns + `)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(record_id, record_type) DO UPDATE SET
			record_hash = excluded.record_hash,
			store_address = excluded.store_address,
			ledger_ref = excluded.ledger_ref,
			status = excluded.status,
			retry_count = excluded.retry_count,
			last_error = excluded.last_error,
			synced_at = excluded.synced_at,
			updated_at = excluded.updated_at
	`

	_, err := s.db.ExecContext(ctx, query,
		state.ID, state.RecordID, string(state.RecordType), state.RecordHash,
		nullable(state.StoreAddress), nullable(state.LedgerRef),
		string(state.Status), state.RetryCount, nullable(state.LastError),
		nullableTime(state.SyncedAt),
		state.CreatedAt.Format(time.RFC3339Nano),
		state.UpdatedAt.Format(time.RFC3339Nano),
	)
	if err != nil {
		return errors.Wrapf(err, "failed to upsert sync state %s/%s", state.RecordID, state.RecordType)
	}

	return nil
}

// FindByNaturalKey retrieves the state for (recordID, recordType).
// Returns (nil, nil) when no state exists.
func (s *SyncStore) FindByNaturalKey(ctx context.Context, recordID string, recordType anchor.RecordType) (*anchor.SyncState, error) {
	query := `SELECT ` + syncColumns + ` FROM sync_records WHERE record_id = ? AND record_type = ?`

	state, err := scanSyncState(s.db.QueryRowContext(ctx, query, recordID, string(recordType)))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, errors.Wrapf(err, "failed to get sync state %s/%s", recordID, recordType)
	}

	return state, nil
}

// FindByRecordID retrieves the most recently updated state for a record,
// regardless of record type. Returns ErrNotFound when no state exists.
func (s *SyncStore) FindByRecordID(ctx context.Context, recordID string) (*anchor.SyncState, error) {
	query := `SELECT ` + syncColumns + ` FROM sync_records
		WHERE record_id = ? ORDER BY updated_at DESC LIMIT 1`

	state, err := scanSyncState(s.db.QueryRowContext(ctx, query, recordID))
	if err == sql.ErrNoRows {
		return nil, errors.NewNotFoundError("no sync state for record %s", recordID)
	}
	if err != nil {
		return nil, errors.Wrapf(err, "failed to get sync state for record %s", recordID)
	}

	return state, nil
}

// ListByStatus returns all states with the given status, oldest first.
// Used by operational tooling to find stuck or failed syncs.
func (s *SyncStore) ListByStatus(ctx context.Context, status anchor.SyncStatus) ([]*anchor.SyncState, error) {
	query := `SELECT ` + syncColumns + ` FROM sync_records WHERE status = ? ORDER BY updated_at ASC`

	rows, err := s.db.QueryContext(ctx, query, string(status))
	if err != nil {
		return nil, errors.Wrapf(err, "failed to list sync states with status %s", status)
	}
	defer rows.Close()

	var states []*anchor.SyncState
	for rows.Next() {
		state, err := scanSyncState(rows)
		if err != nil {
			return nil, errors.Wrap(err, "failed to scan sync state")
		}
		states = append(states, state)
	}

	return states, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanSyncState(row rowScanner) (*anchor.SyncState, error) {
	var state anchor.SyncState
	var recordType, status, createdAt, updatedAt string
	var storeAddress, ledgerRef, lastError, syncedAt sql.NullString

	err := row.Scan(
		&state.ID, &state.RecordID, &recordType, &state.RecordHash,
		&storeAddress, &ledgerRef, &status, &state.RetryCount,
		&lastError, &syncedAt, &createdAt, &updatedAt,
	)
	if err != nil {
		return nil, err
	}

	state.RecordType = anchor.RecordType(recordType)
	state.Status = anchor.SyncStatus(status)
	state.StoreAddress = storeAddress.String
	state.LedgerRef = ledgerRef.String
	state.LastError = lastError.String
	if syncedAt.Valid {
		t, _ := time.Parse(time.RFC3339Nano, syncedAt.String)
		state.SyncedAt = &t
	}
	state.CreatedAt, _ = time.Parse(time.RFC3339Nano, createdAt)
	state.UpdatedAt, _ = time.Parse(time.RFC3339Nano, updatedAt)

	return &state, nil
}

func nullable(s string) any {
	if s == "" {
		return nil
	}
	return s
}

func nullableTime(t *time.Time) any {
	if t == nil {
		return nil
	}
	return t.Format(time.RFC3339Nano)
}
