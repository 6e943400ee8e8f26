package storage

import (
	"context"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"

	"github.com/DogStark/petchain-anchor/anchor"
	"github.com/DogStark/petchain-anchor/errors"
	anchortest "github.com/DogStark/petchain-anchor/internal/testing"
)

func testState(recordID string, recordType anchor.RecordType) *anchor.SyncState {
	return &anchor.SyncState{
		ID:         "id-" + recordID + "-" + string(recordType),
		RecordID:   recordID,
		RecordType: recordType,
		RecordHash: "hash-" + recordID,
		Status:     anchor.StatusPending,
	}
}

func TestSyncStore_UpsertAndFind(t *testing.T) {
	store := NewSyncStore(anchortest.CreateTestDB(t))
	ctx := context.Background()

	state := testState("r1", anchor.RecordTypeVaccination)
	if err := store.Upsert(ctx, state); err != nil {
		t.Fatalf("Upsert failed: %v", err)
	}

	got, err := store.FindByNaturalKey(ctx, "r1", anchor.RecordTypeVaccination)
	if err != nil {
		t.Fatalf("FindByNaturalKey failed: %v", err)
	}
	if got == nil {
		t.Fatal("FindByNaturalKey returned nil for existing state")
	}
	if got.ID != state.ID {
		t.Errorf("ID mismatch: got %s, want %s", got.ID, state.ID)
	}
	if got.RecordHash != state.RecordHash {
		t.Errorf("RecordHash mismatch: got %s, want %s", got.RecordHash, state.RecordHash)
	}
	if got.Status != anchor.StatusPending {
		t.Errorf("Status mismatch: got %s, want PENDING", got.Status)
	}
	if got.StoreAddress != "" || got.LedgerRef != "" || got.LastError != "" {
		t.Error("Expected empty nullable fields on fresh state")
	}
	if got.SyncedAt != nil {
		t.Error("Expected nil SyncedAt on fresh state")
	}
}

func TestSyncStore_UpsertReplacesByNaturalKey(t *testing.T) {
	store := NewSyncStore(anchortest.CreateTestDB(t))
	ctx := context.Background()

	state := testState("r1", anchor.RecordTypeVaccination)
	if err := store.Upsert(ctx, state); err != nil {
		t.Fatalf("Upsert (create) failed: %v", err)
	}

	now := time.Now()
	state.Status = anchor.StatusSynced
	state.StoreAddress = "bafyabc"
	state.LedgerRef = "tx123"
	state.SyncedAt = &now
	state.RetryCount = 2

	if err := store.Upsert(ctx, state); err != nil {
		t.Fatalf("Upsert (update) failed: %v", err)
	}

	got, err := store.FindByNaturalKey(ctx, "r1", anchor.RecordTypeVaccination)
	if err != nil {
		t.Fatalf("FindByNaturalKey failed: %v", err)
	}
	if got.Status != anchor.StatusSynced {
		t.Errorf("Status not updated: got %s", got.Status)
	}
	if got.StoreAddress != "bafyabc" {
		t.Errorf("StoreAddress not updated: got %s", got.StoreAddress)
	}
	if got.LedgerRef != "tx123" {
		t.Errorf("LedgerRef not updated: got %s", got.LedgerRef)
	}
	if got.RetryCount != 2 {
		t.Errorf("RetryCount not updated: got %d", got.RetryCount)
	}
	if got.SyncedAt == nil || !got.SyncedAt.Equal(now.Truncate(0)) {
		t.Errorf("SyncedAt not persisted with precision: got %v, want %v", got.SyncedAt, now)
	}

	// Still one row per natural key
	states, err := store.ListByStatus(ctx, anchor.StatusSynced)
	if err != nil {
		t.Fatalf("ListByStatus failed: %v", err)
	}
	if len(states) != 1 {
		t.Errorf("Upsert created duplicate: got %d rows, want 1", len(states))
	}
}

func TestSyncStore_SameRecordDifferentTypes(t *testing.T) {
	store := NewSyncStore(anchortest.CreateTestDB(t))
	ctx := context.Background()

	if err := store.Upsert(ctx, testState("r1", anchor.RecordTypeVaccination)); err != nil {
		t.Fatalf("Upsert failed: %v", err)
	}
	if err := store.Upsert(ctx, testState("r1", anchor.RecordTypeAllergy)); err != nil {
		t.Fatalf("Upsert failed: %v", err)
	}

	vac, err := store.FindByNaturalKey(ctx, "r1", anchor.RecordTypeVaccination)
	if err != nil || vac == nil {
		t.Fatalf("FindByNaturalKey(VACCINATION) failed: %v", err)
	}
	all, err := store.FindByNaturalKey(ctx, "r1", anchor.RecordTypeAllergy)
	if err != nil || all == nil {
		t.Fatalf("FindByNaturalKey(ALLERGY) failed: %v", err)
	}
	if vac.ID == all.ID {
		t.Error("Distinct natural keys collapsed into one row")
	}
}

func TestSyncStore_FindByNaturalKeyAbsent(t *testing.T) {
	store := NewSyncStore(anchortest.CreateTestDB(t))

	got, err := store.FindByNaturalKey(context.Background(), "ghost", anchor.RecordTypeTreatment)
	if err != nil {
		t.Fatalf("FindByNaturalKey failed: %v", err)
	}
	if got != nil {
		t.Error("Expected nil for absent natural key")
	}
}

func TestSyncStore_FindByRecordID(t *testing.T) {
	store := NewSyncStore(anchortest.CreateTestDB(t))
	ctx := context.Background()

	if err := store.Upsert(ctx, testState("r1", anchor.RecordTypeVaccination)); err != nil {
		t.Fatalf("Upsert failed: %v", err)
	}

	got, err := store.FindByRecordID(ctx, "r1")
	if err != nil {
		t.Fatalf("FindByRecordID failed: %v", err)
	}
	if got.RecordID != "r1" {
		t.Errorf("RecordID mismatch: got %s", got.RecordID)
	}

	_, err = store.FindByRecordID(ctx, "ghost")
	if !errors.IsNotFoundError(err) {
		t.Errorf("Expected ErrNotFound for unknown record, got %v", err)
	}
}

func TestSyncStore_ListByStatus(t *testing.T) {
	store := NewSyncStore(anchortest.CreateTestDB(t))
	ctx := context.Background()

	pending := testState("r1", anchor.RecordTypeVaccination)
	failed := testState("r2", anchor.RecordTypeTreatment)
	failed.Status = anchor.StatusFailed
	failed.LastError = "boom"
	failed.RetryCount = 3

	if err := store.Upsert(ctx, pending); err != nil {
		t.Fatalf("Upsert failed: %v", err)
	}
	if err := store.Upsert(ctx, failed); err != nil {
		t.Fatalf("Upsert failed: %v", err)
	}

	got, err := store.ListByStatus(ctx, anchor.StatusFailed)
	if err != nil {
		t.Fatalf("ListByStatus failed: %v", err)
	}
	if len(got) != 1 {
		t.Fatalf("Expected 1 failed state, got %d", len(got))
	}
	if got[0].LastError != "boom" {
		t.Errorf("LastError mismatch: got %q", got[0].LastError)
	}
}

func TestSyncStore_UpsertQueryError(t *testing.T) {
	mockDB, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New failed: %v", err)
	}
	defer mockDB.Close()

	mock.ExpectExec("INSERT INTO sync_records").WillReturnError(errors.New("disk I/O error"))

	store := NewSyncStore(mockDB)
	err = store.Upsert(context.Background(), testState("r1", anchor.RecordTypeVaccination))
	if err == nil {
		t.Fatal("Expected wrapped database error, got nil")
	}
	if mockErr := mock.ExpectationsWereMet(); mockErr != nil {
		t.Errorf("Unmet sqlmock expectations: %v", mockErr)
	}
}
