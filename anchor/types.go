// Package anchor implements the record-anchoring pipeline: hash → encrypt →
// content-store upload → ledger anchor, with persisted per-record sync state
// and three-way integrity verification (local / chain / store).
package anchor

import (
	"context"
	"time"
)

// RecordType identifies the kind of medical record a sync tracks.
type RecordType string

const (
	RecordTypeVaccination RecordType = "VACCINATION"
	RecordTypeTreatment   RecordType = "TREATMENT"
	RecordTypeAllergy     RecordType = "ALLERGY"
)

// Valid returns true if rt is a known record type.
func (rt RecordType) Valid() bool {
	switch rt {
	case RecordTypeVaccination, RecordTypeTreatment, RecordTypeAllergy:
		return true
	default:
		return false
	}
}

// SyncStatus is the sync state machine: PENDING → SYNCED on success,
// PENDING → FAILED on failure. A new SyncRecord call re-enters PENDING from
// FAILED and reruns the whole pipeline.
type SyncStatus string

const (
	StatusPending SyncStatus = "PENDING"
	StatusSynced  SyncStatus = "SYNCED"
	StatusFailed  SyncStatus = "FAILED"
)

// SyncState is the persisted anchoring progress/outcome for one
// (recordID, recordType) pair — the natural key, unique per row.
//
// Invariants:
//   - status = SYNCED implies StoreAddress and LedgerRef are non-empty and
//     RecordHash matches the data that produced them
//   - status = FAILED implies LastError is non-empty
//   - RetryCount never decreases; it is a lifetime counter, incremented only
//     on failure and left untouched by a later success
type SyncState struct {
	ID           string     `json:"id"`
	RecordID     string     `json:"record_id"`
	RecordType   RecordType `json:"record_type"`
	RecordHash   string     `json:"record_hash"`
	StoreAddress string     `json:"store_address,omitempty"`
	LedgerRef    string     `json:"ledger_ref,omitempty"`
	Status       SyncStatus `json:"status"`
	RetryCount   int        `json:"retry_count"`
	LastError    string     `json:"last_error,omitempty"`
	SyncedAt     *time.Time `json:"synced_at,omitempty"`
	CreatedAt    time.Time  `json:"created_at"`
	UpdatedAt    time.Time  `json:"updated_at"`
}

// markSynced records a successful full anchor. RetryCount is deliberately
// left alone — it counts lifetime failures, not attempts in a window.
func (s *SyncState) markSynced(storeAddress, ledgerRef string) {
	now := time.Now()
	s.StoreAddress = storeAddress
	s.LedgerRef = ledgerRef
	s.Status = StatusSynced
	s.LastError = ""
	s.SyncedAt = &now
	s.UpdatedAt = now
}

// markFailed records a pipeline failure.
func (s *SyncState) markFailed(err error) {
	s.Status = StatusFailed
	s.LastError = err.Error()
	s.RetryCount++
	s.UpdatedAt = time.Now()
}

// IntegrityReport carries the three independent integrity checks. Each
// targets a distinct threat: Local catches record drift since last sync,
// Blockchain catches tampering with the store-address pointer, IPFS catches
// tampering or corruption of the off-chain blob. All three must be true for
// a record to be considered fully verified.
type IntegrityReport struct {
	Local      bool `json:"local"`
	Blockchain bool `json:"blockchain"`
	IPFS       bool `json:"ipfs"`
}

// Verified reports whether all three checks agree.
func (r IntegrityReport) Verified() bool {
	return r.Local && r.Blockchain && r.IPFS
}

// VerificationReport is the result of VerifyRecord. Integrity mismatches are
// data here, never errors.
type VerificationReport struct {
	RecordID  string          `json:"record_id"`
	Status    string          `json:"status"`
	Integrity IntegrityReport `json:"integrity"`
	SyncedAt  *time.Time      `json:"synced_at,omitempty"`
	LedgerRef string          `json:"ledger_ref,omitempty"`
}

// Store is the persisted SyncState mapping. Implementations guarantee
// single-row atomicity only; concurrent upserts for the same natural key are
// last-writer-wins.
type Store interface {
	// FindByNaturalKey returns the state for (recordID, recordType), or
	// (nil, nil) when no state exists.
	FindByNaturalKey(ctx context.Context, recordID string, recordType RecordType) (*SyncState, error)
	// FindByRecordID looks up by recordID alone — the narrower accessor used
	// by status queries. Returns ErrNotFound when no state exists.
	FindByRecordID(ctx context.Context, recordID string) (*SyncState, error)
	// Upsert inserts or fully replaces the state keyed by natural key.
	Upsert(ctx context.Context, state *SyncState) error
}

// ContentStore uploads and retrieves opaque blobs by content address.
type ContentStore interface {
	Upload(ctx context.Context, content []byte) (string, error)
	Retrieve(ctx context.Context, address string) ([]byte, error)
}

// Ledger anchors record proofs and reads them back.
type Ledger interface {
	// AnchorRecord writes the (recordHash → storeAddress) entry and returns
	// the ledger transaction reference.
	AnchorRecord(ctx context.Context, recordHash, storeAddress string) (string, error)
	// VerifyOnChain returns the anchored store address for recordHash, or ""
	// when the entry is confirmed absent. Errors are connectivity failures.
	VerifyOnChain(ctx context.Context, recordHash string) (string, error)
}
