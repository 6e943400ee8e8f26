package anchor

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/DogStark/petchain-anchor/crypt"
	"github.com/DogStark/petchain-anchor/errors"
)

// Service orchestrates the anchoring pipeline.
//
// Error semantics are deliberately asymmetric: SyncRecord catches all
// pipeline errors and records them into the returned SyncState (sync is a
// best-effort background-style operation; callers inspect Status), while
// VerifyRecord and GetSyncStatus return their errors (request-style
// operations).
type Service struct {
	store   Store
	content ContentStore
	ledger  Ledger
	key     []byte
	log     *zap.SugaredLogger
}

// NewService constructs the anchoring service. key is the process-wide
// symmetric key from crypt.DeriveKey.
func NewService(store Store, content ContentStore, ledger Ledger, key []byte, log *zap.SugaredLogger) *Service {
	return &Service{
		store:   store,
		content: content,
		ledger:  ledger,
		key:     key,
		log:     log,
	}
}

// SyncRecord runs the full pipeline for one record: canonical hash, PENDING
// state persisted before any network I/O, encrypt, upload, anchor, SYNCED.
//
// A retry after failure restarts from encryption rather than resuming from
// the step previously reached: content addressing makes duplicate uploads
// idempotent and cheap, so partial progress is abandoned, not tracked.
//
// Pipeline failures are returned inside the FAILED state, not as an error;
// the error return covers only hashing and persistence failures.
func (s *Service) SyncRecord(ctx context.Context, recordID string, recordType RecordType, data any) (*SyncState, error) {
	if recordID == "" {
		return nil, errors.New("recordID is empty")
	}
	if !recordType.Valid() {
		return nil, errors.Newf("unknown record type %q", recordType)
	}

	canonical, err := crypt.Canonicalize(data)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to canonicalize record %s", recordID)
	}
	recordHash := crypt.Hash(canonical)

	state, err := s.store.FindByNaturalKey(ctx, recordID, recordType)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to load sync state for %s/%s", recordID, recordType)
	}
	now := time.Now()
	if state == nil {
		state = &SyncState{
			ID:         uuid.NewString(),
			RecordID:   recordID,
			RecordType: recordType,
			CreatedAt:  now,
		}
	}
	state.RecordHash = recordHash
	state.Status = StatusPending
	state.UpdatedAt = now

	// Persist PENDING before any network I/O so a crash mid-pipeline leaves
	// an observable row with the correct target hash.
	if err := s.store.Upsert(ctx, state); err != nil {
		return nil, errors.Wrapf(err, "failed to persist pending state for %s/%s", recordID, recordType)
	}

	storeAddress, ledgerRef, err := s.runPipeline(ctx, canonical, recordHash)
	if err != nil {
		state.markFailed(err)
		if s.log != nil {
			s.log.Errorw("Record sync failed",
				"record_id", recordID,
				"record_type", recordType,
				"retry_count", state.RetryCount,
				"error", err,
			)
		}
		if perr := s.store.Upsert(ctx, state); perr != nil {
			return state, errors.Wrapf(perr, "failed to persist failed state for %s/%s", recordID, recordType)
		}
		return state, nil
	}

	state.markSynced(storeAddress, ledgerRef)
	if err := s.store.Upsert(ctx, state); err != nil {
		return state, errors.Wrapf(err, "failed to persist synced state for %s/%s", recordID, recordType)
	}

	if s.log != nil {
		s.log.Infow("Record synced",
			"record_id", recordID,
			"record_type", recordType,
			"record_hash", recordHash,
			"store_address", storeAddress,
			"ledger_ref", ledgerRef,
		)
	}

	return state, nil
}

// runPipeline executes steps encrypt → upload → anchor.
func (s *Service) runPipeline(ctx context.Context, canonical []byte, recordHash string) (storeAddress, ledgerRef string, err error) {
	encrypted, err := crypt.Encrypt(canonical, s.key)
	if err != nil {
		return "", "", errors.Wrap(err, "encrypt")
	}

	storeAddress, err = s.content.Upload(ctx, encrypted)
	if err != nil {
		return "", "", errors.Wrap(err, "content store upload")
	}

	ledgerRef, err = s.ledger.AnchorRecord(ctx, recordHash, storeAddress)
	if err != nil {
		return "", "", errors.Wrap(err, "ledger anchor")
	}

	return storeAddress, ledgerRef, nil
}

// VerifyRecord cross-checks the record's current data against the stored
// hash, the on-chain anchor, and the off-chain blob. Integrity mismatches
// are reported, not raised; errors are reserved for records never synced and
// for infrastructure failures reaching the ledger or the store.
func (s *Service) VerifyRecord(ctx context.Context, recordID string, recordType RecordType, currentData any) (*VerificationReport, error) {
	state, err := s.store.FindByNaturalKey(ctx, recordID, recordType)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to load sync state for %s/%s", recordID, recordType)
	}
	if state == nil || state.Status != StatusSynced {
		return nil, errors.Wrapf(errors.ErrNotSynced, "record %s/%s", recordID, recordType)
	}

	currentHash, err := crypt.HashRecord(currentData)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to hash current data for %s/%s", recordID, recordType)
	}
	local := currentHash == state.RecordHash

	onChainAddress, err := s.ledger.VerifyOnChain(ctx, state.RecordHash)
	if err != nil {
		return nil, errors.Wrapf(err, "on-chain verification failed for %s/%s", recordID, recordType)
	}
	chain := onChainAddress != "" && onChainAddress == state.StoreAddress

	blob, err := s.content.Retrieve(ctx, state.StoreAddress)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to retrieve stored blob for %s/%s", recordID, recordType)
	}
	decrypted, err := crypt.Decrypt(blob, s.key)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to decrypt stored blob for %s/%s", recordID, recordType)
	}

	// Re-parse and re-canonicalize the stored payload; a blob that no longer
	// parses or hashes to the anchored fingerprint is a store mismatch.
	store := false
	var parsed any
	if jerr := json.Unmarshal(decrypted, &parsed); jerr == nil {
		if storedHash, herr := crypt.HashRecord(parsed); herr == nil {
			store = storedHash == state.RecordHash
		}
	}

	report := &VerificationReport{
		RecordID:  recordID,
		Status:    "verified",
		Integrity: IntegrityReport{Local: local, Blockchain: chain, IPFS: store},
		SyncedAt:  state.SyncedAt,
		LedgerRef: state.LedgerRef,
	}

	if s.log != nil && !report.Integrity.Verified() {
		s.log.Warnw("Integrity check mismatch",
			"record_id", recordID,
			"record_type", recordType,
			"local", local,
			"blockchain", chain,
			"ipfs", store,
		)
	}

	return report, nil
}

// GetSyncStatus returns the sync state for a record by recordID alone,
// regardless of recordType. Returns ErrNotFound for unknown records.
func (s *Service) GetSyncStatus(ctx context.Context, recordID string) (*SyncState, error) {
	return s.store.FindByRecordID(ctx, recordID)
}
