// Package mirror implements the browser-tier variant of the anchoring
// pipeline. It shares the hash → encrypt → store → anchor shape with the
// server-side anchor.Service but runs without server-side persistence:
// results live in an injected key-value store (an in-memory map by default)
// keyed by recordID alone, polled by the UI.
//
// Differences from the server pipeline are deliberate and load-bearing:
//   - selective anchoring: only critical records and vaccination/diagnosis
//     types touch the ledger, everything else resolves to success immediately
//   - ledger entry keys use the "pet_{petId}_{recordType}" scheme, not the
//     server's "MR_"-prefixed hash scheme
//   - encoded payloads of at most 1024 bytes are embedded directly in the
//     ledger entry (truncated to the 64-byte entry value limit) without a
//     store round-trip; larger payloads upload first and anchor the address
//   - the mirror retries itself, up to 3 attempts with delay = attempt × base
package mirror

import (
	"context"
	"encoding/base64"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/DogStark/petchain-anchor/crypt"
)

// Status is the mirror's UI-facing sync status.
type Status string

const (
	StatusIdle     Status = "idle"
	StatusSyncing  Status = "syncing"
	StatusSuccess  Status = "success"
	StatusFailed   Status = "failed"
	StatusRetrying Status = "retrying"
)

const (
	// Encoded payloads up to this size are embedded in the ledger entry.
	embedThreshold = 1024
	// Embedded values are truncated to the ledger's entry value limit.
	embedTruncateLen = 64
	// Retries per record before giving up.
	maxAttempts = 3
	// DefaultRetryBase is multiplied by the attempt number for the backoff
	// delay. Not a true exponential: delay = attempt * base.
	DefaultRetryBase = time.Second
	// DefaultPollInterval governs UI-visible result latency, not correctness.
	DefaultPollInterval = 2 * time.Second
)

// Record is one client-side medical record queued for anchoring.
// Type is the lowercase client-side record type ("vaccination", "treatment",
// "diagnosis", ...), distinct from the server's RecordType enumeration.
type Record struct {
	PetID    string `json:"pet_id"`
	RecordID string `json:"record_id"`
	Type     string `json:"type"`
	Critical bool   `json:"critical"`
	Data     any    `json:"data"`
}

// SyncResult is the transient per-record outcome the UI polls for.
type SyncResult struct {
	RecordID     string `json:"record_id"`
	Status       Status `json:"status"`
	LedgerRef    string `json:"ledger_ref,omitempty"`
	StoreAddress string `json:"store_address,omitempty"`
	Error        string `json:"error,omitempty"`
	Attempts     int    `json:"attempts"`
	Fee          int64  `json:"fee"`
}

// ResultStore is the injected key-value store for results, keyed by recordID
// alone — a narrower key than the server store's (recordID, recordType).
type ResultStore interface {
	Get(recordID string) (SyncResult, bool)
	Put(result SyncResult)
	List() []SyncResult
}

// MapStore is the default in-memory ResultStore.
type MapStore struct {
	mu      sync.RWMutex
	results map[string]SyncResult
}

// NewMapStore creates an empty in-memory result store.
func NewMapStore() *MapStore {
	return &MapStore{results: map[string]SyncResult{}}
}

func (s *MapStore) Get(recordID string) (SyncResult, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	r, ok := s.results[recordID]
	return r, ok
}

func (s *MapStore) Put(result SyncResult) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.results[result.RecordID] = result
}

func (s *MapStore) List() []SyncResult {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]SyncResult, 0, len(s.results))
	for _, r := range s.results {
		out = append(out, r)
	}
	return out
}

// EntryAnchorer is the ledger capability the mirror needs: a raw named-entry
// write. ledger.Client satisfies it.
type EntryAnchorer interface {
	AnchorEntry(ctx context.Context, key, value string) (ref string, fee int64, err error)
}

// ContentUploader uploads opaque blobs and returns their content address.
type ContentUploader interface {
	Upload(ctx context.Context, content []byte) (string, error)
}

// Mirror runs the client-side sync protocol.
type Mirror struct {
	ledger    EntryAnchorer
	content   ContentUploader
	results   ResultStore
	key       []byte
	retryBase time.Duration
	sleep     func(time.Duration)
	log       *zap.SugaredLogger
}

// New constructs a Mirror. key is the caller-supplied symmetric key; it is
// held in memory only, never persisted.
func New(ledger EntryAnchorer, content ContentUploader, results ResultStore, key []byte, log *zap.SugaredLogger) *Mirror {
	if results == nil {
		results = NewMapStore()
	}
	return &Mirror{
		ledger:    ledger,
		content:   content,
		results:   results,
		key:       key,
		retryBase: DefaultRetryBase,
		sleep:     time.Sleep,
		log:       log,
	}
}

// ShouldAnchor is the selective anchoring policy: critical records always
// anchor, as do vaccination and diagnosis records; everything else is marked
// success without touching the ledger (cost avoidance).
func ShouldAnchor(rec Record) bool {
	return rec.Critical || rec.Type == "vaccination" || rec.Type == "diagnosis"
}

// EntryKey derives the mirror's ledger entry key for a record.
func EntryKey(rec Record) string {
	return fmt.Sprintf("pet_%s_%s", rec.PetID, rec.Type)
}

// SyncRecord runs the mirror pipeline for one record and returns the final
// result. Intermediate syncing/retrying states are published to the result
// store as they happen so pollers see progress.
func (m *Mirror) SyncRecord(ctx context.Context, rec Record) SyncResult {
	result := SyncResult{RecordID: rec.RecordID, Status: StatusSyncing}
	m.results.Put(result)

	if !ShouldAnchor(rec) {
		result.Status = StatusSuccess
		m.results.Put(result)
		return result
	}

	encoded, err := m.encode(rec.Data)
	if err != nil {
		result.Status = StatusFailed
		result.Error = err.Error()
		m.results.Put(result)
		return result
	}

	key := EntryKey(rec)

	for attempt := 1; attempt <= maxAttempts; attempt++ {
		result.Attempts = attempt

		var value string
		var attemptErr error
		if len(encoded) <= embedThreshold {
			value = truncate(encoded, embedTruncateLen)
		} else {
			var addr string
			addr, attemptErr = m.content.Upload(ctx, []byte(encoded))
			if attemptErr == nil {
				result.StoreAddress = addr
				value = addr
			}
		}

		if attemptErr == nil {
			var ref string
			var fee int64
			ref, fee, attemptErr = m.ledger.AnchorEntry(ctx, key, value)
			if attemptErr == nil {
				result.Status = StatusSuccess
				result.LedgerRef = ref
				result.Fee = fee
				result.Error = ""
				m.results.Put(result)
				return result
			}
		}

		result.Error = attemptErr.Error()
		if attempt < maxAttempts {
			result.Status = StatusRetrying
			m.results.Put(result)
			if m.log != nil {
				m.log.Warnw("Mirror sync attempt failed, retrying",
					"record_id", rec.RecordID,
					"attempt", attempt,
					"error", attemptErr,
				)
			}
			m.sleep(time.Duration(attempt) * m.retryBase)
		}
	}

	result.Status = StatusFailed
	m.results.Put(result)
	if m.log != nil {
		m.log.Errorw("Mirror sync gave up",
			"record_id", rec.RecordID,
			"attempts", result.Attempts,
			"error", result.Error,
		)
	}
	return result
}

// Status returns the current result for a record, or an idle placeholder if
// the record has never been synced.
func (m *Mirror) Status(recordID string) SyncResult {
	if r, ok := m.results.Get(recordID); ok {
		return r
	}
	return SyncResult{RecordID: recordID, Status: StatusIdle}
}

// Results lists all known results for UI polling.
func (m *Mirror) Results() []SyncResult {
	return m.results.List()
}

// encode canonicalizes, encrypts, and base64-encodes record data. The
// encoded size, not the raw size, drives the embed-vs-upload branch.
func (m *Mirror) encode(data any) (string, error) {
	canonical, err := crypt.Canonicalize(data)
	if err != nil {
		return "", err
	}
	encrypted, err := crypt.Encrypt(canonical, m.key)
	if err != nil {
		return "", err
	}
	return base64.StdEncoding.EncodeToString(encrypted), nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
