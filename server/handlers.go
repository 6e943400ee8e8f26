package server

import (
	"net/http"
	"strings"

	"github.com/DogStark/petchain-anchor/anchor"
	"github.com/DogStark/petchain-anchor/errors"
	"github.com/DogStark/petchain-anchor/version"
)

type syncRequest struct {
	RecordID   string `json:"record_id"`
	RecordType string `json:"record_type"`
	Data       any    `json:"data"`
}

// readSyncRequest decodes and validates the shared sync/verify body.
// A false return means the error response has already been written.
func readSyncRequest(w http.ResponseWriter, r *http.Request) (syncRequest, bool) {
	var req syncRequest
	if err := readJSON(w, r, &req); err != nil {
		return req, false
	}
	if req.RecordID == "" {
		writeError(w, http.StatusBadRequest, "record_id is required")
		return req, false
	}
	if !anchor.RecordType(req.RecordType).Valid() {
		writeError(w, http.StatusBadRequest, "unknown record_type "+req.RecordType)
		return req, false
	}
	return req, true
}

// HandleSync anchors a record (POST /api/sync). Pipeline failures are not
// HTTP errors: the returned state carries status FAILED and last_error.
func (s *AnchorServer) HandleSync(w http.ResponseWriter, r *http.Request) {
	if !requireMethod(w, r, http.MethodPost) {
		return
	}

	req, ok := readSyncRequest(w, r)
	if !ok {
		return
	}

	state, err := s.service.SyncRecord(r.Context(), req.RecordID, anchor.RecordType(req.RecordType), req.Data)
	if err != nil {
		s.logger.Errorw("Sync rejected",
			"record_id", shortID(req.RecordID),
			"error", err,
		)
		writeError(w, statusForError(err), err.Error())
		return
	}

	writeJSON(w, http.StatusOK, state)
}

// HandleVerify re-checks a synced record against store and ledger
// (POST /api/verify). The request body mirrors /api/sync: the caller supplies
// the current record data to compare against the anchored hash.
func (s *AnchorServer) HandleVerify(w http.ResponseWriter, r *http.Request) {
	if !requireMethod(w, r, http.MethodPost) {
		return
	}

	req, ok := readSyncRequest(w, r)
	if !ok {
		return
	}

	report, err := s.service.VerifyRecord(r.Context(), req.RecordID, anchor.RecordType(req.RecordType), req.Data)
	if err != nil {
		s.logger.Errorw("Verify failed",
			"record_id", shortID(req.RecordID),
			"error", err,
		)
		writeError(w, statusForError(err), err.Error())
		return
	}

	writeJSON(w, http.StatusOK, report)
}

// HandleStatus returns the sync state for a record (GET /api/status/{id}).
func (s *AnchorServer) HandleStatus(w http.ResponseWriter, r *http.Request) {
	if !requireMethod(w, r, http.MethodGet) {
		return
	}

	recordID := strings.TrimPrefix(r.URL.Path, "/api/status/")
	if recordID == "" || strings.Contains(recordID, "/") {
		writeError(w, http.StatusBadRequest, "Record ID required")
		return
	}

	state, err := s.service.GetSyncStatus(r.Context(), recordID)
	if err != nil {
		writeError(w, statusForError(err), err.Error())
		return
	}

	writeJSON(w, http.StatusOK, state)
}

// HandleHealth serves the health check endpoint with version info
func (s *AnchorServer) HandleHealth(w http.ResponseWriter, r *http.Request) {
	versionInfo := version.Get()

	health := map[string]interface{}{
		"status":     "ok",
		"version":    versionInfo.Version,
		"commit":     versionInfo.CommitHash,
		"build_time": versionInfo.BuildTime,
	}

	writeJSON(w, http.StatusOK, health)
}

// statusForError maps the service error taxonomy onto HTTP status codes.
func statusForError(err error) int {
	switch {
	case errors.IsNotFoundError(err):
		return http.StatusNotFound
	case errors.IsNotSyncedError(err):
		return http.StatusConflict
	case errors.IsLedgerNotConfiguredError(err):
		return http.StatusServiceUnavailable
	case errors.IsStoreUnavailableError(err), errors.IsLedgerSubmissionError(err):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}
