package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/google/uuid"

	"github.com/roach88/endorser/internal/allowlist"
	"github.com/roach88/endorser/internal/ingest"
	"github.com/roach88/endorser/internal/store"
)

func newRequestID() string { return "req_" + uuid.NewString() }

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("content-type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func readJSON(r *http.Request, dst any) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	dec.UseNumber()
	return dec.Decode(dst)
}

func writeError(w http.ResponseWriter, status int, code, message string, details any) {
	resp := map[string]any{
		"request_id": newRequestID(),
		"error": map[string]any{
			"code": code, "message": message, "details": details,
		},
	}
	writeJSON(w, status, resp)
}

// writeServiceError maps errors from the allow-list, ingest and store
// layers onto status codes. Anything unrecognized is a 500.
func (s *Server) writeServiceError(w http.ResponseWriter, r *http.Request, err error) {
	var perr *ingest.ParseError
	switch {
	case errors.Is(err, store.ErrDuplicateRule):
		writeError(w, http.StatusConflict, "DUPLICATE_RULE", err.Error(), nil)
	case errors.Is(err, store.ErrConstraint):
		writeError(w, http.StatusConflict, "CONSTRAINT", err.Error(), nil)
	case errors.Is(err, store.ErrTransactionNotFound):
		writeError(w, http.StatusNotFound, "NOT_FOUND", err.Error(), nil)
	case errors.Is(err, allowlist.ErrInvalidPage):
		writeError(w, http.StatusBadRequest, "INVALID_PAGE", err.Error(), nil)
	case errors.As(err, &perr):
		writeError(w, http.StatusBadRequest, "PARSE_ERROR", err.Error(), map[string]any{
			"file_name": perr.FileName,
			"line":      perr.Line,
		})
	case errors.Is(err, ingest.ErrNoUploads), errors.Is(err, ingest.ErrDuplicateUpload):
		writeError(w, http.StatusBadRequest, "BAD_UPLOAD", err.Error(), nil)
	default:
		s.logger.Error("request failed",
			"method", r.Method,
			"path", r.URL.Path,
			"error", err)
		writeError(w, http.StatusInternalServerError, "INTERNAL", err.Error(), nil)
	}
}
