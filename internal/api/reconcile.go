package api

import (
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/roach88/endorser/internal/classify"
	"github.com/roach88/endorser/internal/endorse"
	"github.com/roach88/endorser/internal/rules"
)

func (s *Server) handleReconcile(w http.ResponseWriter, r *http.Request) {
	report := s.engine.OnRuleSetChanged(r.Context())
	writeJSON(w, http.StatusOK, map[string]any{"request_id": newRequestID(), "report": report})
}

// handlePreview reports what a pass would do. Its session is always rolled
// back.
func (s *Server) handlePreview(w http.ResponseWriter, r *http.Request) {
	sess, err := s.store.Begin(r.Context())
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	defer sess.Rollback()

	decisions, err := s.engine.Evaluate(r.Context(), sess)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"request_id": newRequestID(), "decisions": decisions})
}

// handlePutTransaction records an endorsement request. A pending request
// triggers a pass so it is endorsed immediately if already allowed; one
// recorded in a terminal state is stored without a pass.
func (s *Server) handlePutTransaction(w http.ResponseWriter, r *http.Request) {
	var tx endorse.Transaction
	if err := readJSON(r, &tx); err != nil {
		writeError(w, http.StatusBadRequest, "BAD_JSON", err.Error(), nil)
		return
	}
	if tx.ID == "" {
		writeError(w, http.StatusBadRequest, "MISSING_ID", "transaction_id is required", nil)
		return
	}
	if tx.State == "" {
		tx.State = endorse.StateRequestReceived
	}
	if !tx.State.Known() {
		writeError(w, http.StatusBadRequest, "BAD_STATE", fmt.Sprintf("unknown state %q", tx.State), nil)
		return
	}

	sess, err := s.store.Begin(r.Context())
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	defer sess.Rollback()
	if err := sess.PutTransaction(r.Context(), tx); err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	if err := sess.Commit(); err != nil {
		s.writeServiceError(w, r, err)
		return
	}

	resp := map[string]any{"request_id": newRequestID(), "pending": tx.Pending()}
	if tx.Pending() {
		resp["report"] = s.engine.OnRuleSetChanged(r.Context())
	}
	writeJSON(w, http.StatusAccepted, resp)
}

func (s *Server) handleGetTransaction(w http.ResponseWriter, r *http.Request) {
	sess, err := s.store.Begin(r.Context())
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	defer sess.Rollback()

	tx, err := sess.GetTransaction(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"request_id": newRequestID(), "transaction": tx})
}

// handleLogEntryCheck answers whether a did:webvh log entry may be witnessed.
func (s *Server) handleLogEntryCheck(w http.ResponseWriter, r *http.Request) {
	did := r.URL.Query().Get("did")
	c, err := classify.LogEntryCriteria(did)
	if err != nil {
		writeError(w, http.StatusBadRequest, "BAD_DID", err.Error(), nil)
		return
	}
	s.writeLogEntryMatch(w, r, c)
}

type witnessRequest struct {
	RecordType string         `json:"record_type"`
	Record     map[string]any `json:"record"`
}

// handleWitness answers whether a witnessing request for a log entry or an
// attested resource is covered by a log-entry rule.
func (s *Server) handleWitness(w http.ResponseWriter, r *http.Request) {
	var req witnessRequest
	if err := readJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "BAD_JSON", err.Error(), nil)
		return
	}
	c, err := classify.WitnessCriteria(req.RecordType, req.Record)
	if err != nil {
		writeError(w, http.StatusBadRequest, "BAD_RECORD", err.Error(), nil)
		return
	}
	s.writeLogEntryMatch(w, r, c)
}

func (s *Server) writeLogEntryMatch(w http.ResponseWriter, r *http.Request, c rules.LogEntryCriteria) {
	sess, err := s.store.Begin(r.Context())
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	defer sess.Rollback()

	allowed, err := sess.MatchRule(r.Context(), c)
	if err != nil {
		s.writeServiceError(w, r, fmt.Errorf("match log entry: %w", err))
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"request_id": newRequestID(),
		"scid":       c.SCID,
		"domain":     c.Domain,
		"namespace":  c.Namespace,
		"identifier": c.Identifier,
		"allowed":    allowed,
	})
}
