package api

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/roach88/endorser/internal/allowlist"
	"github.com/roach88/endorser/internal/rules"
)

// didAlias is accepted in place of registered_did on the publish-did routes.
const didAlias = "did"

func kindParam(w http.ResponseWriter, r *http.Request) (rules.Kind, bool) {
	kind, err := rules.ParseKind(chi.URLParam(r, "kind"))
	if err != nil {
		writeError(w, http.StatusNotFound, "UNKNOWN_KIND", err.Error(), nil)
		return "", false
	}
	return kind, true
}

func (s *Server) handleList(w http.ResponseWriter, r *http.Request) {
	kind, ok := kindParam(w, r)
	if !ok {
		return
	}
	page, err := pageParams(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "INVALID_PAGE", err.Error(), nil)
		return
	}
	filter, err := filterParams(kind, r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "BAD_FILTER", err.Error(), nil)
		return
	}

	listing, err := s.allow.List(r.Context(), kind, filter, page)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"request_id": newRequestID(), "results": listing})
}

func (s *Server) handleAdd(w http.ResponseWriter, r *http.Request) {
	kind, ok := kindParam(w, r)
	if !ok {
		return
	}
	var body map[string]any
	if err := readJSON(r, &body); err != nil {
		writeError(w, http.StatusBadRequest, "BAD_JSON", err.Error(), nil)
		return
	}
	values, err := ruleValues(kind, body)
	if err != nil {
		writeError(w, http.StatusBadRequest, "BAD_RULE", err.Error(), nil)
		return
	}
	rule, err := rules.BuildSingle(kind, values)
	if err != nil {
		writeError(w, http.StatusBadRequest, "BAD_RULE", err.Error(), nil)
		return
	}
	s.add(w, r, rule)
}

func (s *Server) handleAddPublicDID(w http.ResponseWriter, r *http.Request) {
	rule := rules.NewPublicDID(chi.URLParam(r, "did"), r.URL.Query().Get(rules.ColDetails))
	s.add(w, r, rule)
}

func (s *Server) add(w http.ResponseWriter, r *http.Request, rule rules.Rule) {
	added, err := s.allow.Add(r.Context(), rule)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]any{"request_id": newRequestID(), "rule": added})
}

func (s *Server) handleDelete(w http.ResponseWriter, r *http.Request) {
	kind, ok := kindParam(w, r)
	if !ok {
		return
	}
	raw := r.URL.Query().Get("id")
	if raw == "" {
		writeError(w, http.StatusBadRequest, "MISSING_ID", "id query parameter is required", nil)
		return
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		writeError(w, http.StatusBadRequest, "BAD_ID", err.Error(), nil)
		return
	}
	s.delete(w, r, kind, id)
}

func (s *Server) handleDeletePublicDID(w http.ResponseWriter, r *http.Request) {
	s.delete(w, r, rules.KindPublicDID, rules.NewPublicDID(chi.URLParam(r, "did"), "").ID)
}

func (s *Server) delete(w http.ResponseWriter, r *http.Request, kind rules.Kind, id uuid.UUID) {
	deleted, err := s.allow.Delete(r.Context(), kind, id)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"request_id": newRequestID(),
		"id":         id,
		"deleted":    deleted,
	})
}

// pageParams reads page_num and page_size, defaulting each when absent.
func pageParams(r *http.Request) (allowlist.PageRequest, error) {
	page := allowlist.PageRequest{Num: allowlist.DefaultPageNum, Size: allowlist.DefaultPageSize}
	q := r.URL.Query()
	if v := q.Get("page_num"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return page, fmt.Errorf("page_num: %w", err)
		}
		page.Num = n
	}
	if v := q.Get("page_size"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return page, fmt.Errorf("page_size: %w", err)
		}
		page.Size = n
	}
	return page, page.Validate()
}

// filterParams turns query parameters into a rule filter. Boolean columns
// take strconv.ParseBool syntax.
func filterParams(kind rules.Kind, r *http.Request) (rules.Filter, error) {
	filter := rules.Filter{Fields: map[string]string{}, Flags: map[string]bool{}}
	for key, vals := range r.URL.Query() {
		v := vals[0]
		switch {
		case key == "page_num" || key == "page_size":
		case key == "id":
			id, err := uuid.Parse(v)
			if err != nil {
				return filter, fmt.Errorf("id: %w", err)
			}
			filter.ID = id
		case key == didAlias && kind == rules.KindPublicDID:
			filter.Fields[rules.ColRegisteredDID] = v
		case kind.IsFlag(key):
			b, err := strconv.ParseBool(v)
			if err != nil {
				return filter, fmt.Errorf("%s: want a boolean, got %q", key, v)
			}
			filter.Flags[key] = b
		case kind.HasColumn(key):
			filter.Fields[key] = v
		default:
			return filter, fmt.Errorf("%s has no column %q", kind, key)
		}
	}
	return filter, nil
}

// ruleValues converts a JSON rule body into bulk-input cell values. Text
// columns take strings; flag columns take a boolean or a flag string.
func ruleValues(kind rules.Kind, body map[string]any) (map[string]string, error) {
	values := make(map[string]string, len(body))
	for key, raw := range body {
		col := key
		if key == didAlias && kind == rules.KindPublicDID {
			col = rules.ColRegisteredDID
		}
		if !kind.HasColumn(col) {
			return nil, fmt.Errorf("%s has no column %q", kind, key)
		}
		switch v := raw.(type) {
		case string:
			values[col] = v
		case json.Number:
			if kind.IsFlag(col) {
				return nil, fmt.Errorf("%s: want a boolean", key)
			}
			values[col] = v.String()
		case bool:
			if !kind.IsFlag(col) {
				return nil, fmt.Errorf("%s: want a string", key)
			}
			values[col] = "False"
			if v {
				values[col] = "True"
			}
		case nil:
		default:
			return nil, fmt.Errorf("%s: unsupported value %T", key, raw)
		}
	}
	return values, nil
}
