package api

import (
	"fmt"
	"net/http"

	"github.com/roach88/endorser/internal/ingest"
	"github.com/roach88/endorser/internal/rules"
)

// handleUpload applies a multipart batch. Each form field is named after
// the rule kind its file fills.
func (s *Server) handleUpload(mode ingest.Mode) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := r.ParseMultipartForm(maxUploadMemory); err != nil {
			writeError(w, http.StatusBadRequest, "BAD_FORM", err.Error(), nil)
			return
		}
		defer r.MultipartForm.RemoveAll()

		var uploads []ingest.Upload
		for _, kind := range rules.Kinds {
			for _, fh := range r.MultipartForm.File[string(kind)] {
				f, err := fh.Open()
				if err != nil {
					writeError(w, http.StatusBadRequest, "BAD_FORM", fmt.Sprintf("open %s: %v", fh.Filename, err), nil)
					return
				}
				defer f.Close()
				uploads = append(uploads, ingest.Upload{Kind: kind, FileName: fh.Filename, Body: f})
			}
		}

		summaries, err := s.ingestor.Ingest(r.Context(), uploads, mode)
		if err != nil {
			s.writeServiceError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{
			"request_id": newRequestID(),
			"mode":       mode.String(),
			"summaries":  summaries,
		})
	}
}
