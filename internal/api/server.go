package api

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/roach88/endorser/internal/allowlist"
	"github.com/roach88/endorser/internal/ingest"
	"github.com/roach88/endorser/internal/reconcile"
	"github.com/roach88/endorser/internal/store"
)

// maxUploadMemory bounds the in-memory part of a multipart upload; larger
// files spill to temporary files.
const maxUploadMemory = 32 << 20

// Server holds the handlers' collaborators.
type Server struct {
	store    *store.Store
	allow    *allowlist.Service
	ingestor *ingest.Ingestor
	engine   *reconcile.Engine
	logger   *slog.Logger
}

// NewServer wires the allow-list service and the bulk ingestor to st, with
// engine as their reconciliation hook.
func NewServer(st *store.Store, engine *reconcile.Engine, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	return &Server{
		store:    st,
		allow:    allowlist.NewService(st, engine, logger),
		ingestor: ingest.NewIngestor(ingest.StoreOpener(st), engine, logger),
		engine:   engine,
		logger:   logger,
	}
}

// Routes returns the HTTP handler.
func (s *Server) Routes() http.Handler {
	r := chi.NewRouter()
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]any{"status": "ok"})
	})
	r.Handle("/metrics", promhttp.Handler())

	r.Route("/allow", func(api chi.Router) {
		api.Post("/config", s.handleUpload(ingest.Replace))
		api.Put("/config", s.handleUpload(ingest.Append))

		api.Get("/log-entry/check", s.handleLogEntryCheck)
		api.Post("/log-entry/witness", s.handleWitness)

		api.Post("/publish-did/{did}", s.handleAddPublicDID)
		api.Delete("/publish-did/{did}", s.handleDeletePublicDID)

		api.Get("/{kind}", s.handleList)
		api.Post("/{kind}", s.handleAdd)
		api.Delete("/{kind}", s.handleDelete)
	})

	r.Post("/reconcile", s.handleReconcile)
	r.Get("/reconcile/preview", s.handlePreview)

	r.Post("/transactions", s.handlePutTransaction)
	r.Get("/transactions/{id}", s.handleGetTransaction)
	return r
}
