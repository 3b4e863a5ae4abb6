package ingest

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const (
	resultCommitted  = "committed"
	resultRolledBack = "rolled_back"
	resultRejected   = "rejected"
)

var (
	// batchesTotal counts bulk uploads.
	// Labels: mode (replace, append), result (committed, rolled_back, rejected)
	batchesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "endorser",
		Subsystem: "ingest",
		Name:      "batches_total",
		Help:      "Bulk allow-list uploads by mode and result",
	}, []string{"mode", "result"})

	// rulesInserted counts rules added by bulk uploads.
	// Labels: kind
	rulesInserted = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "endorser",
		Subsystem: "ingest",
		Name:      "rules_inserted_total",
		Help:      "Rules inserted by bulk uploads",
	}, []string{"kind"})
)
