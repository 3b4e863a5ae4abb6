package reconcile

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const (
	resultCommitted    = "committed"
	resultCommitFailed = "commit_failed"
	resultReadFailed   = "read_failed"

	stageMatch   = "match"
	stageEndorse = "endorse"
	stageState   = "state"
)

var (
	// passesTotal counts reconciliation passes.
	// Labels: result (committed, commit_failed, read_failed)
	passesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "endorser",
		Subsystem: "reconcile",
		Name:      "passes_total",
		Help:      "Reconciliation passes by result",
	}, []string{"result"})

	// endorsementsTotal counts requests endorsed by reconciliation.
	// Labels: kind (rule kind that matched)
	endorsementsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "endorser",
		Subsystem: "reconcile",
		Name:      "endorsements_total",
		Help:      "Requests auto-endorsed by rule kind",
	}, []string{"kind"})

	// transactionFailures counts requests skipped because of an error.
	// Labels: stage (match, endorse, state)
	transactionFailures = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "endorser",
		Subsystem: "reconcile",
		Name:      "transaction_failures_total",
		Help:      "Requests skipped during a pass by failing stage",
	}, []string{"stage"})
)
