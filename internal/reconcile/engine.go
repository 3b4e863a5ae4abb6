package reconcile

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/roach88/endorser/internal/classify"
	"github.com/roach88/endorser/internal/endorse"
	"github.com/roach88/endorser/internal/rules"
	"github.com/roach88/endorser/internal/store"
)

// Session is the slice of a store session a pass needs.
type Session interface {
	PendingTransactions(ctx context.Context) ([]endorse.Transaction, error)
	MatchRule(ctx context.Context, c rules.Criteria) (bool, error)
	SetTransactionState(ctx context.Context, id string, state endorse.State) error
	Commit() error
}

// TxSession is a Session that can also be abandoned.
type TxSession interface {
	Session
	Rollback() error
}

// Opener starts a new session.
type Opener func(ctx context.Context) (TxSession, error)

// StoreOpener opens sessions on a SQLite store.
func StoreOpener(s *store.Store) Opener {
	return func(ctx context.Context) (TxSession, error) {
		sess, err := s.Begin(ctx)
		if err != nil {
			return nil, err
		}
		return sess, nil
	}
}

// Classifier maps a request to its criteria.
type Classifier interface {
	Classify(ctx context.Context, tx endorse.Transaction) classify.Outcome
}

// Report summarizes one pass.
type Report struct {
	Pending   int      `json:"pending"`
	Endorsed  []string `json:"endorsed"`
	Failed    []string `json:"failed"`
	Skipped   int      `json:"skipped"`
	Committed bool     `json:"committed"`
}

// Decision is the dry-run verdict for one request.
type Decision struct {
	TransactionID string     `json:"transaction_id"`
	Kind          rules.Kind `json:"kind,omitempty"`
	Endorsable    bool       `json:"endorsable"`
	Matched       bool       `json:"matched"`
	Reason        string     `json:"reason,omitempty"`
}

// Engine runs reconciliation passes.
type Engine struct {
	classifier Classifier
	endorser   endorse.Endorser
	open       Opener
	logger     *slog.Logger
}

// NewEngine creates an engine. open is only used by OnRuleSetChanged.
func NewEngine(classifier Classifier, endorser endorse.Endorser, open Opener, logger *slog.Logger) *Engine {
	if logger == nil {
		logger = slog.Default()
	}
	return &Engine{
		classifier: classifier,
		endorser:   endorser,
		open:       open,
		logger:     logger,
	}
}

// OnRuleSetChanged runs one pass in a fresh session. It never fails; a
// session that could not be opened is logged like a failed read.
func (e *Engine) OnRuleSetChanged(ctx context.Context) Report {
	if e.open == nil {
		e.logger.Error("reconcile skipped: no session opener")
		passesTotal.WithLabelValues(resultReadFailed).Inc()
		return Report{}
	}
	sess, err := e.open(ctx)
	if err != nil {
		e.logger.Error("reconcile skipped: open session", "error", err)
		passesTotal.WithLabelValues(resultReadFailed).Inc()
		return Report{}
	}
	defer sess.Rollback()

	return e.Reconcile(ctx, sess)
}

// Reconcile runs one pass inside sess and commits it once.
func (e *Engine) Reconcile(ctx context.Context, sess Session) Report {
	pending, err := sess.PendingTransactions(ctx)
	if err != nil {
		e.logger.Error("reconcile aborted: read pending transactions", "error", err)
		passesTotal.WithLabelValues(resultReadFailed).Inc()
		return Report{}
	}

	report := Report{Pending: len(pending), Endorsed: []string{}, Failed: []string{}}
	for _, tx := range pending {
		endorsed, err := e.process(ctx, sess, tx)
		switch {
		case err != nil:
			e.logger.Warn("reconcile: transaction skipped",
				"transaction_id", tx.ID,
				"error", err)
			report.Failed = append(report.Failed, tx.ID)
		case endorsed:
			report.Endorsed = append(report.Endorsed, tx.ID)
		default:
			report.Skipped++
		}
	}

	if err := sess.Commit(); err != nil {
		e.logger.Error("reconcile: commit failed", "error", err)
		passesTotal.WithLabelValues(resultCommitFailed).Inc()
		return report
	}
	report.Committed = true
	passesTotal.WithLabelValues(resultCommitted).Inc()

	e.logger.Info("reconcile pass complete",
		"pending", report.Pending,
		"endorsed", len(report.Endorsed),
		"failed", len(report.Failed))
	return report
}

// process handles one request. It reports whether the request was endorsed.
func (e *Engine) process(ctx context.Context, sess Session, tx endorse.Transaction) (bool, error) {
	d, err := e.decide(ctx, sess, tx)
	if err != nil {
		transactionFailures.WithLabelValues(stageMatch).Inc()
		return false, err
	}
	if !d.Matched {
		e.logger.Debug("reconcile: not endorsed",
			"transaction_id", tx.ID,
			"kind", d.Kind,
			"reason", d.Reason)
		return false, nil
	}

	if err := e.endorser.Endorse(ctx, tx); err != nil {
		transactionFailures.WithLabelValues(stageEndorse).Inc()
		return false, fmt.Errorf("endorse: %w", err)
	}
	if err := sess.SetTransactionState(ctx, tx.ID, endorse.StateEndorsed); err != nil {
		transactionFailures.WithLabelValues(stageState).Inc()
		return false, fmt.Errorf("mark endorsed: %w", err)
	}
	endorsementsTotal.WithLabelValues(string(d.Kind)).Inc()
	e.logger.Info("reconcile: endorsed", "transaction_id", tx.ID, "kind", d.Kind)
	return true, nil
}

// decide classifies tx and matches it, without side effects.
func (e *Engine) decide(ctx context.Context, sess Session, tx endorse.Transaction) (Decision, error) {
	d := Decision{TransactionID: tx.ID}
	switch out := e.classifier.Classify(ctx, tx).(type) {
	case classify.Endorsable:
		d.Endorsable = true
		d.Kind = out.Criteria.Kind()
		matched, err := sess.MatchRule(ctx, out.Criteria)
		if err != nil {
			return d, fmt.Errorf("match %s: %w", d.Kind, err)
		}
		d.Matched = matched
		if !matched {
			d.Reason = "no matching rule"
		}
	case classify.NotEndorsable:
		d.Reason = out.Reason
	default:
		return d, fmt.Errorf("unexpected classification %T", out)
	}
	return d, nil
}

// Evaluate reports what a pass would do without endorsing or writing.
// Unlike Reconcile it returns the read error, and a per-request match
// failure is recorded in that request's Reason.
func (e *Engine) Evaluate(ctx context.Context, sess Session) ([]Decision, error) {
	pending, err := sess.PendingTransactions(ctx)
	if err != nil {
		return nil, fmt.Errorf("evaluate: %w", err)
	}
	decisions := make([]Decision, 0, len(pending))
	for _, tx := range pending {
		d, err := e.decide(ctx, sess, tx)
		if err != nil {
			d.Matched = false
			d.Reason = err.Error()
		}
		decisions = append(decisions, d)
	}
	return decisions, nil
}
