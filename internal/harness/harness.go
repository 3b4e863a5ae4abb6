package harness

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/roach88/endorser/internal/allowlist"
	"github.com/roach88/endorser/internal/classify"
	"github.com/roach88/endorser/internal/endorse"
	"github.com/roach88/endorser/internal/ingest"
	"github.com/roach88/endorser/internal/reconcile"
	"github.com/roach88/endorser/internal/rules"
	"github.com/roach88/endorser/internal/store"
	"github.com/roach88/endorser/internal/testutil"
)

// errEndorseRejected is returned for requests listed in fail_endorse.
var errEndorseRejected = errors.New("endorsement rejected by ledger")

// Harness is the scenario execution environment.
type Harness struct {
	store    *store.Store
	allow    *allowlist.Service
	ingestor *ingest.Ingestor
	engine   *reconcile.Engine
	result   *Result
	txIDs    []string
}

// Run executes a scenario and returns the result.
//
// Each scenario runs in a fresh in-memory database for isolation.
//
// Execution flow:
// 1. Create fresh in-memory database and fake ledger
// 2. Seed rules and pending requests
// 3. Execute flow steps with expect validation
// 4. Capture final state and evaluate assertions
func Run(scenario *Scenario) (*Result, error) {
	st, err := store.Open(":memory:")
	if err != nil {
		return nil, fmt.Errorf("failed to create in-memory store: %w", err)
	}
	defer st.Close()

	logger := slog.New(slog.NewTextHandler(io.Discard, nil)) // Suppress logs in scenarios
	result := NewResult()

	ledger := testutil.NewFakeLedger()
	for ref, id := range scenario.Ledger.Schemas {
		ledger.WithSchema(ref, id)
	}
	recorder := testutil.NewRecordingEndorser()
	for _, id := range scenario.FailEndorse {
		recorder.FailOn(id, errEndorseRejected)
	}
	endorser := &tracingEndorser{inner: recorder, result: result}

	engine := reconcile.NewEngine(classify.NewClassifier(ledger, logger), endorser, reconcile.StoreOpener(st), logger)
	h := &Harness{
		store:    st,
		allow:    allowlist.NewService(st, engine, logger),
		ingestor: ingest.NewIngestor(ingest.StoreOpener(st), engine, logger),
		engine:   engine,
		result:   result,
	}

	ctx := context.Background()
	if err := h.seed(ctx, scenario); err != nil {
		return nil, fmt.Errorf("seed failed: %w", err)
	}

	for i, step := range scenario.Flow {
		h.executeStep(ctx, i, step)
	}

	if err := h.captureFinal(ctx); err != nil {
		return nil, fmt.Errorf("capture final state: %w", err)
	}
	for _, msg := range EvaluateAssertions(ctx, result, scenario.Assertions, st) {
		result.AddError(msg)
	}
	return result, nil
}

// seed stores the scenario's rules and pending requests in one session
// without running a pass.
func (h *Harness) seed(ctx context.Context, scenario *Scenario) error {
	sess, err := h.store.Begin(ctx)
	if err != nil {
		return err
	}
	defer sess.Rollback()

	for i, spec := range scenario.Rules {
		r, err := spec.Build()
		if err != nil {
			return fmt.Errorf("rules[%d]: %w", i, err)
		}
		if err := sess.InsertRule(ctx, r); err != nil {
			return fmt.Errorf("rules[%d]: %w", i, err)
		}
	}
	for _, tx := range scenario.Pending {
		if err := h.putTransaction(ctx, sess, tx); err != nil {
			return err
		}
	}
	return sess.Commit()
}

func (h *Harness) putTransaction(ctx context.Context, sess *store.Session, tx endorse.Transaction) error {
	if tx.State == "" {
		tx.State = endorse.StateRequestReceived
	}
	if err := sess.PutTransaction(ctx, tx); err != nil {
		return fmt.Errorf("transaction %s: %w", tx.ID, err)
	}
	h.txIDs = append(h.txIDs, tx.ID)
	return nil
}

// executeStep traces the step before running it so endorsements made by
// the step's pass follow it in the trace.
func (h *Harness) executeStep(ctx context.Context, index int, step FlowStep) {
	ev := TraceEvent{}
	switch {
	case step.Add != nil:
		ev.Type, ev.Kind = "add", kindName(step.Add.Kind)
	case step.Delete != nil:
		ev.Type, ev.Kind = "delete", kindName(step.Delete.Kind)
	case step.Import != nil:
		ev.Type = "import"
	case step.Record != nil:
		ev.Type, ev.TransactionID = "record", step.Record.ID
	default:
		ev.Type = "reconcile"
	}
	h.result.addEvent(ev)
	pos := len(h.result.Trace) - 1

	out, err := h.perform(ctx, step)
	got := caseOf(err)
	h.result.Trace[pos].Case = got

	want := CaseOK
	if step.Expect != nil {
		want = step.Expect.Case
	}
	if got != want {
		h.result.AddError(fmt.Sprintf("flow[%d] %s: expected case %q, got %q (error: %v)", index, ev.Type, want, got, err))
		return
	}
	if step.Expect != nil && step.Expect.Result != nil {
		if err := matchResult(out, step.Expect.Result); err != nil {
			h.result.AddError(fmt.Sprintf("flow[%d] %s: %v", index, ev.Type, err))
		}
	}
}

func (h *Harness) perform(ctx context.Context, step FlowStep) (any, error) {
	switch {
	case step.Add != nil:
		r, err := step.Add.Build()
		if err != nil {
			return nil, err
		}
		return h.allow.Add(ctx, r)

	case step.Delete != nil:
		r, err := step.Delete.Build()
		if err != nil {
			return nil, err
		}
		deleted, err := h.allow.Delete(ctx, r.Kind(), r.RuleID())
		return map[string]any{"deleted": deleted}, err

	case step.Import != nil:
		mode := ingest.Replace
		if step.Import.Mode != "" {
			m, err := ingest.ParseMode(step.Import.Mode)
			if err != nil {
				return nil, err
			}
			mode = m
		}
		var uploads []ingest.Upload
		for name, content := range step.Import.Files {
			kind, err := rules.ParseKind(name)
			if err != nil {
				return nil, err
			}
			uploads = append(uploads, ingest.Upload{
				Kind:     kind,
				FileName: kind.Slug() + ".csv",
				Body:     strings.NewReader(content),
			})
		}
		return h.ingestor.Ingest(ctx, uploads, mode)

	case step.Record != nil:
		sess, err := h.store.Begin(ctx)
		if err != nil {
			return nil, err
		}
		defer sess.Rollback()
		if err := h.putTransaction(ctx, sess, *step.Record); err != nil {
			return nil, err
		}
		if err := sess.Commit(); err != nil {
			return nil, err
		}
		return h.engine.OnRuleSetChanged(ctx), nil

	default:
		return h.engine.OnRuleSetChanged(ctx), nil
	}
}

// captureFinal records every known request's state and every table's size.
func (h *Harness) captureFinal(ctx context.Context) error {
	sess, err := h.store.Begin(ctx)
	if err != nil {
		return err
	}
	defer sess.Rollback()

	for _, id := range h.txIDs {
		tx, err := sess.GetTransaction(ctx, id)
		if err != nil {
			return err
		}
		h.result.Final.Transactions[id] = string(tx.State)
	}
	for _, kind := range rules.Kinds {
		total, _, err := sess.ListRules(ctx, kind, rules.Filter{}, store.Page{Num: 1, Size: 1})
		if err != nil {
			return err
		}
		h.result.Final.Rules[string(kind)] = total
	}
	return nil
}

// caseOf maps a step error onto its outcome case.
func caseOf(err error) string {
	var perr *ingest.ParseError
	switch {
	case err == nil:
		return CaseOK
	case errors.Is(err, store.ErrDuplicateRule):
		return CaseDuplicate
	case errors.As(err, &perr),
		errors.Is(err, ingest.ErrNoUploads),
		errors.Is(err, ingest.ErrDuplicateUpload):
		return CaseInvalid
	default:
		return CaseError
	}
}

func kindName(s string) string {
	if kind, err := rules.ParseKind(s); err == nil {
		return string(kind)
	}
	return s
}

// tracingEndorser adds an endorse event for every endorsement attempt.
type tracingEndorser struct {
	inner  endorse.Endorser
	result *Result
}

func (e *tracingEndorser) Endorse(ctx context.Context, tx endorse.Transaction) error {
	err := e.inner.Endorse(ctx, tx)
	ev := TraceEvent{Type: EventEndorse, TransactionID: tx.ID, Case: CaseOK}
	if err != nil {
		ev.Case = CaseFailed
	}
	e.result.addEvent(ev)
	return err
}
