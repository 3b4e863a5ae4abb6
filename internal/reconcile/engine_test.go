package reconcile

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/endorser/internal/classify"
	"github.com/roach88/endorser/internal/endorse"
	"github.com/roach88/endorser/internal/rules"
	"github.com/roach88/endorser/internal/store"
	"github.com/roach88/endorser/internal/testutil"
)

func didTx(id, did string) endorse.Transaction {
	return endorse.Transaction{
		ID:      id,
		Type:    endorse.TypeNym,
		State:   endorse.StateRequestReceived,
		Payload: map[string]any{"dest": did},
	}
}

func schemaTx(id, author, name, version string) endorse.Transaction {
	return endorse.Transaction{
		ID:        id,
		Type:      endorse.TypeSchema,
		State:     endorse.StateRequestReceived,
		AuthorDID: author,
		Payload:   map[string]any{"data": map[string]any{"name": name, "version": version}},
	}
}

func newTestEngine(ledger *testutil.FakeLedger, endorser *testutil.RecordingEndorser, open Opener) *Engine {
	var resolver classify.SchemaResolver
	if ledger != nil {
		resolver = ledger
	}
	return NewEngine(classify.NewClassifier(resolver, nil), endorser, open, nil)
}

func TestReconcile_NoPendingCommitsOnce(t *testing.T) {
	sess := newFakeSession()
	e := newTestEngine(nil, testutil.NewRecordingEndorser(), nil)

	report := e.Reconcile(context.Background(), sess)

	assert.Equal(t, 1, sess.commits)
	assert.True(t, report.Committed)
	assert.Zero(t, report.Pending)
	assert.Empty(t, report.Endorsed)
}

func TestReconcile_EndorsesOnlyMatches(t *testing.T) {
	sess := newFakeSession(
		didTx("tx-1", "did:example:123"),
		didTx("tx-2", "did:example:999"),
		schemaTx("tx-3", "did:a", "degree", "1.0"),
		endorse.Transaction{ID: "tx-4", Type: "unknown", State: endorse.StateRequestReceived},
	)
	sess.rules = []rules.Rule{
		rules.NewPublicDID("did:example:123", ""),
		rules.NewSchema("did:a", "*", "1.0", ""),
	}
	endorser := testutil.NewRecordingEndorser()
	e := newTestEngine(nil, endorser, nil)

	report := e.Reconcile(context.Background(), sess)

	assert.ElementsMatch(t, []string{"tx-1", "tx-3"}, endorser.Endorsed())
	assert.ElementsMatch(t, []string{"tx-1", "tx-3"}, report.Endorsed)
	assert.Equal(t, map[string]endorse.State{
		"tx-1": endorse.StateEndorsed,
		"tx-3": endorse.StateEndorsed,
	}, sess.states)
	assert.Equal(t, 2, report.Skipped)
	assert.Equal(t, 1, sess.commits)
}

func TestReconcile_WildcardRuleEndorsesAnyDID(t *testing.T) {
	sess := newFakeSession(didTx("tx-1", "did:example:123"))
	sess.rules = []rules.Rule{rules.NewPublicDID("*", "")}
	endorser := testutil.NewRecordingEndorser()

	newTestEngine(nil, endorser, nil).Reconcile(context.Background(), sess)

	assert.Equal(t, []string{"tx-1"}, endorser.Endorsed())
}

func TestReconcile_ReadFailureDoesNotCommit(t *testing.T) {
	sess := newFakeSession()
	sess.readErr = errBoom
	endorser := testutil.NewRecordingEndorser()

	report := newTestEngine(nil, endorser, nil).Reconcile(context.Background(), sess)

	assert.Zero(t, sess.commits)
	assert.False(t, report.Committed)
	assert.Empty(t, endorser.Endorsed())
}

func TestReconcile_EndorseFailureIsIsolated(t *testing.T) {
	sess := newFakeSession(
		didTx("tx-1", "did:x"),
		didTx("tx-2", "did:x"),
		didTx("tx-3", "did:x"),
	)
	sess.rules = []rules.Rule{rules.NewPublicDID("did:x", "")}
	endorser := testutil.NewRecordingEndorser().FailOn("tx-2", errBoom)

	report := newTestEngine(nil, endorser, nil).Reconcile(context.Background(), sess)

	assert.ElementsMatch(t, []string{"tx-1", "tx-3"}, report.Endorsed)
	assert.Equal(t, []string{"tx-2"}, report.Failed)
	_, marked := sess.states["tx-2"]
	assert.False(t, marked)
	assert.Equal(t, 1, sess.commits)
}

func TestReconcile_MatchFailureIsIsolated(t *testing.T) {
	sess := newFakeSession(
		schemaTx("tx-1", "did:a", "degree", "1.0"),
		didTx("tx-2", "did:x"),
	)
	sess.rules = []rules.Rule{rules.NewPublicDID("did:x", ""), rules.NewSchema("*", "*", "*", "")}
	sess.matchErr[string(rules.KindSchema)] = errBoom
	endorser := testutil.NewRecordingEndorser()

	report := newTestEngine(nil, endorser, nil).Reconcile(context.Background(), sess)

	assert.Equal(t, []string{"tx-2"}, endorser.Endorsed())
	assert.Equal(t, []string{"tx-1"}, report.Failed)
	assert.Equal(t, 1, sess.commits)
}

func TestReconcile_StateFailureIsIsolated(t *testing.T) {
	sess := newFakeSession(didTx("tx-1", "did:x"), didTx("tx-2", "did:x"))
	sess.rules = []rules.Rule{rules.NewPublicDID("did:x", "")}
	sess.stateErr["tx-1"] = errBoom

	report := newTestEngine(nil, testutil.NewRecordingEndorser(), nil).Reconcile(context.Background(), sess)

	assert.Equal(t, []string{"tx-1"}, report.Failed)
	assert.Equal(t, []string{"tx-2"}, report.Endorsed)
	assert.Equal(t, 1, sess.commits)
}

func TestReconcile_LedgerFailureIsNotEndorsable(t *testing.T) {
	tx := endorse.Transaction{
		ID:        "tx-1",
		Type:      endorse.TypeCredDef,
		State:     endorse.StateRequestReceived,
		AuthorDID: "did:a",
		Payload:   map[string]any{"ref": "7", "tag": "t"},
	}
	sess := newFakeSession(tx, didTx("tx-2", "did:x"))
	sess.rules = []rules.Rule{
		rules.NewCredDef("*", "*", "*", "*", "*", false, false, ""),
		rules.NewPublicDID("did:x", ""),
	}
	ledger := testutil.NewFakeLedger().FailOn("schemas/7", errBoom)
	endorser := testutil.NewRecordingEndorser()

	report := newTestEngine(ledger, endorser, nil).Reconcile(context.Background(), sess)

	assert.Equal(t, []string{"tx-2"}, endorser.Endorsed())
	assert.Empty(t, report.Failed)
	assert.Equal(t, 1, report.Skipped)
}

func TestOnRuleSetChanged_OpensAndRollsBack(t *testing.T) {
	sess := newFakeSession(didTx("tx-1", "did:x"))
	sess.rules = []rules.Rule{rules.NewPublicDID("did:x", "")}
	opens := 0
	open := func(context.Context) (TxSession, error) {
		opens++
		return sess, nil
	}

	report := newTestEngine(nil, testutil.NewRecordingEndorser(), open).OnRuleSetChanged(context.Background())

	assert.Equal(t, 1, opens)
	assert.Equal(t, 1, sess.commits)
	assert.Equal(t, 1, sess.rollbacks, "deferred rollback always runs; it is a no-op after commit")
	assert.Equal(t, []string{"tx-1"}, report.Endorsed)
}

func TestOnRuleSetChanged_OpenFailure(t *testing.T) {
	open := func(context.Context) (TxSession, error) { return nil, errBoom }

	report := newTestEngine(nil, testutil.NewRecordingEndorser(), open).OnRuleSetChanged(context.Background())
	assert.False(t, report.Committed)

	report = newTestEngine(nil, testutil.NewRecordingEndorser(), nil).OnRuleSetChanged(context.Background())
	assert.False(t, report.Committed)
}

func TestEvaluate_DoesNotEndorseOrCommit(t *testing.T) {
	sess := newFakeSession(
		didTx("tx-1", "did:x"),
		didTx("tx-2", "did:y"),
		endorse.Transaction{ID: "tx-3", Type: "999"},
	)
	sess.rules = []rules.Rule{rules.NewPublicDID("did:x", "")}
	endorser := testutil.NewRecordingEndorser()

	decisions, err := newTestEngine(nil, endorser, nil).Evaluate(context.Background(), sess)
	require.NoError(t, err)

	require.Len(t, decisions, 3)
	assert.True(t, decisions[0].Matched)
	assert.Equal(t, rules.KindPublicDID, decisions[0].Kind)
	assert.False(t, decisions[1].Matched)
	assert.Equal(t, "no matching rule", decisions[1].Reason)
	assert.False(t, decisions[2].Endorsable)
	assert.Empty(t, endorser.Endorsed())
	assert.Zero(t, sess.commits)
	assert.Empty(t, sess.states)
}

func TestEvaluate_ReadFailure(t *testing.T) {
	sess := newFakeSession()
	sess.readErr = errBoom

	_, err := newTestEngine(nil, testutil.NewRecordingEndorser(), nil).Evaluate(context.Background(), sess)
	require.ErrorIs(t, err, errBoom)
}

func TestReconcile_AgainstStore(t *testing.T) {
	ctx := context.Background()
	st, err := store.Open(":memory:")
	require.NoError(t, err)
	defer st.Close()

	sess, err := st.Begin(ctx)
	require.NoError(t, err)
	require.NoError(t, sess.PutTransaction(ctx, didTx("tx-1", "did:example:123")))
	require.NoError(t, sess.PutTransaction(ctx, didTx("tx-2", "did:example:456")))
	require.NoError(t, sess.InsertRule(ctx, rules.NewPublicDID("did:example:123", "")))
	require.NoError(t, sess.Commit())

	endorser := testutil.NewRecordingEndorser()
	report := newTestEngine(nil, endorser, StoreOpener(st)).OnRuleSetChanged(ctx)
	assert.True(t, report.Committed)
	assert.Equal(t, []string{"tx-1"}, endorser.Endorsed())

	sess, err = st.Begin(ctx)
	require.NoError(t, err)
	defer sess.Rollback()
	pending, err := sess.PendingTransactions(ctx)
	require.NoError(t, err)
	require.Len(t, pending, 1)
	assert.Equal(t, "tx-2", pending[0].ID)
}
