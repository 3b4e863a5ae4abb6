package allowlist

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/endorser/internal/classify"
	"github.com/roach88/endorser/internal/endorse"
	"github.com/roach88/endorser/internal/reconcile"
	"github.com/roach88/endorser/internal/rules"
	"github.com/roach88/endorser/internal/store"
	"github.com/roach88/endorser/internal/testutil"
)

type countingReconciler struct{ calls int }

func (c *countingReconciler) OnRuleSetChanged(context.Context) reconcile.Report {
	c.calls++
	return reconcile.Report{}
}

func newTestService(t *testing.T, rec Reconciler) (*Service, *store.Store) {
	t.Helper()
	s, err := store.Open(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return NewService(s, rec, nil), s
}

func TestAdd_TriggersReconcileOnce(t *testing.T) {
	rec := &countingReconciler{}
	svc, _ := newTestService(t, rec)

	r, err := svc.Add(context.Background(), rules.NewPublicDID("did:example:123", ""))
	require.NoError(t, err)
	assert.Equal(t, rules.NewPublicDID("did:example:123", "").ID, r.RuleID())
	assert.Equal(t, 1, rec.calls)
}

func TestAdd_DuplicateIsConflictWithoutReconcile(t *testing.T) {
	rec := &countingReconciler{}
	svc, _ := newTestService(t, rec)
	ctx := context.Background()

	_, err := svc.Add(ctx, rules.NewSchema("did:a", "degree", "1.0", ""))
	require.NoError(t, err)

	_, err = svc.Add(ctx, rules.NewSchema("did:a", "degree", "1.0", "other details"))
	require.ErrorIs(t, err, store.ErrDuplicateRule)
	assert.Equal(t, 1, rec.calls)
}

func TestDelete(t *testing.T) {
	rec := &countingReconciler{}
	svc, _ := newTestService(t, rec)
	ctx := context.Background()

	r, err := svc.Add(ctx, rules.NewPublicDID("did:x", ""))
	require.NoError(t, err)

	deleted, err := svc.Delete(ctx, rules.KindPublicDID, r.RuleID())
	require.NoError(t, err)
	assert.True(t, deleted)

	deleted, err = svc.Delete(ctx, rules.KindPublicDID, uuid.New())
	require.NoError(t, err)
	assert.False(t, deleted)

	assert.Equal(t, 3, rec.calls)
}

func TestList_Paging(t *testing.T) {
	svc, _ := newTestService(t, nil)
	ctx := context.Background()

	for _, v := range []string{"1", "2", "3"} {
		_, err := svc.Add(ctx, rules.NewSchema("did:a", "degree", v, ""))
		require.NoError(t, err)
	}

	got, err := svc.List(ctx, rules.KindSchema, rules.Filter{}, PageRequest{Num: 2, Size: 2})
	require.NoError(t, err)
	assert.Equal(t, 3, got.TotalCount)
	assert.Equal(t, 1, got.Count)
	assert.Len(t, got.Rules, 1)
}

func TestList_InvalidPage(t *testing.T) {
	svc, _ := newTestService(t, nil)

	for _, p := range []PageRequest{{Num: 0, Size: 10}, {Num: 1, Size: 0}, {Num: 1, Size: MaxPageSize + 1}} {
		_, err := svc.List(context.Background(), rules.KindSchema, rules.Filter{}, p)
		assert.ErrorIs(t, err, ErrInvalidPage, "%+v", p)
	}
}

func TestAdd_EndorsesPendingRequest(t *testing.T) {
	ctx := context.Background()
	s, err := store.Open(":memory:")
	require.NoError(t, err)
	defer s.Close()

	sess, err := s.Begin(ctx)
	require.NoError(t, err)
	require.NoError(t, sess.PutTransaction(ctx, endorse.Transaction{
		ID:      "tx-1",
		Type:    endorse.TypeNym,
		State:   endorse.StateRequestReceived,
		Payload: map[string]any{"dest": "did:example:123"},
	}))
	require.NoError(t, sess.Commit())

	endorser := testutil.NewRecordingEndorser()
	engine := reconcile.NewEngine(classify.NewClassifier(nil, nil), endorser, reconcile.StoreOpener(s), nil)
	svc := NewService(s, engine, nil)

	_, err = svc.Add(ctx, rules.NewPublicDID("*", ""))
	require.NoError(t, err)

	assert.Equal(t, []string{"tx-1"}, endorser.Endorsed())
}
