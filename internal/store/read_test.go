package store

import (
	"context"
	"encoding/json"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/endorser/internal/endorse"
	"github.com/roach88/endorser/internal/rules"
)

func seedSchemas(t *testing.T, sess *Session) {
	t.Helper()
	ctx := context.Background()
	for _, r := range []rules.Rule{
		rules.NewSchema("did:a", "degree", "1.0", ""),
		rules.NewSchema("did:a", "degree", "2.0", ""),
		rules.NewSchema("did:b", "degree", "1.0", ""),
		rules.NewSchema("*", "license", "*", ""),
	} {
		require.NoError(t, sess.InsertRule(ctx, r))
	}
}

func TestListRules_FilterOmission(t *testing.T) {
	ctx := context.Background()
	s := createTestStore(t)
	sess := beginTestSession(t, s)
	seedSchemas(t, sess)

	tests := []struct {
		name   string
		fields map[string]string
		want   int
	}{
		{"no filter", nil, 4},
		{"empty value is omitted", map[string]string{rules.ColAuthorDID: ""}, 4},
		{"star is omitted", map[string]string{rules.ColAuthorDID: "*"}, 4},
		{"author", map[string]string{rules.ColAuthorDID: "did:a"}, 2},
		{"author and version", map[string]string{rules.ColAuthorDID: "did:a", rules.ColVersion: "1.0"}, 1},
		// A stored wildcard is not selected by a concrete filter.
		{"concrete name", map[string]string{rules.ColSchemaName: "license"}, 1},
		{"no match", map[string]string{rules.ColAuthorDID: "did:zzz"}, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			total, got, err := sess.ListRules(ctx, rules.KindSchema, rules.Filter{Fields: tt.fields}, Page{})
			require.NoError(t, err)
			assert.Equal(t, tt.want, total)
			assert.Len(t, got, tt.want)
			assert.NotNil(t, got)
		})
	}
}

func TestListRules_ByID(t *testing.T) {
	ctx := context.Background()
	s := createTestStore(t)
	sess := beginTestSession(t, s)
	seedSchemas(t, sess)

	want := rules.NewSchema("did:b", "degree", "1.0", "")
	total, got, err := sess.ListRules(ctx, rules.KindSchema, rules.Filter{ID: want.ID}, Page{})
	require.NoError(t, err)
	assert.Equal(t, 1, total)
	require.Len(t, got, 1)
	assert.Equal(t, want.ID, got[0].RuleID())
}

func TestListRules_FlagFilter(t *testing.T) {
	ctx := context.Background()
	s := createTestStore(t)
	sess := beginTestSession(t, s)

	require.NoError(t, sess.InsertRule(ctx, rules.NewLogEntry("", "a.com", "ns", "x", "", true, "")))
	require.NoError(t, sess.InsertRule(ctx, rules.NewLogEntry("", "b.com", "ns", "x", "", false, "")))

	total, got, err := sess.ListRules(ctx, rules.KindLogEntry,
		rules.Filter{Flags: map[string]bool{rules.ColLogUpdates: true}}, Page{})
	require.NoError(t, err)
	assert.Equal(t, 1, total)
	require.Len(t, got, 1)
	assert.Equal(t, "a.com", got[0].(rules.LogEntry).Domain)
}

func TestListRules_UnknownFilterColumn(t *testing.T) {
	s := createTestStore(t)
	sess := beginTestSession(t, s)

	_, _, err := sess.ListRules(context.Background(), rules.KindPublicDID,
		rules.Filter{Fields: map[string]string{"tag": "x"}}, Page{})
	require.Error(t, err)
}

func TestListRules_Paging(t *testing.T) {
	ctx := context.Background()
	s := createTestStore(t)
	sess := beginTestSession(t, s)

	for i := 0; i < 5; i++ {
		require.NoError(t, sess.InsertRule(ctx, rules.NewPublicDID(fmt.Sprintf("did:example:%d", i), "")))
	}

	var seen []string
	for num := 1; num <= 3; num++ {
		total, page, err := sess.ListRules(ctx, rules.KindPublicDID, rules.Filter{}, Page{Num: num, Size: 2})
		require.NoError(t, err)
		assert.Equal(t, 5, total)
		for _, r := range page {
			seen = append(seen, r.RuleID().String())
		}
	}
	require.Len(t, seen, 5)
	assert.IsIncreasing(t, seen, "pages are ordered by id")

	_, page, err := sess.ListRules(ctx, rules.KindPublicDID, rules.Filter{}, Page{Num: 4, Size: 2})
	require.NoError(t, err)
	assert.Empty(t, page)
}

func TestMatchRule(t *testing.T) {
	ctx := context.Background()
	s := createTestStore(t)
	sess := beginTestSession(t, s)
	seedSchemas(t, sess)
	require.NoError(t, sess.InsertRule(ctx, rules.NewPublicDID("*", "")))

	tests := []struct {
		name string
		c    rules.Criteria
		want bool
	}{
		{"exact", rules.SchemaCriteria{AuthorDID: "did:a", Name: "degree", Version: "2.0"}, true},
		{"concrete mismatch", rules.SchemaCriteria{AuthorDID: "did:b", Name: "degree", Version: "2.0"}, false},
		{"partial wildcard", rules.SchemaCriteria{AuthorDID: "did:anyone", Name: "license", Version: "9"}, true},
		{"wildcard did", rules.DIDCriteria{DID: "did:whatever"}, true},
		{"empty table", rules.CredDefCriteria{AuthorDID: "did:a", SchemaIssuerDID: "did:a", SchemaName: "degree", SchemaVersion: "1.0", Tag: "t"}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := sess.MatchRule(ctx, tt.c)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestMatchRule_AgreesWithPureMatcher(t *testing.T) {
	ctx := context.Background()
	s := createTestStore(t)
	sess := beginTestSession(t, s)
	seedSchemas(t, sess)

	_, stored, err := sess.ListRules(ctx, rules.KindSchema, rules.Filter{}, Page{})
	require.NoError(t, err)

	for _, author := range []string{"did:a", "did:b", "did:c"} {
		for _, name := range []string{"degree", "license"} {
			for _, version := range []string{"1.0", "2.0"} {
				c := rules.SchemaCriteria{AuthorDID: author, Name: name, Version: version}
				got, err := sess.MatchRule(ctx, c)
				require.NoError(t, err)
				assert.Equal(t, rules.MatchAny(stored, c), got, "%+v", c)
			}
		}
	}
}

func TestPendingTransactions_OnlyRequestReceived(t *testing.T) {
	ctx := context.Background()
	s := createTestStore(t)
	sess := beginTestSession(t, s)

	for _, id := range []string{"tx-3", "tx-1", "tx-2"} {
		require.NoError(t, sess.PutTransaction(ctx, createTestTransaction(id, endorse.TypeNym)))
	}
	require.NoError(t, sess.SetTransactionState(ctx, "tx-2", endorse.StateEndorsed))

	pending, err := sess.PendingTransactions(ctx)
	require.NoError(t, err)
	require.Len(t, pending, 2)
	assert.Equal(t, "tx-1", pending[0].ID)
	assert.Equal(t, "tx-3", pending[1].ID)
}

func TestPendingTransactions_Empty(t *testing.T) {
	s := createTestStore(t)
	sess := beginTestSession(t, s)

	pending, err := sess.PendingTransactions(context.Background())
	require.NoError(t, err)
	assert.NotNil(t, pending)
	assert.Empty(t, pending)
}

func TestGetTransaction_PreservesLargeNumbers(t *testing.T) {
	ctx := context.Background()
	s := createTestStore(t)
	sess := beginTestSession(t, s)

	tx := createTestTransaction("tx-1", endorse.TypeCredDef)
	tx.Payload = map[string]any{"ref": json.Number("9007199254740993"), "tag": "default"}
	require.NoError(t, sess.PutTransaction(ctx, tx))

	got, err := sess.GetTransaction(ctx, "tx-1")
	require.NoError(t, err)
	assert.Equal(t, json.Number("9007199254740993"), got.Payload["ref"])

	_, err = sess.GetTransaction(ctx, "nope")
	assert.ErrorIs(t, err, ErrTransactionNotFound)
}
