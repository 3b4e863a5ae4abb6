package classify

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/endorser/internal/endorse"
	"github.com/roach88/endorser/internal/rules"
	"github.com/roach88/endorser/internal/testutil"
)

func classifyWith(t *testing.T, ledger SchemaResolver, tx endorse.Transaction) Outcome {
	t.Helper()
	return NewClassifier(ledger, nil).Classify(context.Background(), tx)
}

func requireCriteria(t *testing.T, out Outcome) rules.Criteria {
	t.Helper()
	e, ok := out.(Endorsable)
	require.True(t, ok, "expected Endorsable, got %#v", out)
	return e.Criteria
}

func requireNotEndorsable(t *testing.T, out Outcome) {
	t.Helper()
	_, ok := out.(NotEndorsable)
	require.True(t, ok, "expected NotEndorsable, got %#v", out)
}

func TestClassify_GoalCodeRegisterPublicDID(t *testing.T) {
	out := classifyWith(t, nil, endorse.Transaction{
		AuthorGoalCode: endorse.GoalRegisterPublicDID,
		Type:           endorse.TypeNym,
		Request:        map[string]any{"did": "did:example:123"},
		Payload:        map[string]any{"dest": "did:example:other"},
	})
	assert.Equal(t, rules.DIDCriteria{DID: "did:example:123"}, requireCriteria(t, out))
}

func TestClassify_GoalCodeTakesPriorityOverType(t *testing.T) {
	out := classifyWith(t, nil, endorse.Transaction{
		AuthorGoalCode: endorse.GoalRegisterPublicDID,
		Type:           endorse.TypeSchema,
		Request:        map[string]any{"did": "did:example:123"},
	})
	assert.Equal(t, rules.DIDCriteria{DID: "did:example:123"}, requireCriteria(t, out))
}

func TestClassify_GoalCodeWithoutDID(t *testing.T) {
	requireNotEndorsable(t, classifyWith(t, nil, endorse.Transaction{
		AuthorGoalCode: endorse.GoalRegisterPublicDID,
		Request:        map[string]any{},
	}))
}

func TestClassify_DIDAndAttribUseDest(t *testing.T) {
	for _, typ := range []endorse.Type{endorse.TypeNym, endorse.TypeAttrib} {
		out := classifyWith(t, nil, endorse.Transaction{
			Type:    typ,
			Payload: map[string]any{"dest": "did:example:456"},
			Request: map[string]any{},
		})
		assert.Equal(t, rules.DIDCriteria{DID: "did:example:456"}, requireCriteria(t, out), typ)
	}
}

func TestClassify_DIDWithoutDest(t *testing.T) {
	requireNotEndorsable(t, classifyWith(t, nil, endorse.Transaction{Type: endorse.TypeNym}))
}

func TestClassify_Schema(t *testing.T) {
	out := classifyWith(t, nil, endorse.Transaction{
		Type:      endorse.TypeSchema,
		AuthorDID: "did:example:author",
		Payload:   map[string]any{"data": map[string]any{"name": "TestSchema", "version": "1.0"}},
	})
	assert.Equal(t, rules.SchemaCriteria{
		AuthorDID: "did:example:author",
		Name:      "TestSchema",
		Version:   "1.0",
	}, requireCriteria(t, out))
}

func TestClassify_SchemaMissingFields(t *testing.T) {
	tests := []struct {
		name string
		tx   endorse.Transaction
	}{
		{"missing author", endorse.Transaction{
			Type:    endorse.TypeSchema,
			Payload: map[string]any{"data": map[string]any{"name": "Test", "version": "1.0"}},
		}},
		{"missing payload", endorse.Transaction{
			Type:      endorse.TypeSchema,
			AuthorDID: "did:example:author",
		}},
		{"missing data", endorse.Transaction{
			Type:      endorse.TypeSchema,
			AuthorDID: "did:example:author",
			Payload:   map[string]any{},
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			requireNotEndorsable(t, classifyWith(t, nil, tt.tx))
		})
	}
}

func TestClassify_CredDef(t *testing.T) {
	ledger := testutil.NewFakeLedger().WithSchema("12345", "did:placeholder:TestSchema:1.0")

	out := classifyWith(t, ledger, endorse.Transaction{
		Type:      endorse.TypeCredDef,
		AuthorDID: "did:example:author",
		Payload:   map[string]any{"ref": json.Number("12345"), "tag": "default"},
	})

	assert.Equal(t, []string{"schemas/12345"}, ledger.Calls())
	assert.Equal(t, rules.CredDefCriteria{
		AuthorDID:       "did:example:author",
		SchemaIssuerDID: "did",
		SchemaName:      "TestSchema",
		SchemaVersion:   "1.0",
		Tag:             "default",
	}, requireCriteria(t, out))
}

func TestClassify_CredDefNumericRefForms(t *testing.T) {
	for _, ref := range []any{12345, float64(12345), "12345"} {
		ledger := testutil.NewFakeLedger().WithSchema("12345", "did:2:n:1")
		out := classifyWith(t, ledger, endorse.Transaction{
			Type:      endorse.TypeCredDef,
			AuthorDID: "did:a",
			Payload:   map[string]any{"ref": ref, "tag": "t"},
		})
		requireCriteria(t, out)
		assert.Equal(t, []string{"schemas/12345"}, ledger.Calls(), "%T", ref)
	}
}

func TestClassify_CredDefLedgerFailure(t *testing.T) {
	ledger := testutil.NewFakeLedger().FailOn("schemas/1", errors.New("connection refused"))

	out := classifyWith(t, ledger, endorse.Transaction{
		Type:      endorse.TypeCredDef,
		AuthorDID: "did:a",
		Payload:   map[string]any{"ref": "1", "tag": "t"},
	})
	requireNotEndorsable(t, out)
	assert.Contains(t, out.(NotEndorsable).Reason, "connection refused")
}

func TestClassify_CredDefMalformedSchemaID(t *testing.T) {
	for _, id := range []string{"did:2:name", "a:2:b:c:d", ""} {
		ledger := testutil.NewFakeLedger().WithSchema("1", id)
		requireNotEndorsable(t, classifyWith(t, ledger, endorse.Transaction{
			Type:      endorse.TypeCredDef,
			AuthorDID: "did:a",
			Payload:   map[string]any{"ref": "1"},
		}))
	}
}

func TestClassify_CredDefMissingFields(t *testing.T) {
	ledger := testutil.NewFakeLedger().WithSchema("1", "a:2:b:c")
	for _, tx := range []endorse.Transaction{
		{Type: endorse.TypeCredDef, Payload: map[string]any{"ref": "1"}},
		{Type: endorse.TypeCredDef, AuthorDID: "did:a"},
		{Type: endorse.TypeCredDef, AuthorDID: "did:a", Payload: map[string]any{"tag": "t"}},
	} {
		requireNotEndorsable(t, classifyWith(t, ledger, tx))
	}
	assert.Empty(t, ledger.Calls())
}

func TestClassify_CredDefWithoutLedger(t *testing.T) {
	requireNotEndorsable(t, classifyWith(t, nil, endorse.Transaction{
		Type:      endorse.TypeCredDef,
		AuthorDID: "did:a",
		Payload:   map[string]any{"ref": "1"},
	}))
}

func TestClassify_UnknownType(t *testing.T) {
	for _, typ := range []endorse.Type{"unknown_type", endorse.TypeRevRegDef, endorse.TypeRevRegEntry, ""} {
		requireNotEndorsable(t, classifyWith(t, nil, endorse.Transaction{
			Type:      typ,
			AuthorDID: "did:example:author",
			Payload:   map[string]any{"some": "data"},
		}))
	}
}
