package queryir

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidate_Select(t *testing.T) {
	q := Select{
		From:    "allowed_schema",
		Columns: []string{"id", "author_did"},
		Filter: And{Predicates: []Predicate{
			Equals{Field: "author_did", Value: "did:x"},
			EqualsOrWildcard{Field: "version", Value: "1.0"},
		}},
		Limit:  10,
		Offset: 20,
	}
	require.NoError(t, Validate(q))
}

func TestValidate_RejectsInjectedIdentifiers(t *testing.T) {
	cases := []Query{
		Select{From: "allowed_schema; DROP TABLE x"},
		Select{From: "allowed_schema", Columns: []string{"id, secret"}},
		Count{From: "t", Filter: Equals{Field: "a = 1 OR 1", Value: 1}},
		Delete{From: "t", Filter: And{Predicates: []Predicate{EqualsOrWildcard{Field: "Bad"}}}},
	}
	for _, q := range cases {
		assert.Error(t, Validate(q), "%#v", q)
	}
}

func TestValidate_NegativePaging(t *testing.T) {
	err := Validate(Select{From: "t", Limit: -1})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "negative")
}

func TestValidate_Nil(t *testing.T) {
	require.Error(t, Validate(nil))
}

func TestValidate_EmptyAndIsValid(t *testing.T) {
	require.NoError(t, Validate(Delete{From: "t", Filter: And{}}))
}
