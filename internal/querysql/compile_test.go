package querysql

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/endorser/internal/queryir"
)

func TestCompile_SimpleSelect(t *testing.T) {
	compiler := NewSQLCompiler()

	query := queryir.Select{
		From:    "allowed_schema",
		Columns: []string{"id", "author_did"},
		Filter: queryir.Equals{
			Field: "author_did",
			Value: "did:example:author",
		},
	}

	sql, params, err := compiler.Compile(query)
	require.NoError(t, err)

	assert.Equal(t,
		"SELECT id, author_did FROM allowed_schema WHERE author_did = ? ORDER BY id ASC COLLATE BINARY",
		sql)
	assert.NotContains(t, sql, "did:example")
	assert.Equal(t, []any{"did:example:author"}, params)
}

func TestCompile_SelectPointer(t *testing.T) {
	compiler := NewSQLCompiler()

	sql, params, err := compiler.Compile(&queryir.Select{
		From:    "allowed_public_did",
		Columns: []string{"id"},
		Filter:  &queryir.Equals{Field: "registered_did", Value: "did:x"},
	})
	require.NoError(t, err)
	assert.Contains(t, sql, "WHERE registered_did = ?")
	assert.Equal(t, []any{"did:x"}, params)
}

func TestCompile_SelectPaging(t *testing.T) {
	compiler := NewSQLCompiler()

	sql, params, err := compiler.Compile(queryir.Select{
		From:    "allowed_log_entry",
		Columns: []string{"id"},
		Limit:   50,
		Offset:  100,
	})
	require.NoError(t, err)
	assert.Equal(t,
		"SELECT id FROM allowed_log_entry ORDER BY id ASC COLLATE BINARY LIMIT ? OFFSET ?",
		sql)
	assert.Equal(t, []any{50, 100}, params)
}

func TestCompile_SelectRequiresColumns(t *testing.T) {
	_, _, err := NewSQLCompiler().Compile(queryir.Select{From: "allowed_schema"})
	require.Error(t, err)
}

func TestCompile_EqualsOrWildcard(t *testing.T) {
	compiler := NewSQLCompiler()

	sql, params, err := compiler.Compile(queryir.Select{
		From:    "allowed_schema",
		Columns: []string{"id"},
		Filter: queryir.And{Predicates: []queryir.Predicate{
			queryir.EqualsOrWildcard{Field: "author_did", Value: "did:a"},
			queryir.EqualsOrWildcard{Field: "version", Value: "2.0"},
		}},
		Limit: 1,
	})
	require.NoError(t, err)
	assert.Equal(t,
		"SELECT id FROM allowed_schema WHERE (author_did = ? OR author_did = ? OR author_did = ?)"+
			" AND (version = ? OR version = ? OR version = ?) ORDER BY id ASC COLLATE BINARY LIMIT ? OFFSET ?",
		sql)
	assert.Equal(t, []any{"did:a", "*", "", "2.0", "*", "", 1, 0}, params)
}

func TestCompile_Count(t *testing.T) {
	sql, params, err := NewSQLCompiler().Compile(queryir.Count{
		From:   "allowed_cred_def",
		Filter: queryir.Equals{Field: "tag", Value: "default"},
	})
	require.NoError(t, err)
	assert.Equal(t, "SELECT COUNT(*) FROM allowed_cred_def WHERE tag = ?", sql)
	assert.Equal(t, []any{"default"}, params)
}

func TestCompile_DeleteAll(t *testing.T) {
	sql, params, err := NewSQLCompiler().Compile(queryir.Delete{From: "allowed_schema"})
	require.NoError(t, err)
	assert.Equal(t, "DELETE FROM allowed_schema", sql)
	assert.Empty(t, params)
}

func TestCompile_DeleteByID(t *testing.T) {
	sql, params, err := NewSQLCompiler().Compile(&queryir.Delete{
		From:   "allowed_schema",
		Filter: queryir.Equals{Field: "id", Value: "abc"},
	})
	require.NoError(t, err)
	assert.Equal(t, "DELETE FROM allowed_schema WHERE id = ?", sql)
	assert.Equal(t, []any{"abc"}, params)
}

func TestCompile_EmptyAnd(t *testing.T) {
	sql, params, err := NewSQLCompiler().Compile(queryir.Count{
		From:   "allowed_schema",
		Filter: queryir.And{},
	})
	require.NoError(t, err)
	assert.Equal(t, "SELECT COUNT(*) FROM allowed_schema WHERE 1 = 1", sql)
	assert.Empty(t, params)
}

func TestCompile_Nil(t *testing.T) {
	_, _, err := NewSQLCompiler().Compile(nil)
	require.Error(t, err)
}

func TestCompile_RejectsBadIdentifier(t *testing.T) {
	_, _, err := NewSQLCompiler().Compile(queryir.Delete{From: "x; DROP TABLE y"})
	require.Error(t, err)
}
