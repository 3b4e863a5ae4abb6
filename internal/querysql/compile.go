package querysql

import (
	"fmt"
	"strings"

	"github.com/roach88/endorser/internal/queryir"
)

// wildcardSentinels are the stored values that match any criterion value.
var wildcardSentinels = []any{"*", ""}

// SQLCompiler compiles query IR to parameterized SQL for SQLite.
//
// Every Select is ordered by id so paging is stable across calls. Values are
// always bound as parameters, never interpolated.
type SQLCompiler struct{}

// NewSQLCompiler creates a new SQLCompiler.
func NewSQLCompiler() *SQLCompiler {
	return &SQLCompiler{}
}

// Compile converts a query to parameterized SQL.
// Returns (sql, params, error).
func (c *SQLCompiler) Compile(q queryir.Query) (string, []any, error) {
	if q == nil {
		return "", nil, fmt.Errorf("cannot compile nil query")
	}
	if err := queryir.Validate(deref(q)); err != nil {
		return "", nil, fmt.Errorf("validate query: %w", err)
	}

	switch query := deref(q).(type) {
	case queryir.Select:
		return c.compileSelect(query)
	case queryir.Count:
		return c.compileCount(query)
	case queryir.Delete:
		return c.compileDelete(query)
	default:
		return "", nil, fmt.Errorf("unsupported query type: %T", q)
	}
}

func (c *SQLCompiler) compileSelect(q queryir.Select) (string, []any, error) {
	if len(q.Columns) == 0 {
		return "", nil, fmt.Errorf("select from %s: no columns", q.From)
	}

	where, params, err := c.compileWhere(q.Filter)
	if err != nil {
		return "", nil, err
	}

	var b strings.Builder
	fmt.Fprintf(&b, "SELECT %s FROM %s%s ORDER BY id ASC COLLATE BINARY",
		strings.Join(q.Columns, ", "), q.From, where)
	if q.Limit > 0 {
		b.WriteString(" LIMIT ? OFFSET ?")
		params = append(params, q.Limit, q.Offset)
	}
	return b.String(), params, nil
}

func (c *SQLCompiler) compileCount(q queryir.Count) (string, []any, error) {
	where, params, err := c.compileWhere(q.Filter)
	if err != nil {
		return "", nil, err
	}
	return "SELECT COUNT(*) FROM " + q.From + where, params, nil
}

func (c *SQLCompiler) compileDelete(q queryir.Delete) (string, []any, error) {
	where, params, err := c.compileWhere(q.Filter)
	if err != nil {
		return "", nil, err
	}
	return "DELETE FROM " + q.From + where, params, nil
}

func (c *SQLCompiler) compileWhere(p queryir.Predicate) (string, []any, error) {
	if p == nil {
		return "", nil, nil
	}
	sql, params, err := c.compilePredicate(p)
	if err != nil {
		return "", nil, fmt.Errorf("compile filter: %w", err)
	}
	return " WHERE " + sql, params, nil
}

func (c *SQLCompiler) compilePredicate(p queryir.Predicate) (string, []any, error) {
	switch pred := p.(type) {
	case queryir.Equals:
		return pred.Field + " = ?", []any{pred.Value}, nil
	case *queryir.Equals:
		return c.compilePredicate(*pred)
	case queryir.EqualsOrWildcard:
		sql := fmt.Sprintf("(%s = ? OR %s = ? OR %s = ?)", pred.Field, pred.Field, pred.Field)
		return sql, append([]any{pred.Value}, wildcardSentinels...), nil
	case *queryir.EqualsOrWildcard:
		return c.compilePredicate(*pred)
	case queryir.And:
		return c.compileAnd(pred)
	case *queryir.And:
		return c.compileAnd(*pred)
	default:
		return "", nil, fmt.Errorf("unsupported predicate type: %T", p)
	}
}

func (c *SQLCompiler) compileAnd(pred queryir.And) (string, []any, error) {
	if len(pred.Predicates) == 0 {
		// Vacuous truth
		return "1 = 1", nil, nil
	}

	parts := make([]string, 0, len(pred.Predicates))
	var params []any
	for i, child := range pred.Predicates {
		sql, childParams, err := c.compilePredicate(child)
		if err != nil {
			return "", nil, fmt.Errorf("and[%d]: %w", i, err)
		}
		parts = append(parts, sql)
		params = append(params, childParams...)
	}
	return strings.Join(parts, " AND "), params, nil
}

// deref accepts both value and pointer query nodes.
func deref(q queryir.Query) queryir.Query {
	switch query := q.(type) {
	case *queryir.Select:
		return *query
	case *queryir.Count:
		return *query
	case *queryir.Delete:
		return *query
	}
	return q
}
