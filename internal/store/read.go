package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/roach88/endorser/internal/endorse"
	"github.com/roach88/endorser/internal/queryir"
	"github.com/roach88/endorser/internal/rules"
)

// Page selects a window of a listing. Num is 1-indexed; a Size of zero
// returns every row.
type Page struct {
	Num  int
	Size int
}

func (p Page) offset() int {
	if p.Num <= 1 || p.Size <= 0 {
		return 0
	}
	return (p.Num - 1) * p.Size
}

// ListRules returns the total number of rules of kind matching filter and
// the rules on the requested page.
//
// A filter value of "" or "*" leaves its column unconstrained; rows holding
// the wildcard are not selected specially. Returns an empty slice (not nil)
// when nothing matches.
func (s *Session) ListRules(ctx context.Context, kind rules.Kind, filter rules.Filter, page Page) (int, []rules.Rule, error) {
	if s.done {
		return 0, nil, ErrSessionDone
	}
	if !kind.Valid() {
		return 0, nil, fmt.Errorf("list rules: unknown kind %q", kind)
	}
	if err := filter.Validate(kind); err != nil {
		return 0, nil, fmt.Errorf("list %s rules: %w", kind, err)
	}
	pred := filterPredicate(kind, filter)

	countSQL, countParams, err := s.compiler.Compile(queryir.Count{From: kind.Table(), Filter: pred})
	if err != nil {
		return 0, nil, fmt.Errorf("list %s rules: %w", kind, err)
	}
	var total int
	if err := s.tx.QueryRowContext(ctx, countSQL, countParams...).Scan(&total); err != nil {
		return 0, nil, fmt.Errorf("count %s rules: %w", kind, err)
	}

	query, params, err := s.compiler.Compile(queryir.Select{
		From:    kind.Table(),
		Columns: append([]string{"id"}, kind.Columns()...),
		Filter:  pred,
		Limit:   max(page.Size, 0),
		Offset:  page.offset(),
	})
	if err != nil {
		return 0, nil, fmt.Errorf("list %s rules: %w", kind, err)
	}

	rows, err := s.tx.QueryContext(ctx, query, params...)
	if err != nil {
		return 0, nil, fmt.Errorf("query %s rules: %w", kind, err)
	}
	defer rows.Close()

	result := []rules.Rule{}
	for rows.Next() {
		r, err := scanRule(rows, kind)
		if err != nil {
			return 0, nil, err
		}
		result = append(result, r)
	}
	if err := rows.Err(); err != nil {
		return 0, nil, fmt.Errorf("iterate %s rules: %w", kind, err)
	}

	return total, result, nil
}

// MatchRule reports whether any stored rule authorizes the criteria: every
// matchable column equals the query value or holds the wildcard.
func (s *Session) MatchRule(ctx context.Context, c rules.Criteria) (bool, error) {
	if s.done {
		return false, ErrSessionDone
	}
	fields := c.Fields()
	preds := make([]queryir.Predicate, len(fields))
	for i, f := range fields {
		preds[i] = queryir.EqualsOrWildcard{Field: f.Column, Value: f.Value}
	}

	query, params, err := s.compiler.Compile(queryir.Select{
		From:    c.Kind().Table(),
		Columns: []string{"id"},
		Filter:  queryir.And{Predicates: preds},
		Limit:   1,
	})
	if err != nil {
		return false, fmt.Errorf("match %s rule: %w", c.Kind(), err)
	}

	var id string
	err = s.tx.QueryRowContext(ctx, query, params...).Scan(&id)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("match %s rule: %w", c.Kind(), err)
	}
	return true, nil
}

// PendingTransactions returns every request in state request_received,
// ordered by transaction id, in a single read.
func (s *Session) PendingTransactions(ctx context.Context) ([]endorse.Transaction, error) {
	return s.transactionsInState(ctx, endorse.StateRequestReceived)
}

func (s *Session) transactionsInState(ctx context.Context, state endorse.State) ([]endorse.Transaction, error) {
	if s.done {
		return nil, ErrSessionDone
	}
	rows, err := s.tx.QueryContext(ctx, `
		SELECT transaction_id, connection_id, transaction_type, state, author_did, author_goal_code,
		       transaction_json, transaction_request_json
		FROM endorse_request
		WHERE state = ?
		ORDER BY transaction_id ASC COLLATE BINARY
	`, string(state))
	if err != nil {
		return nil, fmt.Errorf("query transactions: %w", err)
	}
	defer rows.Close()

	txs := []endorse.Transaction{}
	for rows.Next() {
		tx, err := scanTransaction(rows)
		if err != nil {
			return nil, err
		}
		txs = append(txs, tx)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate transactions: %w", err)
	}
	return txs, nil
}

// GetTransaction reads one request by id.
func (s *Session) GetTransaction(ctx context.Context, id string) (endorse.Transaction, error) {
	if s.done {
		return endorse.Transaction{}, ErrSessionDone
	}
	row := s.tx.QueryRowContext(ctx, `
		SELECT transaction_id, connection_id, transaction_type, state, author_did, author_goal_code,
		       transaction_json, transaction_request_json
		FROM endorse_request
		WHERE transaction_id = ?
	`, id)
	tx, err := scanTransaction(row)
	if errors.Is(err, sql.ErrNoRows) {
		return endorse.Transaction{}, fmt.Errorf("get transaction %s: %w", id, ErrTransactionNotFound)
	}
	return tx, err
}

// filterPredicate builds the list filter. Omitted values add nothing.
func filterPredicate(kind rules.Kind, filter rules.Filter) queryir.Predicate {
	var preds []queryir.Predicate
	if filter.ID != uuid.Nil {
		preds = append(preds, queryir.Equals{Field: "id", Value: filter.ID.String()})
	}
	for _, col := range kind.TextColumns() {
		if v, ok := filter.Fields[col]; ok && !rules.Omitted(v) {
			preds = append(preds, queryir.Equals{Field: col, Value: v})
		}
	}
	for _, col := range kind.FlagColumns() {
		if v, ok := filter.Flags[col]; ok {
			preds = append(preds, queryir.Equals{Field: col, Value: v})
		}
	}
	if len(preds) == 0 {
		return nil
	}
	return queryir.And{Predicates: preds}
}

// scanner is satisfied by both *sql.Row and *sql.Rows.
type scanner interface {
	Scan(dest ...any) error
}

// scanRule reads a row selected as id followed by kind.Columns().
func scanRule(row scanner, kind rules.Kind) (rules.Rule, error) {
	text := kind.TextColumns()
	flagCols := kind.FlagColumns()

	var id string
	textVals := make([]string, len(text))
	flagVals := make([]int64, len(flagCols))

	dest := make([]any, 0, 1+len(text)+len(flagCols))
	dest = append(dest, &id)
	for i := range textVals {
		dest = append(dest, &textVals[i])
	}
	for i := range flagVals {
		dest = append(dest, &flagVals[i])
	}
	if err := row.Scan(dest...); err != nil {
		return nil, fmt.Errorf("scan %s rule: %w", kind, err)
	}

	ruleID, err := uuid.Parse(id)
	if err != nil {
		return nil, fmt.Errorf("scan %s rule: bad id %q: %w", kind, id, err)
	}
	values := make(map[string]string, len(text))
	for i, col := range text {
		values[col] = textVals[i]
	}
	flags := make(map[string]bool, len(flagCols))
	for i, col := range flagCols {
		flags[col] = flagVals[i] != 0
	}
	return rules.Restore(kind, ruleID, values, flags)
}

func scanTransaction(row scanner) (endorse.Transaction, error) {
	var (
		tx               endorse.Transaction
		txType, state    string
		payload, request string
	)
	err := row.Scan(&tx.ID, &tx.ConnectionID, &txType, &state, &tx.AuthorDID, &tx.AuthorGoalCode, &payload, &request)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return endorse.Transaction{}, err
		}
		return endorse.Transaction{}, fmt.Errorf("scan transaction: %w", err)
	}
	tx.Type = endorse.Type(txType)
	tx.State = endorse.State(state)

	if tx.Payload, err = unmarshalObject(payload); err != nil {
		return endorse.Transaction{}, fmt.Errorf("scan transaction %s: %w", tx.ID, err)
	}
	if tx.Request, err = unmarshalObject(request); err != nil {
		return endorse.Transaction{}, fmt.Errorf("scan transaction %s: %w", tx.ID, err)
	}
	return tx, nil
}
