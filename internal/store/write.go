package store

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/mattn/go-sqlite3"

	"github.com/roach88/endorser/internal/endorse"
	"github.com/roach88/endorser/internal/queryir"
	"github.com/roach88/endorser/internal/rules"
)

// InsertRule stores a rule under its identity.
// Uses ON CONFLICT(id) DO NOTHING; an existing identity is reported as
// ErrDuplicateRule and leaves the session usable.
// Other constraint violations are wrapped with ErrConstraint.
func (s *Session) InsertRule(ctx context.Context, r rules.Rule) error {
	if s.done {
		return ErrSessionDone
	}
	kind := r.Kind()
	values := r.Values()
	flags := r.Flags()

	cols := append([]string{"id"}, kind.TextColumns()...)
	args := []any{r.RuleID().String()}
	for _, col := range kind.TextColumns() {
		args = append(args, values[col])
	}
	for _, col := range kind.FlagColumns() {
		cols = append(cols, col)
		args = append(args, flags[col])
	}

	query := fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s) ON CONFLICT(id) DO NOTHING",
		kind.Table(), strings.Join(cols, ", "), placeholders(len(cols)))

	res, err := s.tx.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("insert %s rule: %w", kind, wrapConstraint(err))
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("insert %s rule: %w", kind, err)
	}
	if n == 0 {
		return fmt.Errorf("insert %s rule %s: %w", kind, r.RuleID(), ErrDuplicateRule)
	}
	return nil
}

// DeleteRule removes one rule by identity.
// Returns false, without error, when no such rule exists.
func (s *Session) DeleteRule(ctx context.Context, kind rules.Kind, id uuid.UUID) (bool, error) {
	n, err := s.delete(ctx, queryir.Delete{
		From:   kind.Table(),
		Filter: queryir.Equals{Field: "id", Value: id.String()},
	})
	if err != nil {
		return false, fmt.Errorf("delete %s rule: %w", kind, err)
	}
	return n > 0, nil
}

// DeleteAllRules truncates the table of one kind and returns how many
// rules were removed.
func (s *Session) DeleteAllRules(ctx context.Context, kind rules.Kind) (int64, error) {
	n, err := s.delete(ctx, queryir.Delete{From: kind.Table()})
	if err != nil {
		return 0, fmt.Errorf("delete all %s rules: %w", kind, err)
	}
	return n, nil
}

func (s *Session) delete(ctx context.Context, q queryir.Delete) (int64, error) {
	if s.done {
		return 0, ErrSessionDone
	}
	query, params, err := s.compiler.Compile(q)
	if err != nil {
		return 0, err
	}
	res, err := s.tx.ExecContext(ctx, query, params...)
	if err != nil {
		return 0, wrapConstraint(err)
	}
	return res.RowsAffected()
}

// PutTransaction records a pending request, replacing any earlier record
// with the same transaction id.
func (s *Session) PutTransaction(ctx context.Context, tx endorse.Transaction) error {
	if s.done {
		return ErrSessionDone
	}
	payload, err := marshalObject(tx.Payload)
	if err != nil {
		return fmt.Errorf("put transaction %s: %w", tx.ID, err)
	}
	request, err := marshalObject(tx.Request)
	if err != nil {
		return fmt.Errorf("put transaction %s: %w", tx.ID, err)
	}

	_, err = s.tx.ExecContext(ctx, `
		INSERT INTO endorse_request
		(transaction_id, connection_id, transaction_type, state, author_did, author_goal_code,
		 transaction_json, transaction_request_json)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(transaction_id) DO UPDATE SET
			connection_id = excluded.connection_id,
			transaction_type = excluded.transaction_type,
			state = excluded.state,
			author_did = excluded.author_did,
			author_goal_code = excluded.author_goal_code,
			transaction_json = excluded.transaction_json,
			transaction_request_json = excluded.transaction_request_json,
			updated_at = strftime('%Y-%m-%dT%H:%M:%fZ', 'now')
	`,
		tx.ID,
		tx.ConnectionID,
		string(tx.Type),
		string(tx.State),
		tx.AuthorDID,
		tx.AuthorGoalCode,
		payload,
		request,
	)
	if err != nil {
		return fmt.Errorf("put transaction %s: %w", tx.ID, wrapConstraint(err))
	}
	return nil
}

// SetTransactionState moves a request to a new state.
func (s *Session) SetTransactionState(ctx context.Context, id string, state endorse.State) error {
	if s.done {
		return ErrSessionDone
	}
	res, err := s.tx.ExecContext(ctx, `
		UPDATE endorse_request
		SET state = ?, updated_at = strftime('%Y-%m-%dT%H:%M:%fZ', 'now')
		WHERE transaction_id = ?
	`, string(state), id)
	if err != nil {
		return fmt.Errorf("set transaction %s state: %w", id, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("set transaction %s state: %w", id, err)
	}
	if n == 0 {
		return fmt.Errorf("set transaction %s state: %w", id, ErrTransactionNotFound)
	}
	return nil
}

// wrapConstraint tags sqlite integrity failures with ErrConstraint.
func wrapConstraint(err error) error {
	var sqliteErr sqlite3.Error
	if errors.As(err, &sqliteErr) && sqliteErr.Code == sqlite3.ErrConstraint {
		return fmt.Errorf("%w: %w", ErrConstraint, err)
	}
	return err
}

func placeholders(n int) string {
	return strings.TrimSuffix(strings.Repeat("?, ", n), ", ")
}
