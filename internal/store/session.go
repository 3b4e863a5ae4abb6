package store

import (
	"database/sql"
	"errors"
	"fmt"

	"github.com/roach88/endorser/internal/querysql"
)

var (
	// ErrDuplicateRule reports an insert whose identity already exists.
	ErrDuplicateRule = errors.New("rule already exists")
	// ErrConstraint reports any other integrity violation.
	ErrConstraint = errors.New("constraint violation")
	// ErrTransactionNotFound reports an unknown transaction id.
	ErrTransactionNotFound = errors.New("transaction not found")
	// ErrSessionDone reports use of a committed or rolled back session.
	ErrSessionDone = errors.New("session already finished")
)

// Session is one store transaction.
//
// A Session is not safe for concurrent use.
type Session struct {
	tx       *sql.Tx
	compiler *querysql.SQLCompiler
	done     bool
}

// Commit makes every write of the session durable.
func (s *Session) Commit() error {
	if s.done {
		return ErrSessionDone
	}
	s.done = true
	if err := s.tx.Commit(); err != nil {
		return fmt.Errorf("commit session: %w", err)
	}
	return nil
}

// Rollback discards every write of the session. It is a no-op after
// Commit, so it can be deferred unconditionally.
func (s *Session) Rollback() error {
	if s.done {
		return nil
	}
	s.done = true
	if err := s.tx.Rollback(); err != nil {
		return fmt.Errorf("rollback session: %w", err)
	}
	return nil
}
