package reconcile

import (
	"context"
	"errors"

	"github.com/roach88/endorser/internal/endorse"
	"github.com/roach88/endorser/internal/rules"
)

// fakeSession keeps pending requests and rules in memory and records calls.
type fakeSession struct {
	pending  []endorse.Transaction
	rules    []rules.Rule
	readErr  error
	matchErr map[string]error // keyed by criteria kind
	stateErr map[string]error // keyed by transaction id

	states    map[string]endorse.State
	commits   int
	rollbacks int
}

func newFakeSession(pending ...endorse.Transaction) *fakeSession {
	return &fakeSession{
		pending:  pending,
		matchErr: map[string]error{},
		stateErr: map[string]error{},
		states:   map[string]endorse.State{},
	}
}

func (f *fakeSession) PendingTransactions(context.Context) ([]endorse.Transaction, error) {
	if f.readErr != nil {
		return nil, f.readErr
	}
	return f.pending, nil
}

func (f *fakeSession) MatchRule(_ context.Context, c rules.Criteria) (bool, error) {
	if err := f.matchErr[string(c.Kind())]; err != nil {
		return false, err
	}
	return rules.MatchAny(f.rules, c), nil
}

func (f *fakeSession) SetTransactionState(_ context.Context, id string, state endorse.State) error {
	if err := f.stateErr[id]; err != nil {
		return err
	}
	f.states[id] = state
	return nil
}

func (f *fakeSession) Commit() error {
	f.commits++
	return nil
}

func (f *fakeSession) Rollback() error {
	f.rollbacks++
	return nil
}

var errBoom = errors.New("boom")
