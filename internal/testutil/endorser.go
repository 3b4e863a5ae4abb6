package testutil

import (
	"context"
	"sync"

	"github.com/roach88/endorser/internal/endorse"
)

// RecordingEndorser records every endorsement it is asked to make.
//
// Thread-safety: All methods are safe for concurrent use via internal mutex.
type RecordingEndorser struct {
	mu       sync.Mutex
	endorsed []string
	fail     map[string]error
}

// NewRecordingEndorser creates an endorser that accepts every request.
func NewRecordingEndorser() *RecordingEndorser {
	return &RecordingEndorser{fail: make(map[string]error)}
}

// FailOn makes Endorse for the given transaction return err.
func (e *RecordingEndorser) FailOn(transactionID string, err error) *RecordingEndorser {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.fail[transactionID] = err
	return e
}

// Endorse implements endorse.Endorser. Failed calls are not recorded.
func (e *RecordingEndorser) Endorse(_ context.Context, tx endorse.Transaction) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if err, ok := e.fail[tx.ID]; ok {
		return err
	}
	e.endorsed = append(e.endorsed, tx.ID)
	return nil
}

// Endorsed returns the ids of successfully endorsed transactions, in call order.
func (e *RecordingEndorser) Endorsed() []string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return append([]string(nil), e.endorsed...)
}
