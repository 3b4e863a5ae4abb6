package store

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/roach88/endorser/internal/endorse"
)

// createTestStore creates a new file-backed store for testing.
func createTestStore(t *testing.T) *Store {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test.db")
	s, err := Open(path)
	if err != nil {
		t.Fatalf("Open() failed: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

// beginTestSession opens a session that is rolled back at cleanup unless
// the test commits it.
func beginTestSession(t *testing.T, s *Store) *Session {
	t.Helper()
	sess, err := s.Begin(context.Background())
	if err != nil {
		t.Fatalf("Begin() failed: %v", err)
	}
	t.Cleanup(func() { sess.Rollback() })
	return sess
}

// createTestTransaction creates a pending request with minimal fields.
func createTestTransaction(id string, typ endorse.Type) endorse.Transaction {
	return endorse.Transaction{
		ID:           id,
		ConnectionID: "conn-1",
		Type:         typ,
		State:        endorse.StateRequestReceived,
		AuthorDID:    "did:example:author",
		Payload:      map[string]any{"dest": "did:example:" + id},
		Request:      map[string]any{},
	}
}
