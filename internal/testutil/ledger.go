package testutil

import (
	"context"
	"fmt"
	"sync"
)

// FakeLedger serves canned ledger documents keyed by path.
//
// Thread-safety: All methods are safe for concurrent use via internal mutex.
type FakeLedger struct {
	mu    sync.Mutex
	docs  map[string]map[string]any
	fail  map[string]error
	calls []string
}

// NewFakeLedger creates an empty fake ledger. Unknown paths return an error.
func NewFakeLedger() *FakeLedger {
	return &FakeLedger{
		docs: make(map[string]map[string]any),
		fail: make(map[string]error),
	}
}

// WithSchema registers the document returned for "schemas/<ref>".
func (l *FakeLedger) WithSchema(ref, schemaID string) *FakeLedger {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.docs["schemas/"+ref] = map[string]any{"schema": map[string]any{"id": schemaID}}
	return l
}

// FailOn makes Get for path return err.
func (l *FakeLedger) FailOn(path string, err error) *FakeLedger {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.fail[path] = err
	return l
}

// Get implements classify.SchemaResolver.
func (l *FakeLedger) Get(_ context.Context, path string) (map[string]any, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.calls = append(l.calls, path)
	if err, ok := l.fail[path]; ok {
		return nil, err
	}
	doc, ok := l.docs[path]
	if !ok {
		return nil, fmt.Errorf("ledger: %s not found", path)
	}
	return doc, nil
}

// Calls returns every path requested so far, in order.
func (l *FakeLedger) Calls() []string {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]string(nil), l.calls...)
}
