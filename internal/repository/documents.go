// Package repository persists warranty policies, exclusions, tickets and stock as
// whole JSON documents: load the full map, mutate it, persist it back.
package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"regexp"
	"sync"

	"github.com/goatkit/warrantyflow/internal/keylock"
)

// Document names used by the typed repositories. They match the flat files of
// earlier deployments.
const (
	DocPolicies    = "products"
	DocExclusions  = "excluded"
	DocTickets     = "tickets"
	docStockPrefix = "stock-"
)

// DocumentStore persists named JSON documents. Load reports false when the
// document does not exist yet.
type DocumentStore interface {
	Load(ctx context.Context, name string, v any) (bool, error)
	Save(ctx context.Context, name string, v any) error
}

// DocumentLockKey is the locker key that guards read-modify-write cycles of the
// named document. Instances sharing a store must share the locker too.
func DocumentLockKey(name string) string {
	return "doc:" + name
}

// processLocker backs repositories built without a locker.
var processLocker = keylock.NewMemoryLocker()

type documentGuard struct {
	locker keylock.Locker
}

func newDocumentGuard(locker keylock.Locker) documentGuard {
	if locker == nil {
		locker = processLocker
	}
	return documentGuard{locker: locker}
}

// update runs fn while holding the lock of the named document.
func (g documentGuard) update(ctx context.Context, name string, fn func() error) error {
	unlock, err := g.locker.Lock(ctx, DocumentLockKey(name))
	if err != nil {
		return fmt.Errorf("failed to lock %s: %w", name, err)
	}
	defer unlock()
	return fn()
}

var documentNamePattern = regexp.MustCompile(`^[a-z0-9][a-z0-9_-]{0,127}$`)

// ValidateDocumentName rejects names that are unsafe as file names or keys.
func ValidateDocumentName(name string) error {
	if !documentNamePattern.MatchString(name) {
		return fmt.Errorf("invalid document name %q", name)
	}
	return nil
}

// MemoryDocumentStore keeps documents in memory. Values are stored encoded so
// callers never share maps with the store.
type MemoryDocumentStore struct {
	mu   sync.RWMutex
	docs map[string][]byte
}

// NewMemoryDocumentStore creates an empty in-memory store.
func NewMemoryDocumentStore() *MemoryDocumentStore {
	return &MemoryDocumentStore{docs: make(map[string][]byte)}
}

// Load decodes the named document into v.
func (s *MemoryDocumentStore) Load(ctx context.Context, name string, v any) (bool, error) {
	if err := ValidateDocumentName(name); err != nil {
		return false, err
	}
	s.mu.RLock()
	raw, ok := s.docs[name]
	s.mu.RUnlock()
	if !ok {
		return false, nil
	}
	if err := json.Unmarshal(raw, v); err != nil {
		return false, fmt.Errorf("decode %s: %w", name, err)
	}
	return true, nil
}

// Save encodes v under name.
func (s *MemoryDocumentStore) Save(ctx context.Context, name string, v any) error {
	if err := ValidateDocumentName(name); err != nil {
		return err
	}
	raw, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("encode %s: %w", name, err)
	}
	s.mu.Lock()
	s.docs[name] = raw
	s.mu.Unlock()
	return nil
}
