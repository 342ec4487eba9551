package storage

import (
	"context"
	"fmt"
	"sync"

	"github.com/makerhub/makerhub/internal/domain"
)

// MemoryStore is an in-memory InstanceStore with the same optimistic version
// semantics as the durable one. It backs tests and local development without
// a SurrealDB instance.
type MemoryStore struct {
	mu      sync.Mutex
	records map[string]*InstanceRecord
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{records: make(map[string]*InstanceRecord)}
}

func (s *MemoryStore) Get(_ context.Context, id string) (*InstanceRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, ok := s.records[id]
	if !ok {
		return nil, fmt.Errorf("instance %s: %w", id, domain.ErrInstanceNotFound)
	}
	clone := cloneRecord(rec)
	return &clone, nil
}

func (s *MemoryStore) Create(_ context.Context, rec *InstanceRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.records[rec.ID]; ok {
		return fmt.Errorf("instance %s: %w", rec.ID, domain.ErrInstanceExists)
	}
	rec.Version = 1
	clone := cloneRecord(rec)
	s.records[rec.ID] = &clone
	return nil
}

func (s *MemoryStore) Update(_ context.Context, rec *InstanceRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	stored, ok := s.records[rec.ID]
	if !ok {
		return fmt.Errorf("instance %s: %w", rec.ID, domain.ErrInstanceNotFound)
	}
	if stored.Version != rec.Version {
		return fmt.Errorf("instance %s: %w", rec.ID, domain.ErrVersionConflict)
	}
	rec.Version++
	clone := cloneRecord(rec)
	s.records[rec.ID] = &clone
	return nil
}

// cloneRecord copies a record deeply enough that callers cannot mutate the
// stored copy through shared slices.
func cloneRecord(rec *InstanceRecord) InstanceRecord {
	clone := *rec
	clone.Instance.InputEventHandlers = append([]domain.InputEventHandler(nil), rec.Instance.InputEventHandlers...)
	clone.Instance.OutputReceivers = append([]domain.OutputReceiver(nil), rec.Instance.OutputReceivers...)
	return clone
}
