package output

import (
	"context"
	"fmt"
	"sort"
	"sync"
)

// MemoryStore keeps output in process memory. Used by tests and when no
// persistent backend is configured.
type MemoryStore struct {
	mu   sync.RWMutex
	runs map[string]map[string][]byte
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{runs: make(map[string]map[string][]byte)}
}

func (s *MemoryStore) Put(_ context.Context, runID, path string, content []byte) error {
	if s == nil {
		return fmt.Errorf("store is nil")
	}
	runID, path, err := normalizeKey(runID, path)
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	files, ok := s.runs[runID]
	if !ok {
		files = make(map[string][]byte)
		s.runs[runID] = files
	}
	files[path] = append([]byte(nil), content...)
	return nil
}

func (s *MemoryStore) Get(_ context.Context, runID, path string) ([]byte, error) {
	if s == nil {
		return nil, fmt.Errorf("store is nil")
	}
	runID, path, err := normalizeKey(runID, path)
	if err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	raw, ok := s.runs[runID][path]
	if !ok {
		return nil, ErrNotFound
	}
	return append([]byte(nil), raw...), nil
}

func (s *MemoryStore) List(_ context.Context, runID string) ([]string, error) {
	if s == nil {
		return nil, fmt.Errorf("store is nil")
	}
	runID, err := normalizeRunID(runID)
	if err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]string, 0, len(s.runs[runID]))
	for p := range s.runs[runID] {
		out = append(out, p)
	}
	sort.Strings(out)
	return out, nil
}

// GetURL always returns "": memory output has no addressable location.
func (s *MemoryStore) GetURL(_ context.Context, runID, path string) (string, error) {
	if _, _, err := normalizeKey(runID, path); err != nil {
		return "", err
	}
	return "", nil
}

// Runs lists run ids with at least one stored file.
func (s *MemoryStore) Runs() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]string, 0, len(s.runs))
	for id := range s.runs {
		out = append(out, id)
	}
	sort.Strings(out)
	return out
}

var _ Store = (*MemoryStore)(nil)
