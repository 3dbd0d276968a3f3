package trace

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"
)

// MemoryStore keeps traces in process. Traces are copied on the way in and
// out so callers cannot mutate stored records.
type MemoryStore struct {
	mu       sync.RWMutex
	traces   map[string][]byte
	sessions map[string][]string
}

var _ Store = (*MemoryStore)(nil)

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		traces:   make(map[string][]byte),
		sessions: make(map[string][]string),
	}
}

func (s *MemoryStore) Save(_ context.Context, t *Trace) error {
	if err := t.Validate(); err != nil {
		return err
	}
	data, err := json.Marshal(t)
	if err != nil {
		return fmt.Errorf("marshal trace: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.traces[t.ID]; !exists && t.SessionID != "" {
		s.sessions[t.SessionID] = append(s.sessions[t.SessionID], t.ID)
	}
	s.traces[t.ID] = data
	return nil
}

func (s *MemoryStore) Load(_ context.Context, id string) (*Trace, error) {
	if strings.TrimSpace(id) == "" {
		return nil, ErrInvalidID
	}

	s.mu.RLock()
	data, ok := s.traces[id]
	s.mu.RUnlock()
	if !ok {
		return nil, ErrTraceNotFound
	}

	var t Trace
	if err := json.Unmarshal(data, &t); err != nil {
		return nil, fmt.Errorf("unmarshal trace: %w", err)
	}
	return &t, nil
}

func (s *MemoryStore) SessionTraces(_ context.Context, sessionID string) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]string(nil), s.sessions[sessionID]...), nil
}
