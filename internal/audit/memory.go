package audit

import (
	"context"
	"sync"
)

// MemorySink keeps records in memory. Useful for tests and local runs.
type MemorySink struct {
	mu      sync.RWMutex
	records []Record
}

func NewMemorySink() *MemorySink {
	return &MemorySink{}
}

func (s *MemorySink) Append(_ context.Context, rec Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.records = append(s.records, rec)
	return nil
}

// List returns the organization's records, newest first.
func (s *MemorySink) List(_ context.Context, orgID string, limit int) ([]Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if limit <= 0 {
		limit = 50
	}
	out := make([]Record, 0, limit)
	for i := len(s.records) - 1; i >= 0 && len(out) < limit; i-- {
		if s.records[i].OrganizationID == orgID {
			out = append(out, s.records[i])
		}
	}
	return out, nil
}

// Len reports the total number of stored records.
func (s *MemorySink) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.records)
}
