package localstore

import (
	"sync"
	"time"
)

// snapshot memoizes a computed slice for at most maxAge.
// Every mutation of the store must call invalidate.
type snapshot struct {
	mu       sync.Mutex
	maxAge   time.Duration
	now      func() time.Time
	records  []Record
	loadedAt time.Time
	valid    bool
}

func newSnapshot(maxAge time.Duration, now func() time.Time) *snapshot {
	return &snapshot{maxAge: maxAge, now: now}
}

func (s *snapshot) get() ([]Record, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.valid || s.maxAge <= 0 || s.now().Sub(s.loadedAt) > s.maxAge {
		return nil, false
	}
	return cloneRecords(s.records), true
}

func (s *snapshot) set(records []Record) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.records = cloneRecords(records)
	s.loadedAt = s.now()
	s.valid = true
}

func (s *snapshot) invalidate() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.records = nil
	s.valid = false
}

func cloneRecords(in []Record) []Record {
	if in == nil {
		return nil
	}
	out := make([]Record, len(in))
	copy(out, in)
	return out
}
