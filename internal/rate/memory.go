package rate

import (
	"context"
	"sync"
	"time"
)

type memoryEntry struct {
	count   int64
	resetAt time.Time
}

// MemoryStore is the single-process [Store]. All state sits behind one
// mutex; the expected population is small (one entry per active client per
// bucket) and entries are swept on a fixed interval.
type MemoryStore struct {
	mu      sync.Mutex
	entries map[string]*memoryEntry

	sweepStop chan struct{}
	sweepDone chan struct{}
	stopOnce  sync.Once

	now func() time.Time
}

// NewMemoryStore creates an empty store. Callers that want expired records
// reclaimed should also call [MemoryStore.StartSweep].
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		entries: make(map[string]*memoryEntry),
		now:     time.Now,
	}
}

// Incr implements [Store]. Expired records are treated as absent, so
// correctness never depends on the sweeper having run.
func (s *MemoryStore) Incr(_ context.Context, key string, limit int64, window time.Duration) (Hit, error) {
	now := s.now()

	s.mu.Lock()
	defer s.mu.Unlock()

	entry, ok := s.entries[key]
	if !ok || !now.Before(entry.resetAt) {
		entry = &memoryEntry{count: 1, resetAt: now.Add(window)}
		s.entries[key] = entry
		return Hit{Count: 1, ResetAt: entry.resetAt, Allowed: limit >= 1}, nil
	}

	if entry.count >= limit {
		return Hit{Count: entry.count, ResetAt: entry.resetAt, Allowed: false}, nil
	}
	entry.count++
	return Hit{Count: entry.count, ResetAt: entry.resetAt, Allowed: true}, nil
}

// Reset implements [Store].
func (s *MemoryStore) Reset(_ context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.entries, key)
	return nil
}

// StartSweep launches the background reclaim of expired records. The sweep
// is an allocation optimization only and never blocks request-serving
// goroutines beyond the store mutex.
func (s *MemoryStore) StartSweep(interval time.Duration) {
	if interval <= 0 || s.sweepStop != nil {
		return
	}
	s.sweepStop = make(chan struct{})
	s.sweepDone = make(chan struct{})

	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		defer close(s.sweepDone)

		for {
			select {
			case <-ticker.C:
				s.sweep()
			case <-s.sweepStop:
				return
			}
		}
	}()
}

// Close stops the sweeper, if running.
func (s *MemoryStore) Close() {
	s.stopOnce.Do(func() {
		if s.sweepStop != nil {
			close(s.sweepStop)
			<-s.sweepDone
		}
	})
}

func (s *MemoryStore) sweep() {
	now := s.now()

	s.mu.Lock()
	defer s.mu.Unlock()
	for key, entry := range s.entries {
		if !now.Before(entry.resetAt) {
			delete(s.entries, key)
		}
	}
}

func (s *MemoryStore) size() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.entries)
}
