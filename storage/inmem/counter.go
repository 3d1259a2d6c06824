package inmem

import (
	"context"
	"sync"
	"time"

	"github.com/rotaract/reportdesk/core/sequence"
)

type CounterStore struct {
	mutex    sync.Mutex
	counters map[string]*sequence.Counter
}

var _ sequence.CounterStore = (*CounterStore)(nil)

func NewCounterStore() *CounterStore {
	return &CounterStore{counters: make(map[string]*sequence.Counter)}
}

func (s *CounterStore) SeedCounter(_ context.Context, key string, seq int) error {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	if _, ok := s.counters[key]; !ok {
		s.counters[key] = &sequence.Counter{Key: key, Seq: seq, UpdatedAt: time.Now().UTC()}
	}
	return nil
}

func (s *CounterStore) AdvanceCounter(_ context.Context, key string, limit int) (int, error) {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	c, ok := s.counters[key]
	if !ok {
		return 0, sequence.ErrCounterNotFound
	}
	c.Seq = sequence.Advance(c.Seq, limit)
	c.UpdatedAt = time.Now().UTC()
	return c.Seq, nil
}

func (s *CounterStore) ResetCounters(_ context.Context) error {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	s.counters = make(map[string]*sequence.Counter)
	return nil
}
