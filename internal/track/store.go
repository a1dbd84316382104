package track

import (
	"fmt"
	"sort"
	"sync"
	"time"

	"sibyl/internal/logger"
)

// Store 持有全部在途交易记录。构造后注入协作方（显式依赖，不用全局态）。
// All transitions funnel through Transition, which is the single place a
// record changes and therefore the single place the bus is published: one
// publish per applied transition, never more.
type Store struct {
	mu      sync.RWMutex
	records map[string]Record
	bus     *Bus
	nowFn   func() time.Time
}

func NewStore(bus *Bus) *Store {
	return &Store{
		records: make(map[string]Record),
		bus:     bus,
		nowFn:   time.Now,
	}
}

// Insert registers a freshly submitted transaction. The record always starts
// in SUBMITTED regardless of the caller-provided status field.
func (s *Store) Insert(rec Record) error {
	if rec.ID == "" {
		return fmt.Errorf("track: record requires a transaction id")
	}
	s.mu.Lock()
	if _, exists := s.records[rec.ID]; exists {
		s.mu.Unlock()
		return fmt.Errorf("track: duplicate transaction id %s", rec.ID)
	}
	rec.Status = StatusSubmitted
	rec.SubmittedAt = s.nowFn()
	s.records[rec.ID] = rec
	s.mu.Unlock()

	if s.bus != nil {
		s.bus.Publish(rec)
	}
	return nil
}

// Transition advances the record to the given status. Returns the updated
// record and whether the transition was applied. Disallowed edges (regressions,
// moves out of a terminal state) are dropped with a warning, keeping the
// forward-only invariant intact.
func (s *Store) Transition(id string, to Status, reason string) (Record, bool) {
	s.mu.Lock()
	rec, ok := s.records[id]
	if !ok {
		s.mu.Unlock()
		logger.Warnf("track: transition for unknown transaction %s ignored", id)
		return Record{}, false
	}
	if !canAdvance(rec.Status, to) {
		s.mu.Unlock()
		if rec.Status != to {
			logger.Warnf("track: illegal transition %s -> %s for %s ignored", rec.Status, to, id)
		}
		return rec, false
	}
	now := s.nowFn()
	switch to {
	case StatusAccepted:
		rec.AcceptedAt = now
	case StatusFinalized:
		rec.FinalizedAt = now
	}
	rec.Status = to
	rec.Err = reason
	s.records[id] = rec
	s.mu.Unlock()

	if s.bus != nil {
		s.bus.Publish(rec)
	}
	return rec, true
}

func (s *Store) Get(id string) (Record, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	rec, ok := s.records[id]
	return rec, ok
}

// List returns all records ordered by submission time (oldest first).
func (s *Store) List() []Record {
	s.mu.RLock()
	out := make([]Record, 0, len(s.records))
	for _, rec := range s.records {
		out = append(out, rec)
	}
	s.mu.RUnlock()
	sort.Slice(out, func(i, j int) bool {
		return out[i].SubmittedAt.Before(out[j].SubmittedAt)
	})
	return out
}

// BySymbol filters List by ticker.
func (s *Store) BySymbol(symbol string) []Record {
	all := s.List()
	out := all[:0]
	for _, rec := range all {
		if rec.Symbol == symbol {
			out = append(out, rec)
		}
	}
	return out
}

func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.records)
}
