package store

import (
	"context"
	"sync"
	"time"

	"github.com/sentinelworks/splgen/internal/domain"
	"github.com/sentinelworks/splgen/internal/ports"
)

// MemoryStore keeps records in process memory. It serves tests and runs
// where persistence is not wanted.
type MemoryStore struct {
	mu      sync.RWMutex
	records []domain.RequestRecord
}

var _ ports.RecordStore = (*MemoryStore)(nil)

// NewMemoryStore returns an empty in-memory store.
func NewMemoryStore() *MemoryStore { return &MemoryStore{} }

// Append adds one record. Safe for concurrent use.
func (s *MemoryStore) Append(_ context.Context, record domain.RequestRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.records = append(s.records, record)
	return nil
}

// Stats aggregates counts for one identity, with since bounding
// RecentCount.
func (s *MemoryStore) Stats(_ context.Context, identity string, since time.Time) (domain.RecordStats, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var stats domain.RecordStats
	for _, r := range s.records {
		if r.Identity != identity {
			continue
		}
		stats.Total++
		if r.Success {
			stats.Successful++
		}
		if !r.CreatedAt.Before(since) {
			stats.RecentCount++
		}
	}
	if stats.Total > 0 {
		stats.SuccessRate = float64(stats.Successful) / float64(stats.Total)
	}
	return stats, nil
}

// Records returns a copy of everything appended so far.
func (s *MemoryStore) Records() []domain.RequestRecord {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]domain.RequestRecord, len(s.records))
	copy(out, s.records)
	return out
}
