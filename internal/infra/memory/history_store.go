package memory

import (
	"context"
	"sort"
	"sync"

	"quiz-runner/internal/domain"
)

// HistoryStore keeps finished attempts in process; used when no database or
// remote API is configured.
type HistoryStore struct {
	mu      sync.RWMutex
	nextID  int64
	entries []domain.HistoryEntry
}

func NewHistoryStore() *HistoryStore {
	return &HistoryStore{}
}

func (s *HistoryStore) Record(_ context.Context, entry domain.HistoryEntry) (domain.HistoryEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextID++
	entry.ID = s.nextID
	s.entries = append(s.entries, entry)
	return entry, nil
}

func (s *HistoryStore) List(_ context.Context, userID string, limit int) ([]domain.HistoryEntry, error) {
	s.mu.RLock()
	out := make([]domain.HistoryEntry, 0, len(s.entries))
	for _, e := range s.entries {
		if e.UserID == userID {
			out = append(out, e)
		}
	}
	s.mu.RUnlock()

	sort.SliceStable(out, func(i, j int) bool {
		if !out[i].CompletedAt.Equal(out[j].CompletedAt) {
			return out[i].CompletedAt.After(out[j].CompletedAt)
		}
		return out[i].ID > out[j].ID
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}
