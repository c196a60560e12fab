package memory

import (
	"context"
	"testing"
	"time"

	"quiz-runner/internal/domain"
)

func TestHistoryStoreListsNewestFirst(t *testing.T) {
	store := NewHistoryStore()
	ctx := context.Background()
	base := time.Date(2026, 10, 19, 9, 0, 0, 0, time.UTC)

	for i, user := range []string{"u1", "u2", "u1", "u1"} {
		entry, err := store.Record(ctx, domain.HistoryEntry{
			UserID:      user,
			QuizTitle:   "quiz",
			Score:       i * 10,
			CompletedAt: base.Add(time.Duration(i) * time.Minute),
		})
		if err != nil {
			t.Fatalf("record: %v", err)
		}
		if entry.ID != int64(i+1) {
			t.Fatalf("expected id %d, got %d", i+1, entry.ID)
		}
	}

	all, _ := store.List(ctx, "u1", 0)
	if len(all) != 3 || all[0].Score != 30 || all[2].Score != 0 {
		t.Fatalf("unexpected order %+v", all)
	}
	limited, _ := store.List(ctx, "u1", 2)
	if len(limited) != 2 || limited[1].Score != 20 {
		t.Fatalf("unexpected limited list %+v", limited)
	}
}
