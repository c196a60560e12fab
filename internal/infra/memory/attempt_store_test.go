package memory_test

import (
	"context"
	"testing"
	"time"

	"quiz-runner/internal/app"
	"quiz-runner/internal/domain"
	"quiz-runner/internal/infra/memory"
)

func TestAttemptStoreLifecycle(t *testing.T) {
	store := memory.NewAttemptStore()
	quizzes := memory.NewQuizRepository(memory.NewStaticQuizLoader(map[string]domain.Quiz{
		"quiz-1": {ID: "quiz-1", Title: "Empty"},
	}), time.Minute)
	service := app.NewAttemptService(store, quizzes, memory.NewHistoryStore(), app.WithTickInterval(0))

	snap, err := service.Start(context.Background(), app.StartRequest{UserID: "u1", Ref: domain.ByID("quiz-1")})
	if err != nil {
		t.Fatalf("start: %v", err)
	}
	if _, ok := store.Get(snap.AttemptID); !ok {
		t.Fatalf("expected attempt present")
	}

	if err := service.Cancel(context.Background(), snap.AttemptID); err != nil {
		t.Fatalf("release finished attempt: %v", err)
	}
	if _, ok := store.Get(snap.AttemptID); ok || store.Len() != 0 {
		t.Fatalf("expected attempt removed")
	}
}
