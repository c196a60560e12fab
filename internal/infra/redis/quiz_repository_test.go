package redis

import (
	"context"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"quiz-runner/internal/domain"
	"quiz-runner/internal/infra/memory"
)

func TestQuizRepositoryCachesInRedis(t *testing.T) {
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("run miniredis: %v", err)
	}
	defer mr.Close()

	client := newClient(mr)

	loader := &countingLoader{
		QuizLoader: memory.NewStaticQuizLoader(map[string]domain.Quiz{
			"quiz-1": sampleQuiz(),
		}),
	}
	repo := NewQuizRepository(client, loader, time.Minute)

	quiz, err := repo.GetQuiz(context.Background(), domain.ByID("quiz-1"))
	if err != nil {
		t.Fatalf("get quiz: %v", err)
	}
	if loader.calls != 1 {
		t.Fatalf("expected loader called once, got %d", loader.calls)
	}
	if !mr.Exists("quiz:id:quiz-1") {
		t.Fatalf("expected quiz cached under quiz:id:quiz-1")
	}
	if ttl := mr.TTL("quiz:id:quiz-1"); ttl < time.Minute || ttl > time.Minute+6*time.Second {
		t.Fatalf("unexpected ttl %v", ttl)
	}

	// Second call should hit cache, loader not incremented.
	cached, err := repo.GetQuiz(context.Background(), domain.ByID("quiz-1"))
	if err != nil {
		t.Fatalf("cached get: %v", err)
	}
	if loader.calls != 1 {
		t.Fatalf("expected cache hit, loader calls=%d", loader.calls)
	}
	if cached.Title != quiz.Title || cached.Questions[0].CorrectIndex != 1 || cached.Questions[0].Options[1] != "4" {
		t.Fatalf("cached quiz lost content: %+v", cached)
	}

	mr.FastForward(2 * time.Minute)
	if mr.Exists("quiz:id:quiz-1") {
		t.Fatalf("expected cached quiz to expire")
	}
	_, _ = repo.GetQuiz(context.Background(), domain.ByID("quiz-1"))
	if loader.calls != 2 {
		t.Fatalf("expected reload after expiry, loader calls=%d", loader.calls)
	}
}

func TestQuizRepositorySharedKey(t *testing.T) {
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("run miniredis: %v", err)
	}
	defer mr.Close()

	static := memory.NewStaticQuizLoader(nil)
	static.Share("XY99ZZ", sampleQuiz())
	repo := NewQuizRepository(newClient(mr), static, time.Minute)

	quiz, err := repo.GetQuiz(context.Background(), domain.ByShareCode("xy99zz"))
	if err != nil {
		t.Fatalf("get shared: %v", err)
	}
	if !quiz.External || !mr.Exists("quiz:code:XY99ZZ") {
		t.Fatalf("expected external quiz cached by code")
	}

	if _, err := repo.GetQuiz(context.Background(), domain.ByID("missing")); err != domain.ErrQuizNotFound {
		t.Fatalf("expected not found, got %v", err)
	}
}

type countingLoader struct {
	QuizLoader
	calls int
}

func (l *countingLoader) LoadQuiz(ctx context.Context, ref domain.QuizRef) (domain.Quiz, error) {
	l.calls++
	return l.QuizLoader.LoadQuiz(ctx, ref)
}

func sampleQuiz() domain.Quiz {
	return domain.Quiz{
		ID:    "quiz-1",
		Title: "Arithmetic",
		Questions: []domain.Question{
			{
				ID:           "q1",
				Text:         "What is 2 + 2?",
				Kind:         domain.MultipleChoice,
				Options:      []string{"3", "4"},
				CorrectIndex: 1,
			},
		},
	}
}

func newClient(mr *miniredis.Miniredis) *redis.Client {
	return redis.NewClient(&redis.Options{
		Addr: mr.Addr(),
	})
}
