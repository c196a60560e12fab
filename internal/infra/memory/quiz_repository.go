package memory

import (
	"context"
	"math/rand"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"
	"quiz-runner/internal/domain"
)

// QuizLoader fetches quiz content from a backing store (Postgres, REST API, ...).
type QuizLoader interface {
	LoadQuiz(ctx context.Context, ref domain.QuizRef) (domain.Quiz, error)
}

// QuizRepository caches quizzes with TTL to avoid repeated loads.
type QuizRepository struct {
	loader QuizLoader
	ttl    time.Duration
	clock  func() time.Time
	sf     singleflight.Group
	rnd    *rand.Rand
	rndMu  sync.Mutex

	mu    sync.RWMutex
	cache map[string]cachedQuiz
}

type cachedQuiz struct {
	quiz      domain.Quiz
	expiresAt time.Time
}

func NewQuizRepository(loader QuizLoader, ttl time.Duration) *QuizRepository {
	return &QuizRepository{
		loader: loader,
		ttl:    ttl,
		clock:  time.Now,
		rnd:    rand.New(rand.NewSource(time.Now().UnixNano())),
		cache:  make(map[string]cachedQuiz),
	}
}

func (r *QuizRepository) GetQuiz(ctx context.Context, ref domain.QuizRef) (domain.Quiz, error) {
	key := ref.Key()
	if quiz, ok := r.cached(key); ok {
		return quiz, nil
	}

	result, err, _ := r.sf.Do(key, func() (interface{}, error) {
		if quiz, ok := r.cached(key); ok {
			return quiz, nil
		}

		quiz, err := r.loader.LoadQuiz(ctx, ref)
		if err != nil {
			return domain.Quiz{}, err
		}

		r.mu.Lock()
		r.cache[key] = cachedQuiz{
			quiz:      quiz,
			expiresAt: r.clock().Add(r.ttlWithJitter()),
		}
		r.mu.Unlock()
		return quiz, nil
	})
	if err != nil {
		return domain.Quiz{}, err
	}
	return result.(domain.Quiz), nil
}

func (r *QuizRepository) cached(key string) (domain.Quiz, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	entry, ok := r.cache[key]
	if !ok || !entry.expiresAt.After(r.clock()) {
		return domain.Quiz{}, false
	}
	return entry.quiz, true
}

func (r *QuizRepository) ttlWithJitter() time.Duration {
	if r.ttl <= 0 {
		return 0
	}
	// add up to 10% jitter to spread expirations
	jitterMax := int64(r.ttl) / 10
	r.rndMu.Lock()
	defer r.rndMu.Unlock()
	return r.ttl + time.Duration(r.rnd.Int63n(jitterMax+1))
}

// StaticQuizLoader is a simple loader backed by in-memory maps (useful for tests/demos).
type StaticQuizLoader struct {
	mu      sync.RWMutex
	quizzes map[string]domain.Quiz
	shared  map[string]domain.Quiz
}

func NewStaticQuizLoader(quizzes map[string]domain.Quiz) *StaticQuizLoader {
	return &StaticQuizLoader{quizzes: quizzes, shared: make(map[string]domain.Quiz)}
}

// Share exposes a quiz under a share code; loading it by code marks it external.
func (l *StaticQuizLoader) Share(code string, quiz domain.Quiz) {
	quiz.External = true
	l.mu.Lock()
	defer l.mu.Unlock()
	l.shared[domain.ByShareCode(code).ShareCode] = quiz
}

func (l *StaticQuizLoader) LoadQuiz(_ context.Context, ref domain.QuizRef) (domain.Quiz, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	if ref.Shared() {
		if quiz, ok := l.shared[ref.ShareCode]; ok {
			return quiz, nil
		}
		return domain.Quiz{}, domain.ErrQuizNotFound
	}
	if quiz, ok := l.quizzes[ref.ID]; ok {
		return quiz, nil
	}
	return domain.Quiz{}, domain.ErrQuizNotFound
}
