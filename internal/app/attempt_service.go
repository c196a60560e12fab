package app

import (
	"context"
	"log"
	"time"

	"github.com/google/uuid"
	"quiz-runner/internal/attempt"
	"quiz-runner/internal/domain"
)

// AttemptStore abstracts where live attempts are kept (in-memory, Redis-marked, etc).
type AttemptStore interface {
	Put(a *Attempt)
	Get(attemptID string) (*Attempt, bool)
	Delete(attemptID string)
}

// QuizRepository loads quiz content (from cache/backing store).
type QuizRepository interface {
	GetQuiz(ctx context.Context, ref domain.QuizRef) (domain.Quiz, error)
}

// HistoryRepository persists finished attempts. List returns newest first;
// a limit <= 0 lists everything.
type HistoryRepository interface {
	Record(ctx context.Context, entry domain.HistoryEntry) (domain.HistoryEntry, error)
	List(ctx context.Context, userID string, limit int) ([]domain.HistoryEntry, error)
}

// HistoryStatsSource is implemented by history collaborators that aggregate
// on their side, so stats cover every entry rather than a listed page.
type HistoryStatsSource interface {
	Stats(ctx context.Context, userID string) (domain.HistoryStats, error)
}

// StartRequest describes a new attempt. TimeLimitMinutes is only read when HasTimeLimit is set.
type StartRequest struct {
	UserID           string
	Ref              domain.QuizRef
	HasTimeLimit     bool
	TimeLimitMinutes string
	ShuffleQuestions bool
	ShuffleOptions   bool
}

// AttemptService contains the quiz-taking use cases.
type AttemptService struct {
	attempts AttemptStore
	quizzes  QuizRepository
	history  HistoryRepository

	now            func() time.Time
	tickInterval   time.Duration
	persistTimeout time.Duration
	engineOpts     []attempt.Option
}

// ServiceOption customizes an AttemptService.
type ServiceOption func(*AttemptService)

// WithClock is used by tests for deterministic timestamps.
func WithClock(now func() time.Time) ServiceOption {
	return func(s *AttemptService) {
		s.now = now
		s.engineOpts = append(s.engineOpts, attempt.WithClock(now))
	}
}

// WithTickInterval sets the countdown cadence. Zero disables the background
// ticker; callers then drive Tick themselves.
func WithTickInterval(d time.Duration) ServiceOption {
	return func(s *AttemptService) { s.tickInterval = d }
}

// WithPersistTimeout bounds each history write.
func WithPersistTimeout(d time.Duration) ServiceOption {
	return func(s *AttemptService) { s.persistTimeout = d }
}

// WithEngineOptions passes options to every engine the service creates.
func WithEngineOptions(opts ...attempt.Option) ServiceOption {
	return func(s *AttemptService) { s.engineOpts = append(s.engineOpts, opts...) }
}

func NewAttemptService(store AttemptStore, quizzes QuizRepository, history HistoryRepository, opts ...ServiceOption) *AttemptService {
	s := &AttemptService{
		attempts:       store,
		quizzes:        quizzes,
		history:        history,
		now:            time.Now,
		tickInterval:   time.Second,
		persistTimeout: 5 * time.Second,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Start loads the quiz, prepares a run and begins the countdown.
func (s *AttemptService) Start(ctx context.Context, req StartRequest) (domain.AttemptSnapshot, error) {
	cfg, err := domain.NewRunConfiguration(req.HasTimeLimit, req.TimeLimitMinutes, req.ShuffleQuestions, req.ShuffleOptions)
	if err != nil {
		return domain.AttemptSnapshot{}, err
	}
	quiz, err := s.quizzes.GetQuiz(ctx, req.Ref)
	if err != nil {
		return domain.AttemptSnapshot{}, err
	}

	a := newAttempt(uuid.NewString(), req.UserID, quiz, attempt.New(quiz.Questions, cfg, s.engineOpts...))
	s.attempts.Put(a)
	snap, err := a.start()
	if err != nil {
		s.attempts.Delete(a.ID())
		return domain.AttemptSnapshot{}, err
	}
	s.settle(a)
	if s.tickInterval > 0 {
		go s.runTicker(a)
	}
	return snap, nil
}

// SelectOption records the pending choice for the displayed question.
func (s *AttemptService) SelectOption(_ context.Context, attemptID string, index int) (domain.AttemptSnapshot, error) {
	a, err := s.get(attemptID)
	if err != nil {
		return domain.AttemptSnapshot{}, err
	}
	snap, err := a.selectOption(index)
	s.settle(a)
	return snap, err
}

// AnswerText records the pending free-text response for the displayed question.
func (s *AttemptService) AnswerText(_ context.Context, attemptID, text string) (domain.AttemptSnapshot, error) {
	a, err := s.get(attemptID)
	if err != nil {
		return domain.AttemptSnapshot{}, err
	}
	snap, err := a.answerText(text)
	s.settle(a)
	return snap, err
}

// Proceed submits the pending response and moves on or finishes.
func (s *AttemptService) Proceed(_ context.Context, attemptID string) (domain.AttemptSnapshot, error) {
	a, err := s.get(attemptID)
	if err != nil {
		return domain.AttemptSnapshot{}, err
	}
	snap, err := a.proceed()
	s.settle(a)
	return snap, err
}

// Tick advances the countdown once. The background ticker calls the same path.
func (s *AttemptService) Tick(_ context.Context, attemptID string) (domain.AttemptSnapshot, error) {
	a, err := s.get(attemptID)
	if err != nil {
		return domain.AttemptSnapshot{}, err
	}
	snap := a.tick()
	s.settle(a)
	return snap, nil
}

// Cancel abandons the attempt without producing a result. Cancelling a
// finished attempt only releases it.
func (s *AttemptService) Cancel(_ context.Context, attemptID string) error {
	a, err := s.get(attemptID)
	if err != nil {
		return err
	}
	a.cancel()
	s.attempts.Delete(attemptID)
	return nil
}

// Snapshot returns the current view of an attempt.
func (s *AttemptService) Snapshot(_ context.Context, attemptID string) (domain.AttemptSnapshot, error) {
	a, err := s.get(attemptID)
	if err != nil {
		return domain.AttemptSnapshot{}, err
	}
	return a.snapshot(), nil
}

// Result returns the run result once the attempt has finished.
func (s *AttemptService) Result(_ context.Context, attemptID string) (domain.RunResult, error) {
	a, err := s.get(attemptID)
	if err != nil {
		return domain.RunResult{}, err
	}
	res, ok := a.result()
	if !ok {
		return domain.RunResult{}, attempt.ErrNotRunning
	}
	return res, nil
}

// Subscribe returns a channel that receives snapshots for an attempt.
// The caller must invoke the returned cancel function to avoid leaks.
func (s *AttemptService) Subscribe(_ context.Context, attemptID string) (<-chan domain.AttemptSnapshot, func(), error) {
	a, err := s.get(attemptID)
	if err != nil {
		return nil, nil, err
	}
	ch, cancel := a.subscribe()
	return ch, cancel, nil
}

// History lists a player's finished attempts, newest first.
func (s *AttemptService) History(ctx context.Context, userID string, limit int) ([]domain.HistoryEntry, error) {
	if limit <= 0 {
		limit = domain.DefaultHistoryLimit
	}
	return s.history.List(ctx, userID, limit)
}

// Stats aggregates a player's whole history.
func (s *AttemptService) Stats(ctx context.Context, userID string) (domain.HistoryStats, error) {
	if src, ok := s.history.(HistoryStatsSource); ok {
		return src.Stats(ctx, userID)
	}
	entries, err := s.history.List(ctx, userID, 0)
	if err != nil {
		return domain.HistoryStats{}, err
	}
	return domain.SummarizeHistory(entries), nil
}

func (s *AttemptService) get(attemptID string) (*Attempt, error) {
	a, ok := s.attempts.Get(attemptID)
	if !ok {
		return nil, domain.ErrAttemptNotFound
	}
	return a, nil
}

func (s *AttemptService) runTicker(a *Attempt) {
	ticker := time.NewTicker(s.tickInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			a.tick()
			s.settle(a)
		case <-a.Done():
			return
		}
	}
}

// settle hands a freshly finished result to the history collaborator. The
// write runs in the background; a failure is logged and never touches the
// result already shown to the player.
func (s *AttemptService) settle(a *Attempt) {
	res, ok := a.claimResult()
	if !ok || s.history == nil {
		return
	}
	entry := domain.NewHistoryEntry(a.UserID(), a.quiz, res, s.now())
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), s.persistTimeout)
		defer cancel()
		if _, err := s.history.Record(ctx, entry); err != nil {
			log.Printf("persist history for attempt %s: %v", a.ID(), err)
		}
	}()
}
