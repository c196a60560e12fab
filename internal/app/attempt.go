package app

import (
	"sync"

	"quiz-runner/internal/attempt"
	"quiz-runner/internal/domain"
)

// Attempt is a live quiz attempt: one engine plus the players watching it.
// All engine events go through mu, so a timer tick and a final submission
// are observed one after the other and only the first can finish the run.
type Attempt struct {
	id     string
	userID string
	quiz   domain.Quiz

	mu          sync.Mutex
	engine      *attempt.Engine
	subscribers map[chan domain.AttemptSnapshot]struct{}
	handedOff   bool

	done     chan struct{}
	doneOnce sync.Once
}

func newAttempt(id, userID string, quiz domain.Quiz, engine *attempt.Engine) *Attempt {
	return &Attempt{
		id:          id,
		userID:      userID,
		quiz:        quiz,
		engine:      engine,
		subscribers: make(map[chan domain.AttemptSnapshot]struct{}),
		done:        make(chan struct{}),
	}
}

// ID returns the attempt identifier.
func (a *Attempt) ID() string {
	return a.id
}

// UserID returns the player who owns the attempt.
func (a *Attempt) UserID() string {
	return a.userID
}

// Done is closed once the attempt finishes or is cancelled.
func (a *Attempt) Done() <-chan struct{} {
	return a.done
}

// apply runs one event against the engine. Subscribers see the new snapshot
// only when the event moved the attempt: a state change, or an accepted
// event while running. Rejected events and events on a closed attempt are
// not broadcast. Once the attempt is finished or cancelled every
// subscription is closed.
func (a *Attempt) apply(event func(e *attempt.Engine) error) (domain.AttemptSnapshot, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	before := a.engine.State()
	err := event(a.engine)
	after := a.engine.State()

	snap := a.snapshotLocked()
	if after != before || (err == nil && before == attempt.Running) {
		a.broadcastLocked(snap)
	}
	if terminal(after) {
		a.doneOnce.Do(func() { close(a.done) })
		a.closeSubscribersLocked()
	}
	return snap, err
}

func terminal(st attempt.State) bool {
	return st == attempt.Finished || st == attempt.Cancelled
}

func (a *Attempt) start() (domain.AttemptSnapshot, error) {
	return a.apply(func(e *attempt.Engine) error { return e.Start() })
}

func (a *Attempt) selectOption(index int) (domain.AttemptSnapshot, error) {
	return a.apply(func(e *attempt.Engine) error { return e.SelectOption(index) })
}

func (a *Attempt) answerText(text string) (domain.AttemptSnapshot, error) {
	return a.apply(func(e *attempt.Engine) error { return e.SetText(text) })
}

func (a *Attempt) proceed() (domain.AttemptSnapshot, error) {
	return a.apply(func(e *attempt.Engine) error { return e.Proceed() })
}

func (a *Attempt) tick() domain.AttemptSnapshot {
	snap, _ := a.apply(func(e *attempt.Engine) error {
		e.Tick()
		return nil
	})
	return snap
}

// cancel reports whether the attempt was running and is now discarded.
func (a *Attempt) cancel() bool {
	cancelled := false
	_, _ = a.apply(func(e *attempt.Engine) error {
		cancelled = e.Cancel()
		return nil
	})
	return cancelled
}

func (a *Attempt) snapshot() domain.AttemptSnapshot {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.snapshotLocked()
}

func (a *Attempt) result() (domain.RunResult, bool) {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.engine.Result()
}

// claimResult returns the result the first time it is called after the
// attempt finished, so it is handed to persistence once.
func (a *Attempt) claimResult() (domain.RunResult, bool) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.handedOff {
		return domain.RunResult{}, false
	}
	res, ok := a.engine.Result()
	if !ok {
		return domain.RunResult{}, false
	}
	a.handedOff = true
	return res, true
}

func (a *Attempt) subscribe() (<-chan domain.AttemptSnapshot, func()) {
	ch := make(chan domain.AttemptSnapshot, 8)

	a.mu.Lock()
	ch <- a.snapshotLocked()
	if terminal(a.engine.State()) {
		close(ch)
	} else {
		a.subscribers[ch] = struct{}{}
	}
	a.mu.Unlock()

	cancel := func() {
		a.mu.Lock()
		if _, ok := a.subscribers[ch]; ok {
			delete(a.subscribers, ch)
			close(ch)
		}
		a.mu.Unlock()
	}
	return ch, cancel
}

func (a *Attempt) broadcastLocked(snap domain.AttemptSnapshot) {
	for ch := range a.subscribers {
		select {
		case ch <- snap:
		default:
			// Slow reader: drop the stale snapshot, the newest one supersedes it.
			select {
			case <-ch:
			default:
			}
			ch <- snap
		}
	}
}

func (a *Attempt) closeSubscribersLocked() {
	for ch := range a.subscribers {
		delete(a.subscribers, ch)
		close(ch)
	}
}

func (a *Attempt) snapshotLocked() domain.AttemptSnapshot {
	st := a.engine.Status()
	index, total := a.engine.Position()
	snap := domain.AttemptSnapshot{
		AttemptID:        a.id,
		QuizID:           a.quiz.ID,
		QuizTitle:        a.quiz.Title,
		State:            st.State.String(),
		Index:            index,
		Total:            total,
		CanProceed:       a.engine.CanProceed(),
		ElapsedSeconds:   st.ElapsedSeconds,
		RemainingSeconds: st.RemainingSeconds,
	}
	if q, ok := a.engine.Current(); ok {
		pub := q.Public()
		snap.Question = &pub
	}
	if res, ok := a.engine.Result(); ok {
		snap.Result = &res
	}
	return snap
}
