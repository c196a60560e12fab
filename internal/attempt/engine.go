package attempt

import (
	"errors"
	"math/rand"
	"time"

	"quiz-runner/internal/domain"
)

// State is the lifecycle position of an attempt.
type State int

const (
	NotStarted State = iota
	Running
	Finished
	Cancelled
)

func (s State) String() string {
	switch s {
	case NotStarted:
		return "not_started"
	case Running:
		return "running"
	case Finished:
		return "finished"
	case Cancelled:
		return "cancelled"
	default:
		return "unknown"
	}
}

var (
	// ErrNotRunning is returned for events that arrive outside the Running state.
	ErrNotRunning = errors.New("attempt is not running")
	// ErrNoAnswer is returned by Proceed while no response is pending.
	ErrNoAnswer = errors.New("no answer to submit")
	// ErrWrongAnswerKind is returned when a choice is given to a free-text question or vice versa.
	ErrWrongAnswerKind = errors.New("answer does not match question kind")
	// ErrOptionOutOfRange is returned for a choice index outside the question's options.
	ErrOptionOutOfRange = errors.New("option index out of range")
)

// Option customizes an Engine.
type Option func(*Engine)

// WithClock replaces time.Now, mostly for tests.
func WithClock(now func() time.Time) Option {
	return func(e *Engine) { e.now = now }
}

// WithRand sets the random source used for shuffling.
func WithRand(rnd *rand.Rand) Option {
	return func(e *Engine) { e.rnd = rnd }
}

// Status is what a timer tick reports back to the display.
type Status struct {
	State            State
	ElapsedSeconds   int
	RemainingSeconds *int
}

// Engine runs one quiz attempt. It is not safe for concurrent use; callers
// feed it events from a single goroutine or behind a lock.
type Engine struct {
	cfg    domain.RunConfiguration
	source []domain.Question
	now    func() time.Time
	rnd    *rand.Rand

	state     State
	questions []domain.PreparedQuestion
	current   int
	answers   []domain.AnswerRecord

	selected int
	text     string

	runStart      time.Time
	questionStart time.Time
	elapsed       int

	result *domain.RunResult
}

// New builds an engine for the given questions. Nothing is prepared until Start.
func New(questions []domain.Question, cfg domain.RunConfiguration, opts ...Option) *Engine {
	e := &Engine{
		cfg:      cfg,
		source:   questions,
		now:      time.Now,
		selected: domain.NoSelection,
	}
	for _, opt := range opts {
		opt(e)
	}
	if e.rnd == nil {
		e.rnd = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	return e
}

// Start prepares the questions and enters Running. An empty quiz finishes
// immediately with a zero result.
func (e *Engine) Start() error {
	if e.state != NotStarted {
		return ErrNotRunning
	}
	e.questions = Prepare(e.source, e.cfg, e.rnd)
	e.answers = make([]domain.AnswerRecord, 0, len(e.questions))

	now := e.now()
	e.runStart = now
	e.questionStart = now
	e.state = Running

	if len(e.questions) == 0 {
		e.finish(domain.CompletedBySubmit, 0)
	}
	return nil
}

// State reports the current lifecycle state.
func (e *Engine) State() State {
	return e.state
}

// Questions returns the prepared questions in run order.
func (e *Engine) Questions() []domain.PreparedQuestion {
	return append([]domain.PreparedQuestion(nil), e.questions...)
}

// Current returns the displayed question while Running.
func (e *Engine) Current() (domain.PreparedQuestion, bool) {
	if e.state != Running || e.current >= len(e.questions) {
		return domain.PreparedQuestion{}, false
	}
	return e.questions[e.current], true
}

// Position returns the zero-based index of the displayed question and the total.
func (e *Engine) Position() (int, int) {
	return e.current, len(e.questions)
}

// SelectOption records the pending choice for a multiple-choice question.
func (e *Engine) SelectOption(index int) error {
	q, err := e.pendingTarget()
	if err != nil {
		return err
	}
	if q.Kind != domain.MultipleChoice {
		return ErrWrongAnswerKind
	}
	if index < 0 || index >= len(q.Options) {
		return ErrOptionOutOfRange
	}
	e.selected = index
	return nil
}

// SetText records the pending response for a free-text question.
func (e *Engine) SetText(text string) error {
	q, err := e.pendingTarget()
	if err != nil {
		return err
	}
	if q.Kind != domain.FreeText {
		return ErrWrongAnswerKind
	}
	e.text = text
	return nil
}

// CanProceed reports whether the displayed question has a usable response.
func (e *Engine) CanProceed() bool {
	q, ok := e.Current()
	if !ok {
		return false
	}
	if q.Kind == domain.MultipleChoice {
		return e.selected != domain.NoSelection
	}
	return domain.NormalizeFreeText(e.text) != ""
}

// Proceed submits the pending response. On the last question the attempt
// finishes; otherwise the next question is displayed. If the deadline has
// already passed, the timeout path runs instead.
func (e *Engine) Proceed() error {
	if e.state != Running {
		return ErrNotRunning
	}
	now := e.now()
	if e.expired(now) {
		e.timeout(now)
		return nil
	}
	if !e.CanProceed() {
		return ErrNoAnswer
	}

	e.answers = append(e.answers, e.scoreCurrent(now))
	if e.current == len(e.questions)-1 {
		e.elapsed = seconds(now.Sub(e.runStart))
		e.finish(domain.CompletedBySubmit, e.elapsed)
		return nil
	}

	e.current++
	e.selected = domain.NoSelection
	e.text = ""
	e.questionStart = now
	return nil
}

// Tick updates the elapsed counter and enforces the time limit. Ticks outside
// Running change nothing.
func (e *Engine) Tick() Status {
	if e.state == Running {
		now := e.now()
		e.elapsed = seconds(now.Sub(e.runStart))
		if e.expired(now) {
			e.timeout(now)
		}
	}
	return e.Status()
}

// Status reports the display counters without advancing anything.
func (e *Engine) Status() Status {
	st := Status{State: e.state, ElapsedSeconds: e.elapsed}
	if e.cfg.HasTimeLimit() {
		remaining := *e.cfg.TimeLimitSeconds - e.elapsed
		if remaining < 0 {
			remaining = 0
		}
		st.RemainingSeconds = &remaining
	}
	return st
}

// Cancel discards the attempt. It reports false when the attempt had already
// finished, in which case the result stays available.
func (e *Engine) Cancel() bool {
	if e.state == Finished || e.state == Cancelled {
		return false
	}
	e.state = Cancelled
	e.questions = nil
	e.answers = nil
	e.selected = domain.NoSelection
	e.text = ""
	return true
}

// Result returns the finished result.
func (e *Engine) Result() (domain.RunResult, bool) {
	if e.state != Finished || e.result == nil {
		return domain.RunResult{}, false
	}
	res := *e.result
	res.Answers = append([]domain.AnswerRecord{}, e.result.Answers...)
	return res, true
}

func (e *Engine) pendingTarget() (domain.PreparedQuestion, error) {
	if e.state != Running {
		return domain.PreparedQuestion{}, ErrNotRunning
	}
	if now := e.now(); e.expired(now) {
		e.timeout(now)
		return domain.PreparedQuestion{}, ErrNotRunning
	}
	q, _ := e.Current()
	return q, nil
}

func (e *Engine) expired(now time.Time) bool {
	if !e.cfg.HasTimeLimit() {
		return false
	}
	return !now.Before(e.deadline())
}

func (e *Engine) deadline() time.Time {
	return e.runStart.Add(time.Duration(*e.cfg.TimeLimitSeconds) * time.Second)
}

// timeout closes the attempt at the deadline. The displayed question keeps a
// pending response if it has one; every question not yet answered gets the
// unanswered sentinel, so the answer list matches the prepared list exactly.
func (e *Engine) timeout(now time.Time) {
	if deadline := e.deadline(); now.After(deadline) {
		now = deadline
	}
	if e.CanProceed() {
		e.answers = append(e.answers, e.scoreCurrent(now))
	}
	for _, q := range e.questions[len(e.answers):] {
		e.answers = append(e.answers, domain.Unanswered(q.Question))
	}
	e.elapsed = *e.cfg.TimeLimitSeconds
	e.finish(domain.CompletedByTimeout, *e.cfg.TimeLimitSeconds)
}

func (e *Engine) scoreCurrent(now time.Time) domain.AnswerRecord {
	q := e.questions[e.current]
	record := domain.AnswerRecord{
		QuestionID:       q.ID,
		Kind:             q.Kind,
		SelectedIndex:    domain.NoSelection,
		IsCorrect:        IsCorrect(q.Question, e.selected, e.text),
		TimeSpentSeconds: seconds(now.Sub(e.questionStart)),
	}
	if q.Kind == domain.MultipleChoice {
		record.SelectedIndex = e.selected
	} else {
		record.TextAnswer = e.text
	}
	return record
}

func (e *Engine) finish(how domain.Completion, totalSeconds int) {
	res := Assemble(e.answers, totalSeconds)
	res.Completion = how
	e.result = &res
	e.state = Finished
}

func seconds(d time.Duration) int {
	if d < 0 {
		return 0
	}
	return int(d / time.Second)
}
