package domain

import (
	"strings"
	"time"
)

// AnswerKind tells how a question is answered.
type AnswerKind string

const (
	FreeText       AnswerKind = "text"
	MultipleChoice AnswerKind = "options"
)

// NoSelection marks a multiple-choice question that was never answered.
const NoSelection = -1

// Question is a quiz question as loaded from the backing store.
// For MultipleChoice, CorrectIndex points into Options; for FreeText,
// ExpectedAnswer is compared case and whitespace insensitively.
type Question struct {
	ID             string     `json:"id"`
	Text           string     `json:"text"`
	Kind           AnswerKind `json:"answerKind"`
	Options        []string   `json:"options,omitempty"`
	CorrectIndex   int        `json:"correctIndex"`
	ExpectedAnswer string     `json:"expectedAnswer,omitempty"`
}

// PreparedQuestion is a question after run-time reordering. It is derived once
// per attempt and never mutated afterwards.
type PreparedQuestion struct {
	Question
	// SourceIndex is the question's position in the loaded quiz.
	SourceIndex int `json:"sourceIndex"`
}

// PublicQuestion is the view of a question sent to players; it carries no answer key.
type PublicQuestion struct {
	ID      string     `json:"id"`
	Text    string     `json:"text"`
	Kind    AnswerKind `json:"answerKind"`
	Options []string   `json:"options,omitempty"`
}

// Public strips the answer key.
func (q Question) Public() PublicQuestion {
	var options []string
	if q.Kind == MultipleChoice {
		options = append([]string(nil), q.Options...)
	}
	return PublicQuestion{ID: q.ID, Text: q.Text, Kind: q.Kind, Options: options}
}

// RunConfiguration holds the rules for one attempt. A nil TimeLimitSeconds means unlimited.
type RunConfiguration struct {
	TimeLimitSeconds *int `json:"timeLimitSeconds"`
	ShuffleQuestions bool `json:"shuffleQuestions"`
	ShuffleOptions   bool `json:"shuffleOptions"`
}

// HasTimeLimit reports whether the attempt is bounded by a countdown.
func (c RunConfiguration) HasTimeLimit() bool {
	return c.TimeLimitSeconds != nil
}

// AnswerRecord is the outcome for one prepared question.
type AnswerRecord struct {
	QuestionID string     `json:"questionId"`
	Kind       AnswerKind `json:"answerKind"`
	// SelectedIndex is NoSelection for unanswered or free-text questions.
	SelectedIndex    int    `json:"selectedIndex"`
	TextAnswer       string `json:"textAnswer"`
	IsCorrect        bool   `json:"isCorrect"`
	TimeSpentSeconds int    `json:"timeSpentSeconds"`
}

// Answered reports whether the record holds a real response rather than the sentinel.
func (a AnswerRecord) Answered() bool {
	if a.Kind == MultipleChoice {
		return a.SelectedIndex != NoSelection
	}
	return strings.TrimSpace(a.TextAnswer) != ""
}

// Unanswered builds the sentinel record for a question the player never answered.
func Unanswered(q Question) AnswerRecord {
	return AnswerRecord{
		QuestionID:    q.ID,
		Kind:          q.Kind,
		SelectedIndex: NoSelection,
	}
}

// Completion names the path that finished an attempt.
type Completion string

const (
	CompletedBySubmit  Completion = "submitted"
	CompletedByTimeout Completion = "timeout"
)

// RunResult is produced exactly once per finished attempt.
type RunResult struct {
	TotalQuestions   int            `json:"totalQuestions"`
	CorrectCount     int            `json:"correctCount"`
	IncorrectCount   int            `json:"incorrectCount"`
	ScorePercent     int            `json:"scorePercent"`
	TotalTimeSeconds int            `json:"totalTimeSeconds"`
	Completion       Completion     `json:"completion"`
	Band             ScoreBand      `json:"band"`
	Answers          []AnswerRecord `json:"answers"`
}

// ScoreBand is a coarse rating of a score.
type ScoreBand string

const (
	BandExcellent      ScoreBand = "excellent"
	BandVeryGood       ScoreBand = "very_good"
	BandGood           ScoreBand = "good"
	BandNeedsReview    ScoreBand = "needs_review"
	BandKeepPractising ScoreBand = "keep_practising"
)

// BandFor maps a percentage score to its band.
func BandFor(scorePercent int) ScoreBand {
	switch {
	case scorePercent >= 90:
		return BandExcellent
	case scorePercent >= 70:
		return BandVeryGood
	case scorePercent >= 50:
		return BandGood
	case scorePercent >= 30:
		return BandNeedsReview
	default:
		return BandKeepPractising
	}
}

// Quiz is a titled collection of questions.
type Quiz struct {
	ID        string     `json:"id"`
	Title     string     `json:"title"`
	OwnerName string     `json:"ownerName,omitempty"`
	External  bool       `json:"external"`
	Questions []Question `json:"questions"`
}

// QuizRef identifies a quiz either by its own id or by a share code.
type QuizRef struct {
	ID        string `json:"id,omitempty"`
	ShareCode string `json:"shareCode,omitempty"`
}

// ByShareCode builds a ref for a shared quiz; codes are case insensitive.
func ByShareCode(code string) QuizRef {
	return QuizRef{ShareCode: strings.ToUpper(strings.TrimSpace(code))}
}

// ByID builds a ref for an owned quiz.
func ByID(id string) QuizRef {
	return QuizRef{ID: strings.TrimSpace(id)}
}

// Shared reports whether the ref points at a shared quiz.
func (r QuizRef) Shared() bool {
	return r.ShareCode != ""
}

// Key is a stable cache key for the ref.
func (r QuizRef) Key() string {
	if r.Shared() {
		return "code:" + r.ShareCode
	}
	return "id:" + r.ID
}

// HistoryEntry is the persisted summary of a finished attempt.
type HistoryEntry struct {
	ID             int64     `json:"id"`
	UserID         string    `json:"userId"`
	QuizID         string    `json:"quizId,omitempty"` // empty for shared quizzes
	QuizTitle      string    `json:"quizTitle"`
	Score          int       `json:"score"`
	CorrectAnswers int       `json:"correctAnswers"`
	TotalQuestions int       `json:"totalQuestions"`
	TimeSpent      int       `json:"timeSpent"`
	IsExternal     bool      `json:"isExternal"`
	OwnerName      string    `json:"ownerName,omitempty"`
	CompletedAt    time.Time `json:"completedAt"`
}

// NewHistoryEntry summarizes a result for the given quiz and player.
func NewHistoryEntry(userID string, quiz Quiz, result RunResult, completedAt time.Time) HistoryEntry {
	entry := HistoryEntry{
		UserID:         userID,
		QuizTitle:      quiz.Title,
		Score:          result.ScorePercent,
		CorrectAnswers: result.CorrectCount,
		TotalQuestions: result.TotalQuestions,
		TimeSpent:      result.TotalTimeSeconds,
		IsExternal:     quiz.External,
		CompletedAt:    completedAt,
	}
	if quiz.External {
		entry.OwnerName = quiz.OwnerName
	} else {
		entry.QuizID = quiz.ID
	}
	return entry
}

// HistoryStats aggregates a player's history.
type HistoryStats struct {
	TotalQuizzes    int `json:"totalQuizzes"`
	AverageScore    int `json:"averageScore"`
	TotalCorrect    int `json:"totalCorrect"`
	TotalQuestions  int `json:"totalQuestions"`
	TotalTime       int `json:"totalTime"`
	ExternalQuizzes int `json:"externalQuizzes"`
}

// DefaultHistoryLimit caps history listings when the caller passes no limit.
const DefaultHistoryLimit = 50

// AttemptSnapshot is the client-facing view of an attempt after an event.
type AttemptSnapshot struct {
	AttemptID        string          `json:"attemptId"`
	QuizID           string          `json:"quizId,omitempty"`
	QuizTitle        string          `json:"quizTitle"`
	State            string          `json:"state"`
	Index            int             `json:"index"`
	Total            int             `json:"total"`
	Question         *PublicQuestion `json:"question,omitempty"`
	CanProceed       bool            `json:"canProceed"`
	ElapsedSeconds   int             `json:"elapsedSeconds"`
	RemainingSeconds *int            `json:"remainingSeconds,omitempty"`
	Result           *RunResult      `json:"result,omitempty"`
}

// Choice is a stored answer row as the backend keeps it: one row per option,
// or a single row holding the expected text for free-text questions.
type Choice struct {
	Text      string
	IsCorrect bool
}

// QuestionFromChoices maps a stored question and its choice rows. An
// answer type of "text" yields a free-text question keyed on the first
// choice; anything else is multiple choice.
func QuestionFromChoices(id, text, answerType string, choices []Choice) Question {
	q := Question{ID: id, Text: text, CorrectIndex: NoSelection}
	if AnswerKind(answerType) == FreeText {
		q.Kind = FreeText
		if len(choices) > 0 {
			q.ExpectedAnswer = choices[0].Text
		}
		return q
	}
	q.Kind = MultipleChoice
	q.Options = make([]string, len(choices))
	for i, c := range choices {
		q.Options[i] = c.Text
		if c.IsCorrect && q.CorrectIndex == NoSelection {
			q.CorrectIndex = i
		}
	}
	return q
}
