package postgres

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"
	"quiz-runner/internal/domain"
)

// QuizLoader loads quizzes from the relational quizzes/questions/choices schema.
type QuizLoader struct {
	pool *pgxpool.Pool
}

func NewQuizLoader(pool *pgxpool.Pool) *QuizLoader {
	return &QuizLoader{pool: pool}
}

const (
	quizByIDQuery = `SELECT q.id, q.title, COALESCE(u.name, '')
FROM quizzes q LEFT JOIN users u ON u.id = q.user_id
WHERE q.id = $1`

	quizByShareCodeQuery = `SELECT q.id, q.title, COALESCE(u.name, '')
FROM quizzes q LEFT JOIN users u ON u.id = q.user_id
WHERE upper(q.share_code) = $1 AND q.is_public`

	questionsQuery = `SELECT qs.id, qs.question_text, qs.answer_type, c.choice_text, c.is_correct
FROM questions qs LEFT JOIN choices c ON c.question_id = qs.id
WHERE qs.quiz_id = $1
ORDER BY qs.id, c.id`
)

// LoadQuiz resolves a quiz by id or, for shared quizzes, by public share code.
func (l *QuizLoader) LoadQuiz(ctx context.Context, ref domain.QuizRef) (domain.Quiz, error) {
	var (
		quizID int64
		quiz   domain.Quiz
		row    pgx.Row
	)
	if ref.Shared() {
		row = l.pool.QueryRow(ctx, quizByShareCodeQuery, ref.ShareCode)
	} else {
		id, err := strconv.ParseInt(ref.ID, 10, 64)
		if err != nil {
			return domain.Quiz{}, domain.ErrQuizNotFound
		}
		row = l.pool.QueryRow(ctx, quizByIDQuery, id)
	}
	if err := row.Scan(&quizID, &quiz.Title, &quiz.OwnerName); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.Quiz{}, domain.ErrQuizNotFound
		}
		return domain.Quiz{}, fmt.Errorf("load quiz: %w", err)
	}
	quiz.ID = strconv.FormatInt(quizID, 10)
	quiz.External = ref.Shared()
	if !quiz.External {
		quiz.OwnerName = ""
	}

	questions, err := l.loadQuestions(ctx, quizID)
	if err != nil {
		return domain.Quiz{}, err
	}
	quiz.Questions = questions
	return quiz, nil
}

func (l *QuizLoader) loadQuestions(ctx context.Context, quizID int64) ([]domain.Question, error) {
	rows, err := l.pool.Query(ctx, questionsQuery, quizID)
	if err != nil {
		return nil, fmt.Errorf("load questions: %w", err)
	}
	defer rows.Close()

	type pending struct {
		id, text, answerType string
		choices              []domain.Choice
	}
	var ordered []*pending
	byID := make(map[int64]*pending)

	for rows.Next() {
		var (
			questionID int64
			text       string
			answerType string
			choiceText *string
			isCorrect  *bool
		)
		if err := rows.Scan(&questionID, &text, &answerType, &choiceText, &isCorrect); err != nil {
			return nil, fmt.Errorf("scan question: %w", err)
		}
		p, ok := byID[questionID]
		if !ok {
			p = &pending{id: strconv.FormatInt(questionID, 10), text: text, answerType: answerType}
			byID[questionID] = p
			ordered = append(ordered, p)
		}
		if choiceText != nil {
			p.choices = append(p.choices, domain.Choice{Text: *choiceText, IsCorrect: isCorrect != nil && *isCorrect})
		}
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("read questions: %w", err)
	}

	questions := make([]domain.Question, 0, len(ordered))
	for _, p := range ordered {
		questions = append(questions, domain.QuestionFromChoices(p.id, p.text, p.answerType, p.choices))
	}
	return questions, nil
}
