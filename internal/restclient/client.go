package restclient

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"quiz-runner/internal/domain"
)

// ErrServiceUnavailable wraps transport failures talking to the backend.
var ErrServiceUnavailable = errors.New("quiz backend unavailable")

// APIError is a non-2xx response from the backend.
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	if strings.TrimSpace(e.Message) == "" {
		return fmt.Sprintf("request failed with status %d", e.StatusCode)
	}
	return e.Message
}

// Client talks to the quiz REST backend. It loads quizzes (own and shared)
// and records history for the player the bearer token belongs to.
type Client struct {
	baseURL    string
	httpClient *http.Client
	tokens     *TokenSource
	now        func() time.Time
}

func NewClient(baseURL string, httpClient *http.Client, tokens *TokenSource) *Client {
	baseURL = strings.TrimRight(strings.TrimSpace(baseURL), "/")
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 10 * time.Second}
	}
	return &Client{
		baseURL:    baseURL,
		httpClient: httpClient,
		tokens:     tokens,
		now:        time.Now,
	}
}

type choicePayload struct {
	ID         int64  `json:"id"`
	ChoiceText string `json:"choice_text"`
	IsCorrect  bool   `json:"is_correct"`
	QuestionID int64  `json:"question_id"`
}

type questionPayload struct {
	ID           int64           `json:"id"`
	QuestionText string          `json:"question_text"`
	AnswerType   string          `json:"answer_type"`
	QuizID       int64           `json:"quiz_id"`
	Choices      []choicePayload `json:"choices"`
}

type quizPayload struct {
	ID        int64             `json:"id"`
	Title     string            `json:"title"`
	CreatedAt string            `json:"created_at"`
	UserID    int64             `json:"user_id"`
	Questions []questionPayload `json:"questions"`
}

type sharedInfoPayload struct {
	ID            int64  `json:"id"`
	Title         string `json:"title"`
	OwnerName     string `json:"owner_name"`
	QuestionCount int    `json:"question_count"`
	ShareCode     string `json:"share_code"`
}

type historyCreatePayload struct {
	QuizID         *int64  `json:"quiz_id"`
	QuizTitle      string  `json:"quiz_title"`
	Score          int     `json:"score"`
	CorrectAnswers int     `json:"correct_answers"`
	TotalQuestions int     `json:"total_questions"`
	TimeSpent      int     `json:"time_spent"`
	IsExternal     bool    `json:"is_external"`
	OwnerName      *string `json:"owner_name"`
}

type historyEntryPayload struct {
	ID             int64     `json:"id"`
	QuizID         *int64    `json:"quiz_id"`
	QuizTitle      string    `json:"quiz_title"`
	Score          int       `json:"score"`
	CorrectAnswers int       `json:"correct_answers"`
	TotalQuestions int       `json:"total_questions"`
	TimeSpent      int       `json:"time_spent"`
	IsExternal     bool      `json:"is_external"`
	OwnerName      *string   `json:"owner_name"`
	CompletedAt    time.Time `json:"completed_at"`
}

type statsPayload struct {
	TotalQuizzes    int `json:"total_quizzes"`
	AverageScore    int `json:"average_score"`
	TotalCorrect    int `json:"total_correct"`
	TotalQuestions  int `json:"total_questions"`
	TotalTime       int `json:"total_time"`
	ExternalQuizzes int `json:"external_quizzes"`
}

type errorPayload struct {
	Detail string `json:"detail"`
}

// LoadQuiz fetches an owned quiz by id, or a shared quiz and its owner by code.
func (c *Client) LoadQuiz(ctx context.Context, ref domain.QuizRef) (domain.Quiz, error) {
	if !ref.Shared() {
		var payload quizPayload
		if err := c.doJSON(ctx, http.MethodGet, "/quizzes/"+url.PathEscape(ref.ID), nil, &payload); err != nil {
			return domain.Quiz{}, notFound(err)
		}
		return payload.toQuiz(), nil
	}

	code := url.PathEscape(ref.ShareCode)
	var info sharedInfoPayload
	if err := c.doJSON(ctx, http.MethodGet, "/share/code/"+code, nil, &info); err != nil {
		return domain.Quiz{}, notFound(err)
	}
	var payload quizPayload
	if err := c.doJSON(ctx, http.MethodGet, "/share/code/"+code+"/full", nil, &payload); err != nil {
		return domain.Quiz{}, notFound(err)
	}
	quiz := payload.toQuiz()
	quiz.External = true
	quiz.OwnerName = info.OwnerName
	return quiz, nil
}

// Record submits a finished attempt. The backend attributes it to the token's user.
func (c *Client) Record(ctx context.Context, entry domain.HistoryEntry) (domain.HistoryEntry, error) {
	body := historyCreatePayload{
		QuizTitle:      entry.QuizTitle,
		Score:          entry.Score,
		CorrectAnswers: entry.CorrectAnswers,
		TotalQuestions: entry.TotalQuestions,
		TimeSpent:      entry.TimeSpent,
		IsExternal:     entry.IsExternal,
	}
	if id, err := strconv.ParseInt(entry.QuizID, 10, 64); err == nil {
		body.QuizID = &id
	}
	if entry.OwnerName != "" {
		body.OwnerName = &entry.OwnerName
	}

	var created historyEntryPayload
	if err := c.doJSON(ctx, http.MethodPost, "/history/", body, &created); err != nil {
		return domain.HistoryEntry{}, err
	}
	out := created.toEntry()
	out.UserID = entry.UserID
	return out, nil
}

// List returns the token user's history, newest first. userID is carried
// into the entries; the backend scopes the query by token. Without a limit
// the backend applies its own page size of 50.
func (c *Client) List(ctx context.Context, userID string, limit int) ([]domain.HistoryEntry, error) {
	path := "/history/"
	if limit > 0 {
		query := url.Values{}
		query.Set("limit", strconv.Itoa(limit))
		path += "?" + query.Encode()
	}

	var payload []historyEntryPayload
	if err := c.doJSON(ctx, http.MethodGet, path, nil, &payload); err != nil {
		return nil, err
	}
	entries := make([]domain.HistoryEntry, 0, len(payload))
	for _, item := range payload {
		entry := item.toEntry()
		entry.UserID = userID
		entries = append(entries, entry)
	}
	return entries, nil
}

// Stats asks the backend to aggregate the token user's whole history.
func (c *Client) Stats(ctx context.Context, _ string) (domain.HistoryStats, error) {
	var payload statsPayload
	if err := c.doJSON(ctx, http.MethodGet, "/history/stats", nil, &payload); err != nil {
		return domain.HistoryStats{}, err
	}
	return domain.HistoryStats{
		TotalQuizzes:    payload.TotalQuizzes,
		AverageScore:    payload.AverageScore,
		TotalCorrect:    payload.TotalCorrect,
		TotalQuestions:  payload.TotalQuestions,
		TotalTime:       payload.TotalTime,
		ExternalQuizzes: payload.ExternalQuizzes,
	}, nil
}

func (c *Client) doJSON(ctx context.Context, method, path string, requestBody any, responseBody any) error {
	var body io.Reader
	if requestBody != nil {
		encoded, err := json.Marshal(requestBody)
		if err != nil {
			return err
		}
		body = bytes.NewReader(encoded)
	}

	request, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return err
	}
	if requestBody != nil {
		request.Header.Set("Content-Type", "application/json")
	}
	if c.tokens != nil {
		token, err := c.tokens.Token(c.now())
		if err != nil {
			return err
		}
		if token != "" {
			request.Header.Set("Authorization", "Bearer "+token)
		}
	}

	response, err := c.httpClient.Do(request)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrServiceUnavailable, err)
	}
	defer response.Body.Close()

	if response.StatusCode == http.StatusUnauthorized {
		return domain.ErrSessionExpired
	}
	if response.StatusCode < http.StatusOK || response.StatusCode >= http.StatusMultipleChoices {
		apiErr := APIError{StatusCode: response.StatusCode}
		var payload errorPayload
		if err := json.NewDecoder(response.Body).Decode(&payload); err == nil {
			apiErr.Message = payload.Detail
		}
		if apiErr.Message == "" {
			apiErr.Message = response.Status
		}
		return &apiErr
	}

	if responseBody == nil {
		return nil
	}
	return json.NewDecoder(response.Body).Decode(responseBody)
}

func notFound(err error) error {
	var apiErr *APIError
	if errors.As(err, &apiErr) && apiErr.StatusCode == http.StatusNotFound {
		return domain.ErrQuizNotFound
	}
	return err
}

func (p quizPayload) toQuiz() domain.Quiz {
	quiz := domain.Quiz{
		ID:        strconv.FormatInt(p.ID, 10),
		Title:     p.Title,
		Questions: make([]domain.Question, 0, len(p.Questions)),
	}
	for _, q := range p.Questions {
		choices := make([]domain.Choice, 0, len(q.Choices))
		for _, c := range q.Choices {
			choices = append(choices, domain.Choice{Text: c.ChoiceText, IsCorrect: c.IsCorrect})
		}
		quiz.Questions = append(quiz.Questions,
			domain.QuestionFromChoices(strconv.FormatInt(q.ID, 10), q.QuestionText, q.AnswerType, choices))
	}
	return quiz
}

func (p historyEntryPayload) toEntry() domain.HistoryEntry {
	entry := domain.HistoryEntry{
		ID:             p.ID,
		QuizTitle:      p.QuizTitle,
		Score:          p.Score,
		CorrectAnswers: p.CorrectAnswers,
		TotalQuestions: p.TotalQuestions,
		TimeSpent:      p.TimeSpent,
		IsExternal:     p.IsExternal,
		CompletedAt:    p.CompletedAt,
	}
	if p.QuizID != nil {
		entry.QuizID = strconv.FormatInt(*p.QuizID, 10)
	}
	if p.OwnerName != nil {
		entry.OwnerName = *p.OwnerName
	}
	return entry
}
