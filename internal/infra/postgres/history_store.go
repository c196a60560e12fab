package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/uptrace/bun"
	"quiz-runner/internal/domain"
)

type historyRow struct {
	bun.BaseModel `bun:"table:quiz_history"`

	ID             int64          `bun:"id,pk,autoincrement"`
	UserID         string         `bun:"user_id,notnull"`
	QuizID         sql.NullString `bun:"quiz_id"`
	QuizTitle      string         `bun:"quiz_title,notnull"`
	Score          int            `bun:"score,notnull"`
	CorrectAnswers int            `bun:"correct_answers,notnull"`
	TotalQuestions int            `bun:"total_questions,notnull"`
	TimeSpent      int            `bun:"time_spent,notnull"`
	IsExternal     bool           `bun:"is_external,notnull"`
	OwnerName      sql.NullString `bun:"owner_name"`
	CompletedAt    time.Time      `bun:"completed_at,notnull"`
}

// HistoryStore persists finished attempts in the quiz_history table.
type HistoryStore struct {
	db *bun.DB
}

func NewHistoryStore(db *bun.DB) *HistoryStore {
	return &HistoryStore{db: db}
}

func (s *HistoryStore) Record(ctx context.Context, entry domain.HistoryEntry) (domain.HistoryEntry, error) {
	row := toHistoryRow(entry)
	if _, err := s.db.NewInsert().Model(&row).Returning("id").Exec(ctx); err != nil {
		return domain.HistoryEntry{}, fmt.Errorf("insert history: %w", err)
	}
	entry.ID = row.ID
	return entry, nil
}

func (s *HistoryStore) List(ctx context.Context, userID string, limit int) ([]domain.HistoryEntry, error) {
	var rows []historyRow
	q := s.db.NewSelect().
		Model(&rows).
		Where("user_id = ?", userID).
		OrderExpr("completed_at DESC, id DESC")
	if limit > 0 {
		q = q.Limit(limit)
	}
	if err := q.Scan(ctx); err != nil {
		return nil, fmt.Errorf("list history: %w", err)
	}

	entries := make([]domain.HistoryEntry, 0, len(rows))
	for _, row := range rows {
		entries = append(entries, row.toEntry())
	}
	return entries, nil
}

func toHistoryRow(e domain.HistoryEntry) historyRow {
	return historyRow{
		UserID:         e.UserID,
		QuizID:         sql.NullString{String: e.QuizID, Valid: e.QuizID != ""},
		QuizTitle:      e.QuizTitle,
		Score:          e.Score,
		CorrectAnswers: e.CorrectAnswers,
		TotalQuestions: e.TotalQuestions,
		TimeSpent:      e.TimeSpent,
		IsExternal:     e.IsExternal,
		OwnerName:      sql.NullString{String: e.OwnerName, Valid: e.OwnerName != ""},
		CompletedAt:    e.CompletedAt,
	}
}

func (r historyRow) toEntry() domain.HistoryEntry {
	return domain.HistoryEntry{
		ID:             r.ID,
		UserID:         r.UserID,
		QuizID:         r.QuizID.String,
		QuizTitle:      r.QuizTitle,
		Score:          r.Score,
		CorrectAnswers: r.CorrectAnswers,
		TotalQuestions: r.TotalQuestions,
		TimeSpent:      r.TimeSpent,
		IsExternal:     r.IsExternal,
		OwnerName:      r.OwnerName.String,
		CompletedAt:    r.CompletedAt,
	}
}
