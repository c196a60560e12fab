package migrations

import (
	"context"
	_ "embed"

	"github.com/uptrace/bun"
	"github.com/uptrace/bun/migrate"
)

//go:embed 2026101901_create_quiz_tables.sql
var createQuizTablesSQL string

//go:embed 2026101902_create_quiz_history.sql
var createQuizHistorySQL string

var Migrations = migrate.NewMigrations()

func init() {
	Migrations.Add(migrate.Migration{
		Name:    "2026101901",
		Comment: "create_quiz_tables",
		Up:      execSQL(createQuizTablesSQL),
		Down:    execSQL(`DROP TABLE IF EXISTS choices, questions, quizzes, users`),
	})
	Migrations.Add(migrate.Migration{
		Name:    "2026101902",
		Comment: "create_quiz_history",
		Up:      execSQL(createQuizHistorySQL),
		Down:    execSQL(`DROP TABLE IF EXISTS quiz_history`),
	})
}

func execSQL(query string) migrate.MigrationFunc {
	return func(ctx context.Context, db *bun.DB) error {
		_, err := db.ExecContext(ctx, query)
		return err
	}
}
