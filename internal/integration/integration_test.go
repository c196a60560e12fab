package integration

import (
	"context"
	"database/sql"
	"fmt"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/jackc/pgx/v4/pgxpool"
	goredis "github.com/redis/go-redis/v9"
	tc "github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/pgdialect"
	"github.com/uptrace/bun/driver/pgdriver"
	"github.com/uptrace/bun/migrate"
	"quiz-runner/internal/app"
	"quiz-runner/internal/domain"
	"quiz-runner/internal/infra/postgres"
	pgmigrations "quiz-runner/internal/infra/postgres/migrations"
	infraredis "quiz-runner/internal/infra/redis"
)

func TestAttemptEndToEnd(t *testing.T) {
	ctx := context.Background()
	requireDocker(t)

	pgURL, pgCleanup := startPostgres(t, ctx)
	defer pgCleanup()
	redisURL, redisCleanup := startRedis(t, ctx)
	defer redisCleanup()

	db := openDB(pgURL)
	defer db.Close()
	migrateDB(t, ctx, db)
	quizID := seedQuiz(t, ctx, db)

	pool, err := pgxpool.Connect(ctx, pgURL)
	if err != nil {
		t.Fatalf("connect pg: %v", err)
	}
	defer pool.Close()

	redisClient, err := redisClientFromURL(redisURL)
	if err != nil {
		t.Fatalf("redis client: %v", err)
	}
	defer redisClient.Close()

	history := postgres.NewHistoryStore(db)
	quizRepo := infraredis.NewQuizRepository(redisClient, postgres.NewQuizLoader(pool), 5*time.Minute)
	attempts := infraredis.NewAttemptStore(redisClient, 5*time.Minute)
	service := app.NewAttemptService(attempts, quizRepo, history, app.WithTickInterval(0))

	snap, err := service.Start(ctx, app.StartRequest{UserID: "u1", Ref: domain.ByID(quizID)})
	if err != nil {
		t.Fatalf("start: %v", err)
	}
	if snap.Total != 2 || snap.QuizTitle != "Capitals" {
		t.Fatalf("unexpected attempt %+v", snap)
	}

	for snap.State == "running" {
		switch snap.Question.Kind {
		case domain.MultipleChoice:
			if _, err := service.SelectOption(ctx, snap.AttemptID, 1); err != nil {
				t.Fatalf("select: %v", err)
			}
		case domain.FreeText:
			if _, err := service.AnswerText(ctx, snap.AttemptID, "TOKYO "); err != nil {
				t.Fatalf("text: %v", err)
			}
		}
		if snap, err = service.Proceed(ctx, snap.AttemptID); err != nil {
			t.Fatalf("proceed: %v", err)
		}
	}
	if snap.Result == nil || snap.Result.ScorePercent != 100 {
		t.Fatalf("expected full marks, got %+v", snap.Result)
	}

	entries := waitForHistory(t, ctx, service, "u1")
	if entries[0].QuizID != quizID || entries[0].Score != 100 || entries[0].IsExternal {
		t.Fatalf("unexpected history %+v", entries[0])
	}

	// The same quiz taken through its share code is recorded as external.
	shared, err := service.Start(ctx, app.StartRequest{UserID: "u2", Ref: domain.ByShareCode("caps01")})
	if err != nil {
		t.Fatalf("start shared: %v", err)
	}
	if err := service.Cancel(ctx, shared.AttemptID); err != nil {
		t.Fatalf("cancel shared: %v", err)
	}
	quiz, err := quizRepo.GetQuiz(ctx, domain.ByShareCode("CAPS01"))
	if err != nil || !quiz.External || quiz.OwnerName != "Ana" {
		t.Fatalf("unexpected shared quiz %+v, %v", quiz, err)
	}
}

func waitForHistory(t *testing.T, ctx context.Context, service *app.AttemptService, userID string) []domain.HistoryEntry {
	t.Helper()
	deadline := time.Now().Add(10 * time.Second)
	for time.Now().Before(deadline) {
		entries, err := service.History(ctx, userID, 0)
		if err != nil {
			t.Fatalf("history: %v", err)
		}
		if len(entries) > 0 {
			return entries
		}
		time.Sleep(50 * time.Millisecond)
	}
	t.Fatalf("history not recorded for %s", userID)
	return nil
}

func startPostgres(t *testing.T, ctx context.Context) (string, func()) {
	t.Helper()
	req := tc.ContainerRequest{
		Image:        "postgres:15-alpine",
		Env:          map[string]string{"POSTGRES_USER": "quiz", "POSTGRES_PASSWORD": "quizpass", "POSTGRES_DB": "quizdb"},
		ExposedPorts: []string{"5432/tcp"},
		WaitingFor:   wait.ForLog("database system is ready to accept connections").WithOccurrence(2).WithStartupTimeout(60 * time.Second),
	}
	container, err := tc.GenericContainer(ctx, tc.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	if err != nil {
		if strings.Contains(err.Error(), "Cannot connect to the Docker daemon") {
			t.Skipf("docker not available: %v", err)
		}
		t.Fatalf("start postgres: %v", err)
	}
	host, err := container.Host(ctx)
	if err != nil {
		t.Fatalf("host: %v", err)
	}
	port, err := container.MappedPort(ctx, "5432/tcp")
	if err != nil {
		t.Fatalf("port: %v", err)
	}
	dsn := fmt.Sprintf("postgres://quiz:quizpass@%s:%s/quizdb?sslmode=disable", host, port.Port())
	return dsn, func() {
		_ = container.Terminate(ctx)
	}
}

func startRedis(t *testing.T, ctx context.Context) (string, func()) {
	t.Helper()
	req := tc.ContainerRequest{
		Image:        "redis:7-alpine",
		ExposedPorts: []string{"6379/tcp"},
		WaitingFor:   wait.ForListeningPort("6379/tcp").WithStartupTimeout(30 * time.Second),
	}
	container, err := tc.GenericContainer(ctx, tc.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	if err != nil {
		if strings.Contains(err.Error(), "Cannot connect to the Docker daemon") {
			t.Skipf("docker not available: %v", err)
		}
		t.Fatalf("start redis: %v", err)
	}
	host, err := container.Host(ctx)
	if err != nil {
		t.Fatalf("redis host: %v", err)
	}
	port, err := container.MappedPort(ctx, "6379/tcp")
	if err != nil {
		t.Fatalf("redis port: %v", err)
	}
	url := fmt.Sprintf("redis://%s:%s", host, port.Port())
	return url, func() {
		_ = container.Terminate(ctx)
	}
}

func openDB(dsn string) *bun.DB {
	sqldb := sql.OpenDB(pgdriver.NewConnector(pgdriver.WithDSN(dsn)))
	return bun.NewDB(sqldb, pgdialect.New())
}

func migrateDB(t *testing.T, ctx context.Context, db *bun.DB) {
	t.Helper()
	migrator := migrate.NewMigrator(db, pgmigrations.Migrations)
	if err := migrator.Init(ctx); err != nil {
		t.Fatalf("migrator init: %v", err)
	}
	if _, err := migrator.Migrate(ctx); err != nil {
		t.Fatalf("migrate: %v", err)
	}
}

// seedQuiz inserts a shared two-question quiz and returns its id.
func seedQuiz(t *testing.T, ctx context.Context, db *bun.DB) string {
	t.Helper()
	var userID, quizID, choiceQ, textQ int64
	if err := db.QueryRowContext(ctx,
		`INSERT INTO users (email, name) VALUES ('ana@example.com', 'Ana') RETURNING id`).Scan(&userID); err != nil {
		t.Fatalf("seed user: %v", err)
	}
	if err := db.QueryRowContext(ctx,
		`INSERT INTO quizzes (title, user_id, share_code, is_public) VALUES ('Capitals', ?, 'CAPS01', true) RETURNING id`,
		userID).Scan(&quizID); err != nil {
		t.Fatalf("seed quiz: %v", err)
	}
	if err := db.QueryRowContext(ctx,
		`INSERT INTO questions (question_text, answer_type, quiz_id) VALUES ('Capital of France?', 'options', ?) RETURNING id`,
		quizID).Scan(&choiceQ); err != nil {
		t.Fatalf("seed choice question: %v", err)
	}
	if err := db.QueryRowContext(ctx,
		`INSERT INTO questions (question_text, answer_type, quiz_id) VALUES ('Capital of Japan?', 'text', ?) RETURNING id`,
		quizID).Scan(&textQ); err != nil {
		t.Fatalf("seed text question: %v", err)
	}
	if _, err := db.ExecContext(ctx,
		`INSERT INTO choices (choice_text, is_correct, question_id) VALUES ('Rome', false, ?), ('Paris', true, ?), ('Tokyo', true, ?)`,
		choiceQ, choiceQ, textQ); err != nil {
		t.Fatalf("seed choices: %v", err)
	}
	return strconv.FormatInt(quizID, 10)
}

func redisClientFromURL(url string) (*goredis.Client, error) {
	opts, err := goredis.ParseURL(url)
	if err != nil {
		return nil, err
	}
	return goredis.NewClient(&goredis.Options{
		Addr:     opts.Addr,
		Password: opts.Password,
		DB:       opts.DB,
	}), nil
}

func requireDocker(t *testing.T) {
	t.Helper()
	if _, err := tc.NewDockerProvider(); err != nil {
		t.Skipf("docker not available: %v", err)
	}
}
