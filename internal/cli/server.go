package cli

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v4/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"
	"quiz-runner/internal/app"
	"quiz-runner/internal/config"
	"quiz-runner/internal/domain"
	"quiz-runner/internal/infra/memory"
	"quiz-runner/internal/infra/postgres"
	infraredis "quiz-runner/internal/infra/redis"
	"quiz-runner/internal/restclient"
	transport "quiz-runner/internal/transport/http"
)

// NewStartCmd builds the CLI subcommand to start the server.
func NewStartCmd(configPath, port *string) *cobra.Command {
	return &cobra.Command{
		Use:   "start",
		Short: "Start the quiz runner server",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServer(cmd.Context(), *configPath, *port)
		},
	}
}

func runServer(ctx context.Context, configPath, portFlag string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}

	finalPort := portFlag
	if finalPort == "" {
		finalPort = cfg.Server.Port
	}
	if finalPort == "" {
		finalPort = "8080"
	}

	var redisClient *redis.Client
	if cfg.Redis.Addr != "" {
		redisClient = redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		defer redisClient.Close()
	}
	redisTTL := config.Duration(cfg.Redis.TTL, 10*time.Minute)

	var (
		loader  memory.QuizLoader
		history app.HistoryRepository
	)
	switch {
	case cfg.API.BaseURL != "":
		client := restclient.NewClient(cfg.API.BaseURL, nil, restclient.NewTokenSource(cfg.API.TokenPath))
		loader, history = client, client
		log.Printf("using quiz backend at %s", cfg.API.BaseURL)
	case cfg.Postgres.URL != "":
		db := openBunDB(cfg.Postgres.URL)
		defer db.Close()
		if err := migrateDB(ctx, db); err != nil {
			return err
		}
		pool, err := pgxpool.Connect(ctx, cfg.Postgres.URL)
		if err != nil {
			return err
		}
		defer pool.Close()
		loader, history = postgres.NewQuizLoader(pool), postgres.NewHistoryStore(db)
	default:
		loader, history = sampleLoader(), memory.NewHistoryStore()
		log.Printf("no backend configured, serving sample quizzes")
	}

	quizTTL := config.Duration(cfg.Quiz.TTL, 10*time.Minute)
	var (
		quizRepo app.QuizRepository
		store    app.AttemptStore
	)
	if redisClient != nil {
		quizRepo = infraredis.NewQuizRepository(redisClient, loader, quizTTL)
		store = infraredis.NewAttemptStore(redisClient, redisTTL)
	} else {
		quizRepo = memory.NewQuizRepository(loader, quizTTL)
		store = memory.NewAttemptStore()
	}

	service := app.NewAttemptService(store, quizRepo, history,
		app.WithTickInterval(config.Duration(cfg.Attempt.TickInterval, time.Second)),
		app.WithPersistTimeout(config.Duration(cfg.Attempt.PersistTimeout, 5*time.Second)),
	)

	server := &http.Server{
		Addr:        ":" + finalPort,
		Handler:     transport.Routes(service),
		ReadTimeout: 15 * time.Second,
	}

	go func() {
		log.Printf("starting quiz runner on :%s", finalPort)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Printf("failed to start server: %v", err)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	select {
	case <-stop:
		log.Println("shutting down server...")
	case <-ctx.Done():
		log.Println("context canceled, shutting down server...")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return server.Shutdown(shutdownCtx)
}

// sampleLoader serves a small built-in catalogue when no backend is configured.
func sampleLoader() *memory.StaticQuizLoader {
	geography := domain.Quiz{
		ID:    "quiz-1",
		Title: "World capitals",
		Questions: []domain.Question{
			{
				ID:           "q1",
				Text:         "What is the capital of France?",
				Kind:         domain.MultipleChoice,
				Options:      []string{"Madrid", "Paris", "Rome", "Berlin"},
				CorrectIndex: 1,
			},
			{
				ID:             "q2",
				Text:           "What is the capital of Japan?",
				Kind:           domain.FreeText,
				ExpectedAnswer: "Tokyo",
			},
			{
				ID:           "q3",
				Text:         "What is the capital of Canada?",
				Kind:         domain.MultipleChoice,
				Options:      []string{"Toronto", "Vancouver", "Ottawa"},
				CorrectIndex: 2,
			},
		},
	}
	loader := memory.NewStaticQuizLoader(map[string]domain.Quiz{geography.ID: geography})

	shared := geography
	shared.OwnerName = "Demo"
	loader.Share("DEMO01", shared)
	return loader
}
