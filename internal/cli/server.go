package cli

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"exam-sync-service/internal/app"
	"exam-sync-service/internal/config"
	"exam-sync-service/internal/domain"
	"exam-sync-service/internal/infra/memory"
	pgstore "exam-sync-service/internal/infra/postgres"
	rediscache "exam-sync-service/internal/infra/redis"
	"exam-sync-service/internal/logging"
	"exam-sync-service/internal/metrics"
	transport "exam-sync-service/internal/transport/http"

	"github.com/jackc/pgx/v4/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"
)

// NewStartCmd builds the CLI subcommand to start the server.
func NewStartCmd(configPath, port *string) *cobra.Command {
	return &cobra.Command{
		Use:   "start",
		Short: "Start the exam sync server",
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

	logger := logging.New("exam-sync-service", cfg.Log.Level)

	if cfg.Postgres.URL != "" {
		if err := runMigrationsWithConfig(ctx, cfg); err != nil {
			return err
		}
	}

	finalPort := portFlag
	if finalPort == "" {
		finalPort = cfg.Server.Port
	}
	if finalPort == "" {
		finalPort = "8080"
	}

	var pool *pgxpool.Pool
	if cfg.Postgres.URL != "" {
		pool, err = pgxpool.Connect(ctx, cfg.Postgres.URL)
		if err != nil {
			return err
		}
		defer pool.Close()
	}

	var exams app.ExamRepository
	var results app.ResultRepository
	if pool != nil {
		exams = pgstore.NewExamStore(pool)
		results = pgstore.NewResultStore(pool)
	} else {
		logger.Warn("postgres not configured, falling back to in-memory stores")
		exams = memory.NewExamStoreWith(sampleExam())
		results = memory.NewResultStore()
	}

	if cfg.Redis.Addr != "" {
		redisClient := redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		cacheTTL := config.TTLDuration(cfg.Exam.CacheTTL, 10*time.Minute)
		exams = rediscache.NewExamCache(redisClient, exams, cacheTTL)
	}

	service := app.NewExamService(exams, results)

	var auth *transport.TeacherAuth
	if cfg.Auth.JWTSecret != "" {
		auth = transport.NewTeacherAuth(cfg.Auth.JWTSecret, cfg.Auth.Issuer)
	} else {
		logger.Warn("teacher auth disabled, dashboard routes are open")
	}

	handler := transport.NewHandler(service, logger, metrics.New("server"), auth)

	server := &http.Server{
		Addr:         ":" + finalPort,
		Handler:      handler.Router(),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
	}

	go func() {
		logger.Infof("starting exam sync service on :%s", finalPort)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.WithError(err).Error("failed to start server")
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	select {
	case <-stop:
		logger.Info("shutting down server...")
	case <-ctx.Done():
		logger.Info("context canceled, shutting down server...")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return server.Shutdown(shutdownCtx)
}

// sampleExam seeds the in-memory store so a freshly started dev server has
// something to serve.
func sampleExam() domain.Exam {
	return domain.Exam{
		Code:     "DEMO01",
		AuthorID: "demo",
		Questions: []domain.Question{
			{
				ID:            "q1",
				Type:          domain.MultipleChoice,
				Text:          "What is the capital of France?",
				Options:       []string{"Paris", "London", "Berlin"},
				CorrectAnswer: "Paris",
			},
			{
				ID:   "q2",
				Type: domain.TrueFalse,
				Text: "Mark each statement",
				Rows: []domain.TrueFalseRow{{Text: "The earth is flat", Answer: boolPtr(false)}},
			},
		},
		Config: domain.ExamConfig{
			TimeLimitMinutes:        30,
			AutoSaveIntervalSeconds: 10,
			PublishState:            domain.PublishStatePublished,
		},
	}
}

func boolPtr(b bool) *bool { return &b }
