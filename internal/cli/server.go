package cli

import (
	"context"
	"errors"
	"fmt"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/jackc/pgx/v4/pgxpool"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"
	"github.com/uptrace/bun"
	"go.opentelemetry.io/otel"
	"golang.org/x/time/rate"

	"live-quiz-service/internal/app"
	"live-quiz-service/internal/auth"
	"live-quiz-service/internal/config"
	"live-quiz-service/internal/distribution"
	"live-quiz-service/internal/domain"
	"live-quiz-service/internal/infra/memory"
	"live-quiz-service/internal/infra/postgres"
	infraredis "live-quiz-service/internal/infra/redis"
	"live-quiz-service/internal/metrics"
	transport "live-quiz-service/internal/transport/http"
)

// NewStartCmd builds the CLI subcommand to start the server.
func NewStartCmd(configPath, port *string) *cobra.Command {
	return &cobra.Command{
		Use:   "start",
		Short: "Start the quiz server",
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
	if cfg.Auth.Secret == "" {
		return errors.New("auth secret not configured (set auth.secret or JWT_SECRET)")
	}
	logger := newLogger(cfg.Log.Level)

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

	var (
		registry *prometheus.Registry
		m        *metrics.Metrics
	)
	if cfg.Metrics.Enabled {
		registry = prometheus.NewRegistry()
		registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
		m = metrics.New(registry)
	}

	var redisClient *redis.Client
	if cfg.Redis.Addr != "" {
		redisClient = redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		defer redisClient.Close()
		if err := redisClient.Ping(ctx).Err(); err != nil {
			return fmt.Errorf("redis ping: %w", err)
		}
	}

	var (
		pool  *pgxpool.Pool
		bunDB *bun.DB
	)
	if cfg.Postgres.URL != "" {
		pool, err = pgxpool.Connect(ctx, cfg.Postgres.URL)
		if err != nil {
			return err
		}
		defer pool.Close()
		bunDB = openBun(cfg.Postgres.URL)
		defer bunDB.Close()
	}

	var loader memory.QuizLoader = memory.NewStaticQuizLoader(sampleQuizzes())
	if pool != nil {
		loader = postgres.NewQuizLoader(pool)
	}

	quizTTL := config.Duration(cfg.Quiz.TTL, 10*time.Minute)
	var quizRepo app.QuizRepository
	if redisClient != nil {
		quizRepo = infraredis.NewQuizRepository(redisClient, loader, quizTTL)
	} else {
		quizRepo = memory.NewQuizRepository(loader, quizTTL)
	}

	var games interface {
		app.GameRepository
		distribution.GameLoader
	}
	var bus distribution.Bus
	if redisClient != nil {
		games = infraredis.NewGameStore(redisClient, config.Duration(cfg.Game.Retention, 24*time.Hour), m)
		bus = distribution.NewRedisBus(redisClient, cfg.Redis.Channel, logger)
	} else {
		games = memory.NewGameStore()
		bus = distribution.NewChannelBus(logger)
	}
	defer bus.Close()

	var results app.ResultRepository = memory.NewResultStore()
	if bunDB != nil {
		results = postgres.NewResultStore(bunDB)
	}

	distributor := distribution.NewDistributor(bus, games, distribution.Options{
		Heartbeat: config.Duration(cfg.Game.Heartbeat, distribution.DefaultHeartbeat),
		Buffer:    cfg.Game.StreamBuffer,
		Logger:    logger,
		Metrics:   m,
	})
	if err := distributor.Start(ctx); err != nil {
		return err
	}
	defer distributor.Stop()

	service := app.NewGameService(games, quizRepo, results, distribution.NewPublisher(bus, logger, m), app.Options{
		Logger:       logger,
		Tracer:       otel.Tracer("live-quiz-service"),
		Metrics:      m,
		PendingDelay: config.Duration(cfg.Game.PendingDelay, app.DefaultPendingDelay),
	})
	defer service.Close()

	opts := transport.Options{
		Logger:       logger,
		InboundRate:  rate.Limit(cfg.Websocket.Rate),
		InboundBurst: cfg.Websocket.Burst,
	}
	if registry != nil {
		opts.Gatherer = registry
	}
	tokens := auth.NewTokens(cfg.Auth.Secret, config.Duration(cfg.Auth.TokenTTL, 12*time.Hour))
	handler := transport.NewHandler(service, distributor, tokens, opts)

	server := &http.Server{
		Addr:         ":" + finalPort,
		Handler:      handler.Routes(),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
	}

	go func() {
		log.Printf("starting quiz service on :%s", finalPort)
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

func newLogger(level string) *slog.Logger {
	var l slog.Level
	switch strings.ToLower(level) {
	case "debug":
		l = slog.LevelDebug
	case "warn":
		l = slog.LevelWarn
	case "error":
		l = slog.LevelError
	default:
		l = slog.LevelInfo
	}
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: l}))
	slog.SetDefault(logger)
	return logger
}

// sampleQuizzes provides a minimal set of quiz data; configure postgres.url to load real quizzes.
func sampleQuizzes() map[string]domain.Quiz {
	return map[string]domain.Quiz{
		"quiz-1": {
			ID:    "quiz-1",
			Title: "Warm-up",
			Questions: []domain.Question{
				&domain.MultiChoiceQuestion{
					QuestionBase: domain.QuestionBase{Text: "What is 2 + 2?", Points: 1000, Duration: 20},
					Options: []domain.Option{
						{Value: "3"},
						{Value: "4", Correct: true},
						{Value: "5"},
					},
				},
				&domain.TrueFalseQuestion{
					QuestionBase: domain.QuestionBase{Text: "Go was announced in 2009.", Duration: 15},
					Correct:      true,
				},
				&domain.RangeQuestion{
					QuestionBase: domain.QuestionBase{Text: "How many players fit on a football pitch per team?", Duration: 20},
					Min:          1,
					Max:          20,
					Step:         1,
					Margin:       domain.MarginMedium,
					Correct:      11,
				},
				&domain.TypeAnswerQuestion{
					QuestionBase: domain.QuestionBase{Text: "Name the gopher's language.", Duration: 20},
					Options:      []string{"Go", "Golang"},
				},
			},
		},
	}
}
