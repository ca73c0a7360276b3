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
	"github.com/rs/cors"
	"github.com/spf13/cobra"

	"wp-quiz-service/internal/app"
	"wp-quiz-service/internal/auth"
	"wp-quiz-service/internal/config"
	"wp-quiz-service/internal/infra/memory"
	pgstore "wp-quiz-service/internal/infra/postgres"
	redisstore "wp-quiz-service/internal/infra/redis"
	"wp-quiz-service/internal/notify"
	"wp-quiz-service/internal/questionbank"
	transport "wp-quiz-service/internal/transport/http"
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

	var redisClient *redis.Client
	if cfg.Redis.Addr != "" {
		redisClient = redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
	}
	redisTTL := config.TTLDuration(cfg.Redis.TTL, 30*time.Minute)

	var pool *pgxpool.Pool
	if cfg.Postgres.URL != "" {
		pool, err = pgxpool.Connect(ctx, cfg.Postgres.URL)
		if err != nil {
			return err
		}
	}

	quizDuration := config.TTLDuration(cfg.Quiz.Duration, app.DefaultQuizDuration)
	cacheTTL := config.TTLDuration(cfg.Quiz.CacheTTL, 10*time.Minute)

	var profiles app.ProfileStore
	var results app.ResultStore
	var settings app.SettingsStore
	var primary app.QuestionSource
	if pool != nil {
		profiles = pgstore.NewProfileStore(pool)
		results = pgstore.NewResultStore(pool)
		settings = pgstore.NewSettingsStore(pool, quizDuration)
		loader := pgstore.NewQuestionLoader(pool)
		if redisClient != nil {
			primary = redisstore.NewQuestionRepository(redisClient, loader, cacheTTL)
		} else {
			primary = memory.NewQuestionRepository(loader, cacheTTL)
		}
	} else {
		log.Printf("postgres not configured, using in-memory stores and bundled questions")
		profiles = memory.NewProfileStore()
		results = memory.NewResultStore()
		settings = memory.StaticSettings{Duration: quizDuration}
	}

	mailer := notify.NewMailer(cfg.SMTP.Host, cfg.SMTP.Port, cfg.SMTP.Username,
		cfg.SMTP.Password, cfg.SMTP.FromEmail, cfg.SMTP.FromName)

	policy := app.NewPolicy(profiles, mailer)
	recorder := app.NewRecorder(results)
	newSession := func(userID string) *app.Session {
		return app.NewSession(userID, policy, recorder)
	}

	var sessions app.SessionRepository
	if redisClient != nil {
		sessions = redisstore.NewSessionStore(redisClient, redisTTL, newSession)
	} else {
		sessions = memory.NewSessionStore(newSession)
	}

	service := app.NewSessionService(sessions, primary, questionbank.NewLoader(), profiles, settings)

	tokens := auth.NewTokenService(cfg.Auth.Secret, config.TTLDuration(cfg.Auth.TokenTTL, 24*time.Hour))
	wsHandler := transport.NewWSHandler(service, tokens)

	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("ok"))
	})
	mux.HandleFunc("/ws", wsHandler.ServeWS)

	handler := cors.New(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Authorization", "Content-Type"},
		AllowCredentials: true,
	}).Handler(mux)

	server := &http.Server{
		Addr:         ":" + finalPort,
		Handler:      handler,
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
