package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"

	"chatsync/internal/chat"
	"chatsync/internal/config"
	"chatsync/internal/db"
	mymw "chatsync/internal/middleware"
	"chatsync/internal/seed"
	"chatsync/internal/session"
	"chatsync/internal/user"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		logrus.Fatalf("config: %v", err)
	}

	logger := newLogger(cfg)

	database, err := db.New(cfg.DBDriver, cfg.DBDSN)
	if err != nil {
		logger.Fatalf("failed to connect to database: %v", err)
	}
	defer database.Close()
	if err := database.Migrate(); err != nil {
		logger.Fatalf("migration failed: %v", err)
	}
	logger.WithField("driver", cfg.DBDriver).Info("database ready")

	var sessions session.Store
	if cfg.RedisAddr != "" {
		rdb := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
		if _, err := rdb.Ping(context.Background()).Result(); err != nil {
			logger.Fatalf("failed to connect to Redis: %v", err)
		}
		sessions = session.NewRedisStore(rdb, cfg.SessionTTL)
		logger.Info("using Redis session store")
	} else {
		sessions = session.NewMemoryStore()
		logger.Warn("no redis.addr configured, sessions are in-memory and single-instance")
	}
	manager := session.NewManager(cfg.JWTSecret, sessions, cfg.SessionTTL)

	userRepo := user.NewRepository(database)
	chatRepo := chat.NewRepository(database)

	var seeder user.Seeder
	if cfg.SeedDemo {
		seeder = seed.New(userRepo, chatRepo, logger)
	}

	userService := user.NewService(userRepo, manager, seeder, logger)
	userHandler := user.NewHandler(userService, logger)

	chatService := chat.NewService(chatRepo, logger)
	chatHandler := chat.NewHandler(chatService, logger)

	auth := mymw.NewAuth(manager)

	r := chi.NewRouter()
	r.Use(chimw.Recoverer)
	r.Use(mymw.RequestLogger(logger))

	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"ok":true}`))
	})
	r.Post("/api/login", userHandler.Login)

	r.Group(func(r chi.Router) {
		r.Use(auth.Handle)
		r.Get("/api/chats", chatHandler.ListChats)
		r.Post("/api/chats", chatHandler.CreateChat)
		r.Get("/api/chats/{chatID}", chatHandler.GetChat)
		r.Get("/api/chats/{chatID}/messages", chatHandler.GetMessages)
		r.Post("/api/chats/{chatID}/messages", chatHandler.SendMessage)
	})

	srv := &http.Server{Addr: cfg.Addr, Handler: r}

	go func() {
		logger.WithField("addr", cfg.Addr).Info("server starting")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatalf("server failed: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down")
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		logger.Errorf("shutdown: %v", err)
	}
	logger.Info("server exited")
}

func newLogger(cfg *config.Config) *logrus.Logger {
	logger := logrus.New()

	level, err := logrus.ParseLevel(cfg.LogLevel)
	if err != nil {
		level = logrus.InfoLevel
	}
	logger.SetLevel(level)

	if cfg.LogFormat == "json" {
		logger.SetFormatter(&logrus.JSONFormatter{})
	} else {
		logger.SetFormatter(&logrus.TextFormatter{})
	}
	return logger
}
