package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-redis/redis/v8"
	log "github.com/sirupsen/logrus"

	"github.com/db44/storefront/config"
	"github.com/db44/storefront/database"
	"github.com/db44/storefront/models"
	"github.com/db44/storefront/routes"
	"github.com/db44/storefront/session"
	"github.com/db44/storefront/views"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.WithError(err).Fatal("Invalid configuration")
	}
	setupLogging(cfg.Log)

	ctx := context.Background()
	store, err := database.Open(ctx, cfg)
	if err != nil {
		log.WithError(err).Fatal("Failed to connect to database")
	}
	defer store.Close(context.Background())

	sessions, closeSessions, err := sessionStore(ctx, cfg.Session)
	if err != nil {
		log.WithError(err).Fatal("Failed to set up sessions")
	}
	defer closeSessions()

	renderer, err := views.New()
	if err != nil {
		log.WithError(err).Fatal("Failed to parse templates")
	}

	e := routes.NewServer(routes.Deps{
		Models: models.New(store),
		Sessions: session.NewManager(sessions, session.Options{
			Secret:     cfg.Session.Secret,
			CookieName: cfg.Session.CookieName,
			TTL:        cfg.Session.TTL,
			Secure:     cfg.Env == config.EnvProduction,
		}),
		Renderer: renderer,
	})

	server := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      e,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	go func() {
		log.WithField("port", cfg.Server.Port).WithField("env", cfg.Env).Info("Server starting")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.WithError(err).Fatal("Server stopped")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.WithError(err).Error("Graceful shutdown failed")
	}
	log.Info("Server stopped")
}

func setupLogging(cfg config.LogConfig) {
	if level, err := log.ParseLevel(cfg.Level); err == nil {
		log.SetLevel(level)
	} else {
		log.WithField("level", cfg.Level).Warn("Unknown log level, using info")
	}
	if cfg.Format == "json" {
		log.SetFormatter(&log.JSONFormatter{})
	} else {
		log.SetFormatter(&log.TextFormatter{FullTimestamp: true})
	}
}

func sessionStore(ctx context.Context, cfg config.SessionConfig) (session.Store, func(), error) {
	if cfg.Backend != "redis" {
		return session.NewMemoryStore(), func() {}, nil
	}
	client := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, nil, err
	}
	log.WithField("addr", cfg.RedisAddr).Info("Connected to Redis")
	return session.NewRedisStore(client), func() { _ = client.Close() }, nil
}
