package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"

	"github.com/tradege/stek-sub008/internal/api"
	"github.com/tradege/stek-sub008/internal/casino"
	"github.com/tradege/stek-sub008/internal/config"
	"github.com/tradege/stek-sub008/internal/session"
	"github.com/tradege/stek-sub008/internal/store"
)

func main() {
	log := logrus.New()
	log.SetFormatter(&logrus.JSONFormatter{})
	if level, err := logrus.ParseLevel(os.Getenv("LOG_LEVEL")); err == nil {
		log.SetLevel(level)
	}

	if err := run(log); err != nil {
		log.WithError(err).Fatal("server exited")
	}
}

func run(log *logrus.Logger) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	if cfg.DatabaseURL == "" {
		return errors.New("DATABASE_URL is required")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	db, err := store.Connect(ctx, cfg.DatabaseURL)
	if err != nil {
		return err
	}
	defer db.Close()

	if err := store.MigrateUp(cfg.DatabaseURL); err != nil {
		return err
	}
	log.Info("database ready")

	// Sessions survive restarts only with redis behind them; the
	// in-memory store is for single-node and development setups.
	var sessionStore session.Store = session.NewMemoryStore()
	if cfg.RedisAddr != "" {
		client := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr, DB: cfg.RedisDB})
		if err := client.Ping(ctx).Err(); err != nil {
			return err
		}
		defer client.Close()
		sessionStore = session.NewRedisStore(client, cfg.SessionTTL)
		log.WithField("addr", cfg.RedisAddr).Info("using redis session store")
	}

	svc := casino.NewService(store.NewTxRunner(db), session.NewRegistry(sessionStore), cfg, log)
	server := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      api.NewServer(svc, log).Routes(),
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		log.WithField("port", cfg.Port).Info("listening")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	log.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return server.Shutdown(shutdownCtx)
}
