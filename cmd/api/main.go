package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/leandro-cabeda/taya-homework-nest-node-main/internal/api"
	"github.com/leandro-cabeda/taya-homework-nest-node-main/internal/store"
)

type config struct {
	DatabaseURL string
	Port        string
}

func loadConfig() (config, error) {
	dbURL := strings.TrimSpace(os.Getenv("DATABASE_URL"))
	if dbURL == "" {
		host := strings.TrimSpace(os.Getenv("DB_HOST"))
		if host == "" {
			host = "localhost"
		}
		port := strings.TrimSpace(os.Getenv("DB_PORT"))
		if port == "" {
			port = "5432"
		}
		user := strings.TrimSpace(os.Getenv("DB_USER"))
		password := strings.TrimSpace(os.Getenv("DB_PASSWORD"))
		name := strings.TrimSpace(os.Getenv("DB_NAME"))
		sslmode := strings.TrimSpace(os.Getenv("DB_SSLMODE"))
		if sslmode == "" {
			sslmode = "disable"
		}
		if user == "" || password == "" || name == "" {
			return config{}, errors.New("DATABASE_URL or DB_USER/DB_PASSWORD/DB_NAME are required")
		}
		dbURL = fmt.Sprintf(
			"host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
			host,
			port,
			user,
			password,
			name,
			sslmode,
		)
	}

	port := strings.TrimSpace(os.Getenv("PORT"))
	if port == "" {
		port = "8080"
	}

	return config{
		DatabaseURL: dbURL,
		Port:        port,
	}, nil
}

func main() {
	cfg, err := loadConfig()
	if err != nil {
		log.Fatalf("config error: %v", err)
	}

	logger, err := zap.NewProduction()
	if err != nil {
		log.Fatalf("logger error: %v", err)
	}
	defer func() {
		_ = logger.Sync()
	}()

	ctx := context.Background()
	pool, err := store.NewPool(ctx, cfg.DatabaseURL)
	if err != nil {
		logger.Fatal("db error", zap.Error(err))
	}
	defer pool.Close()

	srv := api.NewServer(store.New(pool), logger)

	httpServer := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           srv.Routes(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		logger.Info("listening", zap.String("addr", httpServer.Addr))
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("server error", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	ctxShutdown, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	_ = httpServer.Shutdown(ctxShutdown)
}
