package main

import (
	"context"
	"log"
	"time"

	"pollbox/config"
	"pollbox/internal/handler"
	"pollbox/internal/redis"
	"pollbox/internal/repository"
	"pollbox/internal/secrets"
	"pollbox/internal/server"
	"pollbox/internal/services"
	"pollbox/internal/storage"
	"pollbox/pkg/database"
	"pollbox/pkg/events"
	"pollbox/pkg/logger"

	"go.uber.org/zap"
)

func main() {
	cfg := config.LoadConfig()

	l := logger.New(cfg.LogMode)
	logger.SetGlobalLogger(l)
	defer l.Sync()

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	pool, err := database.Connect(ctx, cfg.Database)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer pool.Close()

	signing, err := signingSecret(cfg.JWT)
	if err != nil {
		log.Fatalf("Failed to load signing secret: %v", err)
	}
	tokens := services.NewTokenCodec(signing)

	var exporter services.FreeResponseExporter
	if cfg.S3.Bucket != "" {
		client, err := storage.NewClient(ctx, cfg.S3)
		if err != nil {
			log.Fatalf("Failed to configure S3: %v", err)
		}
		exporter = client
	} else {
		l.Logger.Warn("S3_BUCKET not set, free-response polls cannot be tallied")
	}

	var publisher events.Publisher = events.NopPublisher{}
	if cfg.Events {
		rdb, err := redis.NewClient(ctx, redis.Config{
			Host:     cfg.Redis.Host,
			Port:     cfg.Redis.Port,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		if err != nil {
			l.Logger.Warn("redis unavailable, poll events disabled", zap.Error(err))
		} else {
			defer rdb.Close()
			publisher = events.NewRedisBroker(rdb)
		}
	}

	repo := repository.NewPollRepository(pool, cfg.ScanPageSize)
	maxSkew := time.Duration(cfg.JWT.CloseTokenMaxSkewSec) * time.Second
	pollService := services.NewPollService(repo, tokens, exporter, publisher, l, maxSkew)

	srv := server.New(cfg, l)
	srv.SetupRoutes(&server.Handlers{
		Poll: handler.NewPollHandler(pollService),
	})

	if err := srv.Start(); err != nil {
		l.Logger.Error("server stopped with error", zap.Error(err))
	}
}

func signingSecret(cfg config.JWTConfig) (secrets.Provider, error) {
	if cfg.SecretFile != "" {
		return secrets.Cached(secrets.FromFile(cfg.SecretFile)), nil
	}
	return secrets.NewStatic(cfg.Secret)
}
