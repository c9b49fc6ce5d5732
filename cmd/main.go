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
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/rs/zerolog"

	"todo-service/internal/api"
	"todo-service/internal/auth"
	"todo-service/internal/config"
	"todo-service/internal/events"
	"todo-service/internal/fieldcrypt"
	"todo-service/internal/metrics"
	"todo-service/internal/repository"
	"todo-service/internal/service"
	"todo-service/migrations"
)

var logger = zerolog.New(os.Stdout).With().Timestamp().Str("component", "main").Logger()

func main() {
	cfg, err := config.Load()
	if err != nil {
		logger.Fatal().Err(err).Msg("Invalid configuration")
	}

	level, err := zerolog.ParseLevel(cfg.LogLevel)
	if err != nil {
		logger.Fatal().Err(err).Str("level", cfg.LogLevel).Msg("Invalid LOG_LEVEL")
	}
	zerolog.SetGlobalLevel(level)

	db, err := repository.Connect(cfg.DB.Driver, cfg.DB.DSN(), 10, 3*time.Second)
	if err != nil {
		logger.Fatal().Err(err).Msg("Failed to connect to database")
	}
	defer db.Close()

	dialect := migrations.Dialect(cfg.DB.Driver)
	if err := migrations.AutoMigrateUsers(dialect, 3, db); err != nil {
		logger.Fatal().Err(err).Msg("Failed to migrate users table")
	}
	if err := migrations.AutoMigrateTasks(dialect, 3, db); err != nil {
		logger.Fatal().Err(err).Msg("Failed to migrate tasks table")
	}

	cipher, err := fieldcrypt.NewFromHex(cfg.FieldEncryptionKey)
	if err != nil {
		logger.Fatal().Err(err).Msg("Invalid FIELD_ENCRYPTION_KEY")
	}

	var rdb *redis.Client
	if cfg.RedisAddr != "" {
		rdb = redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
		defer rdb.Close()
	}

	hasher, err := auth.NewPasswordHasher(cfg.Auth.BcryptCost)
	if err != nil {
		logger.Fatal().Err(err).Msg("Invalid BCRYPT_COST")
	}
	issuer, err := auth.NewTokenIssuer([]byte(cfg.Auth.Secret))
	if err != nil {
		logger.Fatal().Err(err).Msg("Failed to create token issuer")
	}
	resolver, err := auth.NewIdentityResolver(cfg.Auth.Mode, issuer, rdb, cfg.Auth.TokenTTL)
	if err != nil {
		logger.Fatal().Err(err).Msg("Failed to create identity resolver")
	}

	var publisher events.Publisher = events.Nop{}
	if len(cfg.KafkaBrokers) > 0 {
		kafkaWriter := config.NewKafkaWriter(cfg.KafkaBrokers, cfg.KafkaTopic)
		defer kafkaWriter.Close()
		publisher = events.NewKafkaPublisher(kafkaWriter)
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	m := metrics.New(registry)

	userRepo := repository.NewUserRepository(db)
	taskRepo := repository.NewTaskRepository(db, dialect, cipher)

	var taskCache service.TaskCache
	if rdb != nil {
		taskCache = repository.NewTaskCache(rdb, repository.DefaultTaskCacheTTL, cipher)
	}

	authService := service.NewAuthService(userRepo, hasher, resolver, m)
	taskService := service.NewTaskService(taskRepo, taskCache, publisher, m)

	e := api.NewRouter(cfg, authService, taskService, m)

	go func() {
		logger.Info().Str("port", cfg.Port).Str("auth_mode", cfg.Auth.Mode).Str("db_driver", cfg.DB.Driver).Msg("Starting server")
		if err := e.Start(":" + cfg.Port); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal().Err(err).Msg("Server stopped")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := e.Shutdown(ctx); err != nil {
		logger.Error().Err(err).Msg("Error shutting down server")
	}
}
