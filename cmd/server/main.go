// Package main runs the quiz HTTP API with graceful shutdown.
package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	goredis "github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/aura-quiz/backend/config"
	"github.com/aura-quiz/backend/internal/attempts"
	"github.com/aura-quiz/backend/internal/auth"
	"github.com/aura-quiz/backend/internal/leaderboard"
	"github.com/aura-quiz/backend/internal/quizzes"
	"github.com/aura-quiz/backend/internal/realtime"
	"github.com/aura-quiz/backend/internal/store"
	"github.com/aura-quiz/backend/internal/store/memory"
	"github.com/aura-quiz/backend/internal/store/postgres"
	"github.com/aura-quiz/backend/internal/worker"
	"github.com/aura-quiz/backend/pkg/database"
	"github.com/aura-quiz/backend/pkg/queue"
	"github.com/aura-quiz/backend/pkg/redis"
	"github.com/aura-quiz/backend/pkg/storage"
	"github.com/aura-quiz/backend/pkg/utils"
)

func main() {
	logger := newLogger()
	defer logger.Sync()

	cfg, err := config.Load()
	if err != nil {
		logger.Fatal("load config", zap.Error(err))
	}

	ctx := context.Background()
	st, closeStore, err := openStore(ctx, cfg, logger)
	if err != nil {
		logger.Fatal("store", zap.Error(err))
	}
	defer closeStore()

	var rdb *goredis.Client
	rc, err := redis.NewClient(ctx, cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB, logger)
	switch {
	case errors.Is(err, redis.ErrDisabled):
		logger.Info("redis disabled; leaderboard cache, job queue and live stream are off")
	case err != nil:
		logger.Warn("redis unavailable; continuing without cache, job queue and live stream", zap.Error(err))
	default:
		defer rc.Close()
		rdb = rc.Client
	}

	var s3Client *storage.S3
	if cfg.AWS.Region != "" {
		s3Client, err = storage.NewS3(ctx, storage.S3Config{
			Region:               cfg.AWS.Region,
			AccessKeyID:          cfg.AWS.AccessKeyID,
			SecretAccessKey:      cfg.AWS.SecretAccessKey,
			ExportsBucket:        cfg.AWS.ExportsBucket,
			PresignExpireMinutes: cfg.AWS.PresignExpireMinutes,
		}, logger)
		if err != nil {
			logger.Warn("s3 disabled", zap.Error(err))
		}
	}

	jwtService := auth.NewJWTService(cfg.JWT.Secret, cfg.JWT.ExpireHours)
	authService := auth.NewService(st, utils.NewPasswordHasher(cfg.Auth.BcryptCost), jwtService, logger)

	quizService := quizzes.NewService(st, logger)
	if s3Client != nil {
		quizService.SetExportStore(s3Client)
	}

	board := leaderboard.NewService(st, rdb, cfg.Leaderboard.CacheTTL(), cfg.Leaderboard.Limit, logger)
	engine := attempts.NewEngine(st, logger)
	engine.OnComplete(board)

	var (
		subscriber realtime.Subscriber
		processor  *worker.LeaderboardProcessor
	)
	if rdb != nil {
		pubsub := realtime.NewRedisPubSub(rdb, logger)
		subscriber = pubsub
		jobQueue := queue.NewQueue(rdb, logger)
		engine.OnComplete(worker.NewCompletionPublisher(jobQueue, logger))
		processor = worker.NewLeaderboardProcessor(board, pubsub, jobQueue, logger)
	}

	router := newRouter(cfg.Server.CORSAllowedOrigins, jwtService, handlers{
		auth:        auth.NewHandler(authService),
		quizzes:     quizzes.NewHandler(quizService),
		attempts:    attempts.NewHandler(engine),
		leaderboard: leaderboard.NewHandler(board, subscriber, logger),
	}, logger)

	srv := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      router,
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(cfg.Server.WriteTimeout) * time.Second,
	}

	// Background worker (leaderboard refresh + live push)
	workerCtx, workerCancel := context.WithCancel(context.Background())
	defer workerCancel()
	if processor != nil {
		go processor.Run(workerCtx)
		logger.Info("leaderboard worker started")
	}

	go func() {
		logger.Info("server listening", zap.String("port", cfg.Server.Port), zap.String("store", cfg.Database.Driver))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("server", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	workerCancel()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server shutdown", zap.Error(err))
	}
	logger.Info("server stopped")
}

// openStore returns the configured store and a function releasing it.
func openStore(ctx context.Context, cfg *config.Config, logger *zap.Logger) (store.Store, func(), error) {
	if cfg.Database.Driver == config.DriverMemory {
		logger.Warn("using in-memory store; data is lost on restart")
		return memory.New(), func() {}, nil
	}
	pool, err := database.NewPostgresPool(ctx, cfg.Database.DSN(), logger)
	if err != nil {
		return nil, nil, err
	}
	if err := database.Migrate(ctx, pool, logger); err != nil {
		pool.Close()
		return nil, nil, err
	}
	return postgres.New(pool), pool.Close, nil
}

func newLogger() *zap.Logger {
	config := zap.NewProductionConfig()
	config.EncoderConfig.TimeKey = "timestamp"
	config.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	logger, _ := config.Build()
	return logger
}
