package main // Entry point package

import (
	"context"
	"database/sql"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/iliyamo/outing-coordinator/internal/config"
	"github.com/iliyamo/outing-coordinator/internal/database"
	"github.com/iliyamo/outing-coordinator/internal/handler"
	"github.com/iliyamo/outing-coordinator/internal/logging"
	"github.com/iliyamo/outing-coordinator/internal/queue"
	"github.com/iliyamo/outing-coordinator/internal/repository"
	"github.com/iliyamo/outing-coordinator/internal/repository/memory"
	"github.com/iliyamo/outing-coordinator/internal/router"
	"github.com/iliyamo/outing-coordinator/internal/service"
)

func main() {
	_ = godotenv.Load() // .env is optional; real env vars win

	cfg := config.Load()
	logger := logging.Init(logging.Config{
		Level:       cfg.LogLevel,
		Pretty:      cfg.LogPretty,
		ServiceName: "outing-coordinator",
	})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	ctx = logging.WithLogger(ctx, logger)

	outings, requests, closeStore := openStore(ctx, cfg, logger)
	defer closeStore()

	var opts []service.Option
	if cfg.Broker.Enabled {
		opts = append(opts, service.WithPublisher(queue.NewPublisher(cfg.Broker.URL)))
		consumer := queue.NewActivityConsumer(cfg.Broker.URL, cfg.Broker.ActivityLogPath)
		go func() {
			if err := consumer.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
				logger.Error().Err(err).Msg("activity consumer stopped")
			}
		}()
		logger.Info().Str("log_path", cfg.Broker.ActivityLogPath).Msg("activity events enabled")
	}
	lifecycle := service.NewLifecycle(outings, requests, opts...)

	rl := config.LoadRateLimitConfig()
	cc := config.LoadCacheConfig()
	rdb := openRedis(rl.Enabled || cc.Enabled, logger)
	if rdb != nil {
		defer rdb.Close()
	}

	e := router.New(handler.NewOutingHandler(lifecycle), router.Options{
		Logger:         logger,
		IdentityHeader: cfg.IdentityHeader,
		AllowOrigins:   cfg.AllowedOrigins(),
		RateLimit:      rl,
		Cache:          cc,
		Redis:          rdb,
	})

	addr := ":" + cfg.Port
	go func() {
		logger.Info().Str("addr", addr).Str("env", cfg.Env).Str("store", cfg.StoreDriver).Msg("listening")
		if err := e.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal().Err(err).Msg("server failed")
		}
	}()

	<-ctx.Done()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("graceful shutdown failed")
	}
	logger.Info().Msg("server stopped")
}

// openStore selects the outing and request stores.  The returned func
// releases whatever was opened.
func openStore(ctx context.Context, cfg config.Config, logger zerolog.Logger) (service.OutingStore, service.InterestStore, func()) {
	if cfg.StoreDriver == config.StoreDriverMemory {
		logger.Warn().Msg("using in-memory store; data is lost on restart")
		s := memory.New()
		return s.Outings(), s.InterestRequests(), func() {}
	}

	db, err := database.Open(ctx, cfg)
	if err != nil {
		logger.Fatal().Err(err).Msg("database unavailable")
	}
	if cfg.AutoMigrate {
		if err := database.Migrate(ctx, db); err != nil {
			logger.Fatal().Err(err).Msg("migration failed")
		}
	}
	return repository.NewOutingRepo(db), repository.NewInterestRequestRepo(db), func() { closeDB(db, logger) }
}

func closeDB(db *sql.DB, logger zerolog.Logger) {
	if err := db.Close(); err != nil {
		logger.Warn().Err(err).Msg("closing database")
	}
}

// openRedis connects only when a Redis-backed feature is enabled.  A
// failed connection is logged and the features run as pass-through.
func openRedis(wanted bool, logger zerolog.Logger) *redis.Client {
	if !wanted {
		return nil
	}
	rdb, err := config.NewRedisClient(config.LoadRedisConfig())
	if err != nil {
		logger.Warn().Err(err).Msg("redis unavailable; rate limiting and caching disabled")
		return nil
	}
	return rdb
}
