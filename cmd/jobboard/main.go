package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/gartstein/jobboard/internal/jobboard/auth"
	"github.com/gartstein/jobboard/internal/jobboard/config"
	"github.com/gartstein/jobboard/internal/jobboard/controller"
	"github.com/gartstein/jobboard/internal/jobboard/db"
	"github.com/gartstein/jobboard/internal/jobboard/events"
	"github.com/gartstein/jobboard/internal/jobboard/handlers"
	"github.com/gartstein/jobboard/internal/jobboard/ratelimit"
	"go.uber.org/zap"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
)

type producer interface {
	controller.EventProducer
	Close()
}

func main() {
	cfg, err := config.Load("")
	if err != nil {
		// The logger depends on the environment setting.
		fallback, _ := zap.NewProduction()
		fallback.Fatal("failed to load config", zap.Error(err))
	}

	logger := initLogger(cfg)
	defer func(logger *zap.Logger) {
		_ = logger.Sync()
	}(logger)

	repo, err := initDatabase(cfg, logger)
	if err != nil {
		logger.Fatal("failed to initialize database", zap.Error(err))
	}
	defer repo.Close()

	prod := initProducer(cfg, logger)
	defer prod.Close()

	limiter := initLimiter(cfg, logger)
	if c, ok := limiter.(interface{ Close() error }); ok {
		defer c.Close()
	}

	tokens := auth.NewTokens(cfg.JWTSecret, cfg.TokenTTL)
	services := controller.NewServices(controller.Deps{
		Repo:    repo,
		Hasher:  auth.NewBcryptHasher(cfg.BcryptCost),
		Tokens:  tokens,
		Limiter: limiter,
		Throttle: controller.LoginThrottle{
			Limit:  cfg.LoginMaxAttempts,
			Window: cfg.LoginWindow,
		},
		Producer: prod,
		Logger:   logger,
	})
	api := handlers.NewAPI(services, auth.NewAuthenticator(tokens), logger, cfg.IsDevelopment())

	server := handlers.NewServer(cfg.GRPCPort, cfg.HTTPPort, logger)
	if err := server.RegisterHTTPGateway(api, []grpc.DialOption{
		grpc.WithTransportCredentials(insecure.NewCredentials()),
	}); err != nil {
		logger.Fatal("Failed to register HTTP gateway", zap.Error(err))
	}

	go func() {
		if err := server.Start(); err != nil {
			logger.Fatal("Failed to start servers", zap.Error(err))
		}
	}()

	waitForShutdown(server, logger)
}

// initLogger returns a development logger when ENVIRONMENT is development
// and a production logger otherwise.
func initLogger(cfg *config.Config) *zap.Logger {
	var (
		logger *zap.Logger
		err    error
	)
	if cfg.IsDevelopment() {
		logger, err = zap.NewDevelopment()
	} else {
		logger, err = zap.NewProduction()
	}
	if err != nil {
		return zap.NewNop()
	}
	return logger
}

// initDatabase opens the configured store, retrying PostgreSQL while it
// comes up.
func initDatabase(cfg *config.Config, logger *zap.Logger) (*db.Repository, error) {
	if cfg.DBDriver == "sqlite" {
		return db.NewSQLiteRepository(cfg.SQLitePath)
	}

	dbConf := &db.Config{
		Host:     cfg.DBHost,
		Port:     cfg.DBPort,
		User:     cfg.DBUser,
		Password: cfg.DBPassword,
		DBName:   cfg.DBName,
		SSLMode:  cfg.DBSSLMode,
	}
	var repo *db.Repository
	policy := backoff.NewExponentialBackOff()
	policy.MaxElapsedTime = time.Minute
	err := backoff.RetryNotify(func() error {
		var err error
		repo, err = db.NewRepository(dbConf)
		return err
	}, policy, func(err error, wait time.Duration) {
		logger.Warn("Database not ready, retrying", zap.Error(err), zap.Duration("wait", wait))
	})
	return repo, err
}

// initProducer publishes to Kafka when brokers are configured and drops
// events otherwise.
func initProducer(cfg *config.Config, logger *zap.Logger) producer {
	if len(cfg.KafkaBrokers) == 0 {
		logger.Info("No Kafka brokers configured, domain events disabled")
		return events.NopProducer{}
	}
	p, err := events.NewProducer(cfg.KafkaBrokers, logger, cfg.Topic)
	if err != nil {
		logger.Fatal("failed to initialize Kafka producer", zap.Error(err))
	}
	return p
}

// initLimiter shares login attempt counters through Redis when REDIS_ADDR
// is set and keeps them in process otherwise.
func initLimiter(cfg *config.Config, logger *zap.Logger) ratelimit.Limiter {
	if cfg.RedisAddr == "" {
		return ratelimit.NewMemoryLimiter(0, nil)
	}
	limiter, err := ratelimit.NewRedisLimiter(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
	if err != nil {
		logger.Fatal("failed to initialize Redis limiter", zap.Error(err))
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := limiter.Ping(ctx); err != nil {
		logger.Warn("Redis unreachable, login throttling fails open until it recovers",
			zap.String("addr", cfg.RedisAddr),
			zap.Error(err),
		)
	}
	return limiter
}

// waitForShutdown blocks until an interrupt or SIGTERM is received, then shuts down servers.
func waitForShutdown(server *handlers.Server, logger *zap.Logger) {
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	<-stop

	server.Stop()
	logger.Info("Servers stopped properly")
}
