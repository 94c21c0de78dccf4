package payment

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"

	"github.com/tair/marketplace-payments/internal/config"
	"github.com/tair/marketplace-payments/internal/payment/usecase/command"
	"github.com/tair/marketplace-payments/kafka"
	"github.com/tair/marketplace-payments/pkg/database"
	"github.com/tair/marketplace-payments/pkg/logger"
)

// OpenDatabase connects to PostgreSQL with the configured settings.
func OpenDatabase(cfg *config.Config) (*gorm.DB, error) {
	return database.NewGormConnection(database.Config{
		Host:     cfg.DB.Host,
		Port:     cfg.DB.Port,
		User:     cfg.DB.User,
		Password: cfg.DB.Password,
		DBName:   cfg.DB.Name,
		SSLMode:  cfg.DB.SSLMode,
	})
}

// OpenRedis returns a connected client, or nil when Redis is not configured
// or unreachable. Token caching and rate limiting are off without it.
func OpenRedis(ctx context.Context, cfg *config.Config) *redis.Client {
	if cfg.Redis.Addr == "" {
		logger.Info(ctx).Msg("Redis not configured, token cache and rate limiting disabled")
		return nil
	}

	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})

	pingCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	if err := rdb.Ping(pingCtx).Err(); err != nil {
		logger.Warn(ctx).Err(err).Str("addr", cfg.Redis.Addr).Msg("Redis unreachable, token cache and rate limiting disabled")
		_ = rdb.Close()
		return nil
	}

	logger.Info(ctx).Str("addr", cfg.Redis.Addr).Msg("Connected to Redis")
	return rdb
}

// OpenPublisher returns the Kafka publisher, or nil when no brokers are
// configured or none is reachable. Callers must check for nil before passing
// it on as a command.EventPublisher.
func OpenPublisher(ctx context.Context, cfg *config.Config) *kafka.Publisher {
	if len(cfg.Kafka.Brokers) == 0 {
		logger.Info(ctx).Msg("Kafka not configured, payment events disabled")
		return nil
	}

	publisher, err := kafka.NewPublisher(cfg.Kafka.Brokers, cfg.Kafka.Topic)
	if err != nil {
		logger.Warn(ctx).Err(err).Strs("brokers", cfg.Kafka.Brokers).Msg("Kafka unavailable, payment events disabled")
		return nil
	}
	return publisher
}

// EventPublisher converts a possibly nil publisher into the interface the
// reconciler expects, keeping nil an untyped nil.
func EventPublisher(p *kafka.Publisher) command.EventPublisher {
	if p == nil {
		return nil
	}
	return p
}
