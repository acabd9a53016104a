package db

import (
	"context"
	"time"

	"shopora-be/internal/config"
	"shopora-be/internal/logger"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// InitRedis opens the connection used for guest cart storage.
func InitRedis(cfg *config.Config) *redis.Client {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		logger.L().Fatal("ping redis", zap.Error(err))
	}

	logger.L().Info("redis connection established", zap.String("addr", cfg.RedisAddr))
	return client
}
