package database

import (
	"context"
	"fmt"
	"time"

	"github.com/SlpAus/versus-arena-backend/internal/platform/config"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// RDB 是全局的Redis客户端；Redis未启用时为nil
var RDB *redis.Client

// InitRedis 初始化与Redis的连接。Redis只承载统计缓存，未启用时直接返回nil。
func InitRedis(ctx context.Context, cfg config.RedisConfig, zl *zap.Logger) (*redis.Client, error) {
	if !cfg.Enabled {
		zl.Info("Redis未启用，统计缓存已关闭")
		SetRedisHealthy(false)
		return nil, nil
	}

	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Address,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	pingCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("无法连接到Redis: %w", err)
	}

	RDB = client
	SetRedisHealthy(true)
	zl.Info("Redis 连接成功", zap.String("address", cfg.Address))
	return client, nil
}
