package vote

import (
	"context"
	"encoding/json"
	"time"

	"github.com/SlpAus/versus-arena-backend/internal/platform/database"
	"github.com/SlpAus/versus-arena-backend/internal/platform/metrics"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const statsKeyPrefix = "arena:stats:"

// StatsCache 把配对统计缓存到Redis。
// 客户端为空或Redis不健康时所有操作都直接跳过，调用方总是回退到数据库。
type StatsCache struct {
	rdb    *redis.Client
	ttl    time.Duration
	logger *zap.Logger
}

// NewStatsCache 创建统计缓存；rdb 为 nil 时返回一个始终未命中的缓存
func NewStatsCache(rdb *redis.Client, ttl time.Duration, logger *zap.Logger) *StatsCache {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &StatsCache{rdb: rdb, ttl: ttl, logger: logger}
}

func (c *StatsCache) usable() bool {
	return c != nil && c.rdb != nil && c.ttl > 0 && database.IsRedisHealthy()
}

// Get 读取缓存，返回的对象可以被调用方修改
func (c *StatsCache) Get(ctx context.Context, pairKey string) (*PairStats, bool) {
	if !c.usable() {
		metrics.StatsCacheLookups.WithLabelValues("bypass").Inc()
		return nil, false
	}
	raw, err := c.rdb.Get(ctx, statsKeyPrefix+pairKey).Bytes()
	if err == redis.Nil {
		metrics.StatsCacheLookups.WithLabelValues("miss").Inc()
		return nil, false
	}
	if err != nil {
		c.logger.Warn("读取统计缓存失败", zap.String("pairKey", pairKey), zap.Error(err))
		metrics.StatsCacheLookups.WithLabelValues("error").Inc()
		return nil, false
	}
	var stats PairStats
	if err := json.Unmarshal(raw, &stats); err != nil {
		c.logger.Warn("统计缓存内容损坏", zap.String("pairKey", pairKey), zap.Error(err))
		metrics.StatsCacheLookups.WithLabelValues("error").Inc()
		return nil, false
	}
	metrics.StatsCacheLookups.WithLabelValues("hit").Inc()
	return &stats, true
}

// Set 写入缓存，失败只记录日志
func (c *StatsCache) Set(ctx context.Context, pairKey string, stats *PairStats) {
	if !c.usable() {
		return
	}
	raw, err := json.Marshal(stats)
	if err != nil {
		c.logger.Warn("序列化统计失败", zap.String("pairKey", pairKey), zap.Error(err))
		return
	}
	if err := c.rdb.Set(ctx, statsKeyPrefix+pairKey, raw, c.ttl).Err(); err != nil {
		c.logger.Warn("写入统计缓存失败", zap.String("pairKey", pairKey), zap.Error(err))
	}
}

// Invalidate 删除某个配对的缓存
func (c *StatsCache) Invalidate(ctx context.Context, pairKey string) {
	if !c.usable() {
		return
	}
	if err := c.rdb.Del(ctx, statsKeyPrefix+pairKey).Err(); err != nil {
		c.logger.Warn("删除统计缓存失败", zap.String("pairKey", pairKey), zap.Error(err))
	}
}

// OnCommit 是提交观察者，投票成功后让该配对的缓存失效
func (c *StatsCache) OnCommit(ctx context.Context, result *CommitResult) {
	c.Invalidate(ctx, result.Vote.PairKey)
}

// Purge 删除全部统计缓存。Redis重启或恢复连接后调用，避免读到断线期间的旧数据。
func (c *StatsCache) Purge(ctx context.Context) error {
	if c == nil || c.rdb == nil {
		return nil
	}
	return deleteKeysByPrefix(ctx, c.rdb, statsKeyPrefix)
}

// deleteKeysByPrefix 分批 SCAN 并删除匹配前缀的key
func deleteKeysByPrefix(ctx context.Context, rdb *redis.Client, prefix string) error {
	var cursor uint64
	matchPattern := prefix + "*"
	const batchSize = 500

	for {
		keys, nextCursor, err := rdb.Scan(ctx, cursor, matchPattern, batchSize).Result()
		if err != nil {
			return err
		}
		if len(keys) > 0 {
			if err := rdb.Del(ctx, keys...).Err(); err != nil {
				return err
			}
		}
		cursor = nextCursor
		if cursor == 0 {
			return nil
		}
	}
}
