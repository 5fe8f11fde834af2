package health

import (
	"context"
	"fmt"
	"regexp"
	"time"

	"github.com/SlpAus/versus-arena-backend/internal/platform/database"
	"github.com/SlpAus/versus-arena-backend/pkg/lifecycle"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const (
	defaultCheckInterval = 5 * time.Second
	pingTimeout          = 2 * time.Second
)

var runIDPattern = regexp.MustCompile(`run_id:([a-f0-9]+)`)

// RecoverFunc 在Redis重启或恢复连接后调用，用于清理可能过期的缓存
type RecoverFunc func(ctx context.Context) error

// Checker 定期检查Redis是否可用，并通过 run_id 识别Redis重启
type Checker struct {
	rdb       *redis.Client
	interval  time.Duration
	onRecover RecoverFunc
	logger    *zap.Logger

	// probe 是每轮执行的检查，默认为 PerformCheck
	probe func(ctx context.Context)
}

// NewChecker 创建健康检查器；interval <= 0 时使用默认间隔
func NewChecker(rdb *redis.Client, interval time.Duration, onRecover RecoverFunc, logger *zap.Logger) *Checker {
	if interval <= 0 {
		interval = defaultCheckInterval
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	c := &Checker{rdb: rdb, interval: interval, onRecover: onRecover, logger: logger}
	c.probe = c.PerformCheck
	return c
}

// getRedisRunID 从Redis服务器信息中提取run_id
func (c *Checker) getRedisRunID(ctx context.Context) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, pingTimeout)
	defer cancel()
	info, err := c.rdb.Info(ctx, "server").Result()
	if err != nil {
		return "", err
	}
	return parseRunID(info)
}

func parseRunID(info string) (string, error) {
	matches := runIDPattern.FindStringSubmatch(info)
	if len(matches) < 2 {
		return "", fmt.Errorf("无法在Redis INFO中找到run_id")
	}
	return matches[1], nil
}

// PerformCheck 执行一次健康检查。
// Redis重启（run_id变化）或从不可用恢复时，先执行恢复操作，成功后才标记为可用。
func (c *Checker) PerformCheck(ctx context.Context) {
	runID, err := c.getRedisRunID(ctx)
	if err != nil {
		if database.SetRedisHealthy(false) {
			c.logger.Warn("健康检查: Redis不可用，统计缓存已停用", zap.Error(err))
		}
		return
	}

	previous := database.SwapRunID(runID)
	restarted := previous != "" && previous != runID
	if restarted || !database.IsRedisHealthy() {
		if c.onRecover != nil {
			if err := c.onRecover(ctx); err != nil {
				c.logger.Error("健康检查: 恢复操作失败，保持不可用状态", zap.Error(err))
				database.SetRedisHealthy(false)
				// 下一轮重新执行恢复
				database.SwapRunID("")
				return
			}
		}
		c.logger.Info("健康检查: Redis已恢复", zap.String("runId", runID), zap.Bool("restarted", restarted))
	}
	database.SetRedisHealthy(true)
}

// Run 阻塞式地定期执行健康检查。
// gracefulHandle 停止后不再开始新的检查；正在执行的检查（包括恢复时的缓存清理）
// 只有在 forcefulHandle 收到停机信号时才会被中断。
func (c *Checker) Run(gracefulHandle, forcefulHandle *lifecycle.Handle) {
	defer gracefulHandle.Close()
	defer forcefulHandle.Close()
	c.logger.Info("Redis健康检查器已启动", zap.Duration("interval", c.interval))

	for {
		if err := gracefulHandle.Sleep(c.interval); err != nil {
			c.logger.Info("Redis健康检查器已停止")
			return
		}
		c.probe(forcefulHandle.Ctx())
	}
}
