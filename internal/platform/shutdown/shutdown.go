package shutdown

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/SlpAus/versus-arena-backend/pkg/lifecycle"
	"go.uber.org/zap"
)

const (
	httpTimeout     = 15 * time.Second
	gracefulTimeout = 30 * time.Second
	forcefulTimeout = 1 * time.Second
)

type finalizer struct {
	name string
	fn   func() error
}

// Coordinator 负责编排应用程序的优雅停机流程。
// 它接收外部创建的生命周期管理器，并使用它们来协调停机。
type Coordinator struct {
	GracefulManager *lifecycle.Manager
	ForcefulManager *lifecycle.Manager

	finalizers []finalizer
	logger     *zap.Logger
}

// NewCoordinator 创建一个新的停机协调器。
func NewCoordinator(gracefulMgr, forcefulMgr *lifecycle.Manager, logger *zap.Logger) *Coordinator {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Coordinator{
		GracefulManager: gracefulMgr,
		ForcefulManager: forcefulMgr,
		logger:          logger,
	}
}

// OnFinalize 注册一个在所有后台服务退出后执行的收尾动作，按注册顺序执行
func (c *Coordinator) OnFinalize(name string, fn func() error) {
	c.finalizers = append(c.finalizers, finalizer{name: name, fn: fn})
}

// ListenForSignalsAndShutdown 启动信号监听并阻塞，直到停机流程完成。
func (c *Coordinator) ListenForSignalsAndShutdown(server *http.Server) {
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigChan)

	sig := <-sigChan
	c.logger.Info("收到关闭信号，开始优雅停机", zap.String("signal", sig.String()))
	c.Shutdown(server)
}

// Shutdown 依次关闭HTTP服务器、后台服务，最后执行收尾动作
func (c *Coordinator) Shutdown(server *http.Server) {
	// 关闭HTTP服务器，允许正在进行的请求完成
	if server != nil {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), httpTimeout)
		if err := server.Shutdown(shutdownCtx); err != nil {
			c.logger.Error("HTTP服务器关闭错误", zap.Error(err))
		} else {
			c.logger.Info("HTTP服务器已关闭")
		}
		cancel()
	}

	// --- 阶段一: 优雅停机 ---
	c.logger.Info("第一阶段停机：等待后台任务完成", zap.Duration("timeout", gracefulTimeout))
	c.GracefulManager.Shutdown()
	remaining := c.GracefulManager.WaitWithTimeout(gracefulTimeout)
	if len(remaining) == 0 {
		c.logger.Info("所有服务已在第一阶段优雅关闭")
	} else {
		// --- 阶段二: 强制停机 ---
		c.logger.Warn("第一阶段超时，发送强制停机信号", zap.Strings("remaining", remaining))
		c.ForcefulManager.Shutdown()
		c.ForcefulManager.WaitWithTimeout(forcefulTimeout)
	}

	// --- 最终步骤 ---
	for _, f := range c.finalizers {
		if err := f.fn(); err != nil {
			c.logger.Error("收尾动作失败", zap.String("step", f.name), zap.Error(err))
		}
	}
	c.logger.Info("优雅停机完成")
}
